package health

import (
	"context"
	"encoding/json"
	"fmt"
)

// Command is the status-port request that asks for a health report.
const Command = "STATUS"

// State is the overall or per-component health state.
type State string

const (
	StateOK      State = "OK"
	StateWarning State = "WARNING"
	StateError   State = "ERROR"
)

// severity orders states so that reports can be combined.
func (s State) severity() int {
	switch s {
	case StateOK:
		return 0
	case StateWarning:
		return 1
	default:
		return 2
	}
}

// Worst returns the more severe of a and b.
func Worst(a, b State) State {
	if b.severity() > a.severity() {
		return b
	}
	return a
}

// ComponentResult is the health of one part of the server.
type ComponentResult struct {
	Name    string `json:"name"`
	State   State  `json:"state"`
	Message string `json:"message,omitempty"`
}

// Report is the result of a health query.
type Report struct {
	State   State             `json:"state"`
	Message string            `json:"message"`
	Details []ComponentResult `json:"details"`
}

// Provider computes the current health of the server.
type Provider interface {
	State(ctx context.Context) Report
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) Report

// State calls f(ctx).
func (f ProviderFunc) State(ctx context.Context) Report {
	return f(ctx)
}

// NoProviderMessage explains a report produced without a provider.
const NoProviderMessage = "No health provider found - server state cannot be determined"

// Unavailable is the report returned when no provider is attached.
func Unavailable() Report {
	return Report{
		State:   StateWarning,
		Message: NoProviderMessage,
		Details: []ComponentResult{},
	}
}

// Summarize builds a report whose state is the worst of the component states.
// With no components the state is OK.
func Summarize(details []ComponentResult) Report {
	state := StateOK
	failing := 0
	for _, d := range details {
		state = Worst(state, d.State)
		if d.State != StateOK {
			failing++
		}
	}
	if details == nil {
		details = []ComponentResult{}
	}

	msg := "All components are healthy"
	if failing > 0 {
		msg = fmt.Sprintf("%d components are not healthy", failing)
		if failing == 1 {
			msg = "1 component is not healthy"
		}
	}
	return Report{State: state, Message: msg, Details: details}
}

// Marshal encodes r as a single line of JSON.
func (r Report) Marshal() ([]byte, error) {
	if r.Details == nil {
		r.Details = []ComponentResult{}
	}
	return json.Marshal(r)
}
