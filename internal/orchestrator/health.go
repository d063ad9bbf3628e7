package orchestrator

import (
	"context"
	"fmt"

	"gdaserver/internal/health"
	"gdaserver/internal/services"
)

// RegistryHealth reports the health of everything in r. A dead
// infrastructure process is an error, an unhealthy object server a warning.
func RegistryHealth(r *Registry) health.Provider {
	return health.ProviderFunc(func(ctx context.Context) health.Report {
		infra, objects := r.Snapshot()
		details := make([]health.ComponentResult, 0, len(infra)+len(objects))

		for _, e := range infra {
			result := health.ComponentResult{Name: string(e.Role), State: health.StateOK}
			if e.Handle.Alive() {
				result.Message = fmt.Sprintf("running (PID: %d)", e.Handle.PID())
			} else {
				result.State = health.StateError
				result.Message = fmt.Sprintf("process %d is not running", e.Handle.PID())
			}
			details = append(details, result)
		}

		for _, e := range objects {
			details = append(details, objectHealth(ctx, e))
		}

		return health.Summarize(details)
	})
}

func objectHealth(ctx context.Context, e ObjectEntry) health.ComponentResult {
	result := health.ComponentResult{Name: e.Profile, State: health.StateOK}

	status, err := services.Check(ctx, e.Service)
	switch status {
	case services.HealthHealthy:
		result.Message = "healthy"
	case services.HealthUnhealthy:
		result.State = health.StateWarning
		result.Message = "unhealthy"
		if err != nil {
			result.Message = err.Error()
		}
	default:
		result.Message = "running"
	}
	return result
}
