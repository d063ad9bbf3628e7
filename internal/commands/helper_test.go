package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"testing"
	"time"
)

// helperArgv returns a command line that re-runs the test binary as a fake
// server behaving according to mode.
func helperArgv(mode string) []string {
	return []string{os.Args[0], "-test.run=TestHelperProcess", "--", mode}
}

var helperEnv = map[string]string{"GO_WANT_HELPER_PROCESS": "1"}

// TestHelperProcess is not a real test. It's used by helperArgv.
func TestHelperProcess(t *testing.T) {
	if os.Getenv("GO_WANT_HELPER_PROCESS") != "1" {
		return
	}

	mode := ""
	for i, arg := range os.Args {
		if arg == "--" && i+1 < len(os.Args) {
			mode = os.Args[i+1]
			break
		}
	}

	switch mode {
	case "exit":
		fmt.Fprintln(os.Stderr, "fatal: configuration not found")
		os.Exit(1)
	case "echo":
		fmt.Fprintln(os.Stdout, "fake output")
		time.Sleep(time.Minute)
	case "ignore-term":
		signal.Ignore(syscall.SIGTERM)
		time.Sleep(time.Minute)
	default:
		time.Sleep(time.Minute)
	}
	os.Exit(0)
}
