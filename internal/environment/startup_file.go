package environment

import (
	"fmt"
	"os"

	"gdaserver/pkg/logging"
)

const (
	// EnvStartupFile names the file external supervisors watch for startup failures.
	EnvStartupFile = "OBJECT_SERVER_STARTUP_FILE"

	// DefaultStartupFile is used when EnvStartupFile is unset.
	DefaultStartupFile = "/tmp/object_server_startup_server_main"
)

// For mocking in tests
var osLookupEnv = os.LookupEnv

// StartupFilePath returns where startup failures are reported.
func StartupFilePath() string {
	if path, ok := osLookupEnv(EnvStartupFile); ok && path != "" {
		return path
	}
	return DefaultStartupFile
}

// WriteStartupError writes the message of cause to the startup file. Failing
// to write is logged, not returned, as the server is already failing.
func WriteStartupError(cause error) string {
	path := StartupFilePath()
	msg := "unknown startup failure"
	if cause != nil {
		msg = cause.Error()
	}

	if err := os.WriteFile(path, []byte(msg), 0o644); err != nil {
		logging.Error("Environment", err, "Failed to write startup file to %s", path)
		return path
	}
	logging.Info("Environment", "Wrote error file to %s", path)
	return path
}

// DescribeStartupFile is a short human readable hint for log output.
func DescribeStartupFile() string {
	return fmt.Sprintf("%s (override with %s)", StartupFilePath(), EnvStartupFile)
}
