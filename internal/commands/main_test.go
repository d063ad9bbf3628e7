package commands

import (
	"io"
	"os"
	"testing"

	"gdaserver/pkg/logging"
)

func TestMain(m *testing.M) {
	logging.InitForCLI(logging.LevelDebug, io.Discard)
	os.Exit(m.Run())
}
