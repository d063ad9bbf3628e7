package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", rootCmd.Version)
}

func TestRootCommand(t *testing.T) {
	assert.Equal(t, "gdaserver", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
	assert.True(t, rootCmd.SilenceUsage)

	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "status")
	assert.Contains(t, names, "version")
}

func TestVersionCommand(t *testing.T) {
	SetVersion("0.9.0")

	var buf bytes.Buffer
	cmd := newVersionCmd()
	cmd.SetOut(&buf)
	cmd.Run(cmd, nil)

	assert.Equal(t, "gdaserver version 0.9.0\n", buf.String())
}

func TestServeFlags(t *testing.T) {
	cmd := newServeCmd()

	require.NoError(t, cmd.ParseFlags([]string{
		"--config", "/etc/gdaserver.yaml",
		"-p", "main", "--profile", "diffraction",
		"--debug",
		"--metrics-address", "localhost:9464",
	}))

	profiles, err := cmd.Flags().GetStringArray("profile")
	require.NoError(t, err)
	assert.Equal(t, []string{"main", "diffraction"}, profiles)

	configPath, err := cmd.Flags().GetString("config")
	require.NoError(t, err)
	assert.Equal(t, "/etc/gdaserver.yaml", configPath)

	debug, err := cmd.Flags().GetBool("debug")
	require.NoError(t, err)
	assert.True(t, debug)

	metricsAddress, err := cmd.Flags().GetString("metrics-address")
	require.NoError(t, err)
	assert.Equal(t, "localhost:9464", metricsAddress)
}
