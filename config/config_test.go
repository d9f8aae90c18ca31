package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_Load(t *testing.T) {
	tempDir := t.TempDir()
	tempFile := filepath.Join(tempDir, "config.yaml")
	content := `
listen: ":9191"
logCalls: true
actions:
  load:
    forward: "http://localhost:9999/lookup"
    timeout: 5
  reindex:
    cmd: scripts/reindex --full
    historySize: 10
  ping: {}
`

	if err := os.WriteFile(tempFile, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write temporary file: %v", err)
	}

	config, err := LoadConfig(tempFile)
	assert.NoError(t, err)
	assert.Equal(t, ":9191", config.Listen)
	assert.True(t, config.LogCalls)
	assert.Len(t, config.Actions, 3)

	load := config.Actions["load"]
	assert.Equal(t, "http://localhost:9999/lookup", load.Forward)
	assert.Equal(t, 5, load.Timeout)
	assert.Equal(t, 100, load.HistorySize)

	reindex := config.Actions["reindex"]
	assert.Equal(t, "scripts/reindex --full", reindex.Cmd)
	assert.Equal(t, 30, reindex.Timeout)
	assert.Equal(t, 10, reindex.HistorySize)

	ping := config.Actions["ping"]
	assert.Empty(t, ping.Forward)
	assert.Empty(t, ping.Cmd)
}

func TestConfig_LoadDefaults(t *testing.T) {
	config, err := LoadConfigFromReader(strings.NewReader("actions:\n  ping: {}\n"))
	assert.NoError(t, err)
	assert.Equal(t, ":9090", config.Listen)
	assert.False(t, config.LogCalls)
}

func TestConfig_LoadRejectsForwardAndCmd(t *testing.T) {
	content := `
actions:
  bad:
    forward: "http://localhost:9999"
    cmd: echo hello
`
	_, err := LoadConfigFromReader(strings.NewReader(content))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestConfig_LoadRejectsEmptyCmd(t *testing.T) {
	content := `
actions:
  bad:
    cmd: "   "
`
	_, err := LoadConfigFromReader(strings.NewReader(content))
	assert.Error(t, err)
}

func TestConfig_Names(t *testing.T) {
	config, err := LoadConfigFromReader(strings.NewReader("actions:\n  a: {}\n  b: {}\n"))
	assert.NoError(t, err)

	names := config.Names()
	assert.Len(t, names, 2)
	assert.Contains(t, names, "a")
	assert.Contains(t, names, "b")
}

func TestConfig_SanitizeCommand(t *testing.T) {
	// Test a command with comments, continuations and quoting
	args, err := SanitizeCommand(`scripts/reindex \
    # full rebuild
    --full \
    --batch "512"
	`)
	assert.NoError(t, err)
	assert.Equal(t, []string{
		"scripts/reindex",
		"--full",
		"--batch", "512",
	}, args)

	// Test an empty command
	args, err = SanitizeCommand("")
	assert.Error(t, err)
	assert.Nil(t, args)
}
