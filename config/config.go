package config

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"

	"github.com/billziss-gh/golib/shlex"
	"gopkg.in/yaml.v3"
)

// ActionConfig describes one declared action of the bridge. An action may
// carry at most one handler: Forward posts the call payload to an upstream
// URL and completes with the decoded response; Cmd runs a command with the
// payload on stdin and completes with its stdout. With neither set the
// action is a passthrough and publishes the payload as-is.
type ActionConfig struct {
	Forward     string `yaml:"forward"`
	Cmd         string `yaml:"cmd"`
	Timeout     int    `yaml:"timeout"` /* seconds, Forward/Cmd handlers only */
	HistorySize int    `yaml:"historySize"`
	Unlisted    bool   `yaml:"unlisted"`
}

// set default values for ActionConfig
func (c *ActionConfig) UnmarshalYAML(unmarshal func(interface{}) error) error {
	type rawActionConfig ActionConfig
	defaults := rawActionConfig{
		Timeout:     30,
		HistorySize: 100,
	}

	if err := unmarshal(&defaults); err != nil {
		return err
	}

	*c = ActionConfig(defaults)
	return nil
}

func (c *ActionConfig) SanitizedCommand() ([]string, error) {
	return SanitizeCommand(c.Cmd)
}

type Config struct {
	Listen   string                  `yaml:"listen"`
	LogCalls bool                    `yaml:"logCalls"`
	Actions  map[string]ActionConfig `yaml:"actions"` /* key is action name */
}

// Names returns the declared action names as the placeholder mapping the
// dispatcher's constructor expects.
func (c *Config) Names() map[string]any {
	names := make(map[string]any, len(c.Actions))
	for name := range c.Actions {
		names[name] = nil
	}
	return names
}

func LoadConfig(path string) (Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return Config{}, err
	}
	defer file.Close()
	return LoadConfigFromReader(file)
}

func LoadConfigFromReader(r io.Reader) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, err
	}

	// default configuration values
	config := Config{
		Listen: ":9090",
	}
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return Config{}, err
	}

	for name, actionConfig := range config.Actions {
		if name == "" {
			return Config{}, fmt.Errorf("action name must not be empty")
		}
		if actionConfig.Forward != "" && actionConfig.Cmd != "" {
			return Config{}, fmt.Errorf("action %s: forward and cmd are mutually exclusive", name)
		}
		if actionConfig.Cmd != "" {
			if _, err := actionConfig.SanitizedCommand(); err != nil {
				return Config{}, fmt.Errorf("action %s: %v", name, err)
			}
		}
		if actionConfig.Timeout < 1 {
			// set a minimum of 1 second
			actionConfig.Timeout = 1
			config.Actions[name] = actionConfig
		}
	}

	return config, nil
}

// SanitizeCommand splits a shell-style command string into an argv slice.
// Commands may span multiple YAML lines: "#" comment lines are dropped and
// a trailing backslash continues onto the next line.
func SanitizeCommand(cmdStr string) ([]string, error) {
	var cleaned strings.Builder
	for _, line := range strings.Split(cmdStr, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "#"):
			continue
		case strings.HasSuffix(trimmed, "\\"):
			cleaned.WriteString(strings.TrimSuffix(trimmed, "\\"))
			cleaned.WriteString(" ")
		default:
			cleaned.WriteString(line)
			cleaned.WriteString("\n")
		}
	}

	var args []string
	if runtime.GOOS == "windows" {
		args = shlex.Windows.Split(cleaned.String())
	} else {
		args = shlex.Posix.Split(cleaned.String())
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	return args, nil
}
