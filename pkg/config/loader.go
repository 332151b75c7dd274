package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/back1ply/pagefetch/pkg/fetcherrors"
)

// LoadFile reads a YAML job configuration. ${VAR_NAME} references are
// substituted from the environment before parsing, so secrets never have
// to live in the file. Fields absent from the file keep their defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the CLI flag
	if err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "failed to read config file")
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a Config on top of the defaults.
func Parse(data []byte) (*Config, error) {
	content := substituteEnvVars(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fetcherrors.Wrap(err, fetcherrors.KindConfig, "failed to parse YAML")
	}
	return cfg, nil
}

// Save writes a configuration back out as YAML.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fetcherrors.Wrap(err, fetcherrors.KindConfig, "failed to marshal YAML")
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fetcherrors.Wrap(err, fetcherrors.KindConfig, "failed to write config file")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values.
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
