package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ErrProjectInitialized is returned when the project config already exists.
var ErrProjectInitialized = errors.New("project config already exists")

// ProjectNeedsInitialization reports whether the working directory has no
// project config yet.
func ProjectNeedsInitialization(cfg *Config) (bool, error) {
	if cfg == nil {
		return false, fmt.Errorf("config not loaded")
	}

	_, err := os.Stat(cfg.ProjectConfig())
	if err == nil {
		return false, nil
	}
	if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to check project config: %w", err)
	}
	return true, nil
}

// InitProject writes the effective list and source settings to the project
// config so they can be tuned per directory.
func InitProject(cfg *Config) (string, error) {
	needs, err := ProjectNeedsInitialization(cfg)
	if err != nil {
		return "", err
	}
	if !needs {
		return "", fmt.Errorf("%w: %s", ErrProjectInitialized, cfg.ProjectConfig())
	}

	project := struct {
		List   ListOptions   `json:"list"`
		Source SourceOptions `json:"source"`
	}{cfg.List, cfg.Source}

	data, err := json.MarshalIndent(project, "", "  ")
	if err != nil {
		return "", err
	}
	path := cfg.ProjectConfig()
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("failed to write project config: %w", err)
	}
	return path, nil
}
