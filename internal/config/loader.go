package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"kcfg/pkg/logging"
)

// For mocking in tests
var osUserHomeDir = os.UserHomeDir
var osGetwd = os.Getwd

const (
	userConfigDir    = ".config/kcfg"
	projectConfigDir = ".kcfg"
	configFileName   = "config.yaml"

	subsystem = "Config"
)

// LoadConfig loads the kcfg configuration by layering default, user, and project settings.
func LoadConfig() (KcfgConfig, error) {
	// 1. Start with the default configuration
	config := GetDefaultConfig()

	// 2. User-specific configuration
	userConfigPath, err := getUserConfigPath()
	if err != nil {
		// User config is optional
		logging.Warn(subsystem, "Could not determine user config path: %v", err)
	} else if config, err = mergeFile(config, userConfigPath); err != nil {
		return KcfgConfig{}, fmt.Errorf("error loading user config from %s: %w", userConfigPath, err)
	}

	// 3. Project-specific configuration
	projectConfigPath, err := getProjectConfigPath()
	if err != nil {
		logging.Warn(subsystem, "Could not determine project config path: %v", err)
	} else if config, err = mergeFile(config, projectConfigPath); err != nil {
		return KcfgConfig{}, fmt.Errorf("error loading project config from %s: %w", projectConfigPath, err)
	}

	if err := config.Validate(); err != nil {
		return KcfgConfig{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// mergeFile overlays the file at path onto base. A missing file leaves base
// unchanged.
func mergeFile(base KcfgConfig, path string) (KcfgConfig, error) {
	overlay, err := loadConfigFromFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return base, nil
	}
	if err != nil {
		return base, err
	}
	logging.Debug(subsystem, "Applying configuration from %s", path)
	return mergeConfigs(base, overlay), nil
}

var getUserConfigPath = func() (string, error) {
	homeDir, err := osUserHomeDir() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir, configFileName), nil
}

var getProjectConfigPath = func() (string, error) {
	wd, err := osGetwd() // Use mockable variable
	if err != nil {
		return "", err
	}
	return filepath.Join(wd, projectConfigDir, configFileName), nil
}

// loadConfigFromFile loads a KcfgConfig from a YAML file.
func loadConfigFromFile(filePath string) (KcfgConfig, error) {
	var config KcfgConfig
	data, err := os.ReadFile(filePath)
	if err != nil {
		return KcfgConfig{}, err
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return KcfgConfig{}, err
	}
	return config, nil
}

// mergeConfigs merges 'overlay' config into 'base' config. Only fields set in
// the overlay take effect.
func mergeConfigs(base, overlay KcfgConfig) KcfgConfig {
	merged := base

	if overlay.Refresh.Timeout != 0 {
		merged.Refresh.Timeout = overlay.Refresh.Timeout
	}
	if overlay.Refresh.SafetyMargin != 0 {
		merged.Refresh.SafetyMargin = overlay.Refresh.SafetyMargin
	}
	if overlay.Refresh.ProbeExec != nil {
		merged.Refresh.ProbeExec = overlay.Refresh.ProbeExec
	}

	if overlay.Registry.KeepOrphans != nil {
		merged.Registry.KeepOrphans = overlay.Registry.KeepOrphans
	}

	if overlay.Output.Format != "" {
		merged.Output.Format = overlay.Output.Format
	}

	return merged
}

// GetUserConfigDir returns the user configuration directory path
func GetUserConfigDir() (string, error) {
	homeDir, err := osUserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, userConfigDir), nil
}
