package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a config file with raw YAML content
func createTempConfigFile(t *testing.T, dir string, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0755))
	tempFilePath := filepath.Join(dir, configFileName)
	require.NoError(t, os.WriteFile(tempFilePath, []byte(content), 0644))
	return tempFilePath
}

// mockConfigPaths points both layers into tempDir for the duration of the test.
func mockConfigPaths(t *testing.T, tempDir string) (userDir, projectDir string) {
	t.Helper()
	originalGetUserConfigPath := getUserConfigPath
	originalGetProjectConfigPath := getProjectConfigPath
	t.Cleanup(func() {
		getUserConfigPath = originalGetUserConfigPath
		getProjectConfigPath = originalGetProjectConfigPath
	})

	userDir = filepath.Join(tempDir, "home", userConfigDir)
	projectDir = filepath.Join(tempDir, "project", projectConfigDir)
	getUserConfigPath = func() (string, error) {
		return filepath.Join(userDir, configFileName), nil
	}
	getProjectConfigPath = func() (string, error) {
		return filepath.Join(projectDir, configFileName), nil
	}
	return userDir, projectDir
}

func TestLoadConfig_DefaultOnly(t *testing.T) {
	mockConfigPaths(t, t.TempDir())

	loadedConfig, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, GetDefaultConfig(), loadedConfig)
	assert.Equal(t, 30*time.Second, loadedConfig.Refresh.Timeout)
	assert.Equal(t, time.Minute, loadedConfig.Refresh.SafetyMargin)
	assert.False(t, loadedConfig.ProbeExecEnabled())
	assert.False(t, loadedConfig.KeepOrphansEnabled())
	assert.Equal(t, OutputPlain, loadedConfig.Output.Format)
}

func TestLoadConfig_UserOverride(t *testing.T) {
	userDir, _ := mockConfigPaths(t, t.TempDir())
	createTempConfigFile(t, userDir, `refresh:
  timeout: 45s
  probeExec: true
output:
  format: table
`)

	loadedConfig, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 45*time.Second, loadedConfig.Refresh.Timeout)
	assert.Equal(t, DefaultSafetyMargin, loadedConfig.Refresh.SafetyMargin, "unset fields keep the default")
	assert.True(t, loadedConfig.ProbeExecEnabled())
	assert.Equal(t, OutputTable, loadedConfig.Output.Format)
}

func TestLoadConfig_ProjectOverridesUser(t *testing.T) {
	userDir, projectDir := mockConfigPaths(t, t.TempDir())
	createTempConfigFile(t, userDir, `refresh:
  safetyMargin: 5m
  probeExec: true
registry:
  keepOrphans: true
`)
	createTempConfigFile(t, projectDir, `refresh:
  probeExec: false
output:
  format: json
`)

	loadedConfig, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, loadedConfig.Refresh.SafetyMargin)
	assert.False(t, loadedConfig.ProbeExecEnabled(), "an explicit false in the project layer wins")
	assert.True(t, loadedConfig.KeepOrphansEnabled())
	assert.Equal(t, OutputJSON, loadedConfig.Output.Format)
}

func TestLoadConfig_EmptyFile(t *testing.T) {
	userDir, _ := mockConfigPaths(t, t.TempDir())
	createTempConfigFile(t, userDir, "")

	loadedConfig, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loadedConfig)
}

func TestLoadConfig_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{
			name:    "malformed yaml",
			content: "refresh: [\n",
			wantErr: "error loading user config",
		},
		{
			name:    "bad duration",
			content: "refresh:\n  timeout: soon\n",
			wantErr: "error loading user config",
		},
		{
			name:    "negative margin",
			content: "refresh:\n  safetyMargin: -1m\n",
			wantErr: "safetyMargin must not be negative",
		},
		{
			name:    "unknown output format",
			content: "output:\n  format: xml\n",
			wantErr: "output.format must be one of",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userDir, _ := mockConfigPaths(t, t.TempDir())
			createTempConfigFile(t, userDir, tt.content)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_UnresolvablePathsAreSkipped(t *testing.T) {
	originalGetUserConfigPath := getUserConfigPath
	originalGetProjectConfigPath := getProjectConfigPath
	t.Cleanup(func() {
		getUserConfigPath = originalGetUserConfigPath
		getProjectConfigPath = originalGetProjectConfigPath
	})
	getUserConfigPath = func() (string, error) { return "", errors.New("no home") }
	getProjectConfigPath = func() (string, error) { return "", errors.New("no cwd") }

	loadedConfig, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, GetDefaultConfig(), loadedConfig)
}

func TestGetUserConfigDir(t *testing.T) {
	originalOsUserHomeDir := osUserHomeDir
	t.Cleanup(func() { osUserHomeDir = originalOsUserHomeDir })

	osUserHomeDir = func() (string, error) { return "/home/test", nil }
	dir, err := GetUserConfigDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/test", ".config", "kcfg"), dir)

	osUserHomeDir = func() (string, error) { return "", errors.New("no home") }
	_, err = GetUserConfigDir()
	assert.Error(t, err)
}

func TestDefaultPathFunctions(t *testing.T) {
	originalOsUserHomeDir := osUserHomeDir
	originalOsGetwd := osGetwd
	t.Cleanup(func() {
		osUserHomeDir = originalOsUserHomeDir
		osGetwd = originalOsGetwd
	})
	osUserHomeDir = func() (string, error) { return "/home/test", nil }
	osGetwd = func() (string, error) { return "/work/repo", nil }

	userPath, err := getUserConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/test", ".config", "kcfg", "config.yaml"), userPath)

	projectPath, err := getProjectConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/work/repo", ".kcfg", "config.yaml"), projectPath)
}
