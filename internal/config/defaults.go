package config

import (
	"time"
)

const (
	DefaultRefreshTimeout = 30 * time.Second
	DefaultSafetyMargin   = time.Minute
)

// GetDefaultConfig returns the built-in configuration every layer is merged
// onto.
func GetDefaultConfig() KcfgConfig {
	probeExec := false
	keepOrphans := false
	return KcfgConfig{
		Refresh: RefreshSettings{
			Timeout:      DefaultRefreshTimeout,
			SafetyMargin: DefaultSafetyMargin,
			ProbeExec:    &probeExec,
		},
		Registry: RegistrySettings{
			KeepOrphans: &keepOrphans,
		},
		Output: OutputSettings{
			Format: OutputPlain,
		},
	}
}
