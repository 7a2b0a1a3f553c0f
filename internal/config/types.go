package config

import (
	"fmt"
	"slices"
	"time"
)

// OutputFormat selects how list and status results are rendered.
type OutputFormat string

const (
	OutputPlain OutputFormat = "plain"
	OutputTable OutputFormat = "table"
	OutputJSON  OutputFormat = "json"
	OutputYAML  OutputFormat = "yaml"
)

// OutputFormats lists the accepted formats in the order shown in help text.
var OutputFormats = []OutputFormat{OutputPlain, OutputTable, OutputJSON, OutputYAML}

// KcfgConfig is the top-level configuration structure for kcfg.
type KcfgConfig struct {
	Refresh  RefreshSettings  `yaml:"refresh"`
	Registry RegistrySettings `yaml:"registry"`
	Output   OutputSettings   `yaml:"output"`
}

// RefreshSettings tune credential inspection and refresh.
type RefreshSettings struct {
	Timeout      time.Duration `yaml:"timeout,omitempty"`      // Bound for a single refresh or probe call
	SafetyMargin time.Duration `yaml:"safetyMargin,omitempty"` // Credentials expiring within this window count as expired
	// ProbeExec runs exec plugins to learn a token's expiry when kcfg has no
	// cached credential for the user. Nil means unset.
	ProbeExec *bool `yaml:"probeExec,omitempty"`
}

// RegistrySettings tune context removal and deduplication.
type RegistrySettings struct {
	KeepOrphans *bool `yaml:"keepOrphans,omitempty"` // Keep clusters/users that lose their last context
}

// OutputSettings hold presentation defaults.
type OutputSettings struct {
	Format OutputFormat `yaml:"format,omitempty"`
}

// ProbeExecEnabled reports the effective probeExec setting.
func (c KcfgConfig) ProbeExecEnabled() bool {
	return c.Refresh.ProbeExec != nil && *c.Refresh.ProbeExec
}

// KeepOrphansEnabled reports the effective keepOrphans setting.
func (c KcfgConfig) KeepOrphansEnabled() bool {
	return c.Registry.KeepOrphans != nil && *c.Registry.KeepOrphans
}

// Validate rejects values the commands cannot work with.
func (c KcfgConfig) Validate() error {
	if c.Refresh.Timeout < 0 {
		return fmt.Errorf("refresh.timeout must not be negative, got %s", c.Refresh.Timeout)
	}
	if c.Refresh.SafetyMargin < 0 {
		return fmt.Errorf("refresh.safetyMargin must not be negative, got %s", c.Refresh.SafetyMargin)
	}
	if c.Output.Format != "" && !slices.Contains(OutputFormats, c.Output.Format) {
		return fmt.Errorf("output.format must be one of %v, got %q", OutputFormats, c.Output.Format)
	}
	return nil
}
