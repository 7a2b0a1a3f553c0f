// Package config provides configuration management for kcfg.
//
// This package implements a layered configuration system that allows users to
// customize kcfg's behavior through YAML files. Configuration is loaded from
// multiple sources and merged in a specific order, with later sources overriding
// earlier ones.
//
// # Configuration Layers
//
// Configuration is loaded and merged in the following order:
//
//  1. Default Configuration (embedded in binary)
//     - Provides sensible defaults for all settings
//     - Ensures kcfg works out-of-the-box
//
//  2. User Configuration (~/.config/kcfg/config.yaml)
//     - User-specific settings that apply everywhere
//
//  3. Project Configuration (./.kcfg/config.yaml)
//     - Settings for the current directory
//     - Allows teams to share configuration via version control
//
// Only the fields a layer sets override the layers below it.
//
// # Configuration Structure
//
//	refresh:
//	  timeout: 30s          # bound for one refresh or probe
//	  safetyMargin: 1m      # expiring within this window counts as expired
//	  probeExec: false      # run exec plugins to learn token expiry
//	registry:
//	  keepOrphans: false    # keep clusters/users that lose their last context
//	output:
//	  format: plain         # plain, table, json or yaml
//
// Durations use Go syntax ("90s", "2m"). Command-line flags take precedence
// over every layer.
//
// # Usage Example
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//	    return err
//	}
//	refresher := credential.NewRefresher(credential.Options{
//	    Timeout:      cfg.Refresh.Timeout,
//	    SafetyMargin: cfg.Refresh.SafetyMargin,
//	})
package config
