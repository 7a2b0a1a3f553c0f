package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"kcfg/internal/config"
	"kcfg/internal/credential"
	"kcfg/internal/credential/execplugin"
	"kcfg/internal/credential/oidcrefresh"
	"kcfg/internal/kubeconfig"
	"kcfg/internal/registry"
)

// newRegistry wires the kubeconfig store and the refresh actions according
// to the flags and the tool configuration.
func (o *rootOptions) newRegistry(cmd *cobra.Command) (*registry.Registry, error) {
	path, err := kubeconfig.ResolvePath(o.kubeconfig)
	if err != nil {
		return nil, err
	}

	runner := execplugin.NewRunner()
	copts := credential.Options{
		Actions: map[credential.Kind]credential.Action{
			credential.KindExec: runner,
			credential.KindOIDC: oidcrefresh.New(),
		},
		Timeout:      o.cfg.Refresh.Timeout,
		SafetyMargin: o.cfg.Refresh.SafetyMargin,
	}
	if o.cfg.ProbeExecEnabled() {
		copts.Probes = map[credential.Kind]credential.Probe{credential.KindExec: runner}
	}

	return registry.New(
		kubeconfig.NewStore(path),
		credential.NewRefresher(copts),
		registry.WithKeepOrphans(o.keepOrphans(cmd)),
	), nil
}

// keepOrphans prefers an explicit --keep-orphans over the configured value.
func (o *rootOptions) keepOrphans(cmd *cobra.Command) bool {
	if f := cmd.Flags().Lookup("keep-orphans"); f != nil && f.Changed {
		keep, _ := cmd.Flags().GetBool("keep-orphans")
		return keep
	}
	return o.cfg.KeepOrphansEnabled()
}

// outputFormat prefers an explicit -o over the configured format and checks
// it against what the command can print.
func (o *rootOptions) outputFormat(flag string, allowed ...config.OutputFormat) (config.OutputFormat, error) {
	format := config.OutputFormat(flag)
	if format == "" {
		format = o.cfg.Output.Format
	}
	if format == "" {
		format = config.OutputPlain
	}
	if !slices.Contains(allowed, format) {
		// A configured default the command cannot print falls back to plain.
		if flag == "" {
			return config.OutputPlain, nil
		}
		return "", usageError{fmt.Errorf("unsupported output format %q (expected one of %v)", flag, allowed)}
	}
	return format, nil
}

// printStructured writes v as JSON or YAML.
func printStructured(w io.Writer, format config.OutputFormat, v any) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// describeExpiry renders an expiry for humans.
func describeExpiry(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
