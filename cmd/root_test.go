package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kcfg/internal/kubeconfig"
)

// execute runs kcfg with args against an isolated home directory and
// returns the exit code and both output streams.
func execute(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KUBECONFIG", "")

	var out, errOut bytes.Buffer
	code = run(context.Background(), args, &out, &errOut)
	return code, out.String(), errOut.String()
}

// writeKubeconfig writes content to a fresh temp file and returns its path.
func writeKubeconfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestSetVersion(t *testing.T) {
	original := version
	t.Cleanup(func() { SetVersion(original) })

	SetVersion("1.2.3-test")
	assert.Equal(t, "1.2.3-test", newRootCmd().Version)

	code, stdout, _ := execute(t, "version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "kcfg version 1.2.3-test\n", stdout)

	code, stdout, _ = execute(t, "--version")
	assert.Equal(t, exitOK, code)
	assert.Equal(t, "kcfg version 1.2.3-test\n", stdout)
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	assert.Equal(t, "kcfg", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)
	assert.True(t, root.SilenceUsage)
	assert.NotNil(t, root.PersistentFlags().Lookup("kubeconfig"))
	assert.NotNil(t, root.PersistentFlags().Lookup("log-level"))
}

func TestSubcommands(t *testing.T) {
	found := map[string]bool{}
	for _, c := range newRootCmd().Commands() {
		found[c.Name()] = true
	}
	for _, name := range []string{"list", "select", "refresh", "status", "remove", "dedup", "version"} {
		assert.True(t, found[name], "expected subcommand %s to be registered", name)
	}
}

func TestRootCommandHelp(t *testing.T) {
	code, stdout, _ := execute(t, "--help")
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "kcfg maintains a local kubeconfig file")

	code, stdout, _ = execute(t)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Available Commands")
}

func TestUsageErrors(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	tests := []struct {
		name string
		args []string
	}{
		{name: "unknown command", args: []string{"frobnicate"}},
		{name: "unknown flag", args: []string{"list", "--frobnicate"}},
		{name: "missing argument", args: []string{"refresh", "--kubeconfig", path}},
		{name: "too many arguments", args: []string{"select", "a", "b", "--kubeconfig", path}},
		{name: "bad log level", args: []string{"list", "--log-level", "loud", "--kubeconfig", path}},
		{name: "bad output format", args: []string{"list", "-o", "xml", "--kubeconfig", path}},
		{name: "table status", args: []string{"status", "dev", "-o", "table", "--kubeconfig", path}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, stdout, stderr := execute(t, tt.args...)
			assert.Equal(t, exitUserError, code)
			assert.Empty(t, stdout)
			assert.Contains(t, stderr, "Error:")
		})
	}
	assert.Equal(t, sampleDoc, readFile(t, path))
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "usage", err: usageError{errors.New("bad flag")}, want: exitUserError},
		{name: "unknown context", err: kubeconfig.NewError(kubeconfig.ErrContextNotFound, "x", nil), want: exitUserError},
		{name: "unsupported kind", err: kubeconfig.NewError(kubeconfig.ErrAuthProviderUnsupported, "u", nil), want: exitUserError},
		{name: "missing file", err: kubeconfig.NewError(kubeconfig.ErrNotFound, "/nope", nil), want: exitSystemError},
		{name: "refresh failed", err: kubeconfig.NewError(kubeconfig.ErrRefreshFailed, "u", context.DeadlineExceeded), want: exitSystemError},
		{name: "wrapped user error", err: fmt.Errorf("select: %w", kubeconfig.NewError(kubeconfig.ErrContextNotFound, "x", nil)), want: exitUserError},
		{name: "plain error", err: errors.New("boom"), want: exitSystemError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func TestMissingKubeconfigIsSystemError(t *testing.T) {
	code, _, stderr := execute(t, "list", "--kubeconfig", filepath.Join(t.TempDir(), "absent"))
	assert.Equal(t, exitSystemError, code)
	assert.Contains(t, stderr, "kubeconfig not found")
}

func TestKubeconfigFromEnvironment(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("KUBECONFIG", path+string(os.PathListSeparator)+"/ignored")

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"list"}, &out, &errOut)
	assert.Equal(t, exitOK, code, errOut.String())
	assert.Equal(t, "* dev\n  prod\n  stage\n", out.String())
}

func TestConfiguredOutputFormat(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KUBECONFIG", "")
	configDir := filepath.Join(home, ".config", "kcfg")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte("output:\n  format: json\n"), 0o644))

	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"list", "--kubeconfig", path}, &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())
	assert.Contains(t, out.String(), `"name": "dev"`)

	out.Reset()
	code = run(context.Background(), []string{"list", "-o", "plain", "--kubeconfig", path}, &out, &errOut)
	require.Equal(t, exitOK, code, errOut.String())
	assert.Equal(t, "* dev\n  prod\n  stage\n", out.String(), "the flag wins over the configured format")
}
