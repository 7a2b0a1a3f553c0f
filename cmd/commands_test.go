package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"kcfg/internal/kubeconfig"
	"kcfg/internal/picker"
	"kcfg/internal/registry"
)

const sampleDoc = `apiVersion: v1
clusters:
- cluster:
    server: https://c1.example.com
  name: c1
- cluster:
    server: https://c2.example.com
  name: c2
contexts:
- context:
    cluster: c1
    namespace: team-a
    user: u1
  name: dev
- context:
    cluster: c2
    user: u2
  name: prod
- context:
    cluster: c1
    user: u2
  name: stage
current-context: dev
kind: Config
users:
- name: u1
  user:
    token: static-token
- name: u2
  user:
    exec:
      apiVersion: client.authentication.k8s.io/v1
      command: /nonexistent/kcfg-test-plugin
      interactiveMode: Never
`

func loadFile(t *testing.T, path string) *kubeconfig.Config {
	t.Helper()
	cfg, err := kubeconfig.NewStore(path).Load()
	require.NoError(t, err)
	return cfg
}

func mockPicker(t *testing.T, fn func(contexts []registry.ContextSummary) (string, error)) {
	t.Helper()
	original := pickContext
	t.Cleanup(func() { pickContext = original })
	pickContext = func(_ context.Context, _ *cobra.Command, contexts []registry.ContextSummary) (string, error) {
		return fn(contexts)
	}
}

func TestList(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	t.Run("plain", func(t *testing.T) {
		code, stdout, stderr := execute(t, "list", "--kubeconfig", path)
		require.Equal(t, exitOK, code, stderr)
		assert.Equal(t, "* dev\n  prod\n  stage\n", stdout)
	})

	t.Run("table", func(t *testing.T) {
		code, stdout, stderr := execute(t, "list", "-o", "table", "--kubeconfig", path)
		require.Equal(t, exitOK, code, stderr)
		for _, want := range []string{"NAME", "CLUSTER", "NAMESPACE", "dev", "team-a", "c2", "u2"} {
			assert.Contains(t, stdout, want)
		}
	})

	t.Run("json", func(t *testing.T) {
		code, stdout, stderr := execute(t, "list", "-o", "json", "--kubeconfig", path)
		require.Equal(t, exitOK, code, stderr)

		var got []registry.ContextSummary
		require.NoError(t, json.Unmarshal([]byte(stdout), &got))
		require.Len(t, got, 3)
		assert.Equal(t, registry.ContextSummary{Name: "dev", Cluster: "c1", User: "u1", Namespace: "team-a", Current: true}, got[0])
	})

	t.Run("yaml", func(t *testing.T) {
		code, stdout, stderr := execute(t, "list", "-o", "yaml", "--kubeconfig", path)
		require.Equal(t, exitOK, code, stderr)

		var got []registry.ContextSummary
		require.NoError(t, yaml.Unmarshal([]byte(stdout), &got))
		require.Len(t, got, 3)
		assert.Equal(t, "stage", got[2].Name)
	})

	assert.Equal(t, sampleDoc, readFile(t, path), "list never writes")
}

func TestSelect(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, stdout, stderr := execute(t, "select", "prod", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.Equal(t, "Switched to context \"prod\"\n", stdout)
	assert.Equal(t, "prod", loadFile(t, path).CurrentContext())
}

func TestSelect_UnknownContext(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, _, stderr := execute(t, "select", "nope", "--kubeconfig", path)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "context not found: nope")
	assert.Equal(t, sampleDoc, readFile(t, path))
}

func TestSelect_Interactive(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)
	var offered []registry.ContextSummary
	mockPicker(t, func(contexts []registry.ContextSummary) (string, error) {
		offered = contexts
		return "stage", nil
	})

	code, _, stderr := execute(t, "select", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	require.Len(t, offered, 3)
	assert.True(t, offered[0].Current)
	assert.Equal(t, "stage", loadFile(t, path).CurrentContext())
}

func TestSelect_InteractiveCancelled(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)
	mockPicker(t, func([]registry.ContextSummary) (string, error) {
		return "", picker.ErrCancelled
	})

	code, stdout, stderr := execute(t, "select", "--kubeconfig", path)
	assert.Equal(t, exitOK, code)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "No context selected")
	assert.Equal(t, sampleDoc, readFile(t, path))
}

func TestSelect_InteractiveFailure(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)
	mockPicker(t, func([]registry.ContextSummary) (string, error) {
		return "", errors.New("no terminal")
	})

	code, _, stderr := execute(t, "select", "--kubeconfig", path)
	assert.Equal(t, exitSystemError, code)
	assert.Contains(t, stderr, "no terminal")
}

func TestRefresh_UnsupportedKindIsUserError(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, _, stderr := execute(t, "refresh", "dev", "--kubeconfig", path)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "credential kind cannot be refreshed")
	assert.Equal(t, sampleDoc, readFile(t, path))
}

func TestRefresh_FailingPluginIsSystemError(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, _, stderr := execute(t, "refresh", "prod", "--kubeconfig", path)
	assert.Equal(t, exitSystemError, code)
	assert.Contains(t, stderr, "credential refresh failed")
	assert.Equal(t, sampleDoc, readFile(t, path))
}

func TestStatus(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, stdout, stderr := execute(t, "status", "prod", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Kind:      exec")
	assert.Contains(t, stdout, "Staleness: unknown")
	assert.Contains(t, stdout, "Expires:   unknown")

	code, stdout, stderr = execute(t, "status", "dev", "-o", "json", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.JSONEq(t, `{"context":"dev","user":"u1","kind":"token","staleness":"unknown"}`, stdout)

	code, _, _ = execute(t, "status", "nope", "--kubeconfig", path)
	assert.Equal(t, exitUserError, code)
	assert.Equal(t, sampleDoc, readFile(t, path))
}

func TestRemove(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, stdout, stderr := execute(t, "remove", "dev", "stage", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Removed context \"dev\"")
	assert.Contains(t, stdout, "Removed context \"stage\"")
	assert.Contains(t, stdout, "Removed cluster \"c1\"")
	assert.Contains(t, stdout, "Removed user \"u1\"")
	assert.Contains(t, stdout, "No context is current any more")

	cfg := loadFile(t, path)
	assert.Equal(t, "", cfg.CurrentContext())
	assert.Nil(t, cfg.Cluster("c1"))
	assert.Nil(t, cfg.User("u1"))
	assert.NotNil(t, cfg.User("u2"), "still used by prod")
}

func TestRemove_KeepOrphans(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, stdout, stderr := execute(t, "remove", "dev", "stage", "--keep-orphans", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.NotContains(t, stdout, "Removed cluster")

	cfg := loadFile(t, path)
	assert.Nil(t, cfg.Context("dev"))
	assert.NotNil(t, cfg.Cluster("c1"))
	assert.NotNil(t, cfg.User("u1"))
}

func TestRemove_UnknownNameRemovesNothing(t *testing.T) {
	path := writeKubeconfig(t, sampleDoc)

	code, _, stderr := execute(t, "remove", "dev", "nope", "--kubeconfig", path)
	assert.Equal(t, exitUserError, code)
	assert.Contains(t, stderr, "nope")
	assert.Equal(t, sampleDoc, readFile(t, path))
}

const duplicateDoc = `clusters:
- cluster:
    server: https://c1.example.com
  name: c1
- cluster:
    server: https://c1.example.com
  name: c1-copy
contexts:
- context:
    cluster: c1
    user: u1
  name: a
- context:
    cluster: c1-copy
    user: u1-copy
  name: b
current-context: b
users:
- name: u1
  user:
    token: abc
- name: u1-copy
  user:
    token: abc
`

func TestDedup(t *testing.T) {
	path := writeKubeconfig(t, duplicateDoc)

	code, stdout, stderr := execute(t, "dedup", "--dry-run", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Would merge \"a\" into \"b\"")
	assert.Equal(t, duplicateDoc, readFile(t, path), "dry run writes nothing")

	code, stdout, stderr = execute(t, "dedup", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "Merged \"a\" into \"b\"")
	assert.Contains(t, stdout, "clusters removed: c1")
	assert.Contains(t, stdout, "users removed: u1")

	cfg := loadFile(t, path)
	assert.Len(t, cfg.Contexts(), 1)
	assert.Equal(t, "b", cfg.CurrentContext())

	code, stdout, _ = execute(t, "dedup", "--kubeconfig", path)
	require.Equal(t, exitOK, code)
	assert.Equal(t, "No duplicate contexts found\n", stdout)
}

func TestDedup_KeepOrphans(t *testing.T) {
	path := writeKubeconfig(t, duplicateDoc)

	code, stdout, stderr := execute(t, "dedup", "--keep-orphans", "--kubeconfig", path)
	require.Equal(t, exitOK, code, stderr)
	assert.NotContains(t, stdout, "clusters removed")

	cfg := loadFile(t, path)
	assert.Len(t, cfg.Contexts(), 1)
	assert.Len(t, cfg.Clusters(), 2)
}
