// Package execplugin runs client-go credential plugins (the exec section of a
// kubeconfig user) to obtain bearer tokens.
package execplugin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	clientauthv1 "k8s.io/client-go/pkg/apis/clientauthentication/v1"
	clientcmdv1 "k8s.io/client-go/tools/clientcmd/api/v1"

	"kcfg/internal/credential"
	"kcfg/pkg/logging"
)

const subsystem = "ExecPlugin"

const (
	execInfoEnv = "KUBERNETES_EXEC_INFO"

	apiVersionV1      = "client.authentication.k8s.io/v1"
	apiVersionV1beta1 = "client.authentication.k8s.io/v1beta1"

	// waitDelay bounds how long Wait blocks on the plugin's output pipes
	// after the process was killed.
	waitDelay = 2 * time.Second
	// maxStderr caps the plugin's stderr quoted in errors.
	maxStderr = 512
)

// Runner executes credential plugins. It implements both credential.Action
// and credential.Probe.
type Runner struct {
	environ func() []string
}

func NewRunner() *Runner {
	return &Runner{environ: os.Environ}
}

// Refresh runs the plugin and returns the token it printed.
func (r *Runner) Refresh(ctx context.Context, req credential.Request) (*credential.Token, error) {
	status, err := r.run(ctx, req)
	if err != nil {
		return nil, err
	}
	tok := &credential.Token{Value: status.Token}
	if status.ExpirationTimestamp != nil {
		tok.ExpiresAt = status.ExpirationTimestamp.Time
	}
	return tok, nil
}

// Probe runs the plugin only to learn when its current token expires.
func (r *Runner) Probe(ctx context.Context, req credential.Request) (time.Time, error) {
	status, err := r.run(ctx, req)
	if err != nil {
		return time.Time{}, err
	}
	if status.ExpirationTimestamp == nil {
		return time.Time{}, credential.ErrNoExpiry
	}
	return status.ExpirationTimestamp.Time, nil
}

func (r *Runner) run(ctx context.Context, req credential.Request) (*clientauthv1.ExecCredentialStatus, error) {
	cfg := req.Exec
	if cfg == nil {
		return nil, fmt.Errorf("user %s has no exec configuration", req.User)
	}
	if cfg.Command == "" {
		return nil, fmt.Errorf("user %s: exec command is empty", req.User)
	}
	if cfg.APIVersion != apiVersionV1 && cfg.APIVersion != apiVersionV1beta1 {
		return nil, fmt.Errorf("user %s: unsupported exec apiVersion %q", req.User, cfg.APIVersion)
	}
	if cfg.InteractiveMode == clientcmdv1.AlwaysExecInteractiveMode {
		return nil, fmt.Errorf("user %s: plugin %s requires an interactive terminal", req.User, cfg.Command)
	}

	info, err := execInfo(cfg, req.Cluster)
	if err != nil {
		return nil, err
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.Env = append(r.environ(), execInfoEnv+"="+string(info))
	for _, e := range cfg.Env {
		cmd.Env = append(cmd.Env, e.Name+"="+e.Value)
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	logging.Debug(subsystem, "running %s for user %s", cfg.Command, req.User)
	start := time.Now()
	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("plugin %s: %w", cfg.Command, ctxErr)
		}
		if errors.Is(err, exec.ErrNotFound) && cfg.InstallHint != "" {
			return nil, fmt.Errorf("plugin %s not found: %s", cfg.Command, cfg.InstallHint)
		}
		return nil, fmt.Errorf("plugin %s failed: %w%s", cfg.Command, err, stderrSuffix(stderr.String()))
	}
	logging.Debug(subsystem, "plugin %s finished in %s", cfg.Command, time.Since(start).Round(time.Millisecond))

	return decodeCredential(cfg, stdout.Bytes())
}

// execInfo builds the ExecCredential passed to the plugin in
// KUBERNETES_EXEC_INFO.
func execInfo(cfg *clientcmdv1.ExecConfig, cluster *clientcmdv1.Cluster) ([]byte, error) {
	cred := clientauthv1.ExecCredential{}
	cred.APIVersion = cfg.APIVersion
	cred.Kind = "ExecCredential"
	cred.Spec.Interactive = false
	if cfg.ProvideClusterInfo && cluster != nil {
		cred.Spec.Cluster = &clientauthv1.Cluster{
			Server:                   cluster.Server,
			TLSServerName:            cluster.TLSServerName,
			InsecureSkipTLSVerify:    cluster.InsecureSkipTLSVerify,
			CertificateAuthorityData: cluster.CertificateAuthorityData,
			ProxyURL:                 cluster.ProxyURL,
			DisableCompression:       cluster.DisableCompression,
		}
	}
	data, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", execInfoEnv, err)
	}
	return data, nil
}

func decodeCredential(cfg *clientcmdv1.ExecConfig, out []byte) (*clientauthv1.ExecCredentialStatus, error) {
	var cred clientauthv1.ExecCredential
	if err := json.Unmarshal(out, &cred); err != nil {
		return nil, fmt.Errorf("plugin %s printed an invalid ExecCredential: %w", cfg.Command, err)
	}
	if cred.APIVersion != cfg.APIVersion {
		return nil, fmt.Errorf("plugin %s returned apiVersion %q, expected %q", cfg.Command, cred.APIVersion, cfg.APIVersion)
	}
	if cred.Status == nil {
		return nil, fmt.Errorf("plugin %s returned no status", cfg.Command)
	}
	if cred.Status.Token == "" {
		if cred.Status.ClientCertificateData != "" {
			return nil, fmt.Errorf("plugin %s returned a client certificate, only tokens are supported", cfg.Command)
		}
		return nil, fmt.Errorf("plugin %s returned an empty token", cfg.Command)
	}
	return cred.Status, nil
}

func stderrSuffix(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(s) > maxStderr {
		s = s[:maxStderr] + "..."
	}
	return ": " + s
}
