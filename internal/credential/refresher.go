package credential

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kcfg/internal/kubeconfig"
	"kcfg/pkg/logging"
)

const refresherSubsystem = "Refresher"

const (
	DefaultTimeout      = 30 * time.Second
	DefaultSafetyMargin = time.Minute
)

// Options configures a Refresher. Kinds without an entry in Actions cannot be
// refreshed; kinds without an entry in Probes are not probed.
type Options struct {
	Actions      map[Kind]Action
	Probes       map[Kind]Probe
	Timeout      time.Duration
	SafetyMargin time.Duration
	// Now defaults to time.Now.
	Now func() time.Time
}

// RefreshOptions tunes a single Refresh call.
type RefreshOptions struct {
	// Force refreshes even a credential that is still fresh.
	Force bool
	// Cluster is passed to the action for plugins that want cluster info.
	Cluster *kubeconfig.Cluster
}

// Result describes what Refresh did.
type Result struct {
	Kind      Kind
	Refreshed bool
	// Status is the staleness after the call.
	Status Status
}

// Refresher inspects and refreshes user credentials.
type Refresher struct {
	actions map[Kind]Action
	probes  map[Kind]Probe
	timeout time.Duration
	margin  time.Duration
	now     func() time.Time
}

func NewRefresher(opts Options) *Refresher {
	r := &Refresher{
		actions: opts.Actions,
		probes:  opts.Probes,
		timeout: opts.Timeout,
		margin:  opts.SafetyMargin,
		now:     opts.Now,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	switch {
	case opts.SafetyMargin == 0:
		r.margin = DefaultSafetyMargin
	case opts.SafetyMargin < 0:
		r.margin = 0
	}
	if r.now == nil {
		r.now = time.Now
	}
	return r
}

// Inspect reports the staleness of u's credential. It never fails: anything
// that prevents reading an expiry yields Unknown.
func (r *Refresher) Inspect(ctx context.Context, u *kubeconfig.User, cluster *kubeconfig.Cluster) Status {
	v := variantFor(KindOf(u))
	return classify(v.expiry(ctx, r, u, newRequest(u, v.kind(), cluster)), r.now(), r.margin)
}

// Refresh obtains a new credential for u when it is not fresh, or always when
// forced, and writes it back into u. On error u is left as it was.
func (r *Refresher) Refresh(ctx context.Context, u *kubeconfig.User, opts RefreshOptions) (*Result, error) {
	v := variantFor(KindOf(u))
	action := r.actions[v.kind()]
	if !v.refreshable() || action == nil {
		return nil, kubeconfig.NewError(kubeconfig.ErrAuthProviderUnsupported, u.Name,
			fmt.Errorf("credential kind %s", v.kind()))
	}

	req := newRequest(u, v.kind(), opts.Cluster)
	if !opts.Force {
		status := classify(v.expiry(ctx, r, u, req), r.now(), r.margin)
		if status.Staleness == Fresh {
			logging.Debug(refresherSubsystem, "credential of user %s is fresh until %s, skipping refresh",
				u.Name, status.ExpiresAt.Format(time.RFC3339))
			return &Result{Kind: v.kind(), Status: status}, nil
		}
	}

	logging.Info(refresherSubsystem, "refreshing %s credential of user %s", v.kind(), u.Name)
	tctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	tok, err := action.Refresh(tctx, req)
	if err == nil && tok == nil {
		err = errors.New("refresh returned no credential")
	}
	if err != nil {
		if ctxErr := tctx.Err(); ctxErr != nil && !errors.Is(err, ctxErr) {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		logging.Debug(refresherSubsystem, "refresh of user %s failed: %v", u.Name, err)
		return nil, kubeconfig.NewError(kubeconfig.ErrRefreshFailed, u.Name, err)
	}

	if err := v.store(u, tok); err != nil {
		return nil, kubeconfig.NewError(kubeconfig.ErrRefreshFailed, u.Name,
			fmt.Errorf("failed to store new credential: %w", err))
	}

	return &Result{
		Kind:      v.kind(),
		Refreshed: true,
		Status:    classify(tok.ExpiresAt, r.now(), r.margin),
	}, nil
}

// probe asks the configured probe for the credential's expiry under the
// refresh timeout. Failures are logged and reported as unknown.
func (r *Refresher) probe(ctx context.Context, req Request) time.Time {
	p := r.probes[req.Kind]
	if p == nil {
		return time.Time{}
	}
	pctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	exp, err := p.Probe(pctx, req)
	if err != nil {
		logging.Debug(refresherSubsystem, "probe for user %s failed: %v", req.User, err)
		return time.Time{}
	}
	return exp
}

func newRequest(u *kubeconfig.User, k Kind, cluster *kubeconfig.Cluster) Request {
	req := Request{User: u.Name, Kind: k}
	switch k {
	case KindExec:
		req.Exec = u.Exec
	case KindOIDC, KindAuthProvider:
		req.AuthProvider = u.AuthProvider
	}
	if cluster != nil {
		c := cluster.Cluster
		req.Cluster = &c
	}
	return req
}
