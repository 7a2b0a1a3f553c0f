// Package registry implements the kcfg operations on a kubeconfig file.
//
// Every operation loads the file fresh, works on the in-memory model and
// either persists the complete result or nothing at all. Read-only
// operations (List, Status) never write.
package registry

import (
	"context"
	"slices"
	"strings"
	"time"

	"kcfg/internal/credential"
	"kcfg/internal/dedup"
	"kcfg/internal/kubeconfig"
	"kcfg/pkg/logging"
)

const subsystem = "Registry"

// Store loads and persists a kubeconfig. *kubeconfig.Store implements it.
type Store interface {
	Load() (*kubeconfig.Config, error)
	Save(ctx context.Context, cfg *kubeconfig.Config) error
}

// Registry runs operations against one kubeconfig.
type Registry struct {
	store       Store
	refresher   *credential.Refresher
	keepOrphans bool
}

type Option func(*Registry)

// WithKeepOrphans makes Remove and Dedup leave clusters and users that lost
// their last context.
func WithKeepOrphans(keep bool) Option {
	return func(r *Registry) { r.keepOrphans = keep }
}

func New(store Store, refresher *credential.Refresher, opts ...Option) *Registry {
	r := &Registry{store: store, refresher: refresher}
	for _, o := range opts {
		o(r)
	}
	if r.refresher == nil {
		r.refresher = credential.NewRefresher(credential.Options{})
	}
	return r
}

// ContextSummary is one row of List.
type ContextSummary struct {
	Name      string `json:"name" yaml:"name"`
	Cluster   string `json:"cluster" yaml:"cluster"`
	User      string `json:"user" yaml:"user"`
	Namespace string `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Current   bool   `json:"current" yaml:"current"`
}

// List returns all contexts sorted by name.
func (r *Registry) List(ctx context.Context) ([]ContextSummary, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	out := make([]ContextSummary, 0, len(cfg.Contexts()))
	for _, c := range cfg.Contexts() {
		out = append(out, ContextSummary{
			Name:      c.Name,
			Cluster:   c.Cluster,
			User:      c.AuthInfo,
			Namespace: c.Namespace,
			Current:   c.Name == cfg.CurrentContext(),
		})
	}
	slices.SortFunc(out, func(a, b ContextSummary) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

// Select makes name the current context. Selecting the context that is
// already current writes nothing.
func (r *Registry) Select(ctx context.Context, name string) error {
	cfg, err := r.store.Load()
	if err != nil {
		return err
	}
	if cfg.Context(name) == nil {
		return kubeconfig.NewError(kubeconfig.ErrContextNotFound, name, nil)
	}
	if cfg.CurrentContext() == name {
		logging.Debug(subsystem, "context %s is already current", name)
		return nil
	}
	if err := cfg.SetCurrentContext(name); err != nil {
		return err
	}
	if err := r.store.Save(ctx, cfg); err != nil {
		return err
	}
	logging.Info(subsystem, "switched to context %s", name)
	return nil
}

// RefreshResult reports the outcome of Refresh.
type RefreshResult struct {
	Context   string            `json:"context" yaml:"context"`
	User      string            `json:"user" yaml:"user"`
	Kind      credential.Kind   `json:"kind" yaml:"kind"`
	Refreshed bool              `json:"refreshed" yaml:"refreshed"`
	Status    credential.Status `json:"status" yaml:"status"`
}

// Refresh renews the credential of the user bound to the named context. The
// file is written only when a new credential was obtained.
func (r *Registry) Refresh(ctx context.Context, name string, force bool) (*RefreshResult, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	kctx, user, cluster, err := resolve(cfg, name)
	if err != nil {
		return nil, err
	}

	res, err := r.refresher.Refresh(ctx, user, credential.RefreshOptions{Force: force, Cluster: cluster})
	if err != nil {
		return nil, err
	}
	if res.Refreshed {
		if err := r.store.Save(ctx, cfg); err != nil {
			return nil, err
		}
		logging.Info(subsystem, "refreshed credential of user %s for context %s", user.Name, kctx.Name)
	}

	return &RefreshResult{
		Context:   kctx.Name,
		User:      user.Name,
		Kind:      res.Kind,
		Refreshed: res.Refreshed,
		Status:    res.Status,
	}, nil
}

// RemoveResult lists every entry Remove deleted.
type RemoveResult struct {
	Contexts []string `json:"contexts" yaml:"contexts"`
	Clusters []string `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Users    []string `json:"users,omitempty" yaml:"users,omitempty"`
	// CurrentCleared is set when the current context was among the removed.
	CurrentCleared bool `json:"currentCleared,omitempty" yaml:"currentCleared,omitempty"`
}

// Remove deletes the named contexts and, unless orphans are kept, the
// clusters and users nothing references afterwards. All names are checked
// before anything is removed. Removing the current context clears the
// selection.
func (r *Registry) Remove(ctx context.Context, names []string) (*RemoveResult, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	names = uniqueNames(names)
	for _, name := range names {
		if cfg.Context(name) == nil {
			return nil, kubeconfig.NewError(kubeconfig.ErrContextNotFound, name, nil)
		}
	}

	res := &RemoveResult{}
	var clusters, users []string
	for _, name := range names {
		removed, _ := cfg.DeleteContext(name)
		res.Contexts = append(res.Contexts, name)
		clusters = append(clusters, removed.Cluster)
		users = append(users, removed.AuthInfo)
	}

	if slices.Contains(names, cfg.CurrentContext()) {
		if err := cfg.SetCurrentContext(""); err != nil {
			return nil, err
		}
		res.CurrentCleared = true
	}

	if !r.keepOrphans {
		res.Clusters, res.Users = cfg.PruneOrphans(uniqueNames(clusters), uniqueNames(users))
	}

	if err := r.store.Save(ctx, cfg); err != nil {
		return nil, err
	}
	logging.Info(subsystem, "removed contexts %v (clusters %v, users %v)", res.Contexts, res.Clusters, res.Users)
	return res, nil
}

// Dedup merges every set of duplicate contexts. With dryRun the merge is
// computed but not written.
func (r *Registry) Dedup(ctx context.Context, dryRun bool) ([]dedup.Result, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return nil, err
	}

	sets := dedup.FindDuplicates(cfg)
	if len(sets) == 0 {
		logging.Debug(subsystem, "no duplicate contexts found")
		return nil, nil
	}

	results := make([]dedup.Result, 0, len(sets))
	for _, set := range sets {
		res, err := dedup.Merge(cfg, set, dedup.Options{KeepOrphans: r.keepOrphans})
		if err != nil {
			return nil, err
		}
		results = append(results, *res)
	}

	if dryRun {
		return results, nil
	}
	if err := r.store.Save(ctx, cfg); err != nil {
		return nil, err
	}
	return results, nil
}

// CredentialStatus is the staleness report of one context's credential.
type CredentialStatus struct {
	Context   string               `json:"context" yaml:"context"`
	User      string               `json:"user" yaml:"user"`
	Kind      credential.Kind      `json:"kind" yaml:"kind"`
	Staleness credential.Staleness `json:"staleness" yaml:"staleness"`
	ExpiresAt time.Time            `json:"expiresAt,omitzero" yaml:"expiresAt,omitempty"`
}

// Status inspects the credential of the named context without changing it.
func (r *Registry) Status(ctx context.Context, name string) (*CredentialStatus, error) {
	cfg, err := r.store.Load()
	if err != nil {
		return nil, err
	}
	kctx, user, cluster, err := resolve(cfg, name)
	if err != nil {
		return nil, err
	}
	st := r.refresher.Inspect(ctx, user, cluster)
	return &CredentialStatus{
		Context:   kctx.Name,
		User:      user.Name,
		Kind:      credential.KindOf(user),
		Staleness: st.Staleness,
		ExpiresAt: st.ExpiresAt,
	}, nil
}

// resolve looks up a context and the entries it references.
func resolve(cfg *kubeconfig.Config, name string) (*kubeconfig.Context, *kubeconfig.User, *kubeconfig.Cluster, error) {
	kctx := cfg.Context(name)
	if kctx == nil {
		return nil, nil, nil, kubeconfig.NewError(kubeconfig.ErrContextNotFound, name, nil)
	}
	user := cfg.User(kctx.AuthInfo)
	if user == nil {
		return nil, nil, nil, kubeconfig.NewError(kubeconfig.ErrInvariantViolation, name, nil)
	}
	return kctx, user, cfg.Cluster(kctx.Cluster), nil
}

func uniqueNames(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !slices.Contains(out, n) {
			out = append(out, n)
		}
	}
	return out
}
