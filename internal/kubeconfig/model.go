package kubeconfig

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"

	clientcmdv1 "k8s.io/client-go/tools/clientcmd/api/v1"
	yaml "sigs.k8s.io/yaml/goyaml.v3"
)

const (
	clustersKey       = "clusters"
	usersKey          = "users"
	contextsKey       = "contexts"
	currentContextKey = "current-context"
)

// Cluster is a named cluster entry. The embedded client-go view is decoded at
// load time and is read-only; the YAML item keeps every field of the entry.
type Cluster struct {
	Name string
	clientcmdv1.Cluster

	item *yaml.Node
}

// User is a named credential holder.
type User struct {
	Name string
	clientcmdv1.AuthInfo

	item *yaml.Node
	// baseDir anchors relative file references; see Config.ResolvePaths.
	baseDir string
}

// Context binds a cluster to a user. Cluster and AuthInfo hold the names of
// the referenced entries.
type Context struct {
	Name string
	clientcmdv1.Context

	item *yaml.Node
}

// Config is the in-memory kubeconfig. Mutations go through its methods so the
// typed views and the underlying document stay in step.
type Config struct {
	doc  *yaml.Node
	root *yaml.Node

	clusters       []*Cluster
	users          []*User
	contexts       []*Context
	currentContext string

	layout layout
}

// Clusters returns the clusters in file order.
func (c *Config) Clusters() []*Cluster { return c.clusters }

// Users returns the users in file order.
func (c *Config) Users() []*User { return c.users }

// Contexts returns the contexts in file order.
func (c *Config) Contexts() []*Context { return c.contexts }

// CurrentContext returns the selected context name, or "" when unset.
func (c *Config) CurrentContext() string { return c.currentContext }

func (c *Config) Cluster(name string) *Cluster {
	for _, cl := range c.clusters {
		if cl.Name == name {
			return cl
		}
	}
	return nil
}

func (c *Config) User(name string) *User {
	for _, u := range c.users {
		if u.Name == name {
			return u
		}
	}
	return nil
}

func (c *Config) Context(name string) *Context {
	for _, ctx := range c.contexts {
		if ctx.Name == name {
			return ctx
		}
	}
	return nil
}

// SetCurrentContext selects name. An empty name clears the selection.
func (c *Config) SetCurrentContext(name string) error {
	if name != "" && c.Context(name) == nil {
		return newError(ErrContextNotFound, name, nil)
	}
	if name == "" && mappingIndex(c.root, currentContextKey) < 0 {
		c.currentContext = ""
		return nil
	}
	setMappingScalar(c.root, currentContextKey, name)
	c.currentContext = name
	return nil
}

// DeleteContext removes the named context. It does not touch the referenced
// cluster and user; see PruneOrphans.
func (c *Config) DeleteContext(name string) (*Context, bool) {
	for i, ctx := range c.contexts {
		if ctx.Name != name {
			continue
		}
		removeItem(mappingValue(c.root, contextsKey), ctx.item)
		c.contexts = append(c.contexts[:i], c.contexts[i+1:]...)
		return ctx, true
	}
	return nil, false
}

func (c *Config) deleteCluster(name string) bool {
	for i, cl := range c.clusters {
		if cl.Name != name {
			continue
		}
		removeItem(mappingValue(c.root, clustersKey), cl.item)
		c.clusters = append(c.clusters[:i], c.clusters[i+1:]...)
		return true
	}
	return false
}

func (c *Config) deleteUser(name string) bool {
	for i, u := range c.users {
		if u.Name != name {
			continue
		}
		removeItem(mappingValue(c.root, usersKey), u.item)
		c.users = append(c.users[:i], c.users[i+1:]...)
		return true
	}
	return false
}

// ClusterReferenced reports whether any context points at the cluster.
func (c *Config) ClusterReferenced(name string) bool {
	for _, ctx := range c.contexts {
		if ctx.Cluster == name {
			return true
		}
	}
	return false
}

// UserReferenced reports whether any context points at the user.
func (c *Config) UserReferenced(name string) bool {
	for _, ctx := range c.contexts {
		if ctx.AuthInfo == name {
			return true
		}
	}
	return false
}

// PruneOrphans deletes the given clusters and users when no context
// references them any more. Entries not named here are left alone even if
// they are unreferenced.
func (c *Config) PruneOrphans(clusters, users []string) (prunedClusters, prunedUsers []string) {
	for _, name := range clusters {
		if !c.ClusterReferenced(name) && c.deleteCluster(name) {
			prunedClusters = append(prunedClusters, name)
		}
	}
	for _, name := range users {
		if !c.UserReferenced(name) && c.deleteUser(name) {
			prunedUsers = append(prunedUsers, name)
		}
	}
	return prunedClusters, prunedUsers
}

// Extension returns the raw JSON of the named user extension.
func (u *User) Extension(name string) ([]byte, bool) {
	for _, ext := range u.Extensions {
		if ext.Name == name {
			return ext.Extension.Raw, len(ext.Extension.Raw) > 0
		}
	}
	return nil, false
}

// SetAuthProviderConfig sets keys of auth-provider.config in one step: either
// every key is updated or the user is left as it was. New keys are appended
// in sorted order.
func (u *User) SetAuthProviderConfig(values map[string]string) error {
	ap := mappingValue(u.body(), "auth-provider")
	if ap == nil || ap.Kind != yaml.MappingNode {
		return fmt.Errorf("user %q has no auth-provider", u.Name)
	}
	cfg := mappingValue(ap, "config")
	if cfg != nil && !isNull(cfg) && cfg.Kind != yaml.MappingNode {
		return fmt.Errorf("user %q auth-provider config is not a mapping", u.Name)
	}

	// Stage the changes on a copy and swap it in once the user decodes.
	staged := newMapping()
	if !isNull(cfg) {
		staged = &yaml.Node{}
		*staged = *cfg
		staged.Content = make([]*yaml.Node, 0, len(cfg.Content))
		for _, n := range cfg.Content {
			cp := *n
			staged.Content = append(staged.Content, &cp)
		}
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		setMappingScalar(staged, k, values[k])
	}

	previous := ap.Content
	ap.Content = slices.Clone(ap.Content)
	setMappingValue(ap, "config", staged)
	if err := u.redecode(); err != nil {
		ap.Content = previous
		return err
	}
	return nil
}

// SetExtension stores value under the named entry of the user's extensions
// list, replacing an existing entry of the same name.
func (u *User) SetExtension(name string, value any) error {
	var encoded yaml.Node
	if err := encoded.Encode(value); err != nil {
		return fmt.Errorf("failed to encode extension %q: %w", name, err)
	}

	body := u.body()
	exts := mappingValue(body, "extensions")
	if isNull(exts) {
		exts = newSequence()
		setMappingValue(body, "extensions", exts)
	} else if exts.Kind != yaml.SequenceNode {
		return fmt.Errorf("user %q extensions is not a list", u.Name)
	}

	for _, item := range exts.Content {
		item = resolve(item)
		if n, _ := scalarValue(item, "name"); n == name {
			setMappingValue(item, "extension", &encoded)
			return u.redecode()
		}
	}

	item := newMapping()
	item.Content = append(item.Content, newScalar("extension"), &encoded, newScalar("name"), newScalar(name))
	exts.Content = append(exts.Content, item)
	return u.redecode()
}

// body returns the user mapping, turning an explicit null into an empty
// mapping so it can be written to.
func (u *User) body() *yaml.Node {
	b := mappingValue(u.item, "user")
	if isNull(b) {
		b = newMapping()
		setMappingValue(u.item, "user", b)
	}
	return b
}

func (u *User) redecode() error {
	var fresh clientcmdv1.AuthInfo
	if err := decodeInto(u.body(), &fresh); err != nil {
		return fmt.Errorf("failed to decode user %q after update: %w", u.Name, err)
	}
	u.AuthInfo = fresh
	u.resolvePaths()
	return nil
}

// ResolvePaths makes relative file references absolute against dir, the
// directory of the kubeconfig, as client-go does when it loads a file. Only
// the typed views change; the document keeps the paths as written.
func (c *Config) ResolvePaths(dir string) {
	for _, cl := range c.clusters {
		cl.CertificateAuthority = resolvePath(dir, cl.CertificateAuthority)
	}
	for _, u := range c.users {
		u.baseDir = dir
		u.resolvePaths()
	}
}

func (u *User) resolvePaths() {
	dir := u.baseDir
	if dir == "" {
		return
	}
	u.ClientCertificate = resolvePath(dir, u.ClientCertificate)
	u.ClientKey = resolvePath(dir, u.ClientKey)
	u.TokenFile = resolvePath(dir, u.TokenFile)
	// Bare command names are looked up in $PATH.
	if u.Exec != nil && strings.ContainsRune(u.Exec.Command, filepath.Separator) {
		u.Exec.Command = resolvePath(dir, u.Exec.Command)
	}
	if u.AuthProvider != nil {
		if ca, ok := u.AuthProvider.Config["idp-certificate-authority"]; ok {
			u.AuthProvider.Config["idp-certificate-authority"] = resolvePath(dir, ca)
		}
	}
}

func resolvePath(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
