package kubeconfig

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio/v2"
	"k8s.io/client-go/tools/clientcmd"

	"kcfg/pkg/logging"
)

const storeSubsystem = "Store"

// DefaultFileMode is used when the kubeconfig is created from scratch.
const DefaultFileMode fs.FileMode = 0o600

// For mocking in tests
var recommendedHomeFile = clientcmd.RecommendedHomeFile

// ResolvePath picks the kubeconfig to operate on: the explicit path when
// given, else the first entry of $KUBECONFIG, else ~/.kube/config.
func ResolvePath(explicit string) (string, error) {
	if explicit != "" {
		return explicit, nil
	}
	for _, p := range filepath.SplitList(os.Getenv(clientcmd.RecommendedConfigPathEnvVar)) {
		if p != "" {
			return p, nil
		}
	}
	if recommendedHomeFile == "" {
		return "", newError(ErrNotFound, "", errors.New("could not determine the default kubeconfig location"))
	}
	return recommendedHomeFile, nil
}

// Store loads and persists one kubeconfig file.
type Store struct {
	path string
}

// NewStore returns a Store for path.
func NewStore(path string) *Store {
	return &Store{path: path}
}

// Path returns the file the store operates on.
func (s *Store) Path() string { return s.path }

// Load reads and parses the file. Relative file references in the typed
// views are resolved against the file's directory.
func (s *Store) Load() (*Config, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, newError(ErrNotFound, s.path, nil)
		}
		return nil, newError(ErrRead, s.path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		var kerr *Error
		if errors.As(err, &kerr) {
			kerr.Name = s.path
		}
		return nil, err
	}
	dir := filepath.Dir(s.path)
	if abs, err := filepath.Abs(dir); err == nil {
		dir = abs
	}
	cfg.ResolvePaths(dir)
	logging.Debug(storeSubsystem, "loaded %s: %d clusters, %d users, %d contexts",
		s.path, len(cfg.clusters), len(cfg.users), len(cfg.contexts))
	return cfg, nil
}

// Save validates cfg and replaces the file atomically: the document is written
// to a temporary file in the same directory and renamed over the target, so
// readers see either the old or the new content. Concurrent writers are not
// coordinated; the last rename wins.
//
// A context cancelled before the rename leaves the target untouched.
func (s *Store) Save(ctx context.Context, cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	data, err := cfg.Marshal()
	if err != nil {
		return newError(ErrWrite, s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return newError(ErrWrite, s.path, err)
	}

	target := s.path
	perm := DefaultFileMode
	if resolved, err := filepath.EvalSymlinks(target); err == nil {
		target = resolved
	}
	if fi, err := os.Stat(target); err == nil {
		perm = fi.Mode().Perm()
	}

	pf, err := renameio.NewPendingFile(target, renameio.WithPermissions(perm))
	if err != nil {
		return newError(ErrWrite, s.path, err)
	}
	defer pf.Cleanup() //nolint:errcheck // no-op once the file was renamed

	if _, err := pf.Write(data); err != nil {
		return newError(ErrWrite, s.path, err)
	}
	if err := ctx.Err(); err != nil {
		return newError(ErrWrite, s.path, err)
	}
	if err := pf.CloseAtomicallyReplace(); err != nil {
		return newError(ErrWrite, s.path, err)
	}

	logging.Debug(storeSubsystem, "wrote %d bytes to %s", len(data), target)
	return nil
}
