// Package dedup finds contexts that bind equal clusters and users under
// different names and merges them into one.
//
// Two contexts are duplicates when their namespaces are equal and their
// resolved cluster and user compare equal on the fields that matter for
// connecting and authenticating (see clusterKey and userKey). The context
// kept from a duplicate set is the current context when it belongs to the
// set, else the one with the lexicographically smallest name.
package dedup

import (
	"errors"
	"slices"
	"strings"

	"github.com/mitchellh/hashstructure/v2"
	"k8s.io/apimachinery/pkg/api/equality"

	"kcfg/internal/kubeconfig"
	"kcfg/pkg/logging"
)

const subsystem = "Dedup"

// Set is a group of equivalent contexts.
type Set struct {
	Canonical  string   `json:"canonical" yaml:"canonical"`
	Duplicates []string `json:"duplicates" yaml:"duplicates"`
}

// Options controls Merge.
type Options struct {
	// KeepOrphans leaves clusters and users that lost their last context.
	KeepOrphans bool
}

// Result reports what Merge removed.
type Result struct {
	Canonical string   `json:"canonical" yaml:"canonical"`
	Contexts  []string `json:"contexts" yaml:"contexts"`
	Clusters  []string `json:"clusters,omitempty" yaml:"clusters,omitempty"`
	Users     []string `json:"users,omitempty" yaml:"users,omitempty"`
}

type member struct {
	name string
	key  contextKey
}

// FindDuplicates returns every set of two or more equivalent contexts,
// ordered by canonical name.
func FindDuplicates(cfg *kubeconfig.Config) []Set {
	buckets := map[uint64][][]member{}
	var order []uint64

	for _, ctx := range cfg.Contexts() {
		key, ok := contextKeyOf(cfg, ctx)
		if !ok {
			continue
		}
		h, err := hashstructure.Hash(key, hashstructure.FormatV2, nil)
		if err != nil {
			logging.Warn(subsystem, "cannot hash context %s, leaving it out of deduplication: %v", ctx.Name, err)
			continue
		}
		if _, seen := buckets[h]; !seen {
			order = append(order, h)
		}
		buckets[h] = placeMember(buckets[h], member{name: ctx.Name, key: key})
	}

	current := cfg.CurrentContext()
	var sets []Set
	for _, h := range order {
		for _, group := range buckets[h] {
			if len(group) < 2 {
				continue
			}
			sets = append(sets, newSet(group, current))
		}
	}
	slices.SortFunc(sets, func(a, b Set) int { return strings.Compare(a.Canonical, b.Canonical) })
	return sets
}

// placeMember adds m to the group in bucket whose key it equals. Hash
// collisions end up in separate groups.
func placeMember(bucket [][]member, m member) [][]member {
	for i, group := range bucket {
		if equality.Semantic.DeepEqual(group[0].key, m.key) {
			bucket[i] = append(group, m)
			return bucket
		}
	}
	return append(bucket, []member{m})
}

func newSet(group []member, current string) Set {
	names := make([]string, 0, len(group))
	for _, m := range group {
		names = append(names, m.name)
	}
	slices.Sort(names)

	canonical := names[0]
	if slices.Contains(names, current) {
		canonical = current
	}
	dups := slices.DeleteFunc(names, func(n string) bool { return n == canonical })
	return Set{Canonical: canonical, Duplicates: dups}
}

// Merge removes the duplicates of set from cfg, points current-context at
// the canonical context if it named a removed one, and prunes the clusters
// and users only the removed contexts used.
func Merge(cfg *kubeconfig.Config, set Set, opts Options) (*Result, error) {
	for _, name := range append([]string{set.Canonical}, set.Duplicates...) {
		if cfg.Context(name) == nil {
			return nil, kubeconfig.NewError(kubeconfig.ErrContextNotFound, name, nil)
		}
	}
	if slices.Contains(set.Duplicates, set.Canonical) {
		return nil, kubeconfig.NewError(kubeconfig.ErrInvariantViolation, set.Canonical,
			errors.New("context is listed as its own duplicate"))
	}

	res := &Result{Canonical: set.Canonical}
	var clusters, users []string
	for _, name := range set.Duplicates {
		removed, ok := cfg.DeleteContext(name)
		if !ok {
			continue
		}
		res.Contexts = append(res.Contexts, name)
		clusters = append(clusters, removed.Cluster)
		users = append(users, removed.AuthInfo)
	}

	if slices.Contains(set.Duplicates, cfg.CurrentContext()) {
		if err := cfg.SetCurrentContext(set.Canonical); err != nil {
			return nil, err
		}
	}

	if !opts.KeepOrphans {
		res.Clusters, res.Users = cfg.PruneOrphans(dedupe(clusters), dedupe(users))
	}

	logging.Info(subsystem, "merged %v into %s (pruned clusters %v, users %v)",
		res.Contexts, set.Canonical, res.Clusters, res.Users)
	return res, nil
}

func dedupe(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}
