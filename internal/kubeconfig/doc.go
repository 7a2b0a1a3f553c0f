// Package kubeconfig holds the in-memory kubeconfig model and its file store.
//
// The document is kept as a yaml node tree (the goyaml.v3 fork bundled with
// sigs.k8s.io/yaml). Clusters, users and contexts are decoded into client-go's
// clientcmd/api/v1 types for reading, while every field the schema does not
// cover (vendor keys, comments, scalar styles, unknown top-level sections)
// stays in the tree and is written back unchanged.
//
// Marshal reuses the mapping indent, the sequence indent and the leading
// document marker found at parse time. Blank lines and the spacing before
// comments are not tracked and come out normalized, so only files without
// them are guaranteed to round-trip byte for byte.
//
// Store.Load resolves relative certificate, key, token file and exec command
// paths in the typed views against the kubeconfig's directory. The document
// keeps them as written.
//
// # Invariants
//
// Config.Validate enforces:
//
//   - cluster, user and context names are unique
//   - every context references an existing cluster and user
//   - current-context, when set, names an existing context
//
// Parse rejects files with duplicate names or dangling cluster and user
// references with ErrParse. A current-context naming no context is loaded as
// unset, with a warning, since kubectl leaves such files behind. Save refuses
// to write a config that breaks the rules with ErrInvariantViolation.
//
// # Persistence
//
// Store.Save writes a temporary file next to the target and renames it into
// place. Concurrent invocations are not locked against each other: the last
// rename wins.
//
// # Errors
//
// Errors from ResolvePath, Store.Load and Store.Save, and from the registry
// operations built on them, are *Error values carrying one of the ErrXxx
// kinds; use errors.Is to match. Model mutators such as SetExtension return
// plain errors that callers wrap.
package kubeconfig
