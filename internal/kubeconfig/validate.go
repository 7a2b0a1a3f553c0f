package kubeconfig

import (
	"errors"
	"fmt"
	"strings"

	"k8s.io/apimachinery/pkg/util/sets"
)

// Violation describes one broken invariant.
type Violation struct {
	Entity  string
	Name    string
	Message string
}

func (v Violation) Error() string {
	return fmt.Sprintf("%s %q: %s", v.Entity, v.Name, v.Message)
}

// Violations collects every broken invariant found in one pass.
type Violations []Violation

func (v Violations) Error() string {
	if len(v) == 0 {
		return "no violations"
	}
	messages := make([]string, 0, len(v))
	for _, violation := range v {
		messages = append(messages, violation.Error())
	}
	return strings.Join(messages, "; ")
}

// Validate checks the structural invariants: unique names, resolvable
// context references and a current-context that names a context. It returns
// an ErrInvariantViolation error wrapping Violations.
func (c *Config) Validate() error {
	var violations Violations

	clusters := sets.New[string]()
	for _, cl := range c.clusters {
		if clusters.Has(cl.Name) {
			violations = append(violations, Violation{"cluster", cl.Name, "name is not unique"})
		}
		clusters.Insert(cl.Name)
	}
	users := sets.New[string]()
	for _, u := range c.users {
		if users.Has(u.Name) {
			violations = append(violations, Violation{"user", u.Name, "name is not unique"})
		}
		users.Insert(u.Name)
	}
	contexts := sets.New[string]()
	for _, ctx := range c.contexts {
		if contexts.Has(ctx.Name) {
			violations = append(violations, Violation{"context", ctx.Name, "name is not unique"})
		}
		contexts.Insert(ctx.Name)

		if !clusters.Has(ctx.Cluster) {
			violations = append(violations, Violation{"context", ctx.Name, fmt.Sprintf("references missing cluster %q", ctx.Cluster)})
		}
		if !users.Has(ctx.AuthInfo) {
			violations = append(violations, Violation{"context", ctx.Name, fmt.Sprintf("references missing user %q", ctx.AuthInfo)})
		}
	}

	if c.currentContext != "" && !contexts.Has(c.currentContext) {
		violations = append(violations, Violation{currentContextKey, c.currentContext, "does not name a context"})
	}

	if len(violations) > 0 {
		return newError(ErrInvariantViolation, "", violations)
	}
	return nil
}

func unwrapViolations(err error) error {
	var v Violations
	if errors.As(err, &v) {
		return v
	}
	return err
}
