package credential

import (
	"context"
	"errors"
	"time"

	clientcmdv1 "k8s.io/client-go/tools/clientcmd/api/v1"
)

// ErrNoExpiry is returned by a Probe that obtained a credential without an
// expiry.
var ErrNoExpiry = errors.New("credential carries no expiry")

// Request carries the credential parameters of one user to an Action or
// Probe. Exactly one of Exec and AuthProvider is set, matching Kind.
type Request struct {
	User         string
	Kind         Kind
	Exec         *clientcmdv1.ExecConfig
	AuthProvider *clientcmdv1.AuthProviderConfig
	// Cluster is the cluster of the context being refreshed, if known. Exec
	// plugins with provideClusterInfo receive it.
	Cluster *clientcmdv1.Cluster
}

// Token is a newly obtained credential.
type Token struct {
	Value string
	// RefreshToken is set when the issuer rotated it.
	RefreshToken string
	ExpiresAt    time.Time
}

// Action obtains a new credential. Implementations must honour ctx.
type Action interface {
	Refresh(ctx context.Context, req Request) (*Token, error)
}

// Probe reports a credential's expiry without changing anything.
type Probe interface {
	Probe(ctx context.Context, req Request) (time.Time, error)
}

// ActionFunc adapts a function to Action.
type ActionFunc func(ctx context.Context, req Request) (*Token, error)

func (f ActionFunc) Refresh(ctx context.Context, req Request) (*Token, error) {
	return f(ctx, req)
}
