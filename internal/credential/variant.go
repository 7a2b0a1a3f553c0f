package credential

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"k8s.io/client-go/util/cert"
	sigsyaml "sigs.k8s.io/yaml"

	"kcfg/internal/kubeconfig"
	"kcfg/pkg/logging"
)

// CacheExtension is the user extension holding the last credential obtained
// through an exec plugin.
const CacheExtension = "kcfg.io/credential"

// cachedCredential is the payload stored under CacheExtension.
type cachedCredential struct {
	Token               string `json:"token" yaml:"token"`
	ExpirationTimestamp string `json:"expirationTimestamp,omitempty" yaml:"expirationTimestamp,omitempty"`
}

// variant implements the kind-specific half of inspecting and refreshing a
// credential. Adding a credential kind means adding a variant.
type variant interface {
	kind() Kind
	// expiry returns the credential's expiry, or the zero time when it
	// cannot be determined.
	expiry(ctx context.Context, r *Refresher, u *kubeconfig.User, req Request) time.Time
	// refreshable reports whether the kind has a refresh path at all.
	refreshable() bool
	// store writes tok back into u.
	store(u *kubeconfig.User, tok *Token) error
}

func variantFor(k Kind) variant {
	switch k {
	case KindExec:
		return execVariant{}
	case KindOIDC:
		return oidcVariant{}
	case KindClientCertificate:
		return certVariant{}
	default:
		return staticVariant{k: k}
	}
}

type execVariant struct{}

func (execVariant) kind() Kind        { return KindExec }
func (execVariant) refreshable() bool { return true }

func (execVariant) expiry(ctx context.Context, r *Refresher, u *kubeconfig.User, req Request) time.Time {
	if raw, ok := u.Extension(CacheExtension); ok {
		var cached cachedCredential
		if err := sigsyaml.Unmarshal(raw, &cached); err != nil {
			logging.Debug(refresherSubsystem, "ignoring unreadable credential cache of user %s: %v", u.Name, err)
		} else if cached.ExpirationTimestamp != "" {
			t, err := time.Parse(time.RFC3339, cached.ExpirationTimestamp)
			if err == nil {
				return t
			}
			logging.Debug(refresherSubsystem, "ignoring cached expiry of user %s: %v", u.Name, err)
		}
	}
	return r.probe(ctx, req)
}

func (execVariant) store(u *kubeconfig.User, tok *Token) error {
	cached := cachedCredential{Token: tok.Value}
	if !tok.ExpiresAt.IsZero() {
		cached.ExpirationTimestamp = tok.ExpiresAt.UTC().Format(time.RFC3339)
	}
	return u.SetExtension(CacheExtension, cached)
}

type oidcVariant struct{}

func (oidcVariant) kind() Kind        { return KindOIDC }
func (oidcVariant) refreshable() bool { return true }

func (oidcVariant) expiry(_ context.Context, _ *Refresher, u *kubeconfig.User, _ Request) time.Time {
	raw := u.AuthProvider.Config["id-token"]
	if raw == "" {
		return time.Time{}
	}
	exp, err := TokenExpiry(raw)
	if err != nil {
		logging.Debug(refresherSubsystem, "cannot read id-token expiry of user %s: %v", u.Name, err)
		return time.Time{}
	}
	return exp
}

func (oidcVariant) store(u *kubeconfig.User, tok *Token) error {
	values := map[string]string{"id-token": tok.Value}
	if tok.RefreshToken != "" {
		values["refresh-token"] = tok.RefreshToken
	}
	return u.SetAuthProviderConfig(values)
}

// TokenExpiry returns the exp claim of a JWT without verifying its signature.
func TokenExpiry(raw string) (time.Time, error) {
	tok, _, err := jwt.NewParser().ParseUnverified(raw, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse token: %w", err)
	}
	exp, err := tok.Claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read exp claim: %w", err)
	}
	if exp == nil {
		return time.Time{}, ErrNoExpiry
	}
	return exp.Time, nil
}

type certVariant struct{}

func (certVariant) kind() Kind        { return KindClientCertificate }
func (certVariant) refreshable() bool { return false }

func (certVariant) expiry(_ context.Context, _ *Refresher, u *kubeconfig.User, _ Request) time.Time {
	data := u.ClientCertificateData
	if len(data) == 0 {
		var err error
		data, err = os.ReadFile(u.ClientCertificate)
		if err != nil {
			logging.Debug(refresherSubsystem, "cannot read client certificate of user %s: %v", u.Name, err)
			return time.Time{}
		}
	}
	certs, err := cert.ParseCertsPEM(data)
	if err != nil || len(certs) == 0 {
		logging.Debug(refresherSubsystem, "cannot parse client certificate of user %s: %v", u.Name, err)
		return time.Time{}
	}
	return certs[0].NotAfter
}

func (certVariant) store(*kubeconfig.User, *Token) error { return errUnsupported }

// staticVariant covers kinds without an expiry or a refresh path.
type staticVariant struct{ k Kind }

func (v staticVariant) kind() Kind      { return v.k }
func (staticVariant) refreshable() bool { return false }

func (staticVariant) expiry(context.Context, *Refresher, *kubeconfig.User, Request) time.Time {
	return time.Time{}
}

func (staticVariant) store(*kubeconfig.User, *Token) error { return errUnsupported }

var errUnsupported = errors.New("no refresh path for this credential kind")
