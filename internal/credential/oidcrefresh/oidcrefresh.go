// Package oidcrefresh renews the id-token of kubeconfig users with the oidc
// auth-provider through an OAuth2 refresh-token grant.
package oidcrefresh

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"k8s.io/client-go/util/cert"

	"kcfg/internal/credential"
	"kcfg/pkg/logging"
)

const subsystem = "OIDC"

// auth-provider config keys, as written by kubectl's oidc plugin.
const (
	cfgIssuerURL  = "idp-issuer-url"
	cfgClientID   = "client-id"
	cfgSecret     = "client-secret"
	cfgRefresh    = "refresh-token"
	cfgExtraScope = "extra-scopes"
	cfgCAData     = "idp-certificate-authority-data"
	cfgCAFile     = "idp-certificate-authority"
)

// Refresher implements credential.Action for the oidc auth-provider.
type Refresher struct {
	httpClient *http.Client
}

type Option func(*Refresher)

// WithHTTPClient sets the client used for discovery and the token request
// when the user config carries no custom CA.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Refresher) { r.httpClient = c }
}

func New(opts ...Option) *Refresher {
	r := &Refresher{}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Refresh exchanges the stored refresh token for a new id-token.
func (r *Refresher) Refresh(ctx context.Context, req credential.Request) (*credential.Token, error) {
	if req.AuthProvider == nil {
		return nil, fmt.Errorf("user %s has no auth-provider configuration", req.User)
	}
	cfg := req.AuthProvider.Config
	for _, key := range []string{cfgIssuerURL, cfgClientID, cfgRefresh} {
		if cfg[key] == "" {
			return nil, fmt.Errorf("user %s: auth-provider config has no %s", req.User, key)
		}
	}

	client, err := r.clientFor(cfg)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", req.User, err)
	}
	if client != nil {
		ctx = oidc.ClientContext(ctx, client)
	}

	issuer := cfg[cfgIssuerURL]
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to discover issuer %s: %w", issuer, err)
	}

	oauthCfg := &oauth2.Config{
		ClientID:     cfg[cfgClientID],
		ClientSecret: cfg[cfgSecret],
		Endpoint:     provider.Endpoint(),
		Scopes:       scopes(cfg[cfgExtraScope]),
	}

	logging.Debug(subsystem, "refreshing id-token of user %s at %s", req.User, provider.Endpoint().TokenURL)
	// An expired token forces the source to run the refresh grant.
	stale := &oauth2.Token{RefreshToken: cfg[cfgRefresh], Expiry: time.Unix(1, 0)}
	tok, err := oauthCfg.TokenSource(ctx, stale).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh grant failed: %w", err)
	}

	idToken, _ := tok.Extra("id_token").(string)
	if idToken == "" {
		return nil, errors.New("token response did not contain an id_token")
	}

	out := &credential.Token{Value: idToken}
	if exp, err := credential.TokenExpiry(idToken); err == nil {
		out.ExpiresAt = exp
	} else {
		logging.Debug(subsystem, "id-token of user %s has no readable exp, using response expiry: %v", req.User, err)
		out.ExpiresAt = tok.Expiry
	}
	if tok.RefreshToken != "" && tok.RefreshToken != cfg[cfgRefresh] {
		out.RefreshToken = tok.RefreshToken
	}
	return out, nil
}

// clientFor returns an HTTP client trusting the issuer CA from the user's
// config, else the configured client. Nil means http.DefaultClient.
func (r *Refresher) clientFor(cfg map[string]string) (*http.Client, error) {
	switch {
	case cfg[cfgCAData] != "":
		data, err := base64.StdEncoding.DecodeString(cfg[cfgCAData])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", cfgCAData, err)
		}
		pool, err := cert.NewPoolFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", cfgCAData, err)
		}
		return clientWithRoots(pool), nil
	case cfg[cfgCAFile] != "":
		pool, err := cert.NewPool(cfg[cfgCAFile])
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", cfgCAFile, err)
		}
		return clientWithRoots(pool), nil
	default:
		return r.httpClient, nil
	}
}

func clientWithRoots(pool *x509.CertPool) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{RootCAs: pool, MinVersion: tls.VersionTLS12}
	return &http.Client{Transport: transport}
}

func scopes(extra string) []string {
	out := []string{oidc.ScopeOpenID}
	for _, s := range strings.Split(extra, ",") {
		if s = strings.TrimSpace(s); s != "" && s != oidc.ScopeOpenID {
			out = append(out, s)
		}
	}
	return out
}
