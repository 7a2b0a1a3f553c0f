package credential

import (
	"kcfg/internal/kubeconfig"
)

// Kind names the authentication mechanism a user holds.
type Kind string

const (
	KindExec              Kind = "exec"
	KindOIDC              Kind = "oidc"
	KindAuthProvider      Kind = "auth-provider"
	KindClientCertificate Kind = "client-certificate"
	KindToken             Kind = "token"
	KindBasicAuth         Kind = "basic-auth"
	KindNone              Kind = "none"
)

const oidcProviderName = "oidc"

// KindOf classifies u. When several mechanisms are configured the one
// kubectl would try first wins.
func KindOf(u *kubeconfig.User) Kind {
	switch {
	case u.Exec != nil:
		return KindExec
	case u.AuthProvider != nil && u.AuthProvider.Name == oidcProviderName:
		return KindOIDC
	case u.AuthProvider != nil:
		return KindAuthProvider
	case len(u.ClientCertificateData) > 0 || u.ClientCertificate != "":
		return KindClientCertificate
	case u.Token != "" || u.TokenFile != "":
		return KindToken
	case u.Username != "":
		return KindBasicAuth
	default:
		return KindNone
	}
}
