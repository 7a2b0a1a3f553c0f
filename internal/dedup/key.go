package dedup

import (
	"slices"

	clientcmdv1 "k8s.io/client-go/tools/clientcmd/api/v1"

	"kcfg/internal/credential"
	"kcfg/internal/kubeconfig"
)

// clusterKey holds the cluster fields that decide whether two clusters
// reach the same endpoint with the same trust settings.
type clusterKey struct {
	Server                   string
	CertificateAuthorityData []byte
	CertificateAuthority     string
	TLSServerName            string
	InsecureSkipTLSVerify    bool
}

// userKey holds the credential parameters of a user. The kcfg credential
// cache and unrecognized fields are deliberately absent.
type userKey struct {
	Kind                  credential.Kind
	Token                 string
	TokenFile             string
	ClientCertificate     string
	ClientCertificateData []byte
	ClientKey             string
	ClientKeyData         []byte
	Username              string
	Password              string
	Impersonate           string
	ImpersonateGroups     []string
	Exec                  *execKey
	AuthProvider          string
	AuthProviderConfig    map[string]string
}

type execKey struct {
	APIVersion string
	Command    string
	Args       []string
	Env        []clientcmdv1.ExecEnvVar
}

type contextKey struct {
	Cluster   clusterKey
	User      userKey
	Namespace string
}

func keyOf(cl *kubeconfig.Cluster) clusterKey {
	return clusterKey{
		Server:                   cl.Server,
		CertificateAuthorityData: nilIfEmpty(cl.CertificateAuthorityData),
		CertificateAuthority:     cl.CertificateAuthority,
		TLSServerName:            cl.TLSServerName,
		InsecureSkipTLSVerify:    cl.InsecureSkipTLSVerify,
	}
}

func userKeyOf(u *kubeconfig.User) userKey {
	k := userKey{
		Kind:                  credential.KindOf(u),
		Token:                 u.Token,
		TokenFile:             u.TokenFile,
		ClientCertificate:     u.ClientCertificate,
		ClientCertificateData: nilIfEmpty(u.ClientCertificateData),
		ClientKey:             u.ClientKey,
		ClientKeyData:         nilIfEmpty(u.ClientKeyData),
		Username:              u.Username,
		Password:              u.Password,
		Impersonate:           u.Impersonate,
		ImpersonateGroups:     nilIfEmpty(u.ImpersonateGroups),
	}
	if u.Exec != nil {
		k.Exec = &execKey{
			APIVersion: u.Exec.APIVersion,
			Command:    u.Exec.Command,
			Args:       nilIfEmpty(u.Exec.Args),
			Env:        nilIfEmpty(u.Exec.Env),
		}
	}
	if u.AuthProvider != nil {
		k.AuthProvider = u.AuthProvider.Name
		if len(u.AuthProvider.Config) > 0 {
			k.AuthProviderConfig = u.AuthProvider.Config
		}
	}
	return k
}

// contextKeyOf resolves ctx's references. ok is false when a reference
// dangles, which Validate rules out for loaded configs.
func contextKeyOf(cfg *kubeconfig.Config, ctx *kubeconfig.Context) (contextKey, bool) {
	cl := cfg.Cluster(ctx.Cluster)
	u := cfg.User(ctx.AuthInfo)
	if cl == nil || u == nil {
		return contextKey{}, false
	}
	return contextKey{Cluster: keyOf(cl), User: userKeyOf(u), Namespace: ctx.Namespace}, true
}

func nilIfEmpty[S ~[]E, E any](s S) S {
	if len(s) == 0 {
		return nil
	}
	return slices.Clip(s)
}
