// Package credential inspects and refreshes the credentials held by
// kubeconfig users.
//
// Each credential kind is handled by a variant that knows where the kind
// keeps its expiry and how a new credential is written back. The transport
// that obtains a new credential is injected as an Action per kind; see the
// execplugin and oidcrefresh packages.
//
//	r := credential.NewRefresher(credential.Options{
//		Actions: map[credential.Kind]credential.Action{
//			credential.KindExec: execplugin.NewRunner(),
//			credential.KindOIDC: oidcrefresh.New(),
//		},
//	})
//	res, err := r.Refresh(ctx, user, credential.RefreshOptions{})
//
// A refresh is attempted once under a bounded timeout. Failures surface as
// kubeconfig.ErrRefreshFailed and leave the user unchanged.
package credential
