package cluster

import (
	"context"

	"github.com/amp-labs/amp-wait/lazy"
)

// defaultClient is constructed once, on first use, from the standard loading
// rules. The name lets tests swap in a fake-backed client through
// lazy.WithValueOverride.
var defaultClient = lazy.NewCtxErr(func(context.Context) (*Client, error) {
	return NewFromKubeconfig("", "")
}).WithName("cluster-default-client")

// Default returns the shared client built from the standard kubeconfig
// loading rules (KUBECONFIG, then ~/.kube/config, then in-cluster).
// Construction errors are not memoized, so a call can succeed later once a
// kubeconfig appears.
func Default(ctx context.Context) (*Client, error) {
	return defaultClient.Get(ctx)
}
