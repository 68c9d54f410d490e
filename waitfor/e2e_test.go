package waitfor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amp-labs/amp-wait/cluster"
	"github.com/amp-labs/amp-wait/logger"
	"github.com/amp-labs/amp-wait/tests"
	"github.com/amp-labs/amp-wait/waitfor"
)

// TestClusterNamespaceActive runs a wait against a real cluster through the
// default kubeconfig. Skipped unless SKIP_CLUSTER_TESTS=false.
func TestClusterNamespaceActive(t *testing.T) {
	ctx := tests.GetUniqueContext(t)
	tests.CheckSkipped(ctx, t, "SKIP_CLUSTER_TESTS", true)

	info, ok := tests.GetTestInfo(ctx)
	require.True(t, ok)

	ctx = logger.WithOperation(ctx, info.Id)

	client, err := cluster.Default(ctx)
	require.NoError(t, err)

	w := waitfor.New(client,
		waitfor.WithTimeout(30*time.Second),
		waitfor.WithInterval(2*time.Second),
	)

	obj, err := w.Field(ctx, cluster.Object{
		Version:  "v1",
		Resource: "namespaces",
		Name:     "default",
	}, ".status.phase", "Active")
	require.NoError(t, err)
	assert.NotNil(t, obj)
}
