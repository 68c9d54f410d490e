package waitfor_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/runtime"
	dynamicfake "k8s.io/client-go/dynamic/fake"
	k8stesting "k8s.io/client-go/testing"

	"github.com/amp-labs/amp-wait/cluster"
	"github.com/amp-labs/amp-wait/conditions"
	"github.com/amp-labs/amp-wait/poll"
	"github.com/amp-labs/amp-wait/waitfor"
)

func namedService(name string, ready bool) *unstructured.Unstructured {
	obj := service(ready, "")
	obj.SetName(name)

	return obj
}

func specFor(name, clause string) waitfor.Spec {
	return waitfor.Spec{
		Group:     target.Group,
		Version:   target.Version,
		Resource:  target.Resource,
		Namespace: target.Namespace,
		Name:      name,
		For:       clause,
	}
}

func TestWaiter_Run_ConditionSpec(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(), service(true, ""))

	obj, err := newWaiter(dyn).Run(t.Context(), specFor(target.Name, "condition=Ready"))
	require.NoError(t, err)
	assert.True(t, conditions.Ready()(obj))
}

func TestWaiter_Run_FieldSpec(t *testing.T) {
	t.Parallel()

	const url = "http://sklearn-iris.kserve-test.example.com"

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(), service(true, url))

	obj, err := newWaiter(dyn).Run(t.Context(), specFor(target.Name, "jsonpath={.status.url}="+url))
	require.NoError(t, err)
	assert.NotNil(t, obj)
}

func TestWaiter_Run_DeleteSpec(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())

	obj, err := newWaiter(dyn).Run(t.Context(), specFor(target.Name, "delete"))
	require.NoError(t, err)
	assert.Nil(t, obj, "deletion waits observe no final object")
}

// TestWaiter_Run_TimeoutOverride checks the spec's timeout displaces the
// Waiter default for that one wait.
func TestWaiter_Run_TimeoutOverride(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(), service(false, ""))

	waiter := waitfor.New(cluster.New(dyn),
		waitfor.WithTimeout(10*time.Second),
		waitfor.WithInterval(10*time.Millisecond),
	)

	spec := specFor(target.Name, "condition=Ready")
	spec.Timeout = waitfor.Duration(150 * time.Millisecond)

	_, err := waiter.Run(t.Context(), spec)
	require.ErrorIs(t, err, poll.ErrTimeout)

	var timeoutErr *poll.TimeoutError

	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, 150*time.Millisecond, timeoutErr.Timeout)
}

func TestWaiter_Run_AbsentOKOverride(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())

	gets := atomic.NewInt64(0)

	dyn.PrependReactor("get", "inferenceservices", func(k8stesting.Action) (bool, runtime.Object, error) {
		if gets.Inc() < 3 {
			return true, nil, notFound()
		}

		return true, service(true, ""), nil
	})

	spec := specFor(target.Name, "condition=Ready")
	spec.AbsentOK = true

	obj, err := newWaiter(dyn).Run(t.Context(), spec)
	require.NoError(t, err)
	assert.True(t, conditions.Ready()(obj))
}

func TestWaiter_Run_InvalidFor(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())

	_, err := newWaiter(dyn).Run(t.Context(), specFor(target.Name, "become=Ready"))
	require.ErrorIs(t, err, waitfor.ErrInvalidFor)
}

func TestAll(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(),
		namedService("sklearn-iris", true),
		namedService("xgboost-iris", true),
	)

	specs := []waitfor.Spec{
		specFor("sklearn-iris", "condition=Ready"),
		specFor("xgboost-iris", "condition=Ready"),
		specFor("torch-iris", "delete"),
	}

	require.NoError(t, waitfor.All(t.Context(), newWaiter(dyn), specs))
}

func TestAll_Empty(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme())

	require.NoError(t, waitfor.All(t.Context(), newWaiter(dyn), nil))
}

// TestAll_AggregatesFailures runs a batch where one wait cannot succeed; the
// error names the failed target and only that target.
func TestAll_AggregatesFailures(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(),
		namedService("sklearn-iris", true),
	)

	specs := []waitfor.Spec{
		specFor("sklearn-iris", "condition=Ready"),
		specFor("xgboost-iris", "condition=Ready"),
		specFor("torch-iris", "delete"),
	}

	err := waitfor.All(t.Context(), newWaiter(dyn), specs)
	require.Error(t, err)
	assert.True(t, cluster.IsNotFound(err))
	assert.ErrorContains(t, err, "kserve-test/xgboost-iris")
	assert.NotContains(t, err.Error(), "kserve-test/sklearn-iris")
	assert.NotContains(t, err.Error(), "kserve-test/torch-iris")
}

// TestAll_ReportsEveryFailure joins one error per failed wait.
func TestAll_ReportsEveryFailure(t *testing.T) {
	t.Parallel()

	dyn := dynamicfake.NewSimpleDynamicClient(runtime.NewScheme(), service(false, ""))

	slow := specFor(target.Name, "condition=Ready")
	slow.Timeout = waitfor.Duration(150 * time.Millisecond)

	missing := specFor("xgboost-iris", "condition=Ready")

	err := waitfor.All(t.Context(), newWaiter(dyn), []waitfor.Spec{slow, missing})
	require.Error(t, err)
	assert.ErrorIs(t, err, poll.ErrTimeout)
	assert.True(t, cluster.IsNotFound(err))
	assert.ErrorContains(t, err, "kserve-test/sklearn-iris")
	assert.ErrorContains(t, err, "kserve-test/xgboost-iris")
}
