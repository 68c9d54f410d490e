package contexts

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type waitKey string

func TestWithMultipleValuesLookup(t *testing.T) {
	t.Parallel()

	ctx := WithMultipleValues(t.Context(), map[waitKey]any{
		"namespace": "models",
		"attempts":  7,
		"ready":     true,
	})

	assert.Equal(t, "models", ctx.Value(waitKey("namespace")))
	assert.Equal(t, 7, ctx.Value(waitKey("attempts")))
	assert.Equal(t, true, ctx.Value(waitKey("ready")))
	assert.Nil(t, ctx.Value(waitKey("absent")))
}

func TestWithMultipleValuesEmptyMap(t *testing.T) {
	t.Parallel()

	ctx := WithMultipleValues(t.Context(), map[waitKey]any{})
	assert.Nil(t, ctx.Value(waitKey("anything")))
}

func TestWithMultipleValuesPanics(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() {
		WithMultipleValues(nil, map[waitKey]any{}) //nolint:staticcheck // nil parent must panic
	})

	assert.Panics(t, func() {
		WithMultipleValues[waitKey](t.Context(), nil)
	})
}

func TestWithMultipleValuesExactKeyType(t *testing.T) {
	t.Parallel()

	type otherKey string

	// Same key text under a different type must bypass the local map.
	parent := context.WithValue(t.Context(), otherKey("namespace"), "from-parent")
	ctx := WithMultipleValues(parent, map[waitKey]any{"namespace": "typed"})

	assert.Equal(t, "typed", ctx.Value(waitKey("namespace")))
	assert.Equal(t, "from-parent", ctx.Value(otherKey("namespace")))
}

func TestWithMultipleValuesShadowsParent(t *testing.T) {
	t.Parallel()

	parent := WithMultipleValues(t.Context(), map[waitKey]any{"phase": "Pending"})
	child := WithMultipleValues(parent, map[waitKey]any{"phase": "Active"})

	assert.Equal(t, "Active", child.Value(waitKey("phase")))
	assert.Equal(t, "Pending", parent.Value(waitKey("phase")))
}

func TestWithMultipleValuesNestedFallback(t *testing.T) {
	t.Parallel()

	parent := WithMultipleValues(t.Context(), map[waitKey]any{"cluster": "kind-e2e"})
	child := WithMultipleValues(parent, map[waitKey]any{"namespace": "models"})

	assert.Equal(t, "kind-e2e", child.Value(waitKey("cluster")))
	assert.Equal(t, "models", child.Value(waitKey("namespace")))
}

func TestWithMultipleValuesIntegerKeys(t *testing.T) {
	t.Parallel()

	ctx := WithMultipleValues(t.Context(), map[int]any{1: "first", 2: "second"})

	assert.Equal(t, "first", ctx.Value(1))
	assert.Equal(t, "second", ctx.Value(2))
	assert.Nil(t, ctx.Value(3))
}

func TestWithMultipleValuesStructKeys(t *testing.T) {
	t.Parallel()

	type slot struct{ index int }

	ctx := WithMultipleValues(t.Context(), map[slot]any{{index: 0}: "zero"})

	assert.Equal(t, "zero", ctx.Value(slot{index: 0}))
	assert.Nil(t, ctx.Value(slot{index: 1}))
}

func TestWithMultipleValuesInheritsCancellation(t *testing.T) {
	t.Parallel()

	parent, cancel := context.WithCancel(t.Context())
	ctx := WithMultipleValues(parent, map[waitKey]any{"namespace": "models"})

	cancel()

	require.ErrorIs(t, ctx.Err(), context.Canceled)
	assert.Equal(t, "models", ctx.Value(waitKey("namespace")))
}

func TestMultiValueStringEmpty(t *testing.T) {
	t.Parallel()

	ctx := WithMultipleValues(context.Background(), map[waitKey]any{})

	s, ok := ctx.(fmt.Stringer)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(s.String(), ".WithMultipleValues()"))
}

func TestMultiValueStringEntries(t *testing.T) {
	t.Parallel()

	// Plain string keys render as themselves; named key types render as
	// their type name and are covered by TestMultiValueStringKeyTypes.
	ctx := WithMultipleValues(context.Background(), map[string]any{
		"name":      "sklearn-iris",
		"condition": "Ready",
	})

	str := ctx.(fmt.Stringer).String()
	assert.Contains(t, str, ".WithMultipleValues(")
	assert.Contains(t, str, "name=sklearn-iris")
	assert.Contains(t, str, "condition=Ready")
}

func TestMultiValueStringValueKinds(t *testing.T) {
	t.Parallel()

	// Stringer values print themselves, nils print <nil>, everything else
	// prints its type.
	ctx := WithMultipleValues(context.Background(), map[string]any{"timeout": 30 * time.Second})
	assert.Contains(t, ctx.(fmt.Stringer).String(), "timeout=30s")

	ctx = WithMultipleValues(context.Background(), map[string]any{"last": nil})
	assert.Contains(t, ctx.(fmt.Stringer).String(), "last=<nil>")

	ctx = WithMultipleValues(context.Background(), map[string]any{"attempts": 3})
	assert.Contains(t, ctx.(fmt.Stringer).String(), "attempts=int")
}

func TestMultiValueStringKeyTypes(t *testing.T) {
	t.Parallel()

	ctx := WithMultipleValues(context.Background(), map[waitKey]any{"name": "sklearn-iris"})
	assert.Contains(t, ctx.(fmt.Stringer).String(), "contexts.waitKey=sklearn-iris")
}

func TestWithMultipleValuesConcurrentReads(t *testing.T) {
	t.Parallel()

	ctx := WithMultipleValues(t.Context(), map[waitKey]any{
		"namespace": "models",
		"attempts":  12,
	})

	var wg sync.WaitGroup

	for range 16 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			assert.Equal(t, "models", ctx.Value(waitKey("namespace")))
			assert.Equal(t, 12, ctx.Value(waitKey("attempts")))
		}()
	}

	wg.Wait()
}
