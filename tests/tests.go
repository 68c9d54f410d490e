// Package tests provides utilities for managing test context with unique
// identifiers and test metadata. It allows tests to carry test-specific
// information (test name, unique ID) through context.Context, making it easier
// to correlate test execution with external resources such as the
// uniquely-named objects a wait test creates in a cluster.
package tests

import (
	"context"
	"testing"

	"github.com/amp-labs/amp-wait/contexts"
	"github.com/amp-labs/amp-wait/envutil"
	"github.com/google/uuid"
)

// contextKey is a private type used for storing test metadata in context.Context.
// Using a custom type instead of string prevents collisions with other packages
// that might use the same key names.
type contextKey string

const (
	// testIdKey is the context key for storing the unique test identifier.
	// The test ID is a UUID prefixed with "test-".
	testIdKey contextKey = "testId"

	// testNameKey is the context key for storing the test name. The test name
	// is obtained from testing.T.Name() and includes the full test path
	// (e.g., "TestMyFeature/subtest_name").
	testNameKey contextKey = "testName"

	// testTestKey is the context key for storing the testing.T instance.
	testTestKey contextKey = "testTest"
)

// GetUniqueContext creates a new context derived from t.Context() that includes
// a unique test identifier (UUID with "test-" prefix) and the test name from
// t.Name().
//
// The returned context is useful for creating uniquely-named test resources
// and for correlating test execution with external systems.
//
// Example:
//
//	func TestReadiness(t *testing.T) {
//	    ctx := tests.GetUniqueContext(t)
//	    info, _ := tests.GetTestInfo(ctx)
//	    serviceName := "svc-" + info.Id // unique per test run
//	    // ... rest of test
//	}
func GetUniqueContext(t *testing.T) context.Context {
	t.Helper()

	return contexts.WithMultipleValues[contextKey](t.Context(), map[contextKey]any{
		testTestKey: t,
		testIdKey:   "test-" + uuid.New().String(),
		testNameKey: t.Name(),
	})
}

// CheckSkipped conditionally skips a test based on a boolean environment
// variable. It's useful for selectively disabling tests in different
// environments (CI, local, staging) without modifying test code.
//
// The optional booleans are the default value (assumed false when absent) and
// an invert flag, in that order.
//
// Example:
//
//	func TestAgainstRealCluster(t *testing.T) {
//	    tests.CheckSkipped(t.Context(), t, "SKIP_CLUSTER_TESTS", true)
//	    // ... runs only when SKIP_CLUSTER_TESTS=false
//	}
func CheckSkipped(ctx context.Context, t *testing.T, envKey string, defaultValue ...bool) {
	t.Helper()

	defl := false
	invert := false

	if len(defaultValue) > 0 {
		defl = defaultValue[0]
	}

	if len(defaultValue) > 1 {
		invert = defaultValue[1]
	}

	shouldSkip := envutil.Bool(ctx, envKey, envutil.Default(defl)).ValueOrElse(defl)

	original := shouldSkip

	if invert {
		shouldSkip = !shouldSkip
	}

	if shouldSkip {
		t.Skipf("Skipping test because of environment variable: %s=%v",
			envKey, original)
	}
}

// GetTestName retrieves the test name from the context. The test name is the
// full test path including any subtests (e.g., "TestMyFeature/subtest").
func GetTestName(ctx context.Context) (string, bool) {
	return contexts.GetValue[contextKey, string](ctx, testNameKey)
}

// GetTestId retrieves the unique test identifier from the context.
// The test ID is a UUID prefixed with "test-".
func GetTestId(ctx context.Context) (string, bool) {
	return contexts.GetValue[contextKey, string](ctx, testIdKey)
}

// GetTest retrieves the testing.T instance from the context, giving helpers
// access to utilities like Helper(), Error(), and Log().
func GetTest(ctx context.Context) (*testing.T, bool) {
	return contexts.GetValue[contextKey, *testing.T](ctx, testTestKey)
}

// Info represents test metadata containing both the unique identifier and test
// name. The struct is JSON-serializable, which makes it easy to log or send to
// external systems.
type Info struct {
	Test *testing.T `json:"-"`
	Id   string     `json:"id"`   // Unique test identifier (UUID with "test-" prefix)
	Name string     `json:"name"` // Full test name including subtest path
}

// GetTestInfo retrieves the test ID, test name, and testing.T from the context
// as a single Info struct. The boolean is false when none of them are present.
func GetTestInfo(ctx context.Context) (Info, bool) {
	name, nameOk := GetTestName(ctx)
	id, idOk := GetTestId(ctx)
	t, tOk := GetTest(ctx)

	if !nameOk && !idOk && !tOk {
		return Info{}, false
	}

	return Info{
		Test: t,
		Id:   id,
		Name: name,
	}, true
}
