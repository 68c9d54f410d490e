package conditions

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"

	"github.com/amp-labs/amp-wait/poll"
)

// StatusIs builds a predicate that is true when the object carries a
// condition of the given type with the given status.
//
// Example:
//
//	obj, err := poll.Until(ctx, probe, conditions.StatusIs("Available", conditions.StatusTrue))
func StatusIs(condType string, status corev1.ConditionStatus) poll.Predicate[map[string]any] {
	return func(obj map[string]any) bool {
		cond, found := Get(FromObject(obj), condType)

		return found && cond.Status == status
	}
}

// Ready is the readiness predicate: a Ready condition with status True.
func Ready() poll.Predicate[map[string]any] {
	return StatusIs(TypeReady, StatusTrue)
}

// PhaseIs builds a predicate over status.phase for resources that report a
// phase instead of conditions. The type parameter admits both plain strings
// and typed phase values such as corev1.PodRunning.
//
// Example:
//
//	obj, err := poll.Until(ctx, probe, conditions.PhaseIs(corev1.PodRunning))
func PhaseIs[P ~string](phase P) poll.Predicate[map[string]any] {
	return func(obj map[string]any) bool {
		current, found, err := unstructured.NestedString(obj, "status", "phase")

		return err == nil && found && current == string(phase)
	}
}
