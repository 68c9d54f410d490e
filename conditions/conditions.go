// Package conditions models the status.conditions convention used by
// Kubernetes-style resources and derives poll predicates from it.
//
// Extraction is tolerant: a resource that has no status yet, or a status
// without conditions, observes as zero conditions rather than an error, so
// waits started before the controller's first reconcile keep polling.
package conditions

import (
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
)

// Condition status values, as they appear on the wire.
const (
	StatusTrue    = corev1.ConditionTrue
	StatusFalse   = corev1.ConditionFalse
	StatusUnknown = corev1.ConditionUnknown
)

// TypeReady is the condition type controllers use to report overall readiness.
const TypeReady = "Ready"

// Condition is one entry of a resource's status.conditions list. It is a
// plain record; fields absent on the wire are zero values.
type Condition struct {
	Type               string
	Status             corev1.ConditionStatus
	Reason             string
	Message            string
	LastTransitionTime time.Time
}

// FromObject extracts status.conditions from an unstructured object.
// A missing status, missing conditions list, or malformed entry yields zero
// conditions for that part, never an error.
func FromObject(obj map[string]any) []Condition {
	entries, found, err := unstructured.NestedSlice(obj, "status", "conditions")
	if !found || err != nil {
		return nil
	}

	conds := make([]Condition, 0, len(entries))

	for _, entry := range entries {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}

		conds = append(conds, Condition{
			Type:               stringField(fields, "type"),
			Status:             corev1.ConditionStatus(stringField(fields, "status")),
			Reason:             stringField(fields, "reason"),
			Message:            stringField(fields, "message"),
			LastTransitionTime: transitionTime(stringField(fields, "lastTransitionTime")),
		})
	}

	return conds
}

// Get returns the condition with the given type, if present.
func Get(conds []Condition, condType string) (Condition, bool) {
	for _, cond := range conds {
		if cond.Type == condType {
			return cond, true
		}
	}

	return Condition{}, false
}

func stringField(fields map[string]any, key string) string {
	value, _, _ := unstructured.NestedString(fields, key)

	return value
}

// transitionTime parses an RFC3339 timestamp, returning the zero time for
// anything unparseable.
func transitionTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}
	}

	return parsed
}
