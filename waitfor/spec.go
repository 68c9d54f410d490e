package waitfor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
	corev1 "k8s.io/api/core/v1"

	"github.com/amp-labs/amp-wait/cluster"
	"github.com/amp-labs/amp-wait/conditions"
	"github.com/amp-labs/amp-wait/fieldpath"
)

// Spec validation errors.
var (
	ErrInvalidSpec = errors.New("invalid wait spec")
	ErrInvalidFor  = errors.New("invalid for clause")
)

// Spec is one declarative wait: the target object, the for clause describing
// what to wait for, and optional overrides of the Waiter defaults.
//
// Example spec file:
//
//	waits:
//	  - version: v1
//	    resource: pods
//	    namespace: default
//	    name: sklearn-predictor
//	    for: condition=Ready
//	    timeout: 30s
//	  - group: serving.kserve.io
//	    version: v1beta1
//	    resource: inferenceservices
//	    namespace: kserve-test
//	    name: sklearn-iris
//	    for: jsonpath={.status.url}=http://sklearn-iris.kserve-test.example.com
//	    absent_ok: true
type Spec struct {
	// Group is the API group; empty for the core group.
	Group string `yaml:"group"`

	// Version is the API version, like "v1" or "v1beta1".
	Version string `yaml:"version"`

	// Resource is the plural resource name, like "pods".
	Resource string `yaml:"resource"`

	// Namespace scopes the target; empty for cluster-scoped resources.
	Namespace string `yaml:"namespace"`

	// Name is the object name.
	Name string `yaml:"name"`

	// For describes what to wait for:
	//
	//	condition=TYPE          condition TYPE reaches status True
	//	condition=TYPE=STATUS   condition TYPE reaches STATUS (True/False/Unknown)
	//	jsonpath=PATH=VALUE     field at PATH renders equal to VALUE
	//	delete                  the object no longer exists
	For string `yaml:"for"`

	// Timeout overrides the Waiter's deadline for this wait.
	Timeout Duration `yaml:"timeout"`

	// Interval overrides the Waiter's attempt spacing for this wait.
	Interval Duration `yaml:"interval"`

	// AbsentOK keeps polling through NotFound instead of failing, for objects
	// that are expected to appear while the wait is already running.
	AbsentOK bool `yaml:"absent_ok"`
}

// Object returns the cluster address of the spec's target.
func (s Spec) Object() cluster.Object {
	return cluster.Object{
		Group:     s.Group,
		Version:   s.Version,
		Resource:  s.Resource,
		Namespace: s.Namespace,
		Name:      s.Name,
	}
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)

	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

type specFile struct {
	Waits []Spec `yaml:"waits"`
}

// LoadSpecs reads and parses a YAML wait spec file.
func LoadSpecs(path string) ([]Spec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read spec file: %w", err)
	}

	return ParseSpecs(data)
}

// ParseSpecs parses YAML wait spec data and validates every entry.
func ParseSpecs(data []byte) ([]Spec, error) {
	var file specFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(file.Waits) == 0 {
		return nil, fmt.Errorf("%w: no waits defined", ErrInvalidSpec)
	}

	for i, spec := range file.Waits {
		if spec.Name == "" {
			return nil, fmt.Errorf("waits[%d]: %w: name is required", i, ErrInvalidSpec)
		}

		if err := spec.validate(); err != nil {
			return nil, fmt.Errorf("waits[%d] (%s): %w", i, spec.Name, err)
		}
	}

	return file.Waits, nil
}

func (s Spec) validate() error {
	if s.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidSpec)
	}

	if s.Resource == "" {
		return fmt.Errorf("%w: resource is required", ErrInvalidSpec)
	}

	if s.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidSpec)
	}

	if s.Timeout.Duration() < 0 {
		return fmt.Errorf("%w: timeout cannot be negative, got %s", ErrInvalidSpec, s.Timeout.Duration())
	}

	if s.Interval.Duration() < 0 {
		return fmt.Errorf("%w: interval cannot be negative, got %s", ErrInvalidSpec, s.Interval.Duration())
	}

	if _, err := parseFor(s.For); err != nil {
		return err
	}

	return nil
}

type forKind int

const (
	forCondition forKind = iota
	forField
	forDelete
)

// forClause is a parsed For expression.
type forClause struct {
	kind       forKind
	condType   string
	condStatus corev1.ConditionStatus
	path       string
	value      string
}

// parseFor parses a for clause.
//
// Supported formats:
//   - "delete" → wait for the object to be gone
//   - "condition=TYPE" → wait for condition TYPE with status True
//   - "condition=TYPE=STATUS" → wait for condition TYPE with the given status
//   - "jsonpath=PATH=VALUE" → wait for the field at PATH to equal VALUE
//
// Jsonpath PATH accepts the kubectl brace form ("{.status.phase}") as well as
// the plain dotted form ("status.phase"). VALUE may itself contain "=".
func parseFor(clause string) (forClause, error) {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return forClause{}, fmt.Errorf("%w: empty clause", ErrInvalidFor)
	}

	if clause == "delete" {
		return forClause{kind: forDelete}, nil
	}

	parts := strings.SplitN(clause, "=", 3)

	switch parts[0] {
	case "condition":
		return parseForCondition(parts)
	case "jsonpath":
		return parseForJSONPath(parts)
	default:
		return forClause{}, fmt.Errorf(
			"%w: %q (expected 'delete', 'condition=TYPE[=STATUS]', or 'jsonpath=PATH=VALUE')", ErrInvalidFor, clause,
		)
	}
}

func parseForCondition(parts []string) (forClause, error) {
	if len(parts) < 2 || parts[1] == "" {
		return forClause{}, fmt.Errorf("%w: condition requires a type", ErrInvalidFor)
	}

	parsed := forClause{
		kind:       forCondition,
		condType:   parts[1],
		condStatus: conditions.StatusTrue,
	}

	if len(parts) == 3 {
		status, err := parseConditionStatus(parts[2])
		if err != nil {
			return forClause{}, err
		}

		parsed.condStatus = status
	}

	return parsed, nil
}

func parseConditionStatus(raw string) (corev1.ConditionStatus, error) {
	switch {
	case strings.EqualFold(raw, string(conditions.StatusTrue)):
		return conditions.StatusTrue, nil
	case strings.EqualFold(raw, string(conditions.StatusFalse)):
		return conditions.StatusFalse, nil
	case strings.EqualFold(raw, string(conditions.StatusUnknown)):
		return conditions.StatusUnknown, nil
	default:
		return "", fmt.Errorf("%w: unknown condition status %q (expected True, False, or Unknown)", ErrInvalidFor, raw)
	}
}

func parseForJSONPath(parts []string) (forClause, error) {
	if len(parts) < 3 || parts[1] == "" {
		return forClause{}, fmt.Errorf("%w: jsonpath requires a path and a value", ErrInvalidFor)
	}

	path := parts[1]
	if strings.HasPrefix(path, "{") && strings.HasSuffix(path, "}") {
		path = path[1 : len(path)-1]
	}

	if _, err := fieldpath.Parse(path); err != nil {
		return forClause{}, fmt.Errorf("%w: %w", ErrInvalidFor, err)
	}

	return forClause{kind: forField, path: path, value: parts[2]}, nil
}

// Run executes one declarative wait. The spec's overrides apply on top of the
// Waiter's defaults for this wait only. Deletion waits return a nil object.
func (w *Waiter) Run(ctx context.Context, spec Spec) (map[string]any, error) {
	clause, err := parseFor(spec.For)
	if err != nil {
		return nil, err
	}

	run := *w
	if spec.Timeout.Duration() > 0 {
		run.timeout = spec.Timeout.Duration()
	}

	if spec.Interval.Duration() > 0 {
		run.interval = spec.Interval.Duration()
	}

	if spec.AbsentOK {
		run.absentOK = true
	}

	obj := spec.Object()

	switch clause.kind {
	case forDelete:
		return nil, run.Gone(ctx, obj)
	case forField:
		return run.Field(ctx, obj, clause.path, clause.value)
	case forCondition:
		return run.Condition(ctx, obj, clause.condType, clause.condStatus)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidFor, spec.For)
	}
}
