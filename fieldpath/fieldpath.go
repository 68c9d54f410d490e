// Package fieldpath resolves field paths inside nested map[string]any objects
// and builds poll predicates over them.
//
// Paths are dotted by default ("status.phase", "spec.replicas"). Bracket
// notation ("$['metadata.name']") is accepted as an escape syntax for keys
// that themselves contain dots.
//
// Key matching is case sensitive; Kubernetes field names are.
package fieldpath

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/amp-labs/amp-wait/poll"
)

// Sentinel errors for path parsing and traversal.
var (
	ErrPathEmpty          = errors.New("path cannot be empty")
	ErrPathEmptySegment   = errors.New("path contains an empty segment")
	ErrPathInvalidSyntax  = errors.New("invalid bracket notation syntax")
	ErrPathKeyNotFound    = errors.New("key not found at path segment")
	ErrPathCannotTraverse = errors.New("path segment cannot be traversed")
)

// bracketSegmentRe matches one ['key'] segment. Empty captures are allowed so
// parseBracket can report the position of an empty segment.
var bracketSegmentRe = regexp.MustCompile(`\['([^']*)'\]`)

// Parse splits a field path into its keys.
//
// Dotted paths split on dots, with an optional leading dot tolerated
// ("status.phase" and ".status.phase" name the same path). Paths starting
// with "$[" are parsed as bracket notation, where each key is wrapped in
// ['...'] and may contain dots.
func Parse(path string) ([]string, error) {
	if strings.HasPrefix(path, "$[") {
		return parseBracket(path)
	}

	return parseDotted(path)
}

func parseDotted(path string) ([]string, error) {
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return nil, ErrPathEmpty
	}

	keys := strings.Split(path, ".")
	for idx, key := range keys {
		if key == "" {
			return nil, fmt.Errorf("%w: segment %d", ErrPathEmptySegment, idx)
		}
	}

	return keys, nil
}

func parseBracket(path string) ([]string, error) {
	matches := bracketSegmentRe.FindAllStringSubmatch(path, -1)
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrPathInvalidSyntax, path)
	}

	keys := make([]string, len(matches))

	// Reconstruct the path from the matches; any leftover characters mean the
	// syntax was malformed.
	var reconstructed strings.Builder

	reconstructed.WriteString("$")

	for idx, match := range matches {
		if match[1] == "" {
			return nil, fmt.Errorf("%w: segment %d", ErrPathEmptySegment, idx)
		}

		keys[idx] = match[1]

		reconstructed.WriteString("['" + match[1] + "']")
	}

	if reconstructed.String() != path {
		return nil, fmt.Errorf("%w: %s", ErrPathInvalidSyntax, path)
	}

	return keys, nil
}

// Get resolves the value at path inside obj.
// Returns nil with no error when the final key exists and holds null.
// Returns an error when a key is missing or an intermediate value is not an
// object.
func Get(obj map[string]any, path string) (any, error) {
	keys, err := Parse(path)
	if err != nil {
		return nil, err
	}

	current := any(obj)

	for idx, key := range keys {
		currentMap, ok := current.(map[string]any)
		if !ok {
			if current == nil {
				return nil, fmt.Errorf("%w: segment %d (%q), parent is null", ErrPathCannotTraverse, idx, key)
			}

			return nil, fmt.Errorf("%w: segment %d (%q), parent is type %T", ErrPathCannotTraverse, idx, key, current)
		}

		value, exists := currentMap[key]
		if !exists {
			return nil, fmt.Errorf("%w: key %q at segment %d", ErrPathKeyNotFound, key, idx)
		}

		current = value
	}

	return current, nil
}

// Exists builds a predicate that is true when the path resolves inside the
// observed object, regardless of the value it holds.
func Exists(path string) poll.Predicate[map[string]any] {
	return func(obj map[string]any) bool {
		_, err := Get(obj, path)

		return err == nil
	}
}

// Equals builds a predicate that is true when the value at path matches want.
// Values are compared by their string rendering, so int64(3) matches "3" and
// boolean true matches "true".
func Equals(path string, want any) poll.Predicate[map[string]any] {
	return func(obj map[string]any) bool {
		got, err := Get(obj, path)
		if err != nil {
			return false
		}

		return fmt.Sprint(got) == fmt.Sprint(want)
	}
}
