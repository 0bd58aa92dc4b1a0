package task

import (
	"fmt"
	"regexp"
	"strings"
)

// segmentRegex validates a kind or variant name, e.g. `less` or `prod`.
var segmentRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Kind names a transform family, e.g. "less" or "htmlmin".
type Kind string

// ID is the identity of a TaskSpec: the transform kind plus the environment
// variant it is configured for.
type ID struct {
	Kind    Kind
	Variant string
}

// String serializes the ID into its canonical `kind:variant` form.
func (id ID) String() string {
	return string(id.Kind) + ":" + id.Variant
}

// IsZero reports whether the ID is unset.
func (id ID) IsZero() bool {
	return id.Kind == "" && id.Variant == ""
}

// ParseID parses the canonical `kind:variant` representation.
func ParseID(raw string) (ID, error) {
	if raw == "" {
		return ID{}, fmt.Errorf("task identifier cannot be empty")
	}
	kind, variant, ok := strings.Cut(raw, ":")
	if !ok {
		return ID{}, fmt.Errorf("task identifier %q must have the form kind:variant", raw)
	}
	if err := validateSegment(kind); err != nil {
		return ID{}, fmt.Errorf("invalid kind in %q: %w", raw, err)
	}
	if err := validateSegment(variant); err != nil {
		return ID{}, fmt.Errorf("invalid variant in %q: %w", raw, err)
	}
	return ID{Kind: Kind(kind), Variant: variant}, nil
}

// MustParseID is like ParseID but panics on malformed input. Intended for
// tests and static tables.
func MustParseID(raw string) ID {
	id, err := ParseID(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// ValidName reports whether s is usable as a kind, variant or alias name.
func ValidName(s string) bool {
	return validateSegment(s) == nil
}

func validateSegment(s string) error {
	if s == "" {
		return fmt.Errorf("empty segment")
	}
	if s == "-" || s == "_" {
		return fmt.Errorf("invalid segment name: %q", s)
	}
	if !segmentRegex.MatchString(s) {
		return fmt.Errorf("invalid segment format: %q", s)
	}
	return nil
}
