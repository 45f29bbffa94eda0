package dock

import (
	"fmt"
	"regexp"
)

// DefaultModelPatterns match the Dell dock families reported by the detection sources.
var DefaultModelPatterns = []string{
	`(?i)^Dell\s+(WD|TB|UD|HD|D\d{4}|Thunderbolt|Dock)`,
	`(?i)dock`,
}

// ModelFilter restricts observations to known dock model names.
// The zero value passes everything.
type ModelFilter struct {
	patterns []*regexp.Regexp
}

// NewModelFilter compiles the given patterns.
// Returns ErrInvalidPattern if any pattern fails to compile.
func NewModelFilter(patterns []string) (*ModelFilter, error) {
	f := &ModelFilter{}
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %q: %w", ErrInvalidPattern, p, err)
		}
		f.patterns = append(f.patterns, re)
	}
	return f, nil
}

// Match reports whether the model matches any pattern.
func (f *ModelFilter) Match(model string) bool {
	if f == nil || len(f.patterns) == 0 {
		return true
	}
	for _, re := range f.patterns {
		if re.MatchString(model) {
			return true
		}
	}
	return false
}

// Apply returns the observations whose model matches, preserving order.
func (f *ModelFilter) Apply(observations []Observation) []Observation {
	if f == nil || len(f.patterns) == 0 {
		return observations
	}
	out := make([]Observation, 0, len(observations))
	for _, o := range observations {
		if f.Match(o.Model) {
			out = append(out, o)
		}
	}
	return out
}
