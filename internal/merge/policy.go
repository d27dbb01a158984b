package merge

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/wolfeidau/webpacker/internal/configerr"
)

// Strategy controls how a field present in both base and fragment is combined.
type Strategy string

const (
	// Append concatenates sequences, fragment after base
	Append Strategy = "append"
	// Overwrite replaces the base value with the fragment value
	Overwrite Strategy = "overwrite"
	// DeepMerge merges mappings key by key, falling back to overwrite on type mismatch
	DeepMerge Strategy = "deepMerge"
)

// ParseStrategy converts a strategy tag into a Strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case Append, Overwrite, DeepMerge:
		return Strategy(s), nil
	}
	return "", fmt.Errorf("%w: unknown merge strategy %q", configerr.ErrConfiguration, s)
}

// Policy maps dotted field paths, e.g. "module.rules", to a merge strategy.
type Policy map[string]Strategy

// DefaultPolicy appends entries, loader rules and plugins.
func DefaultPolicy() Policy {
	return Policy{
		"entry":        Append,
		"module.rules": Append,
		"plugins":      Append,
	}
}

// Validate checks every path and strategy in the policy.
func (p Policy) Validate() error {
	for path, strategy := range p {
		if err := validatePath(path); err != nil {
			return err
		}
		if _, err := ParseStrategy(string(strategy)); err != nil {
			return fmt.Errorf("%w (field %q)", err, path)
		}
	}
	return nil
}

// With returns a copy of the policy with path set to strategy. Every ancestor of path is
// deep merged in the copy so the merge descends far enough to apply it.
func (p Policy) With(path string, strategy Strategy) Policy {
	out := make(Policy, len(p)+1)
	for k, v := range p {
		out[k] = v
	}
	for i, c := range path {
		if c == '.' {
			out[path[:i]] = DeepMerge
		}
	}
	out[path] = strategy
	return out
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("%w: empty merge policy field path", configerr.ErrConfiguration)
	}
	for _, segment := range strings.Split(path, ".") {
		if segment == "" || strings.IndexFunc(segment, unicode.IsSpace) >= 0 {
			return fmt.Errorf("%w: malformed merge policy field path %q", configerr.ErrConfiguration, path)
		}
	}
	return nil
}
