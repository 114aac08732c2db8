package pattern

import (
	"fmt"
	"regexp"
)

// Replacement is a regex substitution applied to a whole rendered record.
// Substitution uses regexp syntax ($1, ${name}).
type Replacement struct {
	re   *regexp.Regexp
	with string
}

func NewReplacement(expr, with string) (*Replacement, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("pattern: replacement regex %q: %w", expr, err)
	}
	return &Replacement{re: re, with: with}, nil
}

func (r *Replacement) Apply(s string) string { return r.re.ReplaceAllString(s, r.with) }

func (r *Replacement) String() string {
	return fmt.Sprintf("replace(regex=%s, replacement=%s)", r.re, r.with)
}
