package pattern

import (
	"errors"
	"fmt"
)

// Reason classifies a pattern syntax failure.
type Reason int

const (
	UnterminatedOptionBrace Reason = iota + 1
	UnknownSpecifier
	InvalidWidth
)

func (r Reason) String() string {
	switch r {
	case UnterminatedOptionBrace:
		return "unterminated option brace"
	case UnknownSpecifier:
		return "unknown specifier"
	case InvalidWidth:
		return "invalid width"
	default:
		return fmt.Sprintf("reason(%d)", int(r))
	}
}

var (
	ErrUnterminatedOptionBrace = errors.New("unterminated option brace")
	ErrUnknownSpecifier        = errors.New("unknown specifier")
	ErrInvalidWidth            = errors.New("invalid width")
)

// SyntaxError reports where and why a pattern failed to compile.
type SyntaxError struct {
	Pattern string
	Offset  int // byte offset into Pattern
	Reason  Reason
	Text    string // offending text
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("pattern: %s %q at offset %d in %q", e.Reason, e.Text, e.Offset, e.Pattern)
}

// Is lets callers match on the reason with errors.Is(err, ErrUnknownSpecifier).
func (e *SyntaxError) Is(target error) bool {
	switch e.Reason {
	case UnterminatedOptionBrace:
		return target == ErrUnterminatedOptionBrace
	case UnknownSpecifier:
		return target == ErrUnknownSpecifier
	case InvalidWidth:
		return target == ErrInvalidWidth
	}
	return false
}
