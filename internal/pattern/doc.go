// Package pattern compiles conversion patterns into render pipelines.
//
// A pattern is literal text mixed with specifiers:
//
//	%[-][min][.max]name[{block}...]
//
// "%%" is a literal percent. The name resolves to the longest registered
// converter name that prefixes the letter run; remaining letters stay
// literal. Blocks may nest braces; Spec.Blocks carries each block verbatim
// and Spec.Options carries them split on top-level commas.
//
// Compile validates the whole pattern up front and returns either a
// complete *Pipeline or an error. A Pipeline is immutable and safe for
// concurrent Format calls. A converter that fails at render time is
// replaced by FailureMarker and reported to the pipeline's Reporter; Format
// itself never fails.
//
// Width handling: shorter output is padded with spaces (on the right for
// "-", otherwise on the left); longer output is cut to max runes. The cut
// side is declared by the converter through Truncator and defaults to
// TruncateLeading, which keeps the tail.
package pattern
