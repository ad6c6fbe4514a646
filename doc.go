/*
Package shaping implements complex-text shaping: turning a run of Unicode
codepoints, annotated with script, language and direction, into a sequence
of positioned glyphs for a given font.

The package API is centered around [Buffer] and [Shape]:
  - callers fill a buffer with codepoints ([Buffer.AddRunes]),
  - select a font and segment properties,
  - and call [Shape], after which the buffer holds glyphs and positions.

Shaping applies OpenType layout (GSUB/GPOS), Apple Advanced Typography
tables (morx/kerx/kern/trak/ankr) and script-specific shaping engines for
Arabic, Hebrew, Hangul, Indic scripts, Khmer, Myanmar, Thai and the
Universal Shaping Engine. Fonts arrive pre-parsed as a
go-text/typesetting font.Face; this package never touches font binaries.

An internal shape plan is compiled once per font and (direction, script,
language, features, variation coordinates) combination, cached on the
font, and reused across buffers with matching properties. Shaping a buffer is single-threaded; distinct buffers may be
shaped concurrently as long as they share the face read-only.
*/
package shaping

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"
)

// tracer returns a trace sink for the shaping package namespace.
func tracer() tracing.Trace {
	return tracing.Select("shaping")
}

// errShaping wraps a message as a user-facing shaping error.
func errShaping(x string) error {
	return fmt.Errorf("text shaping: %s", x)
}

// assert panics when condition is false.
func assert(condition bool, msg string) {
	if !condition {
		panic(msg)
	}
}
