package shaping

import (
	"strconv"
	"strings"

	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// Feature requests one OpenType feature value for a codepoint range of
// the buffer.
type Feature struct {
	Tag tables.Tag
	// Value of the feature: 0 disables, 1 enables, greater values select
	// an alternate.
	Value uint32
	// Start is the first cluster the feature applies to (inclusive).
	Start int
	// End is the cluster the feature stops applying at (exclusive).
	End int
}

const (
	// FeatureGlobalStart marks a feature range open at the start.
	FeatureGlobalStart = 0
	// FeatureGlobalEnd marks a feature range open at the end.
	FeatureGlobalEnd = maxInt
)

const maxInt = int(^uint(0) >> 1)

func (f Feature) isGlobal() bool {
	return f.Start == FeatureGlobalStart && f.End == FeatureGlobalEnd
}

// ParseFeature parses a feature string into a Feature.
//
// Recognized forms, mirroring the common CSS-like convention:
//
//	kern         enable, value 1, whole buffer
//	+kern        enable
//	-kern        disable
//	kern=0       disable
//	kern=1       enable
//	aalt=2       select alternate number 2
//	kern[3:5]    enable for clusters [3,5)
//	kern[3:5]=0  disable for clusters [3,5)
//	kern[3:]     enable from cluster 3 to end
//	kern[:5]     enable up to cluster 5
//
// Unknown but well-formed tags are accepted; the map builder silently
// ignores tags a font does not carry.
func ParseFeature(s string) (Feature, error) {
	f := Feature{Value: 1, Start: FeatureGlobalStart, End: FeatureGlobalEnd}
	s = strings.TrimSpace(s)
	if s == "" {
		return f, errShaping("empty feature string")
	}
	switch s[0] {
	case '+':
		f.Value = 1
		s = s[1:]
	case '-':
		f.Value = 0
		s = s[1:]
	}
	// tag, up to 4 alphanumerics, padded with spaces
	n := 0
	for n < len(s) && n < 4 && isTagChar(s[n]) {
		n++
	}
	if n == 0 {
		return f, errShaping("feature string has no tag: " + strconv.Quote(s))
	}
	var tag [4]byte
	copy(tag[:], s[:n])
	for i := n; i < 4; i++ {
		tag[i] = ' '
	}
	f.Tag = ot.NewTag(tag[0], tag[1], tag[2], tag[3])
	s = s[n:]

	// optional cluster range [a:b]
	if strings.HasPrefix(s, "[") {
		close := strings.IndexByte(s, ']')
		if close < 0 {
			return f, errShaping("feature range not closed: " + strconv.Quote(s))
		}
		rng := s[1:close]
		s = s[close+1:]
		lo, hi, found := strings.Cut(rng, ":")
		if !found {
			// single index means [a:a+1]
			hi = ""
		}
		if lo != "" {
			v, err := strconv.Atoi(lo)
			if err != nil || v < 0 {
				return f, errShaping("invalid feature range start: " + strconv.Quote(lo))
			}
			f.Start = v
		}
		switch {
		case !found:
			f.End = f.Start + 1
		case hi != "":
			v, err := strconv.Atoi(hi)
			if err != nil || v < f.Start {
				return f, errShaping("invalid feature range end: " + strconv.Quote(hi))
			}
			f.End = v
		}
	}

	// optional value =N
	if strings.HasPrefix(s, "=") {
		v, err := strconv.ParseUint(s[1:], 10, 32)
		if err != nil {
			return f, errShaping("invalid feature value: " + strconv.Quote(s[1:]))
		}
		f.Value = uint32(v)
		s = ""
	}
	if s != "" {
		return f, errShaping("trailing garbage in feature string: " + strconv.Quote(s))
	}
	return f, nil
}

// ParseFeatures parses a comma-separated feature list, skipping empty
// entries. The first syntactically invalid entry aborts with an error.
func ParseFeatures(list string) ([]Feature, error) {
	var out []Feature
	for _, item := range strings.Split(list, ",") {
		if strings.TrimSpace(item) == "" {
			continue
		}
		f, err := ParseFeature(item)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func isTagChar(c byte) bool {
	return c >= '0' && c <= '9' || c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c == '_'
}

func isAlpha(c byte) bool { return c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' }
