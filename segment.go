package shaping

import (
	"github.com/go-text/typesetting/language"
	xlanguage "golang.org/x/text/language"
	"golang.org/x/text/unicode/bidi"
)

// Direction is the text direction of a shaped run.
type Direction uint8

const (
	// LeftToRight is horizontal text laid out left to right.
	LeftToRight Direction = 1 + iota
	// RightToLeft is horizontal text laid out right to left.
	RightToLeft
	// TopToBottom is vertical text laid out top to bottom.
	TopToBottom
	// BottomToTop is vertical text laid out bottom to top.
	BottomToTop
)

func (d Direction) String() string {
	switch d {
	case LeftToRight:
		return "ltr"
	case RightToLeft:
		return "rtl"
	case TopToBottom:
		return "ttb"
	case BottomToTop:
		return "btt"
	}
	return "invalid"
}

func (d Direction) isValid() bool      { return d >= LeftToRight && d <= BottomToTop }
func (d Direction) isHorizontal() bool { return d == LeftToRight || d == RightToLeft }
func (d Direction) isVertical() bool   { return d == TopToBottom || d == BottomToTop }
func (d Direction) isForward() bool    { return d == LeftToRight || d == TopToBottom }
func (d Direction) isBackward() bool   { return d == RightToLeft || d == BottomToTop }

// Reverse returns the direction with the opposite orientation on the
// same axis.
func (d Direction) Reverse() Direction {
	switch d {
	case LeftToRight:
		return RightToLeft
	case RightToLeft:
		return LeftToRight
	case TopToBottom:
		return BottomToTop
	case BottomToTop:
		return TopToBottom
	}
	return d
}

// SegmentProperties carries the segment metadata a shaping call depends
// on. The caller supplies a resolved directional run; this package does
// not do BiDi resolution.
type SegmentProperties struct {
	Direction Direction
	Script    language.Script   // ISO 15924, e.g. language.Arabic
	Language  language.Language // BCP 47, lowercased
}

// horizontalDirectionForScript returns the dominant horizontal direction
// of script from a fixed list of right-to-left scripts. Scripts this
// package has no opinion on shape LTR.
func horizontalDirectionForScript(script language.Script) Direction {
	switch script {
	case language.Arabic, language.Hebrew, language.Syriac, language.Thaana,
		language.Nko, language.Samaritan, language.Mandaic, language.Adlam,
		language.Mende_Kikakui, language.Hanifi_Rohingya, language.Old_Hungarian,
		language.Old_Turkic, language.Yezidi:
		return RightToLeft
	}
	return LeftToRight
}

// directionFromBidiClass maps the bidi class of a codepoint to a run
// direction, or 0 when the codepoint is neutral.
func directionFromBidiClass(r rune) Direction {
	props, _ := bidi.LookupRune(r)
	switch props.Class() {
	case bidi.L:
		return LeftToRight
	case bidi.R, bidi.AL:
		return RightToLeft
	}
	return 0
}

// languageFromTag lowers an x/text language tag to the BCP-47 string
// form used for OpenType language-system lookup.
func languageFromTag(tag xlanguage.Tag) language.Language {
	if tag.IsRoot() {
		return ""
	}
	return language.NewLanguage(tag.String())
}

// DefaultLanguage returns the default language for shaping, derived
// from the process locale when parseable, else "en".
func DefaultLanguage() language.Language {
	return language.DefaultLanguage()
}
