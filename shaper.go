package shaping

import (
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
)

// zeroWidthMarksMode controls when a script shaper zeroes mark
// advances.
type zeroWidthMarksMode uint8

const (
	zeroWidthMarksNone zeroWidthMarksMode = iota
	zeroWidthMarksByGdefEarly
	zeroWidthMarksByGdefLate
)

// normalizationMode is a shaper's preference for the normalizer.
type normalizationMode uint8

const (
	nmAuto normalizationMode = iota
	nmNone
	nmDecomposed
	nmComposedDiacritics
	nmComposedDiacriticsNoShortCircuit
)

// scriptShaper is the per-script shaping engine contract. The pipeline
// calls the hooks in a fixed order: collectFeatures and
// overrideFeatures at plan-build time, then per shaping call
// preprocessText, setupMasks (with decompose/compose/reorderMarks
// feeding the normalizer in between), and postprocessGlyphs at the
// end.
type scriptShaper interface {
	name() string

	collectFeatures(plan *shapePlanner)
	overrideFeatures(plan *shapePlanner)
	dataCreate(plan *shapePlan)

	preprocessText(plan *shapePlan, buffer *Buffer, font *Font)
	postprocessGlyphs(plan *shapePlan, buffer *Buffer, font *Font)

	normalizationPreference() normalizationMode
	decompose(c *normalizeContext, ab rune) (a, b rune, ok bool)
	compose(c *normalizeContext, a, b rune) (ab rune, ok bool)

	setupMasks(plan *shapePlan, buffer *Buffer, font *Font)
	reorderMarks(plan *shapePlan, buffer *Buffer, start, end int)

	// gposTag, when nonzero, must match the chosen GPOS script for GPOS
	// to be applied at all.
	gposTag() tables.Tag

	// marksBehavior returns the zero-width-marks policy and whether
	// fallback mark positioning applies for this script.
	marksBehavior() (zeroWidthMarksMode, bool)
}

// shaperDefaults provides the do-nothing hook set shapers embed.
type shaperDefaults struct{}

func (shaperDefaults) collectFeatures(*shapePlanner)                {}
func (shaperDefaults) overrideFeatures(*shapePlanner)               {}
func (shaperDefaults) dataCreate(*shapePlan)                        {}
func (shaperDefaults) preprocessText(*shapePlan, *Buffer, *Font)    {}
func (shaperDefaults) postprocessGlyphs(*shapePlan, *Buffer, *Font) {}

func (shaperDefaults) normalizationPreference() normalizationMode { return nmAuto }

func (shaperDefaults) decompose(_ *normalizeContext, ab rune) (rune, rune, bool) {
	return unicodeDecompose(ab)
}

func (shaperDefaults) compose(_ *normalizeContext, a, b rune) (rune, bool) {
	return unicodeCompose(a, b)
}

func (shaperDefaults) setupMasks(*shapePlan, *Buffer, *Font)          {}
func (shaperDefaults) reorderMarks(*shapePlan, *Buffer, int, int)     {}
func (shaperDefaults) gposTag() tables.Tag                            { return 0 }

// shaperDefault is the engine for scripts without special shaping
// rules. The dumb variant (used when morx drives substitution) also
// suppresses GDEF mark zeroing adjustments.
type shaperDefault struct {
	shaperDefaults
	// disable the assumptions of OT shaping when AAT tables drive
	dumb bool
}

func (shaperDefault) name() string { return "default" }

func (s shaperDefault) marksBehavior() (zeroWidthMarksMode, bool) {
	if s.dumb {
		return zeroWidthMarksNone, false
	}
	return zeroWidthMarksByGdefLate, true
}

// selectScriptShaper picks the shaping engine for the segment. The
// decision mirrors the script system the text actually uses, with the
// universal engine as the net for the remaining complex scripts.
func (planner *shapePlanner) selectScriptShaper() scriptShaper {
	props := planner.props
	switch props.Script {
	case language.Arabic, language.Syriac:
		// Arabic-like scripts in vertical context go through the
		// default shaper
		if props.Direction.isVertical() {
			return shaperDefault{}
		}
		return &shaperArabic{}

	case language.Mongolian, language.Nko, language.Phags_Pa, language.Mandaic,
		language.Manichaean, language.Psalter_Pahlavi, language.Adlam,
		language.Hanifi_Rohingya, language.Sogdian, language.Old_Uyghur:
		// scripts using the Arabic joining machinery
		if planner.map_.chosenScript[0] == tagDefaultScript {
			return shaperDefault{}
		}
		return &shaperArabic{}

	case language.Thai, language.Lao:
		return shaperThai{}

	case language.Hangul:
		return &shaperHangul{}

	case language.Hebrew:
		return shaperHebrew{}

	case language.Bengali, language.Devanagari, language.Gujarati, language.Gurmukhi,
		language.Kannada, language.Malayalam, language.Oriya, language.Tamil,
		language.Telugu:
		// If the font has an old-spec Indic table followed for the
		// script, or no OT script at all, use the Indic engine;
		// new-spec ('…2') tables also route here, the engine adapts.
		return &shaperIndic{}

	case language.Khmer:
		return &shaperKhmer{}

	case language.Myanmar:
		// only fonts following the 2012 'mym2' spec get the Myanmar
		// engine; older fonts shape generically for compatibility
		if planner.map_.chosenScript[0] == otTag('m', 'y', 'm', '2') {
			return &shaperMyanmar{}
		}
		return shaperDefault{}

	default:
		// Scripts the Universal Shaping Engine covers; everything else
		// shapes with the default engine.
		if useScriptCovered(props.Script) && props.Direction.isHorizontal() &&
			planner.map_.chosenScript[0] != tagDefaultScript {
			return &shaperUSE{}
		}
		return shaperDefault{}
	}
}

func otTag(a, b, c, d byte) tables.Tag {
	return tables.Tag(uint32(a)<<24 | uint32(b)<<16 | uint32(c)<<8 | uint32(d))
}
