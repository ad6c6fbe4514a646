package shaping

import "github.com/go-text/typesetting/font/opentype/tables"

// The Hebrew shaper only customizes composition: when the font has no
// GPOS mark positioning, composing into presentation forms gives the
// dagesh and point combinations a chance to render.

type shaperHebrew struct {
	shaperDefaults
}

func (shaperHebrew) name() string { return "hebrew" }

func (shaperHebrew) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksByGdefLate, true
}

// gposTag: the 2005 MS Hebrew fonts expect the 'hebr' GPOS table only.
func (shaperHebrew) gposTag() tables.Tag { return otTag('h', 'e', 'b', 'r') }

func (shaperHebrew) compose(c *normalizeContext, a, b rune) (rune, bool) {
	if ab, ok := unicodeCompose(a, b); ok {
		return ab, true
	}
	// Hebrew presentation forms exist only in the FB block and are
	// excluded from canonical composition. Use them when the font
	// cannot place marks itself.
	if c.plan.hasGposMark {
		return 0, false
	}
	switch b {
	case 0x05B4: // HIRIQ
		if a == 0x05D9 { // YOD
			return 0xFB1D, true
		}
	case 0x05B7: // PATAH
		switch a {
		case 0x05F2: // YIDDISH YOD YOD
			return 0xFB1F, true
		case 0x05D0: // ALEF
			return 0xFB2E, true
		}
	case 0x05B8: // QAMATS
		if a == 0x05D0 {
			return 0xFB2F, true
		}
	case 0x05B9: // HOLAM
		if a == 0x05D5 { // VAV
			return 0xFB4B, true
		}
	case 0x05BC: // DAGESH
		if 0x05D0 <= a && a <= 0x05EA {
			form := rune(0xFB30 + (a - 0x05D0))
			// the FB block has holes where no dagesh form exists
			switch a {
			case 0x05D7, 0x05DD, 0x05DF, 0x05E2, 0x05E5:
				return 0, false
			}
			return form, true
		}
		if a == 0xFB2A { // SHIN WITH SHIN DOT
			return 0xFB2C, true
		}
		if a == 0xFB2B { // SHIN WITH SIN DOT
			return 0xFB2D, true
		}
	case 0x05BF: // RAFE
		switch a {
		case 0x05D1: // BET
			return 0xFB4C, true
		case 0x05DB: // KAF
			return 0xFB4D, true
		case 0x05E4: // PE
			return 0xFB4E, true
		}
	case 0x05C1: // SHIN DOT
		if a == 0x05E9 {
			return 0xFB2A, true
		}
		if a == 0xFB49 { // SHIN WITH DAGESH
			return 0xFB2C, true
		}
	case 0x05C2: // SIN DOT
		if a == 0x05E9 {
			return 0xFB2B, true
		}
		if a == 0xFB49 {
			return 0xFB2D, true
		}
	}
	return 0, false
}
