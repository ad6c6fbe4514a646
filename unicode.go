package shaping

import (
	"unicode"

	ucd "github.com/go-text/typesetting/unicodedata"
)

// generalCategory mirrors the Unicode general category, packed into five
// bits so it fits the per-glyph character property word.
type generalCategory uint8

const (
	control generalCategory = iota // Cc
	format                         // Cf
	unassigned                     // Cn
	privateUse                     // Co
	surrogate                      // Cs
	lowercaseLetter                // Ll
	modifierLetter                 // Lm
	otherLetter                    // Lo
	titlecaseLetter                // Lt
	uppercaseLetter                // Lu
	spacingMark                    // Mc
	enclosingMark                  // Me
	nonSpacingMark                 // Mn
	decimalNumber                  // Nd
	letterNumber                   // Nl
	otherNumber                    // No
	connectPunctuation             // Pc
	dashPunctuation                // Pd
	closePunctuation               // Pe
	finalPunctuation               // Pf
	initialPunctuation             // Pi
	otherPunctuation               // Po
	openPunctuation                // Ps
	currencySymbol                 // Sc
	modifierSymbol                 // Sk
	mathSymbol                     // Sm
	otherSymbol                    // So
	lineSeparator                  // Zl
	paragraphSeparator             // Zp
	spaceSeparator                 // Zs
)

func (g generalCategory) isMark() bool {
	return g == spacingMark || g == enclosingMark || g == nonSpacingMark
}

func (g generalCategory) isLetter() bool {
	return g >= lowercaseLetter && g <= uppercaseLetter
}

var categoryTables = []struct {
	table *unicode.RangeTable
	cat   generalCategory
}{
	{unicode.Ll, lowercaseLetter},
	{unicode.Lu, uppercaseLetter},
	{unicode.Lo, otherLetter},
	{unicode.Mn, nonSpacingMark},
	{unicode.Mc, spacingMark},
	{unicode.Nd, decimalNumber},
	{unicode.Po, otherPunctuation},
	{unicode.Zs, spaceSeparator},
	{unicode.Lm, modifierLetter},
	{unicode.Lt, titlecaseLetter},
	{unicode.Me, enclosingMark},
	{unicode.Nl, letterNumber},
	{unicode.No, otherNumber},
	{unicode.Pc, connectPunctuation},
	{unicode.Pd, dashPunctuation},
	{unicode.Pe, closePunctuation},
	{unicode.Pf, finalPunctuation},
	{unicode.Pi, initialPunctuation},
	{unicode.Ps, openPunctuation},
	{unicode.Sc, currencySymbol},
	{unicode.Sk, modifierSymbol},
	{unicode.Sm, mathSymbol},
	{unicode.So, otherSymbol},
	{unicode.Zl, lineSeparator},
	{unicode.Zp, paragraphSeparator},
	{unicode.Cc, control},
	{unicode.Cf, format},
	{unicode.Co, privateUse},
	{unicode.Cs, surrogate},
}

// generalCategoryOf looks up the Unicode general category of r.
func generalCategoryOf(r rune) generalCategory {
	for _, e := range categoryTables {
		if unicode.Is(e.table, r) {
			return e.cat
		}
	}
	return unassigned
}

func combiningClass(r rune) uint8 { return ucd.LookupCombiningClass(r) }

func mirrorChar(r rune) rune {
	if m, ok := ucd.LookupMirrorChar(r); ok {
		return m
	}
	return r
}

func unicodeDecompose(ab rune) (a, b rune, ok bool) { return ucd.Decompose(ab) }

func unicodeCompose(a, b rune) (rune, bool) { return ucd.Compose(a, b) }

func isExtendedPictographic(r rune) bool {
	return unicode.Is(ucd.Extended_Pictographic, r)
}

// isDefaultIgnorable reports whether r is Default_Ignorable per the
// shaping-relevant subset (surrogates excluded, a few legacy Korean
// fillers included).
func isDefaultIgnorable(r rune) bool {
	is := func(lo, hi rune) bool { return lo <= r && r <= hi }
	switch r >> 16 {
	case 0:
		return r == 0x00AD || r == 0x034F || r == 0x061C ||
			is(0x115F, 0x1160) || is(0x17B4, 0x17B5) || is(0x180B, 0x180E) ||
			is(0x200B, 0x200F) || is(0x202A, 0x202E) || is(0x2060, 0x206F) ||
			r == 0x3164 || is(0xFE00, 0xFE0F) || r == 0xFEFF || r == 0xFFA0 ||
			is(0xFFF0, 0xFFF8)
	case 1:
		return is(0x1BCA0, 0x1BCA3) || is(0x1D173, 0x1D17A)
	case 0xE:
		return is(0xE0000, 0xE0FFF)
	}
	return false
}

// hiddenDefaultIgnorable marks the default-ignorables that remain
// visible to context matching: CGJ, Mongolian free variation selectors,
// and TAG characters.
func hiddenDefaultIgnorable(r rune) bool {
	return r == 0x034F || (0x180B <= r && r <= 0x180D) || r == 0x180F ||
		(0xE0020 <= r && r <= 0xE007F)
}

// uProps packs per-codepoint character properties. The low byte holds
// the general category plus ignorable/hidden/continuation bits; the
// high byte is category-dependent (modified combining class for marks,
// joiner kind for Cf, space fallback kind for Zs).
type uProps uint16

const (
	upIgnorable uProps = 1 << (5 + iota)
	upHidden
	upContinuation

	upCfZwj
	upCfZwnj

	upGenCatMask uProps = 1<<5 - 1
)

func (p uProps) generalCategory() generalCategory {
	return generalCategory(p & upGenCatMask)
}

// space fallback kinds, stored in the high byte of uProps for Zs.
const (
	notSpace      = 0
	spaceEM       = 1
	spaceEM2      = 2
	spaceEM3      = 3
	spaceEM4      = 4
	spaceEM5      = 5
	spaceEM6      = 6
	spaceEM16     = 16
	space4EM18    = 17 // 4/18 em
	space         = 32
	spaceFigure   = 33
	spacePunct    = 34
	spaceNarrow   = 35
)

// fallbackSpaceType classifies Unicode space codepoints whose width may
// need to be synthesized when the font has no glyph for them.
func fallbackSpaceType(r rune) uint8 {
	switch r {
	case 0x0020, 0x00A0:
		return space
	case 0x2000, 0x2002: // EN QUAD, EN SPACE
		return spaceEM2
	case 0x2001, 0x2003, 0x3000: // EM QUAD, EM SPACE, IDEOGRAPHIC SPACE
		return spaceEM
	case 0x2004:
		return spaceEM3
	case 0x2005:
		return spaceEM4
	case 0x2006:
		return spaceEM6
	case 0x2007:
		return spaceFigure
	case 0x2008:
		return spacePunct
	case 0x2009:
		return spaceEM5
	case 0x200A:
		return spaceEM16
	case 0x202F:
		return spaceNarrow
	case 0x205F:
		return space4EM18
	}
	return notSpace
}

// computeUProps derives the packed character properties of r and the
// buffer scratch flags its presence implies.
func computeUProps(r rune) (uProps, bufferScratchFlags) {
	gc := generalCategoryOf(r)
	props := uProps(gc)
	var flags bufferScratchFlags
	if r >= 0x80 {
		flags |= bsfHasNonASCII
	}

	if isDefaultIgnorable(r) {
		flags |= bsfHasDefaultIgnorables
		props |= upIgnorable
		if hiddenDefaultIgnorable(r) {
			props |= upHidden
		}
		switch r {
		case 0x200C:
			props |= upCfZwnj
		case 0x200D:
			props |= upCfZwj
		case 0x034F:
			flags |= bsfHasCGJ
		}
	}

	if gc.isMark() {
		props |= upContinuation
		props |= uProps(modifiedCombiningClass(r)) << 8
	} else if isExtendedPictographic(r) ||
		(0x1F3FB <= r && r <= 0x1F3FF) || // emoji modifiers
		(0xE0020 <= r && r <= 0xE007F) { // tag characters
		props |= upContinuation
	}
	return props, flags
}

// modifiedCombiningClass returns the combining class with the
// reorderings shaping relies on: Hebrew points, Arabic shadda-first,
// Telugu length marks, Thai sara u, and Tibetan vowel swaps.
func modifiedCombiningClass(r rune) uint8 {
	switch r {
	case 0x1A60: // Tai Tham SAKOT, after tone marks
		return 254
	case 0x0FC6: // Tibetan PADMA, after vowel marks
		return 254
	case 0x0F39: // Tibetan TSA-PHRU, before 0x0F74
		return 127
	}
	return modifiedCCC[combiningClass(r)]
}

// modifiedCCC remaps canonical combining classes. Identity except for
// the Hebrew, Arabic, Telugu, Thai, Lao and Tibetan blocks.
var modifiedCCC = [256]uint8{
	0, 1, 2, 3, 4, 5, 6, 7, 8, 9,
	// Hebrew
	22, 15, 16, 17, 23, 18, 19, 20, 21, 14,
	24, 12, 25, 13, 10, 11, 26,
	// Arabic: shadda (ccc 33) sorts first
	28, 29, 30, 31, 32, 33, 27, 34, 35,
	// Syriac
	36,
	37, 38, 39, 40, 41, 42, 43, 44, 45, 46, 47, 48, 49,
	50, 51, 52, 53, 54, 55, 56, 57, 58, 59,
	60, 61, 62, 63, 64, 65, 66, 67, 68, 69,
	70, 71, 72, 73, 74, 75, 76, 77, 78, 79,
	80, 81, 82, 83,
	4, // 84: Telugu length mark
	85, 86, 87, 88, 89, 90,
	5, // 91: Telugu AI length mark
	92, 93, 94, 95, 96, 97, 98, 99, 100, 101, 102,
	3, // 103: Thai SARA U / SARA UU
	104, 105, 106,
	107,
	108, 109, 110, 111, 112, 113, 114, 115, 116, 117,
	118, // Lao sign U / UU
	119, 120, 121,
	122,
	123, 124, 125, 126, 127, 128,
	129,
	132, // 130: Tibetan sign I, swapped with 132
	131,
	131, // 132: Tibetan sign U
	133, 134, 135, 136, 137, 138, 139,
	140, 141, 142, 143, 144, 145, 146, 147, 148, 149,
	150, 151, 152, 153, 154, 155, 156, 157, 158, 159,
	160, 161, 162, 163, 164, 165, 166, 167, 168, 169,
	170, 171, 172, 173, 174, 175, 176, 177, 178, 179,
	180, 181, 182, 183, 184, 185, 186, 187, 188, 189,
	190, 191, 192, 193, 194, 195, 196, 197, 198, 199,
	200, 201, 202, 203, 204, 205, 206, 207, 208, 209,
	210, 211, 212, 213, 214, 215, 216, 217, 218, 219,
	220, 221, 222, 223, 224, 225, 226, 227, 228, 229,
	230, 231, 232, 233, 234, 235, 236, 237, 238, 239,
	240, 241, 242, 243, 244, 245, 246, 247, 248, 249,
	250, 251, 252, 253, 254, 255,
}
