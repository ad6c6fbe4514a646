package shaping

import (
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
	ucd "github.com/go-text/typesetting/unicodedata"
)

// The Arabic shaper: a joining-state machine assigns one of the
// positional forms to every glyph, the corresponding features are
// masked on, and a fallback pass synthesizes presentation forms when
// the font has no positional lookups. Also serves Syriac (with the
// ALAPH/DALATH RISH special states), Mongolian, N'Ko and friends.

// Joining types, the columns of the state table.
const (
	joiningTypeU = iota
	joiningTypeL
	joiningTypeR
	joiningTypeD
	joiningGroupAlaph
	joiningGroupDalathRish
	numJoiningTypes

	joiningTypeT
	joiningTypeC
)

// Positional-form actions, ordered like arabicFeatures.
const (
	arabISOL = iota
	arabFINA
	arabFIN2
	arabFIN3
	arabMEDI
	arabMED2
	arabINIT
	arabNone
	arabNumFeatures = arabNone

	// stretching actions for postprocessing
	arabStchFixed
	arabStchRepeating
)

var arabicFeatures = [arabNumFeatures]tables.Tag{
	otTag('i', 's', 'o', 'l'),
	otTag('f', 'i', 'n', 'a'),
	otTag('f', 'i', 'n', '2'),
	otTag('f', 'i', 'n', '3'),
	otTag('m', 'e', 'd', 'i'),
	otTag('m', 'e', 'd', '2'),
	otTag('i', 'n', 'i', 't'),
}

type arabicStateEntry struct {
	prevAction uint8
	currAction uint8
	nextState  uint8
}

// The joining state machine. States track what the previous
// non-transparent character is willing to do; columns are joining
// types.
var arabicStateTable = [7][numJoiningTypes]arabicStateEntry{
	// state 0: prev was U, not willing to join
	{
		{arabNone, arabNone, 0},
		{arabNone, arabISOL, 2},
		{arabNone, arabISOL, 1},
		{arabNone, arabISOL, 2},
		{arabNone, arabISOL, 1},
		{arabNone, arabISOL, 6},
	},
	// state 1: prev was R or ISOL ALAPH, not willing to join
	{
		{arabNone, arabNone, 0},
		{arabNone, arabISOL, 2},
		{arabNone, arabISOL, 1},
		{arabNone, arabISOL, 2},
		{arabNone, arabFIN2, 5},
		{arabNone, arabISOL, 6},
	},
	// state 2: prev was D or L in ISOL form, willing to join
	{
		{arabNone, arabNone, 0},
		{arabNone, arabISOL, 2},
		{arabINIT, arabFINA, 1},
		{arabINIT, arabFINA, 3},
		{arabINIT, arabFINA, 4},
		{arabINIT, arabFINA, 6},
	},
	// state 3: prev was D in FINA form, willing to join
	{
		{arabNone, arabNone, 0},
		{arabNone, arabISOL, 2},
		{arabMEDI, arabFINA, 1},
		{arabMEDI, arabFINA, 3},
		{arabMEDI, arabFINA, 4},
		{arabMEDI, arabFINA, 6},
	},
	// state 4: prev was FINA ALAPH, not willing to join
	{
		{arabNone, arabNone, 0},
		{arabNone, arabISOL, 2},
		{arabMED2, arabISOL, 1},
		{arabMED2, arabISOL, 2},
		{arabMED2, arabFIN2, 5},
		{arabMED2, arabISOL, 6},
	},
	// state 5: prev was FIN2/FIN3 ALAPH, not willing to join
	{
		{arabNone, arabNone, 0},
		{arabNone, arabISOL, 2},
		{arabISOL, arabISOL, 1},
		{arabISOL, arabISOL, 2},
		{arabISOL, arabFIN2, 5},
		{arabISOL, arabISOL, 6},
	},
	// state 6: prev was DALATH RISH, not willing to join
	{
		{arabNone, arabNone, 0},
		{arabNone, arabISOL, 2},
		{arabNone, arabISOL, 1},
		{arabNone, arabISOL, 2},
		{arabNone, arabFIN3, 5},
		{arabNone, arabISOL, 6},
	},
}

// joiningTypeOf resolves the Unicode joining type of u, treating
// unlisted marks and format characters as transparent.
func joiningTypeOf(u rune, gc generalCategory) int {
	if j, ok := ucd.ArabicJoinings[u]; ok {
		switch byte(j) {
		case 'U':
			return joiningTypeU
		case 'L':
			return joiningTypeL
		case 'R':
			return joiningTypeR
		case 'D':
			return joiningTypeD
		case 'a':
			return joiningGroupAlaph
		case 'd':
			return joiningGroupDalathRish
		case 'T':
			return joiningTypeT
		case 'C':
			return joiningTypeC
		}
	}
	if gc == nonSpacingMark || gc == enclosingMark || gc == format {
		return joiningTypeT
	}
	return joiningTypeU
}

func joiningTypeColumn(jt int) int {
	if jt == joiningTypeC {
		return joiningTypeD
	}
	if jt < numJoiningTypes {
		return jt
	}
	return joiningTypeU
}

// arabicPlan is the per-plan shaper data.
type arabicPlan struct {
	maskArray  [arabNumFeatures]GlyphMask
	fallback   [arabNumFeatures]bool
	hasStch    bool
	doFallback bool
	isArabic   bool
}

type shaperArabic struct {
	shaperDefaults
}

func (*shaperArabic) name() string { return "arabic" }

func (*shaperArabic) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksByGdefLate, true
}

func (*shaperArabic) normalizationPreference() normalizationMode { return nmAuto }

func (*shaperArabic) gposTag() tables.Tag { return 0 }

func (*shaperArabic) collectFeatures(planner *shapePlanner) {
	map_ := &planner.map_

	// 'stch' runs first; its results are recorded before anything can
	// move glyphs around
	map_.enableFeature(otTag('s', 't', 'c', 'h'))
	map_.addGSUBPause(recordStch)

	map_.enableFeatureExt(otTag('c', 'c', 'm', 'p'), ffManualZWJ, 1)
	map_.enableFeatureExt(otTag('l', 'o', 'c', 'l'), ffManualZWJ, 1)
	map_.addGSUBPause(nil)

	for _, tag := range arabicFeatures {
		hasFallback := ffNone
		if planner.props.Script == language.Arabic {
			hasFallback = ffHasFallback
		}
		map_.addFeatureExt(tag, ffManualZWJ|hasFallback, 1)
		map_.addGSUBPause(nil)
	}

	// 'rlig' carries a fallback too: presentation forms B hold the
	// lam-alef ligatures
	map_.addFeatureExt(otTag('r', 'l', 'i', 'g'), ffGlobal|ffManualZWJ|ffHasFallback, 1)
	map_.addGSUBPause(arabicFallbackShape)

	// no pause after rclt: it must be together with calt
	map_.addFeatureExt(otTag('r', 'c', 'l', 't'), ffGlobal|ffManualZWJ, 1)
	map_.addFeatureExt(otTag('c', 'a', 'l', 't'), ffGlobal|ffManualZWJ, 1)
	map_.addGSUBPause(nil)

	map_.enableFeatureExt(otTag('m', 's', 'e', 't'), ffNone, 1)
}

func (sh *shaperArabic) dataCreate(plan *shapePlan) {
	data := &arabicPlan{}
	data.isArabic = plan.props.Script == language.Arabic
	data.doFallback = data.isArabic
	for i, tag := range arabicFeatures {
		data.maskArray[i] = plan.map_.getMask1(tag)
		data.fallback[i] = data.isArabic && plan.map_.needsFallback(tag)
		data.doFallback = data.doFallback &&
			(data.fallback[i] || !plan.map_.foundScript[0])
	}
	data.doFallback = data.doFallback || (data.isArabic && plan.map_.needsFallback(otTag('r', 'l', 'i', 'g')))
	data.hasStch = plan.map_.getMask1(otTag('s', 't', 'c', 'h')) != 0
	plan.shaperData = data
}

func arabicPlanData(plan *shapePlan) *arabicPlan {
	data, _ := plan.shaperData.(*arabicPlan)
	return data
}

// arabicJoining runs the state machine and ORs the positional-form
// masks into the buffer.
func arabicJoining(plan *shapePlan, buffer *Buffer) {
	data := arabicPlanData(plan)
	if data == nil {
		return
	}
	info := buffer.Info
	prev, state := -1, uint8(0)

	// the Pre-context (start of text) starts the machine in state 0

	for i := 0; i < len(info); i++ {
		thisType := joiningTypeOf(info[i].codepoint, info[i].generalCategory())
		if thisType == joiningTypeT {
			info[i].complexAux = arabNone
			continue
		}
		entry := &arabicStateTable[state][joiningTypeColumn(thisType)]
		if entry.prevAction != arabNone && prev != -1 {
			info[prev].complexAux = entry.prevAction
			buffer.safeToInsertTatweel(prev, i+1)
		} else {
			if prev == -1 {
				buffer.safeToInsertTatweel(0, i+1)
			} else if thisType >= joiningTypeR || info[prev].complexAux == arabISOL {
				buffer.safeToInsertTatweel(prev+1, i+1)
			}
		}
		info[i].complexAux = entry.currAction
		prev = i
		state = entry.nextState
	}
}

func (sh *shaperArabic) setupMasks(plan *shapePlan, buffer *Buffer, font *Font) {
	arabicJoining(plan, buffer)
	data := arabicPlanData(plan)
	if data == nil {
		return
	}
	for i := range buffer.Info {
		action := buffer.Info[i].complexAux
		if action < arabNumFeatures {
			buffer.Info[i].Mask |= data.maskArray[action]
		}
	}
}

// reorderMarks moves modifier combining marks (the U+0654 hamza group)
// to the front of the mark sequence and renumbers their class so the
// order survives later sorting. Classes 22 and 26 sort below every
// Arabic mark class and fold back to 220/230 in fallback positioning.
func (sh *shaperArabic) reorderMarks(plan *shapePlan, buffer *Buffer, start, end int) {
	info := buffer.Info
	i := start
	for _, cc := range [2]uint8{220, 230} {
		for i < end && infoCC(&info[i]) < cc {
			i++
		}
		if i == end {
			break
		}
		if infoCC(&info[i]) > cc {
			continue
		}
		j := i
		for j < end && infoCC(&info[j]) == cc && isModifierCombiningMark(info[j].codepoint) {
			j++
		}
		if i == j {
			continue
		}
		// shift the modifier marks to the sequence start
		tmp := make([]GlyphInfo, j-i)
		copy(tmp, info[i:j])
		copy(info[start+(j-i):], info[start:i])
		copy(info[start:], tmp)

		newCC := uint8(26)
		if cc == 220 {
			newCC = 22
		}
		for m := start; m < start+(j-i); m++ {
			info[m].setModifiedCombiningClass(newCC)
		}
		start += j - i
		i = j
	}
}

// isModifierCombiningMark lists the Arabic marks that logically modify
// the mark they follow, not the base.
func isModifierCombiningMark(u rune) bool {
	switch u {
	case 0x0654, 0x0655, 0x0658, 0x06DC, 0x06E3, 0x06E7, 0x06E8, 0x08CA, 0x08CB,
		0x08CD, 0x08CE, 0x08CF, 0x08D3, 0x08F3:
		return true
	}
	return false
}

// --- fallback presentation forms ---------------------------------------

// Presentation Forms-B layout: the four contextual forms of every core
// Arabic letter, plus the lam-alef ligatures.
type arabicForms struct {
	isol, fina, init, medi rune // 0 when the letter has no such form
}

var arabicPresentationForms = map[rune]arabicForms{
	0x0621: {0xFE80, 0, 0, 0},           // HAMZA
	0x0622: {0xFE81, 0xFE82, 0, 0},      // ALEF WITH MADDA
	0x0623: {0xFE83, 0xFE84, 0, 0},      // ALEF WITH HAMZA ABOVE
	0x0624: {0xFE85, 0xFE86, 0, 0},      // WAW WITH HAMZA
	0x0625: {0xFE87, 0xFE88, 0, 0},      // ALEF WITH HAMZA BELOW
	0x0626: {0xFE89, 0xFE8A, 0xFE8B, 0xFE8C}, // YEH WITH HAMZA
	0x0627: {0xFE8D, 0xFE8E, 0, 0},      // ALEF
	0x0628: {0xFE8F, 0xFE90, 0xFE91, 0xFE92}, // BEH
	0x0629: {0xFE93, 0xFE94, 0, 0},      // TEH MARBUTA
	0x062A: {0xFE95, 0xFE96, 0xFE97, 0xFE98}, // TEH
	0x062B: {0xFE99, 0xFE9A, 0xFE9B, 0xFE9C}, // THEH
	0x062C: {0xFE9D, 0xFE9E, 0xFE9F, 0xFEA0}, // JEEM
	0x062D: {0xFEA1, 0xFEA2, 0xFEA3, 0xFEA4}, // HAH
	0x062E: {0xFEA5, 0xFEA6, 0xFEA7, 0xFEA8}, // KHAH
	0x062F: {0xFEA9, 0xFEAA, 0, 0},      // DAL
	0x0630: {0xFEAB, 0xFEAC, 0, 0},      // THAL
	0x0631: {0xFEAD, 0xFEAE, 0, 0},      // REH
	0x0632: {0xFEAF, 0xFEB0, 0, 0},      // ZAIN
	0x0633: {0xFEB1, 0xFEB2, 0xFEB3, 0xFEB4}, // SEEN
	0x0634: {0xFEB5, 0xFEB6, 0xFEB7, 0xFEB8}, // SHEEN
	0x0635: {0xFEB9, 0xFEBA, 0xFEBB, 0xFEBC}, // SAD
	0x0636: {0xFEBD, 0xFEBE, 0xFEBF, 0xFEC0}, // DAD
	0x0637: {0xFEC1, 0xFEC2, 0xFEC3, 0xFEC4}, // TAH
	0x0638: {0xFEC5, 0xFEC6, 0xFEC7, 0xFEC8}, // ZAH
	0x0639: {0xFEC9, 0xFECA, 0xFECB, 0xFECC}, // AIN
	0x063A: {0xFECD, 0xFECE, 0xFECF, 0xFED0}, // GHAIN
	0x0640: {0x0640, 0x0640, 0x0640, 0x0640}, // TATWEEL joins everywhere
	0x0641: {0xFED1, 0xFED2, 0xFED3, 0xFED4}, // FEH
	0x0642: {0xFED5, 0xFED6, 0xFED7, 0xFED8}, // QAF
	0x0643: {0xFED9, 0xFEDA, 0xFEDB, 0xFEDC}, // KAF
	0x0644: {0xFEDD, 0xFEDE, 0xFEDF, 0xFEE0}, // LAM
	0x0645: {0xFEE1, 0xFEE2, 0xFEE3, 0xFEE4}, // MEEM
	0x0646: {0xFEE5, 0xFEE6, 0xFEE7, 0xFEE8}, // NOON
	0x0647: {0xFEE9, 0xFEEA, 0xFEEB, 0xFEEC}, // HEH
	0x0648: {0xFEED, 0xFEEE, 0, 0},      // WAW
	0x0649: {0xFEEF, 0xFEF0, 0, 0},      // ALEF MAKSURA
	0x064A: {0xFEF1, 0xFEF2, 0xFEF3, 0xFEF4}, // YEH
}

// lam-alef ligature forms: alef variant -> (isolated, final).
var arabicLamAlef = map[rune][2]rune{
	0x0622: {0xFEF5, 0xFEF6},
	0x0623: {0xFEF7, 0xFEF8},
	0x0625: {0xFEF9, 0xFEFA},
	0x0627: {0xFEFB, 0xFEFC},
}

// arabicFallbackShape substitutes presentation forms when the font
// lacks positional features but maps the Unicode presentation-forms
// block.
func arabicFallbackShape(plan *shapePlan, font *Font, buffer *Buffer) bool {
	data := arabicPlanData(plan)
	if data == nil || !data.doFallback {
		return false
	}
	changed := false
	info := buffer.Info
	for i := range info {
		forms, ok := arabicPresentationForms[info[i].codepoint]
		if !ok {
			continue
		}
		var form rune
		switch info[i].complexAux {
		case arabISOL:
			form = forms.isol
		case arabFINA, arabFIN2, arabFIN3:
			form = forms.fina
		case arabINIT:
			form = forms.init
		case arabMEDI:
			form = forms.medi
		}
		if form == 0 {
			continue
		}
		glyph, has := font.nominalGlyph(form)
		if !has {
			continue
		}
		info[i].Glyph = glyph
		changed = true
	}

	// lam-alef ligature: LAM in INIT/MEDI followed by a shaped ALEF
	for i := 0; i+1 < len(buffer.Info); i++ {
		if buffer.Info[i].codepoint != 0x0644 {
			continue
		}
		lig, ok := arabicLamAlef[buffer.Info[i+1].codepoint]
		if !ok {
			continue
		}
		form := lig[0]
		if buffer.Info[i].complexAux == arabMEDI {
			form = lig[1]
		}
		glyph, has := font.nominalGlyph(form)
		if !has {
			continue
		}
		buffer.mergeClusters(i, i+2)
		buffer.unsafeToBreak(i, i+2)
		buffer.Info[i].Glyph = glyph
		buffer.Info[i].setLigPropsForLigature(buffer.allocateLigID(), 2)
		// drop the alef slot
		copy(buffer.Info[i+1:], buffer.Info[i+2:])
		buffer.Info = buffer.Info[:len(buffer.Info)-1]
		changed = true
	}
	return changed
}

// --- stretching ('stch') ------------------------------------------------

// recordStch flags glyphs the 'stch' feature selected so the
// postprocess pass can stretch Syriac abbreviation marks.
func recordStch(plan *shapePlan, font *Font, buffer *Buffer) bool {
	data := arabicPlanData(plan)
	if data == nil || !data.hasStch {
		return false
	}
	stchMask := plan.map_.getMask1(otTag('s', 't', 'c', 'h'))
	for i := range buffer.Info {
		if buffer.Info[i].Mask&stchMask != 0 && buffer.Info[i].substituted() {
			if buffer.Info[i].isMultipliedRepeat() {
				buffer.Info[i].complexAux = arabStchRepeating
			} else {
				buffer.Info[i].complexAux = arabStchFixed
			}
			buffer.scratchFlags |= bsfShaper0
		}
	}
	return false
}

// isMultipliedRepeat marks glyphs produced by a multiple substitution
// as the repeating tile of a stretch sequence.
func (info *GlyphInfo) isMultipliedRepeat() bool {
	return info.multiplied() && info.ligComp() > 0
}

func (sh *shaperArabic) postprocessGlyphs(plan *shapePlan, buffer *Buffer, font *Font) {
	applyStch(buffer, font)
}

// applyStch stretches marked tile sequences towards the width of the
// surrounding context (Syriac abbreviation mark). It makes one pass from
// the end of the buffer and widens each repeating tile's advance in
// place. No tile copies are inserted, so a sequence covers its context
// exactly only when a single run of the repeating tiles fits (nCopies 0).
func applyStch(buffer *Buffer, font *Font) {
	if buffer.scratchFlags&bsfShaper0 == 0 {
		return
	}
	info := buffer.Info
	pos := buffer.Pos

	// process in visual order, right to left in logical order
	for end := len(info); end > 0; {
		if info[end-1].complexAux != arabStchFixed && info[end-1].complexAux != arabStchRepeating {
			end--
			continue
		}
		// the stretch sequence is [start, end)
		start := end
		var wFixed, wRepeating Position
		nFixed, nRepeating := 0, 0
		for start > 0 && (info[start-1].complexAux == arabStchFixed ||
			info[start-1].complexAux == arabStchRepeating) {
			start--
			width := font.GlyphHAdvance(info[start].Glyph)
			if info[start].complexAux == arabStchFixed {
				wFixed += width
				nFixed++
			} else {
				wRepeating += width
				nRepeating++
			}
		}
		// context width: the glyph before the sequence supplies the
		// space to fill
		var wTotal Position
		context := start
		for context > 0 && infoCC(&info[context-1]) != 0 {
			context--
			wTotal += pos[context].XAdvance
		}
		if context > 0 {
			wTotal += pos[context-1].XAdvance
		}

		if wRepeating > 0 && wTotal > wFixed {
			nCopies := int((wTotal-wFixed)/wRepeating) - 1
			if nCopies < 0 {
				nCopies = 0
			}
			// widen each repeating tile by its share of the width left
			// over after nCopies+1 runs of tiles
			extra := wTotal - wFixed - Position(nCopies+1)*wRepeating
			xAdjust := extra / Position(nRepeating*(nCopies+1))
			for i := start; i < end; i++ {
				if info[i].complexAux == arabStchRepeating {
					pos[i].XAdvance += xAdjust
				}
			}
		}
		end = start
	}
}
