package shaping

import (
	"sort"

	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
)

// The Indic shaper: classify each codepoint into a syllabic category,
// scan syllables, find the base consonant, assign per-glyph positions,
// reorder into shaping order (pre-base matra first, Ra-to-reph last),
// mask the basic features per position, and after GSUB move reph and
// pre-base forms to their final places.

// Syllabic categories. All Brahmic blocks inherit the ISCII layout, so
// classification works from the offset within the script block plus
// per-script exception lists.
const (
	icX            = iota // other
	icC                   // consonant
	icV                   // independent vowel
	icN                   // nukta
	icH                   // halant / virama
	icZWNJ                //
	icZWJ                 //
	icM                   // matra (dependent vowel)
	icSM                  // syllable modifier (anusvara, visarga)
	icA                   // vedic accent
	icPlaceholder         // NBSP, danda, digits
	icDottedCircle        // U+25CC
	icRS                  // register shifter (Khmer)
	icRepha               // pre-composed repha
	icRa                  // Ra, reph candidate
	icCM                  // consonant medial
	icSymbol              // avagraha and friends
	icCS                  // consonant with stacker
	icCoeng               // Khmer coeng (stacker)
	icRobat               // Khmer robat
)

// Positions within a syllable, ordered visually.
const (
	iposStart = iota
	iposRaToBecomeReph
	iposPreM
	iposPreC
	iposBaseC
	iposAfterMain
	iposAboveC
	iposBeforeSub
	iposBelowC
	iposAfterSub
	iposBeforePost
	iposPostC
	iposAfterPost
	iposSMVD
	iposEnd
)

// Syllable kinds produced by the scanner.
const (
	indicConsonantSyllable = iota
	indicVowelSyllable
	indicStandaloneCluster
	indicSymbolCluster
	indicBrokenCluster
	indicNonIndicCluster
)

// Base-position and reph policies per script.
const (
	basePosLast = iota
	basePosLastSinhala
)

const (
	rephPosAfterMain = iota
	rephPosBeforeSub
	rephPosAfterSub
	rephPosBeforePost
	rephPosAfterPost
)

const (
	rephModeImplicit = iota // reph formed from initial Ra,H
	rephModeExplicit        // reph formed from initial Ra,H,ZWJ
	rephModeLogRepha        // reph is an encoded Repha character
)

const (
	blwfModePreAndPost = iota // below-forms feature on pre- and post-base
	blwfModePostOnly          // below-forms feature on post-base only
)

type indicConfig struct {
	script     language.Script
	hasOldSpec bool
	virama     rune
	basePos    uint8
	rephPos    uint8
	rephMode   uint8
	blwfMode   uint8
}

var indicConfigs = []indicConfig{
	{language.Devanagari, true, 0x094D, basePosLast, rephPosBeforePost, rephModeImplicit, blwfModePreAndPost},
	{language.Bengali, true, 0x09CD, basePosLast, rephPosAfterSub, rephModeImplicit, blwfModePreAndPost},
	{language.Gurmukhi, true, 0x0A4D, basePosLast, rephPosBeforeSub, rephModeImplicit, blwfModePreAndPost},
	{language.Gujarati, true, 0x0ACD, basePosLast, rephPosBeforePost, rephModeImplicit, blwfModePreAndPost},
	{language.Oriya, true, 0x0B4D, basePosLast, rephPosAfterMain, rephModeImplicit, blwfModePreAndPost},
	{language.Tamil, true, 0x0BCD, basePosLast, rephPosAfterPost, rephModeImplicit, blwfModePreAndPost},
	{language.Telugu, true, 0x0C4D, basePosLast, rephPosAfterPost, rephModeExplicit, blwfModePostOnly},
	{language.Kannada, true, 0x0CCD, basePosLast, rephPosAfterPost, rephModeImplicit, blwfModePostOnly},
	{language.Malayalam, true, 0x0D4D, basePosLast, rephPosAfterMain, rephModeLogRepha, blwfModePreAndPost},
}

func indicConfigFor(script language.Script) indicConfig {
	for _, cfg := range indicConfigs {
		if cfg.script == script {
			return cfg
		}
	}
	return indicConfig{script: script, virama: 0, basePos: basePosLast,
		rephPos: rephPosBeforePost, rephMode: rephModeImplicit, blwfMode: blwfModePreAndPost}
}

// scriptBlockBase returns the 128-codepoint block base of the script.
func scriptBlockBase(script language.Script) rune {
	switch script {
	case language.Devanagari:
		return 0x0900
	case language.Bengali:
		return 0x0980
	case language.Gurmukhi:
		return 0x0A00
	case language.Gujarati:
		return 0x0A80
	case language.Oriya:
		return 0x0B00
	case language.Tamil:
		return 0x0B80
	case language.Telugu:
		return 0x0C00
	case language.Kannada:
		return 0x0C80
	case language.Malayalam:
		return 0x0D00
	}
	return 0
}

// indicCategorize classifies one codepoint for the given script. The
// second return is the tentative matra position for dependent vowels.
func indicCategorize(script language.Script, u rune) (uint8, uint8) {
	switch u {
	case 0x200C:
		return icZWNJ, iposEnd
	case 0x200D:
		return icZWJ, iposEnd
	case 0x25CC:
		return icDottedCircle, iposEnd
	case 0x00A0, 0x00D7, 0x2012, 0x2013, 0x2014, 0x2015, 0x2022,
		0x0964, 0x0965:
		return icPlaceholder, iposEnd
	case 0x0D4E: // Malayalam dot reph
		return icRepha, iposRaToBecomeReph
	}
	if '0' <= u && u <= '9' {
		return icPlaceholder, iposEnd
	}

	base := scriptBlockBase(script)
	if base == 0 || u < base || u >= base+0x80 {
		return icX, iposEnd
	}
	off := u - base
	switch {
	case off == 0x00:
		return icX, iposEnd
	case off <= 0x02: // candrabindu, anusvara
		return icSM, iposSMVD
	case off == 0x03: // visarga
		return icSM, iposSMVD
	case off <= 0x14: // independent vowels
		return icV, iposEnd
	case off <= 0x39: // consonants
		if u == indicRaForScript(script) {
			return icRa, iposBaseC
		}
		return icC, iposBaseC
	case off == 0x3C:
		return icN, iposEnd
	case off == 0x3D: // avagraha
		return icSymbol, iposEnd
	case off <= 0x4C: // matras
		return icM, indicMatraPosition(script, u)
	case off == 0x4D:
		return icH, iposEnd
	case off <= 0x4F: // rarely-encoded matras
		return icM, indicMatraPosition(script, u)
	case off >= 0x51 && off <= 0x57:
		return icA, iposSMVD
	case off >= 0x58 && off <= 0x5F: // nukta consonants
		return icC, iposBaseC
	case off >= 0x60 && off <= 0x61: // vocalic vowels
		return icV, iposEnd
	case off >= 0x62 && off <= 0x63:
		return icM, indicMatraPosition(script, u)
	case off >= 0x66 && off <= 0x6F: // digits
		return icPlaceholder, iposEnd
	}
	return icX, iposEnd
}

func indicRaForScript(script language.Script) rune {
	base := scriptBlockBase(script)
	if base == 0 {
		return 0
	}
	return base + 0x30
}

// indicMatraPosition places a dependent vowel relative to the base.
// Left matras are the critical set; the rest splits into above, below
// and right by the conventional block layout.
func indicMatraPosition(script language.Script, u rune) uint8 {
	switch u {
	// pre-base matras
	case 0x093F, 0x094E, // Devanagari I, PRISHTHAMATRA E
		0x09BF, 0x09C7, 0x09C8, // Bengali I, E, AI
		0x0A3F,                 // Gurmukhi I
		0x0ABF,                 // Gujarati I
		0x0B47,                 // Oriya E
		0x0BC6, 0x0BC7, 0x0BC8, // Tamil E, EE, AI
		0x0D46, 0x0D47, 0x0D48: // Malayalam E, EE, AI
		return iposPreM
	// below-base matras
	case 0x0941, 0x0942, 0x0943, 0x0944, 0x0962, 0x0963,
		0x09C1, 0x09C2, 0x09C3, 0x09C4, 0x09E2, 0x09E3,
		0x0A41, 0x0A42,
		0x0AC1, 0x0AC2, 0x0AC3, 0x0AC4,
		0x0B41, 0x0B42, 0x0B43, 0x0B44,
		0x0C56,
		0x0CC3, 0x0CC4,
		0x0D43, 0x0D44:
		return iposBelowC
	// above-base matras
	case 0x0945, 0x0946, 0x0947, 0x0948, 0x0955,
		0x09C9, // rare
		0x0A47, 0x0A48, 0x0A4B, 0x0A4C,
		0x0AC5, 0x0AC7, 0x0AC8,
		0x0B56,
		0x0BC0,
		0x0C3E, 0x0C3F, 0x0C40, 0x0C46, 0x0C47, 0x0C4A, 0x0C4B, 0x0C4C, 0x0C55,
		0x0CBF, 0x0CC6,
		0x0D4E:
		return iposAboveC
	}
	return iposPostC
}

// --- shaper ------------------------------------------------------------

type indicPlan struct {
	config    indicConfig
	isOldSpec bool

	maskArray map[tables.Tag]GlyphMask
}

var indicBasicFeatures = []tables.Tag{
	otTag('n', 'u', 'k', 't'),
	otTag('a', 'k', 'h', 'n'),
	otTag('r', 'p', 'h', 'f'),
	otTag('r', 'k', 'r', 'f'),
	otTag('p', 'r', 'e', 'f'),
	otTag('b', 'l', 'w', 'f'),
	otTag('a', 'b', 'v', 'f'),
	otTag('h', 'a', 'l', 'f'),
	otTag('p', 's', 't', 'f'),
	otTag('v', 'a', 't', 'u'),
	otTag('c', 'j', 'c', 't'),
}

var indicOtherFeatures = []tables.Tag{
	otTag('i', 'n', 'i', 't'),
	otTag('p', 'r', 'e', 's'),
	otTag('a', 'b', 'v', 's'),
	otTag('b', 'l', 'w', 's'),
	otTag('p', 's', 't', 's'),
	otTag('h', 'a', 'l', 'n'),
}

type shaperIndic struct {
	shaperDefaults
}

func (*shaperIndic) name() string { return "indic" }

func (*shaperIndic) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksNone, false
}

func (*shaperIndic) normalizationPreference() normalizationMode {
	return nmComposedDiacriticsNoShortCircuit
}

func (*shaperIndic) decompose(c *normalizeContext, ab rune) (rune, rune, bool) {
	switch ab {
	// composed forms whose parts render worse than the whole
	case 0x0931, 0x09DC, 0x09DD, 0x0B94:
		return 0, 0, false
	}
	return unicodeDecompose(ab)
}

func (*shaperIndic) compose(c *normalizeContext, a, b rune) (rune, bool) {
	// avoid recomposition of marks onto bases; the shaper wants them
	// separate
	if generalCategoryOf(a).isMark() {
		return 0, false
	}
	return unicodeCompose(a, b)
}

func (*shaperIndic) collectFeatures(planner *shapePlanner) {
	map_ := &planner.map_

	map_.enableFeatureExt(otTag('l', 'o', 'c', 'l'), ffPerSyllable, 1)
	// ccmp runs before syllable analysis can be disturbed
	map_.enableFeatureExt(otTag('c', 'c', 'm', 'p'), ffPerSyllable, 1)
	map_.addGSUBPause(indicSetupSyllablesPause)
	map_.addGSUBPause(indicInitialReorderingPause)

	for _, tag := range indicBasicFeatures {
		map_.addFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
		map_.addGSUBPause(nil)
	}
	map_.addGSUBPause(indicFinalReorderingPause)

	for _, tag := range indicOtherFeatures {
		map_.addFeatureExt(tag, ffManualJoiners|ffPerSyllable, 1)
	}
}

func (*shaperIndic) overrideFeatures(planner *shapePlanner) {
	planner.map_.disableFeature(otTag('l', 'i', 'g', 'a'))
}

func (sh *shaperIndic) dataCreate(plan *shapePlan) {
	data := &indicPlan{
		config:    indicConfigFor(plan.props.Script),
		maskArray: make(map[tables.Tag]GlyphMask),
	}
	// '…2' script selections follow the new shaping spec
	chosen := plan.map_.chosenScript[0]
	data.isOldSpec = data.config.hasOldSpec && (chosen&0xFF) != '2'
	for _, tag := range indicBasicFeatures {
		data.maskArray[tag] = plan.map_.getMask1(tag)
	}
	for _, tag := range indicOtherFeatures {
		data.maskArray[tag] = plan.map_.getMask1(tag)
	}
	plan.shaperData = data
}

func indicPlanData(plan *shapePlan) *indicPlan {
	data, _ := plan.shaperData.(*indicPlan)
	return data
}

func (sh *shaperIndic) setupMasks(plan *shapePlan, buffer *Buffer, font *Font) {
	// categories are needed before GSUB starts; positions refine later
	for i := range buffer.Info {
		cat, pos := indicCategorize(plan.props.Script, buffer.Info[i].codepoint)
		buffer.Info[i].complexCategory = cat
		buffer.Info[i].complexAux = pos
	}
}

// --- syllable scanning -------------------------------------------------

// scanIndicSyllable consumes one syllable and returns its kind,
// following the canonical consonant/vowel/standalone grammar.
func scanIndicSyllable(s *syllabicScanner) uint8 {
	// helper productions
	zw := func() bool { return s.accept(icZWJ, icZWNJ) }
	nukta := func() { // ((ZWNJ? RS)? N N?)?
		m := s.save()
		s.accept(icZWNJ)
		if s.accept(icRS) {
			s.accept(icN)
			s.accept(icN)
			return
		}
		s.restore(m)
		if s.accept(icN) {
			s.accept(icN)
		}
	}
	cn := func() bool { // (C | Ra | CS) ZWJ? n?
		if !s.accept(icC, icRa, icCS) {
			return false
		}
		s.accept(icZWJ)
		nukta()
		return true
	}
	matraGroup := func() bool { // z* M N? H?
		m := s.save()
		for zw() {
		}
		if !s.accept(icM) {
			s.restore(m)
			return false
		}
		s.accept(icN)
		s.accept(icH)
		return true
	}
	halantGroup := func() bool { // z? H (ZWJ N?)?
		m := s.save()
		zw()
		if !s.accept(icH) {
			s.restore(m)
			return false
		}
		if s.accept(icZWJ) {
			s.accept(icN)
		}
		return true
	}
	syllableTail := func() { // (z? SM SM? ZWNJ?)? A*
		m := s.save()
		zw()
		if s.accept(icSM) {
			s.accept(icSM)
			s.accept(icZWNJ)
		} else {
			s.restore(m)
		}
		s.acceptRun(icA)
	}
	complexSyllableTail := func() {
		// (halant_group cn)* CM? (H ZWNJ? | matra_group*) tail
		for {
			m := s.save()
			if !halantGroup() {
				break
			}
			if !cn() {
				s.restore(m)
				break
			}
		}
		s.accept(icCM)
		m := s.save()
		if halantGroup() {
			s.accept(icZWNJ)
		} else {
			s.restore(m)
			for matraGroup() {
			}
		}
		syllableTail()
	}
	reph := func() bool { // Ra H | Repha
		m := s.save()
		if s.accept(icRa) && s.accept(icH) {
			// a following consonant keeps this as a reph candidate;
			// otherwise it is the syllable itself
			if s.accept(icC, icRa, icV, icDottedCircle) {
				s.pos-- // the consonant belongs to the main scan
				return true
			}
			s.restore(m)
			return false
		}
		s.restore(m)
		return s.accept(icRepha)
	}

	switch s.peek() {
	case icC, icRa, icCS:
		reph()
		if s.accept(icV) {
			// vowel syllable headed by a reph
			nukta()
			complexSyllableTail()
			return indicVowelSyllable
		}
		if !cn() {
			complexSyllableTail()
			return indicBrokenCluster
		}
		complexSyllableTail()
		return indicConsonantSyllable

	case icRepha:
		reph()
		if s.accept(icV) {
			nukta()
			complexSyllableTail()
			return indicVowelSyllable
		}
		if cn() {
			complexSyllableTail()
			return indicConsonantSyllable
		}
		nukta()
		complexSyllableTail()
		return indicBrokenCluster

	case icV:
		s.accept(icV)
		nukta()
		if s.accept(icZWJ) {
			return indicVowelSyllable
		}
		complexSyllableTail()
		return indicVowelSyllable

	case icPlaceholder, icDottedCircle:
		s.accept(icPlaceholder, icDottedCircle)
		nukta()
		complexSyllableTail()
		return indicStandaloneCluster

	case icSymbol:
		s.accept(icSymbol)
		s.acceptRun(icA, icSM)
		return indicSymbolCluster

	case icN, icM, icH, icSM, icA, icRS, icZWJ, icZWNJ:
		// leading marks form a broken cluster
		nukta()
		complexSyllableTail()
		return indicBrokenCluster

	default:
		s.accept(s.peek())
		return indicNonIndicCluster
	}
}

func indicSetupSyllablesPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	cats := make([]uint8, len(buffer.Info))
	for i := range buffer.Info {
		cats[i] = buffer.Info[i].complexCategory
	}
	tagSyllables(buffer, cats, scanIndicSyllable)
	return false
}

// indicSyllableKindName aids tracing only.
func indicSyllableKindName(kind uint8) string {
	switch kind {
	case indicConsonantSyllable:
		return "consonant"
	case indicVowelSyllable:
		return "vowel"
	case indicStandaloneCluster:
		return "standalone"
	case indicSymbolCluster:
		return "symbol"
	case indicBrokenCluster:
		return "broken"
	}
	return "other"
}

// --- initial reordering ------------------------------------------------

func indicInitialReorderingPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	data := indicPlanData(plan)
	if data == nil {
		return false
	}
	insertDottedCircles(font, buffer, indicBrokenCluster, icDottedCircle, icRepha, iposEnd)

	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		tracer().Debugf("indic: %s syllable [%d,%d)",
			indicSyllableKindName(syllableKind(buffer.Info[start].syllable)), start, end)
		indicReorderSyllable(data, buffer, start, end)
	}
	// dotted-circle insertion may have introduced a new glyph id
	return true
}

func isIndicConsonant(info *GlyphInfo) bool {
	switch info.complexCategory {
	case icC, icRa, icCS, icCM, icV, icPlaceholder, icDottedCircle:
		return true
	}
	return false
}

func isIndicHalantOrCoeng(info *GlyphInfo) bool {
	return info.complexCategory == icH || info.complexCategory == icCoeng
}

// indicReorderSyllable runs the initial reordering of one syllable:
// find the base, tag positions, stable-sort into shaping order, and
// set the basic-feature masks.
func indicReorderSyllable(data *indicPlan, buffer *Buffer, start, end int) {
	info := buffer.Info
	kind := syllableKind(info[start].syllable)
	if kind == indicNonIndicCluster || kind == indicSymbolCluster {
		return
	}

	// 1. find the base consonant: the last consonant not below/post
	base := end
	hasReph := false

	limit := start
	if data.maskArray[otTag('r', 'p', 'h', 'f')] != 0 && start+2 < end {
		switch data.config.rephMode {
		case rephModeImplicit:
			if info[start].complexCategory == icRa &&
				info[start+1].complexCategory == icH &&
				info[start+2].complexCategory != icZWJ && info[start+2].complexCategory != icZWNJ {
				limit += 2
				hasReph = true
			}
		case rephModeExplicit:
			if start+3 <= end &&
				info[start].complexCategory == icRa &&
				info[start+1].complexCategory == icH &&
				info[start+2].complexCategory == icZWJ {
				limit += 3
				hasReph = true
			}
		case rephModeLogRepha:
			if info[start].complexCategory == icRepha {
				limit++
				hasReph = true
			}
		}
	}

	switch data.config.basePos {
	case basePosLast:
		// walk backward and stop at the first consonant that is neither
		// below-base nor post-base (post-base counts once a below-base
		// consonant was seen); otherwise the leftmost one visited wins
		i := end
		seenBelow := false
		for {
			i--
			if i < limit {
				break
			}
			if isIndicConsonant(&info[i]) && info[i].complexCategory != icCM {
				if info[i].complexAux != iposBelowC &&
					(info[i].complexAux != iposPostC || seenBelow) {
					base = i
					break
				}
				if info[i].complexAux == iposBelowC {
					seenBelow = true
				}
				base = i
			}
		}
	default:
		base = limit
	}
	if base == end {
		// no consonant: vowel or standalone carries the cluster
		for i := start; i < end; i++ {
			if info[i].complexCategory == icV || info[i].complexCategory == icPlaceholder ||
				info[i].complexCategory == icDottedCircle {
				base = i
				break
			}
		}
		if base == end {
			base = start
		}
	}
	if hasReph && base == start && limit-base <= 2 {
		// the would-be reph is the only consonant: no reph
		hasReph = false
	}

	// 2. tag positions
	for i := start; i < base; i++ {
		if info[i].complexAux > iposBaseC || info[i].complexCategory == icRa {
			if info[i].complexCategory != icM && info[i].complexAux != iposPreM {
				info[i].complexAux = iposPreC
			}
		} else if isIndicConsonant(&info[i]) {
			info[i].complexAux = iposPreC
		}
	}
	if base < end {
		info[base].complexAux = iposBaseC
	}
	if hasReph {
		info[start].complexAux = iposRaToBecomeReph
	}
	// halants take the position of what follows them; nuktas stick to
	// their consonant
	for i := start + 1; i < end; i++ {
		if info[i].complexCategory == icN {
			info[i].complexAux = info[i-1].complexAux
		}
	}
	for i := base + 1; i < end; i++ {
		if isIndicHalantOrCoeng(&info[i]) {
			// position of the next consonant, else below
			pos := uint8(iposBelowC)
			for j := i + 1; j < end; j++ {
				if isIndicConsonant(&info[j]) {
					pos = info[j].complexAux
					if pos == iposBaseC {
						pos = iposBelowC
					}
					break
				}
			}
			info[i].complexAux = pos
		} else if info[i].complexCategory == icSM || info[i].complexCategory == icA {
			info[i].complexAux = iposSMVD
		}
	}
	// post-base consonants
	lastPos := uint8(iposBaseC)
	for i := base + 1; i < end; i++ {
		if isIndicConsonant(&info[i]) && info[i].complexCategory != icCM {
			if info[i].complexAux <= iposBaseC {
				info[i].complexAux = iposBelowC
			}
		}
		if info[i].complexAux < lastPos && info[i].complexCategory != icN &&
			!isIndicHalantOrCoeng(&info[i]) && info[i].complexAux != iposSMVD &&
			info[i].complexAux != iposPreM {
			info[i].complexAux = lastPos
		}
		if info[i].complexAux > lastPos && info[i].complexAux != iposSMVD {
			lastPos = info[i].complexAux
		}
	}

	// 3. stable sort the syllable by position
	buffer.mergeClusters(start, end)
	sub := info[start:end]
	sort.SliceStable(sub, func(a, b int) bool {
		return sub[a].complexAux < sub[b].complexAux
	})
	// re-find base after the sort
	base = end
	for i := start; i < end; i++ {
		if info[i].complexAux == iposBaseC {
			base = i
			break
		}
	}

	// 4. feature masks
	rphfMask := data.maskArray[otTag('r', 'p', 'h', 'f')]
	halfMask := data.maskArray[otTag('h', 'a', 'l', 'f')]
	prefMask := data.maskArray[otTag('p', 'r', 'e', 'f')]
	blwfMask := data.maskArray[otTag('b', 'l', 'w', 'f')]
	abvfMask := data.maskArray[otTag('a', 'b', 'v', 'f')]
	pstfMask := data.maskArray[otTag('p', 's', 't', 'f')]
	mask := data.maskArray[otTag('n', 'u', 'k', 't')] |
		data.maskArray[otTag('a', 'k', 'h', 'n')] |
		data.maskArray[otTag('r', 'k', 'r', 'f')] |
		data.maskArray[otTag('v', 'a', 't', 'u')] |
		data.maskArray[otTag('c', 'j', 'c', 't')]

	for i := start; i < end; i++ {
		info[i].Mask |= mask
		switch info[i].complexAux {
		case iposRaToBecomeReph:
			info[i].Mask |= rphfMask
		case iposPreC:
			info[i].Mask |= halfMask
		case iposBelowC:
			if data.config.blwfMode == blwfModePreAndPost || i > base {
				info[i].Mask |= blwfMask
			}
		case iposAboveC:
			info[i].Mask |= abvfMask
		case iposPostC:
			if i > base && isIndicConsonant(&info[i]) {
				info[i].Mask |= pstfMask
			}
		case iposPreM:
			_ = prefMask // pref applies to consonants, not matras
		}
	}
	if base+1 < end {
		// pref forms on the post-base consonant pair (Malayalam,
		// Telugu Ra)
		for i := base + 1; i+1 < end; i++ {
			if isIndicHalantOrCoeng(&info[i]) && info[i+1].complexCategory == icRa {
				info[i].Mask |= prefMask
				info[i+1].Mask |= prefMask
				break
			}
		}
	}
}

// --- final reordering --------------------------------------------------

func indicFinalReorderingPause(plan *shapePlan, font *Font, buffer *Buffer) bool {
	data := indicPlanData(plan)
	if data == nil || len(buffer.Info) == 0 {
		return false
	}
	iter, count := buffer.syllableIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		indicFinalReorderSyllable(data, plan, buffer, start, end)
	}
	return false
}

// indicFinalReorderSyllable fixes matra and reph placement after GSUB:
// a pre-base matra that survived as its own glyph moves in front of
// the (possibly half-form) cluster start; a reph that did not ligate
// moves to its script's final position.
func indicFinalReorderSyllable(data *indicPlan, plan *shapePlan, buffer *Buffer, start, end int) {
	info := buffer.Info
	kind := syllableKind(info[start].syllable)
	if kind == indicNonIndicCluster || kind == indicSymbolCluster {
		return
	}

	// locate the base: the first glyph tagged base, else the syllable
	// start
	base := start
	for base < end && info[base].complexAux != iposBaseC {
		base++
	}
	if base == end {
		base = start
	}

	// pre-base matra: move it before the first half-form consonant
	for i := base; i > start; i-- {
		if info[i-1].complexAux != iposPreM {
			continue
		}
		matraPos := i - 1
		// the matra lands at the syllable start, after any reph
		target := start
		if info[target].complexAux == iposRaToBecomeReph {
			target++
		}
		if target == matraPos {
			break
		}
		matra := info[matraPos]
		copy(info[target+1:matraPos+1], info[target:matraPos])
		info[target] = matra
		buffer.mergeClusters(target, matraPos+1)
		buffer.unsafeToBreak(target, end)
		break
	}

	// reph: if the first glyph still carries the reph position and did
	// not ligate into a reph form, move it to the configured spot
	if info[start].complexAux == iposRaToBecomeReph && start+1 < end &&
		!info[start].ligatedAndDidntMultiply() {
		var target int
		switch data.config.rephPos {
		case rephPosAfterMain:
			target = base
		case rephPosBeforeSub, rephPosAfterSub:
			target = base
			for target+1 < end && info[target+1].complexAux <= iposBelowC {
				target++
			}
		default: // before/after post
			target = end - 1
			for target > start && info[target].complexAux == iposSMVD {
				target--
			}
		}
		if target > start {
			reph := info[start]
			copy(info[start:], info[start+1:target+1])
			info[target] = reph
			buffer.mergeClusters(start, target+1)
			buffer.unsafeToBreak(start, end)
		}
	}

	// initial mask: a word-initial syllable whose first glyph is a
	// left matra takes 'init'
	if data.maskArray[otTag('i', 'n', 'i', 't')] != 0 &&
		info[start].complexAux == iposPreM &&
		(start == 0 || !info[start-1].generalCategory().isLetter()) {
		info[start].Mask |= data.maskArray[otTag('i', 'n', 'i', 't')]
	}
}
