package shaping

import (
	"fmt"

	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
)

// Position is a coordinate or advance in scaled font units.
type Position = int32

// GlyphMask carries per-glyph feature bits during shaping; after
// shaping, only the exported Glyph* flag bits remain meaningful.
type GlyphMask = uint32

const (
	// GlyphUnsafeToBreak indicates that breaking input text at the start
	// of this glyph's cluster and shaping the two sides separately may
	// not reproduce this result. When the flag is absent the break is
	// safe.
	GlyphUnsafeToBreak GlyphMask = 1 << iota

	// GlyphUnsafeToConcat indicates that if text on either side of this
	// glyph's cluster changes, the shaping result of this side might
	// change as well. Only produced when the buffer requests it via
	// ProduceUnsafeToConcat.
	GlyphUnsafeToConcat

	// GlyphSafeToInsertTatweel indicates that a U+0640 TATWEEL may be
	// inserted before this cluster without disturbing shaping. Only
	// produced when the buffer requests it via ProduceSafeToInsertTatweel.
	GlyphSafeToInsertTatweel

	glyphFlagDefined GlyphMask = GlyphUnsafeToBreak | GlyphUnsafeToConcat | GlyphSafeToInsertTatweel
)

// GlyphInfo is one slot of the shaping buffer: a codepoint on the way
// in, a glyph on the way out, plus the cluster it originated from.
type GlyphInfo struct {
	// Cluster is the index the originating codepoint was added with.
	// Glyphs merged from several codepoints carry the smallest of their
	// cluster values; clusters never decrease along the buffer.
	Cluster int

	codepoint rune

	// Glyph is the selected glyph, valid after shaping.
	Glyph GID

	// Mask holds feature bits during shaping and Glyph* flags after.
	Mask GlyphMask

	glyphProps uint16 // GDEF glyph class + mark attachment type + substitution bits
	ligProps   uint8  // ligature id (high 3 bits) and component / lig marker (low 5)
	syllable   uint8  // shaper-assigned syllable serial

	uprops uProps

	complexCategory, complexAux uint8 // storage interpreted by script shapers
}

func (info GlyphInfo) String() string {
	return fmt.Sprintf("%d=%d(0x%x)", info.Glyph, info.Cluster, info.Mask&glyphFlagDefined)
}

// GlyphPosition holds the placement of one shaped glyph relative to the
// current point, in scaled font units.
type GlyphPosition struct {
	XAdvance Position
	YAdvance Position
	XOffset  Position
	YOffset  Position

	// attachChain is a signed offset to the buffer slot this glyph
	// attaches to; 0 means unattached. Resolved to absolute offsets by
	// the final propagation pass.
	attachChain int16
	attachType  uint8
}

// --- per-info accessors ------------------------------------------------

func (info *GlyphInfo) setUProps(b *Buffer) {
	props, flags := computeUProps(info.codepoint)
	info.uprops = props
	b.scratchFlags |= flags
}

func (info *GlyphInfo) generalCategory() generalCategory { return info.uprops.generalCategory() }

func (info *GlyphInfo) setGeneralCategory(gc generalCategory) {
	info.uprops = uProps(gc) | (info.uprops &^ upGenCatMask & 0xFF) | (info.uprops & 0xFF00)
}

func (info *GlyphInfo) isContinuation() bool     { return info.uprops&upContinuation != 0 }
func (info *GlyphInfo) setContinuation()         { info.uprops |= upContinuation }
func (info *GlyphInfo) resetContinuation()       { info.uprops &^= upContinuation }
func (info *GlyphInfo) isUnicodeSpace() bool     { return info.generalCategory() == spaceSeparator }
func (info *GlyphInfo) isUnicodeFormat() bool    { return info.generalCategory() == format }
func (info *GlyphInfo) isUnicodeMark() bool      { return info.generalCategory().isMark() }
func (info *GlyphInfo) unhide()                  { info.uprops &^= upHidden }

func (info *GlyphInfo) isZwnj() bool {
	return info.isUnicodeFormat() && info.uprops&upCfZwnj != 0
}

func (info *GlyphInfo) isZwj() bool {
	return info.isUnicodeFormat() && info.uprops&upCfZwj != 0
}

func (info *GlyphInfo) modifiedCombiningClass() uint8 {
	if info.isUnicodeMark() {
		return uint8(info.uprops >> 8)
	}
	return 0
}

func (info *GlyphInfo) setModifiedCombiningClass(ccc uint8) {
	if !info.isUnicodeMark() {
		return
	}
	info.uprops = uProps(ccc)<<8 | info.uprops&0xFF
}

func (info *GlyphInfo) spaceFallbackType() uint8 {
	if info.isUnicodeSpace() {
		return uint8(info.uprops >> 8)
	}
	return notSpace
}

func (info *GlyphInfo) setSpaceFallbackType(s uint8) {
	if !info.isUnicodeSpace() {
		return
	}
	info.uprops = uProps(s)<<8 | info.uprops&0xFF
}

func (info *GlyphInfo) isDefaultIgnorable() bool {
	return info.uprops&upIgnorable != 0 && !info.substituted()
}

func (info *GlyphInfo) isDefaultIgnorableAndNotHidden() bool {
	return info.uprops&(upIgnorable|upHidden) == upIgnorable && !info.substituted()
}

// Ligature bookkeeping. A ligature id of 0 means "not in a ligature";
// marks carry (id, component) with component in [1,N], the ligature
// glyph itself carries (id, numComponents) plus the base marker bit.
const ligBaseMarker = 0x10

func (info *GlyphInfo) ligID() uint8 { return info.ligProps >> 5 }

func (info *GlyphInfo) isLigatedInternal() bool { return info.ligProps&ligBaseMarker != 0 }

func (info *GlyphInfo) ligComp() uint8 {
	if info.isLigatedInternal() {
		return 0
	}
	return info.ligProps & 0x0F
}

func (info *GlyphInfo) ligNumComps() uint8 {
	if info.glyphProps&tables.GPLigature != 0 && info.isLigatedInternal() {
		return info.ligProps & 0x0F
	}
	return 1
}

func (info *GlyphInfo) setLigPropsForMark(ligID, ligComp uint8) {
	info.ligProps = ligID<<5 | ligComp&0x0F
}

func (info *GlyphInfo) setLigPropsForLigature(ligID, numComps uint8) {
	info.ligProps = ligID<<5 | ligBaseMarker | numComps&0x0F
}

func (info *GlyphInfo) isMark() bool      { return info.glyphProps&tables.GPMark != 0 }
func (info *GlyphInfo) isBaseGlyph() bool { return info.glyphProps&tables.GPBaseGlyph != 0 }
func (info *GlyphInfo) isLigature() bool  { return info.glyphProps&tables.GPLigature != 0 }
func (info *GlyphInfo) substituted() bool { return info.glyphProps&glyphPropSubstituted != 0 }
func (info *GlyphInfo) ligated() bool     { return info.glyphProps&glyphPropLigated != 0 }
func (info *GlyphInfo) multiplied() bool  { return info.glyphProps&glyphPropMultiplied != 0 }

func (info *GlyphInfo) clearLigatedAndMultiplied() {
	info.glyphProps &^= glyphPropLigated | glyphPropMultiplied
}

func (info *GlyphInfo) ligatedAndDidntMultiply() bool {
	return info.ligated() && !info.multiplied()
}

// --- buffer flags ------------------------------------------------------

// BufferFlags tune buffer behavior for one shaping call.
type BufferFlags uint16

const (
	// BeginningOfText marks the buffer start as a text start (enables
	// dotted-circle insertion for leading marks).
	BeginningOfText BufferFlags = 1 << iota
	// EndOfText marks the buffer end as a text end.
	EndOfText
	// PreserveDefaultIgnorables keeps default-ignorable glyphs visible.
	PreserveDefaultIgnorables
	// RemoveDefaultIgnorables drops default-ignorable glyphs entirely.
	RemoveDefaultIgnorables
	// DoNotInsertDottedCircle suppresses dotted-circle insertion.
	DoNotInsertDottedCircle
	// ProduceUnsafeToConcat enables reliable GlyphUnsafeToConcat output.
	ProduceUnsafeToConcat
	// ProduceSafeToInsertTatweel enables GlyphSafeToInsertTatweel output.
	ProduceSafeToInsertTatweel
)

type bufferScratchFlags uint32

const (
	bsfDefault              bufferScratchFlags = 0
	bsfHasNonASCII          bufferScratchFlags = 1 << iota
	bsfHasDefaultIgnorables
	bsfHasSpaceFallback
	bsfHasGPOSAttachment
	bsfHasCGJ
	bsfHasGlyphFlags
	bsfHasBrokenSyllable
	bsfAATHasDeleted

	// bsfShaper0 and up are reserved for script shapers.
	bsfShaper0 bufferScratchFlags = 0x01000000
)

// ClusterLevel selects how fine-grained cluster values are maintained.
type ClusterLevel uint8

const (
	// MonotoneGraphemes merges clusters per grapheme and keeps them
	// monotone. The default.
	MonotoneGraphemes ClusterLevel = iota
	// MonotoneCharacters keeps per-character clusters, monotone.
	MonotoneCharacters
	// Characters keeps per-character clusters without merging.
	Characters
)

const (
	maxOpsDefault = 0x3FFFFFFF
	maxLenDefault = 0x3FFFFFFF
	maxOpsFactor  = 1024
	maxOpsMin     = 16384
	maxLenFactor  = 64
	maxLenMin     = 16384
)

// maxContextLength bounds OT context matches and AAT component stacks.
const maxContextLength = 64

// maxNestingLevel bounds contextual lookup recursion.
const maxNestingLevel = 6

// Buffer is the working ledger of a shaping run. It is filled with
// codepoints, mutated by shaping, and read out as glyphs plus
// positions.
//
// The buffer keeps two logical glyph arrays: the input array Info and
// an output array. Subtables that can change the glyph count switch to
// "output mode" (reading Info[idx:], appending to the output); strictly
// in-place passes mutate Info directly. A sync moves the output back in
// place.
type Buffer struct {
	// Info holds the glyph slots, in logical order during shaping and
	// in visual order after shaping a backward run.
	Info []GlyphInfo
	// Pos holds the glyph positions, aligned with Info after positioning.
	Pos []GlyphPosition

	// Props is the segment the buffer content belongs to.
	Props SegmentProperties
	// Flags tune this shaping call.
	Flags BufferFlags
	// ClusterLevel selects the cluster maintenance policy.
	ClusterLevel ClusterLevel
	// Invisible is the glyph used to replace hidden default-ignorables;
	// 0 selects the font's space glyph.
	Invisible GID

	outInfo []GlyphInfo

	idx        int // cursor into Info
	haveOutput bool
	successful bool // sticky; cleared on budget blowup, all mutators then no-op

	serial       uint8
	scratchFlags bufferScratchFlags

	maxOps int // operation budget, guards against malicious fonts
	maxLen int // length budget

	random  uint32    // per-buffer LCG state for 'rand'
	dropped GlyphInfo // sink for mutations after a failure
}

// NewBuffer returns an empty buffer ready for input.
func NewBuffer() *Buffer {
	return &Buffer{
		successful: true,
		maxOps:     maxOpsDefault,
		maxLen:     maxLenDefault,
	}
}

// Clear resets the buffer for reuse, keeping allocated storage.
func (b *Buffer) Clear() {
	b.Info = b.Info[:0]
	b.Pos = b.Pos[:0]
	b.outInfo = b.outInfo[:0]
	b.idx = 0
	b.haveOutput = false
	b.successful = true
	b.serial = 0
	b.scratchFlags = bsfDefault
	b.maxOps = maxOpsDefault
	b.maxLen = maxLenDefault
	b.random = 0
}

// Len returns the number of glyph slots.
func (b *Buffer) Len() int { return len(b.Info) }

// AddRune appends one codepoint with an explicit cluster value.
// Cluster values must be non-decreasing in the order of addition.
func (b *Buffer) AddRune(r rune, cluster int) {
	b.Info = append(b.Info, GlyphInfo{codepoint: r, Cluster: cluster})
}

// AddRunes appends a slice of runes with consecutive cluster values
// starting at clusterOffset.
func (b *Buffer) AddRunes(text []rune, clusterOffset int) {
	for i, r := range text {
		b.AddRune(r, clusterOffset+i)
	}
}

// GuessSegmentProperties fills in unset segment properties from the
// buffer content: script from the first codepoint with a definite
// script, direction from the script, language from the environment.
func (b *Buffer) GuessSegmentProperties() {
	if b.Props.Script == 0 {
		for _, info := range b.Info {
			s := language.LookupScript(info.codepoint)
			if s != 0 && s != language.Common && s != language.Inherited && s != language.Unknown {
				b.Props.Script = s
				break
			}
		}
	}
	if !b.Props.Direction.isValid() {
		b.Props.Direction = horizontalDirectionForScript(b.Props.Script)
		for _, info := range b.Info {
			if d := directionFromBidiClass(info.codepoint); d != 0 {
				b.Props.Direction = d
				break
			}
		}
	}
	if b.Props.Language == "" {
		b.Props.Language = DefaultLanguage()
	}
}

func (b *Buffer) cur(i int) *GlyphInfo       { return &b.Info[b.idx+i] }
func (b *Buffer) curPos(i int) *GlyphPosition { return &b.Pos[b.idx+i] }

func (b *Buffer) prev() *GlyphInfo {
	if n := len(b.outInfo); n != 0 {
		return &b.outInfo[n-1]
	}
	return &b.Info[0]
}

// backtrackLen is the number of glyphs behind the cursor: output length
// in output mode, the cursor itself otherwise.
func (b *Buffer) backtrackLen() int {
	if b.haveOutput {
		return len(b.outInfo)
	}
	return b.idx
}

func (b *Buffer) lookaheadLen() int { return len(b.Info) - b.idx }

func (b *Buffer) allocateLigID() uint8 {
	b.serial++
	ligID := b.serial & 0x07
	if ligID == 0 { // 0 means "no ligature"
		b.serial++
		ligID = b.serial & 0x07
	}
	return ligID
}

// randomNumber steps the buffer-local LCG (MINSTD). Seeded per shaping
// call so results are reproducible for a given input.
func (b *Buffer) randomNumber() uint32 {
	b.random = b.random * 48271 % 2147483647
	return b.random
}

// --- output discipline -------------------------------------------------

// clearOutput switches to output mode with an empty output array.
func (b *Buffer) clearOutput() {
	b.haveOutput = true
	b.idx = 0
	b.outInfo = b.outInfo[:0]
}

// sync ends output mode, replacing the input array with the output,
// carrying over any unread input.
func (b *Buffer) sync() {
	assert(b.haveOutput, "buffer sync without output mode")
	if !b.successful {
		b.haveOutput = false
		b.idx = 0
		return
	}
	b.outInfo = append(b.outInfo, b.Info[b.idx:]...)
	b.Info, b.outInfo = b.outInfo, b.Info[:0]
	b.haveOutput = false
	b.idx = 0
}

// moveTo repositions the cursor so that the output holds exactly i
// glyphs, copying forward or sliding back as needed.
func (b *Buffer) moveTo(i int) bool {
	if !b.haveOutput {
		assert(i <= len(b.Info), "buffer moveTo out of bounds")
		b.idx = i
		return true
	}
	if !b.successful {
		return false
	}
	if i > len(b.outInfo) {
		count := i - len(b.outInfo)
		if count > b.lookaheadLen() {
			b.successful = false
			return false
		}
		b.outInfo = append(b.outInfo, b.Info[b.idx:b.idx+count]...)
		b.idx += count
	} else if i < len(b.outInfo) {
		count := len(b.outInfo) - i
		if b.idx < count {
			b.successful = false
			return false
		}
		// slide output tail back in front of the cursor
		b.idx -= count
		copy(b.Info[b.idx:], b.outInfo[i:i+count])
		b.outInfo = b.outInfo[:i]
	}
	return true
}

func (b *Buffer) outPush(info GlyphInfo) {
	if !b.successful {
		return
	}
	if len(b.outInfo)+b.lookaheadLen() > b.maxLen {
		b.successful = false
		return
	}
	b.outInfo = append(b.outInfo, info)
}

// nextGlyph copies the current glyph to the output and advances.
func (b *Buffer) nextGlyph() {
	if b.haveOutput {
		b.outPush(b.Info[b.idx])
	}
	b.idx++
}

// nextGlyphs copies n glyphs to the output and advances past them.
func (b *Buffer) nextGlyphs(n int) {
	if b.haveOutput {
		for i := 0; i < n; i++ {
			b.outPush(b.Info[b.idx+i])
		}
	}
	b.idx += n
}

// skipGlyph advances without copying: the current glyph is dropped.
func (b *Buffer) skipGlyph() { b.idx++ }

// copyGlyph duplicates the current glyph into the output without
// consuming it.
func (b *Buffer) copyGlyph() {
	b.outPush(b.Info[b.idx])
}

// replaceGlyphIndex substitutes the current glyph in place and advances.
func (b *Buffer) replaceGlyphIndex(g GID) {
	if !b.successful {
		return
	}
	if b.haveOutput {
		info := b.Info[b.idx]
		info.Glyph = g
		b.outPush(info)
		b.idx++
		return
	}
	b.Info[b.idx].Glyph = g
	b.idx++
}

// outputGlyphIndex appends a glyph to the output without consuming
// input; it inherits the current glyph's cluster and mask.
func (b *Buffer) outputGlyphIndex(g GID) *GlyphInfo {
	if !b.successful {
		return &b.dropped
	}
	var info GlyphInfo
	if b.idx == len(b.Info) && len(b.outInfo) == 0 {
		return &b.dropped
	}
	if b.idx < len(b.Info) {
		info = b.Info[b.idx]
	} else {
		info = b.outInfo[len(b.outInfo)-1]
	}
	info.Glyph = g
	b.outPush(info)
	if !b.successful {
		return &b.dropped
	}
	return &b.outInfo[len(b.outInfo)-1]
}

// outputRune appends a codepoint slot to the output without consuming
// input.
func (b *Buffer) outputRune(r rune) {
	g := b.outputGlyphIndex(0)
	g.codepoint = r
	g.Glyph = 0
	g.glyphProps = 0
}


// replaceGlyphs replaces numIn current slots with either runes or glyph
// ids (exactly one of the two is given), merging clusters over the
// replaced range.
func (b *Buffer) replaceGlyphs(numIn int, runes []rune, glyphs []GID) {
	if !b.successful {
		return
	}
	numOut := len(runes)
	if numOut == 0 {
		numOut = len(glyphs)
	}
	if numIn > 0 {
		b.mergeClusters(b.idx, b.idx+numIn)
	}
	var orig GlyphInfo
	if b.idx < len(b.Info) {
		orig = b.Info[b.idx]
	} else if n := len(b.outInfo); n != 0 {
		orig = b.outInfo[n-1]
	}
	b.idx += numIn
	for i := 0; i < numOut; i++ {
		info := orig
		if runes != nil {
			info.codepoint = runes[i]
			info.Glyph = 0
		} else {
			info.codepoint = 0
			info.Glyph = glyphs[i]
		}
		b.outPush(info)
	}
}

// deleteGlyph drops the current glyph, folding its cluster into a
// neighbor so cluster coverage stays gapless.
func (b *Buffer) deleteGlyph() {
	cluster := b.Info[b.idx].Cluster
	if b.idx+1 < len(b.Info) && cluster == b.Info[b.idx+1].Cluster {
		// cluster survives in the next glyph
		b.skipGlyph()
		return
	}
	if n := len(b.outInfo); n != 0 {
		if cluster == b.outInfo[n-1].Cluster {
			b.skipGlyph()
			return
		}
		// extend previous output cluster over the hole
		b.outInfo[n-1].Cluster = minInt2(b.outInfo[n-1].Cluster, cluster)
	} else if b.idx+1 < len(b.Info) {
		b.Info[b.idx+1].Cluster = minInt2(b.Info[b.idx+1].Cluster, cluster)
	}
	b.skipGlyph()
}

// deleteGlyphsInplace removes all glyphs matched by filter while in
// in-place mode, keeping Pos aligned.
func (b *Buffer) deleteGlyphsInplace(filter func(*GlyphInfo) bool) {
	j := 0
	for i := range b.Info {
		if filter(&b.Info[i]) {
			cluster := b.Info[i].Cluster
			if i+1 < len(b.Info) && cluster == b.Info[i+1].Cluster {
				continue
			}
			if j != 0 {
				b.Info[j-1].Cluster = minInt2(b.Info[j-1].Cluster, cluster)
			} else if i+1 < len(b.Info) {
				b.Info[i+1].Cluster = minInt2(b.Info[i+1].Cluster, cluster)
			}
			continue
		}
		if j != i {
			b.Info[j] = b.Info[i]
			if len(b.Pos) == len(b.Info) {
				b.Pos[j] = b.Pos[i]
			}
		}
		j++
	}
	b.Info = b.Info[:j]
	if len(b.Pos) > j {
		b.Pos = b.Pos[:j]
	}
}

// --- clusters and flags ------------------------------------------------

// mergeClusters lowers every cluster in Info[start:end) to the minimum
// of the range, extending over adjacent glyphs sharing the boundary
// clusters (including the output array).
func (b *Buffer) mergeClusters(start, end int) {
	if end-start < 2 {
		return
	}
	if b.ClusterLevel == Characters {
		b.unsafeToBreak(start, end)
		return
	}
	cluster := b.Info[start].Cluster
	for i := start + 1; i < end; i++ {
		cluster = minInt2(cluster, b.Info[i].Cluster)
	}
	// extend end
	for end < len(b.Info) && b.Info[end-1].Cluster == b.Info[end].Cluster {
		end++
	}
	// extend start
	for start > b.idx && b.Info[start-1].Cluster == b.Info[start].Cluster {
		start--
	}
	// if we hit the cursor boundary, continue into the output array
	if b.idx == start {
		for i := len(b.outInfo); i != 0 && b.outInfo[i-1].Cluster == b.Info[start].Cluster; i-- {
			b.setCluster(&b.outInfo[i-1], cluster)
		}
	}
	for i := start; i < end; i++ {
		b.setCluster(&b.Info[i], cluster)
	}
}

// mergeOutClusters merges clusters in the output array range.
func (b *Buffer) mergeOutClusters(start, end int) {
	if b.ClusterLevel == Characters {
		return
	}
	if end-start < 2 {
		return
	}
	cluster := b.outInfo[start].Cluster
	for i := start + 1; i < end; i++ {
		cluster = minInt2(cluster, b.outInfo[i].Cluster)
	}
	for start > 0 && b.outInfo[start-1].Cluster == b.outInfo[start].Cluster {
		start--
	}
	for end < len(b.outInfo) && b.outInfo[end-1].Cluster == b.outInfo[end].Cluster {
		end++
	}
	if end == len(b.outInfo) {
		for i := b.idx; i < len(b.Info) && b.Info[i].Cluster == b.outInfo[end-1].Cluster; i++ {
			b.setCluster(&b.Info[i], cluster)
		}
	}
	for i := start; i < end; i++ {
		b.setCluster(&b.outInfo[i], cluster)
	}
}

// setCluster lowers a glyph's cluster, resetting its glyph flags when
// the value changes (the new cluster's flags get merged back later by
// flag propagation).
func (b *Buffer) setCluster(info *GlyphInfo, cluster int) {
	if info.Cluster != cluster {
		info.Mask &^= glyphFlagDefined
	}
	info.Cluster = cluster
}

// markGlyphFlags ORs mask into info[start:end], extended to whole
// clusters on both sides.
func markGlyphFlags(info []GlyphInfo, start, end int, mask GlyphMask) (int, int) {
	if start < len(info) {
		c := info[start].Cluster
		for start > 0 && info[start-1].Cluster == c {
			start--
		}
	}
	if end > start && end <= len(info) {
		c := info[end-1].Cluster
		for end < len(info) && info[end].Cluster == c {
			end++
		}
	}
	for i := start; i < end; i++ {
		info[i].Mask |= mask
	}
	return start, end
}

// unsafeToBreak flags Info[start:end) as unsafe break boundaries.
func (b *Buffer) unsafeToBreak(start, end int) {
	if end-start < 1 {
		return
	}
	mask := GlyphUnsafeToBreak | GlyphUnsafeToConcat
	markGlyphFlags(b.Info, start, end, mask)
	b.scratchFlags |= bsfHasGlyphFlags
}

// unsafeToConcat flags Info[start:end) as unsafe for incremental
// re-concatenation; a no-op unless the caller asked for concat flags.
func (b *Buffer) unsafeToConcat(start, end int) {
	if b.Flags&ProduceUnsafeToConcat == 0 || end-start < 1 {
		return
	}
	markGlyphFlags(b.Info, start, end, GlyphUnsafeToConcat)
	b.scratchFlags |= bsfHasGlyphFlags
}

// unsafeToBreakFromOutbuffer flags the span from output slot start to
// input slot end.
func (b *Buffer) unsafeToBreakFromOutbuffer(start, end int) {
	b.markFromOutbuffer(start, end, GlyphUnsafeToBreak|GlyphUnsafeToConcat)
}

// unsafeToConcatFromOutbuffer is the concat variant of
// unsafeToBreakFromOutbuffer.
func (b *Buffer) unsafeToConcatFromOutbuffer(start, end int) {
	if b.Flags&ProduceUnsafeToConcat == 0 {
		return
	}
	b.markFromOutbuffer(start, end, GlyphUnsafeToConcat)
}

func (b *Buffer) markFromOutbuffer(start, end int, mask GlyphMask) {
	if !b.haveOutput {
		b.markInfoRange(start, end, mask)
		return
	}
	if start > len(b.outInfo) || end < b.idx {
		return
	}
	markGlyphFlags(b.outInfo, start, len(b.outInfo), mask)
	markGlyphFlags(b.Info, b.idx, end, mask)
	b.scratchFlags |= bsfHasGlyphFlags
}

func (b *Buffer) markInfoRange(start, end int, mask GlyphMask) {
	if end-start < 1 {
		return
	}
	markGlyphFlags(b.Info, start, end, mask)
	b.scratchFlags |= bsfHasGlyphFlags
}

// safeToInsertTatweel flags Info[start:end) clusters as tatweel
// insertion points; a no-op unless requested.
func (b *Buffer) safeToInsertTatweel(start, end int) {
	if b.Flags&ProduceSafeToInsertTatweel == 0 {
		return
	}
	markGlyphFlags(b.Info, start, end, GlyphSafeToInsertTatweel)
	b.scratchFlags |= bsfHasGlyphFlags
}

// --- masks -------------------------------------------------------------

// resetMasks sets every glyph mask to mask.
func (b *Buffer) resetMasks(mask GlyphMask) {
	for i := range b.Info {
		b.Info[i].Mask = mask
	}
}

// addMasks ORs mask into every glyph.
func (b *Buffer) addMasks(mask GlyphMask) {
	for i := range b.Info {
		b.Info[i].Mask |= mask
	}
}

// setMasks merges value under mask into the glyphs whose cluster lies
// in [clusterStart, clusterEnd).
func (b *Buffer) setMasks(value, mask GlyphMask, clusterStart, clusterEnd int) {
	if mask == 0 {
		return
	}
	notMask := ^mask
	value &= mask
	if clusterStart == 0 && clusterEnd == maxInt {
		for i := range b.Info {
			b.Info[i].Mask = b.Info[i].Mask&notMask | value
		}
		return
	}
	for i := range b.Info {
		if clusterStart <= b.Info[i].Cluster && b.Info[i].Cluster < clusterEnd {
			b.Info[i].Mask = b.Info[i].Mask&notMask | value
		}
	}
}

// --- order -------------------------------------------------------------

// Reverse reverses the whole buffer (and positions if present).
func (b *Buffer) Reverse() { b.reverseRange(0, len(b.Info)) }

func (b *Buffer) reverseRange(start, end int) {
	for i, j := start, end-1; i < j; i, j = i+1, j-1 {
		b.Info[i], b.Info[j] = b.Info[j], b.Info[i]
	}
	if len(b.Pos) == len(b.Info) {
		for i, j := start, end-1; i < j; i, j = i+1, j-1 {
			b.Pos[i], b.Pos[j] = b.Pos[j], b.Pos[i]
		}
	}
}

// reverseGraphemes reverses the buffer while keeping each grapheme in
// logical order.
func (b *Buffer) reverseGraphemes() {
	b.Reverse()
	iter, count := b.graphemeIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		b.reverseRange(start, end)
	}
}

// --- iterators ---------------------------------------------------------

type rangeIterator struct {
	info []GlyphInfo
	pos  int
	same func(a, b *GlyphInfo) bool
}

func (it *rangeIterator) next() (start, end int) {
	start = it.pos
	if start >= len(it.info) {
		return len(it.info), len(it.info)
	}
	end = start + 1
	for end < len(it.info) && it.same(&it.info[start], &it.info[end]) {
		end++
	}
	it.pos = end
	return start, end
}

// clusterIterator yields maximal runs of equal cluster values.
func (b *Buffer) clusterIterator() (*rangeIterator, int) {
	return &rangeIterator{
		info: b.Info,
		same: func(a, c *GlyphInfo) bool { return a.Cluster == c.Cluster },
	}, len(b.Info)
}

// graphemeIterator yields grapheme runs delimited by the continuation
// property.
func (b *Buffer) graphemeIterator() (*rangeIterator, int) {
	return &rangeIterator{
		info: b.Info,
		same: func(_, c *GlyphInfo) bool { return c.isContinuation() },
	}, len(b.Info)
}

// syllableIterator yields runs of equal syllable serials.
func (b *Buffer) syllableIterator() (*rangeIterator, int) {
	return &rangeIterator{
		info: b.Info,
		same: func(a, c *GlyphInfo) bool { return a.syllable == c.syllable },
	}, len(b.Info)
}

// --- shaping-entry helpers ---------------------------------------------

// setUnicodeProps computes character properties and welds grapheme
// continuations (emoji modifier and ZWJ sequences).
func (b *Buffer) setUnicodeProps() {
	info := b.Info
	for i := 0; i < len(info); i++ {
		info[i].setUProps(b)

		if info[i].isContinuation() && i != 0 {
			continue
		}
		// emoji modifier and ZWJ+pictographic sequences continue the
		// preceding grapheme
		if i != 0 {
			r := info[i].codepoint
			prev := info[i-1].codepoint
			if 0x1F3FB <= r && r <= 0x1F3FF && isExtendedPictographic(prev) {
				info[i].setContinuation()
			} else if isExtendedPictographic(r) && i > 1 &&
				info[i-1].codepoint == 0x200D && isExtendedPictographic(info[i-2].codepoint) {
				info[i].setContinuation()
			}
		}
	}
}

// insertDottedCircle prepends U+25CC when text begins with a standalone
// mark at the start of text.
func (b *Buffer) insertDottedCircle(font *Font) {
	if b.Flags&DoNotInsertDottedCircle != 0 || b.Flags&BeginningOfText == 0 ||
		len(b.Info) == 0 {
		return
	}
	first := &b.Info[0]
	if !first.isUnicodeMark() && !(first.generalCategory() == modifierSymbol &&
		combiningClass(first.codepoint) != 0) {
		return
	}
	if combiningClass(first.codepoint) == 0 && first.generalCategory() != nonSpacingMark {
		return
	}
	if _, ok := font.nominalGlyph(0x25CC); !ok {
		return
	}
	dotted := GlyphInfo{codepoint: 0x25CC, Cluster: first.Cluster, Mask: first.Mask}
	dotted.setUProps(b)
	b.Info = append(b.Info, GlyphInfo{})
	copy(b.Info[1:], b.Info)
	b.Info[0] = dotted
}

// formClusters merges clusters inside each grapheme.
func (b *Buffer) formClusters() {
	if b.scratchFlags&bsfHasNonASCII == 0 {
		return
	}
	if b.ClusterLevel == MonotoneGraphemes {
		iter, count := b.graphemeIterator()
		for start, end := iter.next(); start < count; start, end = iter.next() {
			b.mergeClusters(start, end)
		}
		return
	}
	iter, count := b.graphemeIterator()
	for start, end := iter.next(); start < count; start, end = iter.next() {
		b.unsafeToBreak(start, end)
	}
}

// ensureNativeDirection flips the buffer when the requested direction
// opposes the script's native one, so shaping always sees native order.
func (b *Buffer) ensureNativeDirection() {
	dir := b.Props.Direction
	horiz := horizontalDirectionForScript(b.Props.Script)
	if (dir.isHorizontal() && dir != horiz) || (dir.isVertical() && dir != TopToBottom) {
		b.reverseGraphemes()
		b.Props.Direction = b.Props.Direction.Reverse()
	}
}

// clearPositions allocates and zeroes Pos aligned with Info.
func (b *Buffer) clearPositions() {
	b.haveOutput = false
	if cap(b.Pos) < len(b.Info) {
		b.Pos = make([]GlyphPosition, len(b.Info))
		return
	}
	b.Pos = b.Pos[:len(b.Info)]
	for i := range b.Pos {
		b.Pos[i] = GlyphPosition{}
	}
}

// digest returns a set digest over the buffer's current glyph ids.
func (b *Buffer) digest() setDigest {
	var d setDigest
	for i := range b.Info {
		d.add(gID(b.Info[i].Glyph))
	}
	return d
}

func minInt2(a, b int) int {
	if a < b {
		return a
	}
	return b
}
