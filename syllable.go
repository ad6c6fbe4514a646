package shaping

// Shared machinery for the syllabic shapers (Indic, Khmer, Myanmar,
// USE): syllable serial assignment and dotted-circle repair of broken
// clusters.

// A syllable value packs a 4-bit syllable type into the low nibble and
// a wrapping serial into the high nibble, so glyphs of one syllable
// share a value and consecutive syllables differ.
func packSyllable(serial uint8, kind uint8) uint8 {
	return serial<<4 | kind&0x0F
}

func syllableKind(syllable uint8) uint8 { return syllable & 0x0F }

// syllabicScanner drives a hand-written syllable grammar over the
// per-glyph categories. Productions test and consume categories with
// backtracking via save/restore.
type syllabicScanner struct {
	cats []uint8
	pos  int
}

func (s *syllabicScanner) atEnd() bool { return s.pos >= len(s.cats) }

func (s *syllabicScanner) peek() uint8 {
	if s.atEnd() {
		return 0xFF
	}
	return s.cats[s.pos]
}

// accept consumes the next category if it is in set.
func (s *syllabicScanner) accept(set ...uint8) bool {
	if s.atEnd() {
		return false
	}
	c := s.cats[s.pos]
	for _, want := range set {
		if c == want {
			s.pos++
			return true
		}
	}
	return false
}

// acceptRun consumes a maximal run of categories in set.
func (s *syllabicScanner) acceptRun(set ...uint8) int {
	n := 0
	for s.accept(set...) {
		n++
	}
	return n
}

func (s *syllabicScanner) save() int        { return s.pos }
func (s *syllabicScanner) restore(mark int) { s.pos = mark }

// tagSyllables walks the buffer with scan, which must return the
// syllable kind and consume at least one category, and writes packed
// syllable values.
func tagSyllables(buffer *Buffer, cats []uint8, scan func(s *syllabicScanner) uint8) {
	s := &syllabicScanner{cats: cats}
	var serial uint8
	for !s.atEnd() {
		start := s.pos
		kind := scan(s)
		if s.pos == start {
			s.pos++ // defensive progress; scan must consume
		}
		value := packSyllable(serial, kind)
		for i := start; i < s.pos; i++ {
			buffer.Info[i].syllable = value
		}
		serial++
		if serial == 16 {
			serial = 1
		}
	}
}

// hasBrokenSyllables reports whether any syllable carries kind broken.
func hasBrokenSyllables(buffer *Buffer, brokenKind uint8) bool {
	for i := range buffer.Info {
		if syllableKind(buffer.Info[i].syllable) == brokenKind {
			return true
		}
	}
	return false
}

// insertDottedCircles places U+25CC at the head of every broken
// syllable, after a leading repha when repha category is given (pass
// 0xFF for none). The new glyph joins the syllable.
func insertDottedCircles(font *Font, buffer *Buffer, brokenKind uint8,
	dottedCircleCategory uint8, rephaCategory uint8, dottedCirclePosition uint8,
) {
	if buffer.Flags&DoNotInsertDottedCircle != 0 {
		return
	}
	if !hasBrokenSyllables(buffer, brokenKind) {
		return
	}
	dottedGID, ok := font.nominalGlyph(0x25CC)
	if !ok {
		return
	}
	buffer.scratchFlags |= bsfHasBrokenSyllable

	var dottedCircle GlyphInfo
	dottedCircle.codepoint = 0x25CC
	dottedCircle.setUProps(buffer)
	dottedCircle.Glyph = dottedGID
	dottedCircle.complexCategory = dottedCircleCategory
	dottedCircle.complexAux = dottedCirclePosition

	count := len(buffer.Info)
	buffer.clearOutput()
	for buffer.idx = 0; buffer.idx < count && buffer.successful; {
		syllable := buffer.cur(0).syllable
		if syllableKind(syllable) != brokenKind || (len(buffer.outInfo) > 0 &&
			buffer.outInfo[len(buffer.outInfo)-1].syllable == syllable) {
			buffer.nextGlyph()
			continue
		}
		// insert after a possible leading repha
		if rephaCategory != 0xFF && buffer.cur(0).complexCategory == rephaCategory {
			buffer.nextGlyph()
		}
		ins := dottedCircle
		ins.Cluster = buffer.cur(0).Cluster
		ins.Mask = buffer.cur(0).Mask
		ins.syllable = syllable
		buffer.outPush(ins)
	}
	buffer.sync()
}
