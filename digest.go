package shaping

import "github.com/go-text/typesetting/font/opentype/tables"

// A set digest is a tiny three-channel Bloom-style filter over glyph
// ids. Each channel hashes the glyph with a different shift, so a miss
// in any channel proves the glyph is not in the set. Lookups use
// digests to reject buffers and glyphs without touching subtable data.
//
// The filter is accurate when a lookup covers a local band of glyph
// ids and degrades to always-maybe when coverage is scattered.

const digestBits = 32 // bits per channel

type digestChannel uint32

// The shift triple is empirical: id bands, low bits, and page-ish
// granularity together reject most non-members.
const (
	digestShift0 = 4
	digestShift1 = 0
	digestShift2 = 9
)

func digestMask(g gID, shift uint) digestChannel {
	return 1 << ((uint32(g) >> shift) & (digestBits - 1))
}

func (c *digestChannel) add(g gID, shift uint) { *c |= digestMask(g, shift) }

func (c *digestChannel) addRange(a, b gID, shift uint) {
	if (uint32(b)>>shift)-(uint32(a)>>shift) >= digestBits-1 {
		*c = ^digestChannel(0)
		return
	}
	mb := digestMask(b, shift)
	ma := digestMask(a, shift)
	var borrow digestChannel
	if mb < ma {
		borrow = 1
	}
	*c |= mb + (mb - ma) - borrow
}

func (c digestChannel) mayHave(g gID, shift uint) bool {
	return c&digestMask(g, shift) != 0
}

func (c digestChannel) mayIntersect(o digestChannel) bool { return c&o != 0 }

// setDigest supports approximate membership queries over glyph ids:
// false means certainly absent, true means maybe present.
type setDigest [3]digestChannel

func (sd *setDigest) add(g gID) {
	sd[0].add(g, digestShift0)
	sd[1].add(g, digestShift1)
	sd[2].add(g, digestShift2)
}

// addRange inserts the inclusive glyph range [a,b].
func (sd *setDigest) addRange(a, b gID) {
	sd[0].addRange(a, b, digestShift0)
	sd[1].addRange(a, b, digestShift1)
	sd[2].addRange(a, b, digestShift2)
}

func (sd *setDigest) addArray(arr []gID) {
	for _, g := range arr {
		sd.add(g)
	}
}

func (sd setDigest) mayHave(g gID) bool {
	return sd[0].mayHave(g, digestShift0) &&
		sd[1].mayHave(g, digestShift1) &&
		sd[2].mayHave(g, digestShift2)
}

// mayIntersect reports whether the two digests can share members.
func (sd setDigest) mayIntersect(o setDigest) bool {
	return sd[0].mayIntersect(o[0]) && sd[1].mayIntersect(o[1]) && sd[2].mayIntersect(o[2])
}

// collectCoverage unions a coverage table's glyphs into the digest.
func (sd *setDigest) collectCoverage(cov tables.Coverage) {
	switch cov := cov.(type) {
	case tables.Coverage1:
		sd.addArray(cov.Glyphs)
	case tables.Coverage2:
		for _, r := range cov.Ranges {
			sd.addRange(r.StartGlyphID, r.EndGlyphID)
		}
	}
}
