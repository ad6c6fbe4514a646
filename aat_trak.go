package shaping

import (
	"github.com/go-text/typesetting/font/opentype/tables"
)

// trak: size-interpolated tracking, applied to grapheme starts only.
// Half the tracking also moves the offset, so the glyph stays centered
// in its widened advance.

func aatLayoutTrack(plan *shapePlan, fnt *Font, buffer *Buffer) {
	ptem := fnt.Ptem
	if ptem <= 0 {
		return
	}
	trak := fnt.face.Trak
	trakMask := plan.trakMask

	if buffer.Props.Direction.isHorizontal() {
		tracking := trakTracking(trak.Horiz, ptem, 0)
		advanceToAdd := fnt.emScalefX(tracking)
		offsetToAdd := fnt.emScalefX(tracking / 2)
		iter, count := buffer.graphemeIterator()
		for start, _ := iter.next(); start < count; start, _ = iter.next() {
			if buffer.Info[start].Mask&trakMask == 0 {
				continue
			}
			buffer.Pos[start].XAdvance += advanceToAdd
			buffer.Pos[start].XOffset += offsetToAdd
		}
		return
	}

	tracking := trakTracking(trak.Vert, ptem, 0)
	advanceToAdd := fnt.emScalefY(tracking)
	offsetToAdd := fnt.emScalefY(tracking / 2)
	iter, count := buffer.graphemeIterator()
	for start, _ := iter.next(); start < count; start, _ = iter.next() {
		if buffer.Info[start].Mask&trakMask == 0 {
			continue
		}
		buffer.Pos[start].YAdvance += advanceToAdd
		buffer.Pos[start].YOffset += offsetToAdd
	}
}

// trakInterpolateAt interpolates the per-size tracking between size
// entries idx and idx+1.
func trakInterpolateAt(td tables.TrackData, idx int, targetSize float32, trackSizes []int16) float32 {
	s0 := td.SizeTable[idx]
	s1 := td.SizeTable[idx+1]
	var t float32
	if s0 != s1 {
		t = (targetSize - s0) / (s1 - s0)
	}
	return t*float32(trackSizes[idx+1]) + (1-t)*float32(trackSizes[idx])
}

// trakTracking selects the track entry for trackValue and interpolates
// its per-size values at ptem. Returns 0 when no entry matches.
func trakTracking(td tables.TrackData, ptem float32, trackValue float32) float32 {
	var entry *tables.TrackTableEntry
	for i := range td.TrackTable {
		// entries appear sorted by track value, but the format does
		// not promise it, so scan
		if td.TrackTable[i].Track == trackValue {
			entry = &td.TrackTable[i]
			break
		}
	}
	if entry == nil {
		return 0
	}
	if len(td.SizeTable) == 0 {
		return 0
	}
	if len(td.SizeTable) == 1 {
		return float32(entry.PerSizeTracking[0])
	}
	var sizeIndex int
	for sizeIndex = range td.SizeTable {
		if td.SizeTable[sizeIndex] >= ptem {
			break
		}
	}
	if sizeIndex != 0 {
		sizeIndex--
	}
	if sizeIndex >= len(td.SizeTable)-1 {
		sizeIndex = len(td.SizeTable) - 2
	}
	return trakInterpolateAt(td, sizeIndex, ptem, entry.PerSizeTracking)
}
