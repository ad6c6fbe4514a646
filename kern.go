package shaping

import (
	"github.com/go-text/typesetting/font"
)

// The 'kern'-table path: pair kerning applied with the skipping
// iterator when GPOS has no kern feature to offer. Formats 0, 2 and 6
// are plain pair tables and are applied here, cross-stream ones
// included. Format 1 state-machine subtables of 'kern' are skipped and
// not applied anywhere: the AAT driver runs only over 'kerx'.

// hasMachineKerning reports whether any kern subtable is a state
// machine (format 1).
func hasMachineKerning(kern font.Kernx) bool {
	for _, st := range kern {
		if _, ok := st.Data.(font.Kern1); ok {
			return true
		}
	}
	return false
}

// hasCrossKerning reports whether any kern subtable kerns across the
// stream.
func hasCrossKerning(kern font.Kernx) bool {
	for _, st := range kern {
		if st.IsCrossStream() {
			return true
		}
	}
	return false
}

// layoutKern applies the kern table in OT mode.
func layoutKern(plan *shapePlan, fnt *Font, buffer *Buffer) {
	horizontal := buffer.Props.Direction.isHorizontal()
	for i, st := range fnt.face.Kern {
		if st.IsVariation() {
			continue
		}
		if horizontal != st.IsHorizontal() {
			continue
		}
		data, ok := st.Data.(font.SimpleKerns)
		if !ok {
			// format 1 state machines are not applied on this path
			continue
		}
		tracer().Debugf("kern: subtable %d", i)
		kernPairs(data, st.IsCrossStream(), fnt, buffer, plan.kernMask)
	}
}

// kernPairs walks glyph pairs under the kern mask, splitting each kern
// value between the two glyphs. Cross-stream values set the cross-axis
// offset instead.
func kernPairs(driver font.SimpleKerns, crossStream bool, fnt *Font, buffer *Buffer, kernMask GlyphMask) {
	buffer.unsafeToConcat(0, len(buffer.Info))

	c := new(applyContext)
	c.reset(tableGPOS, fnt, buffer)
	c.setLookupMask(kernMask)
	iter := &c.iterInput

	horizontal := buffer.Props.Direction.isHorizontal()
	info := buffer.Info
	pos := buffer.Pos

	for idx := 0; idx < len(info); {
		if info[idx].Mask&kernMask == 0 {
			idx++
			continue
		}
		iter.reset(idx, 1)
		ok, _ := iter.next()
		if !ok {
			idx++
			continue
		}
		j := iter.idx

		raw := driver.KernPair(info[idx].Glyph, info[j].Glyph)
		var kern Position
		if horizontal {
			kern = fnt.emScaleX(raw)
		} else {
			kern = fnt.emScaleY(raw)
		}
		switch {
		case kern == 0:
			// nothing
		case !crossStream && horizontal:
			kern1 := kern >> 1
			kern2 := kern - kern1
			pos[idx].XAdvance += kern1
			pos[j].XAdvance += kern2
			pos[j].XOffset += kern2
			buffer.unsafeToBreak(idx, j+1)
		case !crossStream:
			kern1 := kern >> 1
			kern2 := kern - kern1
			pos[idx].YAdvance += kern1
			pos[j].YAdvance += kern2
			pos[j].YOffset += kern2
			buffer.unsafeToBreak(idx, j+1)
		case horizontal:
			pos[j].YOffset = kern
			buffer.scratchFlags |= bsfHasGPOSAttachment
		default:
			pos[j].XOffset = kern
			buffer.scratchFlags |= bsfHasGPOSAttachment
		}
		idx = j
	}
}

// fallbackKern is the positioning path when no GPOS kern, kerx or kern
// table exists. There is no kerning source left at this point; the
// pass exists so requested kerning degrades silently rather than
// failing the call.
func fallbackKern(plan *shapePlan, fnt *Font, buffer *Buffer) {
	if !plan.requestedKerning {
		return
	}
	tracer().Debugf("kern: no kerning source, fallback pass is empty")
}
