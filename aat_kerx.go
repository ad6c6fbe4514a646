package shaping

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// kerx / kern positioning: plain pair subtables (formats 0/2/6) reuse
// the kernPairs driver; format 1 runs a state machine with a kerning
// stack; format 4 anchors marks through the ankr table. Cross-stream
// subtables attach the whole buffer into a cursive chain first, so the
// cross-axis offsets accumulate through attachment propagation.

func aatLayoutPosition(plan *shapePlan, fnt *Font, buffer *Buffer) {
	c := newAatApplyContext(plan, fnt, buffer)
	c.ankr = fnt.face.Ankr
	c.applyKernx(fnt.face.Kerx)
}

func (c *aatApplyContext) applyKernx(kerx font.Kernx) {
	var seenCrossStream bool
	c.buffer.unsafeToConcat(0, len(c.buffer.Info))

	for i, st := range kerx {
		if !st.IsExtended && st.IsVariation() {
			continue
		}
		if c.buffer.Props.Direction.isHorizontal() != st.IsHorizontal() {
			continue
		}
		reverse := st.IsBackwards() != c.buffer.Props.Direction.isBackward()

		tracer().Debugf("kerx: subtable %d (%T)", i, st.Data)

		if !seenCrossStream && st.IsCrossStream() {
			// attach all glyphs into a chain
			seenCrossStream = true
			pos := c.buffer.Pos
			for i := range pos {
				pos[i].attachType = attachTypeCursive
				if c.buffer.Props.Direction.isForward() {
					pos[i].attachChain = -1
				} else {
					pos[i].attachChain = +1
				}
				// the has-attachment scratch flag stays unset: only a
				// nonzero attachment needs post-positioning
			}
		}

		if reverse {
			c.buffer.Reverse()
		}
		c.applyKernxSubtable(st)
		if reverse {
			c.buffer.Reverse()
		}
	}
}

func (c *aatApplyContext) applyKernxSubtable(st font.KernSubtable) bool {
	switch data := st.Data.(type) {
	case font.Kern0:
		if !c.plan.requestedKerning || st.IsBackwards() {
			return false
		}
		kernPairs(data, st.IsCrossStream(), c.font, c.buffer, c.plan.kernMask)
	case font.Kern1:
		crossStream := st.IsCrossStream()
		if !c.plan.requestedKerning && !crossStream {
			return false
		}
		dc := kerx1Driver{c: c, table: data, crossStream: crossStream}
		newStateTableDriver(data.Machine, c.buffer).drive(&dc, c)
	case font.Kern2:
		if !c.plan.requestedKerning || st.IsBackwards() {
			return false
		}
		kernPairs(data, st.IsCrossStream(), c.font, c.buffer, c.plan.kernMask)
	case font.Kern3:
		if !c.plan.requestedKerning || st.IsBackwards() {
			return false
		}
		kernPairs(data, st.IsCrossStream(), c.font, c.buffer, c.plan.kernMask)
	case font.Kern4:
		crossStream := st.IsCrossStream()
		if !c.plan.requestedKerning && !crossStream {
			return false
		}
		dc := kerx4Driver{c: c, table: data, actionType: data.ActionType()}
		newStateTableDriver(data.Machine, c.buffer).drive(&dc, c)
	case font.Kern6:
		if !c.plan.requestedKerning || st.IsBackwards() {
			return false
		}
		kernPairs(data, st.IsCrossStream(), c.font, c.buffer, c.plan.kernMask)
	}
	return true
}

// --- format 1: state machine with kerning stack ------------------------

// Format 1 entry flags.
const (
	kerx1Push   = 0x8000
	kerx1Reset  = 0x2000
)

// kerxCrossStreamReset is the sentinel value detaching a glyph from
// cross-stream kerning.
const kerxCrossStreamReset = -0x8000

type kerx1Driver struct {
	c           *aatApplyContext
	table       font.Kern1
	stack       [8]int
	depth       int
	crossStream bool
}

func (kerx1Driver) inPlace() bool { return true }

func (kerx1Driver) isActionable(_ *stateTableDriver, entry tables.AATStateEntry) bool {
	return entry.AsKernxIndex() != 0xFFFF
}

func (d *kerx1Driver) transition(driver *stateTableDriver, entry tables.AATStateEntry) {
	buffer := driver.buffer
	flags := entry.Flags

	if flags&kerx1Reset != 0 {
		d.depth = 0
	}
	if flags&kerx1Push != 0 {
		if d.depth < len(d.stack) {
			d.stack[d.depth] = buffer.idx
			d.depth++
		} else {
			d.depth = 0 // stack overflow drops the whole run
		}
	}

	if !d.isActionable(driver, entry) || d.depth == 0 {
		return
	}
	kernIdx := entry.AsKernxIndex()
	if int(kernIdx) >= len(d.table.Values) {
		d.depth = 0
		return
	}
	actions := d.table.Values[kernIdx:]
	if len(actions) < d.depth {
		d.depth = 0
		return
	}
	d.applyKernActions(buffer, actions)
}

// applyKernActions pops glyphs off the kerning stack and applies one
// value to each; an odd value ends the list. Cross-stream values
// accumulate on the cross axis, with the reset sentinel detaching the
// glyph and zeroing its offset.
func (d *kerx1Driver) applyKernActions(buffer *Buffer, actions []int16) {
	kernMask := d.c.plan.kernMask
	var last bool
	for !last && d.depth != 0 {
		d.depth--
		idx := d.stack[d.depth]
		v := actions[0]
		actions = actions[1:]
		if idx >= len(buffer.Pos) {
			continue
		}
		last = v&1 != 0
		v &^= 1

		o := &buffer.Pos[idx]
		if buffer.Props.Direction.isHorizontal() {
			if d.crossStream {
				if v == kerxCrossStreamReset {
					o.attachType = attachTypeNone
					o.attachChain = 0
					o.YOffset = 0
				} else if o.attachType != 0 {
					o.YOffset += d.c.font.emScaleY(v)
					buffer.scratchFlags |= bsfHasGPOSAttachment
				}
			} else if buffer.Info[idx].Mask&kernMask != 0 {
				o.XAdvance += d.c.font.emScaleX(v)
				o.XOffset += d.c.font.emScaleX(v)
			}
		} else {
			if d.crossStream {
				// vertical cross-stream kerning is applied, unlike
				// CoreText
				if v == kerxCrossStreamReset {
					o.attachType = attachTypeNone
					o.attachChain = 0
					o.XOffset = 0
				} else if o.attachType != 0 {
					o.XOffset += d.c.font.emScaleX(v)
					buffer.scratchFlags |= bsfHasGPOSAttachment
				}
			} else if buffer.Info[idx].Mask&kernMask != 0 {
				o.YAdvance += d.c.font.emScaleY(v)
				o.YOffset += d.c.font.emScaleY(v)
			}
		}
	}
}

// --- format 4: mark anchoring ------------------------------------------

const kerx4Mark = 0x8000

type kerx4Driver struct {
	c          *aatApplyContext
	table      font.Kern4
	mark       int
	markSet    bool
	actionType uint8
}

func (kerx4Driver) inPlace() bool { return true }

func (kerx4Driver) isActionable(_ *stateTableDriver, entry tables.AATStateEntry) bool {
	return entry.AsKernxIndex() != 0xFFFF
}

func (d *kerx4Driver) transition(driver *stateTableDriver, entry tables.AATStateEntry) {
	buffer := driver.buffer

	ankrActionIndex := entry.AsKernxIndex()
	if d.markSet && ankrActionIndex != 0xFFFF && buffer.idx < len(buffer.Pos) {
		o := buffer.curPos(0)
		switch d.actionType {
		case 0: // control points, indexed into the glyph outline
			anchors, ok := d.table.Anchors.(tables.KerxAnchorControls)
			if !ok || int(ankrActionIndex) >= len(anchors.Anchors) {
				break
			}
			action := anchors.Anchors[ankrActionIndex]
			markX, markY, okMark := d.c.font.getGlyphContourPointForOrigin(
				buffer.Info[d.mark].Glyph, action.Mark, LeftToRight)
			currX, currY, okCurr := d.c.font.getGlyphContourPointForOrigin(
				buffer.cur(0).Glyph, action.Current, LeftToRight)
			if !okMark || !okCurr {
				return
			}
			o.XOffset = markX - currX
			o.YOffset = markY - currY

		case 1: // anchor points, indexed into the ankr table
			anchors, ok := d.table.Anchors.(tables.KerxAnchorAnchors)
			if !ok || int(ankrActionIndex) >= len(anchors.Anchors) {
				break
			}
			action := anchors.Anchors[ankrActionIndex]
			markAnchor := d.c.ankr.GetAnchor(gID(buffer.Info[d.mark].Glyph), int(action.Mark))
			currAnchor := d.c.ankr.GetAnchor(gID(buffer.cur(0).Glyph), int(action.Current))
			o.XOffset = d.c.font.emScaleX(markAnchor.X) - d.c.font.emScaleX(currAnchor.X)
			o.YOffset = d.c.font.emScaleY(markAnchor.Y) - d.c.font.emScaleY(currAnchor.Y)

		case 2: // coordinates carried in the action
			anchors, ok := d.table.Anchors.(tables.KerxAnchorCoordinates)
			if !ok || int(ankrActionIndex) >= len(anchors.Anchors) {
				break
			}
			action := anchors.Anchors[ankrActionIndex]
			o.XOffset = d.c.font.emScaleX(action.MarkX) - d.c.font.emScaleX(action.CurrentX)
			o.YOffset = d.c.font.emScaleY(action.MarkY) - d.c.font.emScaleY(action.CurrentY)
		}
		o.attachType = attachTypeMark
		o.attachChain = int16(d.mark - buffer.idx)
		buffer.scratchFlags |= bsfHasGPOSAttachment
	}

	if entry.Flags&kerx4Mark != 0 {
		d.markSet = true
		d.mark = buffer.idx
	}
}
