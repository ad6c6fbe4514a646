package shaping

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// The AAT state-machine driver shared by morx and kerx subtables. A
// driver context supplies the per-kind transition action; the driver
// reads glyph classes, walks (state, class) entries, and maintains the
// safe-to-break analysis.

const (
	aatStateStartOfText = uint16(0)
	aatClassEndOfText   = uint16(0)

	aatDontAdvance = 0x4000
)

type aatApplyContext struct {
	plan   *shapePlan
	font   *Font
	buffer *Buffer

	gdef *tables.GDEF
	ankr tables.Ankr

	rangeFlags    []rangeFlags
	subtableFlags uint32
}

func newAatApplyContext(plan *shapePlan, font *Font, buffer *Buffer) *aatApplyContext {
	return &aatApplyContext{
		plan:   plan,
		font:   font,
		buffer: buffer,
		gdef:   font.gdef(),
	}
}

func (c *aatApplyContext) hasAnyFlags(flags uint32) bool {
	for _, fl := range c.rangeFlags {
		if fl.flags&flags != 0 {
			return true
		}
	}
	return false
}

// aatDriverContext is implemented per subtable kind.
type aatDriverContext interface {
	// inPlace reports whether the subtable edits the buffer without
	// changing glyph count.
	inPlace() bool
	// isActionable reports whether an entry does anything beyond a
	// state change.
	isActionable(d *stateTableDriver, entry tables.AATStateEntry) bool
	// transition performs the entry's action.
	transition(d *stateTableDriver, entry tables.AATStateEntry)
}

type stateTableDriver struct {
	buffer  *Buffer
	machine font.AATStateTable
}

func newStateTableDriver(machine font.AATStateTable, buffer *Buffer) *stateTableDriver {
	return &stateTableDriver{machine: machine, buffer: buffer}
}

// drive runs the machine over the buffer. Unmapped glyphs read the
// default class 1; past the end the machine sees END_OF_TEXT.
func (d *stateTableDriver) drive(c aatDriverContext, ac *aatApplyContext) {
	buffer := d.buffer
	if !c.inPlace() {
		buffer.clearOutput()
	}

	state := aatStateStartOfText
	// with a single range the caller already checked the flags
	lastRange := -1
	if len(ac.rangeFlags) > 1 {
		lastRange = 0
	}
	for buffer.idx = 0; ; {
		if lastRange != -1 {
			rangeIdx := lastRange
			if buffer.idx < len(buffer.Info) {
				cluster := buffer.cur(0).Cluster
				for cluster < ac.rangeFlags[rangeIdx].clusterFirst {
					rangeIdx--
				}
				for cluster > ac.rangeFlags[rangeIdx].clusterLast {
					rangeIdx++
				}
				lastRange = rangeIdx
			}
			if ac.rangeFlags[rangeIdx].flags&ac.subtableFlags == 0 {
				if buffer.idx == len(buffer.Info) {
					break
				}
				state = aatStateStartOfText
				buffer.nextGlyph()
				continue
			}
		}

		class := aatClassEndOfText
		if buffer.idx < len(buffer.Info) {
			class = d.machine.GetClass(buffer.cur(0).Glyph)
		}
		entry := d.machine.GetEntry(state, class)
		nextState := entry.NewState

		// It is safe to break before the current glyph iff this
		// transition carries no action, restarting the machine here
		// would reach the same state with no actions either, and no
		// end-of-text action would fire after the previous glyph.
		isActionable := c.isActionable(d, entry)
		wouldbe := d.machine.GetEntry(aatStateStartOfText, class)
		safeToBreak := !isActionable &&
			(state == aatStateStartOfText ||
				(entry.Flags&aatDontAdvance != 0 && nextState == aatStateStartOfText) ||
				(!c.isActionable(d, wouldbe) &&
					nextState == wouldbe.NewState &&
					entry.Flags&aatDontAdvance == wouldbe.Flags&aatDontAdvance)) &&
			!c.isActionable(d, d.machine.GetEntry(state, aatClassEndOfText))

		if !safeToBreak && buffer.backtrackLen() != 0 && buffer.idx < len(buffer.Info) {
			buffer.unsafeToBreakFromOutbuffer(buffer.backtrackLen()-1, buffer.idx+1)
		}

		c.transition(d, entry)
		state = nextState

		if buffer.idx == len(buffer.Info) || !buffer.successful {
			break
		}
		if entry.Flags&aatDontAdvance == 0 {
			buffer.nextGlyph()
		} else {
			// the op budget forces progress on hostile fonts
			if buffer.maxOps <= 0 {
				buffer.maxOps--
				buffer.nextGlyph()
			}
			buffer.maxOps--
		}
	}

	if !c.inPlace() {
		buffer.sync()
	}
}
