package shaping

// Fallback positioning: when the font has no GPOS (or GPOS produced no
// attachment for a mark), marks are placed from glyph extents and
// combining classes, and missing space glyphs get synthesized widths.

// Combining-class values with positional meaning.
const (
	cccNotReordered       uint8 = 0
	cccOverlay            uint8 = 1
	cccNukta              uint8 = 7
	cccKanaVoicing        uint8 = 8
	cccVirama             uint8 = 9
	cccAttachedBelowLeft  uint8 = 200
	cccAttachedBelow      uint8 = 202
	cccAttachedAbove      uint8 = 214
	cccAttachedAboveRight uint8 = 216
	cccBelowLeft          uint8 = 218
	cccBelow              uint8 = 220
	cccBelowRight         uint8 = 222
	cccLeft               uint8 = 224
	cccRight              uint8 = 226
	cccAboveLeft          uint8 = 228
	cccAbove              uint8 = 230
	cccAboveRight         uint8 = 232
	cccDoubleBelow        uint8 = 233
	cccDoubleAbove        uint8 = 234
	cccIotaSubscript      uint8 = 240
)

// recategorizeCombiningClass maps a modified combining class to a
// positional family, with per-character overrides for Thai and Lao.
func recategorizeCombiningClass(u rune, klass uint8) uint8 {
	if klass >= 200 {
		return klass
	}

	// Thai and Lao need per-character decisions
	if u&^0xFF == 0x0E00 {
		if klass == 0 {
			switch u {
			case 0x0E31, 0x0E34, 0x0E35, 0x0E36, 0x0E37, 0x0E47, 0x0E4C, 0x0E4D, 0x0E4E:
				klass = cccAboveRight
			case 0x0EB1, 0x0EB4, 0x0EB5, 0x0EB6, 0x0EB7, 0x0EBB, 0x0ECC, 0x0ECD:
				klass = cccAbove
			case 0x0EBC:
				klass = cccBelow
			}
		} else {
			// Thai virama is below-right
			if u == 0x0E3A {
				klass = cccBelowRight
			}
		}
	}

	switch klass {
	// Hebrew
	case 22, 15, 16, 17, 23, 18, 19, 20, 21, 24, 25: // sheva..qubuts, meteg
		return cccBelow
	case 13: // rafe
		return cccAttachedAbove
	case 10: // shin dot
		return cccAboveRight
	case 11, 14: // sin dot, holam
		return cccAboveLeft
	case 26: // point varika
		return cccAbove
	case 12: // dagesh: stays put
		return klass

	// Arabic and Syriac
	case 28, 29, 31, 32, 27, 34, 35, 36: // fathatan.., shadda, sukun, superscripts
		return cccAbove
	case 30, 33: // kasratan, kasra
		return cccBelow

	// Thai
	case 3: // sara u / sara uu
		return cccBelowRight
	case 107: // mai *
		return cccAboveRight

	// Lao
	case 118:
		return cccBelow
	case 122:
		return cccAbove

	// Tibetan
	case 129:
		return cccBelow
	case 132:
		return cccAbove
	case 131:
		return cccBelow
	}
	return klass
}

// fallbackMarkPositionRecategorizeMarks rewrites mark combining
// classes into positional families before GSUB runs.
func fallbackMarkPositionRecategorizeMarks(buffer *Buffer) {
	for i := range buffer.Info {
		info := &buffer.Info[i]
		if info.generalCategory() != nonSpacingMark {
			continue
		}
		klass := info.modifiedCombiningClass()
		recategorized := recategorizeCombiningClass(info.codepoint, klass)
		if recategorized != klass {
			info.setModifiedCombiningClass(recategorized)
		}
	}
}

func zeroMarkAdvances(buffer *Buffer, start, end int, adjustOffsetsWhenZeroing bool) {
	info := buffer.Info
	for i := start; i < end; i++ {
		if info[i].generalCategory() != nonSpacingMark {
			continue
		}
		if adjustOffsetsWhenZeroing {
			buffer.Pos[i].XOffset -= buffer.Pos[i].XAdvance
			buffer.Pos[i].YOffset -= buffer.Pos[i].YAdvance
		}
		buffer.Pos[i].XAdvance = 0
		buffer.Pos[i].YAdvance = 0
	}
}

// positionMark places one mark against the running cluster extents and
// grows them so further marks of the same class stack outward.
func positionMark(font *Font, buffer *Buffer, baseExtents *glyphExtents, i int, baseArrayCCC uint8) {
	markExtents, ok := font.glyphExtents(buffer.Info[i].Glyph)
	if !ok {
		return
	}
	yGap := font.YScale / 16

	pos := &buffer.Pos[i]
	pos.XOffset, pos.YOffset = 0, 0

	// horizontal alignment by class family
	switch baseArrayCCC {
	case cccDoubleBelow, cccDoubleAbove:
		switch buffer.Props.Direction {
		case LeftToRight:
			pos.XOffset += baseExtents.xBearing + baseExtents.width - markExtents.width/2 - markExtents.xBearing
		case RightToLeft:
			pos.XOffset += baseExtents.xBearing - markExtents.width/2 - markExtents.xBearing
		default:
			pos.XOffset += baseExtents.xBearing + (baseExtents.width-markExtents.width)/2 - markExtents.xBearing
		}
	case cccAttachedBelowLeft, cccBelowLeft, cccAboveLeft:
		pos.XOffset += baseExtents.xBearing - markExtents.xBearing
	case cccAttachedAboveRight, cccBelowRight, cccAboveRight:
		pos.XOffset += baseExtents.xBearing + baseExtents.width - markExtents.width - markExtents.xBearing
	default:
		pos.XOffset += baseExtents.xBearing + (baseExtents.width-markExtents.width)/2 - markExtents.xBearing
	}

	// vertical placement, stacking outward
	switch baseArrayCCC {
	case cccDoubleBelow, cccBelowLeft, cccBelow, cccBelowRight:
		baseExtents.height -= yGap
		fallthrough
	case cccAttachedBelowLeft, cccAttachedBelow:
		pos.YOffset = baseExtents.yBearing + baseExtents.height - markExtents.yBearing
		// never lift a "below" mark above the baseline
		if (yGap > 0) == (pos.YOffset > 0) {
			baseExtents.height -= pos.YOffset
			pos.YOffset = 0
		}
		baseExtents.height += markExtents.height

	case cccDoubleAbove, cccAboveLeft, cccAbove, cccAboveRight:
		baseExtents.yBearing += yGap
		baseExtents.height -= yGap
		fallthrough
	case cccAttachedAbove, cccAttachedAboveRight:
		pos.YOffset = baseExtents.yBearing - (markExtents.yBearing + markExtents.height)
		// don't let an "above" mark sink too far
		if (yGap > 0) != (pos.YOffset > 0) {
			correction := -pos.YOffset / 2
			baseExtents.yBearing += correction
			baseExtents.height -= correction
			pos.YOffset += correction
		}
		baseExtents.yBearing -= markExtents.height
		baseExtents.height += markExtents.height
	}
}

// positionAroundBase stacks the marks of [base+1,end) around base,
// splitting ligature bases into per-component sub-extents.
func positionAroundBase(plan *shapePlan, font *Font, buffer *Buffer, base, end int,
	adjustOffsetsWhenZeroing bool,
) {
	buffer.unsafeToBreak(base, end)

	baseExtents, ok := font.glyphExtents(buffer.Info[base].Glyph)
	if !ok {
		// no extents: zero mark advances and bail
		zeroMarkAdvances(buffer, base+1, end, adjustOffsetsWhenZeroing)
		return
	}
	baseExtents.yBearing += buffer.Pos[base].YOffset
	// use the advance for width: works better for zero-ink bases
	baseExtents.xBearing = 0
	baseExtents.width = font.GlyphHAdvance(buffer.Info[base].Glyph)

	ligID := buffer.Info[base].ligID()
	numLigComponents := int(buffer.Info[base].ligNumComps())

	var xOffset, yOffset Position
	if buffer.Props.Direction.isForward() {
		xOffset -= buffer.Pos[base].XAdvance
		yOffset -= buffer.Pos[base].YAdvance
	}

	horizDir := buffer.Props.Direction
	if !horizDir.isHorizontal() {
		horizDir = horizontalDirectionForScript(buffer.Props.Script)
	}

	componentExtents := baseExtents
	lastLigComponent := -1
	lastCombiningClass := uint8(255)
	clusterExtents := baseExtents

	for i := base + 1; i < end; i++ {
		if infoCC(&buffer.Info[i]) != 0 {
			if numLigComponents > 1 {
				thisLigID := buffer.Info[i].ligID()
				thisLigComponent := int(buffer.Info[i].ligComp()) - 1
				if ligID == 0 || ligID != thisLigID || thisLigComponent >= numLigComponents {
					thisLigComponent = numLigComponents - 1
				}
				if lastLigComponent != thisLigComponent {
					lastLigComponent = thisLigComponent
					lastCombiningClass = 255
					componentExtents = baseExtents
					if horizDir == LeftToRight {
						componentExtents.xBearing += Position(thisLigComponent) * componentExtents.width / Position(numLigComponents)
					} else {
						componentExtents.xBearing += Position(numLigComponents-1-thisLigComponent) * componentExtents.width / Position(numLigComponents)
					}
					componentExtents.width /= Position(numLigComponents)
				}
			}
			thisCombiningClass := infoCC(&buffer.Info[i])
			if lastCombiningClass != thisCombiningClass {
				lastCombiningClass = thisCombiningClass
				clusterExtents = componentExtents
			}
			positionMark(font, buffer, &clusterExtents, i, thisCombiningClass)

			buffer.Pos[i].XAdvance = 0
			buffer.Pos[i].YAdvance = 0
			buffer.Pos[i].XOffset += xOffset
			buffer.Pos[i].YOffset += yOffset
		} else {
			if buffer.Props.Direction.isForward() {
				xOffset -= buffer.Pos[i].XAdvance
				yOffset -= buffer.Pos[i].YAdvance
			} else {
				xOffset += buffer.Pos[i].XAdvance
				yOffset += buffer.Pos[i].YAdvance
			}
		}
	}
}

func positionCluster(plan *shapePlan, font *Font, buffer *Buffer, start, end int,
	adjustOffsetsWhenZeroing bool,
) {
	if end-start < 2 {
		return
	}
	// find bases inside the cluster and their trailing marks
	for i := start; i < end; i++ {
		if infoCC(&buffer.Info[i]) != 0 {
			continue
		}
		j := i + 1
		for j < end && infoCC(&buffer.Info[j]) != 0 {
			j++
		}
		positionAroundBase(plan, font, buffer, i, j, adjustOffsetsWhenZeroing)
		i = j - 1
	}
}

// fallbackMarkPosition positions marks from extents when GPOS did not.
func fallbackMarkPosition(plan *shapePlan, font *Font, buffer *Buffer,
	adjustOffsetsWhenZeroing bool,
) {
	start := 0
	for i := 1; i < len(buffer.Info); i++ {
		if infoCC(&buffer.Info[i]) == 0 {
			positionCluster(plan, font, buffer, start, i, adjustOffsetsWhenZeroing)
			start = i
		}
	}
	positionCluster(plan, font, buffer, start, len(buffer.Info), adjustOffsetsWhenZeroing)
}

// fallbackSpaces synthesizes widths for space codepoints the font does
// not map, from the em size and related glyphs.
func fallbackSpaces(font *Font, buffer *Buffer) {
	horizontal := buffer.Props.Direction.isHorizontal()
	for i := range buffer.Info {
		spaceType := buffer.Info[i].spaceFallbackType()
		if spaceType == notSpace {
			continue
		}
		pos := &buffer.Pos[i]
		switch spaceType {
		case space:
			// the space glyph itself is fine

		case spaceEM, spaceEM2, spaceEM3, spaceEM4, spaceEM5, spaceEM6, spaceEM16:
			denom := Position(spaceType)
			if horizontal {
				pos.XAdvance = (font.XScale + denom/2) / denom
			} else {
				pos.YAdvance = -(font.YScale + denom/2) / denom
			}

		case space4EM18:
			if horizontal {
				pos.XAdvance = font.XScale * 4 / 18
			} else {
				pos.YAdvance = -font.YScale * 4 / 18
			}

		case spaceFigure:
			for d := rune('0'); d <= '9'; d++ {
				if g, ok := font.nominalGlyph(d); ok {
					if horizontal {
						pos.XAdvance = font.GlyphHAdvance(g)
					} else {
						pos.YAdvance = font.glyphVAdvance(g)
					}
					break
				}
			}

		case spacePunct:
			g, ok := font.nominalGlyph('.')
			if !ok {
				g, ok = font.nominalGlyph(',')
			}
			if ok {
				if horizontal {
					pos.XAdvance = font.GlyphHAdvance(g)
				} else {
					pos.YAdvance = font.glyphVAdvance(g)
				}
			}

		case spaceNarrow:
			if g, ok := font.nominalGlyph(0x0020); ok {
				if horizontal {
					pos.XAdvance = font.GlyphHAdvance(g) / 3
				} else {
					pos.YAdvance = font.glyphVAdvance(g) / 3
				}
			}
		}
	}
}
