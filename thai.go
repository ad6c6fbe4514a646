package shaping

// The Thai shaper has no syllable machine. It decomposes SARA AM into
// NIKHAHIT + SARA AA (with the nikhahit reordered before any tone
// mark), and remaps to the private-use encodings Windows-era Thai
// fonts expect when the font has no mark positioning of its own.

type shaperThai struct {
	shaperDefaults
}

func (shaperThai) name() string { return "thai" }

func (shaperThai) marksBehavior() (zeroWidthMarksMode, bool) {
	return zeroWidthMarksByGdefLate, false
}

func isSaraAm(u rune) bool     { return u == 0x0E33 || u == 0x0EB3 }
func nikhahitFromSaraAm(u rune) rune { return u - 0x0E33 + 0x0E4D }
func saraAaFromSaraAm(u rune) rune   { return u - 1 }
func isToneMark(u rune) bool {
	return (0x0E34 <= u && u <= 0x0E37) || (0x0E47 <= u && u <= 0x0E4E) ||
		(0x0EB4 <= u && u <= 0x0EB7) || (0x0EC8 <= u && u <= 0x0ECD)
}

func (sh shaperThai) preprocessText(plan *shapePlan, buffer *Buffer, font *Font) {
	// SARA AM decomposes into NIKHAHIT + SARA AA, and the NIKHAHIT
	// slides backward over tone marks so it attaches to the consonant.
	count := len(buffer.Info)
	buffer.clearOutput()
	for buffer.idx = 0; buffer.idx < count && buffer.successful; {
		u := buffer.cur(0).codepoint
		if !isSaraAm(u) {
			buffer.nextGlyph()
			continue
		}
		buffer.replaceGlyphs(1, []rune{nikhahitFromSaraAm(u), saraAaFromSaraAm(u)}, nil)
		if !buffer.successful {
			break
		}
		// walk the nikhahit back over tone marks
		end := len(buffer.outInfo)
		start := end - 2
		for start > 0 && isToneMark(buffer.outInfo[start-1].codepoint) {
			start--
		}
		if start < end-2 {
			nikhahit := buffer.outInfo[end-2]
			copy(buffer.outInfo[start+1:end-1], buffer.outInfo[start:end-2])
			buffer.outInfo[start] = nikhahit
		}
		buffer.mergeOutClusters(start, end)
	}
	buffer.sync()

	if plan.map_.foundScript[0] {
		return
	}
	// Old-style Thai fonts: shift marks into the font's private-use
	// variants by context (no GSUB/GPOS to do it for us).
	sh.shiftPUAContextual(buffer, font)
}

// Thai PUA shifting: the legacy encodings keep shifted-left and
// shifted-down variants of the upper and lower vowels and tone marks
// at fixed offsets in the PUA block (the Windows layout at U+F700).
func (shaperThai) shiftPUAContextual(buffer *Buffer, font *Font) {
	isBaseWithDescender := func(u rune) bool {
		return u == 0x0E0D || u == 0x0E10 // YO YING, THO THAN
	}
	isBaseWithAscender := func(u rune) bool {
		switch u {
		case 0x0E1B, 0x0E1D, 0x0E1F, 0x0E2C:
			return true
		}
		return false
	}
	puaShiftLeft := func(u rune) rune {
		// upper vowels and tone marks shifted left for tall bases
		switch u {
		case 0x0E48, 0x0E49, 0x0E4A, 0x0E4B, 0x0E4C:
			return u - 0x0E48 + 0xF713
		case 0x0E31:
			return 0xF710
		case 0x0E34, 0x0E35, 0x0E36, 0x0E37:
			return u - 0x0E34 + 0xF701
		case 0x0E4D:
			return 0xF711
		}
		return u
	}
	puaShiftDown := func(u rune) rune {
		// lower vowels shifted down for descender bases
		switch u {
		case 0x0E38:
			return 0xF718
		case 0x0E39:
			return 0xF719
		case 0x0E3A:
			return 0xF71A
		}
		return u
	}

	info := buffer.Info
	for i := 1; i < len(info); i++ {
		base := info[i-1].codepoint
		u := info[i].codepoint
		var shifted rune
		switch {
		case isBaseWithAscender(base):
			shifted = puaShiftLeft(u)
		case isBaseWithDescender(base):
			shifted = puaShiftDown(u)
		default:
			continue
		}
		if shifted != u && font.hasGlyph(shifted) {
			info[i].codepoint = shifted
		}
	}
}
