package shaping

import (
	"math"
	"math/bits"
	"sort"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// featureFlags guide how one requested feature is resolved and how its
// lookups behave at run time.
type featureFlags uint8

const (
	// ffGlobal applies to all characters; a global boolean feature
	// needs no mask bits of its own.
	ffGlobal featureFlags = 1 << iota
	// ffHasFallback keeps the mask bit even if the font lacks the
	// feature, because a fallback implementation exists.
	ffHasFallback
	// ffManualZWNJ keeps ZWNJ visible when matching context.
	ffManualZWNJ
	// ffManualZWJ keeps ZWJ visible when matching input.
	ffManualZWJ
	// ffGlobalSearch looks for the feature in the whole feature list
	// when the language system lacks it.
	ffGlobalSearch
	// ffRandom selects alternates randomly (the 'rand' feature).
	ffRandom
	// ffPerSyllable contains lookup application within one syllable.
	ffPerSyllable

	ffNone                featureFlags = 0
	ffManualJoiners                    = ffManualZWNJ | ffManualZWJ
	ffGlobalManualJoiners              = ffGlobal | ffManualJoiners
	ffGlobalHasFallback                = ffGlobal | ffHasFallback
)

const (
	mapMaxBits  = 8
	mapMaxValue = (1 << mapMaxBits) - 1

	// randomFeatureValue is the feature value requesting random
	// alternate selection.
	randomFeatureValue = mapMaxValue

	globalBitShift = 8*4 - 1
	globalBitMask  = 1 << globalBitShift
)

type mapFeature struct {
	tag   tables.Tag
	flags featureFlags
}

type featureInfo struct {
	tag          tables.Tag
	maxValue     uint32
	flags        featureFlags
	defaultValue uint32 // what unset glyphs take, for non-global features
	stage        [2]int // GSUB, GPOS
}

// pauseFunc runs between lookup stages; it returns true when new glyph
// ids may have entered the buffer (forcing a digest refresh).
type pauseFunc func(plan *shapePlan, font *Font, buffer *Buffer) bool

type stageInfo struct {
	pauseFunc pauseFunc
	index     int
}

// mapBuilder accumulates feature requests, then compiles them into a
// shapeMap: masks assigned, lookups collected per stage, pauses
// recorded as stage terminators.
type mapBuilder struct {
	face  *font.Font
	props SegmentProperties

	stages       [2][]stageInfo
	featureInfos []featureInfo

	scriptIndex   [2]int
	languageIndex [2]int
	currentStage  [2]int
	chosenScript  [2]tables.Tag
	foundScript   [2]bool
}

func newMapBuilder(face *font.Font, props SegmentProperties) mapBuilder {
	var mb mapBuilder
	mb.face = face
	mb.props = props

	// resolve script and language once; features not reachable under
	// the selection never cost mask bits
	scriptTags, languageTags := resolveSegmentTags(props.Script, props.Language)

	mb.scriptIndex[0], mb.chosenScript[0], mb.foundScript[0] = selectScript(&face.GSUB.Layout, scriptTags)
	mb.languageIndex[0], _ = selectLanguage(&face.GSUB.Layout, mb.scriptIndex[0], languageTags)

	mb.scriptIndex[1], mb.chosenScript[1], mb.foundScript[1] = selectScript(&face.GPOS.Layout, scriptTags)
	mb.languageIndex[1], _ = selectLanguage(&face.GPOS.Layout, mb.scriptIndex[1], languageTags)

	return mb
}

func (mb *mapBuilder) addFeatureExt(tag tables.Tag, flags featureFlags, value uint32) {
	info := featureInfo{
		tag:      tag,
		maxValue: value,
		flags:    flags,
		stage:    mb.currentStage,
	}
	if flags&ffGlobal != 0 {
		info.defaultValue = value
	}
	mb.featureInfos = append(mb.featureInfos, info)
}

func (mb *mapBuilder) enableFeatureExt(tag tables.Tag, flags featureFlags, value uint32) {
	mb.addFeatureExt(tag, ffGlobal|flags, value)
}

func (mb *mapBuilder) enableFeature(tag tables.Tag)  { mb.enableFeatureExt(tag, ffNone, 1) }
func (mb *mapBuilder) addFeature(tag tables.Tag)     { mb.addFeatureExt(tag, ffNone, 1) }
func (mb *mapBuilder) disableFeature(tag tables.Tag) { mb.addFeatureExt(tag, ffGlobal, 0) }

func (mb *mapBuilder) addPause(tableIndex int, fn pauseFunc) {
	mb.stages[tableIndex] = append(mb.stages[tableIndex], stageInfo{
		index:     mb.currentStage[tableIndex],
		pauseFunc: fn,
	})
	mb.currentStage[tableIndex]++
}

func (mb *mapBuilder) addGSUBPause(fn pauseFunc) { mb.addPause(0, fn) }
func (mb *mapBuilder) addGPOSPause(fn pauseFunc) { mb.addPause(1, fn) }

func (mb *mapBuilder) hasFeature(tag tables.Tag) bool {
	layouts := [2]*font.Layout{&mb.face.GSUB.Layout, &mb.face.GPOS.Layout}
	for tableIndex, l := range layouts {
		if findFeatureForLang(l, mb.scriptIndex[tableIndex], mb.languageIndex[tableIndex], tag) != noFeatureIndex {
			return true
		}
	}
	return false
}

// compile assigns mask bits and collects the staged lookup lists.
//
// Mask layout: one bit (the topmost) is the always-on global bit used
// by boolean global features; other features get up to eight bits
// each, low bits first. Features that no longer fit are dropped.
func (mb *mapBuilder) compile(m *shapeMap, key shapePlanKey) {
	m.globalMask = globalBitMask

	var (
		requiredFeatureIndex [2]uint16
		requiredFeatureTag   [2]tables.Tag
		requiredFeatureStage [2]int
	)

	layouts := [2]*font.Layout{&mb.face.GSUB.Layout, &mb.face.GPOS.Layout}

	m.chosenScript = mb.chosenScript
	m.foundScript = mb.foundScript
	requiredFeatureIndex[0], requiredFeatureTag[0] = getRequiredFeature(layouts[0], mb.scriptIndex[0], mb.languageIndex[0])
	requiredFeatureIndex[1], requiredFeatureTag[1] = getRequiredFeature(layouts[1], mb.scriptIndex[1], mb.languageIndex[1])

	// sort feature requests by tag and merge duplicates: a later global
	// request takes over flags and values, a later non-global one clears
	// the global flag and raises the max value; stages take the minimum
	if len(mb.featureInfos) != 0 {
		sort.SliceStable(mb.featureInfos, func(i, j int) bool {
			return mb.featureInfos[i].tag < mb.featureInfos[j].tag
		})
		j := 0
		for i, feat := range mb.featureInfos {
			if i == 0 {
				continue
			}
			if feat.tag != mb.featureInfos[j].tag {
				j++
				mb.featureInfos[j] = feat
				continue
			}
			if feat.flags&ffGlobal != 0 {
				mb.featureInfos[j].flags |= ffGlobal
				mb.featureInfos[j].maxValue = feat.maxValue
				mb.featureInfos[j].defaultValue = feat.defaultValue
			} else {
				if mb.featureInfos[j].flags&ffGlobal != 0 {
					mb.featureInfos[j].flags ^= ffGlobal
				}
				mb.featureInfos[j].maxValue = max32(mb.featureInfos[j].maxValue, feat.maxValue)
				// the default value is inherited from the earlier entry
			}
			mb.featureInfos[j].flags |= feat.flags & ffHasFallback
			mb.featureInfos[j].stage[0] = minInt2(mb.featureInfos[j].stage[0], feat.stage[0])
			mb.featureInfos[j].stage[1] = minInt2(mb.featureInfos[j].stage[1], feat.stage[1])
		}
		mb.featureInfos = mb.featureInfos[:j+1]
	}

	// allocate mask bits, skipping the glyph-flag bits
	nextBit := bits.OnesCount32(glyphFlagDefined) + 1

	for _, info := range mb.featureInfos {
		bitsNeeded := 0
		if info.flags&ffGlobal != 0 && info.maxValue == 1 {
			// uses the global bit
			bitsNeeded = 0
		} else {
			bitsNeeded = minInt2(mapMaxBits, bits.Len32(info.maxValue))
		}
		if info.maxValue == 0 || nextBit+bitsNeeded >= globalBitShift {
			continue // feature disabled or out of bits
		}

		var (
			found        bool
			featureIndex [2]uint16
		)
		for tableIndex, l := range layouts {
			if requiredFeatureTag[tableIndex] == info.tag {
				requiredFeatureStage[tableIndex] = info.stage[tableIndex]
			}
			featureIndex[tableIndex] = findFeatureForLang(l, mb.scriptIndex[tableIndex], mb.languageIndex[tableIndex], info.tag)
			found = found || featureIndex[tableIndex] != noFeatureIndex
		}
		if !found && info.flags&ffGlobalSearch != 0 {
			for tableIndex, l := range layouts {
				featureIndex[tableIndex] = findFeature(l, info.tag)
				found = found || featureIndex[tableIndex] != noFeatureIndex
			}
		}
		if !found && info.flags&ffHasFallback == 0 {
			continue
		}

		var mf mappedFeature
		mf.tag = info.tag
		mf.index = featureIndex
		mf.stage = info.stage
		mf.autoZWNJ = info.flags&ffManualZWNJ == 0
		mf.autoZWJ = info.flags&ffManualZWJ == 0
		mf.random = info.flags&ffRandom != 0
		mf.perSyllable = info.flags&ffPerSyllable != 0
		if info.flags&ffGlobal != 0 && info.maxValue == 1 {
			mf.shift = globalBitShift
			mf.mask = globalBitMask
		} else {
			mf.shift = nextBit
			mf.mask = (1 << (nextBit + bitsNeeded)) - (1 << nextBit)
			nextBit += bitsNeeded
			m.globalMask |= (info.defaultValue << mf.shift) & mf.mask
		}
		mf.mask1 = (1 << mf.shift) & mf.mask
		mf.needsFallback = !found

		tracer().Debugf("map: feature %s in stages %v, mask 0x%x", info.tag, info.stage, mf.mask)
		m.features = append(m.features, mf)
	}
	mb.featureInfos = mb.featureInfos[:0]

	mb.addGSUBPause(nil)
	mb.addGPOSPause(nil)

	// collect lookup indices per stage, sorting and coalescing
	// duplicates by OR-ing masks
	for tableIndex, l := range layouts {
		stageIndex := 0
		lastNumLookups := 0
		for stage := 0; stage < mb.currentStage[tableIndex]; stage++ {
			if requiredFeatureIndex[tableIndex] != noFeatureIndex &&
				requiredFeatureStage[tableIndex] == stage {
				const emptyTag = 0x20202020
				m.addLookups(l, tableIndex, requiredFeatureIndex[tableIndex],
					key[tableIndex], globalBitMask, true, true, false, false, emptyTag)
			}
			for _, feat := range m.features {
				if feat.stage[tableIndex] == stage {
					m.addLookups(l, tableIndex, feat.index[tableIndex], key[tableIndex],
						feat.mask, feat.autoZWNJ, feat.autoZWJ, feat.random, feat.perSyllable, feat.tag)
				}
			}

			if ls := m.lookups[tableIndex]; lastNumLookups < len(ls) {
				view := ls[lastNumLookups:]
				sort.Slice(view, func(i, j int) bool { return view[i].index < view[j].index })
				j := lastNumLookups
				for i := j + 1; i < len(ls); i++ {
					if ls[i].index != ls[j].index {
						j++
						ls[j] = ls[i]
					} else {
						ls[j].mask |= ls[i].mask
						ls[j].autoZWNJ = ls[j].autoZWNJ && ls[i].autoZWNJ
						ls[j].autoZWJ = ls[j].autoZWJ && ls[i].autoZWJ
					}
				}
				m.lookups[tableIndex] = ls[:j+1]
			}
			lastNumLookups = len(m.lookups[tableIndex])

			if stageIndex < len(mb.stages[tableIndex]) && mb.stages[tableIndex][stageIndex].index == stage {
				m.stages[tableIndex] = append(m.stages[tableIndex], mappedStage{
					lastLookup: lastNumLookups,
					pauseFunc:  mb.stages[tableIndex][stageIndex].pauseFunc,
				})
				stageIndex++
			}
		}
	}
}

// mappedFeature is one feature after mask assignment.
type mappedFeature struct {
	tag           tables.Tag // first field, the feature bsearch keys on it
	index         [2]uint16
	stage         [2]int
	shift         int
	mask          GlyphMask
	mask1         GlyphMask // mask for value 1, for quick access
	needsFallback bool
	autoZWNJ      bool
	autoZWJ       bool
	random        bool
	perSyllable   bool
}

func bsearchFeature(features []mappedFeature, tag tables.Tag) *mappedFeature {
	low, high := 0, len(features)
	for low < high {
		mid := low + (high-low)/2
		p := features[mid].tag
		if tag < p {
			high = mid
		} else if tag > p {
			low = mid + 1
		} else {
			return &features[mid]
		}
	}
	return nil
}

// mappedLookup is one lookup scheduled for application.
type mappedLookup struct {
	index       uint16
	autoZWNJ    bool
	autoZWJ     bool
	random      bool
	perSyllable bool
	featureTag  tables.Tag
	mask        GlyphMask
}

// mappedStage ends at lastLookup and may carry a pause callback.
type mappedStage struct {
	pauseFunc  pauseFunc
	lastLookup int
}

// shapeMap is the compiled feature map of a shape plan.
type shapeMap struct {
	lookups      [2][]mappedLookup
	stages       [2][]mappedStage
	features     []mappedFeature // sorted by tag
	chosenScript [2]tables.Tag
	globalMask   GlyphMask
	foundScript  [2]bool
}

func (m *shapeMap) needsFallback(tag tables.Tag) bool {
	if f := bsearchFeature(m.features, tag); f != nil {
		return f.needsFallback
	}
	return false
}

func (m *shapeMap) getMask(tag tables.Tag) (GlyphMask, int) {
	if f := bsearchFeature(m.features, tag); f != nil {
		return f.mask, f.shift
	}
	return 0, 0
}

func (m *shapeMap) getMask1(tag tables.Tag) GlyphMask {
	if f := bsearchFeature(m.features, tag); f != nil {
		return f.mask1
	}
	return 0
}

func (m *shapeMap) getFeatureIndex(tableIndex int, tag tables.Tag) uint16 {
	if f := bsearchFeature(m.features, tag); f != nil {
		return f.index[tableIndex]
	}
	return noFeatureIndex
}

func (m *shapeMap) getFeatureStage(tableIndex int, tag tables.Tag) int {
	if f := bsearchFeature(m.features, tag); f != nil {
		return f.stage[tableIndex]
	}
	return math.MaxInt32
}

func (m *shapeMap) getStageLookups(tableIndex, stage int) []mappedLookup {
	if stage > len(m.stages[tableIndex]) {
		return nil
	}
	start, end := 0, len(m.lookups[tableIndex])
	if stage != 0 {
		start = m.stages[tableIndex][stage-1].lastLookup
	}
	if stage < len(m.stages[tableIndex]) {
		end = m.stages[tableIndex][stage].lastLookup
	}
	return m.lookups[tableIndex][start:end]
}

func (m *shapeMap) addLookups(l *font.Layout, tableIndex int, featureIndex uint16,
	variationsIndex int, mask GlyphMask, autoZWNJ, autoZWJ, random, perSyllable bool, featureTag tables.Tag,
) {
	for _, lookupIndex := range getFeatureLookupsWithVar(l, featureIndex, variationsIndex) {
		m.lookups[tableIndex] = append(m.lookups[tableIndex], mappedLookup{
			mask:        mask,
			index:       lookupIndex,
			autoZWNJ:    autoZWNJ,
			autoZWJ:     autoZWJ,
			random:      random,
			perSyllable: perSyllable,
			featureTag:  featureTag,
		})
	}
}

// substitute applies the GSUB side of the map.
func (m *shapeMap) substitute(plan *shapePlan, font *Font, buffer *Buffer) {
	m.apply(tableGSUB, false, applyRecurseGSUB, font.gsubAccels, plan, font, buffer)
}

// position applies the GPOS side of the map.
func (m *shapeMap) position(plan *shapePlan, font *Font, buffer *Buffer) {
	m.apply(tableGPOS, true, applyRecurseGPOS, font.gposAccels, plan, font, buffer)
}

// apply runs the staged lookups of one table over the buffer. Within a
// stage, lookups run in stage-list order; each lookup is fast-rejected
// by intersecting its digest with the buffer digest.
func (m *shapeMap) apply(table layoutTableIndex, inplace bool, recurse recurseFunc,
	accels []lookupAccel, plan *shapePlan, font *Font, buffer *Buffer,
) {
	tableIndex := int(table)
	i := 0
	c := new(applyContext)
	c.reset(table, font, buffer)
	c.recurseFunc = recurse

	for stageIndex, stage := range m.stages[tableIndex] {
		tracer().Debugf("apply %d: stage %d", tableIndex, stageIndex)
		for ; i < stage.lastLookup; i++ {
			lookup := m.lookups[tableIndex][i]
			if int(lookup.index) >= len(accels) {
				continue
			}
			accel := &accels[lookup.index]
			// only try the lookup if its coverage digest intersects the
			// buffer digest
			if accel.digest.mayIntersect(c.digest) {
				c.lookupIndex = lookup.index
				c.setLookupProps(accel.lookup.props())
				c.lookupMask = lookup.mask
				c.autoZWJ = lookup.autoZWJ
				c.autoZWNJ = lookup.autoZWNJ
				c.random = lookup.random
				c.perSyllable = lookup.perSyllable
				c.initIters()

				if len(c.buffer.Info) > c.buffer.maxLen {
					return
				}
				c.applyString(inplace, accel)
			}
		}
		if stage.pauseFunc != nil {
			if stage.pauseFunc(plan, font, buffer) {
				// the pause introduced new glyph ids
				c.digest = buffer.digest()
			}
		}
	}
}
