package shaping

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// shapePlanKey selects the feature-variation alternates active under
// the current variation coordinates, per table. -1 means none.
type shapePlanKey = [2]int

// shapePlanner gathers everything needed to compile a shapePlan.
type shapePlanner struct {
	shaper scriptShaper
	props  SegmentProperties
	face   *font.Font
	map_   mapBuilder

	applyMorx                     bool
	scriptZeroMarks               bool
	scriptFallbackMarkPositioning bool
}

func newShapePlanner(face *font.Font, props SegmentProperties) *shapePlanner {
	p := &shapePlanner{
		props: props,
		face:  face,
		map_:  newMapBuilder(face, props),
	}

	// morx drives substitution when present, unless GSUB is there and
	// the run is vertical
	p.applyMorx = len(face.Morx) != 0 && (props.Direction.isHorizontal() || len(face.GSUB.Lookups) == 0)

	p.shaper = p.selectScriptShaper()

	zwm, fb := p.shaper.marksBehavior()
	p.scriptZeroMarks = zwm != zeroWidthMarksNone
	p.scriptFallbackMarkPositioning = fb

	// script shapers assume OT semantics; under morx, fall back to a
	// dumb default shaper
	if _, isDefault := p.shaper.(shaperDefault); p.applyMorx && !isDefault {
		p.shaper = shaperDefault{dumb: true}
	}
	return p
}

// shapePlan is immutable after compilation and reusable across buffers
// with matching segment properties.
type shapePlan struct {
	shaper scriptShaper
	props  SegmentProperties

	map_ shapeMap

	fracMask GlyphMask
	numrMask GlyphMask
	dnomMask GlyphMask
	rtlmMask GlyphMask
	kernMask GlyphMask
	trakMask GlyphMask

	hasFrac                          bool
	requestedTracking                bool
	requestedKerning                 bool
	hasVert                          bool
	hasGposMark                      bool
	zeroMarks                        bool
	fallbackGlyphClasses             bool
	fallbackMarkPositioning          bool
	adjustMarkPositioningWhenZeroing bool

	applyGpos         bool
	applyFallbackKern bool
	applyKern         bool
	applyKerx         bool
	applyMorx         bool
	applyTrak         bool

	// shaperData holds the shaper's plan-time data (joining masks,
	// syllable configuration, and so on).
	shaperData any
}

func (planner *shapePlanner) compile(plan *shapePlan, key shapePlanKey) {
	plan.props = planner.props
	plan.shaper = planner.shaper
	planner.map_.compile(&plan.map_, key)

	plan.fracMask = plan.map_.getMask1(otTag('f', 'r', 'a', 'c'))
	plan.numrMask = plan.map_.getMask1(otTag('n', 'u', 'm', 'r'))
	plan.dnomMask = plan.map_.getMask1(otTag('d', 'n', 'o', 'm'))
	plan.hasFrac = plan.fracMask != 0 || (plan.numrMask != 0 && plan.dnomMask != 0)

	plan.rtlmMask = plan.map_.getMask1(otTag('r', 't', 'l', 'm'))
	plan.hasVert = plan.map_.getMask1(otTag('v', 'e', 'r', 't')) != 0

	kernTag := otTag('v', 'k', 'r', 'n')
	if planner.props.Direction.isHorizontal() {
		kernTag = otTag('k', 'e', 'r', 'n')
	}
	plan.kernMask, _ = plan.map_.getMask(kernTag)
	plan.requestedKerning = plan.kernMask != 0
	plan.trakMask, _ = plan.map_.getMask(otTag('t', 'r', 'a', 'k'))
	plan.requestedTracking = plan.trakMask != 0

	hasGposKern := plan.map_.getFeatureIndex(1, kernTag) != noFeatureIndex
	disableGpos := plan.shaper.gposTag() != 0 && plan.shaper.gposTag() != plan.map_.chosenScript[1]

	// decide who provides glyph classes: GDEF or the general category
	if planner.face.GDEF.GlyphClassDef == nil {
		plan.fallbackGlyphClasses = true
	}

	// decide who does substitution: GSUB, morx, or nobody
	plan.applyMorx = planner.applyMorx

	// decide who does positioning: GPOS, kerx, kern, or fallback
	hasKerx := len(planner.face.Kerx) != 0
	hasGSUB := !plan.applyMorx && len(planner.face.GSUB.Lookups) != 0
	hasGPOS := !disableGpos && len(planner.face.GPOS.Lookups) != 0

	if hasKerx && !(hasGSUB && hasGPOS) {
		plan.applyKerx = true
	} else if hasGPOS {
		plan.applyGpos = true
	}
	if !plan.applyKerx && (!hasGposKern || !plan.applyGpos) {
		if hasKerx {
			plan.applyKerx = true
		} else if len(planner.face.Kern) != 0 {
			plan.applyKern = true
		}
	}
	plan.applyFallbackKern = !(plan.applyGpos || plan.applyKerx || plan.applyKern)

	plan.zeroMarks = planner.scriptZeroMarks && !plan.applyKerx &&
		(!plan.applyKern || !hasMachineKerning(planner.face.Kern))
	plan.hasGposMark = plan.map_.getMask1(otTag('m', 'a', 'r', 'k')) != 0

	plan.adjustMarkPositioningWhenZeroing = !plan.applyGpos && !plan.applyKerx &&
		(!plan.applyKern || !hasCrossKerning(planner.face.Kern))

	plan.fallbackMarkPositioning = plan.adjustMarkPositioningWhenZeroing &&
		planner.scriptFallbackMarkPositioning

	// under morx, mark adjustment stays off: AAT fonts build their
	// sequences assuming it
	if plan.applyMorx {
		plan.adjustMarkPositioningWhenZeroing = false
	}

	plan.applyTrak = plan.requestedTracking && !planner.face.Trak.IsEmpty()
}

var (
	commonFeatures = [...]mapFeature{
		{otTag('a', 'b', 'v', 'm'), ffGlobal},
		{otTag('b', 'l', 'w', 'm'), ffGlobal},
		{otTag('c', 'c', 'm', 'p'), ffGlobal},
		{otTag('l', 'o', 'c', 'l'), ffGlobal},
		{otTag('m', 'a', 'r', 'k'), ffGlobalManualJoiners},
		{otTag('m', 'k', 'm', 'k'), ffGlobalManualJoiners},
		{otTag('r', 'l', 'i', 'g'), ffGlobal},
	}

	horizontalFeatures = [...]mapFeature{
		{otTag('c', 'a', 'l', 't'), ffGlobal},
		{otTag('c', 'l', 'i', 'g'), ffGlobal},
		{otTag('c', 'u', 'r', 's'), ffGlobal},
		{otTag('d', 'i', 's', 't'), ffGlobal},
		{otTag('k', 'e', 'r', 'n'), ffGlobalHasFallback},
		{otTag('l', 'i', 'g', 'a'), ffGlobal},
		{otTag('r', 'c', 'l', 't'), ffGlobal},
	}
)

// collectFeatures registers the default, direction, script and user
// features with the map builder, in the staging order the pipeline
// relies on.
func (planner *shapePlanner) collectFeatures(userFeatures []Feature) {
	map_ := &planner.map_

	map_.enableFeature(otTag('r', 'v', 'r', 'n'))
	map_.addGSUBPause(nil)

	switch planner.props.Direction {
	case LeftToRight:
		map_.enableFeature(otTag('l', 't', 'r', 'a'))
		map_.enableFeature(otTag('l', 't', 'r', 'm'))
	case RightToLeft:
		map_.enableFeature(otTag('r', 't', 'l', 'a'))
		map_.addFeature(otTag('r', 't', 'l', 'm'))
	}

	// automatic fractions
	map_.addFeature(otTag('f', 'r', 'a', 'c'))
	map_.addFeature(otTag('n', 'u', 'm', 'r'))
	map_.addFeature(otTag('d', 'n', 'o', 'm'))

	// random alternates
	map_.enableFeatureExt(otTag('r', 'a', 'n', 'd'), ffRandom, mapMaxValue)

	// a dummy 'trak' feature lets users disable AAT tracking
	map_.enableFeatureExt(otTag('t', 'r', 'a', 'k'), ffHasFallback, 1)

	planner.shaper.collectFeatures(planner)

	for _, feat := range commonFeatures {
		map_.addFeatureExt(feat.tag, feat.flags, 1)
	}

	if planner.props.Direction.isHorizontal() {
		for _, feat := range horizontalFeatures {
			map_.addFeatureExt(feat.tag, feat.flags, 1)
		}
	} else {
		// look for 'vert' wherever the font lists it, any script
		map_.enableFeatureExt(otTag('v', 'e', 'r', 't'), ffGlobalSearch, 1)
	}

	for _, f := range userFeatures {
		flags := ffNone
		if f.isGlobal() {
			flags = ffGlobal
		}
		map_.addFeatureExt(f.Tag, flags, f.Value)
	}

	planner.shaper.overrideFeatures(planner)
}

// newShapePlan compiles a plan for (face, props, userFeatures, coords).
func newShapePlan(face *font.Font, props SegmentProperties, userFeatures []Feature,
	coords []tables.Coord,
) *shapePlan {
	key := shapePlanKey{
		0: face.GSUB.FindVariationIndex(coords),
		1: face.GPOS.FindVariationIndex(coords),
	}
	planner := newShapePlanner(face, props)
	planner.collectFeatures(userFeatures)

	plan := &shapePlan{}
	planner.compile(plan, key)
	plan.shaper.dataCreate(plan)
	return plan
}
