package shaping

import (
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// GID is a glyph index in the font.
type GID = font.GID

// gID is the on-disk glyph id type used by table data.
type gID = tables.GlyphID

// NOTDEF is the glyph index of ".notdef".
const NOTDEF = GID(0)

// glyphDeleted is the sentinel AAT morx writes for deleted glyphs.
const glyphDeleted = GID(0xFFFF)

// FontFuncs optionally overrides the face accessors of a Font. The
// engine consults an override first and falls back to the parsed
// face. Callers whose glyph mapping or metrics come from outside the
// face hook in here; the nominal codepoint-to-glyph mapping is a
// callback by contract either way.
type FontFuncs struct {
	NominalGlyph   func(r rune) (GID, bool)
	VariationGlyph func(r, varSelector rune) (GID, bool)
	GlyphHAdvance  func(g GID) float32 // design units
	GlyphVAdvance  func(g GID) float32 // design units
	GlyphExtents   func(g GID) (font.GlyphExtents, bool)
}

// Font wraps a parsed font face with the scaling state a shaping call
// needs. The face itself is read-only and may be shared between
// concurrent shaping calls; a Font is cheap and belongs to one caller.
type Font struct {
	face *font.Face

	// XScale and YScale scale design units to output units; both
	// default to the font's units-per-em (so output units are design
	// units).
	XScale, YScale int32
	// Ptem is the point size used for AAT 'trak' tracking; zero
	// disables tracking.
	Ptem float32

	// Funcs hooks replace individual face accessors when non-nil.
	Funcs FontFuncs

	unitsPerEm int32

	gsubAccels []lookupAccel
	gposAccels []lookupAccel
}

// NewFont wraps face for shaping. The returned font carries the
// per-face lookup accelerators; construct it once per face and reuse.
func NewFont(face *font.Face) *Font {
	upem := int32(face.Upem())
	if upem == 0 {
		upem = 1000
	}
	f := &Font{face: face, XScale: upem, YScale: upem, unitsPerEm: upem}
	f.gsubAccels = make([]lookupAccel, len(face.GSUB.Lookups))
	for i, l := range face.GSUB.Lookups {
		f.gsubAccels[i].init(lookupGSUB(l))
	}
	f.gposAccels = make([]lookupAccel, len(face.GPOS.Lookups))
	for i, l := range face.GPOS.Lookups {
		f.gposAccels[i].init(lookupGPOS(l))
	}
	return f
}

// Face returns the wrapped face.
func (f *Font) Face() *font.Face { return f.face }

func (f *Font) varCoords() []tables.Coord {
	if f.face == nil {
		return nil
	}
	return f.face.Coords()
}

func (f *Font) ppem() (x, y uint16) {
	if f.face == nil {
		return 0, 0
	}
	return f.face.Ppem()
}

var emptyGDEF tables.GDEF

// gdef returns the face's GDEF view, or an empty one for faceless
// fonts.
func (f *Font) gdef() *tables.GDEF {
	if f.face == nil {
		return &emptyGDEF
	}
	return &f.face.GDEF
}

// --- glyph mapping -----------------------------------------------------

func (f *Font) nominalGlyph(r rune) (GID, bool) {
	if f.Funcs.NominalGlyph != nil {
		return f.Funcs.NominalGlyph(r)
	}
	if f.face == nil {
		return 0, false
	}
	return f.face.NominalGlyph(r)
}

func (f *Font) variationGlyph(r, varSelector rune) (GID, bool) {
	if f.Funcs.VariationGlyph != nil {
		return f.Funcs.VariationGlyph(r, varSelector)
	}
	if f.face == nil {
		return 0, false
	}
	return f.face.VariationGlyph(r, varSelector)
}

func (f *Font) hasGlyph(r rune) bool {
	_, ok := f.nominalGlyph(r)
	return ok
}

// --- scaling -----------------------------------------------------------

func (f *Font) upem() int32 {
	if f.unitsPerEm == 0 {
		return 1000
	}
	return f.unitsPerEm
}

func emScale(v int32, scale int32, upem int32) Position {
	if upem == 0 {
		return 0
	}
	return Position(int64(v) * int64(scale) / int64(upem))
}

func (f *Font) emScaleX(v int16) Position { return emScale(int32(v), f.XScale, f.upem()) }
func (f *Font) emScaleY(v int16) Position { return emScale(int32(v), f.YScale, f.upem()) }

func (f *Font) emFscaleX(v int16) float32 {
	return float32(v) * float32(f.XScale) / float32(f.upem())
}

func (f *Font) emFscaleY(v int16) float32 {
	return float32(v) * float32(f.YScale) / float32(f.upem())
}

func (f *Font) emScalefX(v float32) Position {
	return roundf(v * float32(f.XScale) / float32(f.upem()))
}

func (f *Font) emScalefY(v float32) Position {
	return roundf(v * float32(f.YScale) / float32(f.upem()))
}

func roundf(v float32) Position {
	if v >= 0 {
		return Position(v + 0.5)
	}
	return Position(v - 0.5)
}

// --- metrics -----------------------------------------------------------

// GlyphHAdvance returns the scaled horizontal advance of g.
func (f *Font) GlyphHAdvance(g GID) Position {
	if f.Funcs.GlyphHAdvance != nil {
		return f.emScalefX(f.Funcs.GlyphHAdvance(g))
	}
	if f.face == nil {
		return 0
	}
	return f.emScalefX(f.face.HorizontalAdvance(g))
}

func (f *Font) glyphVAdvance(g GID) Position {
	// vertical advances grow downward
	if f.Funcs.GlyphVAdvance != nil {
		return -f.emScalefY(f.Funcs.GlyphVAdvance(g))
	}
	if f.face == nil {
		return 0
	}
	return -f.emScalefY(f.face.VerticalAdvance(g))
}

type glyphExtents struct {
	xBearing, yBearing Position
	width, height      Position
}

func (f *Font) glyphExtents(g GID) (glyphExtents, bool) {
	var (
		ext font.GlyphExtents
		ok  bool
	)
	if f.Funcs.GlyphExtents != nil {
		ext, ok = f.Funcs.GlyphExtents(g)
	} else if f.face != nil {
		ext, ok = f.face.GlyphExtents(g)
	}
	if !ok {
		return glyphExtents{}, false
	}
	return glyphExtents{
		xBearing: f.emScalefX(ext.XBearing),
		yBearing: f.emScalefY(ext.YBearing),
		width:    f.emScalefX(ext.Width),
		height:   f.emScalefY(ext.Height),
	}, true
}

func (f *Font) fontHExtents() (ascender, descender Position) {
	if f.face != nil {
		if ext, ok := f.face.FontHExtents(); ok {
			return f.emScalefY(ext.Ascender), f.emScalefY(ext.Descender)
		}
	}
	return f.YScale * 4 / 5, -f.YScale / 5
}

// Horizontal shaping keeps the glyph origin at (0,0); the vertical
// origin fallback centers glyphs on the advance and hangs them from the
// ascender.
func (f *Font) glyphHOrigin(GID) (Position, Position) { return 0, 0 }

func (f *Font) glyphVOrigin(g GID) (Position, Position) {
	x := f.GlyphHAdvance(g) / 2
	ascender, _ := f.fontHExtents()
	return x, ascender
}

func (f *Font) addGlyphHOrigin(g GID, x, y Position) (Position, Position) {
	ox, oy := f.glyphHOrigin(g)
	return x + ox, y + oy
}

func (f *Font) subtractGlyphHOrigin(g GID, x, y Position) (Position, Position) {
	ox, oy := f.glyphHOrigin(g)
	return x - ox, y - oy
}

func (f *Font) subtractGlyphVOrigin(g GID, x, y Position) (Position, Position) {
	ox, oy := f.glyphVOrigin(g)
	return x - ox, y - oy
}

// getGlyphContourPointForOrigin would resolve AnchorFormat2 and kerx
// control-point attachment against hinted outlines; without a hinting
// backend the coordinate fallback path is used instead.
func (f *Font) getGlyphContourPointForOrigin(GID, uint16, Direction) (x, y Position, ok bool) {
	return 0, 0, false
}

// --- variation deltas --------------------------------------------------

func (f *Font) getXDelta(varStore tables.ItemVarStore, device tables.DeviceTable) Position {
	switch device := device.(type) {
	case tables.DeviceHinting:
		x, _ := f.ppem()
		return Position(device.GetDelta(x, f.XScale))
	case tables.DeviceVariation:
		return f.emScalefX(varStore.GetDelta(tables.VariationStoreIndex(device), f.varCoords()))
	}
	return 0
}

func (f *Font) getYDelta(varStore tables.ItemVarStore, device tables.DeviceTable) Position {
	switch device := device.(type) {
	case tables.DeviceHinting:
		_, y := f.ppem()
		return Position(device.GetDelta(y, f.YScale))
	case tables.DeviceVariation:
		return f.emScalefY(varStore.GetDelta(tables.VariationStoreIndex(device), f.varCoords()))
	}
	return 0
}

// --- script / feature selection over GSUB and GPOS ---------------------

const (
	// noScriptIndex marks an unsupported script.
	noScriptIndex = 0xFFFF
	// noFeatureIndex marks an unsupported feature.
	noFeatureIndex = 0xFFFF
	// defaultLanguageIndex selects the default language system.
	defaultLanguageIndex = 0xFFFF
	// noVariationsIndex marks absent feature variations.
	noVariationsIndex = -1
)

// selectScript finds the first of scriptTags present in the layout
// table, falling back to DFLT, dflt and latn. The bool result reports
// whether a requested (non-fallback) script was found.
func selectScript(g *font.Layout, scriptTags []tables.Tag) (int, tables.Tag, bool) {
	for _, tag := range scriptTags {
		if idx := g.FindScript(tag); idx != -1 {
			return idx, tag, true
		}
	}
	for _, tag := range [3]tables.Tag{tagDefaultScript, tagDfltScript, tagLatinScript} {
		if idx := g.FindScript(tag); idx != -1 {
			return idx, tag, false
		}
	}
	return noScriptIndex, tagDefaultScript, false
}

// selectLanguage finds the first of languageTags under the chosen
// script, falling back to 'dflt'.
func selectLanguage(g *font.Layout, scriptIndex int, languageTags []tables.Tag) (int, bool) {
	if scriptIndex == noScriptIndex {
		return defaultLanguageIndex, false
	}
	s := g.Scripts[scriptIndex]
	for _, tag := range languageTags {
		if idx := s.FindLanguage(tag); idx != -1 {
			return idx, true
		}
	}
	if idx := s.FindLanguage(tagDefaultLanguage); idx != -1 {
		return idx, false
	}
	return defaultLanguageIndex, false
}

func getLangSys(g *font.Layout, scriptIndex, languageIndex int) *tables.LangSys {
	s := &g.Scripts[scriptIndex]
	if languageIndex == defaultLanguageIndex {
		return s.DefaultLangSys
	}
	return &s.LangSys[languageIndex]
}

func getRequiredFeature(g *font.Layout, scriptIndex, languageIndex int) (uint16, tables.Tag) {
	if scriptIndex == noScriptIndex {
		return noFeatureIndex, 0
	}
	l := getLangSys(g, scriptIndex, languageIndex)
	if l == nil || l.RequiredFeatureIndex == 0xFFFF {
		return noFeatureIndex, 0
	}
	if int(l.RequiredFeatureIndex) >= len(g.Features) {
		return noFeatureIndex, 0
	}
	return l.RequiredFeatureIndex, g.Features[l.RequiredFeatureIndex].Tag
}

// findFeatureForLang fetches the index of featureTag in the selected
// language system.
func findFeatureForLang(g *font.Layout, scriptIndex, languageIndex int, featureTag tables.Tag) uint16 {
	if scriptIndex == noScriptIndex {
		return noFeatureIndex
	}
	l := getLangSys(g, scriptIndex, languageIndex)
	if l == nil {
		return noFeatureIndex
	}
	for _, fi := range l.FeatureIndices {
		if int(fi) < len(g.Features) && g.Features[fi].Tag == featureTag {
			return fi
		}
	}
	return noFeatureIndex
}

// findFeature fetches featureTag anywhere in the feature list,
// regardless of script.
func findFeature(g *font.Layout, featureTag tables.Tag) uint16 {
	for i := range g.Features {
		if g.Features[i].Tag == featureTag {
			return uint16(i)
		}
	}
	return noFeatureIndex
}

// getFeatureLookupsWithVar returns the lookup list of a feature,
// substituting the variation alternate when variationsIndex selects
// one.
func getFeatureLookupsWithVar(g *font.Layout, featureIndex uint16, variationsIndex int) []uint16 {
	if featureIndex == noFeatureIndex || int(featureIndex) >= len(g.Features) {
		return nil
	}
	if variationsIndex != noVariationsIndex && variationsIndex < len(g.FeatureVariations) {
		subs := g.FeatureVariations[variationsIndex].Substitutions.Substitutions
		for _, sub := range subs {
			if sub.FeatureIndex == featureIndex {
				return sub.AlternateFeature.LookupListIndices
			}
		}
	}
	return g.Features[featureIndex].LookupListIndices
}
