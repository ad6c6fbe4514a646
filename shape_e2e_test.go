package shaping

import (
	"testing"

	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSyntheticShapingFont builds a font around an empty parsed face,
// with glyph mapping and metrics supplied as callbacks. Plans compile
// against the (table-less) face; substitution beyond the shapers' own
// fallbacks comes from synthetic lookups installed by the tests.
func newSyntheticShapingFont(cmap map[rune]GID, advances map[GID]float32) *Font {
	face := &gofont.Face{Font: &gofont.Font{}}
	f := &Font{face: face, XScale: 1000, YScale: 1000, unitsPerEm: 1000}
	f.Funcs.NominalGlyph = func(r rune) (GID, bool) {
		g, ok := cmap[r]
		return g, ok
	}
	f.Funcs.GlyphHAdvance = func(g GID) float32 { return advances[g] }
	return f
}

// advanceSum adds up the main-axis advances of a shaped buffer.
func advanceSum(b *Buffer) Position {
	var sum Position
	for i := range b.Pos {
		sum += b.Pos[i].XAdvance
	}
	return sum
}

func TestShapeLatinNominalMapping(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "shaping")
	defer teardown()

	f := newSyntheticShapingFont(
		map[rune]GID{'a': 1, 'b': 2},
		map[GID]float32{1: 500, 2: 600})
	b := NewBuffer()
	b.AddRunes([]rune("ab"), 0)

	require.NoError(t, Shape(f, b, nil))
	require.Equal(t, 2, b.Len())
	assert.Equal(t, GID(1), b.Info[0].Glyph)
	assert.Equal(t, GID(2), b.Info[1].Glyph)
	assert.Equal(t, []int{0, 1}, clustersOf(b))
	// without layout tables the result is nominal mapping plus
	// nominal advances
	assert.Equal(t, Position(1100), advanceSum(b))
}

func TestShapeLatinLigature(t *testing.T) {
	// the 'fi' scenario: a font with an f+i ligature yields one glyph
	// with cluster 0 and the ligature's advance
	teardown := gotestingadapter.QuickConfig(t, "shaping")
	defer teardown()

	const (
		gidF  = GID(1)
		gidI  = GID(2)
		gidFI = GID(3)
	)
	f := newSyntheticShapingFont(
		map[rune]GID{'f': gidF, 'i': gidI},
		map[GID]float32{gidF: 300, gidI: 250, gidFI: 520})

	lig := tables.LigatureSubs{
		Coverage: tables.Coverage1{Glyphs: []tables.GlyphID{tables.GlyphID(gidF)}},
		LigatureSets: []tables.LigatureSet{{
			Ligatures: []tables.Ligature{{
				LigatureGlyph:     tables.GlyphID(gidFI),
				ComponentGlyphIDs: []tables.GlyphID{tables.GlyphID(gidI)},
			}},
		}},
	}
	var accel lookupAccel
	accel.init(lookupGSUB(gofont.GSUBLookup{Subtables: []tables.GSUBLookup{lig}}))
	f.gsubAccels = []lookupAccel{accel}

	plan := &shapePlan{
		shaper:               shaperDefault{},
		props:                SegmentProperties{Direction: LeftToRight},
		fallbackGlyphClasses: true,
	}
	plan.map_.globalMask = globalBitMask
	plan.map_.lookups[0] = []mappedLookup{{
		index:    0,
		mask:     globalBitMask,
		autoZWNJ: true,
		autoZWJ:  true,
	}}
	plan.map_.stages[0] = []mappedStage{{lastLookup: 1}}

	b := NewBuffer()
	b.AddRunes([]rune("fi"), 0)
	b.Props = SegmentProperties{Direction: LeftToRight}

	sc := &shapeContext{plan: plan, font: f, buffer: b}
	sc.shape()

	require.True(t, b.successful)
	require.Equal(t, 1, b.Len())
	assert.Equal(t, gidFI, b.Info[0].Glyph)
	assert.Equal(t, 0, b.Info[0].Cluster)
	assert.Equal(t, Position(520), advanceSum(b))
}

func TestShapeArabicJoining(t *testing.T) {
	// the sheen-yeh-noon scenario: INIT/MEDI/FINA forms come from the
	// presentation-forms fallback, output is in visual (RTL) order
	teardown := gotestingadapter.QuickConfig(t, "shaping")
	defer teardown()

	const (
		gidSheen     = GID(1)
		gidYeh       = GID(2)
		gidNoon      = GID(3)
		gidSheenInit = GID(11)
		gidYehMedi   = GID(12)
		gidNoonFina  = GID(13)
	)
	f := newSyntheticShapingFont(
		map[rune]GID{
			0x0634: gidSheen, 0x064A: gidYeh, 0x0646: gidNoon,
			0xFEB7: gidSheenInit, // SHEEN initial form
			0xFEF4: gidYehMedi,   // YEH medial form
			0xFEE6: gidNoonFina,  // NOON final form
		},
		map[GID]float32{gidSheenInit: 700, gidYehMedi: 280, gidNoonFina: 650})

	b := NewBuffer()
	b.AddRunes([]rune{0x0634, 0x064A, 0x0646}, 0)

	require.NoError(t, Shape(f, b, nil))
	require.Equal(t, 3, b.Len())

	// visual order reverses the logical RTL run
	assert.Equal(t, RightToLeft, b.Props.Direction)
	assert.Equal(t, []GID{gidNoonFina, gidYehMedi, gidSheenInit}, glyphsOf(b))
	assert.Equal(t, []int{2, 1, 0}, clustersOf(b))
	assert.Equal(t, Position(700+280+650), advanceSum(b))
}

func TestShapeDevanagariPreBaseMatra(t *testing.T) {
	// the "कि" scenario: the I-matra reorders before the consonant,
	// both glyphs in cluster 0
	teardown := gotestingadapter.QuickConfig(t, "shaping")
	defer teardown()

	const (
		gidKa    = GID(5)
		gidMatra = GID(6)
	)
	f := newSyntheticShapingFont(
		map[rune]GID{0x0915: gidKa, 0x093F: gidMatra},
		map[GID]float32{gidKa: 550, gidMatra: 200})

	b := NewBuffer()
	b.AddRunes([]rune{0x0915, 0x093F}, 0)

	require.NoError(t, Shape(f, b, nil))
	require.Equal(t, 2, b.Len())
	assert.Equal(t, []GID{gidMatra, gidKa}, glyphsOf(b))
	assert.Equal(t, []int{0, 0}, clustersOf(b))
}

func TestShapeDevanagariBrokenClusterDottedCircle(t *testing.T) {
	// a lone matra is a broken cluster: a dotted circle is inserted
	// and the buffer notes the repair
	teardown := gotestingadapter.QuickConfig(t, "shaping")
	defer teardown()

	const (
		gidMatra  = GID(6)
		gidDotted = GID(7)
	)
	f := newSyntheticShapingFont(
		map[rune]GID{0x093F: gidMatra, 0x25CC: gidDotted},
		map[GID]float32{gidMatra: 200, gidDotted: 500})

	b := NewBuffer()
	b.AddRune(0x093F, 0)

	require.NoError(t, Shape(f, b, nil))
	require.Equal(t, 2, b.Len())
	assert.Contains(t, glyphsOf(b), gidDotted)
	assert.NotZero(t, b.scratchFlags&bsfHasBrokenSyllable)
}

func TestShapeThaiSaraAm(t *testing.T) {
	// the "กำ" scenario: sara am decomposes into nikhahit + sara aa,
	// three glyphs, all cluster 0, the mark advance zeroed
	teardown := gotestingadapter.QuickConfig(t, "shaping")
	defer teardown()

	const (
		gidKoKai    = GID(4)
		gidNikhahit = GID(8)
		gidSaraAa   = GID(9)
	)
	f := newSyntheticShapingFont(
		map[rune]GID{0x0E01: gidKoKai, 0x0E4D: gidNikhahit, 0x0E32: gidSaraAa},
		map[GID]float32{gidKoKai: 600, gidNikhahit: 100, gidSaraAa: 550})

	b := NewBuffer()
	b.AddRunes([]rune{0x0E01, 0x0E33}, 0)

	require.NoError(t, Shape(f, b, nil))
	require.Equal(t, 3, b.Len())
	assert.Equal(t, []GID{gidKoKai, gidNikhahit, gidSaraAa}, glyphsOf(b))
	assert.Equal(t, []int{0, 0, 0}, clustersOf(b))
	// the nikhahit is a zero-width mark
	assert.Zero(t, b.Pos[1].XAdvance)
	assert.Equal(t, Position(600+550), advanceSum(b))
}

func TestShapeReusesCachedPlan(t *testing.T) {
	f := newSyntheticShapingFont(
		map[rune]GID{'a': 1},
		map[GID]float32{1: 500})

	shapeOnce := func() {
		b := NewBuffer()
		b.AddRune('a', 0)
		require.NoError(t, Shape(f, b, nil))
	}
	shapeOnce()
	cacheAny, ok := fontPlanCaches.Load(f)
	require.True(t, ok)
	cache := cacheAny.(*planCache)
	plans := len(cache.plans)
	shapeOnce()
	assert.Equal(t, plans, len(cache.plans), "same properties reuse the plan")
}
