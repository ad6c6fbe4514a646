package shaping

import (
	"sort"

	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/font/opentype/tables"
)

// Mapping from OpenType feature tags to AAT (feature type, selector)
// pairs. Sorted by tag for binary search. Selector pairs are
// (enable, disable); a disable value of 16, 2, 4 or 7 is the family's
// "off" selector.
type aatFeatureMapping struct {
	otTag             tables.Tag
	featureType       uint16
	selectorToEnable  uint16
	selectorToDisable uint16
}

var aatFeatureMappings = [...]aatFeatureMapping{
	{otTag('a', 'f', 'r', 'c'), 11 /* Fractions */, 1, 0},
	{otTag('c', '2', 'p', 'c'), 38 /* UpperCase */, 2, 0},
	{otTag('c', '2', 's', 'c'), 38 /* UpperCase */, 1, 0},
	{otTag('c', 'a', 'l', 't'), 36 /* ContextualAlternatives */, 0, 1},
	{otTag('c', 'a', 's', 'e'), 33 /* CaseSensitiveLayout */, 0, 1},
	{otTag('c', 'l', 'i', 'g'), 1 /* Ligatures */, 18, 19},
	{otTag('c', 'p', 's', 'p'), 33 /* CaseSensitiveLayout */, 2, 3},
	{otTag('c', 's', 'w', 'h'), 36 /* ContextualAlternatives */, 4, 5},
	{otTag('d', 'l', 'i', 'g'), 1 /* Ligatures */, 4, 5},
	{otTag('e', 'x', 'p', 't'), 20 /* CharacterShape */, 10, 16},
	{otTag('f', 'r', 'a', 'c'), 11 /* Fractions */, 2, 0},
	{otTag('f', 'w', 'i', 'd'), 22 /* TextSpacing */, 1, 7},
	{otTag('h', 'a', 'l', 't'), 22 /* TextSpacing */, 6, 7},
	{otTag('h', 'i', 's', 't'), 40, 0, 1},
	{otTag('h', 'k', 'n', 'a'), 34 /* AlternateKana */, 0, 1},
	{otTag('h', 'l', 'i', 'g'), 1 /* Ligatures */, 20, 21},
	{otTag('h', 'n', 'g', 'l'), 23 /* Transliteration */, 1, 0},
	{otTag('h', 'o', 'j', 'o'), 20 /* CharacterShape */, 12, 16},
	{otTag('h', 'w', 'i', 'd'), 22 /* TextSpacing */, 2, 7},
	{otTag('i', 't', 'a', 'l'), 32 /* ItalicCJKRoman */, 2, 3},
	{otTag('j', 'p', '0', '4'), 20 /* CharacterShape */, 11, 16},
	{otTag('j', 'p', '7', '8'), 20 /* CharacterShape */, 2, 16},
	{otTag('j', 'p', '8', '3'), 20 /* CharacterShape */, 3, 16},
	{otTag('j', 'p', '9', '0'), 20 /* CharacterShape */, 4, 16},
	{otTag('l', 'i', 'g', 'a'), 1 /* Ligatures */, 2, 3},
	{otTag('l', 'n', 'u', 'm'), 21 /* NumberCase */, 1, 2},
	{otTag('m', 'g', 'r', 'k'), 15 /* MathematicalExtras */, 10, 11},
	{otTag('n', 'l', 'c', 'k'), 20 /* CharacterShape */, 13, 16},
	{otTag('o', 'n', 'u', 'm'), 21 /* NumberCase */, 0, 2},
	{otTag('o', 'r', 'd', 'n'), 10 /* VerticalPosition */, 3, 0},
	{otTag('p', 'a', 'l', 't'), 22 /* TextSpacing */, 5, 7},
	{otTag('p', 'c', 'a', 'p'), 37 /* LowerCase */, 2, 0},
	{otTag('p', 'k', 'n', 'a'), 22 /* TextSpacing */, 0, 7},
	{otTag('p', 'n', 'u', 'm'), 6 /* NumberSpacing */, 1, 4},
	{otTag('p', 'w', 'i', 'd'), 22 /* TextSpacing */, 0, 7},
	{otTag('q', 'w', 'i', 'd'), 22 /* TextSpacing */, 4, 7},
	{otTag('r', 'l', 'i', 'g'), 1 /* Ligatures */, 0, 1},
	{otTag('r', 'u', 'b', 'y'), 28 /* RubyKana */, 2, 3},
	{otTag('s', 'i', 'n', 'f'), 10 /* VerticalPosition */, 4, 0},
	{otTag('s', 'm', 'c', 'p'), 37 /* LowerCase */, 1, 0},
	{otTag('s', 'm', 'p', 'l'), 20 /* CharacterShape */, 1, 16},
	{otTag('s', 's', '0', '1'), 35 /* StylisticAlternatives */, 2, 3},
	{otTag('s', 's', '0', '2'), 35, 4, 5},
	{otTag('s', 's', '0', '3'), 35, 6, 7},
	{otTag('s', 's', '0', '4'), 35, 8, 9},
	{otTag('s', 's', '0', '5'), 35, 10, 11},
	{otTag('s', 's', '0', '6'), 35, 12, 13},
	{otTag('s', 's', '0', '7'), 35, 14, 15},
	{otTag('s', 's', '0', '8'), 35, 16, 17},
	{otTag('s', 's', '0', '9'), 35, 18, 19},
	{otTag('s', 's', '1', '0'), 35, 20, 21},
	{otTag('s', 's', '1', '1'), 35, 22, 23},
	{otTag('s', 's', '1', '2'), 35, 24, 25},
	{otTag('s', 's', '1', '3'), 35, 26, 27},
	{otTag('s', 's', '1', '4'), 35, 28, 29},
	{otTag('s', 's', '1', '5'), 35, 30, 31},
	{otTag('s', 's', '1', '6'), 35, 32, 33},
	{otTag('s', 's', '1', '7'), 35, 34, 35},
	{otTag('s', 's', '1', '8'), 35, 36, 37},
	{otTag('s', 's', '1', '9'), 35, 38, 39},
	{otTag('s', 's', '2', '0'), 35, 40, 41},
	{otTag('s', 'u', 'b', 's'), 10 /* VerticalPosition */, 2, 0},
	{otTag('s', 'u', 'p', 's'), 10 /* VerticalPosition */, 1, 0},
	{otTag('s', 'w', 's', 'h'), 36 /* ContextualAlternatives */, 2, 3},
	{otTag('t', 'i', 't', 'l'), 19 /* StyleOptions */, 4, 0},
	{otTag('t', 'n', 'a', 'm'), 20 /* CharacterShape */, 14, 16},
	{otTag('t', 'n', 'u', 'm'), 6 /* NumberSpacing */, 0, 4},
	{otTag('t', 'r', 'a', 'd'), 20 /* CharacterShape */, 0, 16},
	{otTag('t', 'w', 'i', 'd'), 22 /* TextSpacing */, 3, 7},
	{otTag('u', 'n', 'i', 'c'), 3 /* LetterCase */, 14, 15},
	{otTag('v', 'a', 'l', 't'), 22 /* TextSpacing */, 5, 7},
	{otTag('v', 'e', 'r', 't'), 4 /* VerticalSubstitution */, 0, 1},
	{otTag('v', 'h', 'a', 'l'), 22 /* TextSpacing */, 6, 7},
	{otTag('v', 'k', 'n', 'a'), 34 /* AlternateKana */, 2, 3},
	{otTag('v', 'p', 'a', 'l'), 22 /* TextSpacing */, 5, 7},
	{otTag('v', 'r', 't', '2'), 4 /* VerticalSubstitution */, 0, 1},
	{otTag('v', 'r', 't', 'r'), 4 /* VerticalSubstitution */, 2, 3},
	{otTag('z', 'e', 'r', 'o'), 14 /* TypographicExtras */, 4, 5},
}

func aatFeatureMappingForTag(tag tables.Tag) *aatFeatureMapping {
	low, high := 0, len(aatFeatureMappings)
	for low < high {
		mid := low + (high-low)/2
		p := aatFeatureMappings[mid].otTag
		switch {
		case tag < p:
			high = mid
		case tag > p:
			low = mid + 1
		default:
			return &aatFeatureMappings[mid]
		}
	}
	return nil
}

// rangeFlags is the morx subfeature selection for one cluster range.
type rangeFlags struct {
	flags        uint32
	clusterFirst int
	clusterLast  int
}

// aatMap holds the computed per-chain flag ranges.
type aatMap struct {
	chainFlags [][]rangeFlags
}

type aatFeatureEvent struct {
	featureType uint16
	setting     uint16
}

// aatMapBuilder resolves requested OT features into AAT feature
// type/selector settings.
type aatMapBuilder struct {
	face     *font.Font
	features []aatFeatureEvent
}

func newAatMapBuilder(face *font.Font) *aatMapBuilder {
	return &aatMapBuilder{face: face}
}

// addFeature records one requested feature; unknown tags map to
// nothing and are dropped silently.
func (mb *aatMapBuilder) addFeature(f Feature) {
	// the 'aalt' feature selects a character alternative by value
	if f.Tag == otTag('a', 'a', 'l', 't') {
		mb.features = append(mb.features, aatFeatureEvent{
			featureType: 17, // CharacterAlternatives, selector is the alternative index
			setting:     uint16(f.Value),
		})
		return
	}
	mapping := aatFeatureMappingForTag(f.Tag)
	if mapping == nil {
		return
	}
	setting := mapping.selectorToDisable
	if f.Value != 0 {
		setting = mapping.selectorToEnable
	}
	mb.features = append(mb.features, aatFeatureEvent{
		featureType: mapping.featureType,
		setting:     setting,
	})
}

// compile resolves the requested settings against each chain's feature
// records, producing the enabled-subtable flags per chain.
func (mb *aatMapBuilder) compile(m *aatMap) {
	// last mention of a feature type wins
	sort.SliceStable(mb.features, func(i, j int) bool {
		return mb.features[i].featureType < mb.features[j].featureType
	})
	if len(mb.features) != 0 {
		j := 0
		for i := 1; i < len(mb.features); i++ {
			if mb.features[i].featureType != mb.features[j].featureType {
				j++
			}
			mb.features[j] = mb.features[i]
		}
		mb.features = mb.features[:j+1]
	}

	for _, chain := range mb.face.Morx {
		flags := chain.DefaultFlags
		for _, feature := range chain.Features {
			if mb.hasSetting(feature.FeatureType, feature.FeatureSetting) {
				flags &^= feature.DisableFlags
				flags |= feature.EnableFlags
			} else if feature.FeatureType == 3 /* LetterCase */ && feature.FeatureSetting == 3 /* SmallCaps */ {
				// deprecated small-caps selector: honor the modern one
				if mb.hasSetting(37 /* LowerCase */, 1 /* SmallCaps */) {
					flags &^= feature.DisableFlags
					flags |= feature.EnableFlags
				}
			}
		}
		// feature ranges are resolved globally: one range per chain
		m.chainFlags = append(m.chainFlags, []rangeFlags{{
			flags:        flags,
			clusterFirst: 0,
			clusterLast:  maxInt,
		}})
	}
}

func (mb *aatMapBuilder) hasSetting(featureType, setting uint16) bool {
	for _, ev := range mb.features {
		if ev.featureType == featureType {
			return ev.setting == setting
		}
	}
	return false
}
