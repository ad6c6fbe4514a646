package shaping

import (
	"testing"

	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFeatureForms(t *testing.T) {
	kern := ot.NewTag('k', 'e', 'r', 'n')
	aalt := ot.NewTag('a', 'a', 'l', 't')

	cases := []struct {
		in   string
		want Feature
	}{
		{"kern", Feature{Tag: kern, Value: 1, Start: FeatureGlobalStart, End: FeatureGlobalEnd}},
		{"+kern", Feature{Tag: kern, Value: 1, Start: FeatureGlobalStart, End: FeatureGlobalEnd}},
		{"-kern", Feature{Tag: kern, Value: 0, Start: FeatureGlobalStart, End: FeatureGlobalEnd}},
		{"kern=0", Feature{Tag: kern, Value: 0, Start: FeatureGlobalStart, End: FeatureGlobalEnd}},
		{"kern=1", Feature{Tag: kern, Value: 1, Start: FeatureGlobalStart, End: FeatureGlobalEnd}},
		{"aalt=2", Feature{Tag: aalt, Value: 2, Start: FeatureGlobalStart, End: FeatureGlobalEnd}},
		{"kern[3:5]", Feature{Tag: kern, Value: 1, Start: 3, End: 5}},
		{"kern[3:5]=0", Feature{Tag: kern, Value: 0, Start: 3, End: 5}},
		{"kern[3]", Feature{Tag: kern, Value: 1, Start: 3, End: 4}},
		{"kern[3:]", Feature{Tag: kern, Value: 1, Start: 3, End: FeatureGlobalEnd}},
		{"kern[:5]", Feature{Tag: kern, Value: 1, Start: 0, End: 5}},
	}
	for _, c := range cases {
		got, err := ParseFeature(c.in)
		require.NoError(t, err, "input %q", c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
	}
}

func TestParseFeatureShortTagIsPadded(t *testing.T) {
	f, err := ParseFeature("yi")
	require.NoError(t, err)
	assert.Equal(t, ot.NewTag('y', 'i', ' ', ' '), f.Tag)
}

func TestParseFeatureRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "=", "[3:5]", "kern[5:3]", "kern[3:5", "kern=x", "kern!"} {
		_, err := ParseFeature(in)
		assert.Error(t, err, "input %q", in)
	}
}

func TestParseFeaturesList(t *testing.T) {
	fs, err := ParseFeatures("kern, -liga ,ss01=2")
	require.NoError(t, err)
	require.Len(t, fs, 3)
	assert.Equal(t, uint32(1), fs[0].Value)
	assert.Equal(t, uint32(0), fs[1].Value)
	assert.Equal(t, uint32(2), fs[2].Value)
}

func TestParseFeaturesUnknownTagAccepted(t *testing.T) {
	// unknown tags parse fine; the map builder drops them silently
	f, err := ParseFeature("zzzz")
	require.NoError(t, err)
	assert.Equal(t, ot.NewTag('z', 'z', 'z', 'z'), f.Tag)
}
