package shaping

import (
	"testing"

	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScriptTagsPreferNewSpec(t *testing.T) {
	tags := scriptTagCandidates(language.Devanagari)
	require.Len(t, tags, 3)
	assert.Equal(t, ot.NewTag('d', 'e', 'v', '3'), tags[0])
	assert.Equal(t, ot.NewTag('d', 'e', 'v', '2'), tags[1])
	assert.Equal(t, ot.NewTag('d', 'e', 'v', 'a'), tags[2])
}

func TestScriptTagsMyanmarHasNoV3(t *testing.T) {
	tags := scriptTagCandidates(language.Myanmar)
	require.Len(t, tags, 2)
	assert.Equal(t, ot.NewTag('m', 'y', 'm', '2'), tags[0])
	assert.Equal(t, ot.NewTag('m', 'y', 'm', 'r'), tags[1])
}

func TestScriptTagLowercasesISO(t *testing.T) {
	tags := scriptTagCandidates(language.Arabic)
	require.Len(t, tags, 1)
	assert.Equal(t, ot.NewTag('a', 'r', 'a', 'b'), tags[0])
}

func TestScriptTagIrregularEntries(t *testing.T) {
	cases := []struct {
		script language.Script
		want   tables.Tag
	}{
		{language.Lao, ot.NewTag('l', 'a', 'o', ' ')},
		{language.Yi, ot.NewTag('y', 'i', ' ', ' ')},
		{language.Nko, ot.NewTag('n', 'k', 'o', ' ')},
		{language.Hiragana, ot.NewTag('k', 'a', 'n', 'a')},
	}
	for _, c := range cases {
		tags := scriptTagCandidates(c.script)
		require.NotEmpty(t, tags)
		assert.Equal(t, c.want, tags[len(tags)-1], "script %v", c.script)
	}
}

func TestScriptTagsUnknownScriptEmpty(t *testing.T) {
	assert.Empty(t, scriptTagCandidates(0))
}

func TestLanguageTags(t *testing.T) {
	tags := languageTagCandidates("hi-in")
	require.NotEmpty(t, tags)
	assert.Equal(t, ot.NewTag('H', 'I', 'N', ' '), tags[0])
}

func TestLanguageTagISO639_3Fallback(t *testing.T) {
	tags := languageTagCandidates("xyz")
	require.Len(t, tags, 1)
	assert.Equal(t, ot.NewTag('X', 'Y', 'Z', ' '), tags[0])
}

func TestTagOverrides(t *testing.T) {
	script, langSys := tagOverrides(language.NewLanguage("en-x-hbscdeva-hbotHIN"))
	assert.Equal(t, ot.NewTag('d', 'e', 'v', 'a'), script)
	assert.Equal(t, ot.NewTag('H', 'I', 'N', ' '), langSys)

	// outside a private-use extension the markers mean nothing
	script, langSys = tagOverrides("en")
	assert.Zero(t, script)
	assert.Zero(t, langSys)

	// the default script cannot be forced
	script, _ = tagOverrides("en-x-hbscdflt")
	assert.Zero(t, script)
}

func TestResolveSegmentTags(t *testing.T) {
	scriptTags, langTags := resolveSegmentTags(language.Latin, language.NewLanguage("en-x-hbscdeva-hbotHIN"))
	require.NotEmpty(t, scriptTags)
	assert.Equal(t, ot.NewTag('d', 'e', 'v', 'a'), scriptTags[0])
	require.NotEmpty(t, langTags)
	assert.Equal(t, ot.NewTag('H', 'I', 'N', ' '), langTags[0])

	scriptTags, _ = resolveSegmentTags(language.Latin, "en")
	require.NotEmpty(t, scriptTags)
	assert.Equal(t, tagLatinScript, scriptTags[0])
}
