package shaping

import (
	"strings"

	ot "github.com/go-text/typesetting/font/opentype"
	"github.com/go-text/typesetting/font/opentype/tables"
	"github.com/go-text/typesetting/language"
	xlanguage "golang.org/x/text/language"
)

var (
	// tagDefaultScript is the OpenType script tag `DFLT` for features
	// that are not script-specific.
	tagDefaultScript = ot.NewTag('D', 'F', 'L', 'T')
	// tagDfltScript is the invalid-but-seen lowercase variant.
	tagDfltScript = ot.NewTag('d', 'f', 'l', 't')
	// tagLatinScript is the final script fallback.
	tagLatinScript = ot.NewTag('l', 'a', 't', 'n')
	// tagDefaultLanguage is the OpenType language tag `dflt`. Not a
	// valid language tag, but fonts use it.
	tagDefaultLanguage = ot.NewTag('d', 'f', 'l', 't')
)

// padTag builds a tag from up to four characters, padding with spaces.
func padTag(s string) tables.Tag {
	var b [4]byte
	b[0], b[1], b[2], b[3] = ' ', ' ', ' ', ' '
	copy(b[:], s)
	return ot.NewTag(b[0], b[1], b[2], b[3])
}

// scriptTagsV2 lists the scripts with a second-generation shaping
// spec; their v2 tag is tried before the traditional registry tag, and
// a v3 tag (same stem) before that where one is defined.
var scriptTagsV2 = map[language.Script]string{
	language.Bengali:    "bng2",
	language.Devanagari: "dev2",
	language.Gujarati:   "gjr2",
	language.Gurmukhi:   "gur2",
	language.Kannada:    "knd2",
	language.Malayalam:  "mlm2",
	language.Myanmar:    "mym2",
	language.Oriya:      "ory2",
	language.Tamil:      "tml2",
	language.Telugu:     "tel2",
}

// scriptTagsIrregular lists the registry entries that are not just the
// lowercased ISO 15924 code.
var scriptTagsIrregular = map[language.Script]string{
	language.Mathematical_notation: "math",
	language.Hiragana:              "kana", // Katakana and Hiragana share it
	language.Lao:                   "lao",  // trailing spaces, unlike ISO 15924
	language.Yi:                    "yi",
	language.Nko:                   "nko",
	language.Vai:                   "vai",
}

// scriptTagCandidates computes the OpenType script tags to try for a
// segment, in preference order: v3 where defined, v2, then the
// traditional tag. The general rule for the traditional tag is the
// ISO 15924 code with the first letter lowered; the two exception
// tables above handle the rest.
func scriptTagCandidates(script language.Script) []tables.Tag {
	if script == 0 {
		return nil
	}
	var tags []tables.Tag
	if v2, ok := scriptTagsV2[script]; ok {
		// there is no 'mym3'
		if v2 != "mym2" {
			tags = append(tags, padTag(v2[:3]+"3"))
		}
		tags = append(tags, padTag(v2))
	}
	if irregular, ok := scriptTagsIrregular[script]; ok {
		tags = append(tags, padTag(irregular))
	} else {
		tags = append(tags, tables.Tag(script|0x20000000))
	}
	return tags
}

// otLanguageTagsForPrimary maps a primary language subtag to OpenType
// language-system tags. The registry is large; this carries the
// languages with shaping-relevant language systems plus the common
// European typographic ones.
func otLanguageTagsForPrimary(primary string) []tables.Tag {
	t := padTag
	switch primary {
	case "ar", "ara":
		return []tables.Tag{t("ARA")}
	case "fa", "fas", "per":
		return []tables.Tag{t("FAR")}
	case "ur", "urd":
		return []tables.Tag{t("URD")}
	case "sd", "snd":
		return []tables.Tag{t("SND")}
	case "ks", "kas":
		return []tables.Tag{t("KSH")}
	case "he", "heb", "iw":
		return []tables.Tag{t("IWR")}
	case "yi", "yid":
		return []tables.Tag{t("JII")}
	case "hi", "hin":
		return []tables.Tag{t("HIN")}
	case "mr", "mar":
		return []tables.Tag{t("MAR")}
	case "ne", "nep":
		return []tables.Tag{t("NEP")}
	case "sa", "san":
		return []tables.Tag{t("SAN")}
	case "bn", "ben":
		return []tables.Tag{t("BEN")}
	case "as", "asm":
		return []tables.Tag{t("ASM")}
	case "pa", "pan":
		return []tables.Tag{t("PAN")}
	case "gu", "guj":
		return []tables.Tag{t("GUJ")}
	case "or", "ori":
		return []tables.Tag{t("ORI")}
	case "ta", "tam":
		return []tables.Tag{t("TAM")}
	case "te", "tel":
		return []tables.Tag{t("TEL")}
	case "kn", "kan":
		return []tables.Tag{t("KAN")}
	case "ml", "mal":
		return []tables.Tag{t("MAL"), t("MLR")}
	case "si", "sin":
		return []tables.Tag{t("SNH")}
	case "th", "tha":
		return []tables.Tag{t("THA")}
	case "lo", "lao":
		return []tables.Tag{t("LAO")}
	case "km", "khm":
		return []tables.Tag{t("KHM")}
	case "my", "mya", "bur":
		return []tables.Tag{t("BRM")}
	case "ko", "kor":
		return []tables.Tag{t("KOR")}
	case "ja", "jpn":
		return []tables.Tag{t("JAN")}
	case "zh", "zho", "chi":
		return []tables.Tag{t("ZHS"), t("ZHT")}
	case "mn", "mon":
		return []tables.Tag{t("MNG")}
	case "bo", "bod", "tib":
		return []tables.Tag{t("TIB")}
	case "dz", "dzo":
		return []tables.Tag{t("DZN")}
	case "ug", "uig":
		return []tables.Tag{t("UYG")}
	case "syr":
		return []tables.Tag{t("SYR")}
	case "dv", "div":
		return []tables.Tag{t("DIV")}
	case "am", "amh":
		return []tables.Tag{t("AMH")}
	case "en", "eng":
		return []tables.Tag{t("ENG")}
	case "de", "deu", "ger":
		return []tables.Tag{t("DEU")}
	case "fr", "fra", "fre":
		return []tables.Tag{t("FRA")}
	case "tr", "tur":
		return []tables.Tag{t("TRK")}
	case "az", "aze":
		return []tables.Tag{t("AZE")}
	case "ro", "ron", "rum":
		return []tables.Tag{t("ROM")}
	case "nl", "nld", "dut":
		return []tables.Tag{t("NLD")}
	case "vi", "vie":
		return []tables.Tag{t("VIT")}
	case "ru", "rus":
		return []tables.Tag{t("RUS")}
	case "el", "ell", "gre":
		return []tables.Tag{t("ELL")}
	}
	return nil
}

// languageTagCandidates converts a BCP-47 language to candidate
// OpenType language-system tags: the registry mapping for its primary
// subtag, or, for an unmapped three-letter primary, the upper-cased
// ISO 639-3 code itself.
func languageTagCandidates(lang language.Language) []tables.Tag {
	tag, err := xlanguage.Parse(string(lang))
	if err != nil {
		return nil
	}
	base, _ := tag.Base()
	primary := strings.ToLower(base.String())
	if primary == "" {
		return nil
	}
	if tags := otLanguageTagsForPrimary(primary); len(tags) != 0 {
		return tags
	}
	if len(primary) == 3 && isAlpha(primary[0]) && isAlpha(primary[1]) && isAlpha(primary[2]) {
		return []tables.Tag{padTag(strings.ToUpper(primary))}
	}
	return nil
}

// tagOverrides extracts explicit script/language tag overrides from a
// BCP-47 private-use extension, e.g. "en-x-hbscdeva-hbotHIN". Subtags
// after "x" are scanned for the "hbsc" and "hbot" markers; whatever
// follows the marker becomes the tag. Overrides naming the default
// script are dropped.
func tagOverrides(lang language.Language) (script, langSys tables.Tag) {
	segments := strings.Split(strings.ToLower(string(lang)), "-")
	inPrivateUse := false
	for _, seg := range segments {
		if seg == "x" {
			inPrivateUse = true
			continue
		}
		if !inPrivateUse || len(seg) < 4 {
			continue
		}
		payload := seg[4:]
		switch seg[:4] {
		case "hbsc":
			if t := padTag(payload); t != tagDfltScript {
				script = t
			}
		case "hbot":
			if t := padTag(strings.ToUpper(payload)); t != tagDefaultScript {
				langSys = t
			}
		}
	}
	return script, langSys
}

// resolveSegmentTags computes the script and language tag candidates
// for a segment, honoring private-use overrides in the language tag.
func resolveSegmentTags(script language.Script, lang language.Language) (scriptTags, languageTags []tables.Tag) {
	scriptOverride, langOverride := tagOverrides(lang)
	if scriptOverride != 0 {
		scriptTags = []tables.Tag{scriptOverride}
	} else {
		scriptTags = scriptTagCandidates(script)
	}
	if langOverride != 0 {
		languageTags = []tables.Tag{langOverride}
	} else {
		languageTags = languageTagCandidates(lang)
	}
	return scriptTags, languageTags
}
