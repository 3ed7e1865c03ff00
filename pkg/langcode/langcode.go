// Package langcode normalizes BCP-47 language tags to the ISO 639-1 base
// codes used for comparisons, plus the Google-Translate-specific
// Chinese-variant folding.
package langcode

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ToISO6391 reduces a BCP-47 tag to its ISO 639-1 base language, e.g.
// "zh-CN" -> "zh", "pt-BR" -> "pt". Unparsable input is returned
// lowercased, unchanged.
func ToISO6391(code string) string {
	tag, err := language.Parse(code)
	if err != nil {
		return strings.ToLower(code)
	}
	base, _ := tag.Base()
	return base.String()
}

// NormalizeForGoogle applies Google Translate's Chinese-variant
// convention: zh-TW and zh-Hant are preserved as "zh-TW"; every other
// Chinese tag folds to "zh-CN"; everything else reduces to ISO 639-1.
func NormalizeForGoogle(code string) string {
	switch strings.ToLower(code) {
	case "zh-tw", "zh-hant":
		return "zh-TW"
	}
	iso := ToISO6391(code)
	if iso == "zh" {
		return "zh-CN"
	}
	return iso
}

// LanguageName returns a human-readable English display name, used for
// engines that take a prompt-level language name rather than a code.
func LanguageName(code string) string {
	if known, ok := languageNames[strings.ToLower(code)]; ok {
		return known
	}
	iso := ToISO6391(code)
	if known, ok := languageNames[iso]; ok {
		return known
	}
	tag, err := language.Parse(code)
	if err != nil {
		return code
	}
	return display.English.Languages().Name(tag)
}

var languageNames = map[string]string{
	"ja":    "Japanese",
	"en":    "English",
	"zh":    "Simplified Chinese",
	"zh-tw": "Traditional Chinese",
	"ko":    "Korean",
	"de":    "German",
	"fr":    "French",
	"es":    "Spanish",
	"pt":    "Brazilian Portuguese",
	"ru":    "Russian",
	"ar":    "Arabic",
}
