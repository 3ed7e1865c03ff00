package langcode

import "testing"

func TestToISO6391(t *testing.T) {
	cases := map[string]string{
		"ja":    "ja",
		"zh-CN": "zh",
		"ZH-TW": "zh",
		"pt-BR": "pt",
		"en":    "en",
	}
	for in, want := range cases {
		if got := ToISO6391(in); got != want {
			t.Errorf("ToISO6391(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeForGoogle(t *testing.T) {
	cases := map[string]string{
		"ja":      "ja",
		"zh":      "zh-CN",
		"zh-CN":   "zh-CN",
		"zh-TW":   "zh-TW",
		"zh-Hant": "zh-TW",
		"ZH-TW":   "zh-TW",
	}
	for in, want := range cases {
		if got := NormalizeForGoogle(in); got != want {
			t.Errorf("NormalizeForGoogle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLanguageNameKnownCodes(t *testing.T) {
	if got := LanguageName("ja"); got != "Japanese" {
		t.Errorf("LanguageName(ja) = %q, want Japanese", got)
	}
	if got := LanguageName("zh-TW"); got != "Traditional Chinese" {
		t.Errorf("LanguageName(zh-TW) = %q, want Traditional Chinese", got)
	}
}
