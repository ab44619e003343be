package enums

import "fmt"

// CardLanguage identifies the print language of a single.
type CardLanguage string

const (
	CardLanguageEnglish    CardLanguage = "en"
	CardLanguageGerman     CardLanguage = "de"
	CardLanguageFrench     CardLanguage = "fr"
	CardLanguageItalian    CardLanguage = "it"
	CardLanguageSpanish    CardLanguage = "es"
	CardLanguageJapanese   CardLanguage = "ja"
	CardLanguageKorean     CardLanguage = "ko"
	CardLanguageChineseSim CardLanguage = "zh-hans"
)

var validCardLanguages = []CardLanguage{
	CardLanguageEnglish,
	CardLanguageGerman,
	CardLanguageFrench,
	CardLanguageItalian,
	CardLanguageSpanish,
	CardLanguageJapanese,
	CardLanguageKorean,
	CardLanguageChineseSim,
}

// String implements fmt.Stringer.
func (c CardLanguage) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CardLanguage.
func (c CardLanguage) IsValid() bool {
	for _, candidate := range validCardLanguages {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCardLanguage converts raw input into a CardLanguage.
func ParseCardLanguage(value string) (CardLanguage, error) {
	for _, candidate := range validCardLanguages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid card language %q", value)
}
