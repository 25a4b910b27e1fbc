package content

import (
	"strings"

	lingua "github.com/pemistahl/lingua-go"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Texts shorter than this are too ambiguous to label.
const minDetectableRunes = 20

// LanguageDetector labels text with an ISO 639-1 code out of a fixed set of
// candidate languages.
type LanguageDetector struct {
	detector lingua.LanguageDetector
	codes    map[lingua.Language]string
}

// NewLanguageDetector builds a detector for the given ISO 639-1 codes. Unknown
// codes are ignored. lingua needs at least two candidates, so fewer than two
// known codes returns nil, which disables detection.
func NewLanguageDetector(isoCodes []string) *LanguageDetector {
	supported := supportedLanguages()

	var languages []lingua.Language
	for _, code := range lo.Uniq(isoCodes) {
		lang, ok := lo.FindKey(supported, strings.ToLower(strings.TrimSpace(code)))
		if !ok {
			log.WithFields(log.Fields{
				"code": code,
			}).Warn("Unknown language code, skipping")
			continue
		}
		languages = append(languages, lang)
	}

	if len(languages) < 2 {
		return nil
	}

	return &LanguageDetector{
		detector: lingua.NewLanguageDetectorBuilder().
			FromLanguages(languages...).
			WithMinimumRelativeDistance(0.25).
			Build(),
		codes: supported,
	}
}

// Detect returns the language code of text, or "" when the detector is nil,
// the text is short, or no candidate is clearly ahead.
func (d *LanguageDetector) Detect(text string) string {
	if d == nil || len([]rune(strings.TrimSpace(text))) < minDetectableRunes {
		return ""
	}
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return d.codes[lang]
}

// supportedLanguages maps every lingua language to its ISO 639-1 code.
func supportedLanguages() map[lingua.Language]string {
	languages := make(map[lingua.Language]string)
	for _, lang := range lingua.AllLanguages() {
		languages[lang] = strings.ToLower(lang.IsoCode639_1().String())
	}
	return languages
}
