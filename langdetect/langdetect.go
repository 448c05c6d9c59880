// Package langdetect guesses the language of input text. Results are
// advisory; the pipeline never changes direction on them.
package langdetect

import (
	"slices"
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"

	"go.aimuz.me/filipimo/internal/types"
)

var (
	once     sync.Once
	detector lingua.LanguageDetector
)

// Cebuano has no lingua model; Tagalog stands in for it.
var fromLingua = map[lingua.Language]types.LanguageCode{
	lingua.English: types.LangEnglish,
	lingua.Korean:  types.LangKorean,
	lingua.Tagalog: types.LangTagalog,
}

func get() lingua.LanguageDetector {
	once.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Korean, lingua.Tagalog).
			WithMinimumRelativeDistance(0.1).
			Build()
	})
	return detector
}

// Detect returns the most likely language of text among candidates. An
// empty candidate list accepts any supported language. When the model
// reports Tagalog and only Cebuano is a candidate, Cebuano is returned.
func Detect(text string, candidates ...types.LanguageCode) (types.LanguageCode, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}

	lang, ok := get().DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	code, ok := fromLingua[lang]
	if !ok {
		return "", false
	}

	if len(candidates) == 0 || slices.Contains(candidates, code) {
		return code, true
	}
	if code == types.LangTagalog && slices.Contains(candidates, types.LangCebuano) {
		return types.LangCebuano, true
	}
	return "", false
}
