// Package locale maps the closed set of supported languages onto the
// identifiers expected by each engine boundary.
package locale

import (
	"errors"
	"fmt"
	"strings"

	"go.aimuz.me/filipimo/internal/types"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

var (
	// ErrUnsupported is returned for languages outside the supported set.
	ErrUnsupported = errors.New("locale: unsupported language")
	// ErrSameLanguage is returned when a pair would translate a language into itself.
	ErrSameLanguage = errors.New("locale: home and foreign language are the same")
)

// defaultOCRModel is used when a language has no OCR model mapping.
const defaultOCRModel = "eng"

var supported = []types.LanguageCode{
	types.LangEnglish,
	types.LangKorean,
	types.LangTagalog,
	types.LangCebuano,
}

// providerOverrides replaces the default base-segment mapping.
var providerOverrides = map[types.LanguageCode]string{
	types.LangTagalog: "tl",
	types.LangCebuano: "ceb",
}

// ocrModels maps a base language to the OCR language model identifier.
var ocrModels = map[string]string{
	"en":  "eng",
	"ko":  "kor",
	"tl":  "tgl",
	"ceb": "ceb",
}

var matcher = language.NewMatcher(tags(supported))

func tags(codes []types.LanguageCode) []language.Tag {
	out := make([]language.Tag, len(codes))
	for i, c := range codes {
		out[i] = language.Make(string(c))
	}
	return out
}

// Supported returns the supported language codes in display order.
func Supported() []types.LanguageCode {
	out := make([]types.LanguageCode, len(supported))
	copy(out, supported)
	return out
}

// IsSupported reports whether code is one of the supported languages.
func IsSupported(code types.LanguageCode) bool {
	for _, c := range supported {
		if c == code {
			return true
		}
	}
	return false
}

// Parse canonicalizes s ("ko", "ko_KR", "KO-kr") to a supported code.
func Parse(s string) (types.LanguageCode, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, "_", "-"))
	if s == "" {
		return "", fmt.Errorf("%w: empty", ErrUnsupported)
	}
	tag, err := language.Parse(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrUnsupported, s, err)
	}
	_, idx, conf := matcher.Match(tag)
	if conf < language.High {
		return "", fmt.Errorf("%w: %q", ErrUnsupported, s)
	}
	return supported[idx], nil
}

// Base returns the first segment of code before any region separator,
// lower-cased.
func Base(code types.LanguageCode) string {
	s := string(code)
	if i := strings.IndexAny(s, "-_"); i >= 0 {
		s = s[:i]
	}
	return strings.ToLower(s)
}

// ProviderCode returns the translation provider's language code.
func ProviderCode(code types.LanguageCode) string {
	if c, ok := providerOverrides[code]; ok {
		return c
	}
	return Base(code)
}

// OCRModel returns the OCR language model for code, falling back to English.
func OCRModel(code types.LanguageCode) string {
	if m, ok := ocrModels[Base(code)]; ok {
		return m
	}
	return defaultOCRModel
}

// Name returns the English display name of code.
func Name(code types.LanguageCode) string {
	tag, err := language.Parse(string(code))
	if err != nil {
		return string(code)
	}
	if name := display.English.Tags().Name(tag); name != "" {
		return name
	}
	return string(code)
}

// Options returns the supported languages with display names.
func Options() []types.LanguageOption {
	out := make([]types.LanguageOption, 0, len(supported))
	for _, c := range supported {
		out = append(out, types.LanguageOption{Code: c, Name: Name(c)})
	}
	return out
}

// ValidatePair checks that both languages are supported and distinct.
func ValidatePair(p types.LanguagePair) error {
	if !IsSupported(p.Home) {
		return fmt.Errorf("%w: home %q", ErrUnsupported, p.Home)
	}
	if !IsSupported(p.Foreign) {
		return fmt.Errorf("%w: foreign %q", ErrUnsupported, p.Foreign)
	}
	if p.Home == p.Foreign {
		return fmt.Errorf("%w: %s", ErrSameLanguage, p.Home)
	}
	return nil
}
