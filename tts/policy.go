package tts

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	"go.aimuz.me/filipimo/internal/types"
	"go.aimuz.me/filipimo/locale"
)

// Rule is one voice selection step.
type Rule string

const (
	// RuleExact picks a voice for the same dialect tag.
	RuleExact Rule = "exact"
	// RuleFallback tries configured alternate languages in order.
	RuleFallback Rule = "fallback"
	// RuleRegional picks the closest region of the same base language.
	RuleRegional Rule = "regional"
	// RuleDefault picks the engine's default voice, or none.
	RuleDefault Rule = "default"
)

// Policy is an ordered list of selection rules. The first rule that yields
// a voice wins.
type Policy struct {
	Rules     []Rule
	Fallbacks map[types.LanguageCode][]types.LanguageCode
}

// DefaultPolicy tries exact, fallback, regional then default.
func DefaultPolicy(fallbacks map[types.LanguageCode][]types.LanguageCode) Policy {
	return Policy{
		Rules:     []Rule{RuleExact, RuleFallback, RuleRegional, RuleDefault},
		Fallbacks: fallbacks,
	}
}

// ParsePolicy builds a Policy from rule names.
func ParsePolicy(names []string, fallbacks map[types.LanguageCode][]types.LanguageCode) (Policy, error) {
	if len(names) == 0 {
		return DefaultPolicy(fallbacks), nil
	}
	rules := make([]Rule, 0, len(names))
	for _, n := range names {
		switch r := Rule(n); r {
		case RuleExact, RuleFallback, RuleRegional, RuleDefault:
			rules = append(rules, r)
		default:
			return Policy{}, fmt.Errorf("unknown voice rule %q", n)
		}
	}
	return Policy{Rules: rules, Fallbacks: fallbacks}, nil
}

// Select returns the voice for lang. ok is false when no rule applies. The
// default rule always applies; it yields the zero Voice when the engine has
// no default, meaning the platform default for lang.
func (p Policy) Select(voices []Voice, lang types.LanguageCode) (Voice, bool) {
	for _, r := range p.Rules {
		switch r {
		case RuleExact:
			if v, ok := exact(voices, lang); ok {
				return v, true
			}
		case RuleFallback:
			for _, alt := range p.Fallbacks[lang] {
				if v, ok := exact(voices, alt); ok {
					return v, true
				}
			}
		case RuleRegional:
			if v, ok := regional(voices, lang); ok {
				return v, true
			}
		case RuleDefault:
			for _, v := range voices {
				if v.Default {
					return v, true
				}
			}
			return Voice{}, true
		}
	}
	return Voice{}, false
}

func normalize(code types.LanguageCode) string {
	return strings.ToLower(strings.ReplaceAll(string(code), "_", "-"))
}

func exact(voices []Voice, lang types.LanguageCode) (Voice, bool) {
	want := normalize(lang)
	for _, v := range voices {
		if normalize(v.Lang) == want {
			return v, true
		}
	}
	return Voice{}, false
}

// regional matches voices of the same base language and lets the x/text
// matcher rank their regions.
func regional(voices []Voice, lang types.LanguageCode) (Voice, bool) {
	base := locale.Base(lang)
	var (
		candidates []Voice
		tags       []language.Tag
	)
	for _, v := range voices {
		if locale.Base(v.Lang) != base {
			continue
		}
		tag, err := language.Parse(normalize(v.Lang))
		if err != nil {
			continue
		}
		candidates = append(candidates, v)
		tags = append(tags, tag)
	}
	if len(candidates) == 0 {
		return Voice{}, false
	}

	want, err := language.Parse(normalize(lang))
	if err != nil {
		return candidates[0], true
	}
	_, idx, _ := language.NewMatcher(tags).Match(want)
	return candidates[idx], true
}
