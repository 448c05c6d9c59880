// Package types provides shared type definitions for the application.
package types

// LanguageCode is a BCP 47 style identifier from the closed set of
// supported languages (see package locale).
type LanguageCode string

// Supported languages.
const (
	LangEnglish LanguageCode = "en-US"
	LangKorean  LanguageCode = "ko-KR"
	LangTagalog LanguageCode = "tl-PH"
	LangCebuano LanguageCode = "ceb-PH"
)

// LanguagePair holds the two configured languages. Home is the language
// the traveler speaks, Foreign the one they are visiting.
type LanguagePair struct {
	Home    LanguageCode `json:"home"`
	Foreign LanguageCode `json:"foreign"`
}

// Direction selects which language of the pair is the source.
type Direction string

const (
	HomeToForeign Direction = "home-to-foreign"
	ForeignToHome Direction = "foreign-to-home"
)

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == ForeignToHome {
		return HomeToForeign
	}
	return ForeignToHome
}

// Source returns the source language of the pair under direction d.
func (p LanguagePair) Source(d Direction) LanguageCode {
	if d == ForeignToHome {
		return p.Foreign
	}
	return p.Home
}

// Target returns the target language of the pair under direction d.
func (p LanguagePair) Target(d Direction) LanguageCode {
	if d == ForeignToHome {
		return p.Home
	}
	return p.Foreign
}

// Channel identifies the input that currently owns the canonical text.
type Channel string

const (
	ChannelIdle   Channel = "idle"
	ChannelSpeech Channel = "speech"
	ChannelScan   Channel = "scan"
)

// State is the composite pipeline state.
type State string

const (
	StateIdle            State = "idle"
	StateCapturingSpeech State = "capturing-speech"
	StateCapturingScan   State = "capturing-scan"
	StateTranslating     State = "translating"
	StateReady           State = "ready"
)

// ─────────────────────────────────────────────────────────────────────────────
// Translation
// ─────────────────────────────────────────────────────────────────────────────

// TranslateRequest is an immutable snapshot of settled input.
type TranslateRequest struct {
	ID         string       `json:"id"`
	Seq        uint64       `json:"seq"`
	Text       string       `json:"text"`
	SourceLang LanguageCode `json:"sourceLang"`
	TargetLang LanguageCode `json:"targetLang"`
}

// TranslateResult is the uniform outcome of a translation call.
// A failed call carries a non-empty Error and an empty Text.
type TranslateResult struct {
	Text     string `json:"text"`
	Error    string `json:"error,omitempty"`
	Provider string `json:"provider,omitempty"`
	CacheHit bool   `json:"cacheHit"`
}

// Failed reports whether the result carries an error marker.
func (r TranslateResult) Failed() bool {
	return r.Error != ""
}

// ─────────────────────────────────────────────────────────────────────────────
// Presentation
// ─────────────────────────────────────────────────────────────────────────────

// Snapshot is the read-only pipeline state consumed by the presentation layer.
type Snapshot struct {
	State           State        `json:"state"`
	Channel         Channel      `json:"channel"`
	IsListening     bool         `json:"isListening"`
	IsScanning      bool         `json:"isScanning"`
	IsTranslating   bool         `json:"isTranslating"`
	InputText       string       `json:"inputText"`
	TranslatedText  string       `json:"translatedText"`
	Direction       Direction    `json:"direction"`
	Languages       LanguagePair `json:"languages"`
	SourceLang      LanguageCode `json:"sourceLang"`
	TargetLang      LanguageCode `json:"targetLang"`
	DetectedLang    LanguageCode `json:"detectedLang,omitempty"` // Advisory only
	Error           string       `json:"error,omitempty"`        // Last user-visible failure
	SpeechAvailable bool         `json:"speechAvailable"`
	ScanAvailable   bool         `json:"scanAvailable"`
	LastSeq         uint64       `json:"lastSeq"`
}

// LanguageOption describes a selectable language.
type LanguageOption struct {
	Code LanguageCode `json:"code"`
	Name string       `json:"name"`
}
