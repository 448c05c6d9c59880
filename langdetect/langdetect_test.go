package langdetect

import (
	"testing"

	"go.aimuz.me/filipimo/internal/types"
)

func TestDetect(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		candidates []types.LanguageCode
		want       types.LanguageCode
		wantOK     bool
	}{
		{
			name:   "empty",
			text:   "   ",
			wantOK: false,
		},
		{
			name:   "korean",
			text:   "안녕하세요, 화장실이 어디에 있어요?",
			want:   types.LangKorean,
			wantOK: true,
		},
		{
			name:   "english",
			text:   "Where is the nearest bus station from here?",
			want:   types.LangEnglish,
			wantOK: true,
		},
		{
			name:       "not a candidate",
			text:       "안녕하세요, 화장실이 어디에 있어요?",
			candidates: []types.LanguageCode{types.LangEnglish, types.LangCebuano},
			wantOK:     false,
		},
		{
			name:       "candidate filter",
			text:       "Where is the nearest bus station from here?",
			candidates: []types.LanguageCode{types.LangKorean, types.LangEnglish},
			want:       types.LangEnglish,
			wantOK:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Detect(tt.text, tt.candidates...)
			if ok != tt.wantOK {
				t.Fatalf("Detect() ok = %v, want %v (got %q)", ok, tt.wantOK, got)
			}
			if got != tt.want {
				t.Errorf("Detect() = %q, want %q", got, tt.want)
			}
		})
	}
}
