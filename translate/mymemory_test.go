package translate

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.aimuz.me/filipimo/internal/types"
)

func TestMyMemory_Translate(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		email    string
		src, dst types.LanguageCode
		wantPair string
		wantText string
		wantErr  bool
		wantIs   error
	}{
		{
			name:     "korean to cebuano",
			status:   http.StatusOK,
			body:     `{"responseData":{"translatedText":"Maayong buntag"},"responseStatus":200}`,
			src:      types.LangKorean,
			dst:      types.LangCebuano,
			wantPair: "ko|ceb",
			wantText: "Maayong buntag",
		},
		{
			name:     "tagalog override",
			status:   http.StatusOK,
			body:     `{"responseData":{"translatedText":"Good morning"}}`,
			src:      types.LangTagalog,
			dst:      types.LangEnglish,
			email:    "traveler@example.com",
			wantPair: "tl|en",
			wantText: "Good morning",
		},
		{
			name:     "non-2xx status",
			status:   http.StatusTooManyRequests,
			body:     `{"responseDetails":"quota"}`,
			src:      types.LangEnglish,
			dst:      types.LangKorean,
			wantPair: "en|ko",
			wantErr:  true,
		},
		{
			name:     "missing translated text",
			status:   http.StatusOK,
			body:     `{"responseData":{}}`,
			src:      types.LangEnglish,
			dst:      types.LangKorean,
			wantPair: "en|ko",
			wantErr:  true,
			wantIs:   ErrMissingTranslation,
		},
		{
			name:     "missing response data",
			status:   http.StatusOK,
			body:     `{}`,
			src:      types.LangEnglish,
			dst:      types.LangKorean,
			wantPair: "en|ko",
			wantErr:  true,
			wantIs:   ErrMissingTranslation,
		},
		{
			name:     "malformed json",
			status:   http.StatusOK,
			body:     `not json`,
			src:      types.LangEnglish,
			dst:      types.LangKorean,
			wantPair: "en|ko",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("method = %s, want GET", r.Method)
				}
				q := r.URL.Query()
				if got := q.Get("langpair"); got != tt.wantPair {
					t.Errorf("langpair = %q, want %q", got, tt.wantPair)
				}
				if got := q.Get("q"); got != "text & more" {
					t.Errorf("q = %q, want %q", got, "text & more")
				}
				if got := q.Get("de"); got != tt.email {
					t.Errorf("de = %q, want %q", got, tt.email)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			m := NewMyMemory(srv.URL, tt.email, 0)
			got, err := m.Translate(context.Background(), "text & more", tt.src, tt.dst)

			if (err != nil) != tt.wantErr {
				t.Fatalf("Translate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
				t.Errorf("error = %v, want %v", err, tt.wantIs)
			}
			if got != tt.wantText {
				t.Errorf("Translate() = %q, want %q", got, tt.wantText)
			}
		})
	}
}

func TestMyMemory_ThroughClient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(NewMyMemory(srv.URL, "", 0))
	got := c.Translate(context.Background(), "Hello", types.LangEnglish, types.LangKorean)

	if !got.Failed() {
		t.Fatal("expected failure marker")
	}
	if got.Text != "" {
		t.Errorf("Text = %q, want empty", got.Text)
	}
	if !strings.Contains(got.Error, "500") {
		t.Errorf("Error = %q, want status code", got.Error)
	}
}
