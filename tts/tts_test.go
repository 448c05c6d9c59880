package tts

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.aimuz.me/filipimo/internal/types"
)

// fakeEngine implements Engine for testing.
type fakeEngine struct {
	voices []Voice

	mu     sync.Mutex
	spoken []Utterance
	done   chan Utterance
	block  bool
}

func (e *fakeEngine) Name() string    { return "fake" }
func (e *fakeEngine) Available() bool { return true }
func (e *fakeEngine) Voices() []Voice { return e.voices }

func (e *fakeEngine) Speak(ctx context.Context, u Utterance) error {
	e.mu.Lock()
	e.spoken = append(e.spoken, u)
	e.mu.Unlock()
	if e.block {
		<-ctx.Done()
	}
	e.done <- u
	return nil
}

func TestAdapter_Speak(t *testing.T) {
	eng := &fakeEngine{voices: catalog, done: make(chan Utterance, 4)}
	a := NewAdapter(eng, DefaultPolicy(nil), nil)
	defer a.Close()

	a.Speak("Maayong buntag", types.LangCebuano)

	select {
	case u := <-eng.done:
		if u.Text != "Maayong buntag" || u.Lang != types.LangCebuano || u.Voice != "Ceb" {
			t.Errorf("utterance = %+v", u)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for speech")
	}
}

func TestAdapter_EmptyTextNoop(t *testing.T) {
	eng := &fakeEngine{done: make(chan Utterance, 4)}
	a := NewAdapter(eng, DefaultPolicy(nil), nil)

	a.Speak("", types.LangEnglish)
	a.Speak("   \n", types.LangEnglish)
	a.Close()

	eng.mu.Lock()
	defer eng.mu.Unlock()
	if len(eng.spoken) != 0 {
		t.Errorf("spoken = %v, want none", eng.spoken)
	}
}

func TestAdapter_NewUtteranceInterrupts(t *testing.T) {
	eng := &fakeEngine{done: make(chan Utterance, 4), block: true}
	a := NewAdapter(eng, DefaultPolicy(nil), nil)

	a.Speak("first", types.LangEnglish)
	a.Speak("second", types.LangEnglish)

	select {
	case u := <-eng.done:
		if u.Text != "first" {
			t.Errorf("first finished utterance = %q, want %q", u.Text, "first")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("first utterance was not interrupted")
	}

	a.Close()
}

func TestAdapter_NilEngine(t *testing.T) {
	a := NewAdapter(nil, DefaultPolicy(nil), nil)
	if a.Available() {
		t.Fatal("adapter without engine should be unavailable")
	}
	a.Speak("hello", types.LangEnglish)
	a.Close()
}

func TestExpand(t *testing.T) {
	tmpl := []string{"-v", "{voice}", "--lang={lang}"}

	got := expand(tmpl, Utterance{Lang: types.LangKorean, Voice: "Yuna"})
	if got[1] != "Yuna" || got[2] != "--lang=ko-KR" {
		t.Errorf("expand with voice = %v", got)
	}

	got = expand(tmpl, Utterance{Lang: types.LangCebuano})
	if got[1] != "ceb-PH" {
		t.Errorf("expand without voice = %v", got)
	}
	if tmpl[1] != "{voice}" {
		t.Error("template was modified")
	}
}

func TestExec_Speak(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	out := filepath.Join(t.TempDir(), "spoken.txt")
	cmd := `sh -c 'printf "%s|" "$0" > "$1"; cat >> "$1"' {voice} ` + out

	e, err := NewExec(cmd, nil)
	if err != nil {
		t.Fatalf("NewExec: %v", err)
	}
	if !e.Available() {
		t.Fatal("sh should be available")
	}

	if err := e.Speak(context.Background(), Utterance{Text: "Salamat", Lang: types.LangCebuano, Voice: "Angelo"}); err != nil {
		t.Fatalf("Speak: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(data) != "Angelo|Salamat" {
		t.Errorf("output = %q, want %q", data, "Angelo|Salamat")
	}
}

func TestNewExec_Errors(t *testing.T) {
	if _, err := NewExec(`say "unterminated`, nil); err == nil {
		t.Error("expected parse error")
	}

	e, err := NewExec("", nil)
	if err != nil {
		t.Fatalf("NewExec default: %v", err)
	}
	if e.cmd[0] != "espeak-ng" {
		t.Errorf("default command = %v", e.cmd)
	}
}
