package ocr

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"go.aimuz.me/filipimo/internal/types"
)

// fakeWorker implements Worker for testing.
type fakeWorker struct {
	text       string
	err        error
	terminated int
}

func (w *fakeWorker) Recognize(_ context.Context, _ []byte) (string, error) {
	return w.text, w.err
}

func (w *fakeWorker) Terminate() error {
	w.terminated++
	return nil
}

// fakeEngine implements Engine for testing.
type fakeEngine struct {
	worker  *fakeWorker
	initErr error
	model   string
}

func (e *fakeEngine) Name() string    { return "fake" }
func (e *fakeEngine) Available() bool { return true }

func (e *fakeEngine) NewWorker(_ context.Context, model string) (Worker, error) {
	e.model = model
	if e.initErr != nil {
		return nil, e.initErr
	}
	return e.worker, nil
}

func TestExtractor_Extract(t *testing.T) {
	tests := []struct {
		name           string
		engine         *fakeEngine
		hint           types.LanguageCode
		wantText       string
		wantOp         string
		wantIs         error
		wantModel      string
		wantTerminated int
	}{
		{
			name:           "success normalizes whitespace",
			engine:         &fakeEngine{worker: &fakeWorker{text: "  Maayong\n\nbuntag \t kaayo  "}},
			hint:           types.LangCebuano,
			wantText:       "Maayong buntag kaayo",
			wantModel:      "ceb",
			wantTerminated: 1,
		},
		{
			name:           "korean model",
			engine:         &fakeEngine{worker: &fakeWorker{text: "안녕하세요"}},
			hint:           types.LangKorean,
			wantText:       "안녕하세요",
			wantModel:      "kor",
			wantTerminated: 1,
		},
		{
			name:           "recognition failure still terminates",
			engine:         &fakeEngine{worker: &fakeWorker{err: errors.New("bad image")}},
			hint:           types.LangTagalog,
			wantOp:         "recognize",
			wantModel:      "tgl",
			wantTerminated: 1,
		},
		{
			name:           "empty result is a failure",
			engine:         &fakeEngine{worker: &fakeWorker{text: " \n\t "}},
			hint:           types.LangEnglish,
			wantOp:         "recognize",
			wantIs:         ErrNoText,
			wantModel:      "eng",
			wantTerminated: 1,
		},
		{
			name:           "init failure",
			engine:         &fakeEngine{worker: &fakeWorker{}, initErr: errors.New("no traineddata")},
			hint:           types.LangEnglish,
			wantOp:         "init",
			wantModel:      "eng",
			wantTerminated: 0,
		},
		{
			name:           "unknown hint falls back to english",
			engine:         &fakeEngine{worker: &fakeWorker{text: "menu"}},
			hint:           "xx-YY",
			wantText:       "menu",
			wantModel:      "eng",
			wantTerminated: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := NewExtractor(tt.engine, nil)
			got, err := x.Extract(context.Background(), []byte("img"), tt.hint)

			if tt.wantOp != "" {
				var ee *ExtractionError
				if !errors.As(err, &ee) {
					t.Fatalf("error = %v, want *ExtractionError", err)
				}
				if ee.Op != tt.wantOp {
					t.Errorf("Op = %q, want %q", ee.Op, tt.wantOp)
				}
				if tt.wantIs != nil && !errors.Is(err, tt.wantIs) {
					t.Errorf("error = %v, want %v", err, tt.wantIs)
				}
			} else if err != nil {
				t.Fatalf("Extract: %v", err)
			}

			if got != tt.wantText {
				t.Errorf("Extract() = %q, want %q", got, tt.wantText)
			}
			if tt.engine.model != tt.wantModel {
				t.Errorf("model = %q, want %q", tt.engine.model, tt.wantModel)
			}
			if n := tt.engine.worker.terminated; n != tt.wantTerminated {
				t.Errorf("terminated %d times, want %d", n, tt.wantTerminated)
			}
		})
	}
}

func TestExtractor_Unavailable(t *testing.T) {
	x := NewExtractor(nil, nil)
	if x.Available() {
		t.Fatal("extractor without engine should be unavailable")
	}
	if _, err := x.Extract(context.Background(), []byte("img"), types.LangEnglish); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("error = %v, want ErrUnavailable", err)
	}
}

func TestExtractor_EmptyImage(t *testing.T) {
	eng := &fakeEngine{worker: &fakeWorker{text: "x"}}
	x := NewExtractor(eng, nil)
	_, err := x.Extract(context.Background(), nil, types.LangEnglish)
	if !errors.Is(err, ErrEmptyImage) || !IsExtractionError(err) {
		t.Fatalf("error = %v, want read ExtractionError", err)
	}
	if eng.model != "" {
		t.Error("no worker should be created for an empty image")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"   ", ""},
		{"one", "one"},
		{" a  b\n\nc\t", "a b c"},
		{"Salamat\r\nkaayo", "Salamat kaayo"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTesseract_Command(t *testing.T) {
	tr, err := NewTesseract("")
	if err != nil {
		t.Fatalf("NewTesseract: %v", err)
	}
	if got := tr.args; len(got) != 5 || got[0] != "tesseract" || got[4] != "{lang}" {
		t.Errorf("default args = %v", got)
	}

	if _, err := NewTesseract(`tesseract "unterminated`); err == nil {
		t.Error("expected parse error")
	}
}

func TestTesseract_ExecRoundTrip(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	// cat echoes stdin, standing in for an OCR binary.
	tr, err := NewTesseract("cat")
	if err != nil {
		t.Fatalf("NewTesseract: %v", err)
	}
	if !tr.Available() {
		t.Fatal("cat should be available")
	}

	x := NewExtractor(tr, nil)
	got, err := x.Extract(context.Background(), []byte("Salamat   kaayo\n"), types.LangCebuano)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if got != "Salamat kaayo" {
		t.Errorf("Extract() = %q, want %q", got, "Salamat kaayo")
	}
}

func TestTesseract_LangPlaceholder(t *testing.T) {
	if _, err := exec.LookPath("echo"); err != nil {
		t.Skip("echo not available")
	}

	tr, err := NewTesseract("echo -l {lang}")
	if err != nil {
		t.Fatalf("NewTesseract: %v", err)
	}
	w, err := tr.NewWorker(context.Background(), "kor")
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	defer w.Terminate()

	out, err := w.Recognize(context.Background(), []byte("ignored"))
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if Normalize(out) != "-l kor" {
		t.Errorf("output = %q, want %q", out, "-l kor")
	}
}

func TestTesseract_TerminatedWorker(t *testing.T) {
	if _, err := exec.LookPath("cat"); err != nil {
		t.Skip("cat not available")
	}

	tr, _ := NewTesseract("cat")
	w, err := tr.NewWorker(context.Background(), "eng")
	if err != nil {
		t.Fatalf("NewWorker: %v", err)
	}
	if err := w.Terminate(); err != nil {
		t.Fatalf("Terminate: %v", err)
	}
	if _, err := w.Recognize(context.Background(), []byte("x")); !errors.Is(err, ErrTerminated) {
		t.Errorf("Recognize after Terminate error = %v, want ErrTerminated", err)
	}
}

func TestTesseract_Unavailable(t *testing.T) {
	tr, err := NewTesseract("definitely-not-an-ocr-binary-xyz")
	if err != nil {
		t.Fatalf("NewTesseract: %v", err)
	}
	if tr.Available() {
		t.Fatal("missing binary should be unavailable")
	}
	x := NewExtractor(tr, nil)
	if _, err := x.Extract(context.Background(), []byte("img"), types.LangEnglish); !errors.Is(err, ErrUnavailable) {
		t.Errorf("error = %v, want ErrUnavailable", err)
	}
}
