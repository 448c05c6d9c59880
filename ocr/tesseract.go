package ocr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

// DefaultTesseractCommand reads the image from stdin and writes text to stdout.
const DefaultTesseractCommand = "tesseract stdin stdout -l {lang}"

// Tesseract runs an external OCR command per recognition. The command
// template may contain {lang}, replaced by the worker's model.
type Tesseract struct {
	args []string
}

// NewTesseract parses command. An empty command selects DefaultTesseractCommand.
func NewTesseract(command string) (*Tesseract, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultTesseractCommand
	}
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse ocr command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("ocr: command empty")
	}
	return &Tesseract{args: args}, nil
}

// Name implements Engine.
func (t *Tesseract) Name() string { return "tesseract" }

// Available implements Engine.
func (t *Tesseract) Available() bool {
	_, err := exec.LookPath(t.args[0])
	return err == nil
}

// NewWorker implements Engine.
func (t *Tesseract) NewWorker(_ context.Context, model string) (Worker, error) {
	path, err := exec.LookPath(t.args[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	args := make([]string, 0, len(t.args)-1)
	for _, a := range t.args[1:] {
		args = append(args, strings.ReplaceAll(a, "{lang}", model))
	}
	return &tesseractWorker{path: path, args: args}, nil
}

type tesseractWorker struct {
	path string
	args []string

	mu         sync.Mutex
	cmd        *exec.Cmd
	terminated bool
}

func (w *tesseractWorker) Recognize(ctx context.Context, image []byte) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, w.path, w.args...)
	cmd.Stdin = bytes.NewReader(image)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	w.mu.Lock()
	if w.terminated {
		w.mu.Unlock()
		return "", ErrTerminated
	}
	if err := cmd.Start(); err != nil {
		w.mu.Unlock()
		return "", fmt.Errorf("start %s: %w", w.path, err)
	}
	w.cmd = cmd
	w.mu.Unlock()

	err := cmd.Wait()

	w.mu.Lock()
	w.cmd = nil
	terminated := w.terminated
	w.mu.Unlock()

	if terminated {
		return "", ErrTerminated
	}
	if err != nil {
		return "", fmt.Errorf("run %s: %w: %s", w.path, err, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// Terminate kills a running recognition, if any.
func (w *tesseractWorker) Terminate() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.terminated = true
	if w.cmd == nil || w.cmd.Process == nil {
		return nil
	}
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill %s: %w", w.path, err)
	}
	return nil
}
