package tts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"github.com/mattn/go-shellwords"
)

// DefaultCommand reads text from stdin.
const DefaultCommand = "espeak-ng --stdin -v {voice}"

// Exec speaks through an external command. The command template may
// contain {voice} and {lang}; {voice} expands to the language code when no
// voice was selected. Text is written to stdin.
type Exec struct {
	cmd    []string
	voices []Voice
	mu     sync.Mutex
}

// NewExec parses command. An empty command selects DefaultCommand.
func NewExec(command string, voices []Voice) (*Exec, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand
	}
	args, err := shellwords.NewParser().Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse tts command: %w", err)
	}
	if len(args) == 0 {
		return nil, errors.New("tts command empty")
	}
	return &Exec{cmd: args, voices: voices}, nil
}

// Name implements Engine.
func (e *Exec) Name() string { return "exec" }

// Available implements Engine.
func (e *Exec) Available() bool {
	_, err := exec.LookPath(e.cmd[0])
	return err == nil
}

// Voices implements Engine.
func (e *Exec) Voices() []Voice {
	return e.voices
}

// Speak implements Engine. Utterances are serialized.
func (e *Exec) Speak(ctx context.Context, u Utterance) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	args := expand(e.cmd[1:], u)
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, e.cmd[0], args...)
	cmd.Stdin = strings.NewReader(u.Text)
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("run %s: %w: %s", e.cmd[0], err, strings.TrimSpace(stderr.String()))
	}
	return nil
}

func expand(tmpl []string, u Utterance) []string {
	voice := u.Voice
	if voice == "" {
		voice = string(u.Lang)
	}
	r := strings.NewReplacer("{voice}", voice, "{lang}", string(u.Lang))

	out := make([]string, len(tmpl))
	for i, a := range tmpl {
		out[i] = r.Replace(a)
	}
	return out
}
