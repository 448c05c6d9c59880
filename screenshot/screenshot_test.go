//go:build !darwin

package screenshot

import (
	"context"
	"errors"
	"os/exec"
	"testing"
)

func requireSh(t *testing.T) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
}

func TestNew(t *testing.T) {
	c, err := New(`sh -c 'printf x > {path}'`)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if len(c.args) != 3 || c.args[2] != "printf x > {path}" {
		t.Errorf("args = %q", c.args)
	}

	if _, err := New(`sh -c 'unterminated`); err == nil {
		t.Error("New() error = nil for unbalanced quotes")
	}
}

func TestCapture(t *testing.T) {
	requireSh(t)

	tests := []struct {
		name    string
		command string
		want    string
		wantErr error
	}{
		{name: "image written", command: `sh -c 'printf PNGDATA > {path}'`, want: "PNGDATA"},
		{name: "selection dismissed", command: `sh -c 'exit 0'`, wantErr: ErrCancelled},
		{name: "empty file", command: `sh -c ': > {path}'`, wantErr: ErrCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.command)
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got, err := c.Capture(context.Background())
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Capture() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Capture() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("Capture() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCaptureToolFails(t *testing.T) {
	requireSh(t)
	c, err := New(`sh -c 'echo denied >&2; exit 3'`)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_, err = c.Capture(context.Background())
	if err == nil || errors.Is(err, ErrCancelled) {
		t.Errorf("Capture() error = %v, want tool failure", err)
	}
}
