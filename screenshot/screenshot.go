// Package screenshot captures a user-selected screen region as an image
// for text extraction.
package screenshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/mattn/go-shellwords"
)

const pathPlaceholder = "{path}"

// Sentinel errors.
var (
	ErrUnsupported = errors.New("screenshot: no capture command for this platform")
	ErrPermission  = errors.New("screenshot: screen recording permission required")
	ErrCancelled   = errors.New("screenshot: cancelled")
)

// DefaultCommand returns the interactive region capture command for the
// current platform, or "" when there is none.
func DefaultCommand() string {
	switch runtime.GOOS {
	case "darwin":
		return "screencapture -i -x {path}"
	case "linux":
		return "gnome-screenshot -a -f {path}"
	}
	return ""
}

// Capturer runs an external capture tool that writes a PNG to {path}.
type Capturer struct {
	args []string
}

// New parses command. An empty command selects DefaultCommand.
func New(command string) (*Capturer, error) {
	if strings.TrimSpace(command) == "" {
		command = DefaultCommand()
	}
	if command == "" {
		return nil, ErrUnsupported
	}
	args, err := shellwords.Parse(command)
	if err != nil {
		return nil, fmt.Errorf("parse screenshot command: %w", err)
	}
	if len(args) == 0 {
		return nil, ErrUnsupported
	}
	return &Capturer{args: args}, nil
}

// Available reports whether the capture tool is installed.
func (c *Capturer) Available() bool {
	_, err := exec.LookPath(c.args[0])
	return err == nil
}

// Capture lets the user select a region and returns the encoded image.
// A selection dismissed by the user returns ErrCancelled.
func (c *Capturer) Capture(ctx context.Context) ([]byte, error) {
	if !Permitted() {
		RequestPermission()
		return nil, ErrPermission
	}

	dir, err := os.MkdirTemp("", "filipimo-shot-")
	if err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "capture.png")

	args := make([]string, len(c.args))
	for i, a := range c.args {
		args[i] = strings.ReplaceAll(a, pathPlaceholder, path)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("run %s: %w: %s", args[0], err, strings.TrimSpace(string(out)))
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && len(data) == 0) {
		return nil, ErrCancelled
	}
	if err != nil {
		return nil, fmt.Errorf("read capture: %w", err)
	}
	return data, nil
}
