package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// ErrNoPlayer is returned when no command-line audio player is installed.
var ErrNoPlayer = errors.New("no audio player found in PATH")

// players are tried in order; each takes a WAV file path as its only
// argument.
var players = []string{"paplay", "aplay", "afplay"}

// CommandDevice plays sounds through a system audio player command.
type CommandDevice struct {
	path string
}

// OpenCommandDevice finds an installed player. It is an Opener.
func OpenCommandDevice() (Device, error) {
	for _, name := range players {
		if path, err := exec.LookPath(name); err == nil {
			return &CommandDevice{path: path}, nil
		}
	}
	return nil, ErrNoPlayer
}

// Play writes pcm to a temporary WAV file and runs the player on it.
func (d *CommandDevice) Play(ctx context.Context, pcm []float32, rate int) error {
	f, err := os.CreateTemp("", "mydays-*.wav")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(f.Name())

	if err := EncodeWAV(f, pcm, rate); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	out, err := exec.CommandContext(ctx, d.path, f.Name()).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s: %w: %s", d.path, err, out)
	}
	return nil
}

// Close implements Device.
func (d *CommandDevice) Close() error { return nil }
