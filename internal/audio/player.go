package audio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Device is an audio output.
type Device interface {
	// Play outputs mono samples at rate and returns when they have been
	// played or ctx is cancelled.
	Play(ctx context.Context, pcm []float32, rate int) error
	Close() error
}

// Opener creates the output device on first use.
type Opener func() (Device, error)

// Player owns the process-wide audio context: the output device is opened
// lazily on the first Play, and a suspended context is resumed by the next
// Play. Suspend cancels sounds still playing.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type Player struct {
	open Opener

	mu        sync.Mutex
	dev       Device
	suspended bool
	ctx       context.Context
	cancel    context.CancelFunc
	closed    bool

	wg sync.WaitGroup
}

// NewPlayer creates a player. The device is not opened until needed.
func NewPlayer(open Opener) *Player {
	return &Player{open: open}
}

// Play starts the sound named key and returns immediately. Unknown keys
// and output failures are ignored.
func (p *Player) Play(key string) {
	s, ok := Lookup(key)
	if !ok {
		slog.Debug("audio: unknown sound", "sound", key)
		return
	}

	dev, ctx, err := p.acquire()
	if err != nil {
		slog.Debug("audio: no output device", "error", err)
		return
	}

	go func() {
		defer p.wg.Done()
		if err := dev.Play(ctx, Render(s, SampleRate), SampleRate); err != nil {
			slog.Debug("audio: playback failed", "sound", key, "error", err)
		}
	}()
}

// acquire returns the device and the playback context, opening or
// resuming as needed. On success the sound is counted as running, so a
// concurrent Close waits for it.
func (p *Player) acquire() (Device, context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil, nil, fmt.Errorf("player closed")
	}
	if p.dev == nil {
		dev, err := p.open()
		if err != nil {
			return nil, nil, fmt.Errorf("open audio device: %w", err)
		}
		p.dev = dev
		slog.Debug("audio: device opened")
	}
	if p.ctx == nil || p.suspended {
		p.ctx, p.cancel = context.WithCancel(context.Background())
		p.suspended = false
	}
	p.wg.Add(1)
	return p.dev, p.ctx, nil
}

// Suspend stops sounds in progress. The next Play resumes the context.
func (p *Player) Suspend() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
	}
	p.suspended = true
}

// Wait blocks until every started sound has finished.
func (p *Player) Wait() {
	p.wg.Wait()
}

// Close waits for running sounds and releases the device.
func (p *Player) Close() error {
	p.mu.Lock()
	p.closed = true
	dev := p.dev
	p.dev = nil
	p.mu.Unlock()

	p.wg.Wait()
	if dev == nil {
		return nil
	}
	return dev.Close()
}
