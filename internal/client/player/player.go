// Package player renders the reveal video in a terminal and drives a
// reveal.Sequence from terminal input.
package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/atinyakov/nilavanti/internal/reveal"
)

// ANSI sequences for the alternate screen buffer, which stands in for fullscreen.
const (
	enterAltScreen = "\x1b[?1049h\x1b[H"
	leaveAltScreen = "\x1b[?1049l"
)

var (
	// ErrAutoplayBlocked is returned by the first Play when autoplay is off.
	ErrAutoplayBlocked = errors.New("autoplay blocked")
	// ErrNoSource is returned by Play when there is no video URL.
	ErrNoSource = errors.New("no video source")
)

// Terminal is a reveal.Player that writes to a terminal.
type Terminal struct {
	URL string
	// TTY enables the alternate screen. Without a terminal there is no
	// fullscreen to enter and EnterFullscreen is a no-op.
	TTY bool
	// Autoplay off makes the first Play fail so the user has to start it.
	Autoplay bool

	out io.Writer

	mu         sync.Mutex
	attempts   int
	playing    bool
	fullscreen bool
}

// NewTerminal returns a player for url writing to out.
func NewTerminal(out io.Writer, url string, tty, autoplay bool) *Terminal {
	return &Terminal{URL: url, TTY: tty, Autoplay: autoplay, out: out}
}

func (t *Terminal) Play(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempts++
	if t.URL == "" {
		return ErrNoSource
	}
	if !t.Autoplay && t.attempts == 1 {
		return ErrAutoplayBlocked
	}
	t.playing = true
	fmt.Fprintf(t.out, "▶ Nilavanti\n  %s\n  (press Enter to skip)\n", t.URL)
	return nil
}

func (t *Terminal) EnterFullscreen(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.TTY || t.fullscreen {
		return nil
	}
	fmt.Fprint(t.out, enterAltScreen)
	t.fullscreen = true
	return nil
}

func (t *Terminal) ExitFullscreen(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.fullscreen {
		return nil
	}
	fmt.Fprint(t.out, leaveAltScreen)
	t.fullscreen = false
	return nil
}

func (t *Terminal) Fullscreen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fullscreen
}

// Playing reports whether playback has started.
func (t *Terminal) Playing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.playing
}

// Watch runs seq until it unlocks. If playback was refused, the next input
// line starts it. After that the video ends on its own after d, and an input
// line counts as leaving fullscreen.
func Watch(ctx context.Context, seq *reveal.Sequence, d time.Duration, input Input) error {
	if err := seq.Start(ctx); err != nil {
		return err
	}

	if seq.ManualPlayAvailable() {
		select {
		case <-input.Next():
		case <-ctx.Done():
			return ctx.Err()
		}
		if err := seq.ManualPlay(ctx); err != nil {
			return err
		}
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return seq.VideoEnded(ctx)
	case <-input.Next():
		return seq.FullscreenExited(ctx)
	case <-ctx.Done():
		return ctx.Err()
	}
}
