// Package reveal drives the video sequence that plays between a successful
// login and the protected area.
package reveal

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// ErrInvalidTransition is returned when an event does not apply to the
// current state.
var ErrInvalidTransition = errors.New("invalid reveal transition")

// State of a Sequence.
type State int

const (
	Idle State = iota
	Playing
	Unlocked
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case Unlocked:
		return "unlocked"
	default:
		return "unknown"
	}
}

// Player is the media surface the sequence controls.
type Player interface {
	Play(ctx context.Context) error
	EnterFullscreen(ctx context.Context) error
	ExitFullscreen(ctx context.Context) error
	Fullscreen() bool
}

// Sequence is a one-shot state machine: Idle -> Playing -> Unlocked.
// Both the end of the video and leaving fullscreen unlock it.
type Sequence struct {
	player   Player
	log      *zap.Logger
	onUnlock func()

	mu     sync.Mutex
	state  State
	manual bool
	done   chan struct{}
}

// NewSequence returns an idle sequence. onUnlock may be nil.
func NewSequence(player Player, log *zap.Logger, onUnlock func()) *Sequence {
	if log == nil {
		log = zap.NewNop()
	}
	return &Sequence{
		player:   player,
		log:      log,
		onUnlock: onUnlock,
		done:     make(chan struct{}),
	}
}

func (s *Sequence) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Done is closed when the sequence unlocks.
func (s *Sequence) Done() <-chan struct{} {
	return s.done
}

// ManualPlayAvailable reports whether autoplay or fullscreen was refused and
// the user should be offered a play control.
func (s *Sequence) ManualPlayAvailable() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manual
}

// Start begins playback and requests fullscreen. Player failures do not
// fail Start; they are logged and enable manual play.
func (s *Sequence) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Idle {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.state = Playing
	s.mu.Unlock()

	failed := false
	if err := s.player.EnterFullscreen(ctx); err != nil {
		s.log.Warn("fullscreen request refused", zap.Error(err))
		failed = true
	}
	if err := s.player.Play(ctx); err != nil {
		s.log.Warn("autoplay refused", zap.Error(err))
		failed = true
	}
	if failed {
		s.mu.Lock()
		if s.state == Playing {
			s.manual = true
		}
		s.mu.Unlock()
	}
	return nil
}

// ManualPlay retries playback after autoplay was refused.
func (s *Sequence) ManualPlay(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Playing || !s.manual {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.mu.Unlock()

	if err := s.player.Play(ctx); err != nil {
		s.log.Warn("manual play failed", zap.Error(err))
		return err
	}
	s.mu.Lock()
	s.manual = false
	s.mu.Unlock()
	return nil
}

// VideoEnded handles the end of playback.
func (s *Sequence) VideoEnded(ctx context.Context) error {
	return s.unlock(ctx)
}

// FullscreenExited handles the user leaving fullscreen, which counts as
// finishing the video.
func (s *Sequence) FullscreenExited(ctx context.Context) error {
	return s.unlock(ctx)
}

func (s *Sequence) unlock(ctx context.Context) error {
	s.mu.Lock()
	if s.state != Playing {
		s.mu.Unlock()
		return ErrInvalidTransition
	}
	s.state = Unlocked
	s.manual = false
	s.mu.Unlock()

	if s.player.Fullscreen() {
		if err := s.player.ExitFullscreen(ctx); err != nil {
			s.log.Warn("exit fullscreen failed", zap.Error(err))
		}
	}
	close(s.done)
	if s.onUnlock != nil {
		s.onUnlock()
	}
	return nil
}
