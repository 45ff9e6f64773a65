//go:build nocgo

package audio

import (
	"context"
	"errors"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// ErrPlaybackUnavailable is returned by Play when the binary was built
// without audio support.
var ErrPlaybackUnavailable = errors.New("audio: playback unavailable in nocgo build")

// Player is a stub Sink for builds without cgo audio support.
type Player struct{}

// Compile-time interface assertion.
var _ Sink = (*Player)(nil)

// NewPlayer creates a stub Player.
func NewPlayer() *Player {
	return &Player{}
}

// Play always returns [ErrPlaybackUnavailable].
func (p *Player) Play(_ context.Context, _ *tts.Audio) error {
	return ErrPlaybackUnavailable
}
