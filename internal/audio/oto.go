//go:build !nocgo

package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// pollInterval is how often playback completion is checked.
const pollInterval = 10 * time.Millisecond

// Player is a Sink backed by an oto audio context.
//
// oto allows a single context per process with a fixed sample rate, so the
// context is created lazily on the first Play and payloads at other rates are
// resampled to the context rate.
type Player struct {
	mu   sync.Mutex
	ctx  *oto.Context
	rate int
}

// Compile-time interface assertion.
var _ Sink = (*Player)(nil)

// NewPlayer creates an uninitialised Player. The underlying audio context is
// created on the first Play call so that constructing a Player never touches
// the audio device.
func NewPlayer() *Player {
	return &Player{}
}

// Play writes the payload to the audio device and blocks until the device has
// fully drained it or ctx is cancelled.
func (p *Player) Play(ctx context.Context, a *tts.Audio) error {
	if a == nil || len(a.PCM) == 0 {
		return errors.New("audio: empty payload")
	}
	if a.SampleRate <= 0 {
		return fmt.Errorf("audio: invalid sample rate %d", a.SampleRate)
	}

	otoCtx, rate, err := p.context(a.SampleRate)
	if err != nil {
		return err
	}

	pcm := a.PCM
	if a.SampleRate != rate {
		slog.Debug("resampling payload to device rate",
			"from", a.SampleRate, "to", rate)
		pcm = resamplePCM(pcm, a.SampleRate, rate)
	}

	player := otoCtx.NewPlayer(bytes.NewReader(pcm))
	defer player.Close()
	player.Play()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for player.IsPlaying() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	if err := player.Err(); err != nil {
		return fmt.Errorf("audio: playback: %w", err)
	}
	return nil
}

// context returns the shared oto context, creating it with rate on first use.
func (p *Player) context(rate int) (*oto.Context, int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ctx != nil {
		return p.ctx, p.rate, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 1,
		Format:       oto.FormatSignedInt16LE,
	}
	otoCtx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, 0, fmt.Errorf("audio: create context: %w", err)
	}
	<-ready

	p.ctx = otoCtx
	p.rate = rate
	slog.Debug("audio context ready", "sample_rate", rate)
	return p.ctx, p.rate, nil
}
