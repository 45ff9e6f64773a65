// Package audio provides the playback sink that turns a synthesized PCM
// payload into audible output. Play blocks until the device has fully drained
// the buffer; the turn-taking coordinator relies on that to guarantee one
// utterance is completely audible before the next begins.
package audio

import (
	"context"

	"github.com/MindSyncTech/talktocursor/pkg/provider/tts"
)

// Sink plays one audio payload synchronously to completion.
type Sink interface {
	// Play writes the payload to the output device and blocks until playback
	// has fully finished or ctx is cancelled. Device and format errors are
	// returned to the caller; they must not panic.
	Play(ctx context.Context, a *tts.Audio) error
}

// resamplePCM converts 16-bit LE mono PCM from one sample rate to another
// using linear interpolation. Returns the input unchanged when the rates
// already match.
func resamplePCM(pcm []byte, from, to int) []byte {
	if from == to || from <= 0 || to <= 0 {
		return pcm
	}
	inSamples := len(pcm) / 2
	if inSamples < 2 {
		return pcm
	}
	outSamples := int(int64(inSamples) * int64(to) / int64(from))
	out := make([]byte, outSamples*2)
	for i := 0; i < outSamples; i++ {
		// Fractional source position for output sample i.
		srcPos := float64(i) * float64(from) / float64(to)
		idx := int(srcPos)
		if idx >= inSamples-1 {
			idx = inSamples - 2
		}
		frac := srcPos - float64(idx)

		s0 := int16(uint16(pcm[idx*2]) | uint16(pcm[idx*2+1])<<8)
		s1 := int16(uint16(pcm[idx*2+2]) | uint16(pcm[idx*2+3])<<8)
		v := float64(s0) + (float64(s1)-float64(s0))*frac

		u := uint16(int16(v))
		out[i*2] = byte(u)
		out[i*2+1] = byte(u >> 8)
	}
	return out
}
