package audio

import (
	"encoding/binary"
	"testing"
)

// pcm16 builds a little-endian PCM byte slice from int16 samples.
func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func TestResamplePCM_SameRate(t *testing.T) {
	in := pcm16(1, 2, 3, 4)
	out := resamplePCM(in, 22050, 22050)
	if &out[0] != &in[0] {
		t.Error("same-rate resample should return the input unchanged")
	}
}

func TestResamplePCM_Upsample(t *testing.T) {
	in := pcm16(0, 100, 200, 300)
	out := resamplePCM(in, 12000, 24000)

	if len(out) != len(in)*2 {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in)*2)
	}
	// First sample preserved; interpolated samples sit between neighbours.
	first := int16(binary.LittleEndian.Uint16(out[:2]))
	if first != 0 {
		t.Errorf("first sample = %d, want 0", first)
	}
	second := int16(binary.LittleEndian.Uint16(out[2:4]))
	if second < 0 || second > 100 {
		t.Errorf("interpolated sample = %d, want within [0,100]", second)
	}
}

func TestResamplePCM_Downsample(t *testing.T) {
	in := pcm16(0, 10, 20, 30, 40, 50, 60, 70)
	out := resamplePCM(in, 44100, 22050)
	if len(out) != len(in)/2 {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in)/2)
	}
}

func TestResamplePCM_TinyInput(t *testing.T) {
	in := pcm16(42)
	out := resamplePCM(in, 22050, 44100)
	if len(out) != len(in) {
		t.Errorf("single-sample input should pass through, got len %d", len(out))
	}
}
