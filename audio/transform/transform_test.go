package transform

import (
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/chewxy/math32"
	"github.com/dh1tw/vibify/audio"
)

func testBuffer(chs, frames int) *audio.Buffer {
	r := rand.New(rand.NewPCG(7, 11))
	b := audio.NewBuffer(chs, frames, 44100)
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] = r.Float32()*2 - 1
		}
	}
	return b
}

func TestBitcrushHoldsTransformedSample(t *testing.T) {
	in := audio.FromInterleaved([]float32{0.5, -0.9, 0.2, 0.7}, 1, 44100)
	out := BitcrushAndSaturate(in, NoiseAmplitude(0))

	ch := out.Channels[0]
	drive := float32(1.1)
	exp0 := math32.Tanh(0.5 * drive)
	exp1 := math32.Tanh(exp0 * drive)
	if ch[0] != exp0 || ch[1] != exp1 {
		t.Fatalf("expected %v, %v; got %v, %v", exp0, exp1, ch[0], ch[1])
	}
	if ch[1] == ch[0] {
		t.Fatal("held sample was not saturated again")
	}
}

func TestBitcrushSaturationAndNoise(t *testing.T) {
	in := testBuffer(2, 64)
	out := BitcrushAndSaturate(in, Rand(rand.New(rand.NewPCG(3, 4))))

	noise := rand.New(rand.NewPCG(3, 4))
	for c, ch := range out.Channels {
		for i := range ch {
			src := in.Channels[c][i]
			if i%2 != 0 {
				src = ch[i-1]
			}
			exp := math32.Tanh(src*1.1) + noise.Float32()*0.03
			if math32.Abs(ch[i]-exp) > 1e-6 {
				t.Fatalf("channel %d, frame %d: expected %v, got %v", c, i, exp, ch[i])
			}
		}
	}
}

func TestBitcrushReductionFactor(t *testing.T) {
	in := testBuffer(1, 12)
	out := BitcrushAndSaturate(in, NoiseAmplitude(0), ReductionFactor(3))

	ch := out.Channels[0]
	for i := range ch {
		src := in.Channels[0][i]
		if r := i % 3; r != 0 {
			src = ch[i-r]
		}
		if exp := math32.Tanh(src * 1.1); ch[i] != exp {
			t.Fatalf("frame %d: expected %v, got %v", i, exp, ch[i])
		}
	}
}

func TestBitcrushKeepsInput(t *testing.T) {
	in := testBuffer(1, 32)
	orig := in.Clone()
	BitcrushAndSaturate(in)
	if !in.Equal(orig) {
		t.Fatal("input buffer was modified")
	}
}

func TestStereoCrossMix(t *testing.T) {
	in := testBuffer(2, 1000)
	orig := in.Clone()
	out, err := StereoCrossMix(in)
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 1000; i++ {
		l, r := in.Channels[0][i], in.Channels[1][i]
		if i >= 200 {
			if out.Channels[0][i] != l || out.Channels[1][i] != r {
				t.Fatalf("frame %d in tail guard was modified", i)
			}
			continue
		}
		if exp := l*0.6 + r*0.4; math32.Abs(out.Channels[0][i]-exp) > 1e-6 {
			t.Fatalf("frame %d left: expected %v, got %v", i, exp, out.Channels[0][i])
		}
		if exp := r*0.6 + l*0.4; math32.Abs(out.Channels[1][i]-exp) > 1e-6 {
			t.Fatalf("frame %d right: expected %v, got %v", i, exp, out.Channels[1][i])
		}
	}

	if !in.Equal(orig) {
		t.Fatal("input buffer was modified")
	}
}

func TestStereoCrossMixShortBuffer(t *testing.T) {
	in := testBuffer(2, 500)
	out, err := StereoCrossMix(in)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(in) {
		t.Fatal("buffer shorter than the tail guard must stay untouched")
	}
}

func TestStereoCrossMixMono(t *testing.T) {
	_, err := StereoCrossMix(testBuffer(1, 1000))
	if !errors.Is(err, audio.ErrUnsupportedChannelLayout) {
		t.Fatalf("expected ErrUnsupportedChannelLayout, got %v", err)
	}
}
