package render

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/audio/pipeline"
)

func noise(chs, frames, sr int) *audio.Buffer {
	r := rand.New(rand.NewPCG(42, 1))
	b := audio.NewBuffer(chs, frames, sr)
	for _, ch := range b.Channels {
		for i := range ch {
			ch[i] = (r.Float32()*2 - 1) * 0.5
		}
	}
	return b
}

func sine(freq float64, frames, sr int) *audio.Buffer {
	b := audio.NewBuffer(1, frames, sr)
	for i := range b.Channels[0] {
		b.Channels[0][i] = float32(0.1 * math.Sin(2*math.Pi*freq*float64(i)/float64(sr)))
	}
	return b
}

func renderEffect(t *testing.T, id effects.ID, src *audio.Buffer) *audio.Buffer {
	t.Helper()
	p, err := pipeline.Build(id, src)
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(context.Background(), p, src.Frames())
	if err != nil {
		t.Fatal(err)
	}
	return out
}

func TestRenderNone(t *testing.T) {
	src := noise(2, 1000, 44100)
	out := renderEffect(t, effects.None, src)
	if !out.Equal(src) {
		t.Fatal("none must return the original buffer")
	}
}

func TestRenderSilentBassboost(t *testing.T) {
	src := audio.NewBuffer(1, 44100, 44100)
	out := renderEffect(t, effects.Bassboost, src)
	if out.NumChannels() != 1 || out.Frames() != 44100 || out.Samplerate != 44100 {
		t.Fatalf("unexpected shape %dch / %d frames / %d Hz",
			out.NumChannels(), out.Frames(), out.Samplerate)
	}
	for i, s := range out.Channels[0] {
		if s != 0 {
			t.Fatalf("frame %d: expected silence, got %v", i, s)
		}
	}
}

func TestRenderDeterministic(t *testing.T) {
	src := noise(2, 8000, 44100)
	for _, id := range []effects.ID{effects.Bassboost, effects.Nightcore, effects.Flanger} {
		a := renderEffect(t, id, src)
		b := renderEffect(t, id, src)
		if !a.Equal(b) {
			t.Errorf("%s: renders differ", id)
		}
		if a.Equal(src) {
			t.Errorf("%s: output equals input", id)
		}
	}
}

func TestRenderShape(t *testing.T) {
	for _, chs := range []int{1, 2} {
		src := noise(chs, 4000, 22050)
		for _, id := range effects.All() {
			out := renderEffect(t, id, src)
			if out.NumChannels() != chs || out.Frames() != 4000 || out.Samplerate != 22050 {
				t.Errorf("%s (%dch): unexpected shape %dch / %d frames / %d Hz",
					id, chs, out.NumChannels(), out.Frames(), out.Samplerate)
			}
		}
	}
}

func TestRenderKeepsSource(t *testing.T) {
	src := noise(2, 4000, 22050)
	orig := src.Clone()
	for _, id := range effects.All() {
		renderEffect(t, id, src)
	}
	if !src.Equal(orig) {
		t.Fatal("source buffer was modified")
	}
}

func TestRenderNightcoreTail(t *testing.T) {
	src := noise(1, 44100, 44100)
	out := renderEffect(t, effects.Nightcore, src)
	// 1s played at 1.3x ends after ~0.77s
	for i := 40000; i < 44100; i++ {
		if out.Channels[0][i] != 0 {
			t.Fatalf("frame %d: expected silence after the end of the source, got %v",
				i, out.Channels[0][i])
		}
	}
}

func TestRenderBassboostGain(t *testing.T) {
	sr := 44100
	src := sine(40, sr, sr)
	out := renderEffect(t, effects.Bassboost, src)

	peak := func(s []float32) float64 {
		var m float64
		for _, v := range s[sr/2:] {
			m = math.Max(m, math.Abs(float64(v)))
		}
		return m
	}
	ratio := peak(out.Channels[0]) / peak(src.Channels[0])
	// the shelf boosts 40Hz by roughly 12-15dB
	if ratio < 3 || ratio > 6 {
		t.Fatalf("unexpected bass gain %v", ratio)
	}
}

func TestRenderDelay(t *testing.T) {
	sr := 1000
	src := noise(1, 200, sr)
	p := &pipeline.Pipeline{
		Source: src,
		Steps: []pipeline.Step{
			{ID: 1, Node: pipeline.Source{PlaybackRate: 1}},
			{ID: 2, Inputs: []pipeline.NodeID{1}, Node: pipeline.DelayLine{MaxDelay: 1, Delay: 0.01}},
		},
		Output: 2,
	}
	out, err := Render(context.Background(), p, 200)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 200; i++ {
		exp := float32(0)
		if i >= 10 {
			exp = src.Channels[0][i-10]
		}
		if math.Abs(float64(out.Channels[0][i]-exp)) > 1e-5 {
			t.Fatalf("frame %d: expected %v, got %v", i, exp, out.Channels[0][i])
		}
	}
}

func TestRenderGainMixer(t *testing.T) {
	src := noise(2, 100, 8000)
	p := &pipeline.Pipeline{
		Source: src,
		Steps: []pipeline.Step{
			{ID: 1, Node: pipeline.Source{PlaybackRate: 1}},
			{ID: 2, Inputs: []pipeline.NodeID{1}, Node: pipeline.Gain{Factor: 2}},
			{ID: 3, Inputs: []pipeline.NodeID{1, 2}, Node: pipeline.Mixer{Weights: []float64{0.5, 0.25}}},
		},
		Output: 3,
	}
	out, err := Render(context.Background(), p, 100)
	if err != nil {
		t.Fatal(err)
	}
	for c := range src.Channels {
		for i, s := range src.Channels[c] {
			if math.Abs(float64(out.Channels[c][i]-s)) > 1e-6 {
				t.Fatalf("ch %d frame %d: expected %v, got %v", c, i, s, out.Channels[c][i])
			}
		}
	}
}

func TestRenderLowpassAboveNyquist(t *testing.T) {
	src := noise(1, 100, 8000)
	p := &pipeline.Pipeline{
		Source: src,
		Steps: []pipeline.Step{
			{ID: 1, Node: pipeline.Source{PlaybackRate: 1}},
			{ID: 2, Inputs: []pipeline.NodeID{1}, Node: pipeline.Filter{
				Type: pipeline.Lowpass, Frequency: 4000, Q: 1}},
		},
		Output: 2,
	}
	out, err := Render(context.Background(), p, 100)
	if err != nil {
		t.Fatal(err)
	}
	if !out.Equal(src) {
		t.Fatal("lowpass at nyquist must pass the signal through")
	}
}

func TestRenderInvalidParameters(t *testing.T) {
	src := noise(1, 100, 8000)
	nodes := []pipeline.Node{
		pipeline.Filter{Type: pipeline.Lowpass, Frequency: -100, Q: 1},
		pipeline.Filter{Type: pipeline.Lowshelf, Frequency: 100, Q: 0},
		pipeline.Filter{Type: "notch", Frequency: 100, Q: 1},
		pipeline.Gain{Factor: math.Inf(1)},
		pipeline.DelayLine{MaxDelay: 0, Delay: 0},
		pipeline.DelayLine{MaxDelay: 1, Delay: 2},
		pipeline.Convolution{Impulse: &audio.Buffer{}},
	}
	for _, n := range nodes {
		p := &pipeline.Pipeline{
			Source: src,
			Steps: []pipeline.Step{
				{ID: 1, Node: pipeline.Source{PlaybackRate: 1}},
				{ID: 2, Inputs: []pipeline.NodeID{1}, Node: n},
			},
			Output: 2,
		}
		if _, err := Render(context.Background(), p, 100); !errors.Is(err, audio.ErrRenderFailure) {
			t.Errorf("%+v: expected ErrRenderFailure, got %v", n, err)
		}
	}

	p := &pipeline.Pipeline{
		Source: src,
		Steps:  []pipeline.Step{{ID: 1, Node: pipeline.Source{PlaybackRate: -1}}},
		Output: 1,
	}
	if _, err := Render(context.Background(), p, 100); !errors.Is(err, audio.ErrRenderFailure) {
		t.Errorf("negative playback rate: expected ErrRenderFailure, got %v", err)
	}
}

func TestRenderCancelled(t *testing.T) {
	src := noise(2, 1000, 8000)
	p, err := pipeline.Build(effects.Bassboost, src)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Render(ctx, p, src.Frames()); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestConvolutionCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := &renderer{ctx: ctx, frames: 4, samplerate: 8000}
	if _, err := r.convolveChannel([]float64{1, 0, 0, 0}, []float64{1}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
