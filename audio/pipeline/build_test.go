package pipeline

import (
	"errors"
	"reflect"
	"testing"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
)

func kinds(p *Pipeline) []string {
	res := []string{}
	for _, s := range p.Steps {
		res = append(res, s.Node.Kind())
	}
	return res
}

func TestBuildRecipes(t *testing.T) {
	src := audio.NewBuffer(2, 2000, 44100)

	tests := []struct {
		effect effects.ID
		kinds  []string
	}{
		{effects.None, []string{}},
		{effects.SlowedReverb, []string{"source", "convolution"}},
		{effects.Nightcore, []string{"source"}},
		{effects.Bassboost, []string{"source", "filter"}},
		{effects.Flanger, []string{"source", "oscillator", "delay", "mixer"}},
		{effects.Lofi, []string{"source", "filter"}},
		{effects.FiveDAudio, []string{"source", "convolution"}},
	}

	for _, tc := range tests {
		p, err := Build(tc.effect, src)
		if err != nil {
			t.Fatalf("%s: %v", tc.effect, err)
		}
		if !reflect.DeepEqual(kinds(p), tc.kinds) {
			t.Errorf("%s: expected %v, got %v", tc.effect, tc.kinds, kinds(p))
		}
		if p.Effect != tc.effect {
			t.Errorf("%s: wrong effect %s", tc.effect, p.Effect)
		}
		if len(p.Warnings) > 0 {
			t.Errorf("%s: unexpected warnings %v", tc.effect, p.Warnings)
		}
	}
}

func TestBuildParameters(t *testing.T) {
	src := audio.NewBuffer(1, 100, 44100)

	p, err := Build(effects.SlowedReverb, src)
	if err != nil {
		t.Fatal(err)
	}
	if rate := p.Steps[0].Node.(Source).PlaybackRate; rate != 0.8 {
		t.Errorf("slowed-reverb: expected rate 0.8, got %v", rate)
	}
	ir := p.Steps[1].Node.(Convolution).Impulse
	if ir.NumChannels() != 2 || ir.Frames() != 88200 {
		t.Errorf("slowed-reverb: unexpected impulse response %dch / %d frames",
			ir.NumChannels(), ir.Frames())
	}

	p, err = Build(effects.Nightcore, src)
	if err != nil {
		t.Fatal(err)
	}
	if rate := p.Steps[0].Node.(Source).PlaybackRate; rate != 1.3 {
		t.Errorf("nightcore: expected rate 1.3, got %v", rate)
	}

	p, err = Build(effects.Bassboost, src)
	if err != nil {
		t.Fatal(err)
	}
	f := p.Steps[1].Node.(Filter)
	if f.Type != Lowshelf || f.Frequency != 100 || f.GainDB != 15 {
		t.Errorf("bassboost: unexpected filter %+v", f)
	}

	p, err = Build(effects.Flanger, src)
	if err != nil {
		t.Fatal(err)
	}
	osc := p.Steps[1].Node.(Oscillator)
	if osc.Frequency != 0.5 || osc.Depth != 0.005 {
		t.Errorf("flanger: unexpected oscillator %+v", osc)
	}
	d := p.Steps[2].Node.(DelayLine)
	if d.Delay != 0.01 || d.Modulation != p.Steps[1].ID {
		t.Errorf("flanger: unexpected delay %+v", d)
	}
	mix := p.Steps[3]
	if !reflect.DeepEqual(mix.Node.(Mixer).Weights, []float64{0.5, 0.5}) ||
		!reflect.DeepEqual(mix.Inputs, []NodeID{p.Steps[0].ID, p.Steps[2].ID}) {
		t.Errorf("flanger: unexpected mixer %+v", mix)
	}

	p, err = Build(effects.Lofi, src)
	if err != nil {
		t.Fatal(err)
	}
	if f := p.Steps[1].Node.(Filter); f.Type != Lowpass || f.Frequency != 3500 {
		t.Errorf("lofi: unexpected filter %+v", f)
	}
	if p.Source == src {
		t.Error("lofi: expected transformed source buffer")
	}
}

func TestBuildFiveDMono(t *testing.T) {
	src := audio.NewBuffer(1, 2000, 44100)
	p, err := Build(effects.FiveDAudio, src)
	if err != nil {
		t.Fatal(err)
	}
	if len(p.Warnings) != 1 || !errors.Is(p.Warnings[0], audio.ErrUnsupportedChannelLayout) {
		t.Fatalf("expected channel layout warning, got %v", p.Warnings)
	}
	if p.Source != src {
		t.Fatal("cross mix must be skipped for mono input")
	}
	if !reflect.DeepEqual(kinds(p), []string{"source", "convolution"}) {
		t.Fatalf("unexpected steps %v", kinds(p))
	}
}

func TestBuildKeepsSource(t *testing.T) {
	src := audio.NewBuffer(2, 2000, 44100)
	src.Channels[0][10] = 0.5
	orig := src.Clone()
	for _, id := range effects.All() {
		if _, err := Build(id, src); err != nil {
			t.Fatal(err)
		}
	}
	if !src.Equal(orig) {
		t.Fatal("source buffer was modified")
	}
}

func TestBuildInvalid(t *testing.T) {
	if _, err := Build(effects.Bassboost, &audio.Buffer{}); !errors.Is(err, audio.ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}
	if _, err := Build(effects.ID(42), audio.NewBuffer(1, 10, 44100)); !errors.Is(err, audio.ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	src := audio.NewBuffer(1, 10, 44100)

	p := &Pipeline{
		Source: src,
		Steps: []Step{
			{ID: 1, Node: Source{PlaybackRate: 1}},
			{ID: 2, Inputs: []NodeID{3}, Node: Gain{Factor: 2}},
			{ID: 3, Inputs: []NodeID{1}, Node: Gain{Factor: 2}},
		},
		Output: 3,
	}
	if err := p.Validate(); !errors.Is(err, audio.ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure for forward reference, got %v", err)
	}

	p.Steps = []Step{
		{ID: 1, Node: Source{PlaybackRate: 1}},
		{ID: 2, Inputs: []NodeID{1}, Node: Mixer{Weights: []float64{1, 1}}},
	}
	p.Output = 2
	if err := p.Validate(); !errors.Is(err, audio.ErrRenderFailure) {
		t.Fatalf("expected ErrRenderFailure for mixer weights, got %v", err)
	}
}
