package pipeline

import (
	"errors"
	"fmt"
	"math"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/audio/impulse"
	"github.com/dh1tw/vibify/audio/transform"
)

// preset constants
const (
	slowedRate    = 0.8
	slowedIRLen   = 2.0
	slowedIRDecay = 0.5

	nightcoreRate = 1.3

	bassFrequency = 100.0
	bassGainDB    = 15.0

	flangerDelay    = 0.01
	flangerMaxDelay = 5.0
	flangerRate     = 0.5
	flangerDepth    = 0.005
	flangerWeight   = 0.5

	lofiFrequency = 3500.0

	fiveDIRLen   = 1.5
	fiveDIRDecay = 0.3

	// impulse responses are always synthesized as stereo
	irChannels = 2
)

var (
	shelfQ   = 1 / math.Sqrt2
	lowpassQ = math.Pow(10, 1.0/20) // 1dB resonance
)

// Build returns the pipeline which applies effect to src. src is never
// modified. effects.None yields an identity pipeline.
//
// Stages which can't be applied to the channel layout of src are skipped;
// the reason is recorded in Pipeline.Warnings (wrapping
// audio.ErrUnsupportedChannelLayout).
func Build(effect effects.ID, src *audio.Buffer, opts ...Option) (*Pipeline, error) {

	options := Options{}
	for _, option := range opts {
		option(&options)
	}

	if err := src.Validate(); err != nil {
		return nil, fmt.Errorf("build %s: %v: %w", effect, err, audio.ErrRenderFailure)
	}

	p := &Pipeline{
		Effect: effect,
		Source: src,
	}
	g := &graph{}

	switch effect {
	case effects.None:
		return p, nil

	case effects.SlowedReverb:
		ir, err := impulse.Synthesize(slowedIRLen, src.Samplerate, irChannels,
			slowedIRDecay, options.Impulse...)
		if err != nil {
			return nil, err
		}
		s := g.add(Source{PlaybackRate: slowedRate})
		p.Output = g.add(Convolution{Impulse: ir, Normalize: true}, s)

	case effects.Nightcore:
		p.Output = g.add(Source{PlaybackRate: nightcoreRate})

	case effects.Bassboost:
		s := g.add(Source{PlaybackRate: 1})
		p.Output = g.add(Filter{
			Type:      Lowshelf,
			Frequency: bassFrequency,
			GainDB:    bassGainDB,
			Q:         shelfQ,
		}, s)

	case effects.Flanger:
		s := g.add(Source{PlaybackRate: 1})
		lfo := g.add(Oscillator{Frequency: flangerRate, Depth: flangerDepth})
		d := g.add(DelayLine{
			MaxDelay:   flangerMaxDelay,
			Delay:      flangerDelay,
			Modulation: lfo,
		}, s)
		p.Output = g.add(Mixer{Weights: []float64{flangerWeight, flangerWeight}}, s, d)

	case effects.Lofi:
		p.Source = transform.BitcrushAndSaturate(src, options.Transform...)
		s := g.add(Source{PlaybackRate: 1})
		p.Output = g.add(Filter{
			Type:      Lowpass,
			Frequency: lofiFrequency,
			Q:         lowpassQ,
		}, s)

	case effects.FiveDAudio:
		mixed, err := transform.StereoCrossMix(src, options.Transform...)
		switch {
		case err == nil:
			p.Source = mixed
		case errors.Is(err, audio.ErrUnsupportedChannelLayout):
			p.Warnings = append(p.Warnings, err)
		default:
			return nil, err
		}
		ir, err := impulse.Synthesize(fiveDIRLen, src.Samplerate, irChannels,
			fiveDIRDecay, options.Impulse...)
		if err != nil {
			return nil, err
		}
		s := g.add(Source{PlaybackRate: 1})
		p.Output = g.add(Convolution{Impulse: ir, Normalize: true}, s)

	default:
		return nil, fmt.Errorf("unknown effect %s: %w", effect, audio.ErrRenderFailure)
	}

	p.Steps = g.steps
	if err := p.Validate(); err != nil {
		return nil, err
	}

	return p, nil
}
