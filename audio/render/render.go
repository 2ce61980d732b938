// Package render executes a pipeline offline: the whole graph is
// evaluated over the complete buffer before the result is returned.
package render

import (
	"context"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/conv"
	"github.com/cwbudde/algo-dsp/dsp/delay"
	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"
	"github.com/dh1tw/gosamplerate"
	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/impulse"
	"github.com/dh1tw/vibify/audio/pipeline"
)

// signal holds the per channel samples flowing along an edge of the graph.
type signal [][]float64

// renderer carries the state of a single evaluation.
type renderer struct {
	ctx        context.Context
	p          *pipeline.Pipeline
	frames     int
	samplerate float64
	audio      map[pipeline.NodeID]signal
	control    map[pipeline.NodeID][]float64
}

// Render evaluates the pipeline and returns a buffer with exactly frames
// frames and the channel layout of the pipeline's source. Rendering is a
// pure function of the pipeline; the source buffer is never modified.
// Invalid node parameters result in an error wrapping
// audio.ErrRenderFailure. The context is checked between nodes and
// before every channel of a convolution.
func Render(ctx context.Context, p *pipeline.Pipeline, frames int) (*audio.Buffer, error) {
	if p == nil {
		return nil, fmt.Errorf("nil pipeline: %w", audio.ErrRenderFailure)
	}
	if frames < 0 {
		return nil, fmt.Errorf("negative frame count %d: %w", frames, audio.ErrRenderFailure)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := p.Source.Validate(); err != nil {
		return nil, fmt.Errorf("source: %v: %w", err, audio.ErrRenderFailure)
	}

	if p.Identity() {
		if frames == p.Source.Frames() {
			return p.Source, nil
		}
		return toBuffer(fromBuffer(p.Source, frames), p.Source.NumChannels(),
			p.Source.Samplerate), nil
	}

	r := &renderer{
		ctx:        ctx,
		p:          p,
		frames:     frames,
		samplerate: float64(p.Source.Samplerate),
		audio:      make(map[pipeline.NodeID]signal),
		control:    make(map[pipeline.NodeID][]float64),
	}

	for _, step := range p.Steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := r.eval(step); err != nil {
			return nil, fmt.Errorf("%s node %d: %w", step.Node.Kind(), step.ID, err)
		}
	}

	out, ok := r.audio[p.Output]
	if !ok {
		return nil, fmt.Errorf("output node %d produced no audio: %w",
			p.Output, audio.ErrRenderFailure)
	}

	return toBuffer(out, p.Source.NumChannels(), p.Source.Samplerate), nil
}

func (r *renderer) eval(step pipeline.Step) error {
	var in signal
	if len(step.Inputs) > 0 {
		in = r.audio[step.Inputs[0]]
	}

	switch step.Node.(type) {
	case pipeline.Gain, pipeline.Filter, pipeline.Convolution, pipeline.DelayLine:
		if len(in) == 0 {
			return fmt.Errorf("missing audio input: %w", audio.ErrRenderFailure)
		}
	}

	var (
		out signal
		err error
	)

	switch n := step.Node.(type) {
	case pipeline.Source:
		out, err = r.source(n)
	case pipeline.Gain:
		out, err = gain(n, in)
	case pipeline.Filter:
		out, err = r.filter(n, in)
	case pipeline.Convolution:
		out, err = r.convolve(n, in)
	case pipeline.DelayLine:
		out, err = r.delayLine(n, in)
	case pipeline.Oscillator:
		ctl, err := r.oscillator(n)
		if err != nil {
			return err
		}
		r.control[step.ID] = ctl
		return nil
	case pipeline.Mixer:
		inputs := make([]signal, 0, len(step.Inputs))
		for _, id := range step.Inputs {
			inputs = append(inputs, r.audio[id])
		}
		out, err = r.mix(n, inputs)
	default:
		return fmt.Errorf("unknown node type %T: %w", step.Node, audio.ErrRenderFailure)
	}

	if err != nil {
		return err
	}
	if out == nil {
		return fmt.Errorf("node produced no audio: %w", audio.ErrRenderFailure)
	}
	r.audio[step.ID] = out
	return nil
}

// source plays the source buffer at the node's playback rate. The output
// length is always the requested frame count; a faster rate ends early
// (silence), a slower rate is cut off.
func (r *renderer) source(n pipeline.Source) (signal, error) {
	rate := n.PlaybackRate
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, fmt.Errorf("invalid playback rate %v: %w", rate, audio.ErrRenderFailure)
	}

	src := r.p.Source
	if rate == 1 || src.Frames() == 0 {
		return fromBuffer(src, r.frames), nil
	}

	chs := src.NumChannels()
	resampled, err := gosamplerate.Simple(src.Interleave(), 1/rate, chs,
		gosamplerate.SRC_SINC_FASTEST)
	if err != nil {
		return nil, fmt.Errorf("resample at rate %v: %v: %w", rate, err, audio.ErrRenderFailure)
	}

	return fromBuffer(audio.FromInterleaved(resampled, chs, src.Samplerate), r.frames), nil
}

func gain(n pipeline.Gain, in signal) (signal, error) {
	if math.IsNaN(n.Factor) || math.IsInf(n.Factor, 0) {
		return nil, fmt.Errorf("invalid gain %v: %w", n.Factor, audio.ErrRenderFailure)
	}
	out := in.clone()
	for _, ch := range out {
		for i := range ch {
			ch[i] *= n.Factor
		}
	}
	return out, nil
}

// filter applies a biquad per channel. Cutoff frequencies at or above
// nyquist turn a lowpass into a pass-through and a lowshelf into a flat
// gain.
func (r *renderer) filter(n pipeline.Filter, in signal) (signal, error) {
	if n.Frequency <= 0 || math.IsNaN(n.Frequency) || math.IsInf(n.Frequency, 0) {
		return nil, fmt.Errorf("invalid frequency %v: %w", n.Frequency, audio.ErrRenderFailure)
	}
	if n.Q <= 0 || math.IsNaN(n.Q) || math.IsInf(n.Q, 0) {
		return nil, fmt.Errorf("invalid Q %v: %w", n.Q, audio.ErrRenderFailure)
	}
	if math.IsNaN(n.GainDB) || math.IsInf(n.GainDB, 0) {
		return nil, fmt.Errorf("invalid gain %v dB: %w", n.GainDB, audio.ErrRenderFailure)
	}

	var c biquad.Coefficients
	aboveNyquist := n.Frequency >= r.samplerate/2

	switch n.Type {
	case pipeline.Lowpass:
		if aboveNyquist {
			return in.clone(), nil
		}
		c = design.Lowpass(n.Frequency, n.Q, r.samplerate)
	case pipeline.Lowshelf:
		if aboveNyquist {
			return gain(pipeline.Gain{Factor: math.Pow(10, n.GainDB/20)}, in)
		}
		c = design.LowShelf(n.Frequency, n.GainDB, n.Q, r.samplerate)
	default:
		return nil, fmt.Errorf("unknown filter type %q: %w", n.Type, audio.ErrRenderFailure)
	}

	out := in.clone()
	for _, ch := range out {
		biquad.NewSection(c).ProcessBlock(ch)
	}
	return out, nil
}

// convolve convolves the input with the impulse response. A mono input
// and a stereo impulse response result in a stereo output; a four channel
// impulse response is treated as true stereo.
func (r *renderer) convolve(n pipeline.Convolution, in signal) (signal, error) {
	ir := n.Impulse
	if err := ir.Validate(); err != nil {
		return nil, fmt.Errorf("impulse response: %v: %w", err, audio.ErrRenderFailure)
	}
	if float64(ir.Samplerate) != r.samplerate {
		return nil, fmt.Errorf("impulse response samplerate %d differs from %v: %w",
			ir.Samplerate, r.samplerate, audio.ErrRenderFailure)
	}
	if len(in) == 0 {
		return nil, fmt.Errorf("no input: %w", audio.ErrRenderFailure)
	}

	scale := 1.0
	if n.Normalize {
		scale = impulse.NormalizationScale(ir)
	}
	kernels := make([][]float64, ir.NumChannels())
	for i, ch := range ir.Channels {
		kernels[i] = make([]float64, len(ch))
		for j, s := range ch {
			kernels[i][j] = float64(s) * scale
		}
	}

	left := in[0]
	right := in[0]
	if len(in) > 1 {
		right = in[1]
	}

	switch len(kernels) {
	case 1:
		out := make(signal, len(in))
		for i, ch := range in {
			res, err := r.convolveChannel(ch, kernels[0])
			if err != nil {
				return nil, err
			}
			out[i] = res
		}
		return out, nil

	case 2:
		if len(in) == 1 {
			right = left
		}
		l, err := r.convolveChannel(left, kernels[0])
		if err != nil {
			return nil, err
		}
		rr, err := r.convolveChannel(right, kernels[1])
		if err != nil {
			return nil, err
		}
		return signal{l, rr}, nil

	case 4:
		out := signal{make([]float64, r.frames), make([]float64, r.frames)}
		pairs := []struct {
			in  []float64
			k   int
			out int
		}{{left, 0, 0}, {left, 1, 1}, {right, 2, 0}, {right, 3, 1}}
		for _, p := range pairs {
			res, err := r.convolveChannel(p.in, kernels[p.k])
			if err != nil {
				return nil, err
			}
			for i, v := range res {
				out[p.out][i] += v
			}
		}
		return out, nil
	}

	return nil, fmt.Errorf("impulse response with %d channels: %w",
		len(kernels), audio.ErrRenderFailure)
}

func (r *renderer) convolveChannel(x, k []float64) ([]float64, error) {
	if err := r.ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]float64, r.frames)
	if len(x) == 0 || r.frames == 0 {
		return out, nil
	}
	res, err := conv.Convolve(x, k)
	if err != nil {
		return nil, fmt.Errorf("convolve: %v: %w", err, audio.ErrRenderFailure)
	}
	copy(out, res)
	return out, nil
}

// delayLine reads each channel through a fractional delay line. The delay
// time (base plus modulation) is clamped to [0, MaxDelay].
func (r *renderer) delayLine(n pipeline.DelayLine, in signal) (signal, error) {
	if n.MaxDelay <= 0 || math.IsNaN(n.MaxDelay) || math.IsInf(n.MaxDelay, 0) {
		return nil, fmt.Errorf("invalid max delay %v: %w", n.MaxDelay, audio.ErrRenderFailure)
	}
	if n.Delay < 0 || n.Delay > n.MaxDelay || math.IsNaN(n.Delay) {
		return nil, fmt.Errorf("invalid delay %v: %w", n.Delay, audio.ErrRenderFailure)
	}

	var mod []float64
	if n.Modulation != 0 {
		ctl, ok := r.control[n.Modulation]
		if !ok {
			return nil, fmt.Errorf("missing modulation signal %d: %w",
				n.Modulation, audio.ErrRenderFailure)
		}
		mod = ctl
	}

	size := int(math.Ceil(n.MaxDelay*r.samplerate)) + 4

	out := make(signal, len(in))
	for c, x := range in {
		line, err := delay.New(size)
		if err != nil {
			return nil, fmt.Errorf("%v: %w", err, audio.ErrRenderFailure)
		}
		y := make([]float64, len(x))
		for i, s := range x {
			d := n.Delay
			if mod != nil && i < len(mod) {
				d += mod[i]
			}
			d = math.Min(math.Max(d, 0), n.MaxDelay)
			// after writing, a delay of k+1 samples reads x[i-k]
			line.Write(s)
			y[i] = line.ReadFractional(d*r.samplerate + 1)
		}
		out[c] = y
	}
	return out, nil
}

func (r *renderer) oscillator(n pipeline.Oscillator) ([]float64, error) {
	if n.Frequency < 0 || math.IsNaN(n.Frequency) || math.IsInf(n.Frequency, 0) ||
		math.IsNaN(n.Depth) || math.IsInf(n.Depth, 0) {
		return nil, fmt.Errorf("invalid oscillator %+v: %w", n, audio.ErrRenderFailure)
	}
	ctl := make([]float64, r.frames)
	w := 2 * math.Pi * n.Frequency / r.samplerate
	for i := range ctl {
		ctl[i] = n.Depth * math.Sin(w*float64(i))
	}
	return ctl, nil
}

// mix sums the weighted inputs. Mono inputs are up-mixed when other
// inputs carry more channels.
func (r *renderer) mix(n pipeline.Mixer, inputs []signal) (signal, error) {
	chs := 0
	for _, in := range inputs {
		if len(in) > chs {
			chs = len(in)
		}
	}
	if chs == 0 {
		return nil, fmt.Errorf("mixer without inputs: %w", audio.ErrRenderFailure)
	}

	out := make(signal, chs)
	for c := range out {
		out[c] = make([]float64, r.frames)
	}
	for k, in := range inputs {
		if len(in) == 0 {
			return nil, fmt.Errorf("mixer input %d carries no audio: %w", k, audio.ErrRenderFailure)
		}
		w := n.Weights[k]
		for c := range out {
			src := in[0]
			if c < len(in) {
				src = in[c]
			}
			for i := 0; i < r.frames && i < len(src); i++ {
				out[c][i] += w * src[i]
			}
		}
	}
	return out, nil
}

func (s signal) clone() signal {
	c := make(signal, len(s))
	for i, ch := range s {
		c[i] = append([]float64(nil), ch...)
	}
	return c
}

// fromBuffer converts the buffer into a signal of exactly frames frames,
// padding with silence or truncating as necessary.
func fromBuffer(b *audio.Buffer, frames int) signal {
	s := make(signal, b.NumChannels())
	for c, ch := range b.Channels {
		s[c] = make([]float64, frames)
		for i := 0; i < frames && i < len(ch); i++ {
			s[c][i] = float64(ch[i])
		}
	}
	return s
}

// toBuffer converts the signal into a buffer with chs channels. Stereo
// is mixed down to mono with equal weights, mono is copied to all
// channels.
func toBuffer(s signal, chs, samplerate int) *audio.Buffer {
	frames := 0
	if len(s) > 0 {
		frames = len(s[0])
	}
	b := audio.NewBuffer(chs, frames, samplerate)

	switch {
	case len(s) == chs:
		for c, ch := range s {
			for i, v := range ch {
				b.Channels[c][i] = float32(v)
			}
		}
	case len(s) == 2 && chs == 1:
		for i := 0; i < frames; i++ {
			b.Channels[0][i] = float32(0.5 * (s[0][i] + s[1][i]))
		}
	case len(s) == 1:
		for c := range b.Channels {
			for i, v := range s[0] {
				b.Channels[c][i] = float32(v)
			}
		}
	default:
		for c := 0; c < chs && c < len(s); c++ {
			for i, v := range s[c] {
				b.Channels[c][i] = float32(v)
			}
		}
	}
	return b
}
