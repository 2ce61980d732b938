package pipeline

import "github.com/dh1tw/vibify/audio"

// NodeID identifies a node within a pipeline. The zero value means "no node".
type NodeID int

// Node is a processing step of a pipeline. The concrete node types are
// Source, Gain, Filter, Convolution, DelayLine, Oscillator and Mixer.
type Node interface {
	Kind() string
}

// Source emits the pipeline's source buffer. A PlaybackRate other than 1
// plays the buffer faster (>1) or slower (<1), changing pitch and tempo.
type Source struct {
	PlaybackRate float64
}

// Gain multiplies its input by Factor.
type Gain struct {
	Factor float64
}

// FilterType is the response type of a Filter node.
type FilterType string

// Supported filter types.
const (
	Lowshelf FilterType = "lowshelf"
	Lowpass  FilterType = "lowpass"
)

// Filter is a second order IIR filter. GainDB is only used by shelving
// filters. Q is the linear quality factor.
type Filter struct {
	Type      FilterType
	Frequency float64
	GainDB    float64
	Q         float64
}

// Convolution convolves its input with an impulse response. If Normalize
// is set, the impulse response is scaled to a calibrated loudness first.
type Convolution struct {
	Impulse   *audio.Buffer
	Normalize bool
}

// DelayLine delays its input by Delay seconds. If a Modulation node is
// set, its control signal (in seconds) is added to Delay for every
// frame. The effective delay is limited to MaxDelay.
type DelayLine struct {
	MaxDelay   float64
	Delay      float64
	Modulation NodeID
}

// Oscillator produces a sine shaped control signal Depth*sin(2*pi*f*t).
type Oscillator struct {
	Frequency float64
	Depth     float64
}

// Mixer sums its inputs, each multiplied with the weight of the same index.
type Mixer struct {
	Weights []float64
}

// Kind returns "source".
func (Source) Kind() string { return "source" }

// Kind returns "gain".
func (Gain) Kind() string { return "gain" }

// Kind returns "filter".
func (Filter) Kind() string { return "filter" }

// Kind returns "convolution".
func (Convolution) Kind() string { return "convolution" }

// Kind returns "delay".
func (DelayLine) Kind() string { return "delay" }

// Kind returns "oscillator".
func (Oscillator) Kind() string { return "oscillator" }

// Kind returns "mixer".
func (Mixer) Kind() string { return "mixer" }
