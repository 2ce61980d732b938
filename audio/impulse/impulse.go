// Package impulse synthesizes reverb impulse responses from exponentially
// decaying white noise.
package impulse

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/dh1tw/vibify/audio"
)

const (
	minPower        = 0.000125
	gainCalibration = 0.00125 // -58dB
	calibrationRate = 44100
)

// Synthesize returns an impulse response of the given length (seconds)
// with channels independently generated noise channels. Each sample is
// uniform(-1, 1) * exp(-i / (samplerate * decay)) where i is the frame
// index.
func Synthesize(length float64, samplerate, channels int, decay float64, opts ...Option) (*audio.Buffer, error) {

	options := Options{}
	for _, option := range opts {
		option(&options)
	}

	if samplerate <= 0 || channels < 1 {
		return nil, fmt.Errorf("impulse response %d Hz, %d channels: %w",
			samplerate, channels, audio.ErrRenderFailure)
	}
	if length < 0 || decay <= 0 || math.IsNaN(length) || math.IsInf(length, 0) || math.IsNaN(decay) {
		return nil, fmt.Errorf("impulse response length %vs, decay %vs: %w",
			length, decay, audio.ErrRenderFailure)
	}

	uniform := rand.Float64
	if options.Rand != nil {
		uniform = options.Rand.Float64
	}

	frames := int(float64(samplerate) * length)
	tau := float32(float64(samplerate) * decay)

	ir := audio.NewBuffer(channels, frames, samplerate)
	for _, ch := range ir.Channels {
		for i := range ch {
			noise := float32(uniform()*2 - 1)
			ch[i] = noise * math32.Exp(-float32(i)/tau)
		}
	}

	return ir, nil
}

// NormalizationScale returns the gain which is applied to an impulse
// response before convolution so that the reverb has roughly the same
// loudness regardless of the length and energy of the impulse response.
func NormalizationScale(ir *audio.Buffer) float64 {
	if ir == nil || ir.NumChannels() == 0 || ir.Samplerate <= 0 {
		return 1
	}

	var sum float64
	for _, ch := range ir.Channels {
		for _, s := range ch {
			sum += float64(s) * float64(s)
		}
	}

	power := 0.0
	if n := ir.NumChannels() * ir.Frames(); n > 0 {
		power = math.Sqrt(sum / float64(n))
	}
	if math.IsNaN(power) || math.IsInf(power, 0) || power < minPower {
		power = minPower
	}

	scale := gainCalibration / power
	scale *= calibrationRate / float64(ir.Samplerate)

	// true stereo impulse responses are summed pairwise
	if ir.NumChannels() == 4 {
		scale *= 0.5
	}

	return scale
}
