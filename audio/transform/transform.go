// Package transform contains effects which are applied directly on the
// sample arrays instead of through a processing graph. The transforms
// never modify their input; they work on a copy.
package transform

import (
	"fmt"
	"math/rand/v2"

	"github.com/chewxy/math32"
	"github.com/dh1tw/vibify/audio"
)

// BitcrushAndSaturate reduces the effective samplerate and saturates the
// signal in a single pass over each channel. A sample which is not on a
// multiple of ReductionFactor takes the value of the preceding multiple,
// which at that point has already been saturated. Every sample then
// becomes tanh(s * Drive) plus uniform(0, NoiseAmplitude) noise.
func BitcrushAndSaturate(buf *audio.Buffer, opts ...Option) *audio.Buffer {
	options := defaultOptions()
	for _, option := range opts {
		option(&options)
	}

	uniform := rand.Float32
	if options.Rand != nil {
		uniform = options.Rand.Float32
	}

	step := options.ReductionFactor
	if step < 1 {
		step = 1
	}

	res := buf.Clone()
	for _, ch := range res.Channels {
		for i := range ch {
			if r := i % step; r != 0 {
				ch[i] = ch[i-r]
			}
			ch[i] = math32.Tanh(ch[i]*options.Drive) + uniform()*options.NoiseAmplitude
		}
	}
	return res
}

// StereoCrossMix blends each stereo channel with the opposite one:
// left' = left*near + right*far and right' = right*near + left*far, both
// computed from the unmixed values. The last TailGuard frames are left
// untouched. Buffers which are not stereo are rejected with
// audio.ErrUnsupportedChannelLayout.
func StereoCrossMix(buf *audio.Buffer, opts ...Option) (*audio.Buffer, error) {
	options := defaultOptions()
	for _, option := range opts {
		option(&options)
	}

	if buf.NumChannels() != 2 {
		return nil, fmt.Errorf("stereo cross mix on %d channel(s): %w",
			buf.NumChannels(), audio.ErrUnsupportedChannelLayout)
	}

	res := buf.Clone()
	left, right := res.Channels[0], res.Channels[1]
	near, far := options.NearWeight, options.FarWeight

	for i := 0; i < len(left)-options.TailGuard; i++ {
		l, r := left[i], right[i]
		left[i] = l*near + r*far
		right[i] = r*near + l*far
	}
	return res, nil
}
