package transform

import "math/rand/v2"

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters of the direct sample transforms.
type Options struct {
	ReductionFactor int
	Drive           float32
	NoiseAmplitude  float32
	Rand            *rand.Rand
	NearWeight      float32
	FarWeight       float32
	TailGuard       int
}

func defaultOptions() Options {
	return Options{
		ReductionFactor: 2,
		Drive:           1.1,
		NoiseAmplitude:  0.03,
		NearWeight:      0.6,
		FarWeight:       0.4,
		TailGuard:       800,
	}
}

// ReductionFactor is a functional option to set the sample-and-hold
// step of the bitcrusher.
func ReductionFactor(n int) Option {
	return func(args *Options) {
		args.ReductionFactor = n
	}
}

// Drive is a functional option to set the saturation drive.
func Drive(d float32) Option {
	return func(args *Options) {
		args.Drive = d
	}
}

// NoiseAmplitude is a functional option to set the amplitude of the
// noise added after saturation. Set it to 0 to disable the noise.
func NoiseAmplitude(a float32) Option {
	return func(args *Options) {
		args.NoiseAmplitude = a
	}
}

// Rand is a functional option to provide the random source for the noise.
func Rand(r *rand.Rand) Option {
	return func(args *Options) {
		args.Rand = r
	}
}

// Weights is a functional option to set the weights of the stereo cross
// mix. near is applied to the same channel, far to the opposite one.
func Weights(near, far float32) Option {
	return func(args *Options) {
		args.NearWeight = near
		args.FarWeight = far
	}
}

// TailGuard is a functional option to set the amount of frames at the
// end of the buffer which are left untouched by the stereo cross mix.
func TailGuard(frames int) Option {
	return func(args *Options) {
		args.TailGuard = frames
	}
}
