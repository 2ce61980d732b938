package impulse

import "math/rand/v2"

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for synthesizing an impulse response.
type Options struct {
	Rand *rand.Rand
}

// Rand is a functional option to provide the random source used for the
// noise. By default the global (randomly seeded) source is used, so every
// synthesized impulse response is different.
func Rand(r *rand.Rand) Option {
	return func(args *Options) {
		args.Rand = r
	}
}
