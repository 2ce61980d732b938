package pipeline

import (
	"github.com/dh1tw/vibify/audio/impulse"
	"github.com/dh1tw/vibify/audio/transform"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for building a pipeline.
type Options struct {
	Impulse   []impulse.Option
	Transform []transform.Option
}

// ImpulseOptions is a functional option to pass options to the impulse
// response synthesizer (e.g. a seeded random source).
func ImpulseOptions(opts ...impulse.Option) Option {
	return func(args *Options) {
		args.Impulse = append(args.Impulse, opts...)
	}
}

// TransformOptions is a functional option to pass options to the direct
// sample transforms.
func TransformOptions(opts ...transform.Option) Option {
	return func(args *Options) {
		args.Transform = append(args.Transform, opts...)
	}
}
