package coordinator

import (
	"context"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/pipeline"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a Coordinator.
type Options struct {
	Player  audio.Player
	Events  *pubsub.PubSub
	Product string
	Build   []pipeline.Option
	Render  RenderFunc
}

// RenderFunc renders a pipeline into a buffer with the given frame count.
type RenderFunc func(ctx context.Context, p *pipeline.Pipeline, frames int) (*audio.Buffer, error)

// Player is a functional option to set the playback surface which is
// reloaded whenever a new buffer is published.
func Player(p audio.Player) Option {
	return func(args *Options) {
		args.Player = p
	}
}

// Events is a functional option to set the event bus on which state
// changes are published.
func Events(ps *pubsub.PubSub) Option {
	return func(args *Options) {
		args.Events = ps
	}
}

// Product is a functional option to set the prefix of exported file names.
func Product(name string) Option {
	return func(args *Options) {
		args.Product = name
	}
}

// BuildOptions is a functional option to pass options to the pipeline
// builder (e.g. seeded random sources for tests).
func BuildOptions(opts ...pipeline.Option) Option {
	return func(args *Options) {
		args.Build = append(args.Build, opts...)
	}
}

// Renderer is a functional option to replace the offline renderer.
func Renderer(fn RenderFunc) Option {
	return func(args *Options) {
		args.Render = fn
	}
}
