package player

import (
	"time"

	"github.com/cskr/pubsub"
)

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters for initializing a sound card player.
type Options struct {
	HostAPI         string
	DeviceName      string
	Channels        int
	Samplerate      float64
	FramesPerBuffer int
	Latency         time.Duration
	RingBufferSize  int
	PositionRate    time.Duration
	Events          *pubsub.PubSub
}

// HostAPI is a functional option to enforce the usage of a particular
// audio host API
func HostAPI(hostAPI string) Option {
	return func(args *Options) {
		args.HostAPI = hostAPI
	}
}

// DeviceName is a functional option to specify the name of the
// Audio device
func DeviceName(name string) Option {
	return func(args *Options) {
		args.DeviceName = name
	}
}

// Channels is a functional option to set the amount of channels to be used
// with the audio device. Typically this is either Mono (1) or Stereo (2).
// Make sure that your audio device supports the specified amount of channels.
func Channels(chs int) Option {
	return func(args *Options) {
		args.Channels = chs
	}
}

// Samplerate is a functional option to set the sampling rate of the
// audio device. Loaded buffers are resampled to this rate.
func Samplerate(s float64) Option {
	return func(args *Options) {
		args.Samplerate = s
	}
}

// FramesPerBuffer is a functional option which sets the amount of sample frames
// our audio device will request when executing the callback.
func FramesPerBuffer(s int) Option {
	return func(args *Options) {
		args.FramesPerBuffer = s
	}
}

// Latency is a functional option to set the latency of the audio device.
func Latency(t time.Duration) Option {
	return func(args *Options) {
		args.Latency = t
	}
}

// RingBufferSize is a functional option to set the amount of audio buffers
// which are queued ahead of the audio device callback.
func RingBufferSize(size int) Option {
	return func(args *Options) {
		args.RingBufferSize = size
	}
}

// PositionRate is a functional option to set the interval at which the
// playback position is published.
func PositionRate(t time.Duration) Option {
	return func(args *Options) {
		args.PositionRate = t
	}
}

// Events is a functional option to set the event bus on which position,
// play state and volume changes are published.
func Events(ps *pubsub.PubSub) Option {
	return func(args *Options) {
		args.Events = ps
	}
}
