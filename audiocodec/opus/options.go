package opus

// Option is the type for a function option
type Option func(*Options)

// Options contains the parameters of the Ogg Opus decoder.
type Options struct {
	// FrameSize is the amount of samples per channel decoded per read.
	FrameSize int
}

// FrameSize is a functional option to set the amount of samples per
// channel which are requested from the stream at once. Opus packets
// carry up to 120ms (5760 samples at 48kHz).
func FrameSize(n int) Option {
	return func(args *Options) {
		args.FrameSize = n
	}
}
