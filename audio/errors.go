package audio

import "errors"

// Errors returned by the decoding and rendering stages. They are
// typically wrapped; use errors.Is to test for them.
var (
	// ErrUnsupportedFormat indicates that the input is not recognized audio.
	ErrUnsupportedFormat = errors.New("unsupported audio format")
	// ErrCorruptData indicates that the input was recognized but could not
	// be parsed completely.
	ErrCorruptData = errors.New("corrupt audio data")
	// ErrUnsupportedChannelLayout is reported when an effect stage requires
	// a channel layout the buffer does not have. The stage is skipped.
	ErrUnsupportedChannelLayout = errors.New("unsupported channel layout")
	// ErrRenderFailure indicates invalid pipeline parameters. The fixed
	// effect presets should never trigger it.
	ErrRenderFailure = errors.New("render failure")
)
