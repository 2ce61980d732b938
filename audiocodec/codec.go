// Package audiocodec contains the interfaces implemented by the container
// codecs in its sub packages.
package audiocodec

import "github.com/dh1tw/vibify/audio"

// Encoder serializes an audio buffer into a container format.
type Encoder interface {
	Name() string
	Encode(*audio.Buffer) ([]byte, error)
}

// Decoder parses a container into an audio buffer. Implementations return
// errors wrapping audio.ErrUnsupportedFormat if the data is not in their
// format and audio.ErrCorruptData if parsing fails half way.
type Decoder interface {
	Name() string
	// Sniff reports whether the data looks like this decoder's format.
	Sniff([]byte) bool
	Decode([]byte) (*audio.Buffer, error)
}
