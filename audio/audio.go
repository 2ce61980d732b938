package audio

import (
	"fmt"
	"time"
)

// Buffer contains a block of decoded audio. The samples are stored
// per channel (de-interleaved) as 32bit floats, nominally in the range
// [-1, 1]. Once a Buffer has been handed out (decoded, rendered) it must
// be treated as read-only; use Clone to obtain a copy which can be
// modified.
type Buffer struct {
	Samplerate int
	Channels   [][]float32
}

// NewBuffer returns a silent buffer with the given amount of channels
// and frames.
func NewBuffer(channels, frames, samplerate int) *Buffer {
	b := &Buffer{
		Samplerate: samplerate,
		Channels:   make([][]float32, channels),
	}
	for i := range b.Channels {
		b.Channels[i] = make([]float32, frames)
	}
	return b
}

// FromInterleaved de-interleaves frame-major / channel-minor samples into
// a new Buffer. Trailing samples which don't make up a complete frame are
// ignored.
func FromInterleaved(data []float32, channels, samplerate int) *Buffer {
	if channels < 1 {
		return &Buffer{Samplerate: samplerate}
	}
	frames := len(data) / channels
	b := NewBuffer(channels, frames, samplerate)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			b.Channels[ch][i] = data[i*channels+ch]
		}
	}
	return b
}

// NumChannels returns the amount of audio channels.
func (b *Buffer) NumChannels() int {
	return len(b.Channels)
}

// Frames returns the amount of sample frames (samples per channel).
func (b *Buffer) Frames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the playing time of the buffer.
func (b *Buffer) Duration() time.Duration {
	if b.Samplerate <= 0 {
		return 0
	}
	return time.Duration(b.Frames()) * time.Second / time.Duration(b.Samplerate)
}

// Validate checks that the buffer has at least one channel, a positive
// samplerate and channels of equal length.
func (b *Buffer) Validate() error {
	if b == nil {
		return fmt.Errorf("buffer is nil")
	}
	if len(b.Channels) < 1 {
		return fmt.Errorf("buffer has no channels")
	}
	if b.Samplerate <= 0 {
		return fmt.Errorf("invalid samplerate %d", b.Samplerate)
	}
	frames := len(b.Channels[0])
	for i, ch := range b.Channels {
		if len(ch) != frames {
			return fmt.Errorf("channel %d has %d frames, expected %d", i, len(ch), frames)
		}
	}
	return nil
}

// Clone returns a deep copy of the buffer.
func (b *Buffer) Clone() *Buffer {
	c := &Buffer{
		Samplerate: b.Samplerate,
		Channels:   make([][]float32, len(b.Channels)),
	}
	for i, ch := range b.Channels {
		c.Channels[i] = append([]float32(nil), ch...)
	}
	return c
}

// Interleave returns the samples in frame-major / channel-minor order.
func (b *Buffer) Interleave() []float32 {
	chs := b.NumChannels()
	frames := b.Frames()
	data := make([]float32, chs*frames)
	for ch, samples := range b.Channels {
		for i, s := range samples {
			data[i*chs+ch] = s
		}
	}
	return data
}

// Equal reports whether both buffers have the same samplerate, channel
// layout and bit-identical samples.
func (b *Buffer) Equal(o *Buffer) bool {
	if b == nil || o == nil {
		return b == o
	}
	if b.Samplerate != o.Samplerate || len(b.Channels) != len(o.Channels) {
		return false
	}
	for i := range b.Channels {
		if len(b.Channels[i]) != len(o.Channels[i]) {
			return false
		}
		for j := range b.Channels[i] {
			if b.Channels[i][j] != o.Channels[i][j] {
				return false
			}
		}
	}
	return true
}

// Player is the interface which is implemented by a playback surface
// (e.g. a local sound card or a remote browser). The surface can be
// (re)loaded with a buffer at any time and exposes the transport state.
type Player interface {
	Load(*Buffer) error
	Play() error
	Pause() error
	// Seek sets the playback position as a fraction [0..1] of the duration.
	Seek(float64) error
	Position() time.Duration
	Duration() time.Duration
	Playing() bool
	SetVolume(float32)
	Volume() float32
}
