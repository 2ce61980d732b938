// Package opus decodes Ogg Opus files through libopusfile.
package opus

import (
	"bytes"
	"fmt"
	"io"

	"github.com/dh1tw/vibify/audio"
	opus "gopkg.in/hraban/opus.v2"
)

// Samplerate is the rate at which Opus streams are always decoded.
const Samplerate = 48000

var (
	oggMagic  = []byte("OggS")
	opusMagic = []byte("OpusHead")
)

// OpusDecoder implements the audiocodec.Decoder interface for Ogg Opus.
type OpusDecoder struct {
	name    string
	options Options
}

// NewOpusDecoder is the constructor method for an Ogg Opus decoder.
func NewOpusDecoder(opts ...Option) *OpusDecoder {

	oc := &OpusDecoder{
		name: "opus",
		options: Options{
			FrameSize: 5760,
		},
	}

	for _, option := range opts {
		option(&oc.options)
	}

	return oc
}

// Name returns the name of the audio codec
func (oc *OpusDecoder) Name() string {
	return oc.name
}

// Options returns a copy of the codec's options
func (oc *OpusDecoder) Options() Options {
	return oc.options
}

// Sniff reports whether data is an Ogg stream carrying Opus.
func (oc *OpusDecoder) Sniff(data []byte) bool {
	return bytes.HasPrefix(data, oggMagic) && bytes.Contains(data[:min(len(data), 512)], opusMagic)
}

// Decode the complete Ogg Opus file into a buffer at 48kHz.
func (oc *OpusDecoder) Decode(data []byte) (*audio.Buffer, error) {
	if !oc.Sniff(data) {
		return nil, fmt.Errorf("opus: not an ogg opus stream: %w", audio.ErrUnsupportedFormat)
	}

	chs, err := channelCount(data)
	if err != nil {
		return nil, err
	}

	stream, err := opus.NewStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("opus: %v: %w", err, audio.ErrCorruptData)
	}
	defer stream.Close()

	pcm := make([]float32, oc.options.FrameSize*chs)
	var samples []float32

	for {
		n, err := stream.ReadFloat32(pcm)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("opus: %v: %w", err, audio.ErrCorruptData)
		}
		samples = append(samples, pcm[:n*chs]...)
	}

	return audio.FromInterleaved(samples, chs, Samplerate), nil
}

// channelCount reads the output channel count from the OpusHead packet.
func channelCount(data []byte) (int, error) {
	idx := bytes.Index(data, opusMagic)
	if idx < 0 || len(data) < idx+19 {
		return 0, fmt.Errorf("opus: missing OpusHead: %w", audio.ErrCorruptData)
	}
	head := data[idx:]
	chs := int(head[9])
	if chs < 1 {
		return 0, fmt.Errorf("opus: invalid channel count %d: %w", chs, audio.ErrCorruptData)
	}
	return chs, nil
}
