// Package mp3 decodes MPEG-1/2 Layer III files.
package mp3

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/dh1tw/vibify/audio"
	gomp3 "github.com/hajimehoshi/go-mp3"
)

// the decoder always emits 16bit little endian stereo
const channels = 2

// Mp3Decoder implements the audiocodec.Decoder interface.
type Mp3Decoder struct {
	name string
}

// NewMp3Decoder returns an MP3 decoder.
func NewMp3Decoder() *Mp3Decoder {
	return &Mp3Decoder{name: "mp3"}
}

// Name returns the name of the codec.
func (d *Mp3Decoder) Name() string {
	return d.name
}

// Sniff reports whether data starts with an ID3v2 tag or an MPEG audio
// frame sync.
func (d *Mp3Decoder) Sniff(data []byte) bool {
	if bytes.HasPrefix(data, []byte("ID3")) {
		return true
	}
	return len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0
}

// Decode the complete file into a stereo buffer.
func (d *Mp3Decoder) Decode(data []byte) (*audio.Buffer, error) {
	if !d.Sniff(data) {
		return nil, fmt.Errorf("mp3: no frame sync: %w", audio.ErrUnsupportedFormat)
	}

	dec, err := gomp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("mp3: %v: %w", err, audio.ErrCorruptData)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("mp3: %v: %w", err, audio.ErrCorruptData)
	}

	samples := make([]float32, len(raw)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		if v < 0 {
			samples[i] = float32(v) / 32768
		} else {
			samples[i] = float32(v) / 32767
		}
	}

	return audio.FromInterleaved(samples, channels, dec.SampleRate()), nil
}
