// Package wav implements the canonical interchange format: uncompressed,
// 16bit signed little endian PCM in a RIFF/WAVE container with a 44 byte
// header.
package wav

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/dh1tw/vibify/audio"
	ga "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// HeaderSize is the size of the canonical RIFF/WAVE header.
	HeaderSize = 44
	bitDepth   = 16
	formatPCM  = 1
	formatExt  = 0xFFFE
)

// WavCodec implements the audiocodec Encoder and Decoder interfaces.
type WavCodec struct {
	name string
}

// NewWavCodec returns a WAV codec.
func NewWavCodec() *WavCodec {
	return &WavCodec{name: "wav"}
}

// Name returns the name of the codec.
func (c *WavCodec) Name() string {
	return c.name
}

// Sniff reports whether data starts with a RIFF/WAVE header.
func (c *WavCodec) Sniff(data []byte) bool {
	return Sniff(data)
}

// Encode the buffer. See Encode.
func (c *WavCodec) Encode(buf *audio.Buffer) ([]byte, error) {
	return Encode(buf)
}

// Decode the data. See Decode.
func (c *WavCodec) Decode(data []byte) (*audio.Buffer, error) {
	return Decode(data)
}

// Sniff reports whether data starts with a RIFF/WAVE header.
func Sniff(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// Quantize converts a float sample into a signed 16bit value. The sample
// is clamped to [-1, 1]; negative values are scaled by 32768, non-negative
// values by 32767 and the result is truncated towards zero.
func Quantize(s float32) int16 {
	v := float64(s)
	switch {
	case v != v: // NaN
		return 0
	case v > 1:
		v = 1
	case v < -1:
		v = -1
	}
	if v < 0 {
		return int16(v * 32768)
	}
	return int16(v * 32767)
}

// Encode serializes the buffer as 16bit PCM WAV with interleaved channels.
// The result is always HeaderSize + frames*channels*2 bytes long.
func Encode(buf *audio.Buffer) ([]byte, error) {
	if err := buf.Validate(); err != nil {
		return nil, fmt.Errorf("wav encode: %v", err)
	}
	chs := buf.NumChannels()
	frames := buf.Frames()
	if chs > 0xFFFF {
		return nil, fmt.Errorf("wav encode: too many channels (%d)", chs)
	}
	if dataSize := uint64(frames) * uint64(chs) * 2; dataSize > 0xFFFFFFFF-HeaderSize {
		return nil, fmt.Errorf("wav encode: data too large (%d bytes)", dataSize)
	}

	pcm := &ga.IntBuffer{
		Format: &ga.Format{
			NumChannels: chs,
			SampleRate:  buf.Samplerate,
		},
		Data:           make([]int, frames*chs),
		SourceBitDepth: bitDepth,
	}
	for ch, samples := range buf.Channels {
		for i, s := range samples {
			pcm.Data[i*chs+ch] = int(Quantize(s))
		}
	}

	w := &writeSeeker{buf: make([]byte, 0, HeaderSize+len(pcm.Data)*2)}
	enc := wav.NewEncoder(w, buf.Samplerate, bitDepth, chs, formatPCM)
	if err := enc.Write(pcm); err != nil {
		return nil, fmt.Errorf("wav encode: %v", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("wav encode: %v", err)
	}

	return w.buf, nil
}

// Decode parses an uncompressed PCM WAV file (8, 16, 24 or 32 bit) into a
// buffer. Negative sample values are divided by 2^(bits-1), positive
// values by 2^(bits-1)-1 so that Encode/Decode round trips are symmetric.
func Decode(data []byte) (*audio.Buffer, error) {
	if !Sniff(data) {
		return nil, fmt.Errorf("wav decode: missing RIFF/WAVE header: %w",
			audio.ErrUnsupportedFormat)
	}

	d := wav.NewDecoder(bytes.NewReader(data))
	d.ReadInfo()
	if err := d.Err(); err != nil {
		return nil, fmt.Errorf("wav decode: %v: %w", err, audio.ErrCorruptData)
	}

	if d.WavAudioFormat != formatPCM && d.WavAudioFormat != formatExt {
		return nil, fmt.Errorf("wav decode: audio format %d: %w",
			d.WavAudioFormat, audio.ErrUnsupportedFormat)
	}
	switch d.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("wav decode: %d bits per sample: %w",
			d.BitDepth, audio.ErrUnsupportedFormat)
	}
	if d.NumChans < 1 || d.SampleRate == 0 {
		return nil, fmt.Errorf("wav decode: %d channels at %d Hz: %w",
			d.NumChans, d.SampleRate, audio.ErrCorruptData)
	}

	pcm, err := d.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("wav decode: %v: %w", err, audio.ErrCorruptData)
	}

	chs := int(d.NumChans)
	bytesPerSample := int(d.BitDepth) / 8
	if expected := dataChunkSize(data) / bytesPerSample; len(pcm.Data) < expected {
		return nil, fmt.Errorf("wav decode: truncated data, got %d of %d samples: %w",
			len(pcm.Data), expected, audio.ErrCorruptData)
	}

	frames := len(pcm.Data) / chs
	buf := audio.NewBuffer(chs, frames, int(d.SampleRate))
	norm := normalizer(int(d.BitDepth))
	for i := 0; i < frames; i++ {
		for ch := 0; ch < chs; ch++ {
			buf.Channels[ch][i] = norm(pcm.Data[i*chs+ch])
		}
	}

	return buf, nil
}

// dataChunkSize returns the size of the data chunk as declared in its
// header, without the pad byte of odd sized chunks. It returns 0 if no
// data chunk is found.
func dataChunkSize(data []byte) int {
	pos := 12
	for pos+8 <= len(data) {
		size := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		if bytes.Equal(data[pos:pos+4], []byte("data")) {
			return size
		}
		pos += 8 + size + size%2
	}
	return 0
}

// normalizer returns the function converting integer samples of the given
// bit depth into floats.
func normalizer(bits int) func(int) float32 {
	if bits == 8 {
		// 8bit samples are unsigned
		return func(v int) float32 {
			v -= 128
			if v < 0 {
				return float32(v) / 128
			}
			return float32(v) / 127
		}
	}
	neg := float64(int64(1) << (bits - 1))
	pos := neg - 1
	return func(v int) float32 {
		if v < 0 {
			return float32(float64(v) / neg)
		}
		return float32(float64(v) / pos)
	}
}
