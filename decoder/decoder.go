// Package decoder turns an uploaded file into a canonical audio buffer.
// It checks the declared media type, detects the container from the
// content and delegates to the matching codec.
package decoder

import (
	"fmt"
	"mime"
	"path/filepath"
	"strings"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audiocodec"
	"github.com/dh1tw/vibify/audiocodec/mp3"
	"github.com/dh1tw/vibify/audiocodec/opus"
	"github.com/dh1tw/vibify/audiocodec/wav"
)

// Decoder holds the codecs which are tried in order.
type Decoder struct {
	codecs []audiocodec.Decoder
}

// NewDecoder returns a decoder for WAV, Ogg Opus and MP3 files. Additional
// codecs are tried after the built-in ones.
func NewDecoder(codecs ...audiocodec.Decoder) *Decoder {
	d := &Decoder{
		codecs: []audiocodec.Decoder{
			wav.NewWavCodec(),
			opus.NewOpusDecoder(),
			mp3.NewMp3Decoder(),
		},
	}
	d.codecs = append(d.codecs, codecs...)
	return d
}

// CheckMediaType returns an error wrapping audio.ErrUnsupportedFormat
// unless mediaType is an audio/* type.
func CheckMediaType(mediaType string) error {
	mt, _, err := mime.ParseMediaType(mediaType)
	if err != nil {
		mt = strings.ToLower(strings.TrimSpace(mediaType))
	}
	if !strings.HasPrefix(mt, "audio/") {
		return fmt.Errorf("media type '%s': %w", mediaType, audio.ErrUnsupportedFormat)
	}
	return nil
}

// Decode checks the media type and decodes data with the first codec
// recognizing it.
func (d *Decoder) Decode(data []byte, mediaType string) (*audio.Buffer, error) {
	if err := CheckMediaType(mediaType); err != nil {
		return nil, err
	}

	for _, c := range d.codecs {
		if !c.Sniff(data) {
			continue
		}
		buf, err := c.Decode(data)
		if err != nil {
			return nil, err
		}
		if err := buf.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %v: %w", c.Name(), err, audio.ErrCorruptData)
		}
		return buf, nil
	}

	return nil, fmt.Errorf("no decoder for %d bytes of %s: %w",
		len(data), mediaType, audio.ErrUnsupportedFormat)
}

// Codecs returns the names of the available codecs.
func (d *Decoder) Codecs() []string {
	res := []string{}
	for _, c := range d.codecs {
		res = append(res, c.Name())
	}
	return res
}

// MediaType guesses the media type from a file name.
func MediaType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".wav", ".wave":
		return "audio/wav"
	case ".mp3":
		return "audio/mpeg"
	case ".opus", ".ogg", ".oga":
		return "audio/ogg"
	}
	if mt := mime.TypeByExtension(filepath.Ext(name)); mt != "" {
		return mt
	}
	return "application/octet-stream"
}

// Title returns the file name without directory and extension.
func Title(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
