package opus

import (
	"errors"
	"testing"

	"github.com/dh1tw/vibify/audio"
)

// first bytes of an Ogg page carrying an OpusHead packet (stereo, 48kHz)
var oggOpusHead = append([]byte("OggS\x00\x02\x00\x00\x00\x00\x00\x00\x00\x00\x01\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x01\x13"),
	[]byte("OpusHead\x01\x02\x38\x01\x80\xbb\x00\x00\x00\x00\x00")...)

func TestSniff(t *testing.T) {
	dec := NewOpusDecoder()
	if !dec.Sniff(oggOpusHead) {
		t.Fatal("expected ogg opus stream to be detected")
	}
	if dec.Sniff([]byte("OggS\x00\x02 vorbis")) {
		t.Fatal("ogg vorbis must not be detected as opus")
	}
	if dec.Sniff([]byte("RIFF....WAVE")) {
		t.Fatal("wav must not be detected as opus")
	}
}

func TestChannelCount(t *testing.T) {
	chs, err := channelCount(oggOpusHead)
	if err != nil {
		t.Fatal(err)
	}
	if chs != 2 {
		t.Fatalf("expected 2 channels, got %d", chs)
	}

	if _, err := channelCount([]byte("OggS OpusHead")); !errors.Is(err, audio.ErrCorruptData) {
		t.Fatalf("expected ErrCorruptData, got %v", err)
	}
}

func TestDecodeNotOpus(t *testing.T) {
	_, err := NewOpusDecoder().Decode([]byte("ID3 something"))
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}
