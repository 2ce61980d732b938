package mp3

import (
	"errors"
	"testing"

	"github.com/dh1tw/vibify/audio"
)

func TestSniff(t *testing.T) {
	d := NewMp3Decoder()
	tests := []struct {
		data []byte
		exp  bool
	}{
		{[]byte("ID3\x04\x00"), true},
		{[]byte{0xFF, 0xFB, 0x90, 0x64}, true},
		{[]byte{0xFF, 0x00}, false},
		{[]byte("RIFF"), false},
		{[]byte{}, false},
	}
	for _, tc := range tests {
		if got := d.Sniff(tc.data); got != tc.exp {
			t.Errorf("%v: expected %v, got %v", tc.data, tc.exp, got)
		}
	}
}

func TestDecodeErrors(t *testing.T) {
	d := NewMp3Decoder()
	if _, err := d.Decode([]byte("OggS")); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := d.Decode([]byte{0xFF, 0xFB, 0x00}); !errors.Is(err, audio.ErrCorruptData) {
		t.Errorf("expected ErrCorruptData, got %v", err)
	}
}
