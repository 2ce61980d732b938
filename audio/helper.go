package audio

import (
	"fmt"
	"time"
)

// AdjustChannels converts interleaved audio frames from iChs to oChs
// channels. Mono is copied into both channels of a stereo signal, stereo
// is mixed down to mono with equal weights. Any other conversion keeps the
// first min(iChs, oChs) channels and fills the rest with silence.
func AdjustChannels(iChs, oChs int, audioFrames []float32) []float32 {
	if iChs == oChs || iChs < 1 || oChs < 1 {
		return audioFrames
	}

	frames := len(audioFrames) / iChs

	// mono -> stereo
	if iChs == 1 && oChs == 2 {
		res := make([]float32, 0, frames*2)
		for _, frame := range audioFrames {
			res = append(res, frame, frame)
		}
		return res
	}

	// stereo -> mono
	if iChs == 2 && oChs == 1 {
		res := make([]float32, 0, frames)
		for i := 0; i+1 < len(audioFrames); i += 2 {
			res = append(res, 0.5*(audioFrames[i]+audioFrames[i+1]))
		}
		return res
	}

	res := make([]float32, frames*oChs)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < oChs && ch < iChs; ch++ {
			res[i*oChs+ch] = audioFrames[i*iChs+ch]
		}
	}
	return res
}

// AdjustVolume scales the audio frames in place.
func AdjustVolume(volume float32, audioFrames []float32) {
	for i := 0; i < len(audioFrames); i++ {
		audioFrames[i] *= volume
	}
}

// FormatTime renders a playback position as M:SS.
func FormatTime(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	secs := int(d / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}
