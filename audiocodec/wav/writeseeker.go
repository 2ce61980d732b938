package wav

import (
	"errors"
	"io"
)

// writeSeeker is an in-memory io.WriteSeeker; the wav encoder seeks back
// to patch the chunk sizes once all samples are written.
type writeSeeker struct {
	buf []byte
	pos int
}

func (w *writeSeeker) Write(p []byte) (int, error) {
	end := w.pos + len(p)
	if end > len(w.buf) {
		if end > cap(w.buf) {
			nb := make([]byte, len(w.buf), 2*end)
			copy(nb, w.buf)
			w.buf = nb
		}
		w.buf = w.buf[:end]
	}
	copy(w.buf[w.pos:], p)
	w.pos = end
	return len(p), nil
}

func (w *writeSeeker) Seek(offset int64, whence int) (int64, error) {
	var pos int64
	switch whence {
	case io.SeekStart:
		pos = offset
	case io.SeekCurrent:
		pos = int64(w.pos) + offset
	case io.SeekEnd:
		pos = int64(len(w.buf)) + offset
	default:
		return 0, errors.New("invalid whence")
	}
	if pos < 0 {
		return 0, errors.New("negative position")
	}
	w.pos = int(pos)
	return pos, nil
}
