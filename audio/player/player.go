// Package player implements audio.Player on a local audio output device
// (e.g. speakers) through portaudio.
package player

import (
	"fmt"
	"sync"
	"time"

	"github.com/dh1tw/gosamplerate"
	ringBuffer "github.com/dh1tw/golang-ring"
	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/events"
	pa "github.com/gordonklaus/portaudio"
	log "github.com/sirupsen/logrus"
)

// ScPlayer plays a loaded audio buffer on a sound card. The buffer is
// converted once on Load to the device's channel count and sampling rate;
// a feeder goroutine chops it into device sized chunks which are queued
// in a ring buffer for the portaudio callback.
type ScPlayer struct {
	sync.RWMutex
	options    Options
	deviceInfo *pa.DeviceInfo
	stream     *pa.Stream
	ring       ringBuffer.Ring
	data       []float32 // interleaved, device format
	cursor     int       // next sample to be queued
	played     int       // next sample to be played
	playing    bool
	volume     float32
	closeCh    chan struct{}
	wg         sync.WaitGroup
}

// chunk is a device sized slice of audio together with the offset of its
// first sample in the loaded data.
type chunk struct {
	offset  int
	samples []float32
}

// NewScPlayer returns a new sound card player for a specific audio output
// device. portaudio must have been initialized.
func NewScPlayer(opts ...Option) (*ScPlayer, error) {

	p := newScPlayer(opts...)

	hostAPI, err := getHostAPI(p.options.HostAPI)
	if err != nil {
		return nil, err
	}

	if p.options.DeviceName == "default" {
		p.deviceInfo = hostAPI.DefaultOutputDevice
	} else {
		dev, err := getPaDevice(p.options.DeviceName, hostAPI)
		if err != nil {
			return nil, err
		}
		p.deviceInfo = dev
	}

	if p.deviceInfo == nil {
		return nil, fmt.Errorf("no output device available for host api %s", hostAPI.Name)
	}

	streamDeviceParam := pa.StreamDeviceParameters{
		Device:   p.deviceInfo,
		Channels: p.options.Channels,
		Latency:  p.options.Latency,
	}

	streamParm := pa.StreamParameters{
		FramesPerBuffer: p.options.FramesPerBuffer,
		Output:          streamDeviceParam,
		SampleRate:      p.options.Samplerate,
	}

	stream, err := pa.OpenStream(streamParm, p.playCb)
	if err != nil {
		return nil,
			fmt.Errorf("unable to open playback audio stream on device %s: %s",
				p.options.DeviceName, err)
	}

	p.stream = stream
	log.WithFields(log.Fields{
		"device":  p.deviceInfo.Name,
		"hostapi": p.deviceInfo.HostApi.Name,
	}).Info("output sound device")

	return p, nil
}

// newScPlayer sets up a player without an audio stream.
func newScPlayer(opts ...Option) *ScPlayer {
	p := &ScPlayer{
		options: Options{
			DeviceName:      "default",
			HostAPI:         "default",
			Channels:        2,
			Samplerate:      48000,
			FramesPerBuffer: 480,
			RingBufferSize:  10,
			Latency:         time.Millisecond * 10,
			PositionRate:    time.Millisecond * 250,
		},
		ring:    ringBuffer.Ring{},
		volume:  0.7,
		closeCh: make(chan struct{}),
	}

	for _, option := range opts {
		option(&p.options)
	}

	p.ring.SetCapacity(p.options.RingBufferSize)

	return p
}

// Start starts the audio stream together with the goroutines which keep
// the ring buffer filled and publish the playback position.
func (p *ScPlayer) Start() error {
	if p.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	if err := p.stream.Start(); err != nil {
		return err
	}

	p.wg.Add(2)
	go p.feeder()
	go p.reporter()

	return nil
}

// Close stops the audio stream and the background goroutines.
func (p *ScPlayer) Close() error {
	if p.stream == nil {
		return fmt.Errorf("portaudio stream not initialized")
	}
	close(p.closeCh)
	p.wg.Wait()
	p.stream.Abort()
	return p.stream.Close()
}

// portaudio callback which will be called continuously when the stream is
// started; this function should be short and never block
func (p *ScPlayer) playCb(out []float32,
	iTime pa.StreamCallbackTimeInfo,
	iFlags pa.StreamCallbackFlags) {
	switch iFlags {
	case pa.OutputUnderflow:
		log.Debug("output underflow")
	case pa.OutputOverflow:
		log.Debug("output overflow")
	}
	p.fill(out)
}

// fill copies the next queued chunk into out or silences it when no
// chunk is available.
func (p *ScPlayer) fill(out []float32) {

	p.Lock()
	var data interface{}
	if p.playing {
		data = p.ring.Dequeue()
	}
	vol := p.volume
	finished := false
	if data != nil {
		c := data.(chunk)
		p.played = c.offset + len(c.samples)
		copy(out, c.samples)
		for i := len(c.samples); i < len(out); i++ {
			out[i] = 0
		}
	} else if p.playing && p.cursor >= len(p.data) {
		// end of the buffer reached
		p.playing = false
		p.played = len(p.data)
		finished = true
	}
	p.Unlock()

	if data == nil {
		for i := range out {
			out[i] = 0
		}
	} else if vol != 1 {
		audio.AdjustVolume(vol, out)
	}

	if finished {
		p.publish(false, events.PlayState)
	}
}

// feed queues chunks until the ring buffer is full or the loaded data
// is exhausted.
func (p *ScPlayer) feed() {
	p.Lock()
	defer p.Unlock()

	size := p.options.FramesPerBuffer * p.options.Channels

	for p.playing && p.ring.Length() < p.ring.Capacity() && p.cursor < len(p.data) {
		end := p.cursor + size
		if end > len(p.data) {
			end = len(p.data)
		}
		p.ring.Enqueue(chunk{offset: p.cursor, samples: p.data[p.cursor:end]})
		p.cursor = end
	}
}

func (p *ScPlayer) feeder() {
	defer p.wg.Done()

	// refill at least twice per buffer period
	period := time.Duration(float64(p.options.FramesPerBuffer) /
		p.options.Samplerate * float64(time.Second) / 2)
	if period <= 0 {
		period = time.Millisecond * 5
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-p.closeCh:
			return
		case <-ticker.C:
			p.feed()
		}
	}
}

func (p *ScPlayer) reporter() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.options.PositionRate)
	defer ticker.Stop()

	for {
		select {
		case <-p.closeCh:
			return
		case <-ticker.C:
			if p.Playing() {
				p.tryPublish(p.Position(), events.Position)
			}
		}
	}
}

// flush empties the ring buffer. Must be called with the lock held.
func (p *ScPlayer) flush() {
	p.ring = ringBuffer.Ring{}
	p.ring.SetCapacity(p.options.RingBufferSize)
}

// Load converts buf into the device format and rewinds the player.
// Playback is paused.
func (p *ScPlayer) Load(buf *audio.Buffer) error {
	if err := buf.Validate(); err != nil {
		return err
	}

	data := audio.AdjustChannels(buf.NumChannels(), p.options.Channels, buf.Interleave())

	if float64(buf.Samplerate) != p.options.Samplerate && len(data) > 0 {
		ratio := p.options.Samplerate / float64(buf.Samplerate)
		res, err := gosamplerate.Simple(data, ratio, p.options.Channels, gosamplerate.SRC_SINC_FASTEST)
		if err != nil {
			return fmt.Errorf("player: %v", err)
		}
		data = res
	}

	p.Lock()
	wasPlaying := p.playing
	p.data = data
	p.cursor = 0
	p.played = 0
	p.playing = false
	p.flush()
	p.Unlock()

	if wasPlaying {
		p.publish(false, events.PlayState)
	}
	return nil
}

// Play resumes playback. Playing at the end of the buffer restarts it.
func (p *ScPlayer) Play() error {
	p.Lock()
	if len(p.data) == 0 {
		p.Unlock()
		return fmt.Errorf("no audio loaded")
	}
	if p.played >= len(p.data) {
		p.cursor = 0
		p.played = 0
		p.flush()
	}
	changed := !p.playing
	p.playing = true
	p.Unlock()

	if changed {
		p.publish(true, events.PlayState)
	}
	return nil
}

// Pause halts playback at the current position.
func (p *ScPlayer) Pause() error {
	p.Lock()
	changed := p.playing
	p.playing = false
	// discard what has been queued but not played
	p.cursor = p.played
	p.flush()
	p.Unlock()

	if changed {
		p.publish(false, events.PlayState)
	}
	return nil
}

// Seek moves the playback position to the fraction pos of the duration.
func (p *ScPlayer) Seek(pos float64) error {
	if pos < 0 || pos > 1 {
		return fmt.Errorf("seek position %v out of range [0, 1]", pos)
	}

	p.Lock()
	frames := len(p.data) / p.options.Channels
	offset := int(pos*float64(frames)) * p.options.Channels
	p.cursor = offset
	p.played = offset
	p.flush()
	p.Unlock()

	p.tryPublish(p.Position(), events.Position)
	return nil
}

// Position returns the playback position.
func (p *ScPlayer) Position() time.Duration {
	p.RLock()
	defer p.RUnlock()
	return p.toDuration(p.played)
}

// Duration returns the duration of the loaded buffer.
func (p *ScPlayer) Duration() time.Duration {
	p.RLock()
	defer p.RUnlock()
	return p.toDuration(len(p.data))
}

func (p *ScPlayer) toDuration(samples int) time.Duration {
	frames := samples / p.options.Channels
	return time.Duration(frames) * time.Second / time.Duration(p.options.Samplerate)
}

// Playing reports whether the player is playing.
func (p *ScPlayer) Playing() bool {
	p.RLock()
	defer p.RUnlock()
	return p.playing
}

// SetVolume sets the volume for all upcoming audio frames.
func (p *ScPlayer) SetVolume(v float32) {
	p.Lock()
	if v < 0 {
		p.volume = 0
	} else if v > 1 {
		p.volume = 1
	} else {
		p.volume = v
	}
	vol := p.volume
	p.Unlock()

	p.tryPublish(vol, events.Volume)
}

// Volume returns the current volume.
func (p *ScPlayer) Volume() float32 {
	p.RLock()
	defer p.RUnlock()
	return p.volume
}

func (p *ScPlayer) publish(msg interface{}, topic string) {
	if p.options.Events != nil {
		p.options.Events.Pub(msg, topic)
	}
}

// position updates are lossy
func (p *ScPlayer) tryPublish(msg interface{}, topic string) {
	if p.options.Events != nil {
		p.options.Events.TryPub(msg, topic)
	}
}
