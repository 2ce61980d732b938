// Package coordinator owns the loaded recording and the effect selection.
// Selecting an effect renders it in the background; only the result of
// the most recent selection is ever published.
package coordinator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/audio/pipeline"
	"github.com/dh1tw/vibify/audio/render"
	"github.com/dh1tw/vibify/audiocodec/wav"
	"github.com/dh1tw/vibify/decoder"
	"github.com/dh1tw/vibify/events"
	log "github.com/sirupsen/logrus"
)

// ErrNoFile is returned when an operation requires a loaded recording.
var ErrNoFile = errors.New("no audio file loaded")

// State of the render state machine.
type State int

// Render states. A selection moves Idle/Published -> Building ->
// Rendering -> Published.
const (
	Idle State = iota
	Building
	Rendering
	Published
)

var stateNames = map[State]string{
	Idle:      "idle",
	Building:  "building",
	Rendering: "rendering",
	Published: "published",
}

func (s State) String() string {
	if n, ok := stateNames[s]; ok {
		return n
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Transport is a snapshot of the playback state. Position is a fraction
// of the duration in [0, 1].
type Transport struct {
	Position float64
	Playing  bool
}

// Coordinator is the data structure which holds the original recording,
// the currently published buffer and the render state.
//
// The embedded RWMutex guards the fields and is never held while the
// player is reloaded. transitions orders the state changes together with
// their events and player reloads. Render jobs run one at a time: every
// job waits for its predecessor before it starts.
type Coordinator struct {
	sync.RWMutex
	transitions sync.Mutex
	options     Options
	decoder    *decoder.Decoder
	title      string
	original   *audio.Buffer
	current    *audio.Buffer
	selected   effects.ID
	published  effects.ID
	state      State
	generation uint64
	cancel     context.CancelFunc
	lastErr    error
	last       chan struct{} // closed when the most recent job returns
	wg         sync.WaitGroup
}

// NewCoordinator is the constructor method of a Coordinator.
func NewCoordinator(opts ...Option) *Coordinator {

	c := &Coordinator{
		options: Options{
			Product: "vibify",
			Render:  render.Render,
		},
		decoder: decoder.NewDecoder(),
		state:   Idle,
	}

	for _, option := range opts {
		option(&c.options)
	}

	return c
}

// LoadFile decodes data and makes it the original recording. The media
// type must be an audio/* type. On failure the previously loaded
// recording stays in place.
func (c *Coordinator) LoadFile(data []byte, mediaType, name string) error {
	buf, err := c.decoder.Decode(data, mediaType)
	if err != nil {
		return err
	}
	return c.Load(buf, decoder.Title(name))
}

// Load makes buf the original recording and publishes it unmodified.
// Any render in flight is superseded. buf must not be modified afterwards.
func (c *Coordinator) Load(buf *audio.Buffer, title string) error {
	if err := buf.Validate(); err != nil {
		return fmt.Errorf("load %s: %v: %w", title, err, audio.ErrCorruptData)
	}

	c.transitions.Lock()
	defer c.transitions.Unlock()

	c.Lock()
	c.supersede()
	c.title = title
	c.original = buf
	c.current = buf
	c.selected = effects.None
	c.published = effects.None
	c.state = Published
	c.lastErr = nil
	c.Unlock()

	c.reloadPlayer(buf, Transport{})

	log.WithFields(log.Fields{
		"title":      title,
		"channels":   buf.NumChannels(),
		"samplerate": buf.Samplerate,
		"duration":   buf.Duration().Round(time.Millisecond),
	}).Info("file loaded")

	c.publish(title, events.FileLoaded)
	c.publish(effects.None, events.EffectChange)
	c.publish(Published, events.RenderState)
	c.publish(effects.None, events.Published)

	return nil
}

// Select makes id the active effect. effects.None publishes the original
// recording immediately; any other effect is rendered in the background.
// A render in flight for an earlier selection is superseded and its
// result discarded.
func (c *Coordinator) Select(id effects.ID) error {
	if !id.Valid() {
		return fmt.Errorf("unknown effect %d", int(id))
	}

	c.transitions.Lock()
	defer c.transitions.Unlock()

	c.Lock()
	if c.original == nil {
		c.Unlock()
		return ErrNoFile
	}

	c.supersede()
	gen := c.generation
	c.selected = id

	if id == effects.None {
		c.current = c.original
		c.published = effects.None
		c.state = Published
		src := c.original
		c.Unlock()

		c.reloadPlayer(src, c.transport())

		c.publish(id, events.EffectChange)
		c.publish(Published, events.RenderState)
		c.publish(id, events.Published)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state = Building
	src := c.original
	prev := c.last
	done := make(chan struct{})
	c.last = done
	c.wg.Add(1)
	c.Unlock()

	snapshot := c.transport()

	c.publish(id, events.EffectChange)
	c.publish(Building, events.RenderState)

	go c.render(ctx, gen, id, src, snapshot, prev, done)

	return nil
}

// Toggle selects id, or effects.None if id is already selected.
func (c *Coordinator) Toggle(id effects.ID) error {
	return c.Select(id.Toggle(c.Effect()))
}

// supersede invalidates the render in flight. Must be called with the
// lock held.
func (c *Coordinator) supersede() {
	c.generation++
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// render executes the job of generation gen once the previous job (prev)
// has returned.
func (c *Coordinator) render(ctx context.Context, gen uint64, id effects.ID,
	src *audio.Buffer, snapshot Transport, prev, done chan struct{}) {
	defer c.wg.Done()
	defer close(done)

	logger := log.WithFields(log.Fields{"effect": id.String(), "generation": gen})

	if prev != nil {
		<-prev
	}
	if ctx.Err() != nil {
		logger.Debug("render superseded before start")
		return
	}

	start := time.Now()

	p, err := pipeline.Build(id, src, c.options.Build...)
	if err != nil {
		c.fail(gen, id, err)
		return
	}
	for _, w := range p.Warnings {
		logger.Warn(w)
	}

	if !c.advance(gen, Rendering) {
		logger.Debug("discarding stale pipeline")
		return
	}

	out, err := c.options.Render(ctx, p, src.Frames())
	if err != nil {
		if ctx.Err() != nil {
			logger.Debug("render cancelled")
			return
		}
		c.fail(gen, id, err)
		return
	}

	c.transitions.Lock()
	defer c.transitions.Unlock()

	c.Lock()
	if gen != c.generation {
		c.Unlock()
		logger.Debug("discarding stale render")
		return
	}
	c.current = out
	c.published = id
	c.state = Published
	c.cancel = nil
	c.lastErr = nil
	c.Unlock()

	c.reloadPlayer(out, snapshot)

	logger.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("render published")

	c.publish(Published, events.RenderState)
	c.publish(id, events.Published)
}

// advance moves the state machine forward if gen is still current.
func (c *Coordinator) advance(gen uint64, s State) bool {
	c.transitions.Lock()
	defer c.transitions.Unlock()

	c.Lock()
	if gen != c.generation {
		c.Unlock()
		return false
	}
	c.state = s
	c.Unlock()

	c.publish(s, events.RenderState)
	return true
}

// fail aborts the render of generation gen. The previously published
// buffer stays in place.
func (c *Coordinator) fail(gen uint64, id effects.ID, err error) {
	c.transitions.Lock()
	defer c.transitions.Unlock()

	c.Lock()
	if gen != c.generation {
		c.Unlock()
		return
	}
	c.state = Published
	c.selected = c.published
	c.cancel = nil
	c.lastErr = err
	published := c.published
	c.Unlock()

	log.WithField("effect", id.String()).Errorf("render failed: %v", err)

	c.publish(err, events.RenderFailed)
	c.publish(published, events.EffectChange)
	c.publish(Published, events.RenderState)
}

// transport snapshots the playback state. Must be called with
// transitions held.
func (c *Coordinator) transport() Transport {
	p := c.options.Player
	if p == nil {
		return Transport{}
	}
	t := Transport{Playing: p.Playing()}
	if d := p.Duration(); d > 0 {
		t.Position = float64(p.Position()) / float64(d)
	}
	return t
}

// reloadPlayer loads buf into the playback surface and restores the
// transport snapshot. Must be called with transitions held, but not the
// RWMutex: loading may resample the whole recording.
func (c *Coordinator) reloadPlayer(buf *audio.Buffer, t Transport) {
	p := c.options.Player
	if p == nil {
		return
	}
	if err := p.Load(buf); err != nil {
		log.Println("player:", err)
		return
	}
	if err := p.Seek(t.Position); err != nil {
		log.Println("player:", err)
	}
	if t.Playing {
		if err := p.Play(); err != nil {
			log.Println("player:", err)
		}
	}
}

func (c *Coordinator) publish(msg interface{}, topic string) {
	if c.options.Events == nil {
		return
	}
	c.options.Events.Pub(msg, topic)
}

// Wait blocks until all renders in flight have finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Close cancels the render in flight and waits for it to return.
func (c *Coordinator) Close() {
	c.Lock()
	c.supersede()
	c.Unlock()
	c.Wait()
}

// Current returns the published buffer and the effect it was rendered
// with. The buffer must not be modified.
func (c *Coordinator) Current() (*audio.Buffer, effects.ID) {
	c.RLock()
	defer c.RUnlock()
	return c.current, c.published
}

// Original returns the decoded recording.
func (c *Coordinator) Original() *audio.Buffer {
	c.RLock()
	defer c.RUnlock()
	return c.original
}

// Effect returns the selected effect. While a render is in flight this
// differs from the effect of the published buffer.
func (c *Coordinator) Effect() effects.ID {
	c.RLock()
	defer c.RUnlock()
	return c.selected
}

// State returns the current render state.
func (c *Coordinator) State() State {
	c.RLock()
	defer c.RUnlock()
	return c.state
}

// Generation returns the selection generation counter.
func (c *Coordinator) Generation() uint64 {
	c.RLock()
	defer c.RUnlock()
	return c.generation
}

// Err returns the error of the last failed render, if any.
func (c *Coordinator) Err() error {
	c.RLock()
	defer c.RUnlock()
	return c.lastErr
}

// Title returns the title of the loaded recording.
func (c *Coordinator) Title() string {
	c.RLock()
	defer c.RUnlock()
	return c.title
}

// Player returns the playback surface (may be nil).
func (c *Coordinator) Player() audio.Player {
	return c.options.Player
}

// ExportName returns the file name under which the published buffer is
// exported: <product>-<effect|original>.wav.
func (c *Coordinator) ExportName() string {
	c.RLock()
	defer c.RUnlock()
	return c.exportName()
}

func (c *Coordinator) exportName() string {
	return ExportName(c.options.Product, c.published)
}

// ExportName returns <product>-<effect>.wav, or <product>-original.wav
// for effects.None.
func ExportName(product string, id effects.ID) string {
	suffix := "original"
	if id != effects.None {
		suffix = id.String()
	}
	return fmt.Sprintf("%s-%s.wav", product, suffix)
}

// Export encodes the published buffer as WAV and returns it together
// with its file name.
func (c *Coordinator) Export() (string, []byte, error) {
	c.RLock()
	buf := c.current
	name := c.exportName()
	c.RUnlock()

	if buf == nil {
		return "", nil, ErrNoFile
	}

	data, err := wav.Encode(buf)
	if err != nil {
		return "", nil, err
	}
	return name, data, nil
}
