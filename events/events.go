package events

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/cskr/pubsub"
)

// Event channel names used for event Pubsub

// published by the coordinator
const (
	FileLoaded   = "fileLoaded"   // string (title)
	EffectChange = "effectChange" // effects.ID
	RenderState  = "renderState"  // coordinator.State
	RenderFailed = "renderFailed" // error
	Published    = "published"    // effects.ID
)

// published by the playback surface
const (
	Position  = "position"  // time.Duration
	PlayState = "playState" // bool
	Volume    = "volume"    // float32
)

// requests from the user interfaces (keyboard, websocket)
const (
	SelectEffect = "selectEffect" // effects.ID
	ToggleEffect = "toggleEffect" // effects.ID
	SetPlaying   = "setPlaying"   // bool
	TogglePlay   = "togglePlay"   // bool
	Seek         = "seek"         // float64 (0..1)
	SetVolume    = "setVolume"    // float32
	OsExit       = "osExit"       // bool
)

// WatchSystemEvents publishes OsExit once the process receives an
// interrupt or terminate signal.
func WatchSystemEvents(evPS *pubsub.PubSub) {

	// Channel to handle OS signals
	osSignals := make(chan os.Signal, 1)

	//subscribe to os.Interrupt (CTRL-C signal) and SIGTERM
	signal.Notify(osSignals, os.Interrupt, syscall.SIGTERM)

	<-osSignals
	evPS.Pub(true, OsExit)
}
