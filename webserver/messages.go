package webserver

// ApplicationState is the state document returned by /state and pushed to
// the websocket clients.
type ApplicationState struct {
	Title      string  `json:"title"`
	Effect     string  `json:"effect"`
	Published  string  `json:"published"`
	State      string  `json:"state"`
	Generation uint64  `json:"generation"`
	Duration   float64 `json:"duration"`
	Position   float64 `json:"position"`
	Elapsed    string  `json:"elapsed"`
	Total      string  `json:"total"`
	Playing    bool    `json:"playing"`
	Volume     float32 `json:"volume"`
	Error      string  `json:"error,omitempty"`
}

// Effect is an entry of the effect catalogue.
type Effect struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// EffectControl selects an effect.
type EffectControl struct {
	Effect *string `json:"effect,omitempty"`
}

// TransportControl changes the local playback. Position is a fraction of
// the duration, Volume is in the range 0..1.
type TransportControl struct {
	Playing  *bool    `json:"playing,omitempty"`
	Position *float64 `json:"position,omitempty"`
	Volume   *float32 `json:"volume,omitempty"`
}

// ClientMessage contains the requests a websocket client can send.
type ClientMessage struct {
	Effect   *string  `json:"effect,omitempty"`
	Toggle   *string  `json:"toggle,omitempty"`
	Playing  *bool    `json:"playing,omitempty"`
	Position *float64 `json:"position,omitempty"`
	Volume   *float32 `json:"volume,omitempty"`
}
