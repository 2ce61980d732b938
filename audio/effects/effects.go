// Package effects enumerates the effect presets which can be applied to
// a loaded recording. Exactly one effect is active at any time; None
// selects the unprocessed recording.
package effects

import (
	"fmt"
	"strings"
)

// ID identifies an effect preset.
type ID int

// Available effect presets.
const (
	None ID = iota
	SlowedReverb
	Nightcore
	Bassboost
	Flanger
	Lofi
	FiveDAudio
)

var names = map[ID]string{
	None:         "none",
	SlowedReverb: "slowed-reverb",
	Nightcore:    "nightcore",
	Bassboost:    "bassboost",
	Flanger:      "flanger",
	Lofi:         "lofi",
	FiveDAudio:   "5d-audio",
}

var labels = map[ID]string{
	None:         "Original",
	SlowedReverb: "Slowed & Reverb",
	Nightcore:    "Nightcore",
	Bassboost:    "Bassboost",
	Flanger:      "Flanger",
	Lofi:         "Lo-fi",
	FiveDAudio:   "5D Audio",
}

var aliases = map[string]ID{
	"five-d-audio": FiveDAudio,
	"original":     None,
	"":             None,
}

// All returns every effect preset in display order, starting with None.
func All() []ID {
	return []ID{None, SlowedReverb, Nightcore, Bassboost, Flanger, Lofi, FiveDAudio}
}

// Names returns the identifiers of all effect presets.
func Names() []string {
	res := []string{}
	for _, id := range All() {
		res = append(res, id.String())
	}
	return res
}

// Parse returns the effect with the given (case insensitive) name.
func Parse(name string) (ID, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for id, s := range names {
		if s == n {
			return id, nil
		}
	}
	if id, ok := aliases[n]; ok {
		return id, nil
	}
	return None, fmt.Errorf("unknown effect '%s'", name)
}

func (id ID) String() string {
	if s, ok := names[id]; ok {
		return s
	}
	return fmt.Sprintf("effect(%d)", int(id))
}

// Label returns the human readable name of the effect.
func (id ID) Label() string {
	if s, ok := labels[id]; ok {
		return s
	}
	return id.String()
}

// Valid reports whether id is a known effect preset.
func (id ID) Valid() bool {
	_, ok := names[id]
	return ok
}

// Toggle returns the effect which becomes active when id is selected
// while current is active. Selecting the active effect again turns it off.
func (id ID) Toggle(current ID) ID {
	if id == current {
		return None
	}
	return id
}

// MarshalText implements encoding.TextMarshaler.
func (id ID) MarshalText() ([]byte, error) {
	if !id.Valid() {
		return nil, fmt.Errorf("unknown effect %d", int(id))
	}
	return []byte(id.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (id *ID) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*id = v
	return nil
}
