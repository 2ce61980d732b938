package events

import (
	"bufio"
	"fmt"
	"io"
	"strconv"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/vibify/audio/effects"
)

// CaptureKeyboard reads commands line by line from r until EOF:
// "p" toggles play / pause, a digit toggles the effect with that index
// in effects.All() (0 selects the original) and "q" requests shutdown.
func CaptureKeyboard(r io.Reader, evPS *pubsub.PubSub) {

	scanner := bufio.NewScanner(r)
	all := effects.All()

	for scanner.Scan() {
		cmd := scanner.Text()
		switch cmd {
		case "p", "P":
			evPS.Pub(true, TogglePlay)
		case "q", "Q":
			evPS.Pub(true, OsExit)
		default:
			idx, err := strconv.Atoi(cmd)
			if err != nil || idx < 0 || idx >= len(all) {
				fmt.Println("keyboard input:", cmd)
				printKeys(all)
				continue
			}
			if all[idx] == effects.None {
				evPS.Pub(effects.None, SelectEffect)
				continue
			}
			evPS.Pub(all[idx], ToggleEffect)
		}
	}
}

func printKeys(all []effects.ID) {
	fmt.Println("p: play / pause, q: quit")
	for i, id := range all {
		fmt.Printf("%d: %s\n", i, id.Label())
	}
}
