// Copyright © 2016 Tobias Wellnitz, DH1TW <Tobias.Wellnitz@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package cmd

import (
	"os"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/audio/player"
	"github.com/dh1tw/vibify/coordinator"
	"github.com/dh1tw/vibify/decoder"
	"github.com/dh1tw/vibify/events"
	"github.com/dh1tw/vibify/webserver"
	"github.com/gordonklaus/portaudio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve [file]",
	Short: "Serve the web interface (and optionally play on a local sound card)",
	Long: `Serve the REST api and websocket of vibify. A browser UI loads a
recording, selects effects and retrieves the rendered audio through it.

With --playback the rendered audio is also played on a local audio device.
In order to find the supported audio devices and audio host APIs for your
platform run:

$ vibify(.exe) enumerate

With --keyboard the effects can be toggled from the terminal.
`,
	Args: cobra.MaximumNArgs(1),
	Run:  serve,
}

func init() {
	RootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("http-host", "w", "127.0.0.1", "Host (use '0.0.0.0' to listen on all network adapters)")
	serveCmd.Flags().IntP("http-port", "k", 9090, "Port to access the web interface")
	serveCmd.Flags().String("static-dir", "", "directory with the static files of the web interface")
	serveCmd.Flags().BoolP("playback", "p", false, "play the rendered audio on a local audio device")
	serveCmd.Flags().Bool("keyboard", false, "control playback and effects from the terminal")
	serveCmd.Flags().StringP("effect", "e", "none", "effect applied to the file given as argument")

	serveCmd.Flags().StringP("output-device-name", "o", "default", "Output device")
	serveCmd.Flags().String("output-host-api", "default", "Output host API")
	serveCmd.Flags().Float64("output-device-samplerate", 48000, "Output device sampling rate")
	serveCmd.Flags().Int("output-device-channels", 2, "Output device channels")
	serveCmd.Flags().Duration("output-device-latency", time.Millisecond*10, "Output latency")
	serveCmd.Flags().Int("output-device-frames-per-buffer", 480, "Frames per buffer requested by the output device")
	serveCmd.Flags().Int("output-device-ring-buffer-size", 10, "Amount of buffers queued ahead of the output device")
}

func serve(cmd *cobra.Command, args []string) {

	// bind the pflags to viper settings
	viper.BindPFlag("http.host", cmd.Flags().Lookup("http-host"))
	viper.BindPFlag("http.port", cmd.Flags().Lookup("http-port"))
	viper.BindPFlag("http.static-dir", cmd.Flags().Lookup("static-dir"))
	viper.BindPFlag("output-device.device-name", cmd.Flags().Lookup("output-device-name"))
	viper.BindPFlag("output-device.host-api", cmd.Flags().Lookup("output-host-api"))
	viper.BindPFlag("output-device.samplerate", cmd.Flags().Lookup("output-device-samplerate"))
	viper.BindPFlag("output-device.channels", cmd.Flags().Lookup("output-device-channels"))
	viper.BindPFlag("output-device.latency", cmd.Flags().Lookup("output-device-latency"))
	viper.BindPFlag("output-device.frames-per-buffer", cmd.Flags().Lookup("output-device-frames-per-buffer"))
	viper.BindPFlag("output-device.ring-buffer-size", cmd.Flags().Lookup("output-device-ring-buffer-size"))

	readConfig()

	// check if values from config file / pflags are valid
	if err := checkHTTPParameterValues(); err != nil {
		exit(err)
	}

	playback, _ := cmd.Flags().GetBool("playback")
	keyboard, _ := cmd.Flags().GetBool("keyboard")
	effectName, _ := cmd.Flags().GetString("effect")

	effect, err := checkEffect(effectName)
	if err != nil {
		exit(err)
	}

	evPS := pubsub.New(100)

	coordOpts := []coordinator.Option{
		coordinator.Events(evPS),
		coordinator.Product(viper.GetString("product.name")),
	}

	var speaker *player.ScPlayer

	if playback {
		if err := checkAudioParameterValues(); err != nil {
			exit(err)
		}

		portaudio.Initialize()
		defer portaudio.Terminate()

		speaker, err = player.NewScPlayer(
			player.HostAPI(viper.GetString("output-device.host-api")),
			player.DeviceName(viper.GetString("output-device.device-name")),
			player.Channels(viper.GetInt("output-device.channels")),
			player.Samplerate(viper.GetFloat64("output-device.samplerate")),
			player.Latency(viper.GetDuration("output-device.latency")),
			player.FramesPerBuffer(viper.GetInt("output-device.frames-per-buffer")),
			player.RingBufferSize(viper.GetInt("output-device.ring-buffer-size")),
			player.Events(evPS),
		)
		if err != nil {
			exit(err)
		}
		if err := speaker.Start(); err != nil {
			exit(err)
		}
		defer speaker.Close()

		coordOpts = append(coordOpts, coordinator.Player(speaker))
	}

	coord := coordinator.NewCoordinator(coordOpts...)
	defer coord.Close()

	if len(args) == 1 {
		data, err := os.ReadFile(args[0])
		if err != nil {
			exit(err)
		}
		if err := coord.LoadFile(data, decoder.MediaType(args[0]), args[0]); err != nil {
			exit(err)
		}
		if err := coord.Select(effect); err != nil {
			exit(err)
		}
	}

	web, err := webserver.NewWebServer(webserver.Settings{
		Address:     viper.GetString("http.host"),
		Port:        viper.GetInt("http.port"),
		StaticDir:   viper.GetString("http.static-dir"),
		Events:      evPS,
		Coordinator: coord,
	})
	if err != nil {
		exit(err)
	}
	defer web.Close()

	go func() {
		if err := web.Start(); err != nil {
			exit(err)
		}
	}()

	go events.WatchSystemEvents(evPS)
	if keyboard {
		go events.CaptureKeyboard(os.Stdin, evPS)
	}

	// a nil interface (not a nil *ScPlayer) when playback is disabled
	var p audio.Player
	if speaker != nil {
		p = speaker
	}

	runEventLoop(evPS, coord, p)
}

// runEventLoop executes the requests of the user interfaces until the
// application is asked to exit.
func runEventLoop(evPS *pubsub.PubSub, coord *coordinator.Coordinator, p audio.Player) {

	selectCh := evPS.Sub(events.SelectEffect)
	toggleCh := evPS.Sub(events.ToggleEffect)
	setPlayingCh := evPS.Sub(events.SetPlaying)
	togglePlayCh := evPS.Sub(events.TogglePlay)
	seekCh := evPS.Sub(events.Seek)
	setVolumeCh := evPS.Sub(events.SetVolume)
	osExitCh := evPS.Sub(events.OsExit)

	for {
		select {
		case ev := <-selectCh:
			if err := coord.Select(ev.(effects.ID)); err != nil {
				log.Println(err)
			}

		case ev := <-toggleCh:
			if err := coord.Toggle(ev.(effects.ID)); err != nil {
				log.Println(err)
			}

		case ev := <-setPlayingCh:
			setPlaying(p, ev.(bool))

		case <-togglePlayCh:
			if p != nil {
				setPlaying(p, !p.Playing())
			}

		case ev := <-seekCh:
			if p == nil {
				continue
			}
			if err := p.Seek(ev.(float64)); err != nil {
				log.Println(err)
			}

		case ev := <-setVolumeCh:
			if p != nil {
				p.SetVolume(ev.(float32))
			}

		case <-osExitCh:
			log.Println("shutting down")
			return
		}
	}
}

func setPlaying(p audio.Player, playing bool) {
	if p == nil {
		return
	}
	var err error
	if playing {
		err = p.Play()
	} else {
		err = p.Pause()
	}
	if err != nil {
		log.Println(err)
	}
}
