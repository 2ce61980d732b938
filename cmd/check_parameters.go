package cmd

import (
	"fmt"
	"strings"

	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/utils"
	"github.com/spf13/viper"
)

var hostAPIs = []string{
	"default", "directsound", "mme", "asio", "coreaudio",
	"oss", "alsa", "jack", "wasapi", "wdmks",
}

// checkAudioParameterValues validates the settings of the local playback
// device.
func checkAudioParameterValues() error {

	if chs := viper.GetInt("output-device.channels"); chs < 1 || chs > 2 {
		return &parmError{
			parm: "output-device.channels",
			msg:  "allowed values are [1 (Mono), 2 (Stereo)]",
		}
	}

	if viper.GetFloat64("output-device.samplerate") <= 0 {
		return &parmError{
			parm: "output-device.samplerate",
			msg:  "value must be > 0",
		}
	}

	if viper.GetInt("output-device.frames-per-buffer") <= 0 {
		return &parmError{
			parm: "output-device.frames-per-buffer",
			msg:  "value must be > 0",
		}
	}

	if viper.GetInt("output-device.ring-buffer-size") <= 0 {
		return &parmError{
			parm: "output-device.ring-buffer-size",
			msg:  "value must be > 0",
		}
	}

	hostAPI := strings.ToLower(viper.GetString("output-device.host-api"))
	if !utils.StringInSlice(hostAPI, hostAPIs) {
		return &parmError{
			parm: "output-device.host-api",
			msg:  "allowed values are " + strings.Join(hostAPIs, ", "),
		}
	}

	return nil
}

func checkHTTPParameterValues() error {
	if port := viper.GetInt("http.port"); port < 1 || port > 65535 {
		return &parmError{
			parm: "http.port",
			msg:  "allowed values are [1...65535]",
		}
	}
	return nil
}

// checkEffect returns the effect with the given name.
func checkEffect(name string) (effects.ID, error) {
	id, err := effects.Parse(name)
	if err != nil {
		return effects.None, &parmError{
			parm: "effect",
			msg:  "allowed values are " + strings.Join(effects.Names(), ", "),
		}
	}
	return id, nil
}

type parmError struct {
	parm string
	msg  string
}

func (p *parmError) Error() string {
	return fmt.Sprintf("%v: %v", p.parm, p.msg)
}
