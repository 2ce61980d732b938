package player

import (
	"fmt"
	"runtime"
	"strings"

	pa "github.com/gordonklaus/portaudio"
)

// getHostAPI takes the name of a supported portaudio host api and returns
// the corresponding portaudio hostApiInfo object. "default" selects WASAPI
// on windows and the portaudio default on all other systems.
func getHostAPI(name string) (*pa.HostApiInfo, error) {

	if name == "default" {
		if runtime.GOOS == "windows" {
			// WASAPI provides lower latency than the other windows audio apis
			if ha, err := pa.HostApi(pa.WASAPI); err == nil {
				return ha, nil
			}
		}
		ha, err := pa.DefaultHostApi()
		if err != nil {
			return nil, fmt.Errorf("unable to determine the default host api - please provide a specific host api")
		}
		return ha, nil
	}

	var hostAPIType pa.HostApiType

	switch strings.ToLower(name) {
	case "directsound":
		hostAPIType = pa.DirectSound
	case "mme":
		hostAPIType = pa.MME
	case "asio":
		hostAPIType = pa.ASIO
	case "coreaudio":
		hostAPIType = pa.CoreAudio
	case "oss":
		hostAPIType = pa.OSS
	case "alsa":
		hostAPIType = pa.ALSA
	case "jack":
		hostAPIType = pa.JACK
	case "wasapi":
		hostAPIType = pa.WASAPI
	case "wdmks":
		hostAPIType = pa.WDMkS
	default:
		return nil, fmt.Errorf("unknown host api type: %s", name)
	}

	hostAPIInfo, err := pa.HostApi(hostAPIType)
	if err != nil {
		return nil, fmt.Errorf("unable to load host api %s: %s", name, err.Error())
	}

	return hostAPIInfo, nil
}

// getPaDevice checks if the Audio Device actually exists and
// then returns it
func getPaDevice(name string, hostAPI *pa.HostApiInfo) (*pa.DeviceInfo, error) {
	for _, device := range hostAPI.Devices {
		if strings.EqualFold(device.Name, name) {
			return device, nil
		}
	}
	return nil, fmt.Errorf("unknown audio device '%s'", name)
}
