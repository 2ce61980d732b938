package cmd

import (
	"testing"

	"github.com/dh1tw/vibify/audio/effects"
	"github.com/spf13/viper"
)

func TestCheckEffect(t *testing.T) {
	data := []struct {
		name  string
		id    effects.ID
		valid bool
	}{
		{"nightcore", effects.Nightcore, true},
		{"Five-D-Audio", effects.FiveDAudio, true},
		{"none", effects.None, true},
		{"chipmunk", effects.None, false},
	}

	for _, d := range data {
		id, err := checkEffect(d.name)
		if (err == nil) != d.valid {
			t.Fatalf("%s: unexpected error %v", d.name, err)
		}
		if id != d.id {
			t.Fatalf("%s: expected %v, got %v", d.name, d.id, id)
		}
	}
}

func TestCheckAudioParameterValues(t *testing.T) {
	defer viper.Reset()

	set := func(chs, fpb, ring int, hostAPI string) {
		viper.Set("output-device.channels", chs)
		viper.Set("output-device.samplerate", 48000)
		viper.Set("output-device.frames-per-buffer", fpb)
		viper.Set("output-device.ring-buffer-size", ring)
		viper.Set("output-device.host-api", hostAPI)
	}

	set(2, 480, 10, "default")
	if err := checkAudioParameterValues(); err != nil {
		t.Fatal(err)
	}

	set(2, 480, 10, "ALSA")
	if err := checkAudioParameterValues(); err != nil {
		t.Fatal(err)
	}

	data := []struct {
		chs, fpb, ring int
		hostAPI        string
		parm           string
	}{
		{3, 480, 10, "default", "output-device.channels"},
		{2, 0, 10, "default", "output-device.frames-per-buffer"},
		{2, 480, 0, "default", "output-device.ring-buffer-size"},
		{2, 480, 10, "beos", "output-device.host-api"},
	}

	for _, d := range data {
		set(d.chs, d.fpb, d.ring, d.hostAPI)
		err := checkAudioParameterValues()
		pe, ok := err.(*parmError)
		if !ok {
			t.Fatalf("expected parmError for %s, got %v", d.parm, err)
		}
		if pe.parm != d.parm {
			t.Fatalf("expected %s, got %s", d.parm, pe.parm)
		}
	}
}

func TestValidateSubject(t *testing.T) {
	if s := validateSubject("my render box"); s != "my_render_box" {
		t.Fatalf("unexpected subject %q", s)
	}
}

func TestNatsServiceName(t *testing.T) {
	name, err := natsServiceName("studio")
	if err != nil {
		t.Fatal(err)
	}
	req, reply, state := renderTopics(name)
	if req != "vibify.render.studio.request" ||
		reply != "vibify.render.studio.reply" ||
		state != "vibify.render.studio.state" {
		t.Fatalf("unexpected topics %s %s %s", req, reply, state)
	}

	for _, bad := range []string{"", "my studio", "a_b", "a.b"} {
		if _, err := natsServiceName(bad); err == nil {
			t.Fatalf("expected an error for %q", bad)
		}
	}
}
