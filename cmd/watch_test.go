package cmd

import (
	"path/filepath"
	"testing"
)

func TestCheckWatchDirs(t *testing.T) {
	data := []struct {
		dir, outDir string
		valid       bool
	}{
		{"music", filepath.Join("music", "rendered"), true},
		{"music", "out", true},
		{"music", "music", false},
		{"music", "./music/", false},
		{"music", filepath.Join("music", "sub", ".."), false},
	}
	for _, d := range data {
		if err := checkWatchDirs(d.dir, d.outDir); (err == nil) != d.valid {
			t.Errorf("%q / %q: unexpected result %v", d.dir, d.outDir, err)
		}
	}
}

func TestIsAudioFile(t *testing.T) {
	data := map[string]bool{
		"song.mp3":  true,
		"song.WAV":  true,
		"notes.txt": false,
		"noext":     false,
	}
	for path, want := range data {
		if isAudioFile(path) != want {
			t.Errorf("%s: expected %v", path, want)
		}
	}
}
