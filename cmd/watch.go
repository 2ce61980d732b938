package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/decoder"
	"github.com/dh1tw/vibify/events"
	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <dir>",
	Short: "Render every audio file written into a directory",
	Long: `Watch a directory and render every audio file which is created or
written in it with an effect preset. The results are written into the
output directory as <title>-<effect>.wav.
`,
	Args: cobra.ExactArgs(1),
	Run:  watchDir,
}

func init() {
	RootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringP("effect", "e", "slowed-reverb", "effect preset")
	watchCmd.Flags().StringP("output-dir", "o", "", "output directory (default <dir>/rendered)")
	watchCmd.Flags().Duration("settle", time.Millisecond*500, "time a file must stay unchanged before it is rendered")
}

func watchDir(cmd *cobra.Command, args []string) {

	readConfig()

	effectName, _ := cmd.Flags().GetString("effect")
	outDir, _ := cmd.Flags().GetString("output-dir")
	settle, _ := cmd.Flags().GetDuration("settle")

	effect, err := checkEffect(effectName)
	if err != nil {
		exit(err)
	}

	dir := args[0]
	if outDir == "" {
		outDir = filepath.Join(dir, "rendered")
	}
	if err := checkWatchDirs(dir, outDir); err != nil {
		exit(err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		exit(err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		exit(err)
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		exit(err)
	}

	evPS := pubsub.New(1)
	osExitCh := evPS.Sub(events.OsExit)
	go events.WatchSystemEvents(evPS)

	log.Printf("watching %s, rendering with %s into %s", dir, effect, outDir)

	// files are rendered once they haven't changed for the settle time
	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isAudioFile(ev.Name) {
				continue
			}
			path := ev.Name
			mu.Lock()
			if t, ok := pending[path]; ok {
				t.Reset(settle)
			} else {
				pending[path] = time.AfterFunc(settle, func() {
					mu.Lock()
					delete(pending, path)
					mu.Unlock()
					renderToDir(path, outDir, effect)
				})
			}
			mu.Unlock()

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			log.Println("watch:", err)

		case <-osExitCh:
			log.Println("shutting down")
			return
		}
	}
}

// checkWatchDirs rejects an output directory which is the watched
// directory itself, otherwise every rendered file would be rendered again.
func checkWatchDirs(dir, outDir string) error {
	d, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	o, err := filepath.Abs(outDir)
	if err != nil {
		return err
	}
	if d == o {
		return &parmError{
			parm: "output-dir",
			msg:  "must differ from the watched directory",
		}
	}
	return nil
}

func isAudioFile(path string) bool {
	return strings.HasPrefix(decoder.MediaType(path), "audio/")
}

// renderToDir renders the file at path and stores the result in outDir
// as <title>-<effect>.wav.
func renderToDir(path, outDir string, effect effects.ID) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Println("watch:", err)
		return
	}

	_, wavData, err := renderData(data, decoder.MediaType(path), path, effect)
	if err != nil {
		log.WithField("file", path).Errorf("render failed: %v", err)
		return
	}

	out := filepath.Join(outDir, decoder.Title(path)+"-"+effect.String()+".wav")
	if err := os.WriteFile(out, wavData, 0644); err != nil {
		log.Println("watch:", err)
		return
	}
	log.WithFields(log.Fields{"file": path, "output": out}).Info("rendered")
}
