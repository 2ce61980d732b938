package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/coordinator"
	"github.com/dh1tw/vibify/decoder"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var renderCmd = &cobra.Command{
	Use:   "render <input>",
	Short: "Render an audio file with an effect preset",
	Long: `Render an audio file (WAV, MP3 or Ogg Opus) with an effect preset and
write the result as 16-bit PCM WAV.

Without --output the file is written into the current directory and named
after the effect, e.g. vibify-nightcore.wav.
`,
	Args: cobra.ExactArgs(1),
	Run:  renderFile,
}

func init() {
	RootCmd.AddCommand(renderCmd)
	renderCmd.Flags().StringP("effect", "e", "slowed-reverb", "effect preset")
	renderCmd.Flags().StringP("output", "o", "", "output file")
}

func renderFile(cmd *cobra.Command, args []string) {

	readConfig()

	effectName, _ := cmd.Flags().GetString("effect")
	output, _ := cmd.Flags().GetString("output")

	effect, err := checkEffect(effectName)
	if err != nil {
		exit(err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		exit(err)
	}

	start := time.Now()

	name, wavData, err := renderData(data, decoder.MediaType(args[0]), args[0], effect)
	if err != nil {
		exit(err)
	}

	if output == "" {
		output = name
	}

	if err := os.WriteFile(output, wavData, 0644); err != nil {
		exit(err)
	}

	log.WithFields(log.Fields{
		"effect":  effect.String(),
		"output":  output,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("rendered")
}

// renderData decodes data, renders it with effect and returns the export
// file name together with the WAV encoded result.
func renderData(data []byte, mediaType, name string, effect effects.ID) (string, []byte, error) {

	c := coordinator.NewCoordinator(
		coordinator.Product(viper.GetString("product.name")),
	)
	defer c.Close()

	if err := c.LoadFile(data, mediaType, filepath.Base(name)); err != nil {
		return "", nil, err
	}

	if err := c.Select(effect); err != nil {
		return "", nil, err
	}
	c.Wait()

	if err := c.Err(); err != nil {
		return "", nil, fmt.Errorf("%s: %w", effect, err)
	}

	return c.Export()
}
