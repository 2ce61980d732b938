package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/gordonklaus/portaudio"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// RootCmd represents the base command when called without any subcommands
var RootCmd = &cobra.Command{
	Use:   "vibify",
	Short: "Render audio recordings with preset effects",
	Long: `vibify renders audio recordings with one of a fixed set of effect
presets (slowed & reverb, nightcore, bassboost, flanger, lo-fi, 5D audio)
and exports the result as 16-bit PCM WAV.

It can be used as a one-shot command line tool, as a web service with an
optional local playback device, or as a render worker behind a NATS broker.
`,
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main(). It only needs to happen
// once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.vibify.[yaml|toml|json])")
	RootCmd.PersistentFlags().String("log-level", "info", "log level [debug, info, warn, error]")
	RootCmd.PersistentFlags().String("product-name", "vibify", "prefix of exported file names")

	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("product.name", RootCmd.PersistentFlags().Lookup("product-name"))
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Println(err)
			os.Exit(1)
		}
		viper.SetConfigName(".vibify")
		viper.AddConfigPath(home)
	}

	viper.SetEnvPrefix("vibify")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

// readConfig reads the config file (if any) and configures the logger.
func readConfig() {
	if err := viper.ReadInConfig(); err == nil {
		fmt.Println("Using config file:", viper.ConfigFileUsed())
	} else {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Debug("no config file found")
		} else {
			fmt.Fprintf(os.Stderr, "Error parsing config file %v: %v\n",
				viper.ConfigFileUsed(), err)
			os.Exit(1)
		}
	}

	lvl, err := log.ParseLevel(viper.GetString("log.level"))
	if err != nil {
		exit(&parmError{parm: "log.level", msg: err.Error()})
	}
	log.SetLevel(lvl)
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
}

func exit(err error) {
	fmt.Fprintln(os.Stderr, err)
	portaudio.Terminate()
	os.Exit(1)
}
