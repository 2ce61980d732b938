package cmd

import (
	"fmt"
	"strings"

	"github.com/dh1tw/vibify/wire"
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const maxChunkSize = 1024*1024 - 4096

func addNatsFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("broker-url", "u", "localhost", "Broker URL")
	cmd.Flags().IntP("broker-port", "p", 4222, "Broker Port")
	cmd.Flags().StringP("password", "P", "", "NATS Password")
	cmd.Flags().StringP("username", "U", "", "NATS Username")
	cmd.Flags().StringP("server-name", "Y", "", "render worker name (e.g. 'studio')")
	cmd.Flags().Int("chunk-size", wire.DefaultChunkSize, "max. amount of audio bytes per NATS message")
}

func bindNatsFlags(cmd *cobra.Command) {
	viper.BindPFlag("nats.broker-url", cmd.Flags().Lookup("broker-url"))
	viper.BindPFlag("nats.broker-port", cmd.Flags().Lookup("broker-port"))
	viper.BindPFlag("nats.password", cmd.Flags().Lookup("password"))
	viper.BindPFlag("nats.username", cmd.Flags().Lookup("username"))
	viper.BindPFlag("server.name", cmd.Flags().Lookup("server-name"))
	viper.BindPFlag("nats.chunk-size", cmd.Flags().Lookup("chunk-size"))
}

// natsChunkSize returns the amount of audio bytes sent per message. It
// must leave room for the message header within the 1 MiB default
// max_payload of a NATS server.
func natsChunkSize() (int, error) {
	size := viper.GetInt("nats.chunk-size")
	if size <= 0 || size > maxChunkSize {
		return 0, &parmError{
			parm: "nats.chunk-size",
			msg:  fmt.Sprintf("value must be between 1 and %d", maxChunkSize),
		}
	}
	return size, nil
}

// natsOptions starts from the default nats config and adds the common
// options.
func natsOptions() nats.Options {
	natsAddr := fmt.Sprintf("nats://%s:%v",
		viper.GetString("nats.broker-url"), viper.GetInt("nats.broker-port"))

	nopts := nats.GetDefaultOptions()
	nopts.Servers = []string{natsAddr}
	nopts.User = viper.GetString("nats.username")
	nopts.Password = viper.GetString("nats.password")
	return nopts
}

// natsServiceName returns the name under which the render worker is
// registered.
func natsServiceName(serverName string) (string, error) {
	if len(serverName) == 0 {
		return "", fmt.Errorf("server name missing")
	}
	if strings.ContainsAny(serverName, " _.\n\r") {
		return "", fmt.Errorf("forbidden character in server name '%s'", serverName)
	}
	return fmt.Sprintf("vibify.render.%s", serverName), nil
}
