package cmd

import (
	"fmt"
	"os"
	"time"

	natsBroker "github.com/asim/go-micro/plugins/broker/nats/v3"
	natsReg "github.com/asim/go-micro/plugins/registry/nats/v3"
	"github.com/asim/go-micro/v3/broker"
	"github.com/asim/go-micro/v3/registry"
	"github.com/dh1tw/vibify/coordinator"
	"github.com/dh1tw/vibify/decoder"
	"github.com/dh1tw/vibify/wire"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// natsClientCmd represents the nats render client command
var natsClientCmd = &cobra.Command{
	Use:   "nats <input>",
	Short: "send a render request through NATS",
	Long: `Send an audio file to a render worker through a NATS broker and
write the rendered WAV file to disk.
`,
	Args: cobra.ExactArgs(1),
	Run:  natsRenderClient,
}

func init() {
	clientCmd.AddCommand(natsClientCmd)
	addNatsFlags(natsClientCmd)
	natsClientCmd.Flags().StringP("effect", "e", "slowed-reverb", "effect preset")
	natsClientCmd.Flags().StringP("output", "o", "", "output file")
	natsClientCmd.Flags().Duration("timeout", time.Minute, "time to wait for the rendered file")
}

func natsRenderClient(cmd *cobra.Command, args []string) {

	// bind the pflags to viper settings
	bindNatsFlags(cmd)

	readConfig()

	chunkSize, err := natsChunkSize()
	if err != nil {
		exit(err)
	}

	effectName, _ := cmd.Flags().GetString("effect")
	output, _ := cmd.Flags().GetString("output")
	timeout, _ := cmd.Flags().GetDuration("timeout")

	effect, err := checkEffect(effectName)
	if err != nil {
		exit(err)
	}

	serviceName, err := natsServiceName(viper.GetString("server.name"))
	if err != nil {
		exit(err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		exit(err)
	}

	nopts := natsOptions()
	nopts.AsyncErrorCB = func(conn *nats.Conn, sub *nats.Subscription, err error) {
		log.Printf("Error Handler called (%s): %s", sub.Subject, err)
	}

	regNatsOpts := nopts
	brNatsOpts := nopts
	regNatsOpts.Name = "vibify.client:registry"
	brNatsOpts.Name = "vibify.client:broker"

	reg := natsReg.NewRegistry(natsReg.Options(regNatsOpts), registry.Timeout(time.Second*3))
	br := natsBroker.NewBroker(natsBroker.Options(brNatsOpts))

	// make sure the render worker is online
	services, err := reg.GetService(serviceName)
	if err != nil || len(services) == 0 {
		exit(fmt.Errorf("render worker %s not found", serviceName))
	}

	if err := br.Connect(); err != nil {
		exit(fmt.Errorf("broker: %v", err))
	}
	defer br.Disconnect()

	requestTopic, replyTopic, _ := renderTopics(serviceName)

	req := wire.RenderRequest{
		ID:        uuid.New().String(),
		Effect:    effect.String(),
		MediaType: decoder.MediaType(args[0]),
		Audio:     data,
	}

	replies := make(chan wire.RenderReply, 1)
	parts := wire.NewAssembler(timeout)

	sub, err := br.Subscribe(replyTopic, func(ev broker.Event) error {
		var reply wire.RenderReply
		if err := reply.Unmarshal(ev.Message().Body); err != nil {
			log.Println("render reply:", err)
			return nil
		}
		// the reply topic is shared by all clients of the worker
		if reply.ID != req.ID {
			return nil
		}
		data, ok, err := parts.Add(reply.ID, reply.Part, reply.Parts, reply.Audio)
		switch {
		case err != nil:
			reply.Audio, reply.Error = nil, err.Error()
		case !ok:
			return nil
		default:
			reply.Audio = data
		}
		select {
		case replies <- reply:
		default:
		}
		return nil
	})
	if err != nil {
		exit(fmt.Errorf("subscribe: %v", err))
	}
	defer sub.Unsubscribe()

	start := time.Now()

	chunks := req.Chunks(chunkSize)
	publish := publisher(br)
	for _, c := range chunks {
		if err := publish(requestTopic, c.Marshal()); err != nil {
			exit(fmt.Errorf("render request part %d/%d: %v", c.Part+1, len(chunks), err))
		}
	}

	log.WithFields(log.Fields{
		"id":     req.ID,
		"worker": serviceName,
		"effect": req.Effect,
		"parts":  len(chunks),
	}).Info("render request sent")

	var reply wire.RenderReply
	select {
	case reply = <-replies:
	case <-time.After(timeout):
		exit(fmt.Errorf("no reply from %s within %v", serviceName, timeout))
	}

	if reply.Error != "" {
		exit(fmt.Errorf("%s: %s", serviceName, reply.Error))
	}

	if output == "" {
		output = coordinator.ExportName(viper.GetString("product.name"), effect)
	}

	if err := os.WriteFile(output, reply.Audio, 0644); err != nil {
		exit(err)
	}

	log.WithFields(log.Fields{
		"output":  output,
		"elapsed": time.Since(start).Round(time.Millisecond),
	}).Info("rendered")
}
