package cmd

import (
	"fmt"
	"sync"
	"time"

	natsBroker "github.com/asim/go-micro/plugins/broker/nats/v3"
	natsReg "github.com/asim/go-micro/plugins/registry/nats/v3"
	natsTr "github.com/asim/go-micro/plugins/transport/nats/v3"
	micro "github.com/asim/go-micro/v3"
	"github.com/asim/go-micro/v3/broker"
	"github.com/asim/go-micro/v3/registry"
	"github.com/asim/go-micro/v3/server"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/wire"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// natsServerCmd represents the nats render worker command
var natsServerCmd = &cobra.Command{
	Use:   "nats",
	Short: "NATS render worker",
	Long: `NATS render worker

The worker receives render requests from a NATS broker, renders them one
after the other and publishes the resulting WAV files. You need a NATS
broker up and running to which the worker can connect to.

Requests are received on vibify.render.<server-name>.request, replies are
published on vibify.render.<server-name>.reply and the state of the worker
on vibify.render.<server-name>.state.
`,
	Run: natsRenderServer,
}

func init() {
	serverCmd.AddCommand(natsServerCmd)
	addNatsFlags(natsServerCmd)
	natsServerCmd.Flags().Int("queue-size", 16, "amount of requests which are queued before new ones are rejected")
}

// publisher returns a function publishing raw message bodies on br.
func publisher(br broker.Broker) func(string, []byte) error {
	return func(topic string, body []byte) error {
		return br.Publish(topic, &broker.Message{Body: body})
	}
}

func natsRenderServer(cmd *cobra.Command, args []string) {

	// bind the pflags to viper settings
	bindNatsFlags(cmd)
	viper.BindPFlag("server.queue-size", cmd.Flags().Lookup("queue-size"))

	readConfig()

	chunkSize, err := natsChunkSize()
	if err != nil {
		exit(err)
	}

	serviceName, err := natsServiceName(viper.GetString("server.name"))
	if err != nil {
		exit(err)
	}

	queueSize := viper.GetInt("server.queue-size")
	if queueSize <= 0 {
		exit(&parmError{parm: "server.queue-size", msg: "value must be > 0"})
	}

	nopts := natsOptions()
	regNatsOpts := nopts
	brNatsOpts := nopts
	trNatsOpts := nopts

	// we want to set the nats.Options.Name so that we can distinguish
	// them when monitoring the nats server with nats-top
	regNatsOpts.Name = serviceName + ":registry"
	brNatsOpts.Name = serviceName + ":broker"
	trNatsOpts.Name = serviceName + ":transport"

	regTimeout := registry.Timeout(time.Second * 2)

	// create instances of our nats Registry, Broker and Transport
	reg := natsReg.NewRegistry(natsReg.Options(regNatsOpts), regTimeout)
	br := natsBroker.NewBroker(natsBroker.Options(brNatsOpts))
	tr := natsTr.NewTransport(natsTr.Options(trNatsOpts))

	// server.Address is used in nats as the topic on which the server
	// (transport) will be listening on, so it must be sanitized
	svr := server.NewServer(
		server.Name(serviceName),
		server.Address(validateSubject(serviceName)),
		server.RegisterInterval(time.Second*10),
		server.Transport(tr),
		server.Registry(reg),
		server.Broker(br),
	)

	rs := micro.NewService(
		micro.Name(serviceName),
		micro.Broker(br),
		micro.Transport(tr),
		micro.Registry(reg),
		micro.Version(versionString()),
		micro.Server(svr),
	)

	requestTopic, replyTopic, stateTopic := renderTopics(serviceName)

	ns := &natsServer{
		name:         viper.GetString("server.name"),
		requestTopic: requestTopic,
		replyTopic:   replyTopic,
		stateTopic:   stateTopic,
		publish:      publisher(br),
		chunkSize:    chunkSize,
		parts:        wire.NewAssembler(time.Minute),
		jobs:         make(chan wire.RenderRequest, queueSize),
		render:       renderData,
	}

	rs.Init()

	// before we announce this service, we have to ensure that no other
	// service with the same name exists.
	services, err := reg.ListServices()
	if err != nil {
		exit(err)
	}
	for _, service := range services {
		if service.Name == serviceName {
			exit(fmt.Errorf("service %s already exists", service.Name))
		}
	}

	if err := br.Connect(); err != nil {
		exit(fmt.Errorf("broker: %v", err))
	}

	sub, err := br.Subscribe(ns.requestTopic, ns.enqueueFromWire)
	if err != nil {
		exit(fmt.Errorf("subscribe: %v", err))
	}
	defer sub.Unsubscribe()

	go ns.worker()

	if err := ns.sendState(); err != nil {
		log.Println(err)
	}

	log.WithFields(log.Fields{
		"service": serviceName,
		"topic":   ns.requestTopic,
	}).Info("render worker ready")

	// run the micro service
	if err := rs.Run(); err != nil {
		log.Println(err)
	}
}

// renderFunc decodes, renders and encodes a recording.
type renderFunc func(data []byte, mediaType, name string, effect effects.ID) (string, []byte, error)

type natsServer struct {
	sync.RWMutex
	name         string
	publish      func(topic string, body []byte) error
	chunkSize    int
	parts        *wire.Assembler
	requestTopic string
	replyTopic   string
	stateTopic   string
	jobs         chan wire.RenderRequest
	render       renderFunc
	busy         bool
	rendered     uint64
}

func (ns *natsServer) enqueueFromWire(pub broker.Event) error {
	ns.enqueue(pub.Message().Body)
	return nil
}

// enqueue decodes a (part of a) render request and queues the request
// once it is complete.
func (ns *natsServer) enqueue(body []byte) {
	var req wire.RenderRequest
	if err := req.Unmarshal(body); err != nil {
		log.Println("render request:", err)
		return
	}

	if req.Parts > 1 {
		data, ok, err := ns.parts.Add(req.ID, req.Part, req.Parts, req.Audio)
		if err != nil {
			ns.reply(wire.RenderReply{ID: req.ID, Effect: req.Effect, Error: err.Error()})
			return
		}
		if !ok {
			return
		}
		req.Audio, req.Part, req.Parts = data, 0, 0
	}

	select {
	case ns.jobs <- req:
		if err := ns.sendState(); err != nil {
			log.Println(err)
		}
	default:
		ns.reply(wire.RenderReply{
			ID:     req.ID,
			Effect: req.Effect,
			Error:  "render queue full",
		})
	}
}

func (ns *natsServer) worker() {
	for req := range ns.jobs {
		ns.setBusy(true)
		ns.reply(ns.process(req))
		ns.setBusy(false)
	}
}

// process renders a single request. Failures are reported in the reply.
func (ns *natsServer) process(req wire.RenderRequest) wire.RenderReply {
	reply := wire.RenderReply{ID: req.ID, Effect: req.Effect}
	logger := log.WithFields(log.Fields{"id": req.ID, "effect": req.Effect})

	effect, err := checkEffect(req.Effect)
	if err != nil {
		reply.Error = err.Error()
		return reply
	}

	start := time.Now()
	_, data, err := ns.render(req.Audio, req.MediaType, req.ID, effect)
	if err != nil {
		logger.Errorf("render failed: %v", err)
		reply.Error = err.Error()
		return reply
	}

	logger.WithField("elapsed", time.Since(start).Round(time.Millisecond)).Info("rendered")
	reply.Audio = data
	return reply
}

// reply publishes r, split into parts which fit into a broker message.
func (ns *natsServer) reply(r wire.RenderReply) {
	if ns.publish == nil {
		log.Println("reply: broker not set")
		return
	}
	for _, part := range r.Chunks(ns.chunkSize) {
		err := ns.publish(ns.replyTopic, part.Marshal())
		if err == nil {
			continue
		}
		log.WithFields(log.Fields{"id": r.ID, "part": part.Part}).Errorf("reply: %v", err)
		// let the client know instead of leaving it waiting
		failed := wire.RenderReply{ID: r.ID, Effect: r.Effect, Error: "reply: " + err.Error()}
		if err := ns.publish(ns.replyTopic, failed.Marshal()); err != nil {
			log.Println(err)
		}
		return
	}
}

func (ns *natsServer) setBusy(busy bool) {
	ns.Lock()
	ns.busy = busy
	if !busy {
		ns.rendered++
	}
	ns.Unlock()

	if err := ns.sendState(); err != nil {
		log.Println(err)
	}
}

func (ns *natsServer) state() wire.WorkerState {
	ns.RLock()
	defer ns.RUnlock()
	return wire.WorkerState{
		Name:     ns.name,
		Busy:     ns.busy,
		Queued:   uint32(len(ns.jobs)),
		Rendered: ns.rendered,
	}
}

func (ns *natsServer) sendState() error {
	if ns.publish == nil {
		return fmt.Errorf("sendState: broker not set")
	}

	state := ns.state()
	return ns.publish(ns.stateTopic, state.Marshal())
}
