// Package webserver provides the HTTP and WebSocket surface through which
// a browser UI loads recordings, selects effects and retrieves the
// rendered audio.
package webserver

import (
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strconv"
	"sync"

	"github.com/cskr/pubsub"
	"github.com/dh1tw/vibify/coordinator"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{}

// Settings contains the parameters of the WebServer.
type Settings struct {
	Address       string
	Port          int
	StaticDir     string
	MaxUploadSize int64
	Events        *pubsub.PubSub
	Coordinator   *coordinator.Coordinator
}

// WebServer serves the REST api, the websocket state push and
// (optionally) the static files of the UI.
type WebServer struct {
	sync.Mutex
	settings       Settings
	router         *mux.Router
	apiVersion     string
	apiMatch       *regexp.Regexp
	coord          *coordinator.Coordinator
	events         *pubsub.PubSub
	wsClients      map[*wsClient]struct{}
	addWsClient    chan *wsClient
	removeWsClient chan *wsClient
	closeCh        chan struct{}
	wg             sync.WaitGroup
}

// NewWebServer returns a WebServer and starts the goroutine which pushes
// state changes to the connected websocket clients.
func NewWebServer(s Settings) (*WebServer, error) {

	if s.Coordinator == nil {
		return nil, fmt.Errorf("webserver: coordinator missing")
	}
	if s.Events == nil {
		s.Events = pubsub.New(10)
	}
	if s.MaxUploadSize <= 0 {
		s.MaxUploadSize = 200 << 20
	}

	web := &WebServer{
		settings:       s,
		router:         mux.NewRouter().StrictSlash(true),
		apiVersion:     "1.0",
		apiMatch:       regexp.MustCompile(`api/v\d+\.\d+/`),
		coord:          s.Coordinator,
		events:         s.Events,
		wsClients:      make(map[*wsClient]struct{}),
		addWsClient:    make(chan *wsClient),
		removeWsClient: make(chan *wsClient),
		closeCh:        make(chan struct{}),
	}

	web.routes()

	evCh := web.events.Sub(hubTopics...)
	web.wg.Add(1)
	go web.start(evCh)

	return web, nil
}

// Handler returns the root http.Handler of the WebServer.
func (web *WebServer) Handler() http.Handler {
	return web.apiRedirectRouter(web.router)
}

// Start listens on the configured address and serves the api. It blocks
// until the listener fails.
func (web *WebServer) Start() error {
	addr := net.JoinHostPort(web.settings.Address, strconv.Itoa(web.settings.Port))
	log.Printf("webserver listening on http://%s", addr)
	return http.ListenAndServe(addr, web.Handler())
}

// Close stops pushing updates and disconnects all websocket clients.
func (web *WebServer) Close() {
	close(web.closeCh)
	web.wg.Wait()
}
