package webserver

import (
	"encoding/json"

	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/events"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// events which change the state document
var hubTopics = []string{
	events.FileLoaded,
	events.EffectChange,
	events.RenderState,
	events.RenderFailed,
	events.Published,
	events.Position,
	events.PlayState,
	events.Volume,
}

func (web *WebServer) start(evCh chan interface{}) {
	defer web.wg.Done()

	for {
		select {
		case _, ok := <-evCh:
			if !ok {
				return
			}
			web.updateWsClients()

		case client := <-web.addWsClient:
			log.Println("websocket connected")
			web.Lock()
			web.wsClients[client] = struct{}{}
			web.Unlock()
			// only the connecting client needs the current state
			client.push(web.stateMsg())

		case client := <-web.removeWsClient:
			log.Println("websocket disconnected")
			web.Lock()
			if _, ok := web.wsClients[client]; ok {
				delete(web.wsClients, client)
				close(client.send)
			}
			web.Unlock()

		case <-web.closeCh:
			web.Lock()
			for client := range web.wsClients {
				delete(web.wsClients, client)
				close(client.send)
			}
			web.Unlock()
			go web.events.Unsub(evCh)
			for range evCh {
			}
			return
		}
	}
}

func (web *WebServer) stateMsg() []byte {
	data, err := json.Marshal(web.appState())
	if err != nil {
		log.Println(err)
		return nil
	}
	return data
}

// updateWsClients pushes the state document to all websocket clients.
func (web *WebServer) updateWsClients() {
	data := web.stateMsg()
	if data == nil {
		return
	}
	web.Lock()
	defer web.Unlock()
	for client := range web.wsClients {
		client.push(data)
	}
}

// handleClientMsg forwards the requests of a websocket client to the
// event bus.
func (web *WebServer) handleClientMsg(data []byte) {
	msg := ClientMessage{}
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Println("webserver: unable to unmarshal ClientMessage", string(data))
		return
	}

	if msg.Effect != nil {
		id, err := effects.Parse(*msg.Effect)
		if err != nil {
			log.Println("webserver:", err)
		} else {
			web.events.Pub(id, events.SelectEffect)
		}
	}

	if msg.Toggle != nil {
		id, err := effects.Parse(*msg.Toggle)
		if err != nil {
			log.Println("webserver:", err)
		} else {
			web.events.Pub(id, events.ToggleEffect)
		}
	}

	if msg.Playing != nil {
		web.events.Pub(*msg.Playing, events.SetPlaying)
	}

	if msg.Position != nil {
		web.events.Pub(*msg.Position, events.Seek)
	}

	if msg.Volume != nil {
		web.events.Pub(*msg.Volume, events.SetVolume)
	}
}

type wsClient struct {
	ws           *websocket.Conn
	send         chan []byte
	removeClient chan<- *wsClient
	handleMsg    func([]byte)
}

// push never blocks; a client which doesn't keep up misses updates.
func (c *wsClient) push(data []byte) {
	select {
	case c.send <- data:
	default:
	}
}

func (c *wsClient) write() {
	defer c.ws.Close()

	for message := range c.send {
		if err := c.ws.WriteMessage(websocket.TextMessage, message); err != nil {
			log.Debugf("websocket write: %v", err)
		}
	}
	c.ws.WriteMessage(websocket.CloseMessage, []byte{})
}

func (c *wsClient) read(done <-chan struct{}) {
	defer func() {
		select {
		case c.removeClient <- c:
		case <-done:
		}
		c.ws.Close()
	}()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			break
		}
		c.handleMsg(data)
	}
}
