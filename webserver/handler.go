package webserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dh1tw/vibify/audio"
	"github.com/dh1tw/vibify/audio/effects"
	"github.com/dh1tw/vibify/coordinator"
	"github.com/dh1tw/vibify/decoder"
	log "github.com/sirupsen/logrus"
)

func (web *WebServer) webSocketHdlr(w http.ResponseWriter, req *http.Request) {

	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		log.Printf("unable to open ws for %v", req.RemoteAddr)
		return
	}

	wsClient := &wsClient{
		ws:           conn,
		send:         make(chan []byte, 16),
		removeClient: web.removeWsClient,
		handleMsg:    web.handleClientMsg,
	}

	go wsClient.write()
	go wsClient.read(web.closeCh)

	select {
	case web.addWsClient <- wsClient:
	case <-web.closeCh:
		close(wsClient.send)
	}
}

// appState collects the state document from the coordinator and the
// playback surface.
func (web *WebServer) appState() ApplicationState {
	_, published := web.coord.Current()

	s := ApplicationState{
		Title:      web.coord.Title(),
		Effect:     web.coord.Effect().String(),
		Published:  published.String(),
		State:      web.coord.State().String(),
		Generation: web.coord.Generation(),
	}

	if err := web.coord.Err(); err != nil {
		s.Error = err.Error()
	}

	if p := web.coord.Player(); p != nil {
		pos, dur := p.Position(), p.Duration()
		s.Position = pos.Seconds()
		s.Duration = dur.Seconds()
		s.Elapsed = audio.FormatTime(pos)
		s.Total = audio.FormatTime(dur)
		s.Playing = p.Playing()
		s.Volume = p.Volume()
	} else if buf := web.coord.Original(); buf != nil {
		s.Duration = buf.Duration().Seconds()
		s.Elapsed = audio.FormatTime(0)
		s.Total = audio.FormatTime(buf.Duration())
	}

	return s
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Println(err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "text/plain; charset=UTF-8")
	w.WriteHeader(status)
	fmt.Fprintf(w, "%d - %s", status, msg)
}

func (web *WebServer) effectsHdlr(w http.ResponseWriter, req *http.Request) {
	res := []Effect{}
	for _, id := range effects.All() {
		res = append(res, Effect{ID: id.String(), Label: id.Label()})
	}
	writeJSON(w, http.StatusOK, res)
}

func (web *WebServer) stateHdlr(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, web.appState())
}

func (web *WebServer) fileHdlr(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()

	if req.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	mediaType := req.Header.Get("Content-Type")
	if err := decoder.CheckMediaType(mediaType); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, req.Body, web.settings.MaxUploadSize))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "unable to read audio file")
		return
	}

	name := req.URL.Query().Get("name")
	if name == "" {
		name = "untitled"
	}

	if err := web.coord.LoadFile(data, mediaType, name); err != nil {
		log.Println(err)
		switch {
		case errors.Is(err, audio.ErrUnsupportedFormat), errors.Is(err, audio.ErrCorruptData):
			writeError(w, http.StatusUnprocessableEntity, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "unable to load audio file")
		}
		return
	}

	web.updateWsClients()
	writeJSON(w, http.StatusOK, web.appState())
}

func (web *WebServer) effectHdlr(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()

	switch req.Method {
	case "GET":
		e := web.coord.Effect().String()
		writeJSON(w, http.StatusOK, &EffectControl{Effect: &e})

	case "PUT":
		var msg EffectControl
		if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON")
			return
		}
		if msg.Effect == nil {
			writeError(w, http.StatusBadRequest, "invalid Request")
			return
		}
		id, err := effects.Parse(*msg.Effect)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err := web.coord.Select(id); err != nil {
			if errors.Is(err, coordinator.ErrNoFile) {
				writeError(w, http.StatusConflict, err.Error())
				return
			}
			log.Println(err)
			writeError(w, http.StatusInternalServerError, "unable to select effect")
			return
		}
		web.updateWsClients()
		writeJSON(w, http.StatusAccepted, web.appState())

	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (web *WebServer) audioHdlr(w http.ResponseWriter, req *http.Request) {
	web.serveWav(w, false)
}

func (web *WebServer) exportHdlr(w http.ResponseWriter, req *http.Request) {
	web.serveWav(w, true)
}

func (web *WebServer) serveWav(w http.ResponseWriter, attachment bool) {
	name, data, err := web.coord.Export()
	if err != nil {
		if errors.Is(err, coordinator.ErrNoFile) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		log.Println(err)
		writeError(w, http.StatusInternalServerError, "unable to encode audio")
		return
	}

	w.Header().Set("Content-Type", decoder.MediaType(name))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if attachment {
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	}
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (web *WebServer) transportHdlr(w http.ResponseWriter, req *http.Request) {
	defer req.Body.Close()

	if req.Method != http.MethodPut {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	p := web.coord.Player()
	if p == nil {
		writeError(w, http.StatusServiceUnavailable, "no local playback device")
		return
	}

	var msg TransportControl
	if err := json.NewDecoder(req.Body).Decode(&msg); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if msg.Position != nil {
		if err := p.Seek(*msg.Position); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	if msg.Volume != nil {
		p.SetVolume(*msg.Volume)
	}

	if msg.Playing != nil {
		var err error
		if *msg.Playing {
			err = p.Play()
		} else {
			err = p.Pause()
		}
		if err != nil {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
	}

	web.updateWsClients()
	writeJSON(w, http.StatusOK, web.appState())
}
