package webserver

import "net/http"

func (web *WebServer) routes() {
	web.router.HandleFunc("/api/v1.0/effects", web.effectsHdlr).Methods("GET")
	web.router.HandleFunc("/api/v1.0/file", web.fileHdlr)
	web.router.HandleFunc("/api/v1.0/effect", web.effectHdlr)
	web.router.HandleFunc("/api/v1.0/state", web.stateHdlr).Methods("GET")
	web.router.HandleFunc("/api/v1.0/audio", web.audioHdlr).Methods("GET")
	web.router.HandleFunc("/api/v1.0/export", web.exportHdlr).Methods("GET")
	web.router.HandleFunc("/api/v1.0/transport", web.transportHdlr)
	web.router.HandleFunc("/ws", web.webSocketHdlr)

	if web.settings.StaticDir != "" {
		web.router.PathPrefix("/").Handler(
			noDirListing(http.FileServer(http.Dir(web.settings.StaticDir))))
	}
}
