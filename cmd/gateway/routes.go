package main

import (
	"net/http"

	"github.com/dechogo/hearing-gateway/internal/confighandler"
	"github.com/dechogo/hearing-gateway/internal/task"
)

// registerRoutes wires the audio-task surface and the config surface onto
// the shared mux, following the teacher gateway's registerRoutes idiom of
// one function fanning out to each component's own RegisterRoutes method.
func registerRoutes(mux *http.ServeMux, svc *task.Service, cfgHandler *confighandler.Handler) {
	svc.RegisterRoutes(mux)
	cfgHandler.RegisterRoutes(mux)
}
