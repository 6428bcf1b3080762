package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// routes configures the router with all application routes. CORS applies to
// the REST endpoints only; /ws answers every non-upgrade request with 400,
// preflights included.
func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(requestLogger(s.log))

	r.HandleFunc("/ws", s.handleWebSocket)
	r.HandleFunc("/test", TestPageHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	rest := r.NewRoute().Subrouter()
	rest.Use(corsMiddleware)
	rest.HandleFunc("/", HealthHandler).Methods(http.MethodGet, http.MethodOptions)
	rest.HandleFunc("/api/test/hello", HelloHandler).Methods(http.MethodGet, http.MethodOptions)

	if s.settings != nil {
		api := rest.PathPrefix("/api/settings").Subrouter()
		api.HandleFunc("", s.handleListSettings).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/{key}", s.handleGetSetting).Methods(http.MethodGet, http.MethodOptions)
		api.HandleFunc("/{key}", s.handlePutSetting).Methods(http.MethodPut, http.MethodOptions)
		api.HandleFunc("/{key}", s.handleDeleteSetting).Methods(http.MethodDelete, http.MethodOptions)
	}
	return r
}
