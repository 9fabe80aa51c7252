package api

import (
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"impostor-server/internal/config"
)

// Serve wires the router and blocks on the HTTP listener.
func Serve(cfg *config.Config, gateway *Gateway, admin *AdminAPI) error {
	r := mux.NewRouter()

	r.HandleFunc("/ws", gateway.HandleWS)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.HandleFunc("/analytics/track", admin.TrackHandler).Methods(http.MethodPost)

	ar := r.PathPrefix("/admin").Subrouter()
	ar.HandleFunc("/login", admin.LoginHandler).Methods(http.MethodPost)
	ar.HandleFunc("/stats", admin.RequireToken(admin.StatsHandler)).Methods(http.MethodGet)
	ar.HandleFunc("/analytics", admin.RequireToken(admin.AnalyticsHandler)).Methods(http.MethodGet)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Info().Str("addr", cfg.Addr).Msg("listening")
	return http.ListenAndServe(cfg.Addr, handlers.LoggingHandler(os.Stdout, cors(r)))
}
