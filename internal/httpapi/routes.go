package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hoopday/pickup-stats-backend/internal/hub"
	"github.com/hoopday/pickup-stats-backend/internal/snapshot"
	"github.com/hoopday/pickup-stats-backend/internal/store"
	"github.com/hoopday/pickup-stats-backend/internal/ws"
)

func SetupRoutes(h *hub.Hub, st store.Store, snaps snapshot.Store) http.Handler {
	r := chi.NewRouter()

	r.Post("/live-sessions", StartLiveSession(h))
	r.Post("/live-sessions/{id}/resume", ResumeLiveSession(h))
	r.Get("/live-sessions/active", ActiveLiveSession(st, snaps))
	r.Get("/live-sessions/{id}/standings", SessionStandings(st))
	r.Get("/ws", ws.Handler(h))

	r.Get("/sessions", ListFinalizedSessions(st))
	r.Get("/stats/players", PlayerCareers(st))

	r.Get("/players", ListPlayers(st))
	r.Post("/players", CreatePlayer(st))
	r.Delete("/players/{id}", DeletePlayer(st))

	r.Get("/locations", ListLocations(st))
	r.Post("/locations", CreateLocation(st))
	r.Put("/locations/{id}", UpdateLocation(st))
	r.Delete("/locations/{id}", DeleteLocation(st))

	r.Get("/healthz", Healthz)
	return r
}
