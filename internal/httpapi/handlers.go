package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/hoopday/pickup-stats-backend/internal/hub"
	"github.com/hoopday/pickup-stats-backend/internal/ledger"
	"github.com/hoopday/pickup-stats-backend/internal/live"
	"github.com/hoopday/pickup-stats-backend/internal/roster"
	"github.com/hoopday/pickup-stats-backend/internal/session"
	"github.com/hoopday/pickup-stats-backend/internal/snapshot"
	"github.com/hoopday/pickup-stats-backend/internal/stats"
	"github.com/hoopday/pickup-stats-backend/internal/store"
)

func respondJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func respondError(w http.ResponseWriter, err error) {
	respondJSON(w, statusFor(err), errorBody{Error: err.Error()})
}

func statusFor(err error) int {
	var pe *store.PersistenceError
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrStaleSession):
		return http.StatusGone
	case errors.Is(err, session.ErrNotActive),
		errors.Is(err, session.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, session.ErrTooFewPlayers),
		errors.Is(err, session.ErrDuplicatePlayer):
		return http.StatusBadRequest
	case errors.As(err, &pe):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type startSessionRequest struct {
	Date     string   `json:"date"`
	Location string   `json:"location,omitempty"`
	Players  []string `json:"players"`
}

// StartLiveSession creates a new active session and spins up its live loop.
func StartLiveSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startSessionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "bad json"})
			return
		}
		if req.Date == "" {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "date is required"})
			return
		}

		reply := make(chan hub.StartReply, 1)
		h.Inbox() <- hub.StartLive{
			Date:     req.Date,
			Location: req.Location,
			Players:  req.Players,
			Reply:    reply,
		}
		res := <-reply
		if res.Err != nil {
			respondError(w, res.Err)
			return
		}
		respondJSON(w, http.StatusCreated, res.Session)
	}
}

// ResumeLiveSession reloads an interrupted session from the durable store and
// spins up (or returns) its live loop.
func ResumeLiveSession(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		reply := make(chan hub.ResumeReply, 1)
		h.Inbox() <- hub.ResumeLive{SessionID: id, Reply: reply}
		res := <-reply
		if res.Err != nil {
			respondError(w, res.Err)
			return
		}

		state := make(chan live.StateReply, 1)
		res.Loop.Inbox() <- live.GetState{Reply: state}
		respondJSON(w, http.StatusOK, (<-state).View)
	}
}

// ActiveLiveSession reports the resumable session, if any. When the durable
// store is unreachable it falls back to the advisory local snapshot so the
// operator at least learns an interrupted session exists.
func ActiveLiveSession(st store.Store, snaps snapshot.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := st.ActiveLiveSession(r.Context())
		if err == nil {
			respondJSON(w, http.StatusOK, sess)
			return
		}
		if errors.Is(err, store.ErrNotFound) {
			respondError(w, err)
			return
		}

		backup, backupErr := session.LoadBackup(snaps)
		if backupErr != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, backup.Session)
	}
}

// SessionStandings rebuilds the ledger from durable game rows and returns the
// derived leaderboard. Works whether or not the session is currently running.
func SessionStandings(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, err := st.GetLiveSession(r.Context(), id); err != nil {
			respondError(w, err)
			return
		}

		rows, err := st.ListSessionPlayers(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		names := make([]string, 0, len(rows))
		for _, row := range rows {
			names = append(names, row.PlayerName)
		}

		games, err := st.ListGames(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		records := make([]ledger.Record, 0, len(games))
		for _, g := range games {
			winner, ok := roster.ParseTeam(g.Winner)
			if !ok {
				respondError(w, roster.ErrInvariantViolation)
				return
			}
			records = append(records, ledger.Record{
				GameNumber: g.GameNumber,
				TeamA:      g.TeamA,
				TeamB:      g.TeamB,
				Bench:      g.Bench,
				Winner:     winner,
			})
		}

		respondJSON(w, http.StatusOK, ledger.Rebuild(names, records).Standings())
	}
}

// ListFinalizedSessions returns the finished-session archive, date ascending.
func ListFinalizedSessions(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := st.ListFinalizedSessions(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rows)
	}
}

// PlayerCareers aggregates finalized sessions into per-player career stats,
// bucketed for the standings screen.
func PlayerCareers(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := st.ListFinalizedSessions(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		careers := stats.Aggregate(rows)
		stats.SortByWinPercentage(careers)
		now := time.Now()
		respondJSON(w, http.StatusOK, struct {
			MinimumGames int                  `json:"minimum_games"`
			Standings    stats.Buckets        `json:"standings"`
			Players      []stats.PlayerCareer `json:"players"`
		}{
			MinimumGames: stats.MinimumGamesThreshold(careers),
			Standings:    stats.Categorize(careers, stats.MinimumGamesThreshold(careers), now),
			Players:      careers,
		})
	}
}

type playerRequest struct {
	Name string `json:"name"`
}

func CreatePlayer(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req playerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "name is required"})
			return
		}
		p := &store.Player{ID: uuid.NewString(), Name: req.Name, CreatedAt: time.Now()}
		if err := st.CreatePlayer(r.Context(), p); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, p)
	}
}

func ListPlayers(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := st.ListPlayers(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rows)
	}
}

func DeletePlayer(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeletePlayer(r.Context(), chi.URLParam(r, "id")); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type locationRequest struct {
	Name    string `json:"name"`
	Address string `json:"address,omitempty"`
}

func CreateLocation(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req locationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "name is required"})
			return
		}
		l := &store.Location{ID: uuid.NewString(), Name: req.Name, Address: req.Address, CreatedAt: time.Now()}
		if err := st.CreateLocation(r.Context(), l); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusCreated, l)
	}
}

func ListLocations(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := st.ListLocations(r.Context())
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, rows)
	}
}

func UpdateLocation(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req locationRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
			respondJSON(w, http.StatusBadRequest, errorBody{Error: "name is required"})
			return
		}
		l := &store.Location{ID: chi.URLParam(r, "id"), Name: req.Name, Address: req.Address}
		if err := st.UpdateLocation(r.Context(), l); err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, l)
	}
}

func DeleteLocation(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.DeleteLocation(r.Context(), chi.URLParam(r, "id")); err != nil {
			respondError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
