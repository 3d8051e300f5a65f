// Package storetest provides an in-memory Store for tests, with optional
// per-operation error injection to exercise rollback paths.
package storetest

import (
	"context"
	"sort"
	"sync"

	"github.com/hoopday/pickup-stats-backend/internal/store"
)

type Memory struct {
	mu sync.Mutex

	Sessions  map[string]store.LiveSession
	Players   map[string]map[string]store.SessionPlayer // sessionID -> name -> row
	Games     map[string][]store.Game
	Finalized []store.FinalizedSession
	Registry  []store.Player
	Locations []store.Location

	// FailOn injects an error for the named operation (the op string passed
	// to WrapPersistence). Cleared by the caller between steps.
	FailOn map[string]error
}

func NewMemory() *Memory {
	return &Memory{
		Sessions: make(map[string]store.LiveSession),
		Players:  make(map[string]map[string]store.SessionPlayer),
		Games:    make(map[string][]store.Game),
		FailOn:   make(map[string]error),
	}
}

func (m *Memory) fail(op string) error {
	if err, ok := m.FailOn[op]; ok {
		return store.WrapPersistence(op, err)
	}
	return nil
}

func (m *Memory) CreateLiveSession(_ context.Context, s *store.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create live session"); err != nil {
		return err
	}
	m.Sessions[s.ID] = *s
	return nil
}

func (m *Memory) UpdateLiveSession(_ context.Context, s *store.LiveSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update live session"); err != nil {
		return err
	}
	m.Sessions[s.ID] = *s
	return nil
}

func (m *Memory) GetLiveSession(_ context.Context, id string) (*store.LiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("get live session"); err != nil {
		return nil, err
	}
	s, ok := m.Sessions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (m *Memory) ActiveLiveSession(_ context.Context) (*store.LiveSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("active live session"); err != nil {
		return nil, err
	}
	var latest *store.LiveSession
	for id := range m.Sessions {
		s := m.Sessions[id]
		if s.Status != store.StatusActive {
			continue
		}
		if latest == nil || s.StartedAt.After(latest.StartedAt) {
			latest = &s
		}
	}
	if latest == nil {
		return nil, store.ErrNotFound
	}
	return latest, nil
}

func (m *Memory) InsertSessionPlayers(_ context.Context, rows []store.SessionPlayer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("insert session players"); err != nil {
		return err
	}
	for _, row := range rows {
		if m.Players[row.SessionID] == nil {
			m.Players[row.SessionID] = make(map[string]store.SessionPlayer)
		}
		m.Players[row.SessionID][row.PlayerName] = row
	}
	return nil
}

func (m *Memory) UpsertSessionPlayers(_ context.Context, rows []store.SessionPlayer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("upsert session players"); err != nil {
		return err
	}
	for _, row := range rows {
		if m.Players[row.SessionID] == nil {
			m.Players[row.SessionID] = make(map[string]store.SessionPlayer)
		}
		existing, ok := m.Players[row.SessionID][row.PlayerName]
		if ok {
			row.Notes = existing.Notes
		}
		m.Players[row.SessionID][row.PlayerName] = row
	}
	return nil
}

func (m *Memory) ListSessionPlayers(_ context.Context, sessionID string) ([]store.SessionPlayer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list session players"); err != nil {
		return nil, err
	}
	rows := make([]store.SessionPlayer, 0, len(m.Players[sessionID]))
	for _, row := range m.Players[sessionID] {
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PlayerName < rows[j].PlayerName })
	return rows, nil
}

func (m *Memory) InsertGame(_ context.Context, g *store.Game) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("insert game"); err != nil {
		return err
	}
	m.Games[g.SessionID] = append(m.Games[g.SessionID], *g)
	return nil
}

func (m *Memory) DeleteGame(_ context.Context, sessionID string, gameNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete game"); err != nil {
		return err
	}
	games := m.Games[sessionID]
	for i, g := range games {
		if g.GameNumber == gameNumber {
			m.Games[sessionID] = append(games[:i:i], games[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) ListGames(_ context.Context, sessionID string) ([]store.Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list games"); err != nil {
		return nil, err
	}
	games := append([]store.Game(nil), m.Games[sessionID]...)
	sort.Slice(games, func(i, j int) bool { return games[i].GameNumber < games[j].GameNumber })
	return games, nil
}

func (m *Memory) InsertFinalizedSession(_ context.Context, s *store.FinalizedSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("insert finalized session"); err != nil {
		return err
	}
	s.ID = uint(len(m.Finalized) + 1)
	m.Finalized = append(m.Finalized, *s)
	return nil
}

func (m *Memory) DeleteFinalizedSession(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete finalized session"); err != nil {
		return err
	}
	for i, s := range m.Finalized {
		if s.ID == id {
			m.Finalized = append(m.Finalized[:i:i], m.Finalized[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) ListFinalizedSessions(_ context.Context) ([]store.FinalizedSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list finalized sessions"); err != nil {
		return nil, err
	}
	rows := append([]store.FinalizedSession(nil), m.Finalized...)
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

func (m *Memory) CreatePlayer(_ context.Context, p *store.Player) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create player"); err != nil {
		return err
	}
	m.Registry = append(m.Registry, *p)
	return nil
}

func (m *Memory) ListPlayers(_ context.Context) ([]store.Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list players"); err != nil {
		return nil, err
	}
	rows := append([]store.Player(nil), m.Registry...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (m *Memory) DeletePlayer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete player"); err != nil {
		return err
	}
	for i, p := range m.Registry {
		if p.ID == id {
			m.Registry = append(m.Registry[:i:i], m.Registry[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *Memory) CreateLocation(_ context.Context, l *store.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create location"); err != nil {
		return err
	}
	m.Locations = append(m.Locations, *l)
	return nil
}

func (m *Memory) ListLocations(_ context.Context) ([]store.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("list locations"); err != nil {
		return nil, err
	}
	rows := append([]store.Location(nil), m.Locations...)
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (m *Memory) UpdateLocation(_ context.Context, l *store.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("update location"); err != nil {
		return err
	}
	for i, existing := range m.Locations {
		if existing.ID == l.ID {
			m.Locations[i] = *l
			return nil
		}
	}
	return store.ErrNotFound
}

func (m *Memory) DeleteLocation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("delete location"); err != nil {
		return err
	}
	for i, l := range m.Locations {
		if l.ID == id {
			m.Locations = append(m.Locations[:i:i], m.Locations[i+1:]...)
			return nil
		}
	}
	return nil
}
