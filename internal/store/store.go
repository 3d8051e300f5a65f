// Package store defines the durable record shapes and the operations the
// live-session core needs from them. The Postgres implementation lives in the
// postgres subpackage; tests use the in-memory one from storetest.
package store

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var ErrNotFound = errors.New("record not found")

// PersistenceError wraps a failed durable-store call. The in-progress
// transition that triggered it is aborted and in-memory state rolled back, so
// the operator can retry.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure in %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func WrapPersistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

type SessionStatus string

const (
	StatusActive    SessionStatus = "active"
	StatusCompleted SessionStatus = "completed"
	StatusAbandoned SessionStatus = "abandoned"
)

// StringList is a player-name list stored as a JSON column.
type StringList []string

func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		l = StringList{}
	}
	return json.Marshal(l)
}

func (l *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = StringList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into StringList", src)
	}
}

// LiveSession is the in-progress session row. At most one row is active at a
// time; that row is the single-writer lock for the live state.
type LiveSession struct {
	ID        string        `gorm:"primaryKey" json:"id"`
	Date      string        `json:"date"`
	Location  string        `json:"location,omitempty"`
	Status    SessionStatus `json:"status"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   *time.Time    `json:"ended_at,omitempty"`
}

func (LiveSession) TableName() string { return "live_sessions" }

// SessionPlayer carries a player's running totals for one live session. The
// ledger is the source of truth; these rows are a read cache the rest of the
// app consumes and resume heals.
type SessionPlayer struct {
	SessionID   string `gorm:"column:live_session_id;primaryKey" json:"live_session_id"`
	PlayerName  string `gorm:"primaryKey" json:"player_name"`
	GamesPlayed int    `gorm:"column:total_games_played" json:"total_games_played"`
	GamesWon    int    `gorm:"column:total_games_won" json:"total_games_won"`
	Notes       string `json:"notes,omitempty"`
}

func (SessionPlayer) TableName() string { return "live_session_players" }

// Game is one completed game row, keyed by session and gapless game number.
type Game struct {
	SessionID  string     `gorm:"column:live_session_id;primaryKey" json:"live_session_id"`
	GameNumber int        `gorm:"primaryKey" json:"game_number"`
	TeamA      StringList `gorm:"column:team_a_players;type:jsonb" json:"team_a_players"`
	TeamB      StringList `gorm:"column:team_b_players;type:jsonb" json:"team_b_players"`
	Bench      StringList `gorm:"column:sitting_out_players;type:jsonb" json:"sitting_out_players"`
	Winner     string     `gorm:"column:winning_team" json:"winning_team"`
}

func (Game) TableName() string { return "games" }

// FinalizedPlayer is one player's line inside a finalized session aggregate.
type FinalizedPlayer struct {
	Name        string `json:"name"`
	GamesPlayed int    `json:"gamesPlayed"`
	GamesWon    int    `json:"gamesWon"`
	Notes       string `json:"notes"`
}

// FinalizedPlayerList is stored as a JSON column on the aggregate row.
type FinalizedPlayerList []FinalizedPlayer

func (l FinalizedPlayerList) Value() (driver.Value, error) {
	if l == nil {
		l = FinalizedPlayerList{}
	}
	return json.Marshal(l)
}

func (l *FinalizedPlayerList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*l = FinalizedPlayerList{}
		return nil
	case []byte:
		return json.Unmarshal(v, l)
	case string:
		return json.Unmarshal([]byte(v), l)
	default:
		return fmt.Errorf("cannot scan %T into FinalizedPlayerList", src)
	}
}

// FinalizedSession is the one-row-per-session aggregate the stats screens
// read, independent of per-game detail.
type FinalizedSession struct {
	ID              uint                `gorm:"primaryKey;autoIncrement" json:"id"`
	LiveSessionID   string              `json:"live_session_id"`
	Date            string              `json:"date"`
	Location        string              `json:"location,omitempty"`
	Players         FinalizedPlayerList `gorm:"type:jsonb" json:"players"`
	DurationSeconds int                 `json:"duration_seconds"`
	CreatedAt       time.Time           `json:"created_at"`
}

func (FinalizedSession) TableName() string { return "sessions" }

// Player is the roster-wide player registry row behind the admin screens.
type Player struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex" json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

func (Player) TableName() string { return "players" }

// Location is a place sessions happen at.
type Location struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex" json:"name"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (Location) TableName() string { return "locations" }

// Store is the durable record store behind the live-session core and the
// admin CRUD screens.
type Store interface {
	CreateLiveSession(ctx context.Context, s *LiveSession) error
	UpdateLiveSession(ctx context.Context, s *LiveSession) error
	GetLiveSession(ctx context.Context, id string) (*LiveSession, error)
	ActiveLiveSession(ctx context.Context) (*LiveSession, error)

	InsertSessionPlayers(ctx context.Context, rows []SessionPlayer) error
	UpsertSessionPlayers(ctx context.Context, rows []SessionPlayer) error
	ListSessionPlayers(ctx context.Context, sessionID string) ([]SessionPlayer, error)

	InsertGame(ctx context.Context, g *Game) error
	DeleteGame(ctx context.Context, sessionID string, gameNumber int) error
	ListGames(ctx context.Context, sessionID string) ([]Game, error)

	InsertFinalizedSession(ctx context.Context, s *FinalizedSession) error
	DeleteFinalizedSession(ctx context.Context, id uint) error
	ListFinalizedSessions(ctx context.Context) ([]FinalizedSession, error)

	CreatePlayer(ctx context.Context, p *Player) error
	ListPlayers(ctx context.Context) ([]Player, error)
	DeletePlayer(ctx context.Context, id string) error

	CreateLocation(ctx context.Context, l *Location) error
	ListLocations(ctx context.Context) ([]Location, error)
	UpdateLocation(ctx context.Context, l *Location) error
	DeleteLocation(ctx context.Context, id string) error
}
