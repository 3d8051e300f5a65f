// Package postgres implements the durable record store on Postgres via gorm.
package postgres

import (
	"context"
	"errors"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/hoopday/pickup-stats-backend/internal/store"
)

type Store struct {
	db *gorm.DB
}

// Open connects to Postgres and migrates the schema.
func Open(dsn string) (*Store, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return New(db)
}

// New wraps an existing gorm handle (tests inject a sqlmock-backed one).
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(
		&store.LiveSession{},
		&store.SessionPlayer{},
		&store.Game{},
		&store.FinalizedSession{},
		&store.Player{},
		&store.Location{},
	); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewWithoutMigrate wraps a gorm handle without touching the schema.
func NewWithoutMigrate(db *gorm.DB) *Store {
	return &Store{db: db}
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.ErrNotFound
	}
	return store.WrapPersistence(op, err)
}

func (s *Store) CreateLiveSession(ctx context.Context, row *store.LiveSession) error {
	return wrap("create live session", s.db.WithContext(ctx).Create(row).Error)
}

func (s *Store) UpdateLiveSession(ctx context.Context, row *store.LiveSession) error {
	return wrap("update live session", s.db.WithContext(ctx).Save(row).Error)
}

func (s *Store) GetLiveSession(ctx context.Context, id string) (*store.LiveSession, error) {
	var row store.LiveSession
	err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error
	if err != nil {
		return nil, wrap("get live session", err)
	}
	return &row, nil
}

func (s *Store) ActiveLiveSession(ctx context.Context) (*store.LiveSession, error) {
	var row store.LiveSession
	err := s.db.WithContext(ctx).
		Where("status = ?", store.StatusActive).
		Order("started_at DESC").
		First(&row).Error
	if err != nil {
		return nil, wrap("active live session", err)
	}
	return &row, nil
}

func (s *Store) InsertSessionPlayers(ctx context.Context, rows []store.SessionPlayer) error {
	if len(rows) == 0 {
		return nil
	}
	return wrap("insert session players", s.db.WithContext(ctx).Create(&rows).Error)
}

func (s *Store) UpsertSessionPlayers(ctx context.Context, rows []store.SessionPlayer) error {
	if len(rows) == 0 {
		return nil
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "live_session_id"}, {Name: "player_name"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_games_played", "total_games_won",
		}),
	}).Create(&rows).Error
	return wrap("upsert session players", err)
}

func (s *Store) ListSessionPlayers(ctx context.Context, sessionID string) ([]store.SessionPlayer, error) {
	var rows []store.SessionPlayer
	err := s.db.WithContext(ctx).
		Where("live_session_id = ?", sessionID).
		Order("player_name ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap("list session players", err)
	}
	return rows, nil
}

func (s *Store) InsertGame(ctx context.Context, g *store.Game) error {
	return wrap("insert game", s.db.WithContext(ctx).Create(g).Error)
}

func (s *Store) DeleteGame(ctx context.Context, sessionID string, gameNumber int) error {
	err := s.db.WithContext(ctx).
		Where("live_session_id = ? AND game_number = ?", sessionID, gameNumber).
		Delete(&store.Game{}).Error
	return wrap("delete game", err)
}

func (s *Store) ListGames(ctx context.Context, sessionID string) ([]store.Game, error) {
	var rows []store.Game
	err := s.db.WithContext(ctx).
		Where("live_session_id = ?", sessionID).
		Order("game_number ASC").
		Find(&rows).Error
	if err != nil {
		return nil, wrap("list games", err)
	}
	return rows, nil
}

func (s *Store) InsertFinalizedSession(ctx context.Context, row *store.FinalizedSession) error {
	return wrap("insert finalized session", s.db.WithContext(ctx).Create(row).Error)
}

func (s *Store) DeleteFinalizedSession(ctx context.Context, id uint) error {
	err := s.db.WithContext(ctx).Delete(&store.FinalizedSession{}, "id = ?", id).Error
	return wrap("delete finalized session", err)
}

func (s *Store) ListFinalizedSessions(ctx context.Context) ([]store.FinalizedSession, error) {
	var rows []store.FinalizedSession
	err := s.db.WithContext(ctx).Order("date ASC").Find(&rows).Error
	if err != nil {
		return nil, wrap("list finalized sessions", err)
	}
	return rows, nil
}

func (s *Store) CreatePlayer(ctx context.Context, p *store.Player) error {
	return wrap("create player", s.db.WithContext(ctx).Create(p).Error)
}

func (s *Store) ListPlayers(ctx context.Context) ([]store.Player, error) {
	var rows []store.Player
	err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	if err != nil {
		return nil, wrap("list players", err)
	}
	return rows, nil
}

func (s *Store) DeletePlayer(ctx context.Context, id string) error {
	return wrap("delete player", s.db.WithContext(ctx).Delete(&store.Player{}, "id = ?", id).Error)
}

func (s *Store) CreateLocation(ctx context.Context, l *store.Location) error {
	return wrap("create location", s.db.WithContext(ctx).Create(l).Error)
}

func (s *Store) ListLocations(ctx context.Context) ([]store.Location, error) {
	var rows []store.Location
	err := s.db.WithContext(ctx).Order("name ASC").Find(&rows).Error
	if err != nil {
		return nil, wrap("list locations", err)
	}
	return rows, nil
}

func (s *Store) UpdateLocation(ctx context.Context, l *store.Location) error {
	return wrap("update location", s.db.WithContext(ctx).Save(l).Error)
}

func (s *Store) DeleteLocation(ctx context.Context, id string) error {
	return wrap("delete location", s.db.WithContext(ctx).Delete(&store.Location{}, "id = ?", id).Error)
}
