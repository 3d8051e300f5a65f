// Package session orchestrates one live session: lifecycle, game reporting,
// rotation, undo, and crash recovery. A Controller is the single writer for
// its session's state; the durable store enforces that at most one session is
// active at a time.
package session

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hoopday/pickup-stats-backend/internal/ledger"
	"github.com/hoopday/pickup-stats-backend/internal/roster"
	"github.com/hoopday/pickup-stats-backend/internal/rotation"
	"github.com/hoopday/pickup-stats-backend/internal/snapshot"
	"github.com/hoopday/pickup-stats-backend/internal/store"
)

var (
	ErrAlreadyStarted    = errors.New("controller already owns a session")
	ErrTooFewPlayers     = errors.New("a live session needs at least 4 players")
	ErrDuplicatePlayer   = errors.New("player name already in session")
	ErrStaleSession      = errors.New("session is stale and was abandoned")
	ErrNotActive         = errors.New("session is not active")
	ErrNoPendingRotation = errors.New("no rotation decision in progress")
)

const (
	MinPlayers        = 4
	DefaultStaleAfter = 24 * time.Hour
)

type Controller struct {
	store store.Store
	snaps snapshot.Store
	log   *zap.Logger

	now        func() time.Time
	staleAfter time.Duration

	sess    *store.LiveSession
	roster  roster.State
	ledger  *ledger.Ledger
	planner *rotation.Planner
}

type Option func(*Controller)

// WithClock overrides time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// WithStaleAfter overrides the window after which a still-active session is
// presumed abandoned.
func WithStaleAfter(d time.Duration) Option {
	return func(c *Controller) { c.staleAfter = d }
}

func New(st store.Store, snaps snapshot.Store, log *zap.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:      st,
		snaps:      snaps,
		log:        log.Named("session"),
		now:        time.Now,
		staleAfter: DefaultStaleAfter,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result names the two sides after a reported game.
type Result struct {
	Winner roster.Team `json:"winner"`
	Loser  roster.Team `json:"loser"`
}

// Start creates a new active session with every player on the bench.
func (c *Controller) Start(ctx context.Context, date, location string, players []string) (*store.LiveSession, error) {
	if c.sess != nil {
		return nil, ErrAlreadyStarted
	}
	if len(players) < MinPlayers {
		return nil, ErrTooFewPlayers
	}
	seen := make(map[string]bool, len(players))
	for _, name := range players {
		if seen[name] {
			return nil, ErrDuplicatePlayer
		}
		seen[name] = true
	}

	now := c.now()
	sess := &store.LiveSession{
		ID:        uuid.NewString(),
		Date:      date,
		Location:  location,
		Status:    store.StatusActive,
		StartedAt: now,
	}
	if err := c.store.CreateLiveSession(ctx, sess); err != nil {
		return nil, err
	}

	rows := make([]store.SessionPlayer, 0, len(players))
	for _, name := range players {
		rows = append(rows, store.SessionPlayer{SessionID: sess.ID, PlayerName: name})
	}
	if err := c.store.InsertSessionPlayers(ctx, rows); err != nil {
		// The session row exists but has no players; abandon it so it
		// cannot be resumed half-seeded.
		sess.Status = store.StatusAbandoned
		if abErr := c.store.UpdateLiveSession(ctx, sess); abErr != nil {
			c.log.Error("abandoning half-seeded session failed", zap.Error(abErr))
		}
		return nil, err
	}

	c.sess = sess
	c.roster = roster.Initialize(players)
	c.ledger = ledger.New(players)
	c.planner = nil
	c.writeBackup()

	c.log.Info("session started",
		zap.String("session_id", sess.ID),
		zap.Int("players", len(players)))
	return sess, nil
}

// Resume rebuilds controller state from the durable store: the full game
// history is replayed and per-player totals are derived from it, healing any
// partial writes a crash left behind. Stale sessions are flipped to abandoned
// instead of loaded.
func (c *Controller) Resume(ctx context.Context, sessionID string) error {
	if c.sess != nil {
		return ErrAlreadyStarted
	}

	sess, err := c.store.GetLiveSession(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess.Status != store.StatusActive {
		return ErrNotActive
	}
	if sess.StartedAt.IsZero() || c.now().Sub(sess.StartedAt) > c.staleAfter {
		sess.Status = store.StatusAbandoned
		if abErr := c.store.UpdateLiveSession(ctx, sess); abErr != nil {
			c.log.Error("abandoning stale session failed", zap.Error(abErr))
		}
		return ErrStaleSession
	}

	rows, err := c.store.ListSessionPlayers(ctx, sessionID)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.PlayerName)
	}

	gameRows, err := c.store.ListGames(ctx, sessionID)
	if err != nil {
		return err
	}
	records := make([]ledger.Record, 0, len(gameRows))
	for _, g := range gameRows {
		winner, ok := roster.ParseTeam(g.Winner)
		if !ok {
			return roster.ErrInvariantViolation
		}
		records = append(records, ledger.Record{
			GameNumber: g.GameNumber,
			TeamA:      g.TeamA,
			TeamB:      g.TeamB,
			Bench:      g.Bench,
			Winner:     winner,
		})
	}
	led := ledger.Rebuild(names, records)

	state, err := rosterFromHistory(names, led)
	if err != nil {
		return err
	}

	c.healTotals(ctx, sessionID, rows, led)

	c.sess = sess
	c.roster = state
	c.ledger = led
	c.planner = nil
	c.writeBackup()

	c.log.Info("session resumed",
		zap.String("session_id", sess.ID),
		zap.Int("games", led.Len()))
	return nil
}

// healTotals re-derives the cached per-player rows from the ledger and
// rewrites any that drifted, e.g. after a crash between a game insert and its
// totals upsert. Best effort: resume proceeds either way.
func (c *Controller) healTotals(ctx context.Context, sessionID string, rows []store.SessionPlayer, led *ledger.Ledger) {
	totals := led.Totals()
	var drifted []store.SessionPlayer
	for _, row := range rows {
		t := totals[row.PlayerName]
		if row.GamesPlayed != t.GamesPlayed || row.GamesWon != t.GamesWon {
			row.GamesPlayed = t.GamesPlayed
			row.GamesWon = t.GamesWon
			drifted = append(drifted, row)
		}
	}
	if len(drifted) == 0 {
		return
	}
	if err := c.store.UpsertSessionPlayers(ctx, drifted); err != nil {
		c.log.Warn("healing drifted totals failed", zap.Error(err))
		return
	}
	c.log.Info("healed drifted player totals",
		zap.String("session_id", sessionID),
		zap.Int("rows", len(drifted)))
}

// SetTeams applies an operator-drawn roster (initial setup, quick roster, or
// a redraw after Reshoot). Any in-flight rotation decision is discarded.
func (c *Controller) SetTeams(teamA, teamB, bench []string) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	state, err := c.roster.SetTeams(teamA, teamB, bench)
	if err != nil {
		return err
	}
	c.roster = state
	c.planner = nil
	c.writeBackup()
	return nil
}

// AddPlayer admits a late arrival onto the bench with zero totals.
func (c *Controller) AddPlayer(ctx context.Context, name string) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if slices.Contains(c.roster.Players(), name) {
		return ErrDuplicatePlayer
	}

	row := store.SessionPlayer{SessionID: c.sess.ID, PlayerName: name}
	if err := c.store.InsertSessionPlayers(ctx, []store.SessionPlayer{row}); err != nil {
		return err
	}

	state, err := c.roster.AddPlayer(name)
	if err != nil {
		return err
	}
	c.roster = state
	if err := c.ledger.AddPlayer(name); err != nil {
		return err
	}
	c.writeBackup()
	return nil
}

// ReportWinner records a completed game. The game row and the totals cache
// are durably written before any in-memory state changes; a crash after this
// call returns cannot lose the game.
func (c *Controller) ReportWinner(ctx context.Context, winner roster.Team) (Result, error) {
	if err := c.requireActive(); err != nil {
		return Result{}, err
	}
	if !c.roster.InProgress() {
		return Result{}, ledger.ErrGameNotLive
	}

	rec := ledger.Record{
		GameNumber: c.ledger.NextGameNumber(),
		TeamA:      c.roster.TeamPlayers(roster.TeamA),
		TeamB:      c.roster.TeamPlayers(roster.TeamB),
		Bench:      slices.Clone(c.roster.Bench),
		Winner:     winner,
	}

	if err := c.store.InsertGame(ctx, &store.Game{
		SessionID:  c.sess.ID,
		GameNumber: rec.GameNumber,
		TeamA:      store.StringList(rec.TeamA),
		TeamB:      store.StringList(rec.TeamB),
		Bench:      store.StringList(rec.Bench),
		Winner:     string(winner),
	}); err != nil {
		return Result{}, err
	}

	next := ledger.Rebuild(c.ledger.Players(), append(c.ledger.Records(), rec))
	if err := c.store.UpsertSessionPlayers(ctx, c.totalsRows(next, rec)); err != nil {
		// Put the durable store back where it was so the operator can retry
		// without double-recording the game.
		if delErr := c.store.DeleteGame(ctx, c.sess.ID, rec.GameNumber); delErr != nil {
			c.log.Error("rolling back game row failed", zap.Error(delErr))
		}
		return Result{}, err
	}

	if _, err := c.ledger.RecordGame(c.roster, winner); err != nil {
		return Result{}, err
	}
	loser := winner.Opponent()
	c.planner = rotation.NewPlanner(c.roster, loser)
	c.writeBackup()

	c.log.Info("game recorded",
		zap.String("session_id", c.sess.ID),
		zap.Int("game_number", rec.GameNumber),
		zap.String("winner", string(winner)))
	return Result{Winner: winner, Loser: loser}, nil
}

// totalsRows converts ledger-derived totals into the cache rows for the
// players the given record touched.
func (c *Controller) totalsRows(led *ledger.Ledger, rec ledger.Record) []store.SessionPlayer {
	totals := led.Totals()
	names := append(slices.Clone(rec.TeamA), rec.TeamB...)
	rows := make([]store.SessionPlayer, 0, len(names))
	for _, name := range names {
		t := totals[name]
		rows = append(rows, store.SessionPlayer{
			SessionID:   c.sess.ID,
			PlayerName:  name,
			GamesPlayed: t.GamesPlayed,
			GamesWon:    t.GamesWon,
		})
	}
	return rows
}

// SelectStayers forwards the operator's stay selection to the pending
// rotation decision.
func (c *Controller) SelectStayers(names []string) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if c.planner == nil {
		return ErrNoPendingRotation
	}
	return c.planner.SelectStayers(names)
}

// SelectJoiners forwards the operator's bench selection.
func (c *Controller) SelectJoiners(names []string) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if c.planner == nil {
		return ErrNoPendingRotation
	}
	return c.planner.SelectJoiners(names)
}

// ConfirmRotation applies the pending decision and replaces the roster. The
// new roster is checkpointed into the local snapshot but not persisted
// durably; it becomes durable with the next game record.
func (c *Controller) ConfirmRotation() error {
	if err := c.requireActive(); err != nil {
		return err
	}
	if c.planner == nil {
		return ErrNoPendingRotation
	}
	state, err := c.planner.Confirm()
	if err != nil {
		return err
	}
	c.roster = state
	c.planner = nil
	c.writeBackup()
	return nil
}

// Reshoot abandons any in-flight rotation decision and reopens full team
// selection: everyone returns to the bench for a redraw via SetTeams.
func (c *Controller) Reshoot() error {
	if err := c.requireActive(); err != nil {
		return err
	}
	c.roster = roster.Initialize(c.roster.Players())
	c.planner = nil
	c.writeBackup()
	return nil
}

// Undo deletes the most recent game, reverses exactly the totals it caused,
// and restores the roster in effect before it.
func (c *Controller) Undo(ctx context.Context) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	last, ok := c.ledger.Last()
	if !ok {
		return ledger.ErrEmptyLedger
	}

	if err := c.store.DeleteGame(ctx, c.sess.ID, last.GameNumber); err != nil {
		return err
	}

	records := c.ledger.Records()
	reverted := ledger.Rebuild(c.ledger.Players(), records[:len(records)-1])
	if err := c.store.UpsertSessionPlayers(ctx, c.totalsRows(reverted, last)); err != nil {
		if insErr := c.store.InsertGame(ctx, &store.Game{
			SessionID:  c.sess.ID,
			GameNumber: last.GameNumber,
			TeamA:      store.StringList(last.TeamA),
			TeamB:      store.StringList(last.TeamB),
			Bench:      store.StringList(last.Bench),
			Winner:     string(last.Winner),
		}); insErr != nil {
			c.log.Error("restoring undone game row failed", zap.Error(insErr))
		}
		return err
	}

	if _, err := c.ledger.UndoLast(); err != nil {
		return err
	}
	state, err := rosterFromHistory(c.ledger.Players(), c.ledger)
	if err != nil {
		return err
	}
	c.roster = state
	c.planner = nil
	c.writeBackup()

	c.log.Info("game undone",
		zap.String("session_id", c.sess.ID),
		zap.Int("game_number", last.GameNumber))
	return nil
}

// End marks the session completed, persists the finalized aggregate the rest
// of the app consumes, and clears the local snapshot.
func (c *Controller) End(ctx context.Context) (*store.FinalizedSession, error) {
	if err := c.requireActive(); err != nil {
		return nil, err
	}

	now := c.now()
	rows, err := c.store.ListSessionPlayers(ctx, c.sess.ID)
	if err != nil {
		return nil, err
	}
	notes := make(map[string]string, len(rows))
	for _, row := range rows {
		notes[row.PlayerName] = row.Notes
	}

	totals := c.ledger.Totals()
	players := make(store.FinalizedPlayerList, 0, len(totals))
	for _, name := range c.ledger.Players() {
		t := totals[name]
		players = append(players, store.FinalizedPlayer{
			Name:        name,
			GamesPlayed: t.GamesPlayed,
			GamesWon:    t.GamesWon,
			Notes:       notes[name],
		})
	}

	agg := &store.FinalizedSession{
		LiveSessionID: c.sess.ID,
		Date:          c.sess.Date,
		Location:      c.sess.Location,
		Players:       players,
		CreatedAt:     now,
	}
	if !c.sess.StartedAt.IsZero() {
		agg.DurationSeconds = int(now.Sub(c.sess.StartedAt).Seconds())
	}

	// The aggregate goes in before the terminal status flip; a crash between
	// the two leaves the session active and retryable.
	if err := c.store.InsertFinalizedSession(ctx, agg); err != nil {
		return nil, err
	}

	updated := *c.sess
	updated.Status = store.StatusCompleted
	updated.EndedAt = &now
	if err := c.store.UpdateLiveSession(ctx, &updated); err != nil {
		// Take the aggregate back out so a retry can run the whole End again.
		if delErr := c.store.DeleteFinalizedSession(ctx, agg.ID); delErr != nil {
			c.log.Error("rolling back finalized aggregate failed", zap.Error(delErr))
		}
		return nil, err
	}

	if err := c.snaps.Clear(snapshot.LiveSessionKey); err != nil {
		c.log.Warn("clearing snapshot failed", zap.Error(err))
	}

	c.sess = &updated
	c.planner = nil
	c.log.Info("session completed",
		zap.String("session_id", updated.ID),
		zap.Int("games", c.ledger.Len()))
	return agg, nil
}

// Abandon discards the session: no aggregate is produced.
func (c *Controller) Abandon(ctx context.Context) error {
	if err := c.requireActive(); err != nil {
		return err
	}
	updated := *c.sess
	updated.Status = store.StatusAbandoned
	if err := c.store.UpdateLiveSession(ctx, &updated); err != nil {
		return err
	}
	if err := c.snaps.Clear(snapshot.LiveSessionKey); err != nil {
		c.log.Warn("clearing snapshot failed", zap.Error(err))
	}
	c.sess = &updated
	c.planner = nil
	c.log.Info("session abandoned", zap.String("session_id", updated.ID))
	return nil
}

func (c *Controller) requireActive() error {
	if c.sess == nil || c.sess.Status != store.StatusActive {
		return ErrNotActive
	}
	return nil
}

// Session returns a copy of the owned session row, or nil.
func (c *Controller) Session() *store.LiveSession {
	if c.sess == nil {
		return nil
	}
	s := *c.sess
	return &s
}

// rosterFromHistory rebuilds the roster from the last recorded game, or puts
// everyone on the bench when no games exist. Players missing from the record
// (late adds) land on the bench.
func rosterFromHistory(names []string, led *ledger.Ledger) (roster.State, error) {
	base := roster.Initialize(names)
	last, ok := led.Last()
	if !ok {
		return base, nil
	}
	bench := make([]string, 0, len(names))
	for _, name := range names {
		if !slices.Contains(last.TeamA, name) && !slices.Contains(last.TeamB, name) {
			bench = append(bench, name)
		}
	}
	return base.SetTeams(last.TeamA, last.TeamB, bench)
}
