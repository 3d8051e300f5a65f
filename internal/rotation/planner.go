// Package rotation implements the post-game roster rotation rule: the losing
// team partially swaps members with the bench while the winning team stays
// intact. The operator picks who stays and who rotates in; the planner
// validates every step and emits the next roster only on confirmation.
package rotation

import (
	"errors"
	"slices"

	"github.com/hoopday/pickup-stats-backend/internal/roster"
)

var (
	ErrTooManyStayers    = errors.New("too many stayers selected")
	ErrNeedStayers       = errors.New("at least one stayer required")
	ErrWrongJoinerCount  = errors.New("joiner selection does not match the open spots")
	ErrInsufficientBench = errors.New("bench cannot fill the open spots")
	ErrWrongPhase        = errors.New("action not valid in current planner phase")
	ErrNotOnLosingTeam   = errors.New("stayer is not on the losing team")
	ErrNotOnBench        = errors.New("joiner is not on the bench")
)

type Phase string

const (
	PhaseAwaitingStayers Phase = "awaiting_stayers"
	PhaseAwaitingJoiners Phase = "awaiting_joiners"
	PhaseConfirmed       Phase = "confirmed"
)

// Planner walks one rotation decision through
// AwaitingStayers -> AwaitingJoiners -> Confirmed. A fresh planner is created
// after every completed game; it never outlives one decision.
type Planner struct {
	phase  Phase
	losing roster.Team
	prior  roster.State

	stayers []string
	joiners []string

	// fullRotate is the everyone-sits branch: legal only when the bench alone
	// can field the whole next team, in which case the stayer set is empty and
	// the joiner requirement is the full winning-team size.
	fullRotate bool
}

// NewPlanner opens a rotation decision for the team that just lost. With an
// empty bench there is nothing to decide, so the planner starts confirmed and
// the same ten run it back.
func NewPlanner(state roster.State, losing roster.Team) *Planner {
	p := &Planner{
		phase:  PhaseAwaitingStayers,
		losing: losing,
		prior:  state,
	}
	if len(state.Bench) == 0 {
		p.phase = PhaseConfirmed
	}
	return p
}

func (p *Planner) Phase() Phase        { return p.phase }
func (p *Planner) Losing() roster.Team { return p.losing }

func (p *Planner) winnerSize() int {
	return len(p.prior.TeamPlayers(p.losing.Opponent()))
}

// Need reports how many bench players must still be selected before the
// decision can confirm.
func (p *Planner) Need() int {
	var target int
	switch {
	case p.phase == PhaseConfirmed && len(p.stayers) == 0 && !p.fullRotate:
		return 0
	case p.fullRotate:
		target = p.winnerSize()
	default:
		target = p.winnerSize() - len(p.stayers)
	}
	if n := target - len(p.joiners); n > 0 {
		return n
	}
	return 0
}

// SelectStayers fixes the subset of the losing team that keeps its spot. An
// empty selection is only legal when the bench alone can field the whole next
// team; that switches the planner into full-rotation mode.
func (p *Planner) SelectStayers(names []string) error {
	if p.phase != PhaseAwaitingStayers {
		return ErrWrongPhase
	}

	losingTeam := p.prior.TeamPlayers(p.losing)
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !slices.Contains(losingTeam, name) {
			return ErrNotOnLosingTeam
		}
		if seen[name] {
			return ErrTooManyStayers
		}
		seen[name] = true
	}

	w := p.winnerSize()
	b := len(p.prior.Bench)

	if len(names) == 0 {
		if w-b > 0 {
			return ErrNeedStayers
		}
		p.fullRotate = true
		p.stayers = nil
		p.phase = PhaseAwaitingJoiners
		return nil
	}

	if len(names) > w {
		return ErrTooManyStayers
	}
	if w-len(names) > b {
		return ErrInsufficientBench
	}

	p.fullRotate = false
	p.stayers = slices.Clone(names)
	p.phase = PhaseAwaitingJoiners
	return nil
}

// SelectJoiners records the bench players rotating in. Under-selection is
// allowed mid-flow (the operator may still be picking); Confirm enforces the
// exact count. Over-selection is rejected immediately.
func (p *Planner) SelectJoiners(names []string) error {
	if p.phase != PhaseAwaitingJoiners {
		return ErrWrongPhase
	}
	seen := make(map[string]bool, len(names))
	for _, name := range names {
		if !slices.Contains(p.prior.Bench, name) {
			return ErrNotOnBench
		}
		if seen[name] {
			return ErrWrongJoinerCount
		}
		seen[name] = true
	}

	target := p.winnerSize() - len(p.stayers)
	if p.fullRotate {
		target = p.winnerSize()
	}
	if len(names) > target {
		return ErrWrongJoinerCount
	}

	p.joiners = slices.Clone(names)
	return nil
}

// Confirm finalizes the decision and returns the next roster. The winning
// team is untouched; the new losing-team roster is stayers plus joiners and
// everyone displaced lands on the bench.
func (p *Planner) Confirm() (roster.State, error) {
	switch p.phase {
	case PhaseConfirmed:
		// Empty-bench short circuit: same teams replay.
		return p.prior, nil
	case PhaseAwaitingJoiners:
	default:
		return roster.State{}, ErrWrongPhase
	}

	if p.Need() != 0 {
		return roster.State{}, ErrWrongJoinerCount
	}

	newLosing := slices.Clone(p.joiners)
	if !p.fullRotate {
		newLosing = append(slices.Clone(p.stayers), p.joiners...)
	}

	newBench := make([]string, 0, len(p.prior.Bench))
	for _, name := range p.prior.Bench {
		if !slices.Contains(p.joiners, name) {
			newBench = append(newBench, name)
		}
	}
	for _, name := range p.prior.TeamPlayers(p.losing) {
		if !slices.Contains(p.stayers, name) {
			newBench = append(newBench, name)
		}
	}

	var next roster.State
	var err error
	if p.losing == roster.TeamA {
		next, err = p.prior.SetTeams(newLosing, p.prior.TeamB, newBench)
	} else {
		next, err = p.prior.SetTeams(p.prior.TeamA, newLosing, newBench)
	}
	if err != nil {
		return roster.State{}, err
	}

	p.phase = PhaseConfirmed
	return next, nil
}
