package rotation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hoopday/pickup-stats-backend/internal/roster"
)

func state(t *testing.T, names, a, b, bench []string) roster.State {
	t.Helper()
	s, err := roster.Initialize(names).SetTeams(a, b, bench)
	require.NoError(t, err)
	return s
}

func TestEmptyBench_ShortCircuitsToConfirmed(t *testing.T) {
	s := state(t, []string{"ana", "ben", "cal", "dee"},
		[]string{"ana", "ben"}, []string{"cal", "dee"}, nil)

	p := NewPlanner(s, roster.TeamB)
	assert.Equal(t, PhaseConfirmed, p.Phase())

	next, err := p.Confirm()
	require.NoError(t, err)
	assert.Equal(t, s, next)
}

// The seven-player scenario: D,E,F lose to A,B,C with G on the bench. The
// operator keeps D and E, so G is the only possible joiner; F sits.
func TestNormalRotation(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	s := state(t, names, []string{"A", "B", "C"}, []string{"D", "E", "F"}, []string{"G"})

	p := NewPlanner(s, roster.TeamB)
	require.Equal(t, PhaseAwaitingStayers, p.Phase())

	require.NoError(t, p.SelectStayers([]string{"D", "E"}))
	assert.Equal(t, PhaseAwaitingJoiners, p.Phase())
	assert.Equal(t, 1, p.Need())

	require.NoError(t, p.SelectJoiners([]string{"G"}))
	assert.Equal(t, 0, p.Need())

	next, err := p.Confirm()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, next.TeamA)
	assert.Equal(t, []string{"D", "E", "G"}, next.TeamB)
	assert.Equal(t, []string{"F"}, next.Bench)
}

func TestRotation_LosingTeamA(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E"})

	p := NewPlanner(s, roster.TeamA)
	require.NoError(t, p.SelectStayers([]string{"B"}))
	require.NoError(t, p.SelectJoiners([]string{"E"}))

	next, err := p.Confirm()
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "E"}, next.TeamA)
	assert.Equal(t, []string{"C", "D"}, next.TeamB)
	assert.Equal(t, []string{"A"}, next.Bench)
}

func TestSelectStayers_Rejections(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E"})
	p := NewPlanner(s, roster.TeamB)

	// Empty selection is illegal while the bench cannot field a full team.
	assert.ErrorIs(t, p.SelectStayers(nil), ErrNeedStayers)
	// Repeated names never count as distinct stayers.
	assert.ErrorIs(t, p.SelectStayers([]string{"C", "C", "D"}), ErrTooManyStayers)
	// Winner-side player is not a legal stayer.
	assert.ErrorIs(t, p.SelectStayers([]string{"A"}), ErrNotOnLosingTeam)
}

func TestSelectStayers_DuplicateWithinBounds(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E"})
	p := NewPlanner(s, roster.TeamB)

	// Two copies of one stayer look like a full team to a bare count check;
	// the selection must still be rejected and the planner left re-promptable.
	assert.ErrorIs(t, p.SelectStayers([]string{"C", "C"}), ErrTooManyStayers)
	assert.Equal(t, PhaseAwaitingStayers, p.Phase())

	require.NoError(t, p.SelectStayers([]string{"C"}))
	require.NoError(t, p.SelectJoiners([]string{"E"}))
	next, err := p.Confirm()
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "E"}, next.TeamB)
}

func TestSelectJoiners_DuplicateWithinBounds(t *testing.T) {
	// Fully-rotate mode needs two joiners; the same bench player twice must
	// not satisfy it.
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E", "F", "G", "H"})
	p := NewPlanner(s, roster.TeamB)

	require.NoError(t, p.SelectStayers(nil))
	assert.ErrorIs(t, p.SelectJoiners([]string{"E", "E"}), ErrWrongJoinerCount)
	assert.Equal(t, 2, p.Need())

	require.NoError(t, p.SelectJoiners([]string{"E", "F"}))
	next, err := p.Confirm()
	require.NoError(t, err)
	assert.Equal(t, []string{"E", "F"}, next.TeamB)
}

func TestSelectStayers_FullTeamStays(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	// Keeping the whole losing team leaves zero spots to fill.
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E", "F", "G"})
	p := NewPlanner(s, roster.TeamB)

	err := p.SelectStayers([]string{"C", "D"})
	require.NoError(t, err) // full team stays: zero joiners needed
	assert.Equal(t, 0, p.Need())
}

func TestSelectStayers_InsufficientBench(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	s := state(t, names, []string{"A", "B", "C"}, []string{"D", "E", "F"}, []string{"G"})
	p := NewPlanner(s, roster.TeamB)

	// Keeping only D opens two spots but the bench has one player.
	assert.ErrorIs(t, p.SelectStayers([]string{"D"}), ErrInsufficientBench)
}

func TestFullyRotateMode(t *testing.T) {
	// Bench can field the entire next team: empty stayer set switches to
	// full rotation and the whole losing team sits.
	names := []string{"A", "B", "C", "D", "E", "F", "G", "H"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E", "F", "G", "H"})
	p := NewPlanner(s, roster.TeamB)

	require.NoError(t, p.SelectStayers(nil))
	assert.Equal(t, PhaseAwaitingJoiners, p.Phase())
	assert.Equal(t, 2, p.Need())

	require.NoError(t, p.SelectJoiners([]string{"E", "H"}))
	next, err := p.Confirm()
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, next.TeamA)
	assert.Equal(t, []string{"E", "H"}, next.TeamB)
	assert.ElementsMatch(t, []string{"F", "G", "C", "D"}, next.Bench)
}

func TestConfirm_WrongJoinerCount(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E", "F"})
	p := NewPlanner(s, roster.TeamB)

	require.NoError(t, p.SelectStayers([]string{"C"}))

	// Under-selection is tolerated mid-flow but blocks confirmation.
	require.NoError(t, p.SelectJoiners(nil))
	_, err := p.Confirm()
	assert.ErrorIs(t, err, ErrWrongJoinerCount)

	// Over-selection is rejected immediately.
	assert.ErrorIs(t, p.SelectJoiners([]string{"E", "F"}), ErrWrongJoinerCount)

	require.NoError(t, p.SelectJoiners([]string{"F"}))
	next, err := p.Confirm()
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "F"}, next.TeamB)
}

func TestSelectJoiners_MustComeFromBench(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E"})
	p := NewPlanner(s, roster.TeamB)

	require.NoError(t, p.SelectStayers([]string{"C"}))
	assert.ErrorIs(t, p.SelectJoiners([]string{"D"}), ErrNotOnBench)
}

func TestPhaseOrdering(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E"}
	s := state(t, names, []string{"A", "B"}, []string{"C", "D"}, []string{"E"})
	p := NewPlanner(s, roster.TeamB)

	assert.ErrorIs(t, p.SelectJoiners([]string{"E"}), ErrWrongPhase)
	_, err := p.Confirm()
	assert.ErrorIs(t, err, ErrWrongPhase)

	require.NoError(t, p.SelectStayers([]string{"C"}))
	assert.ErrorIs(t, p.SelectStayers([]string{"C"}), ErrWrongPhase)
}

// The planner must never confirm a roster with unequal team sizes.
func TestConfirmedTeamsAlwaysEqual(t *testing.T) {
	names := []string{"A", "B", "C", "D", "E", "F", "G"}
	s := state(t, names, []string{"A", "B", "C"}, []string{"D", "E", "F"}, []string{"G"})

	for _, stayers := range [][]string{{"D", "E"}, {"E", "F"}, {"D", "F"}} {
		p := NewPlanner(s, roster.TeamB)
		require.NoError(t, p.SelectStayers(stayers))
		require.NoError(t, p.SelectJoiners([]string{"G"}))
		next, err := p.Confirm()
		require.NoError(t, err)
		assert.Len(t, next.TeamB, len(next.TeamA))
	}
}
