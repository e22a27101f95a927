package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestMatch(mode Mode, difficulty Difficulty) *Match {
	hub := testHub()
	return hub.registry.create(mode, difficulty)
}

func TestJoinAssignsMarksInOrder(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	p1, err := m.joinAsync("alice", "Alice")
	require.NoError(t, err)
	require.Equal(t, MarkX, p1.Mark)
	require.Equal(t, RolePlayer, p1.Role)

	p2, err := m.joinAsync("bob", "Bob")
	require.NoError(t, err)
	require.Equal(t, MarkO, p2.Mark)
	require.Equal(t, RolePlayer, p2.Role)
}

func TestJoinThirdParticipantBecomesWatcher(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")
	p3, err := m.joinAsync("carol", "Carol")
	require.NoError(t, err)
	require.Equal(t, RoleWatcher, p3.Role)
}

func TestJoinIsIdempotentPerUser(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	first, err := m.joinAsync("alice", "Alice")
	require.NoError(t, err)
	second, err := m.joinAsync("alice", "Someone Else")
	require.NoError(t, err)
	require.Equal(t, first.Mark, second.Mark)
	require.Equal(t, "Alice", second.DisplayName, "re-join returns the original participant unchanged")
}

func TestJoinHumanVsComputerSeatsSyntheticOpponent(t *testing.T) {
	m := newTestMatch(ModeHumanVsComputer, DifficultyEasy)
	human, err := m.joinAsync("alice", "Alice")
	require.NoError(t, err)
	require.Equal(t, MarkX, human.Mark)

	var computer *Participant
	m.call(func(mm *Match) {
		computer, _ = mm.computerParticipant()
	})
	require.NotNil(t, computer)
	require.True(t, computer.IsComputer)
	require.Equal(t, MarkO, computer.Mark)
}

func TestMakeMoveRejectsWrongTurn(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")

	var err error
	m.call(func(mm *Match) {
		err = mm.makeMove(Move{PlayerID: "bob", GlobalBoardIdx: 0, LocalBoardIdx: 0})
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMakeMoveRejectsWatcherMove(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")
	m.joinAsync("carol", "Carol")

	var err error
	m.call(func(mm *Match) {
		err = mm.makeMove(Move{PlayerID: "carol", GlobalBoardIdx: 0, LocalBoardIdx: 0})
	})
	require.ErrorIs(t, err, ErrForbidden)
}

func TestMakeMoveAppliesAndAdvancesTurn(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")

	var err error
	m.call(func(mm *Match) {
		err = mm.makeMove(Move{PlayerID: "alice", GlobalBoardIdx: 4, LocalBoardIdx: 4})
	})
	require.NoError(t, err)

	var moveCount int
	var active int
	m.call(func(mm *Match) {
		moveCount = mm.MoveCount
		active = mm.ActiveBoard
	})
	require.Equal(t, 1, moveCount)
	require.Equal(t, 4, active)
}

func TestResetOnlyAllowedByPlayer(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")
	m.joinAsync("carol", "Carol")

	var err error
	m.call(func(mm *Match) { err = mm.reset("carol") })
	require.ErrorIs(t, err, ErrForbidden)
}

func TestResetClearsBoardAndHistory(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")
	m.call(func(mm *Match) {
		mm.makeMove(Move{PlayerID: "alice", GlobalBoardIdx: 0, LocalBoardIdx: 0})
	})

	var err error
	m.call(func(mm *Match) { err = mm.reset("alice") })
	require.NoError(t, err)

	var moveCount int
	var historyLen int
	m.call(func(mm *Match) {
		moveCount = mm.MoveCount
		historyLen = len(mm.history)
	})
	require.Equal(t, 0, moveCount)
	require.Equal(t, 0, historyLen)
}

// TestGameReachesTerminalWinnerThroughMakeMove pins S1: driving a game
// through make_move to a meta-board win leaves Winner set and ActiveBoard
// relaxed to "any" (the wire schema's active_board == null), exercising the
// early-clinch branch of metaWinner along the way since X's fifth
// sub-board win outpaces what O could still reach.
func TestGameReachesTerminalWinnerThroughMakeMove(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")

	m.call(func(mm *Match) {
		for b := 0; b < 4; b++ {
			for c := range mm.Meta[b].Cells {
				mm.Meta[b].Cells[c] = MarkX
			}
			mm.Meta[b].Winner = MarkX
		}
		mm.ActiveBoard = 4
		mm.CurrentMark = MarkX
	})

	moves := []Move{
		{PlayerID: "alice", GlobalBoardIdx: 4, LocalBoardIdx: 0},
		{PlayerID: "bob", GlobalBoardIdx: 5, LocalBoardIdx: 0},
		{PlayerID: "alice", GlobalBoardIdx: 4, LocalBoardIdx: 1},
		{PlayerID: "bob", GlobalBoardIdx: 6, LocalBoardIdx: 1},
		{PlayerID: "alice", GlobalBoardIdx: 4, LocalBoardIdx: 2},
	}
	for _, mv := range moves {
		var err error
		m.call(func(mm *Match) { err = mm.makeMove(mv) })
		require.NoError(t, err)
	}

	var winner PlayerMark
	var active int
	m.call(func(mm *Match) {
		winner = mm.Winner
		active = mm.ActiveBoard
	})
	require.Equal(t, MarkX, winner)
	require.Equal(t, activeAny, active)
}

// TestResetSecondConcurrentCallGetsConflict pins S5: of two near-simultaneous
// reset requests, exactly one succeeds and the other is rejected. The
// second call lands on the match's executor before the first reset's
// settle timer clears resetInProgress, so it observes the flag still set.
func TestResetSecondConcurrentCallGetsConflict(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")

	var first, second, third error
	m.call(func(mm *Match) { first = mm.reset("alice") })
	require.NoError(t, first)

	m.call(func(mm *Match) { second = mm.reset("alice") })
	require.ErrorIs(t, second, ErrConflict)

	time.Sleep(m.hub.cfg.ResetSettleDelay + 50*time.Millisecond)

	m.call(func(mm *Match) { third = mm.reset("alice") })
	require.NoError(t, third, "once the first reset has settled, a new reset is allowed again")
}

func TestLeaveRemovesParticipantAndDecrementsWatchers(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")
	m.joinAsync("carol", "Carol")

	m.call(func(mm *Match) { mm.leave("carol") })

	var count int
	var watchers int
	m.call(func(mm *Match) {
		count = len(mm.participants)
		watchers = mm.watcherCount
	})
	require.Equal(t, 2, count)
	require.Equal(t, 0, watchers)
}

// TestMatchCallSerializesConcurrentCallers exercises the actor invariant:
// many goroutines racing joinAsync for distinct ids never corrupt join
// order or hand out duplicate marks.
func TestMatchCallSerializesConcurrentCallers(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	done := make(chan struct{}, 2)
	go func() {
		m.joinAsync("alice", "Alice")
		done <- struct{}{}
	}()
	go func() {
		m.joinAsync("bob", "Bob")
		done <- struct{}{}
	}()
	<-done
	<-done

	var marks []PlayerMark
	m.call(func(mm *Match) {
		for _, p := range mm.orderedParticipants() {
			marks = append(marks, p.Mark)
		}
	})
	require.ElementsMatch(t, []PlayerMark{MarkX, MarkO}, marks)
}

func TestWatcherCountTracksJoinAndLeave(t *testing.T) {
	m := newTestMatch(ModeHumanVsHuman, "")
	m.joinAsync("alice", "Alice")
	m.joinAsync("bob", "Bob")
	m.joinAsync("carol", "Carol")
	m.joinAsync("dave", "Dave")

	var watchers int
	m.call(func(mm *Match) { watchers = mm.watcherCount })
	require.Equal(t, 2, watchers)

	m.call(func(mm *Match) { mm.leave("carol") })
	m.call(func(mm *Match) { watchers = mm.watcherCount })
	require.Equal(t, 1, watchers)
}
