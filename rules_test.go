package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func emptyMatch() *Match {
	return &Match{ActiveBoard: activeAny, CurrentMark: MarkX, participants: map[string]*Participant{}}
}

func TestLocalWinnerRow(t *testing.T) {
	lb := &LocalBoard{Cells: [9]PlayerMark{MarkX, MarkX, MarkX}}
	require.Equal(t, MarkX, localWinner(lb))
}

func TestLocalWinnerDiagonal(t *testing.T) {
	lb := &LocalBoard{}
	lb.Cells[0], lb.Cells[4], lb.Cells[8] = MarkO, MarkO, MarkO
	require.Equal(t, MarkO, localWinner(lb))
}

func TestLocalWinnerTie(t *testing.T) {
	lb := &LocalBoard{Cells: [9]PlayerMark{
		MarkX, MarkO, MarkX,
		MarkX, MarkO, MarkO,
		MarkO, MarkX, MarkX,
	}}
	require.Equal(t, MarkTie, localWinner(lb))
}

func TestLocalWinnerNone(t *testing.T) {
	lb := &LocalBoard{Cells: [9]PlayerMark{MarkX, MarkO}}
	require.Equal(t, MarkNone, localWinner(lb))
}

// TestMetaWinnerCountMajority pins the canonical interpretation of an
// ambiguous meta-board win rule: the side that decided strictly more
// sub-boards wins the meta-board, even with no three-sub-board line.
func TestMetaWinnerCountMajority(t *testing.T) {
	var meta MetaBoard
	winners := []PlayerMark{MarkX, MarkX, MarkO, MarkO, MarkO, MarkX, MarkX, MarkX, MarkO}
	for i, w := range winners {
		meta[i].Winner = w
	}
	require.Equal(t, MarkX, metaWinner(&meta))
}

func TestMetaWinnerIncompleteReturnsNone(t *testing.T) {
	var meta MetaBoard
	meta[0].Winner = MarkX
	require.Equal(t, MarkNone, metaWinner(&meta))
}

// TestMetaWinnerEarlyClinchBeforeAllDecided pins the mathematical-certainty
// short-circuit: once a side holds more decided sub-boards than the other
// side could reach even by winning every remaining undecided one, the
// meta-board is already won and metaWinner must not wait for the last
// sub-boards to finish.
func TestMetaWinnerEarlyClinchBeforeAllDecided(t *testing.T) {
	var meta MetaBoard
	for i := 0; i < 5; i++ {
		meta[i].Winner = MarkX
	}
	// boards 5..8 stay MarkNone (undecided): O could win all four and
	// still only reach 4 against X's locked-in 5.
	require.Equal(t, MarkX, metaWinner(&meta))
}

// TestMetaWinnerNoEarlyClinchWhenStillReachable is the contrasting case:
// the leading side's count does not yet exceed the trailing side's
// best-case ceiling, so the meta-board must stay undecided.
func TestMetaWinnerNoEarlyClinchWhenStillReachable(t *testing.T) {
	var meta MetaBoard
	for i := 0; i < 3; i++ {
		meta[i].Winner = MarkX
	}
	// 6 boards undecided: O could still reach 6, well past X's 3.
	require.Equal(t, MarkNone, metaWinner(&meta))
}

func TestMetaWinnerTieOnEqualCounts(t *testing.T) {
	var meta MetaBoard
	for i := 0; i < 8; i++ {
		if i%2 == 0 {
			meta[i].Winner = MarkX
		} else {
			meta[i].Winner = MarkO
		}
	}
	meta[8].Winner = MarkTie
	// 4 X, 4 O, 1 Tie: every sub-board is decided and the counts are equal.
	require.Equal(t, MarkTie, metaWinner(&meta))
}

// TestMetaWinnerMonotonic pins invariant #5 from §8: once
// meta_winner returns non-none, repeated calls on the same state agree.
func TestMetaWinnerMonotonic(t *testing.T) {
	var meta MetaBoard
	for i := range meta {
		meta[i].Winner = MarkO
	}
	first := metaWinner(&meta)
	second := metaWinner(&meta)
	require.Equal(t, first, second)
	require.Equal(t, MarkO, first)
}

func TestNextActiveBoardRelaxesWhenTargetDecided(t *testing.T) {
	var meta MetaBoard
	for i := range meta[3].Cells {
		meta[3].Cells[i] = MarkX
	}
	meta[3].Winner = MarkX
	require.Equal(t, activeAny, nextActiveBoard(3, &meta, MarkNone))
}

func TestNextActiveBoardConstrainsWhenTargetOpen(t *testing.T) {
	var meta MetaBoard
	meta[3].Cells[0] = MarkX
	require.Equal(t, 3, nextActiveBoard(3, &meta, MarkNone))
}

func TestNextActiveBoardNoneOnTerminal(t *testing.T) {
	var meta MetaBoard
	require.Equal(t, activeAny, nextActiveBoard(0, &meta, MarkX))
}

func TestValidateMoveRejectsOutOfRangeCell(t *testing.T) {
	m := emptyMatch()
	err := validateMove(m, Move{GlobalBoardIdx: 9, LocalBoardIdx: 0})
	require.Error(t, err)
	require.ErrorIs(t, err, ErrInvalidMove)
}

func TestValidateMoveRejectsWrongActiveBoard(t *testing.T) {
	m := emptyMatch()
	m.ActiveBoard = 2
	err := validateMove(m, Move{GlobalBoardIdx: 5, LocalBoardIdx: 0})
	require.ErrorIs(t, err, ErrInvalidMove)
}

func TestValidateMoveRejectsOccupiedCell(t *testing.T) {
	m := emptyMatch()
	m.Meta[0].Cells[0] = MarkX
	err := validateMove(m, Move{GlobalBoardIdx: 0, LocalBoardIdx: 0})
	require.ErrorIs(t, err, ErrInvalidMove)
}

func TestValidateMoveRejectsAfterTerminal(t *testing.T) {
	m := emptyMatch()
	m.Winner = MarkX
	err := validateMove(m, Move{GlobalBoardIdx: 0, LocalBoardIdx: 0})
	require.ErrorIs(t, err, ErrAlreadyTerminal)
}

// TestApplyPlyOverwritesDecidedSubBoardExceptTie guards the wire-protocol
// constraint that a won sub-board's cells are overwritten with the winner.
// The other half, that a tied sub-board is never stamped with MarkTie into
// the client-visible cells (the wire schema only carries "X"|"O"|null at
// the cell level), is checked by TestApplyPlyTieLeavesCellsUntouched.
func TestApplyPlyOverwritesDecidedSubBoardExceptTie(t *testing.T) {
	m := emptyMatch()
	m.Meta[0].Cells[0], m.Meta[0].Cells[3] = MarkX, MarkX
	applyPly(m, Move{GlobalBoardIdx: 0, LocalBoardIdx: 6}, MarkX)
	require.Equal(t, MarkX, m.Meta[0].Winner)
	for _, c := range m.Meta[0].Cells {
		require.Equal(t, MarkX, c)
	}
}

func TestApplyPlyTieLeavesCellsUntouched(t *testing.T) {
	m := emptyMatch()
	lb := &m.Meta[0]
	lb.Cells = [9]PlayerMark{
		MarkX, MarkO, MarkX,
		MarkX, MarkO, MarkO,
		MarkO, MarkX, MarkNone,
	}
	applyPly(m, Move{GlobalBoardIdx: 0, LocalBoardIdx: 8}, MarkX)
	require.Equal(t, MarkTie, lb.Winner)
	require.Equal(t, MarkX, lb.Cells[8], "the just-played cell keeps its mark, not a tie marker")
}

func TestApplyPlyFlipsTurnAndIncrementsMoveCount(t *testing.T) {
	m := emptyMatch()
	applyPly(m, Move{GlobalBoardIdx: 0, LocalBoardIdx: 0}, MarkX)
	require.Equal(t, MarkO, m.CurrentMark)
	require.Equal(t, 1, m.MoveCount)
}

func TestLegalMovesHonorsActiveBoard(t *testing.T) {
	m := emptyMatch()
	m.ActiveBoard = 4
	moves := legalMoves(m)
	require.Len(t, moves, 9)
	for _, mv := range moves {
		require.Equal(t, 4, mv.GlobalBoardIdx)
	}
}

func TestLegalMovesSkipsDecidedSubBoards(t *testing.T) {
	m := emptyMatch()
	m.Meta[0].Winner = MarkX
	moves := legalMoves(m)
	for _, mv := range moves {
		require.NotEqual(t, 0, mv.GlobalBoardIdx)
	}
}

func TestLegalMovesEmptyOnTerminal(t *testing.T) {
	m := emptyMatch()
	m.Winner = MarkO
	require.Empty(t, legalMoves(m))
}
