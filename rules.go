package main

// Rules Core (C1): board representation, move legality, win detection.

// winLines are the 8 three-in-a-row patterns on a 3x3 grid: 3 rows, 3
// columns, 2 diagonals.
var winLines = [8][3]int{
	{0, 1, 2}, {3, 4, 5}, {6, 7, 8},
	{0, 3, 6}, {1, 4, 7}, {2, 5, 8},
	{0, 4, 8}, {2, 4, 6},
}

// localWinner returns the mark holding any of the 8 win lines, MarkTie if
// every cell is set with no line won, or MarkNone if the sub-board is still
// in progress.
func localWinner(b *LocalBoard) PlayerMark {
	for _, line := range winLines {
		a, c, d := b.Cells[line[0]], b.Cells[line[1]], b.Cells[line[2]]
		if a != MarkNone && a == c && c == d {
			return a
		}
	}
	if b.Full() {
		return MarkTie
	}
	return MarkNone
}

// metaWinner inspects each LocalBoard's winner and returns the meta-board
// result under the count-majority rule, including its early-clinch case:
// a side whose decided-sub-board count already exceeds what the other
// side could reach even by sweeping every still-undecided sub-board wins
// immediately, without waiting for the remaining boards to finish. Both
// variants of the original implementation this was distilled from compute
// it this way (game_service.py's _check_global_winner and ai_logic.py's
// _get_game_winner), and only fall back to plain majority-or-tie once
// nothing is left undecided.
func metaWinner(meta *MetaBoard) PlayerMark {
	xWins, oWins, undecided := 0, 0, 0
	for i := range meta {
		switch meta[i].Winner {
		case MarkX:
			xWins++
		case MarkO:
			oWins++
		case MarkNone:
			undecided++
		}
	}
	if xWins > oWins+undecided {
		return MarkX
	}
	if oWins > xWins+undecided {
		return MarkO
	}
	if undecided > 0 {
		return MarkNone
	}
	switch {
	case xWins > oWins:
		return MarkX
	case oWins > xWins:
		return MarkO
	default:
		return MarkTie
	}
}

// nextActiveBoard computes the ActiveBoardIndex constraint for the move
// that follows one just played at lastCellIndex (the cell index within the
// sub-board the move landed in, which names the next target sub-board).
// Returns activeAny when the match is over or the target sub-board is
// already full.
func nextActiveBoard(lastCellIndex int, meta *MetaBoard, winner PlayerMark) int {
	if winner != MarkNone {
		return activeAny
	}
	if meta[lastCellIndex].Full() {
		return activeAny
	}
	return lastCellIndex
}

// validateMove checks a move against the authoritative Match state without
// mutating anything.
func validateMove(m *Match, mv Move) error {
	if m.Winner != MarkNone {
		return newError(ErrAlreadyTerminal, "game over")
	}
	if mv.GlobalBoardIdx < 0 || mv.GlobalBoardIdx > 8 || mv.LocalBoardIdx < 0 || mv.LocalBoardIdx > 8 {
		return newError(ErrInvalidMove, "cell out of range")
	}
	if m.ActiveBoard != activeAny && mv.GlobalBoardIdx != m.ActiveBoard {
		return newError(ErrInvalidMove, "must play in the active sub-board")
	}
	lb := &m.Meta[mv.GlobalBoardIdx]
	if lb.Decided() {
		return newError(ErrInvalidMove, "sub-board already decided")
	}
	if lb.Cells[mv.LocalBoardIdx] != MarkNone {
		return newError(ErrInvalidMove, "cell already occupied")
	}
	return nil
}

// applyPly performs the authoritative state transition for an already
// validated move: write the mark, flip whose turn it is, bump the move
// counter, resolve the affected sub-board's winner (overwriting its cells
// per the §3 simplification), resolve the meta winner, and recompute the
// active-board constraint. Shared by Match.makeMove (C4) and the opponent
// engine's look-ahead, which applies it to disposable snapshots.
func applyPly(m *Match, mv Move, mark PlayerMark) {
	lb := &m.Meta[mv.GlobalBoardIdx]
	lb.Cells[mv.LocalBoardIdx] = mark
	m.CurrentMark = mark.Opponent()
	m.MoveCount++

	if w := localWinner(lb); w != MarkNone {
		lb.Winner = w
		if w != MarkTie {
			for i := range lb.Cells {
				lb.Cells[i] = w
			}
		}
	}

	m.Winner = metaWinner(&m.Meta)
	m.ActiveBoard = nextActiveBoard(mv.LocalBoardIdx, &m.Meta, m.Winner)
}

// legalMoves enumerates every (board, cell) pair a player may currently
// play, honoring the active-sub-board constraint.
func legalMoves(m *Match) []Move {
	var moves []Move
	if m.Winner != MarkNone {
		return moves
	}
	boards := []int{m.ActiveBoard}
	if m.ActiveBoard == activeAny {
		boards = make([]int, 9)
		for i := range boards {
			boards[i] = i
		}
	}
	for _, b := range boards {
		lb := &m.Meta[b]
		if lb.Decided() {
			continue
		}
		for c := 0; c < 9; c++ {
			if lb.Cells[c] == MarkNone {
				moves = append(moves, Move{GlobalBoardIdx: b, LocalBoardIdx: c})
			}
		}
	}
	return moves
}
