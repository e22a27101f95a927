package main

import (
	"context"
	"math"
	"math/rand"
)

// Opponent Engine (C2): produces a move for the computer player given
// match state and a difficulty. The search follows korjavin-virusgame's
// bot.go minimax/alpha-beta structure, generalized from the 4-player
// territory game onto the 9-sub-board meta-board and cut back to a shallow
// depth-limited search; it has no move ordering and no transposition table.

const defaultSearchDepth = 2
const hardSearchDepth = 3

type opponentEngine struct {
	rng *rand.Rand
}

func newOpponentEngine(seed int64) *opponentEngine {
	return &opponentEngine{rng: rand.New(rand.NewSource(seed))}
}

// chooseMove is cancellable: ctx is checked once here before a strategy is
// picked, and between child expansions in the search. If ctx is already
// cancelled on entry, it returns the first legal move; if it is cancelled
// during the search, it returns the best move evaluated so far.
func (e *opponentEngine) chooseMove(ctx context.Context, m *Match, mark PlayerMark, difficulty Difficulty) (Move, error) {
	moves := legalMoves(m)
	if len(moves) == 0 {
		return Move{}, newError(ErrInvalidMove, "no legal moves")
	}

	select {
	case <-ctx.Done():
		return moves[0], nil
	default:
	}

	switch difficulty {
	case DifficultyEasy:
		if e.rng.Float64() < 0.7 {
			return moves[e.rng.Intn(len(moves))], nil
		}
		return e.tacticalOrFallback(m, moves, mark), nil
	case DifficultyMedium:
		if e.rng.Float64() < 0.3 {
			return moves[e.rng.Intn(len(moves))], nil
		}
		return e.tacticalOrFallback(m, moves, mark), nil
	default: // DifficultyHard
		if mv, ok := e.tacticalMove(m, moves, mark); ok {
			return mv, nil
		}
		return e.searchBestMove(ctx, m, moves, mark, hardSearchDepth)
	}
}

func (e *opponentEngine) tacticalOrFallback(m *Match, moves []Move, mark PlayerMark) Move {
	if mv, ok := e.tacticalMove(m, moves, mark); ok {
		return mv
	}
	return moves[e.rng.Intn(len(moves))]
}

// tacticalMove implements the deterministic priority list from
// §4.2: complete a sub-board, else block the opponent from completing one,
// else take a center cell, else take a corner cell.
func (e *opponentEngine) tacticalMove(m *Match, moves []Move, mark PlayerMark) (Move, bool) {
	opp := mark.Opponent()

	if mv, ok := findCompletingMove(m, moves, mark); ok {
		return mv, true
	}
	if mv, ok := findCompletingMove(m, moves, opp); ok {
		return mv, true
	}
	for _, mv := range moves {
		if mv.LocalBoardIdx == 4 {
			return mv, true
		}
	}
	for _, mv := range moves {
		switch mv.LocalBoardIdx {
		case 0, 2, 6, 8:
			return mv, true
		}
	}
	return Move{}, false
}

// findCompletingMove returns the first legal move that would complete a
// sub-board (three-in-a-row) for the given mark.
func findCompletingMove(m *Match, moves []Move, mark PlayerMark) (Move, bool) {
	for _, mv := range moves {
		lb := m.Meta[mv.GlobalBoardIdx]
		lb.Cells[mv.LocalBoardIdx] = mark
		if localWinner(&lb) == mark {
			return mv, true
		}
	}
	return Move{}, false
}

// searchBestMove runs depth-limited minimax with alpha-beta pruning over
// every legal move and returns the one with the best score for mark.
func (e *opponentEngine) searchBestMove(ctx context.Context, m *Match, moves []Move, mark PlayerMark, depth int) (Move, error) {
	best := moves[0]
	bestScore := math.Inf(-1)
	alpha, beta := math.Inf(-1), math.Inf(1)

	for _, mv := range moves {
		select {
		case <-ctx.Done():
			return best, nil
		default:
		}

		child := applyMoveToSnapshot(m, mv, mark)
		score := e.minimax(ctx, child, depth-1, alpha, beta, false, mark)
		if score > bestScore {
			bestScore = score
			best = mv
		}
		if bestScore > alpha {
			alpha = bestScore
		}
		if beta <= alpha {
			break
		}
	}
	return best, nil
}

// minimax evaluates a snapshot, maximizing for `mark` on maximizing plies
// and minimizing on the opponent's plies.
func (e *opponentEngine) minimax(ctx context.Context, m *Match, depth int, alpha, beta float64, maximizing bool, mark PlayerMark) float64 {
	select {
	case <-ctx.Done():
		return e.evaluate(m, mark, depth)
	default:
	}

	if m.Winner != MarkNone {
		switch m.Winner {
		case mark:
			return 100 + float64(depth)
		case MarkTie:
			return 0
		default:
			return -100 - float64(depth)
		}
	}
	if depth == 0 {
		return e.evaluate(m, mark, depth)
	}

	toMove := mark
	if !maximizing {
		toMove = mark.Opponent()
	}
	moves := legalMoves(m)
	if len(moves) == 0 {
		return e.evaluate(m, mark, depth)
	}

	if maximizing {
		best := math.Inf(-1)
		for _, mv := range moves {
			child := applyMoveToSnapshot(m, mv, toMove)
			score := e.minimax(ctx, child, depth-1, alpha, beta, false, mark)
			if score > best {
				best = score
			}
			if best > alpha {
				alpha = best
			}
			if beta <= alpha {
				break
			}
		}
		return best
	}

	worst := math.Inf(1)
	for _, mv := range moves {
		child := applyMoveToSnapshot(m, mv, toMove)
		score := e.minimax(ctx, child, depth-1, alpha, beta, true, mark)
		if score < worst {
			worst = score
		}
		if worst < beta {
			beta = worst
		}
		if beta <= alpha {
			break
		}
	}
	return worst
}

// evaluate scores a non-terminal position at the search horizon: for every
// undecided sub-board, sum the +20/+2 (and symmetric negative) heuristic
// over each of its 8 win lines, per §4.2; a decided sub-board instead adds
// +15 if mark won it, -15 if the opponent did, and 0 for a tie.
func (e *opponentEngine) evaluate(m *Match, mark PlayerMark, depthRemaining int) float64 {
	opp := mark.Opponent()
	total := 0.0
	for i := range m.Meta {
		lb := &m.Meta[i]
		if lb.Decided() {
			switch lb.Winner {
			case mark:
				total += 15
			case opp:
				total -= 15
			}
			continue
		}
		for _, line := range winLines {
			mine, theirs, empty := 0, 0, 0
			for _, idx := range line {
				switch lb.Cells[idx] {
				case mark:
					mine++
				case opp:
					theirs++
				default:
					empty++
				}
			}
			switch {
			case mine == 2 && theirs == 0 && empty == 1:
				total += 20
			case mine == 1 && theirs == 0 && empty == 2:
				total += 2
			case theirs == 2 && mine == 0 && empty == 1:
				total -= 20
			case theirs == 1 && mine == 0 && empty == 2:
				total -= 2
			}
		}
	}
	return total
}

// applyMoveToSnapshot returns a copy of m with mv applied for mark, running
// the same win-detection and active-board update as the authoritative
// make_move path, without touching the real Match or emitting broadcasts.
func applyMoveToSnapshot(m *Match, mv Move, mark PlayerMark) *Match {
	clone := &Match{
		Meta:        m.Meta,
		ActiveBoard: m.ActiveBoard,
		Winner:      m.Winner,
		CurrentMark: m.CurrentMark,
		MoveCount:   m.MoveCount,
	}
	applyPly(clone, mv, mark)
	return clone
}
