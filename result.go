package main

import (
	"context"
	"log"
	"time"
)

// Result Sink (C8): invoked exactly once when a Match transitions to
// terminal state and mode == Human-vs-Human (§4.8). Persistence is
// best-effort: failures are logged and never propagate back into gameplay.

type GameResult string

const (
	ResultWin  GameResult = "WIN"
	ResultLoss GameResult = "LOSS"
	ResultDraw GameResult = "DRAW"
)

// UserStore is the opaque external user/stats store named in §6.3.
// The core only consumes this interface; a concrete sqlite-backed
// implementation lives in store.go for the bundled demo/test harness.
type UserStore interface {
	LookupDisplayName(ctx context.Context, userID string) (name string, found bool, err error)
	AppendResult(ctx context.Context, userID string, result GameResult, opponentName string, durationSeconds, pointsDelta int) error
	IncrementAggregate(ctx context.Context, userID string, result GameResult, pointsDelta int) error
}

type resultSink struct {
	store UserStore
}

func newResultSink(store UserStore) *resultSink {
	return &resultSink{store: store}
}

// terminalSnapshot is computed inside the match executor (cheap, no I/O)
// and then handed off so the actual store calls happen off the hot path —
// §5 requires no caller hold match locks across an external-store
// call.
type terminalSnapshot struct {
	matchID   string
	moveCount int
	xWins     int
	oWins     int
	players   []terminalPlayer
}

type terminalPlayer struct {
	userID     string
	mark       PlayerMark
	isComputer bool
}

// snapshotForResult is computed inside the match executor (cheap, no I/O)
// so the result sink's actual store calls can run off the hot path —
// §5 forbids holding a match's own lock across an external-store
// call.
func snapshotForResult(m *Match) terminalSnapshot {
	snap := terminalSnapshot{matchID: m.ID, moveCount: m.MoveCount}
	snap.xWins, snap.oWins = subBoardCounts(m)
	for _, p := range m.orderedParticipants() {
		if p.Role != RolePlayer {
			continue
		}
		snap.players = append(snap.players, terminalPlayer{userID: p.ID, mark: p.Mark, isComputer: p.IsComputer})
	}
	return snap
}

func subBoardCounts(m *Match) (xWins, oWins int) {
	for i := range m.Meta {
		switch m.Meta[i].Winner {
		case MarkX:
			xWins++
		case MarkO:
			oWins++
		}
	}
	return
}

// score implements the scoring rule of §4.8. margin is the signed
// sub-board count advantage for mark (positive ahead, negative behind).
func score(mark, winner PlayerMark, margin int) (result GameResult, points int) {
	switch {
	case winner == MarkTie:
		return ResultDraw, 5
	case winner == mark:
		points = 25
		switch {
		case margin >= 5:
			points += 10
		case margin >= 3:
			points += 5
		}
		return ResultWin, points
	default:
		deficit := -margin
		points = -10
		switch {
		case deficit <= 1:
			points += 5
		case deficit <= 2:
			points += 3
		}
		return ResultLoss, points
	}
}

// process runs the scoring rule for a completed Human-vs-Human match and
// persists the result for every player with a non-null user id. Mode ==
// Computer games never reach here (hub.onMatchTerminal gates on mode).
func (s *resultSink) process(snap terminalSnapshot, winner PlayerMark) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for _, p := range snap.players {
		if p.isComputer || p.userID == "" {
			continue
		}
		margin := snap.margin(p.mark)
		result, points := score(p.mark, winner, margin)

		opponentName := "Unknown"
		for _, other := range snap.players {
			if other.userID == p.userID {
				continue
			}
			if name, found, err := s.store.LookupDisplayName(ctx, other.userID); err == nil && found {
				opponentName = name
			}
		}

		duration := 5 * snap.moveCount
		if err := s.store.AppendResult(ctx, p.userID, result, opponentName, duration, points); err != nil {
			log.Printf("result sink: append result failed for match %s, user %s: %v", snap.matchID, p.userID, err)
			continue
		}
		if err := s.store.IncrementAggregate(ctx, p.userID, result, points); err != nil {
			log.Printf("result sink: increment aggregate failed for match %s, user %s: %v", snap.matchID, p.userID, err)
		}
	}
}

// margin is the sub-board count advantage for mark: positive when mark is
// ahead, negative when behind.
func (snap terminalSnapshot) margin(mark PlayerMark) int {
	if mark == MarkX {
		return snap.xWins - snap.oWins
	}
	return snap.oWins - snap.xWins
}
