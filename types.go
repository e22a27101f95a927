package main

import "time"

// PlayerMark is one of X, O, or Tie. Tie only ever appears as a terminal
// marker on a completed sub-board or match.
type PlayerMark string

const (
	MarkNone PlayerMark = ""
	MarkX    PlayerMark = "X"
	MarkO    PlayerMark = "O"
	MarkTie  PlayerMark = "T"
)

func (m PlayerMark) Opponent() PlayerMark {
	switch m {
	case MarkX:
		return MarkO
	case MarkO:
		return MarkX
	default:
		return MarkNone
	}
}

// Mode distinguishes a human opponent from the embedded computer player.
type Mode string

const (
	ModeHumanVsHuman    Mode = "remote"
	ModeHumanVsComputer Mode = "ai"
)

// Difficulty tunes the opponent engine (C2).
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Role distinguishes a seated player from a spectator.
type Role string

const (
	RolePlayer  Role = "player"
	RoleWatcher Role = "watcher"
)

// activeAny marks that the next move may land in any sub-board with an
// empty cell. A concrete value in 0..8 constrains the next move to that
// sub-board.
const activeAny = -1

// LocalBoard is one 3x3 sub-board. Once Winner is set, cells are frozen; a
// sub-board won by X or O has its cells overwritten with the winning mark,
// while a tied one keeps its cells as played (the deliberate simplification in
// §3: a won sub-board and a fully-occupied sub-board look alike by
// cell content, distinguished only by this struct's Winner field — which we
// keep separate rather than erasing, per the Design Notes' permitted
// variation).
type LocalBoard struct {
	Cells  [9]PlayerMark
	Winner PlayerMark
}

func (b *LocalBoard) Full() bool {
	for _, c := range b.Cells {
		if c == MarkNone {
			return false
		}
	}
	return true
}

func (b *LocalBoard) Decided() bool {
	return b.Winner != MarkNone
}

// MetaBoard is the 3x3 arrangement of nine LocalBoards.
type MetaBoard [9]LocalBoard

// Participant is a seated player or a spectator attached to a Match.
type Participant struct {
	ID           string
	DisplayName  string
	Mark         PlayerMark // only meaningful when Role == RolePlayer
	Role         Role
	JoinOrdinal  int
	IsComputer   bool
	LastActiveAt time.Time // updated on join, on every accepted move and on every pong (§4.7 AFK removal)
}

// Move is a client-submitted ply.
type Move struct {
	PlayerID       string
	GlobalBoardIdx int // which sub-board, 0..8
	LocalBoardIdx  int // which cell within that sub-board, 0..8
}

// MoveRecord is an applied ply, kept for invariant checking (§8 #1)
// and for the persisted match transcript.
type MoveRecord struct {
	Ply       int        `json:"ply"`
	Board     int        `json:"board"`
	Cell      int        `json:"cell"`
	Mark      PlayerMark `json:"mark"`
	AppliedAt time.Time  `json:"appliedAt"`
}

