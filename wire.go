package main

import "encoding/json"

// Wire frames exchanged over the bidirectional message channel (§6.1).
// Mirrors korjavin-virusgame's single flat Message envelope with
// `omitempty` fields rather than a union of typed frames — same shape the
// whole retrieval pack's websocket protocols use (virusgame's Message,
// bot-template's Message).
type wireMessage struct {
	Type string `json:"type"`

	// join_game has no body; make_move:
	PlayerID       string `json:"playerId,omitempty"`
	GlobalBoardIdx *int   `json:"global_board_index,omitempty"`
	LocalBoardIdx  *int   `json:"local_board_index,omitempty"`

	// leave:
	UserID string `json:"userId,omitempty"`

	// ping/pong:
	Timestamp int64 `json:"timestamp,omitempty"`

	// server -> client:
	GameID          string      `json:"gameId,omitempty"`
	Symbol          string      `json:"symbol,omitempty"`
	Status          string      `json:"status,omitempty"`
	WatchersCount   int         `json:"watchers_count,omitempty"`
	Mode            string      `json:"mode,omitempty"`
	AIDifficulty    string      `json:"ai_difficulty,omitempty"`
	GameState       *gameState  `json:"game_state,omitempty"`
	Message         string      `json:"message,omitempty"`
}

// gameState is the client-facing projection of a Match.
type gameState struct {
	GlobalBoard   [9][9]*string     `json:"global_board"`
	ActiveBoard   *int              `json:"active_board"`
	MoveCount     int               `json:"move_count"`
	Winner        *string           `json:"winner"`
	CurrentPlayer *string           `json:"current_player"`
	Players       []wirePlayer      `json:"players"`
}

type wirePlayer struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
	Symbol      string `json:"symbol,omitempty"`
	Role        string `json:"role"`
	IsComputer  bool   `json:"isComputer"`
}

func markPtr(m PlayerMark) *string {
	if m == MarkNone {
		return nil
	}
	s := string(m)
	return &s
}

func intPtr(i int) *int {
	v := i
	return &v
}

// toGameState projects a Match's authoritative state into the wire schema.
// global_board is a 9x9 array of "X"|"O"|null: row/col are derived from
// (sub-board index, cell index) the same way the rules core addresses
// cells — sub-board r,c = idx/3, idx%3; cell r,c = idx/3, idx%3; global row
// = subRow*3+cellRow, global col = subCol*3+cellCol.
func toGameState(m *Match) *gameState {
	gs := &gameState{
		MoveCount: m.MoveCount,
	}
	for sub := 0; sub < 9; sub++ {
		subRow, subCol := sub/3, sub%3
		lb := &m.Meta[sub]
		for cell := 0; cell < 9; cell++ {
			cellRow, cellCol := cell/3, cell%3
			gr := subRow*3 + cellRow
			gc := subCol*3 + cellCol
			mark := lb.Cells[cell]
			gs.GlobalBoard[gr][gc] = markPtr(mark)
		}
	}
	if m.ActiveBoard == activeAny {
		gs.ActiveBoard = nil
	} else {
		gs.ActiveBoard = intPtr(m.ActiveBoard)
	}
	gs.Winner = markPtr(m.Winner)
	if m.Winner == MarkNone {
		gs.CurrentPlayer = markPtr(m.CurrentMark)
	} else {
		gs.CurrentPlayer = nil
	}
	for _, p := range m.orderedParticipants() {
		gs.Players = append(gs.Players, wirePlayer{
			UserID:      p.ID,
			DisplayName: p.DisplayName,
			Symbol:      string(p.Mark),
			Role:        string(p.Role),
			IsComputer:  p.IsComputer,
		})
	}
	return gs
}

func mustMarshal(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		// Only reachable for a programmer error (an unserializable wire
		// type); fail loudly during development rather than silently drop
		// the frame.
		panic(err)
	}
	return b
}
