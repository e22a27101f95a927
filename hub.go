package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"
)

// Hub (top-level wiring for C5/C6/C8): owns the Match Registry, the
// Matchmaking Queue, the Opponent Engine, and the Result Sink, and routes
// inbound wire frames to the right Match. Generalizes korjavin-virusgame's single
// global Hub (hub.go: register/unregister/handleMessage channels feeding one
// event loop) by delegating per-match mutation to each Match's own executor
// instead of funneling everything through one goroutine — see match.go.
type Hub struct {
	cfg      *Config
	registry *matchRegistry
	queue    *matchmakingQueue
	opponent *opponentEngine
	result   *resultSink
	store    *sqliteStore
	reaper   *reaper
}

func newHub(cfg *Config, store *sqliteStore) *Hub {
	h := &Hub{
		cfg:      cfg,
		opponent: newOpponentEngine(time.Now().UnixNano()),
		result:   newResultSink(store),
		store:    store,
	}
	h.registry = newMatchRegistry(h)
	h.queue = newMatchmakingQueue(h.registry)
	h.reaper = newReaper(h.registry, h.queue, cfg)
	return h
}

func (h *Hub) start() {
	go h.reaper.run()
}

func (h *Hub) shutdown() {
	h.reaper.shutdown()
}

// handleConnect binds a freshly upgraded socket to the match named in its
// query parameters. The Participant itself is created lazily on the first
// join_game frame (§6.1: join_game carries no body, identity is
// already known from the session).
func (h *Hub) handleConnect(c *Connection) {
	m, ok := h.registry.get(c.matchID)
	if !ok {
		h.send(c, errorFrame("match not found"))
		c.close()
		return
	}
	if err := m.attachAsync(c); err != nil {
		h.send(c, errorFrame(err.Error()))
		c.close()
		return
	}
}

func (h *Hub) handleDisconnect(c *Connection) {
	m, ok := h.registry.get(c.matchID)
	if !ok {
		return
	}
	m.detachAsync(c)
}

// dispatch routes one decoded client frame to the bound Match's executor.
func (h *Hub) dispatch(c *Connection, msg *wireMessage) {
	m, ok := h.registry.get(c.matchID)
	if !ok {
		h.send(c, errorFrame("match not found"))
		return
	}

	switch msg.Type {
	case "join_game":
		h.handleJoin(c, m)
	case "make_move":
		h.handleMakeMove(c, m, msg)
	case "reset_game":
		h.handleResetGame(c, m)
	case "leave":
		userID := msg.UserID
		if userID == "" {
			userID = c.participantID
		}
		m.call(func(mm *Match) { mm.leave(userID) })
	case "pong":
		m.call(func(mm *Match) { mm.recordPong(c) })
	default:
		log.Printf("hub: unknown frame type %q from %s/%s", msg.Type, c.matchID, c.participantID)
	}
}

func (h *Hub) handleJoin(c *Connection, m *Match) {
	displayName := generateGuestName()
	p, err := m.joinAsync(c.participantID, displayName)
	if err != nil {
		h.send(c, errorFrame(err.Error()))
		return
	}
	if h.store != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := h.store.registerGuest(ctx, c.participantID, p.DisplayName); err != nil {
				log.Printf("hub: register guest %s failed: %v", c.participantID, err)
			}
		}()
	}

	var resp *wireMessage
	m.call(func(mm *Match) {
		resp = &wireMessage{
			Type:          "player_joined",
			GameID:        mm.ID,
			UserID:        c.participantID,
			Symbol:        string(p.Mark),
			Status:        string(p.Role),
			WatchersCount: mm.watcherCount,
			Mode:          string(mm.Mode),
			GameState:     toGameState(mm),
		}
		if mm.Mode == ModeHumanVsComputer {
			resp.AIDifficulty = string(mm.Difficulty)
		}
	})
	h.send(c, resp)

	if p.Role == RoleWatcher {
		m.call(func(mm *Match) { mm.broadcastWatchers() })
	}
}

func (h *Hub) handleMakeMove(c *Connection, m *Match, msg *wireMessage) {
	if msg.GlobalBoardIdx == nil || msg.LocalBoardIdx == nil {
		h.send(c, errorFrame("make_move requires global_board_index and local_board_index"))
		return
	}
	mv := Move{PlayerID: c.participantID, GlobalBoardIdx: *msg.GlobalBoardIdx, LocalBoardIdx: *msg.LocalBoardIdx}
	var moveErr error
	m.call(func(mm *Match) { moveErr = mm.makeMove(mv) })
	if moveErr != nil {
		h.send(c, errorFrame(moveErr.Error()))
	}
}

func (h *Hub) handleResetGame(c *Connection, m *Match) {
	var err error
	m.call(func(mm *Match) { err = mm.reset(c.participantID) })
	if err != nil {
		h.send(c, errorFrame(err.Error()))
	}
}

func (h *Hub) send(c *Connection, msg *wireMessage) {
	if !c.enqueue(mustMarshal(msg)) {
		c.close()
	}
}

func errorFrame(message string) *wireMessage {
	return &wireMessage{Type: "error", Message: message}
}

// onMatchTerminal is invoked synchronously from inside the match's own
// executor (match.go's makeMove, on the winner-just-set transition) so it
// must do only cheap, non-blocking work here and hand the rest to
// goroutines — §5 forbids holding a match's lock across an external
// store call, and the Result Sink only fires for Human-vs-Human (§4.8:
// "Computer-mode games do not affect user stats").
func (h *Hub) onMatchTerminal(m *Match) {
	if m.Mode != ModeHumanVsHuman {
		return
	}
	snap := snapshotForResult(m)
	winner := m.Winner
	history := make([]MoveRecord, len(m.history))
	copy(history, m.history)
	matchID, mode, difficulty, moveCount, createdAt := m.ID, m.Mode, m.Difficulty, m.MoveCount, m.createdAt

	go h.result.process(snap, winner)
	if h.store != nil {
		h.store.saveTranscript(matchID, mode, difficulty, winner, moveCount, history, createdAt)
	}
}

// ---- HTTP admin/setup surface (§6.2) ----

type createMatchRequest struct {
	Mode         string `json:"mode"`
	AIDifficulty string `json:"ai_difficulty,omitempty"`
}

type createMatchResponse struct {
	GameID       string `json:"game_id"`
	Mode         string `json:"mode"`
	AIDifficulty string `json:"ai_difficulty,omitempty"`
}

func (h *Hub) handleCreateMatch(w http.ResponseWriter, r *http.Request) {
	var req createMatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}

	var mode Mode
	switch req.Mode {
	case "remote":
		mode = ModeHumanVsHuman
	case "ai":
		mode = ModeHumanVsComputer
	default:
		http.Error(w, "mode must be \"remote\" or \"ai\"", http.StatusBadRequest)
		return
	}

	difficulty := Difficulty(req.AIDifficulty)
	switch difficulty {
	case "", DifficultyEasy, DifficultyMedium, DifficultyHard:
	default:
		http.Error(w, "invalid ai_difficulty", http.StatusBadRequest)
		return
	}
	if mode == ModeHumanVsComputer && difficulty == "" {
		difficulty = DifficultyMedium
	}

	m := h.registry.create(mode, difficulty)
	resp := createMatchResponse{GameID: m.ID, Mode: req.Mode}
	if mode == ModeHumanVsComputer {
		resp.AIDifficulty = string(difficulty)
	}
	writeJSON(w, http.StatusOK, resp)
}

type resetRequest struct {
	GameID string `json:"game_id"`
	UserID string `json:"user_id"`
}

type resetResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

func (h *Hub) handleReset(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "malformed body", http.StatusBadRequest)
		return
	}
	m, ok := h.registry.get(req.GameID)
	if !ok {
		writeJSON(w, http.StatusNotFound, resetResponse{Success: false, Message: "match not found"})
		return
	}

	var err error
	m.call(func(mm *Match) { err = mm.reset(req.UserID) })
	if err != nil {
		writeJSON(w, statusForError(err), resetResponse{Success: false, Message: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, resetResponse{Success: true})
}

func (h *Hub) handleMatchmakingEnqueue(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	status, err := h.queue.enqueue(userID)
	if err != nil {
		writeJSON(w, statusForError(err), map[string]string{"message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, queueStatusToJSON(status))
}

func (h *Hub) handleMatchmakingLeave(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	h.queue.leave(userID)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *Hub) handleMatchmakingStatus(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}
	status := h.queue.status(userID)
	writeJSON(w, http.StatusOK, queueStatusToJSON(status))
}

func queueStatusToJSON(s queueStatus) map[string]any {
	out := map[string]any{"status": string(s.Kind)}
	switch s.Kind {
	case queueStatusQueued:
		out["position"] = s.Position
		out["wait_seconds"] = int(s.Wait.Seconds())
	case queueStatusMatched:
		out["game_id"] = s.MatchID
	}
	return out
}

func statusForError(err error) int {
	switch {
	case isErrorKind(err, ErrNotFound):
		return http.StatusNotFound
	case isErrorKind(err, ErrForbidden):
		return http.StatusForbidden
	case isErrorKind(err, ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
