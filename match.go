package main

import (
	"context"
	"log"
	"sort"
	"time"
)

// Match State Machine (C4) and the per-match share of the Fan-out Layer
// (C5): connection set, heartbeat, and broadcast are owned by the match's
// own executor, per §5 and Design Notes §9 ("represent each match
// as an actor"). This generalizes korjavin-virusgame's single-Hub, single-goroutine
// channel-select loop (hub.go: register/unregister/handleMessage) down to
// one such loop per match, so that two distinct matches progress in
// parallel while each match's own mutations stay serialized.
type Match struct {
	ID         string
	Mode       Mode
	Difficulty Difficulty

	Meta        MetaBoard
	ActiveBoard int
	CurrentMark PlayerMark
	Winner      PlayerMark
	MoveCount   int

	participants    map[string]*Participant
	joinOrder       []string
	watcherCount    int
	resetInProgress bool
	lastMoveAt      time.Time
	createdAt       time.Time
	history         []MoveRecord

	conns map[*Connection]bool

	inbox chan func(*Match)
	done  chan struct{}

	hub        *Hub
	cancelBot  context.CancelFunc
	pendingBot bool
}

func newMatch(id string, mode Mode, difficulty Difficulty, hub *Hub) *Match {
	m := &Match{
		ID:           id,
		Mode:         mode,
		Difficulty:   difficulty,
		ActiveBoard:  activeAny,
		CurrentMark:  MarkX,
		participants: make(map[string]*Participant),
		conns:        make(map[*Connection]bool),
		inbox:        make(chan func(*Match), 64),
		done:         make(chan struct{}),
		createdAt:    time.Now(),
		hub:          hub,
	}
	go m.run()
	return m
}

// run is the match's single executor goroutine: every mutation of this
// Match's fields happens here, serially, so two concurrent callers are
// always linearized in arrival order.
func (m *Match) run() {
	heartbeat := time.NewTicker(m.hub.cfg.PingInterval)
	defer heartbeat.Stop()
	for {
		select {
		case op := <-m.inbox:
			op(m)
		case <-heartbeat.C:
			m.tickHeartbeat()
		case <-m.done:
			return
		}
	}
}

// submit enqueues a closure to run inside the match's executor. It never
// blocks past the match's teardown.
func (m *Match) submit(op func(*Match)) {
	select {
	case m.inbox <- op:
	case <-m.done:
	}
}

// call runs op synchronously against the executor and waits for it to
// finish, the way a plain method call would, while still guaranteeing the
// mutation happens on the actor goroutine.
func (m *Match) call(op func(*Match)) {
	done := make(chan struct{})
	m.submit(func(mm *Match) {
		op(mm)
		close(done)
	})
	select {
	case <-done:
	case <-m.done:
	}
}

func (m *Match) teardown() {
	if m.cancelBot != nil {
		m.cancelBot()
	}
	close(m.done)
}

func (m *Match) orderedParticipants() []*Participant {
	ids := make([]string, len(m.joinOrder))
	copy(ids, m.joinOrder)
	sort.Slice(ids, func(i, j int) bool {
		return m.participants[ids[i]].JoinOrdinal < m.participants[ids[j]].JoinOrdinal
	})
	out := make([]*Participant, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.participants[id])
	}
	return out
}

func (m *Match) playerCount() int {
	n := 0
	for _, p := range m.participants {
		if p.Role == RolePlayer {
			n++
		}
	}
	return n
}

// ---- join (C4 §join) ----

const computerParticipantSuffix = "-computer"

func (m *Match) join(userID, displayName string) (*Participant, error) {
	if p, ok := m.participants[userID]; ok {
		p.LastActiveAt = time.Now()
		return p, nil
	}
	now := time.Now()

	if m.Mode == ModeHumanVsComputer {
		if _, exists := m.computerParticipant(); !exists {
			human := &Participant{ID: userID, DisplayName: displayName, Mark: MarkX, Role: RolePlayer, JoinOrdinal: 0, LastActiveAt: now}
			computer := &Participant{
				ID:           m.ID + computerParticipantSuffix,
				DisplayName:  "Computer",
				Mark:         MarkO,
				Role:         RolePlayer,
				JoinOrdinal:  1,
				IsComputer:   true,
				LastActiveAt: now,
			}
			m.addParticipant(human)
			m.addParticipant(computer)
			m.CurrentMark = MarkX
			return human, nil
		}
	} else if m.playerCount() < 2 {
		mark := MarkX
		if m.playerCount() == 1 {
			mark = MarkO
		}
		p := &Participant{ID: userID, DisplayName: displayName, Mark: mark, Role: RolePlayer, JoinOrdinal: len(m.joinOrder), LastActiveAt: now}
		m.addParticipant(p)
		if m.playerCount() == 2 {
			m.CurrentMark = MarkX
		}
		return p, nil
	}

	p := &Participant{ID: userID, DisplayName: displayName, Role: RoleWatcher, JoinOrdinal: len(m.joinOrder), LastActiveAt: now}
	m.addParticipant(p)
	m.watcherCount++
	return p, nil
}

// joinAsync runs join on the match's executor and waits for the result,
// for callers outside the executor (the matchmaking queue, HTTP handlers).
func (m *Match) joinAsync(userID, displayName string) (*Participant, error) {
	var p *Participant
	var err error
	m.call(func(mm *Match) {
		p, err = mm.join(userID, displayName)
	})
	return p, err
}

func (m *Match) addParticipant(p *Participant) {
	m.participants[p.ID] = p
	m.joinOrder = append(m.joinOrder, p.ID)
}

func (m *Match) computerParticipant() (*Participant, bool) {
	for _, p := range m.participants {
		if p.IsComputer {
			return p, true
		}
	}
	return nil, false
}

// ---- make_move (C4 §make_move) ----

func (m *Match) makeMove(mv Move) error {
	p, ok := m.participants[mv.PlayerID]
	if !ok {
		return newError(ErrForbidden, "not a participant")
	}
	if p.Role == RoleWatcher {
		return newError(ErrForbidden, "watchers cannot move")
	}
	if p.Mark != m.CurrentMark {
		return newError(ErrForbidden, "not your turn")
	}
	if err := validateMove(m, mv); err != nil {
		return err
	}

	applyPly(m, mv, p.Mark)
	m.lastMoveAt = time.Now()
	p.LastActiveAt = m.lastMoveAt
	m.history = append(m.history, MoveRecord{
		Ply:       len(m.history) + 1,
		Board:     mv.GlobalBoardIdx,
		Cell:      mv.LocalBoardIdx,
		Mark:      p.Mark,
		AppliedAt: m.lastMoveAt,
	})

	m.broadcastUpdate()

	if m.Winner != MarkNone {
		m.hub.onMatchTerminal(m)
		return nil
	}

	if m.Mode == ModeHumanVsComputer {
		if computer, ok := m.computerParticipant(); ok && computer.Mark == m.CurrentMark {
			m.scheduleComputerReply(computer)
		}
	}
	return nil
}

// scheduleComputerReply invokes the opponent engine after a short
// cooperative delay (§4.4) and applies its move through the normal
// makeMove path under the synthetic id; no turn check is bypassed, since
// the computer participant's Mark equals CurrentMark at call time.
func (m *Match) scheduleComputerReply(computer *Participant) {
	if m.pendingBot {
		return
	}
	m.pendingBot = true

	ctx, cancel := context.WithTimeout(context.Background(), m.hub.cfg.BotDeadline)
	m.cancelBot = cancel

	matchID := m.ID
	mark := computer.Mark
	difficulty := m.Difficulty
	engine := m.hub.opponent

	time.AfterFunc(m.hub.cfg.BotReplyDelay, func() {
		m.submit(func(mm *Match) {
			mm.pendingBot = false
			if mm.Winner != MarkNone || mm.CurrentMark != mark {
				cancel()
				return
			}
			mv, err := engine.chooseMove(ctx, mm, mark, difficulty)
			cancel()
			if err != nil {
				log.Printf("match %s: computer move failed: %v", matchID, err)
				return
			}
			mv.PlayerID = computer.ID
			if err := mm.makeMove(mv); err != nil {
				log.Printf("match %s: computer move rejected: %v", matchID, err)
			}
		})
	})
}

// ---- reset (C4 §reset) ----

// reset clears the board back to a fresh game. resetInProgress stays set
// from here until the reset is durably confirmed (see the time.AfterFunc
// below), not just for the duration of this call: the confirmation runs as
// a second, later submission onto this match's own executor, so a second
// reset call racing in before that confirmation lands sees the flag still
// true and is rejected with Conflict, instead of silently serializing
// behind the first the way a same-turn flag would.
func (m *Match) reset(callerID string) error {
	caller, ok := m.participants[callerID]
	if !ok || caller.Role != RolePlayer {
		return newError(ErrForbidden, "only a player may reset")
	}
	if m.resetInProgress {
		return newError(ErrConflict, "reset already in progress")
	}
	m.resetInProgress = true

	previousWinner := m.Winner

	m.Meta = MetaBoard{}
	m.ActiveBoard = activeAny
	m.Winner = MarkNone
	m.MoveCount = 0
	m.lastMoveAt = time.Time{}
	m.history = nil

	if previousWinner == MarkX || previousWinner == MarkO {
		m.CurrentMark = previousWinner
	} else {
		m.CurrentMark = MarkX
	}

	m.broadcastReset()

	if m.Mode == ModeHumanVsComputer {
		if computer, ok := m.computerParticipant(); ok && computer.Mark == m.CurrentMark {
			m.scheduleComputerReply(computer)
		}
	}

	matchID, store, delay := m.ID, m.hub.store, m.hub.cfg.ResetSettleDelay
	time.AfterFunc(delay, func() {
		if store != nil {
			store.recordResetEvent(matchID)
		}
		m.submit(func(mm *Match) { mm.resetInProgress = false })
	})
	return nil
}

// reapIdleParticipants removes any seated human player whose connection has
// gone quiet for longer than timeout, mirroring the original's per-player
// AFK auto-removal for remote matches (game_service.py's
// check_player_timeouts, REMOTE-mode only, 2-minute default). A
// Human-vs-Computer match's lone human going idle is left to the
// whole-match terminal/empty reap instead, since there the only player
// worth removing is the one keeping the match alive.
func (m *Match) reapIdleParticipants(timeout time.Duration, now time.Time) {
	if m.Mode != ModeHumanVsHuman {
		return
	}
	for _, p := range m.participants {
		if p.Role != RolePlayer || p.LastActiveAt.IsZero() {
			continue
		}
		if now.Sub(p.LastActiveAt) > timeout {
			m.leave(p.ID)
			log.Printf("match %s: removed idle participant %s (afk > %s)", m.ID, p.ID, timeout)
		}
	}
}

// ---- leave (C4 §leave) ----

func (m *Match) leave(userID string) {
	p, ok := m.participants[userID]
	if !ok {
		return
	}
	delete(m.participants, userID)
	for i, id := range m.joinOrder {
		if id == userID {
			m.joinOrder = append(m.joinOrder[:i], m.joinOrder[i+1:]...)
			break
		}
	}
	if p.Role == RoleWatcher {
		m.watcherCount--
	}
	m.broadcastWatchers()
}

// ---- fan-out: attach/detach/broadcast/send (C5) ----

func (m *Match) attach(c *Connection) error {
	if len(m.conns) >= m.hub.cfg.MaxConnsPerMatch {
		return newError(ErrCapacityExceeded, "match connection cap reached")
	}
	for existing := range m.conns {
		if existing.participantID == c.participantID {
			existing.close()
			delete(m.conns, existing)
			break
		}
	}
	m.conns[c] = true
	return nil
}

func (m *Match) detach(c *Connection) {
	if _, ok := m.conns[c]; ok {
		delete(m.conns, c)
		c.close()
	}
}

// attachAsync/detachAsync run attach/detach on the match's executor, for
// callers outside it (the Hub's connection lifecycle handlers).
func (m *Match) attachAsync(c *Connection) error {
	var err error
	m.call(func(mm *Match) { err = mm.attach(c) })
	return err
}

func (m *Match) detachAsync(c *Connection) {
	m.call(func(mm *Match) { mm.detach(c) })
}

// broadcast sends msg to every healthy connection's outbound queue except
// the optional excluded peer. Non-blocking: a connection whose queue is
// full is treated as dead and detached, so one slow peer never blocks
// delivery to the others.
func (m *Match) broadcast(msg *wireMessage, except *Connection) {
	data := mustMarshal(msg)
	for c := range m.conns {
		if c == except {
			continue
		}
		if !c.enqueue(data) {
			m.detach(c)
		}
	}
}

func (m *Match) send(c *Connection, msg *wireMessage) {
	if !c.enqueue(mustMarshal(msg)) {
		m.detach(c)
	}
}

func (m *Match) broadcastUpdate() {
	m.broadcast(&wireMessage{
		Type:      "game_update",
		GameID:    m.ID,
		GameState: toGameState(m),
	}, nil)
}

func (m *Match) broadcastReset() {
	m.broadcast(&wireMessage{
		Type:      "game_reset",
		GameID:    m.ID,
		Message:   "the game has been reset",
		GameState: toGameState(m),
	}, nil)
}

func (m *Match) broadcastWatchers() {
	m.broadcast(&wireMessage{
		Type:          "watchers_update",
		GameID:        m.ID,
		WatchersCount: m.watcherCount,
	}, nil)
}

// tickHeartbeat pings every connection and detaches any whose last pong is
// stale or whose missed-pong count is too high (§4.5, §5).
func (m *Match) tickHeartbeat() {
	now := time.Now()
	ts := now.UnixNano() / int64(time.Millisecond)
	for c := range m.conns {
		if now.Sub(c.lastPong) > m.hub.cfg.PongTimeout || c.missedPongs >= 3 {
			m.detach(c)
			continue
		}
		c.pingCount++
		c.missedPongs++
		if !c.enqueue(mustMarshal(&wireMessage{Type: "ping", Timestamp: ts})) {
			m.detach(c)
		}
	}
}

func (m *Match) recordPong(c *Connection) {
	c.lastPong = time.Now()
	c.missedPongs = 0
	if p, ok := m.participants[c.participantID]; ok {
		p.LastActiveAt = c.lastPong
	}
}
