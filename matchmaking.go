package main

import (
	"sync"
	"time"
)

// Matchmaking Queue (C6): a single shared, short-held exclusive lock, per
// §5 — no call into the match subsystem (registry.createPrepopulated,
// joinAsync, or a match's executor) happens while holding it.

type queueStatusKind string

const (
	queueStatusQueued    queueStatusKind = "queued"
	queueStatusMatched   queueStatusKind = "matched"
	queueStatusNotPresent queueStatusKind = "not_present"
)

type queueStatus struct {
	Kind     queueStatusKind
	Position int
	Wait     time.Duration
	MatchID  string
}

type queueEntry struct {
	userID     string
	enqueuedAt time.Time
}

type matchedRecord struct {
	matchID    string
	recordedAt time.Time
}

type matchmakingQueue struct {
	mu       sync.Mutex
	entries  []queueEntry
	matched  map[string]matchedRecord
	registry *matchRegistry
}

func newMatchmakingQueue(registry *matchRegistry) *matchmakingQueue {
	return &matchmakingQueue{
		matched:  make(map[string]matchedRecord),
		registry: registry,
	}
}

func (q *matchmakingQueue) positionOf(userID string) int {
	for i, e := range q.entries {
		if e.userID == userID {
			return i
		}
	}
	return -1
}

// enqueue implements §4.6: no-op if already queued; otherwise purge
// any stale matched record for this user, then either pair with the head of
// the queue or append.
func (q *matchmakingQueue) enqueue(userID string) (queueStatus, error) {
	q.mu.Lock()
	if q.positionOf(userID) >= 0 {
		wait := time.Since(q.entries[q.positionOf(userID)].enqueuedAt)
		pos := q.positionOf(userID)
		q.mu.Unlock()
		return queueStatus{Kind: queueStatusQueued, Position: pos, Wait: wait}, nil
	}
	delete(q.matched, userID)

	if len(q.entries) == 0 {
		q.entries = append(q.entries, queueEntry{userID: userID, enqueuedAt: time.Now()})
		q.mu.Unlock()
		return queueStatus{Kind: queueStatusQueued, Position: 0, Wait: 0}, nil
	}

	head := q.entries[0]
	q.entries = q.entries[1:]
	q.mu.Unlock()

	// Match creation happens outside the lock: it allocates a new Match
	// actor and does not call back into the queue.
	matchID := newMatchID()
	if _, err := q.registry.createPrepopulated(matchID); err != nil {
		return queueStatus{}, err
	}
	m, _ := q.registry.get(matchID)
	if _, err := m.joinAsync(head.userID, head.userID); err != nil {
		return queueStatus{}, err
	}
	if _, err := m.joinAsync(userID, userID); err != nil {
		return queueStatus{}, err
	}

	q.mu.Lock()
	now := time.Now()
	q.matched[head.userID] = matchedRecord{matchID: matchID, recordedAt: now}
	q.matched[userID] = matchedRecord{matchID: matchID, recordedAt: now}
	q.mu.Unlock()

	return queueStatus{Kind: queueStatusMatched, MatchID: matchID}, nil
}

func (q *matchmakingQueue) leave(userID string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, e := range q.entries {
		if e.userID == userID {
			q.entries = append(q.entries[:i], q.entries[i+1:]...)
			return
		}
	}
}

// status returns the user's queue/match status. A matched record is only
// honored while the referenced Match still exists and hasn't reached a
// terminal state.
func (q *matchmakingQueue) status(userID string) queueStatus {
	q.mu.Lock()
	rec, matchedOK := q.matched[userID]
	pos := q.positionOf(userID)
	var wait time.Duration
	if pos >= 0 {
		wait = time.Since(q.entries[pos].enqueuedAt)
	}
	q.mu.Unlock()

	if matchedOK {
		if m, ok := q.registry.get(rec.matchID); ok {
			var terminal bool
			m.call(func(mm *Match) { terminal = mm.Winner != MarkNone })
			if !terminal {
				return queueStatus{Kind: queueStatusMatched, MatchID: rec.matchID}
			}
		}
	}
	if pos >= 0 {
		return queueStatus{Kind: queueStatusQueued, Position: pos, Wait: wait}
	}
	return queueStatus{Kind: queueStatusNotPresent}
}

// reap drops queue entries and matched records older than maxAge, per
// §4.6/§4.7.
func (q *matchmakingQueue) reap(maxAge time.Duration) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := time.Now()

	kept := q.entries[:0:0]
	for _, e := range q.entries {
		if now.Sub(e.enqueuedAt) <= maxAge {
			kept = append(kept, e)
		}
	}
	q.entries = kept

	for user, rec := range q.matched {
		if now.Sub(rec.recordedAt) > maxAge {
			delete(q.matched, user)
		}
	}
}
