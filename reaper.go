package main

import (
	"log"
	"time"
)

// Reaper (C7): periodic idle-match cleanup and stale-queue cleanup, run on
// its own goroutine so it never shares a lock with a match executor —
// it only ever reads a registry snapshot and calls into each Match's own
// actor for the terminal-state check, exactly the interleaving §4.7
// requires ("Reaping must be interleaved safely with Match executors").
type reaper struct {
	registry      *matchRegistry
	queue         *matchmakingQueue
	matchInterval time.Duration
	queueInterval time.Duration
	terminalTTL   time.Duration
	queueMaxAge   time.Duration
	afkTimeout    time.Duration
	stop          chan struct{}
}

func newReaper(registry *matchRegistry, queue *matchmakingQueue, cfg *Config) *reaper {
	return &reaper{
		registry:      registry,
		queue:         queue,
		matchInterval: cfg.MatchReapInterval,
		queueInterval: cfg.QueueReapInterval,
		terminalTTL:   cfg.MatchTerminalTTL,
		queueMaxAge:   cfg.QueueMaxAge,
		afkTimeout:    cfg.ParticipantAFKTimeout,
		stop:          make(chan struct{}),
	}
}

func (r *reaper) run() {
	matchTicker := time.NewTicker(r.matchInterval)
	queueTicker := time.NewTicker(r.queueInterval)
	defer matchTicker.Stop()
	defer queueTicker.Stop()
	for {
		select {
		case <-matchTicker.C:
			r.reapMatches()
		case <-queueTicker.C:
			r.queue.reap(r.queueMaxAge)
		case <-r.stop:
			return
		}
	}
}

func (r *reaper) shutdown() {
	close(r.stop)
}

// reapMatches first drops any individually AFK player (§4.7's per-player
// timeout), then destroys a Match when that leaves it with no Player
// participants, or when it reached terminal state longer than terminalTTL
// ago.
func (r *reaper) reapMatches() {
	now := time.Now()
	for _, m := range r.registry.snapshot() {
		var shouldReap bool
		m.call(func(mm *Match) {
			mm.reapIdleParticipants(r.afkTimeout, now)
			if mm.playerCount() == 0 {
				shouldReap = true
				return
			}
			if mm.Winner != MarkNone && !mm.lastMoveAt.IsZero() && now.Sub(mm.lastMoveAt) > r.terminalTTL {
				shouldReap = true
			}
		})
		if shouldReap {
			r.registry.remove(m.ID)
			log.Printf("reaper: removed match %s", m.ID)
		}
	}
}
