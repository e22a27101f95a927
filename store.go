package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// sqliteStore is the bundled demo/test implementation of the external
// user/stats store named in §6.3, plus the match-transcript ledger
// adapted from korjavin-virusgame's storage.go (InitDB/SaveGame/generatePGN),
// swapping PGN-turn reconstruction for a flat JSON move list since this
// domain has no notion of a multi-action turn.
type sqliteStore struct {
	db *sql.DB
}

func openStore(dbPath string) (*sqliteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		display_name TEXT
	);
	CREATE TABLE IF NOT EXISTS game_results (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT,
		result TEXT,
		opponent_name TEXT,
		duration_seconds INTEGER,
		points_delta INTEGER,
		recorded_at DATETIME
	);
	CREATE TABLE IF NOT EXISTS user_stats (
		user_id TEXT PRIMARY KEY,
		wins INTEGER NOT NULL DEFAULT 0,
		losses INTEGER NOT NULL DEFAULT 0,
		draws INTEGER NOT NULL DEFAULT 0,
		points INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS match_transcripts (
		match_id TEXT PRIMARY KEY,
		mode TEXT,
		difficulty TEXT,
		winner TEXT,
		move_count INTEGER,
		moves_json TEXT,
		created_at DATETIME,
		ended_at DATETIME
	);
	CREATE TABLE IF NOT EXISTS match_resets (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		match_id TEXT,
		reset_at DATETIME
	);
	`
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteStore{db: db}, nil
}

func (s *sqliteStore) close() error {
	return s.db.Close()
}

// registerGuest upserts a display name for an anonymous user id, so a later
// LookupDisplayName by an opponent can resolve it.
func (s *sqliteStore) registerGuest(ctx context.Context, userID, displayName string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET display_name = excluded.display_name`,
		userID, displayName)
	return err
}

func (s *sqliteStore) LookupDisplayName(ctx context.Context, userID string) (string, bool, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT display_name FROM users WHERE id = ?`, userID).Scan(&name)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return name, true, nil
}

func (s *sqliteStore) AppendResult(ctx context.Context, userID string, result GameResult, opponentName string, durationSeconds, pointsDelta int) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO game_results (user_id, result, opponent_name, duration_seconds, points_delta, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		userID, string(result), opponentName, durationSeconds, pointsDelta, time.Now())
	return err
}

func (s *sqliteStore) IncrementAggregate(ctx context.Context, userID string, result GameResult, pointsDelta int) error {
	var column string
	switch result {
	case ResultWin:
		column = "wins"
	case ResultLoss:
		column = "losses"
	default:
		column = "draws"
	}
	query := fmt.Sprintf(`
		INSERT INTO user_stats (user_id, %s, points) VALUES (?, 1, ?)
		ON CONFLICT(user_id) DO UPDATE SET %s = %s + 1, points = points + excluded.points`,
		column, column, column)
	_, err := s.db.ExecContext(ctx, query, userID, pointsDelta)
	return err
}

// recordResetEvent durably logs that a match was reset, so the reset is not
// considered settled (match.go's resetInProgress guard) until this write
// lands — see reset's doc comment for why that window matters.
func (s *sqliteStore) recordResetEvent(matchID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO match_resets (match_id, reset_at) VALUES (?, ?)`, matchID, time.Now())
	if err != nil {
		log.Printf("store: record reset event for match %s: %v", matchID, err)
	}
}

// saveTranscript persists a completed Human-vs-Human match's move history.
// Invoked best-effort from hub.onMatchTerminal; failures are logged, never
// surfaced to gameplay (§4.4 failure semantics).
func (s *sqliteStore) saveTranscript(matchID string, mode Mode, difficulty Difficulty, winner PlayerMark, moveCount int, history []MoveRecord, createdAt time.Time) {
	movesJSON, err := json.Marshal(history)
	if err != nil {
		log.Printf("store: marshal transcript for match %s: %v", matchID, err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO match_transcripts (match_id, mode, difficulty, winner, move_count, moves_json, created_at, ended_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(match_id) DO UPDATE SET winner = excluded.winner, move_count = excluded.move_count,
				moves_json = excluded.moves_json, ended_at = excluded.ended_at`,
			matchID, string(mode), string(difficulty), string(winner), moveCount, string(movesJSON), createdAt, time.Now())
		if err != nil {
			log.Printf("store: save transcript for match %s: %v", matchID, err)
			return
		}
		log.Printf("store: transcript saved for match %s", matchID)
	}()
}
