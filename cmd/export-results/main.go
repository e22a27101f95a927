package main

import (
	"database/sql"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	_ "modernc.org/sqlite"
)

// export-results is a standalone CLI over the match server's sqlite store,
// adapted from korjavin-virusgame's cmd/dump-games: same shape (flag-parsed -db
// path, ordered scan, pretty-print), reading match transcripts and game
// results instead of four-player territory games. It does not import the
// server's engine package — it reads the database directly, same as the
// teacher's tool did.
func main() {
	dbPath := flag.String("db", "./data/sttt.db", "path to sqlite database")
	flag.Parse()

	if _, err := os.Stat(*dbPath); os.IsNotExist(err) {
		log.Fatalf("database not found at %s", *dbPath)
	}

	db, err := sql.Open("sqlite", *dbPath)
	if err != nil {
		log.Fatalf("failed to open database: %v", err)
	}
	defer db.Close()

	dumpTranscripts(db)
	dumpResults(db)
}

func dumpTranscripts(db *sql.DB) {
	rows, err := db.Query(`
		SELECT match_id, mode, difficulty, winner, move_count, moves_json, created_at, ended_at
		FROM match_transcripts
		ORDER BY created_at DESC
	`)
	if err != nil {
		log.Fatalf("failed to query match_transcripts: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var matchID, mode, difficulty, winner, movesJSON string
		var moveCount int
		var createdAt, endedAt time.Time

		if err := rows.Scan(&matchID, &mode, &difficulty, &winner, &moveCount, &movesJSON, &createdAt, &endedAt); err != nil {
			log.Fatalf("failed to scan row: %v", err)
		}

		fmt.Printf("Match: %s\n", matchID)
		fmt.Printf("Time: %s - %s\n", createdAt.Format(time.RFC822), endedAt.Format(time.RFC822))
		fmt.Printf("Mode: %s", mode)
		if difficulty != "" {
			fmt.Printf(" (difficulty: %s)", difficulty)
		}
		fmt.Println()
		fmt.Printf("Winner: %s, moves: %d\n", winner, moveCount)

		var moves any
		if err := json.Unmarshal([]byte(movesJSON), &moves); err == nil {
			formatted, _ := json.MarshalIndent(moves, "", "  ")
			fmt.Println(string(formatted))
		} else {
			fmt.Println(movesJSON)
		}
		fmt.Println("--------------------------------------------------")
		count++
	}
	fmt.Printf("Total match transcripts: %d\n\n", count)
}

func dumpResults(db *sql.DB) {
	rows, err := db.Query(`
		SELECT user_id, result, opponent_name, duration_seconds, points_delta, recorded_at
		FROM game_results
		ORDER BY recorded_at DESC
	`)
	if err != nil {
		log.Fatalf("failed to query game_results: %v", err)
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		var userID, result, opponentName string
		var durationSeconds, pointsDelta int
		var recordedAt time.Time

		if err := rows.Scan(&userID, &result, &opponentName, &durationSeconds, &pointsDelta, &recordedAt); err != nil {
			log.Fatalf("failed to scan row: %v", err)
		}

		fmt.Printf("%s  user=%-20s vs %-20s  %-4s  duration=%ds  points=%+d\n",
			recordedAt.Format(time.RFC822), userID, opponentName, result, durationSeconds, pointsDelta)
		count++
	}
	fmt.Printf("Total results: %d\n", count)
}
