package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// main wires the HTTP admin surface (§6.2) and the websocket
// endpoint to a Hub, and shuts down gracefully on SIGINT/SIGTERM — the
// signal-driven shutdown pattern is adapted from korjavin-virusgame's
// cmd/bot-hoster/main.go, generalized from stopping a bot pool to tearing
// down the reaper and the database handle. There is no bundled frontend to
// serve: this server has no browser-facing static assets.
func main() {
	log.Println("=== Super Tic-Tac-Toe server starting ===")

	cfg := LoadConfig()
	log.Printf("listen_addr=%s db_path=%s", cfg.ListenAddr, cfg.DBPath)

	store, err := openStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	hub := newHub(cfg, store)
	hub.start()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		serveWs(hub, w, r)
	})
	mux.HandleFunc("/matches", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hub.handleCreateMatch(w, r)
	})
	mux.HandleFunc("/matches/reset", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		hub.handleReset(w, r)
	})
	mux.HandleFunc("/matchmaking/enqueue", hub.handleMatchmakingEnqueue)
	mux.HandleFunc("/matchmaking/leave", hub.handleMatchmakingLeave)
	mux.HandleFunc("/matchmaking/status", hub.handleMatchmakingStatus)

	server := &http.Server{Addr: cfg.ListenAddr, Handler: mux}

	go func() {
		log.Printf("=== Super Tic-Tac-Toe server listening on %s ===", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("=== shutdown signal received ===")
	hub.shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	if err := store.close(); err != nil {
		log.Printf("store close: %v", err)
	}
	log.Println("=== Super Tic-Tac-Toe server stopped ===")
}
