package main

import (
	"os"
	"strconv"
	"time"
)

// Config is loaded entirely from the environment, following korjavin-virusgame's
// cmd/bot-hoster/config.go getEnv pattern, generalized from two settings to
// the full tunable set below, with explicit defaults (§4.5, §4.6, §4.7, §4.2).
type Config struct {
	ListenAddr string
	DBPath     string

	PingInterval     time.Duration
	PongTimeout      time.Duration
	MaxConnsPerMatch int

	BotReplyDelay    time.Duration
	BotDeadline      time.Duration
	DefaultSearchDepth int

	MatchReapInterval     time.Duration
	QueueReapInterval     time.Duration
	MatchTerminalTTL      time.Duration
	QueueMaxAge           time.Duration
	ParticipantAFKTimeout time.Duration

	ResetSettleDelay time.Duration
}

func LoadConfig() *Config {
	return &Config{
		ListenAddr: getEnv("LISTEN_ADDR", ":8080"),
		DBPath:     getEnv("DB_PATH", "./data/sttt.db"),

		PingInterval:     getEnvDuration("PING_INTERVAL", 30*time.Second),
		PongTimeout:      getEnvDuration("PONG_TIMEOUT", 90*time.Second),
		MaxConnsPerMatch: getEnvInt("MAX_CONNS_PER_MATCH", 100),

		BotReplyDelay:      getEnvDuration("BOT_REPLY_DELAY", 500*time.Millisecond),
		BotDeadline:        getEnvDuration("BOT_DEADLINE", 3*time.Second),
		DefaultSearchDepth: getEnvInt("BOT_SEARCH_DEPTH", 2),

		MatchReapInterval:     getEnvDuration("MATCH_REAP_INTERVAL", 30*time.Minute),
		QueueReapInterval:     getEnvDuration("QUEUE_REAP_INTERVAL", 5*time.Minute),
		MatchTerminalTTL:      getEnvDuration("MATCH_TERMINAL_TTL", 1*time.Hour),
		QueueMaxAge:           getEnvDuration("QUEUE_MAX_AGE", 10*time.Minute),
		ParticipantAFKTimeout: getEnvDuration("PARTICIPANT_AFK_TIMEOUT", 2*time.Minute),

		ResetSettleDelay: getEnvDuration("RESET_SETTLE_DELAY", 750*time.Millisecond),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
