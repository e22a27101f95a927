package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Connection is a peer socket bound to (match-id, participant-id), per
// §3. Read/write pump shape follows gorilla/websocket's canonical
// chat-room example, which is also the pattern korjavin-virusgame's hub.go assumes
// of its (unretrieved) Client type: a buffered outbound channel drained by
// a dedicated writer goroutine, so a slow peer's socket write never blocks
// the reader or the match executor.
type Connection struct {
	ws            *websocket.Conn
	matchID       string
	participantID string

	outbox chan []byte

	lastPing    time.Time
	lastPong    time.Time
	pingCount   int
	missedPongs int

	closeOnce sync.Once
	closed    chan struct{}
}

const outboxCapacity = 32

func newConnection(ws *websocket.Conn, matchID, participantID string) *Connection {
	now := time.Now()
	return &Connection{
		ws:            ws,
		matchID:       matchID,
		participantID: participantID,
		outbox:        make(chan []byte, outboxCapacity),
		lastPing:      now,
		lastPong:      now,
		closed:        make(chan struct{}),
	}
}

// enqueue submits data for delivery without blocking. It reports false if
// the connection is closed or its outbound queue is full (overflow is
// treated as a dead peer per §4.5).
func (c *Connection) enqueue(data []byte) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.outbox <- data:
		return true
	default:
		return false
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		c.ws.Close()
	})
}

// writePump drains outbox to the socket in arrival order, giving FIFO
// per-connection delivery (§5).
func (c *Connection) writePump() {
	for {
		select {
		case data, ok := <-c.outbox:
			if !ok {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}
		case <-c.closed:
			return
		}
	}
}

// readPump decodes client frames and routes them to the bound match's
// executor via hub.dispatch, until the socket errors or closes.
func (c *Connection) readPump(hub *Hub) {
	defer func() {
		hub.handleDisconnect(c)
		c.close()
	}()
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}
		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("connection %s/%s: malformed frame: %v", c.matchID, c.participantID, err)
			continue
		}
		hub.dispatch(c, &msg)
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// serveWs upgrades the HTTP request to the bidirectional message channel
// (§6.1) and binds the resulting Connection to the match/user pair
// named by the game_id/user_id query parameters.
func serveWs(hub *Hub, w http.ResponseWriter, r *http.Request) {
	matchID := r.URL.Query().Get("game_id")
	userID := r.URL.Query().Get("user_id")

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	conn := newConnection(ws, matchID, userID)
	go conn.writePump()
	hub.handleConnect(conn)
	conn.readPump(hub)
}
