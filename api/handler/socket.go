package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/ddevcap/mcu-rankings/search"
)

const (
	// wsPingInterval is how often the server pings connected clients.
	wsPingInterval = 30 * time.Second
	// wsReadDeadline is the maximum time to wait for a message or pong before
	// considering the connection dead.
	wsReadDeadline = 90 * time.Second
	wsWriteTimeout = 10 * time.Second
	// wsMaxMessage caps a single client message.
	wsMaxMessage = 4096
)

var upgrader = websocket.Upgrader{
	HandshakeTimeout: 10 * time.Second,
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	// Allow all origins: the socket only reads public catalog titles.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// WSHub tracks all active websocket connections so they can be closed
// during graceful shutdown. Create one in main and pass it to the handler.
type WSHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
	done  chan struct{} // closed on shutdown
	once  sync.Once
}

func NewWSHub() *WSHub {
	return &WSHub{
		conns: make(map[*websocket.Conn]struct{}),
		done:  make(chan struct{}),
	}
}

func (h *WSHub) add(conn *websocket.Conn) {
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()
}

func (h *WSHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Len returns the number of open connections.
func (h *WSHub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Shutdown closes all active connections and signals handlers to exit.
func (h *WSHub) Shutdown() {
	h.once.Do(func() { close(h.done) })
	h.mu.Lock()
	defer h.mu.Unlock()
	for conn := range h.conns {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	h.conns = make(map[*websocket.Conn]struct{})
}

// socketMessage is one client input of the typeahead protocol:
//
//	{"type":"query","query":"iron"}
//	{"type":"key","key":"ArrowDown"}
//	{"type":"select","index":2}
//	{"type":"blur"} / {"type":"focus"}
type socketMessage struct {
	Type  string `json:"type"`
	Query string `json:"query"`
	Key   string `json:"key"`
	Index int    `json:"index"`
}

// Socket handles GET /api/search/ws.
// Each connection owns a search.Session; every state change is written back
// as a search.Event. Only the handler goroutine writes to the connection.
func (h *SearchHandler) Socket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	h.hub.add(conn)
	sess := search.NewSession(c.Request.Context(), h.searcher, h.debounce)
	defer func() {
		sess.Close()
		h.hub.remove(conn)
		_ = conn.Close()
	}()

	conn.SetReadLimit(wsMaxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	readErr := make(chan error, 1)
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
			var msg socketMessage
			if err := json.Unmarshal(raw, &msg); err != nil {
				slog.Debug("ws: ignoring malformed message", "error", err)
				continue
			}
			dispatch(sess, msg)
		}
	}()

	if err := writeEvent(conn, sess.State()); err != nil {
		return
	}

	ticker := time.NewTicker(wsPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.hub.done:
			return
		case ev := <-sess.Events():
			if err := writeEvent(conn, ev); err != nil {
				slog.Debug("ws: write error", "error", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout)); err != nil {
				slog.Debug("ws: ping error", "error", err)
				return
			}
		case err := <-readErr:
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived,
			) {
				slog.Debug("ws: unexpected close", "error", err)
			}
			return
		}
	}
}

func dispatch(sess *search.Session, msg socketMessage) {
	switch msg.Type {
	case "query":
		sess.SetQuery(msg.Query)
	case "key":
		sess.Key(search.Key(msg.Key))
	case "select":
		sess.Select(msg.Index)
	case "blur":
		sess.Blur()
	case "focus":
		sess.Focus()
	default:
		slog.Debug("ws: unknown message type", "type", msg.Type)
	}
}

func writeEvent(conn *websocket.Conn, ev search.Event) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(ev)
}
