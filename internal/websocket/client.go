package websocket

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"go-portfolio-cms/internal/event"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// Client is one dashboard connection. The hub owns send and closes it when
// the client is dropped.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	remote string
	types  map[event.Type]struct{}
}

// wants reports whether the client asked for events of type t. A client
// that named no types receives everything.
func (c *Client) wants(t event.Type) bool {
	if len(c.types) == 0 {
		return true
	}
	_, ok := c.types[t]
	return ok
}

// parseTypes reads a comma separated ?types= filter.
func parseTypes(raw string) map[event.Type]struct{} {
	var types map[event.Type]struct{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part == "" {
			continue
		}
		if types == nil {
			types = make(map[event.Type]struct{})
		}
		types[event.Type(part)] = struct{}{}
	}
	return types
}

// Handler upgrades admin requests to a websocket subscribed to the hub.
// An empty origin list or "*" accepts any origin.
func (h *Hub) Handler(allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}

	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		client := &Client{
			hub:    h,
			conn:   conn,
			send:   make(chan []byte, sendBuffer),
			remote: r.RemoteAddr,
			types:  parseTypes(r.URL.Query().Get("types")),
		}

		select {
		case h.attach <- client:
		case <-h.stopped:
			_ = conn.Close()
			return
		case <-r.Context().Done():
			_ = conn.Close()
			return
		}

		go client.writePump()
		go client.readPump()
	}
}

// readPump only exists to process control frames and notice disconnects.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.detach <- c:
		case <-c.hub.stopped:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Debug("websocket closed unexpectedly", "remote", c.remote, "error", err)
			}
			return
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		origin = strings.TrimSpace(origin)
		if origin == "*" {
			return func(*http.Request) bool { return true }
		}
		if origin != "" {
			set[strings.ToLower(origin)] = struct{}{}
		}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(set) == 0 {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}
