// Package websocket pushes change events to connected admin dashboards.
package websocket

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync/atomic"

	"go-portfolio-cms/internal/event"
)

// Hub owns the set of attached dashboards. All membership changes happen on
// the Run goroutine, so the map needs no lock.
type Hub struct {
	bus event.Bus

	attach  chan *Client
	detach  chan *Client
	stopped chan struct{}

	members   map[*Client]struct{}
	connected atomic.Int64
}

func NewHub(bus event.Bus) *Hub {
	return &Hub{
		bus:     bus,
		attach:  make(chan *Client),
		detach:  make(chan *Client),
		stopped: make(chan struct{}),
		members: make(map[*Client]struct{}),
	}
}

// Run forwards bus events to every client until ctx is cancelled. Slow
// clients are dropped rather than allowed to stall the broadcast.
func (h *Hub) Run(ctx context.Context) {
	events, unsubscribe := h.bus.Subscribe()
	defer func() {
		unsubscribe()
		for c := range h.members {
			h.remove(c)
		}
		close(h.stopped)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.attach:
			h.members[c] = struct{}{}
			h.connected.Add(1)
		case c := <-h.detach:
			h.remove(c)
		case e, ok := <-events:
			if !ok {
				return
			}
			h.broadcast(e)
		}
	}
}

func (h *Hub) broadcast(e event.Event) {
	var payload []byte
	for c := range h.members {
		if !c.wants(e.Type) {
			continue
		}
		if payload == nil {
			var err error
			if payload, err = json.Marshal(e); err != nil {
				slog.Error("failed to marshal event", "type", e.Type, "error", err)
				return
			}
		}
		select {
		case c.send <- payload:
		default:
			slog.Warn("dropping slow websocket client", "remote", c.remote)
			h.remove(c)
		}
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.members[c]; !ok {
		return
	}
	delete(h.members, c)
	close(c.send)
	h.connected.Add(-1)
}

// Connected reports how many dashboards are currently attached.
func (h *Hub) Connected() int {
	return int(h.connected.Load())
}
