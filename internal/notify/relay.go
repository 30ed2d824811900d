// Package notify forwards change events to Redis so other processes (a
// static site rebuilder, a cache purger) can react. Delivery is
// fire-and-forget.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"go-portfolio-cms/internal/event"
	"go-portfolio-cms/internal/metrics"
)

const publishTimeout = 2 * time.Second

// Dial parses url and checks the server is reachable.
func Dial(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return client, nil
}

type Relay struct {
	client  redis.UniversalClient
	channel string
	bus     event.Bus
	metrics *metrics.Metrics
	wg      sync.WaitGroup
}

func NewRelay(client redis.UniversalClient, channel string, bus event.Bus, m *metrics.Metrics) *Relay {
	return &Relay{client: client, channel: channel, bus: bus, metrics: m}
}

// Start subscribes to the bus before returning, so no event published after
// Start is missed. The relay runs until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) {
	events, unsubscribe := r.bus.Subscribe()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer unsubscribe()

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				r.forward(ctx, e)
			}
		}
	}()
}

// Wait blocks until the relay loop has exited.
func (r *Relay) Wait() {
	r.wg.Wait()
}

func (r *Relay) forward(ctx context.Context, e event.Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		slog.Error("failed to marshal event for relay", "type", e.Type, "error", err)
		r.metrics.EventRelayed(false)
		return
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if err := r.client.Publish(pubCtx, r.channel, payload).Err(); err != nil {
		slog.Warn("failed to relay event", "type", e.Type, "channel", r.channel, "error", err)
		r.metrics.EventRelayed(false)
		return
	}

	r.metrics.EventRelayed(true)
}
