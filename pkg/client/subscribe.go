package client

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// Subscribe streams server events into handle until ctx is done. A dropped
// connection is retried after the reconnect delay; after the configured
// number of consecutive failed attempts Subscribe gives up.
func (c *Client) Subscribe(ctx context.Context, handle func(Event)) error {
	failures := 0
	for {
		connected, err := c.listen(ctx, handle)
		if ctx.Err() != nil {
			return nil
		}
		if connected {
			failures = 0
		}
		failures++
		if failures > c.reconnectAttempts {
			return fmt.Errorf("subscribe: giving up after %d attempts: %w", c.reconnectAttempts, err)
		}

		c.log.Warn("client.subscribe: disconnected, reconnecting", "err", err, "attempt", failures, "delay", c.reconnectDelay)
		timer := time.NewTimer(c.reconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// listen runs one connection. connected reports whether the dial succeeded.
func (c *Client) listen(ctx context.Context, handle func(Event)) (bool, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.streamURL(), nil)
	if err != nil {
		return false, fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()
	c.log.Info("client.subscribe: connected", "url", c.streamURL())

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return true, err
		}
		var event Event
		if err := json.Unmarshal(message, &event); err != nil {
			c.log.Warn("client.subscribe: malformed event", "err", err)
			continue
		}
		handle(event)
	}
}
