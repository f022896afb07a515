package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/aqarlink/crm/pkg/models"
)

const (
	clientBufferSize  = 100
	heartbeatInterval = 30 * time.Second
)

// Hub fans notifications out to connected SSE clients. A user may hold
// several connections (browser tabs); each gets its own channel.
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[chan models.Notification]bool
}

// NewHub creates an empty SSE hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]map[chan models.Notification]bool),
	}
}

// Push delivers a notification to every live connection of its target
// user. It reports whether at least one connection received it. Blocked
// channels are skipped rather than waited on.
func (h *Hub) Push(notification models.Notification) bool {
	email := strings.ToLower(notification.TargetUserEmail)

	h.mu.Lock()
	defer h.mu.Unlock()

	delivered := false
	for ch := range h.clients[email] {
		select {
		case ch <- notification:
			delivered = true
		default:
		}
	}
	return delivered
}

// ClientCount returns the number of open connections for a user.
func (h *Hub) ClientCount(email string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[strings.ToLower(email)])
}

// Serve streams notifications for one user over SSE until the client
// disconnects. A comment line is written every heartbeat interval to
// keep intermediaries from closing the connection.
func (h *Hub) Serve(c echo.Context, email string) error {
	c.Response().Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Flush()

	ch := h.subscribe(email)

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer func() {
		cancel()
		h.unsubscribe(email, ch)
	}()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case notification := <-ch:
			data, err := json.Marshal(notification)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(c.Response(), "data: %s\n\n", data); err != nil {
				return err
			}
			c.Response().Flush()
		case <-heartbeat.C:
			if _, err := fmt.Fprintf(c.Response(), ":\n\n"); err != nil {
				return err
			}
			c.Response().Flush()
		}
	}
}

func (h *Hub) subscribe(email string) chan models.Notification {
	email = strings.ToLower(email)
	ch := make(chan models.Notification, clientBufferSize)

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[email] == nil {
		h.clients[email] = make(map[chan models.Notification]bool)
	}
	h.clients[email][ch] = true
	return ch
}

func (h *Hub) unsubscribe(email string, ch chan models.Notification) {
	email = strings.ToLower(email)

	h.mu.Lock()
	defer h.mu.Unlock()
	if conns, ok := h.clients[email]; ok {
		delete(conns, ch)
		if len(conns) == 0 {
			delete(h.clients, email)
		}
	}
	close(ch)
}
