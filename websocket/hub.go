package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const defaultWriteTimeout = 10 * time.Second

const (
	EventPayoutSubmitted = "payout.submitted"
	EventPayoutApproved  = "payout.approved"
	EventPayoutRejected  = "payout.rejected"
)

// Event is pushed to every connected client allowed to see it: submissions
// go to admins, rejections to the owner and admins, approvals to everyone.
type Event struct {
	Type    string    `json:"type"`
	Payout  any       `json:"payout"`
	OwnerID uuid.UUID `json:"-"`
}

type Conn interface {
	WriteJSON(v interface{}) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

type Client struct {
	UserID  uuid.UUID
	IsAdmin bool
	Conn    Conn
}

func (c *Client) wants(e Event) bool {
	switch e.Type {
	case EventPayoutSubmitted:
		return c.IsAdmin
	case EventPayoutRejected:
		return c.IsAdmin || c.UserID == e.OwnerID
	default:
		return true
	}
}

type Hub struct {
	clients    map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan Event
	done       chan struct{}
	once       sync.Once

	// writeTimeout bounds every write so a stalled client cannot hold up the loop.
	writeTimeout time.Duration
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan Event, 64),
		done:       make(chan struct{}),

		writeTimeout: defaultWriteTimeout,
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Publish never blocks the caller; events are dropped when the queue is full.
func (h *Hub) Publish(e Event) {
	select {
	case h.broadcast <- e:
	case <-h.done:
	default:
		log.Warn().Str("type", e.Type).Msg("realtime queue full, event dropped")
	}
}

// Run owns the client set until ctx is cancelled, then closes every
// connection.
func (h *Hub) Run(ctx context.Context) {
	defer h.once.Do(func() { close(h.done) })

	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				_ = c.Conn.Close()
				delete(h.clients, c)
			}
			return
		case c := <-h.register:
			h.clients[c] = struct{}{}
			log.Debug().Str("user_id", c.UserID.String()).Msg("realtime client registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				log.Debug().Str("user_id", c.UserID.String()).Msg("realtime client unregistered")
			}
		case e := <-h.broadcast:
			for c := range h.clients {
				if !c.wants(e) {
					continue
				}
				if err := h.write(c, e); err != nil {
					log.Warn().Err(err).Str("user_id", c.UserID.String()).Msg("realtime write failed, dropping client")
					_ = c.Conn.Close()
					delete(h.clients, c)
				}
			}
		}
	}
}

func (h *Hub) write(c *Client, e Event) error {
	if err := c.Conn.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
		return err
	}
	return c.Conn.WriteJSON(e)
}
