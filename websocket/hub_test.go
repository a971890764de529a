package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	events   []Event
	fail     bool
	stall    bool
	closed   bool
	deadline time.Time
}

func (f *fakeConn) SetWriteDeadline(t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deadline = t
	return nil
}

// WriteJSON on a stalled conn blocks until the write deadline, like a peer
// that stopped reading.
func (f *fakeConn) WriteJSON(v interface{}) error {
	f.mu.Lock()
	if f.stall {
		deadline := f.deadline
		f.mu.Unlock()
		if deadline.IsZero() {
			select {}
		}
		time.Sleep(time.Until(deadline))
		return errors.New("i/o timeout")
	}
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broken pipe")
	}
	f.events = append(f.events, v.(Event))
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func startHub(t *testing.T) (*Hub, context.CancelFunc) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)
	t.Cleanup(cancel)
	return hub, cancel
}

func TestHubRoutesEventsByAudience(t *testing.T) {
	hub, _ := startHub(t)

	owner := uuid.New()
	adminConn, ownerConn, otherConn := &fakeConn{}, &fakeConn{}, &fakeConn{}
	hub.Register(&Client{UserID: uuid.New(), IsAdmin: true, Conn: adminConn})
	hub.Register(&Client{UserID: owner, Conn: ownerConn})
	hub.Register(&Client{UserID: uuid.New(), Conn: otherConn})

	hub.Publish(Event{Type: EventPayoutSubmitted, OwnerID: owner})
	hub.Publish(Event{Type: EventPayoutRejected, OwnerID: owner})
	hub.Publish(Event{Type: EventPayoutApproved, OwnerID: owner})

	require.Eventually(t, func() bool { return len(adminConn.types()) == 3 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return len(otherConn.types()) == 1 }, time.Second, 5*time.Millisecond)

	assert.Equal(t, []string{EventPayoutSubmitted, EventPayoutRejected, EventPayoutApproved}, adminConn.types())
	assert.Equal(t, []string{EventPayoutRejected, EventPayoutApproved}, ownerConn.types())
	assert.Equal(t, []string{EventPayoutApproved}, otherConn.types())
}

func TestHubDropsBrokenClients(t *testing.T) {
	hub, _ := startHub(t)

	broken := &fakeConn{fail: true}
	hub.Register(&Client{UserID: uuid.New(), Conn: broken})
	hub.Publish(Event{Type: EventPayoutApproved})

	require.Eventually(t, broken.isClosed, time.Second, 5*time.Millisecond)
}

func TestHubClosesClientsOnShutdown(t *testing.T) {
	hub, cancel := startHub(t)

	conn := &fakeConn{}
	hub.Register(&Client{UserID: uuid.New(), Conn: conn})
	cancel()

	require.Eventually(t, conn.isClosed, time.Second, 5*time.Millisecond)

	// Calls after shutdown return instead of blocking.
	hub.Register(&Client{UserID: uuid.New(), Conn: &fakeConn{}})
	hub.Publish(Event{Type: EventPayoutApproved})
}

func TestHubStalledClientDoesNotBlockOthers(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	hub := NewHub()
	hub.writeTimeout = 50 * time.Millisecond
	go hub.Run(ctx)

	stalled, healthy := &fakeConn{stall: true}, &fakeConn{}
	hub.Register(&Client{UserID: uuid.New(), Conn: stalled})
	hub.Publish(Event{Type: EventPayoutApproved})

	require.Eventually(t, stalled.isClosed, time.Second, 5*time.Millisecond)

	hub.Register(&Client{UserID: uuid.New(), Conn: healthy})
	hub.Publish(Event{Type: EventPayoutApproved})
	require.Eventually(t, func() bool { return len(healthy.types()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestHubSetsWriteDeadline(t *testing.T) {
	hub, _ := startHub(t)

	conn := &fakeConn{}
	hub.Register(&Client{UserID: uuid.New(), Conn: conn})
	before := time.Now()
	hub.Publish(Event{Type: EventPayoutApproved})

	require.Eventually(t, func() bool { return len(conn.types()) == 1 }, time.Second, 5*time.Millisecond)
	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.True(t, conn.deadline.After(before.Add(defaultWriteTimeout-time.Second)))
}
