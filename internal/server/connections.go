package server

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog/log"
)

var (
	errClientClosed  = errors.New("client closed")
	errSendQueueFull = errors.New("send queue full")
)

// client is one admitted socket. Frames are queued by Send and written by
// writePump, so room broadcasts never wait on the network.
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	done        chan struct{}
	closeOnce   sync.Once
	closeCode   websocket.StatusCode
	closeReason string
}

func newClient(id string, conn *websocket.Conn, buffer int) *client {
	return &client{
		id:        id,
		conn:      conn,
		send:      make(chan []byte, buffer),
		done:      make(chan struct{}),
		closeCode: websocket.StatusNormalClosure,
	}
}

func (c *client) ID() string { return c.id }

// Send queues data without blocking. A client whose queue is full is
// shut down; its handler then removes it from the room.
// Why not block: Send runs under the room lock, so one stalled reader
// would hold up every other member of the room.
func (c *client) Send(data []byte) error {
	select {
	case <-c.done:
		return errClientClosed
	default:
	}

	select {
	case c.send <- data:
		return nil
	default:
		log.Warn().Str("module", "server.connections").Str("conn", c.id).Msg("send queue full, closing slow client")
		c.shutdown(websocket.StatusPolicyViolation, "Send queue overflow")
		return errSendQueueFull
	}
}

// shutdown marks the client closed. Only the first call's code is kept.
func (c *client) shutdown(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		c.closeReason = reason
		close(c.done)
	})
}

func (c *client) closed() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// writePump writes queued frames until ctx ends or the client is shut down.
func (c *client) writePump(ctx context.Context, timeout time.Duration) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case data := <-c.send:
			writeCtx, cancel := context.WithTimeout(ctx, timeout)
			err := c.conn.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug().Err(err).Str("module", "server.connections").Str("conn", c.id).Msg("write failed")
				c.shutdown(websocket.StatusGoingAway, "Write failed")
				return
			}
		}
	}
}

type ConnectionManager struct {
	connections map[string]*client // connectionID → client
	mu          sync.RWMutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*client),
	}
}

func (cm *ConnectionManager) AddConnection(c *client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[c.id] = c
}

func (cm *ConnectionManager) RemoveConnection(id string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, id)
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll asks every client to close with the given status and returns
// how many were asked.
func (cm *ConnectionManager) CloseAll(code websocket.StatusCode, reason string) int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	for _, c := range cm.connections {
		c.shutdown(code, reason)
	}
	return len(cm.connections)
}
