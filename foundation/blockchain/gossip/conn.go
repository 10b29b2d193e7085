package gossip

import (
	"sync"
	"time"

	"github.com/ardanlabs/ledger/foundation/blockchain/state"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// maxMessageSize bounds a single frame. A chain message carries every
	// block so this is generous.
	maxMessageSize = 32 << 20

	// sendBuffer is the number of frames that can wait for a slow peer
	// before new frames are dropped.
	sendBuffer = 64

	writeWait = 10 * time.Second
)

// conn is one websocket connection to a peer. Frames are written in the
// order they are queued by a single writer goroutine.
type conn struct {
	id        string
	host      string
	direction string
	ws        *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
	evHandler state.EventHandler
}

func newConn(ws *websocket.Conn, host string, direction string, evHandler state.EventHandler) *conn {
	ws.SetReadLimit(maxMessageSize)

	return &conn{
		id:        uuid.NewString(),
		host:      host,
		direction: direction,
		ws:        ws,
		send:      make(chan []byte, sendBuffer),
		done:      make(chan struct{}),
		evHandler: evHandler,
	}
}

// enqueue queues the frame without blocking. It reports false when the
// frame was dropped.
func (c *conn) enqueue(data []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// writeOperations writes queued frames until the connection is closed.
func (c *conn) writeOperations() {
	for {
		select {
		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				select {
				case <-c.done:
				default:
					c.evHandler("gossip: writeOperations: peer[%s]: ERROR: %s", c.host, err)
					c.close()
				}
				return
			}

		case <-c.done:
			return
		}
	}
}

// close shuts the connection down, which also ends the read loop.
func (c *conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// closeWithReason tells the peer why the connection is being closed before
// closing it.
func (c *conn) closeWithReason(code int, reason string) {
	c.closeOnce.Do(func() {
		close(c.done)

		msg := websocket.FormatCloseMessage(code, reason)
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		c.ws.Close()
	})
}
