package canvas

import (
	"encoding/json"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"pixelboard/internal/stats"
	"pixelboard/internal/types"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = (pongWait * 9) / 10
	maxMessageSize = 1024
)

// authWait bounds how long a connection may sit without completing the auth
// handshake. Pongs do not extend it, only authentication does.
var authWait = 10 * time.Second

// Client is one viewer connection. It subscribes to the canvas only after the
// first message on the wire is a valid auth handshake for the session user.
type Client struct {
	conn         *websocket.Conn
	canvasServer *CanvasServer
	log          *log.Logger
	stats        stats.StatsProvider
	user         types.User
	sessionId    string
	send         chan *ServerMessage
	authed       bool
	stop         chan struct{}
}

func NewClient(user types.User, sessionId string, conn *websocket.Conn, cs *CanvasServer, l *log.Logger, su stats.StatsProvider) *Client {
	return &Client{
		conn:         conn,
		canvasServer: cs,
		log:          l,
		stats:        su,
		user:         user,
		sessionId:    sessionId,
		send:         make(chan *ServerMessage, 256),
		stop:         make(chan struct{}),
	}
}

func (c *Client) Write() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
		c.log.Printf("write exiting for %q", c.sessionId)
	}()

	for {
		select {
		case msg, ok := <-c.send:
			if !ok {
				return
			}

			if !c.writeServerMessage(msg) {
				return
			}
		case <-c.stop:
			// flush anything already queued, the logout message in particular
			for {
				select {
				case msg := <-c.send:
					if !c.writeServerMessage(msg) {
						return
					}
				default:
					return
				}
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !c.sendMessage(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (c *Client) Read() {
	defer func() {
		c.conn.Close()
		c.cleanup()
		c.log.Printf("read exiting for %q", c.sessionId)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(authWait))
	c.conn.SetPongHandler(func(appData string) error {
		if c.authed {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
		return nil
	})
	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.log.Printf("ws: read: %v", err)
			}
			break
		}

		var msg ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.log.Println("error parsing message:", err)
			c.queueMessage(ErrInvalidMessage(-1))
			continue
		}

		msg.client = c

		switch {
		case msg.Auth != nil:
			c.handleAuth(&msg)
		default:
			c.queueMessage(ErrInvalidMessage(msg.Id))
		}

		if c.authed {
			c.conn.SetReadDeadline(time.Now().Add(pongWait))
		}
	}
}

// handleAuth validates the handshake against the session user and subscribes
// the connection to the canvas. The init snapshot is sent by the server on
// registration.
func (c *Client) handleAuth(msg *ClientMessage) {
	if msg.Auth.UserId != c.user.Id {
		c.log.Printf("auth mismatch on %q: handshake user %d, session user %d",
			c.sessionId, msg.Auth.UserId, c.user.Id)
		c.queueMessage(ErrUnauthorized(msg.Id))
		c.stopClient()
		return
	}

	if c.authed {
		// duplicate handshake, nothing to do
		c.queueMessage(NoErrOK(msg.Id, nil))
		return
	}

	c.authed = true
	select {
	case c.canvasServer.RegisterChan <- c:
	case <-c.canvasServer.done:
	}
}

func (c *Client) queueMessage(msg *ServerMessage) bool {
	select {
	case c.send <- msg:
	default:
		c.log.Printf("dropping message for %q, channel is full", c.sessionId)
		c.stats.Incr(statDroppedMessages)
		return false
	}

	return true
}

func serializeMessage(msg *ServerMessage) ([]byte, error) {
	return json.Marshal(msg)
}

func (c *Client) writeServerMessage(msg *ServerMessage) bool {
	bytes, err := serializeMessage(msg)
	if err != nil {
		c.log.Println("failed to serialize message:", err)
		return true
	}

	return c.sendMessage(websocket.TextMessage, bytes)
}

func (c *Client) sendMessage(msgType int, msg []byte) bool {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))

	if err := c.conn.WriteMessage(msgType, msg); err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure,
			websocket.CloseNormalClosure) {
			c.log.Printf("write message: %s", err)
		}
		return false
	}

	return true
}

func (c *Client) stopClient() {
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Client) cleanup() {
	if c.authed {
		select {
		case c.canvasServer.deRegisterChan <- c:
		case <-c.canvasServer.done:
		}
	}
	c.stopClient()
}
