// Package subscriber implements the viewer side of the canvas stream: one
// connection, an auth handshake, a typed message loop and a connectivity
// probe that runs independently of message receipt.
package subscriber

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"pixelboard/internal/canvas"
	"pixelboard/internal/types"
)

type ConnState int

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateConnected
	StateError
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	handshakeTimeout = 10 * time.Second
	livenessTimeout  = 90 * time.Second
	livenessInterval = 5 * time.Second
)

type Subscriber struct {
	log    *log.Logger
	url    string
	userId int
	header http.Header

	mu          sync.Mutex
	conn        *websocket.Conn
	started     bool
	state       ConnState
	totalPixels int
	lastSeen    time.Time

	// OnPixel, if set before Connect, is invoked for every placement received.
	OnPixel func(types.Pixel)
	// OnLogout, if set before Connect, is invoked when the server orders a
	// terminal teardown.
	OnLogout func(reason string)

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func NewSubscriber(logger *log.Logger, url string, userId int, header http.Header) *Subscriber {
	return &Subscriber{
		log:    logger,
		url:    url,
		userId: userId,
		header: header,
		state:  StateDisconnected,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Connect dials the server, performs the auth handshake and starts the receive
// and liveness loops. It returns once the subscriber has entered the connected
// state.
func (s *Subscriber) Connect(ctx context.Context) error {
	s.setState(StateConnecting)

	dialer := &websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, s.url, s.header)
	if err != nil {
		s.setState(StateError)
		return fmt.Errorf("dial %s: %w", s.url, err)
	}

	authMsg := &canvas.ClientMessage{
		BaseMessage: canvas.BaseMessage{Timestamp: canvas.Now()},
		Auth:        &canvas.Auth{UserId: s.userId},
	}
	if err := conn.WriteJSON(authMsg); err != nil {
		conn.Close()
		s.setState(StateError)
		return fmt.Errorf("send auth handshake: %w", err)
	}

	s.mu.Lock()
	s.conn = conn
	s.started = true
	s.lastSeen = time.Now()
	s.mu.Unlock()
	s.setState(StateConnected)

	conn.SetPingHandler(func(appData string) error {
		s.touch()
		return conn.WriteControl(websocket.PongMessage, []byte(appData), time.Now().Add(time.Second))
	})

	go s.readLoop(conn)
	go s.observeLiveness(conn)

	return nil
}

// Close tears the connection down deterministically: the liveness ticker is
// released, the connection closed and the receive loop drained before return.
func (s *Subscriber) Close() error {
	s.teardown(StateDisconnected)

	s.mu.Lock()
	started := s.started
	s.mu.Unlock()
	if started {
		<-s.done
	}
	return nil
}

// State reports the connection state machine's current position.
func (s *Subscriber) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TotalPixels returns the last known total. It is updated optimistically on
// every placement and reconciled by each authoritative count.
func (s *Subscriber) TotalPixels() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totalPixels
}

// Alive reports whether the connection has shown any sign of life recently.
// A connection can be open but silent, so this is tracked separately from
// message receipt.
func (s *Subscriber) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateConnected && time.Since(s.lastSeen) < livenessTimeout
}

func (s *Subscriber) readLoop(conn *websocket.Conn) {
	defer close(s.done)

	for {
		var msg canvas.ServerMessage
		if err := conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.stop:
				// deliberate teardown, keep the state set by the closer
			default:
				s.log.Printf("connection lost: %v", err)
				s.teardown(StateError)
			}
			return
		}

		s.touch()
		s.handleMessage(&msg)
	}
}

func (s *Subscriber) handleMessage(msg *canvas.ServerMessage) {
	switch {
	case msg.Init != nil:
		s.mu.Lock()
		s.totalPixels = msg.Init.TotalPixels
		s.mu.Unlock()
	case msg.PixelCount != nil:
		s.mu.Lock()
		s.totalPixels = msg.PixelCount.TotalPixels
		s.mu.Unlock()
	case msg.UpdatePixel != nil:
		s.mu.Lock()
		s.totalPixels++
		s.mu.Unlock()

		if s.OnPixel != nil {
			s.OnPixel(*msg.UpdatePixel)
		}
	case msg.Logout != nil:
		s.log.Printf("server ordered logout: %s", msg.Logout.Reason)
		if s.OnLogout != nil {
			s.OnLogout(msg.Logout.Reason)
		}
		s.teardown(StateDisconnected)
	case msg.Response != nil && msg.Response.Error != "":
		s.log.Printf("server error response: %d %s", msg.Response.ResponseCode, msg.Response.Error)
	}
}

func (s *Subscriber) observeLiveness(conn *websocket.Conn) {
	ticker := time.NewTicker(livenessInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !s.Alive() && s.State() == StateConnected {
				s.log.Println("connection silent past liveness timeout")
				s.teardown(StateError)
				return
			}
		case <-s.stop:
			return
		}
	}
}

func (s *Subscriber) teardown(state ConnState) {
	s.stopOnce.Do(func() {
		close(s.stop)

		s.mu.Lock()
		conn := s.conn
		s.state = state
		s.mu.Unlock()

		if conn != nil {
			conn.Close()
		}
	})
}

func (s *Subscriber) touch() {
	s.mu.Lock()
	s.lastSeen = time.Now()
	s.mu.Unlock()
}

func (s *Subscriber) setState(state ConnState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}
