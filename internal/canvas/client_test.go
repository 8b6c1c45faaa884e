package canvas

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"

	"pixelboard/internal/database"
	"pixelboard/internal/stats"
	"pixelboard/internal/testutil"
	"pixelboard/internal/types"
)

func Test_queueMessage(t *testing.T) {
	cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})

	t.Run("queues when buffer has room", func(t *testing.T) {
		c := newTestClient(t, cs, 1, 1)

		ok := c.queueMessage(NoErrOK(1, nil))
		assert.True(t, ok, "expected message to be queued")
		assert.Len(t, c.send, 1, "expected one queued message")
	})

	t.Run("drops when buffer is full", func(t *testing.T) {
		c := newTestClient(t, cs, 1, 1)
		su := &stats.MockStatsUpdater{}
		su.On("Incr", statDroppedMessages).Return().Once()
		c.stats = su
		c.send <- &ServerMessage{}

		ok := c.queueMessage(NoErrOK(1, nil))
		assert.False(t, ok, "expected message to be dropped")
		assert.Len(t, c.send, 1, "expected buffer contents to be unchanged")
		su.AssertExpectations(t)
	})
}

func Test_handleAuth(t *testing.T) {
	t.Run("mismatched user is rejected and stopped", func(t *testing.T) {
		cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})
		c := newTestClient(t, cs, 1, 4)

		c.handleAuth(&ClientMessage{
			BaseMessage: BaseMessage{Id: 2},
			Auth:        &Auth{UserId: 99},
		})

		assert.False(t, c.authed, "expected client to remain unauthenticated")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg.Response, "expected a response message")
			assert.Equal(t, "unauthorized", msg.Response.Error, "expected unauthorized error")
		default:
			t.Fatal("expected a rejection message")
		}

		select {
		case <-c.stop:
			// closed as expected
		default:
			t.Error("expected client to be stopped")
		}
	})

	t.Run("matching user subscribes to the canvas", func(t *testing.T) {
		cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})
		cs.RegisterChan = make(chan *Client, 1)
		c := newTestClient(t, cs, 1, 4)

		c.handleAuth(&ClientMessage{
			BaseMessage: BaseMessage{Id: 1},
			Auth:        &Auth{UserId: 1},
		})

		assert.True(t, c.authed, "expected client to be authenticated")

		select {
		case registered := <-cs.RegisterChan:
			assert.Same(t, c, registered, "expected the client to be registered")
		default:
			t.Fatal("expected the client on the register channel")
		}
	})

	t.Run("duplicate handshake is acknowledged without re-registering", func(t *testing.T) {
		cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})
		cs.RegisterChan = make(chan *Client, 1)
		c := newTestClient(t, cs, 1, 4)
		c.authed = true

		c.handleAuth(&ClientMessage{
			BaseMessage: BaseMessage{Id: 5},
			Auth:        &Auth{UserId: 1},
		})

		assert.Empty(t, cs.RegisterChan, "expected no second registration")

		select {
		case msg := <-c.send:
			assert.NotNil(t, msg.Response, "expected an acknowledgement")
			assert.Equal(t, 5, msg.Id, "expected the acknowledgement to carry the message id")
			assert.Empty(t, msg.Response.Error, "expected no error")
		default:
			t.Fatal("expected an acknowledgement message")
		}
	})
}

func Test_stopClient(t *testing.T) {
	cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})
	c := newTestClient(t, cs, 1, 1)

	c.stopClient()
	select {
	case <-c.stop:
	default:
		t.Fatal("expected stop channel to be closed")
	}

	// second call must not panic on the closed channel
	c.stopClient()
}

func TestReadRequiresTimelyHandshake(t *testing.T) {
	oldWait := authWait
	authWait = 100 * time.Millisecond
	defer func() { authWait = oldWait }()

	cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("failed to upgrade connection: %v", err)
			return
		}

		c := NewClient(types.User{Id: 1, Username: "testuser"}, "test-session", conn, cs,
			testutil.TestLogger(t), &stats.MockStatsUpdater{})
		go c.Write()
		go c.Read()
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("failed to dial test server: %v", err)
	}
	defer conn.Close()

	// no handshake is sent, so the server must hang up on its own
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "expected the unauthenticated connection to be closed")
}

func Test_cleanup(t *testing.T) {
	t.Run("authed client deregisters", func(t *testing.T) {
		cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})
		cs.deRegisterChan = make(chan *Client, 1)
		c := newTestClient(t, cs, 1, 1)
		c.authed = true

		c.cleanup()

		select {
		case deregistered := <-cs.deRegisterChan:
			assert.Same(t, c, deregistered, "expected the client on the deregister channel")
		default:
			t.Fatal("expected a deregistration")
		}

		select {
		case <-c.stop:
		default:
			t.Error("expected stop channel to be closed")
		}
	})

	t.Run("unauthenticated client skips deregistration", func(t *testing.T) {
		cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})
		cs.deRegisterChan = make(chan *Client, 1)
		c := newTestClient(t, cs, 1, 1)

		c.cleanup()

		assert.Empty(t, cs.deRegisterChan, "expected no deregistration for an unauthenticated client")
	})
}
