package canvas

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"pixelboard/internal/database"
	"pixelboard/internal/stats"
	"pixelboard/internal/testutil"
	"pixelboard/internal/types"
)

// newTestCanvasServer creates a CanvasServer backed by mocks with an empty
// starting canvas.
func newTestCanvasServer(t *testing.T, db *database.MockPixelBoardRepository, su *stats.MockStatsUpdater) *CanvasServer {
	su.On("RegisterMetric", mock.Anything).Return().Times(4)
	db.On("CanvasPixels").Return([]database.PixelAction{}, nil).Once()
	db.On("CountPaintedPixels").Return(0, nil).Once()

	cs, err := NewCanvasServer(testutil.TestLogger(t), db, su, 250, 250)
	if err != nil {
		t.Fatalf("failed to create test CanvasServer: %v", err)
	}
	return cs
}

func newTestClient(t *testing.T, cs *CanvasServer, userId, bufSize int) *Client {
	return &Client{
		canvasServer: cs,
		log:          testutil.TestLogger(t),
		stats:        &stats.MockStatsUpdater{},
		user:         types.User{Id: userId, Username: "testuser"},
		sessionId:    "test-session",
		send:         make(chan *ServerMessage, bufSize),
		stop:         make(chan struct{}),
	}
}

func TestNewCanvasServer(t *testing.T) {
	db := &database.MockPixelBoardRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)

	placed := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	db.On("CanvasPixels").Return([]database.PixelAction{
		{Id: 1, X: 5, Y: 5, Color: "#E50000", AccountId: 1, CreatedAt: placed},
		{Id: 2, X: 6, Y: 6, Color: "#02BE01", AccountId: 2, CreatedAt: placed},
	}, nil).Once()
	db.On("CountPaintedPixels").Return(2, nil).Once()

	cs, err := NewCanvasServer(testutil.TestLogger(t), db, su, 250, 250)
	assert.NoError(t, err, "expected no error creating CanvasServer")
	assert.NotNil(t, cs, "expected CanvasServer to be non-nil")
	assert.Equal(t, 2, cs.TotalPixels(), "expected total pixels to match the stored count")

	snapshot := cs.Snapshot()
	assert.Equal(t, 2, snapshot.TotalPixels, "expected snapshot total to match")
	assert.Equal(t, 250, snapshot.Width, "expected snapshot width to match")
	assert.Equal(t, 250, snapshot.Height, "expected snapshot height to match")
	assert.Len(t, snapshot.Pixels, 2, "expected snapshot to contain the stored pixels")
}

func TestNewCanvasServerLoadError(t *testing.T) {
	db := &database.MockPixelBoardRepository{}
	defer db.AssertExpectations(t)

	su := &stats.MockStatsUpdater{}
	su.On("RegisterMetric", mock.Anything).Return().Times(4)

	db.On("CanvasPixels").Return([]database.PixelAction{}, assert.AnError).Once()

	cs, err := NewCanvasServer(testutil.TestLogger(t), db, su, 250, 250)
	assert.Error(t, err, "expected error when loading canvas state fails")
	assert.Nil(t, cs, "expected no CanvasServer on error")
}

func Test_applyPixel(t *testing.T) {
	su := &stats.MockStatsUpdater{}
	cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, su)
	su.On("Incr", statPixelsPlaced).Return().Twice()

	cs.applyPixel(types.Pixel{X: 5, Y: 5, Color: "#E50000", UserId: 1})
	assert.Equal(t, 1, cs.TotalPixels(), "expected a new coordinate to increment the total")

	// overwriting a painted coordinate must not grow the unique-coordinate total
	cs.applyPixel(types.Pixel{X: 5, Y: 5, Color: "#02BE01", UserId: 2})
	assert.Equal(t, 1, cs.TotalPixels(), "expected an overwrite to keep the total unchanged")

	snapshot := cs.Snapshot()
	assert.Len(t, snapshot.Pixels, 1, "expected one painted coordinate")
	assert.Equal(t, "#02BE01", snapshot.Pixels[0].Color, "expected last write to win on the coordinate")

	su.AssertExpectations(t)
}

func Test_broadcastPixel(t *testing.T) {
	cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})

	healthy := newTestClient(t, cs, 1, 4)
	blocked := newTestClient(t, cs, 2, 1)
	blockedStats := &stats.MockStatsUpdater{}
	blockedStats.On("Incr", statDroppedMessages).Return().Once()
	blocked.stats = blockedStats
	blocked.send <- &ServerMessage{} // fill the buffer so delivery drops

	cs.addClient(healthy)
	cs.addClient(blocked)

	pixel := types.Pixel{X: 5, Y: 5, Color: "#E50000", UserId: 1, Timestamp: Now()}
	cs.broadcastPixel(pixel)

	// per-connection order: the placement precedes the authoritative count
	select {
	case msg := <-healthy.send:
		assert.NotNil(t, msg.UpdatePixel, "expected first message to be the placement")
		assert.Equal(t, pixel.X, msg.UpdatePixel.X, "expected pixel x to match")
		assert.Equal(t, pixel.Color, msg.UpdatePixel.Color, "expected pixel color to match")
	default:
		t.Fatal("expected a placement message for the healthy client")
	}

	select {
	case msg := <-healthy.send:
		assert.NotNil(t, msg.PixelCount, "expected second message to be the count")
	default:
		t.Fatal("expected a count message for the healthy client")
	}

	// the blocked client only holds the pre-filled message, nothing more
	assert.Len(t, blocked.send, 1, "expected no deliveries to the blocked client")
	blockedStats.AssertExpectations(t)
}

func Test_handleKick(t *testing.T) {
	cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})

	kicked := newTestClient(t, cs, 1, 4)
	kickedToo := newTestClient(t, cs, 1, 4)
	bystander := newTestClient(t, cs, 2, 4)

	cs.addClient(kicked)
	cs.addClient(kickedToo)
	cs.addClient(bystander)

	cs.handleKick(kickReq{userId: 1, reason: "account banned"})

	for _, c := range []*Client{kicked, kickedToo} {
		select {
		case msg := <-c.send:
			assert.NotNil(t, msg.Logout, "expected a logout message for the kicked client")
			assert.Equal(t, "account banned", msg.Logout.Reason, "expected logout reason to match")
		default:
			t.Fatal("expected a logout message for the kicked client")
		}

		select {
		case <-c.stop:
			// closed as expected
		default:
			t.Error("expected kicked client's stop channel to be closed")
		}
	}

	assert.Empty(t, bystander.send, "expected no messages for other users' clients")
	select {
	case <-bystander.stop:
		t.Error("expected bystander's stop channel to remain open")
	default:
	}
}

func TestRunRegisterPublishDeregister(t *testing.T) {
	db := &database.MockPixelBoardRepository{}
	su := &stats.MockStatsUpdater{}
	su.On("Incr", mock.Anything).Return()
	su.On("Decr", mock.Anything).Return()
	cs := newTestCanvasServer(t, db, su)

	go cs.Run()

	client := newTestClient(t, cs, 1, 8)
	cs.RegisterChan <- client

	select {
	case msg := <-client.send:
		assert.NotNil(t, msg.Init, "expected the subscriber to receive an init snapshot")
		assert.Zero(t, msg.Init.TotalPixels, "expected an empty canvas in the snapshot")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for init snapshot")
	}

	cs.BroadcastPixel(types.Pixel{X: 1, Y: 2, Color: "#E50000", UserId: 1, Timestamp: Now()})

	select {
	case msg := <-client.send:
		assert.NotNil(t, msg.UpdatePixel, "expected the placement to be fanned out")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for placement")
	}

	select {
	case msg := <-client.send:
		assert.NotNil(t, msg.PixelCount, "expected the authoritative count after the placement")
		assert.Equal(t, 1, msg.PixelCount.TotalPixels, "expected total to reflect the placement")
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for count")
	}

	cs.deRegisterChan <- client

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, cs.Shutdown(ctx), "expected shutdown to complete")
}

func TestShutdownTimeout(t *testing.T) {
	cs := newTestCanvasServer(t, &database.MockPixelBoardRepository{}, &stats.MockStatsUpdater{})

	// Run is intentionally not started, so done never closes
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := cs.Shutdown(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded, "expected shutdown to give up with the context")
}
