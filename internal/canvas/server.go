package canvas

import (
	"context"
	"log"
	"sync"

	"pixelboard/internal/database"
	"pixelboard/internal/stats"
	"pixelboard/internal/types"
)

const (
	statActiveConnections = "ActiveConnections"
	statTotalConnections  = "TotalConnections"
	statPixelsPlaced      = "PixelsPlaced"
	statDroppedMessages   = "DroppedMessages"
)

type coord struct {
	X int
	Y int
}

// CanvasServer owns the live canvas state and fans accepted placements out to
// every subscribed viewer. All state transitions happen on the Run goroutine;
// per-client delivery goes through buffered send channels, so one slow viewer
// never stalls the rest.
type CanvasServer struct {
	log            *log.Logger
	db             database.PixelBoardRepository
	stats          stats.StatsProvider
	width          int
	height         int
	clients        map[*Client]struct{}
	userMap        map[int]map[*Client]struct{}
	RegisterChan   chan *Client
	deRegisterChan chan *Client
	publishChan    chan types.Pixel
	kickChan       chan kickReq
	grid           map[coord]types.Pixel
	totalPixels    int
	stateLock      sync.RWMutex
	stop           chan struct{}
	done           chan struct{}
}

type kickReq struct {
	userId int
	reason string
}

func NewCanvasServer(logger *log.Logger, db database.PixelBoardRepository, su stats.StatsProvider, width, height int) (*CanvasServer, error) {
	cs := &CanvasServer{
		log:            logger,
		db:             db,
		stats:          su,
		width:          width,
		height:         height,
		clients:        make(map[*Client]struct{}),
		userMap:        make(map[int]map[*Client]struct{}),
		RegisterChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		publishChan:    make(chan types.Pixel, 256),
		kickChan:       make(chan kickReq),
		grid:           make(map[coord]types.Pixel),
		stop:           make(chan struct{}),
		done:           make(chan struct{}),
	}

	su.RegisterMetric(statActiveConnections)
	su.RegisterMetric(statTotalConnections)
	su.RegisterMetric(statPixelsPlaced)
	su.RegisterMetric(statDroppedMessages)

	if err := cs.loadState(); err != nil {
		return nil, err
	}

	return cs, nil
}

// loadState rebuilds the in-memory grid from the store so a restarted server
// serves snapshots consistent with committed placements.
func (cs *CanvasServer) loadState() error {
	actions, err := cs.db.CanvasPixels()
	if err != nil {
		return err
	}

	count, err := cs.db.CountPaintedPixels()
	if err != nil {
		return err
	}

	cs.stateLock.Lock()
	defer cs.stateLock.Unlock()

	for _, a := range actions {
		cs.grid[coord{a.X, a.Y}] = types.Pixel{
			X:         a.X,
			Y:         a.Y,
			Color:     a.Color,
			UserId:    a.AccountId,
			Timestamp: a.CreatedAt,
		}
	}
	cs.totalPixels = count

	return nil
}

func (cs *CanvasServer) Run() {
	for {
		select {
		case client := <-cs.RegisterChan:
			cs.log.Printf("adding connection %q for %q", client.sessionId, client.user.Username)
			cs.addClient(client)
			cs.stats.Incr(statActiveConnections)
			cs.stats.Incr(statTotalConnections)
			client.queueMessage(cs.initMessage())
		case client := <-cs.deRegisterChan:
			cs.log.Printf("removing connection %q for %q", client.sessionId, client.user.Username)
			cs.removeClient(client)
			cs.stats.Decr(statActiveConnections)
		case pixel := <-cs.publishChan:
			cs.applyPixel(pixel)
			cs.broadcastPixel(pixel)
		case req := <-cs.kickChan:
			cs.handleKick(req)
		case <-cs.stop:
			cs.log.Println("shutting down connections")
			for c := range cs.clients {
				c.stopClient()
			}

			close(cs.done)
			return
		}
	}
}

// BroadcastPixel publishes a committed placement to all subscribers. The
// caller must only invoke it after the write transaction has committed.
func (cs *CanvasServer) BroadcastPixel(pixel types.Pixel) {
	select {
	case cs.publishChan <- pixel:
	case <-cs.stop:
	}
}

// KickUser pushes a logout message to every connection owned by the user and
// closes them. Used by moderation when an account is banned.
func (cs *CanvasServer) KickUser(userId int, reason string) {
	select {
	case cs.kickChan <- kickReq{userId: userId, reason: reason}:
	case <-cs.stop:
	}
}

// Snapshot returns the current full canvas state.
func (cs *CanvasServer) Snapshot() *Init {
	cs.stateLock.RLock()
	defer cs.stateLock.RUnlock()

	pixels := make([]types.Pixel, 0, len(cs.grid))
	for _, p := range cs.grid {
		pixels = append(pixels, p)
	}

	return &Init{
		TotalPixels: cs.totalPixels,
		Width:       cs.width,
		Height:      cs.height,
		Pixels:      pixels,
	}
}

// TotalPixels returns the count of distinct coordinates ever painted.
func (cs *CanvasServer) TotalPixels() int {
	cs.stateLock.RLock()
	defer cs.stateLock.RUnlock()
	return cs.totalPixels
}

func (cs *CanvasServer) initMessage() *ServerMessage {
	return &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		Init:        cs.Snapshot(),
	}
}

func (cs *CanvasServer) applyPixel(pixel types.Pixel) {
	cs.stateLock.Lock()
	defer cs.stateLock.Unlock()

	key := coord{pixel.X, pixel.Y}
	if _, painted := cs.grid[key]; !painted {
		// the total counts unique coordinates, not paint events
		cs.totalPixels++
	}
	cs.grid[key] = pixel

	cs.stats.Incr(statPixelsPlaced)
}

// broadcastPixel delivers the placement followed by the authoritative count so
// optimistic client-side increments always reconcile. Both messages go through
// the same per-client channel, preserving per-connection order.
func (cs *CanvasServer) broadcastPixel(pixel types.Pixel) {
	update := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		UpdatePixel: &pixel,
	}
	count := &ServerMessage{
		BaseMessage: BaseMessage{Timestamp: Now()},
		PixelCount:  &PixelCount{TotalPixels: cs.TotalPixels()},
	}

	for client := range cs.clients {
		if !client.queueMessage(update) {
			continue
		}
		client.queueMessage(count)
	}
}

func (cs *CanvasServer) handleKick(req kickReq) {
	clients, ok := cs.userMap[req.userId]
	if !ok {
		return
	}

	cs.log.Printf("kicking %d connection(s) for user %d", len(clients), req.userId)
	msg := LogoutMessage(req.reason)
	for c := range clients {
		c.queueMessage(msg)
		c.stopClient()
	}
}

func (cs *CanvasServer) addClient(c *Client) {
	cs.clients[c] = struct{}{}
	if cs.userMap[c.user.Id] == nil {
		cs.userMap[c.user.Id] = make(map[*Client]struct{})
	}
	cs.userMap[c.user.Id][c] = struct{}{}
}

func (cs *CanvasServer) removeClient(c *Client) {
	delete(cs.clients, c)

	if userClients, ok := cs.userMap[c.user.Id]; ok {
		delete(userClients, c)
		if len(userClients) == 0 {
			delete(cs.userMap, c.user.Id)
		}
	}
}

func (cs *CanvasServer) Shutdown(ctx context.Context) error {
	close(cs.stop)

	select {
	case <-cs.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
