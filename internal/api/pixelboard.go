package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/jonboulle/clockwork"
	"github.com/teris-io/shortid"

	"pixelboard/internal/canvas"
	"pixelboard/internal/config"
	"pixelboard/internal/database"
	"pixelboard/internal/stats"
)

type PixelBoardApp struct {
	log               *log.Logger
	db                database.PixelBoardRepository
	mux               *http.Server
	cs                *canvas.CanvasServer
	stats             stats.StatsProvider
	clock             clockwork.Clock
	signingKey        []byte
	allowedOrigins    []string
	canvasWidth       int
	canvasHeight      int
	generateSessionId func() (string, error)
}

func NewPixelBoardApp(mux *http.ServeMux, logger *log.Logger, cs *canvas.CanvasServer,
	db database.PixelBoardRepository, su stats.StatsProvider, clock clockwork.Clock, cfg *config.Config) *PixelBoardApp {
	s := &PixelBoardApp{
		log:               logger,
		db:                db,
		cs:                cs,
		stats:             su,
		clock:             clock,
		signingKey:        cfg.SigningKey,
		allowedOrigins:    cfg.AllowedOrigins,
		canvasWidth:       cfg.CanvasWidth,
		canvasHeight:      cfg.CanvasHeight,
		generateSessionId: shortid.Generate,
	}

	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("GET /api/cooldown", s.authMiddleware(s.cooldownCheck))
	mux.Handle("POST /api/pixels", s.authMiddleware(s.placePixel))
	mux.Handle("GET /api/pixels", s.authMiddleware(s.pixelHistory))
	mux.Handle("GET /api/canvas", s.authMiddleware(s.getCanvas))
	mux.Handle("POST /api/admin/ban", s.authMiddleware(s.banAccount))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))
	mux.HandleFunc("GET /healthz", s.healthCheck)

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *PixelBoardApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *PixelBoardApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
