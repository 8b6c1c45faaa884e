package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	_ "github.com/lib/pq"

	"pixelboard/internal/api"
	"pixelboard/internal/canvas"
	"pixelboard/internal/config"
	"pixelboard/internal/database"
	"pixelboard/internal/stats"
)

const defaultSigningKey = "9fYkX1yjLrG2sVd4QaT7wUzBpEhN3mCo6RiKgJ8vOfA="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

func envOr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

var (
	addr           string
	dsn            string
	signingKey     string
	canvasWidth    int
	canvasHeight   int
	allowedOrigins stringSliceFlag
)

func main() {
	logger := log.New(os.Stderr, "[pixelboard] ", log.LstdFlags)

	if err := godotenv.Load(); err != nil {
		logger.Printf("no .env file loaded: %v", err)
	}

	flag.StringVar(&addr, "addr", envOr("PIXELBOARD_ADDR", "localhost:8000"), "server address")
	flag.StringVar(&dsn, "dsn", envOr("PIXELBOARD_DSN",
		"host=localhost user=postgres password=postgres dbname=postgres sslmode=disable"), "database connection string")
	flag.StringVar(&signingKey, "signing-key", envOr("PIXELBOARD_SIGNING_KEY", defaultSigningKey), "base64 encoded signing key")
	flag.IntVar(&canvasWidth, "canvas-width", envIntOr("PIXELBOARD_CANVAS_WIDTH", 0), "canvas width in pixels")
	flag.IntVar(&canvasHeight, "canvas-height", envIntOr("PIXELBOARD_CANVAS_HEIGHT", 0), "canvas height in pixels")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	cfg, err := config.NewConfig(addr, dsn, signingKey, allowedOrigins, canvasWidth, canvasHeight)
	if err != nil {
		logger.Fatal("config:", err)
	}

	clock := clockwork.NewRealClock()

	dbConn, err := database.NewPgPixelBoardRepository(cfg.DatabaseDSN, clock)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux, logger)

	canvasServer, err := canvas.NewCanvasServer(logger, dbConn, statsUpdater, cfg.CanvasWidth, cfg.CanvasHeight)
	if err != nil {
		logger.Fatal("new canvas server:", err)
	}

	srv := api.NewPixelBoardApp(mux, logger, canvasServer, dbConn, statsUpdater, clock, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go canvasServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down canvas server...")
	if err := canvasServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("canvas server shutdown:", err)
	}

	logger.Println("shutdown complete")
}
