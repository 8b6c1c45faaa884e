package config

import (
	"encoding/base64"
	"fmt"
)

const (
	defaultCanvasWidth  = 250
	defaultCanvasHeight = 250
)

type Config struct {
	DatabaseDSN    string
	ServerAddr     string
	SigningKey     []byte
	AllowedOrigins []string
	CanvasWidth    int
	CanvasHeight   int
}

func decodeSigningSecret(base64Secret string) ([]byte, error) {
	if base64Secret == "" {
		return nil, fmt.Errorf("signing secret cannot be empty")
	}
	return base64.StdEncoding.DecodeString(base64Secret)
}

func NewConfig(serverAddr, databaseDSN, base64Secret string, allowedOrigins []string, canvasWidth, canvasHeight int) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if databaseDSN == "" {
		return nil, fmt.Errorf("database DSN cannot be empty")
	}

	signingKey, err := decodeSigningSecret(base64Secret)
	if err != nil {
		return nil, fmt.Errorf("decode signing secret: %w", err)
	}

	if canvasWidth <= 0 {
		canvasWidth = defaultCanvasWidth
	}
	if canvasHeight <= 0 {
		canvasHeight = defaultCanvasHeight
	}

	return &Config{
		DatabaseDSN:    databaseDSN,
		ServerAddr:     serverAddr,
		SigningKey:     signingKey,
		AllowedOrigins: allowedOrigins,
		CanvasWidth:    canvasWidth,
		CanvasHeight:   canvasHeight,
	}, nil
}
