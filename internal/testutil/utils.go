package testutil

import (
	"log"
	"os"
	"testing"
)

// TestLogger returns a logger tagged with the running test's name so output
// from hub and connection goroutines stays attributable.
func TestLogger(t *testing.T) *log.Logger {
	return log.New(os.Stderr, "["+t.Name()+"] ", log.LstdFlags)
}
