package service

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain enables goroutine leak detection for all tests in this package.
// This catches pacing loops and grace waits that outlive Close.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
