package handler

import (
	"os"
	"testing"

	"github.com/orderbridge/backend/internal/interfaces/http/middleware"
)

// TestMain mirrors production startup (cmd/server/main.go), which registers
// the JSON tag-name function before any request binding. The validator caches
// struct field names on first use, so registration must happen before any
// test binds a request struct.
func TestMain(m *testing.M) {
	middleware.SetupValidator()
	os.Exit(m.Run())
}
