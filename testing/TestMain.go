// Package testing switches the binaries into test mode when imported by
// their tests, so main() returns before touching Redis or PostgreSQL.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("APP_TEST_MODE", "1")
		if os.Getenv("GOTENBERG_URL") == "" {
			_ = os.Setenv("GOTENBERG_URL", "http://127.0.0.1:0")
		}
		if os.Getenv("N8N_WEBHOOK_URL") == "" {
			_ = os.Setenv("N8N_WEBHOOK_URL", "http://127.0.0.1:0/webhook")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be reused by packages that need test mode before m.Run.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
