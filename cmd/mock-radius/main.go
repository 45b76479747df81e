// Command mock-radius runs a deterministic RADIUS server for local
// development and end-to-end testing of the gateway.
//
// Configuration:
//
//	MOCK_ADDR   - UDP listen address (default: ":1812")
//	MOCK_SECRET - Shared secret (default: "testing123")
//	MOCK_USERS  - Accepted pairs, "user:token,..." (default: "alice:123456")
//	MOCK_MODE   - "users", "reject", "challenge" or "drop" (default: "users")
//	MOCK_REPLY  - Reply-Message added to accepts (optional)
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Halvra/cas/pkg/radius/radiustest"
)

func main() {
	mode, err := radiustest.ParseMode(os.Getenv("MOCK_MODE"))
	if err != nil {
		slog.Error("invalid MOCK_MODE", "error", err)
		os.Exit(1)
	}
	users, err := radiustest.ParseUsers(envOrDefault("MOCK_USERS", "alice:123456"))
	if err != nil {
		slog.Error("invalid MOCK_USERS", "error", err)
		os.Exit(1)
	}

	l, err := radiustest.Listen(envOrDefault("MOCK_ADDR", ":1812"), envOrDefault("MOCK_SECRET", "testing123"), &radiustest.Server{
		Mode:  mode,
		Users: users,
		Reply: os.Getenv("MOCK_REPLY"),
	})
	if err != nil {
		slog.Error("mock radius failed", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("mock radius starting", "addr", l.Addr(), "mode", mode, "users", len(users))
	<-ctx.Done()

	slog.Info("mock radius shutting down", "requests", l.Requests())
	l.Close()
}

func envOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
