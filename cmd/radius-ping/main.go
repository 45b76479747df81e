// Command radius-ping probes the configured RADIUS servers. It exits 0 if
// at least one of them answers, 1 if none does, and 2 when the
// configuration cannot be loaded. It reads the same configuration as the
// server and is meant for container health checks.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Halvra/cas/pkg/config"
	"github.com/Halvra/cas/pkg/debug"
	"github.com/Halvra/cas/pkg/failover"
	"github.com/Halvra/cas/pkg/radius"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	timeout := flag.Duration("timeout", 30*time.Second, "overall probe deadline")
	flag.Parse()

	os.Exit(run(*configPath, *timeout))
}

func run(configPath string, timeout time.Duration) int {
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Error("loading config", "error", err)
		return 2
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var first string
	hook := func(_ context.Context, ev failover.Event) {
		slog.Info("probe", "server", ev.Server, "outcome", ev.Outcome.Kind.String(), "elapsed", ev.Elapsed)
		if ev.Decision == failover.Stop && first == "" {
			first = ev.Server
		}
	}

	servers := radius.Servers(cfg.RADIUS.Endpoints())
	if failover.Probe(ctx, servers, failover.WithHook(hook)) {
		fmt.Printf("reachable: %s\n", first)
		return 0
	}
	fmt.Printf("unreachable: none of %d servers answered\n", len(servers))
	return 1
}
