// Command server runs the radiusmfa verification gateway.
//
// Configuration is read from a YAML file (-config, RADIUSMFA_CONFIG,
// ./config.yaml or /etc/radiusmfa/config.yaml) with RADIUSMFA_* environment
// overrides. The most common variables:
//
//	RADIUSMFA_RADIUS_SERVERS          - JSON array of RADIUS servers
//	RADIUSMFA_FAILOVER_ON_REJECTION   - try the next server after a reject
//	RADIUSMFA_FAILOVER_ON_UNREACHABLE - try the next server after a timeout
//	RADIUSMFA_PORT                    - listen port (default: 8080)
//	RADIUSMFA_AUTH_TYPE               - "none", "apikey" or "jwt" (default: "none")
//	RADIUSMFA_AUDIT                   - "none", "memory" or "postgres" (default: "memory")
//	RADIUSMFA_LOG_LEVEL               - TRACE, DEBUG, INFO, WARN, ERROR
//	RADIUSMFA_DEBUG                   - comma-separated debug categories
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Halvra/cas/pkg/audit"
	"github.com/Halvra/cas/pkg/audit/memory"
	"github.com/Halvra/cas/pkg/audit/postgres"
	"github.com/Halvra/cas/pkg/auth"
	"github.com/Halvra/cas/pkg/auth/apikey"
	"github.com/Halvra/cas/pkg/auth/jwt"
	"github.com/Halvra/cas/pkg/auth/noop"
	"github.com/Halvra/cas/pkg/config"
	"github.com/Halvra/cas/pkg/debug"
	"github.com/Halvra/cas/pkg/failover"
	"github.com/Halvra/cas/pkg/mfa"
	"github.com/Halvra/cas/pkg/observability"
	"github.com/Halvra/cas/pkg/radius"
	transporthttp "github.com/Halvra/cas/pkg/transport/http"
)

func main() {
	configPath := flag.String("config", "", "path to the YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	debug.Init(cfg.Logging.Debug, cfg.Logging.Level, cfg.Logging.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	orch := newOrchestrator(cfg.RADIUS)

	store, err := newAuditStore(ctx, cfg.Audit)
	if err != nil {
		return err
	}
	svcOpts := []mfa.Option{mfa.WithLogger(slog.Default())}
	if store != nil {
		defer store.Close()
		svcOpts = append(svcOpts, mfa.WithAuditStore(store))
	}
	svc := mfa.New(orch, svcOpts...)

	chain, err := newAuthChain(ctx, cfg.Auth)
	if err != nil {
		return err
	}

	var limiter auth.RateLimiter
	if rl := cfg.Auth.RateLimit; rl.RequestsPerMinute > 0 || len(rl.Tiers) > 0 {
		tiers := make(map[string]auth.TierConfig, len(rl.Tiers))
		for name, t := range rl.Tiers {
			tiers[name] = auth.TierConfig{RequestsPerMinute: t.RequestsPerMinute}
		}
		limiter = auth.NewInProcessLimiter(tiers, rl.RequestsPerMinute)
		slog.Info("rate limiting enabled", "requests_per_minute", rl.RequestsPerMinute, "tiers", len(tiers))
	}

	bypass := []string{"/healthz", "/readyz"}
	handlerOpts := []transporthttp.HandlerOption{}
	if m := cfg.Observability.Metrics; m.Enabled {
		bypass = append(bypass, m.Path)
		handlerOpts = append(handlerOpts, transporthttp.WithMetrics(m.Path, promhttp.Handler()))
	}
	handlerOpts = append(handlerOpts, transporthttp.WithAuth(auth.Middleware(chain, limiter, bypass)))

	srv := transporthttp.NewServer(
		transporthttp.NewHandler(svc, handlerOpts...),
		transporthttp.WithAddr(":"+strconv.Itoa(cfg.Server.Port)),
		transporthttp.WithReadTimeout(cfg.Server.ReadTimeout),
		transporthttp.WithWriteTimeout(cfg.Server.WriteTimeout),
		transporthttp.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		transporthttp.WithLogger(slog.Default()),
	)
	return srv.Run(ctx)
}

func newOrchestrator(rc config.RADIUSConfig) *failover.Authenticator {
	endpoints := rc.Endpoints()
	if len(endpoints) == 0 {
		slog.Warn("no RADIUS servers configured, every verification will fail")
	}
	for _, ep := range endpoints {
		slog.Info("radius server configured", "server", ep.String())
	}

	policy := failover.Policy{
		ContinueOnRejection:   rc.FailoverOnRejection,
		ContinueOnUnreachable: rc.FailoverOnUnreachable,
	}
	slog.Info("failover policy",
		"on_rejection", policy.ContinueOnRejection,
		"on_unreachable", policy.ContinueOnUnreachable)

	return failover.New(radius.Servers(endpoints), policy, failover.WithHook(observability.Hook()))
}

func newAuditStore(ctx context.Context, ac config.AuditConfig) (audit.Store, error) {
	switch ac.Type {
	case "memory":
		slog.Info("audit enabled", "type", "memory", "max_size", ac.MaxSize)
		return memory.New(ac.MaxSize), nil
	case "postgres":
		store, err := postgres.New(ctx, postgres.Config{
			DSN:            ac.Postgres.DSN,
			MaxConns:       ac.Postgres.MaxConns,
			MigrateOnStart: ac.Postgres.MigrateOnStart,
		})
		if err != nil {
			return nil, fmt.Errorf("creating postgres audit store: %w", err)
		}
		slog.Info("audit enabled", "type", "postgres", "max_conns", ac.Postgres.MaxConns)
		return store, nil
	default:
		slog.Info("audit disabled")
		return nil, nil
	}
}

func newAuthChain(ctx context.Context, ac config.AuthConfig) (*auth.Chain, error) {
	switch ac.Type {
	case "apikey":
		entries := make([]apikey.RawKeyEntry, 0, len(ac.APIKeys))
		for _, k := range ac.APIKeys {
			entries = append(entries, apikey.RawKeyEntry{
				Key: k.Key,
				Identity: auth.Identity{
					Subject:     k.Subject,
					ServiceTier: k.ServiceTier,
					TenantID:    k.TenantID,
				},
			})
		}
		slog.Info("authentication enabled", "type", "apikey", "keys", len(entries))
		return principalChain(ac, auth.No, apikey.New(entries)), nil
	case "jwt":
		a, err := jwt.New(ctx, jwt.Config{
			Issuer:      ac.JWT.Issuer,
			Audience:    ac.JWT.Audience,
			JWKSURL:     ac.JWT.JWKSURL,
			UserClaim:   ac.JWT.UserClaim,
			TenantClaim: ac.JWT.TenantClaim,
			ScopesClaim: ac.JWT.ScopesClaim,
			TierClaim:   ac.JWT.TierClaim,
		})
		if err != nil {
			return nil, fmt.Errorf("creating jwt authenticator: %w", err)
		}
		slog.Info("authentication enabled", "type", "jwt", "issuer", ac.JWT.Issuer)
		return principalChain(ac, auth.No, a), nil
	default:
		slog.Warn("authentication disabled, trusting user header", "header", ac.UserHeader)
		return principalChain(ac, auth.Yes, &noop.Authenticator{UserHeader: ac.UserHeader}), nil
	}
}

// principalChain wraps authenticators in a chain that applies the configured
// username mapping and default tier.
func principalChain(ac config.AuthConfig, fallback auth.Decision, authns ...auth.Authenticator) *auth.Chain {
	return &auth.Chain{
		Authenticators:  authns,
		DefaultDecision: fallback,
		Username: auth.UsernameMapping{
			StripRealm: ac.Username.StripRealm,
			Case:       ac.Username.Case,
			Prefix:     ac.Username.Prefix,
			Suffix:     ac.Username.Suffix,
		},
		DefaultTier: ac.DefaultTier,
	}
}
