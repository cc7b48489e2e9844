package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/slkreddy/SafeLayer/internal/audit"
	"github.com/slkreddy/SafeLayer/internal/config"
	"github.com/slkreddy/SafeLayer/internal/guard"
	"github.com/slkreddy/SafeLayer/internal/guards"
	"github.com/slkreddy/SafeLayer/internal/logger"
	"github.com/slkreddy/SafeLayer/internal/manager"
	"github.com/slkreddy/SafeLayer/internal/policy"
)

// redisRetries bounds the initial connection attempts to Redis.
const redisRetries = 5

func (g *globalFlags) config(listenAddr string) (*config.Config, error) {
	cfg, err := config.Load(config.Overrides{
		PolicyPath: g.policyPath,
		AuditPath:  g.auditPath,
		Backend:    g.backend,
		Mode:       g.mode,
		LogLevel:   g.logLevel,
		ListenAddr: listenAddr,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cfg *config.Config, w io.Writer) zerolog.Logger {
	return logger.New(cfg.LogLevel, w)
}

// openStore connects the configured audit backend.
func openStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (audit.Store, error) {
	switch cfg.Audit.Backend {
	case config.BackendMemory:
		return audit.NewMemoryStore(), nil
	case config.BackendRedis:
		client, err := audit.DialRedis(ctx, cfg.Audit.RedisAddr, cfg.Audit.RedisPassword, redisRetries, log)
		if err != nil {
			return nil, err
		}
		return audit.NewRedisStore(client, cfg.Audit.RedisKey), nil
	case config.BackendPostgres:
		return audit.OpenPostgresStore(ctx, cfg.Audit.PostgresDSN)
	default:
		return audit.OpenFileStore(cfg.Audit.Path)
	}
}

func openLog(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*audit.Log, error) {
	log = logger.Component(log, "audit")
	store, err := openStore(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s audit store: %w", cfg.Audit.Backend, err)
	}
	l, err := audit.Open(ctx, store, audit.WithLogger(log))
	if err != nil {
		store.Close()
		return nil, err
	}
	return l, nil
}

// loadPolicy reads the policy file and merges installed packs into it.
// Packs that fail to parse are logged and skipped.
func loadPolicy(cfg *config.Config, log zerolog.Logger) (*policy.Policy, []policy.PackInfo, error) {
	pol, err := policy.Load(cfg.PolicyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load policy: %w", err)
	}
	if err := policy.Validate(pol); err != nil {
		return nil, nil, fmt.Errorf("invalid policy %s: %w", cfg.PolicyPath, err)
	}

	pol, infos, err := policy.LoadPacks(cfg.PacksDir, pol)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load packs: %w", err)
	}
	for _, info := range infos {
		if info.Err != nil {
			log.Warn().Err(info.Err).Str("pack", info.Path).Msg("skipping malformed pack")
		}
	}
	return pol, infos, nil
}

// selectGuards builds the named guards, or every built-in guard the policy
// configures when names is empty.
func selectGuards(names []string, pol *policy.Policy, log zerolog.Logger) ([]guard.Guard, error) {
	if len(names) > 0 {
		return guards.Build(names, pol)
	}
	gs, unknown, err := guards.ForPolicy(pol)
	if err != nil {
		return nil, err
	}
	for _, id := range unknown {
		log.Warn().Str("guard_id", id).Msg("policy entry names no built-in guard")
	}
	return gs, nil
}

func newManager(l *audit.Log, cfg *config.Config, log zerolog.Logger) *manager.Manager {
	return manager.New(l,
		manager.WithLogger(logger.Component(log, "manager")),
		manager.WithDefaultMode(policy.Mode(cfg.Mode)),
	)
}
