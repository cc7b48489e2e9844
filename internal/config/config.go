package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultConfigDir  = ".safelayer"
	DefaultPolicyFile = "policy.yaml"
	DefaultLogFile    = "audit.jsonl"
	DefaultPacksDir   = "packs"
	DefaultListenAddr = ":8080"
)

// Audit backends.
const (
	BackendFile     = "file"
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
)

// Backends lists the accepted values of Config.Backend.
var Backends = []string{BackendFile, BackendMemory, BackendRedis, BackendPostgres}

// Environment variables read by Load.
const (
	EnvPolicy        = "SAFELAYER_POLICY"
	EnvAuditPath     = "SAFELAYER_AUDIT_PATH"
	EnvAuditBackend  = "SAFELAYER_AUDIT_BACKEND"
	EnvRedisAddr     = "SAFELAYER_REDIS_ADDR"
	EnvRedisPassword = "SAFELAYER_REDIS_PASSWORD"
	EnvRedisKey      = "SAFELAYER_REDIS_KEY"
	EnvPostgresDSN   = "SAFELAYER_POSTGRES_DSN"
	EnvLogLevel      = "SAFELAYER_LOG_LEVEL"
	EnvMode          = "SAFELAYER_MODE"
	EnvListenAddr    = "SAFELAYER_LISTEN_ADDR"
)

type Config struct {
	PolicyPath string
	PacksDir   string
	ConfigDir  string
	Mode       string
	LogLevel   string
	ListenAddr string
	Audit      AuditConfig
}

// AuditConfig selects and configures the audit store.
type AuditConfig struct {
	Backend       string
	Path          string
	RedisAddr     string
	RedisPassword string
	RedisKey      string
	PostgresDSN   string
}

// Overrides carries values given on the command line. Empty fields fall
// through to the environment, then to defaults.
type Overrides struct {
	PolicyPath string
	AuditPath  string
	Backend    string
	Mode       string
	LogLevel   string
	ListenAddr string
}

// Load builds the configuration. A .env file in the working directory is
// read first if present; variables already set in the environment win.
func Load(o Overrides) (*Config, error) {
	_ = godotenv.Load()

	configDir := os.Getenv("SAFELAYER_HOME")
	if configDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		configDir = filepath.Join(homeDir, DefaultConfigDir)
	}

	if err := ensureDir(configDir); err != nil {
		return nil, err
	}

	cfg := &Config{
		ConfigDir:  configDir,
		PolicyPath: first(o.PolicyPath, os.Getenv(EnvPolicy), filepath.Join(configDir, DefaultPolicyFile)),
		PacksDir:   filepath.Join(configDir, DefaultPacksDir),
		Mode:       first(o.Mode, os.Getenv(EnvMode)),
		LogLevel:   first(o.LogLevel, os.Getenv(EnvLogLevel), "info"),
		ListenAddr: first(o.ListenAddr, os.Getenv(EnvListenAddr), DefaultListenAddr),
		Audit: AuditConfig{
			Backend:       strings.ToLower(first(o.Backend, os.Getenv(EnvAuditBackend), BackendFile)),
			Path:          first(o.AuditPath, os.Getenv(EnvAuditPath), filepath.Join(configDir, DefaultLogFile)),
			RedisAddr:     first(os.Getenv(EnvRedisAddr), "localhost:6379"),
			RedisPassword: os.Getenv(EnvRedisPassword),
			RedisKey:      os.Getenv(EnvRedisKey),
			PostgresDSN:   os.Getenv(EnvPostgresDSN),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if !slices.Contains(Backends, c.Audit.Backend) {
		return fmt.Errorf("unknown audit backend %q (expected one of %s)", c.Audit.Backend, strings.Join(Backends, ", "))
	}
	switch c.Mode {
	case "", "fail_fast", "warn_continue":
	default:
		return fmt.Errorf("unknown mode %q (expected fail_fast or warn_continue)", c.Mode)
	}
	if c.Audit.Backend == BackendPostgres && c.Audit.PostgresDSN == "" {
		return fmt.Errorf("%s must be set for the postgres audit backend", EnvPostgresDSN)
	}
	return nil
}

func first(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func ensureDir(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, 0700)
	}
	return nil
}
