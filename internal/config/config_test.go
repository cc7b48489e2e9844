package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("SAFELAYER_HOME", home)
	t.Chdir(t.TempDir())
	for _, k := range []string{EnvPolicy, EnvAuditPath, EnvAuditBackend, EnvRedisAddr, EnvRedisPassword,
		EnvRedisKey, EnvPostgresDSN, EnvLogLevel, EnvMode, EnvListenAddr} {
		t.Setenv(k, "")
	}
	return home
}

func TestLoad_Defaults(t *testing.T) {
	home := isolate(t)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)

	assert.Equal(t, home, cfg.ConfigDir)
	assert.Equal(t, filepath.Join(home, DefaultPolicyFile), cfg.PolicyPath)
	assert.Equal(t, filepath.Join(home, DefaultLogFile), cfg.Audit.Path)
	assert.Equal(t, BackendFile, cfg.Audit.Backend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, DefaultListenAddr, cfg.ListenAddr)
	assert.Empty(t, cfg.Mode)
}

func TestLoad_EnvThenFlags(t *testing.T) {
	isolate(t)
	t.Setenv(EnvPolicy, "/env/policy.yaml")
	t.Setenv(EnvAuditBackend, "MEMORY")
	t.Setenv(EnvMode, "fail_fast")

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "/env/policy.yaml", cfg.PolicyPath)
	assert.Equal(t, BackendMemory, cfg.Audit.Backend)
	assert.Equal(t, "fail_fast", cfg.Mode)

	cfg, err = Load(Overrides{PolicyPath: "/flag/policy.yaml", Mode: "warn_continue"})
	require.NoError(t, err)
	assert.Equal(t, "/flag/policy.yaml", cfg.PolicyPath)
	assert.Equal(t, "warn_continue", cfg.Mode)
}

func TestLoad_DotEnv(t *testing.T) {
	isolate(t)
	require.NoError(t, writeDotEnv("SAFELAYER_LOG_LEVEL=debug\n"))
	// t.Setenv registered an empty value; godotenv does not override set
	// variables, so unset it for this case.
	unsetenv(t, EnvLogLevel)

	cfg, err := Load(Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"ok", Config{Audit: AuditConfig{Backend: BackendFile}}, ""},
		{"bad backend", Config{Audit: AuditConfig{Backend: "s3"}}, "unknown audit backend"},
		{"bad mode", Config{Mode: "yolo", Audit: AuditConfig{Backend: BackendFile}}, "unknown mode"},
		{"postgres without dsn", Config{Audit: AuditConfig{Backend: BackendPostgres}}, EnvPostgresDSN},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}
