package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/config"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func env(vars map[string]string) func(string) (string, bool) {
	return func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}
}

// TestDefaults verifies the default settings only lack an api key.
func TestDefaults(t *testing.T) {
	s := config.Defaults()
	assert.Equal(t, config.ProviderGenAI, s.Provider)
	assert.Equal(t, 50, s.HistoryWindow)
	assert.Equal(t, 60*time.Second, s.TurnTimeout)
	assert.Equal(t, 16, s.MaxConcurrentTurns)
	assert.Equal(t, 200, s.Store.MaxRecords)

	assert.ErrorContains(t, s.Validate(), "api key")
	s.APIKey = "k"
	assert.NoError(t, s.Validate())
}

// TestFromFile verifies YAML and JSON files decode over the defaults.
func TestFromFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{"yaml", "npc.yaml", `
provider: mock
turn_timeout: 45s
retry:
  max_attempts: 5
  initial_backoff: 250ms
store:
  backend: sqlite
  path: /tmp/npc.db
http:
  addr: ":9090"
`},
		{"json", "npc.json", `{
  "provider": "mock",
  "turn_timeout": "45s",
  "retry": {"max_attempts": 5, "initial_backoff": "250ms"},
  "store": {"backend": "sqlite", "path": "/tmp/npc.db"},
  "http": {"addr": ":9090"}
}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := config.FromFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)

			assert.Equal(t, config.ProviderMock, s.Provider)
			assert.Equal(t, 45*time.Second, s.TurnTimeout)
			assert.Equal(t, 5, s.Retry.MaxAttempts)
			assert.Equal(t, 250*time.Millisecond, s.Retry.InitialBackoff)
			assert.Equal(t, config.Defaults().Retry.MaxBackoff, s.Retry.MaxBackoff, "unset nested keys keep defaults")
			assert.Equal(t, config.BackendSQLite, s.Store.Backend)
			assert.Equal(t, "/tmp/npc.db", s.Store.Path)
			assert.Equal(t, 200, s.Store.MaxRecords)
			assert.Equal(t, ":9090", s.HTTP.Addr)
			assert.NoError(t, s.Validate())
		})
	}
}

// TestFromFile_Errors verifies bad files are rejected.
func TestFromFile_Errors(t *testing.T) {
	_, err := config.FromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	_, err = config.FromFile(writeFile(t, "npc.toml", "provider = 'mock'"))
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = config.FromFile(writeFile(t, "npc.yaml", "provider: [unclosed"))
	assert.ErrorContains(t, err, "parse yaml")

	_, err = config.FromFile(writeFile(t, "npc.json", "{"))
	assert.ErrorContains(t, err, "parse json")

	_, err = config.FromFile(writeFile(t, "npc.yaml", "provder: mock"))
	assert.ErrorContains(t, err, "decode settings")

	_, err = config.FromFile(writeFile(t, "npc.yaml", "turn_timeout: soon"))
	assert.ErrorContains(t, err, "decode settings")
}

// TestValidate verifies every rule reports its own error.
func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Settings)
		want   string
	}{
		{"unknown provider", func(s *config.Settings) { s.Provider = "openai" }, `unknown provider "openai"`},
		{"command without binary", func(s *config.Settings) { s.Provider = config.ProviderCommand; s.Command = " " }, "requires a command"},
		{"temperature", func(s *config.Settings) { s.Temperature = 3 }, "temperature"},
		{"attempts", func(s *config.Settings) { s.Retry.MaxAttempts = 0 }, "max_attempts"},
		{"window", func(s *config.Settings) { s.HistoryWindow = 0 }, "history_window"},
		{"timeout", func(s *config.Settings) { s.TurnTimeout = 0 }, "turn_timeout"},
		{"concurrency", func(s *config.Settings) { s.MaxConcurrentTurns = 0 }, "max_concurrent_turns"},
		{"backend", func(s *config.Settings) { s.Store.Backend = "mongo" }, `unknown store backend "mongo"`},
		{"sqlite path", func(s *config.Settings) { s.Store.Backend = config.BackendSQLite; s.Store.Path = "" }, "store.path"},
		{"redis addr", func(s *config.Settings) { s.Store.Backend = config.BackendRedis; s.Store.RedisAddr = "" }, "store.redis_addr"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := config.Defaults()
			s.Provider = config.ProviderMock
			tt.mutate(&s)
			assert.ErrorContains(t, s.Validate(), tt.want)
		})
	}
}

// TestApplyEnv verifies environment overrides and their precedence.
func TestApplyEnv(t *testing.T) {
	s := config.Defaults()
	s.ApplyEnv(env(map[string]string{config.EnvGeminiAPIKey: "gemini", config.EnvRedisAddr: "redis:6380"}))
	assert.Equal(t, "gemini", s.APIKey)
	assert.Equal(t, "redis:6380", s.Store.RedisAddr)

	s.ApplyEnv(env(map[string]string{config.EnvAPIKey: "primary", config.EnvGeminiAPIKey: "gemini"}))
	assert.Equal(t, "primary", s.APIKey)

	s = config.Defaults()
	s.APIKey = "from-file"
	s.ApplyEnv(env(map[string]string{config.EnvGeminiAPIKey: "gemini"}))
	assert.Equal(t, "from-file", s.APIKey, "GEMINI_API_KEY does not override a configured key")
}

// TestLoad verifies file, environment and validation are combined.
func TestLoad(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvGeminiAPIKey, "")

	s, err := config.Load(writeFile(t, "npc.yaml", "provider: mock\nhistory_window: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, 10, s.HistoryWindow)

	_, err = config.Load("")
	assert.ErrorContains(t, err, "invalid config")

	t.Setenv(config.EnvAPIKey, "secret")
	s, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", s.APIKey)
}

// TestRetryConfig verifies retry settings carry over.
func TestRetryConfig(t *testing.T) {
	s := config.Defaults()
	s.Retry.MaxAttempts = 4
	s.Retry.InitialBackoff = time.Second
	cfg := s.RetryConfig()
	assert.Equal(t, 4, cfg.MaxAttempts)
	assert.Equal(t, time.Second, cfg.InitialBackoff)
	assert.Equal(t, s.Retry.MaxBackoff, cfg.MaxBackoff)
}
