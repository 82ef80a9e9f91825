// Package config loads npcgraph settings from YAML or JSON files and the
// environment.
//
// Files are decoded into a raw map first and then into Settings, so keys
// use snake_case and durations may be written as "30s" strings:
//
//	provider: genai
//	model: gemini-2.5-flash
//	turn_timeout: 45s
//	store:
//	  backend: sqlite
//	  path: npc.db
//
// Missing keys keep their Defaults value.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	npcerrors "github.com/randalmurphal/npcgraph/pkg/npcgraph/errors"
)

// Providers.
const (
	ProviderGenAI   = "genai"
	ProviderCommand = "command"
	ProviderMock    = "mock"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Settings is the full runtime configuration.
type Settings struct {
	Provider    string  `mapstructure:"provider" yaml:"provider" json:"provider"`
	Model       string  `mapstructure:"model" yaml:"model" json:"model"`
	Temperature float64 `mapstructure:"temperature" yaml:"temperature" json:"temperature"`
	APIKey      string  `mapstructure:"api_key" yaml:"api_key" json:"-"`
	Command     string  `mapstructure:"command" yaml:"command" json:"command"`

	Retry Retry `mapstructure:"retry" yaml:"retry" json:"retry"`

	HistoryWindow      int           `mapstructure:"history_window" yaml:"history_window" json:"history_window"`
	TurnTimeout        time.Duration `mapstructure:"turn_timeout" yaml:"turn_timeout" json:"turn_timeout"`
	MaxConcurrentTurns int           `mapstructure:"max_concurrent_turns" yaml:"max_concurrent_turns" json:"max_concurrent_turns"`

	Store Store `mapstructure:"store" yaml:"store" json:"store"`

	PersonaFile  string `mapstructure:"persona_file" yaml:"persona_file" json:"persona_file"`
	LoreFile     string `mapstructure:"lore_file" yaml:"lore_file" json:"lore_file"`
	RelationsDir string `mapstructure:"relations_dir" yaml:"relations_dir" json:"relations_dir"`

	HTTP HTTP `mapstructure:"http" yaml:"http" json:"http"`
}

// Retry configures provider retries.
type Retry struct {
	MaxAttempts    int           `mapstructure:"max_attempts" yaml:"max_attempts" json:"max_attempts"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff" json:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff" yaml:"max_backoff" json:"max_backoff"`
	AttemptTimeout time.Duration `mapstructure:"attempt_timeout" yaml:"attempt_timeout" json:"attempt_timeout"`
}

// Store selects and configures the thread store.
type Store struct {
	Backend     string `mapstructure:"backend" yaml:"backend" json:"backend"`
	Path        string `mapstructure:"path" yaml:"path" json:"path"`
	RedisAddr   string `mapstructure:"redis_addr" yaml:"redis_addr" json:"redis_addr"`
	RedisPrefix string `mapstructure:"redis_prefix" yaml:"redis_prefix" json:"redis_prefix"`
	MaxRecords  int    `mapstructure:"max_records" yaml:"max_records" json:"max_records"`
}

// HTTP configures the JSON API server.
type HTTP struct {
	Addr string `mapstructure:"addr" yaml:"addr" json:"addr"`
}

// Defaults returns the settings used when nothing is configured.
func Defaults() Settings {
	return Settings{
		Provider:    ProviderGenAI,
		Model:       "gemini-2.5-flash",
		Temperature: 0.7,
		Command:     "claude",
		Retry: Retry{
			MaxAttempts:    npcerrors.DefaultRetry.MaxAttempts,
			InitialBackoff: npcerrors.DefaultRetry.InitialBackoff,
			MaxBackoff:     npcerrors.DefaultRetry.MaxBackoff,
			AttemptTimeout: 30 * time.Second,
		},
		HistoryWindow:      50,
		TurnTimeout:        60 * time.Second,
		MaxConcurrentTurns: 16,
		Store: Store{
			Backend:     BackendMemory,
			Path:        "npcgraph.db",
			RedisAddr:   "localhost:6379",
			RedisPrefix: "npcgraph",
			MaxRecords:  200,
		},
		HTTP: HTTP{Addr: ":8080"},
	}
}

// Validate checks the settings are usable.
func (s Settings) Validate() error {
	var errs []error
	switch s.Provider {
	case ProviderGenAI:
		if s.APIKey == "" {
			errs = append(errs, errors.New("provider genai requires an api key (NPCGRAPH_API_KEY or GEMINI_API_KEY)"))
		}
	case ProviderCommand:
		if strings.TrimSpace(s.Command) == "" {
			errs = append(errs, errors.New("provider command requires a command"))
		}
	case ProviderMock:
	default:
		errs = append(errs, fmt.Errorf("unknown provider %q", s.Provider))
	}

	if s.Temperature < 0 || s.Temperature > 2 {
		errs = append(errs, fmt.Errorf("temperature %.2f outside [0,2]", s.Temperature))
	}
	if s.Retry.MaxAttempts < 1 {
		errs = append(errs, errors.New("retry.max_attempts must be at least 1"))
	}
	if s.HistoryWindow < 1 {
		errs = append(errs, errors.New("history_window must be positive"))
	}
	if s.TurnTimeout <= 0 {
		errs = append(errs, errors.New("turn_timeout must be positive"))
	}
	if s.MaxConcurrentTurns < 1 {
		errs = append(errs, errors.New("max_concurrent_turns must be positive"))
	}

	switch s.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if s.Store.Path == "" {
			errs = append(errs, errors.New("store.path is required for sqlite"))
		}
	case BackendRedis:
		if s.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", s.Store.Backend))
	}
	return errors.Join(errs...)
}

// RetryConfig converts the retry settings for llm.Retrying.
func (s Settings) RetryConfig() npcerrors.RetryConfig {
	return npcerrors.NewRetryConfig(
		npcerrors.WithMaxAttempts(s.Retry.MaxAttempts),
		npcerrors.WithInitialBackoff(s.Retry.InitialBackoff),
		npcerrors.WithMaxBackoff(s.Retry.MaxBackoff),
	)
}
