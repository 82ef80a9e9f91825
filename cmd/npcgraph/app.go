package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/sync/semaphore"

	"github.com/randalmurphal/npcgraph/internal/logging"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/config"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/engine"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/llm"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/lore"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/observability"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/persona"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/relation"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/stages"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/thread"
	"github.com/randalmurphal/npcgraph/pkg/npcgraph/tools"
)

// app is everything a subcommand needs, built from settings.
type app struct {
	settings config.Settings
	logger   *slog.Logger
	store    thread.Store
	manager  *engine.Manager
}

// settingsFor loads the config file and environment, then applies flags.
func settingsFor(flags *globalFlags, lookup func(string) (string, bool)) (config.Settings, error) {
	s := config.Defaults()
	if flags.configPath != "" {
		var err error
		if s, err = config.FromFile(flags.configPath); err != nil {
			return config.Settings{}, err
		}
	}
	s.ApplyEnv(lookup)
	if flags.mock {
		s.Provider = config.ProviderMock
	}
	if err := s.Validate(); err != nil {
		return config.Settings{}, fmt.Errorf("invalid config: %w", err)
	}
	return s, nil
}

func newApp(ctx context.Context, flags *globalFlags, lookup func(string) (string, bool)) (*app, error) {
	level, err := logging.ParseLevel(flags.logLevel)
	if err != nil {
		return nil, err
	}
	logger := logging.New(level)

	s, err := settingsFor(flags, lookup)
	if err != nil {
		return nil, err
	}

	gen, err := buildGenerator(ctx, s, logger)
	if err != nil {
		return nil, err
	}
	store, err := buildStore(s)
	if err != nil {
		return nil, err
	}
	manager, err := buildManager(s, logger, gen, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &app{settings: s, logger: logger, store: store, manager: manager}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func buildGenerator(ctx context.Context, s config.Settings, logger *slog.Logger) (llm.Generator, error) {
	var gen llm.Generator
	switch s.Provider {
	case config.ProviderGenAI:
		g, err := llm.NewGenAI(ctx, s.APIKey,
			llm.WithGenAIModel(s.Model),
			llm.WithGenAITemperature(s.Temperature),
		)
		if err != nil {
			return nil, err
		}
		gen = g
	case config.ProviderCommand:
		fields := strings.Fields(s.Command)
		if len(fields) == 0 {
			return nil, errors.New("provider command requires a command")
		}
		gen = llm.NewCommand(
			llm.WithCommandPath(fields[0]),
			llm.WithBaseArgs(fields[1:]...),
			llm.WithCommandModel(s.Model),
		)
	case config.ProviderMock:
		return stages.NewScripted(nil), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", s.Provider)
	}

	return llm.NewRetrying(gen,
		llm.WithRetryConfig(s.RetryConfig()),
		llm.WithAttemptTimeout(s.Retry.AttemptTimeout),
		llm.WithRetryLogger(logger),
	), nil
}

func buildStore(s config.Settings) (thread.Store, error) {
	switch s.Store.Backend {
	case config.BackendMemory:
		return thread.NewMemoryStore(thread.WithMemoryMaxRecords(s.Store.MaxRecords)), nil
	case config.BackendSQLite:
		return thread.NewSQLiteStore(s.Store.Path, thread.WithSQLiteMaxRecords(s.Store.MaxRecords))
	case config.BackendRedis:
		return thread.NewRedisStore(s.Store.RedisAddr, "", 0,
			thread.WithPrefix(s.Store.RedisPrefix),
			thread.WithRedisMaxRecords(s.Store.MaxRecords),
		), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.Store.Backend)
	}
}

func buildManager(s config.Settings, logger *slog.Logger, gen llm.Generator, store thread.Store) (*engine.Manager, error) {
	catalog := persona.BuiltinCatalog()
	if s.PersonaFile != "" {
		var err error
		if catalog, err = persona.LoadFile(s.PersonaFile); err != nil {
			return nil, err
		}
	}

	index := lore.NewDefaultIndex()
	if s.LoreFile != "" {
		var err error
		if index, err = lore.LoadFile(s.LoreFile); err != nil {
			return nil, err
		}
	}

	var relations relation.Store = relation.NewMemoryStore()
	if s.RelationsDir != "" {
		fs, err := relation.NewFileStore(s.RelationsDir)
		if err != nil {
			return nil, err
		}
		relations = fs
	}

	registry := tools.Default(index)
	locker := thread.NewLocker()
	slots := semaphore.NewWeighted(int64(s.MaxConcurrentTurns))
	metrics := observability.NewMetricsRecorder()
	runOpts := []npcgraph.RunOption{
		npcgraph.WithMetrics(metrics),
		npcgraph.WithTracing(observability.NewSpanManager()),
	}

	return engine.NewManager(catalog, func(p persona.Persona) (*engine.Engine, error) {
		graph, err := stages.BuildGraph(stages.Deps{
			Generator: gen,
			Searcher:  index,
			Persona:   p,
			Relations: relations,
			History:   store,
			Tools:     registry,
		})
		if err != nil {
			return nil, err
		}
		return engine.New(graph, store, p,
			engine.WithTools(registry),
			engine.WithLogger(logger),
			engine.WithHistoryWindow(s.HistoryWindow),
			engine.WithTurnTimeout(s.TurnTimeout),
			engine.WithSlots(slots),
			engine.WithLocker(locker),
			engine.WithRunOptions(runOpts...),
			engine.WithSnapshotMetrics(metrics),
		)
	}), nil
}
