package platform

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"picobot/internal/config"
	"picobot/internal/evo"
	"picobot/internal/genotype"
	"picobot/internal/model"
	"picobot/internal/scape"
	"picobot/internal/storage"
)

const DefaultScape = "coverage"

var ErrRunStopped = errors.New("run stopped")

type Config struct {
	Store storage.Store
	// Now stamps run records; nil uses time.Now.
	Now func() time.Time
}

// ScapeFactory builds a fitness scape for one run's settings.
type ScapeFactory func(config.Settings) scape.Scape

type EvolutionConfig struct {
	RunID          string
	ScapeName      string
	Settings       config.Settings
	PopulationSize int
	Generations    int
	Seed           int64
	Reporter       evo.Reporter
}

type EvolutionResult struct {
	Record      model.RunRecord
	Best        *genotype.RuleTable
	Champion    *genotype.RuleTable
	Diagnostics []model.GenerationDiagnostics
}

// Polis owns the store and the scape registry, and keeps track of runs in
// flight so they can be stopped from another goroutine.
type Polis struct {
	store storage.Store
	now   func() time.Time

	mu      sync.RWMutex
	scapes  map[string]ScapeFactory
	started bool
	runs    map[string]context.CancelCauseFunc
}

func NewPolis(cfg Config) *Polis {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Polis{
		store: cfg.Store,
		now:   now,
		scapes: map[string]ScapeFactory{
			DefaultScape: func(s config.Settings) scape.Scape { return scape.NewCoverageScape(s) },
		},
		runs: make(map[string]context.CancelCauseFunc),
	}
}

func (p *Polis) Init(ctx context.Context) error {
	if p.store == nil {
		return fmt.Errorf("store is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return nil
	}
	if err := p.store.Init(ctx); err != nil {
		return err
	}
	p.started = true
	return nil
}

func (p *Polis) Store() storage.Store {
	return p.store
}

func (p *Polis) RegisterScape(name string, factory ScapeFactory) error {
	if name == "" {
		return fmt.Errorf("scape name is required")
	}
	if factory == nil {
		return fmt.Errorf("scape factory is nil")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.scapes[name]; exists {
		return fmt.Errorf("duplicate scape: %s", name)
	}
	p.scapes[name] = factory
	return nil
}

func (p *Polis) RegisteredScapes() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	names := make([]string, 0, len(p.scapes))
	for name := range p.scapes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RunEvolution runs one monitor to completion and persists its summary and
// per-generation diagnostics under cfg.RunID.
func (p *Polis) RunEvolution(ctx context.Context, cfg EvolutionConfig) (EvolutionResult, error) {
	if cfg.RunID == "" {
		return EvolutionResult{}, fmt.Errorf("run id is required")
	}
	if cfg.ScapeName == "" {
		cfg.ScapeName = DefaultScape
	}

	p.mu.RLock()
	factory, ok := p.scapes[cfg.ScapeName]
	started := p.started
	p.mu.RUnlock()

	if !started {
		return EvolutionResult{}, fmt.Errorf("polis is not initialized")
	}
	if !ok {
		return EvolutionResult{}, fmt.Errorf("scape not registered: %s", cfg.ScapeName)
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	if err := p.registerRun(cfg.RunID, cancel); err != nil {
		return EvolutionResult{}, err
	}
	defer p.unregisterRun(cfg.RunID)

	monitor, err := evo.NewPopulationMonitor(evo.MonitorConfig{
		Settings:       cfg.Settings,
		Scape:          factory(cfg.Settings),
		PopulationSize: cfg.PopulationSize,
		Generations:    cfg.Generations,
		Seed:           cfg.Seed,
		Reporter:       cfg.Reporter,
	})
	if err != nil {
		return EvolutionResult{}, err
	}

	startedAt := p.now()
	result, err := monitor.Run(runCtx)
	if err != nil {
		if cause := context.Cause(runCtx); errors.Is(cause, ErrRunStopped) {
			return EvolutionResult{}, fmt.Errorf("%s: %w", cfg.RunID, cause)
		}
		return EvolutionResult{}, err
	}
	elapsed := p.now().Sub(startedAt)

	record := model.RunRecord{
		VersionedRecord:    storage.CurrentVersion(),
		ID:                 cfg.RunID,
		CreatedAt:          startedAt.UTC(),
		Profile:            cfg.Settings.Profile,
		World:              model.World(cfg.Settings.World),
		Evolution:          model.Evolution(cfg.Settings.Evolution),
		Seed:               cfg.Seed,
		PopulationSize:     cfg.PopulationSize,
		Generations:        cfg.Generations,
		BestFitness:        result.BestFitness,
		ChampionFitness:    result.ChampionFitness,
		ChampionGeneration: result.ChampionGeneration,
		Evaluations:        result.Evaluations,
		Mutations:          result.Mutations,
		Program:            result.Best.String(),
		ElapsedMillis:      elapsed.Milliseconds(),
	}
	diagnostics := toModelDiagnostics(result.Diagnostics)

	if err := p.store.SaveRun(ctx, record); err != nil {
		return EvolutionResult{}, err
	}
	if err := p.store.SaveGenerationDiagnostics(ctx, cfg.RunID, diagnostics); err != nil {
		return EvolutionResult{}, err
	}

	return EvolutionResult{
		Record:      record,
		Best:        result.Best,
		Champion:    result.Champion,
		Diagnostics: diagnostics,
	}, nil
}

// StopRun cancels an active run; the monitor notices between generations.
func (p *Polis) StopRun(runID string) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	p.mu.RLock()
	cancel, ok := p.runs[runID]
	p.mu.RUnlock()
	if !ok {
		return fmt.Errorf("run not active: %s", runID)
	}
	cancel(ErrRunStopped)
	return nil
}

func (p *Polis) ActiveRuns() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (p *Polis) registerRun(runID string, cancel context.CancelCauseFunc) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.runs[runID]; exists {
		return fmt.Errorf("run already active: %s", runID)
	}
	p.runs[runID] = cancel
	return nil
}

func (p *Polis) unregisterRun(runID string) {
	p.mu.Lock()
	delete(p.runs, runID)
	p.mu.Unlock()
}

func toModelDiagnostics(diags []evo.GenerationDiagnostics) []model.GenerationDiagnostics {
	out := make([]model.GenerationDiagnostics, 0, len(diags))
	for _, d := range diags {
		out = append(out, model.GenerationDiagnostics{
			Generation:  d.Generation,
			BestFitness: d.BestFitness,
			MeanFitness: d.MeanFitness,
			MinFitness:  d.MinFitness,
			PoolSize:    d.PoolSize,
			Mutations:   d.Mutations,
		})
	}
	return out
}
