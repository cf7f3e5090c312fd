// Package picobot is the programmatic entry point for evolving Picobot rule
// tables, browsing persisted runs and replaying a program in a room.
package picobot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"picobot/internal/config"
	"picobot/internal/evo"
	"picobot/internal/genotype"
	"picobot/internal/model"
	"picobot/internal/platform"
	"picobot/internal/scape"
	"picobot/internal/stats"
	"picobot/internal/storage"
)

const (
	defaultDBPath      = "picobot.db"
	defaultPopulation  = 200
	defaultGenerations = 20
	defaultRunsLimit   = 20
	defaultExportsDir  = "exports"
)

var ErrNotFound = errors.New("not found")

type Options struct {
	StoreKind string
	DBPath    string
	// Logger receives run progress; nil discards it.
	Logger *slog.Logger
}

type Client struct {
	polis  *platform.Polis
	logger *slog.Logger
}

type RunRequest struct {
	Profile string
	// Settings overrides Profile when set.
	Settings    *config.Settings
	Population  int
	Generations int
	// Seed 0 picks a time-based seed; the seed used is returned in the summary.
	Seed         int64
	OnGeneration func(model.GenerationDiagnostics)
}

type RunSummary struct {
	RunID            string
	Record           model.RunRecord
	BestByGeneration []float64
	FinalBestFitness float64
	Best             *genotype.RuleTable
	Elapsed          time.Duration
}

type RunsRequest struct {
	Limit int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

// BenchmarkRequest repeats one configuration over consecutive seeds.
type BenchmarkRequest struct {
	Runs        int
	Profile     string
	Settings    *config.Settings
	Population  int
	Generations int
	Seed        int64
}

type BenchmarkSummary struct {
	RunIDs                  []string
	Seeds                   []int64
	FinalBest               stats.Summary
	AverageBestByGeneration []float64
}

type SimulateRequest struct {
	Profile string
	Seed    int64
	// Steps < 0 uses the profile's step budget.
	Steps int
}

type SimulateResult struct {
	Seed    int64
	Program *genotype.RuleTable
	Room    *scape.Room
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		polis:  platform.NewPolis(platform.Config{Store: store}),
		logger: logger,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.polis.Store())
}

func (c *Client) Init(ctx context.Context) error {
	return c.polis.Init(ctx)
}

func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	if req.Population <= 0 {
		req.Population = defaultPopulation
	}
	if req.Generations < 0 {
		return RunSummary{}, fmt.Errorf("%w: generations must be >= 0", config.ErrConfiguration)
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	settings, err := resolveSettings(req.Profile, req.Settings)
	if err != nil {
		return RunSummary{}, err
	}
	if err := c.Init(ctx); err != nil {
		return RunSummary{}, err
	}

	runID := uuid.NewString()
	logger := c.logger.With("run_id", runID)
	logger.Info("run started",
		"profile", settings.Profile,
		"population", req.Population,
		"generations", req.Generations,
		"seed", req.Seed,
	)

	started := time.Now()
	result, err := c.polis.RunEvolution(ctx, platform.EvolutionConfig{
		RunID:          runID,
		Settings:       settings,
		PopulationSize: req.Population,
		Generations:    req.Generations,
		Seed:           req.Seed,
		Reporter: func(d evo.GenerationDiagnostics) {
			logger.Info("generation", "generation", d.Generation, "best", d.BestFitness, "mean", d.MeanFitness)
			if req.OnGeneration != nil {
				req.OnGeneration(model.GenerationDiagnostics{
					Generation:  d.Generation,
					BestFitness: d.BestFitness,
					MeanFitness: d.MeanFitness,
					MinFitness:  d.MinFitness,
					PoolSize:    d.PoolSize,
					Mutations:   d.Mutations,
				})
			}
		},
	})
	if err != nil {
		logger.Error("run failed", "error", err)
		return RunSummary{}, err
	}
	elapsed := time.Since(started)
	logger.Info("run finished", "best", result.Record.BestFitness, "elapsed", elapsed)

	history := make([]float64, 0, len(result.Diagnostics))
	for _, d := range result.Diagnostics {
		history = append(history, d.BestFitness)
	}
	return RunSummary{
		RunID:            runID,
		Record:           result.Record,
		BestByGeneration: history,
		FinalBestFitness: result.Record.BestFitness,
		Best:             result.Best,
		Elapsed:          elapsed,
	}, nil
}

// Stop cancels a run started by another goroutine on this client.
func (c *Client) Stop(runID string) error {
	return c.polis.StopRun(runID)
}

func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if req.Limit == 0 {
		req.Limit = defaultRunsLimit
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}
	return c.polis.Store().ListRuns(ctx, req.Limit)
}

func (c *Client) GetRun(ctx context.Context, runID string) (model.RunRecord, error) {
	if runID == "" {
		return model.RunRecord{}, errors.New("run id is required")
	}
	if err := c.Init(ctx); err != nil {
		return model.RunRecord{}, err
	}
	run, ok, err := c.polis.Store().GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return run, nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	if req.RunID != "" && req.Latest {
		return nil, errors.New("use either run id or latest")
	}
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	if err := c.Init(ctx); err != nil {
		return nil, err
	}

	runID := req.RunID
	if req.Latest {
		runs, err := c.polis.Store().ListRuns(ctx, 1)
		if err != nil {
			return nil, err
		}
		if len(runs) == 0 {
			return nil, fmt.Errorf("no runs available: %w", ErrNotFound)
		}
		runID = runs[0].ID
	}
	if runID == "" {
		return nil, errors.New("diagnostics requires run id or latest")
	}

	diagnostics, ok, err := c.polis.Store().GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics for run %s: %w", runID, ErrNotFound)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

func (c *Client) Export(ctx context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = defaultExportsDir
	}
	if err := c.Init(ctx); err != nil {
		return ExportSummary{}, err
	}

	var run model.RunRecord
	if req.Latest {
		runs, err := c.polis.Store().ListRuns(ctx, 1)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(runs) == 0 {
			return ExportSummary{}, fmt.Errorf("no runs available to export: %w", ErrNotFound)
		}
		run = runs[0]
	} else {
		var err error
		if run, err = c.GetRun(ctx, req.RunID); err != nil {
			return ExportSummary{}, err
		}
	}

	diagnostics, _, err := c.polis.Store().GetGenerationDiagnostics(ctx, run.ID)
	if err != nil {
		return ExportSummary{}, err
	}
	dir, err := stats.WriteRunArtifacts(req.OutDir, run, diagnostics)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: run.ID, Directory: filepath.Clean(dir)}, nil
}

// Benchmark runs req.Runs independent evolutions on seeds Seed, Seed+1, ...
// and aggregates their final best fitness.
func (c *Client) Benchmark(ctx context.Context, req BenchmarkRequest) (BenchmarkSummary, error) {
	if req.Runs <= 0 {
		return BenchmarkSummary{}, errors.New("runs must be > 0")
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	out := BenchmarkSummary{
		RunIDs: make([]string, 0, req.Runs),
		Seeds:  make([]int64, 0, req.Runs),
	}
	finals := make([]float64, 0, req.Runs)
	curves := make([][]float64, 0, req.Runs)
	for i := 0; i < req.Runs; i++ {
		summary, err := c.Run(ctx, RunRequest{
			Profile:     req.Profile,
			Settings:    req.Settings,
			Population:  req.Population,
			Generations: req.Generations,
			Seed:        req.Seed + int64(i),
		})
		if err != nil {
			return BenchmarkSummary{}, fmt.Errorf("benchmark run %d: %w", i+1, err)
		}
		out.RunIDs = append(out.RunIDs, summary.RunID)
		out.Seeds = append(out.Seeds, summary.Record.Seed)
		finals = append(finals, summary.FinalBestFitness)
		curves = append(curves, summary.BestByGeneration)
	}
	out.FinalBest = stats.Summarize(finals)
	out.AverageBestByGeneration = stats.AverageSeries(curves)
	return out, nil
}

// Simulate runs one random program from a random start for the requested
// number of steps and returns the room for rendering.
func (c *Client) Simulate(_ context.Context, req SimulateRequest) (SimulateResult, error) {
	settings, err := resolveSettings(req.Profile, nil)
	if err != nil {
		return SimulateResult{}, err
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}
	steps := req.Steps
	if steps < 0 {
		steps = settings.Evolution.Steps
	}

	rng := rand.New(rand.NewSource(req.Seed))
	program, err := genotype.NewRandom(settings.World.States, rng)
	if err != nil {
		return SimulateResult{}, err
	}
	room, err := scape.NewRoom(settings.World, program, rng.Intn(settings.World.Rows), rng.Intn(settings.World.Columns))
	if err != nil {
		return SimulateResult{}, err
	}
	if err := room.Run(steps); err != nil {
		return SimulateResult{}, err
	}
	return SimulateResult{Seed: req.Seed, Program: program, Room: room}, nil
}

func resolveSettings(profile string, override *config.Settings) (config.Settings, error) {
	if override != nil {
		if err := override.Validate(); err != nil {
			return config.Settings{}, err
		}
		return *override, nil
	}
	return config.Profile(profile)
}
