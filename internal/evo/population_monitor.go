package evo

import (
	"context"
	"fmt"
	"math/rand"

	"picobot/internal/config"
	"picobot/internal/genotype"
	"picobot/internal/scape"
)

type ScoredProgram struct {
	Program *genotype.RuleTable
	Fitness float64
	Trace   scape.Trace
}

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	PoolSize    int     `json:"pool_size"`
	// Mutations applied while breeding the next generation; 0 for the last one.
	Mutations   int     `json:"mutations"`
}

// Reporter receives each generation's statistics as soon as they are known.
type Reporter func(GenerationDiagnostics)

type RunResult struct {
	Best               *genotype.RuleTable
	BestFitness        float64
	Champion           *genotype.RuleTable
	ChampionFitness    float64
	ChampionGeneration int
	BestByGeneration   []float64
	Diagnostics        []GenerationDiagnostics
	FinalPopulation    []ScoredProgram
	Mutations          int
	Evaluations        int
}

type MonitorConfig struct {
	Settings       config.Settings
	Scape          scape.Scape
	PopulationSize int
	Generations    int
	Seed           int64
	Reporter       Reporter
	Initial        []*genotype.RuleTable
}

type PopulationMonitor struct {
	cfg      MonitorConfig
	rng      *rand.Rand
	selector TruncationSelector
}

func NewPopulationMonitor(cfg MonitorConfig) (*PopulationMonitor, error) {
	if err := cfg.Settings.ValidateRun(cfg.PopulationSize, cfg.Generations); err != nil {
		return nil, err
	}
	if cfg.Initial != nil {
		if len(cfg.Initial) != cfg.PopulationSize {
			return nil, fmt.Errorf("%w: initial population mismatch: got=%d want=%d",
				config.ErrConfiguration, len(cfg.Initial), cfg.PopulationSize)
		}
		for i, program := range cfg.Initial {
			if program == nil || program.States() != cfg.Settings.World.States {
				return nil, fmt.Errorf("%w: initial program %d does not match %d states",
					config.ErrConfiguration, i, cfg.Settings.World.States)
			}
			if err := program.Validate(); err != nil {
				return nil, fmt.Errorf("initial program %d: %w", i, err)
			}
		}
	}
	if cfg.Scape == nil {
		cfg.Scape = scape.NewCoverageScape(cfg.Settings)
	}
	if cfg.Reporter == nil {
		cfg.Reporter = func(GenerationDiagnostics) {}
	}

	return &PopulationMonitor{
		cfg:      cfg,
		rng:      rand.New(rand.NewSource(cfg.Seed)),
		selector: TruncationSelector{Fraction: cfg.Settings.Evolution.TopFraction},
	}, nil
}

// Run evolves the population for the configured generations. Best is the top
// program of the last evaluated generation; Champion the best across all of them.
// With zero generations the seed population is scored once and no diagnostics are emitted.
func (m *PopulationMonitor) Run(ctx context.Context) (RunResult, error) {
	population, err := m.seedPopulation()
	if err != nil {
		return RunResult{}, err
	}

	result := RunResult{
		BestByGeneration: make([]float64, 0, m.cfg.Generations),
		Diagnostics:      make([]GenerationDiagnostics, 0, m.cfg.Generations),
		ChampionFitness:  -1,
	}
	mutationCount := m.cfg.Settings.MutationCount(m.cfg.PopulationSize)

	var scored []ScoredProgram
	for gen := 0; gen < m.cfg.Generations || scored == nil; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		scored, err = m.evaluatePopulation(ctx, population)
		if err != nil {
			return RunResult{}, err
		}
		result.Evaluations += len(scored)
		rankDescending(scored)

		if scored[0].Fitness > result.ChampionFitness {
			result.Champion = scored[0].Program.Clone()
			result.ChampionFitness = scored[0].Fitness
			result.ChampionGeneration = gen + 1
		}
		if m.cfg.Generations == 0 {
			result.ChampionGeneration = 0
			break
		}

		pool, err := m.selector.Pool(scored)
		if err != nil {
			return RunResult{}, err
		}
		last := gen == m.cfg.Generations-1
		mutated := 0
		if !last {
			population, err = Breed(m.rng, m.selector, pool, m.cfg.PopulationSize)
			if err != nil {
				return RunResult{}, err
			}
			events, err := MutatePopulation(m.rng, population, mutationCount)
			if err != nil {
				return RunResult{}, err
			}
			mutated = len(events)
			result.Mutations += mutated
		}

		diagnostics := summarizeGeneration(scored, gen+1, len(pool))
		diagnostics.Mutations = mutated
		result.Diagnostics = append(result.Diagnostics, diagnostics)
		result.BestByGeneration = append(result.BestByGeneration, diagnostics.BestFitness)
		m.cfg.Reporter(diagnostics)

		if last {
			break
		}
	}

	result.Best = scored[0].Program
	result.BestFitness = scored[0].Fitness
	result.FinalPopulation = scored
	return result, nil
}

func (m *PopulationMonitor) seedPopulation() ([]*genotype.RuleTable, error) {
	population := make([]*genotype.RuleTable, m.cfg.PopulationSize)
	if m.cfg.Initial != nil {
		for i, program := range m.cfg.Initial {
			population[i] = program.Clone()
		}
		return population, nil
	}
	for i := range population {
		program, err := genotype.NewRandom(m.cfg.Settings.World.States, m.rng)
		if err != nil {
			return nil, err
		}
		population[i] = program
	}
	return population, nil
}

func (m *PopulationMonitor) evaluatePopulation(ctx context.Context, population []*genotype.RuleTable) ([]ScoredProgram, error) {
	scored := make([]ScoredProgram, len(population))
	for i, program := range population {
		fitness, trace, err := m.cfg.Scape.Evaluate(ctx, program, m.rng)
		if err != nil {
			return nil, fmt.Errorf("evaluate program %d: %w", i, err)
		}
		scored[i] = ScoredProgram{Program: program, Fitness: float64(fitness), Trace: trace}
	}
	return scored, nil
}

func summarizeGeneration(ranked []ScoredProgram, generation, poolSize int) GenerationDiagnostics {
	if len(ranked) == 0 {
		return GenerationDiagnostics{Generation: generation}
	}

	total := 0.0
	minFitness := ranked[0].Fitness
	for _, item := range ranked {
		total += item.Fitness
		if item.Fitness < minFitness {
			minFitness = item.Fitness
		}
	}

	return GenerationDiagnostics{
		Generation:  generation,
		BestFitness: ranked[0].Fitness,
		MeanFitness: total / float64(len(ranked)),
		MinFitness:  minFitness,
		PoolSize:    poolSize,
	}
}

// GA runs the standard profile and returns the best program of the final generation.
func GA(ctx context.Context, populationSize, generations int, seed int64) (*genotype.RuleTable, error) {
	monitor, err := NewPopulationMonitor(MonitorConfig{
		Settings:       config.Default(),
		PopulationSize: populationSize,
		Generations:    generations,
		Seed:           seed,
	})
	if err != nil {
		return nil, err
	}
	result, err := monitor.Run(ctx)
	if err != nil {
		return nil, err
	}
	return result.Best, nil
}
