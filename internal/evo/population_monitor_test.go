package evo

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"picobot/internal/config"
	"picobot/internal/genotype"
	"picobot/internal/scape"
)

// eastScape scores a program by how many of its open-cell rules move east.
type eastScape struct {
	calls int
}

func (*eastScape) Name() string { return "east" }

func (s *eastScape) Evaluate(_ context.Context, program *genotype.RuleTable, _ *rand.Rand) (scape.Fitness, scape.Trace, error) {
	s.calls++
	east := 0
	for state := 0; state < program.States(); state++ {
		rule, err := program.Lookup(state, genotype.PatternOpen)
		if err != nil {
			return 0, nil, err
		}
		if rule.Direction == genotype.East {
			east++
		}
	}
	return scape.Fitness(float64(east) / float64(program.States())), nil, nil
}

func quickSettings() config.Settings {
	s, _ := config.Profile("quick")
	return s
}

func TestPopulationMonitorSingleGenerationReportsBestAboveMean(t *testing.T) {
	var reported []GenerationDiagnostics
	monitor, err := NewPopulationMonitor(MonitorConfig{
		Settings:       config.Default(),
		PopulationSize: 10,
		Generations:    1,
		Seed:           42,
		Reporter: func(d GenerationDiagnostics) {
			reported = append(reported, d)
		},
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Best == nil || result.Best.Len() != 5*genotype.PatternCount {
		t.Fatalf("expected a complete best program, got %+v", result.Best)
	}
	if len(reported) != 1 || len(result.Diagnostics) != 1 {
		t.Fatalf("expected one generation report, got %d/%d", len(reported), len(result.Diagnostics))
	}
	d := reported[0]
	if d.Generation != 1 || d.PoolSize != 2 {
		t.Fatalf("unexpected diagnostics: %+v", d)
	}
	if d.BestFitness < d.MeanFitness || d.MeanFitness < d.MinFitness {
		t.Fatalf("expected best >= mean >= min, got %+v", d)
	}
	if d.BestFitness < 0 || d.BestFitness > 1 {
		t.Fatalf("best fitness outside [0,1]: %f", d.BestFitness)
	}
	if result.BestFitness != d.BestFitness || result.Evaluations != 10 {
		t.Fatalf("unexpected result summary: best=%f evaluations=%d", result.BestFitness, result.Evaluations)
	}
}

func TestPopulationMonitorDeterministicForSeed(t *testing.T) {
	run := func() RunResult {
		monitor, err := NewPopulationMonitor(MonitorConfig{
			Settings:       quickSettings(),
			PopulationSize: 20,
			Generations:    4,
			Seed:           7,
		})
		if err != nil {
			t.Fatalf("new monitor: %v", err)
		}
		result, err := monitor.Run(context.Background())
		if err != nil {
			t.Fatalf("run: %v", err)
		}
		return result
	}
	a, b := run(), run()
	if len(a.BestByGeneration) != 4 {
		t.Fatalf("expected 4 generations of history, got %d", len(a.BestByGeneration))
	}
	for i := range a.BestByGeneration {
		if a.BestByGeneration[i] != b.BestByGeneration[i] {
			t.Fatalf("generation %d differs: %f vs %f", i, a.BestByGeneration[i], b.BestByGeneration[i])
		}
	}
	if !a.Best.Equal(b.Best) {
		t.Fatal("expected identical best programs for identical seeds")
	}
	if a.Mutations != 3*quickSettings().MutationCount(20) {
		t.Fatalf("unexpected mutation total %d", a.Mutations)
	}
}

func TestPopulationMonitorImprovesOnSelectableScape(t *testing.T) {
	settings := quickSettings()
	settings.Evolution.MutationRate = 0
	s := &eastScape{}
	monitor, err := NewPopulationMonitor(MonitorConfig{
		Settings:       settings,
		Scape:          s,
		PopulationSize: 30,
		Generations:    8,
		Seed:           3,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	first, last := result.Diagnostics[0], result.Diagnostics[len(result.Diagnostics)-1]
	if last.MeanFitness < first.MeanFitness {
		t.Fatalf("expected mean fitness to rise under truncation selection: first=%+v last=%+v", first, last)
	}
	if s.calls != 30*8 || result.Evaluations != s.calls {
		t.Fatalf("expected %d evaluations, scape saw %d result %d", 30*8, s.calls, result.Evaluations)
	}
	if result.ChampionFitness < result.BestFitness {
		t.Fatalf("champion %f below final best %f", result.ChampionFitness, result.BestFitness)
	}
	for i := 1; i < len(result.FinalPopulation); i++ {
		if result.FinalPopulation[i].Fitness > result.FinalPopulation[i-1].Fitness {
			t.Fatal("final population is not ranked")
		}
	}
}

func TestPopulationMonitorZeroGenerationsScoresSeedPopulation(t *testing.T) {
	var reports int
	monitor, err := NewPopulationMonitor(MonitorConfig{
		Settings:       quickSettings(),
		Scape:          &eastScape{},
		PopulationSize: 10,
		Generations:    0,
		Seed:           1,
		Reporter:       func(GenerationDiagnostics) { reports++ },
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.Best == nil || len(result.FinalPopulation) != 10 || result.Evaluations != 10 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if reports != 0 || len(result.Diagnostics) != 0 {
		t.Fatalf("expected no generation reports, got %d", reports)
	}
}

func TestNewPopulationMonitorConfigurationErrors(t *testing.T) {
	cases := []struct {
		name string
		cfg  MonitorConfig
	}{
		{"zero population", MonitorConfig{Settings: config.Default(), PopulationSize: 0, Generations: 1}},
		{"negative generations", MonitorConfig{Settings: config.Default(), PopulationSize: 10, Generations: -1}},
		{"empty pool", MonitorConfig{Settings: config.Default(), PopulationSize: 4, Generations: 1}},
		{"initial mismatch", MonitorConfig{Settings: config.Default(), PopulationSize: 10, Generations: 1, Initial: []*genotype.RuleTable{}}},
	}
	for _, tc := range cases {
		if _, err := NewPopulationMonitor(tc.cfg); !errors.Is(err, config.ErrConfiguration) {
			t.Fatalf("%s: expected configuration error, got %v", tc.name, err)
		}
	}
}

func TestPopulationMonitorRejectsIncompleteInitialProgram(t *testing.T) {
	settings := quickSettings()
	initial := make([]*genotype.RuleTable, 10)
	rng := rand.New(rand.NewSource(2))
	for i := range initial {
		initial[i], _ = genotype.NewRandom(settings.World.States, rng)
	}
	initial[4], _ = genotype.New(settings.World.States)

	_, err := NewPopulationMonitor(MonitorConfig{Settings: settings, PopulationSize: 10, Generations: 1, Initial: initial})
	if !errors.Is(err, genotype.ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
}

func TestPopulationMonitorHonoursCancellation(t *testing.T) {
	monitor, err := NewPopulationMonitor(MonitorConfig{Settings: quickSettings(), PopulationSize: 10, Generations: 3})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := monitor.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation, got %v", err)
	}
}

func TestGA(t *testing.T) {
	best, err := GA(context.Background(), 10, 1, 11)
	if err != nil {
		t.Fatalf("ga: %v", err)
	}
	if best == nil {
		t.Fatal("expected a program")
	}
	if err := best.Validate(); err != nil {
		t.Fatalf("validate best: %v", err)
	}
}

func TestPopulationMonitorReportsMutationsPerGeneration(t *testing.T) {
	settings := quickSettings()
	monitor, err := NewPopulationMonitor(MonitorConfig{
		Settings:       settings,
		Scape:          &eastScape{},
		PopulationSize: 20,
		Generations:    3,
		Seed:           5,
	})
	if err != nil {
		t.Fatalf("new monitor: %v", err)
	}
	result, err := monitor.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	perGeneration := settings.MutationCount(20)
	total := 0
	for i, d := range result.Diagnostics {
		want := perGeneration
		if i == len(result.Diagnostics)-1 {
			want = 0
		}
		if d.Mutations != want {
			t.Fatalf("generation %d: expected %d mutations, got %d", d.Generation, want, d.Mutations)
		}
		total += d.Mutations
	}
	if total != result.Mutations {
		t.Fatalf("per-generation mutations %d do not sum to %d", total, result.Mutations)
	}
}
