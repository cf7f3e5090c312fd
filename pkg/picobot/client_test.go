package picobot

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"picobot/internal/config"
	"picobot/internal/model"
	"picobot/internal/stats"
)

func newTestClient(t *testing.T, opts Options) *Client {
	t.Helper()
	if opts.StoreKind == "" {
		opts.StoreKind = "memory"
	}
	client, err := New(opts)
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Close()
	})
	return client
}

func TestClientRunRunsAndDiagnostics(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	client := newTestClient(t, Options{Logger: slog.New(slog.NewTextHandler(&logs, nil))})

	var seen []model.GenerationDiagnostics
	summary, err := client.Run(ctx, RunRequest{
		Profile:      "quick",
		Population:   10,
		Generations:  3,
		Seed:         42,
		OnGeneration: func(d model.GenerationDiagnostics) { seen = append(seen, d) },
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.RunID == "" || summary.Best == nil {
		t.Fatalf("expected run id and best program: %+v", summary)
	}
	if len(summary.BestByGeneration) != 3 || len(seen) != 3 {
		t.Fatalf("unexpected generation history: %v seen=%d", summary.BestByGeneration, len(seen))
	}
	if summary.FinalBestFitness != summary.BestByGeneration[2] || summary.Record.Seed != 42 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if !strings.Contains(logs.String(), "generation=3") || !strings.Contains(logs.String(), "run finished") {
		t.Fatalf("expected generation logs, got %q", logs.String())
	}

	runs, err := client.Runs(ctx, RunsRequest{Limit: 5})
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != summary.RunID {
		t.Fatalf("expected run %s in runs list: %+v", summary.RunID, runs)
	}

	run, err := client.GetRun(ctx, summary.RunID)
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if run.Program != summary.Best.String() || run.PopulationSize != 10 {
		t.Fatalf("unexpected persisted run: %+v", run)
	}

	latest, err := client.Diagnostics(ctx, DiagnosticsRequest{Latest: true, Limit: 2})
	if err != nil {
		t.Fatalf("diagnostics: %v", err)
	}
	if len(latest) != 2 || latest[0].Generation != 1 || latest[0] != seen[0] {
		t.Fatalf("unexpected diagnostics: %+v", latest)
	}
}

func TestClientRunUsesSettingsOverride(t *testing.T) {
	settings, err := config.Profile("quick")
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	settings.World = config.World{Rows: 4, Columns: 5, States: 3}
	settings.Evolution.Steps = 40

	client := newTestClient(t, Options{})
	summary, err := client.Run(context.Background(), RunRequest{Settings: &settings, Population: 10, Generations: 1, Seed: 9})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Best.States() != 3 || summary.Record.World.Columns != 5 || summary.Record.Evolution.Steps != 40 {
		t.Fatalf("override not applied: %+v", summary.Record)
	}
}

func TestClientRunPicksSeedWhenZero(t *testing.T) {
	client := newTestClient(t, Options{})
	summary, err := client.Run(context.Background(), RunRequest{Profile: "quick", Population: 10, Generations: 1})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if summary.Record.Seed == 0 {
		t.Fatal("expected a generated seed")
	}
}

func TestClientRunRejectsBadInput(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	if _, err := client.Run(ctx, RunRequest{Profile: "nope", Population: 10}); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected unknown profile error, got %v", err)
	}
	if _, err := client.Run(ctx, RunRequest{Profile: "quick", Population: 10, Generations: -1}); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected generations error, got %v", err)
	}
	if _, err := client.Run(ctx, RunRequest{Profile: "quick", Population: 4, Generations: 1}); !errors.Is(err, config.ErrConfiguration) {
		t.Fatalf("expected empty pool error, got %v", err)
	}
}

func TestClientLookupsReportNotFound(t *testing.T) {
	client := newTestClient(t, Options{})
	ctx := context.Background()

	if _, err := client.GetRun(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := client.Diagnostics(ctx, DiagnosticsRequest{Latest: true}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for latest, got %v", err)
	}
	if _, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "missing"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found for id, got %v", err)
	}
	if _, err := client.Diagnostics(ctx, DiagnosticsRequest{RunID: "x", Latest: true}); err == nil {
		t.Fatal("expected conflicting selector error")
	}
	if _, err := client.Runs(ctx, RunsRequest{Limit: -1}); err == nil {
		t.Fatal("expected negative limit error")
	}
}

func TestClientSimulate(t *testing.T) {
	client := newTestClient(t, Options{})
	result, err := client.Simulate(context.Background(), SimulateRequest{Profile: "quick", Seed: 3, Steps: -1})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if result.Room.Steps() != 200 {
		t.Fatalf("expected the profile step budget, got %d", result.Room.Steps())
	}
	if err := result.Program.Validate(); err != nil {
		t.Fatalf("validate program: %v", err)
	}
	visited := result.Room.VisitedCount()
	if visited < 1 || visited > 100 {
		t.Fatalf("visited count out of range: %d", visited)
	}
	if lines := strings.Count(result.Room.String(), "\n"); lines != 10 {
		t.Fatalf("expected 10 rendered rows, got %d", lines)
	}

	again, err := client.Simulate(context.Background(), SimulateRequest{Profile: "quick", Seed: 3, Steps: -1})
	if err != nil {
		t.Fatalf("simulate again: %v", err)
	}
	if again.Room.String() != result.Room.String() || !again.Program.Equal(result.Program) {
		t.Fatal("expected identical simulations for identical seeds")
	}
}

func TestClientExport(t *testing.T) {
	ctx := context.Background()
	client := newTestClient(t, Options{})
	summary, err := client.Run(ctx, RunRequest{Profile: "quick", Population: 10, Generations: 2, Seed: 8})
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	outDir := t.TempDir()
	exported, err := client.Export(ctx, ExportRequest{Latest: true, OutDir: outDir})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if exported.RunID != summary.RunID || exported.Directory != filepath.Join(outDir, summary.RunID) {
		t.Fatalf("unexpected export: %+v", exported)
	}
	series, ok, err := stats.ReadFitnessSeries(exported.Directory)
	if err != nil || !ok {
		t.Fatalf("read series ok=%t err=%v", ok, err)
	}
	if len(series) != 2 || series[1] != summary.BestByGeneration[1] {
		t.Fatalf("unexpected exported series: %v", series)
	}

	if _, err := client.Export(ctx, ExportRequest{}); err == nil {
		t.Fatal("expected selector error")
	}
	if _, err := client.Export(ctx, ExportRequest{RunID: "missing", OutDir: outDir}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestClientBenchmark(t *testing.T) {
	client := newTestClient(t, Options{})
	summary, err := client.Benchmark(context.Background(), BenchmarkRequest{
		Runs:        3,
		Profile:     "quick",
		Population:  10,
		Generations: 2,
		Seed:        100,
	})
	if err != nil {
		t.Fatalf("benchmark: %v", err)
	}
	if len(summary.RunIDs) != 3 || summary.Seeds[0] != 100 || summary.Seeds[2] != 102 {
		t.Fatalf("unexpected benchmark runs: %+v", summary)
	}
	if summary.FinalBest.Runs != 3 || summary.FinalBest.Max < summary.FinalBest.Mean || summary.FinalBest.Mean < summary.FinalBest.Min {
		t.Fatalf("unexpected final summary: %+v", summary.FinalBest)
	}
	if len(summary.AverageBestByGeneration) != 2 {
		t.Fatalf("unexpected average curve: %v", summary.AverageBestByGeneration)
	}

	if _, err := client.Benchmark(context.Background(), BenchmarkRequest{}); err == nil {
		t.Fatal("expected runs error")
	}
}

func TestClientStopUnknownRun(t *testing.T) {
	client := newTestClient(t, Options{})
	if err := client.Stop("missing"); err == nil {
		t.Fatal("expected error stopping a run that is not active")
	}
}
