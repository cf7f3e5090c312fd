package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"picobot/internal/config"
	"picobot/internal/httpapi"
	"picobot/internal/model"
	"picobot/internal/storage"
	"picobot/pkg/picobot"
)

const defaultDBPath = "picobot.db"

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "run":
		return runRun(ctx, args[1:])
	case "runs":
		return runRuns(ctx, args[1:])
	case "diagnostics":
		return runDiagnostics(ctx, args[1:])
	case "simulate":
		return runSimulate(ctx, args[1:])
	case "export":
		return runExport(ctx, args[1:])
	case "benchmark":
		return runBenchmark(ctx, args[1:])
	case "profiles":
		return runProfiles(ctx, args[1:])
	case "serve":
		return runServe(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

// storeFlags are shared by every command that opens the run store.
type storeFlags struct {
	kind    *string
	dbPath  *string
	verbose *bool
}

func addStoreFlags(fs *flag.FlagSet) storeFlags {
	return storeFlags{
		kind:    fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite"),
		dbPath:  fs.String("db-path", defaultDBPath, "sqlite database path"),
		verbose: fs.Bool("v", false, "log progress to stderr"),
	}
}

func (f storeFlags) open() (*picobot.Client, *slog.Logger, error) {
	logger := newLogger(*f.verbose)
	client, err := picobot.New(picobot.Options{
		StoreKind: *f.kind,
		DBPath:    *f.dbPath,
		Logger:    logger,
	})
	if err != nil {
		return nil, nil, err
	}
	return client, logger, nil
}

func runRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	population := fs.Int("pop", 200, "population size")
	generations := fs.Int("gens", 20, "generations")
	seed := fs.Int64("seed", 0, "random seed (0 picks one)")
	profile := fs.String("profile", "", "settings profile: "+fmt.Sprint(config.ProfileNames()))
	configPath := fs.String("config", "", "TOML settings file")
	show := fs.Bool("show", false, "print the best rule table")
	quiet := fs.Bool("quiet", false, "suppress per-generation lines")
	jsonOut := fs.Bool("json", false, "emit the run record as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *population <= 0 {
		return errors.New("pop must be > 0")
	}
	if *generations < 0 {
		return errors.New("gens must be >= 0")
	}

	settings, err := resolveSettings(*profile, *configPath, os.LookupEnv)
	if err != nil {
		return err
	}

	client, _, err := sf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	req := picobot.RunRequest{
		Settings:    &settings,
		Population:  *population,
		Generations: *generations,
		Seed:        *seed,
	}
	if !*quiet && !*jsonOut {
		req.OnGeneration = func(d model.GenerationDiagnostics) {
			fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f\n", d.Generation, d.BestFitness, d.MeanFitness, d.MinFitness)
		}
	}

	summary, err := client.Run(ctx, req)
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary.Record)
	}

	r := summary.Record
	fmt.Printf("run_id=%s profile=%s seed=%d pop=%d gens=%d best_fitness=%.6f champion_fitness=%.6f champion_generation=%d evaluations=%s mutations=%s elapsed=%s\n",
		r.ID,
		r.Profile,
		r.Seed,
		r.PopulationSize,
		r.Generations,
		r.BestFitness,
		r.ChampionFitness,
		r.ChampionGeneration,
		humanize.Comma(int64(r.Evaluations)),
		humanize.Comma(int64(r.Mutations)),
		summary.Elapsed.Round(time.Millisecond),
	)
	if *show {
		fmt.Print(summary.Best.String())
	}
	return nil
}

func runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, _, err := sf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, picobot.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if *jsonOut {
		if runs == nil {
			runs = []model.RunRecord{}
		}
		return writeJSON(runs)
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	for _, r := range runs {
		fmt.Printf("run_id=%s created=%q profile=%s seed=%d pop=%d gens=%d best_fitness=%.6f evaluations=%s\n",
			r.ID,
			humanize.Time(r.CreatedAt),
			r.Profile,
			r.Seed,
			r.PopulationSize,
			r.Generations,
			r.BestFitness,
			humanize.Comma(int64(r.Evaluations)),
		)
	}
	return nil
}

func runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}
	if *limit < 0 {
		*limit = 0
	}

	client, _, err := sf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, picobot.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  *limit,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(diagnostics)
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f pool=%d\n",
			d.Generation,
			d.BestFitness,
			d.MeanFitness,
			d.MinFitness,
			d.PoolSize,
		)
	}
	return nil
}

func runSimulate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("simulate", flag.ContinueOnError)
	seed := fs.Int64("seed", 0, "random seed (0 picks one)")
	profile := fs.String("profile", config.DefaultProfile, "settings profile")
	steps := fs.Int("steps", -1, "steps to simulate (<0 uses the profile budget)")
	showProgram := fs.Bool("show-program", false, "print the random rule table")
	color := fs.String("color", "auto", "color the room: auto|always|never")
	if err := fs.Parse(args); err != nil {
		return err
	}
	colored, err := useColor(*color, os.Stdout)
	if err != nil {
		return err
	}

	client, err := picobot.New(picobot.Options{StoreKind: "memory"})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	result, err := client.Simulate(ctx, picobot.SimulateRequest{Profile: *profile, Seed: *seed, Steps: *steps})
	if err != nil {
		return err
	}

	if *showProgram {
		fmt.Print(result.Program.String())
		fmt.Println()
	}
	fmt.Print(renderRoom(result.Room, colored))
	rows, cols := result.Room.Size()
	cells := rows * cols
	fmt.Printf("seed=%d steps=%d visited=%d/%d coverage=%.4f\n",
		result.Seed,
		result.Room.Steps(),
		result.Room.VisitedCount(),
		cells,
		float64(result.Room.VisitedCount())/float64(cells),
	)
	return nil
}

func runExport(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "export the most recent run")
	outDir := fs.String("out", "exports", "output directory")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, _, err := sf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	exported, err := client.Export(ctx, picobot.ExportRequest{RunID: *runID, Latest: *latest, OutDir: *outDir})
	if err != nil {
		return err
	}
	fmt.Printf("exported run_id=%s to=%s\n", exported.RunID, exported.Directory)
	return nil
}

func runBenchmark(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("benchmark", flag.ContinueOnError)
	runs := fs.Int("runs", 5, "independent runs")
	population := fs.Int("pop", 200, "population size")
	generations := fs.Int("gens", 20, "generations")
	seed := fs.Int64("seed", 0, "first seed (0 picks one)")
	profile := fs.String("profile", "", "settings profile")
	configPath := fs.String("config", "", "TOML settings file")
	jsonOut := fs.Bool("json", false, "emit the summary as JSON")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runs <= 0 {
		return errors.New("runs must be > 0")
	}

	settings, err := resolveSettings(*profile, *configPath, os.LookupEnv)
	if err != nil {
		return err
	}
	client, _, err := sf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Benchmark(ctx, picobot.BenchmarkRequest{
		Runs:        *runs,
		Settings:    &settings,
		Population:  *population,
		Generations: *generations,
		Seed:        *seed,
	})
	if err != nil {
		return err
	}
	if *jsonOut {
		return writeJSON(summary)
	}

	for i, id := range summary.RunIDs {
		fmt.Printf("run=%d run_id=%s seed=%d\n", i+1, id, summary.Seeds[i])
	}
	for i, best := range summary.AverageBestByGeneration {
		fmt.Printf("generation=%d avg_best=%.6f\n", i+1, best)
	}
	f := summary.FinalBest
	fmt.Printf("runs=%d final_best_mean=%.6f final_best_std=%.6f final_best_max=%.6f final_best_min=%.6f\n",
		f.Runs, f.Mean, f.Std, f.Max, f.Min)
	return nil
}

func runProfiles(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, name := range config.ProfileNames() {
		p, err := config.Profile(name)
		if err != nil {
			return err
		}
		fmt.Printf("profile=%s rows=%d columns=%d states=%d trials=%d steps=%d top_fraction=%.2f mutation_rate=%.2f\n",
			p.Profile,
			p.World.Rows,
			p.World.Columns,
			p.World.States,
			p.Evolution.Trials,
			p.Evolution.Steps,
			p.Evolution.TopFraction,
			p.Evolution.MutationRate,
		)
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", ":8080", "listen address")
	sf := addStoreFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, logger, err := sf.open()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()
	if err := client.Init(ctx); err != nil {
		return err
	}

	router := httpapi.NewRouter(httpapi.Config{
		Addr:        *addr,
		Controllers: []httpapi.Controller{httpapi.NewRunsController(client)},
		Logger:      logger,
	})
	return router.Run(ctx)
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func writeJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: picobotctl <run|runs|diagnostics|export|benchmark|simulate|profiles|serve> [flags]", msg)
}
