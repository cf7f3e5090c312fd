package stats

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"picobot/internal/model"
)

const (
	runFile         = "run.json"
	diagnosticsFile = "generation_diagnostics.json"
	seriesFile      = "fitness_series.csv"
	programFile     = "program.txt"
)

var seriesHeader = []string{"generation", "best_fitness", "mean_fitness", "min_fitness", "pool_size", "mutations"}

// WriteRunArtifacts exports one run under baseDir/<run id> and returns that
// directory. Existing files are overwritten.
func WriteRunArtifacts(baseDir string, run model.RunRecord, diagnostics []model.GenerationDiagnostics) (string, error) {
	if run.ID == "" {
		return "", fmt.Errorf("run id is required")
	}

	runDir := filepath.Join(baseDir, run.ID)
	if err := os.MkdirAll(runDir, 0o755); err != nil {
		return "", err
	}

	if err := writeJSON(filepath.Join(runDir, runFile), run); err != nil {
		return "", err
	}
	if diagnostics == nil {
		diagnostics = []model.GenerationDiagnostics{}
	}
	if err := writeJSON(filepath.Join(runDir, diagnosticsFile), diagnostics); err != nil {
		return "", err
	}
	if err := writeSeries(filepath.Join(runDir, seriesFile), diagnostics); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(runDir, programFile), []byte(run.Program), 0o644); err != nil {
		return "", err
	}
	return runDir, nil
}

// ReadRunArtifacts loads what WriteRunArtifacts wrote. A missing directory
// reports ok=false.
func ReadRunArtifacts(runDir string) (model.RunRecord, []model.GenerationDiagnostics, bool, error) {
	var run model.RunRecord
	ok, err := readJSON(filepath.Join(runDir, runFile), &run)
	if err != nil || !ok {
		return model.RunRecord{}, nil, ok, err
	}
	var diagnostics []model.GenerationDiagnostics
	if _, err := readJSON(filepath.Join(runDir, diagnosticsFile), &diagnostics); err != nil {
		return model.RunRecord{}, nil, false, err
	}
	return run, diagnostics, true, nil
}

// ReadFitnessSeries returns the best fitness column of a run's series file.
func ReadFitnessSeries(runDir string) ([]float64, bool, error) {
	file, err := os.Open(filepath.Join(runDir, seriesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer file.Close()

	reader := csv.NewReader(file)
	header, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return []float64{}, true, nil
		}
		return nil, false, err
	}
	if len(header) < 2 {
		return nil, false, fmt.Errorf("fitness series header must have at least 2 columns")
	}

	series := make([]float64, 0, 64)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, false, err
		}
		value, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			return nil, false, err
		}
		series = append(series, value)
	}
	return series, true, nil
}

func writeSeries(path string, diagnostics []model.GenerationDiagnostics) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(seriesHeader); err != nil {
		return err
	}
	for _, d := range diagnostics {
		if err := writer.Write([]string{
			strconv.Itoa(d.Generation),
			strconv.FormatFloat(d.BestFitness, 'f', -1, 64),
			strconv.FormatFloat(d.MeanFitness, 'f', -1, 64),
			strconv.FormatFloat(d.MinFitness, 'f', -1, 64),
			strconv.Itoa(d.PoolSize),
			strconv.Itoa(d.Mutations),
		}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o644)
}

func readJSON(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode %s: %w", path, err)
	}
	return true, nil
}
