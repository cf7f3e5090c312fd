package httpapi

import "picobot/internal/model"

// RunRequest starts an evolution run. A zero seed lets the server pick one.
type RunRequest struct {
	Profile     string `json:"profile"`
	Population  int    `json:"population" binding:"required,min=1"`
	Generations int    `json:"generations" binding:"min=0"`
	Seed        int64  `json:"seed"`
}

type RunResponse struct {
	Run              model.RunRecord `json:"run"`
	BestByGeneration []float64       `json:"best_by_generation"`
}

type RunsResponse struct {
	Runs []model.RunRecord `json:"runs"`
}

type DiagnosticsResponse struct {
	RunID       string                        `json:"run_id"`
	Generations []model.GenerationDiagnostics `json:"generations"`
}
