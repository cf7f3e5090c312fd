package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"picobot/internal/config"
	"picobot/internal/model"
	"picobot/pkg/picobot"
)

// RunService is the subset of the client the controller needs.
type RunService interface {
	Run(ctx context.Context, req picobot.RunRequest) (picobot.RunSummary, error)
	Runs(ctx context.Context, req picobot.RunsRequest) ([]model.RunRecord, error)
	GetRun(ctx context.Context, runID string) (model.RunRecord, error)
	Diagnostics(ctx context.Context, req picobot.DiagnosticsRequest) ([]model.GenerationDiagnostics, error)
}

type RunsController struct {
	runs RunService
}

func NewRunsController(runs RunService) *RunsController {
	return &RunsController{runs: runs}
}

func (rc *RunsController) RegisterPublic(route *gin.RouterGroup) {
	runs := route.Group("/runs")
	{
		runs.POST("", rc.create)
		runs.GET("", rc.list)
		runs.GET("/:id", rc.get)
		runs.GET("/:id/diagnostics", rc.diagnostics)
	}
}

// create runs the evolution synchronously and answers with the stored record.
func (rc *RunsController) create(ctx *gin.Context) {
	var request RunRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := rc.runs.Run(ctx.Request.Context(), picobot.RunRequest{
		Profile:     request.Profile,
		Population:  request.Population,
		Generations: request.Generations,
		Seed:        request.Seed,
	})
	if err != nil {
		writeError(ctx, err)
		return
	}

	ctx.JSON(http.StatusCreated, RunResponse{
		Run:              summary.Record,
		BestByGeneration: summary.BestByGeneration,
	})
}

func (rc *RunsController) list(ctx *gin.Context) {
	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}
	runs, err := rc.runs.Runs(ctx.Request.Context(), picobot.RunsRequest{Limit: limit})
	if err != nil {
		writeError(ctx, err)
		return
	}
	if runs == nil {
		runs = []model.RunRecord{}
	}
	ctx.JSON(http.StatusOK, RunsResponse{Runs: runs})
}

func (rc *RunsController) get(ctx *gin.Context) {
	id, ok := runID(ctx)
	if !ok {
		return
	}
	run, err := rc.runs.GetRun(ctx.Request.Context(), id)
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, run)
}

func (rc *RunsController) diagnostics(ctx *gin.Context) {
	id, ok := runID(ctx)
	if !ok {
		return
	}
	limit, ok := queryLimit(ctx)
	if !ok {
		return
	}
	diagnostics, err := rc.runs.Diagnostics(ctx.Request.Context(), picobot.DiagnosticsRequest{RunID: id, Limit: limit})
	if err != nil {
		writeError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, DiagnosticsResponse{RunID: id, Generations: diagnostics})
}

func runID(ctx *gin.Context) (string, bool) {
	id, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid run id"})
		return "", false
	}
	return id.String(), true
}

func queryLimit(ctx *gin.Context) (int, bool) {
	raw := ctx.Query("limit")
	if raw == "" {
		return 0, true
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
		return 0, false
	}
	return limit, true
}

func writeError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, picobot.ErrNotFound):
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, config.ErrConfiguration):
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
