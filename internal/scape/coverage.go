package scape

import (
	"context"
	"fmt"
	"math/rand"

	"picobot/internal/config"
	"picobot/internal/genotype"
)

// CoverageScape scores a program by the mean fraction of the room it visits
// from uniformly random starting cells.
type CoverageScape struct {
	World  config.World
	Trials int
	Steps  int
}

func NewCoverageScape(s config.Settings) CoverageScape {
	return CoverageScape{
		World:  s.World,
		Trials: s.Evolution.Trials,
		Steps:  s.Evolution.Steps,
	}
}

func (CoverageScape) Name() string {
	return "coverage"
}

func (s CoverageScape) Evaluate(ctx context.Context, program *genotype.RuleTable, rng *rand.Rand) (Fitness, Trace, error) {
	if s.Trials <= 0 {
		return 0, nil, fmt.Errorf("%w: trials must be > 0", config.ErrConfiguration)
	}
	if s.Steps < 0 {
		return 0, nil, fmt.Errorf("%w: steps must be >= 0", config.ErrConfiguration)
	}
	if rng == nil {
		return 0, nil, fmt.Errorf("random source is required")
	}

	visited := 0
	for trial := 0; trial < s.Trials; trial++ {
		if err := ctx.Err(); err != nil {
			return 0, nil, err
		}
		room, err := NewRoom(s.World, program, rng.Intn(s.World.Rows), rng.Intn(s.World.Columns))
		if err != nil {
			return 0, nil, err
		}
		if err := room.Run(s.Steps); err != nil {
			return 0, nil, fmt.Errorf("trial %d: %w", trial, err)
		}
		visited += room.VisitedCount()
	}

	fitness := float64(visited) / float64(s.Trials*s.World.Cells())
	return Fitness(fitness), Trace{
		"visited_total": visited,
		"trials":        s.Trials,
		"steps":         s.Steps,
	}, nil
}
