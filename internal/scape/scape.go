package scape

import (
	"context"
	"math/rand"

	"picobot/internal/genotype"
)

type Fitness float64

type Trace map[string]any

// Scape scores a program. Implementations draw all randomness from rng.
type Scape interface {
	Name() string
	Evaluate(ctx context.Context, program *genotype.RuleTable, rng *rand.Rand) (Fitness, Trace, error)
}
