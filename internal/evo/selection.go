package evo

import (
	"fmt"
	"math/rand"
	"sort"

	"picobot/internal/config"
	"picobot/internal/genotype"
)

// TruncationSelector keeps the top Fraction of a ranked population as the
// breeding pool and picks parents uniformly from it.
type TruncationSelector struct {
	Fraction float64
}

func (TruncationSelector) Name() string {
	return "truncation"
}

// PoolSize is floor(populationSize * Fraction).
func (s TruncationSelector) PoolSize(populationSize int) int {
	return config.FloorFraction(populationSize, s.Fraction)
}

// Pool returns the leading PoolSize entries of ranked, which must already be
// sorted by descending fitness.
func (s TruncationSelector) Pool(ranked []ScoredProgram) ([]ScoredProgram, error) {
	size := s.PoolSize(len(ranked))
	if size < 1 {
		return nil, fmt.Errorf("%w: top fraction %v of %d programs leaves an empty breeding pool",
			config.ErrConfiguration, s.Fraction, len(ranked))
	}
	return ranked[:size], nil
}

func (TruncationSelector) PickParent(rng *rand.Rand, pool []ScoredProgram) (*genotype.RuleTable, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if len(pool) == 0 {
		return nil, fmt.Errorf("%w: breeding pool is empty", config.ErrConfiguration)
	}
	return pool[rng.Intn(len(pool))].Program, nil
}

// rankDescending sorts by fitness, keeping evaluation order among ties.
func rankDescending(scored []ScoredProgram) {
	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Fitness > scored[j].Fitness
	})
}
