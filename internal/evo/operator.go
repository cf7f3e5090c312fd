package evo

import (
	"fmt"
	"math/rand"

	"picobot/internal/config"
	"picobot/internal/genotype"
)

// MutationEvent records one scheduled mutation and the population slot it hit.
type MutationEvent struct {
	Index int
	genotype.Mutation
}

// Breed fills a new population of size children, each the crossover of two
// parents drawn with replacement from pool.
func Breed(rng *rand.Rand, selector TruncationSelector, pool []ScoredProgram, size int) ([]*genotype.RuleTable, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: population size must be > 0", config.ErrConfiguration)
	}
	next := make([]*genotype.RuleTable, 0, size)
	for len(next) < size {
		father, err := selector.PickParent(rng, pool)
		if err != nil {
			return nil, err
		}
		mother, err := selector.PickParent(rng, pool)
		if err != nil {
			return nil, err
		}
		child, err := father.Crossover(mother, rng)
		if err != nil {
			return nil, err
		}
		next = append(next, child)
	}
	return next, nil
}

// MutatePopulation applies count mutation events, each to an individual chosen
// uniformly with replacement. The same individual may be hit more than once.
func MutatePopulation(rng *rand.Rand, population []*genotype.RuleTable, count int) ([]MutationEvent, error) {
	if count < 0 || count > len(population) {
		return nil, fmt.Errorf("%w: mutation count %d outside [0, %d]", config.ErrConfiguration, count, len(population))
	}
	events := make([]MutationEvent, 0, count)
	for i := 0; i < count; i++ {
		idx := rng.Intn(len(population))
		events = append(events, MutationEvent{Index: idx, Mutation: population[idx].Mutate(rng)})
	}
	return events, nil
}
