// Package config holds the immutable world and evolution settings shared by the
// simulator, the fitness scape and the population monitor.
package config

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrConfiguration = errors.New("invalid configuration")

const DefaultProfile = "standard"

type World struct {
	Rows    int `toml:"rows" json:"rows"`
	Columns int `toml:"columns" json:"columns"`
	States  int `toml:"states" json:"states"`
}

func (w World) Cells() int {
	return w.Rows * w.Columns
}

type Evolution struct {
	Trials       int     `toml:"trials" json:"trials"`
	Steps        int     `toml:"steps" json:"steps"`
	TopFraction  float64 `toml:"top_fraction" json:"top_fraction"`
	MutationRate float64 `toml:"mutation_rate" json:"mutation_rate"`
}

// Settings is passed by value; nothing in the repository mutates a shared copy.
type Settings struct {
	Profile   string    `json:"profile"`
	World     World     `json:"world"`
	Evolution Evolution `json:"evolution"`
}

var profiles = map[string]func() Settings{
	"standard": func() Settings {
		return newSettings("standard", 20, 20, 5, 20, 0.2, 0.05)
	},
	"aggressive": func() Settings {
		return newSettings("aggressive", 20, 20, 5, 20, 0.2, 0.10)
	},
	"quick": func() Settings {
		return newSettings("quick", 10, 10, 5, 5, 0.2, 0.10)
	},
}

func newSettings(name string, rows, cols, states, trials int, topFraction, mutationRate float64) Settings {
	return Settings{
		Profile: name,
		World:   World{Rows: rows, Columns: cols, States: states},
		Evolution: Evolution{
			Trials:       trials,
			Steps:        2 * rows * cols,
			TopFraction:  topFraction,
			MutationRate: mutationRate,
		},
	}
}

func Default() Settings {
	return profiles[DefaultProfile]()
}

// Profile returns a named tuning profile.
func Profile(name string) (Settings, error) {
	if name == "" {
		name = DefaultProfile
	}
	build, ok := profiles[name]
	if !ok {
		return Settings{}, fmt.Errorf("%w: unknown profile %q (have %v)", ErrConfiguration, name, ProfileNames())
	}
	return build(), nil
}

func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s Settings) Validate() error {
	if s.World.Rows < 2 || s.World.Columns < 2 {
		return fmt.Errorf("%w: room must be at least 2x2, got %dx%d", ErrConfiguration, s.World.Rows, s.World.Columns)
	}
	if s.World.States <= 0 {
		return fmt.Errorf("%w: states must be > 0", ErrConfiguration)
	}
	if s.Evolution.Trials <= 0 {
		return fmt.Errorf("%w: trials must be > 0", ErrConfiguration)
	}
	if s.Evolution.Steps < 0 {
		return fmt.Errorf("%w: steps must be >= 0", ErrConfiguration)
	}
	if s.Evolution.TopFraction <= 0 || s.Evolution.TopFraction > 1 {
		return fmt.Errorf("%w: top fraction must be in (0, 1], got %v", ErrConfiguration, s.Evolution.TopFraction)
	}
	if s.Evolution.MutationRate < 0 || s.Evolution.MutationRate > 1 {
		return fmt.Errorf("%w: mutation rate must be in [0, 1], got %v", ErrConfiguration, s.Evolution.MutationRate)
	}
	return nil
}

// ValidateRun checks the settings against a concrete population size and generation count.
func (s Settings) ValidateRun(populationSize, generations int) error {
	if err := s.Validate(); err != nil {
		return err
	}
	if populationSize <= 0 {
		return fmt.Errorf("%w: population size must be > 0", ErrConfiguration)
	}
	if generations < 0 {
		return fmt.Errorf("%w: generations must be >= 0", ErrConfiguration)
	}
	if s.PoolSize(populationSize) < 1 {
		return fmt.Errorf("%w: top fraction %v of population %d leaves an empty breeding pool",
			ErrConfiguration, s.Evolution.TopFraction, populationSize)
	}
	if s.MutationCount(populationSize) > populationSize {
		return fmt.Errorf("%w: mutation count exceeds population size", ErrConfiguration)
	}
	return nil
}

// PoolSize is floor(populationSize * TopFraction).
func (s Settings) PoolSize(populationSize int) int {
	return FloorFraction(populationSize, s.Evolution.TopFraction)
}

// MutationCount is floor(populationSize * MutationRate).
func (s Settings) MutationCount(populationSize int) int {
	return FloorFraction(populationSize, s.Evolution.MutationRate)
}

// FloorFraction is floor(n * f), tolerant of binary rounding just below an integer.
func FloorFraction(n int, f float64) int {
	return int(math.Floor(float64(n)*f + 1e-9))
}
