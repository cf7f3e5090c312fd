package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const envPrefix = "PICOBOT_"

// overlay mirrors Settings with optional fields so partial files and env sets
// only touch what they name.
type overlay struct {
	Profile *string `toml:"profile"`

	World struct {
		Rows    *int `toml:"rows"`
		Columns *int `toml:"columns"`
		States  *int `toml:"states"`
	} `toml:"world"`
	Evolution struct {
		Trials       *int     `toml:"trials"`
		Steps        *int     `toml:"steps"`
		TopFraction  *float64 `toml:"top_fraction"`
		MutationRate *float64 `toml:"mutation_rate"`
	} `toml:"evolution"`
}

// apply layers o onto base. A profile switch resets base to that profile first.
// A room resize rescales steps to 2x cells only while the budget still follows
// the room, so a step count set by an earlier layer survives a later resize.
func (o overlay) apply(base Settings) (Settings, error) {
	out := base
	if o.Profile != nil && *o.Profile != base.Profile {
		p, err := Profile(*o.Profile)
		if err != nil {
			return Settings{}, err
		}
		out = p
	}

	stepsFollowRoom := out.Evolution.Steps == 2*out.World.Cells()
	resized := false
	if o.World.Rows != nil {
		out.World.Rows = *o.World.Rows
		resized = true
	}
	if o.World.Columns != nil {
		out.World.Columns = *o.World.Columns
		resized = true
	}
	if o.World.States != nil {
		out.World.States = *o.World.States
	}
	if o.Evolution.Trials != nil {
		out.Evolution.Trials = *o.Evolution.Trials
	}
	if o.Evolution.Steps != nil {
		out.Evolution.Steps = *o.Evolution.Steps
	} else if resized && stepsFollowRoom {
		out.Evolution.Steps = 2 * out.World.Cells()
	}
	if o.Evolution.TopFraction != nil {
		out.Evolution.TopFraction = *o.Evolution.TopFraction
	}
	if o.Evolution.MutationRate != nil {
		out.Evolution.MutationRate = *o.Evolution.MutationRate
	}
	return out, out.Validate()
}

// LoadFile overlays a TOML settings file onto base.
func LoadFile(path string, base Settings) (Settings, error) {
	var o overlay
	if _, err := toml.DecodeFile(path, &o); err != nil {
		return Settings{}, fmt.Errorf("decode settings %s: %w", path, err)
	}
	return o.apply(base)
}

// LoadDotEnv loads .env style files into the process environment. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// ApplyEnv overlays PICOBOT_* variables read through lookup (os.LookupEnv in
// the CLI) onto base.
func ApplyEnv(base Settings, lookup func(string) (string, bool)) (Settings, error) {
	var o overlay
	var err error
	if v, ok := lookup(envPrefix + "PROFILE"); ok {
		o.Profile = &v
	}
	if o.World.Rows, err = envInt(lookup, "ROWS"); err != nil {
		return Settings{}, err
	}
	if o.World.Columns, err = envInt(lookup, "COLUMNS"); err != nil {
		return Settings{}, err
	}
	if o.World.States, err = envInt(lookup, "STATES"); err != nil {
		return Settings{}, err
	}
	if o.Evolution.Trials, err = envInt(lookup, "TRIALS"); err != nil {
		return Settings{}, err
	}
	if o.Evolution.Steps, err = envInt(lookup, "STEPS"); err != nil {
		return Settings{}, err
	}
	if o.Evolution.TopFraction, err = envFloat(lookup, "TOP_FRACTION"); err != nil {
		return Settings{}, err
	}
	if o.Evolution.MutationRate, err = envFloat(lookup, "MUTATION_RATE"); err != nil {
		return Settings{}, err
	}
	return o.apply(base)
}

func envInt(lookup func(string) (string, bool), key string) (*int, error) {
	raw, ok := lookup(envPrefix + key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s%s must be an integer: %v", ErrConfiguration, envPrefix, key, err)
	}
	return &v, nil
}

func envFloat(lookup func(string) (string, bool), key string) (*float64, error) {
	raw, ok := lookup(envPrefix + key)
	if !ok || raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: %s%s must be a number: %v", ErrConfiguration, envPrefix, key, err)
	}
	return &v, nil
}
