package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// World mirrors the room dimensions a run was evolved against.
type World struct {
	Rows    int `json:"rows"`
	Columns int `json:"columns"`
	States  int `json:"states"`
}

type Evolution struct {
	Trials       int     `json:"trials"`
	Steps        int     `json:"steps"`
	TopFraction  float64 `json:"top_fraction"`
	MutationRate float64 `json:"mutation_rate"`
}

// RunRecord summarizes one finished evolution run. Program is the rendered
// rule table of the best program and is kept for display only.
type RunRecord struct {
	VersionedRecord
	ID                 string    `json:"id"`
	CreatedAt          time.Time `json:"created_at"`
	Profile            string    `json:"profile"`
	World              World     `json:"world"`
	Evolution          Evolution `json:"evolution"`
	Seed               int64     `json:"seed"`
	PopulationSize     int       `json:"population_size"`
	Generations        int       `json:"generations"`
	BestFitness        float64   `json:"best_fitness"`
	ChampionFitness    float64   `json:"champion_fitness"`
	ChampionGeneration int       `json:"champion_generation"`
	Evaluations        int       `json:"evaluations"`
	Mutations          int       `json:"mutations"`
	Program            string    `json:"program"`
	ElapsedMillis      int64     `json:"elapsed_ms"`
}

type GenerationDiagnostics struct {
	Generation  int     `json:"generation"`
	BestFitness float64 `json:"best_fitness"`
	MeanFitness float64 `json:"mean_fitness"`
	MinFitness  float64 `json:"min_fitness"`
	PoolSize    int     `json:"pool_size"`
	Mutations   int     `json:"mutations"`
}
