package scape

import (
	"errors"
	"fmt"
	"strings"

	"picobot/internal/config"
	"picobot/internal/genotype"
)

var ErrBoundaryViolation = errors.New("move leaves the room")

type Cell uint8

const (
	Unvisited Cell = iota
	Visited
	Occupied
)

func (c Cell) Rune() rune {
	switch c {
	case Visited:
		return '.'
	case Occupied:
		return 'P'
	default:
		return ' '
	}
}

// Room is one Picobot trial: the agent's internal state, its position and the
// marks it has left. A Room is never shared between trials.
type Room struct {
	rows, cols int
	program    *genotype.RuleTable
	state      int
	row, col   int
	cells      []Cell
	steps      int
}

func NewRoom(world config.World, program *genotype.RuleTable, row, col int) (*Room, error) {
	if world.Rows < 2 || world.Columns < 2 {
		return nil, fmt.Errorf("%w: room must be at least 2x2, got %dx%d", config.ErrConfiguration, world.Rows, world.Columns)
	}
	if program == nil {
		return nil, fmt.Errorf("%w: program is required", config.ErrConfiguration)
	}
	if row < 0 || row >= world.Rows || col < 0 || col >= world.Columns {
		return nil, fmt.Errorf("%w: start (%d,%d) outside %dx%d room", config.ErrConfiguration, row, col, world.Rows, world.Columns)
	}
	r := &Room{
		rows:    world.Rows,
		cols:    world.Columns,
		program: program,
		row:     row,
		col:     col,
		cells:   make([]Cell, world.Rows*world.Columns),
	}
	r.cells[r.index(row, col)] = Occupied
	return r, nil
}

func (r *Room) index(row, col int) int {
	return row*r.cols + col
}

// Step advances the agent by one move. A rule that would carry the agent past
// a wall is reported, never clamped: wall-legal tables cannot produce one.
// A failed step leaves the room unchanged.
func (r *Room) Step() error {
	pattern := genotype.ClassifyPattern(r.row, r.col, r.rows, r.cols)
	rule, err := r.program.Lookup(r.state, pattern)
	if err != nil {
		return err
	}

	dr, dc := rule.Direction.Delta()
	row, col := r.row+dr, r.col+dc
	if row < 0 || row >= r.rows || col < 0 || col >= r.cols {
		return fmt.Errorf("%w: state %d pattern %s move %s from (%d,%d)",
			ErrBoundaryViolation, r.state, pattern, rule.Direction, r.row, r.col)
	}

	r.cells[r.index(r.row, r.col)] = Visited
	r.state = rule.Next
	r.row, r.col = row, col
	r.cells[r.index(row, col)] = Occupied
	r.steps++
	return nil
}

func (r *Room) Run(steps int) error {
	for i := 0; i < steps; i++ {
		if err := r.Step(); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	return nil
}

func (r *Room) Size() (rows, cols int) {
	return r.rows, r.cols
}

func (r *Room) Position() (int, int) {
	return r.row, r.col
}

func (r *Room) State() int {
	return r.state
}

func (r *Room) Steps() int {
	return r.steps
}

func (r *Room) Cell(row, col int) Cell {
	return r.cells[r.index(row, col)]
}

// VisitedCount counts cells left behind; the occupied cell is not included.
func (r *Room) VisitedCount() int {
	n := 0
	for _, c := range r.cells {
		if c == Visited {
			n++
		}
	}
	return n
}

// String draws the room one row per line between | borders.
func (r *Room) String() string {
	var b strings.Builder
	b.Grow((r.cols + 3) * r.rows)
	for row := 0; row < r.rows; row++ {
		b.WriteByte('|')
		for col := 0; col < r.cols; col++ {
			b.WriteRune(r.Cell(row, col).Rune())
		}
		b.WriteString("|\n")
	}
	return b.String()
}
