package genotype

import "fmt"

// Direction is a single-cell move in the room. The zero value marks an unset rule.
type Direction uint8

const (
	DirectionUnset Direction = iota
	North
	South
	East
	West
)

var Directions = []Direction{North, South, East, West}

func (d Direction) String() string {
	switch d {
	case North:
		return "N"
	case South:
		return "S"
	case East:
		return "E"
	case West:
		return "W"
	default:
		return "?"
	}
}

// Delta returns the (row, column) offset of a move.
func (d Direction) Delta() (int, int) {
	switch d {
	case North:
		return -1, 0
	case South:
		return 1, 0
	case East:
		return 0, 1
	case West:
		return 0, -1
	default:
		return 0, 0
	}
}

func (d Direction) Valid() bool {
	return d >= North && d <= West
}

// Pattern classifies which walls touch the agent's cell.
type Pattern uint8

const (
	PatternOpen Pattern = iota
	PatternNorth
	PatternNorthEast
	PatternNorthWest
	PatternSouth
	PatternSouthEast
	PatternSouthWest
	PatternEast
	PatternWest
)

// PatternCount is the number of wall patterns realisable on a rectangular room.
const PatternCount = 9

var Patterns = [PatternCount]Pattern{
	PatternOpen,
	PatternNorth,
	PatternNorthEast,
	PatternNorthWest,
	PatternSouth,
	PatternSouthEast,
	PatternSouthWest,
	PatternEast,
	PatternWest,
}

var patternSpellings = [PatternCount]string{
	PatternOpen:      "xxxx",
	PatternNorth:     "Nxxx",
	PatternNorthEast: "NExx",
	PatternNorthWest: "NxWx",
	PatternSouth:     "xxxS",
	PatternSouthEast: "xExS",
	PatternSouthWest: "xxWS",
	PatternEast:      "xExx",
	PatternWest:      "xxWx",
}

// String renders the pattern with wall letters in N E W S order and x for open sides.
func (p Pattern) String() string {
	if int(p) >= PatternCount {
		return fmt.Sprintf("pattern(%d)", uint8(p))
	}
	return patternSpellings[p]
}

// ParsePattern is the inverse of Pattern.String.
func ParsePattern(s string) (Pattern, error) {
	for i, spelling := range patternSpellings {
		if spelling == s {
			return Pattern(i), nil
		}
	}
	return 0, fmt.Errorf("unknown pattern %q", s)
}

// Blocks reports whether the pattern has a wall on the side d faces.
func (p Pattern) Blocks(d Direction) bool {
	switch d {
	case North:
		return p == PatternNorth || p == PatternNorthEast || p == PatternNorthWest
	case South:
		return p == PatternSouth || p == PatternSouthEast || p == PatternSouthWest
	case East:
		return p == PatternNorthEast || p == PatternSouthEast || p == PatternEast
	case West:
		return p == PatternNorthWest || p == PatternSouthWest || p == PatternWest
	default:
		return true
	}
}

// LegalDirections lists the moves that do not face a wall of p.
func (p Pattern) LegalDirections() []Direction {
	out := make([]Direction, 0, len(Directions))
	for _, d := range Directions {
		if !p.Blocks(d) {
			out = append(out, d)
		}
	}
	return out
}

// ClassifyPattern derives the wall pattern of a cell in a rows x cols room.
func ClassifyPattern(row, col, rows, cols int) Pattern {
	north := row == 0
	south := row == rows-1
	west := col == 0
	east := col == cols-1

	switch {
	case north && east:
		return PatternNorthEast
	case north && west:
		return PatternNorthWest
	case north:
		return PatternNorth
	case south && east:
		return PatternSouthEast
	case south && west:
		return PatternSouthWest
	case south:
		return PatternSouth
	case east:
		return PatternEast
	case west:
		return PatternWest
	default:
		return PatternOpen
	}
}
