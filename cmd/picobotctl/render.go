package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"picobot/internal/scape"
)

const (
	ansiReset = "\x1b[0m"
	ansiRobot = "\x1b[1;32m"
	ansiVisit = "\x1b[2;37m"
)

func useColor(mode string, out *os.File) (bool, error) {
	switch mode {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "", "auto":
		fd := out.Fd()
		return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd), nil
	default:
		return false, fmt.Errorf("unknown color mode: %s", mode)
	}
}

// renderRoom draws the room like Room.String, optionally highlighting the
// robot and its trail.
func renderRoom(room *scape.Room, colored bool) string {
	if !colored {
		return room.String()
	}
	rows, cols := room.Size()
	var b strings.Builder
	for row := 0; row < rows; row++ {
		b.WriteByte('|')
		for col := 0; col < cols; col++ {
			cell := room.Cell(row, col)
			switch cell {
			case scape.Occupied:
				b.WriteString(ansiRobot)
				b.WriteRune(cell.Rune())
				b.WriteString(ansiReset)
			case scape.Visited:
				b.WriteString(ansiVisit)
				b.WriteRune(cell.Rune())
				b.WriteString(ansiReset)
			default:
				b.WriteRune(cell.Rune())
			}
		}
		b.WriteString("|\n")
	}
	return b.String()
}
