package genotype

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
)

func randomTable(t *testing.T, states int, seed int64) *RuleTable {
	t.Helper()
	table, err := NewRandom(states, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("new random table: %v", err)
	}
	return table
}

func TestNewRejectsNonPositiveStates(t *testing.T) {
	if _, err := New(0); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestLookupUnsetEntryIsInvariantViolation(t *testing.T) {
	table, err := New(3)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, err := table.Lookup(0, PatternOpen); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if _, err := table.Lookup(5, PatternOpen); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation for out-of-range state, got %v", err)
	}
}

func TestRandomizeIsTotalAndWallLegal(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		table := randomTable(t, 5, seed)
		if table.Len() != 5*PatternCount {
			t.Fatalf("seed %d: expected %d entries, got %d", seed, 5*PatternCount, table.Len())
		}
		if err := table.Validate(); err != nil {
			t.Fatalf("seed %d: validate: %v", seed, err)
		}
		for state := 0; state < 5; state++ {
			for _, pattern := range Patterns {
				rule, err := table.Lookup(state, pattern)
				if err != nil {
					t.Fatalf("lookup: %v", err)
				}
				if pattern.Blocks(rule.Direction) {
					t.Fatalf("state %d pattern %s moves %s into a wall", state, pattern, rule.Direction)
				}
			}
		}
	}
}

func TestMutateChangesExactlyOneEntry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	table := randomTable(t, 5, 3)
	for i := 0; i < 200; i++ {
		before := table.Clone()
		mutation := table.Mutate(rng)
		if mutation.Before == mutation.After {
			t.Fatalf("mutation %d left entry unchanged: %+v", i, mutation)
		}
		if mutation.Pattern.Blocks(mutation.After.Direction) {
			t.Fatalf("mutation %d produced wall move: %+v", i, mutation)
		}

		changed := 0
		for state := 0; state < table.States(); state++ {
			for _, pattern := range Patterns {
				a, _ := before.Lookup(state, pattern)
				b, _ := table.Lookup(state, pattern)
				if a != b {
					changed++
					if state != mutation.State || pattern != mutation.Pattern {
						t.Fatalf("unexpected change at state %d pattern %s", state, pattern)
					}
				}
			}
		}
		if changed != 1 {
			t.Fatalf("mutation %d changed %d entries", i, changed)
		}
	}
	if err := table.Validate(); err != nil {
		t.Fatalf("validate after mutations: %v", err)
	}
}

func TestCrossoverAtCopiesStatesFromEachParent(t *testing.T) {
	a := randomTable(t, 5, 11)
	b := randomTable(t, 5, 12)

	for split := 0; split < 5; split++ {
		child, err := a.CrossoverAt(b, split)
		if err != nil {
			t.Fatalf("crossover: %v", err)
		}
		for state := 0; state < 5; state++ {
			source := b
			if state <= split {
				source = a
			}
			for _, pattern := range Patterns {
				want, _ := source.Lookup(state, pattern)
				got, _ := child.Lookup(state, pattern)
				if got != want {
					t.Fatalf("split %d state %d pattern %s: got %v want %v", split, state, pattern, got, want)
				}
			}
		}
	}
}

func TestCrossoverChildIsIndependentCopy(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	a := randomTable(t, 5, 21)
	b := randomTable(t, 5, 22)
	snapshot := a.Clone()

	child, err := a.Crossover(b, rng)
	if err != nil {
		t.Fatalf("crossover: %v", err)
	}
	for i := 0; i < 50; i++ {
		child.Mutate(rng)
	}
	if !a.Equal(snapshot) {
		t.Fatal("mutating the child changed its parent")
	}
}

func TestCrossoverRejectsMismatchedParents(t *testing.T) {
	a := randomTable(t, 5, 1)
	b := randomTable(t, 4, 1)
	if _, err := a.CrossoverAt(b, 2); !errors.Is(err, ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestSetRejectsWallMoves(t *testing.T) {
	table, _ := New(2)
	if err := table.Set(0, PatternNorth, Rule{Direction: North, Next: 0}); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected invariant violation, got %v", err)
	}
	if err := table.Set(0, PatternNorth, Rule{Direction: South, Next: 2}); !errors.Is(err, ErrInvariantViolation) {
		t.Fatalf("expected next-state violation, got %v", err)
	}
	if err := table.Set(1, PatternSouthWest, Rule{Direction: East, Next: 1}); err != nil {
		t.Fatalf("set: %v", err)
	}
}

func TestStringFormatsSortedEntries(t *testing.T) {
	table := randomTable(t, 2, 9)
	lines := strings.Split(strings.TrimSpace(table.String()), "\n")
	if len(lines) != 2*PatternCount {
		t.Fatalf("expected %d lines, got %d", 2*PatternCount, len(lines))
	}
	if !strings.HasPrefix(lines[0], "0 NExx -> ") {
		t.Fatalf("unexpected first line %q", lines[0])
	}
	if !strings.HasPrefix(lines[len(lines)-1], "1 xxxx -> ") {
		t.Fatalf("unexpected last line %q", lines[len(lines)-1])
	}
	for _, line := range lines {
		if len(strings.Fields(line)) != 4 {
			t.Fatalf("malformed line %q", line)
		}
	}
}
