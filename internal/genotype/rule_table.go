package genotype

import (
	"errors"
	"fmt"
	"math/rand"
	"sort"
	"strings"
)

var (
	ErrInvariantViolation = errors.New("rule table invariant violated")
	ErrConfiguration      = errors.New("invalid rule table configuration")
)

// Rule is the action taken for one (state, pattern) entry.
type Rule struct {
	Direction Direction
	Next      int
}

func (r Rule) String() string {
	return fmt.Sprintf("%s%d", r.Direction, r.Next)
}

// RuleTable is a Picobot program: a total function from (state, pattern) to Rule.
type RuleTable struct {
	rules [][PatternCount]Rule
}

// Mutation records the single entry rewritten by RuleTable.Mutate.
type Mutation struct {
	State   int
	Pattern Pattern
	Before  Rule
	After   Rule
}

func New(states int) (*RuleTable, error) {
	if states <= 0 {
		return nil, fmt.Errorf("%w: state count must be > 0, got %d", ErrConfiguration, states)
	}
	return &RuleTable{rules: make([][PatternCount]Rule, states)}, nil
}

// NewRandom returns a fully randomized table.
func NewRandom(states int, rng *rand.Rand) (*RuleTable, error) {
	table, err := New(states)
	if err != nil {
		return nil, err
	}
	table.Randomize(rng)
	return table, nil
}

func (t *RuleTable) States() int {
	return len(t.rules)
}

// Len counts the entries that hold a rule.
func (t *RuleTable) Len() int {
	n := 0
	for state := range t.rules {
		for _, rule := range t.rules[state] {
			if rule.Direction.Valid() {
				n++
			}
		}
	}
	return n
}

// Randomize overwrites every entry with a wall-legal direction and a uniform next state.
func (t *RuleTable) Randomize(rng *rand.Rand) {
	for state := range t.rules {
		for _, pattern := range Patterns {
			t.rules[state][pattern] = t.randomRule(pattern, rng)
		}
	}
}

func (t *RuleTable) randomRule(pattern Pattern, rng *rand.Rand) Rule {
	legal := pattern.LegalDirections()
	return Rule{
		Direction: legal[rng.Intn(len(legal))],
		Next:      rng.Intn(len(t.rules)),
	}
}

func (t *RuleTable) Lookup(state int, pattern Pattern) (Rule, error) {
	if state < 0 || state >= len(t.rules) || int(pattern) >= PatternCount {
		return Rule{}, fmt.Errorf("%w: no entry for state %d pattern %s", ErrInvariantViolation, state, pattern)
	}
	rule := t.rules[state][pattern]
	if !rule.Direction.Valid() {
		return Rule{}, fmt.Errorf("%w: unset entry for state %d pattern %s", ErrInvariantViolation, state, pattern)
	}
	return rule, nil
}

// Set writes one entry, rejecting rules that walk into a wall of pattern.
func (t *RuleTable) Set(state int, pattern Pattern, rule Rule) error {
	if state < 0 || state >= len(t.rules) || int(pattern) >= PatternCount {
		return fmt.Errorf("%w: state %d pattern %s out of range", ErrInvariantViolation, state, pattern)
	}
	if err := t.checkRule(pattern, rule); err != nil {
		return err
	}
	t.rules[state][pattern] = rule
	return nil
}

func (t *RuleTable) checkRule(pattern Pattern, rule Rule) error {
	if !rule.Direction.Valid() {
		return fmt.Errorf("%w: invalid direction %d", ErrInvariantViolation, rule.Direction)
	}
	if pattern.Blocks(rule.Direction) {
		return fmt.Errorf("%w: direction %s faces a wall in pattern %s", ErrInvariantViolation, rule.Direction, pattern)
	}
	if rule.Next < 0 || rule.Next >= len(t.rules) {
		return fmt.Errorf("%w: next state %d outside [0,%d)", ErrInvariantViolation, rule.Next, len(t.rules))
	}
	return nil
}

// Validate checks totality and wall legality of every entry.
func (t *RuleTable) Validate() error {
	for state := range t.rules {
		for _, pattern := range Patterns {
			if err := t.checkRule(pattern, t.rules[state][pattern]); err != nil {
				return fmt.Errorf("state %d pattern %s: %w", state, pattern, err)
			}
		}
	}
	return nil
}

// Mutate rewrites exactly one uniformly chosen entry with a different legal rule.
func (t *RuleTable) Mutate(rng *rand.Rand) Mutation {
	state := rng.Intn(len(t.rules))
	pattern := Patterns[rng.Intn(PatternCount)]
	before := t.rules[state][pattern]

	legal := pattern.LegalDirections()
	choices := len(legal) * len(t.rules)
	pick := rng.Intn(choices)
	after := Rule{Direction: legal[pick/len(t.rules)], Next: pick % len(t.rules)}
	if after == before {
		// Skip the current rule by drawing from the remaining choices-1 slots.
		pick = (pick + 1 + rng.Intn(choices-1)) % choices
		after = Rule{Direction: legal[pick/len(t.rules)], Next: pick % len(t.rules)}
	}
	t.rules[state][pattern] = after

	return Mutation{State: state, Pattern: pattern, Before: before, After: after}
}

// Crossover splits at a uniform state threshold; see CrossoverAt.
func (t *RuleTable) Crossover(other *RuleTable, rng *rand.Rand) (*RuleTable, error) {
	return t.CrossoverAt(other, rng.Intn(len(t.rules)))
}

// CrossoverAt builds a child whose states <= split come from t and states > split from other.
func (t *RuleTable) CrossoverAt(other *RuleTable, split int) (*RuleTable, error) {
	if other == nil || len(other.rules) != len(t.rules) {
		return nil, fmt.Errorf("%w: crossover parents must share a state count", ErrConfiguration)
	}
	child := &RuleTable{rules: make([][PatternCount]Rule, len(t.rules))}
	for state := range child.rules {
		if state <= split {
			child.rules[state] = t.rules[state]
		} else {
			child.rules[state] = other.rules[state]
		}
	}
	return child, nil
}

func (t *RuleTable) Clone() *RuleTable {
	out := &RuleTable{rules: make([][PatternCount]Rule, len(t.rules))}
	copy(out.rules, t.rules)
	return out
}

func (t *RuleTable) Equal(other *RuleTable) bool {
	if other == nil || len(other.rules) != len(t.rules) {
		return false
	}
	for state := range t.rules {
		if t.rules[state] != other.rules[state] {
			return false
		}
	}
	return true
}

// String renders one `<state> <pattern> -> <direction><next>` line per entry,
// ordered by state and then pattern spelling. Unset entries are omitted.
func (t *RuleTable) String() string {
	spellings := make([]Pattern, PatternCount)
	copy(spellings, Patterns[:])
	sort.Slice(spellings, func(i, j int) bool {
		return spellings[i].String() < spellings[j].String()
	})

	var b strings.Builder
	for state := range t.rules {
		for _, pattern := range spellings {
			rule := t.rules[state][pattern]
			if !rule.Direction.Valid() {
				continue
			}
			fmt.Fprintf(&b, "%d %s -> %s\n", state, pattern, rule)
		}
	}
	return b.String()
}
