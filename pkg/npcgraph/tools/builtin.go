package tools

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"time"

	"github.com/randalmurphal/npcgraph/pkg/npcgraph/lore"
)

// Dice limits.
const (
	MaxDice     = 100
	MaxSides    = 1000
	MaxModifier = 1000
)

var dicePattern = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// DiceRoller rolls NdM±k expressions.
type DiceRoller struct {
	// Intn returns a value in [0,n). Defaults to math/rand/v2.
	Intn func(n int) int
}

// Name implements Tool.
func (DiceRoller) Name() string { return "roll_dice" }

// Description implements Tool.
func (DiceRoller) Description() string {
	return "roll dice written as NdM[+/-bonus], e.g. 2d6+1; returns the rolls and total"
}

// Call implements Tool. The expression is read from "spec" or "input".
func (d DiceRoller) Call(ctx context.Context, args map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	spec := stringArg(args, "spec", InputKey)
	m := dicePattern.FindStringSubmatch(spec)
	if m == nil {
		return "", fmt.Errorf("%w: %q is not NdM[+/-k], e.g. 2d6+1", ErrBadArgs, spec)
	}

	n, errN := strconv.Atoi(m[1])
	sides, errSides := strconv.Atoi(m[2])
	mod := 0
	var errMod error
	if m[3] != "" {
		mod, errMod = strconv.Atoi(m[3])
	}
	if errN != nil || errSides != nil || errMod != nil ||
		n < 1 || n > MaxDice || sides < 1 || sides > MaxSides ||
		mod < -MaxModifier || mod > MaxModifier {
		return "", fmt.Errorf("%w: %q is out of range", ErrBadArgs, spec)
	}

	intn := d.Intn
	if intn == nil {
		intn = rand.IntN
	}
	rolls := make([]int, n)
	total := mod
	for i := range rolls {
		rolls[i] = intn(sides) + 1
		total += rolls[i]
	}
	return fmt.Sprintf("%s => rolls %v + %d = %d", spec, rolls, mod, total), nil
}

// Clock reports the world time.
type Clock struct {
	// Now defaults to time.Now.
	Now func() time.Time
}

// Name implements Tool.
func (Clock) Name() string { return "game_clock" }

// Description implements Tool.
func (Clock) Description() string { return "current world timestamp (UTC)" }

// Call implements Tool.
func (c Clock) Call(ctx context.Context, _ map[string]any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	return now().UTC().Format(time.RFC3339), nil
}

// Recall searches world lore.
type Recall struct {
	Searcher lore.Searcher
}

// Name implements Tool.
func (Recall) Name() string { return "recall_fact" }

// Description implements Tool.
func (Recall) Description() string { return "search the NPC's knowledge of the world" }

// Call implements Tool. The query is read from "query" or "input".
func (r Recall) Call(ctx context.Context, args map[string]any) (string, error) {
	if r.Searcher == nil {
		return "[no semantic memory configured]", nil
	}
	hits, err := r.Searcher.Search(ctx, stringArg(args, "query", InputKey), lore.DefaultK)
	if err != nil {
		return "", err
	}
	if len(hits) == 0 {
		return "[no results]", nil
	}
	return lore.Join(hits), nil
}

// Default returns a registry with roll_dice, game_clock and recall_fact.
func Default(searcher lore.Searcher) *Registry {
	return NewRegistry(DiceRoller{}, Clock{}, Recall{Searcher: searcher})
}
