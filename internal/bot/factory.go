package bot

import (
	"fmt"
	"math/rand"

	"pidr/internal/domain"
)

// NewBrain creates a new AI brain for the given difficulty. rng is only
// used by the easy tier.
func NewBrain(difficulty domain.Difficulty, rng *rand.Rand) (Brain, error) {
	switch difficulty {
	case domain.DifficultyEasy:
		return NewEasyBot(rng), nil
	case domain.DifficultyMedium:
		return NewMediumBot(DefaultTuning), nil
	case domain.DifficultyHard:
		return NewHardBot(DefaultTuning), nil
	default:
		return nil, fmt.Errorf("unknown bot difficulty: %q", difficulty)
	}
}
