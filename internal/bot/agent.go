package bot

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"pidr/internal/domain"
)

// Agent represents an autonomous bot player: a brain plus its pacing.
type Agent struct {
	ID         string
	Difficulty domain.Difficulty
	Strategy   Brain
	Delay      DelayRange

	mu  sync.Mutex
	rng *rand.Rand
}

// NewAgent builds the agent for a bot seat. The same seed always yields the
// same decisions and delays.
func NewAgent(id string, difficulty domain.Difficulty, seed int64, delay DelayRange) (*Agent, error) {
	rng := rand.New(rand.NewSource(seed))
	brain, err := NewBrain(difficulty, rng)
	if err != nil {
		return nil, err
	}
	return &Agent{ID: id, Difficulty: difficulty, Strategy: brain, Delay: delay, rng: rng}, nil
}

// Decide asks the brain for an action against snap. It never touches live
// state.
func (a *Agent) Decide(snap domain.Snapshot) Action {
	a.mu.Lock()
	defer a.mu.Unlock()
	action, err := a.Strategy.CalculateMove(snap, a.ID)
	if err != nil {
		return Pass()
	}
	return action
}

// ThinkDelay samples the artificial delay for the next decision.
func (a *Agent) ThinkDelay() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	span := a.Delay.Max - a.Delay.Min
	if span <= 0 {
		return a.Delay.Min
	}
	return a.Delay.Min + time.Duration(a.rng.Int63n(int64(span)+1))
}

// DecideAsync decides first, then waits out the thinking delay. The
// decision does not depend on the delay. A cancelled ctx discards the
// decision and returns ctx.Err().
func (a *Agent) DecideAsync(ctx context.Context, snap domain.Snapshot) (Action, error) {
	action := a.Decide(snap)
	timer := time.NewTimer(a.ThinkDelay())
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return Pass(), ctx.Err()
	case <-timer.C:
		return action, nil
	}
}
