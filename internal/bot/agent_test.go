package bot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pidr/internal/domain"
)

func TestAgent_ThinkDelayWithinRange(t *testing.T) {
	for _, difficulty := range []domain.Difficulty{domain.DifficultyEasy, domain.DifficultyMedium, domain.DifficultyHard} {
		r := DefaultTuning.DelayFor(difficulty)
		agent, err := NewAgent("bot", difficulty, 3, r)
		if err != nil {
			t.Fatalf("NewAgent: %v", err)
		}
		for i := 0; i < 100; i++ {
			d := agent.ThinkDelay()
			if d < r.Min || d > r.Max {
				t.Fatalf("%s delay %v outside [%v, %v]", difficulty, d, r.Min, r.Max)
			}
		}
	}
}

func TestAgent_SameSeedSameDecisions(t *testing.T) {
	snap := beatSnapshot([]domain.Card{c("t", domain.Seven, domain.Diamonds)},
		c("d8", domain.Eight, domain.Diamonds), c("d9", domain.Nine, domain.Diamonds), c("h3", domain.Three, domain.Hearts))
	a, _ := NewAgent("bot", domain.DifficultyEasy, 99, DelayRange{})
	b, _ := NewAgent("bot", domain.DifficultyEasy, 99, DelayRange{})
	for i := 0; i < 20; i++ {
		if x, y := a.Decide(snap), b.Decide(snap); x != y {
			t.Fatalf("decision %d differs: %s vs %s", i, x, y)
		}
	}
}

func TestAgent_DecideAsync(t *testing.T) {
	snap := beatSnapshot(nil, c("c5", domain.Five, domain.Clubs))
	agent, err := NewAgent("bot", domain.DifficultyMedium, 1, DelayRange{Min: time.Millisecond, Max: 2 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	got, err := agent.DecideAsync(context.Background(), snap)
	if err != nil {
		t.Fatalf("DecideAsync: %v", err)
	}
	if got != PlayCard("c5") {
		t.Fatalf("got %s", got)
	}
}

func TestAgent_DecideAsyncCancelled(t *testing.T) {
	snap := beatSnapshot(nil, c("c5", domain.Five, domain.Clubs))
	agent, _ := NewAgent("bot", domain.DifficultyHard, 1, DelayRange{Min: time.Hour, Max: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := agent.DecideAsync(ctx, snap)
		done <- err
	}()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("DecideAsync ignored cancellation")
	}
}

func TestNewAgentUnknownDifficulty(t *testing.T) {
	if _, err := NewAgent("bot", "legendary", 1, DelayRange{}); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadIdentities(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.json")
	data := `[
		{"user_id": "u-1", "username": "ivan", "display_name": "Ivan", "difficulty": "hard"},
		{"user_id": "u-2", "username": "olga", "difficulty": "nonsense"}
	]`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := LoadIdentities(path); err != nil {
		t.Fatalf("LoadIdentities: %v", err)
	}

	if !IsBot("u-1") || IsBot("someone") {
		t.Fatal("IsBot mismatch")
	}
	if got := GetBotDisplayName("u-2"); got != "olga" {
		t.Fatalf("display name fallback = %q", got)
	}
	if got := GetBotIdentity(3); got.UserID != "u-2" || got.Difficulty != domain.DifficultyMedium {
		t.Fatalf("GetBotIdentity(3) = %+v", got)
	}
	if got := GetBotIdentity(0); got.Difficulty != domain.DifficultyHard {
		t.Fatalf("GetBotIdentity(0) = %+v", got)
	}
}
