package bot

import (
	"math/rand"

	"pidr/internal/domain"
)

// EasyBot picks uniformly among legal options. It never accuses anybody.
// rng is not safe for concurrent use; Agent serialises calls.
type EasyBot struct {
	rng   *rand.Rand
	rules []DecisionRule
}

func NewEasyBot(rng *rand.Rand) *EasyBot {
	b := &EasyBot{rng: rng}
	b.rules = []DecisionRule{
		&PenaltyRule{Pick: b.randomCard},
		&DeclareRule{},
		&PlacementRule{Revealed: b.placeRevealed, PickOpponent: b.randomID},
		&BeatRule{
			Lead:   func(hand []domain.Card, _ domain.Suit) domain.Card { return b.randomCard(hand) },
			Answer: b.randomCard,
		},
	}
	return b
}

func (b *EasyBot) CalculateMove(snap domain.Snapshot, playerID string) (Action, error) {
	return runPipeline(snap, playerID, b.rules)
}

func (b *EasyBot) placeRevealed(_ *DecisionContext, _ domain.Card, targets []string) Action {
	if len(targets) == 0 {
		return Draw()
	}
	return PlaceOnTarget(b.randomID(targets))
}

func (b *EasyBot) randomCard(cards []domain.Card) domain.Card {
	return cards[b.rng.Intn(len(cards))]
}

func (b *EasyBot) randomID(ids []string) string {
	return ids[b.rng.Intn(len(ids))]
}
