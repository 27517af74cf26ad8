package bot

import (
	"pidr/internal/domain"
)

// MediumBot always plays the minimal sufficient card and routes revealed
// cards by rank.
type MediumBot struct {
	Tuning Tuning
	rules  []DecisionRule
}

func NewMediumBot(tuning Tuning) *MediumBot {
	b := &MediumBot{Tuning: tuning}
	b.rules = []DecisionRule{
		&PenaltyRule{Pick: lowestCard},
		&DeclareRule{},
		&AccuseRule{},
		&PlacementRule{Revealed: b.placeRevealed, PickOpponent: firstID},
		&BeatRule{Lead: lowestLead, Answer: lowestCard},
	}
	return b
}

func (b *MediumBot) CalculateMove(snap domain.Snapshot, playerID string) (Action, error) {
	return runPipeline(snap, playerID, b.rules)
}

// placeRevealed sends low cards to the first opponent that accepts them and
// keeps high cards on the own pile. Anything else is kept in hand by Draw.
func (b *MediumBot) placeRevealed(ctx *DecisionContext, card domain.Card, targets []string) Action {
	self := ctx.Self.ID
	switch {
	case card.Rank <= b.Tuning.LowRankMax:
		if opp := opponents(targets, self); len(opp) > 0 {
			return PlaceOnTarget(opp[0])
		}
	case card.Rank >= b.Tuning.HighRankMin:
		if contains(targets, self) {
			return PlaceOnTarget(self)
		}
	}
	return Draw()
}
