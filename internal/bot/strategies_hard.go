package bot

import "pidr/internal/domain"

// HardBot plays like MediumBot; only its thinking delay differs.
// TODO: add lookahead over opponents' visible top cards for stage 1 routing.
type HardBot struct {
	MediumBot
}

func NewHardBot(tuning Tuning) *HardBot {
	return &HardBot{MediumBot: *NewMediumBot(tuning)}
}

func (b *HardBot) CalculateMove(snap domain.Snapshot, playerID string) (Action, error) {
	return b.MediumBot.CalculateMove(snap, playerID)
}
