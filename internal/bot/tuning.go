package bot

import (
	"time"

	"pidr/internal/domain"
)

// DelayRange bounds the artificial thinking time of a bot.
type DelayRange struct {
	Min time.Duration
	Max time.Duration
}

// Tuning holds the thresholds shared by the medium and hard brains.
type Tuning struct {
	// LowRankMax: revealed cards up to this rank are pushed onto an
	// opponent.
	LowRankMax domain.Rank
	// HighRankMin: revealed cards from this rank up are kept on the own pile.
	HighRankMin domain.Rank
	Delays      map[domain.Difficulty]DelayRange
}

// DefaultTuning mirrors the pacing players are used to: easy bots answer
// fast, hard bots take their time.
var DefaultTuning = Tuning{
	LowRankMax:  domain.Six,
	HighRankMin: domain.Ten,
	Delays: map[domain.Difficulty]DelayRange{
		domain.DifficultyEasy:   {Min: 170 * time.Millisecond, Max: 500 * time.Millisecond},
		domain.DifficultyMedium: {Min: 330 * time.Millisecond, Max: 830 * time.Millisecond},
		domain.DifficultyHard:   {Min: 500 * time.Millisecond, Max: 1170 * time.Millisecond},
	},
}

// DelayFor returns the delay range of a difficulty, falling back to medium.
func (t Tuning) DelayFor(d domain.Difficulty) DelayRange {
	if r, ok := t.Delays[d]; ok {
		return r
	}
	return t.Delays[domain.DifficultyMedium]
}
