package ports

import (
	"context"
	"time"
)

// GameResult is the final record of a finished game.
type GameResult struct {
	GameID   string `json:"game_id"`
	WinnerID string `json:"winner_id"`
	LoserID  string `json:"loser_id"`
	// Rankings lists players from first finisher to loser.
	Rankings   []string  `json:"rankings"`
	FinishedAt time.Time `json:"finished_at"`
	// Receipt is the signed token of the result, empty when signing is off.
	Receipt string `json:"receipt,omitempty"`
}

// Place returns the 1-based finishing place of userID, or 0.
func (r GameResult) Place(userID string) int {
	for i, id := range r.Rankings {
		if id == userID {
			return i + 1
		}
	}
	return 0
}

// ResultRecorder persists finished games. It is called exactly once per
// game, outside the engine lock.
type ResultRecorder interface {
	RecordResult(ctx context.Context, result GameResult) error
}

// PlaceReward is the coin grant for one player's finishing place.
type PlaceReward struct {
	UserID   string
	Place    int
	Coins    int64
	Metadata map[string]interface{}
}
