package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"
)

// DelayRangeMs bounds a bot's thinking time in milliseconds.
type DelayRangeMs struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// PlaceReward is the wallet change granted for a finishing place (1-based).
type PlaceReward struct {
	Place int   `json:"place"`
	Coins int64 `json:"coins"`
}

type GameConfig struct {
	DeclarationDeadlineMs int                     `json:"declaration_deadline_ms"`
	BotDelays             map[string]DelayRangeMs `json:"bot_delays"`
	DefaultBotDifficulty  string                  `json:"default_bot_difficulty"`
	PlaceRewards          []PlaceReward           `json:"place_rewards"`
	TickRate              int                     `json:"tick_rate"`
	// BotAutoFillDelaySeconds configures how many seconds to wait before filling a solo human lobby with bots.
	BotAutoFillDelaySeconds int    `json:"bot_auto_fill_delay_seconds"`
	BotSeats                int    `json:"bot_seats"`
	ReceiptIssuer           string `json:"receipt_issuer"`
	ReceiptTTLSeconds       int    `json:"receipt_ttl_seconds"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// Defaults returns the configuration used when no file is present.
func Defaults() *GameConfig {
	return &GameConfig{
		DeclarationDeadlineMs: 5000,
		BotDelays: map[string]DelayRangeMs{
			"easy":   {Min: 170, Max: 500},
			"medium": {Min: 330, Max: 830},
			"hard":   {Min: 500, Max: 1170},
		},
		DefaultBotDifficulty: "medium",
		PlaceRewards: []PlaceReward{
			{Place: 1, Coins: 100},
			{Place: 2, Coins: 50},
			{Place: 3, Coins: 20},
		},
		TickRate:                5,
		BotAutoFillDelaySeconds: 10,
		BotSeats:                3,
		ReceiptIssuer:           "pidr",
		ReceiptTTLSeconds:       3600,
	}
}

// ParseGameConfig decodes data on top of Defaults, so a file only needs to
// list the values it changes.
func ParseGameConfig(data []byte) (*GameConfig, error) {
	c := Defaults()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal game config: %w", err)
	}
	if c.DeclarationDeadlineMs <= 0 {
		return nil, fmt.Errorf("declaration_deadline_ms must be positive, got %d", c.DeclarationDeadlineMs)
	}
	for name, r := range c.BotDelays {
		if r.Min < 0 || r.Max < r.Min {
			return nil, fmt.Errorf("bot_delays.%s: invalid range [%d, %d]", name, r.Min, r.Max)
		}
	}
	if c.TickRate <= 0 {
		c.TickRate = 5
	}
	return c, nil
}

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}
		c, err := ParseGameConfig(data)
		if err != nil {
			loadErr = err
			return
		}
		cfg = c
	})
	return loadErr
}

// GetGameConfig returns the loaded configuration, or Defaults when none was
// loaded.
func GetGameConfig() *GameConfig {
	if cfg == nil {
		return Defaults()
	}
	return cfg
}

// DeclarationWindow is the time a player has to declare a single card.
func (c *GameConfig) DeclarationWindow() time.Duration {
	return time.Duration(c.DeclarationDeadlineMs) * time.Millisecond
}

// BotDelay returns the thinking delay range for a difficulty name.
func (c *GameConfig) BotDelay(difficulty string) (lo, hi time.Duration, ok bool) {
	r, ok := c.BotDelays[difficulty]
	if !ok {
		return 0, 0, false
	}
	return time.Duration(r.Min) * time.Millisecond, time.Duration(r.Max) * time.Millisecond, true
}

// RewardForPlace returns the coins for a 1-based finishing place, 0 when
// the place earns nothing.
func (c *GameConfig) RewardForPlace(place int) int64 {
	for _, r := range c.PlaceRewards {
		if r.Place == place {
			return r.Coins
		}
	}
	return 0
}

// ReceiptTTL is how long a signed result receipt stays valid.
func (c *GameConfig) ReceiptTTL() time.Duration {
	return time.Duration(c.ReceiptTTLSeconds) * time.Second
}
