package bot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/heroiclabs/nakama-common/runtime"

	"pidr/internal/domain"
)

// BotIdentity is one entry of the bot roster file.
type BotIdentity struct {
	DeviceID    string            `json:"device_id"`
	UserID      string            `json:"user_id"`
	Username    string            `json:"username"`
	DisplayName string            `json:"display_name"`
	Difficulty  domain.Difficulty `json:"difficulty"`
	AvatarIndex int               `json:"avatar_index"`
}

var (
	rosterMu   sync.RWMutex
	roster     []BotIdentity
	rosterByID map[string]BotIdentity
	loadOnce   sync.Once
	loadErr    error
)

// LoadIdentities reads the bot roster once. Later calls return the first
// result.
func LoadIdentities(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read bot identities: %w", err)
			return
		}
		var list []BotIdentity
		if err := json.Unmarshal(data, &list); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal bot identities: %w", err)
			return
		}
		setRoster(list)
	})
	return loadErr
}

func setRoster(list []BotIdentity) {
	rosterMu.Lock()
	defer rosterMu.Unlock()
	roster = list
	rosterByID = make(map[string]BotIdentity, len(list))
	for i := range roster {
		roster[i].Difficulty = domain.ParseDifficulty(string(roster[i].Difficulty))
		if roster[i].UserID != "" {
			rosterByID[roster[i].UserID] = roster[i]
		}
	}
}

// ProvisionBots creates the Nakama accounts of the roster and stores the
// resulting user ids. Accounts that fail are skipped and logged.
func ProvisionBots(ctx context.Context, nk runtime.NakamaModule, logger runtime.Logger) {
	rosterMu.Lock()
	defer rosterMu.Unlock()
	for i := range roster {
		identity := &roster[i]
		if identity.DeviceID == "" {
			continue
		}
		userID, username, _, err := nk.AuthenticateDevice(ctx, identity.DeviceID, identity.Username, true)
		if err != nil {
			logger.Error("ProvisionBots: failed to authenticate bot %s: %v", identity.Username, err)
			continue
		}
		identity.UserID = userID
		identity.Username = username

		metadata := map[string]interface{}{
			"is_bot":       true,
			"difficulty":   string(identity.Difficulty),
			"avatar_index": identity.AvatarIndex,
		}
		if err := nk.AccountUpdateId(ctx, userID, identity.Username, metadata, identity.DisplayName, "", "", "", ""); err != nil {
			logger.Warn("ProvisionBots: failed to update bot account %s: %v", userID, err)
		}
		rosterByID[userID] = *identity
		logger.Info("ProvisionBots: bot %s (%s) ready, difficulty %s", identity.DisplayName, userID, identity.Difficulty)
	}
}

// GetBotIdentity returns a roster entry by index (mod roster size). Without
// a roster it invents a local identity.
func GetBotIdentity(index int) BotIdentity {
	rosterMu.RLock()
	defer rosterMu.RUnlock()
	if len(roster) == 0 {
		return BotIdentity{
			UserID:      fmt.Sprintf("bot-%d", index),
			Username:    fmt.Sprintf("bot%d", index),
			DisplayName: fmt.Sprintf("AI Player %d", index),
			Difficulty:  domain.DifficultyMedium,
		}
	}
	id := roster[index%len(roster)]
	if id.UserID == "" {
		id.UserID = fmt.Sprintf("bot-%d", index)
	}
	return id
}

// IsBot reports whether the given user id belongs to the roster.
func IsBot(userID string) bool {
	rosterMu.RLock()
	defer rosterMu.RUnlock()
	_, ok := rosterByID[userID]
	return ok
}

// GetBotDisplayName returns the display name of a roster bot, or "".
func GetBotDisplayName(userID string) string {
	rosterMu.RLock()
	defer rosterMu.RUnlock()
	id, ok := rosterByID[userID]
	if !ok {
		return ""
	}
	if id.DisplayName == "" {
		return id.Username
	}
	return id.DisplayName
}
