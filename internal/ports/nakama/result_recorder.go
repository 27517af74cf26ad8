package nakama

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/heroiclabs/nakama-common/api"
	"github.com/heroiclabs/nakama-common/runtime"

	"pidr/internal/ports"
)

// resultStore is the part of runtime.NakamaModule the recorder needs.
type resultStore interface {
	MultiUpdate(ctx context.Context, accountUpdates []*runtime.AccountUpdate, storageWrites []*runtime.StorageWrite, storageDeletes []*runtime.StorageDelete, walletUpdates []*runtime.WalletUpdate, updateLedger bool) ([]*api.StorageObjectAck, []*runtime.WalletUpdateResult, error)
}

// NakamaResultRecorder implements ports.ResultRecorder. The result object
// and the place rewards are written in one MultiUpdate, so a game is paid
// out at most once.
type NakamaResultRecorder struct {
	store  resultStore
	reward func(place int) int64
	isBot  func(userID string) bool
	logger runtime.Logger
}

// NewNakamaResultRecorder creates a recorder. reward maps a 1-based place to
// coins; isBot excludes seats that have no wallet.
func NewNakamaResultRecorder(store resultStore, reward func(place int) int64, isBot func(userID string) bool, logger runtime.Logger) *NakamaResultRecorder {
	return &NakamaResultRecorder{store: store, reward: reward, isBot: isBot, logger: logger}
}

// Rewards lists the coins earned by human players, in finishing order.
func (r *NakamaResultRecorder) Rewards(result ports.GameResult) []ports.PlaceReward {
	var rewards []ports.PlaceReward
	for _, userID := range result.Rankings {
		if r.isBot != nil && r.isBot(userID) {
			continue
		}
		place := result.Place(userID)
		coins := r.reward(place)
		if coins == 0 {
			continue
		}
		rewards = append(rewards, ports.PlaceReward{
			UserID: userID,
			Place:  place,
			Coins:  coins,
			Metadata: map[string]interface{}{
				"game_id": result.GameID,
				"place":   place,
				"reason":  "game_reward",
			},
		})
	}
	return rewards
}

func (r *NakamaResultRecorder) RecordResult(ctx context.Context, result ports.GameResult) error {
	if result.GameID == "" {
		return fmt.Errorf("game id is required")
	}
	value, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal game result: %w", err)
	}

	storageWrites := []*runtime.StorageWrite{
		{
			Collection:      resultsCollection,
			Key:             result.GameID,
			Value:           string(value),
			Version:         "*",
			PermissionRead:  runtime.STORAGE_PERMISSION_PUBLIC_READ,
			PermissionWrite: runtime.STORAGE_PERMISSION_NO_WRITE,
		},
	}

	var walletUpdates []*runtime.WalletUpdate
	for _, u := range r.Rewards(result) {
		walletUpdates = append(walletUpdates, &runtime.WalletUpdate{
			UserID:    u.UserID,
			Changeset: map[string]int64{walletCurrency: u.Coins},
			Metadata:  u.Metadata,
		})
	}

	if _, _, err := r.store.MultiUpdate(ctx, nil, storageWrites, nil, walletUpdates, true); err != nil {
		if errors.Is(err, runtime.ErrStorageRejectedVersion) {
			r.logger.Warn("ResultRecorder: result of game %s already recorded", result.GameID)
			return nil
		}
		return fmt.Errorf("failed to record result of game %s: %w", result.GameID, err)
	}
	r.logger.Info("ResultRecorder: recorded game %s, %d rewards paid", result.GameID, len(walletUpdates))
	return nil
}

var _ ports.ResultRecorder = (*NakamaResultRecorder)(nil)
