package nakama

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/heroiclabs/nakama-common/runtime"

	"pidr/internal/app"
	"pidr/internal/config"
	"pidr/internal/ports"
)

// VerifyReceiptRequest carries a receipt issued at the end of a game.
type VerifyReceiptRequest struct {
	Receipt string `json:"receipt"`
}

// VerifyReceiptResponse echoes the verified result.
type VerifyReceiptResponse struct {
	Valid  bool              `json:"valid"`
	Result *ports.GameResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

var errReceiptsDisabled = errors.New("result receipts are not enabled on this server")

// rpcVerifyReceipt lets a wallet or collectibles service check a receipt
// against the server secret.
//
// Payload: {"receipt": "<token>"}
// Returns: VerifyReceiptResponse as JSON.
func rpcVerifyReceipt(ctx context.Context, logger runtime.Logger, db *sql.DB, nk runtime.NakamaModule, payload string) (string, error) {
	env, _ := ctx.Value(runtime.RUNTIME_CTX_ENV).(map[string]string)
	secret := env[envReceiptSecret]
	if secret == "" {
		return "", errReceiptsDisabled
	}
	cfg := config.GetGameConfig()
	return verifyReceipt(logger, app.NewReceiptSigner(secret, cfg.ReceiptIssuer, cfg.ReceiptTTL()), payload)
}

func verifyReceipt(logger runtime.Logger, signer *app.ReceiptSigner, payload string) (string, error) {
	var req VerifyReceiptRequest
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return "", runtime.NewError("invalid payload", 3)
	}

	resp := VerifyReceiptResponse{}
	result, err := signer.Verify(req.Receipt)
	if err != nil {
		logger.Debug("VerifyReceipt: rejected receipt: %v", err)
		resp.Error = err.Error()
	} else {
		resp.Valid = true
		resp.Result = &result
	}

	b, err := json.Marshal(resp)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
