package app

import (
	"errors"
	"testing"
	"time"

	"pidr/internal/ports"
)

func TestReceiptSigner(t *testing.T) {
	result := ports.GameResult{
		GameID:   "game-42",
		WinnerID: "u1",
		LoserID:  "u3",
		Rankings: []string{"u1", "u2", "u3"},
	}
	signer := NewReceiptSigner("secret", "pidr", time.Minute)

	receipt, err := signer.Sign(result)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	tests := []struct {
		name    string
		verify  *ReceiptSigner
		receipt string
		wantErr bool
	}{
		{"same signer", signer, receipt, false},
		{"wrong secret", NewReceiptSigner("other", "pidr", time.Minute), receipt, true},
		{"wrong issuer", NewReceiptSigner("secret", "someone-else", time.Minute), receipt, true},
		{"garbage", signer, "not-a-token", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.verify.Verify(tt.receipt)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Verify() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.GameID != result.GameID || got.WinnerID != result.WinnerID || got.LoserID != result.LoserID {
				t.Errorf("Verify() = %+v, want %+v", got, result)
			}
			if len(got.Rankings) != 3 || got.Rankings[1] != "u2" {
				t.Errorf("Rankings = %v", got.Rankings)
			}
		})
	}
}

func TestReceiptSigner_Expired(t *testing.T) {
	signer := NewReceiptSigner("secret", "pidr", time.Minute)
	signer.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	receipt, err := signer.Sign(ports.GameResult{GameID: "g"})
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if _, err := signer.Verify(receipt); err == nil {
		t.Fatal("expected expired receipt to be rejected")
	}
}

func TestReceiptSigner_Config(t *testing.T) {
	_, err := NewReceiptSigner("", "pidr", 0).Sign(ports.GameResult{GameID: "g"})
	if !errors.Is(err, ErrReceiptConfig) {
		t.Fatalf("err = %v, want ErrReceiptConfig", err)
	}
	if _, err := NewReceiptSigner("s", "pidr", 0).Sign(ports.GameResult{}); err == nil {
		t.Fatal("expected missing game id to fail")
	}
}
