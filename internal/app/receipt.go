package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"github.com/google/uuid"

	"pidr/internal/ports"
)

// ReceiptSigner turns game results into HS256 tokens that a wallet or
// collectibles service can verify without trusting the client.
type ReceiptSigner struct {
	secret string
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

var ErrReceiptConfig = errors.New("receipt signer config is incomplete")

func NewReceiptSigner(secret, issuer string, ttl time.Duration) *ReceiptSigner {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReceiptSigner{secret: secret, issuer: issuer, ttl: ttl, now: time.Now}
}

// Sign issues a receipt for result.
func (s *ReceiptSigner) Sign(result ports.GameResult) (string, error) {
	if s == nil {
		return "", fmt.Errorf("receipt signer is nil")
	}
	if s.secret == "" || s.issuer == "" {
		return "", ErrReceiptConfig
	}
	if result.GameID == "" {
		return "", fmt.Errorf("game id is required")
	}

	now := s.now()
	rankings := make([]interface{}, len(result.Rankings))
	for i, id := range result.Rankings {
		rankings[i] = id
	}
	claims := jwt.MapClaims{
		"iss":  s.issuer,
		"sub":  result.GameID,
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
		"jti":  uuid.NewString(),
		"win":  result.WinnerID,
		"lose": result.LoserID,
		"rank": rankings,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.secret))
}

// Verify checks the signature, expiry and issuer of a receipt and returns
// the result it carries.
func (s *ReceiptSigner) Verify(receipt string) (ports.GameResult, error) {
	token, err := jwt.Parse(receipt, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return []byte(s.secret), nil
	})
	if err != nil {
		return ports.GameResult{}, fmt.Errorf("invalid receipt: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return ports.GameResult{}, fmt.Errorf("invalid receipt claims")
	}
	if !claims.VerifyIssuer(s.issuer, true) {
		return ports.GameResult{}, fmt.Errorf("unexpected receipt issuer")
	}

	result := ports.GameResult{}
	result.GameID, _ = claims["sub"].(string)
	result.WinnerID, _ = claims["win"].(string)
	result.LoserID, _ = claims["lose"].(string)
	if raw, ok := claims["rank"].([]interface{}); ok {
		for _, v := range raw {
			if id, ok := v.(string); ok {
				result.Rankings = append(result.Rankings, id)
			}
		}
	}
	return result, nil
}
