package auth

import (
	"encoding/json"
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/qkfdcom/lcqk/internal/id"
)

const (
	tokenIssuer   = "lcqk-server"
	tokenAudience = "lcqk-admin"

	// OperatorSubject is the subject of every access token; there is one operator.
	OperatorSubject = "admin"
)

// TokenService handles PASETO token generation and verification.
type TokenService struct {
	symmetricKey paseto.V4SymmetricKey
	duration     time.Duration
	now          func() time.Time
}

// NewTokenService creates a token service from a raw 32-byte key.
func NewTokenService(key []byte, duration time.Duration) (*TokenService, error) {
	if len(key) != keyLength {
		return nil, fmt.Errorf("PASETO v4 key must be exactly %d bytes, got %d", keyLength, len(key))
	}

	symmetricKey, err := paseto.V4SymmetricKeyFromBytes(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create PASETO symmetric key: %w", err)
	}

	return &TokenService{
		symmetricKey: symmetricKey,
		duration:     duration,
		now:          time.Now,
	}, nil
}

// GenerateAccessToken creates a PASETO v4.local token for the operator and
// returns it with its expiry.
func (s *TokenService) GenerateAccessToken(twoFactor bool) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.duration)

	token := paseto.NewToken()
	token.SetIssuer(tokenIssuer)
	token.SetSubject(OperatorSubject)
	token.SetAudience(tokenAudience)
	token.SetIssuedAt(now)
	token.SetNotBefore(now)
	token.SetExpiration(expiresAt)

	tokenID, err := id.Generate(id.PrefixToken)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("generate token ID: %w", err)
	}
	token.SetJti(tokenID)

	//nolint:errcheck // Token.Set only errors on invalid types, which we control
	_ = token.Set("mfa", twoFactor)

	return token.V4Encrypt(s.symmetricKey, nil), expiresAt, nil
}

// VerifyAccessToken decrypts and validates a token, returning its claims.
func (s *TokenService) VerifyAccessToken(tokenString string) (*AccessClaims, error) {
	parser := paseto.NewParser()
	parser.AddRule(paseto.ForAudience(tokenAudience))
	parser.AddRule(paseto.IssuedBy(tokenIssuer))
	parser.AddRule(paseto.NotExpired())
	parser.AddRule(paseto.ValidAt(s.now()))

	token, err := parser.ParseV4Local(s.symmetricKey, tokenString, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	var claims AccessClaims
	if err := json.Unmarshal(token.ClaimsJSON(), &claims); err != nil {
		return nil, fmt.Errorf("parse claims: %w", err)
	}
	if claims.Subject != OperatorSubject {
		return nil, fmt.Errorf("invalid token: unexpected subject %q", claims.Subject)
	}

	return &claims, nil
}

// Duration returns the configured access token lifetime.
func (s *TokenService) Duration() time.Duration {
	return s.duration
}
