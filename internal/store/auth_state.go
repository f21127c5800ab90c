package store

import (
	"context"
	"errors"

	"github.com/qkfdcom/lcqk/internal/domain"
)

// GetTOTPSecret returns the provisioned TOTP secret, or nil if none exists.
func (s *Store) GetTOTPSecret(ctx context.Context) (*domain.TOTPSecret, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var secret domain.TOTPSecret
	if err := s.get([]byte(totpKey), &secret); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &secret, nil
}

// SaveTOTPSecret stores secret, replacing any previous one.
func (s *Store) SaveTOTPSecret(ctx context.Context, secret *domain.TOTPSecret) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.set([]byte(totpKey), secret)
}

// DeleteTOTPSecret removes the provisioned secret.
func (s *Store) DeleteTOTPSecret(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.delete([]byte(totpKey))
}
