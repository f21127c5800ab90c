package providers

import (
	"github.com/samber/do/v2"

	"github.com/qkfdcom/lcqk/internal/auth"
	"github.com/qkfdcom/lcqk/internal/config"
	"github.com/qkfdcom/lcqk/internal/logger"
)

// AuthKey wraps the authentication key bytes.
type AuthKey []byte

// ProvideAuthKey loads or generates the authentication key.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	key, err := auth.LoadOrGenerateKey(cfg.Data.AuthKeyPath)
	if err != nil {
		return nil, err
	}

	// Update config with the loaded key
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key loaded",
		"path", cfg.Data.AuthKeyPath,
		"access_token_duration", cfg.Auth.AccessTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	return auth.NewTokenService([]byte(authKey), cfg.Auth.AccessTokenDuration)
}

// ProvidePasswordVerifier hashes the configured operator password once at boot.
func ProvidePasswordVerifier(i do.Injector) (*auth.PasswordVerifier, error) {
	cfg := do.MustInvoke[*config.Config](i)
	return auth.NewPasswordVerifier(cfg.Auth.AdminPassword)
}
