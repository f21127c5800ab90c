package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/qkfdcom/lcqk/internal/auth"
	"github.com/qkfdcom/lcqk/internal/domain"
	domainerrors "github.com/qkfdcom/lcqk/internal/errors"
)

// AuthState persists the operator's second factor.
type AuthState interface {
	GetTOTPSecret(ctx context.Context) (*domain.TOTPSecret, error)
	SaveTOTPSecret(ctx context.Context, secret *domain.TOTPSecret) error
}

// AuthService handles operator login and two-factor provisioning.
type AuthService struct {
	password   *auth.PasswordVerifier
	tokens     *auth.TokenService
	state      AuthState
	totpIssuer string
	logger     *slog.Logger
	now        func() time.Time
}

// NewAuthService creates a new authentication service.
func NewAuthService(
	password *auth.PasswordVerifier,
	tokens *auth.TokenService,
	state AuthState,
	totpIssuer string,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		password:   password,
		tokens:     tokens,
		state:      state,
		totpIssuer: totpIssuer,
		logger:     logger,
		now:        time.Now,
	}
}

// LoginRequest contains the operator credentials. Code is required once a
// TOTP secret has been provisioned.
type LoginRequest struct {
	Password string `json:"password" validate:"required,max=1024"`
	Code     string `json:"code,omitempty" validate:"omitempty,len=6,numeric"`
}

// LoginResponse carries the issued access token.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	TwoFactor bool      `json:"two_factor"`
}

// Login verifies the password and, when provisioned, the TOTP code.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}

	if !s.password.Check(req.Password) {
		s.logger.Warn("login rejected", "reason", "password")
		return nil, domainerrors.InvalidCredentials("invalid password")
	}

	secret, err := s.state.GetTOTPSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("load totp secret: %w", err)
	}

	twoFactor := secret != nil
	if err := s.checkCode(secret, req.Code); err != nil {
		s.logger.Warn("login rejected", "reason", "totp")
		return nil, err
	}

	token, expiresAt, err := s.tokens.GenerateAccessToken(twoFactor)
	if err != nil {
		return nil, domainerrors.Internalf("issue token: %v", err)
	}

	s.logger.Info("operator logged in", "two_factor", twoFactor)
	return &LoginResponse{Token: token, ExpiresAt: expiresAt, TwoFactor: twoFactor}, nil
}

// SetupTwoFactorRequest re-confirms the password before a new secret is
// issued. Code from the current secret is required once one exists.
type SetupTwoFactorRequest struct {
	Password string `json:"password" validate:"required,max=1024"`
	Code     string `json:"code,omitempty" validate:"omitempty,len=6,numeric"`
}

// SetupTwoFactorResponse is shown to the operator once.
type SetupTwoFactorResponse struct {
	QRCode string `json:"qr_code"`
	Secret string `json:"secret"`
	URL    string `json:"otpauth_url"`
}

// SetupTwoFactor generates and stores a new TOTP secret. Replacing an
// existing secret needs a valid code from it.
func (s *AuthService) SetupTwoFactor(ctx context.Context, req SetupTwoFactorRequest) (*SetupTwoFactorResponse, error) {
	if err := validate.Validate(req); err != nil {
		return nil, err
	}
	if !s.password.Check(req.Password) {
		return nil, domainerrors.InvalidCredentials("invalid password")
	}

	current, err := s.state.GetTOTPSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("load totp secret: %w", err)
	}
	if err := s.checkCode(current, req.Code); err != nil {
		s.logger.Warn("two-factor rotation rejected")
		return nil, err
	}

	key, err := auth.GenerateTOTP(s.totpIssuer)
	if err != nil {
		return nil, domainerrors.Internalf("generate totp: %v", err)
	}

	if err := s.state.SaveTOTPSecret(ctx, &domain.TOTPSecret{Secret: key.Secret, CreatedAt: s.now()}); err != nil {
		return nil, fmt.Errorf("save totp secret: %w", err)
	}

	s.logger.Info("two-factor secret provisioned")
	return &SetupTwoFactorResponse{QRCode: key.QRCode, Secret: key.Secret, URL: key.URL}, nil
}

// checkCode validates code against secret. A nil secret accepts anything.
func (s *AuthService) checkCode(secret *domain.TOTPSecret, code string) error {
	if secret == nil {
		return nil
	}
	code = strings.TrimSpace(code)
	if code == "" {
		return domainerrors.InvalidCredentials("two-factor code required")
	}
	if !auth.ValidateTOTP(code, secret.Secret, s.now()) {
		return domainerrors.InvalidCredentials("invalid two-factor code")
	}
	return nil
}

// VerifyAccessToken validates a bearer token.
func (s *AuthService) VerifyAccessToken(token string) (*auth.AccessClaims, error) {
	claims, err := s.tokens.VerifyAccessToken(token)
	if err != nil {
		if strings.Contains(err.Error(), "expired") {
			return nil, domainerrors.TokenExpired("access token expired")
		}
		return nil, domainerrors.Unauthorized("invalid access token")
	}
	return claims, nil
}
