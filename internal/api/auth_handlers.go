package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/qkfdcom/lcqk/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Log in",
		Description: "Exchanges the operator password, and TOTP code once provisioned, for an access token",
		Tags:        []string{"Auth"},
		Middlewares: huma.Middlewares{s.loginRateLimit},
	}, s.handleLogin)

	huma.Register(s.api, huma.Operation{
		OperationID: "setupTwoFactor",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/2fa/setup",
		Summary:     "Provision two-factor",
		Description: "Generates a new TOTP secret and returns it with a QR code. Replacing a provisioned secret requires a current code.",
		Tags:        []string{"Auth"},
		Middlewares: huma.Middlewares{s.loginRateLimit},
	}, s.handleSetupTwoFactor)
}

// LoginRequest is the request body for logging in.
type LoginRequest struct {
	Password string `json:"password" minLength:"1" maxLength:"1024" doc:"Operator password"`
	Code     string `json:"code,omitempty" doc:"Six digit TOTP code, required once two-factor is provisioned"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// LoginResponse contains the issued access token.
type LoginResponse struct {
	Token     string    `json:"token" doc:"PASETO access token"`
	ExpiresAt time.Time `json:"expires_at" doc:"Token expiry"`
	TwoFactor bool      `json:"two_factor" doc:"Whether a TOTP code was verified"`
}

// LoginOutput wraps the login response for Huma.
type LoginOutput struct {
	Body LoginResponse
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest{
		Password: input.Body.Password,
		Code:     input.Body.Code,
	})
	if err != nil {
		return nil, err
	}

	return &LoginOutput{Body: LoginResponse{
		Token:     resp.Token,
		ExpiresAt: resp.ExpiresAt,
		TwoFactor: resp.TwoFactor,
	}}, nil
}

// SetupTwoFactorRequest is the request body for provisioning two-factor.
type SetupTwoFactorRequest struct {
	Password string `json:"password" minLength:"1" maxLength:"1024" doc:"Operator password"`
	Code     string `json:"code,omitempty" doc:"Code from the current secret, required when one is provisioned"`
}

// SetupTwoFactorInput wraps the setup request for Huma.
type SetupTwoFactorInput struct {
	Body SetupTwoFactorRequest
}

// SetupTwoFactorResponse contains the new secret.
type SetupTwoFactorResponse struct {
	QRCode string `json:"qr_code" doc:"PNG data URL of the otpauth QR code"`
	Secret string `json:"secret" doc:"Base32 TOTP secret"`
	URL    string `json:"otpauth_url" doc:"otpauth:// provisioning URI"`
}

// SetupTwoFactorOutput wraps the setup response for Huma.
type SetupTwoFactorOutput struct {
	Body SetupTwoFactorResponse
}

func (s *Server) handleSetupTwoFactor(ctx context.Context, input *SetupTwoFactorInput) (*SetupTwoFactorOutput, error) {
	resp, err := s.services.Auth.SetupTwoFactor(ctx, service.SetupTwoFactorRequest{
		Password: input.Body.Password,
		Code:     input.Body.Code,
	})
	if err != nil {
		return nil, err
	}

	return &SetupTwoFactorOutput{Body: SetupTwoFactorResponse{
		QRCode: resp.QRCode,
		Secret: resp.Secret,
		URL:    resp.URL,
	}}, nil
}
