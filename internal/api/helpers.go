package api

import (
	"context"
	"net"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/qkfdcom/lcqk/internal/auth"
)

// bearerSecurity marks an operation as requiring the operator token.
var bearerSecurity = []map[string][]string{{"bearer": {}}}

// authenticateRequest validates the Authorization header and returns the token claims.
func (s *Server) authenticateRequest(_ context.Context, authHeader string) (*auth.AccessClaims, error) {
	if authHeader == "" {
		return nil, huma.Error401Unauthorized("Missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, huma.Error401Unauthorized("Invalid authorization header format")
	}

	claims, err := s.services.Auth.VerifyAccessToken(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil, err
	}
	return claims, nil
}

// loginRateLimit rejects login attempts beyond the per-IP budget.
func (s *Server) loginRateLimit(ctx huma.Context, next func(huma.Context)) {
	key := clientIP(ctx.RemoteAddr())
	if !s.loginLimiter.Allow(key) {
		s.logger.Warn("Rate limit exceeded", "ip", key, "path", ctx.URL().Path)
		_ = huma.WriteErr(s.api, ctx, 429, "Too many login attempts. Please try again later.") //nolint:errcheck // response already committed
		return
	}
	next(ctx)
}

// clientIP strips the port from a remote address. RealIP middleware has
// already applied X-Forwarded-For and X-Real-IP.
func clientIP(remoteAddr string) string {
	if host, _, err := net.SplitHostPort(remoteAddr); err == nil {
		return host
	}
	return remoteAddr
}
