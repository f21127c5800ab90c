// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App    AppConfig
	Logger LoggerConfig
	Data   DataConfig
	Server ServerConfig
	Auth   AuthConfig
	Sheets SheetsConfig
	Lookup LookupConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds the location of the list files and local state.
type DataConfig struct {
	Path        string // Directory holding the tier files and identifier cache
	WatchFiles  bool   // Re-validate tier files when edited outside the server (default: true)
	StatePath   string // Badger state directory (default: {data}/state)
	AuthKeyPath string // PASETO key file (default: {data}/auth.key)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15m, sync and backfill are slow)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: *)
}

// AuthConfig holds operator authentication configuration.
type AuthConfig struct {
	// AdminPassword is the single operator's password. Required.
	AdminPassword string
	// PASETO v4 symmetric key for access tokens (32 bytes)
	AccessTokenKey      []byte
	AccessTokenDuration time.Duration // e.g., 24h
	TOTPIssuer          string
	// LoginRateLimit is the number of login attempts allowed per minute per client.
	LoginRateLimit int
}

// SheetsConfig holds the Google Sheets service account and source spreadsheet.
// All fields are optional at boot; sync refuses to run until they are set.
type SheetsConfig struct {
	SpreadsheetID string
	ClientEmail   string
	PrivateKey    string // PEM, literal "\n" sequences are expanded
}

// Configured reports whether every credential needed for a sync is present.
func (s SheetsConfig) Configured() bool {
	return s.SpreadsheetID != "" && s.ClientEmail != "" && s.PrivateKey != ""
}

// LookupConfig holds the X user lookup client configuration.
type LookupConfig struct {
	BearerToken string // Optional at boot; resolve refuses to run without it
	BaseURL     string
	MaxAttempts int           // Attempts per username (default: 3)
	BaseDelay   time.Duration // Wait between attempts (default: 5s, doubled after a 429)
	BatchSize   int           // Concurrent lookups per group (default: 3)
	BatchPause  time.Duration // Pause between groups (default: 10s)
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Directory holding the list files")
	watchFiles := flag.String("watch-files", "", "Re-validate list files on external edits (default: true)")

	// Auth flags
	accessTokenDuration := flag.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15m)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := flag.String("cors-origins", "", "Comma separated allowed origins (default: *)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			Path:       getConfigValue(*dataPath, "DATA_PATH", ""),
			WatchFiles: getBoolConfigValue(*watchFiles, "WATCH_FILES", true),
		},

		Server: ServerConfig{
			Port:        getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins: splitList(getConfigValue(*corsOrigins, "CORS_ALLOWED_ORIGINS", "*")),
		},

		Auth: AuthConfig{
			AdminPassword:  getConfigValue("", "ADMIN_PASSWORD", ""),
			AccessTokenKey: nil, // Will be set by auth.LoadOrGenerateKey in main
			TOTPIssuer:     getConfigValue("", "TOTP_ISSUER", "LCQK Admin"),
			LoginRateLimit: getIntConfigValue("", "LOGIN_RATE_LIMIT", 10),
		},

		Sheets: SheetsConfig{
			SpreadsheetID: getConfigValue("", "SHEET_SPREADSHEET_ID", ""),
			ClientEmail:   getConfigValue("", "GOOGLE_CLIENT_EMAIL", ""),
			PrivateKey:    strings.ReplaceAll(getConfigValue("", "GOOGLE_PRIVATE_KEY", ""), `\n`, "\n"),
		},

		Lookup: LookupConfig{
			BearerToken: getConfigValue("", "X_BEARER_TOKEN", ""),
			BaseURL:     getConfigValue("", "X_API_BASE_URL", "https://api.twitter.com"),
			MaxAttempts: getIntConfigValue("", "LOOKUP_MAX_ATTEMPTS", 3),
			BatchSize:   getIntConfigValue("", "LOOKUP_BATCH_SIZE", 3),
		},
	}

	durations := []struct {
		flagValue string
		envKey    string
		def       string
		name      string
		dst       *time.Duration
	}{
		{*accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", "access token duration", &cfg.Auth.AccessTokenDuration},
		{*readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout", &cfg.Server.ReadTimeout},
		{*writeTimeout, "SERVER_WRITE_TIMEOUT", "15m", "write timeout", &cfg.Server.WriteTimeout},
		{*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout", &cfg.Server.IdleTimeout},
		{"", "LOOKUP_BASE_DELAY", "5s", "lookup base delay", &cfg.Lookup.BaseDelay},
		{"", "LOOKUP_BATCH_PAUSE", "10s", "lookup batch pause", &cfg.Lookup.BatchPause},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dst = parsed
	}

	// Expand and validate data paths.
	if err := cfg.expandDataPaths(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.Path == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	if c.Auth.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is required")
	}

	if c.Lookup.MaxAttempts < 1 {
		return fmt.Errorf("invalid lookup max attempts: %d (must be at least 1)", c.Lookup.MaxAttempts)
	}
	if c.Lookup.BatchSize < 1 {
		return fmt.Errorf("invalid lookup batch size: %d (must be at least 1)", c.Lookup.BatchSize)
	}

	// Sheets and lookup credentials are checked by the operations that need them.
	// Auth key is set by auth.LoadOrGenerateKey in main.

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPaths expands ~ and makes the data paths absolute.
// State and key paths default to locations under the data directory.
func (c *Config) expandDataPaths() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "lcqk", "data")

	expanded, err := expandPath(c.Data.Path, defaultPath)
	if err != nil {
		return err
	}
	c.Data.Path = expanded

	if c.Data.StatePath, err = expandPath(c.Data.StatePath, filepath.Join(expanded, "state")); err != nil {
		return err
	}
	if c.Data.AuthKeyPath, err = expandPath(c.Data.AuthKeyPath, filepath.Join(expanded, "auth.key")); err != nil {
		return err
	}
	return nil
}

// splitList splits a comma separated value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
