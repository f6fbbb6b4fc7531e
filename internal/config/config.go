// Package config loads all server settings from environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every setting the server needs.
type Config struct {
	Server   ServerConfig
	Paths    PathsConfig
	Upstream UpstreamConfig
	Auth     AuthConfig
}

// Load parses configuration from the environment.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	paths, err := loadPathsConfig()
	if err != nil {
		return nil, err
	}

	up, err := loadUpstreamConfig()
	if err != nil {
		return nil, err
	}

	auth, err := loadAuthConfig()
	if err != nil {
		return nil, err
	}

	return &Config{Server: server, Paths: paths, Upstream: up, Auth: auth}, nil
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8000"
	}

	if strings.Contains(port, ":") {
		// Allow ":8000" or "127.0.0.1:8000" directly.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// PathsConfig locates the durable key pair and session files.
type PathsConfig struct {
	DataDir     string
	KeysDir     string
	SessionFile string
}

func loadPathsConfig() (PathsConfig, error) {
	dataDir := strings.TrimSpace(os.Getenv("IGDM_DATA_DIR"))
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return PathsConfig{}, fmt.Errorf("IGDM_DATA_DIR unset and no home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".igdm")
	}

	return PathsConfig{
		DataDir:     dataDir,
		KeysDir:     filepath.Join(dataDir, "keys"),
		SessionFile: filepath.Join(dataDir, "session.json"),
	}, nil
}

// UpstreamConfig tunes the gateway to the messaging provider.
type UpstreamConfig struct {
	BaseURL        string
	MinSpacing     time.Duration
	RequestTimeout time.Duration
	MaxRetries     int
}

func loadUpstreamConfig() (UpstreamConfig, error) {
	spacing, err := parseDurationEnv("IGDM_MIN_REQUEST_SPACING", 2*time.Second)
	if err != nil {
		return UpstreamConfig{}, err
	}

	timeout, err := parseDurationEnv("IGDM_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return UpstreamConfig{}, err
	}

	retries := 3
	if override, err := parseOptionalIntEnv("IGDM_MAX_RETRIES"); err != nil {
		return UpstreamConfig{}, err
	} else if override != nil {
		if *override < 0 {
			return UpstreamConfig{}, fmt.Errorf("IGDM_MAX_RETRIES must be >= 0")
		}
		retries = *override
	}

	return UpstreamConfig{
		BaseURL:        getEnvOrDefault("IGDM_UPSTREAM_BASE_URL", "https://i.instagram.com/api/v1"),
		MinSpacing:     spacing,
		RequestTimeout: timeout,
		MaxRetries:     retries,
	}, nil
}

// AuthConfig gates the plaintext login fallback and optional startup login.
type AuthConfig struct {
	AllowPlaintextLogin bool
	AutoLoginUsername   string
	AutoLoginPassword   string
}

func loadAuthConfig() (AuthConfig, error) {
	allowPlain, err := parseBoolEnv("IGDM_ALLOW_PLAINTEXT_LOGIN", false)
	if err != nil {
		return AuthConfig{}, err
	}

	return AuthConfig{
		AllowPlaintextLogin: allowPlain,
		AutoLoginUsername:   strings.TrimSpace(os.Getenv("IG_USERNAME")),
		AutoLoginPassword:   os.Getenv("IG_PASSWORD"),
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}
