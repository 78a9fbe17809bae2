// Package config provides environment-based configuration for go-dronechat.
package config

import (
	"errors"
	"os"
	"strconv"
	"time"
)

// Defaults for the chat service.
const (
	DefaultGeminiModel     = "gemini-2.5-flash"
	DefaultDroneServiceURL = "http://localhost:8000"
	DefaultBridgeToken     = "default-dev-token"
	DefaultPort            = "8001"
	DefaultMaxHistory      = 20
	DefaultSessionTimeout  = time.Hour
	DefaultGenerateTimeout = 20 * time.Second
	DefaultBridgeTimeout   = 30 * time.Second
)

// DefaultSystemPrompt is the fixed preamble for the generation prompt.
const DefaultSystemPrompt = `You are a drone control assistant. You help the operator fly a drone in an AirSim simulation.

You can take off, land, move the drone to a position, hover, report the drone's state, and perform an emergency stop. Use the tools described below to act on the operator's natural-language instructions, and explain what you are about to do before doing it.`

// Settings holds all runtime configuration for the chat service.
type Settings struct {
	// Generation backend
	GeminiAPIKey string
	GeminiModel  string

	// Actuation bridge
	DroneServiceURL string
	BridgeToken     string
	BridgeTimeout   time.Duration

	// Service
	Port            string
	MaxHistory      int
	SessionTimeout  time.Duration
	GenerateTimeout time.Duration
	SystemPrompt    string
	LogLevel        string
}

// Load reads settings from the environment, applying defaults for
// everything that is optional.
func Load() Settings {
	return Settings{
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),
		GeminiModel:     getEnv("GEMINI_MODEL", DefaultGeminiModel),
		DroneServiceURL: getEnv("DRONE_SERVICE_URL", DefaultDroneServiceURL),
		BridgeToken:     getEnv("BRIDGE_AUTH_TOKEN", DefaultBridgeToken),
		BridgeTimeout:   getDuration("BRIDGE_TIMEOUT", DefaultBridgeTimeout),
		Port:            getEnv("PORT", DefaultPort),
		MaxHistory:      getInt("MAX_HISTORY", DefaultMaxHistory),
		SessionTimeout:  getDuration("SESSION_TIMEOUT", DefaultSessionTimeout),
		GenerateTimeout: getDuration("GENERATE_TIMEOUT", DefaultGenerateTimeout),
		SystemPrompt:    getEnv("SYSTEM_PROMPT", DefaultSystemPrompt),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings for startup-fatal errors.
// A missing credential must prevent the service from accepting traffic.
func (s Settings) Validate() error {
	if s.GeminiAPIKey == "" {
		return errors.New("config: GEMINI_API_KEY is required")
	}
	if s.BridgeToken == "" {
		return errors.New("config: BRIDGE_AUTH_TOKEN must not be empty")
	}
	if s.DroneServiceURL == "" {
		return errors.New("config: DRONE_SERVICE_URL must not be empty")
	}
	if s.MaxHistory < 1 {
		return errors.New("config: MAX_HISTORY must be at least 1")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
