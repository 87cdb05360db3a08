package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// File names inside the config directory
const (
	ConnectionsFile = "api-manager.json"
	TemplatesFile   = "templates.json"
	SamplersFile    = "samplers.json"
	InstructFile    = "instruct.json"
)

// Settings holds process level configuration read from the environment
type Settings struct {
	Dir       string // config directory
	LogLevel  string // zerolog level name
	LogFormat string // "console" or "json"
	UserName  string
	CharName  string
}

// LoadSettings reads an optional .env file and the CHATTERAPI_* variables.
// The config directory is CHATTERAPI_CONFIG_DIR, else
// $XDG_CONFIG_HOME/chatterapi, else ~/.config/chatterapi.
func LoadSettings() (Settings, error) {
	// A missing .env is normal; real environment variables still apply
	_ = godotenv.Load()

	dir := os.Getenv("CHATTERAPI_CONFIG_DIR")
	if dir == "" {
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return Settings{}, fmt.Errorf("failed to get user home directory: %w", err)
			}
			xdgConfigHome = filepath.Join(homeDir, ".config")
		}
		dir = filepath.Join(xdgConfigHome, "chatterapi")
	}

	return Settings{
		Dir:       dir,
		LogLevel:  envOr("CHATTERAPI_LOG_LEVEL", "info"),
		LogFormat: strings.ToLower(envOr("CHATTERAPI_LOG_FORMAT", "console")),
		UserName:  envOr("CHATTERAPI_USER", "User"),
		CharName:  envOr("CHATTERAPI_CHAR", "Assistant"),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Path joins name onto the config directory
func (s Settings) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// EnsureDir creates the config directory
func (s Settings) EnsureDir() error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	return nil
}
