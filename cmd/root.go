package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"chatterapi/config"
	"chatterapi/config/models"
	"chatterapi/internal/generation"
	"chatterapi/internal/instruct"
	"chatterapi/internal/logging"
	"chatterapi/internal/notify"
	"chatterapi/internal/samplers"
	"chatterapi/internal/stream"
	"chatterapi/internal/templates"
)

// Version information
var (
	version string
	commit  string
	date    string
)

// SetVersionInfo sets the version information
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}

var (
	logLevel  string
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "chatterapi",
	Short: "Chat with LLM providers through declarative API templates",
	Long: `chatterapi manages connections to LLM providers and streams chat replies.

Each connection instantiates a template describing one provider API
(OpenAI, Claude, OpenRouter, KoboldCpp, Ollama and others). Exactly one
connection is active and is used by 'send' and the terminal UI.`,
	SilenceUsage: true,
}

var connectionCmd = &cobra.Command{
	Use:     "connection",
	Aliases: []string{"conn"},
	Short:   "Manage provider connections",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Configuration directory")
	rootCmd.AddCommand(connectionCmd)
}

// Execute executes the root command
func Execute() error {
	rootCmd.Version = version
	rootCmd.SetVersionTemplate(`chatterapi {{.Version}}
Commit: ` + commit + `
Date: ` + date + `
`)
	return rootCmd.Execute()
}

// environment holds the stores a command works with
type environment struct {
	settings config.Settings
	logger   zerolog.Logger
	manager  *config.Manager
	registry *templates.Registry
	samplers *samplers.Store
}

// loadSettings reads settings and applies the global flags
func loadSettings() (config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, err
	}
	if configDir != "" {
		settings.Dir = configDir
	}
	if logLevel != "" {
		settings.LogLevel = logLevel
	}
	if err := settings.EnsureDir(); err != nil {
		return config.Settings{}, err
	}
	return settings, nil
}

// loadEnvironment reads settings and opens the stores. Logs go to logOut.
func loadEnvironment(logOut io.Writer) (*environment, error) {
	settings, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return openEnvironment(settings, logOut)
}

// openEnvironment opens the stores under settings.Dir
func openEnvironment(settings config.Settings, logOut io.Writer) (*environment, error) {
	logger, err := logging.New(logging.Config{
		Level:  settings.LogLevel,
		Format: settings.LogFormat,
		Out:    logOut,
	})
	if err != nil {
		return nil, err
	}

	registry, err := templates.NewRegistry(settings.Path(config.TemplatesFile))
	if err != nil {
		return nil, err
	}
	manager, err := config.OpenManager(settings, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize config manager: %w", err)
	}
	manager.SetTemplateCheck(func(name string) bool {
		_, ok := registry.Get(name)
		return ok
	})

	return &environment{
		settings: settings,
		logger:   logger,
		manager:  manager,
		registry: registry,
		samplers: samplers.NewStore(settings.Path(config.SamplersFile)),
	}, nil
}

// identity returns the names used for macros and name stops
func (env *environment) identity() instruct.Identity {
	return instruct.Identity{User: env.settings.UserName, Char: env.settings.CharName}
}

// newService wires a generation service over the environment's stores
func (env *environment) newService(notifier *notify.Notifier) *generation.Service {
	instructPath := env.settings.Path(config.InstructFile)
	return generation.NewService(generation.Options{
		Connections: env.manager,
		Templates:   env.registry,
		Samplers:    env.samplers,
		Instruct:    func() (instruct.Instruct, error) { return instruct.Load(instructPath) },
		Identity:    env.identity,
		Engine:      stream.NewEngine(nil, env.logger),
		Notifier:    notifier,
		Logger:      env.logger,
	})
}

// resolveConnection accepts a 1-based index or a friendly name. An empty
// argument selects the active connection.
func (env *environment) resolveConnection(arg string) (models.Connection, int, error) {
	if arg == "" {
		return env.manager.GetActive()
	}
	values, err := env.manager.Values()
	if err != nil {
		return models.Connection{}, -1, err
	}
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(values) {
			return models.Connection{}, -1, fmt.Errorf("connection %d does not exist (have %d)", n, len(values))
		}
		return values[n-1], n - 1, nil
	}
	for i, c := range values {
		if strings.EqualFold(c.FriendlyName, arg) {
			return c, i, nil
		}
	}
	return models.Connection{}, -1, fmt.Errorf("connection '%s' does not exist", arg)
}

// logFilePath is where the terminal UI writes logs
func logFilePath(settings config.Settings) string {
	return filepath.Join(settings.Dir, "chatterapi.log")
}

// isTerminal reports whether stdin is a terminal
func isTerminal() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}
