package cmd

import (
	"github.com/spf13/cobra"

	"chatterapi/internal/logging"
	"chatterapi/internal/modellist"
	"chatterapi/internal/notify"
	"chatterapi/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the terminal UI",
	Long: `Open the terminal UI to manage connections and chat with the active one.

Logs are written to chatterapi.log in the configuration directory.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		logFile, err := logging.OpenFile(logFilePath(settings))
		if err != nil {
			return err
		}
		defer logFile.Close()

		env, err := openEnvironment(settings, logFile)
		if err != nil {
			return err
		}

		notifier := notify.New(env.logger, notify.DefaultBuffer)
		env.logger.Info().Str("dir", settings.Dir).Msg("Starting terminal UI")
		return tui.Run(tui.Deps{
			Manager:  env.manager,
			Registry: env.registry,
			Service:  env.newService(notifier),
			Notifier: notifier,
			Fetcher:  modellist.NewFetcher(nil, env.logger),
			Logger:   env.logger,
		})
	},
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}
