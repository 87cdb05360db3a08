package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chatterapi/config"
	"chatterapi/config/models"
	"chatterapi/internal/templates"
	"chatterapi/internal/utils"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

// printStatus describes the active connection and what a send would use
func printStatus(w io.Writer, c models.Connection, t templates.Template, found bool, preset string) {
	fmt.Fprintln(w, "Active connection:")
	fmt.Fprintf(w, "  Name:     %s\n", c.FriendlyName)
	if found {
		fmt.Fprintf(w, "  Template: %s (%s, %s)\n", c.ConfigName, t.Request.Completion(), t.Request.Stream())
	} else {
		fmt.Fprintf(w, "  Template: %s %s\n", c.ConfigName, warnStyle.Render("(missing, sending will fail)"))
	}
	fmt.Fprintf(w, "  URL:      %s\n", c.Endpoint)
	if c.Model != "" {
		fmt.Fprintf(w, "  Model:    %s\n", c.Model)
	}
	if c.Key != "" {
		fmt.Fprintf(w, "  API Key:  %s\n", utils.MaskAPIKey(c.Key))
	}
	fmt.Fprintf(w, "  Samplers: %s\n", preset)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the active connection",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		c, _, err := env.manager.GetActive()
		if errors.Is(err, config.ErrNoActiveConnection) {
			fmt.Println("No active connection")
			fmt.Println("\n💡 Tip: run 'chatterapi connection add <template>' or 'chatterapi connection use <connection>'")
			return nil
		}
		if err != nil {
			return err
		}

		t, found := env.registry.Get(c.ConfigName)
		preset, _, err := env.samplers.Active()
		if err != nil {
			return err
		}
		printStatus(os.Stdout, c, t, found, preset)
		fmt.Println(dimStyle.Render("\nConnections file: " + env.manager.GetConfigPath()))
		return nil
	},
}
