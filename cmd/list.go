package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"chatterapi/config/models"
	"chatterapi/internal/utils"
)

func init() {
	connectionCmd.AddCommand(listCmd)
}

// printConnections writes one line per connection, marking the active one
func printConnections(w io.Writer, values []models.Connection, active int) {
	for i, c := range values {
		marker := " "
		line := fmt.Sprintf("%2d. %s [%s]", i+1, c.FriendlyName, c.ConfigName)
		if i == active {
			marker = "*"
			line = activeStyle.Render(line)
		}

		details := fmt.Sprintf("url: %s", c.Endpoint)
		if c.Model != "" {
			details += ", model: " + c.Model
		}
		if len(c.Models) > 0 {
			details += fmt.Sprintf(", %d models", len(c.Models))
		}
		if c.Key != "" {
			details += ", key: " + utils.MaskAPIKey(c.Key)
		}
		fmt.Fprintf(w, "%s %s %s\n", marker, line, dimStyle.Render("("+details+")"))
	}
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		values, err := env.manager.Values()
		if err != nil {
			return err
		}
		if len(values) == 0 {
			fmt.Println("No connections configured")
			fmt.Println("\n💡 Tip: run 'chatterapi connection add <template>' to add one")
			return nil
		}

		active, err := env.manager.ActiveIndex()
		if err != nil {
			return err
		}

		fmt.Println("Connections:")
		printConnections(os.Stdout, values, active)
		if active >= 0 {
			fmt.Printf("\n* indicates the active connection\n")
		} else {
			fmt.Println(warnStyle.Render("\n⚠️  No connection is active, select one with 'chatterapi connection use'"))
		}
		return nil
	},
}
