package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	connectionCmd.AddCommand(removeCmd)
}

var removeCmd = &cobra.Command{
	Use:     "remove <connection>",
	Aliases: []string{"rm"},
	Short:   "Remove a connection",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		c, index, err := env.resolveConnection(args[0])
		if err != nil {
			return err
		}
		if err := env.manager.RemoveValue(index); err != nil {
			return err
		}
		fmt.Printf("Connection removed: %s\n", c.FriendlyName)

		active, _, err := env.manager.GetActive()
		if err == nil {
			fmt.Println(dimStyle.Render("Active connection: " + active.FriendlyName))
		}
		return nil
	},
}
