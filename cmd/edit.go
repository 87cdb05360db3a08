package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var editFlags connectionFlags

var editCmd = &cobra.Command{
	Use:   "edit <connection>",
	Short: "Edit a connection",
	Long: `Edit a saved connection. The connection is given by its list number or
friendly name; only the fields passed as flags change.

Examples:
  chatterapi connection edit 2 --key sk-new
  chatterapi connection edit work --url https://api.openai.com/v1/chat/completions --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		c, index, err := env.resolveConnection(args[0])
		if err != nil {
			return err
		}
		if editFlags.apply(cmd, &c) == 0 {
			return fmt.Errorf("nothing to change, pass at least one field flag")
		}
		if err := env.manager.EditValue(c, index); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✅ Connection '%s' updated", c.FriendlyName)))
		return nil
	},
}

func init() {
	editFlags.register(editCmd)
	connectionCmd.AddCommand(editCmd)
}
