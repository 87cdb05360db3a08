package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func init() {
	connectionCmd.AddCommand(switchCmd)
	switchCmd.Flags().StringP("model", "m", "", "Also switch to a model from the connection's model list")
	switchCmd.Flags().Bool("no-prompt", false, "Disable interactive model selection even when multiple models are available")
}

var switchCmd = &cobra.Command{
	Use:     "use <connection>",
	Aliases: []string{"switch"},
	Short:   "Make a connection active",
	Long: `Make a connection active. The connection is given by its list number or
friendly name.

Using -m/--model also switches the model within the connection:
  chatterapi connection use work --model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modelFlag, _ := cmd.Flags().GetString("model")
		noPrompt, _ := cmd.Flags().GetBool("no-prompt")

		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		c, index, err := env.resolveConnection(args[0])
		if err != nil {
			return err
		}
		if err := env.manager.SetActiveIndex(index); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Active connection: %s", c.FriendlyName)))

		selector := NewModelSelector()
		model := modelFlag
		if selector.ShouldPrompt(c, modelFlag, noPrompt) {
			model, err = selector.PromptSimple(os.Stdin, c.Models, c.Model)
			if err != nil {
				return fmt.Errorf("model selection failed: %w", err)
			}
		}
		if model == "" || model == c.Model {
			return nil
		}
		if err := env.manager.SetModel(index, model, c.Models); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ Switched model to: %s", model)))
		return nil
	},
}
