package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"chatterapi/config"
	"chatterapi/config/models"
	"chatterapi/internal/modellist"
)

// ModelSelector handles interactive model selection
type ModelSelector struct{}

// NewModelSelector creates a new ModelSelector instance
func NewModelSelector() *ModelSelector {
	return &ModelSelector{}
}

// ShouldPrompt reports whether to ask the user for a model: no model flag
// was given, prompting is not disabled, the connection lists more than one
// model and stdin is interactive.
func (ms *ModelSelector) ShouldPrompt(c models.Connection, modelFlag string, noPrompt bool) bool {
	if noPrompt || modelFlag != "" {
		return false
	}
	if len(c.Models) <= 1 {
		return false
	}
	return isInteractiveTerminal()
}

// PromptSimple shows a numbered list of models and reads the selection from
// in. Enter keeps the current model.
func (ms *ModelSelector) PromptSimple(in io.Reader, list []string, currentModel string) (string, error) {
	reader := bufio.NewReader(in)

	fmt.Fprintln(os.Stderr, "📋 Available models:")
	for i, model := range list {
		selection := fmt.Sprintf("  %2d. %s", i+1, model)
		if model == currentModel {
			selection = fmt.Sprintf("  ➤ %2d. %s (current)", i+1, model)
		}
		fmt.Fprintln(os.Stderr, selection)
	}
	fmt.Fprintf(os.Stderr, "\nSelect model (1-%d) [Enter to use '%s']: ", len(list), currentModel)

	input, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read user input: %w", err)
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return currentModel, nil
	}

	selectionIndex, err := strconv.Atoi(input)
	if err != nil {
		return "", fmt.Errorf("invalid input, please enter a number between 1 and %d", len(list))
	}
	if selectionIndex < 1 || selectionIndex > len(list) {
		return "", fmt.Errorf("invalid selection, please enter a number between 1 and %d", len(list))
	}
	return list[selectionIndex-1], nil
}

// ValidateModelInList checks that model is one of list
func (ms *ModelSelector) ValidateModelInList(model string, list []string) error {
	return config.NewModelValidator().ValidateModelInList(model, list)
}

// isInteractiveTerminal reports whether prompting makes sense
func isInteractiveTerminal() bool {
	if isCIEnvironment() {
		return false
	}
	term := os.Getenv("TERM")
	if term == "" || term == "dumb" {
		return false
	}
	return isTerminal()
}

// isCIEnvironment checks if we're running in a CI/CD environment
func isCIEnvironment() bool {
	ciVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"BUILD_NUMBER",
		"RUN_ID",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"JENKINS_HOME",
		"TRAVIS",
		"CIRCLECI",
		"TEAMCITY_VERSION",
	}

	for _, envVar := range ciVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}
	return false
}

func init() {
	connectionCmd.AddCommand(modelsCmd)
	modelsCmd.Flags().String("select", "", "Select a model from the fetched list")
	modelsCmd.Flags().StringSlice("multi", nil, "Store a multi-model selection (comma separated)")
	modelsCmd.Flags().Duration("timeout", modellist.DefaultTimeout, "Model list request timeout")
}

var modelsCmd = &cobra.Command{
	Use:   "models [connection]",
	Short: "Fetch and select the models of a connection",
	Long: `Fetch the model list of a connection (the active one by default) from its
model endpoint.

Examples:
  chatterapi connection models
  chatterapi connection models work --select gpt-4o-mini
  chatterapi connection models router --multi openai/gpt-4o,anthropic/claude-3.5-sonnet`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		selectFlag, _ := cmd.Flags().GetString("select")
		multiFlag, _ := cmd.Flags().GetStringSlice("multi")
		timeout, _ := cmd.Flags().GetDuration("timeout")

		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		arg := ""
		if len(args) == 1 {
			arg = args[0]
		}
		c, index, err := env.resolveConnection(arg)
		if err != nil {
			return err
		}

		if len(multiFlag) > 0 {
			if err := env.manager.SetModel(index, "", multiFlag); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Selected %d models for %s", len(multiFlag), c.FriendlyName)))
			return nil
		}

		tmpl, ok := env.registry.Get(c.ConfigName)
		if !ok {
			return fmt.Errorf("connection '%s' uses unknown template %s", c.FriendlyName, c.ConfigName)
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), timeout+time.Second)
		defer cancel()
		res := modellist.NewFetcher(nil, env.logger).WithTimeout(timeout).Fetch(ctx, tmpl, c)
		if !res.OK() {
			if res.Status == modellist.StatusUnsupported {
				return fmt.Errorf("template %s does not support model lists", tmpl.Name)
			}
			return fmt.Errorf("failed to fetch models (%s): %v", res.Status, res.Err)
		}

		names := res.Names()
		if selectFlag != "" {
			if err := NewModelSelector().ValidateModelInList(selectFlag, names); err != nil {
				return err
			}
			c.Model = selectFlag
			if err := env.manager.EditValue(c, index); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ Switched model to: %s", selectFlag)))
			return nil
		}

		printModels(os.Stdout, res.Models, c.Model)
		return nil
	},
}

// printModels lists fetched models, marking the current one
func printModels(w io.Writer, list []modellist.Model, current string) {
	fmt.Fprintf(w, "📋 %d models:\n", len(list))
	for _, m := range list {
		line := "   " + m.Name
		if m.Name == current {
			line = activeStyle.Render(" ➤ " + m.Name + " (current)")
		}
		if m.ContextSize > 0 {
			line += dimStyle.Render(fmt.Sprintf(" [%d ctx]", m.ContextSize))
		}
		fmt.Fprintln(w, line)
	}
}
