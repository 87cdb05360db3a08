package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"chatterapi/config/models"
	"chatterapi/internal/templates"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("205")).Bold(true)
)

// connectionFlags binds the flags shared by add and edit
type connectionFlags struct {
	name          string
	endpoint      string
	modelEndpoint string
	key           string
	model         string
	prefill       string
	firstMessage  string
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.name, "name", "n", "", "Friendly name")
	cmd.Flags().StringVarP(&f.endpoint, "url", "u", "", "Completion endpoint")
	cmd.Flags().StringVar(&f.modelEndpoint, "model-url", "", "Model list endpoint")
	cmd.Flags().StringVarP(&f.key, "key", "k", "", "API key")
	cmd.Flags().StringVarP(&f.model, "model", "m", "", "Model name")
	cmd.Flags().StringVar(&f.prefill, "prefill", "", "Assistant prefill")
	cmd.Flags().StringVar(&f.firstMessage, "first-message", "", "First user message")
}

// apply copies every flag the user set onto c
func (f *connectionFlags) apply(cmd *cobra.Command, c *models.Connection) int {
	changed := 0
	set := func(flag string, dst *string, v string) {
		if cmd.Flags().Changed(flag) {
			*dst = v
			changed++
		}
	}
	set("name", &c.FriendlyName, f.name)
	set("url", &c.Endpoint, f.endpoint)
	set("model-url", &c.ModelEndpoint, f.modelEndpoint)
	set("key", &c.Key, f.key)
	set("model", &c.Model, f.model)
	set("prefill", &c.Prefill, f.prefill)
	set("first-message", &c.FirstMessage, f.firstMessage)
	return changed
}

// newConnection seeds a connection from the template defaults
func newConnection(t templates.Template, name string) models.Connection {
	if name == "" {
		name = t.Name
	}
	return models.Connection{
		ConfigName:    t.Name,
		FriendlyName:  name,
		Active:        true,
		Endpoint:      t.DefaultValues.Endpoint,
		ModelEndpoint: t.DefaultValues.ModelEndpoint,
		Key:           t.DefaultValues.Key,
		Model:         t.DefaultValues.Model,
		Prefill:       t.DefaultValues.Prefill,
		FirstMessage:  t.DefaultValues.FirstMessage,
	}
}

// promptMissing asks for the name and key when they were not given
func promptMissing(in io.Reader, out io.Writer, t templates.Template, c *models.Connection, askName, askKey bool) error {
	reader := bufio.NewReader(in)
	ask := func(label string) (string, error) {
		fmt.Fprint(out, label)
		line, err := reader.ReadString('\n')
		if err != nil && err != io.EOF {
			return "", fmt.Errorf("failed to read input: %w", err)
		}
		return strings.TrimSpace(line), nil
	}

	if askName {
		name, err := ask(fmt.Sprintf("Connection name [%s]: ", c.FriendlyName))
		if err != nil {
			return err
		}
		if name != "" {
			c.FriendlyName = name
		}
	}
	if askKey && t.Features.UseKey {
		key, err := ask("API key (optional): ")
		if err != nil {
			return err
		}
		c.Key = key
	}
	return nil
}

var addFlags connectionFlags

var addCmd = &cobra.Command{
	Use:   "add <template>",
	Short: "Add a connection",
	Long: `Add a connection instantiating a template. Template defaults are used
for every field not given as a flag; the new connection becomes active when
no connection is selected.

Examples:
  chatterapi connection add OpenAI --name work --key sk-xxx --model gpt-4o
  chatterapi connection add Ollama --model llama3
  chatterapi connection add "Text Generation WebUI"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		tmpl, ok := env.registry.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s (see 'chatterapi template list')", templates.ErrTemplateNotFound, args[0])
		}

		c := newConnection(tmpl, "")
		addFlags.apply(cmd, &c)
		if isTerminal() {
			askName := !cmd.Flags().Changed("name")
			askKey := !cmd.Flags().Changed("key") && c.Key == ""
			if err := promptMissing(os.Stdin, os.Stdout, tmpl, &c, askName, askKey); err != nil {
				return err
			}
		}

		index, err := env.manager.AddValue(c)
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✅ Added connection %d: %s (%s)", index+1, c.FriendlyName, tmpl.Name)))
		return nil
	},
}

func init() {
	addFlags.register(addCmd)
	connectionCmd.AddCommand(addCmd)
}
