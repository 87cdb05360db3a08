package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"chatterapi/internal/templates"
)

var templateCmd = &cobra.Command{
	Use:     "template",
	Aliases: []string{"tpl"},
	Short:   "Manage provider templates",
}

func init() {
	rootCmd.AddCommand(templateCmd)
	templateCmd.AddCommand(templateListCmd, templateShowCmd, templateImportCmd, templateExportCmd, templateRemoveCmd)
	templateShowCmd.Flags().Bool("yaml", false, "Print as YAML")
	templateExportCmd.Flags().StringP("output", "o", "", "Write to a file instead of stdout")
}

var templateListCmd = &cobra.Command{
	Use:   "list",
	Short: "List built-in and imported templates",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		custom := 0
		for _, t := range env.registry.Templates() {
			kind := dimStyle.Render("built-in")
			if !env.registry.IsBuiltin(t.Name) {
				custom++
				kind = warnStyle.Render(fmt.Sprintf("custom #%d", custom))
			}
			fmt.Printf("  %-24s %-12s %s\n", t.Name, t.Request.Completion(), kind)
		}
		return nil
	},
}

var templateShowCmd = &cobra.Command{
	Use:   "show <name>",
	Short: "Print a template",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asYAML, _ := cmd.Flags().GetBool("yaml")

		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		t, ok := env.registry.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", templates.ErrTemplateNotFound, args[0])
		}

		data, err := templates.Export(t)
		if err != nil {
			return err
		}
		if asYAML {
			if data, err = toYAML(data); err != nil {
				return err
			}
		}
		fmt.Println(string(data))
		return nil
	},
}

// toYAML re-encodes a JSON document as YAML, keeping the JSON field names
func toYAML(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to convert template: %w", err)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert template: %w", err)
	}
	return out, nil
}

var templateImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a template from a JSON or YAML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		t, err := env.registry.ImportFile(args[0])
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✅ Imported template: %s", t.Name)))
		return nil
	},
}

var templateExportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export a template as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output, _ := cmd.Flags().GetString("output")

		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		t, ok := env.registry.Get(args[0])
		if !ok {
			return fmt.Errorf("%w: %s", templates.ErrTemplateNotFound, args[0])
		}
		data, err := templates.Export(t)
		if err != nil {
			return err
		}
		if output == "" {
			fmt.Println(string(data))
			return nil
		}
		if err := os.WriteFile(output, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", output, err)
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✅ Exported %s to %s", t.Name, output)))
		return nil
	},
}

var templateRemoveCmd = &cobra.Command{
	Use:   "remove <name|custom number>",
	Short: "Remove an imported template",
	Long: `Remove an imported template by name or by its custom number from
'chatterapi template list'. Connections using it are kept and fail when sending.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}

		index, err := customIndex(env.registry.Custom(), args[0])
		if err != nil {
			return err
		}
		name := env.registry.Custom()[index].Name
		if err := env.registry.RemoveTemplate(index); err != nil {
			return err
		}
		fmt.Printf("Template removed: %s\n", name)
		return nil
	},
}

// customIndex resolves a 1-based custom number or a template name
func customIndex(custom []templates.Template, arg string) (int, error) {
	if n, err := strconv.Atoi(arg); err == nil {
		if n < 1 || n > len(custom) {
			return -1, fmt.Errorf("custom template %d does not exist (have %d)", n, len(custom))
		}
		return n - 1, nil
	}
	for i, t := range custom {
		if t.Name == arg {
			return i, nil
		}
	}
	return -1, fmt.Errorf("no imported template named '%s' (built-in templates cannot be removed)", arg)
}
