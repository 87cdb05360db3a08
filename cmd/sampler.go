package cmd

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"chatterapi/internal/samplers"
)

var samplerCmd = &cobra.Command{
	Use:   "sampler",
	Short: "Show and change sampler presets",
}

func init() {
	rootCmd.AddCommand(samplerCmd)
	samplerCmd.AddCommand(samplerShowCmd, samplerSetCmd, samplerUseCmd)
	samplerSetCmd.Flags().StringP("preset", "p", "", "Preset to change (default: the active one)")
}

var samplerShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the active preset",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		name, preset, err := env.samplers.Active()
		if err != nil {
			return err
		}
		names, err := env.samplers.Names()
		if err != nil {
			return err
		}
		sort.Strings(names)

		fmt.Printf("Preset: %s %s\n", activeStyle.Render(name), dimStyle.Render("(available: "+strings.Join(names, ", ")+")"))
		for _, id := range preset.SortedIDs() {
			label := string(id)
			if def, ok := samplers.Definitions[id]; ok {
				label = def.Label
			}
			fmt.Printf("  %-16s %-26s %v\n", id, dimStyle.Render(label), preset[id])
		}
		return nil
	},
}

// parseSamplerValue reads a CLI value as bool, number or string
func parseSamplerValue(raw string) any {
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}

var samplerSetCmd = &cobra.Command{
	Use:   "set <sampler> <value>",
	Short: "Set a sampler value",
	Long: `Set a sampler value on a preset. Sampler IDs are provider independent
(temp, top_p, genamt, seed, ...); each template maps them to its own field names.

Examples:
  chatterapi sampler set temp 0.9
  chatterapi sampler set seed 42 --preset Creative`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		presetFlag, _ := cmd.Flags().GetString("preset")

		id := samplers.ID(args[0])
		if _, ok := samplers.Definitions[id]; !ok {
			return fmt.Errorf("unknown sampler: %s", id)
		}

		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		preset := presetFlag
		if preset == "" {
			if preset, _, err = env.samplers.Active(); err != nil {
				return err
			}
		}

		value := parseSamplerValue(args[1])
		if err := env.samplers.SetValue(preset, id, value); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s.%s = %v", preset, id, value)))
		return nil
	},
}

var samplerUseCmd = &cobra.Command{
	Use:   "use <preset>",
	Short: "Select the active preset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := loadEnvironment(os.Stderr)
		if err != nil {
			return err
		}
		if err := env.samplers.SetActive(args[0]); err != nil {
			return err
		}
		fmt.Println(successStyle.Render("✓ Active preset: " + args[0]))
		return nil
	},
}
