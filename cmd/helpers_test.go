package cmd

import (
	"io"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// useConfigDir points every command at a fresh configuration directory
func useConfigDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CHATTERAPI_CONFIG_DIR", dir)
	t.Setenv("CHATTERAPI_LOG_LEVEL", "error")
	return dir
}

// resetFlags restores flag defaults, since cobra keeps parsed values between
// executions of the same command tree
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if f.Value.Type() == "stringSlice" {
			if sv, ok := f.Value.(pflag.SliceValue); ok {
				sv.Replace(nil)
			}
		} else {
			f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

// runCLI executes the command line args against rootCmd
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	resetFlags(rootCmd)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(io.Discard)
	rootCmd.SetErr(io.Discard)
	return rootCmd.Execute()
}

// openTestEnv opens the stores of the directory set by useConfigDir
func openTestEnv(t *testing.T) *environment {
	t.Helper()
	env, err := loadEnvironment(io.Discard)
	if err != nil {
		t.Fatalf("loadEnvironment() error: %v", err)
	}
	return env
}
