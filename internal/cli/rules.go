package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Wikid82/logwarden/internal/config"
)

func newRulesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Inspect alert rules",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Load the alert rules and print them",
		Long:  "Load the alerting rules from the config file. Exits non-zero when a definition is invalid.",
		Args:  cobra.NoArgs,
		RunE:  runRulesCheck,
	})
	return cmd
}

func runRulesCheck(cmd *cobra.Command, args []string) error {
	path := cfgFile
	if path == "" {
		path = os.Getenv("LOGWARDEN_CONFIG_FILE")
	}
	if path == "" {
		return fmt.Errorf("no config file: pass --config or set LOGWARDEN_CONFIG_FILE")
	}

	app, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	evaluator, err := app.Rules()
	if err != nil {
		return fmt.Errorf("invalid rules in %s: %w", path, err)
	}

	out := cmd.OutOrStdout()
	if evaluator.Len() == 0 {
		fmt.Fprintln(out, "no alert rules configured")
		return nil
	}
	for _, r := range evaluator.Rules() {
		fmt.Fprintln(out, r.String())
	}
	fmt.Fprintf(out, "%d rules OK\n", evaluator.Len())
	return nil
}
