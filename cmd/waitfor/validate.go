package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/amp-labs/amp-wait/waitfor"
)

// validateCmd checks a spec file without contacting any cluster.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a wait spec file",
	Long: `Validate a wait spec file without running any waits.

This command parses the YAML and validates every entry, including the for
clauses and any jsonpath expressions. Useful in CI before a deploy pipeline
depends on the file.

Exit codes:
  0 - Spec file is valid
  2 - Spec file is invalid (details printed to stderr)

Example:
  waitfor validate -f waits.yaml`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().StringP("file", "f", "", "path to the spec file (required)")
	_ = validateCmd.MarkFlagRequired("file")
}

func runValidate(cmd *cobra.Command, _ []string) error {
	cmd.SilenceUsage = true

	file, _ := cmd.Flags().GetString("file")

	specs, err := waitfor.LoadSpecs(file)
	if err != nil {
		return fmt.Errorf("%w: %w", errUsage, err)
	}

	fmt.Printf("Spec file is valid!\n")
	fmt.Printf("  Waits: %d\n", len(specs))

	for _, spec := range specs {
		fmt.Printf("  - %s (%s)\n", spec.Object(), spec.For)
	}

	return nil
}
