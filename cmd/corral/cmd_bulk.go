package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yairfalse/corral/internal/action"
	"github.com/yairfalse/corral/internal/emitter"
)

var (
	bulkFile   string
	bulkOutput string
)

var bulkCmd = &cobra.Command{
	Use:   "bulk",
	Short: "Run a list of actions from a JSON file",
	Long: `Run every action in a JSON array, one after another. Each element has
resource_id, resource_type, region and action. A malformed or failing
element is reported in place and never stops the rest.`,
	Example: `  corral bulk --file cleanup.json
  corral bulk -f cleanup.json --output json`,
	RunE: runBulk,
}

func init() {
	rootCmd.AddCommand(bulkCmd)

	bulkCmd.Flags().StringVarP(&bulkFile, "file", "f", "", "JSON file with an array of action requests")
	bulkCmd.Flags().StringVarP(&bulkOutput, "output", "o", "table", "Output format: table, json, yaml")
	_ = bulkCmd.MarkFlagRequired("file")
}

func runBulk(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	format, err := emitter.ParseFormat(bulkOutput)
	if err != nil {
		return err
	}
	raw, err := os.ReadFile(bulkFile)
	if err != nil {
		return fmt.Errorf("read requests: %w", err)
	}
	reqs, err := action.ParseRequests(raw)
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	tp, err := newTelemetry(ctx, cfg)
	if err != nil {
		return err
	}
	defer shutdownTelemetry(tp)

	sess, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	exec, closeJournal, err := newExecutor(ctx, cfg, sess, tp)
	if err != nil {
		return err
	}
	defer closeJournal()

	result := exec.ExecuteBulk(ctx, reqs)

	if format != emitter.FormatTable {
		return emitter.Encode(os.Stdout, format, result)
	}
	if err := emitter.WriteOutcomes(os.Stdout, format, result.Outcomes...); err != nil {
		return err
	}
	fmt.Printf("\n%d actions: %s, %s\n", result.Total,
		color.GreenString("%d successful", result.Successful),
		color.RedString("%d failed", result.Failed))
	return nil
}
