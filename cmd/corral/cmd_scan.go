package main

import (
	"context"
	"os"
	"slices"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/yairfalse/corral/internal/emitter"
	"github.com/yairfalse/corral/internal/filter"
	"github.com/yairfalse/corral/internal/orchestrator"
	"github.com/yairfalse/corral/pkg/resource"
)

var (
	scanWorkers     int
	scanRegions     []string
	scanKinds       []string
	scanStates      []string
	scanTags        []string
	scanExcludeTags []string
	scanOutput      string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Inventory resources across regions",
	Long: `Scan every enabled region (or the given ones) for all supported resource
kinds, then print the inventory with counts and estimated monthly cost.

Kind, state and tag filters apply to the result; the summary is computed
over the filtered resources.`,
	Example: `  corral scan                                   # All regions, table output
  corral scan --regions us-east-1,eu-west-1     # Specific regions
  corral scan --kind EC2_Instance --state running
  corral scan --tag env=prod --output json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().IntVarP(&scanWorkers, "workers", "w", 0, "Concurrent scan tasks (default from config)")
	scanCmd.Flags().StringSliceVar(&scanRegions, "regions", nil, "Regions to scan (default: discover)")
	scanCmd.Flags().StringSliceVarP(&scanKinds, "kind", "k", nil, "Only these resource kinds")
	scanCmd.Flags().StringSliceVar(&scanStates, "state", nil, "Only resources in these states")
	scanCmd.Flags().StringSliceVar(&scanTags, "tag", nil, "Only resources with tag key=value (all must match)")
	scanCmd.Flags().StringSliceVar(&scanExcludeTags, "exclude-tag", nil, "Skip resources with tag key=value")
	scanCmd.Flags().StringVarP(&scanOutput, "output", "o", "table", "Output format: table, json, yaml")
}

func runScan(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	format, err := emitter.ParseFormat(scanOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if scanWorkers > 0 {
		cfg.Scan.MaxWorkers = scanWorkers
	}
	if len(scanRegions) > 0 {
		cfg.AWS.Regions = scanRegions
	}

	kinds, err := filter.ParseKinds(scanKinds)
	if err != nil {
		return err
	}
	f, err := buildFilter(kinds, scanStates, scanTags, scanExcludeTags)
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

	if cfg.Scan.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Scan.Timeout)
		defer cancel()
	}

	orch := newOrchestrator(cfg, sess, tp, orchestrator.WithExcludeKinds(unwantedKinds(kinds)...))
	result := applyFilter(orch.Scan(ctx), f)

	log.Info().
		Int("resources", result.Summary.Total).
		Int("errors", len(result.Errors)).
		Dur("duration", result.Duration).
		Msg("scan finished")

	return emitter.NewWriterEmitter(os.Stdout, format).Emit(ctx, result)
}

func buildFilter(kinds []resource.Kind, states, tags, excludeTags []string) (*filter.Filter, error) {
	include, err := filter.ParseTags(tags)
	if err != nil {
		return nil, err
	}
	exclude, err := filter.ParseTags(excludeTags)
	if err != nil {
		return nil, err
	}
	return filter.New(
		filter.WithKinds(kinds...),
		filter.WithStates(states...),
		filter.WithTags(include),
		filter.WithoutTags(exclude),
	), nil
}

// unwantedKinds lists the kinds not named in wanted, so they are never scanned.
// An empty wanted list means every kind.
func unwantedKinds(wanted []resource.Kind) []resource.Kind {
	if len(wanted) == 0 {
		return nil
	}
	var out []resource.Kind
	for _, k := range resource.Kinds() {
		if !slices.Contains(wanted, k) {
			out = append(out, k)
		}
	}
	return out
}

// applyFilter narrows result and recomputes its summaries over what is left.
func applyFilter(result resource.ScanResult, f *filter.Filter) resource.ScanResult {
	if f.IsEmpty() {
		return result
	}
	result.Resources = f.Records(result.Resources)
	result.Summary = orchestrator.Summarize(result.Resources)
	result.CostSummary = orchestrator.SummarizeCost(result.Resources)
	return result
}
