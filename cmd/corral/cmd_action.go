package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/yairfalse/corral/internal/action"
	"github.com/yairfalse/corral/internal/emitter"
	"github.com/yairfalse/corral/pkg/resource"
)

var (
	actionKind   string
	actionID     string
	actionRegion string
	actionName   string
	actionDryRun bool
	actionOutput string
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Stop, delete or terminate one resource",
	Long: `Run one action on one resource. The resource's live state is checked
first; the action is refused when it would be a no-op or unsafe (for
example, releasing an Elastic IP that is still associated).

With --dry-run only the check runs and nothing is changed.`,
	Example: `  corral action --kind EC2_Instance --id i-0abc --region us-east-1 --action stop
  corral action --kind Elastic_IP --id eipalloc-1 --region eu-west-1 --action delete --dry-run
  corral action --kind S3_Bucket --id old-logs --action delete`,
	RunE: runAction,
}

func init() {
	rootCmd.AddCommand(actionCmd)

	actionCmd.Flags().StringVarP(&actionKind, "kind", "k", "", "Resource kind, e.g. EC2_Instance")
	actionCmd.Flags().StringVar(&actionID, "id", "", "Resource id (bucket name for S3_Bucket)")
	actionCmd.Flags().StringVarP(&actionRegion, "region", "r", "", "Resource region (default: the default region)")
	actionCmd.Flags().StringVarP(&actionName, "action", "a", "", "Action: stop, delete, terminate")
	actionCmd.Flags().BoolVar(&actionDryRun, "dry-run", false, "Only validate; change nothing")
	actionCmd.Flags().StringVarP(&actionOutput, "output", "o", "table", "Output format: table, json, yaml")
	_ = actionCmd.MarkFlagRequired("kind")
	_ = actionCmd.MarkFlagRequired("id")
	_ = actionCmd.MarkFlagRequired("action")
}

func runAction(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	format, err := emitter.ParseFormat(actionOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	region := actionRegion
	if region == "" {
		region = cfg.AWS.DefaultRegion
	}
	req := resource.Request{
		ResourceID: actionID,
		Kind:       resource.Kind(actionKind),
		Region:     region,
		Action:     resource.Action(actionName),
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

	if actionDryRun {
		v, err := exec.Validate(ctx, req)
		if err != nil {
			return err
		}
		if err := writeValidation(format, v); err != nil {
			return err
		}
		if !v.Valid {
			return fmt.Errorf("validation failed: %s", v.Reason)
		}
		return nil
	}

	out := exec.Execute(ctx, req)
	if err := emitter.WriteOutcomes(os.Stdout, format, out); err != nil {
		return err
	}
	if !out.Success {
		return fmt.Errorf("action failed: %s", out.Message)
	}
	return nil
}

func writeValidation(format emitter.Format, v action.Validation) error {
	if format != emitter.FormatTable {
		return emitter.Encode(os.Stdout, format, v)
	}

	if v.Valid {
		fmt.Println(color.GreenString("valid"))
	} else {
		fmt.Printf("%s: %s\n", color.RedString("invalid"), v.Reason)
	}

	keys := make([]string, 0, len(v.Metadata))
	for k := range v.Metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("  %s: %v\n", k, v.Metadata[k])
	}
	return nil
}
