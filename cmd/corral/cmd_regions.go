package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "List the regions a scan would cover",
	Long: `List the regions enabled for the account. When discovery fails the
built-in fallback list is printed instead.`,
	RunE: runRegions,
}

func init() {
	rootCmd.AddCommand(regionsCmd)
}

func runRegions(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	for _, r := range sess.ListRegions(ctx) {
		fmt.Println(r)
	}
	return nil
}
