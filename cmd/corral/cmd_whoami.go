package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/yairfalse/corral/internal/emitter"
)

var whoamiOutput string

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the account and identity behind the credentials",
	RunE:  runWhoami,
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	whoamiCmd.Flags().StringVarP(&whoamiOutput, "output", "o", "table", "Output format: table, json, yaml")
}

func runWhoami(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	format, err := emitter.ParseFormat(whoamiOutput)
	if err != nil {
		return err
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	sess, err := newSession(ctx, cfg)
	if err != nil {
		return err
	}
	defer sess.Teardown()

	id, err := sess.Identity(ctx)
	if err != nil {
		return err
	}

	if format != emitter.FormatTable {
		return emitter.Encode(os.Stdout, format, id)
	}
	fmt.Printf("Account: %s\nARN:     %s\nUserID:  %s\n", id.Account, id.ARN, id.UserID)
	return nil
}
