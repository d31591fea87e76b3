package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moseq-tools/fixturefetch"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
)

var planFlags struct {
	refresh bool
	include []string
	exclude []string
}

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Show what fetch would do without downloading anything",
	Long: `Plan performs a dry run: it builds the fixture inventory and prints the
planned fetch and skip operations without touching any file or object.`,
	Args: cobra.NoArgs,
	RunE: runPlan,
}

func init() {
	f := planCmd.Flags()
	f.BoolVar(&planFlags.refresh, "refresh", false, "Re-check existing fixtures against remote ETags")
	f.StringArrayVar(&planFlags.include, "include", nil, "Only plan fixtures matching this glob (repeatable)")
	f.StringArrayVar(&planFlags.exclude, "exclude", nil, "Skip fixtures matching this glob (repeatable)")
}

func runPlan(cmd *cobra.Command, _ []string) error {
	ctx, err := commandContext()
	if err != nil {
		return err
	}

	m, err := loadManifest()
	if err != nil {
		return err
	}

	client, err := newClient(m.Region)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	defer client.Close()

	opts := []fetchtypes.ProvisionOption{
		fixturefetch.WithDryRun(true),
		fixturefetch.WithRefresh(planFlags.refresh),
	}
	for _, p := range planFlags.include {
		opts = append(opts, fixturefetch.WithIncludePattern(p))
	}
	for _, p := range planFlags.exclude {
		opts = append(opts, fixturefetch.WithExcludePattern(p))
	}

	result, err := client.Provision(ctx, m, opts...)
	if err != nil {
		return fmt.Errorf("plan: %w", err)
	}

	out := cmd.OutOrStdout()
	fetches := 0
	for _, op := range result.Operations {
		if op.Type == fetchtypes.OperationFetch {
			fetches++
			fmt.Fprintf(out, "  fetch %s <- %s (%s)\n", op.LocalPath, op.RemoteKey, op.Reason)
		} else {
			fmt.Fprintf(out, "  skip  %s (%s)\n", op.LocalPath, op.Reason)
		}
	}
	fmt.Fprintf(out, "Plan: %d to fetch, %d to skip\n", fetches, len(result.Operations)-fetches)

	for _, fe := range result.Errors {
		fmt.Fprintf(out, "  WARNING %s (%s): %s\n", fe.Path, fe.Key, fe.Message)
	}

	return nil
}
