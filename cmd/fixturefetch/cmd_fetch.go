package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/moseq-tools/fixturefetch"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
)

var fetchFlags struct {
	refresh     bool
	dryRun      bool
	include     []string
	exclude     []string
	parallelism int
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Download the manifest's fixtures that are missing locally",
	Long: `Fetch materializes every target of the manifest. Targets whose local
file already exists are skipped without any remote request; missing
files are downloaded in parallel.

Usage:
  fixturefetch fetch                       # All targets from fixtures.yaml
  fixturefetch fetch -m tests/fixtures.yaml
  fixturefetch fetch --include "*.tiff"    # Only TIFF fixtures
  fixturefetch fetch --refresh             # Re-check existing files by ETag`,
	Args: cobra.NoArgs,
	RunE: runFetch,
}

func init() {
	f := fetchCmd.Flags()
	f.BoolVar(&fetchFlags.refresh, "refresh", false, "Re-check existing fixtures against remote ETags")
	f.BoolVar(&fetchFlags.dryRun, "dry-run", false, "Plan only, download nothing (same as the plan command)")
	f.StringArrayVar(&fetchFlags.include, "include", nil, "Only provision fixtures matching this glob (repeatable)")
	f.StringArrayVar(&fetchFlags.exclude, "exclude", nil, "Skip fixtures matching this glob (repeatable)")
	f.IntVar(&fetchFlags.parallelism, "parallelism", 0, "Concurrent downloads for this run (default: --concurrency)")
}

func runFetch(cmd *cobra.Command, _ []string) error {
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
		fixturefetch.WithRefresh(fetchFlags.refresh),
		fixturefetch.WithDryRun(fetchFlags.dryRun),
		fixturefetch.WithParallelism(fetchFlags.parallelism),
	}
	for _, p := range fetchFlags.include {
		opts = append(opts, fixturefetch.WithIncludePattern(p))
	}
	for _, p := range fetchFlags.exclude {
		opts = append(opts, fixturefetch.WithExcludePattern(p))
	}

	result, err := client.Provision(ctx, m, opts...)
	if err != nil {
		return fmt.Errorf("fetch: %w", err)
	}

	out := cmd.OutOrStdout()

	if fetchFlags.dryRun {
		for _, op := range result.Operations {
			fmt.Fprintf(out, "  %-5s %s\n", op.Type, op.LocalPath)
		}
		return nil
	}

	fmt.Fprintf(out, "Fetched %d fixture(s) (%d bytes), skipped %d, in %s\n",
		result.FilesFetched, result.BytesFetched, result.FilesSkipped,
		result.Duration.Round(time.Millisecond))

	if len(result.Errors) > 0 {
		for _, fe := range result.Errors {
			fmt.Fprintf(out, "  FAILED %s (%s): %s\n", fe.Path, fe.Key, fe.Message)
		}
		return fmt.Errorf("%d fixture(s) failed", len(result.Errors))
	}

	return nil
}
