package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moseq-tools/fixturefetch"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
)

var verifyFlags struct {
	quiet bool
}

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check local fixtures against the manifest's declared expectations",
	Long: `Verify checks each fixture for existence and, when the manifest declares
them, size, SHA-256 digest, and media type. It never downloads or
modifies anything; run fetch first to materialize missing fixtures.`,
	Args: cobra.NoArgs,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().BoolVarP(&verifyFlags.quiet, "quiet", "q", false, "Only print failures")
}

func runVerify(cmd *cobra.Command, _ []string) error {
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

	reports, err := client.Verify(ctx, m)
	if err != nil {
		return fmt.Errorf("verify: %w", err)
	}

	fixturefetch.SortReports(reports)

	out := cmd.OutOrStdout()
	failures := 0
	for _, r := range reports {
		if r.Status == fetchtypes.VerifyOK {
			if !verifyFlags.quiet {
				fmt.Fprintf(out, "  ok       %s\n", r.Path)
			}
			continue
		}
		failures++
		fmt.Fprintf(out, "  %-8s %s: %s\n", r.Status, r.Path, r.Detail)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d fixture(s) failed verification", failures, len(reports))
	}
	if !verifyFlags.quiet {
		fmt.Fprintf(out, "All %d fixture(s) verified\n", len(reports))
	}

	return nil
}
