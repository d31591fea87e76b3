package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/pipeline"
)

var runFlags struct {
	pipelinePath string
	noFetch      bool
}

var runCmd = &cobra.Command{
	Use:   "run <job>",
	Short: "Run a declared job after provisioning its fixtures",
	Long: `Run provisions the manifest's fixtures, then executes the named job's
steps in order through the shell, aborting on the first failure.

Jobs are declared in the manifest's jobs section, or in a standalone
pipeline file given with --pipeline:

  fixturefetch run test
  fixturefetch run lint --pipeline ci.yaml
  fixturefetch run test --no-fetch          # Skip provisioning`,
	Args: cobra.ExactArgs(1),
	RunE: runRun,
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runFlags.pipelinePath, "pipeline", "", "Standalone pipeline file (default: manifest jobs)")
	f.BoolVar(&runFlags.noFetch, "no-fetch", false, "Run the job without provisioning fixtures first")
}

func runRun(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, err := commandContext()
	if err != nil {
		return err
	}

	m, err := loadManifest()
	if err != nil {
		return err
	}

	jobs := m.Jobs
	if runFlags.pipelinePath != "" {
		data, err := fs.NewOSFS(".").ReadFile(runFlags.pipelinePath)
		if err != nil {
			return fmt.Errorf("read pipeline %s: %w", runFlags.pipelinePath, err)
		}
		file, err := pipeline.Parse(data)
		if err != nil {
			return err
		}
		jobs = file.Jobs
	}

	job := findJob(jobs, jobName)
	if job == nil {
		if len(jobs) == 0 {
			return fmt.Errorf("no jobs declared: add a jobs section to the manifest or pass --pipeline")
		}
		return fmt.Errorf("unknown job %q (available: %s)", jobName, strings.Join(jobNames(jobs), ", "))
	}

	if !runFlags.noFetch {
		client, err := newClient(m.Region)
		if err != nil {
			return fmt.Errorf("create client: %w", err)
		}
		defer client.Close()

		result, err := client.Provision(ctx, m)
		if err != nil {
			return fmt.Errorf("provision fixtures: %w", err)
		}
		if len(result.Errors) > 0 {
			for _, fe := range result.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "  FAILED %s (%s): %s\n", fe.Path, fe.Key, fe.Message)
			}
			return fmt.Errorf("%d fixture(s) failed to provision", len(result.Errors))
		}
	}

	runner := pipeline.NewRunner()
	runner.Stdout = cmd.OutOrStdout()
	runner.Stderr = cmd.ErrOrStderr()

	jobResult, err := runner.Run(ctx, job)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Job %q finished: %d step(s) in %s\n",
		jobResult.Job, len(jobResult.Steps), jobResult.Duration.Round(time.Millisecond))
	return nil
}

// findJob returns the named job, or nil.
func findJob(jobs []pipeline.Job, name string) *pipeline.Job {
	for i := range jobs {
		if jobs[i].Name == name {
			return &jobs[i]
		}
	}
	return nil
}

// jobNames returns the sorted names of the given jobs.
func jobNames(jobs []pipeline.Job) []string {
	names := make([]string, 0, len(jobs))
	for i := range jobs {
		names = append(names, jobs[i].Name)
	}
	sort.Strings(names)
	return names
}
