package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/moseq-tools/fixturefetch"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/internal/ctxlog"
	"github.com/moseq-tools/fixturefetch/manifest"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	manifestPath  string
	logLevel      string
	logFormat     string
	region        string
	endpoint      string
	pathStyle     bool
	requesterPays bool
	concurrency   int
}

var rootCmd = &cobra.Command{
	Use:   "fixturefetch",
	Short: "Provision local test fixtures from S3 requester-pays buckets",
	Long: "Fixturefetch materializes the fixture files a test suite needs,\n" +
		"as declared in a YAML manifest. Existing files are skipped, missing\n" +
		"ones are downloaded in parallel, and partial downloads never reach\n" +
		"their final path.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&rootFlags.manifestPath, "manifest", "m", "fixtures.yaml", "Path to the fixture manifest")
	pf.StringVar(&rootFlags.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	pf.StringVar(&rootFlags.logFormat, "log-format", "text", "Log format (text, json)")
	pf.StringVar(&rootFlags.region, "region", "", "AWS region (default: manifest region or credential chain)")
	pf.StringVar(&rootFlags.endpoint, "endpoint", "", "Custom S3 endpoint (for S3-compatible stores)")
	pf.BoolVar(&rootFlags.pathStyle, "path-style", false, "Force path-style bucket addressing")
	pf.BoolVar(&rootFlags.requesterPays, "requester-pays", false, "Send requester-pays on every request, regardless of manifest")
	pf.IntVar(&rootFlags.concurrency, "concurrency", 5, "Number of concurrent downloads")

	rootCmd.AddCommand(fetchCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.Version = version
}

// commandContext builds the command context with a configured logger attached.
func commandContext() (context.Context, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(rootFlags.logLevel)); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", rootFlags.logLevel, err)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	switch rootFlags.logFormat {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, opts)
	case "text":
		handler = slog.NewTextHandler(os.Stderr, opts)
	default:
		return nil, fmt.Errorf("invalid log format %q (available: text, json)", rootFlags.logFormat)
	}

	return ctxlog.WithLogger(context.Background(), slog.New(handler)), nil
}

// newClient builds a fixture client from the shared flags and the manifest.
func newClient(manifestRegion string) (*fixturefetch.Client, error) {
	opts := []fetchtypes.Option{
		fixturefetch.WithConcurrency(rootFlags.concurrency),
	}

	region := rootFlags.region
	if region == "" {
		region = manifestRegion
	}
	if region != "" {
		opts = append(opts, fixturefetch.WithRegion(region))
	}
	if rootFlags.endpoint != "" {
		opts = append(opts, fixturefetch.WithEndpoint(rootFlags.endpoint))
	}
	if rootFlags.pathStyle {
		opts = append(opts, fixturefetch.WithForcePathStyle(true))
	}
	if rootFlags.requesterPays {
		opts = append(opts, fixturefetch.WithRequesterPays(true))
	}

	return fixturefetch.New(opts...)
}

// loadManifest reads the manifest named by the shared flag.
func loadManifest() (*manifest.Manifest, error) {
	m, err := manifest.Load(fs.NewOSFS("."), rootFlags.manifestPath)
	if err != nil {
		return nil, fmt.Errorf("load manifest %s: %w", rootFlags.manifestPath, err)
	}
	return m, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
