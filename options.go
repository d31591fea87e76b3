package fixturefetch

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
)

// Client options

// WithRegion sets the AWS region for the client.
func WithRegion(region string) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.Region = region
	}
}

// WithEndpoint sets a custom S3 endpoint. Useful for S3-compatible stores and
// local test servers.
func WithEndpoint(endpoint string) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.Endpoint = endpoint
	}
}

// WithForcePathStyle forces path-style bucket addressing. Most S3-compatible
// test servers require this.
func WithForcePathStyle(force bool) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.ForcePathStyle = force
	}
}

// WithMaxRetries sets the maximum number of retry attempts for failed requests.
func WithMaxRetries(retries int) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.MaxRetries = retries
	}
}

// WithTimeout sets the per-request timeout for S3 operations.
func WithTimeout(timeout time.Duration) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.Timeout = timeout
	}
}

// WithConcurrency sets the default number of concurrent downloads for
// provisioning runs.
func WithConcurrency(concurrency int) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.Concurrency = concurrency
	}
}

// WithRequesterPays marks every request as requester-pays. Manifests and
// targets can still override this per fixture; the effective setting is the
// logical OR of client, manifest, and target.
func WithRequesterPays(requesterPays bool) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.RequesterPays = requesterPays
	}
}

// WithHTTPClient sets a custom HTTP client for S3 requests.
func WithHTTPClient(client *http.Client) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.CustomHTTPClient = client
	}
}

// WithAWSConfig uses a pre-built AWS configuration instead of loading the
// default credential chain.
func WithAWSConfig(cfg aws.Config) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.CustomAWSConfig = &cfg
	}
}

// WithFilesystem sets the filesystem implementation used for local fixture
// files. Defaults to the OS filesystem rooted at the working directory.
func WithFilesystem(filesystem fs.Filesystem) fetchtypes.Option {
	return func(c *fetchtypes.ClientConfig) {
		c.Filesystem = filesystem
	}
}

// Provision options

// WithDryRun plans the provisioning run without downloading anything. The
// planned operations are returned on the result.
func WithDryRun(dryRun bool) fetchtypes.ProvisionOption {
	return func(c *fetchtypes.ProvisionOptionConfig) {
		c.DryRun = dryRun
	}
}

// WithRefresh re-checks existing fixtures against the remote objects using
// ETag comparison instead of the default presence check.
func WithRefresh(refresh bool) fetchtypes.ProvisionOption {
	return func(c *fetchtypes.ProvisionOptionConfig) {
		c.Refresh = refresh
	}
}

// WithComparator sets a custom staleness comparator for the run. Overrides
// WithRefresh.
func WithComparator(comp fetchtypes.FileComparator) fetchtypes.ProvisionOption {
	return func(c *fetchtypes.ProvisionOptionConfig) {
		c.Comparator = comp
	}
}

// WithParallelism sets the number of concurrent downloads for this run,
// overriding the client's default concurrency.
func WithParallelism(parallelism int) fetchtypes.ProvisionOption {
	return func(c *fetchtypes.ProvisionOptionConfig) {
		c.Parallelism = parallelism
	}
}

// WithIncludePattern adds a glob pattern; only matching fixture paths are
// provisioned. May be repeated.
func WithIncludePattern(pattern string) fetchtypes.ProvisionOption {
	return func(c *fetchtypes.ProvisionOptionConfig) {
		c.IncludePatterns = append(c.IncludePatterns, pattern)
	}
}

// WithExcludePattern adds a glob pattern; matching fixture paths are skipped.
// Exclude patterns take precedence over include patterns. May be repeated.
func WithExcludePattern(pattern string) fetchtypes.ProvisionOption {
	return func(c *fetchtypes.ProvisionOptionConfig) {
		c.ExcludePatterns = append(c.ExcludePatterns, pattern)
	}
}

// WithProgressTracker sets a progress tracker for the provisioning run.
func WithProgressTracker(tracker fetchtypes.ProgressTracker) fetchtypes.ProvisionOption {
	return func(c *fetchtypes.ProvisionOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// Download options

// WithDownloadProgress sets a progress tracker for a single download.
func WithDownloadProgress(tracker fetchtypes.ProgressTracker) fetchtypes.DownloadOption {
	return func(c *fetchtypes.DownloadOptionConfig) {
		c.ProgressTracker = tracker
	}
}

// WithRange downloads only the given byte range, e.g. "bytes=0-1023".
func WithRange(rangeSpec string) fetchtypes.DownloadOption {
	return func(c *fetchtypes.DownloadOptionConfig) {
		c.RangeSpec = rangeSpec
	}
}
