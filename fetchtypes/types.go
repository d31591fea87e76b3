// Package fetchtypes provides shared type definitions for the fixturefetch
// module.
package fetchtypes

import (
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/moseq-tools/fixturefetch/fs"
)

// ProgressTracker defines the interface for tracking transfer progress.
// Implementations can provide real-time progress updates during downloads.
type ProgressTracker interface {
	// Update is called periodically with transfer progress
	Update(bytesTransferred, totalBytes int64)

	// Complete is called when the transfer completes successfully
	Complete()

	// Error is called when the transfer fails
	Error(err error)
}

// FileComparator defines the interface for deciding whether a local fixture
// is stale relative to its remote object. Different implementations use
// different staleness strategies.
type FileComparator interface {
	// IsStale reports whether the local file must be re-fetched from the
	// remote object. A nil local means the file does not exist yet.
	IsStale(local *LocalFile, remote *RemoteFile) (bool, error)
}

// LocalFile represents a fixture file on the local filesystem.
type LocalFile struct {
	// Path is the local file path
	Path string

	// Size is the file size in bytes
	Size int64

	// ModTime is the file modification time
	ModTime time.Time
}

// RemoteFile represents an S3 object backing a fixture.
type RemoteFile struct {
	// Key is the S3 object key
	Key string

	// Size is the object size in bytes
	Size int64

	// LastModified is when the object was last modified
	LastModified time.Time

	// ETag is the S3 entity tag
	ETag string
}

// TargetSpec is a fully resolved fixture target handed to the provisioning
// engine: manifest prefix applied to the key, requester-pays resolved.
type TargetSpec struct {
	// Path is the local fixture path
	Path string

	// Key is the full object key (or key prefix for recursive targets)
	Key string

	// Recursive marks the target as a directory-style prefix copy
	Recursive bool

	// RequesterPays is the resolved requester-pays setting
	RequesterPays bool
}

// DownloadResult contains the result of a single download operation.
type DownloadResult struct {
	// Key is the S3 object key that was downloaded
	Key string

	// Size is the size of the downloaded object in bytes
	Size int64

	// ETag is the S3 entity tag for the downloaded object
	ETag string

	// Duration is how long the download took
	Duration time.Duration
}

// OperationType describes a planned provisioning operation.
type OperationType string

const (
	// OperationFetch indicates an object must be downloaded
	OperationFetch OperationType = "fetch"

	// OperationSkip indicates a target is already satisfied
	OperationSkip OperationType = "skip"
)

// Operation is a single entry of a provisioning plan, exposed for dry runs.
type Operation struct {
	// Type of operation (fetch or skip)
	Type OperationType

	// LocalPath is the local fixture path
	LocalPath string

	// RemoteKey is the S3 object key
	RemoteKey string

	// Size is the object size in bytes (0 when unknown)
	Size int64

	// Reason describes why this operation was planned
	Reason string
}

// Result contains the outcome of a provisioning run.
type Result struct {
	// FilesFetched is the number of fixtures downloaded
	FilesFetched int

	// FilesSkipped is the number of fixtures already satisfied locally
	FilesSkipped int

	// BytesFetched is the total bytes downloaded
	BytesFetched int64

	// Errors contains any per-fixture errors that occurred
	Errors []FixtureError

	// Operations holds the planned operations when running in dry-run mode
	Operations []Operation

	// Duration is how long the provisioning run took
	Duration time.Duration
}

// FixtureError represents an error that occurred while provisioning a single
// fixture.
type FixtureError struct {
	// Path is the local fixture path that caused the error
	Path string

	// Key is the remote object key involved
	Key string

	// Message is the error message
	Message string
}

// VerifyStatus describes the result of verifying a single fixture.
type VerifyStatus string

const (
	// VerifyOK means the fixture matched every declared expectation
	VerifyOK VerifyStatus = "ok"

	// VerifyMissing means the fixture file does not exist
	VerifyMissing VerifyStatus = "missing"

	// VerifyMismatch means the fixture exists but failed a declared check
	VerifyMismatch VerifyStatus = "mismatch"
)

// VerifyReport is the verification outcome for a single target.
type VerifyReport struct {
	// Path is the local fixture path
	Path string

	// Status is the verification status
	Status VerifyStatus

	// Detail explains a non-ok status
	Detail string
}

// ClientConfig holds configuration for the fixture client.
type ClientConfig struct {
	Region           string
	Endpoint         string
	MaxRetries       int
	Timeout          time.Duration
	Concurrency      int
	ForcePathStyle   bool
	RequesterPays    bool
	CustomAWSConfig  *aws.Config
	CustomHTTPClient *http.Client
	Filesystem       fs.Filesystem
}

// ProvisionOptionConfig holds configuration for provisioning runs via
// functional options.
type ProvisionOptionConfig struct {
	DryRun          bool
	Refresh         bool
	IncludePatterns []string
	ExcludePatterns []string
	Parallelism     int
	Comparator      FileComparator
	ProgressTracker ProgressTracker
}

// DownloadOptionConfig holds configuration for single-object downloads via
// functional options.
type DownloadOptionConfig struct {
	ProgressTracker ProgressTracker
	RangeSpec       string
}

// Option is a functional option for configuring the fixture client.
type (
	Option func(*ClientConfig)
	// ProvisionOption is a functional option for configuring provisioning runs.
	ProvisionOption func(*ProvisionOptionConfig)
	// DownloadOption is a functional option for configuring downloads.
	DownloadOption func(*DownloadOptionConfig)
)
