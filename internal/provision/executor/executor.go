// Package executor handles the parallel execution of fetch operations.
// This includes managing concurrency limits and coordinating multiple
// downloads safely.
package executor

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/internal/ctxlog"
	"github.com/moseq-tools/fixturefetch/internal/provision/planner"
	"github.com/moseq-tools/fixturefetch/internal/s3api"
)

// Executor handles the parallel execution of fetch operations.
type Executor struct {
	s3Client   s3api.S3API
	filesystem fs.Filesystem

	// Concurrency control
	maxConcurrency int
	semaphore      chan struct{}

	// Progress tracking
	progressTracker fetchtypes.ProgressTracker
}

// NewExecutor creates a new executor with the specified concurrency limit.
func NewExecutor(s3Client s3api.S3API, filesystem fs.Filesystem, maxConcurrency int) *Executor {
	if maxConcurrency <= 0 {
		maxConcurrency = 5 // Default concurrency
	}

	return &Executor{
		s3Client:       s3Client,
		filesystem:     filesystem,
		maxConcurrency: maxConcurrency,
		semaphore:      make(chan struct{}, maxConcurrency),
	}
}

// WithProgressTracker sets the progress tracker for the executor.
func (e *Executor) WithProgressTracker(tracker fetchtypes.ProgressTracker) *Executor {
	e.progressTracker = tracker
	return e
}

// FetchError represents an error that occurred during a fetch operation.
type FetchError struct {
	// LocalPath is the fixture path that failed
	LocalPath string

	// RemoteKey is the S3 key that failed to download
	RemoteKey string

	// Err is the underlying error
	Err error
}

// FetchResult contains the result of fetch operations.
type FetchResult struct {
	// filesFetched is the number of objects successfully fetched
	filesFetched int64

	// bytesFetched is the total bytes downloaded
	bytesFetched int64

	// mu guards Errors
	mu sync.Mutex

	// Errors contains any errors that occurred during fetches
	Errors []FetchError

	// Duration is how long the fetch operations took
	Duration time.Duration
}

// FilesFetched returns the number of objects fetched (safe for concurrent access).
func (r *FetchResult) FilesFetched() int {
	return int(atomic.LoadInt64(&r.filesFetched))
}

// BytesFetched returns the total bytes downloaded (safe for concurrent access).
func (r *FetchResult) BytesFetched() int64 {
	return atomic.LoadInt64(&r.bytesFetched)
}

// appendError records a per-operation error.
func (r *FetchResult) appendError(fe FetchError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Errors = append(r.Errors, fe)
}

// Config holds configuration for fetch execution.
type Config struct {
	// Bucket is the S3 bucket holding the fixture objects
	Bucket string

	// TotalBytes is the planned download volume, passed to the progress
	// tracker so it can report a fraction. Zero when sizes are unknown.
	TotalBytes int64
}

// ExecuteFetches executes fetch operations with concurrency control.
// Skip operations in the input are ignored. The first error is returned after
// all in-flight operations finish; per-operation errors are collected on the
// result.
func (e *Executor) ExecuteFetches(
	ctx context.Context,
	config *Config,
	operations []*planner.Operation,
) (*FetchResult, error) {
	startTime := time.Now()
	result := &FetchResult{}

	var fetchOps []*planner.Operation
	for _, op := range operations {
		if op.Type == planner.OperationFetch {
			fetchOps = append(fetchOps, op)
		}
	}

	if len(fetchOps) == 0 {
		result.Duration = time.Since(startTime)
		return result, nil
	}

	err := e.executeWithConcurrency(ctx, fetchOps, func(ctx context.Context, op *planner.Operation) error {
		return e.fetchObject(ctx, config, op, result)
	})

	result.Duration = time.Since(startTime)
	return result, err
}

// executeWithConcurrency executes operations with semaphore-bounded
// concurrency, returning the first error once every started operation has
// finished.
func (e *Executor) executeWithConcurrency(
	ctx context.Context,
	operations []*planner.Operation,
	operationFunc func(context.Context, *planner.Operation) error,
) error {
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstError error

	for _, op := range operations {
		select {
		case e.semaphore <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return fmt.Errorf("context cancelled during semaphore acquisition: %w", ctx.Err())
		}

		wg.Add(1)
		go func(op *planner.Operation) {
			defer func() {
				<-e.semaphore
				wg.Done()
			}()

			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := operationFunc(ctx, op); err != nil {
				mu.Lock()
				if firstError == nil {
					firstError = err
				}
				mu.Unlock()
			}
		}(op)
	}

	wg.Wait()

	// Goroutines that observe cancellation before starting return no error,
	// so a cancelled run must still surface as one.
	if firstError == nil && ctx.Err() != nil {
		firstError = fmt.Errorf("context cancelled during execution: %w", ctx.Err())
	}

	return firstError
}

// fetchObject downloads a single object to its fixture path. The object is
// written to a temporary file in the destination directory and renamed into
// place, so the final path never holds a partial download.
func (e *Executor) fetchObject(
	ctx context.Context,
	config *Config,
	op *planner.Operation,
	result *FetchResult,
) error {
	logger := ctxlog.FromContext(ctx)

	written, err := e.downloadToPath(ctx, config.Bucket, op)
	if err != nil {
		result.appendError(FetchError{
			LocalPath: op.LocalPath,
			RemoteKey: op.RemoteKey,
			Err:       err,
		})
		return err
	}

	atomic.AddInt64(&result.filesFetched, 1)
	atomic.AddInt64(&result.bytesFetched, written)

	if e.progressTracker != nil {
		e.progressTracker.Update(result.BytesFetched(), config.TotalBytes)
	}

	logger.Debug("fetched fixture",
		"path", op.LocalPath, "key", op.RemoteKey, "bytes", written, "reason", op.Reason)

	return nil
}

// downloadToPath streams one object into a temp file and renames it into
// place, returning the byte count.
func (e *Executor) downloadToPath(ctx context.Context, bucket string, op *planner.Operation) (int64, error) {
	input := &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &op.RemoteKey,
	}
	if op.RequesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	output, err := e.s3Client.GetObject(ctx, input)
	if err != nil {
		return 0, classifyError(err, bucket, op.RemoteKey)
	}
	defer output.Body.Close()

	dir := path.Dir(op.LocalPath)
	if dir != "." && dir != "/" {
		if err := e.filesystem.MkdirAll(dir, 0o755); err != nil {
			return 0, errors.NewTargetError("fetch", op.LocalPath, err)
		}
	}

	tmp, err := e.filesystem.TempFile(dir, ".fixture-")
	if err != nil {
		return 0, errors.NewTargetError("fetch", op.LocalPath, err)
	}
	tmpName := tmp.Name()

	written, err := io.Copy(tmp, output.Body)
	if err != nil {
		tmp.Close()
		e.filesystem.Remove(tmpName) //nolint:errcheck // best-effort cleanup of the partial temp file
		return 0, errors.NewObjectError("fetch", bucket, op.RemoteKey, err).WithTarget(op.LocalPath)
	}

	if err := tmp.Close(); err != nil {
		e.filesystem.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return 0, errors.NewTargetError("fetch", op.LocalPath, err)
	}

	if err := e.filesystem.Rename(tmpName, op.LocalPath); err != nil {
		e.filesystem.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return 0, errors.NewTargetError("fetch", op.LocalPath, err)
	}

	return written, nil
}

// classifyError maps AWS SDK errors to sentinel errors.
func classifyError(err error, bucket, key string) error {
	msg := err.Error()
	switch {
	case strings.Contains(msg, "NoSuchKey") || strings.Contains(msg, "NotFound"):
		return errors.NewObjectError("fetch", bucket, key, errors.ErrObjectNotFound)
	case strings.Contains(msg, "NoSuchBucket"):
		return errors.NewObjectError("fetch", bucket, key, errors.ErrBucketNotFound)
	case strings.Contains(msg, "AccessDenied"):
		return errors.NewObjectError("fetch", bucket, key, errors.ErrAccessDenied)
	default:
		return errors.NewObjectError("fetch", bucket, key, err)
	}
}

// ValidateConcurrency checks if the concurrency settings are valid.
func (e *Executor) ValidateConcurrency() error {
	if e.maxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be positive, got %d", e.maxConcurrency)
	}
	if e.maxConcurrency > 100 {
		return fmt.Errorf("max concurrency too high: %d (recommended: <= 100)", e.maxConcurrency)
	}
	return nil
}
