package executor

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/internal/provision/planner"
	"github.com/moseq-tools/fixturefetch/internal/testutil"
)

func fetchOp(path, key string) *planner.Operation {
	return &planner.Operation{
		Type:          planner.OperationFetch,
		LocalPath:     path,
		RemoteKey:     key,
		RequesterPays: true,
	}
}

func TestExecuteFetches(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"raw/depth.avi":      {Body: []byte("video-bytes")},
		"config/config.yaml": {Body: []byte("key: value\n")},
	})
	fsys := fs.NewInMemoryFS()

	e := NewExecutor(bucket, fsys, 2)

	result, err := e.ExecuteFetches(context.Background(), &Config{Bucket: "test-bucket"}, []*planner.Operation{
		fetchOp("tests/data/depth.avi", "raw/depth.avi"),
		fetchOp("tests/data/config.yaml", "config/config.yaml"),
		{Type: planner.OperationSkip, LocalPath: "tests/data/existing.h5", RemoteKey: "existing.h5"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesFetched())
	assert.Equal(t, int64(len("video-bytes")+len("key: value\n")), result.BytesFetched())
	assert.Empty(t, result.Errors)

	data, err := fsys.ReadFile("tests/data/depth.avi")
	require.NoError(t, err)
	assert.Equal(t, []byte("video-bytes"), data)

	// Skip operations never touch the network.
	assert.Equal(t, 2, bucket.GetCalls)
	assert.True(t, bucket.RequesterPaysSeen)
	assert.False(t, bucket.MissingRequesterPays)
}

func TestExecuteFetches_NoTempFilesLeftBehind(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"raw/depth.avi": {Body: []byte("video")},
	})
	fsys := fs.NewInMemoryFS()

	e := NewExecutor(bucket, fsys, 1)

	_, err := e.ExecuteFetches(context.Background(), &Config{Bucket: "test-bucket"}, []*planner.Operation{
		fetchOp("data/depth.avi", "raw/depth.avi"),
	})
	require.NoError(t, err)

	infos, err := fsys.ReadDir("data")
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "depth.avi", infos[0].Name())
}

func TestExecuteFetches_MissingObject(t *testing.T) {
	bucket := testutil.NewFakeBucket(nil)
	fsys := fs.NewInMemoryFS()

	e := NewExecutor(bucket, fsys, 1)

	result, err := e.ExecuteFetches(context.Background(), &Config{Bucket: "test-bucket"}, []*planner.Operation{
		fetchOp("data/gone.avi", "raw/gone.avi"),
	})
	require.Error(t, err)
	assert.True(t, errors.IsObjectNotFound(err))

	require.Len(t, result.Errors, 1)
	assert.Equal(t, "data/gone.avi", result.Errors[0].LocalPath)
	assert.Equal(t, 0, result.FilesFetched())

	// The failed fetch must not leave a file at the final path.
	exists, statErr := fsys.Exists("data/gone.avi")
	require.NoError(t, statErr)
	assert.False(t, exists)
}

func TestExecuteFetches_PartialFailure(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"ok.bin": {Body: []byte("ok")},
	})
	fsys := fs.NewInMemoryFS()

	e := NewExecutor(bucket, fsys, 2)

	result, err := e.ExecuteFetches(context.Background(), &Config{Bucket: "test-bucket"}, []*planner.Operation{
		fetchOp("ok.bin", "ok.bin"),
		fetchOp("missing.bin", "missing.bin"),
	})
	require.Error(t, err)

	assert.Equal(t, 1, result.FilesFetched())
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "missing.bin", result.Errors[0].LocalPath)
}

func TestExecuteFetches_EmptyPlan(t *testing.T) {
	e := NewExecutor(testutil.NewFakeBucket(nil), fs.NewInMemoryFS(), 1)

	result, err := e.ExecuteFetches(context.Background(), &Config{Bucket: "test-bucket"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.FilesFetched())
}

func TestExecuteFetches_CancelledContext(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"a.bin": {Body: []byte("a")},
	})

	e := NewExecutor(bucket, fs.NewInMemoryFS(), 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// A cancelled run must surface as an error whether cancellation hits
	// during semaphore acquisition or before an operation starts.
	result, err := e.ExecuteFetches(ctx, &Config{Bucket: "test-bucket"}, []*planner.Operation{
		fetchOp("a.bin", "a.bin"),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, result.FilesFetched())
}

// planTracker records the last progress callback.
type planTracker struct {
	mu        sync.Mutex
	lastBytes int64
	lastTotal int64
}

func (p *planTracker) Update(bytesTransferred, totalBytes int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastBytes = bytesTransferred
	p.lastTotal = totalBytes
}

func (p *planTracker) Complete()   {}
func (p *planTracker) Error(error) {}

func TestExecuteFetches_ProgressReportsPlanTotal(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"a.bin": {Body: []byte("aaaa")},
		"b.bin": {Body: []byte("bbbbbb")},
	})

	tracker := &planTracker{}
	e := NewExecutor(bucket, fs.NewInMemoryFS(), 1).WithProgressTracker(tracker)

	_, err := e.ExecuteFetches(context.Background(),
		&Config{Bucket: "test-bucket", TotalBytes: 10},
		[]*planner.Operation{
			fetchOp("a.bin", "a.bin"),
			fetchOp("b.bin", "b.bin"),
		})
	require.NoError(t, err)

	assert.Equal(t, int64(10), tracker.lastBytes)
	assert.Equal(t, int64(10), tracker.lastTotal, "trackers need the plan total to compute a fraction")
}

func TestValidateConcurrency(t *testing.T) {
	assert.NoError(t, NewExecutor(nil, nil, 5).ValidateConcurrency())
	assert.Error(t, (&Executor{maxConcurrency: 0}).ValidateConcurrency())
	assert.Error(t, (&Executor{maxConcurrency: 500}).ValidateConcurrency())
}
