package provision

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/internal/provision/comparator"
	"github.com/moseq-tools/fixturefetch/internal/provision/executor"
	"github.com/moseq-tools/fixturefetch/internal/provision/planner"
	"github.com/moseq-tools/fixturefetch/internal/provision/scanner"
	"github.com/moseq-tools/fixturefetch/internal/testutil"
)

func newManager(bucket *testutil.FakeBucket, fsys fs.Filesystem, comp fetchtypes.FileComparator) *Manager {
	return NewManager(
		scanner.NewScanner(bucket, fsys),
		planner.NewPlanner(comp),
		executor.NewExecutor(bucket, fsys, 2),
	)
}

func TestProvision_FetchesMissingSkipsExisting(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"raw/depth.avi":      {Body: []byte("video")},
		"config/config.yaml": {Body: []byte("key: value\n")},
	})
	fsys := fs.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("tests/data/config.yaml", []byte("key: value\n"), 0o644))

	m := newManager(bucket, fsys, comparator.NewPresenceComparator())

	result, err := m.Provision(context.Background(), &Config{
		Bucket: "test-bucket",
		Targets: []fetchtypes.TargetSpec{
			{Path: "tests/data/depth.avi", Key: "raw/depth.avi", RequesterPays: true},
			{Path: "tests/data/config.yaml", Key: "config/config.yaml", RequesterPays: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesFetched)
	assert.Equal(t, 1, result.FilesSkipped)
	assert.Empty(t, result.Errors)

	data, err := fsys.ReadFile("tests/data/depth.avi")
	require.NoError(t, err)
	assert.Equal(t, []byte("video"), data)

	// The satisfied target triggered no remote call at all: no head for the
	// presence comparator, and no fetch.
	assert.Equal(t, 1, bucket.GetCalls)
	assert.Equal(t, 0, bucket.HeadCalls)
}

func TestProvision_RecursiveTarget(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"sessions/s1/depth.dat":    {Body: []byte("ddddd")},
		"sessions/s1/metadata.yml": {Body: []byte("m")},
	})
	fsys := fs.NewInMemoryFS()

	m := newManager(bucket, fsys, comparator.NewPresenceComparator())

	result, err := m.Provision(context.Background(), &Config{
		Bucket: "test-bucket",
		Targets: []fetchtypes.TargetSpec{
			{Path: "tests/data/session", Key: "sessions/s1", Recursive: true},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.FilesFetched)

	data, err := fsys.ReadFile("tests/data/session/depth.dat")
	require.NoError(t, err)
	assert.Equal(t, []byte("ddddd"), data)

	exists, err := fsys.Exists("tests/data/session/metadata.yml")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestProvision_EmptyPrefixIsFixtureError(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"other/file.txt": {Body: []byte("x")},
	})
	fsys := fs.NewInMemoryFS()

	m := newManager(bucket, fsys, comparator.NewPresenceComparator())

	result, err := m.Provision(context.Background(), &Config{
		Bucket: "test-bucket",
		Targets: []fetchtypes.TargetSpec{
			{Path: "tests/data/empty", Key: "nothing/here", Recursive: true},
			{Path: "tests/data/file.txt", Key: "other/file.txt"},
		},
	})
	require.NoError(t, err, "an empty prefix must not abort the run")

	assert.Equal(t, 1, result.FilesFetched)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "tests/data/empty", result.Errors[0].Path)
	assert.Contains(t, result.Errors[0].Message, "no objects")
}

func TestProvision_DryRun(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"raw/depth.avi": {Body: []byte("video")},
	})
	fsys := fs.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("existing.yaml", []byte("y"), 0o644))

	m := newManager(bucket, fsys, comparator.NewPresenceComparator())

	result, err := m.Provision(context.Background(), &Config{
		Bucket: "test-bucket",
		DryRun: true,
		Targets: []fetchtypes.TargetSpec{
			{Path: "depth.avi", Key: "raw/depth.avi"},
			{Path: "existing.yaml", Key: "config/existing.yaml"},
		},
	})
	require.NoError(t, err)

	require.Len(t, result.Operations, 2)
	assert.Equal(t, fetchtypes.OperationFetch, result.Operations[0].Type)
	assert.Equal(t, "depth.avi", result.Operations[0].LocalPath)
	assert.Equal(t, fetchtypes.OperationSkip, result.Operations[1].Type)

	// Dry run downloads nothing.
	assert.Equal(t, 0, bucket.GetCalls)
	exists, err := fsys.Exists("depth.avi")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProvision_PatternFilter(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"raw/a.tiff": {Body: []byte("t")},
		"raw/b.avi":  {Body: []byte("v")},
	})
	fsys := fs.NewInMemoryFS()

	m := newManager(bucket, fsys, comparator.NewPresenceComparator())

	result, err := m.Provision(context.Background(), &Config{
		Bucket:          "test-bucket",
		IncludePatterns: []string{"*.tiff"},
		Targets: []fetchtypes.TargetSpec{
			{Path: "data/a.tiff", Key: "raw/a.tiff"},
			{Path: "data/b.avi", Key: "raw/b.avi"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.FilesFetched)
	exists, err := fsys.Exists("data/b.avi")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProvision_PatternsMatchLocalPathsForRecursiveTargets(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"sessions/s1/depth.dat": {Body: []byte("d")},
		"sessions/s1/meta.yml":  {Body: []byte("m")},
		"raw/config.yaml":       {Body: []byte("c")},
	})
	fsys := fs.NewInMemoryFS()

	m := newManager(bucket, fsys, comparator.NewPresenceComparator())

	result, err := m.Provision(context.Background(), &Config{
		Bucket:          "test-bucket",
		IncludePatterns: []string{"tests/data/**"},
		Targets: []fetchtypes.TargetSpec{
			{Path: "tests/data/session", Key: "sessions/s1", Recursive: true},
			{Path: "tests/data/config.yaml", Key: "raw/config.yaml"},
			{Path: "elsewhere/config.yaml", Key: "raw/config.yaml"},
		},
	})
	require.NoError(t, err)

	// The same path-anchored pattern selects recursive expansions and
	// single-file targets alike.
	assert.Equal(t, 3, result.FilesFetched)
	assert.Empty(t, result.Errors)

	exists, err := fsys.Exists("tests/data/session/depth.dat")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = fsys.Exists("elsewhere/config.yaml")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestProvision_CancelledContext(t *testing.T) {
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"raw/depth.avi": {Body: []byte("video")},
	})
	fsys := fs.NewInMemoryFS()

	m := newManager(bucket, fsys, comparator.NewPresenceComparator())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := m.Provision(ctx, &Config{
		Bucket: "test-bucket",
		Targets: []fetchtypes.TargetSpec{
			{Path: "tests/data/depth.avi", Key: "raw/depth.avi"},
		},
	})
	require.Error(t, err, "a cancelled run must not report success")
	assert.ErrorIs(t, err, context.Canceled)

	exists, statErr := fsys.Exists("tests/data/depth.avi")
	require.NoError(t, statErr)
	assert.False(t, exists)
}

func TestProvision_HeadRemoteForStalenessComparator(t *testing.T) {
	content := []byte("fresh content")
	bucket := testutil.NewFakeBucket(map[string]testutil.FakeObject{
		"f.bin": {Body: content},
	})
	fsys := fs.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("f.bin", []byte("old"), 0o644))

	m := newManager(bucket, fsys, comparator.NewSizeComparator())

	result, err := m.Provision(context.Background(), &Config{
		Bucket:     "test-bucket",
		HeadRemote: true,
		Targets: []fetchtypes.TargetSpec{
			{Path: "f.bin", Key: "f.bin"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, bucket.HeadCalls)
	assert.Equal(t, 1, result.FilesFetched, "size mismatch re-fetches")

	data, err := fsys.ReadFile("f.bin")
	require.NoError(t, err)
	assert.Equal(t, content, data)
}
