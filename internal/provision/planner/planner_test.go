package planner

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/internal/provision/comparator"
)

// failingComparator always returns an error.
type failingComparator struct{}

func (failingComparator) IsStale(*fetchtypes.LocalFile, *fetchtypes.RemoteFile) (bool, error) {
	return false, errors.New("comparison failed")
}

func entry(path, key string, local *fetchtypes.LocalFile, remote *fetchtypes.RemoteFile) *Entry {
	return &Entry{LocalPath: path, RemoteKey: key, Local: local, Remote: remote}
}

func TestPlan_PresenceSemantics(t *testing.T) {
	p := NewPlanner(comparator.NewPresenceComparator())
	now := time.Now()

	entries := []*Entry{
		entry("tests/data/depth.avi", "raw/depth.avi", nil,
			&fetchtypes.RemoteFile{Key: "raw/depth.avi", Size: 2048}),
		entry("tests/data/config.yaml", "config/config.yaml",
			&fetchtypes.LocalFile{Path: "tests/data/config.yaml", Size: 64, ModTime: now}, nil),
	}

	ops, err := p.Plan(entries)
	require.NoError(t, err)
	require.Len(t, ops, 2)

	// Fetches are ordered before skips.
	assert.Equal(t, OperationFetch, ops[0].Type)
	assert.Equal(t, "tests/data/depth.avi", ops[0].LocalPath)
	assert.Equal(t, "missing", ops[0].Reason)
	assert.Equal(t, int64(2048), ops[0].Size)

	assert.Equal(t, OperationSkip, ops[1].Type)
	assert.Equal(t, "up to date", ops[1].Reason)
	assert.Equal(t, int64(64), ops[1].Size)
}

func TestPlan_StaleReason(t *testing.T) {
	p := NewPlanner(comparator.NewSizeComparator())
	now := time.Now()

	ops, err := p.Plan([]*Entry{
		entry("f.bin", "f.bin",
			&fetchtypes.LocalFile{Path: "f.bin", Size: 10, ModTime: now},
			&fetchtypes.RemoteFile{Key: "f.bin", Size: 20}),
	})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, OperationFetch, ops[0].Type)
	assert.Equal(t, "stale", ops[0].Reason)
}

func TestPlan_OrdersBySizePriority(t *testing.T) {
	p := NewPlanner(comparator.NewPresenceComparator())

	ops, err := p.Plan([]*Entry{
		entry("large.avi", "large.avi", nil, &fetchtypes.RemoteFile{Key: "large.avi", Size: 500 * 1024 * 1024}),
		entry("small.yaml", "small.yaml", nil, &fetchtypes.RemoteFile{Key: "small.yaml", Size: 512}),
		entry("medium.h5", "medium.h5", nil, &fetchtypes.RemoteFile{Key: "medium.h5", Size: 50 * 1024 * 1024}),
	})
	require.NoError(t, err)
	require.Len(t, ops, 3)

	assert.Equal(t, "small.yaml", ops[0].LocalPath)
	assert.Equal(t, "medium.h5", ops[1].LocalPath)
	assert.Equal(t, "large.avi", ops[2].LocalPath)
}

func TestPlan_ComparatorError(t *testing.T) {
	p := NewPlanner(failingComparator{})

	_, err := p.Plan([]*Entry{entry("a", "a", nil, nil)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "comparison failed")
}

func TestPlan_RequesterPaysPropagates(t *testing.T) {
	p := NewPlanner(comparator.NewPresenceComparator())

	ops, err := p.Plan([]*Entry{
		{LocalPath: "a", RemoteKey: "a", RequesterPays: true},
	})
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.True(t, ops[0].RequesterPays)
}

func TestValidatePlan_Conflict(t *testing.T) {
	p := NewPlanner(comparator.NewPresenceComparator())

	err := p.validatePlan([]*Operation{
		{Type: OperationFetch, LocalPath: "same"},
		{Type: OperationSkip, LocalPath: "same"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "conflicting operations")
}

func TestGetStats(t *testing.T) {
	p := NewPlanner(comparator.NewPresenceComparator())

	stats := p.GetStats([]*Operation{
		{Type: OperationFetch, Size: 100},
		{Type: OperationFetch, Size: 200},
		{Type: OperationSkip, Size: 50},
	})

	assert.Equal(t, 2, stats.Fetches)
	assert.Equal(t, 1, stats.Skips)
	assert.Equal(t, int64(300), stats.BytesToFetch)
}
