// Package planner turns fixture inventories into an ordered operation plan.
//
// The planner consumes per-target inventory entries built by the scanner and
// emits fetch and skip operations, smaller downloads first.
package planner

import (
	"fmt"
	"sort"

	"github.com/moseq-tools/fixturefetch/fetchtypes"
)

// Planner creates operation plans for provisioning runs.
type Planner struct {
	comparator fetchtypes.FileComparator
}

// NewPlanner creates a new planner with the given comparator.
func NewPlanner(comp fetchtypes.FileComparator) *Planner {
	return &Planner{
		comparator: comp,
	}
}

// Entry is one row of the provisioning inventory: a local fixture path paired
// with its backing remote object. Local is nil when the file does not exist;
// Remote is nil when no remote metadata was gathered.
type Entry struct {
	// LocalPath is the local fixture path
	LocalPath string

	// RemoteKey is the S3 object key backing the fixture
	RemoteKey string

	// RequesterPays carries the resolved requester-pays setting for the
	// target this entry came from
	RequesterPays bool

	// Local is the local file info, nil when absent
	Local *fetchtypes.LocalFile

	// Remote is the remote object info, nil when not gathered
	Remote *fetchtypes.RemoteFile
}

// OperationType defines the type of provisioning operation.
type OperationType string

const (
	// OperationFetch indicates an object needs to be downloaded
	OperationFetch OperationType = "fetch"

	// OperationSkip indicates a fixture is satisfied and should be skipped
	OperationSkip OperationType = "skip"
)

// Operation represents a planned provisioning operation.
type Operation struct {
	// Type of operation (fetch or skip)
	Type OperationType

	// LocalPath is the local fixture path
	LocalPath string

	// RemoteKey is the S3 object key
	RemoteKey string

	// Size is the object size in bytes, 0 when unknown
	Size int64

	// Reason describes why this operation was planned
	Reason string

	// Priority for ordering operations (lower numbers run first)
	Priority int

	// RequesterPays carries the resolved requester-pays setting
	RequesterPays bool
}

// Plan creates an execution plan from inventory entries.
func (p *Planner) Plan(entries []*Entry) ([]*Operation, error) {
	var operations []*Operation

	for _, entry := range entries {
		stale, err := p.comparator.IsStale(entry.Local, entry.Remote)
		if err != nil {
			return nil, fmt.Errorf("failed to compare %s: %w", entry.LocalPath, err)
		}

		if !stale {
			operations = append(operations, &Operation{
				Type:          OperationSkip,
				LocalPath:     entry.LocalPath,
				RemoteKey:     entry.RemoteKey,
				Size:          localSize(entry),
				Reason:        "up to date",
				Priority:      100, // skips sort last
				RequesterPays: entry.RequesterPays,
			})
			continue
		}

		size := int64(0)
		if entry.Remote != nil {
			size = entry.Remote.Size
		}

		reason := "stale"
		if entry.Local == nil {
			reason = "missing"
		}

		operations = append(operations, &Operation{
			Type:          OperationFetch,
			LocalPath:     entry.LocalPath,
			RemoteKey:     entry.RemoteKey,
			Size:          size,
			Reason:        reason,
			Priority:      calculateFetchPriority(size),
			RequesterPays: entry.RequesterPays,
		})
	}

	if err := p.validatePlan(operations); err != nil {
		return nil, err
	}

	return optimizePlan(operations), nil
}

// localSize returns the local file size for a skip operation, falling back to
// the remote size.
func localSize(entry *Entry) int64 {
	if entry.Local != nil {
		return entry.Local.Size
	}
	if entry.Remote != nil {
		return entry.Remote.Size
	}
	return 0
}

// calculateFetchPriority assigns priority based on object size.
// Smaller objects get higher priority for faster feedback; unknown sizes sort
// with the small objects since single-file targets are usually small configs.
func calculateFetchPriority(size int64) int {
	switch {
	case size < 1024*1024: // < 1MB, or unknown
		return 1
	case size < 10*1024*1024: // < 10MB
		return 2
	case size < 100*1024*1024: // < 100MB
		return 3
	default: // >= 100MB
		return 4
	}
}

// optimizePlan sorts operations for execution: by priority, then fetches
// before skips, then by path for determinism.
func optimizePlan(operations []*Operation) []*Operation {
	typeOrder := map[OperationType]int{
		OperationFetch: 1,
		OperationSkip:  2,
	}

	sort.Slice(operations, func(i, j int) bool {
		if operations[i].Priority != operations[j].Priority {
			return operations[i].Priority < operations[j].Priority
		}
		if typeOrder[operations[i].Type] != typeOrder[operations[j].Type] {
			return typeOrder[operations[i].Type] < typeOrder[operations[j].Type]
		}
		return operations[i].LocalPath < operations[j].LocalPath
	})

	return operations
}

// validatePlan checks that the plan contains no conflicting operations on the
// same local path.
func (p *Planner) validatePlan(operations []*Operation) error {
	seen := make(map[string]OperationType, len(operations))

	for _, op := range operations {
		if prev, ok := seen[op.LocalPath]; ok && prev != op.Type {
			return fmt.Errorf("conflicting operations on path %s: both %s and %s planned",
				op.LocalPath, prev, op.Type)
		}
		seen[op.LocalPath] = op.Type
	}

	return nil
}

// Stats contains statistics about planned operations.
type Stats struct {
	// Number of objects to fetch
	Fetches int

	// Number of fixtures to skip
	Skips int

	// Total bytes to fetch (known sizes only)
	BytesToFetch int64
}

// GetStats returns statistics about the planned operations.
func (p *Planner) GetStats(operations []*Operation) Stats {
	stats := Stats{}

	for _, op := range operations {
		switch op.Type {
		case OperationFetch:
			stats.Fetches++
			stats.BytesToFetch += op.Size
		case OperationSkip:
			stats.Skips++
		}
	}

	return stats
}
