// Package provision provides the main provisioning orchestration logic.
//
// The manager coordinates the three phases of a provisioning run:
//  1. Inventory building: stat local fixtures, list remote prefixes
//  2. Planning: decide fetch vs skip per fixture
//  3. Execution: download with concurrency control
package provision

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/internal/provision/executor"
	"github.com/moseq-tools/fixturefetch/internal/provision/planner"
	"github.com/moseq-tools/fixturefetch/internal/provision/scanner"
)

// Manager coordinates the provisioning phases.
type Manager struct {
	scanner  *scanner.Scanner
	planner  *planner.Planner
	executor *executor.Executor
}

// NewManager creates a new provisioning manager with the provided components.
func NewManager(sc *scanner.Scanner, pl *planner.Planner, ex *executor.Executor) *Manager {
	return &Manager{
		scanner:  sc,
		planner:  pl,
		executor: ex,
	}
}

// Config holds configuration for a provisioning run.
type Config struct {
	// Bucket is the S3 bucket holding the fixture objects
	Bucket string

	// Targets is the resolved target list
	Targets []fetchtypes.TargetSpec

	// IncludePatterns and ExcludePatterns filter fixtures by relative path
	IncludePatterns []string
	ExcludePatterns []string

	// HeadRemote gathers remote metadata for existing single-file fixtures
	// so comparators beyond presence have something to compare against
	HeadRemote bool

	// DryRun plans without executing
	DryRun bool
}

// Provision executes a complete provisioning run.
func (m *Manager) Provision(ctx context.Context, config *Config) (*fetchtypes.Result, error) {
	startTime := time.Now()

	entries, targetErrors, err := m.buildInventory(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to build inventory: %w", err)
	}

	operations, err := m.planner.Plan(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to plan operations: %w", err)
	}

	if config.DryRun {
		return &fetchtypes.Result{
			Operations: convertOperations(operations),
			Errors:     targetErrors,
			Duration:   time.Since(startTime),
		}, nil
	}

	result, err := m.executeOperations(ctx, config, operations)
	if err != nil {
		return nil, fmt.Errorf("failed to execute operations: %w", err)
	}

	result.Errors = append(targetErrors, result.Errors...)
	result.Duration = time.Since(startTime)
	return result, nil
}

// buildInventory performs phase 1. Single-file targets are stated locally;
// recursive targets are expanded by listing the remote prefix. Per-target
// failures that should not abort the run (an empty prefix) are returned as
// fixture errors.
func (m *Manager) buildInventory(
	ctx context.Context,
	config *Config,
) ([]*planner.Entry, []fetchtypes.FixtureError, error) {
	var entries []*planner.Entry
	var targetErrors []fetchtypes.FixtureError

	patterns := m.scanner.Patterns()

	for i := range config.Targets {
		spec := &config.Targets[i]

		if spec.Recursive {
			expanded, ferr, err := m.expandRecursive(ctx, config, spec)
			if err != nil {
				return nil, nil, err
			}
			if ferr != nil {
				targetErrors = append(targetErrors, *ferr)
				continue
			}
			entries = append(entries, expanded...)
			continue
		}

		if !patterns.ShouldIncludeFile(spec.Path, config.IncludePatterns, config.ExcludePatterns) {
			continue
		}

		entry, err := m.inventorySingle(ctx, config, spec)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
	}

	return entries, targetErrors, nil
}

// inventorySingle builds the inventory entry for a single-file target.
func (m *Manager) inventorySingle(
	ctx context.Context,
	config *Config,
	spec *fetchtypes.TargetSpec,
) (*planner.Entry, error) {
	local, err := m.scanner.StatLocal(spec.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat target %s: %w", spec.Path, err)
	}

	entry := &planner.Entry{
		LocalPath:     spec.Path,
		RemoteKey:     spec.Key,
		RequesterPays: spec.RequesterPays,
		Local:         local,
	}

	// A missing file is fetched regardless of comparator, and a presence
	// check needs no remote metadata; only head when both are useful.
	if config.HeadRemote && local != nil {
		remote, err := m.scanner.HeadRemote(ctx, config.Bucket, spec.Key, spec.RequesterPays)
		if err != nil {
			return nil, fmt.Errorf("failed to head %s: %w", spec.Key, err)
		}
		entry.Remote = remote
	}

	return entry, nil
}

// expandRecursive lists a prefix target and builds one entry per remote
// object. A prefix matching no objects yields a fixture error, not a run
// failure, so the remaining targets still provision. Include and exclude
// patterns apply to the resolved local fixture path, exactly as they do for
// single-file targets.
func (m *Manager) expandRecursive(
	ctx context.Context,
	config *Config,
	spec *fetchtypes.TargetSpec,
) ([]*planner.Entry, *fetchtypes.FixtureError, error) {
	prefix := strings.TrimSuffix(spec.Key, "/") + "/"

	objects, err := m.scanner.ScanRemote(ctx, config.Bucket, prefix, spec.RequesterPays)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list prefix %s: %w", prefix, err)
	}

	if len(objects) == 0 {
		return nil, &fetchtypes.FixtureError{
			Path:    spec.Path,
			Key:     spec.Key,
			Message: errors.ErrEmptyPrefix.Error(),
		}, nil
	}

	patterns := m.scanner.Patterns()

	entries := make([]*planner.Entry, 0, len(objects))
	for _, obj := range objects {
		rel := strings.TrimPrefix(obj.Key, prefix)
		localPath := path.Join(spec.Path, rel)

		if !patterns.ShouldIncludeFile(localPath, config.IncludePatterns, config.ExcludePatterns) {
			continue
		}

		local, err := m.scanner.StatLocal(localPath)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to stat %s: %w", localPath, err)
		}

		entries = append(entries, &planner.Entry{
			LocalPath:     localPath,
			RemoteKey:     obj.Key,
			RequesterPays: spec.RequesterPays,
			Local:         local,
			Remote:        obj,
		})
	}

	return entries, nil, nil
}

// executeOperations performs phase 3 with concurrency control.
func (m *Manager) executeOperations(
	ctx context.Context,
	config *Config,
	operations []*planner.Operation,
) (*fetchtypes.Result, error) {
	result := &fetchtypes.Result{}

	for _, op := range operations {
		if op.Type == planner.OperationSkip {
			result.FilesSkipped++
		}
	}

	stats := m.planner.GetStats(operations)

	fetchResult, err := m.executor.ExecuteFetches(ctx, &executor.Config{
		Bucket:     config.Bucket,
		TotalBytes: stats.BytesToFetch,
	}, operations)
	if fetchResult != nil {
		result.FilesFetched = fetchResult.FilesFetched()
		result.BytesFetched = fetchResult.BytesFetched()
		for _, fe := range fetchResult.Errors {
			result.Errors = append(result.Errors, fetchtypes.FixtureError{
				Path:    fe.LocalPath,
				Key:     fe.RemoteKey,
				Message: fe.Err.Error(),
			})
		}
	}

	// Per-object failures surface as fixture errors on the result so one bad
	// object does not abandon the rest of the fixture tree. A cancelled
	// context is a run failure, not a fixture failure.
	if err != nil && ctx.Err() != nil {
		return nil, err
	}

	return result, nil
}

// convertOperations converts planner operations to the public dry-run form.
func convertOperations(plannerOps []*planner.Operation) []fetchtypes.Operation {
	ops := make([]fetchtypes.Operation, len(plannerOps))
	for i, op := range plannerOps {
		ops[i] = fetchtypes.Operation{
			Type:      fetchtypes.OperationType(op.Type),
			LocalPath: op.LocalPath,
			RemoteKey: op.RemoteKey,
			Size:      op.Size,
			Reason:    op.Reason,
		}
	}
	return ops
}
