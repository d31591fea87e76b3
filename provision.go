package fixturefetch

import (
	"context"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/internal/ctxlog"
	"github.com/moseq-tools/fixturefetch/internal/provision/comparator"
	"github.com/moseq-tools/fixturefetch/internal/provision/executor"
	"github.com/moseq-tools/fixturefetch/internal/provision/planner"
	"github.com/moseq-tools/fixturefetch/internal/provision/provision"
	"github.com/moseq-tools/fixturefetch/internal/provision/scanner"
	"github.com/moseq-tools/fixturefetch/internal/validation"
	"github.com/moseq-tools/fixturefetch/manifest"
)

// Provision materializes every target of a manifest on the local filesystem.
//
// By default an existing local file satisfies its target and is skipped
// without any remote call, matching the semantics of a file-existence build
// rule. WithRefresh re-checks existing files against the remote ETag, and
// WithComparator substitutes any staleness strategy.
//
// The run downloads missing fixtures with bounded concurrency. Per-fixture
// failures are collected on the result; the run keeps going so one bad object
// does not abandon the rest of the fixture tree.
func (c *Client) Provision(
	ctx context.Context,
	m *manifest.Manifest,
	opts ...fetchtypes.ProvisionOption,
) (*fetchtypes.Result, error) {
	if m == nil {
		return nil, errors.NewError("provision", errors.ErrInvalidInput).
			WithMessage("manifest cannot be nil")
	}
	if err := validation.ValidateBucketName(m.Bucket); err != nil {
		return nil, errors.NewError("provision", err).WithBucket(m.Bucket)
	}

	cfg := &fetchtypes.ProvisionOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	clientCfg := c.getClientConfig()
	filesystem := c.getFilesystem()

	parallelism := cfg.Parallelism
	if parallelism <= 0 {
		parallelism = clientCfg.Concurrency
	}

	comp := cfg.Comparator
	if comp == nil {
		if cfg.Refresh {
			comp = comparator.NewETagComparator(filesystem)
		} else {
			comp = comparator.NewPresenceComparator()
		}
	}

	// Presence checks never consult the remote object, so heading existing
	// single-file targets would be a wasted (and, requester-pays, billed)
	// request. Any other comparator needs the metadata.
	_, isPresence := comp.(*comparator.PresenceComparator)

	targets := resolveTargets(m, clientCfg.RequesterPays)

	sc := scanner.NewScanner(c.s3Client, filesystem)
	pl := planner.NewPlanner(comp)
	ex := executor.NewExecutor(c.s3Client, filesystem, parallelism)
	if cfg.ProgressTracker != nil {
		ex = ex.WithProgressTracker(cfg.ProgressTracker)
	}

	mgr := provision.NewManager(sc, pl, ex)

	logger := ctxlog.FromContext(ctx)
	logger.Info("provisioning fixtures",
		"bucket", m.Bucket, "targets", len(targets), "parallelism", parallelism, "dry_run", cfg.DryRun)

	result, err := mgr.Provision(ctx, &provision.Config{
		Bucket:          m.Bucket,
		Targets:         targets,
		IncludePatterns: cfg.IncludePatterns,
		ExcludePatterns: cfg.ExcludePatterns,
		HeadRemote:      !isPresence,
		DryRun:          cfg.DryRun,
	})
	if err != nil {
		return nil, errors.NewError("provision", err).WithBucket(m.Bucket)
	}

	logger.Info("provisioning complete",
		"fetched", result.FilesFetched, "skipped", result.FilesSkipped,
		"bytes", result.BytesFetched, "errors", len(result.Errors))

	return result, nil
}

// resolveTargets flattens manifest targets into fully resolved specs: prefix
// applied to keys, requester-pays resolved across client, manifest, and
// target levels.
func resolveTargets(m *manifest.Manifest, clientRequesterPays bool) []fetchtypes.TargetSpec {
	specs := make([]fetchtypes.TargetSpec, 0, len(m.Targets))
	for i := range m.Targets {
		t := &m.Targets[i]
		specs = append(specs, fetchtypes.TargetSpec{
			Path:          t.Path,
			Key:           m.EffectiveKey(t),
			Recursive:     t.Recursive,
			RequesterPays: m.EffectiveRequesterPays(t) || clientRequesterPays,
		})
	}
	return specs
}
