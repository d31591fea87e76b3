// Package comparator provides staleness strategies for fixture targets.
//
// A comparator decides whether a local fixture must be re-fetched from its
// remote object. The default presence comparator reproduces build-target
// semantics: an existing file is never re-fetched.
package comparator

import (
	"crypto/md5" //nolint:gosec // MD5 is required to match S3 ETags, not used for security
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
)

// PresenceComparator re-fetches a target only when the local file is absent.
// This is the default and mirrors a build tool's file-existence check.
type PresenceComparator struct{}

// NewPresenceComparator creates a new presence comparator.
func NewPresenceComparator() *PresenceComparator {
	return &PresenceComparator{}
}

// IsStale implements fetchtypes.FileComparator.
func (c *PresenceComparator) IsStale(local *fetchtypes.LocalFile, _ *fetchtypes.RemoteFile) (bool, error) {
	return local == nil, nil
}

// SizeComparator re-fetches when the local file is absent or differs in size
// from the remote object. Fast, but misses same-size content changes.
type SizeComparator struct{}

// NewSizeComparator creates a new size comparator.
func NewSizeComparator() *SizeComparator {
	return &SizeComparator{}
}

// IsStale implements fetchtypes.FileComparator.
func (c *SizeComparator) IsStale(local *fetchtypes.LocalFile, remote *fetchtypes.RemoteFile) (bool, error) {
	if local == nil {
		return true, nil
	}
	if remote == nil {
		return false, nil
	}
	return local.Size != remote.Size, nil
}

// ETagComparator re-fetches when the local file's MD5 does not match the
// remote ETag. Multipart ETags (containing "-") cannot be recomputed locally;
// for those the comparator falls back to size comparison.
type ETagComparator struct {
	fs fs.Filesystem
}

// NewETagComparator creates a new ETag comparator reading local files through
// the given filesystem.
func NewETagComparator(fsys fs.Filesystem) *ETagComparator {
	return &ETagComparator{fs: fsys}
}

// IsStale implements fetchtypes.FileComparator.
func (c *ETagComparator) IsStale(local *fetchtypes.LocalFile, remote *fetchtypes.RemoteFile) (bool, error) {
	if local == nil {
		return true, nil
	}
	if remote == nil {
		return false, nil
	}

	if remote.ETag == "" || strings.Contains(remote.ETag, "-") {
		return local.Size != remote.Size, nil
	}

	localMD5, err := computeMD5(c.fs, local.Path)
	if err != nil {
		return false, fmt.Errorf("failed to compute local MD5: %w", err)
	}

	return localMD5 != remote.ETag, nil
}

// SmartComparator combines strategies: size first, then ETag when it is a
// plain MD5, then modification time with a tolerance.
type SmartComparator struct {
	fs fs.Filesystem

	// MaxTimeDiff is the tolerance for modification time comparison.
	MaxTimeDiff time.Duration
}

// NewSmartComparator creates a new smart comparator with a 2 second
// modification time tolerance.
func NewSmartComparator(fsys fs.Filesystem) *SmartComparator {
	return &SmartComparator{
		fs:          fsys,
		MaxTimeDiff: 2 * time.Second,
	}
}

// IsStale implements fetchtypes.FileComparator.
func (c *SmartComparator) IsStale(local *fetchtypes.LocalFile, remote *fetchtypes.RemoteFile) (bool, error) {
	if local == nil {
		return true, nil
	}
	if remote == nil {
		return false, nil
	}

	if local.Size != remote.Size {
		return true, nil
	}

	if remote.ETag != "" && !strings.Contains(remote.ETag, "-") {
		localMD5, err := computeMD5(c.fs, local.Path)
		if err != nil {
			// Fall back to time comparison when the file cannot be hashed.
			return c.isStaleByTime(local, remote), nil
		}
		return localMD5 != remote.ETag, nil
	}

	return c.isStaleByTime(local, remote), nil
}

// isStaleByTime treats a local file older than the remote object (beyond the
// tolerance) as stale.
func (c *SmartComparator) isStaleByTime(local *fetchtypes.LocalFile, remote *fetchtypes.RemoteFile) bool {
	diff := remote.LastModified.Sub(local.ModTime)
	return diff > c.MaxTimeDiff
}

// computeMD5 computes the MD5 hash of a local file through the filesystem
// abstraction.
func computeMD5(fsys fs.Filesystem, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open file for MD5 computation: %w", err)
	}
	defer file.Close()

	hash := md5.New() //nolint:gosec // matches S3 ETag algorithm
	if _, err := io.Copy(hash, file); err != nil {
		return "", fmt.Errorf("failed to compute MD5: %w", err)
	}

	return fmt.Sprintf("%x", hash.Sum(nil)), nil
}
