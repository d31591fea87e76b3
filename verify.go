package fixturefetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/manifest"
)

// Verify checks every manifest target against its declared expectations
// without touching the network. Single-file targets are checked for
// existence, then size, SHA-256 digest, and media type when declared.
// Recursive targets are checked for directory existence only, since their
// object set lives remotely.
//
// Verification is read-only: it never downloads or modifies fixtures. Reports
// are returned in manifest order.
func (c *Client) Verify(ctx context.Context, m *manifest.Manifest) ([]fetchtypes.VerifyReport, error) {
	if m == nil {
		return nil, errors.NewError("verify", errors.ErrInvalidInput).
			WithMessage("manifest cannot be nil")
	}

	filesystem := c.getFilesystem()

	reports := make([]fetchtypes.VerifyReport, len(m.Targets))

	limit := c.getClientConfig().Concurrency
	if limit <= 0 {
		limit = 5
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i := range m.Targets {
		i := i
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			reports[i] = verifyTarget(filesystem, &m.Targets[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, errors.NewError("verify", err)
	}

	return reports, nil
}

// verifyTarget checks a single target and returns its report.
func verifyTarget(fsys fs.Filesystem, t *manifest.Target) fetchtypes.VerifyReport {
	report := fetchtypes.VerifyReport{Path: t.Path, Status: fetchtypes.VerifyOK}

	info, err := fsys.Stat(t.Path)
	if err != nil {
		if osErrNotExist(err) {
			report.Status = fetchtypes.VerifyMissing
			report.Detail = errors.ErrMissingFixture.Error()
			return report
		}
		report.Status = fetchtypes.VerifyMismatch
		report.Detail = fmt.Sprintf("stat failed: %v", err)
		return report
	}

	if t.Recursive {
		if !info.IsDir() {
			report.Status = fetchtypes.VerifyMismatch
			report.Detail = "expected a directory"
		}
		return report
	}

	if info.IsDir() {
		report.Status = fetchtypes.VerifyMismatch
		report.Detail = "expected a file, found a directory"
		return report
	}

	if t.Size > 0 && info.Size() != t.Size {
		report.Status = fetchtypes.VerifyMismatch
		report.Detail = fmt.Sprintf("%v: expected %d bytes, found %d",
			errors.ErrSizeMismatch, t.Size, info.Size())
		return report
	}

	if t.SHA256 != "" {
		digest, err := computeSHA256(fsys, t.Path)
		if err != nil {
			report.Status = fetchtypes.VerifyMismatch
			report.Detail = fmt.Sprintf("checksum failed: %v", err)
			return report
		}
		if !strings.EqualFold(digest, t.SHA256) {
			report.Status = fetchtypes.VerifyMismatch
			report.Detail = fmt.Sprintf("%v: expected %s, found %s",
				errors.ErrChecksumMismatch, strings.ToLower(t.SHA256), digest)
			return report
		}
	}

	if t.MediaType != "" {
		detected, err := detectMediaType(fsys, t.Path)
		if err != nil {
			report.Status = fetchtypes.VerifyMismatch
			report.Detail = fmt.Sprintf("media type detection failed: %v", err)
			return report
		}
		if !mediaTypeMatches(detected, t.MediaType) {
			report.Status = fetchtypes.VerifyMismatch
			report.Detail = fmt.Sprintf("%v: expected %s, detected %s",
				errors.ErrMediaTypeMismatch, t.MediaType, detected)
			return report
		}
	}

	return report
}

// computeSHA256 hashes a fixture file through the filesystem abstraction.
func computeSHA256(fsys fs.Filesystem, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	hash := sha256.New()
	if _, err := io.Copy(hash, file); err != nil {
		return "", err
	}

	return hex.EncodeToString(hash.Sum(nil)), nil
}

// detectMediaType sniffs a fixture's media type from its content.
func detectMediaType(fsys fs.Filesystem, path string) (string, error) {
	file, err := fsys.Open(path)
	if err != nil {
		return "", err
	}
	defer file.Close()

	mtype, err := mimetype.DetectReader(file)
	if err != nil {
		return "", err
	}

	return mtype.String(), nil
}

// mediaTypeMatches compares a detected media type against the declared one,
// ignoring parameters like charset.
func mediaTypeMatches(detected, declared string) bool {
	strip := func(s string) string {
		if i := strings.IndexByte(s, ';'); i >= 0 {
			s = s[:i]
		}
		return strings.ToLower(strings.TrimSpace(s))
	}
	return strip(detected) == strip(declared)
}

// osErrNotExist reports whether an error means the file does not exist,
// unwrapping the filesystem layer's wrapping.
func osErrNotExist(err error) bool {
	return stderrors.Is(err, os.ErrNotExist)
}

// SortReports orders verification reports: failures first, then by path.
// Useful for presenting results with problems on top.
func SortReports(reports []fetchtypes.VerifyReport) {
	rank := map[fetchtypes.VerifyStatus]int{
		fetchtypes.VerifyMissing:  0,
		fetchtypes.VerifyMismatch: 1,
		fetchtypes.VerifyOK:       2,
	}
	sort.SliceStable(reports, func(i, j int) bool {
		if rank[reports[i].Status] != rank[reports[j].Status] {
			return rank[reports[i].Status] < rank[reports[j].Status]
		}
		return reports[i].Path < reports[j].Path
	})
}
