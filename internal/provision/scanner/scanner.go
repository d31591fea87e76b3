// Package scanner handles inventory building for fixture provisioning: local
// stats through the filesystem abstraction and remote object listings.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/internal/s3api"
)

// Scanner builds local and remote inventories.
type Scanner struct {
	s3Client       s3api.S3API
	filesystem     fs.Filesystem
	patternMatcher *PatternMatcher
}

// NewScanner creates a new scanner with the provided S3 client and filesystem.
func NewScanner(s3Client s3api.S3API, filesystem fs.Filesystem) *Scanner {
	return &Scanner{
		s3Client:       s3Client,
		filesystem:     filesystem,
		patternMatcher: NewPatternMatcher(),
	}
}

// StatLocal returns the local file info for a fixture path, or nil when the
// file does not exist.
func (s *Scanner) StatLocal(path string) (*fetchtypes.LocalFile, error) {
	info, err := s.filesystem.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if info.IsDir() {
		return nil, fmt.Errorf("target path %s is a directory", path)
	}

	return &fetchtypes.LocalFile{
		Path:    path,
		Size:    info.Size(),
		ModTime: info.ModTime(),
	}, nil
}

// ScanRemote lists the objects under a bucket prefix with pagination.
// Keys that name directory placeholders (trailing "/") are skipped.
func (s *Scanner) ScanRemote(
	ctx context.Context,
	bucket string,
	prefix string,
	requesterPays bool,
) ([]*fetchtypes.RemoteFile, error) {
	var objects []*fetchtypes.RemoteFile
	var continuationToken *string

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("context cancelled during listing: %w", ctx.Err())
		default:
		}

		input := &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            &prefix,
			ContinuationToken: continuationToken,
			MaxKeys:           aws.Int32(1000), // AWS default and maximum
		}
		if requesterPays {
			input.RequestPayer = types.RequestPayerRequester
		}

		result, err := s.s3Client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, fmt.Errorf("failed to list objects in bucket %s: %w", bucket, err)
		}

		for _, obj := range result.Contents {
			if obj.Key == nil || strings.HasSuffix(*obj.Key, "/") {
				continue
			}
			if !strings.HasPrefix(*obj.Key, prefix) {
				continue
			}

			remoteFile := &fetchtypes.RemoteFile{
				Key: *obj.Key,
			}
			if obj.Size != nil {
				remoteFile.Size = *obj.Size
			}
			if obj.LastModified != nil {
				remoteFile.LastModified = *obj.LastModified
			}
			if obj.ETag != nil {
				remoteFile.ETag = strings.Trim(*obj.ETag, `"`)
			}

			objects = append(objects, remoteFile)
		}

		if result.IsTruncated == nil || !*result.IsTruncated {
			break
		}
		continuationToken = result.NextContinuationToken
	}

	return objects, nil
}

// HeadRemote returns metadata for one remote object.
func (s *Scanner) HeadRemote(
	ctx context.Context,
	bucket, key string,
	requesterPays bool,
) (*fetchtypes.RemoteFile, error) {
	input := &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if requesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	result, err := s.s3Client.HeadObject(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to head object %s/%s: %w", bucket, key, err)
	}

	remoteFile := &fetchtypes.RemoteFile{Key: key}
	if result.ContentLength != nil {
		remoteFile.Size = *result.ContentLength
	}
	if result.LastModified != nil {
		remoteFile.LastModified = *result.LastModified
	}
	if result.ETag != nil {
		remoteFile.ETag = strings.Trim(*result.ETag, `"`)
	}

	return remoteFile, nil
}

// Patterns returns the scanner's pattern matcher.
func (s *Scanner) Patterns() *PatternMatcher {
	return s.patternMatcher
}
