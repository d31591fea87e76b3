package fixturefetch

import (
	"bytes"
	"context"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fetchtypes"
	"github.com/moseq-tools/fixturefetch/internal/validation"
)

// Download streams an object from S3 to the provided writer.
// The requester-pays flag from the client configuration is applied to the
// request.
func (c *Client) Download(
	ctx context.Context,
	bucket, key string,
	w io.Writer,
	opts ...fetchtypes.DownloadOption,
) (*fetchtypes.DownloadResult, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err)
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err)
	}
	if w == nil {
		return nil, errors.NewObjectError("download", bucket, key,
			errors.ErrInvalidInput).WithMessage("writer cannot be nil")
	}

	cfg := &fetchtypes.DownloadOptionConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	startTime := time.Now()

	input := &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if c.getClientConfig().RequesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}
	if cfg.RangeSpec != "" {
		input.Range = &cfg.RangeSpec
	}

	output, err := c.s3Client.GetObject(ctx, input)
	if err != nil {
		wrapped := errors.NewObjectError("download", bucket, key, err)
		if cfg.ProgressTracker != nil {
			cfg.ProgressTracker.Error(wrapped)
		}
		return nil, wrapped
	}
	defer output.Body.Close()

	var totalBytes int64
	if output.ContentLength != nil {
		totalBytes = *output.ContentLength
	}

	var reader io.Reader = output.Body
	if cfg.ProgressTracker != nil {
		reader = &progressReader{
			reader:     output.Body,
			tracker:    cfg.ProgressTracker,
			totalBytes: totalBytes,
		}
	}

	written, err := io.Copy(w, reader)
	if err != nil {
		wrapped := errors.NewObjectError("download", bucket, key, err)
		if cfg.ProgressTracker != nil {
			cfg.ProgressTracker.Error(wrapped)
		}
		return nil, wrapped
	}

	if cfg.ProgressTracker != nil {
		cfg.ProgressTracker.Complete()
	}

	result := &fetchtypes.DownloadResult{
		Key:      key,
		Size:     written,
		Duration: time.Since(startTime),
	}
	if output.ETag != nil {
		result.ETag = trimETag(*output.ETag)
	}

	return result, nil
}

// DownloadFile downloads an object to a local path through the client's
// filesystem. The object is written to a temporary file in the destination
// directory and renamed into place.
func (c *Client) DownloadFile(
	ctx context.Context,
	bucket, key, localPath string,
	opts ...fetchtypes.DownloadOption,
) (*fetchtypes.DownloadResult, error) {
	if err := validation.ValidateTargetPath(localPath); err != nil {
		return nil, errors.NewObjectError("download", bucket, key, err).WithTarget(localPath)
	}

	filesystem := c.getFilesystem()

	dir := path.Dir(localPath)
	if dir != "." && dir != "/" {
		if err := filesystem.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.NewTargetError("download", localPath, err)
		}
	}

	tmp, err := filesystem.TempFile(dir, ".fixture-")
	if err != nil {
		return nil, errors.NewTargetError("download", localPath, err)
	}
	tmpName := tmp.Name()

	result, err := c.Download(ctx, bucket, key, tmp, opts...)
	if err != nil {
		tmp.Close()
		filesystem.Remove(tmpName) //nolint:errcheck // best-effort cleanup of the partial temp file
		return nil, err
	}

	if err := tmp.Close(); err != nil {
		filesystem.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return nil, errors.NewTargetError("download", localPath, err)
	}

	if err := filesystem.Rename(tmpName, localPath); err != nil {
		filesystem.Remove(tmpName) //nolint:errcheck // best-effort cleanup
		return nil, errors.NewTargetError("download", localPath, err)
	}

	return result, nil
}

// GetObject retrieves an object and returns its contents as a byte slice.
// Intended for small objects; large fixtures should use Download or
// DownloadFile to stream.
func (c *Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := c.Download(ctx, bucket, key, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Head returns metadata for an object without downloading its contents.
func (c *Client) Head(ctx context.Context, bucket, key string) (*fetchtypes.RemoteFile, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, errors.NewObjectError("head", bucket, key, err)
	}
	if err := validation.ValidateObjectKey(key); err != nil {
		return nil, errors.NewObjectError("head", bucket, key, err)
	}

	input := &s3.HeadObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}
	if c.getClientConfig().RequesterPays {
		input.RequestPayer = types.RequestPayerRequester
	}

	output, err := c.s3Client.HeadObject(ctx, input)
	if err != nil {
		return nil, errors.NewObjectError("head", bucket, key, err)
	}

	remote := &fetchtypes.RemoteFile{Key: key}
	if output.ContentLength != nil {
		remote.Size = *output.ContentLength
	}
	if output.LastModified != nil {
		remote.LastModified = *output.LastModified
	}
	if output.ETag != nil {
		remote.ETag = trimETag(*output.ETag)
	}

	return remote, nil
}

// List returns the objects under a key prefix, following pagination.
func (c *Client) List(ctx context.Context, bucket, prefix string) ([]*fetchtypes.RemoteFile, error) {
	if err := validation.ValidateBucketName(bucket); err != nil {
		return nil, errors.NewError("list", err).WithBucket(bucket)
	}

	clientCfg := c.getClientConfig()

	var objects []*fetchtypes.RemoteFile
	var continuationToken *string

	for {
		input := &s3.ListObjectsV2Input{
			Bucket:            &bucket,
			Prefix:            &prefix,
			ContinuationToken: continuationToken,
		}
		if clientCfg.RequesterPays {
			input.RequestPayer = types.RequestPayerRequester
		}

		output, err := c.s3Client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, errors.NewError("list", err).WithBucket(bucket)
		}

		for _, obj := range output.Contents {
			if obj.Key == nil {
				continue
			}
			remote := &fetchtypes.RemoteFile{Key: *obj.Key}
			if obj.Size != nil {
				remote.Size = *obj.Size
			}
			if obj.LastModified != nil {
				remote.LastModified = *obj.LastModified
			}
			if obj.ETag != nil {
				remote.ETag = trimETag(*obj.ETag)
			}
			objects = append(objects, remote)
		}

		if output.IsTruncated == nil || !*output.IsTruncated {
			break
		}
		continuationToken = output.NextContinuationToken
	}

	return objects, nil
}

// trimETag removes the surrounding quotes S3 puts on entity tags.
func trimETag(etag string) string {
	if len(etag) >= 2 && etag[0] == '"' && etag[len(etag)-1] == '"' {
		return etag[1 : len(etag)-1]
	}
	return etag
}

// progressReader wraps a reader and reports progress to a tracker.
type progressReader struct {
	reader           io.Reader
	tracker          fetchtypes.ProgressTracker
	totalBytes       int64
	bytesTransferred int64
}

// Read implements io.Reader with progress tracking.
func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	if n > 0 {
		pr.bytesTransferred += int64(n)
		pr.tracker.Update(pr.bytesTransferred, pr.totalBytes)
	}
	return n, err
}
