// Package testutil provides mock S3 clients for testing fixture provisioning.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// MockS3Client is a configurable mock of the read-only S3 surface.
type MockS3Client struct {
	GetObjectFunc     func(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObjectFunc    func(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
	ListObjectsV2Func func(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// GetObject implements s3api.S3API.
func (m *MockS3Client) GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.GetObjectFunc != nil {
		return m.GetObjectFunc(ctx, params, optFns...)
	}
	return nil, errors.New("GetObject not mocked")
}

// HeadObject implements s3api.S3API.
func (m *MockS3Client) HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	if m.HeadObjectFunc != nil {
		return m.HeadObjectFunc(ctx, params, optFns...)
	}
	return nil, errors.New("HeadObject not mocked")
}

// ListObjectsV2 implements s3api.S3API.
func (m *MockS3Client) ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	if m.ListObjectsV2Func != nil {
		return m.ListObjectsV2Func(ctx, params, optFns...)
	}
	return nil, errors.New("ListObjectsV2 not mocked")
}

// FakeObject is one object held by a FakeBucket.
type FakeObject struct {
	Body         []byte
	ETag         string
	LastModified time.Time
}

// FakeBucket is an in-memory S3 bucket implementing the read-only API.
// It records whether each call carried the requester-pays flag and counts
// calls per operation.
type FakeBucket struct {
	mu      sync.Mutex
	objects map[string]FakeObject

	// GetCalls, HeadCalls, and ListCalls count API calls.
	GetCalls  int
	HeadCalls int
	ListCalls int

	// RequesterPaysSeen is true once any call carried the requester-pays
	// flag; MissingRequesterPays is true once any call did not.
	RequesterPaysSeen    bool
	MissingRequesterPays bool
}

// NewFakeBucket creates a fake bucket with the given objects.
func NewFakeBucket(objects map[string]FakeObject) *FakeBucket {
	if objects == nil {
		objects = map[string]FakeObject{}
	}
	return &FakeBucket{objects: objects}
}

// Put adds or replaces an object.
func (f *FakeBucket) Put(key string, body []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = FakeObject{Body: body, ETag: "etag-" + key, LastModified: time.Now()}
}

func (f *FakeBucket) notePayer(requesterPays bool) {
	if requesterPays {
		f.RequesterPaysSeen = true
	} else {
		f.MissingRequesterPays = true
	}
}

// GetObject implements s3api.S3API.
func (f *FakeBucket) GetObject(_ context.Context, params *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.GetCalls++
	f.notePayer(params.RequestPayer == types.RequestPayerRequester)

	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NoSuchKey{}
	}

	return &s3.GetObjectOutput{
		Body:          io.NopCloser(bytes.NewReader(obj.Body)),
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ETag:          aws.String(`"` + obj.ETag + `"`),
		LastModified:  aws.Time(obj.LastModified),
	}, nil
}

// HeadObject implements s3api.S3API.
func (f *FakeBucket) HeadObject(_ context.Context, params *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.HeadCalls++
	f.notePayer(params.RequestPayer == types.RequestPayerRequester)

	obj, ok := f.objects[aws.ToString(params.Key)]
	if !ok {
		return nil, &types.NotFound{}
	}

	return &s3.HeadObjectOutput{
		ContentLength: aws.Int64(int64(len(obj.Body))),
		ETag:          aws.String(`"` + obj.ETag + `"`),
		LastModified:  aws.Time(obj.LastModified),
	}, nil
}

// ListObjectsV2 implements s3api.S3API.
func (f *FakeBucket) ListObjectsV2(_ context.Context, params *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ListCalls++
	f.notePayer(params.RequestPayer == types.RequestPayerRequester)

	prefix := aws.ToString(params.Prefix)

	var keys []string
	for key := range f.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	contents := make([]types.Object, 0, len(keys))
	for _, key := range keys {
		obj := f.objects[key]
		contents = append(contents, types.Object{
			Key:          aws.String(key),
			Size:         aws.Int64(int64(len(obj.Body))),
			ETag:         aws.String(`"` + obj.ETag + `"`),
			LastModified: aws.Time(obj.LastModified),
		})
	}

	return &s3.ListObjectsV2Output{
		Contents:    contents,
		IsTruncated: aws.Bool(false),
		KeyCount:    aws.Int32(int32(len(contents))),
	}, nil
}
