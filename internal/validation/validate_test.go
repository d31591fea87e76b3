package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/moseq-tools/fixturefetch/errors"
)

func TestValidateBucketName(t *testing.T) {
	tests := []struct {
		name    string
		bucket  string
		wantErr bool
	}{
		{name: "valid simple", bucket: "moseq2-testdata"},
		{name: "valid with dots", bucket: "my.bucket.name"},
		{name: "valid numbers", bucket: "bucket123"},
		{name: "empty", bucket: "", wantErr: true},
		{name: "too short", bucket: "ab", wantErr: true},
		{name: "too long", bucket: strings.Repeat("a", 64), wantErr: true},
		{name: "uppercase", bucket: "MyBucket", wantErr: true},
		{name: "underscore", bucket: "my_bucket", wantErr: true},
		{name: "leading hyphen", bucket: "-bucket", wantErr: true},
		{name: "trailing dot", bucket: "bucket.", wantErr: true},
		{name: "adjacent dots", bucket: "my..bucket", wantErr: true},
		{name: "ip address", bucket: "192.168.1.1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBucketName(tt.bucket)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidBucketName)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateObjectKey(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr bool
	}{
		{name: "valid nested", key: "behavior/raw/depth.avi"},
		{name: "valid single", key: "config.yaml"},
		{name: "empty", key: "", wantErr: true},
		{name: "traversal", key: "a/../../b", wantErr: true},
		{name: "leading slash", key: "/absolute", wantErr: true},
		{name: "too long", key: strings.Repeat("k", 1025), wantErr: true},
		{name: "control character", key: "bad\x00key", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateObjectKey(tt.key)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidObjectKey)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTargetPath(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{name: "valid relative", path: "tests/data/depth.avi"},
		{name: "valid with dot", path: "./tests/data/depth.avi"},
		{name: "empty", path: "", wantErr: true},
		{name: "absolute", path: "/etc/passwd", wantErr: true},
		{name: "escapes root", path: "../outside", wantErr: true},
		{name: "escapes after clean", path: "a/../../outside", wantErr: true},
		{name: "control character", path: "bad\npath", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTargetPath(tt.path)
			if tt.wantErr {
				assert.ErrorIs(t, err, errors.ErrInvalidTargetPath)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateChecksum(t *testing.T) {
	assert.NoError(t, ValidateChecksum(""))
	assert.NoError(t, ValidateChecksum(strings.Repeat("ab", 32)))
	assert.NoError(t, ValidateChecksum(strings.Repeat("AB", 32)))
	assert.Error(t, ValidateChecksum("nothex"))
	assert.Error(t, ValidateChecksum(strings.Repeat("a", 63)))
	assert.Error(t, ValidateChecksum(strings.Repeat("g", 64)))
}

func TestValidateMediaType(t *testing.T) {
	assert.NoError(t, ValidateMediaType(""))
	assert.NoError(t, ValidateMediaType("image/tiff"))
	assert.NoError(t, ValidateMediaType("application/x-hdf5"))
	assert.NoError(t, ValidateMediaType("text/plain; charset=utf-8"))
	assert.Error(t, ValidateMediaType("notamime"))
	assert.Error(t, ValidateMediaType("bad//type"))
}
