// Package manifest defines the declarative fixture manifest: the set of local
// files a test suite needs and the remote objects that satisfy them.
//
// A manifest is the YAML equivalent of a list of build targets. Each target
// maps one local path to one object key (or, for recursive targets, one key
// prefix) in a single bucket. Targets carry optional integrity expectations
// (size, SHA-256, media type) used by verification.
package manifest

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/fs"
	"github.com/moseq-tools/fixturefetch/pipeline"
)

// Manifest declares the fixture set for one repository.
type Manifest struct {
	// Version is the manifest schema version. Currently always 1.
	Version int `yaml:"version"`

	// Bucket is the S3 bucket holding the fixture objects.
	Bucket string `yaml:"bucket"`

	// Region is the AWS region of the bucket. Optional; the client's region
	// is used when empty.
	Region string `yaml:"region,omitempty"`

	// Prefix is prepended to every target key. Optional.
	Prefix string `yaml:"prefix,omitempty"`

	// RequesterPays marks the bucket as requester-pays. Downloads from such
	// buckets must carry the request payer flag or are denied.
	RequesterPays bool `yaml:"requester_pays,omitempty"`

	// Targets is the list of fixture targets.
	Targets []Target `yaml:"targets"`

	// Jobs optionally declares runnable job definitions alongside the
	// fixtures they consume.
	Jobs []pipeline.Job `yaml:"jobs,omitempty"`
}

// Target maps one local fixture path to one remote object or prefix.
type Target struct {
	// Path is the local file path, relative to the fixture root. For
	// recursive targets it names a directory.
	Path string `yaml:"path"`

	// Key is the object key within the bucket, relative to the manifest
	// prefix. For recursive targets it is treated as a key prefix.
	Key string `yaml:"key"`

	// Recursive marks the target as a directory-style prefix copy.
	Recursive bool `yaml:"recursive,omitempty"`

	// SHA256 is the expected hex digest of the file. Optional, single-file
	// targets only.
	SHA256 string `yaml:"sha256,omitempty"`

	// Size is the expected file size in bytes. Optional, single-file
	// targets only. Zero means unspecified.
	Size int64 `yaml:"size,omitempty"`

	// MediaType is the expected media type of the file (e.g. "image/tiff").
	// Optional, single-file targets only.
	MediaType string `yaml:"media_type,omitempty"`

	// RequesterPays overrides the manifest-level requester-pays setting for
	// this target when non-nil.
	RequesterPays *bool `yaml:"requester_pays,omitempty"`
}

// EffectiveKey returns the target's full object key with the manifest prefix
// applied.
func (m *Manifest) EffectiveKey(t *Target) string {
	if m.Prefix == "" {
		return t.Key
	}
	return strings.TrimSuffix(m.Prefix, "/") + "/" + strings.TrimPrefix(t.Key, "/")
}

// EffectiveRequesterPays resolves the requester-pays setting for a target.
func (m *Manifest) EffectiveRequesterPays(t *Target) bool {
	if t.RequesterPays != nil {
		return *t.RequesterPays
	}
	return m.RequesterPays
}

// Job returns the named job definition, if declared.
func (m *Manifest) Job(name string) (*pipeline.Job, bool) {
	for i := range m.Jobs {
		if m.Jobs[i].Name == name {
			return &m.Jobs[i], true
		}
	}
	return nil, false
}

// Parse decodes a manifest from YAML bytes. Unknown fields are rejected so
// typos in manifests fail loudly instead of silently dropping targets.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, errors.NewError("parse", fmt.Errorf("%w: %w", errors.ErrInvalidManifest, err))
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// Load reads and decodes a manifest from the given filesystem.
func Load(fsys fs.Filesystem, path string) (*Manifest, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, errors.NewError("load", fmt.Errorf("read manifest: %w", err))
	}
	return Parse(data)
}
