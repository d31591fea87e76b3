package manifest

import (
	"fmt"
	"strings"

	"github.com/moseq-tools/fixturefetch/errors"
	"github.com/moseq-tools/fixturefetch/internal/validation"
)

// Validate checks the manifest for structural and semantic errors.
// It is called by Parse; callers constructing manifests programmatically
// should call it themselves before provisioning.
func (m *Manifest) Validate() error {
	if m.Version != 1 {
		return errors.NewError("validate", errors.ErrInvalidManifest).
			WithMessage(fmt.Sprintf("unsupported manifest version %d", m.Version))
	}

	if err := validation.ValidateBucketName(m.Bucket); err != nil {
		return err
	}

	if m.Prefix != "" {
		if err := validation.ValidateObjectKey(strings.TrimSuffix(m.Prefix, "/")); err != nil {
			return err
		}
	}

	if len(m.Targets) == 0 {
		return errors.NewError("validate", errors.ErrInvalidManifest).
			WithMessage("manifest declares no targets")
	}

	seen := make(map[string]struct{}, len(m.Targets))
	for i := range m.Targets {
		t := &m.Targets[i]
		if err := m.validateTarget(t); err != nil {
			return err
		}

		if _, dup := seen[t.Path]; dup {
			return errors.NewError("validate", errors.ErrInvalidManifest).
				WithTarget(t.Path).
				WithMessage("duplicate target path")
		}
		seen[t.Path] = struct{}{}
	}

	jobNames := make(map[string]struct{}, len(m.Jobs))
	for i := range m.Jobs {
		j := &m.Jobs[i]
		if err := j.Validate(); err != nil {
			return errors.NewError("validate", err)
		}
		if _, dup := jobNames[j.Name]; dup {
			return errors.NewError("validate", errors.ErrInvalidManifest).
				WithMessage(fmt.Sprintf("duplicate job name %q", j.Name))
		}
		jobNames[j.Name] = struct{}{}
	}

	return nil
}

func (m *Manifest) validateTarget(t *Target) error {
	if err := validation.ValidateTargetPath(t.Path); err != nil {
		return err
	}

	if err := validation.ValidateObjectKey(t.Key); err != nil {
		return errors.NewTargetError("validate", t.Path, err)
	}

	if t.Recursive {
		// Integrity expectations apply to single files only; a prefix has no
		// single digest or size.
		if t.SHA256 != "" || t.Size != 0 || t.MediaType != "" {
			return errors.NewTargetError("validate", t.Path, errors.ErrInvalidManifest).
				WithMessage("recursive targets cannot declare sha256, size, or media_type")
		}
	}

	if err := validation.ValidateChecksum(t.SHA256); err != nil {
		return errors.NewTargetError("validate", t.Path, err)
	}

	if t.Size < 0 {
		return errors.NewTargetError("validate", t.Path, errors.ErrInvalidManifest).
			WithMessage("size cannot be negative")
	}

	if err := validation.ValidateMediaType(t.MediaType); err != nil {
		return errors.NewTargetError("validate", t.Path, err)
	}

	return nil
}
