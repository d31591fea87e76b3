// Package pipeline models declarative job definitions: a named, ordered
// sequence of shell steps with a runtime label and environment, and a runner
// that executes them linearly.
//
// This intentionally stops far short of a CI orchestrator. There is no DAG,
// no retry, and no caching; a failed step aborts the remaining steps of its
// job, exactly as a build tool would abort a target's recipe.
package pipeline

import (
	"bytes"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Job is a named sequence of shell steps.
type Job struct {
	// Name identifies the job (e.g. "test", "lint").
	Name string `yaml:"name"`

	// Runtime labels the interpreter or toolchain version the job expects
	// (e.g. "python-3.10"). Informational; recorded in logs and results.
	Runtime string `yaml:"runtime,omitempty"`

	// WorkDir is the working directory for every step. Optional.
	WorkDir string `yaml:"workdir,omitempty"`

	// Env holds environment variables added to every step.
	Env map[string]string `yaml:"env,omitempty"`

	// Steps is the ordered list of shell commands.
	Steps []string `yaml:"steps"`
}

// Validate checks a job definition for structural errors.
func (j *Job) Validate() error {
	if j.Name == "" {
		return fmt.Errorf("pipeline: job name cannot be empty")
	}
	if len(j.Steps) == 0 {
		return fmt.Errorf("pipeline: job %q declares no steps", j.Name)
	}
	for i, step := range j.Steps {
		if step == "" {
			return fmt.Errorf("pipeline: job %q step %d is empty", j.Name, i)
		}
	}
	for k := range j.Env {
		if k == "" {
			return fmt.Errorf("pipeline: job %q has an empty env key", j.Name)
		}
	}
	return nil
}

// File is a standalone pipeline definition file.
type File struct {
	// Version is the schema version. Currently always 1.
	Version int `yaml:"version"`

	// Jobs is the list of job definitions.
	Jobs []Job `yaml:"jobs"`
}

// Parse decodes a pipeline file from YAML bytes with strict field checking.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("pipeline: decode: %w", err)
	}

	if f.Version != 1 {
		return nil, fmt.Errorf("pipeline: unsupported version %d", f.Version)
	}

	names := make(map[string]struct{}, len(f.Jobs))
	for i := range f.Jobs {
		if err := f.Jobs[i].Validate(); err != nil {
			return nil, err
		}
		if _, dup := names[f.Jobs[i].Name]; dup {
			return nil, fmt.Errorf("pipeline: duplicate job name %q", f.Jobs[i].Name)
		}
		names[f.Jobs[i].Name] = struct{}{}
	}

	return &f, nil
}

// Job returns the named job definition, if present.
func (f *File) Job(name string) (*Job, bool) {
	for i := range f.Jobs {
		if f.Jobs[i].Name == name {
			return &f.Jobs[i], true
		}
	}
	return nil, false
}
