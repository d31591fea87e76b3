package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShouldIncludeFile(t *testing.T) {
	pm := NewPatternMatcher()

	tests := []struct {
		name    string
		path    string
		include []string
		exclude []string
		want    bool
	}{
		{name: "no patterns includes everything", path: "a/b.txt", want: true},
		{name: "bare extension matches any directory", path: "deep/dir/frame.tiff", include: []string{"*.tiff"}, want: true},
		{name: "include misses", path: "frame.h5", include: []string{"*.tiff"}, want: false},
		{name: "exclude wins over include", path: "frame.tiff", include: []string{"*.tiff"}, exclude: []string{"frame.*"}, want: false},
		{name: "directory pattern", path: "sessions/s1/depth.dat", include: []string{"sessions/"}, want: true},
		{name: "directory pattern misses sibling", path: "frames/f.tiff", include: []string{"sessions/"}, want: false},
		{name: "double star prefix", path: "a/b/c/result.h5", include: []string{"a/**.h5"}, want: true},
		{name: "double star wrong suffix", path: "a/b/c/result.avi", include: []string{"a/**.h5"}, want: false},
		{name: "path glob with slash", path: "data/raw.avi", include: []string{"data/*.avi"}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pm.ShouldIncludeFile(tt.path, tt.include, tt.exclude)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestValidatePatterns(t *testing.T) {
	pm := NewPatternMatcher()

	assert.Empty(t, pm.ValidatePatterns([]string{"*.tiff", "sessions/", "a/**.h5"}))

	errs := pm.ValidatePatterns([]string{"a/**/b/**", "[unclosed"})
	assert.Len(t, errs, 2)
	assert.Contains(t, errs[0].Error(), "multiple **")
}
