// Package fs defines the filesystem abstraction used for all local file
// operations. Implementations back the interface with the OS filesystem or an
// in-memory filesystem for tests.
package fs

import (
	"io/fs"
	"os"
	"path/filepath"
)

// File represents an open file handle supporting basic I/O operations.
// Implementations should behave consistently with the standard library.
type File interface {
	Close() error
	Name() string
	Read(p []byte) (n int, err error)
	ReadAt(p []byte, off int64) (n int, err error)
	Seek(offset int64, whence int) (int64, error)
	Stat() (fs.FileInfo, error)
	Write(p []byte) (n int, err error)
}

// Filesystem is the set of filesystem operations the provisioning engine
// depends on. Paths are interpreted relative to the implementation's root.
type Filesystem interface {
	// Create creates or truncates the named file for writing.
	Create(name string) (File, error)

	// Exists reports whether the named file or directory exists.
	Exists(path string) (bool, error)

	// MkdirAll creates the named directory and any missing parents.
	MkdirAll(path string, perm os.FileMode) error

	// Open opens the named file for reading.
	Open(name string) (File, error)

	// OpenFile opens the named file with the given flag and permissions.
	OpenFile(name string, flag int, perm os.FileMode) (File, error)

	// ReadDir reads the named directory and returns its entries.
	ReadDir(dirname string) ([]os.FileInfo, error)

	// ReadFile reads the named file and returns its contents.
	ReadFile(path string) ([]byte, error)

	// Remove removes the named file or empty directory.
	Remove(name string) error

	// Rename atomically renames oldpath to newpath.
	Rename(oldpath, newpath string) error

	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)

	// TempFile creates a new temporary file in the given directory.
	TempFile(dir, prefix string) (File, error)

	// Walk walks the file tree rooted at root, calling walkFn for each file
	// or directory, including root.
	Walk(root string, walkFn filepath.WalkFunc) error

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(filename string, data []byte, perm os.FileMode) error
}
