package port

import (
	"io"
	"time"
)

// WritableFile is a destination file opened for exclusive write
type WritableFile interface {
	io.Writer
	io.Seeker

	// Truncate changes the size of the file
	Truncate(size int64) error

	// Sync flushes written bytes to stable storage
	Sync() error

	// Close releases the file and its lock
	Close() error

	// Name returns the path the file was opened with
	Name() string
}

// FileSystem defines the filesystem primitives the fetch engine needs
type FileSystem interface {
	// OpenExclusive opens path for exclusive write. With truncate the file is
	// created or emptied; otherwise writes append to existing content.
	// Returns domain.ErrDestinationLocked when another writer holds the file.
	OpenExclusive(path string, truncate bool) (WritableFile, error)

	// Open opens path for reading
	Open(path string) (io.ReadCloser, error)

	// Size returns the size of path, or an error wrapping os.ErrNotExist
	Size(path string) (int64, error)

	// Remove deletes path. A missing file is not an error.
	Remove(path string) error

	// Rename atomically moves from onto to
	Rename(from, to string) error

	// EnsureDir creates the parent directory of a file path
	EnsureDir(filePath string) error

	// CleanOldPartFiles removes partial files under root older than the given age
	// Returns the number of files deleted
	CleanOldPartFiles(root string, olderThan time.Duration) (int, error)
}
