// Package storage provides the persistence contract for crawled content.
// Paths are relative to a caller-supplied base directory.
package storage

// Storage is the write/read/exists contract the crawler persists through.
type Storage interface {
	// Write stores content at the relative path, creating parent
	// directories as needed.
	Write(path string, content []byte) error

	// Exists reports whether the relative path is present.
	Exists(path string) bool

	// Read returns the content at the relative path, erroring if absent.
	Read(path string) ([]byte, error)
}
