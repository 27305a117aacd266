// Package storage defines the rooted file-system abstraction used for the
// chapter corpus and the export directory.
package storage

import "time"

// Entry describes one file found by List.
type Entry struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Provider is the interface for rooted file operations.
type Provider interface {
	// List returns metadata for every file under dir (relative to root) whose
	// name ends with ext, sorted by path.
	List(dir, ext string) ([]Entry, error)
	// Read returns the raw bytes of the file at path (relative to root).
	Read(path string) ([]byte, error)
	// Write atomically writes content to path (relative to root).
	Write(path string, content []byte) error
}
