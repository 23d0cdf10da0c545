// Package storage holds campaign attachments (maps, portraits, handouts) on
// the local file system, organized per entity.
package storage

import "time"

// Attachment describes one stored file.
type Attachment struct {
	// Path is relative to the attachments root: <entityID>/<filename>.
	Path      string    `json:"path"`
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Provider is the interface for attachment file operations.
type Provider interface {
	// List returns metadata for every attachment of an entity.
	List(entityID string) ([]Attachment, error)
	// Read returns the raw bytes of the attachment at path.
	Read(path string) ([]byte, error)
	// Write atomically stores content for an entity and returns the
	// attachment's metadata.
	Write(entityID, name string, content []byte) (*Attachment, error)
	// Delete removes the attachment at path.
	Delete(path string) error
}
