package models

import "time"

// MaxFileSize is the hard per-attachment ceiling enforced before any remote
// write. The backend rejects documents around 1MB, so inline content is
// capped below that.
const MaxFileSize = 750 * 1024

// StoredFile is a small attachment kept inline in its document,
// base64-encoded.
type StoredFile struct {
	ID        string    `json:"-"`
	Owner     string    `json:"owner"`
	Name      string    `json:"name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
