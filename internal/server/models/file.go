// Package models defines server-side data models persisted in the database.
package models

// File is the manifest for one logical stored file: the ordered list of
// remote attachment handles that reassemble it, plus display metadata.
//
// A File row is only written after every chunk has a confirmed handle;
// partial uploads never produce a manifest.
type File struct {
	// ID is the server-assigned manifest id (uuid).
	ID string `json:"_id"`
	// UserID is the owner of the file.
	UserID string `json:"-"`
	// FileName is the user-facing display name.
	FileName string `json:"fileName"`
	// FileSize is the total plaintext size in bytes.
	FileSize int64 `json:"fileSize"`
	// DateCreated is a unix-millisecond timestamp.
	DateCreated int64 `json:"dateCreated"`
	// Handles holds one remote handle per chunk, in chunk-index order.
	Handles []string `json:"-"`
}
