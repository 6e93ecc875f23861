// Package models defines server-side data models persisted in the database.
package models

import "time"

// File describes server-side metadata for an uploaded ciphertext. The
// envelope itself lives in blob storage under StorageKey.
type File struct {
	ID          string
	OwnerID     string
	OwnerName   string
	FileName    string
	ContentType string
	// Size is the plaintext size reported by the uploader.
	Size int64

	// StorageKey is the object-storage key of the ciphertext blob.
	StorageKey string
	// ContentKey is the per-file key as sent by the uploader. It is only
	// ever released through an authorized download or preview.
	ContentKey []byte
	// Nonce is the AEAD nonce taken from the envelope prefix.
	Nonce []byte

	CreatedAt time.Time
}

// FileAccess is a file as visible to a particular caller.
type FileAccess struct {
	File *File
	// Permission is set when access comes from a grant rather than
	// ownership or the admin role.
	Permission Permission
}

// FilePayload is what an authorized download or preview releases.
type FilePayload struct {
	File       *File
	Envelope   []byte
	ContentKey []byte
}
