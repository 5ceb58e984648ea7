package model

import "time"

// EntryKind is the content type of a scrapbook entry.
type EntryKind string

const (
	EntryText  EntryKind = "text"
	EntryImage EntryKind = "image"
	EntryAudio EntryKind = "audio"
)

// Valid reports whether k is one of the three known kinds.
func (k EntryKind) Valid() bool {
	return k == EntryText || k == EntryImage || k == EntryAudio
}

// Entry is a post authored by one user on another user's page (or their own).
//
// Exactly one of TextContent / FilePath is populated, depending on Kind:
// text entries carry TextContent; image and audio entries carry FilePath,
// OriginalName and MimeType for a file stored outside this service.
type Entry struct {
	ID           string    `json:"id"`
	TargetUserID string    `json:"targetUserId"`
	AuthorUserID string    `json:"authorUserId"`
	Kind         EntryKind `json:"kind"`
	TextContent  string    `json:"textContent,omitempty"`
	FilePath     string    `json:"filePath,omitempty"`
	OriginalName string    `json:"originalName,omitempty"`
	MimeType     string    `json:"mimeType,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// EntryWithAuthor is an Entry joined with the author's display fields,
// as rendered on a page.
type EntryWithAuthor struct {
	Entry
	AuthorName      string `json:"authorName"`
	AuthorShareCode string `json:"authorShareCode"`
}
