package models

import (
	"fmt"
	"time"
)

// Status is the sync state of a clip.
type Status string

const (
	StatusPending   Status = "pending"
	StatusUploading Status = "uploading"
	StatusSynced    Status = "synced"
	StatusFailed    Status = "failed"
)

// transitions lists the allowed next states for every status.
var transitions = map[Status][]Status{
	StatusPending:   {StatusUploading},
	StatusFailed:    {StatusUploading},
	StatusUploading: {StatusSynced, StatusFailed},
	StatusSynced:    nil,
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// IsTerminal reports whether no further transition is possible from s.
func (s Status) IsTerminal() bool {
	return s == StatusSynced
}

func (s Status) String() string { return string(s) }

// ParseStatus converts a stored or user supplied value into a Status.
func ParseStatus(v string) (Status, error) {
	s := Status(v)
	if !s.Valid() {
		return "", fmt.Errorf("unknown status %q", v)
	}
	return s, nil
}

// CanTransition reports whether moving from one status to another is allowed.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Clip is one recorded video clip as persisted by the local store.
type Clip struct {
	// ID is assigned by the store on creation and never changes.
	ID int64

	// Media holds the container bytes. They are written once on creation.
	// Listings leave it nil; Size still reports the stored length.
	Media []byte

	// Size is the media length in bytes.
	Size int64

	// MIMEType is the negotiated container type, e.g. "video/mp4".
	MIMEType string

	// PreviewHandle is a local file path that can be used to play the clip.
	PreviewHandle string

	// Digest is the BLAKE2b-256 sum of Media taken at creation.
	Digest []byte

	// CapturedAt is the creation time.
	CapturedAt time.Time

	Status Status
}

// Extension maps the clip container type to a file extension.
func (c Clip) Extension() string {
	return ExtensionFor(c.MIMEType)
}

// ExtensionFor returns the file extension (with dot) for a container MIME
// type. Parameters such as ";codecs=..." are ignored.
func ExtensionFor(mime string) string {
	base := mime
	for i := 0; i < len(mime); i++ {
		if mime[i] == ';' {
			base = mime[:i]
			break
		}
	}
	switch base {
	case "video/mp4":
		return ".mp4"
	case "video/webm":
		return ".webm"
	case "video/x-matroska":
		return ".mkv"
	case "video/quicktime":
		return ".mov"
	default:
		return ".bin"
	}
}
