package entity

import "time"

// Kind says how a resolved request path should be answered.
type Kind int

const (
	// KindFile streams an object.
	KindFile Kind = iota
	// KindListing renders a directory index.
	KindListing
	// KindRedirect sends the client to the slash-terminated directory URL.
	KindRedirect
)

// Entry is one row of a directory listing.
type Entry struct {
	Name      string
	Href      string
	IsDir     bool
	Size      int64
	UpdatedAt time.Time
}
