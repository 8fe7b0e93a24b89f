package models

import "time"

// ViewEvent records one successful enrichment fetch.
// View events are append-only: nothing in shoeshelf updates or deletes them.
type ViewEvent struct {
	// ID is the document ID in the shoeViews collection.
	ID string

	// UserID is the session the view belongs to.
	UserID string

	// ItemNames is the comma-joined list of shoe names that were described.
	ItemNames string

	// Details is the enrichment text that was shown.
	Details string

	// CreatedAt is when the view was recorded.
	CreatedAt time.Time
}

// DisplayTime formats CreatedAt for the history view.
func (v ViewEvent) DisplayTime() string {
	return v.CreatedAt.Local().Format("Jan 2, 2006 3:04:05 PM")
}
