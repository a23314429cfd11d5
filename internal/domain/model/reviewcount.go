package model

import "time"

// ReviewCount is a single observation of the listing's review count.
type ReviewCount struct {
	Count int
	// Source is the URL the count was extracted from.
	Source    string
	FetchedAt time.Time
}

// Notification is an outbound message handed to a Notifier.
type Notification struct {
	Subject string
	Body    string
}
