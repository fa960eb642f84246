package model

import "time"

// Comment is an append-only note attached to a record through a relationship.
// AssigneeType keeps the author's roles on the record when it was written.
type Comment struct {
	ID           string
	Description  string
	AssigneeType string
	AuthorID     string
	CreatedAt    time.Time
}
