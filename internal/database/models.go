package database

import "time"

// BaseEntity carries the identity and audit timestamps shared by every
// persisted model.
type BaseEntity struct {
	ID           int64     `db:"id" json:"id"`
	CreatedDate  time.Time `db:"created_date" json:"created_date"`
	LastModified time.Time `db:"last_modified" json:"last_modified"`
}

// MarkCreated stamps both timestamps for a new row.
func (e *BaseEntity) MarkCreated(now time.Time) {
	e.CreatedDate = now
	e.LastModified = now
}

// MarkModified advances the last-modified timestamp. CreatedDate is never
// changed after insert.
func (e *BaseEntity) MarkModified(now time.Time) {
	e.LastModified = now
}

// User represents a platform user
type User struct {
	BaseEntity
	Username    string `db:"username" json:"username"`
	Email       string `db:"email" json:"email"`
	DisplayName string `db:"display_name" json:"display_name"`
	Active      bool   `db:"active" json:"active"`
}
