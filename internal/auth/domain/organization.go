package domain

import "time"

// Organization is the tenant boundary. Every user belongs to exactly one.
// The auth core only reads organizations; it never mutates them.
type Organization struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
