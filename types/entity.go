// Package types provides value types shared by the Vesting packages.
package types

import "time"

// Entity carries the bookkeeping timestamps of every stored record.
// These are wall-clock audit fields; vesting math never reads them.
type Entity struct {
	CreatedAt time.Time `json:"created_at" bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `json:"updated_at" bun:"updated_at,notnull,default:current_timestamp"`
}

// NewEntity stamps both fields with the current UTC time.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Touch moves UpdatedAt forward to now.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}
