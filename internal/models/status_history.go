package models

import "time"

// StatusHistoryEntry is one row of a request's audit trail. Entries are
// written exactly once per transition, in the same transaction as the
// status change, and are never mutated or deleted afterwards.
type StatusHistoryEntry struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	RequestID uint          `gorm:"not null;index" json:"request_id"`
	Status    RequestStatus `gorm:"type:varchar(20);not null" json:"status"`
	// ActorUserID is nil for system-originated entries such as the initial
	// "Request initiated" record.
	ActorUserID *uint     `json:"actor_user_id"`
	Actor       *User     `gorm:"foreignKey:ActorUserID" json:"actor,omitempty"`
	Comments    string    `gorm:"type:text" json:"comments"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}
