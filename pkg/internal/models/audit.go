package models

import "time"

// AuditEntry records one lifecycle transition or sweep outcome. Entries that
// belong to the same sweep pass share a SweepID.
type AuditEntry struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	SweepID   *string `json:"sweep_id" gorm:"index"`
	ChannelID string  `json:"channel_id" gorm:"index"`
	ActorID   string  `json:"actor_id"`
	Action    string  `json:"action"`
	Detail    string  `json:"detail"`
}
