package models

import (
	"time"

	"github.com/samber/lo"
)

type AccessMode = uint8

const (
	AccessOpen = AccessMode(iota)
	AccessRequestOnly
)

const (
	MaxChannelNameLength = 100
	MaxDurationDays      = 60
	MaxUserLimit         = 99
)

// MenuMessageRef points at the management menu message published for a
// channel so it can be cleaned up together with the channel.
type MenuMessageRef struct {
	MessageID string `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

// ChannelRecord is the registry entry for one temporary voice channel.
// The record only exists while the external channel does; it is inserted
// after a successful create and removed once the channel is gone.
type ChannelRecord struct {
	ChannelID string `json:"channel_id"`
	GuildID   string `json:"guild_id"`
	Name      string `json:"name"`
	OwnerID   string `json:"owner_id"`

	ExpiresAt  time.Time  `json:"expires_at"`
	AccessMode AccessMode `json:"access_mode"`

	PendingRequests []string `json:"pending_requests"`
	BlockedUsers    []string `json:"blocked_users"`

	UserLimit int `json:"user_limit"`

	MenuMessageRef *MenuMessageRef `json:"menu_message_ref"`
}

func NewChannelRecord(channelId, guildId, name, ownerId string, expiresAt time.Time, mode AccessMode) *ChannelRecord {
	return &ChannelRecord{
		ChannelID:       channelId,
		GuildID:         guildId,
		Name:            name,
		OwnerID:         ownerId,
		ExpiresAt:       expiresAt.UTC(),
		AccessMode:      mode,
		PendingRequests: []string{},
		BlockedUsers:    []string{},
	}
}

func (v *ChannelRecord) IsExpired(now time.Time) bool {
	return !now.Before(v.ExpiresAt)
}

func (v *ChannelRecord) IsBlocked(userId string) bool {
	return lo.Contains(v.BlockedUsers, userId)
}

func (v *ChannelRecord) IsPending(userId string) bool {
	return lo.Contains(v.PendingRequests, userId)
}

// Block adds an user to the blocklist; reports false when already present.
func (v *ChannelRecord) Block(userId string) bool {
	if v.IsBlocked(userId) {
		return false
	}
	v.BlockedUsers = append(v.BlockedUsers, userId)
	return true
}

func (v *ChannelRecord) Unblock(userId string) bool {
	if !v.IsBlocked(userId) {
		return false
	}
	v.BlockedUsers = lo.Without(v.BlockedUsers, userId)
	return true
}

// AddPending queues a join request; reports false when one is already queued.
func (v *ChannelRecord) AddPending(userId string) bool {
	if v.IsPending(userId) {
		return false
	}
	v.PendingRequests = append(v.PendingRequests, userId)
	return true
}

func (v *ChannelRecord) RemovePending(userId string) bool {
	if !v.IsPending(userId) {
		return false
	}
	v.PendingRequests = lo.Without(v.PendingRequests, userId)
	return true
}
