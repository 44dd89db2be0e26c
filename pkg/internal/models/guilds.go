package models

// GuildConfig holds where a guild keeps its temporary voice channels and the
// management menu. It is written by the setup workflow only; the lifecycle
// engine treats it as read-only.
type GuildConfig struct {
	GuildID         string `json:"guild_id"`
	VoiceCategoryID string `json:"voice_category_id"`
	MenuChannelID   string `json:"menu_channel_id"`
}
