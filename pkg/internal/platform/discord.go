package platform

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// DiscordClient adapts a discordgo session to the Client contract. The
// context is honored for cancellation checks before each call; discordgo
// performs the HTTP round-trips itself.
type DiscordClient struct {
	session *discordgo.Session
}

func NewDiscordClient(session *discordgo.Session) *DiscordClient {
	return &DiscordClient{session: session}
}

func (v *DiscordClient) BotUserID() string {
	return v.session.State.User.ID
}

func (v *DiscordClient) CreateVoiceChannel(ctx context.Context, guildId, categoryId, name string, overwrites []Overwrite) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	channel, err := v.session.GuildChannelCreateComplex(guildId, discordgo.GuildChannelCreateData{
		Name:                 name,
		Type:                 discordgo.ChannelTypeGuildVoice,
		ParentID:             categoryId,
		PermissionOverwrites: encodeOverwrites(overwrites),
	})
	if err != nil {
		return "", wrapDiscordError(err)
	}

	return channel.ID, nil
}

// channelEditBody replaces discordgo.ChannelEdit for channel edits: the
// library tags UserLimit omitempty, so the zero that lifts a limit would
// never reach the wire.
type channelEditBody struct {
	Name      string `json:"name,omitempty"`
	UserLimit *int   `json:"user_limit,omitempty"`
}

func (v *DiscordClient) EditChannel(ctx context.Context, channelId string, edit ChannelEdit) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	body := channelEditBody{Name: edit.Name, UserLimit: edit.UserLimit}
	_, err := v.session.RequestWithBucketID("PATCH", discordgo.EndpointChannel(channelId), body, discordgo.EndpointChannel(channelId))
	return wrapDiscordError(err)
}

func (v *DiscordClient) DeleteChannel(ctx context.Context, channelId, reason string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := v.session.ChannelDelete(channelId, discordgo.WithAuditLogReason(reason))
	return wrapDiscordError(err)
}

func (v *DiscordClient) ChannelOverwrites(ctx context.Context, channelId string) ([]Overwrite, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	channel, err := v.session.Channel(channelId)
	if err != nil {
		return nil, wrapDiscordError(err)
	}

	overwrites := make([]Overwrite, 0, len(channel.PermissionOverwrites))
	for _, item := range channel.PermissionOverwrites {
		overwrites = append(overwrites, Overwrite{
			TargetID: item.ID,
			Role:     item.Type == discordgo.PermissionOverwriteTypeRole,
			Allow:    decodePermissions(item.Allow),
			Deny:     decodePermissions(item.Deny),
		})
	}

	return overwrites, nil
}

func (v *DiscordClient) SetOverwrite(ctx context.Context, channelId string, overwrite Overwrite) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	kind := discordgo.PermissionOverwriteTypeMember
	if overwrite.Role {
		kind = discordgo.PermissionOverwriteTypeRole
	}

	err := v.session.ChannelPermissionSet(
		channelId, overwrite.TargetID, kind,
		encodePermissions(overwrite.Allow), encodePermissions(overwrite.Deny),
	)
	return wrapDiscordError(err)
}

func (v *DiscordClient) DeleteOverwrite(ctx context.Context, channelId, targetId string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return wrapDiscordError(v.session.ChannelPermissionDelete(channelId, targetId))
}

func (v *DiscordClient) SendMessage(ctx context.Context, channelId, content string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	message, err := v.session.ChannelMessageSend(channelId, content)
	if err != nil {
		return "", wrapDiscordError(err)
	}

	return message.ID, nil
}

func (v *DiscordClient) DeleteMessage(ctx context.Context, channelId, messageId string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return wrapDiscordError(v.session.ChannelMessageDelete(channelId, messageId))
}

func (v *DiscordClient) SendDirectMessage(ctx context.Context, userId, content string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	channel, err := v.session.UserChannelCreate(userId)
	if err != nil {
		return wrapDiscordError(err)
	}

	_, err = v.session.ChannelMessageSend(channel.ID, content)
	return wrapDiscordError(err)
}

func (v *DiscordClient) FetchMember(ctx context.Context, guildId, userId string) (*Member, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	member, err := v.session.GuildMember(guildId, userId)
	if err != nil {
		return nil, wrapDiscordError(err)
	}

	return &Member{
		UserID: member.User.ID,
		Name:   member.DisplayName(),
		Bot:    member.User.Bot,
	}, nil
}

func (v *DiscordClient) MemberVoiceChannel(ctx context.Context, guildId, userId string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	state, err := v.session.State.VoiceState(guildId, userId)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	} else if err != nil {
		return "", err
	}

	return state.ChannelID, nil
}

func (v *DiscordClient) DisconnectMember(ctx context.Context, guildId, userId string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return wrapDiscordError(v.session.GuildMemberMove(guildId, userId, nil))
}

func (v *DiscordClient) Capabilities(ctx context.Context, channelId string) (CapabilitySet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	perms, err := v.session.UserChannelPermissions(v.session.State.User.ID, channelId)
	if err != nil {
		return nil, wrapDiscordError(err)
	}

	set := CapabilitySet{}
	for capability, flag := range capabilityFlags {
		if perms&flag == flag {
			set[capability] = true
		}
	}

	return set, nil
}

var capabilityFlags = map[Capability]int64{
	CapManageChannels: discordgo.PermissionManageChannels,
	CapViewChannel:    discordgo.PermissionViewChannel,
	CapSendMessages:   discordgo.PermissionSendMessages,
	CapEmbedLinks:     discordgo.PermissionEmbedLinks,
	CapReadHistory:    discordgo.PermissionReadMessageHistory,
	CapManageMessages: discordgo.PermissionManageMessages,
	CapMoveMembers:    discordgo.PermissionVoiceMoveMembers,
}

func encodeOverwrites(overwrites []Overwrite) []*discordgo.PermissionOverwrite {
	out := make([]*discordgo.PermissionOverwrite, 0, len(overwrites))
	for _, item := range overwrites {
		kind := discordgo.PermissionOverwriteTypeMember
		if item.Role {
			kind = discordgo.PermissionOverwriteTypeRole
		}
		out = append(out, &discordgo.PermissionOverwrite{
			ID:    item.TargetID,
			Type:  kind,
			Allow: encodePermissions(item.Allow),
			Deny:  encodePermissions(item.Deny),
		})
	}
	return out
}

var permissionFlags = map[Permission]int64{
	PermConnect:        discordgo.PermissionVoiceConnect,
	PermViewChannel:    discordgo.PermissionViewChannel,
	PermManageChannels: discordgo.PermissionManageChannels,
}

func encodePermissions(perms Permission) int64 {
	var out int64
	for perm, flag := range permissionFlags {
		if perms&perm == perm {
			out |= flag
		}
	}
	return out
}

func decodePermissions(flags int64) Permission {
	var out Permission
	for perm, flag := range permissionFlags {
		if flags&flag == flag {
			out |= perm
		}
	}
	return out
}

func wrapDiscordError(err error) error {
	if err == nil {
		return nil
	}

	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) {
		if restErr.Response != nil && restErr.Response.StatusCode == 404 {
			return fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		if restErr.Message != nil {
			switch restErr.Message.Code {
			case discordgo.ErrCodeUnknownChannel, discordgo.ErrCodeUnknownMessage,
				discordgo.ErrCodeUnknownMember, discordgo.ErrCodeUnknownUser:
				return fmt.Errorf("%w: %v", ErrNotFound, err)
			}
		}
	}

	return err
}
