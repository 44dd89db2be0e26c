package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/echonet/echonet/pkg/internal/platform"
	"github.com/echonet/echonet/pkg/internal/registry"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
)

// ActorSweeper is the override actor used by the expiry sweeper and admin
// tooling; it bypasses the owner precondition on deletion.
const ActorSweeper = "sweeper"

// MenuPublisher posts the management menu for a freshly created channel and
// hands back a reference for later cleanup. Publishing is best-effort from
// the engine's point of view.
type MenuPublisher interface {
	PublishManagementMenu(ctx context.Context, record *models.ChannelRecord) (*models.MenuMessageRef, error)
}

// RequestNotifier delivers the approval affordance for a join request. The
// reference data it carries must be durable (channel id + requester id), not
// a live object, so a decision can arrive after a restart.
type RequestNotifier interface {
	NotifyJoinRequest(ctx context.Context, record *models.ChannelRecord, requesterId string) error
}

// Engine owns every state transition of the channel registry. All
// read-modify-write cycles run under one mutex; the lock is never held across
// a platform call except where the call's outcome gates the mutation.
type Engine struct {
	registry *registry.Store
	settings *registry.SettingsStore
	platform platform.Client

	menus    MenuPublisher
	notifier RequestNotifier
	audit    *AuditRecorder

	mu         sync.Mutex
	now        func() time.Time
	maxHorizon time.Duration
}

func NewEngine(store *registry.Store, settings *registry.SettingsStore, client platform.Client) *Engine {
	return &Engine{
		registry:   store,
		settings:   settings,
		platform:   client,
		now:        time.Now,
		maxHorizon: models.MaxDurationDays * 24 * time.Hour,
	}
}

func (e *Engine) UseMenus(menus MenuPublisher)         { e.menus = menus }
func (e *Engine) UseRequestNotifier(n RequestNotifier) { e.notifier = n }
func (e *Engine) UseAudit(audit *AuditRecorder)        { e.audit = audit }

// ListChannels returns a snapshot of every live record.
func (e *Engine) ListChannels() ([]*models.ChannelRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.registry.Load()
	if err != nil {
		return nil, err
	}

	return lo.Values(records), nil
}

// GetChannel returns a snapshot of one record.
func (e *Engine) GetChannel(channelId string) (*models.ChannelRecord, error) {
	return e.snapshot(channelId)
}

// CreateChannel provisions the external voice channel first and inserts the
// registry record only on success, so a failed create leaves no orphan state.
func (e *Engine) CreateChannel(ctx context.Context, guildId, requesterId, name string, durationDays int, mode models.AccessMode) (*models.ChannelRecord, error) {
	if length := utf8.RuneCountInString(name); length < 1 || length > models.MaxChannelNameLength {
		return nil, &ValidationError{Field: "name", Reason: fmt.Sprintf("must be 1-%d characters", models.MaxChannelNameLength)}
	}
	if durationDays < 1 || durationDays > models.MaxDurationDays {
		return nil, &ValidationError{Field: "duration_days", Reason: fmt.Sprintf("must be 1-%d days", models.MaxDurationDays)}
	}

	config, err := e.settings.Guild(guildId)
	if err != nil {
		return nil, err
	} else if config == nil {
		return nil, ErrGuildNotConfigured
	}

	if err := e.ensureCapabilities(ctx, config.VoiceCategoryID, "category", CategoryCapabilities); err != nil {
		return nil, err
	}
	if err := e.ensureCapabilities(ctx, config.MenuChannelID, "menu channel", MenuChannelCapabilities); err != nil {
		return nil, err
	}

	overwrites := []platform.Overwrite{
		everyoneOverwrite(guildId, mode),
		{TargetID: requesterId, Allow: platform.PermConnect | platform.PermViewChannel | platform.PermManageChannels},
		{TargetID: e.platform.BotUserID(), Allow: platform.PermConnect | platform.PermViewChannel | platform.PermManageChannels},
	}

	channelId, err := e.platform.CreateVoiceChannel(ctx, guildId, config.VoiceCategoryID, name, overwrites)
	if err != nil {
		return nil, &PlatformError{Op: "create voice channel", Cause: err}
	}

	record := models.NewChannelRecord(channelId, guildId, name, requesterId, e.now().Add(time.Duration(durationDays)*24*time.Hour), mode)

	e.mu.Lock()
	records, err := e.registry.Load()
	if err == nil {
		records[channelId] = record
		err = e.registry.Save(records)
	}
	e.mu.Unlock()
	if err != nil {
		return nil, err
	}

	if e.menus != nil {
		if ref, err := e.menus.PublishManagementMenu(ctx, record); err != nil {
			log.Warn().Err(err).Str("channel", channelId).Msg("Unable to publish the management menu...")
		} else {
			record.MenuMessageRef = ref
			_ = e.mutate(channelId, func(current *models.ChannelRecord) error {
				current.MenuMessageRef = ref
				return nil
			})
		}
	}

	e.recordAudit(channelId, requesterId, "create", fmt.Sprintf("name=%s duration=%dd", name, durationDays))

	return record, nil
}

// DeleteChannel tears the external channel down and removes the record.
// A channel that is already gone externally counts as deleted.
func (e *Engine) DeleteChannel(ctx context.Context, actorId, channelId, reason string) error {
	record, err := e.snapshot(channelId)
	if err != nil {
		return err
	}
	if actorId != ActorSweeper && actorId != record.OwnerID {
		return ErrNotOwner
	}

	if err := e.platform.DeleteChannel(ctx, channelId, reason); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return &PlatformError{Op: "delete voice channel", Cause: err}
	}

	if record.MenuMessageRef != nil {
		if err := e.platform.DeleteMessage(ctx, record.MenuMessageRef.ChannelID, record.MenuMessageRef.MessageID); err != nil && !errors.Is(err, platform.ErrNotFound) {
			log.Warn().Err(err).Str("channel", channelId).Msg("Unable to delete the management menu message...")
		}
	}

	if err := e.drop(channelId); err != nil {
		return err
	}

	e.recordAudit(channelId, actorId, "delete", reason)

	return nil
}

// ToggleAccessMode flips a channel between open and request-only by
// rewriting the everyone-role connect overwrite.
func (e *Engine) ToggleAccessMode(ctx context.Context, actorId, channelId string) (models.AccessMode, error) {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return 0, err
	}
	if err := e.ensureVoiceChannel(ctx, channelId); err != nil {
		return 0, err
	}

	next := models.AccessRequestOnly
	if record.AccessMode == models.AccessRequestOnly {
		next = models.AccessOpen
	}

	if err := e.platform.SetOverwrite(ctx, channelId, everyoneOverwrite(record.GuildID, next)); err != nil {
		if e.reconcileGone(channelId, err) {
			return 0, &NotFoundError{Kind: "channel", ID: channelId}
		}
		return 0, &PlatformError{Op: "edit channel overwrites", Cause: err}
	}

	err = e.mutate(channelId, func(current *models.ChannelRecord) error {
		current.AccessMode = next
		return nil
	})
	if err != nil {
		return 0, err
	}

	e.recordAudit(channelId, actorId, "toggle_access", fmt.Sprintf("mode=%d", next))

	return next, nil
}

// ExtendDuration pushes the expiry further out, bounded by the configured
// horizon from the current moment.
func (e *Engine) ExtendDuration(ctx context.Context, actorId, channelId string, delta time.Duration) (time.Time, error) {
	if delta <= 0 {
		return time.Time{}, &ValidationError{Field: "delta", Reason: "must be positive"}
	}
	if _, err := e.ownedSnapshot(actorId, channelId); err != nil {
		return time.Time{}, err
	}

	var next time.Time
	err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		candidate := current.ExpiresAt.Add(delta)
		if candidate.After(e.now().Add(e.maxHorizon)) {
			return ErrDurationLimitExceeded
		}
		current.ExpiresAt = candidate
		next = candidate
		return nil
	})
	if err != nil {
		return time.Time{}, err
	}

	e.recordAudit(channelId, actorId, "extend", fmt.Sprintf("until=%s", next.Format(time.RFC3339)))

	return next, nil
}

// SetUserLimit edits the external channel's user limit; zero lifts the limit.
func (e *Engine) SetUserLimit(ctx context.Context, actorId, channelId string, limit int) error {
	if limit < 0 || limit > models.MaxUserLimit {
		return &ValidationError{Field: "limit", Reason: fmt.Sprintf("must be 0-%d", models.MaxUserLimit)}
	}
	if _, err := e.ownedSnapshot(actorId, channelId); err != nil {
		return err
	}

	if err := e.platform.EditChannel(ctx, channelId, platform.ChannelEdit{UserLimit: &limit}); err != nil {
		if e.reconcileGone(channelId, err) {
			return &NotFoundError{Kind: "channel", ID: channelId}
		}
		return &PlatformError{Op: "edit channel", Cause: err}
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		current.UserLimit = limit
		return nil
	}); err != nil {
		return err
	}

	e.recordAudit(channelId, actorId, "set_limit", fmt.Sprintf("limit=%d", limit))

	return nil
}

// RenameChannel edits the external channel name and keeps the record's copy
// in sync.
func (e *Engine) RenameChannel(ctx context.Context, actorId, channelId, name string) error {
	if length := utf8.RuneCountInString(name); length < 1 || length > models.MaxChannelNameLength {
		return &ValidationError{Field: "name", Reason: fmt.Sprintf("must be 1-%d characters", models.MaxChannelNameLength)}
	}
	if _, err := e.ownedSnapshot(actorId, channelId); err != nil {
		return err
	}

	if err := e.platform.EditChannel(ctx, channelId, platform.ChannelEdit{Name: name}); err != nil {
		if e.reconcileGone(channelId, err) {
			return &NotFoundError{Kind: "channel", ID: channelId}
		}
		return &PlatformError{Op: "edit channel", Cause: err}
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		current.Name = name
		return nil
	}); err != nil {
		return err
	}

	e.recordAudit(channelId, actorId, "rename", fmt.Sprintf("name=%s", name))

	return nil
}

// TransferOwnership downgrades the old owner to a plain member overwrite and
// grants the new owner the managing one.
func (e *Engine) TransferOwnership(ctx context.Context, actorId, channelId, newOwnerId string) error {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return err
	}
	if newOwnerId == record.OwnerID {
		return &ValidationError{Field: "new_owner", Reason: "is already the owner"}
	}

	member, err := e.platform.FetchMember(ctx, record.GuildID, newOwnerId)
	if errors.Is(err, platform.ErrNotFound) {
		return &NotFoundError{Kind: "member", ID: newOwnerId}
	} else if err != nil {
		return &PlatformError{Op: "fetch member", Cause: err}
	}
	if member.Bot {
		return &ValidationError{Field: "new_owner", Reason: "cannot be a bot account"}
	}

	if err := e.ensureVoiceChannel(ctx, channelId); err != nil {
		return err
	}

	oldOwner := platform.Overwrite{
		TargetID: record.OwnerID,
		Allow:    platform.PermConnect | platform.PermViewChannel,
	}
	newOwner := platform.Overwrite{
		TargetID: newOwnerId,
		Allow:    platform.PermConnect | platform.PermViewChannel | platform.PermManageChannels,
	}
	// Grant first, downgrade last: a failure between the two writes must
	// leave the channel with a manager.
	if err := e.platform.SetOverwrite(ctx, channelId, newOwner); err != nil {
		if e.reconcileGone(channelId, err) {
			return &NotFoundError{Kind: "channel", ID: channelId}
		}
		return &PlatformError{Op: "edit channel overwrites", Cause: err}
	}
	if err := e.platform.SetOverwrite(ctx, channelId, oldOwner); err != nil {
		return &PlatformError{Op: "edit channel overwrites", Cause: err}
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		current.OwnerID = newOwnerId
		return nil
	}); err != nil {
		return err
	}

	if err := e.platform.SendDirectMessage(ctx, newOwnerId, fmt.Sprintf("You are now the owner of the voice channel **%s**!", record.Name)); err != nil {
		log.Debug().Err(err).Str("user", newOwnerId).Msg("Unable to notify the new channel owner...")
	}

	e.recordAudit(channelId, actorId, "transfer", fmt.Sprintf("new_owner=%s", newOwnerId))

	return nil
}

// BlockOutcome describes how far a block operation got; the block itself is
// never rolled back over a failed disconnect.
type BlockOutcome struct {
	RequestCleared bool   `json:"request_cleared"`
	Disconnected   bool   `json:"disconnected"`
	DisconnectNote string `json:"disconnect_note,omitempty"`
}

// BlockUser denies the target's connect capability, clears any pending join
// request, and disconnects them when present. The disconnect is best-effort:
// a missing move capability degrades to a partial success.
func (e *Engine) BlockUser(ctx context.Context, actorId, channelId, targetId string) (*BlockOutcome, error) {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return nil, err
	}
	if targetId == record.OwnerID {
		return nil, &ValidationError{Field: "target", Reason: "cannot block the channel owner"}
	}
	if record.IsBlocked(targetId) {
		return nil, ErrAlreadyBlocked
	}

	member, err := e.platform.FetchMember(ctx, record.GuildID, targetId)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, &NotFoundError{Kind: "member", ID: targetId}
	} else if err != nil {
		return nil, &PlatformError{Op: "fetch member", Cause: err}
	}
	if member.Bot {
		return nil, &ValidationError{Field: "target", Reason: "cannot block a bot account"}
	}

	if err := e.ensureVoiceChannel(ctx, channelId); err != nil {
		return nil, err
	}

	deny := platform.Overwrite{TargetID: targetId, Deny: platform.PermConnect}
	if err := e.platform.SetOverwrite(ctx, channelId, deny); err != nil {
		if e.reconcileGone(channelId, err) {
			return nil, &NotFoundError{Kind: "channel", ID: channelId}
		}
		return nil, &PlatformError{Op: "edit channel overwrites", Cause: err}
	}

	outcome := &BlockOutcome{}
	err = e.mutate(channelId, func(current *models.ChannelRecord) error {
		if !current.Block(targetId) {
			return ErrAlreadyBlocked
		}
		// A blocked user's pending request is denied, not left dangling.
		outcome.RequestCleared = current.RemovePending(targetId)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if outcome.RequestCleared {
		if err := e.platform.SendDirectMessage(ctx, targetId, fmt.Sprintf("Your request to join **%s** has been denied.", record.Name)); err != nil {
			log.Debug().Err(err).Str("user", targetId).Msg("Unable to notify the denied requester...")
		}
	}

	e.disconnectBlocked(ctx, record, targetId, outcome)
	e.recordAudit(channelId, actorId, "block", fmt.Sprintf("target=%s", targetId))

	return outcome, nil
}

func (e *Engine) disconnectBlocked(ctx context.Context, record *models.ChannelRecord, targetId string, outcome *BlockOutcome) {
	current, err := e.platform.MemberVoiceChannel(ctx, record.GuildID, targetId)
	if err != nil || current != record.ChannelID {
		return
	}

	have, err := e.platform.Capabilities(ctx, record.ChannelID)
	if err == nil {
		if missing := MissingCapabilities(have, MoveCapabilities...); len(missing) > 0 {
			outcome.DisconnectNote = "user stays connected: bot cannot move members"
			log.Warn().Str("channel", record.ChannelID).Str("user", targetId).Msg("Blocked an user without being able to disconnect them...")
			return
		}
	}

	if err := e.platform.DisconnectMember(ctx, record.GuildID, targetId); err != nil {
		outcome.DisconnectNote = fmt.Sprintf("user stays connected: %v", err)
		log.Warn().Err(err).Str("channel", record.ChannelID).Str("user", targetId).Msg("Unable to disconnect a blocked user...")
		return
	}

	outcome.Disconnected = true
}

// UnblockUser removes the block and clears the overwrite entirely, reverting
// the target to the channel default rather than an equivalent allow.
func (e *Engine) UnblockUser(ctx context.Context, actorId, channelId, targetId string) error {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return err
	}
	if !record.IsBlocked(targetId) {
		return ErrNotBlocked
	}

	if err := e.platform.DeleteOverwrite(ctx, channelId, targetId); err != nil && !errors.Is(err, platform.ErrNotFound) {
		return &PlatformError{Op: "delete channel overwrite", Cause: err}
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		if !current.Unblock(targetId) {
			return ErrNotBlocked
		}
		return nil
	}); err != nil {
		return err
	}

	e.recordAudit(channelId, actorId, "unblock", fmt.Sprintf("target=%s", targetId))

	return nil
}

// InviteUser grants the target connect access directly, settling any pending
// request of theirs along the way.
func (e *Engine) InviteUser(ctx context.Context, actorId, channelId, targetId string) error {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return err
	}
	if targetId == record.OwnerID {
		return &ValidationError{Field: "target", Reason: "is already the owner"}
	}
	if record.IsBlocked(targetId) {
		return ErrUserBlocked
	}

	member, err := e.platform.FetchMember(ctx, record.GuildID, targetId)
	if errors.Is(err, platform.ErrNotFound) {
		return &NotFoundError{Kind: "member", ID: targetId}
	} else if err != nil {
		return &PlatformError{Op: "fetch member", Cause: err}
	}
	if member.Bot {
		return &ValidationError{Field: "target", Reason: "cannot invite a bot account"}
	}

	grant := platform.Overwrite{TargetID: targetId, Allow: platform.PermConnect | platform.PermViewChannel}
	if err := e.platform.SetOverwrite(ctx, channelId, grant); err != nil {
		if e.reconcileGone(channelId, err) {
			return &NotFoundError{Kind: "channel", ID: channelId}
		}
		return &PlatformError{Op: "edit channel overwrites", Cause: err}
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		current.RemovePending(targetId)
		return nil
	}); err != nil {
		return err
	}

	if err := e.platform.SendDirectMessage(ctx, targetId, fmt.Sprintf("You have been invited to the voice channel **%s**!", record.Name)); err != nil {
		log.Debug().Err(err).Str("user", targetId).Msg("Unable to notify the invited user...")
	}

	e.recordAudit(channelId, actorId, "invite", fmt.Sprintf("target=%s", targetId))

	return nil
}

// KickUser disconnects a currently connected member. No registry state
// changes; a kicked user may rejoin unless blocked.
func (e *Engine) KickUser(ctx context.Context, actorId, channelId, targetId string) error {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return err
	}
	if targetId == record.OwnerID {
		return &ValidationError{Field: "target", Reason: "cannot kick the channel owner"}
	}

	current, err := e.platform.MemberVoiceChannel(ctx, record.GuildID, targetId)
	if err != nil {
		return &PlatformError{Op: "fetch voice state", Cause: err}
	}
	if current != channelId {
		return &ValidationError{Field: "target", Reason: "is not connected to this channel"}
	}

	if err := e.ensureCapabilities(ctx, channelId, "voice channel", MoveCapabilities); err != nil {
		return err
	}

	if err := e.platform.DisconnectMember(ctx, record.GuildID, targetId); err != nil {
		return &PlatformError{Op: "disconnect member", Cause: err}
	}

	e.recordAudit(channelId, actorId, "kick", fmt.Sprintf("target=%s", targetId))

	return nil
}

// --- shared plumbing ---

func everyoneOverwrite(guildId string, mode models.AccessMode) platform.Overwrite {
	// On the platform the everyone role shares the guild id.
	overwrite := platform.Overwrite{TargetID: guildId, Role: true, Allow: platform.PermViewChannel}
	if mode == models.AccessRequestOnly {
		overwrite.Deny = platform.PermConnect
	} else {
		overwrite.Allow |= platform.PermConnect
	}
	return overwrite
}

func (e *Engine) snapshot(channelId string) (*models.ChannelRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.registry.Load()
	if err != nil {
		return nil, err
	}

	record, ok := records[channelId]
	if !ok {
		return nil, &NotFoundError{Kind: "channel", ID: channelId}
	}

	return record, nil
}

func (e *Engine) ownedSnapshot(actorId, channelId string) (*models.ChannelRecord, error) {
	record, err := e.snapshot(channelId)
	if err != nil {
		return nil, err
	}
	if actorId != record.OwnerID {
		return nil, ErrNotOwner
	}
	return record, nil
}

// mutate runs one read-modify-write cycle under the registry lock.
func (e *Engine) mutate(channelId string, fn func(record *models.ChannelRecord) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.registry.Load()
	if err != nil {
		return err
	}

	record, ok := records[channelId]
	if !ok {
		return &NotFoundError{Kind: "channel", ID: channelId}
	}
	if err := fn(record); err != nil {
		return err
	}

	return e.registry.Save(records)
}

func (e *Engine) drop(channelId string) error {
	return e.dropAll([]string{channelId})
}

func (e *Engine) dropAll(channelIds []string) error {
	if len(channelIds) == 0 {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.registry.Load()
	if err != nil {
		return err
	}
	for _, id := range channelIds {
		delete(records, id)
	}

	return e.registry.Save(records)
}

// expiredSnapshot returns the records whose expiry has passed.
func (e *Engine) expiredSnapshot(now time.Time) ([]*models.ChannelRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.registry.Load()
	if err != nil {
		return nil, err
	}

	return lo.Filter(lo.Values(records), func(record *models.ChannelRecord, _ int) bool {
		return record.IsExpired(now)
	}), nil
}

// reconcileGone drops the record when the platform reports the channel
// missing; the registry must not keep entries for vanished channels.
func (e *Engine) reconcileGone(channelId string, cause error) bool {
	if !errors.Is(cause, platform.ErrNotFound) {
		return false
	}

	log.Info().Str("channel", channelId).Msg("External channel vanished, dropping the stale record...")
	if err := e.drop(channelId); err != nil {
		log.Error().Err(err).Str("channel", channelId).Msg("Unable to drop a stale channel record...")
	}
	e.recordAudit(channelId, ActorSweeper, "reconcile", "external channel vanished")

	return true
}

func (e *Engine) ensureVoiceChannel(ctx context.Context, channelId string) error {
	err := e.ensureCapabilities(ctx, channelId, "voice channel", VoiceChannelCapabilities)
	var missing *NotFoundError
	if errors.As(err, &missing) {
		e.reconcileGone(channelId, platform.ErrNotFound)
		return &NotFoundError{Kind: "channel", ID: channelId}
	}
	return err
}

func (e *Engine) ensureCapabilities(ctx context.Context, channelId, where string, need []platform.Capability) error {
	have, err := e.platform.Capabilities(ctx, channelId)
	if errors.Is(err, platform.ErrNotFound) {
		return &NotFoundError{Kind: where, ID: channelId}
	} else if err != nil {
		return &PlatformError{Op: "fetch capabilities", Cause: err}
	}

	if missing := MissingCapabilities(have, need...); len(missing) > 0 {
		return &InsufficientCapabilityError{Where: where, Missing: missing}
	}

	return nil
}

func (e *Engine) recordAudit(channelId, actorId, action, detail string) {
	if e.audit == nil {
		return
	}
	e.audit.Record(models.AuditEntry{
		ChannelID: channelId,
		ActorID:   actorId,
		Action:    action,
		Detail:    detail,
	})
}
