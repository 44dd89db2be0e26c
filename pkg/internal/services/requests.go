package services

import (
	"context"
	"fmt"

	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/echonet/echonet/pkg/internal/platform"
	"github.com/rs/zerolog/log"
)

// RequestJoin queues a join request on a request-only channel and notifies
// the owner with a durable approval affordance.
func (e *Engine) RequestJoin(ctx context.Context, requesterId, channelId string) error {
	record, err := e.snapshot(channelId)
	if err != nil {
		return err
	}
	if record.AccessMode != models.AccessRequestOnly {
		return &ValidationError{Field: "channel", Reason: "is open, no request needed"}
	}
	if requesterId == record.OwnerID {
		return &ValidationError{Field: "requester", Reason: "is the channel owner"}
	}
	if record.IsBlocked(requesterId) {
		return ErrUserBlocked
	}
	if record.IsPending(requesterId) {
		return ErrAlreadyPending
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		if !current.AddPending(requesterId) {
			return ErrAlreadyPending
		}
		return nil
	}); err != nil {
		return err
	}

	if e.notifier != nil {
		if err := e.notifier.NotifyJoinRequest(ctx, record, requesterId); err != nil {
			log.Warn().Err(err).Str("channel", channelId).Str("user", requesterId).Msg("Unable to deliver a join request to the owner...")
		}
	} else if err := e.platform.SendDirectMessage(ctx, record.OwnerID, fmt.Sprintf("A member wants to join your voice channel **%s**.", record.Name)); err != nil {
		log.Debug().Err(err).Str("user", record.OwnerID).Msg("Unable to notify the channel owner...")
	}

	e.recordAudit(channelId, requesterId, "request_join", "")

	return nil
}

// ApproveRequest settles a pending request by granting the connect overwrite
// before the pending entry is removed and persisted.
func (e *Engine) ApproveRequest(ctx context.Context, actorId, channelId, requesterId string) error {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return err
	}
	if !record.IsPending(requesterId) {
		return ErrNotPending
	}

	grant := platform.Overwrite{TargetID: requesterId, Allow: platform.PermConnect | platform.PermViewChannel}
	if err := e.platform.SetOverwrite(ctx, channelId, grant); err != nil {
		if e.reconcileGone(channelId, err) {
			return &NotFoundError{Kind: "channel", ID: channelId}
		}
		return &PlatformError{Op: "edit channel overwrites", Cause: err}
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		if !current.RemovePending(requesterId) {
			return ErrNotPending
		}
		return nil
	}); err != nil {
		return err
	}

	if err := e.platform.SendDirectMessage(ctx, requesterId, fmt.Sprintf("Your request to join **%s** has been approved!", record.Name)); err != nil {
		log.Debug().Err(err).Str("user", requesterId).Msg("Unable to notify the approved requester...")
	}

	e.recordAudit(channelId, actorId, "approve_request", fmt.Sprintf("requester=%s", requesterId))

	return nil
}

// DenyRequest settles a pending request without touching any permission.
func (e *Engine) DenyRequest(ctx context.Context, actorId, channelId, requesterId string) error {
	record, err := e.ownedSnapshot(actorId, channelId)
	if err != nil {
		return err
	}

	if err := e.mutate(channelId, func(current *models.ChannelRecord) error {
		if !current.RemovePending(requesterId) {
			return ErrNotPending
		}
		return nil
	}); err != nil {
		return err
	}

	if err := e.platform.SendDirectMessage(ctx, requesterId, fmt.Sprintf("Your request to join **%s** has been denied.", record.Name)); err != nil {
		log.Debug().Err(err).Str("user", requesterId).Msg("Unable to notify the denied requester...")
	}

	e.recordAudit(channelId, actorId, "deny_request", fmt.Sprintf("requester=%s", requesterId))

	return nil
}
