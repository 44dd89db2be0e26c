package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/echonet/echonet/pkg/internal/platform"
)

var (
	ErrDurationLimitExceeded = errors.New("cannot extend beyond the maximum duration horizon")
	ErrAlreadyBlocked        = errors.New("user is already blocked")
	ErrNotBlocked            = errors.New("user is not blocked")
	ErrAlreadyPending        = errors.New("user already has a pending request")
	ErrNotPending            = errors.New("user has no pending request")
	ErrUserBlocked           = errors.New("user is blocked from this channel")
	ErrNotOwner              = errors.New("only the channel owner can do this")
	ErrGuildNotConfigured    = errors.New("guild setup has not been completed")
)

// InsufficientCapabilityError is a hard precondition failure: the bot lacks
// capabilities on the target and no mutation has been performed.
type InsufficientCapabilityError struct {
	Where   string
	Missing []platform.Capability
}

func (e *InsufficientCapabilityError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, item := range e.Missing {
		names = append(names, string(item))
	}
	return fmt.Sprintf("missing capabilities on %s: %s", e.Where, strings.Join(names, ", "))
}

// ValidationError reports a rejected input; nothing was mutated.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NotFoundError reports a missing record or external entity. Operations that
// hit it on a registry record have already dropped the stale entry.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// PlatformError wraps a failed external call. These are surfaced immediately
// and never retried here; the actor re-invokes if the cause was transient.
type PlatformError struct {
	Op    string
	Cause error
}

func (e *PlatformError) Error() string {
	return fmt.Sprintf("platform call %s failed: %v", e.Op, e.Cause)
}

func (e *PlatformError) Unwrap() error {
	return e.Cause
}
