package services

import (
	"context"
	"errors"
	"testing"

	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/echonet/echonet/pkg/internal/platform"
)

func TestRequestJoinRequiresRequestOnlyMode(t *testing.T) {
	engine, _ := newTestEngine(t)
	record := mustCreate(t, engine, models.AccessOpen)

	var validation *ValidationError
	if err := engine.RequestJoin(context.Background(), "user-2", record.ChannelID); !errors.As(err, &validation) {
		t.Fatalf("an open channel takes no join requests, got %v", err)
	}

	stored, _ := engine.GetChannel(record.ChannelID)
	if stored.IsPending("user-2") {
		t.Fatal("no pending request may be queued on an open channel")
	}
}

func TestRequestJoin(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()
	record := mustCreate(t, engine, models.AccessRequestOnly)

	var validation *ValidationError
	if err := engine.RequestJoin(ctx, testOwner, record.ChannelID); !errors.As(err, &validation) {
		t.Fatalf("the owner cannot request to join, got %v", err)
	}

	if err := engine.RequestJoin(ctx, "user-2", record.ChannelID); err != nil {
		t.Fatalf("request join: %v", err)
	}
	if err := engine.RequestJoin(ctx, "user-2", record.ChannelID); !errors.Is(err, ErrAlreadyPending) {
		t.Fatalf("expected ErrAlreadyPending, got %v", err)
	}

	// Without a dedicated notifier the owner is told over direct message.
	if len(client.dms[testOwner]) == 0 {
		t.Fatal("the owner should have been notified")
	}

	if _, err := engine.BlockUser(ctx, testOwner, record.ChannelID, "user-3"); err != nil {
		t.Fatalf("block: %v", err)
	}
	if err := engine.RequestJoin(ctx, "user-3", record.ChannelID); !errors.Is(err, ErrUserBlocked) {
		t.Fatalf("expected ErrUserBlocked, got %v", err)
	}
}

func TestApproveRequest(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()
	record := mustCreate(t, engine, models.AccessRequestOnly)

	if err := engine.ApproveRequest(ctx, testOwner, record.ChannelID, "user-2"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}

	if err := engine.RequestJoin(ctx, "user-2", record.ChannelID); err != nil {
		t.Fatalf("request join: %v", err)
	}
	if err := engine.ApproveRequest(ctx, testOwner, record.ChannelID, "user-2"); err != nil {
		t.Fatalf("approve: %v", err)
	}

	stored, _ := engine.GetChannel(record.ChannelID)
	if stored.IsPending("user-2") {
		t.Fatal("approval must clear the pending request")
	}
	if grant := client.channels[record.ChannelID].overwrites["user-2"]; grant.Allow&platform.PermConnect == 0 {
		t.Fatal("approval must grant connect")
	}

	// The decision has been settled; a second one bounces.
	if err := engine.ApproveRequest(ctx, testOwner, record.ChannelID, "user-2"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending on repeat, got %v", err)
	}
}

func TestApproveRequestRequiresOwner(t *testing.T) {
	engine, _ := newTestEngine(t)
	ctx := context.Background()
	record := mustCreate(t, engine, models.AccessRequestOnly)

	if err := engine.RequestJoin(ctx, "user-2", record.ChannelID); err != nil {
		t.Fatalf("request join: %v", err)
	}
	if err := engine.ApproveRequest(ctx, "user-3", record.ChannelID, "user-2"); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("expected ErrNotOwner, got %v", err)
	}
}

func TestDenyRequest(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()
	record := mustCreate(t, engine, models.AccessRequestOnly)

	if err := engine.DenyRequest(ctx, testOwner, record.ChannelID, "user-2"); !errors.Is(err, ErrNotPending) {
		t.Fatalf("expected ErrNotPending, got %v", err)
	}

	if err := engine.RequestJoin(ctx, "user-2", record.ChannelID); err != nil {
		t.Fatalf("request join: %v", err)
	}
	if err := engine.DenyRequest(ctx, testOwner, record.ChannelID, "user-2"); err != nil {
		t.Fatalf("deny: %v", err)
	}

	stored, _ := engine.GetChannel(record.ChannelID)
	if stored.IsPending("user-2") {
		t.Fatal("denial must clear the pending request")
	}

	// A denial never touches permissions.
	if _, ok := client.channels[record.ChannelID].overwrites["user-2"]; ok {
		t.Fatal("denial must not write an overwrite")
	}
}
