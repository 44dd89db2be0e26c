package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/echonet/echonet/pkg/internal/models"
	"github.com/echonet/echonet/pkg/internal/platform"
)

func TestSweepNothingExpired(t *testing.T) {
	engine, client := newTestEngine(t)
	mustCreate(t, engine, models.AccessOpen)

	report := NewSweeper(engine).RunSweepOnce(context.Background())
	if report.Expired != 0 || len(report.Removed) != 0 {
		t.Fatalf("nothing should be swept: %+v", report)
	}
	if len(client.deleted) != 0 {
		t.Fatalf("no channel should be deleted, got %v", client.deleted)
	}
}

func TestSweepRemovesExpiredOnly(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()

	expiring := mustCreate(t, engine, models.AccessOpen)
	living, err := engine.CreateChannel(ctx, testGuild, "owner-2", "late arrival", 14, models.AccessOpen)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	// Eight days pass; only the seven day channel is due.
	engine.now = func() time.Time { return baseTime.Add(8 * 24 * time.Hour) }

	report := NewSweeper(engine).RunSweepOnce(ctx)
	if report.Expired != 1 {
		t.Fatalf("expected one expired channel, got %d", report.Expired)
	}
	if len(report.Removed) != 1 || report.Removed[0] != expiring.ChannelID {
		t.Fatalf("expected %s removed, got %v", expiring.ChannelID, report.Removed)
	}

	var notFound *NotFoundError
	if _, err := engine.GetChannel(expiring.ChannelID); !errors.As(err, &notFound) {
		t.Fatalf("the expired record must be gone, got %v", err)
	}
	if _, err := engine.GetChannel(living.ChannelID); err != nil {
		t.Fatalf("the living record must survive: %v", err)
	}

	if len(client.dms[testOwner]) == 0 {
		t.Fatal("the owner should be told about the expiry")
	}
}

func TestRequestOnlyChannelLifecycle(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()

	record, err := engine.CreateChannel(ctx, testGuild, testOwner, "overnight", 1, models.AccessRequestOnly)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	if err := engine.RequestJoin(ctx, "user-1", record.ChannelID); err != nil {
		t.Fatalf("request join: %v", err)
	}
	if err := engine.ApproveRequest(ctx, testOwner, record.ChannelID, "user-1"); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if grant := client.channels[record.ChannelID].overwrites["user-1"]; grant.Allow&platform.PermConnect == 0 {
		t.Fatal("the approved requester should hold a connect grant")
	}

	// 25 hours later the one day channel is due.
	engine.now = func() time.Time { return baseTime.Add(25 * time.Hour) }

	report := NewSweeper(engine).RunSweepOnce(ctx)
	if report.Expired != 1 || len(report.Removed) != 1 || report.Removed[0] != record.ChannelID {
		t.Fatalf("the channel should be swept: %+v", report)
	}

	var notFound *NotFoundError
	if _, err := engine.GetChannel(record.ChannelID); !errors.As(err, &notFound) {
		t.Fatalf("the record must be gone, got %v", err)
	}
	if len(client.deleted) != 1 || client.deleted[0] != record.ChannelID {
		t.Fatalf("expected exactly one external delete of %s, got %v", record.ChannelID, client.deleted)
	}
}

func TestSweepKeepsFailedRecordsForNextCycle(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()

	stuck := mustCreate(t, engine, models.AccessOpen)
	smooth, err := engine.CreateChannel(ctx, testGuild, "owner-2", "smooth", 7, models.AccessOpen)
	if err != nil {
		t.Fatalf("create channel: %v", err)
	}

	client.deleteErr[stuck.ChannelID] = errors.New("rate limited")
	engine.now = func() time.Time { return baseTime.Add(8 * 24 * time.Hour) }

	report := NewSweeper(engine).RunSweepOnce(ctx)
	if report.Expired != 2 {
		t.Fatalf("expected two expired channels, got %d", report.Expired)
	}
	if len(report.Removed) != 1 || report.Removed[0] != smooth.ChannelID {
		t.Fatalf("only the smooth channel should be removed, got %v", report.Removed)
	}
	if _, ok := report.Failed[stuck.ChannelID]; !ok {
		t.Fatalf("the stuck channel must be reported as failed: %+v", report)
	}

	// The failed record stays in the registry for the next pass, and its
	// owner has not been told the channel is gone.
	if _, err := engine.GetChannel(stuck.ChannelID); err != nil {
		t.Fatalf("the stuck record must survive: %v", err)
	}
	if len(client.dms[testOwner]) != 0 {
		t.Fatalf("no expiry notice before the delete succeeds, got %v", client.dms[testOwner])
	}
	if len(client.dms["owner-2"]) != 1 {
		t.Fatalf("the smooth channel's owner should be notified once, got %v", client.dms["owner-2"])
	}

	// Once the failure clears, the next sweep finishes the job.
	delete(client.deleteErr, stuck.ChannelID)
	report = NewSweeper(engine).RunSweepOnce(ctx)
	if len(report.Removed) != 1 || report.Removed[0] != stuck.ChannelID {
		t.Fatalf("the retry should remove the stuck channel, got %v", report.Removed)
	}
	if len(client.dms[testOwner]) != 1 {
		t.Fatalf("the retried expiry should notify the owner once, got %v", client.dms[testOwner])
	}
}

func TestSweepTreatsVanishedChannelAsRemoved(t *testing.T) {
	engine, client := newTestEngine(t)
	ctx := context.Background()

	record := mustCreate(t, engine, models.AccessOpen)
	delete(client.channels, record.ChannelID)
	engine.now = func() time.Time { return baseTime.Add(8 * 24 * time.Hour) }

	report := NewSweeper(engine).RunSweepOnce(ctx)
	if len(report.Removed) != 1 || report.Removed[0] != record.ChannelID {
		t.Fatalf("a vanished channel still counts as removed, got %v", report.Removed)
	}
	if len(report.Failed) != 0 {
		t.Fatalf("nothing should fail: %+v", report.Failed)
	}
}
