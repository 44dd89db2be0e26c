package models

import (
	"testing"
	"time"
)

func TestChannelRecordExpiry(t *testing.T) {
	expiry := time.Date(2024, 6, 8, 12, 0, 0, 0, time.UTC)
	record := NewChannelRecord("chan-1", "guild-1", "hangout", "owner-1", expiry, AccessOpen)

	tests := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"before expiry", expiry.Add(-time.Second), false},
		{"exactly at expiry", expiry, true},
		{"after expiry", expiry.Add(time.Second), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := record.IsExpired(tt.now); got != tt.want {
				t.Fatalf("IsExpired(%v) = %v, want %v", tt.now, got, tt.want)
			}
		})
	}
}

func TestChannelRecordBlocklist(t *testing.T) {
	record := NewChannelRecord("chan-1", "guild-1", "hangout", "owner-1", time.Now(), AccessOpen)

	if !record.Block("user-2") {
		t.Fatal("first block should succeed")
	}
	if record.Block("user-2") {
		t.Fatal("second block should report a no-op")
	}
	if !record.IsBlocked("user-2") {
		t.Fatal("the user should be blocked")
	}
	if !record.Unblock("user-2") {
		t.Fatal("unblock should succeed")
	}
	if record.Unblock("user-2") {
		t.Fatal("second unblock should report a no-op")
	}
	if record.BlockedUsers == nil {
		t.Fatal("the blocklist must stay non-nil")
	}
}

func TestChannelRecordPendingRequests(t *testing.T) {
	record := NewChannelRecord("chan-1", "guild-1", "hangout", "owner-1", time.Now(), AccessRequestOnly)

	if !record.AddPending("user-2") {
		t.Fatal("first request should queue")
	}
	if record.AddPending("user-2") {
		t.Fatal("duplicate request should report a no-op")
	}
	if !record.RemovePending("user-2") {
		t.Fatal("settling the request should succeed")
	}
	if record.RemovePending("user-2") {
		t.Fatal("a settled request cannot be settled again")
	}
}
