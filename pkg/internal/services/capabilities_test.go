package services

import (
	"testing"

	"github.com/echonet/echonet/pkg/internal/platform"
)

func TestMissingCapabilities(t *testing.T) {
	tests := []struct {
		name string
		have platform.CapabilitySet
		need []platform.Capability
		want int
	}{
		{
			"all present",
			platform.CapabilitySet{platform.CapManageChannels: true, platform.CapViewChannel: true},
			CategoryCapabilities,
			0,
		},
		{
			"one missing",
			platform.CapabilitySet{platform.CapViewChannel: true},
			CategoryCapabilities,
			1,
		},
		{
			"empty set",
			platform.CapabilitySet{},
			MenuChannelCapabilities,
			len(MenuChannelCapabilities),
		},
		{
			"nil set",
			nil,
			MoveCapabilities,
			1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing := MissingCapabilities(tt.have, tt.need...)
			if len(missing) != tt.want {
				t.Fatalf("expected %d missing, got %v", tt.want, missing)
			}
		})
	}
}

func TestMissingCapabilitiesKeepsOrder(t *testing.T) {
	missing := MissingCapabilities(platform.CapabilitySet{}, platform.CapSendMessages, platform.CapEmbedLinks)
	if len(missing) != 2 || missing[0] != platform.CapSendMessages || missing[1] != platform.CapEmbedLinks {
		t.Fatalf("deficit order must follow the requirement order, got %v", missing)
	}
}
