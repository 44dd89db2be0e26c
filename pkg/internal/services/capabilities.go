package services

import "github.com/echonet/echonet/pkg/internal/platform"

// Required capability sets per target, mirroring what each operation is about
// to do there.
var (
	CategoryCapabilities = []platform.Capability{
		platform.CapManageChannels,
		platform.CapViewChannel,
	}
	MenuChannelCapabilities = []platform.Capability{
		platform.CapSendMessages,
		platform.CapEmbedLinks,
		platform.CapReadHistory,
		platform.CapManageMessages,
	}
	VoiceChannelCapabilities = []platform.Capability{
		platform.CapManageChannels,
		platform.CapViewChannel,
	}
	MoveCapabilities = []platform.Capability{
		platform.CapMoveMembers,
	}
)

// MissingCapabilities compares what the bot holds against what an operation
// needs and returns the deficit, in the order the requirements were given.
func MissingCapabilities(have platform.CapabilitySet, need ...platform.Capability) []platform.Capability {
	var missing []platform.Capability
	for _, capability := range need {
		if !have.Has(capability) {
			missing = append(missing, capability)
		}
	}
	return missing
}
