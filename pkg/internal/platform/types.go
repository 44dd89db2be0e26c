package platform

// Capability is one of the closed set of abilities the bot itself needs on an
// external channel before it may act on it.
type Capability string

const (
	CapManageChannels Capability = "manage_channels"
	CapViewChannel    Capability = "view_channel"
	CapSendMessages   Capability = "send_messages"
	CapEmbedLinks     Capability = "embed_links"
	CapReadHistory    Capability = "read_message_history"
	CapManageMessages Capability = "manage_messages"
	CapMoveMembers    Capability = "move_members"
)

type CapabilitySet map[Capability]bool

func (v CapabilitySet) Has(capability Capability) bool {
	return v[capability]
}

// Permission flags carried by a channel overwrite.
type Permission uint64

const (
	PermConnect = Permission(1 << iota)
	PermViewChannel
	PermManageChannels
)

// Overwrite is a permission exception for a single user or role on a channel,
// overriding whatever the channel would inherit.
type Overwrite struct {
	TargetID string     `json:"target_id"`
	Role     bool       `json:"role"`
	Allow    Permission `json:"allow"`
	Deny     Permission `json:"deny"`
}

// ChannelEdit carries the mutable channel attributes; zero values leave the
// attribute untouched except UserLimit, which is always applied.
type ChannelEdit struct {
	Name      string
	UserLimit *int
}

type Member struct {
	UserID string
	Name   string
	Bot    bool
}
