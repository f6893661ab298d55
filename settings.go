package network

import (
	"time"

	"github.com/btcsuite/btcd/wire"
)

const (
	// DefaultHandshakeTimeout is the default amount of time a handshake
	// implementation is given to complete the version exchange before the
	// channel is torn down.
	DefaultHandshakeTimeout = 30 * time.Second

	// DefaultConnectTimeout is the default amount of time a connector
	// waits for an outbound dial to complete.
	DefaultConnectTimeout = 5 * time.Second
)

// Settings bundles the tunable parameters consumed by sessions and the
// collaborators they drive. A single Settings value is shared by every
// session created against the same host.
type Settings struct {
	// ProtocolVersion is the protocol version advertised to remote peers
	// during the handshake.
	ProtocolVersion uint32

	// MinimumPeerVersion is the protocol version floor. A peer whose
	// advertised version is below this value is refused admission.
	MinimumPeerVersion uint32

	// Services is the service bitfield advertised to remote peers.
	Services wire.ServiceFlag

	// HandshakeTimeout bounds the version exchange on a new channel.
	HandshakeTimeout time.Duration

	// ConnectTimeout bounds outbound dial attempts.
	ConnectTimeout time.Duration

	// Blacklists is the set of endpoint identities that sessions may
	// refuse to communicate with. Membership is a linear scan; the list
	// is expected to stay small.
	Blacklists []Authority
}

// DefaultSettings returns the settings used when the caller supplies none.
func DefaultSettings() *Settings {
	return &Settings{
		ProtocolVersion:    wire.ProtocolVersion,
		MinimumPeerVersion: wire.NetAddressTimeVersion,
		Services:           wire.SFNodeNetwork,
		HandshakeTimeout:   DefaultHandshakeTimeout,
		ConnectTimeout:     DefaultConnectTimeout,
	}
}
