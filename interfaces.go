package network

import "github.com/btcsuite/btcd/wire"

// Channel is an abstract full-duplex connection to a peer, capable of framed
// message exchange and stop notification. A channel is shared between the
// session that registers it and the host that stores it; it must tolerate
// Stop being called at any point of its life, including before Start.
type Channel interface {
	// Start brings up the channel's read cycle and returns exactly once,
	// with nil on success or the reason the channel could not start.
	Start() error

	// Stop tears the channel down, firing its stop subscriptions with
	// the given code. Stopping an already stopped channel has no effect.
	Stop(err error)

	// SubscribeStop registers a handler invoked exactly once with the
	// stop code when the channel stops. Handlers subscribed after the
	// stop are invoked immediately.
	SubscribeStop(handler func(error))

	// Nonce returns the session nonce currently set on the channel, or
	// zero when the channel is not pending.
	Nonce() uint64

	// SetNonce assigns the channel's session nonce.
	SetNonce(nonce uint64)

	// SetNotify controls whether the host announces this channel to
	// other subsystems once it is stored.
	SetNotify(notify bool)

	// Version returns the version message received from the peer during
	// the handshake, or nil before the handshake has completed.
	Version() *wire.MsgVersion

	// Authority returns the endpoint identity of the remote peer.
	Authority() Authority
}

// Acceptor listens for inbound connections and yields them as channels. The
// session only drives its shutdown; accepting is the caller's loop.
type Acceptor interface {
	// Accept blocks until an inbound connection arrives and returns it
	// as an unstarted channel.
	Accept() (Channel, error)

	// Stop closes the listener, unblocking any pending Accept. Stop is
	// idempotent.
	Stop()
}

// Connector dials outbound connections and yields them as channels.
type Connector interface {
	// Connect dials the given endpoint and returns the resulting
	// unstarted channel.
	Connect(authority Authority) (Channel, error)

	// Stop cancels any in-flight dial. Stop is idempotent.
	Stop()
}

// Host is the single source of truth for admitted channels: the network
// facade that stores and removes channels, tracks the address book and owns
// the global stop signal. Implementations must serialize Store/Remove and
// their stop subscription.
type Host interface {
	// SubscribeStop registers a handler for the host's global stop
	// signal. Handlers subscribed after the stop are invoked
	// immediately.
	SubscribeStop(handler func(error))

	// AddressCount returns the number of entries in the address book.
	AddressCount() (int, error)

	// FetchAddress returns a candidate peer address drawn from the
	// address book.
	FetchAddress() (Authority, error)

	// ConnectedCount returns the number of currently stored channels.
	ConnectedCount() (int, error)

	// Store admits a channel into the host's registry. The host may
	// reject, for example on a duplicate peer.
	Store(channel Channel) error

	// Remove discards a previously stored channel.
	Remove(channel Channel) error

	// NetworkSettings returns the settings shared by every session
	// created against this host.
	NetworkSettings() *Settings
}

// HandshakeFunc runs the version exchange sub-protocol on a started channel,
// returning once the channel's Version is populated or the exchange has
// failed. Timeouts are the handshake's own responsibility.
type HandshakeFunc func(Channel) error
