package network

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/RojavaCrypto/libbitcoin-network/pool"
	"github.com/btcsuite/btcd/wire"
)

// defaultPoolWorkers is the number of workers allocated when a session is
// created without a shared worker pool.
const defaultPoolWorkers = 8

// sessionResource is a stoppable object whose lifetime is bound to the
// session that created it.
type sessionResource interface {
	Stop()
}

// SessionConfig carries the collaborators and policy for one session.
type SessionConfig struct {
	// Host is the network facade the session registers channels with.
	Host Host

	// Outgoing selects the dialing flavor of the session. Outgoing
	// sessions pend their channels for loopback detection; incoming
	// sessions check new channels against the pending set instead.
	Outgoing bool

	// Persistent marks the session's channels for host notification once
	// stored. It is applied to outgoing channels only; incoming channels
	// are registered without a SetNotify call.
	Persistent bool

	// Handshake runs the version exchange on a started channel.
	Handshake HandshakeFunc

	// NewAcceptor allocates a listener for CreateAcceptor. Optional for
	// sessions that never accept.
	NewAcceptor func() (Acceptor, error)

	// NewConnector allocates a dialer for CreateConnector. Optional for
	// sessions that never dial.
	NewConnector func() (Connector, error)

	// Pending optionally shares a pending-nonce registry across the
	// sessions of one node, which is what lets an incoming session
	// recognize another session's outgoing dial as loopback. When nil
	// the session owns a private registry.
	Pending *PendingChannels

	// Pool optionally shares a worker pool across sessions. The pool
	// must outlive the session's stop. When nil the session owns a pool
	// of defaultPoolWorkers workers.
	Pool *pool.Worker
}

// Session drives channels through the admission pipeline: pend, handshake,
// loopback detection, version gating and storage with the host. A session is
// created stopped, runs at most one start/stop cycle, and observes the stop
// signal through its subscription to the host.
type Session struct {
	started atomic.Bool
	stopped atomic.Bool

	cfg      *SessionConfig
	settings *Settings

	incoming bool
	notify   bool

	pending    *PendingChannels
	ownPending bool

	workers    *pool.Worker
	ownWorkers bool

	resMtx    sync.Mutex
	resFired  bool
	resources []sessionResource
}

// NewSession creates a stopped session against the given host.
func NewSession(cfg *SessionConfig) (*Session, error) {
	if cfg.Host == nil {
		return nil, errors.New("session requires a host")
	}
	if cfg.Handshake == nil {
		return nil, errors.New("session requires a handshake")
	}

	settings := cfg.Host.NetworkSettings()
	if settings == nil {
		settings = DefaultSettings()
	}

	s := &Session{
		cfg:      cfg,
		settings: settings,
		incoming: !cfg.Outgoing,
		notify:   cfg.Persistent,
		pending:  cfg.Pending,
		workers:  cfg.Pool,
	}
	s.stopped.Store(true)

	if s.pending == nil {
		s.pending = NewPendingChannels()
		s.ownPending = true
	}

	if s.workers == nil {
		s.workers = pool.NewWorker(&pool.WorkerConfig{
			NumWorkers:    defaultPoolWorkers,
			WorkerTimeout: pool.DefaultWorkerTimeout,
		})
		s.ownWorkers = true
	}

	return s, nil
}

// Start sequence.
// ----------------------------------------------------------------------------

// Start transitions the session from stopped to running and arms its
// subscription to the host's stop signal. Starting a session twice fails
// with ErrOperationFailed.
func (s *Session) Start() error {
	if !s.started.CompareAndSwap(false, true) {
		return ErrOperationFailed
	}

	s.stopped.Store(false)
	if s.ownPending {
		s.pending.Start()
	}
	if s.ownWorkers {
		_ = s.workers.Start()
	}

	// The subscription must be armed on this same call path, so that no
	// stop event can slip between the transition above and the handler
	// below.
	s.cfg.Host.SubscribeStop(s.doStopSession)

	return nil
}

// doStopSession handles the host's stop signal. It stops the session from
// creating connections and cascades the stop to every resource the session
// created, but does not close channels: those are stopped by the host.
func (s *Session) doStopSession(error) {
	s.stopped.Store(true)
	s.stopResources()
	if s.ownPending {
		s.pending.Stop()
	}
	if s.ownWorkers {
		_ = s.workers.Stop()
	}
}

// Stopped returns whether the session has observed the stop signal, or has
// not yet been started.
func (s *Session) Stopped() bool {
	return s.stopped.Load()
}

// Socket creators.
// ----------------------------------------------------------------------------

// CreateAcceptor allocates a listener whose shutdown is bound to the
// session: session stop cascades to every acceptor created here.
func (s *Session) CreateAcceptor() (Acceptor, error) {
	if s.cfg.NewAcceptor == nil {
		return nil, ErrOperationFailed
	}

	acceptor, err := s.cfg.NewAcceptor()
	if err != nil {
		return nil, err
	}

	s.registerResource(acceptor)
	return acceptor, nil
}

// CreateConnector allocates a dialer whose shutdown is bound to the session.
func (s *Session) CreateConnector() (Connector, error) {
	if s.cfg.NewConnector == nil {
		return nil, ErrOperationFailed
	}

	connector, err := s.cfg.NewConnector()
	if err != nil {
		return nil, err
	}

	s.registerResource(connector)
	return connector, nil
}

// registerResource adds a resource to the session-owned set stopped by the
// stop cascade. A resource created after the cascade has fired is stopped
// immediately.
func (s *Session) registerResource(res sessionResource) {
	s.resMtx.Lock()
	if !s.resFired {
		s.resources = append(s.resources, res)
		s.resMtx.Unlock()
		return
	}
	s.resMtx.Unlock()

	s.stopResource(res)
}

// stopResources fires the stop cascade exactly once, stopping every
// registered resource on the worker pool and returning when all of them have
// been stopped.
func (s *Session) stopResources() {
	s.resMtx.Lock()
	if s.resFired {
		s.resMtx.Unlock()
		return
	}

	s.resFired = true
	resources := s.resources
	s.resources = nil
	s.resMtx.Unlock()

	for _, res := range resources {
		s.stopResource(res)
	}
}

// stopResource runs a resource's Stop on the worker pool, falling back to a
// direct call when the pool is no longer accepting work.
func (s *Session) stopResource(res sessionResource) {
	err := s.workers.Submit(func() error {
		res.Stop()
		return nil
	})
	if errors.Is(err, pool.ErrWorkerPoolExiting) {
		res.Stop()
	}
}

// Properties.
// ----------------------------------------------------------------------------

// AddressCount returns the host's address book size.
func (s *Session) AddressCount() (int, error) {
	return s.cfg.Host.AddressCount()
}

// FetchAddress draws a candidate peer address from the host.
func (s *Session) FetchAddress() (Authority, error) {
	return s.cfg.Host.FetchAddress()
}

// ConnectionCount returns the host's count of stored channels.
func (s *Session) ConnectionCount() (int, error) {
	return s.cfg.Host.ConnectedCount()
}

// Blacklisted reports whether the authority is configured as blacklisted.
// The check is advisory: it is not applied by RegisterChannel, but exposed
// for sessions that choose to screen peers before registration.
func (s *Session) Blacklisted(authority Authority) bool {
	for _, blocked := range s.settings.Blacklists {
		if blocked == authority {
			return true
		}
	}
	return false
}

// Registration sequence.
// ----------------------------------------------------------------------------

// RegisterChannel runs the admission pipeline on a new channel. A nil return
// means the channel was stored with the host and onStopped has been armed to
// fire exactly once, with the channel's stop code, after the channel is
// removed from the host again. A non-nil return means the channel was
// stopped with that code, was not stored, and onStopped will never fire.
func (s *Session) RegisterChannel(channel Channel,
	onStopped func(error)) error {

	err := s.startChannel(channel)

	// The channel must either be stopped or subscribed for stop before
	// the registration completes.
	if err != nil {
		channel.Stop(err)
		return err
	}

	channel.SubscribeStop(func(stopErr error) {
		s.removeChannel(stopErr, channel, onStopped)
	})

	return nil
}

// startChannel pends outgoing channels around the handshake and guarantees
// the pending entry is cleared again no matter which stage fails.
func (s *Session) startChannel(channel Channel) error {
	if s.Stopped() {
		return ErrServiceStopped
	}

	// Incoming channels are admitted under the remote nonce after the
	// handshake, so only outgoing channels pend.
	if s.incoming {
		return s.runHandshake(channel)
	}

	channel.SetNotify(s.notify)

	nonce, err := nonzeroNonce()
	if err != nil {
		return err
	}
	channel.SetNonce(nonce)

	if err := s.pending.Store(channel); err != nil {
		channel.SetNonce(0)
		return err
	}

	err = s.runHandshake(channel)
	s.unpend(channel)

	return err
}

// runHandshake starts the channel's read cycle and drives the version
// exchange, then hands off to admission.
func (s *Session) runHandshake(channel Channel) error {
	if err := channel.Start(); err != nil {
		return err
	}

	if err := s.cfg.Handshake(channel); err != nil {
		log.Debugf("Failure in handshake with [%v]: %v",
			channel.Authority(), err)
		return err
	}

	return s.admitChannel(channel)
}

// admitChannel applies the loopback and version-floor gates and stores the
// channel with the host.
func (s *Session) admitChannel(channel Channel) error {
	// A stop that arrived while the handshake was in flight still lets
	// the registration run to completion, but never to admission.
	if s.Stopped() {
		return ErrServiceStopped
	}

	version := channel.Version()
	if version == nil {
		log.Debugf("No version received from [%v]",
			channel.Authority())
		return ErrAcceptFailed
	}

	// The loopback test is for incoming channels only: an inbound
	// connection echoing one of our pending nonces is our own dial.
	if s.incoming && s.pending.Exists(version.Nonce) {
		log.Debugf("Rejected connection from [%v] as loopback",
			channel.Authority())
		return ErrAcceptFailed
	}

	if version.ProtocolVersion < int32(s.settings.MinimumPeerVersion) {
		log.Debugf("Peer version (%d) below minimum (%d) [%v]",
			version.ProtocolVersion, s.settings.MinimumPeerVersion,
			channel.Authority())
		return ErrAcceptFailed
	}

	return s.cfg.Host.Store(channel)
}

// unpend clears the channel's pending entry and resets its nonce. Failures
// do not propagate: the channel is already leaving the pending set.
func (s *Session) unpend(channel Channel) {
	if err := s.pending.Remove(channel); err != nil {
		log.Debugf("Failed to unpend a channel: %v", err)
	}
	channel.SetNonce(0)
}

// removeChannel discards a stored channel from the host when it stops, then
// forwards the stop code to the registration's onStopped handler. Removal
// failures do not propagate: the channel is already gone.
func (s *Session) removeChannel(stopErr error, channel Channel,
	onStopped func(error)) {

	if err := s.cfg.Host.Remove(channel); err != nil {
		log.Debugf("Failed to remove a channel: %v", err)
	}

	if onStopped != nil {
		onStopped(stopErr)
	}
}

// nonzeroNonce draws a uniform nonzero 64-bit nonce. Zero is reserved to
// mean "not pending".
func nonzeroNonce() (uint64, error) {
	for {
		nonce, err := wire.RandomUint64()
		if err != nil {
			return 0, err
		}
		if nonce != 0 {
			return nonce, nil
		}
	}
}
