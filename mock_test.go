package network

import (
	"sync"
	"sync/atomic"

	"github.com/RojavaCrypto/libbitcoin-network/subscribe"
	"github.com/btcsuite/btcd/wire"
)

// mockChannel implements Channel against in-memory state, using the same
// stop fabric a real channel would.
type mockChannel struct {
	mtx sync.Mutex

	authority Authority
	nonce     uint64
	notify    bool
	version   *wire.MsgVersion

	startErr error
	started  bool

	stops        int
	firstStopErr error

	stopSignal *subscribe.StopSignal
}

func newMockChannel(authority Authority) *mockChannel {
	return &mockChannel{
		authority:  authority,
		stopSignal: subscribe.NewStopSignal(),
	}
}

func (m *mockChannel) Start() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.started = true
	return m.startErr
}

func (m *mockChannel) Stop(err error) {
	m.mtx.Lock()
	m.stops++
	if m.firstStopErr == nil {
		m.firstStopErr = err
	}
	m.mtx.Unlock()

	m.stopSignal.Signal(err)
}

func (m *mockChannel) SubscribeStop(handler func(error)) {
	m.stopSignal.Subscribe(handler)
}

func (m *mockChannel) Nonce() uint64 {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.nonce
}

func (m *mockChannel) SetNonce(nonce uint64) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.nonce = nonce
}

func (m *mockChannel) SetNotify(notify bool) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.notify = notify
}

func (m *mockChannel) Version() *wire.MsgVersion {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.version
}

func (m *mockChannel) Authority() Authority {
	return m.authority
}

func (m *mockChannel) setVersion(version *wire.MsgVersion) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.version = version
}

func (m *mockChannel) stopCount() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.stops
}

func (m *mockChannel) stopErr() error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.firstStopErr
}

func (m *mockChannel) notified() bool {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.notify
}

// mockHost implements Host with an in-memory channel list and the same stop
// fabric a real host would use for its global stop signal.
type mockHost struct {
	mtx sync.Mutex

	settings   *Settings
	stopSignal *subscribe.StopSignal

	storeErr  error
	removeErr error

	stored  []Channel
	removed []Channel

	addrCount int
	fetchAddr Authority
	connCount int
}

func newMockHost() *mockHost {
	return &mockHost{
		settings:   DefaultSettings(),
		stopSignal: subscribe.NewStopSignal(),
	}
}

func (m *mockHost) SubscribeStop(handler func(error)) {
	m.stopSignal.Subscribe(handler)
}

func (m *mockHost) AddressCount() (int, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.addrCount, nil
}

func (m *mockHost) FetchAddress() (Authority, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.fetchAddr, nil
}

func (m *mockHost) ConnectedCount() (int, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return m.connCount, nil
}

func (m *mockHost) Store(channel Channel) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	if m.storeErr != nil {
		return m.storeErr
	}

	m.stored = append(m.stored, channel)
	return nil
}

func (m *mockHost) Remove(channel Channel) error {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	m.removed = append(m.removed, channel)
	return m.removeErr
}

func (m *mockHost) NetworkSettings() *Settings {
	return m.settings
}

func (m *mockHost) signalStop(err error) {
	m.stopSignal.Signal(err)
}

func (m *mockHost) storeCount() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return len(m.stored)
}

func (m *mockHost) removeCount() int {
	m.mtx.Lock()
	defer m.mtx.Unlock()

	return len(m.removed)
}

// mockAcceptor and mockConnector count their stops so tests can assert the
// session's stop cascade reaches them exactly once.
type mockAcceptor struct {
	stops atomic.Int32
}

func (m *mockAcceptor) Accept() (Channel, error) {
	return nil, ErrOperationFailed
}

func (m *mockAcceptor) Stop() {
	m.stops.Add(1)
}

type mockConnector struct {
	stops atomic.Int32
}

func (m *mockConnector) Connect(Authority) (Channel, error) {
	return nil, ErrOperationFailed
}

func (m *mockConnector) Stop() {
	m.stops.Add(1)
}

// versionHandshake returns a handshake that installs the given version
// message on the channel, the way a completed version exchange would.
func versionHandshake(version *wire.MsgVersion) HandshakeFunc {
	return func(channel Channel) error {
		channel.(*mockChannel).setVersion(version)
		return nil
	}
}
