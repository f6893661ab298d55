package network

import (
	"sync"

	"github.com/lightningnetwork/lnd/fn/v2"
)

// pendStoreReq asks the registry loop to insert a channel under its current
// nonce.
type pendStoreReq struct {
	channel Channel
	resp    chan error
}

// pendExistsReq asks the registry loop whether a nonce is pending.
type pendExistsReq struct {
	nonce uint64
	resp  chan bool
}

// pendRemoveReq asks the registry loop to discard a channel.
type pendRemoveReq struct {
	channel Channel
	resp    chan error
}

// PendingChannels tracks channels whose outgoing dial has completed but
// whose handshake has not yet been verified, keyed by the session nonce set
// on each channel. An incoming connection advertising one of these nonces in
// its version message is this node dialing itself.
//
// All mutations run on a single handler goroutine; the exported methods
// block until that loop responds or the registry shuts down.
type PendingChannels struct {
	mtx     sync.Mutex
	running bool
	quit    chan struct{}
	wg      sync.WaitGroup

	storeChan  chan *pendStoreReq
	existsChan chan *pendExistsReq
	removeChan chan *pendRemoveReq
}

// NewPendingChannels allocates a registry. The registry rejects all
// operations until Start is called.
func NewPendingChannels() *PendingChannels {
	quit := make(chan struct{})
	close(quit)

	return &PendingChannels{
		quit:       quit,
		storeChan:  make(chan *pendStoreReq),
		existsChan: make(chan *pendExistsReq),
		removeChan: make(chan *pendRemoveReq),
	}
}

// Start spins up the registry's handler goroutine with an empty map.
// Starting a running registry has no effect, so a registry shared across
// sessions may be started by each of them.
func (p *PendingChannels) Start() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if p.running {
		return
	}

	p.running = true
	p.quit = make(chan struct{})

	p.wg.Add(1)
	go p.channelHandler(p.quit)
}

// Stop terminates the handler goroutine, discarding any remaining entries.
// Operations issued afterwards fail with ErrServiceStopped.
func (p *PendingChannels) Stop() {
	p.mtx.Lock()
	if !p.running {
		p.mtx.Unlock()
		return
	}

	p.running = false
	quit := p.quit
	p.mtx.Unlock()

	close(quit)
	p.wg.Wait()
}

// quitChan snapshots the quit channel the next operation should select on.
func (p *PendingChannels) quitChan() chan struct{} {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return p.quit
}

// Store inserts the channel keyed by its current nonce. Inserting a zero
// nonce or a nonce that is already pending fails with ErrOperationFailed.
func (p *PendingChannels) Store(channel Channel) error {
	req := &pendStoreReq{
		channel: channel,
		resp:    make(chan error, 1),
	}

	quit := p.quitChan()
	if !fn.SendOrQuit(p.storeChan, req, quit) {
		return ErrServiceStopped
	}

	err, quitErr := fn.RecvResp(req.resp, nil, quit)
	if quitErr != nil {
		return ErrServiceStopped
	}

	return err
}

// Exists reports whether a channel is pending under the given nonce. A
// stopped registry holds nothing.
func (p *PendingChannels) Exists(nonce uint64) bool {
	req := &pendExistsReq{
		nonce: nonce,
		resp:  make(chan bool, 1),
	}

	quit := p.quitChan()
	if !fn.SendOrQuit(p.existsChan, req, quit) {
		return false
	}

	exists, quitErr := fn.RecvResp(req.resp, nil, quit)
	if quitErr != nil {
		return false
	}

	return exists
}

// Remove discards the entry for the channel's current nonce. Removing a
// channel that is not pending fails with ErrNotFound.
func (p *PendingChannels) Remove(channel Channel) error {
	req := &pendRemoveReq{
		channel: channel,
		resp:    make(chan error, 1),
	}

	quit := p.quitChan()
	if !fn.SendOrQuit(p.removeChan, req, quit) {
		return ErrServiceStopped
	}

	err, quitErr := fn.RecvResp(req.resp, nil, quit)
	if quitErr != nil {
		return ErrServiceStopped
	}

	return err
}

// channelHandler owns the nonce map and serializes every mutation.
//
// NOTE: This method MUST be run as a goroutine.
func (p *PendingChannels) channelHandler(quit chan struct{}) {
	defer p.wg.Done()

	channels := make(map[uint64]Channel)

	for {
		select {
		case req := <-p.storeChan:
			nonce := req.channel.Nonce()
			if _, ok := channels[nonce]; ok || nonce == 0 {
				req.resp <- ErrOperationFailed
				continue
			}

			channels[nonce] = req.channel
			req.resp <- nil

		case req := <-p.existsChan:
			_, ok := channels[req.nonce]
			req.resp <- ok

		case req := <-p.removeChan:
			nonce := req.channel.Nonce()
			if existing, ok := channels[nonce]; ok &&
				existing == req.channel {

				delete(channels, nonce)
				req.resp <- nil
				continue
			}

			req.resp <- ErrNotFound

		case <-quit:
			return
		}
	}
}
