// Package network implements the session layer of a Bitcoin-style
// peer-to-peer gossip network: the admission pipeline that takes a freshly
// connected channel through handshake, loopback detection and version gating
// before handing it to the network host, and the per-kind message subscriber
// bus that parses inbound wire messages and fans them out to one-shot
// subscribers.
//
// Socket I/O, address-book persistence and the protocols layered above the
// handshake (ping, address exchange) live behind the Channel, Acceptor,
// Connector and Host interfaces and are supplied by the caller.
package network
