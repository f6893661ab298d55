package network

import (
	"io"
	"reflect"

	"github.com/RojavaCrypto/libbitcoin-network/subscribe"
	"github.com/btcsuite/btcd/wire"
	"github.com/davecgh/go-spew/spew"
)

// kindSubscriber is the type-erased face of a typed subscriber, exposing the
// operations the bus applies uniformly across every message kind.
type kindSubscriber interface {
	Start()
	Stop(error)
	Len() int
}

// busEntry couples one kind's subscriber with the parser that decodes a wire
// stream into that kind and dispatches the result.
type busEntry struct {
	sub  kindSubscriber
	load func(io.Reader) error
}

// messageKinds maps the concrete wire message types back to their kind tags,
// so that a subscription can be routed from the handler's message type alone.
var messageKinds = map[reflect.Type]MessageType{
	reflect.TypeOf(&wire.MsgAddr{}):        MessageTypeAddress,
	reflect.TypeOf(&wire.MsgAlert{}):       MessageTypeAlert,
	reflect.TypeOf(&wire.MsgBlock{}):       MessageTypeBlock,
	reflect.TypeOf(&wire.MsgFilterAdd{}):   MessageTypeFilterAdd,
	reflect.TypeOf(&wire.MsgFilterClear{}): MessageTypeFilterClear,
	reflect.TypeOf(&wire.MsgFilterLoad{}):  MessageTypeFilterLoad,
	reflect.TypeOf(&wire.MsgGetAddr{}):     MessageTypeGetAddress,
	reflect.TypeOf(&wire.MsgGetBlocks{}):   MessageTypeGetBlocks,
	reflect.TypeOf(&wire.MsgGetData{}):     MessageTypeGetData,
	reflect.TypeOf(&wire.MsgGetHeaders{}):  MessageTypeGetHeaders,
	reflect.TypeOf(&wire.MsgHeaders{}):     MessageTypeHeaders,
	reflect.TypeOf(&wire.MsgInv{}):         MessageTypeInventory,
	reflect.TypeOf(&wire.MsgMemPool{}):     MessageTypeMemoryPool,
	reflect.TypeOf(&wire.MsgMerkleBlock{}): MessageTypeMerkleBlock,
	reflect.TypeOf(&wire.MsgNotFound{}):    MessageTypeNotFound,
	reflect.TypeOf(&wire.MsgPing{}):        MessageTypePing,
	reflect.TypeOf(&wire.MsgPong{}):        MessageTypePong,
	reflect.TypeOf(&wire.MsgReject{}):      MessageTypeReject,
	reflect.TypeOf(&wire.MsgTx{}):          MessageTypeTransaction,
	reflect.TypeOf(&wire.MsgVerAck{}):      MessageTypeVerack,
	reflect.TypeOf(&wire.MsgVersion{}):     MessageTypeVersion,
}

// MessageSubscriber fans inbound wire messages out to per-kind one-shot
// subscribers. A framing layer reads a message header off a channel,
// discriminates the kind and hands the payload stream to Load, which decodes
// it and relays the typed message to every handler currently subscribed to
// that kind, except for blocks, which go to the head handler only.
//
// Within a kind, messages are delivered in Load order. Across kinds there is
// no ordering guarantee.
type MessageSubscriber struct {
	pver     uint32
	encoding wire.MessageEncoding

	entries map[MessageType]*busEntry
}

// NewMessageSubscriber creates a bus decoding payloads under the given
// protocol version and message encoding, with one subscriber initialized per
// known message kind. Block messages use single-consumer delivery; every
// other kind fans out.
func NewMessageSubscriber(pver uint32,
	encoding wire.MessageEncoding) *MessageSubscriber {

	b := &MessageSubscriber{
		pver:     pver,
		encoding: encoding,
		entries:  make(map[MessageType]*busEntry, len(messageTypes)),
	}

	addSub(b, MessageTypeAddress, relayed,
		func() *wire.MsgAddr { return &wire.MsgAddr{} })
	addSub(b, MessageTypeAlert, relayed,
		func() *wire.MsgAlert { return &wire.MsgAlert{} })
	addSub(b, MessageTypeBlock, handled,
		func() *wire.MsgBlock { return &wire.MsgBlock{} })
	addSub(b, MessageTypeFilterAdd, relayed,
		func() *wire.MsgFilterAdd { return &wire.MsgFilterAdd{} })
	addSub(b, MessageTypeFilterClear, relayed,
		func() *wire.MsgFilterClear { return &wire.MsgFilterClear{} })
	addSub(b, MessageTypeFilterLoad, relayed,
		func() *wire.MsgFilterLoad { return &wire.MsgFilterLoad{} })
	addSub(b, MessageTypeGetAddress, relayed,
		func() *wire.MsgGetAddr { return &wire.MsgGetAddr{} })
	addSub(b, MessageTypeGetBlocks, relayed,
		func() *wire.MsgGetBlocks { return &wire.MsgGetBlocks{} })
	addSub(b, MessageTypeGetData, relayed,
		func() *wire.MsgGetData { return &wire.MsgGetData{} })
	addSub(b, MessageTypeGetHeaders, relayed,
		func() *wire.MsgGetHeaders { return &wire.MsgGetHeaders{} })
	addSub(b, MessageTypeHeaders, relayed,
		func() *wire.MsgHeaders { return &wire.MsgHeaders{} })
	addSub(b, MessageTypeInventory, relayed,
		func() *wire.MsgInv { return &wire.MsgInv{} })
	addSub(b, MessageTypeMemoryPool, relayed,
		func() *wire.MsgMemPool { return &wire.MsgMemPool{} })
	addSub(b, MessageTypeMerkleBlock, relayed,
		func() *wire.MsgMerkleBlock { return &wire.MsgMerkleBlock{} })
	addSub(b, MessageTypeNotFound, relayed,
		func() *wire.MsgNotFound { return &wire.MsgNotFound{} })
	addSub(b, MessageTypePing, relayed,
		func() *wire.MsgPing { return &wire.MsgPing{} })
	addSub(b, MessageTypePong, relayed,
		func() *wire.MsgPong { return &wire.MsgPong{} })
	addSub(b, MessageTypeReject, relayed,
		func() *wire.MsgReject { return &wire.MsgReject{} })
	addSub(b, MessageTypeTransaction, relayed,
		func() *wire.MsgTx { return &wire.MsgTx{} })
	addSub(b, MessageTypeVerack, relayed,
		func() *wire.MsgVerAck { return &wire.MsgVerAck{} })
	addSub(b, MessageTypeVersion, relayed,
		func() *wire.MsgVersion { return &wire.MsgVersion{} })

	return b
}

// Delivery disciplines for addSub.
const (
	relayed = false
	handled = true
)

// addSub installs the typed subscriber and parser for one message kind.
func addSub[M wire.Message](b *MessageSubscriber, kind MessageType,
	single bool, newMsg func() M) {

	sub := subscribe.New[M](kind.String() + "_sub")

	b.entries[kind] = &busEntry{
		sub: sub,
		load: func(r io.Reader) error {
			msg := newMsg()
			if err := msg.BtcDecode(r, b.pver, b.encoding); err != nil {
				return err
			}

			log.Tracef("Loaded %s message: %v", kind,
				newLogClosure(func() string {
					return spew.Sdump(msg)
				}))

			var err error
			if single {
				err = sub.Handle(msg)
			} else {
				err = sub.Relay(msg)
			}
			if err != nil {
				log.Debugf("Dropped %s message: %v", kind, err)
			}

			return nil
		},
	}
}

// SubscribeMessage registers a one-shot handler for the message kind matching
// the handler's message type M. The handler receives either the next message
// of that kind or the bus's terminal code. ErrNotFound is returned when M is
// not a known wire message type.
func SubscribeMessage[M wire.Message](b *MessageSubscriber,
	handler subscribe.Handler[M]) error {

	var zero M
	kind, ok := messageKinds[reflect.TypeOf(zero)]
	if !ok {
		return ErrNotFound
	}

	sub, ok := b.entries[kind].sub.(*subscribe.Subscriber[M])
	if !ok {
		return ErrNotFound
	}

	sub.Subscribe(handler)
	return nil
}

// Start opens every per-kind subscriber for delivery.
func (b *MessageSubscriber) Start() {
	for _, mtype := range messageTypes {
		b.entries[mtype].sub.Start()
	}
}

// Load parses one message of the given kind from the stream and dispatches
// it to the kind's subscribers. An unknown kind yields ErrNotFound; a parse
// failure yields the parser's error without consuming any subscriber.
func (b *MessageSubscriber) Load(mtype MessageType, r io.Reader) error {
	entry, ok := b.entries[mtype]
	if !ok {
		return ErrNotFound
	}

	return entry.load(r)
}

// Broadcast delivers err as the terminal code to every handler currently
// registered on any kind, exactly once per handler, and closes the bus to
// further deliveries.
func (b *MessageSubscriber) Broadcast(err error) {
	for _, mtype := range messageTypes {
		b.entries[mtype].sub.Stop(err)
	}
}

// Stop closes the bus, broadcasting ErrServiceStopped to every registered
// handler.
func (b *MessageSubscriber) Stop() {
	b.Broadcast(ErrServiceStopped)
}
