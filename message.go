package network

import "github.com/btcsuite/btcd/wire"

// MessageType discriminates the known wire message kinds. The zero value is
// MessageTypeUnknown, which no parser is registered for.
type MessageType int

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeAddress
	MessageTypeAlert
	MessageTypeBlock
	MessageTypeFilterAdd
	MessageTypeFilterClear
	MessageTypeFilterLoad
	MessageTypeGetAddress
	MessageTypeGetBlocks
	MessageTypeGetData
	MessageTypeGetHeaders
	MessageTypeHeaders
	MessageTypeInventory
	MessageTypeMemoryPool
	MessageTypeMerkleBlock
	MessageTypeNotFound
	MessageTypePing
	MessageTypePong
	MessageTypeReject
	MessageTypeTransaction
	MessageTypeVerack
	MessageTypeVersion
)

// messageTypes enumerates every known kind in a stable order, used when the
// bus needs to visit all subscribers uniformly.
var messageTypes = []MessageType{
	MessageTypeAddress,
	MessageTypeAlert,
	MessageTypeBlock,
	MessageTypeFilterAdd,
	MessageTypeFilterClear,
	MessageTypeFilterLoad,
	MessageTypeGetAddress,
	MessageTypeGetBlocks,
	MessageTypeGetData,
	MessageTypeGetHeaders,
	MessageTypeHeaders,
	MessageTypeInventory,
	MessageTypeMemoryPool,
	MessageTypeMerkleBlock,
	MessageTypeNotFound,
	MessageTypePing,
	MessageTypePong,
	MessageTypeReject,
	MessageTypeTransaction,
	MessageTypeVerack,
	MessageTypeVersion,
}

// commandTypes maps the wire command string carried in a message header to
// the kind it discriminates.
var commandTypes = map[string]MessageType{
	wire.CmdAddr:        MessageTypeAddress,
	wire.CmdAlert:       MessageTypeAlert,
	wire.CmdBlock:       MessageTypeBlock,
	wire.CmdFilterAdd:   MessageTypeFilterAdd,
	wire.CmdFilterClear: MessageTypeFilterClear,
	wire.CmdFilterLoad:  MessageTypeFilterLoad,
	wire.CmdGetAddr:     MessageTypeGetAddress,
	wire.CmdGetBlocks:   MessageTypeGetBlocks,
	wire.CmdGetData:     MessageTypeGetData,
	wire.CmdGetHeaders:  MessageTypeGetHeaders,
	wire.CmdHeaders:     MessageTypeHeaders,
	wire.CmdInv:         MessageTypeInventory,
	wire.CmdMemPool:     MessageTypeMemoryPool,
	wire.CmdMerkleBlock: MessageTypeMerkleBlock,
	wire.CmdNotFound:    MessageTypeNotFound,
	wire.CmdPing:        MessageTypePing,
	wire.CmdPong:        MessageTypePong,
	wire.CmdReject:      MessageTypeReject,
	wire.CmdTx:          MessageTypeTransaction,
	wire.CmdVerAck:      MessageTypeVerack,
	wire.CmdVersion:     MessageTypeVersion,
}

// typeCommands is the inverse of commandTypes, built once at init.
var typeCommands = func() map[MessageType]string {
	commands := make(map[MessageType]string, len(commandTypes))
	for command, mtype := range commandTypes {
		commands[mtype] = command
	}
	return commands
}()

// MessageTypeFromCommand returns the message kind discriminated by the given
// wire command string, or MessageTypeUnknown if the command is not known.
func MessageTypeFromCommand(command string) MessageType {
	return commandTypes[command]
}

// String returns the wire command string of the message kind, or "unknown".
func (t MessageType) String() string {
	if command, ok := typeCommands[t]; ok {
		return command
	}
	return "unknown"
}
