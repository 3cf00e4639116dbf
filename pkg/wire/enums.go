package wire

// Protocol framing constants shared by every datagram.
const (
	// Magic is the 2-byte marker opening every datagram header.
	Magic = "JL"

	// Version is the protocol version carried in every sys block.
	Version = 1

	// HeaderSize is the fixed length of the datagram header in bytes.
	HeaderSize = 10

	// Port is the UDP port hubs listen on and push reports from.
	Port = 12348

	// MaxDatagramSize bounds both reads and encoded messages.
	MaxDatagramSize = 65535

	// DefaultModel identifies this client family to the hub.
	DefaultModel = "OD_HANYUN_HA"
)

// CommandType is the command field of the datagram header.
type CommandType uint16

const (
	// CommandQuery requests device state.
	CommandQuery CommandType = 1

	// CommandReport marks hub-initiated state pushes.
	CommandReport CommandType = 2

	// CommandControl carries state changes and remote-key operations.
	CommandControl CommandType = 3
)

// String returns the command type name.
func (c CommandType) String() string {
	switch c {
	case CommandQuery:
		return "QUERY"
	case CommandReport:
		return "REPORT"
	case CommandControl:
		return "CONTROL"
	default:
		return "UNKNOWN"
	}
}

// Object names addressed by commands.
const (
	// ObjectDevices targets the full device inventory.
	ObjectDevices = "eps"

	// ObjectDevice targets a single device.
	ObjectDevice = "ep"

	// ObjectRemote targets the infrared remote subsystem.
	ObjectRemote = "spotremote"
)

// Value type codes used in device control args.
const (
	// TypeOn commands a sub-channel on.
	TypeOn = 0x81

	// TypeOff commands a sub-channel off.
	TypeOff = 0x80
)
