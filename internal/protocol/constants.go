package protocol

// Source RCON wire layout, little-endian throughout:
//
//	int32 size   // byte count of everything after this field
//	int32 id     // request id, echoed by the server in responses
//	int32 type   // see PacketType
//	bytes body   // command or response text, no NUL inside
//	byte  0x00   // body terminator
//	byte  0x00   // packet terminator
//
// So size == 4 + 4 + len(body) + 2.

// PacketType identifies the role of a packet. AuthResponse and ExecCommand
// share the value 2 on the wire; direction disambiguates them.
type PacketType int32

const (
	TypeResponseValue PacketType = 0
	TypeAuthResponse  PacketType = 2
	TypeExecCommand   PacketType = 2
	TypeAuth          PacketType = 3
)

func (t PacketType) String() string {
	switch t {
	case TypeResponseValue:
		return "ResponseValue"
	case TypeAuthResponse:
		return "AuthResponse/ExecCommand"
	case TypeAuth:
		return "Auth"
	default:
		return "unknown"
	}
}

const (
	// packetOverhead is the id and type fields plus the two trailing NULs.
	packetOverhead = 10

	// MaxPacketSize caps the declared size field. A corrupted or hostile
	// size prefix must not cause unbounded buffering; real servers stay
	// well under 4 KiB per packet.
	MaxPacketSize = 64 * 1024

	// MaxBodySize is the largest body WritePacket accepts.
	MaxBodySize = MaxPacketSize - packetOverhead
)

// AuthDeniedID is echoed in an AuthResponse when the password is rejected.
const AuthDeniedID = -1
