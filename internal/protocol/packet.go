package protocol

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	ErrPacketTooLarge    = errors.New("packet exceeds maximum size")
	ErrMalformedSize     = errors.New("malformed packet size")
	ErrMissingTerminator = errors.New("missing packet terminator")
	ErrBodyContainsNUL   = errors.New("body contains NUL byte")
)

// Packet is one RCON frame. Body holds the text without the trailing NULs;
// the codec adds and strips them.
type Packet struct {
	ID   int32
	Type PacketType
	Body []byte
}

// WritePacket serializes p and writes it with a single Write call, so a
// packet is never split across writes from the caller's point of view.
func WritePacket(w io.Writer, p *Packet) error {
	if len(p.Body) > MaxBodySize {
		return ErrPacketTooLarge
	}
	if bytes.IndexByte(p.Body, 0) >= 0 {
		return ErrBodyContainsNUL
	}

	size := packetOverhead + len(p.Body)
	buf := make([]byte, 4+size)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(size))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(p.ID))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(p.Type))
	copy(buf[12:], p.Body)
	// The two terminator NULs are the zeroed tail of buf.

	_, err := w.Write(buf)
	return err
}

// ReadPacket reads exactly one packet from r, accumulating bytes until the
// declared size is satisfied. Packet boundaries need not align with TCP
// segment boundaries. A negative, short, or oversized declared size fails
// without consuming the remainder.
func ReadPacket(r io.Reader) (*Packet, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	size := int32(binary.LittleEndian.Uint32(hdr[:]))
	if size < packetOverhead {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrMalformedSize, size)
	}
	if size > MaxPacketSize {
		return nil, fmt.Errorf("%w: declared %d bytes", ErrPacketTooLarge, size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}

	if payload[size-1] != 0 || payload[size-2] != 0 {
		return nil, ErrMissingTerminator
	}

	return &Packet{
		ID:   int32(binary.LittleEndian.Uint32(payload[0:4])),
		Type: PacketType(int32(binary.LittleEndian.Uint32(payload[4:8]))),
		Body: payload[8 : size-2],
	}, nil
}
