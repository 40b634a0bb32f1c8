package sftp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

var (
	// ErrPacketTooLarge is returned when a length prefix exceeds the limit.
	ErrPacketTooLarge = errors.New("sftp: packet too large")

	// ErrEmptyPacket is returned for a zero length prefix.
	ErrEmptyPacket = errors.New("sftp: empty packet")
)

// DefaultMaxPacketSize bounds incoming packets when no limit is configured.
// Clients commonly send 32 KiB writes; OpenSSH accepts up to 256 KiB.
const DefaultMaxPacketSize = 256 * 1024

// MaxPacketSizeLimit is the largest packet limit ReadPacket honours. Larger
// limits are clamped to it so one length prefix cannot force a huge buffer.
const MaxPacketSizeLimit = 1024 * 1024

// packetOverhead covers the type byte, request id, handle string and offset
// surrounding a WRITE or DATA payload.
const packetOverhead = 1024

// Packet is one length-delimited SFTP packet.
type Packet struct {
	Type    PacketType
	Payload []byte
}

// ReadPacket reads one packet from r. A clean end of stream before the
// length prefix returns io.EOF unwrapped; a stream that ends mid-packet
// returns io.ErrUnexpectedEOF.
func ReadPacket(r io.Reader, maxSize uint32) (*Packet, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxPacketSize
	}
	if maxSize > MaxPacketSizeLimit {
		maxSize = MaxPacketSizeLimit
	}

	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read packet length: %w", err)
	}

	length := binary.BigEndian.Uint32(hdr[:])
	if length == 0 {
		return nil, ErrEmptyPacket
	}
	if length > maxSize+packetOverhead {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrPacketTooLarge, length, maxSize+packetOverhead)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read packet body: %w", err)
	}

	return &Packet{Type: PacketType(body[0]), Payload: body[1:]}, nil
}

// Marshal encodes resp as a complete packet, length prefix included.
func Marshal(resp Response) []byte {
	w := NewWriter(64)
	w.WriteUint32(0) // length placeholder
	w.WriteUint8(uint8(resp.PacketType()))
	resp.encode(w)

	buf := w.Bytes()
	binary.BigEndian.PutUint32(buf, uint32(len(buf)-4))
	return buf
}

// WriteResponse writes resp as a single packet.
func WriteResponse(w io.Writer, resp Response) error {
	if _, err := w.Write(Marshal(resp)); err != nil {
		return fmt.Errorf("write %s: %w", resp.PacketType(), err)
	}
	return nil
}

// EncodePacket builds a raw packet from a type and payload. Used by tests
// and tools that speak the client side.
func EncodePacket(t PacketType, payload []byte) []byte {
	buf := make([]byte, 5, 5+len(payload))
	binary.BigEndian.PutUint32(buf, uint32(len(payload)+1))
	buf[4] = byte(t)
	return append(buf, payload...)
}
