package rcon

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Packet types of the Source remote console protocol. The reply to an auth
// packet has the same type value as an exec command.
const (
	typeResponseValue int32 = 0
	typeExecCommand   int32 = 2
	typeAuthResponse  int32 = 2
	typeAuth          int32 = 3
)

// maxPayload is the protocol's limit for a single packet body.
const maxPayload = 4096

type packet struct {
	id      int32
	typ     int32
	payload string
}

// writePacket writes one length-prefixed packet. The wire layout is
// {size int32le}{id int32le}{type int32le}{payload}{0x00 0x00} where size
// counts everything after itself.
func writePacket(w io.Writer, p packet) error {
	size := int32(4 + 4 + len(p.payload) + 2)

	buf := make([]byte, 0, 4+size)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(size))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.id))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(p.typ))
	buf = append(buf, p.payload...)
	buf = append(buf, 0x00, 0x00)

	_, err := w.Write(buf)

	return err
}

// readPacket reads one complete packet, buffering until the number of
// bytes declared in the size field has arrived. A size that can't be a
// valid packet is a desync.
func readPacket(r io.Reader) (packet, error) {
	var head [4]byte

	if _, err := io.ReadFull(r, head[:]); err != nil {
		return packet{}, err
	}

	size := int32(binary.LittleEndian.Uint32(head[:]))

	if size < 10 || size > maxPayload+10 {
		return packet{}, fmt.Errorf("%w: invalid packet size %d", ErrDesync, size)
	}

	body := make([]byte, size)

	if _, err := io.ReadFull(r, body); err != nil {
		return packet{}, err
	}

	if body[size-2] != 0x00 || body[size-1] != 0x00 {
		return packet{}, fmt.Errorf("%w: missing packet terminator", ErrDesync)
	}

	p := packet{
		id:      int32(binary.LittleEndian.Uint32(body[0:4])),
		typ:     int32(binary.LittleEndian.Uint32(body[4:8])),
		payload: string(body[8 : size-2]),
	}

	return p, nil
}
