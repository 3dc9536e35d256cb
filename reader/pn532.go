package reader

import (
	"context"
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// PN532 command codes (host protocol, UM0701-02).
const (
	hostToPN532 = 0xD4
	pn532ToHost = 0xD5

	cmdSAMConfiguration    = 0x14
	cmdInListPassiveTarget = 0x4A
	cmdInDataExchange      = 0x40

	// Type 2 tag READ command, returns 16 bytes starting at the given block.
	t2ReadCmd = 0x30

	// NDEF data area cap. MIFARE Ultralight C tops out at 144 bytes, which
	// is the largest tag the installation uses.
	maxNDEFBytes = 144
)

// ackFrame both acknowledges and, when sent by the host, aborts a command
// still waiting in the PN532 (how a bounded poll gives up on a listen).
var ackFrame = []byte{0x00, 0x00, 0xFF, 0x00, 0xFF, 0x00}

// PN532 implements TagPoller for PN532 NFC modules attached over a serial
// (FTDI USB) adapter.
type PN532 struct {
	port   *serial.Port
	device string
	buf    []byte
}

// NewPN532 opens the serial device and puts the module in normal mode.
// An unresponsive module is reported as an error so the caller can exclude
// the reader at startup.
func NewPN532(device string, baud int) (*PN532, error) {
	if baud == 0 {
		baud = 115200
	}
	c := &serial.Config{
		Name:        device,
		Baud:        baud,
		ReadTimeout: 50 * time.Millisecond,
	}
	port, err := serial.OpenPort(c)
	if err != nil {
		return nil, fmt.Errorf("open serial %s: %w", device, err)
	}

	r := &PN532{port: port, device: device}

	// HSU wakeup preamble before the first command.
	if _, err := port.Write([]byte{0x55, 0x55, 0x00, 0x00, 0x00}); err != nil {
		port.Close()
		return nil, fmt.Errorf("wake %s: %w", device, err)
	}

	// SAMConfiguration: normal mode, no virtual card timeout.
	resp, err := r.command(cmdSAMConfiguration, []byte{0x01, 0x14, 0x01}, time.Second)
	if err != nil {
		port.Close()
		return nil, fmt.Errorf("configure %s: %w", device, err)
	}
	if resp == nil {
		port.Close()
		return nil, fmt.Errorf("reader %s unresponsive, power cycle and retry", device)
	}

	return r, nil
}

// Poll implements TagPoller.Poll. It lists one passive 106 kbps type A
// target, reading the tag's NDEF text record when it has one.
func (r *PN532) Poll(ctx context.Context, timeout time.Duration) (*Tag, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	resp, err := r.command(cmdInListPassiveTarget, []byte{0x01, 0x00}, timeout)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		// Nothing entered the field within the window.
		return nil, nil
	}

	uid := parseTargetUID(resp)
	if uid == nil {
		return nil, fmt.Errorf("reader %s: malformed target response % x", r.device, resp)
	}

	// Best effort: tags without an NDEF area are still valid UID triggers.
	return &Tag{UID: uid, Payload: r.readNDEFText()}, nil
}

// Close implements TagPoller.Close.
func (r *PN532) Close() error {
	if r.port == nil {
		return nil
	}
	return r.port.Close()
}

// command sends one command frame and waits for its response. A nil, nil
// return means the PN532 acked the command but produced no response within
// the timeout; the command is aborted before returning.
func (r *PN532) command(cmd byte, args []byte, timeout time.Duration) ([]byte, error) {
	r.buf = r.buf[:0]
	if _, err := r.port.Write(buildFrame(cmd, args)); err != nil {
		return nil, fmt.Errorf("write cmd %#02x: %w", cmd, err)
	}
	deadline := time.Now().Add(timeout)

	acked := false
	for {
		f, err := r.readFrame(deadline)
		if err != nil {
			return nil, err
		}
		if f == nil {
			if !acked {
				return nil, fmt.Errorf("no ack for cmd %#02x", cmd)
			}
			// Still listening; cancel so the next cycle starts clean.
			r.port.Write(ackFrame)
			return nil, nil
		}
		if len(f) == 0 {
			acked = true
			continue
		}
		if len(f) >= 2 && f[0] == pn532ToHost && f[1] == cmd+1 {
			return f[2:], nil
		}
		// Stale frame from an earlier aborted command, keep reading.
	}
}

// readFrame accumulates serial input until a complete frame parses or the
// deadline passes (nil, nil).
func (r *PN532) readFrame(deadline time.Time) ([]byte, error) {
	chunk := make([]byte, 64)
	for {
		if body, rest, ok, err := parseFrame(r.buf); err != nil {
			r.buf = r.buf[:0]
			return nil, err
		} else if ok {
			// body aliases r.buf, detach it before compacting.
			out := make([]byte, len(body))
			copy(out, body)
			r.buf = append(r.buf[:0], rest...)
			return out, nil
		}
		if time.Now().After(deadline) {
			return nil, nil
		}
		n, err := r.port.Read(chunk)
		if err != nil || n == 0 {
			// Read timeout tick, keep waiting until the deadline.
			continue
		}
		r.buf = append(r.buf, chunk[:n]...)
	}
}

// buildFrame wraps a command and its arguments in the PN532 host frame:
// [00 00 FF][LEN][LCS][TFI cmd args...][DCS][00].
func buildFrame(cmd byte, args []byte) []byte {
	data := make([]byte, 0, len(args)+2)
	data = append(data, hostToPN532, cmd)
	data = append(data, args...)

	ln := byte(len(data))
	f := make([]byte, 0, len(data)+7)
	f = append(f, 0x00, 0x00, 0xFF, ln, ^ln+1)
	f = append(f, data...)

	var sum byte
	for _, b := range data {
		sum += b
	}
	return append(f, ^sum+1, 0x00)
}

// parseFrame extracts the first complete frame from buf. body is the frame
// payload starting at TFI (empty for an ack), rest is the unconsumed input,
// ok reports whether a full frame was present.
func parseFrame(buf []byte) (body, rest []byte, ok bool, err error) {
	for i := 0; i+1 < len(buf); i++ {
		if buf[i] != 0x00 || buf[i+1] != 0xFF {
			continue
		}
		if i+3 >= len(buf) {
			return nil, nil, false, nil
		}
		ln, lcs := buf[i+2], buf[i+3]
		if ln == 0x00 && lcs == 0xFF {
			// Ack frame.
			return []byte{}, buf[i+4:], true, nil
		}
		if ln+lcs != 0 {
			// Not a length field, keep scanning.
			continue
		}
		end := i + 4 + int(ln) + 1
		if end > len(buf) {
			return nil, nil, false, nil
		}
		body = buf[i+4 : i+4+int(ln)]
		var sum byte
		for _, b := range body {
			sum += b
		}
		if sum+buf[end-1] != 0 {
			return nil, nil, false, fmt.Errorf("frame checksum mismatch")
		}
		return body, buf[end:], true, nil
	}
	return nil, nil, false, nil
}

// parseTargetUID pulls the NFCID out of an InListPassiveTarget response:
// [NbTg][Tg][SENS_RES(2)][SEL_RES][IDLen][ID...].
func parseTargetUID(resp []byte) []byte {
	if len(resp) < 6 || resp[0] == 0 {
		return nil
	}
	idLen := int(resp[5])
	if idLen == 0 || len(resp) < 6+idLen {
		return nil
	}
	return resp[6 : 6+idLen]
}

// readNDEFText reads the tag's data area block by block until the NDEF TLV
// is complete, returning the text of the first NDEF record. Anything that
// does not parse as an NDEF text record yields "".
func (r *PN532) readNDEFText() string {
	var raw []byte
	for block := byte(4); int(block)*4 < maxNDEFBytes+16; block += 4 {
		resp, err := r.command(cmdInDataExchange, []byte{0x01, t2ReadCmd, block}, 200*time.Millisecond)
		if err != nil || len(resp) < 17 || resp[0] != 0x00 {
			return ""
		}
		raw = append(raw, resp[1:17]...)

		msg, complete := extractNDEFMessage(raw)
		if complete {
			return decodeTextRecord(msg)
		}
		if msg == nil {
			return ""
		}
	}
	return ""
}

// extractNDEFMessage scans the Type 2 tag TLV area for the NDEF message TLV
// (0x03). complete is false while more blocks are needed; a nil message with
// complete false means there is no NDEF message to find.
func extractNDEFMessage(data []byte) (msg []byte, complete bool) {
	i := 0
	for i < len(data) {
		switch data[i] {
		case 0x00: // null TLV
			i++
		case 0xFE: // terminator
			return nil, false
		case 0x03:
			if i+1 >= len(data) {
				return []byte{}, false
			}
			l := int(data[i+1])
			if data[i+1] == 0xFF {
				// Three-byte lengths exceed anything these tags hold.
				return nil, false
			}
			if i+2+l > len(data) {
				return []byte{}, false
			}
			return data[i+2 : i+2+l], true
		default:
			if i+1 >= len(data) {
				return []byte{}, false
			}
			i += 2 + int(data[i+1])
		}
	}
	return []byte{}, false
}

// decodeTextRecord returns the text of the first record when it is a short
// well-known "T" record, else "".
func decodeTextRecord(msg []byte) string {
	if len(msg) < 3 {
		return ""
	}
	header := msg[0]
	tnf := header & 0x07
	short := header&0x10 != 0
	hasID := header&0x08 != 0
	if tnf != 0x01 || !short {
		return ""
	}

	typeLen := int(msg[1])
	payloadLen := int(msg[2])
	off := 3
	idLen := 0
	if hasID {
		if len(msg) < 4 {
			return ""
		}
		idLen = int(msg[3])
		off = 4
	}
	if typeLen != 1 || len(msg) < off+typeLen+idLen+payloadLen || msg[off] != 'T' {
		return ""
	}
	payload := msg[off+typeLen+idLen : off+typeLen+idLen+payloadLen]
	if len(payload) < 1 {
		return ""
	}
	langLen := int(payload[0] & 0x3F)
	if 1+langLen > len(payload) {
		return ""
	}
	return string(payload[1+langLen:])
}
