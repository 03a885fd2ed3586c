package eventsource

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/instagibbs/anticycle/internal/cycle"
)

// Source is the interface cmd/anticycled drives the engine with; the
// cycle package itself never imports this — it is pure transport.
type Source interface {
	Next(ctx context.Context) (cycle.Event, error)
	Close() error
}

// ZMQSource subscribes to a bitcoind zmqpub* PUB socket and decodes its
// multipart notifications. It speaks the ZMTP 3.0 wire protocol's NULL
// security mechanism, the same one libzmq uses by default for a local,
// unauthenticated PUB/SUB feed.
type ZMQSource struct {
	conn net.Conn
	r    *bufio.Reader
}

// Dial connects to endpoint (e.g. "tcp://localhost:28332") and completes
// the ZMTP handshake and subscription.
func Dial(ctx context.Context, endpoint string) (*ZMQSource, error) {
	addr, err := parseEndpoint(endpoint)
	if err != nil {
		return nil, err
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("eventsource: dial %s: %w", addr, err)
	}

	s := &ZMQSource{conn: conn, r: bufio.NewReader(conn)}
	if err := s.handshake(); err != nil {
		conn.Close()
		return nil, err
	}
	if err := s.subscribeAll(); err != nil {
		conn.Close()
		return nil, err
	}
	return s, nil
}

func parseEndpoint(endpoint string) (string, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("eventsource: bad endpoint %q: %w", endpoint, err)
	}
	if u.Scheme != "tcp" {
		return "", fmt.Errorf("eventsource: unsupported scheme %q (only tcp:// is supported)", u.Scheme)
	}
	return u.Host, nil
}

// zmtpSignature is the fixed 10-byte ZMTP greeting signature.
var zmtpSignature = []byte{0xFF, 0, 0, 0, 0, 0, 0, 0, 1, 0x7F}

// handshake performs the minimal ZMTP 3.0 greeting + NULL-mechanism
// handshake (socket-type negotiation only; no security, matching
// libzmq's default unauthenticated local PUB socket).
func (s *ZMQSource) handshake() error {
	greeting := make([]byte, 64)
	copy(greeting[0:10], zmtpSignature)
	greeting[10] = 3 // version major
	greeting[11] = 0 // version minor
	copy(greeting[12:32], "NULL")
	// remaining bytes (as-server flag, filler) stay zero.

	if _, err := s.conn.Write(greeting); err != nil {
		return fmt.Errorf("eventsource: write greeting: %w", err)
	}

	peerGreeting := make([]byte, 64)
	if _, err := io.ReadFull(s.r, peerGreeting); err != nil {
		return fmt.Errorf("eventsource: read greeting: %w", err)
	}
	if peerGreeting[0] != zmtpSignature[0] {
		return fmt.Errorf("eventsource: unexpected greeting signature")
	}

	// READY command identifying us as a SUB socket.
	ready := buildReadyCommand("SUB")
	if _, err := s.conn.Write(ready); err != nil {
		return fmt.Errorf("eventsource: write READY: %w", err)
	}

	// Consume the peer's READY command before the first real message.
	if _, err := readCommandOrMessage(s.r); err != nil {
		return fmt.Errorf("eventsource: read peer READY: %w", err)
	}
	return nil
}

func buildReadyCommand(socketType string) []byte {
	var props []byte
	props = append(props, 0x0B) // "Socket-Type" property-name length
	props = append(props, "Socket-Type"...)
	props = appendBE32(props, uint32(len(socketType)))
	props = append(props, socketType...)

	cmdName := "READY"
	body := []byte{byte(len(cmdName))}
	body = append(body, cmdName...)
	body = append(body, props...)

	frame := []byte{0x04} // flags: command frame, not long, not more
	frame = append(frame, byte(len(body)))
	frame = append(frame, body...)
	return frame
}

func appendBE32(b []byte, v uint32) []byte {
	return append(b, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
}

// subscribeAll sends an empty-prefix SUBSCRIBE frame, matching the
// Python original's `socket.setsockopt_string(zmq.SUBSCRIBE, '')`.
func (s *ZMQSource) subscribeAll() error {
	// Single-frame message: flags=0x00 (final, not command), length=1, body=[0x01] (subscribe, empty prefix).
	msg := []byte{0x00, 0x01, 0x01}
	_, err := s.conn.Write(msg)
	return err
}

// Next blocks until the next three-frame notification arrives, decoding
// it into a cycle.Event. ctx cancellation is honored via the connection's
// read deadline.
func (s *ZMQSource) Next(ctx context.Context) (cycle.Event, error) {
	if dl, ok := ctx.Deadline(); ok {
		s.conn.SetReadDeadline(dl)
	} else {
		s.conn.SetReadDeadline(time.Time{})
	}
	stop := context.AfterFunc(ctx, func() { s.conn.SetReadDeadline(time.Now()) })
	defer stop()

	topic, err := s.readFrame()
	if err != nil {
		return cycle.Event{}, err
	}
	body, err := s.readFrame()
	if err != nil {
		return cycle.Event{}, err
	}
	seq, err := s.readFrame()
	if err != nil {
		return cycle.Event{}, err
	}
	return DecodeFrames(topic, body, seq) // topic itself is ignored by engine logic per spec §4.2
}

// Close tears down the connection.
func (s *ZMQSource) Close() error {
	return s.conn.Close()
}

// readFrame reads one ZMTP frame and returns its payload. Each part of a
// multipart notification (topic, body, sequence) is its own frame, so Next
// calls this once per part.
func (s *ZMQSource) readFrame() ([]byte, error) {
	flags, err := s.r.ReadByte()
	if err != nil {
		return nil, err
	}
	length, err := readFrameLength(s.r, flags)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	if _, err := io.ReadFull(s.r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func readFrameLength(r *bufio.Reader, flags byte) (uint64, error) {
	if flags&0x02 != 0 { // long frame
		b := make([]byte, 8)
		if _, err := io.ReadFull(r, b); err != nil {
			return 0, err
		}
		var v uint64
		for _, c := range b {
			v = v<<8 | uint64(c)
		}
		return v, nil
	}
	b, err := r.ReadByte()
	return uint64(b), err
}

// readCommandOrMessage drains a single ZMTP frame used only during the
// handshake, where we don't care about its contents.
func readCommandOrMessage(r *bufio.Reader) ([]byte, error) {
	flags, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	length, err := readFrameLength(r, flags)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, length)
	_, err = io.ReadFull(r, payload)
	return payload, err
}

// String implements fmt.Stringer for diagnostics.
func (s *ZMQSource) String() string {
	return strings.TrimSpace(fmt.Sprintf("zmq-source(%s)", s.conn.RemoteAddr()))
}
