// Package eventsource decodes the mempool notification stream spec.md §6
// describes: a ZeroMQ PUB/SUB feed of three-frame messages (topic, body,
// sequence). Bitcoin Core's zmqpubhashtx/zmqpubsequence notifiers are the
// real producer; no ZeroMQ client library appears anywhere in the
// retrieved example pack (see DESIGN.md), so the minimal ZMTP 3.0 framing
// this needs is implemented directly over net.Conn.
package eventsource

import (
	"encoding/binary"
	"fmt"

	"github.com/instagibbs/anticycle/internal/cycle"
)

// DecodeBody splits a notification body into the 32-byte txid and its
// 1-byte label (spec §4.2: body = txid[32] || label[1]).
func DecodeBody(body []byte) (txid [32]byte, label cycle.Label, err error) {
	if len(body) != 33 {
		return txid, 0, fmt.Errorf("eventsource: body has %d bytes, want 33", len(body))
	}
	copy(txid[:], body[:32])
	return txid, cycle.Label(body[32]), nil
}

// DecodeSequence parses the little-endian uint32 sequence frame.
func DecodeSequence(seq []byte) (uint32, error) {
	if len(seq) != 4 {
		return 0, fmt.Errorf("eventsource: sequence has %d bytes, want 4", len(seq))
	}
	return binary.LittleEndian.Uint32(seq), nil
}

// DecodeFrames assembles a full multipart message into a cycle.Event.
// topic is accepted but ignored by engine logic per spec §4.2.
func DecodeFrames(topic, body, seq []byte) (cycle.Event, error) {
	txid, label, err := DecodeBody(body)
	if err != nil {
		return cycle.Event{}, err
	}
	sequence, err := DecodeSequence(seq)
	if err != nil {
		return cycle.Event{}, err
	}
	return cycle.Event{Txid: txid, Label: label, Sequence: sequence}, nil
}
