// Package cycle implements the replacement-cycling detection state engine:
// the per-event state machine described by the project's cycle-detection
// specification. It is the hard, novel part of anticycle — everything
// else in the repository exists to feed it events and carry out its
// resubmission decisions.
package cycle

import (
	"context"
	"fmt"

	"github.com/instagibbs/anticycle/internal/feerate"
)

// UTXO identifies a spendable output by its outpoint.
type UTXO struct {
	PrevTxid [32]byte
	Vout     uint32
}

func (u UTXO) String() string {
	return fmt.Sprintf("%x:%d", u.PrevTxid, u.Vout)
}

// RawTx is the minimal view of a transaction the engine needs: enough to
// account its serialized size and to walk its spent outpoints.
type RawTx struct {
	Txid   string
	Hex    string
	Inputs []UTXO
	Size   uint64 // byte_size(tx); source of dummy_bytes/protected_bytes accounting.
}

// MempoolEntry mirrors the fields of getmempoolentry the classifier needs.
// Fees are kept in satoshis (integers) so effective-feerate arithmetic
// never crosses into floating point.
type MempoolEntry struct {
	AncestorCount uint32
	AncestorSize  uint64 // vbytes
	AncestorFees  uint64 // satoshis
}

// EffectiveRate computes the ancestor-aggregate feerate in sat/kvB.
func (e MempoolEntry) EffectiveRate() feerate.Rate {
	return feerate.FromAncestorFees(e.AncestorFees, e.AncestorSize)
}

// Label enumerates the mempool notification types the event source
// delivers (spec §4.2).
type Label byte

const (
	LabelAdd     Label = 'A'
	LabelRemove  Label = 'R'
	LabelBlockC  Label = 'C'
	LabelBlockD  Label = 'D'
)

// Event is one decoded mempool notification.
type Event struct {
	Txid     [32]byte
	Label    Label
	Sequence uint32 // logging/drop-detection only; never used for correctness.
}

// TxFetcher retrieves a transaction's body by txid.
type TxFetcher interface {
	GetRawTransaction(ctx context.Context, txid string) (*RawTx, bool, error)
}

// EntryFetcher retrieves a transaction's current mempool entry.
type EntryFetcher interface {
	GetMempoolEntry(ctx context.Context, txid string) (*MempoolEntry, bool, error)
}

// Resubmitter re-broadcasts a raw transaction. Any outcome is informational
// only: the engine never mutates its cache state based on the result
// (spec §4.9).
type Resubmitter interface {
	SendRawTransaction(ctx context.Context, hex string) (txid string, ok bool, err error)
}

// RateOracle supplies the current top-block feerate threshold.
type RateOracle interface {
	TopBlockRate(ctx context.Context) (feerate.Rate, error)
}

// Logger is the minimal logging surface cycle needs, kept separate from
// the stdlib log.Logger so the engine stays unit-testable without
// capturing stdout.
type Logger interface {
	Printf(format string, args ...any)
}

// NopLogger discards everything; useful in tests.
type NopLogger struct{}

func (NopLogger) Printf(string, ...any) {}
