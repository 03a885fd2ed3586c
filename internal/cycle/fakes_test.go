package cycle

import (
	"context"
	"encoding/hex"
	"testing"

	"github.com/instagibbs/anticycle/internal/feerate"
)

// fakeEntries/fakeTxs/fakeResubmitter/fakeOracle are the minimal in-memory
// stand-ins for the engine's external collaborators, used to drive the
// scenario tests from spec.md §8 without a real node.

type fakeEntries struct {
	entries map[string]*MempoolEntry
}

func (f *fakeEntries) GetMempoolEntry(_ context.Context, txid string) (*MempoolEntry, bool, error) {
	e, ok := f.entries[txid]
	if !ok {
		return nil, false, nil
	}
	return e, true, nil
}

type fakeTxs struct {
	txs map[string]*RawTx
}

func (f *fakeTxs) GetRawTransaction(_ context.Context, txid string) (*RawTx, bool, error) {
	tx, ok := f.txs[txid]
	if !ok {
		return nil, false, nil
	}
	return tx, true, nil
}

type resubmission struct {
	txid string
	hex  string
}

type fakeResubmitter struct {
	calls []resubmission
}

func (f *fakeResubmitter) SendRawTransaction(_ context.Context, hexTx string) (string, bool, error) {
	f.calls = append(f.calls, resubmission{hex: hexTx})
	return "deadbeef", true, nil
}

type fakeOracle struct {
	rate feerate.Rate
}

func (f *fakeOracle) TopBlockRate(_ context.Context) (feerate.Rate, error) {
	return f.rate, nil
}

// testHarness bundles one Engine wired to fakes, plus helpers for
// building txids/UTXOs and emitting events.
type testHarness struct {
	t           *testing.T
	engine      *Engine
	entries     *fakeEntries
	txs         *fakeTxs
	resubmitter *fakeResubmitter
	budget      uint64
}

func newHarness(t *testing.T, budget uint64, topblockRate feerate.Rate) *testHarness {
	entries := &fakeEntries{entries: make(map[string]*MempoolEntry)}
	txs := &fakeTxs{txs: make(map[string]*RawTx)}
	resubmitter := &fakeResubmitter{}
	oracle := &fakeOracle{rate: topblockRate}

	e := NewEngine(txs, entries, resubmitter, oracle, budget)
	e.topblockRate = topblockRate

	return &testHarness{t: t, engine: e, entries: entries, txs: txs, resubmitter: resubmitter, budget: budget}
}

func txidBytes(t *testing.T, seed byte) [32]byte {
	t.Helper()
	var b [32]byte
	b[0] = seed
	return b
}

func txidHex(b [32]byte) string {
	return hex.EncodeToString(b[:])
}

func utxoOf(prevTxidHex string, vout uint32) UTXO {
	var u UTXO
	raw, _ := hex.DecodeString(prevTxidHex)
	copy(u.PrevTxid[:], raw)
	u.Vout = vout
	return u
}

// registerTx records a synthetic transaction with the given mempool entry
// (nil if it should be reported absent) and input list.
func (h *testHarness) registerTx(txidSeed byte, size uint64, entry *MempoolEntry, inputs []UTXO) (string, [32]byte) {
	b := txidBytes(h.t, txidSeed)
	txid := txidHex(b)
	h.txs.txs[txid] = &RawTx{Txid: txid, Hex: "hex" + txid, Inputs: inputs, Size: size}
	if entry != nil {
		h.entries.entries[txid] = entry
	}
	return txid, b
}

func (h *testHarness) add(b [32]byte) {
	h.engine.HandleEvent(context.Background(), Event{Txid: b, Label: LabelAdd})
}

func (h *testHarness) remove(b [32]byte) {
	h.engine.HandleEvent(context.Background(), Event{Txid: b, Label: LabelRemove})
}

func (h *testHarness) blockTip() {
	h.engine.HandleEvent(context.Background(), Event{Txid: [32]byte{}, Label: LabelBlockC})
}
