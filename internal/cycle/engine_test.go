package cycle

import (
	"testing"

	"github.com/instagibbs/anticycle/internal/feerate"
)

// TestS1SingleCycleSingleResubmit implements spec.md §8 scenario S1.
func TestS1SingleCycleSingleResubmit(t *testing.T) {
	rate := feerate.FromSatsPerKVB(50_000) // 50 sat/vB threshold
	h := newHarness(t, 1<<30, rate)

	u1 := UTXO{PrevTxid: [32]byte{0xAA}, Vout: 0}

	entryA := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 20_000} // 100 sat/vB
	txidA, bA := h.registerTx(1, 250, entryA, []UTXO{u1})

	h.add(bA)

	entryB := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 2_000} // 10 sat/vB
	_, bB := h.registerTx(2, 250, entryB, []UTXO{u1})

	h.remove(bA)
	h.add(bB)

	e := h.engine
	if got := e.cycledCount(u1); got != 1 {
		t.Errorf("utxo_cycled_count[u1] = %d, want 1", got)
	}
	if len(h.resubmitter.calls) != 1 {
		t.Fatalf("sendrawtransaction called %d times, want 1", len(h.resubmitter.calls))
	}
	if _, ok := e.protectedCache[txidA]; !ok {
		t.Errorf("protected_cache missing tx_A (%s)", txidA)
	}
	if e.utxoCache[u1] != txidA {
		t.Errorf("utxo_cache[u1] = %s, want %s", e.utxoCache[u1], txidA)
	}
}

// TestS2BottomToTopEviction implements spec.md §8 scenario S2, continuing S1.
func TestS2BottomToTopEviction(t *testing.T) {
	rate := feerate.FromSatsPerKVB(50_000)
	h := newHarness(t, 1<<30, rate)

	u1 := UTXO{PrevTxid: [32]byte{0xAA}, Vout: 0}

	entryA := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 20_000}
	_, bA := h.registerTx(1, 250, entryA, []UTXO{u1})
	h.add(bA)

	entryB := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 2_000}
	_, bB := h.registerTx(2, 250, entryB, []UTXO{u1})
	h.remove(bA)
	h.add(bB)

	// Continue: Add tx_C (inputs: u1) at rate 200 sat/vB (top-block).
	entryC := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 40_000} // 200 sat/vB
	_, bC := h.registerTx(3, 250, entryC, []UTXO{u1})
	h.add(bC)

	e := h.engine
	if len(e.protectedCache) != 0 {
		t.Errorf("protected_cache should be empty, has %d entries", len(e.protectedCache))
	}
	if _, ok := e.utxoCache[u1]; ok {
		t.Errorf("utxo_cache should have no entry for u1")
	}
	if len(e.cycledInputSet) != 0 {
		t.Errorf("cycled_input_set should be empty, has %d entries", len(e.cycledInputSet))
	}
	if got := e.cycledCount(u1); got != 1 {
		t.Errorf("utxo_cycled_count[u1] = %d, want to remain 1", got)
	}
}

// TestS3MissingMempoolEntry implements spec.md §8 scenario S3.
func TestS3MissingMempoolEntry(t *testing.T) {
	rate := feerate.FromSatsPerKVB(50_000)
	h := newHarness(t, 1<<30, rate)

	u1 := UTXO{PrevTxid: [32]byte{0xAA}, Vout: 0}
	entryA := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 20_000}
	_, bA := h.registerTx(1, 250, entryA, []UTXO{u1})
	h.add(bA)
	h.remove(bA)

	// Next Add for tx_X, but no mempool entry registered for it (null).
	bX := txidBytes(t, 9)
	h.add(bX)

	e := h.engine
	if len(e.utxosBeingDoublespent) != 0 {
		t.Errorf("utxos_being_doublespent should be cleared, has %d entries", len(e.utxosBeingDoublespent))
	}
	if len(h.resubmitter.calls) != 0 {
		t.Errorf("no resubmit expected, got %d calls", len(h.resubmitter.calls))
	}
	if len(e.protectedCache) != 0 {
		t.Errorf("protected_cache should be unchanged (empty), has %d entries", len(e.protectedCache))
	}
}

// TestS4DisjointnessRefusal implements spec.md §8 scenario S4.
func TestS4DisjointnessRefusal(t *testing.T) {
	rate := feerate.FromSatsPerKVB(50_000)
	h := newHarness(t, 1<<30, rate)

	u1 := UTXO{PrevTxid: [32]byte{0x01}, Vout: 0}
	u2 := UTXO{PrevTxid: [32]byte{0x02}, Vout: 0}
	u3 := UTXO{PrevTxid: [32]byte{0x03}, Vout: 0}

	// Seed protected_cache with tx_P spending {u1, u2} via the S1-style path.
	// tx_Q (inputs {u3, u2}) is admitted to dummy_cache as top-block before
	// tx_P is protected: a top-block Add respending u2 after that point would
	// be a Bottom->Top transition and evict tx_P.
	entryP := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 20_000}
	txidP, bP := h.registerTx(1, 250, entryP, []UTXO{u1, u2})
	h.add(bP)
	entryQ := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 20_000}
	_, bQ := h.registerTx(3, 250, entryQ, []UTXO{u3, u2})
	h.add(bQ)
	entryPReplacement := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 2_000}
	_, bPReplacement := h.registerTx(2, 250, entryPReplacement, []UTXO{u1, u2})
	h.remove(bP)
	h.add(bPReplacement)

	e := h.engine
	if _, ok := e.protectedCache[txidP]; !ok {
		t.Fatalf("setup failed: tx_P not protected")
	}

	// Remove tx_Q (inputs {u3, u2}); next Add at below-top rate.
	entryQReplacement := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 2_000}
	_, bQReplacement := h.registerTx(4, 250, entryQReplacement, []UTXO{u3, u2})
	h.remove(bQ)
	h.add(bQReplacement)

	if len(e.protectedCache) != 1 {
		t.Errorf("protected_cache should still only contain tx_P, has %d entries", len(e.protectedCache))
	}
	if _, ok := e.protectedCache[txidP]; !ok {
		t.Errorf("tx_P should remain protected")
	}
	if got := e.cycledCount(u3); got != 1 {
		t.Errorf("utxo_cycled_count[u3] = %d, want 1 (still increments)", got)
	}
}

// TestS5BudgetWipe implements spec.md §8 scenario S5.
func TestS5BudgetWipe(t *testing.T) {
	rate := feerate.FromSatsPerKVB(50_000)
	budget := uint64(300) // tiny, so a couple of top-block Adds exceed it.
	h := newHarness(t, budget, rate)

	for i := byte(1); i <= 3; i++ {
		entry := &MempoolEntry{AncestorCount: 1, AncestorSize: 200, AncestorFees: 20_000}
		_, b := h.registerTx(i, 200, entry, []UTXO{{PrevTxid: [32]byte{i}, Vout: 0}})
		h.add(b)
	}

	e := h.engine
	if e.dummyBytes < budget {
		t.Fatalf("setup failed: dummy_bytes %d below budget %d", e.dummyBytes, budget)
	}

	h.blockTip()

	if len(e.dummyCache) != 0 || e.dummyBytes != 0 {
		t.Errorf("dummy cache should be wiped, got %d entries / %d bytes", len(e.dummyCache), e.dummyBytes)
	}
	if len(e.protectedCache) != 0 || e.protectedBytes != 0 {
		t.Errorf("protected cache should be wiped, got %d entries / %d bytes", len(e.protectedCache), e.protectedBytes)
	}
	if len(e.utxoCache) != 0 || len(e.utxoCycledCount) != 0 || len(e.cycledInputSet) != 0 {
		t.Errorf("all state maps should be wiped")
	}
	if e.topblockRate.String() != rate.String() {
		t.Errorf("topblock_rate should have been refreshed (even if to the same fake value)")
	}
}
