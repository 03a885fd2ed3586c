package cycle

import (
	"context"
	"encoding/hex"
)

// HandleEvent is the engine's single entry point, dispatching on the
// event's label exactly as spec §4.11 describes. It is the only method
// callers outside this package should invoke per received event.
func (e *Engine) HandleEvent(ctx context.Context, ev Event) {
	e.eventCount++
	e.logStatsIfDue()

	txid := hex.EncodeToString(ev.Txid[:])

	switch ev.Label {
	case LabelAdd:
		e.handleAdd(ctx, txid)
	case LabelRemove:
		e.handleRemove(txid)
	case LabelBlockC, LabelBlockD:
		e.handleEpoch(ctx)
	default:
		// Unknown label; ignore.
	}
}

// handleAdd runs the full Add-event pipeline: entry lookup and
// classification (§4.1), cache admission and per-input transitions
// (§4.4-§4.7), Top->Bottom detection and resubmission (§4.8), and the
// unconditional clear of utxos_being_doublespent at the end.
func (e *Engine) handleAdd(ctx context.Context, txid string) {
	entry, found, err := e.entries.GetMempoolEntry(ctx, txid)
	if err != nil {
		e.log.Printf("getmempoolentry(%s) failed: %v", txid, err)
		e.utxosBeingDoublespent = make(map[UTXO]string)
		return
	}
	if !found {
		// No longer observable (mined, evicted, or dropped from mempool).
		e.utxosBeingDoublespent = make(map[UTXO]string)
		return
	}

	if IsTopBlock(*entry, e.topblockRate, e.allowPackages) {
		tx, ok := e.admitDummy(ctx, txid)
		if !ok {
			e.utxosBeingDoublespent = make(map[UTXO]string)
			return
		}
		e.classifyTransitions(tx)
	}

	e.handleTopToBottom(ctx)

	e.utxosBeingDoublespent = make(map[UTXO]string)
}

// handleTopToBottom implements spec §4.8: any UTXO still present in
// utxos_being_doublespent after the per-input transition loop was not
// respent by a top-block tx this round — it transitioned Top->Bottom, the
// dangerous case the whole engine exists to catch.
func (e *Engine) handleTopToBottom(ctx context.Context) {
	for u, replacedTxid := range e.utxosBeingDoublespent {
		e.utxoCycledCount[u] = e.cycledCount(u) + 1
		count := e.utxoCycledCount[u]
		e.log.Printf("top->bottom: %s cycled %d time(s)", u, count)
		if e.hooks.OnCycleDetected != nil {
			e.hooks.OnCycleDetected(u, count)
		}

		if count >= CycleThresh {
			e.tryAdmitProtected(u, replacedTxid)
		}

		protectedTxid, isProtected := e.utxoCache[u]
		if !isProtected {
			continue
		}
		protected, ok := e.protectedCache[protectedTxid]
		if !ok {
			continue
		}
		resubmitTxid, sendOK, err := e.resubmitter.SendRawTransaction(ctx, protected.Hex)
		if err != nil {
			e.log.Printf("resubmit of %s for %s failed: %v", protectedTxid, u, err)
		} else {
			e.log.Printf("resubmit of %s for %s: ok=%v txid=%s", protectedTxid, u, sendOK, resubmitTxid)
		}
		if e.hooks.OnResubmit != nil {
			e.hooks.OnResubmit(u, protectedTxid, sendOK)
		}
	}
}
