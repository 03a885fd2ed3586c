package cycle

import "context"

// admitDummy implements cache admission for a newly-seen top-block
// transaction (spec §4.4). It is the only path by which a tx body enters
// dummyCache, which is in turn the sole source of tx bodies a later Remove
// event can attach to.
func (e *Engine) admitDummy(ctx context.Context, txid string) (RawTx, bool) {
	tx, found, err := e.fetcher.GetRawTransaction(ctx, txid)
	if err != nil {
		e.log.Printf("getrawtransaction(%s) failed: %v", txid, err)
		return RawTx{}, false
	}
	if !found {
		// Already mined or evicted by the time we asked; no longer observable.
		return RawTx{}, false
	}
	e.dummyCache[txid] = *tx
	e.dummyBytes += tx.Size
	return *tx, true
}

// classifyTransitions runs the per-input transition classification of
// spec §4.5 for every input of an incoming top-block tx, performing the
// Bottom->Top eviction (§4.6) and Top->Top admission (§4.7) actions inline.
func (e *Engine) classifyTransitions(tx RawTx) {
	for _, u := range tx.Inputs {
		replaced, isDoublespent := e.utxosBeingDoublespent[u]
		_, isProtected := e.utxoCache[u]

		switch {
		case !isDoublespent && isProtected:
			e.evictBottomToTop(u)
		case isDoublespent && !isProtected:
			e.admitTopToTop(u, replaced)
			delete(e.utxosBeingDoublespent, u)
		case isDoublespent && isProtected:
			// Already protected; just stop tracking it as doublespent.
			delete(e.utxosBeingDoublespent, u)
		default:
			// No UTXO state transition.
		}
	}
}

// evictBottomToTop implements spec §4.6: a UTXO currently backed by a
// protected tx has been respent by a new top-block tx, so the attacker is
// no longer cycling it this round. The cached defender is surrendered to
// preserve I5 (disjointness of protected-tx input footprints). Every
// utxoCache entry that pointed at the surrendered tx is dropped with it.
func (e *Engine) evictBottomToTop(u UTXO) {
	protectedTxid, ok := e.utxoCache[u]
	if !ok {
		return
	}
	protected, ok := e.protectedCache[protectedTxid]
	if !ok {
		delete(e.utxoCache, u)
		return
	}
	e.protectedBytes -= protected.Size
	for _, v := range protected.Inputs {
		delete(e.cycledInputSet, v)
		if e.utxoCache[v] == protectedTxid {
			delete(e.utxoCache, v)
		}
	}
	delete(e.protectedCache, protectedTxid)
	delete(e.utxoCache, u)
	e.log.Printf("bottom->top: evicted protected tx %s for %s", protectedTxid, u)
}

// admitTopToTop implements spec §4.7: UTXO u was doublespent by a
// top-block tx that replaced `replacedTxid`. If the UTXO has cycled enough
// times already, cache the *replaced* transaction (not the new spend) so
// that if the attacker evicts the new spend too, resubmitting the
// replaced tx reclaims the slot.
func (e *Engine) admitTopToTop(u UTXO, replacedTxid string) {
	if e.cycledCount(u) < CycleThresh {
		return
	}
	e.tryAdmitProtected(u, replacedTxid)
}

// tryAdmitProtected is the single path by which a transaction enters
// protected_cache, shared by the Top->Top trigger (§4.7) and the
// Top->Bottom trigger (§4.8): whichever transition first notices the
// cycle count has reached CycleThresh gets to cache the replaced tx,
// subject to the same I5 disjointness check either way. Returns whether
// admission succeeded (including "already admitted").
func (e *Engine) tryAdmitProtected(u UTXO, replacedTxid string) bool {
	if _, already := e.utxoCache[u]; already {
		return true
	}

	// The transaction being admitted may spend several UTXOs that are all
	// independently doublespent this round; once one of them has admitted
	// it, the rest just point at the same protected_cache entry instead of
	// re-running the disjointness check (which would otherwise conflict
	// with the cycled_input_set entries the first admission just added).
	if _, exists := e.protectedCache[replacedTxid]; exists {
		e.utxoCache[u] = replacedTxid
		return true
	}

	replaced, ok := e.dummyCache[replacedTxid]
	if !ok {
		// We never saw the replaced tx's body (dummy cache already trimmed
		// or it was never top-block); nothing to admit.
		return false
	}

	for _, v := range replaced.Inputs {
		if _, conflict := e.cycledInputSet[v]; conflict {
			e.log.Printf("refusing admission of %s for %s: input %s already in cycled_input_set", replacedTxid, u, v)
			if e.hooks.OnAdmissionRefuse != nil {
				e.hooks.OnAdmissionRefuse(u, replacedTxid)
			}
			return false
		}
	}

	e.protectedCache[replacedTxid] = replaced
	e.utxoCache[u] = replacedTxid
	for _, v := range replaced.Inputs {
		e.cycledInputSet[v] = struct{}{}
	}
	e.protectedBytes += replaced.Size
	e.log.Printf("caching replaced tx %s for %s", replacedTxid, u)
	return true
}
