package cycle

// handleRemove implements the Doublespend Tracker (spec §4.3). A Remove is
// only interesting if the removed tx was previously admitted to the
// dummy cache as a top-block spend; otherwise there is nothing to pair it
// with and the event is ignored. The table is interpreted exclusively at
// the next Add event and cleared unconditionally at the end of that Add
// (see handleAdd in engine.go).
func (e *Engine) handleRemove(txid string) {
	removed, ok := e.dummyCache[txid]
	if !ok {
		return
	}
	for _, u := range removed.Inputs {
		e.utxosBeingDoublespent[u] = txid
	}
	e.log.Printf("tx %s removed (was top-block); tracking %d outpoints for doublespend", txid, len(removed.Inputs))
}
