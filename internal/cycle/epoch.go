package cycle

import "context"

// handleEpoch implements the Epoch Controller (spec §4.10), triggered on
// block-tip labels 'C'/'D'. A wipe is a deliberate loss of protection; it
// is the accepted failure mode under budget pressure.
func (e *Engine) handleEpoch(ctx context.Context) {
	if e.protectedBytes > e.byteBudget || e.dummyBytes >= e.byteBudget {
		e.wipe("byte budget exceeded")
	}

	rate, err := e.oracle.TopBlockRate(ctx)
	if err != nil {
		e.log.Printf("failed to refresh top-block rate: %v", err)
		return
	}
	e.topblockRate = rate
	e.log.Printf("top-block rate refreshed: %s sat/kvB", rate)
}

func (e *Engine) wipe(reason string) {
	e.dummyCache = make(map[string]RawTx)
	e.dummyBytes = 0
	e.protectedCache = make(map[string]RawTx)
	e.protectedBytes = 0
	e.utxoCache = make(map[UTXO]string)
	e.utxoCycledCount = make(map[UTXO]uint32)
	e.utxosBeingDoublespent = make(map[UTXO]string)
	e.cycledInputSet = make(map[UTXO]struct{})
	e.log.Printf("epoch wipe: %s", reason)
	if e.hooks.OnEpochWipe != nil {
		e.hooks.OnEpochWipe(reason)
	}
}
