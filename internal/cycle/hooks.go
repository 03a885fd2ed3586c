package cycle

// MergeHooks fans a single engine event out to every non-nil hook of the
// same kind across all of hs, in order. Used to wire more than one
// observer (dashboard, telemetry, audit log) to the same Engine without
// any of them depending on the others.
func MergeHooks(hs ...Hooks) Hooks {
	return Hooks{
		OnCycleDetected: func(u UTXO, count uint32) {
			for _, h := range hs {
				if h.OnCycleDetected != nil {
					h.OnCycleDetected(u, count)
				}
			}
		},
		OnResubmit: func(u UTXO, txid string, ok bool) {
			for _, h := range hs {
				if h.OnResubmit != nil {
					h.OnResubmit(u, txid, ok)
				}
			}
		},
		OnEpochWipe: func(reason string) {
			for _, h := range hs {
				if h.OnEpochWipe != nil {
					h.OnEpochWipe(reason)
				}
			}
		},
		OnAdmissionRefuse: func(u UTXO, txid string) {
			for _, h := range hs {
				if h.OnAdmissionRefuse != nil {
					h.OnAdmissionRefuse(u, txid)
				}
			}
		},
	}
}
