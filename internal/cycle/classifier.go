package cycle

import "github.com/instagibbs/anticycle/internal/feerate"

// IsTopBlock reports whether entry's effective ancestor feerate meets or
// exceeds rate (spec §4.1). When allowPackages is false, only singleton
// mempool entries (ancestorcount == 1) are eligible — multi-ancestor
// packages are never classified top-block, matching the minimal variant
// the Python original implements for HTLC-style singleton spends. When
// allowPackages is true, ancestor-aggregate feerate is used regardless of
// ancestor count (the extended variant).
func IsTopBlock(entry MempoolEntry, rate feerate.Rate, allowPackages bool) bool {
	if !allowPackages && entry.AncestorCount != 1 {
		return false
	}
	return entry.EffectiveRate().GreaterOrEqual(rate)
}
