package cycle

// CycleThresh is the minimum number of observed top->bottom transitions on
// a UTXO before the engine starts caching a replaced transaction for it.
// Compile-time constant per spec §6; default 1 matches the Python original.
const CycleThresh = 1

// StatsLogInterval: every Nth processed event, the engine logs summary
// cache statistics (spec §4.11).
const StatsLogInterval = 100
