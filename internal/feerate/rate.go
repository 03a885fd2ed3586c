// Package feerate implements exact-rational feerate arithmetic.
//
// Bitcoin Core expresses feerates as BTC/kvB, but replacement-cycling
// attackers sit transactions directly on the top-block threshold, so
// float comparisons at that boundary are not safe. Everything here stays
// on math/big.Rat; there is no float64 accessor.
package feerate

import "math/big"

// Rate is a feerate expressed as an exact rational, denominated in
// satoshis per 1000 vbytes (sat/kvB).
type Rate struct {
	r *big.Rat
}

// Zero is the zero feerate.
var Zero = Rate{r: new(big.Rat)}

// FromSatsPerKVB builds a Rate directly from an integer sat/kvB value, used
// when converting an HTTP fee oracle's fastestFee (sat/vB) after scaling.
func FromSatsPerKVB(satsPerKVB int64) Rate {
	return Rate{r: new(big.Rat).SetInt64(satsPerKVB)}
}

// FromAncestorFees computes ancestorfees * 1000 / ancestorsize, the
// effective ancestor-aggregate feerate, both inputs in satoshis/vbytes.
// ancestorsize == 0 yields the zero rate rather than panicking, since a
// malformed mempool entry should degrade, not crash the event loop.
func FromAncestorFees(ancestorFeesSats uint64, ancestorSizeVB uint64) Rate {
	if ancestorSizeVB == 0 {
		return Zero
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(ancestorFeesSats), big.NewInt(1000))
	den := new(big.Int).SetUint64(ancestorSizeVB)
	return Rate{r: new(big.Rat).SetFrac(num, den)}
}

// FromSatPerVB converts a fee-oracle reading in satoshis/vbyte (e.g. the
// mempool.space "fastestFee" field) to a sat/kvB Rate.
func FromSatPerVB(satPerVB float64) Rate {
	// satPerVB is already an integer-valued field in practice (mempool.space
	// returns whole sat/vB), but accept a float input and rationalize it
	// exactly rather than lose precision through a premature float compare.
	rat := new(big.Rat).SetFloat64(satPerVB)
	if rat == nil {
		return Zero
	}
	return Rate{r: new(big.Rat).Mul(rat, big.NewRat(1000, 1))}
}

// GreaterOrEqual reports whether r >= other.
func (r Rate) GreaterOrEqual(other Rate) bool {
	return r.cmp(other) >= 0
}

func (r Rate) cmp(other Rate) int {
	a, b := r.r, other.r
	if a == nil {
		a = new(big.Rat)
	}
	if b == nil {
		b = new(big.Rat)
	}
	return a.Cmp(b)
}

// String renders the rate as a decimal sat/kvB string, for logging only.
func (r Rate) String() string {
	if r.r == nil {
		return "0"
	}
	return r.r.FloatString(3)
}
