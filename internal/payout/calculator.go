// Package payout holds the settlement math. Everything here is pure and
// operates on int64 milli-satoshis; the only floating-point inputs are the
// configured rates and the POS metadata, applied through decimal arithmetic
// at the boundary.
package payout

import "github.com/shopspring/decimal"

// msatPerSat is the rail's addressable granularity: amounts are always a
// whole number of satoshis expressed in milli-satoshis.
const msatPerSat = 1000

// msatPerBTC = 1e8 satoshis * 1000 msat.
var msatPerBTC = decimal.New(1, 11)

// TipInfo is the POS tip metadata carried on a settled invoice. Zero value
// means no tip was recorded.
type TipInfo struct {
	Tip      float64
	SubTotal float64
	Total    float64
}

// Breakdown is the advisory result of the settlement calculation. Nothing
// here is final until disbursement confirms it.
type Breakdown struct {
	GrossMsat       int64
	OwnerMsat       int64
	FeeRetainedMsat int64
	TipMsat         int64
	OffRampMsat     int64
}

// MsatFromBTC converts a BTC amount to milli-satoshis.
func MsatFromBTC(btc decimal.Decimal) int64 {
	return btc.Mul(msatPerBTC).Round(0).IntPart()
}

// Compute derives the payout split for one settlement.
//
// payoutRate is the fraction of gross the store keeps. The tip carve-out
// applies only when the store has tip recipients configured. offRampPercent
// is 0 when no off-ramp is configured; the off-ramp amount is computed
// against the post-tip payout and is reserved, not yet subtracted; the
// caller subtracts it only once the off-ramp leg confirms.
func Compute(grossMsat int64, payoutRate float64, tip TipInfo, hasTipRecipients bool, offRampPercent float64) Breakdown {
	b := Breakdown{GrossMsat: grossMsat}

	payout := applyFraction(grossMsat, payoutRate)
	payout = floorToSat(payout)

	// Never pay less than one whole satoshi.
	if payout < msatPerSat {
		payout = msatPerSat
	}

	b.FeeRetainedMsat = grossMsat - payout
	if b.FeeRetainedMsat < 0 {
		b.FeeRetainedMsat = 0
	}

	if hasTipRecipients {
		if frac, ok := tipFraction(tip); ok {
			b.TipMsat = floorToSat(applyFraction(payout, frac))
			payout -= b.TipMsat
		}
	}

	if offRampPercent > 0 {
		b.OffRampMsat = floorToSat(applyFraction(payout, offRampPercent))
	}

	b.OwnerMsat = payout
	return b
}

// tipFraction derives the tip share from the POS metadata. The tip was
// recorded against the subtotal, except when it exceeds the subtotal; the
// POS records those against the order total instead.
func tipFraction(tip TipInfo) (float64, bool) {
	if tip.Tip <= 0 {
		return 0, false
	}
	base := tip.SubTotal
	if tip.Tip > tip.SubTotal {
		base = tip.Total
	}
	if base <= 0 {
		return 0, false
	}
	frac := tip.Tip / base
	if frac > 1 {
		frac = 1
	}
	return frac, true
}

func applyFraction(amountMsat int64, fraction float64) int64 {
	return decimal.NewFromInt(amountMsat).
		Mul(decimal.NewFromFloat(fraction)).
		Round(0).
		IntPart()
}

// floorToSat rounds down to the nearest whole satoshi.
func floorToSat(msat int64) int64 {
	if msat < 0 {
		return 0
	}
	return msat / msatPerSat * msatPerSat
}
