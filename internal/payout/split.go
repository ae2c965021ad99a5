package payout

// SplitEvenly divides a tip amount across n recipients in whole satoshis.
// Each share is floor(total/n) rounded down to a whole satoshi; the
// remainder is returned to the caller, which logs and discards it.
func SplitEvenly(totalMsat int64, n int) (shareMsat, remainderMsat int64) {
	if n <= 0 || totalMsat <= 0 {
		return 0, totalMsat
	}
	shareMsat = floorToSat(totalMsat / int64(n))
	remainderMsat = totalMsat - shareMsat*int64(n)
	return shareMsat, remainderMsat
}
