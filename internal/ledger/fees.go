package ledger

import "math/bits"

// FeeSplit is the three-way division of a purchase's total price. The
// remainder of the integer fee division is absorbed into the seller share, so
// PlatformFee + Royalty + SellerShare always equals TotalPrice.
type FeeSplit struct {
	TotalPrice  uint64
	PlatformFee uint64
	Royalty     uint64
	SellerShare uint64
}

func SplitPrice(totalPrice uint64, feeBps uint, royalty uint64) FeeSplit {
	fee := BasisPoints(totalPrice, uint64(feeBps))

	if royalty > totalPrice-fee {
		royalty = totalPrice - fee
	}

	return FeeSplit{
		TotalPrice:  totalPrice,
		PlatformFee: fee,
		Royalty:     royalty,
		SellerShare: totalPrice - fee - royalty,
	}
}

// BasisPoints computes floor(amount * bps / 10000) through the full 128-bit
// product, so smallest-unit amounts near the uint64 ceiling divide exactly.
func BasisPoints(amount, bps uint64) uint64 {
	if bps > 10000 {
		bps = 10000
	}
	hi, lo := bits.Mul64(amount, bps)
	quo, _ := bits.Div64(hi, lo, 10000)
	return quo
}
