package entity

// Receipt records one settled purchase. PlatformFee + RoyaltyAmount +
// SellerShare always equals TotalPrice; the integer-division remainder of the
// fee calculation is absorbed into SellerShare.
type Receipt struct {
	Id             string   `json:"id"`
	ListingId      uint64   `json:"listingId"`
	Buyer          Identity `json:"buyer"`
	Seller         Identity `json:"seller"`
	Asset          AssetRef `json:"asset"`
	Quantity       uint64   `json:"quantity"`
	TotalPrice     uint64   `json:"totalPrice"`
	SellerShare    uint64   `json:"sellerShare"`
	PlatformFee    uint64   `json:"platformFee"`
	RoyaltyAmount  uint64   `json:"royaltyAmount"`
	RefundedAmount uint64   `json:"refundedAmount"`
}
