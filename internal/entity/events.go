package entity

type ListingCreated struct {
	ListingId uint64    `json:"listingId"`
	Seller    Identity  `json:"seller"`
	Asset     AssetRef  `json:"asset"`
	TokenKind TokenKind `json:"tokenKind"`
	UnitPrice uint64    `json:"unitPrice"`
	Quantity  uint64    `json:"quantity"`
}

type ListingUpdated struct {
	ListingId uint64   `json:"listingId"`
	Seller    Identity `json:"seller"`
	OldPrice  uint64   `json:"oldPrice"`
	NewPrice  uint64   `json:"newPrice"`
}

type ListingCanceled struct {
	ListingId uint64   `json:"listingId"`
	Seller    Identity `json:"seller"`
	Caller    Identity `json:"caller"`
}

type ListingPurchased struct {
	ListingId     uint64   `json:"listingId"`
	Buyer         Identity `json:"buyer"`
	Seller        Identity `json:"seller"`
	Asset         AssetRef `json:"asset"`
	Quantity      uint64   `json:"quantity"`
	TotalPrice    uint64   `json:"totalPrice"`
	SellerShare   uint64   `json:"sellerShare"`
	PlatformFee   uint64   `json:"platformFee"`
	RoyaltyAmount uint64   `json:"royaltyAmount"`
}
