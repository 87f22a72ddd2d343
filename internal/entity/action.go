package entity

import (
	"crypto/md5"
	"fmt"
)

// Entity is anything that can be persisted to an index under a stable id.
type Entity interface {
	Slug() string
}

// ListingAction is the document emitted to the search index for every ledger
// state change. External consumers (leaderboards, activity feeds) only ever
// read these documents and the queue messages derived from them.
type ListingAction struct {
	Sequence  uint64     `json:"sequence"`
	ListingId uint64     `json:"listingId"`
	Contract  string     `json:"contract"`
	TokenId   string     `json:"tokenId"`
	Action    ActionType `json:"action"`
	Seller    string     `json:"seller"`
	Buyer     string     `json:"buyer"`
	Quantity  uint64     `json:"quantity"`
	UnitPrice uint64     `json:"unitPrice"`
	Cost      uint64     `json:"cost"`
	Fee       uint64     `json:"fee"`
	Royalty   uint64     `json:"royalty"`
	Fungible  bool       `json:"fungible"`
}

type ActionType string

const (
	ListedAction   ActionType = "listing"
	UpdatedAction  ActionType = "update"
	DelistedAction ActionType = "delisting"
	SaleAction     ActionType = "sale"
)

func (a ListingAction) Slug() string {
	return CreateListingActionSlug(a.Sequence, a.ListingId, a.Contract, string(a.Action))
}

func CreateListingActionSlug(sequence, listingId uint64, contract, action string) string {
	data := []byte(fmt.Sprintf("listingaction-%d-%d-%s-%s", sequence, listingId, contract, action))
	return fmt.Sprintf("%x", md5.Sum(data))
}
