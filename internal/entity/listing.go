package entity

import (
	"fmt"

	"github.com/gosimple/slug"
)

// Identity is an opaque account identifier supplied by the host platform.
type Identity string

type TokenKind string

const (
	// UniqueToken is an ERC721-like asset; quantity is always 0 or 1.
	UniqueToken TokenKind = "unique"
	// FungibleToken is an ERC1155-like asset with an arbitrary quantity.
	FungibleToken TokenKind = "fungible"
)

func (k TokenKind) Valid() bool {
	return k == UniqueToken || k == FungibleToken
}

// AssetRef identifies one asset: the collection contract plus the token id
// within it. Fungible collections may use an empty token id.
type AssetRef struct {
	Contract string `json:"contract"`
	TokenId  string `json:"tokenId"`
}

func (a AssetRef) String() string {
	return fmt.Sprintf("%s:%s", a.Contract, a.TokenId)
}

type Listing struct {
	Id        uint64    `json:"id"`
	Seller    Identity  `json:"seller"`
	Asset     AssetRef  `json:"asset"`
	UnitPrice uint64    `json:"unitPrice"`
	Quantity  uint64    `json:"quantity"`
	TokenKind TokenKind `json:"tokenKind"`
	Active    bool      `json:"active"`
}

func (l Listing) Slug() string {
	return CreateListingSlug(l.Id, l.Asset.Contract)
}

func CreateListingSlug(id uint64, contract string) string {
	return slug.Make(fmt.Sprintf("listing-%d-%s", id, contract))
}
