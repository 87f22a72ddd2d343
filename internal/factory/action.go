package factory

import (
	"github.com/mintmesh/listing-ledger/internal/entity"
)

func CreateListedAction(sequence uint64, msg entity.ListingCreated) entity.ListingAction {
	return entity.ListingAction{
		Sequence:  sequence,
		ListingId: msg.ListingId,
		Contract:  msg.Asset.Contract,
		TokenId:   msg.Asset.TokenId,
		Action:    entity.ListedAction,
		Seller:    string(msg.Seller),
		Quantity:  msg.Quantity,
		UnitPrice: msg.UnitPrice,
		Fungible:  msg.TokenKind == entity.FungibleToken,
	}
}

func CreateUpdatedAction(sequence uint64, msg entity.ListingUpdated) entity.ListingAction {
	return entity.ListingAction{
		Sequence:  sequence,
		ListingId: msg.ListingId,
		Action:    entity.UpdatedAction,
		Seller:    string(msg.Seller),
		UnitPrice: msg.NewPrice,
	}
}

func CreateDelistedAction(sequence uint64, msg entity.ListingCanceled) entity.ListingAction {
	return entity.ListingAction{
		Sequence:  sequence,
		ListingId: msg.ListingId,
		Action:    entity.DelistedAction,
		Seller:    string(msg.Seller),
	}
}

func CreateSaleAction(sequence uint64, msg entity.ListingPurchased) entity.ListingAction {
	return entity.ListingAction{
		Sequence:  sequence,
		ListingId: msg.ListingId,
		Contract:  msg.Asset.Contract,
		TokenId:   msg.Asset.TokenId,
		Action:    entity.SaleAction,
		Seller:    string(msg.Seller),
		Buyer:     string(msg.Buyer),
		Quantity:  msg.Quantity,
		Cost:      msg.TotalPrice,
		Fee:       msg.PlatformFee,
		Royalty:   msg.RoyaltyAmount,
	}
}
