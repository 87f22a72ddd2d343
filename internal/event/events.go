package event

type Type string

const (
	ListingCreatedEvent   Type = "ListingCreatedEvent"
	ListingUpdatedEvent   Type = "ListingUpdatedEvent"
	ListingCanceledEvent  Type = "ListingCanceledEvent"
	ListingPurchasedEvent Type = "ListingPurchasedEvent"
)
