package indexer

import (
	"errors"
	"sync/atomic"

	"github.com/mintmesh/listing-ledger/internal/dev"
	"github.com/mintmesh/listing-ledger/internal/elastic_search"
	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/mintmesh/listing-ledger/internal/factory"
	"go.uber.org/zap"
)

// ListingGetter is the slice of the ledger the indexer needs to snapshot
// post-operation listing state.
type ListingGetter interface {
	GetListing(id uint64) (entity.Listing, error)
}

var errBadPayload = errors.New("unexpected event payload")

// ActionIndexer turns ledger events into ListingAction documents and listing
// snapshots in the search index. It is the read model everything outside the
// engine consumes.
type ActionIndexer interface {
	OnListingCreated(msg interface{})
	OnListingUpdated(msg interface{})
	OnListingCanceled(msg interface{})
	OnListingPurchased(msg interface{})
}

type actionIndexer struct {
	elastic  elastic_search.Index
	registry ListingGetter
	sequence uint64
}

func NewActionIndexer(elastic elastic_search.Index, registry ListingGetter) ActionIndexer {
	return &actionIndexer{elastic: elastic, registry: registry}
}

func (i *actionIndexer) OnListingCreated(msg interface{}) {
	created, ok := msg.(entity.ListingCreated)
	if !ok {
		i.reportBadPayload("OnListingCreated", msg)
		return
	}

	action := factory.CreateListedAction(i.next(), created)
	i.elastic.AddIndexRequest(elastic_search.ListingActionIndex.Get(), action)
	i.snapshotListing(created.ListingId)
	i.elastic.Persist()
}

func (i *actionIndexer) OnListingUpdated(msg interface{}) {
	updated, ok := msg.(entity.ListingUpdated)
	if !ok {
		i.reportBadPayload("OnListingUpdated", msg)
		return
	}

	action := factory.CreateUpdatedAction(i.next(), updated)
	i.elastic.AddIndexRequest(elastic_search.ListingActionIndex.Get(), action)
	i.snapshotListing(updated.ListingId)
	i.elastic.Persist()
}

func (i *actionIndexer) OnListingCanceled(msg interface{}) {
	canceled, ok := msg.(entity.ListingCanceled)
	if !ok {
		i.reportBadPayload("OnListingCanceled", msg)
		return
	}

	action := factory.CreateDelistedAction(i.next(), canceled)
	i.elastic.AddIndexRequest(elastic_search.ListingActionIndex.Get(), action)
	i.snapshotListing(canceled.ListingId)
	i.elastic.Persist()
}

func (i *actionIndexer) OnListingPurchased(msg interface{}) {
	purchased, ok := msg.(entity.ListingPurchased)
	if !ok {
		i.reportBadPayload("OnListingPurchased", msg)
		return
	}

	action := factory.CreateSaleAction(i.next(), purchased)
	i.elastic.AddIndexRequest(elastic_search.ListingActionIndex.Get(), action)
	i.snapshotListing(purchased.ListingId)
	i.elastic.Persist()
}

// snapshotListing refreshes the listing document so the index reflects the
// post-operation quantity and active flag.
func (i *actionIndexer) snapshotListing(listingId uint64) {
	listing, err := i.registry.GetListing(listingId)
	if err != nil {
		zap.L().With(zap.Error(err), zap.Uint64("listingId", listingId)).Error("ActionIndexer: Failed to snapshot listing")
		i.elastic.Save(elastic_search.ErrorIndex.Get(), dev.NewError("indexer", "snapshotListing", err, map[string]interface{}{
			"listingId": listingId,
		}))
		return
	}

	i.elastic.AddUpdateRequest(elastic_search.ListingIndex.Get(), listing)
}

func (i *actionIndexer) next() uint64 {
	return atomic.AddUint64(&i.sequence, 1)
}

func (i *actionIndexer) reportBadPayload(name string, msg interface{}) {
	zap.L().With(zap.String("handler", name)).Error("ActionIndexer: Unexpected event payload")
	i.elastic.Save(elastic_search.ErrorIndex.Get(), dev.NewError("indexer", name, errBadPayload, map[string]interface{}{
		"payload": msg,
	}))
}
