package repository

import (
	"encoding/json"
	"errors"

	"github.com/mintmesh/listing-ledger/internal/elastic_search"
	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/olivere/elastic/v7"
)

var (
	ErrListingActionNotFound = errors.New("listing action not found")
)

type ListingActionRepository interface {
	GetActionsByListing(listingId uint64, size, from int) ([]entity.ListingAction, int64, error)
	GetLatestAction(listingId uint64) (*entity.ListingAction, error)
	GetSellerVolumes(size int) ([]SellerVolume, error)
}

// SellerVolume is one leaderboard row: total sale proceeds per seller.
type SellerVolume struct {
	Seller string `json:"seller"`
	Volume uint64 `json:"volume"`
	Sales  int64  `json:"sales"`
}

type listingActionRepository struct {
	elastic elastic_search.Index
}

func NewListingActionRepository(elastic elastic_search.Index) ListingActionRepository {
	return listingActionRepository{elastic}
}

func (r listingActionRepository) GetActionsByListing(listingId uint64, size, from int) ([]entity.ListingAction, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("listingId", listingId),
	)

	results, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingActionIndex.Get()).
		Query(query).
		Sort("sequence", false).
		Size(size).
		From(from))

	return r.findMany(results, err)
}

func (r listingActionRepository) GetLatestAction(listingId uint64) (*entity.ListingAction, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("listingId", listingId),
	)

	results, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingActionIndex.Get()).
		Query(query).
		Sort("sequence", false).
		Size(1))

	return r.findOne(results, err)
}

func (r listingActionRepository) GetSellerVolumes(size int) ([]SellerVolume, error) {
	agg := elastic.NewTermsAggregation().Field("seller.keyword").Size(size).
		SubAggregation("volume", elastic.NewSumAggregation().Field("cost"))

	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("action.keyword", string(entity.SaleAction)),
	)

	results, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingActionIndex.Get()).
		Query(query).
		Aggregation("sellers", agg).
		Size(0))
	if err != nil {
		return nil, err
	}

	sellers, found := results.Aggregations.Terms("sellers")
	if !found {
		return nil, nil
	}

	volumes := make([]SellerVolume, 0, len(sellers.Buckets))
	for _, bucket := range sellers.Buckets {
		volume := SellerVolume{
			Seller: bucket.Key.(string),
			Sales:  bucket.DocCount,
		}
		if sum, found := bucket.Sum("volume"); found && sum.Value != nil {
			volume.Volume = uint64(*sum.Value)
		}
		volumes = append(volumes, volume)
	}

	return volumes, nil
}

func (r listingActionRepository) findOne(results *elastic.SearchResult, err error) (*entity.ListingAction, error) {
	if err != nil {
		return nil, err
	}

	if len(results.Hits.Hits) == 0 {
		return nil, ErrListingActionNotFound
	}

	var action entity.ListingAction
	if err := json.Unmarshal(results.Hits.Hits[0].Source, &action); err != nil {
		return nil, err
	}

	return &action, nil
}

func (r listingActionRepository) findMany(results *elastic.SearchResult, err error) ([]entity.ListingAction, int64, error) {
	actions := make([]entity.ListingAction, 0)

	if err != nil {
		return actions, 0, err
	}

	for _, hit := range results.Hits.Hits {
		var action entity.ListingAction
		if err := json.Unmarshal(hit.Source, &action); err == nil {
			actions = append(actions, action)
		}
	}

	return actions, results.TotalHits(), nil
}
