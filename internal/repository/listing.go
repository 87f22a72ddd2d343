package repository

import (
	"encoding/json"
	"errors"

	"github.com/mintmesh/listing-ledger/internal/elastic_search"
	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/olivere/elastic/v7"
)

var (
	ErrListingNotFound = errors.New("listing not found")
)

type ListingRepository interface {
	GetListing(listingId uint64) (*entity.Listing, error)
	GetActiveListings(size, from int) ([]entity.Listing, int64, error)
	GetListingsBySeller(seller string, size, from int) ([]entity.Listing, int64, error)
}

type listingRepository struct {
	elastic elastic_search.Index
}

func NewListingRepository(elastic elastic_search.Index) ListingRepository {
	return listingRepository{elastic}
}

func (r listingRepository) GetListing(listingId uint64) (*entity.Listing, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("id", listingId),
	)

	results, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingIndex.Get()).
		Query(query).
		Size(1))

	return r.findOne(results, err)
}

func (r listingRepository) GetActiveListings(size, from int) ([]entity.Listing, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("active", true),
	)

	results, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingIndex.Get()).
		Query(query).
		Sort("id", true).
		Size(size).
		From(from))

	return r.findMany(results, err)
}

func (r listingRepository) GetListingsBySeller(seller string, size, from int) ([]entity.Listing, int64, error) {
	query := elastic.NewBoolQuery().Must(
		elastic.NewTermQuery("seller.keyword", seller),
	)

	results, err := search(r.elastic.GetClient().
		Search(elastic_search.ListingIndex.Get()).
		Query(query).
		Sort("id", true).
		Size(size).
		From(from))

	return r.findMany(results, err)
}

func (r listingRepository) findOne(results *elastic.SearchResult, err error) (*entity.Listing, error) {
	if err != nil {
		return nil, err
	}

	if len(results.Hits.Hits) == 0 {
		return nil, ErrListingNotFound
	}

	var listing entity.Listing
	if err := json.Unmarshal(results.Hits.Hits[0].Source, &listing); err != nil {
		return nil, err
	}

	return &listing, nil
}

func (r listingRepository) findMany(results *elastic.SearchResult, err error) ([]entity.Listing, int64, error) {
	listings := make([]entity.Listing, 0)

	if err != nil {
		return listings, 0, err
	}

	for _, hit := range results.Hits.Hits {
		var listing entity.Listing
		if err := json.Unmarshal(hit.Source, &listing); err == nil {
			listings = append(listings, listing)
		}
	}

	return listings, results.TotalHits(), nil
}
