package elastic_search

import (
	"fmt"

	"github.com/mintmesh/listing-ledger/internal/config"
)

type Indices string

var (
	ListingIndex       Indices = "listing"
	ListingActionIndex Indices = "listingaction"
	ErrorIndex         Indices = "error"
)

// Get prefixes the index with the network and deployment name.
func (i *Indices) Get() string {
	return fmt.Sprintf("%s.%s.%s", config.Get().Network, config.Get().Index, string(*i))
}
