package di

import (
	"github.com/mintmesh/listing-ledger/internal/api"
	"github.com/mintmesh/listing-ledger/internal/elastic_search"
	"github.com/mintmesh/listing-ledger/internal/indexer"
	"github.com/mintmesh/listing-ledger/internal/ledger"
	"github.com/mintmesh/listing-ledger/internal/messenger"
	"github.com/mintmesh/listing-ledger/internal/repository"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

// Container wraps the di container with typed accessors for the services the
// binaries wire together.
type Container struct {
	ctn di.Container
}

func NewContainer() (*Container, error) {
	builder, err := di.NewBuilder()
	if err != nil {
		return nil, err
	}

	if err := builder.Add(Definitions...); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to build container")
	}

	return &Container{ctn: builder.Build()}, nil
}

func (c *Container) GetElastic() elastic_search.Index {
	return c.ctn.Get("elastic").(elastic_search.Index)
}

func (c *Container) GetLedger() *ledger.Ledger {
	return c.ctn.Get("ledger").(*ledger.Ledger)
}

func (c *Container) GetListingRepo() repository.ListingRepository {
	return c.ctn.Get("listing.repo").(repository.ListingRepository)
}

func (c *Container) GetActionRepo() repository.ListingActionRepository {
	return c.ctn.Get("action.repo").(repository.ListingActionRepository)
}

func (c *Container) GetActionIndexer() indexer.ActionIndexer {
	return c.ctn.Get("action.indexer").(indexer.ActionIndexer)
}

func (c *Container) GetMessenger() messenger.MessageService {
	return c.ctn.Get("messenger").(messenger.MessageService)
}

func (c *Container) GetPublisher() messenger.Publisher {
	return c.ctn.Get("publisher").(messenger.Publisher)
}

func (c *Container) GetApiServer() api.Server {
	return c.ctn.Get("api.server").(api.Server)
}
