package di

import (
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/mintmesh/listing-ledger/internal/api"
	"github.com/mintmesh/listing-ledger/internal/config"
	"github.com/mintmesh/listing-ledger/internal/elastic_search"
	"github.com/mintmesh/listing-ledger/internal/entity"
	"github.com/mintmesh/listing-ledger/internal/indexer"
	"github.com/mintmesh/listing-ledger/internal/ledger"
	"github.com/mintmesh/listing-ledger/internal/messenger"
	"github.com/mintmesh/listing-ledger/internal/oracle"
	"github.com/mintmesh/listing-ledger/internal/repository"
	"github.com/patrickmn/go-cache"
	"github.com/sarulabs/di/v2"
	"go.uber.org/zap"
)

var Definitions = []di.Def{
	{
		Name: "elastic",
		Build: func(ctn di.Container) (interface{}, error) {
			elastic, err := elastic_search.New()
			if err != nil {
				zap.L().With(zap.Error(err)).Fatal("Failed to start ES")
			}

			return elastic, nil
		},
	},
	{
		Name: "cache",
		Build: func(ctn di.Container) (interface{}, error) {
			return cache.New(5*time.Minute, 10*time.Minute), nil
		},
	},
	{
		Name: "http.client",
		Build: func(ctn di.Container) (interface{}, error) {
			client := retryablehttp.NewClient()
			client.HTTPClient.Timeout = time.Duration(config.Get().RoyaltyTimeout) * time.Second
			client.Logger = nil

			return client, nil
		},
	},
	{
		Name: "platform",
		Build: func(ctn di.Container) (interface{}, error) {
			client := ctn.Get("http.client").(*retryablehttp.Client)
			return oracle.NewPlatformClient(client, config.Get().PlatformUri, config.Get().NativeCurrency), nil
		},
	},
	{
		Name: "royalty.oracle",
		Build: func(ctn di.Container) (interface{}, error) {
			client := ctn.Get("http.client").(*retryablehttp.Client)
			return oracle.NewRoyaltyOracle(client, config.Get().RoyaltyRegistryUri, ctn.Get("cache").(*cache.Cache)), nil
		},
	},
	{
		Name: "roles",
		Build: func(ctn di.Container) (interface{}, error) {
			roles := oracle.StaticRoles{}
			for _, identity := range config.Get().AdminIdentities {
				roles[entity.Identity(identity)] = append(roles[entity.Identity(identity)], oracle.AdminRole)
			}
			for _, identity := range config.Get().PauserIdentities {
				roles[entity.Identity(identity)] = append(roles[entity.Identity(identity)], oracle.PauserRole)
			}

			return roles, nil
		},
	},
	{
		Name: "ledger",
		Build: func(ctn di.Container) (interface{}, error) {
			platform := ctn.Get("platform").(*oracle.PlatformClient)
			cfg := ledger.Config{
				FeeBps:                 config.Get().FeeBps,
				FeeReceiver:            entity.Identity(config.Get().FeeReceiver),
				Operator:               entity.Identity(config.Get().Operator),
				RefundTokenOverpayment: config.Get().RefundTokenOverpayment,
			}

			return ledger.NewLedger(
				cfg,
				platform,
				platform,
				ctn.Get("royalty.oracle").(oracle.RoyaltyOracle),
				ctn.Get("roles").(oracle.StaticRoles),
			), nil
		},
	},
	{
		Name: "listing.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewListingRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "action.repo",
		Build: func(ctn di.Container) (interface{}, error) {
			return repository.NewListingActionRepository(ctn.Get("elastic").(elastic_search.Index)), nil
		},
	},
	{
		Name: "action.indexer",
		Build: func(ctn di.Container) (interface{}, error) {
			return indexer.NewActionIndexer(
				ctn.Get("elastic").(elastic_search.Index),
				ctn.Get("ledger").(*ledger.Ledger),
			), nil
		},
	},
	{
		Name: "messenger",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewMessenger(), nil
		},
	},
	{
		Name: "publisher",
		Build: func(ctn di.Container) (interface{}, error) {
			return messenger.NewPublisher(ctn.Get("messenger").(messenger.MessageService)), nil
		},
	},
	{
		Name: "api.server",
		Build: func(ctn di.Container) (interface{}, error) {
			return api.NewServer(ctn.Get("ledger").(*ledger.Ledger)), nil
		},
	},
}
