package main

import (
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/mintmesh/listing-ledger/internal/config"
	"github.com/mintmesh/listing-ledger/internal/config/di"
	"github.com/mintmesh/listing-ledger/internal/event"
	"go.uber.org/zap"
)

var container *di.Container

func main() {
	config.Init("ledgerd")

	var err error
	container, err = di.NewContainer()
	if err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to create container")
	}

	container.GetElastic().InstallMappings()

	actionIndexer := container.GetActionIndexer()
	event.AddEventListener(event.ListingCreatedEvent, actionIndexer.OnListingCreated)
	event.AddEventListener(event.ListingUpdatedEvent, actionIndexer.OnListingUpdated)
	event.AddEventListener(event.ListingCanceledEvent, actionIndexer.OnListingCanceled)
	event.AddEventListener(event.ListingPurchasedEvent, actionIndexer.OnListingPurchased)

	publisher := container.GetPublisher()
	event.AddEventListener(event.ListingCreatedEvent, publisher.OnListingActivity)
	event.AddEventListener(event.ListingUpdatedEvent, publisher.OnListingActivity)
	event.AddEventListener(event.ListingCanceledEvent, publisher.OnListingActivity)
	event.AddEventListener(event.ListingPurchasedEvent, publisher.OnSaleSettled)

	go health()

	zap.L().With(
		zap.String("apiPort", config.Get().ApiPort),
		zap.String("healthPort", config.Get().HealthPort),
	).Info("Ledger started")

	if err := http.ListenAndServe(":"+config.Get().ApiPort, container.GetApiServer().Router()); err != nil {
		zap.L().With(zap.Error(err)).Fatal("Failed to start api server")
	}
}

func health() {
	if err := http.ListenAndServe(":"+config.Get().HealthPort, healthRouter()); err != nil {
		zap.L().With(zap.Error(err)).Error("Failed to start health server")
	}
}

func healthRouter() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = fmt.Fprintf(w, "OK")
	}).Methods("GET")

	return r
}
