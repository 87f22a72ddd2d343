package messenger

import (
	"encoding/json"

	"github.com/mintmesh/listing-ledger/internal/entity"
	"go.uber.org/zap"
)

// Publisher forwards ledger events onto the queues external consumers poll.
type Publisher struct {
	service MessageService
}

func NewPublisher(service MessageService) Publisher {
	return Publisher{service}
}

func (p Publisher) OnListingActivity(msg interface{}) {
	p.publish(ListingActivity, msg)
}

func (p Publisher) OnSaleSettled(msg interface{}) {
	if _, ok := msg.(entity.ListingPurchased); !ok {
		zap.L().Error("Publisher: Unexpected sale payload")
		return
	}
	p.publish(SaleSettled, msg)
}

func (p Publisher) publish(item Item, msg interface{}) {
	body, err := json.Marshal(msg)
	if err != nil {
		zap.L().With(zap.Error(err)).Error("Publisher: Failed to marshal event")
		return
	}

	if err := p.service.SendMessage(item, body); err != nil {
		zap.L().With(zap.Error(err), zap.String("item", string(item))).Error("Publisher: Failed to publish event")
	}
}
