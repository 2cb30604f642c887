package mongostore

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/efreitasn/holdingsledger/internal/domain"
)

// Field names follow the collections written by the original Node service,
// so an existing database can be served without migration.

type holdingDoc struct {
	ID    primitive.ObjectID `bson:"_id,omitempty"`
	Name  string             `bson:"name"`
	Qty   any                `bson:"qty"`
	Price any                `bson:"price"` // weighted-average cost
}

type orderDoc struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	Qty       float64            `bson:"qty"`
	Price     float64            `bson:"price"`
	Mode      string             `bson:"mode"`
	CreatedAt time.Time          `bson:"createdAt"`
}

type positionDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Product string             `bson:"product"`
	Name    string             `bson:"name"`
	Qty     any                `bson:"qty"`
	Avg     any                `bson:"avg"`
	Price   any                `bson:"price"`
	Net     string             `bson:"net"`
	Day     string             `bson:"day"`
	IsLoss  bool               `bson:"isLoss"`
}

// toHolding sanitizes numeric fields: stored records may carry nulls,
// strings or be missing fields entirely, all of which read as zero.
func (d *holdingDoc) toHolding() *domain.Holding {
	return &domain.Holding{
		ID:           d.ID.Hex(),
		Instrument:   d.Name,
		Quantity:     domain.NumberOrZero(d.Qty),
		AveragePrice: domain.NumberOrZero(d.Price),
	}
}

func fromHolding(h *domain.Holding) holdingDoc {
	return holdingDoc{
		Name:  h.Instrument,
		Qty:   h.Quantity.InexactFloat64(),
		Price: h.AveragePrice.InexactFloat64(),
	}
}

func (d *orderDoc) toOrder() *domain.Order {
	return &domain.Order{
		ID:         d.ID.Hex(),
		Instrument: d.Name,
		Quantity:   domain.NumberOrZero(d.Qty),
		Price:      domain.NumberOrZero(d.Price),
		Side:       domain.Side(d.Mode),
		CreatedAt:  d.CreatedAt,
	}
}

func fromOrder(o *domain.Order) orderDoc {
	return orderDoc{
		Name:      o.Instrument,
		Qty:       o.Quantity.InexactFloat64(),
		Price:     o.Price.InexactFloat64(),
		Mode:      string(o.Side),
		CreatedAt: o.CreatedAt.UTC(),
	}
}

func (d *positionDoc) toPosition() *domain.Position {
	return &domain.Position{
		ID:           d.ID.Hex(),
		Product:      d.Product,
		Instrument:   d.Name,
		Quantity:     domain.NumberOrZero(d.Qty),
		AveragePrice: domain.NumberOrZero(d.Avg),
		LastPrice:    domain.NumberOrZero(d.Price),
		Net:          d.Net,
		Day:          d.Day,
		IsLoss:       d.IsLoss,
	}
}
