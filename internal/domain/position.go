package domain

import "github.com/shopspring/decimal"

// Position is a market-data row served as-is to clients. Order execution
// never reads or writes positions.
type Position struct {
	ID           string
	Product      string
	Instrument   string
	Quantity     decimal.Decimal
	AveragePrice decimal.Decimal
	LastPrice    decimal.Decimal
	Net          string
	Day          string
	IsLoss       bool
}
