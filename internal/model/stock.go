package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stock struct {
	ID        string
	Symbol    string
	Name      string
	Price     decimal.Decimal
	Sector    string
	Industry  string
	MarketCap decimal.Decimal
	DateAdded time.Time
}

// StockQuote is the cached subset of Stock used on valuation and trade paths.
type StockQuote struct {
	StockID string          `json:"stock_id"`
	Symbol  string          `json:"symbol"`
	Price   decimal.Decimal `json:"price"`
}
