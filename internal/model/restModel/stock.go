package restModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stock struct {
	StockID   string          `json:"stock_id"`
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Sector    string          `json:"sector,omitempty"`
	Industry  string          `json:"industry,omitempty"`
	MarketCap decimal.Decimal `json:"market_cap"`
	DateAdded time.Time       `json:"date_added"`
}
