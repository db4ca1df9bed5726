package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Stock struct {
	StockID   string          `db:"stock_id"`
	Symbol    string          `db:"symbol"`
	Name      string          `db:"name"`
	Price     decimal.Decimal `db:"price"`
	Sector    string          `db:"sector"`
	Industry  string          `db:"industry"`
	MarketCap decimal.Decimal `db:"market_cap"`
	DateAdded time.Time       `db:"date_added"`
}
