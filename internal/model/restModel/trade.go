package restModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Position struct {
	StockID  string          `json:"stock_id"`
	Quantity int64           `json:"quantity"`
	AvgCost  decimal.Decimal `json:"avg_cost"`
}

// TradeResult carries the audit transaction id and the position after the
// trade. Position is null when the trade sold the holding out.
type TradeResult struct {
	TransactionID string    `json:"transaction_id"`
	Position      *Position `json:"position"`
}

type Transaction struct {
	TransactionID string          `json:"transaction_id"`
	StockID       string          `json:"stock_id"`
	Action        string          `json:"action"`
	Quantity      int64           `json:"quantity"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type TransactionDetail struct {
	Transaction
	Username string          `json:"username"`
	Symbol   string          `json:"symbol"`
	Total    decimal.Decimal `json:"total"`
}
