package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Transaction struct {
	TransactionID string          `db:"transaction_id"`
	UserID        string          `db:"user_id"`
	StockID       string          `db:"stock_id"`
	Action        string          `db:"action"`
	Quantity      int64           `db:"quantity"`
	Price         decimal.Decimal `db:"price"`
	Status        string          `db:"status"`
	DtCreate      time.Time       `db:"dt_create"`
}

type TransactionDetail struct {
	TransactionID string          `db:"transaction_id"`
	UserID        string          `db:"user_id"`
	Username      string          `db:"username"`
	Email         string          `db:"email"`
	StockID       string          `db:"stock_id"`
	Symbol        string          `db:"symbol"`
	Action        string          `db:"action"`
	Quantity      int64           `db:"quantity"`
	Price         decimal.Decimal `db:"price"`
	Status        string          `db:"status"`
	DtCreate      time.Time       `db:"dt_create"`
}
