package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ActionBuy  = "buy"
	ActionSell = "sell"
)

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Transaction is an immutable audit record of one executed trade.
type Transaction struct {
	ID       string
	UserID   string
	StockID  string
	Action   string
	Quantity int64
	Price    decimal.Decimal
	Status   string
	DtCreate time.Time
}

// TransactionDetail joins a transaction with user and stock reference
// data for audit views. Username falls back to "unknown" when the
// account was deleted after the trade.
type TransactionDetail struct {
	Transaction
	Username string
	Email    string
	Symbol   string
	Total    decimal.Decimal
}
