package dbModel

import (
	"time"

	"github.com/shopspring/decimal"
)

type Position struct {
	UserID   string          `db:"user_id"`
	StockID  string          `db:"stock_id"`
	Quantity int64           `db:"quantity"`
	AvgCost  decimal.Decimal `db:"avg_cost"`
	DtUpdate time.Time       `db:"dt_update"`
}

type PositionDetail struct {
	UserID    string          `db:"user_id"`
	Username  string          `db:"username"`
	Email     string          `db:"email"`
	StockID   string          `db:"stock_id"`
	Symbol    string          `db:"symbol"`
	StockName string          `db:"stock_name"`
	Quantity  int64           `db:"quantity"`
	AvgCost   decimal.Decimal `db:"avg_cost"`
	Price     decimal.Decimal `db:"price"`
}
