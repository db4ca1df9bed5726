package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a user's current holding in one stock. A position with
// quantity 0 is never stored, it is deleted instead.
type Position struct {
	UserID   string
	StockID  string
	Quantity int64
	AvgCost  decimal.Decimal
	DtUpdate time.Time
}

// PortfolioEntry is a position enriched with stock reference data and
// the mark-to-market value at current price.
type PortfolioEntry struct {
	StockID     string
	Symbol      string
	StockName   string
	Quantity    int64
	AvgCost     decimal.Decimal
	Price       decimal.Decimal
	MarketValue decimal.Decimal
}

type PortfolioSummary struct {
	Entries    []PortfolioEntry
	TotalValue decimal.Decimal
}

// PositionDetail is a portfolio entry with its owner, for admin views.
type PositionDetail struct {
	PortfolioEntry
	UserID   string
	Username string
	Email    string
}

type PortfolioOverview struct {
	Positions  []PositionDetail
	GrandTotal decimal.Decimal
}

type TraderValuation struct {
	UserID         string
	Username       string
	Email          string
	PortfolioValue decimal.Decimal
}
