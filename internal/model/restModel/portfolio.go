package restModel

import "github.com/shopspring/decimal"

type PortfolioEntry struct {
	StockID     string          `json:"stock_id"`
	Symbol      string          `json:"symbol"`
	StockName   string          `json:"stock_name"`
	Quantity    int64           `json:"quantity"`
	AvgCost     decimal.Decimal `json:"avg_cost"`
	Price       decimal.Decimal `json:"price"`
	MarketValue decimal.Decimal `json:"market_value"`
}

type PortfolioSummary struct {
	Entries    []PortfolioEntry `json:"entries"`
	TotalValue decimal.Decimal  `json:"total_value"`
}

type PositionDetail struct {
	PortfolioEntry
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type PortfolioOverview struct {
	Positions  []PositionDetail `json:"positions"`
	GrandTotal decimal.Decimal  `json:"grand_total"`
}

type TraderValuation struct {
	UserID         string          `json:"user_id"`
	Username       string          `json:"username"`
	Email          string          `json:"email"`
	PortfolioValue decimal.Decimal `json:"portfolio_value"`
}
