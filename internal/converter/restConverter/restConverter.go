package restConverter

import (
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/model/restModel"
)

func UserResponse(user model.User) restModel.User {
	return restModel.User{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}
}

func StockResponse(stock model.Stock) restModel.Stock {
	return restModel.Stock{
		StockID:   stock.ID,
		Symbol:    stock.Symbol,
		Name:      stock.Name,
		Price:     stock.Price,
		Sector:    stock.Sector,
		Industry:  stock.Industry,
		MarketCap: stock.MarketCap,
		DateAdded: stock.DateAdded,
	}
}

func StocksResponse(stocks []model.Stock) []restModel.Stock {
	resp := make([]restModel.Stock, 0, len(stocks))
	for _, stock := range stocks {
		resp = append(resp, StockResponse(stock))
	}
	return resp
}

func TradeResultResponse(result model.TradeResult) restModel.TradeResult {
	resp := restModel.TradeResult{TransactionID: result.TransactionID}
	if result.Position != nil {
		resp.Position = &restModel.Position{
			StockID:  result.Position.StockID,
			Quantity: result.Position.Quantity,
			AvgCost:  result.Position.AvgCost,
		}
	}
	return resp
}

func TransactionResponse(trx model.Transaction) restModel.Transaction {
	return restModel.Transaction{
		TransactionID: trx.ID,
		StockID:       trx.StockID,
		Action:        trx.Action,
		Quantity:      trx.Quantity,
		Price:         trx.Price,
		Status:        trx.Status,
		CreatedAt:     trx.DtCreate,
	}
}

func TransactionsResponse(transactions []model.Transaction) []restModel.Transaction {
	resp := make([]restModel.Transaction, 0, len(transactions))
	for _, trx := range transactions {
		resp = append(resp, TransactionResponse(trx))
	}
	return resp
}

func TransactionDetailsResponse(details []model.TransactionDetail) []restModel.TransactionDetail {
	resp := make([]restModel.TransactionDetail, 0, len(details))
	for _, detail := range details {
		resp = append(resp, restModel.TransactionDetail{
			Transaction: TransactionResponse(detail.Transaction),
			Username:    detail.Username,
			Symbol:      detail.Symbol,
			Total:       detail.Total,
		})
	}
	return resp
}

func portfolioEntryResponse(entry model.PortfolioEntry) restModel.PortfolioEntry {
	return restModel.PortfolioEntry{
		StockID:     entry.StockID,
		Symbol:      entry.Symbol,
		StockName:   entry.StockName,
		Quantity:    entry.Quantity,
		AvgCost:     entry.AvgCost,
		Price:       entry.Price,
		MarketValue: entry.MarketValue,
	}
}

func PortfolioSummaryResponse(summary model.PortfolioSummary) restModel.PortfolioSummary {
	resp := restModel.PortfolioSummary{
		Entries:    make([]restModel.PortfolioEntry, 0, len(summary.Entries)),
		TotalValue: summary.TotalValue,
	}
	for _, entry := range summary.Entries {
		resp.Entries = append(resp.Entries, portfolioEntryResponse(entry))
	}
	return resp
}

func PortfolioOverviewResponse(overview model.PortfolioOverview) restModel.PortfolioOverview {
	resp := restModel.PortfolioOverview{
		Positions:  make([]restModel.PositionDetail, 0, len(overview.Positions)),
		GrandTotal: overview.GrandTotal,
	}
	for _, position := range overview.Positions {
		resp.Positions = append(resp.Positions, restModel.PositionDetail{
			PortfolioEntry: portfolioEntryResponse(position.PortfolioEntry),
			UserID:         position.UserID,
			Username:       position.Username,
			Email:          position.Email,
		})
	}
	return resp
}

func TraderValuationsResponse(valuations []model.TraderValuation) []restModel.TraderValuation {
	resp := make([]restModel.TraderValuation, 0, len(valuations))
	for _, valuation := range valuations {
		resp = append(resp, restModel.TraderValuation{
			UserID:         valuation.UserID,
			Username:       valuation.Username,
			Email:          valuation.Email,
			PortfolioValue: valuation.PortfolioValue,
		})
	}
	return resp
}
