package dbConverter

import (
	"github.com/stockerhq/stocker/internal/decmath"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/model/dbModel"
)

func ConvertUser(dbUser dbModel.User) model.User {
	return model.User{
		ID:       dbUser.UserID,
		Username: dbUser.Username,
		Email:    dbUser.Email,
		Password: dbUser.Password,
		Role:     dbUser.Role,
		DtCreate: dbUser.DtCreate,
	}
}

func ConvertStock(dbStock dbModel.Stock) model.Stock {
	return model.Stock{
		ID:        dbStock.StockID,
		Symbol:    dbStock.Symbol,
		Name:      dbStock.Name,
		Price:     dbStock.Price,
		Sector:    dbStock.Sector,
		Industry:  dbStock.Industry,
		MarketCap: dbStock.MarketCap,
		DateAdded: dbStock.DateAdded,
	}
}

func ConvertPosition(dbPosition dbModel.Position) model.Position {
	return model.Position{
		UserID:   dbPosition.UserID,
		StockID:  dbPosition.StockID,
		Quantity: dbPosition.Quantity,
		AvgCost:  dbPosition.AvgCost,
		DtUpdate: dbPosition.DtUpdate,
	}
}

func ConvertPositionDetail(dbDetail dbModel.PositionDetail) model.PositionDetail {
	return model.PositionDetail{
		PortfolioEntry: model.PortfolioEntry{
			StockID:     dbDetail.StockID,
			Symbol:      dbDetail.Symbol,
			StockName:   dbDetail.StockName,
			Quantity:    dbDetail.Quantity,
			AvgCost:     dbDetail.AvgCost,
			Price:       dbDetail.Price,
			MarketValue: decmath.Value(dbDetail.Quantity, dbDetail.Price),
		},
		UserID:   dbDetail.UserID,
		Username: dbDetail.Username,
		Email:    dbDetail.Email,
	}
}

func ConvertTransaction(dbTrx dbModel.Transaction) model.Transaction {
	return model.Transaction{
		ID:       dbTrx.TransactionID,
		UserID:   dbTrx.UserID,
		StockID:  dbTrx.StockID,
		Action:   dbTrx.Action,
		Quantity: dbTrx.Quantity,
		Price:    dbTrx.Price,
		Status:   dbTrx.Status,
		DtCreate: dbTrx.DtCreate,
	}
}

func ConvertTransactionDetail(dbDetail dbModel.TransactionDetail) model.TransactionDetail {
	return model.TransactionDetail{
		Transaction: model.Transaction{
			ID:       dbDetail.TransactionID,
			UserID:   dbDetail.UserID,
			StockID:  dbDetail.StockID,
			Action:   dbDetail.Action,
			Quantity: dbDetail.Quantity,
			Price:    dbDetail.Price,
			Status:   dbDetail.Status,
			DtCreate: dbDetail.DtCreate,
		},
		Username: dbDetail.Username,
		Email:    dbDetail.Email,
		Symbol:   dbDetail.Symbol,
		Total:    decmath.Value(dbDetail.Quantity, dbDetail.Price),
	}
}
