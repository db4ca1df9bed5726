package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/converter/dbConverter"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/model/dbModel"
	"github.com/stockerhq/stocker/utils"
)

func (r *Postgres) InsertStock(ctx context.Context, stock model.Stock) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertStock"
	query := `
		INSERT INTO stocks (stock_id, symbol, name, price, sector, industry, market_cap, date_added)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

	slog.Debug("InsertStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("symbol", stock.Symbol))
	defer func() {
		if err != nil {
			slog.Error("InsertStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, stock.ID, stock.Symbol, stock.Name, stock.Price, stock.Sector, stock.Industry, stock.MarketCap, stock.DateAdded)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			if pgErr.Code == "23505" { // unique_violation
				return repository.ErrAlreadyExists
			}
		}
		return err
	}

	return nil
}

func (r *Postgres) GetStock(ctx context.Context, stockID string) (stock model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetStock"
	query := `
		SELECT stock_id, symbol, name, price, sector, industry, market_cap, date_added
		FROM stocks
		WHERE stock_id = $1
		`

	slog.Debug("GetStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("stockID", stockID))
	defer func() {
		if err != nil {
			slog.Error("GetStock failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStock completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbStock := dbModel.Stock{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, stockID).StructScan(&dbStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stock{}, repository.ErrNotFound
		}
		return model.Stock{}, err
	}

	return dbConverter.ConvertStock(dbStock), nil
}

func (r *Postgres) GetStockBySymbol(ctx context.Context, symbol string) (stock model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetStockBySymbol"
	query := `
		SELECT stock_id, symbol, name, price, sector, industry, market_cap, date_added
		FROM stocks
		WHERE symbol = $1
		`

	slog.Debug("GetStockBySymbol start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("symbol", symbol))
	defer func() {
		if err != nil {
			slog.Error("GetStockBySymbol failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetStockBySymbol completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	dbStock := dbModel.Stock{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, symbol).StructScan(&dbStock)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Stock{}, repository.ErrNotFound
		}
		return model.Stock{}, err
	}

	return dbConverter.ConvertStock(dbStock), nil
}

func (r *Postgres) ListStocks(ctx context.Context) (stocks []model.Stock, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListStocks"
	query := `
		SELECT stock_id, symbol, name, price, sector, industry, market_cap, date_added
		FROM stocks
		ORDER BY symbol
		`

	slog.Debug("ListStocks start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListStocks failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListStocks completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbStock dbModel.Stock
		err = rows.StructScan(&dbStock)
		if err != nil {
			return nil, err
		}
		stocks = append(stocks, dbConverter.ConvertStock(dbStock))
	}

	return stocks, nil
}

func (r *Postgres) UpdateStockPrice(ctx context.Context, stockID string, price decimal.Decimal) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpdateStockPrice"
	params := map[string]any{
		"stockID": stockID,
		"price":   price,
	}
	query := `
		UPDATE stocks
		SET price = $1
		WHERE stock_id = $2
		`

	slog.Debug("UpdateStockPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("UpdateStockPrice failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpdateStockPrice completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, price, stockID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}

	if affected == 0 {
		return repository.ErrNotFound
	}

	return nil
}
