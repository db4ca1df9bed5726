package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/converter/dbConverter"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/model/dbModel"
	"github.com/stockerhq/stocker/utils"
)

// InsertTransaction is write-once: no update or delete exists anywhere
// for the transactions table, it is the audit source of truth.
func (r *Postgres) InsertTransaction(ctx context.Context, trx model.Transaction) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.InsertTransaction"
	params := map[string]any{
		"transactionID": trx.ID,
		"userID":        trx.UserID,
		"stockID":       trx.StockID,
		"action":        trx.Action,
		"quantity":      trx.Quantity,
		"price":         trx.Price,
	}
	query := `
		INSERT INTO transactions (transaction_id, user_id, stock_id, action, quantity, price, status, dt_create)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`

	slog.Debug("InsertTransaction start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("InsertTransaction failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertTransaction completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, trx.ID, trx.UserID, trx.StockID, trx.Action, trx.Quantity, trx.Price, trx.Status, trx.DtCreate)
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

func (r *Postgres) ListTransactionsByUser(ctx context.Context, userID string) (transactions []model.Transaction, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListTransactionsByUser"
	query := `
		SELECT transaction_id, user_id, stock_id, action, quantity, price, status, dt_create
		FROM transactions
		WHERE user_id = $1
		ORDER BY dt_create DESC
		`

	slog.Debug("ListTransactionsByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("ListTransactionsByUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListTransactionsByUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbTrx dbModel.Transaction
		err = rows.StructScan(&dbTrx)
		if err != nil {
			return nil, err
		}
		transactions = append(transactions, dbConverter.ConvertTransaction(dbTrx))
	}

	return transactions, nil
}

func (r *Postgres) ListAllTransactionDetails(ctx context.Context) (details []model.TransactionDetail, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListAllTransactionDetails"
	// left joins: audit rows survive account deletion
	query := `
		select t.transaction_id, t.user_id, coalesce(u.username, 'unknown') as username, coalesce(u.email, '') as email,
			t.stock_id, coalesce(s.symbol, '') as symbol, t.action, t.quantity, t.price, t.status, t.dt_create
		from transactions t
		left join users u using(user_id)
		left join stocks s using(stock_id)
		order by t.dt_create desc
		`

	slog.Debug("ListAllTransactionDetails start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListAllTransactionDetails failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListAllTransactionDetails completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbDetail dbModel.TransactionDetail
		err = rows.StructScan(&dbDetail)
		if err != nil {
			return nil, err
		}
		details = append(details, dbConverter.ConvertTransactionDetail(dbDetail))
	}

	return details, nil
}
