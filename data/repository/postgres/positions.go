package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver

	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/converter/dbConverter"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/model/dbModel"
	"github.com/stockerhq/stocker/utils"
)

func (r *Postgres) GetPosition(ctx context.Context, userID, stockID string) (position model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.GetPosition"
	params := map[string]any{
		"userID":  userID,
		"stockID": stockID,
	}
	query := `
		SELECT user_id, stock_id, quantity, avg_cost, dt_update
		FROM positions
		WHERE user_id = $1
		AND stock_id = $2
		`

	slog.Debug("GetPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		switch {
		case err == nil:
			slog.Debug("GetPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		case errors.Is(err, repository.ErrNotFound):
			// absent position is a normal outcome on a first buy
			slog.Debug("GetPosition no row", slog.String("rqID", rqID), slog.String("op", op))
		default:
			slog.Error("GetPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	dbPosition := dbModel.Position{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID, stockID).StructScan(&dbPosition)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Position{}, repository.ErrNotFound
		}
		return model.Position{}, err
	}

	return dbConverter.ConvertPosition(dbPosition), nil
}

func (r *Postgres) UpsertPosition(ctx context.Context, position model.Position) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.UpsertPosition"
	params := map[string]any{
		"userID":   position.UserID,
		"stockID":  position.StockID,
		"quantity": position.Quantity,
		"avgCost":  position.AvgCost,
	}
	query := `
		INSERT INTO positions (user_id, stock_id, quantity, avg_cost, dt_update)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, stock_id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			avg_cost = EXCLUDED.avg_cost,
			dt_update = now()
		`

	slog.Debug("UpsertPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("UpsertPosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("UpsertPosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	// zero-quantity positions are deleted, never stored
	if position.Quantity <= 0 {
		return fmt.Errorf("upsert position with non-positive quantity %d", position.Quantity)
	}

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, position.UserID, position.StockID, position.Quantity, position.AvgCost)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) DeletePosition(ctx context.Context, userID, stockID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeletePosition"
	params := map[string]any{
		"userID":  userID,
		"stockID": stockID,
	}
	query := `
		DELETE FROM positions
		WHERE user_id = $1
		AND stock_id = $2
		`

	slog.Debug("DeletePosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.Any("params", params))
	defer func() {
		if err != nil {
			slog.Error("DeletePosition failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeletePosition completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID, stockID)
	if err != nil {
		return err
	}

	return nil
}

func (r *Postgres) ListPositionsByUser(ctx context.Context, userID string) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListPositionsByUser"
	query := `
		SELECT user_id, stock_id, quantity, avg_cost, dt_update
		FROM positions
		WHERE user_id = $1
		`

	slog.Debug("ListPositionsByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("ListPositionsByUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListPositionsByUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbPosition dbModel.Position
		err = rows.StructScan(&dbPosition)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(dbPosition))
	}

	return positions, nil
}

func (r *Postgres) ListAllPositions(ctx context.Context) (positions []model.Position, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListAllPositions"
	query := `
		SELECT user_id, stock_id, quantity, avg_cost, dt_update
		FROM positions
		`

	slog.Debug("ListAllPositions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListAllPositions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListAllPositions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbPosition dbModel.Position
		err = rows.StructScan(&dbPosition)
		if err != nil {
			return nil, err
		}
		positions = append(positions, dbConverter.ConvertPosition(dbPosition))
	}

	return positions, nil
}

func (r *Postgres) ListPositionDetailsByUser(ctx context.Context, userID string) (details []model.PositionDetail, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListPositionDetailsByUser"
	query := `
		select p.user_id, u.username, u.email, p.stock_id, s.symbol, s."name" as stock_name, p.quantity, p.avg_cost, s.price
		from positions p
		join users u using(user_id)
		join stocks s using(stock_id)
		where p.user_id = $1
		order by s.symbol
		`

	slog.Debug("ListPositionDetailsByUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("ListPositionDetailsByUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListPositionDetailsByUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbDetail dbModel.PositionDetail
		err = rows.StructScan(&dbDetail)
		if err != nil {
			return nil, err
		}
		details = append(details, dbConverter.ConvertPositionDetail(dbDetail))
	}

	return details, nil
}

func (r *Postgres) ListAllPositionDetails(ctx context.Context) (details []model.PositionDetail, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListAllPositionDetails"
	query := `
		select p.user_id, u.username, u.email, p.stock_id, s.symbol, s."name" as stock_name, p.quantity, p.avg_cost, s.price
		from positions p
		join users u using(user_id)
		join stocks s using(stock_id)
		order by u.username, s.symbol
		`

	slog.Debug("ListAllPositionDetails start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListAllPositionDetails failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListAllPositionDetails completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbDetail dbModel.PositionDetail
		err = rows.StructScan(&dbDetail)
		if err != nil {
			return nil, err
		}
		details = append(details, dbConverter.ConvertPositionDetail(dbDetail))
	}

	return details, nil
}

func (r *Postgres) DeleteAllUserPositions(ctx context.Context, userID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteAllUserPositions"
	query := `
		DELETE FROM positions
		WHERE user_id = $1
		`

	slog.Debug("DeleteAllUserPositions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("DeleteAllUserPositions failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteAllUserPositions completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, userID)
	if err != nil {
		return err
	}

	return nil
}
