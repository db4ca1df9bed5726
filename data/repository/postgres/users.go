package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/converter/dbConverter"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/model/dbModel"
	"github.com/stockerhq/stocker/utils"
)

func (r *Postgres) InsertUser(ctx context.Context, user model.User) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		INSERT INTO users (user_id, username, email, password, role)
		VALUES ($1, $2, $3, $4, $5)
		`

	slog.Debug("InsertUser start", slog.String("rqID", rqID), slog.String("query", query), slog.String("email", user.Email))
	defer func() {
		if err != nil {
			slog.Error("InsertUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("InsertUser completed", slog.String("rqID", rqID))
		}
	}()

	_, err = r.txOrDb(ctx).ExecContext(ctx, query, user.ID, user.Username, user.Email, user.Password, user.Role)
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

func (r *Postgres) GetUser(ctx context.Context, userID string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT user_id, username, email, password, role, dt_create
		FROM users
		WHERE user_id = $1
		`

	slog.Debug("GetUser start", slog.String("rqID", rqID), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("GetUser failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUser completed", slog.String("rqID", rqID))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, userID).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) GetUserByEmail(ctx context.Context, email string) (user model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	query := `
		SELECT user_id, username, email, password, role, dt_create
		FROM users
		WHERE email = $1
		`

	slog.Debug("GetUserByEmail start", slog.String("rqID", rqID), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("GetUserByEmail failed", slog.String("rqID", rqID), slog.String("err", err.Error()))
		} else {
			slog.Debug("GetUserByEmail completed", slog.String("rqID", rqID))
		}
	}()

	dbUser := dbModel.User{}
	err = r.txOrDb(ctx).QueryRowxContext(ctx, query, email).StructScan(&dbUser)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.User{}, repository.ErrNotFound
		}
		return model.User{}, err
	}

	return dbConverter.ConvertUser(dbUser), nil
}

func (r *Postgres) ListTraders(ctx context.Context) (traders []model.User, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.ListTraders"
	query := `
		SELECT user_id, username, email, password, role, dt_create
		FROM users
		WHERE role = 'trader'
		ORDER BY dt_create
		`

	slog.Debug("ListTraders start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query))
	defer func() {
		if err != nil {
			slog.Error("ListTraders failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("ListTraders completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	rows, err := r.txOrDb(ctx).QueryxContext(ctx, query)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	for rows.Next() {
		var dbUser dbModel.User
		err = rows.StructScan(&dbUser)
		if err != nil {
			return nil, err
		}
		traders = append(traders, dbConverter.ConvertUser(dbUser))
	}

	return traders, nil
}

func (r *Postgres) DeleteUser(ctx context.Context, userID string) (err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Postgres.DeleteUser"
	query := `
		DELETE FROM users
		WHERE user_id = $1
		`

	slog.Debug("DeleteUser start", slog.String("rqID", rqID), slog.String("op", op), slog.String("query", query), slog.String("userID", userID))
	defer func() {
		if err != nil {
			slog.Error("DeleteUser failed", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		} else {
			slog.Debug("DeleteUser completed", slog.String("rqID", rqID), slog.String("op", op))
		}
	}()

	res, err := r.txOrDb(ctx).ExecContext(ctx, query, userID)
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
