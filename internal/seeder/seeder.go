// Package seeder loads reference users, stocks and demo trades from a JSON
// file on startup. Every entry is looked up before it is written, so running
// the seeder against an already seeded database is a no-op.
package seeder

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/utils"
)

type Repository interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetUserByEmail(ctx context.Context, email string) (model.User, error)
	InsertUser(ctx context.Context, user model.User) error
	GetStockBySymbol(ctx context.Context, symbol string) (model.Stock, error)
	InsertStock(ctx context.Context, stock model.Stock) error
	GetPosition(ctx context.Context, userID, stockID string) (model.Position, error)
	UpsertPosition(ctx context.Context, position model.Position) error
	InsertTransaction(ctx context.Context, trx model.Transaction) error
}

type seedFile struct {
	Users      []seedUser  `json:"users"`
	Stocks     []seedStock `json:"stocks"`
	DemoTrades []seedTrade `json:"demo_trades"`
}

type seedUser struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type seedStock struct {
	Symbol    string          `json:"symbol"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Sector    string          `json:"sector"`
	Industry  string          `json:"industry"`
	MarketCap decimal.Decimal `json:"market_cap"`
}

// seedTrade references its user and stock by email and symbol because ids
// are generated on insert and differ between environments.
type seedTrade struct {
	Email    string          `json:"email"`
	Symbol   string          `json:"symbol"`
	Quantity int64           `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

type Seeder struct {
	cfg  *config.Config
	repo Repository
}

func New(cfg *config.Config, repo Repository) *Seeder {
	return &Seeder{cfg: cfg, repo: repo}
}

func (s *Seeder) Run(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Seeder.Run"

	if !s.cfg.Seed.Enabled {
		slog.Debug("seeding disabled, skipping", slog.String("rqID", rqID), slog.String("op", op))
		return nil
	}

	slog.Debug("Run start", slog.String("rqID", rqID), slog.String("op", op), slog.String("file", s.cfg.Seed.File))

	raw, err := os.ReadFile(s.cfg.Seed.File)
	if err != nil {
		slog.Error("can't read seed file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		slog.Error("can't unmarshal seed file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	users, err := s.seedUsers(ctx, seed.Users)
	if err != nil {
		return err
	}

	stocks, err := s.seedStocks(ctx, seed.Stocks)
	if err != nil {
		return err
	}

	if err := s.seedDemoTrades(ctx, seed.DemoTrades, users, stocks); err != nil {
		return err
	}

	slog.Info("seeding done",
		slog.String("rqID", rqID),
		slog.Int("users", len(seed.Users)),
		slog.Int("stocks", len(seed.Stocks)),
		slog.Int("demoTrades", len(seed.DemoTrades)),
	)

	return nil
}

func (s *Seeder) seedUsers(ctx context.Context, entries []seedUser) (map[string]model.User, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Seeder.seedUsers"

	users := make(map[string]model.User, len(entries))
	inserted := 0

	for _, entry := range entries {
		user, err := s.repo.GetUserByEmail(ctx, entry.Email)
		if err == nil {
			users[entry.Email] = user
			continue
		}

		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("got error from repo.GetUserByEmail", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		user = model.User{
			ID:       uuid.NewString(),
			Username: entry.Username,
			Email:    entry.Email,
			Password: entry.Password,
			Role:     entry.Role,
			DtCreate: time.Now().UTC(),
		}

		if err := s.repo.InsertUser(ctx, user); err != nil {
			slog.Error("got error from repo.InsertUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		users[entry.Email] = user
		inserted++
	}

	slog.Debug("users seeded", slog.String("rqID", rqID), slog.String("op", op), slog.Int("inserted", inserted))

	return users, nil
}

func (s *Seeder) seedStocks(ctx context.Context, entries []seedStock) (map[string]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Seeder.seedStocks"

	stocks := make(map[string]model.Stock, len(entries))
	inserted := 0

	for _, entry := range entries {
		stock, err := s.repo.GetStockBySymbol(ctx, entry.Symbol)
		if err == nil {
			stocks[entry.Symbol] = stock
			continue
		}

		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("got error from repo.GetStockBySymbol", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		stock = model.Stock{
			ID:        uuid.NewString(),
			Symbol:    entry.Symbol,
			Name:      entry.Name,
			Price:     entry.Price,
			Sector:    entry.Sector,
			Industry:  entry.Industry,
			MarketCap: entry.MarketCap,
			DateAdded: time.Now().UTC(),
		}

		if err := s.repo.InsertStock(ctx, stock); err != nil {
			slog.Error("got error from repo.InsertStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return nil, err
		}

		stocks[entry.Symbol] = stock
		inserted++
	}

	slog.Debug("stocks seeded", slog.String("rqID", rqID), slog.String("op", op), slog.Int("inserted", inserted))

	return stocks, nil
}

// seedDemoTrades writes a completed buy transaction and the matching position
// for each demo trade. A trade whose user already holds the stock is skipped,
// so reruns never inflate demo portfolios.
func (s *Seeder) seedDemoTrades(ctx context.Context, entries []seedTrade, users map[string]model.User, stocks map[string]model.Stock) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "Seeder.seedDemoTrades"

	inserted := 0

	for _, entry := range entries {
		user, ok := users[entry.Email]
		if !ok {
			slog.Warn("demo trade references unknown user, skipping", slog.String("rqID", rqID), slog.String("op", op), slog.String("email", entry.Email))
			continue
		}

		stock, ok := stocks[entry.Symbol]
		if !ok {
			slog.Warn("demo trade references unknown stock, skipping", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", entry.Symbol))
			continue
		}

		_, err := s.repo.GetPosition(ctx, user.ID, stock.ID)
		if err == nil {
			continue
		}

		if !errors.Is(err, repository.ErrNotFound) {
			slog.Error("got error from repo.GetPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		trx := model.Transaction{
			ID:       uuid.NewString(),
			UserID:   user.ID,
			StockID:  stock.ID,
			Action:   model.ActionBuy,
			Quantity: entry.Quantity,
			Price:    entry.Price,
			Status:   model.StatusCompleted,
			DtCreate: time.Now().UTC(),
		}

		position := model.Position{
			UserID:   user.ID,
			StockID:  stock.ID,
			Quantity: entry.Quantity,
			AvgCost:  entry.Price,
		}

		err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
			if err := s.repo.InsertTransaction(ctx, trx); err != nil {
				return err
			}
			return s.repo.UpsertPosition(ctx, position)
		})
		if err != nil {
			slog.Error("can't seed demo trade", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		inserted++
	}

	slog.Debug("demo trades seeded", slog.String("rqID", rqID), slog.String("op", op), slog.Int("inserted", inserted))

	return nil
}
