package valuationService

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/decmath"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/service"
	"github.com/stockerhq/stocker/utils"
)

type Repository interface {
	GetStock(ctx context.Context, stockID string) (model.Stock, error)
	ListStocks(ctx context.Context) ([]model.Stock, error)
	ListPositionsByUser(ctx context.Context, userID string) ([]model.Position, error)
	ListAllPositions(ctx context.Context) ([]model.Position, error)
	ListPositionDetailsByUser(ctx context.Context, userID string) ([]model.PositionDetail, error)
	ListTraders(ctx context.Context) ([]model.User, error)
}

type QuoteCache interface {
	GetQuote(ctx context.Context, stockID string) (model.StockQuote, error)
	SetQuote(ctx context.Context, quote model.StockQuote) error
	SetQuotes(ctx context.Context, quotes []model.StockQuote) error
}

// ValuationService marks portfolios to market. Prices come from the quote
// cache with the stock table as fallback, never from a position's average
// cost, which is historical.
type ValuationService struct {
	repo  Repository
	cache QuoteCache
}

func New(repo Repository, cache QuoteCache) *ValuationService {
	return &ValuationService{repo: repo, cache: cache}
}

func (s *ValuationService) CurrentPrice(ctx context.Context, stockID string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.CurrentPrice"

	slog.Debug("CurrentPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("stockID", stockID))
	defer func() {
		slog.Debug("CurrentPrice finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("stockID", stockID))
	}()

	return s.stockPrice(ctx, stockID)
}

// ValueOf sums quantity times current price over the user's positions.
// A user with no positions values to zero.
func (s *ValuationService) ValueOf(ctx context.Context, userID string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.ValueOf"

	slog.Debug("ValueOf start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("ValueOf finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	positions, err := s.repo.ListPositionsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.ListPositionsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	total := decimal.Decimal{}
	for _, position := range positions {
		price, err := s.stockPrice(ctx, position.StockID)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(decmath.Value(position.Quantity, price))
	}

	return total, nil
}

// ValueOfAll values every trader, including traders holding nothing.
func (s *ValuationService) ValueOfAll(ctx context.Context) (map[string]decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.ValueOfAll"

	slog.Debug("ValueOfAll start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ValueOfAll finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	traders, err := s.repo.ListTraders(ctx)
	if err != nil {
		slog.Error("got error from repo.ListTraders", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	positions, err := s.repo.ListAllPositions(ctx)
	if err != nil {
		slog.Error("got error from repo.ListAllPositions", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	values := make(map[string]decimal.Decimal, len(traders))
	for _, trader := range traders {
		values[trader.ID] = decimal.Decimal{}
	}

	prices := make(map[string]decimal.Decimal)
	for _, position := range positions {
		price, ok := prices[position.StockID]
		if !ok {
			price, err = s.stockPrice(ctx, position.StockID)
			if err != nil {
				return nil, err
			}
			prices[position.StockID] = price
		}
		values[position.UserID] = values[position.UserID].Add(decmath.Value(position.Quantity, price))
	}

	return values, nil
}

// RankTraders orders traders by portfolio value, richest first. The sort is
// stable so equally valued traders keep their registration order.
func (s *ValuationService) RankTraders(ctx context.Context) ([]model.TraderValuation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.RankTraders"

	slog.Debug("RankTraders start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("RankTraders finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	traders, err := s.repo.ListTraders(ctx)
	if err != nil {
		slog.Error("got error from repo.ListTraders", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	values, err := s.ValueOfAll(ctx)
	if err != nil {
		return nil, err
	}

	rank := make([]model.TraderValuation, 0, len(traders))
	for _, trader := range traders {
		rank = append(rank, model.TraderValuation{
			UserID:         trader.ID,
			Username:       trader.Username,
			Email:          trader.Email,
			PortfolioValue: values[trader.ID],
		})
	}

	sort.SliceStable(rank, func(i, j int) bool {
		return rank[i].PortfolioValue.GreaterThan(rank[j].PortfolioValue)
	})

	return rank, nil
}

// ListStocks returns the market catalog.
func (s *ValuationService) ListStocks(ctx context.Context) ([]model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.ListStocks"

	slog.Debug("ListStocks start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListStocks finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	stocks, err := s.repo.ListStocks(ctx)
	if err != nil {
		slog.Error("got error from repo.ListStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return stocks, nil
}

// Portfolio assembles the trader dashboard view: each holding joined with
// its stock reference data plus the mark-to-market total.
func (s *ValuationService) Portfolio(ctx context.Context, userID string) (model.PortfolioSummary, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.Portfolio"

	slog.Debug("Portfolio start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("Portfolio finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	details, err := s.repo.ListPositionDetailsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.ListPositionDetailsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioSummary{}, err
	}

	summary := model.PortfolioSummary{Entries: make([]model.PortfolioEntry, 0, len(details))}
	for _, detail := range details {
		summary.Entries = append(summary.Entries, detail.PortfolioEntry)
		summary.TotalValue = summary.TotalValue.Add(detail.MarketValue)
	}

	return summary, nil
}

// FillQuoteCache warms the quote cache from the stock table. Runs at
// startup and on the scheduler interval.
func (s *ValuationService) FillQuoteCache(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.FillQuoteCache"

	slog.Debug("FillQuoteCache start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("FillQuoteCache finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	stocks, err := s.repo.ListStocks(ctx)
	if err != nil {
		slog.Error("got error from repo.ListStocks", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	quotes := make([]model.StockQuote, 0, len(stocks))
	for _, stock := range stocks {
		quotes = append(quotes, model.StockQuote{StockID: stock.ID, Symbol: stock.Symbol, Price: stock.Price})
	}

	err = s.cache.SetQuotes(ctx, quotes)
	if err != nil {
		slog.Error("got error from cache.SetQuotes", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *ValuationService) stockPrice(ctx context.Context, stockID string) (decimal.Decimal, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "ValuationService.stockPrice"

	quote, err := s.cache.GetQuote(ctx, stockID)
	if err == nil {
		return quote.Price, nil
	}

	slog.Warn("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	stock, err := s.repo.GetStock(ctx, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return decimal.Decimal{}, service.ErrUnknownStock
		}
		slog.Error("got error from repo.GetStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return decimal.Decimal{}, err
	}

	go s.cache.SetQuote(context.WithoutCancel(ctx), model.StockQuote{StockID: stock.ID, Symbol: stock.Symbol, Price: stock.Price})

	return stock.Price, nil
}
