package ledgerService

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/decmath"
	"github.com/stockerhq/stocker/internal/keymutex"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/notifier"
	"github.com/stockerhq/stocker/internal/service"
	"github.com/stockerhq/stocker/utils"
)

type Repository interface {
	GetStock(ctx context.Context, stockID string) (model.Stock, error)
	GetUser(ctx context.Context, userID string) (model.User, error)
	GetPosition(ctx context.Context, userID, stockID string) (model.Position, error)
	UpsertPosition(ctx context.Context, position model.Position) error
	DeletePosition(ctx context.Context, userID, stockID string) error
	InsertTransaction(ctx context.Context, trx model.Transaction) error
	ListPositionsByUser(ctx context.Context, userID string) ([]model.Position, error)
	ListTransactionsByUser(ctx context.Context, userID string) ([]model.Transaction, error)
}

type QuoteCache interface {
	GetQuote(ctx context.Context, stockID string) (model.StockQuote, error)
	SetQuote(ctx context.Context, quote model.StockQuote) error
}

type Notifier interface {
	Publish(ctx context.Context, topic string, event notifier.Event) error
}

// LedgerService executes trades against the position store and the
// transaction log. Trades on the same (user, stock) pair are serialized
// through a striped key mutex so the read-compute-write window is atomic;
// trades on different pairs proceed independently.
//
// Write ordering is audit-first: the transaction row is appended before
// the position write, and the position upsert/delete is idempotent and
// retried on failure. When the retry budget runs out the trade surfaces
// ErrPartialTrade carrying the already-recorded transaction id.
type LedgerService struct {
	cfg      *config.Config
	repo     Repository
	cache    QuoteCache
	notifier Notifier
	tradeMu  *keymutex.KeyMutex
}

func New(cfg *config.Config, repo Repository, cache QuoteCache, ntf Notifier) *LedgerService {
	return &LedgerService{
		cfg:      cfg,
		repo:     repo,
		cache:    cache,
		notifier: ntf,
		tradeMu:  keymutex.New(),
	}
}

func tradeKey(userID, stockID string) string {
	return userID + "|" + stockID
}

func (s *LedgerService) Buy(ctx context.Context, userID, stockID string, quantity int64, price *decimal.Decimal) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.Buy"

	slog.Debug("Buy start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("stockID", stockID), slog.Int64("quantity", quantity))
	defer func() {
		slog.Debug("Buy finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("stockID", stockID))
	}()

	if quantity <= 0 {
		return model.TradeResult{}, service.ErrInvalidQuantity
	}

	quote, err := s.getQuote(ctx, stockID)
	if err != nil {
		return model.TradeResult{}, err
	}

	if price == nil { // no custom execution price - trade at the current quote
		price = &quote.Price
	}
	if !price.IsPositive() {
		return model.TradeResult{}, service.ErrInvalidPrice
	}

	key := tradeKey(userID, stockID)
	s.tradeMu.Lock(key)
	defer s.tradeMu.Unlock(key)

	position, err := s.repo.GetPosition(ctx, userID, stockID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("got error from repo.GetPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TradeResult{}, fmt.Errorf("%w: %w", service.ErrStorageUnavailable, err)
	}

	// a first buy starts from the zero position, so the weighted mean
	// collapses to the execution price
	newAvgCost, err := decmath.WeightedAverageCost(position.Quantity, position.AvgCost, quantity, *price)
	if err != nil {
		slog.Error("got error from decmath.WeightedAverageCost", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TradeResult{}, fmt.Errorf("%w: %w", service.ErrArithmetic, err)
	}

	trx := model.Transaction{
		ID:       uuid.NewString(),
		UserID:   userID,
		StockID:  stockID,
		Action:   model.ActionBuy,
		Quantity: quantity,
		Price:    *price,
		Status:   model.StatusCompleted,
		DtCreate: time.Now().UTC(),
	}

	if err = s.repo.InsertTransaction(ctx, trx); err != nil {
		slog.Error("got error from repo.InsertTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TradeResult{}, fmt.Errorf("%w: %w", service.ErrStorageUnavailable, err)
	}

	newPosition := model.Position{
		UserID:   userID,
		StockID:  stockID,
		Quantity: position.Quantity + quantity,
		AvgCost:  newAvgCost,
	}

	err = s.writePosition(ctx, func(ctx context.Context) error {
		return s.repo.UpsertPosition(ctx, newPosition)
	})
	if err != nil {
		return model.TradeResult{}, &service.ErrPartialTrade{TransactionID: trx.ID, Err: err}
	}

	go s.notifyTrade(context.WithoutCancel(ctx), trx, quote.Symbol)

	return model.TradeResult{TransactionID: trx.ID, Position: &newPosition}, nil
}

func (s *LedgerService) Sell(ctx context.Context, userID, stockID string, quantity int64, price *decimal.Decimal) (model.TradeResult, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.Sell"

	slog.Debug("Sell start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("stockID", stockID), slog.Int64("quantity", quantity))
	defer func() {
		slog.Debug("Sell finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("stockID", stockID))
	}()

	if quantity <= 0 {
		return model.TradeResult{}, service.ErrInvalidQuantity
	}

	quote, err := s.getQuote(ctx, stockID)
	if err != nil {
		return model.TradeResult{}, err
	}

	if price == nil {
		price = &quote.Price
	}
	if !price.IsPositive() {
		return model.TradeResult{}, service.ErrInvalidPrice
	}

	key := tradeKey(userID, stockID)
	s.tradeMu.Lock(key)
	defer s.tradeMu.Unlock(key)

	position, err := s.repo.GetPosition(ctx, userID, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.TradeResult{}, service.ErrNoHolding
		}
		slog.Error("got error from repo.GetPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TradeResult{}, fmt.Errorf("%w: %w", service.ErrStorageUnavailable, err)
	}

	if quantity > position.Quantity {
		return model.TradeResult{}, service.ErrInsufficientShares
	}

	remaining := position.Quantity - quantity

	trx := model.Transaction{
		ID:       uuid.NewString(),
		UserID:   userID,
		StockID:  stockID,
		Action:   model.ActionSell,
		Quantity: quantity,
		Price:    *price,
		Status:   model.StatusCompleted,
		DtCreate: time.Now().UTC(),
	}

	if err = s.repo.InsertTransaction(ctx, trx); err != nil {
		slog.Error("got error from repo.InsertTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.TradeResult{}, fmt.Errorf("%w: %w", service.ErrStorageUnavailable, err)
	}

	// selling never re-prices the remaining lot, avg cost is carried as is;
	// selling out deletes the row instead of storing a zero quantity
	var newPosition *model.Position
	var write func(ctx context.Context) error
	if remaining > 0 {
		p := model.Position{UserID: userID, StockID: stockID, Quantity: remaining, AvgCost: position.AvgCost}
		newPosition = &p
		write = func(ctx context.Context) error {
			return s.repo.UpsertPosition(ctx, p)
		}
	} else {
		write = func(ctx context.Context) error {
			return s.repo.DeletePosition(ctx, userID, stockID)
		}
	}

	if err = s.writePosition(ctx, write); err != nil {
		return model.TradeResult{}, &service.ErrPartialTrade{TransactionID: trx.ID, Err: err}
	}

	go s.notifyTrade(context.WithoutCancel(ctx), trx, quote.Symbol)

	return model.TradeResult{TransactionID: trx.ID, Position: newPosition}, nil
}

func (s *LedgerService) GetPosition(ctx context.Context, userID, stockID string) (model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.GetPosition"

	slog.Debug("GetPosition start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("stockID", stockID))
	defer func() {
		slog.Debug("GetPosition finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID), slog.String("stockID", stockID))
	}()

	position, err := s.repo.GetPosition(ctx, userID, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Position{}, service.ErrNotFound
		}
		slog.Error("got error from repo.GetPosition", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Position{}, err
	}

	return position, nil
}

func (s *LedgerService) ListPositions(ctx context.Context, userID string) ([]model.Position, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ListPositions"

	slog.Debug("ListPositions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("ListPositions finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	positions, err := s.repo.ListPositionsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.ListPositionsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return positions, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.ListTransactions"

	slog.Debug("ListTransactions start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("ListTransactions finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	transactions, err := s.repo.ListTransactionsByUser(ctx, userID)
	if err != nil {
		slog.Error("got error from repo.ListTransactionsByUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return transactions, nil
}

// getQuote resolves the stock through the quote cache first and falls back
// to the stock table. The cache is only ever fed from the stock table, so a
// cache hit also proves the stock exists.
func (s *LedgerService) getQuote(ctx context.Context, stockID string) (model.StockQuote, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.getQuote"

	quote, err := s.cache.GetQuote(ctx, stockID)
	if err == nil {
		return quote, nil
	}

	slog.Warn("can't get quote from cache", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))

	stock, err := s.repo.GetStock(ctx, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.StockQuote{}, service.ErrUnknownStock
		}
		slog.Error("got error from repo.GetStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.StockQuote{}, fmt.Errorf("%w: %w", service.ErrStorageUnavailable, err)
	}

	quote = model.StockQuote{StockID: stock.ID, Symbol: stock.Symbol, Price: stock.Price}

	go s.cache.SetQuote(context.WithoutCancel(ctx), quote)

	return quote, nil
}

// writePosition retries the idempotent position write until it succeeds or
// the budget is spent. The transaction row is already durable here, so the
// caller turns the final error into ErrPartialTrade for reconciliation.
func (s *LedgerService) writePosition(ctx context.Context, write func(ctx context.Context) error) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.writePosition"

	attempts := s.cfg.Ledger.WriteRetries
	for {
		err := write(ctx)
		if err == nil {
			return nil
		}

		if attempts <= 0 {
			slog.Error("position write retries exhausted", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			return err
		}

		slog.Warn(
			"position write failed, retrying",
			slog.String("rqID", rqID),
			slog.String("op", op),
			slog.String("err", err.Error()),
			slog.Int("attemptsLeft", attempts),
		)

		attempts--
		time.Sleep(s.cfg.Ledger.WriteRetryBackoff)
	}
}

func (s *LedgerService) notifyTrade(ctx context.Context, trx model.Transaction, symbol string) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "LedgerService.notifyTrade"

	username := trx.UserID
	if user, err := s.repo.GetUser(ctx, trx.UserID); err == nil {
		username = user.Username
	}

	eventType := notifier.EventBuy
	verb := "purchased"
	subject := "Stock Purchase: " + symbol
	if trx.Action == model.ActionSell {
		eventType = notifier.EventSell
		verb = "sold"
		subject = "Stock Sale: " + symbol
	}

	event := notifier.Event{
		Subject: subject,
		Message: fmt.Sprintf("User %s %s %d shares of %s at ₹%s per share.", username, verb, trx.Quantity, symbol, trx.Price.String()),
		Attributes: map[string]string{
			"event_type":   eventType,
			"stock_symbol": symbol,
			"quantity":     strconv.FormatInt(trx.Quantity, 10),
		},
	}

	if err := s.notifier.Publish(ctx, notifier.TopicTransactions, event); err != nil {
		slog.Error("got error from notifier.Publish", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}
}
