package ledgerService

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/notifier"
	"github.com/stockerhq/stocker/internal/service"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func posKey(userID, stockID string) string {
	return userID + "|" + stockID
}

type stubRepo struct {
	mu           sync.Mutex
	stocks       map[string]model.Stock
	users        map[string]model.User
	positions    map[string]model.Position
	transactions []model.Transaction
	failUpserts  int
	failDeletes  int
	insertTrxErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		stocks:    make(map[string]model.Stock),
		users:     make(map[string]model.User),
		positions: make(map[string]model.Position),
	}
}

func (r *stubRepo) GetStock(_ context.Context, stockID string) (model.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stock, ok := r.stocks[stockID]
	if !ok {
		return model.Stock{}, repository.ErrNotFound
	}
	return stock, nil
}

func (r *stubRepo) GetUser(_ context.Context, userID string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (r *stubRepo) GetPosition(_ context.Context, userID, stockID string) (model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.positions[posKey(userID, stockID)]
	if !ok {
		return model.Position{}, repository.ErrNotFound
	}
	return position, nil
}

func (r *stubRepo) UpsertPosition(_ context.Context, position model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpserts > 0 {
		r.failUpserts--
		return errors.New("connection reset")
	}
	r.positions[posKey(position.UserID, position.StockID)] = position
	return nil
}

func (r *stubRepo) DeletePosition(_ context.Context, userID, stockID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failDeletes > 0 {
		r.failDeletes--
		return errors.New("connection reset")
	}
	delete(r.positions, posKey(userID, stockID))
	return nil
}

func (r *stubRepo) InsertTransaction(_ context.Context, trx model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.insertTrxErr != nil {
		return r.insertTrxErr
	}
	r.transactions = append(r.transactions, trx)
	return nil
}

func (r *stubRepo) ListPositionsByUser(_ context.Context, userID string) ([]model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Position
	for _, p := range r.positions {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubRepo) ListTransactionsByUser(_ context.Context, userID string) ([]model.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Transaction
	for _, trx := range r.transactions {
		if trx.UserID == userID {
			out = append(out, trx)
		}
	}
	return out, nil
}

func (r *stubRepo) transactionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.transactions)
}

type stubQuoteCache struct {
	mu     sync.Mutex
	quotes map[string]model.StockQuote
}

func newStubQuoteCache() *stubQuoteCache {
	return &stubQuoteCache{quotes: make(map[string]model.StockQuote)}
}

func (c *stubQuoteCache) GetQuote(_ context.Context, stockID string) (model.StockQuote, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	quote, ok := c.quotes[stockID]
	if !ok {
		return model.StockQuote{}, errors.New("cache miss")
	}
	return quote, nil
}

func (c *stubQuoteCache) SetQuote(_ context.Context, quote model.StockQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[quote.StockID] = quote
	return nil
}

type stubNotifier struct {
	mu     sync.Mutex
	topics []string
	events []notifier.Event
}

func (n *stubNotifier) Publish(_ context.Context, topic string, event notifier.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.topics = append(n.topics, topic)
	n.events = append(n.events, event)
	return nil
}

func (n *stubNotifier) published() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.events)
}

func (n *stubNotifier) last() (string, notifier.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.topics[len(n.topics)-1], n.events[len(n.events)-1]
}

func newTestService(repo *stubRepo, cache *stubQuoteCache, ntf *stubNotifier) *LedgerService {
	cfg := &config.Config{}
	cfg.Ledger.WriteRetries = 2
	cfg.Ledger.WriteRetryBackoff = time.Millisecond
	return New(cfg, repo, cache, ntf)
}

func newTestServiceWithStock(price string) (*LedgerService, *stubRepo, *stubNotifier) {
	repo := newStubRepo()
	repo.stocks["s1"] = model.Stock{ID: "s1", Symbol: "RELIANCE", Name: "Reliance Industries", Price: dec(price)}
	repo.users["u1"] = model.User{ID: "u1", Username: "trader1", Role: model.RoleTrader}
	ntf := &stubNotifier{}
	return newTestService(repo, newStubQuoteCache(), ntf), repo, ntf
}

func TestBuy_FirstBuyOpensPositionAtExecutionPrice(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	price := dec("110.50")
	res, err := svc.Buy(ctx, "u1", "s1", 10, &price)
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.NotEmpty(t, res.TransactionID)
	assert.Equal(t, int64(10), res.Position.Quantity)
	assert.True(t, res.Position.AvgCost.Equal(dec("110.50")), "avg cost = %s", res.Position.AvgCost)

	stored, err := repo.GetPosition(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), stored.Quantity)

	require.Len(t, repo.transactions, 1)
	trx := repo.transactions[0]
	assert.Equal(t, res.TransactionID, trx.ID)
	assert.Equal(t, model.ActionBuy, trx.Action)
	assert.Equal(t, model.StatusCompleted, trx.Status)
	assert.True(t, trx.Price.Equal(dec("110.50")))
}

func TestBuy_SecondBuyBlendsAverageCost(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	// 10 @ 100 then 20 @ 130 averages to 120
	p1, p2 := dec("100"), dec("130")
	_, err := svc.Buy(ctx, "u1", "s1", 10, &p1)
	require.NoError(t, err)
	res, err := svc.Buy(ctx, "u1", "s1", 20, &p2)
	require.NoError(t, err)

	require.NotNil(t, res.Position)
	assert.Equal(t, int64(30), res.Position.Quantity)
	assert.True(t, res.Position.AvgCost.Equal(dec("120")), "avg cost = %s", res.Position.AvgCost)
	assert.Len(t, repo.transactions, 2)
}

func TestBuy_AverageCostIsOrderIndependent(t *testing.T) {
	type lot struct {
		quantity int64
		price    string
	}
	// 100 shares costing 17200 in total, so the weighted mean is 172
	// whichever order the lots arrive in.
	lots := []lot{{10, "100"}, {30, "200"}, {60, "170"}}

	buyAll := func(order [3]int) decimal.Decimal {
		svc, repo, _ := newTestServiceWithStock("100")
		ctx := context.Background()
		for _, i := range order {
			p := dec(lots[i].price)
			_, err := svc.Buy(ctx, "u1", "s1", lots[i].quantity, &p)
			require.NoError(t, err)
		}
		position, err := repo.GetPosition(ctx, "u1", "s1")
		require.NoError(t, err)
		assert.Equal(t, int64(100), position.Quantity)
		return position.AvgCost
	}

	orders := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, order := range orders {
		got := buyAll(order)
		assert.True(t, got.Equal(dec("172")), "order %v produced %s, want 172", order, got)
	}
}

func TestBuy_DefaultsToCurrentQuote(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("87.25")
	ctx := context.Background()

	res, err := svc.Buy(ctx, "u1", "s1", 4, nil)
	require.NoError(t, err)
	assert.True(t, res.Position.AvgCost.Equal(dec("87.25")), "avg cost = %s", res.Position.AvgCost)
	assert.True(t, repo.transactions[0].Price.Equal(dec("87.25")))
}

func TestBuy_ServesQuoteFromCache(t *testing.T) {
	// stock exists only in the cache: a hit must not touch the stock table
	repo := newStubRepo()
	cache := newStubQuoteCache()
	cache.quotes["s9"] = model.StockQuote{StockID: "s9", Symbol: "TCS", Price: dec("3500")}
	svc := newTestService(repo, cache, &stubNotifier{})

	res, err := svc.Buy(context.Background(), "u1", "s9", 2, nil)
	require.NoError(t, err)
	assert.True(t, res.Position.AvgCost.Equal(dec("3500")), "avg cost = %s", res.Position.AvgCost)
}

func TestSell_PartialSellKeepsAverageCost(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	p1, p2 := dec("100"), dec("130")
	_, err := svc.Buy(ctx, "u1", "s1", 10, &p1)
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "u1", "s1", 20, &p2)
	require.NoError(t, err)

	// selling at any price must not re-price the remaining lot
	sellPrice := dec("500")
	res, err := svc.Sell(ctx, "u1", "s1", 12, &sellPrice)
	require.NoError(t, err)
	require.NotNil(t, res.Position)
	assert.Equal(t, int64(18), res.Position.Quantity)
	assert.True(t, res.Position.AvgCost.Equal(dec("120")), "avg cost = %s", res.Position.AvgCost)

	require.Len(t, repo.transactions, 3)
	assert.Equal(t, model.ActionSell, repo.transactions[2].Action)
	assert.True(t, repo.transactions[2].Price.Equal(dec("500")))
}

func TestSell_FullSellDeletesPosition(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	_, err := svc.Buy(ctx, "u1", "s1", 10, nil)
	require.NoError(t, err)

	res, err := svc.Sell(ctx, "u1", "s1", 10, nil)
	require.NoError(t, err)
	assert.Nil(t, res.Position)
	assert.NotEmpty(t, res.TransactionID)

	// zero-quantity rows are never stored
	_, err = repo.GetPosition(ctx, "u1", "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	// the audit trail keeps both trades
	assert.Len(t, repo.transactions, 2)
}

func TestTrades_RejectionsLeaveNoTrace(t *testing.T) {
	tests := []struct {
		name    string
		run     func(svc *LedgerService, ctx context.Context) error
		wantErr error
	}{
		{
			name: "buy with zero quantity",
			run: func(svc *LedgerService, ctx context.Context) error {
				_, err := svc.Buy(ctx, "u1", "s1", 0, nil)
				return err
			},
			wantErr: service.ErrInvalidQuantity,
		},
		{
			name: "buy with negative quantity",
			run: func(svc *LedgerService, ctx context.Context) error {
				_, err := svc.Buy(ctx, "u1", "s1", -3, nil)
				return err
			},
			wantErr: service.ErrInvalidQuantity,
		},
		{
			name: "buy of unknown stock",
			run: func(svc *LedgerService, ctx context.Context) error {
				_, err := svc.Buy(ctx, "u1", "missing", 1, nil)
				return err
			},
			wantErr: service.ErrUnknownStock,
		},
		{
			name: "buy at non-positive price",
			run: func(svc *LedgerService, ctx context.Context) error {
				p := dec("0")
				_, err := svc.Buy(ctx, "u1", "s1", 1, &p)
				return err
			},
			wantErr: service.ErrInvalidPrice,
		},
		{
			name: "sell with zero quantity",
			run: func(svc *LedgerService, ctx context.Context) error {
				_, err := svc.Sell(ctx, "u1", "s1", 0, nil)
				return err
			},
			wantErr: service.ErrInvalidQuantity,
		},
		{
			name: "sell without holding",
			run: func(svc *LedgerService, ctx context.Context) error {
				_, err := svc.Sell(ctx, "u1", "s1", 1, nil)
				return err
			},
			wantErr: service.ErrNoHolding,
		},
		{
			name: "sell of unknown stock",
			run: func(svc *LedgerService, ctx context.Context) error {
				_, err := svc.Sell(ctx, "u1", "missing", 1, nil)
				return err
			},
			wantErr: service.ErrUnknownStock,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, ntf := newTestServiceWithStock("100")
			err := tt.run(svc, context.Background())
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.transactions, "rejected trade must append no transaction")
			assert.Empty(t, repo.positions, "rejected trade must not touch positions")
			assert.Zero(t, ntf.published(), "rejected trade must not notify")
		})
	}
}

func TestSell_InsufficientSharesLeavesPositionIntact(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	_, err := svc.Buy(ctx, "u1", "s1", 10, nil)
	require.NoError(t, err)

	_, err = svc.Sell(ctx, "u1", "s1", 11, nil)
	assert.ErrorIs(t, err, service.ErrInsufficientShares)

	position, err := repo.GetPosition(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), position.Quantity)
	// exact equality is allowed
	_, err = svc.Sell(ctx, "u1", "s1", 10, nil)
	assert.NoError(t, err)
}

func TestBuy_ConcurrentBuysOnSameKeyDoNotLoseUpdates(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	// two racing buys at different prices: the weighted mean is order
	// independent, so any lost update shows up in quantity or cost
	var wg sync.WaitGroup
	for _, lot := range []struct {
		quantity int64
		price    string
	}{{10, "100"}, {20, "130"}} {
		wg.Add(1)
		go func(quantity int64, price string) {
			defer wg.Done()
			p := dec(price)
			_, err := svc.Buy(ctx, "u1", "s1", quantity, &p)
			assert.NoError(t, err)
		}(lot.quantity, lot.price)
	}
	wg.Wait()

	position, err := repo.GetPosition(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(30), position.Quantity)
	assert.True(t, position.AvgCost.Equal(dec("120")), "avg cost = %s", position.AvgCost)
	assert.Equal(t, 2, repo.transactionCount())
}

func TestBuy_ManyConcurrentSingleShareBuys(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	const buyers = 25
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Buy(ctx, "u1", "s1", 1, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	position, err := repo.GetPosition(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(buyers), position.Quantity)
	assert.Equal(t, buyers, repo.transactionCount())
}

func TestBuy_RetriesTransientPositionWriteFailure(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	repo.failUpserts = 1

	res, err := svc.Buy(context.Background(), "u1", "s1", 10, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Position.Quantity)

	position, err := repo.GetPosition(context.Background(), "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(10), position.Quantity)
}

func TestBuy_PartialTradeAfterRetryBudgetExhausted(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	repo.failUpserts = 10 // more than the configured budget

	_, err := svc.Buy(context.Background(), "u1", "s1", 10, nil)

	var partial *service.ErrPartialTrade
	require.ErrorAs(t, err, &partial)

	// the audit row survives the failed position write
	require.Len(t, repo.transactions, 1)
	assert.Equal(t, repo.transactions[0].ID, partial.TransactionID)
	_, err = repo.GetPosition(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSell_PartialTradeWhenDeleteKeepsFailing(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	ctx := context.Background()

	_, err := svc.Buy(ctx, "u1", "s1", 5, nil)
	require.NoError(t, err)

	repo.failDeletes = 10
	_, err = svc.Sell(ctx, "u1", "s1", 5, nil)

	var partial *service.ErrPartialTrade
	require.ErrorAs(t, err, &partial)
	assert.Len(t, repo.transactions, 2)
	assert.Equal(t, repo.transactions[1].ID, partial.TransactionID)
}

func TestBuy_AbortsWhenTransactionAppendFails(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	repo.insertTrxErr = errors.New("connection refused")

	_, err := svc.Buy(context.Background(), "u1", "s1", 10, nil)
	assert.ErrorIs(t, err, service.ErrStorageUnavailable)
	// no position mutation is attempted after a failed append
	assert.Empty(t, repo.positions)
}

func TestTrades_PublishTradeEvents(t *testing.T) {
	svc, _, ntf := newTestServiceWithStock("100")
	ctx := context.Background()

	_, err := svc.Buy(ctx, "u1", "s1", 5, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return ntf.published() == 1 }, time.Second, 10*time.Millisecond)
	topic, event := ntf.last()
	assert.Equal(t, notifier.TopicTransactions, topic)
	assert.Equal(t, notifier.EventBuy, event.Attributes["event_type"])
	assert.Equal(t, "RELIANCE", event.Attributes["stock_symbol"])
	assert.Equal(t, "5", event.Attributes["quantity"])
	assert.Contains(t, event.Message, "trader1")
	assert.Contains(t, event.Message, "purchased")

	_, err = svc.Sell(ctx, "u1", "s1", 5, nil)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return ntf.published() == 2 }, time.Second, 10*time.Millisecond)
	_, event = ntf.last()
	assert.Equal(t, notifier.EventSell, event.Attributes["event_type"])
	assert.Contains(t, event.Message, "sold")
}

func TestGetPosition_MapsMissingRowToNotFound(t *testing.T) {
	svc, _, _ := newTestServiceWithStock("100")

	_, err := svc.GetPosition(context.Background(), "u1", "s1")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestListTransactions_ReturnsOnlyOwnTrades(t *testing.T) {
	svc, repo, _ := newTestServiceWithStock("100")
	repo.users["u2"] = model.User{ID: "u2", Username: "trader2", Role: model.RoleTrader}
	ctx := context.Background()

	_, err := svc.Buy(ctx, "u1", "s1", 1, nil)
	require.NoError(t, err)
	_, err = svc.Buy(ctx, "u2", "s1", 2, nil)
	require.NoError(t, err)

	transactions, err := svc.ListTransactions(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "u1", transactions[0].UserID)
}
