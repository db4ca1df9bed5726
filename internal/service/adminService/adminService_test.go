package adminService

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/service"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type stubRepo struct {
	mu            sync.Mutex
	users         map[string]model.User
	positions     map[string][]model.PositionDetail // by userID
	allDetails    []model.PositionDetail
	transactions  []model.TransactionDetail
	stocks        map[string]model.Stock
	deleteUserErr error
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		users:     make(map[string]model.User),
		positions: make(map[string][]model.PositionDetail),
		stocks:    make(map[string]model.Stock),
	}
}

func (r *stubRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
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

func (r *stubRepo) DeleteUser(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.deleteUserErr != nil {
		return r.deleteUserErr
	}
	if _, ok := r.users[userID]; !ok {
		return repository.ErrNotFound
	}
	delete(r.users, userID)
	return nil
}

func (r *stubRepo) DeleteAllUserPositions(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.positions, userID)
	return nil
}

func (r *stubRepo) ListAllTransactionDetails(_ context.Context) ([]model.TransactionDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.TransactionDetail(nil), r.transactions...), nil
}

func (r *stubRepo) ListAllPositionDetails(_ context.Context) ([]model.PositionDetail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.PositionDetail(nil), r.allDetails...), nil
}

func (r *stubRepo) InsertStock(_ context.Context, stock model.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.stocks {
		if existing.Symbol == stock.Symbol {
			return repository.ErrAlreadyExists
		}
	}
	r.stocks[stock.ID] = stock
	return nil
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

func (r *stubRepo) UpdateStockPrice(_ context.Context, stockID string, price decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stock, ok := r.stocks[stockID]
	if !ok {
		return repository.ErrNotFound
	}
	stock.Price = price
	r.stocks[stockID] = stock
	return nil
}

type stubValuation struct {
	rank []model.TraderValuation
	err  error
}

func (v *stubValuation) RankTraders(_ context.Context) ([]model.TraderValuation, error) {
	return v.rank, v.err
}

type stubQuoteCache struct {
	mu     sync.Mutex
	quotes map[string]model.StockQuote
}

func newStubQuoteCache() *stubQuoteCache {
	return &stubQuoteCache{quotes: make(map[string]model.StockQuote)}
}

func (c *stubQuoteCache) SetQuote(_ context.Context, quote model.StockQuote) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.quotes[quote.StockID] = quote
	return nil
}

func (c *stubQuoteCache) quote(stockID string) (model.StockQuote, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	quote, ok := c.quotes[stockID]
	return quote, ok
}

type stubReportGen struct {
	fileBytes []byte
	err       error
}

func (g *stubReportGen) Generate(_ context.Context, _ model.PortfolioOverview, _ []model.TransactionDetail) ([]byte, string, error) {
	if g.err != nil {
		return nil, "", g.err
	}
	return g.fileBytes, ".xlsx", nil
}

type stubCloudStorage struct {
	uploaded  []string
	uploadErr error
}

func (c *stubCloudStorage) UploadFile(_ context.Context, _ io.Reader, filename string) (string, error) {
	if c.uploadErr != nil {
		return "", c.uploadErr
	}
	c.uploaded = append(c.uploaded, filename)
	return "https://drive.google.com/file/d/abc/view", nil
}

func (c *stubCloudStorage) DeleteOldFiles(_ context.Context) error {
	return nil
}

func newTestService(repo *stubRepo, valuation *stubValuation, cache *stubQuoteCache, reportGen *stubReportGen, storage CloudStorage) *AdminService {
	return New(&config.Config{}, repo, valuation, cache, reportGen, storage)
}

func TestDeleteTrader_RemovesAccountAndPositionsKeepsTransactions(t *testing.T) {
	repo := newStubRepo()
	repo.users["u1"] = model.User{ID: "u1", Username: "trader1", Role: model.RoleTrader}
	repo.positions["u1"] = []model.PositionDetail{{UserID: "u1"}}
	repo.transactions = []model.TransactionDetail{{Transaction: model.Transaction{ID: "t1", UserID: "u1"}}}

	svc := newTestService(repo, &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)
	require.NoError(t, svc.DeleteTrader(context.Background(), "u1"))

	_, err := repo.GetUser(context.Background(), "u1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Empty(t, repo.positions["u1"])
	// the audit trail is untouched
	transactions, err := repo.ListAllTransactionDetails(context.Background())
	require.NoError(t, err)
	assert.Len(t, transactions, 1)
}

func TestDeleteTrader_UnknownUser(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)

	err := svc.DeleteTrader(context.Background(), "missing")
	assert.ErrorIs(t, err, service.ErrNotFound)
}

func TestDeleteTrader_RefusesAdminAccounts(t *testing.T) {
	repo := newStubRepo()
	repo.users["a1"] = model.User{ID: "a1", Username: "admin", Role: model.RoleAdmin}

	svc := newTestService(repo, &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)
	err := svc.DeleteTrader(context.Background(), "a1")
	assert.ErrorIs(t, err, service.ErrNotFound)

	_, err = repo.GetUser(context.Background(), "a1")
	assert.NoError(t, err, "admin account must survive")
}

func TestDeleteTrader_PropagatesDeleteFailure(t *testing.T) {
	repo := newStubRepo()
	repo.users["u1"] = model.User{ID: "u1", Role: model.RoleTrader}
	repo.deleteUserErr = errors.New("connection reset")

	svc := newTestService(repo, &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)
	err := svc.DeleteTrader(context.Background(), "u1")
	assert.Error(t, err)
}

func TestPortfolioOverview_SumsGrandTotal(t *testing.T) {
	repo := newStubRepo()
	repo.allDetails = []model.PositionDetail{
		{UserID: "u1", PortfolioEntry: model.PortfolioEntry{Symbol: "INFY", MarketValue: dec("1000")}},
		{UserID: "u2", PortfolioEntry: model.PortfolioEntry{Symbol: "TCS", MarketValue: dec("2500.50")}},
	}

	svc := newTestService(repo, &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)
	overview, err := svc.PortfolioOverview(context.Background())
	require.NoError(t, err)
	assert.Len(t, overview.Positions, 2)
	assert.True(t, overview.GrandTotal.Equal(dec("3500.50")), "grand total = %s", overview.GrandTotal)
}

func TestCreateStock_AssignsIDAndWarmsQuoteCache(t *testing.T) {
	repo := newStubRepo()
	cache := newStubQuoteCache()

	svc := newTestService(repo, &stubValuation{}, cache, &stubReportGen{}, nil)
	stock, err := svc.CreateStock(context.Background(), model.Stock{Symbol: "WIPRO", Name: "Wipro", Price: dec("450")})
	require.NoError(t, err)
	assert.NotEmpty(t, stock.ID)
	assert.False(t, stock.DateAdded.IsZero())

	assert.Eventually(t, func() bool {
		quote, ok := cache.quote(stock.ID)
		return ok && quote.Price.Equal(dec("450"))
	}, time.Second, 10*time.Millisecond)
}

func TestCreateStock_DuplicateSymbol(t *testing.T) {
	repo := newStubRepo()
	svc := newTestService(repo, &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)

	_, err := svc.CreateStock(context.Background(), model.Stock{Symbol: "WIPRO", Price: dec("450")})
	require.NoError(t, err)
	_, err = svc.CreateStock(context.Background(), model.Stock{Symbol: "WIPRO", Price: dec("451")})
	assert.ErrorIs(t, err, service.ErrSymbolTaken)
}

func TestCreateStock_RejectsNonPositivePrice(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)

	_, err := svc.CreateStock(context.Background(), model.Stock{Symbol: "WIPRO", Price: dec("0")})
	assert.ErrorIs(t, err, service.ErrInvalidPrice)
}

func TestUpdateStockPrice_RefreshesQuoteCache(t *testing.T) {
	repo := newStubRepo()
	repo.stocks["s1"] = model.Stock{ID: "s1", Symbol: "INFY", Price: dec("1500")}
	cache := newStubQuoteCache()

	svc := newTestService(repo, &stubValuation{}, cache, &stubReportGen{}, nil)
	require.NoError(t, svc.UpdateStockPrice(context.Background(), "s1", dec("1600")))

	stock, err := repo.GetStock(context.Background(), "s1")
	require.NoError(t, err)
	assert.True(t, stock.Price.Equal(dec("1600")))

	quote, ok := cache.quote("s1")
	require.True(t, ok, "quote must be refreshed synchronously")
	assert.True(t, quote.Price.Equal(dec("1600")), "quote price = %s", quote.Price)
}

func TestUpdateStockPrice_UnknownStock(t *testing.T) {
	svc := newTestService(newStubRepo(), &stubValuation{}, newStubQuoteCache(), &stubReportGen{}, nil)

	err := svc.UpdateStockPrice(context.Background(), "missing", dec("10"))
	assert.ErrorIs(t, err, service.ErrUnknownStock)
}

func TestGenerateLedgerReport_WithoutCloudStorage(t *testing.T) {
	repo := newStubRepo()
	gen := &stubReportGen{fileBytes: []byte("workbook")}

	svc := newTestService(repo, &stubValuation{}, newStubQuoteCache(), gen, nil)
	fileBytes, filename, link, err := svc.GenerateLedgerReport(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []byte("workbook"), fileBytes)
	assert.Contains(t, filename, ".xlsx")
	assert.Empty(t, link)
}

func TestGenerateLedgerReport_UploadsWhenConfigured(t *testing.T) {
	repo := newStubRepo()
	gen := &stubReportGen{fileBytes: []byte("workbook")}
	storage := &stubCloudStorage{}

	svc := newTestService(repo, &stubValuation{}, newStubQuoteCache(), gen, storage)
	_, filename, link, err := svc.GenerateLedgerReport(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, link)
	require.Len(t, storage.uploaded, 1)
	assert.Equal(t, filename, storage.uploaded[0])
}

func TestGenerateLedgerReport_UploadFailureDegradesToNoLink(t *testing.T) {
	gen := &stubReportGen{fileBytes: []byte("workbook")}
	storage := &stubCloudStorage{uploadErr: errors.New("quota exceeded")}

	svc := newTestService(newStubRepo(), &stubValuation{}, newStubQuoteCache(), gen, storage)
	fileBytes, _, link, err := svc.GenerateLedgerReport(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, fileBytes)
	assert.Empty(t, link)
}

func TestListTraderValuations_Passthrough(t *testing.T) {
	valuation := &stubValuation{rank: []model.TraderValuation{
		{UserID: "u2", Username: "bob", PortfolioValue: dec("300")},
		{UserID: "u1", Username: "alice", PortfolioValue: dec("100")},
	}}

	svc := newTestService(newStubRepo(), valuation, newStubQuoteCache(), &stubReportGen{}, nil)
	rank, err := svc.ListTraderValuations(context.Background())
	require.NoError(t, err)
	require.Len(t, rank, 2)
	assert.Equal(t, "bob", rank[0].Username)
}
