package seeder

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSeed = `{
  "users": [
    {"username": "Admin User", "email": "admin@example.com", "password": "admin123", "role": "admin"},
    {"username": "Trader One", "email": "trader1@example.com", "password": "trader123", "role": "trader"}
  ],
  "stocks": [
    {"symbol": "RELIANCE", "name": "Reliance Industries Ltd", "price": "2500.00", "market_cap": "1700000", "sector": "Energy", "industry": "Oil & Gas"},
    {"symbol": "TCS", "name": "Tata Consultancy Services Ltd", "price": "3600.00", "market_cap": "1300000", "sector": "IT", "industry": "IT Services"}
  ],
  "demo_trades": [
    {"email": "trader1@example.com", "symbol": "RELIANCE", "quantity": 10, "price": "2500.00"}
  ]
}`

type stubRepo struct {
	mu           sync.Mutex
	usersByEmail map[string]model.User
	stocksBySym  map[string]model.Stock
	positions    map[string]model.Position
	transactions []model.Transaction
	userInserts  int
	stockInserts int
}

func newStubRepo() *stubRepo {
	return &stubRepo{
		usersByEmail: make(map[string]model.User),
		stocksBySym:  make(map[string]model.Stock),
		positions:    make(map[string]model.Position),
	}
}

func (r *stubRepo) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (r *stubRepo) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.usersByEmail[email]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return user, nil
}

func (r *stubRepo) InsertUser(_ context.Context, user model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.usersByEmail[user.Email] = user
	r.userInserts++
	return nil
}

func (r *stubRepo) GetStockBySymbol(_ context.Context, symbol string) (model.Stock, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	stock, ok := r.stocksBySym[symbol]
	if !ok {
		return model.Stock{}, repository.ErrNotFound
	}
	return stock, nil
}

func (r *stubRepo) InsertStock(_ context.Context, stock model.Stock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stocksBySym[stock.Symbol] = stock
	r.stockInserts++
	return nil
}

func (r *stubRepo) GetPosition(_ context.Context, userID, stockID string) (model.Position, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	position, ok := r.positions[userID+"|"+stockID]
	if !ok {
		return model.Position{}, repository.ErrNotFound
	}
	return position, nil
}

func (r *stubRepo) UpsertPosition(_ context.Context, position model.Position) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.positions[position.UserID+"|"+position.StockID] = position
	return nil
}

func (r *stubRepo) InsertTransaction(_ context.Context, trx model.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transactions = append(r.transactions, trx)
	return nil
}

func writeSeedFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestSeeder(t *testing.T, repo *stubRepo, content string) *Seeder {
	t.Helper()
	cfg := &config.Config{}
	cfg.Seed.Enabled = true
	cfg.Seed.File = writeSeedFile(t, content)
	return New(cfg, repo)
}

func TestRun_SeedsEmptyDatabase(t *testing.T) {
	repo := newStubRepo()
	s := newTestSeeder(t, repo, testSeed)

	require.NoError(t, s.Run(context.Background()))

	admin, err := repo.GetUserByEmail(context.Background(), "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, admin.Role)
	assert.NotEmpty(t, admin.ID)

	trader, err := repo.GetUserByEmail(context.Background(), "trader1@example.com")
	require.NoError(t, err)
	assert.Equal(t, model.RoleTrader, trader.Role)

	reliance, err := repo.GetStockBySymbol(context.Background(), "RELIANCE")
	require.NoError(t, err)
	assert.Equal(t, "Reliance Industries Ltd", reliance.Name)
	assert.True(t, reliance.Price.Equal(decimal.RequireFromString("2500.00")), "price = %s", reliance.Price)
	assert.Equal(t, "Energy", reliance.Sector)

	// the demo trade leaves both an audit row and a position
	require.Len(t, repo.transactions, 1)
	assert.Equal(t, model.ActionBuy, repo.transactions[0].Action)
	assert.Equal(t, model.StatusCompleted, repo.transactions[0].Status)
	assert.Equal(t, int64(10), repo.transactions[0].Quantity)

	position, err := repo.GetPosition(context.Background(), trader.ID, reliance.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), position.Quantity)
	assert.True(t, position.AvgCost.Equal(decimal.RequireFromString("2500.00")), "avgCost = %s", position.AvgCost)
}

func TestRun_RerunIsNoOp(t *testing.T) {
	repo := newStubRepo()
	s := newTestSeeder(t, repo, testSeed)

	require.NoError(t, s.Run(context.Background()))
	require.NoError(t, s.Run(context.Background()))

	assert.Equal(t, 2, repo.userInserts)
	assert.Equal(t, 2, repo.stockInserts)
	assert.Len(t, repo.transactions, 1)

	trader, err := repo.GetUserByEmail(context.Background(), "trader1@example.com")
	require.NoError(t, err)
	reliance, err := repo.GetStockBySymbol(context.Background(), "RELIANCE")
	require.NoError(t, err)

	position, err := repo.GetPosition(context.Background(), trader.ID, reliance.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10), position.Quantity)
}

func TestRun_DisabledDoesNothing(t *testing.T) {
	repo := newStubRepo()
	cfg := &config.Config{}
	cfg.Seed.Enabled = false
	s := New(cfg, repo)

	require.NoError(t, s.Run(context.Background()))

	assert.Zero(t, repo.userInserts)
	assert.Zero(t, repo.stockInserts)
}

func TestRun_SkipsTradeForUnknownSymbol(t *testing.T) {
	const seed = `{
  "users": [{"username": "Trader One", "email": "trader1@example.com", "password": "trader123", "role": "trader"}],
  "stocks": [],
  "demo_trades": [{"email": "trader1@example.com", "symbol": "MISSING", "quantity": 10, "price": "100.00"}]
}`

	repo := newStubRepo()
	s := newTestSeeder(t, repo, seed)

	require.NoError(t, s.Run(context.Background()))

	assert.Empty(t, repo.transactions)
	assert.Empty(t, repo.positions)
}

func TestRun_MissingSeedFile(t *testing.T) {
	repo := newStubRepo()
	cfg := &config.Config{}
	cfg.Seed.Enabled = true
	cfg.Seed.File = filepath.Join(t.TempDir(), "absent.json")
	s := New(cfg, repo)

	assert.Error(t, s.Run(context.Background()))
}
