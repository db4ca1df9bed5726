package adminService

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/data/repository"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/service"
	"github.com/stockerhq/stocker/utils"
)

type Repository interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
	GetUser(ctx context.Context, userID string) (model.User, error)
	DeleteUser(ctx context.Context, userID string) error
	DeleteAllUserPositions(ctx context.Context, userID string) error
	ListAllTransactionDetails(ctx context.Context) ([]model.TransactionDetail, error)
	ListAllPositionDetails(ctx context.Context) ([]model.PositionDetail, error)
	InsertStock(ctx context.Context, stock model.Stock) error
	GetStock(ctx context.Context, stockID string) (model.Stock, error)
	UpdateStockPrice(ctx context.Context, stockID string, price decimal.Decimal) error
}

type Valuation interface {
	RankTraders(ctx context.Context) ([]model.TraderValuation, error)
}

type QuoteCache interface {
	SetQuote(ctx context.Context, quote model.StockQuote) error
}

type ReportGenerator interface {
	Generate(ctx context.Context, overview model.PortfolioOverview, transactions []model.TransactionDetail) (fileBytes []byte, fileExtension string, err error)
}

type CloudStorage interface {
	UploadFile(ctx context.Context, reader io.Reader, filename string) (downloadLink string, err error)
	DeleteOldFiles(ctx context.Context) error
}

type AdminService struct {
	cfg          *config.Config
	repo         Repository
	valuation    Valuation
	cache        QuoteCache
	reportGen    ReportGenerator
	cloudStorage CloudStorage // nil when the drive upload is disabled
}

func New(cfg *config.Config, repo Repository, valuation Valuation, cache QuoteCache, reportGen ReportGenerator, cloudStorage CloudStorage) *AdminService {
	return &AdminService{
		cfg:          cfg,
		repo:         repo,
		valuation:    valuation,
		cache:        cache,
		reportGen:    reportGen,
		cloudStorage: cloudStorage,
	}
}

func (s *AdminService) ListTraderValuations(ctx context.Context) ([]model.TraderValuation, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.ListTraderValuations"

	slog.Debug("ListTraderValuations start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListTraderValuations finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	valuations, err := s.valuation.RankTraders(ctx)
	if err != nil {
		slog.Error("got error from valuation.RankTraders", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return valuations, nil
}

// DeleteTrader removes the trader account and every position they hold in
// one DB transaction. Their rows in the transaction log are left alone, the
// audit trail survives the account.
func (s *AdminService) DeleteTrader(ctx context.Context, userID string) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.DeleteTrader"

	slog.Debug("DeleteTrader start", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	defer func() {
		slog.Debug("DeleteTrader finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("userID", userID))
	}()

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrNotFound
		}
		slog.Error("got error from repo.GetUser", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	// only trader accounts are deletable here
	if user.Role != model.RoleTrader {
		return service.ErrNotFound
	}

	err = s.repo.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeleteAllUserPositions(ctx, userID); err != nil {
			return err
		}
		return s.repo.DeleteUser(ctx, userID)
	})
	if err != nil {
		slog.Error("got error from repo.WithinTransaction", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}

func (s *AdminService) ListAllTransactions(ctx context.Context) ([]model.TransactionDetail, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.ListAllTransactions"

	slog.Debug("ListAllTransactions start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("ListAllTransactions finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	transactions, err := s.repo.ListAllTransactionDetails(ctx)
	if err != nil {
		slog.Error("got error from repo.ListAllTransactionDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, err
	}

	return transactions, nil
}

// PortfolioOverview lists every position in the system with its owner plus
// the grand total mark-to-market value.
func (s *AdminService) PortfolioOverview(ctx context.Context) (model.PortfolioOverview, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.PortfolioOverview"

	slog.Debug("PortfolioOverview start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("PortfolioOverview finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	details, err := s.repo.ListAllPositionDetails(ctx)
	if err != nil {
		slog.Error("got error from repo.ListAllPositionDetails", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.PortfolioOverview{}, err
	}

	overview := model.PortfolioOverview{Positions: details}
	for _, detail := range details {
		overview.GrandTotal = overview.GrandTotal.Add(detail.MarketValue)
	}

	return overview, nil
}

func (s *AdminService) CreateStock(ctx context.Context, stock model.Stock) (model.Stock, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.CreateStock"

	slog.Debug("CreateStock start", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", stock.Symbol))
	defer func() {
		slog.Debug("CreateStock finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("symbol", stock.Symbol))
	}()

	if !stock.Price.IsPositive() {
		return model.Stock{}, service.ErrInvalidPrice
	}

	stock.ID = uuid.NewString()
	if stock.DateAdded.IsZero() {
		stock.DateAdded = time.Now().UTC()
	}

	err := s.repo.InsertStock(ctx, stock)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return model.Stock{}, service.ErrSymbolTaken
		}
		slog.Error("got error from repo.InsertStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return model.Stock{}, err
	}

	go s.cache.SetQuote(context.WithoutCancel(ctx), model.StockQuote{StockID: stock.ID, Symbol: stock.Symbol, Price: stock.Price})

	return stock, nil
}

func (s *AdminService) UpdateStockPrice(ctx context.Context, stockID string, price decimal.Decimal) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.UpdateStockPrice"

	slog.Debug("UpdateStockPrice start", slog.String("rqID", rqID), slog.String("op", op), slog.String("stockID", stockID))
	defer func() {
		slog.Debug("UpdateStockPrice finished", slog.String("rqID", rqID), slog.String("op", op), slog.String("stockID", stockID))
	}()

	if !price.IsPositive() {
		return service.ErrInvalidPrice
	}

	stock, err := s.repo.GetStock(ctx, stockID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrUnknownStock
		}
		slog.Error("got error from repo.GetStock", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = s.repo.UpdateStockPrice(ctx, stockID, price)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return service.ErrUnknownStock
		}
		slog.Error("got error from repo.UpdateStockPrice", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	// refreshed synchronously so a concurrent reader can't pick up the old quote
	err = s.cache.SetQuote(ctx, model.StockQuote{StockID: stockID, Symbol: stock.Symbol, Price: price})
	if err != nil {
		slog.Error("got error from cache.SetQuote", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	return nil
}

// GenerateLedgerReport builds the xlsx workbook with every holding and the
// full transaction history. When cloud storage is configured the file is
// also uploaded and a public download link returned; an upload failure
// degrades to a report without a link.
func (s *AdminService) GenerateLedgerReport(ctx context.Context) (fileBytes []byte, filename string, downloadLink string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.GenerateLedgerReport"

	slog.Debug("GenerateLedgerReport start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("GenerateLedgerReport finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	overview, err := s.PortfolioOverview(ctx)
	if err != nil {
		return nil, "", "", err
	}

	transactions, err := s.ListAllTransactions(ctx)
	if err != nil {
		return nil, "", "", err
	}

	fileBytes, fileExtension, err := s.reportGen.Generate(ctx, overview, transactions)
	if err != nil {
		slog.Error("got error from reportGen.Generate", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", "", err
	}

	filename = "ledger_report_" + time.Now().UTC().Format("20060102_150405") + fileExtension

	if s.cloudStorage != nil {
		downloadLink, err = s.cloudStorage.UploadFile(ctx, bytes.NewReader(fileBytes), filename)
		if err != nil {
			slog.Error("got error from cloudStorage.UploadFile", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
			downloadLink, err = "", nil
		}
	}

	return fileBytes, filename, downloadLink, nil
}

// DeleteOldReports prunes uploaded reports past their TTL. Scheduled job.
func (s *AdminService) DeleteOldReports(ctx context.Context) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "AdminService.DeleteOldReports"

	slog.Debug("DeleteOldReports start", slog.String("rqID", rqID), slog.String("op", op))
	defer func() {
		slog.Debug("DeleteOldReports finished", slog.String("rqID", rqID), slog.String("op", op))
	}()

	if s.cloudStorage == nil {
		return nil
	}

	err := s.cloudStorage.DeleteOldFiles(ctx)
	if err != nil {
		slog.Error("got error from cloudStorage.DeleteOldFiles", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	return nil
}
