package rest

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/internal/service"
)

type UserService interface {
	Register(ctx context.Context, username, email, password, role string) (model.User, error)
	Authenticate(ctx context.Context, email, password, role string) (model.User, error)
}

type LedgerService interface {
	Buy(ctx context.Context, userID, stockID string, quantity int64, price *decimal.Decimal) (model.TradeResult, error)
	Sell(ctx context.Context, userID, stockID string, quantity int64, price *decimal.Decimal) (model.TradeResult, error)
	ListTransactions(ctx context.Context, userID string) ([]model.Transaction, error)
}

type ValuationService interface {
	ListStocks(ctx context.Context) ([]model.Stock, error)
	Portfolio(ctx context.Context, userID string) (model.PortfolioSummary, error)
}

type AdminService interface {
	ListTraderValuations(ctx context.Context) ([]model.TraderValuation, error)
	DeleteTrader(ctx context.Context, userID string) error
	ListAllTransactions(ctx context.Context) ([]model.TransactionDetail, error)
	PortfolioOverview(ctx context.Context) (model.PortfolioOverview, error)
	CreateStock(ctx context.Context, stock model.Stock) (model.Stock, error)
	UpdateStockPrice(ctx context.Context, stockID string, price decimal.Decimal) error
	GenerateLedgerReport(ctx context.Context) (fileBytes []byte, filename string, downloadLink string, err error)
}

type Session interface {
	CreateSession(ctx context.Context, sess model.Session) (token string, err error)
	DeleteSession(ctx context.Context, token string) error
}

type Controller struct {
	userService      UserService
	ledgerService    LedgerService
	valuationService ValuationService
	adminService     AdminService
	session          Session
}

func NewController(
	userService UserService,
	ledgerService LedgerService,
	valuationService ValuationService,
	adminService AdminService,
	session Session,
) *Controller {
	return &Controller{
		userService:      userService,
		ledgerService:    ledgerService,
		valuationService: valuationService,
		adminService:     adminService,
		session:          session,
	}
}

// respondError maps service errors onto HTTP statuses. Wrapped causes stay
// in the logs, the response body only carries the sentinel text.
func (ctrl *Controller) respondError(c *gin.Context, err error) {
	var partialTrade *service.ErrPartialTrade
	switch {
	case errors.As(err, &partialTrade):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":          "trade recorded but position not updated",
			"transaction_id": partialTrade.TransactionID,
		})
	case errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrInvalidPrice):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": service.ErrInvalidCredentials.Error()})
	case errors.Is(err, service.ErrUnknownStock), errors.Is(err, service.ErrNoHolding), errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrEmailTaken), errors.Is(err, service.ErrSymbolTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientShares):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": service.ErrInsufficientShares.Error()})
	case errors.Is(err, service.ErrStorageUnavailable):
		c.JSON(http.StatusBadGateway, gin.H{"error": service.ErrStorageUnavailable.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "something went wrong"})
	}
}

func sessionFromGinCtx(c *gin.Context) (model.Session, bool) {
	v, ok := c.Get("session")
	if !ok {
		return model.Session{}, false
	}
	sess, ok := v.(model.Session)
	return sess, ok
}
