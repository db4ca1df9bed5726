package rest

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/internal/converter/restConverter"
	"github.com/stockerhq/stocker/utils"
)

// tradeRequest leaves price optional, a trade without one executes at the
// current quote.
type tradeRequest struct {
	StockID  string           `json:"stock_id" binding:"required"`
	Quantity int64            `json:"quantity" binding:"required"`
	Price    *decimal.Decimal `json:"price"`
}

func (ctrl *Controller) ListStocks(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	stocks, err := ctrl.valuationService.ListStocks(ctx)
	if err != nil {
		slog.Error("got error from valuationService.ListStocks", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.StocksResponse(stocks))
}

func (ctrl *Controller) Buy(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	sess, ok := sessionFromGinCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := ctrl.ledgerService.Buy(ctx, sess.UserID, req.StockID, req.Quantity, req.Price)
	if err != nil {
		slog.Error("got error from ledgerService.Buy", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.TradeResultResponse(result))
}

func (ctrl *Controller) Sell(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	sess, ok := sessionFromGinCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	var req tradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := ctrl.ledgerService.Sell(ctx, sess.UserID, req.StockID, req.Quantity, req.Price)
	if err != nil {
		slog.Error("got error from ledgerService.Sell", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.TradeResultResponse(result))
}

func (ctrl *Controller) Portfolio(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	sess, ok := sessionFromGinCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	summary, err := ctrl.valuationService.Portfolio(ctx, sess.UserID)
	if err != nil {
		slog.Error("got error from valuationService.Portfolio", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.PortfolioSummaryResponse(summary))
}

func (ctrl *Controller) ListTransactions(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	sess, ok := sessionFromGinCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	transactions, err := ctrl.ledgerService.ListTransactions(ctx, sess.UserID)
	if err != nil {
		slog.Error("got error from ledgerService.ListTransactions", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.TransactionsResponse(transactions))
}
