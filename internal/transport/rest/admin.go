package rest

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/internal/converter/restConverter"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type createStockRequest struct {
	Symbol    string          `json:"symbol" binding:"required"`
	Name      string          `json:"name" binding:"required"`
	Price     decimal.Decimal `json:"price" binding:"required"`
	Sector    string          `json:"sector"`
	Industry  string          `json:"industry"`
	MarketCap decimal.Decimal `json:"market_cap"`
}

type updateStockPriceRequest struct {
	Price decimal.Decimal `json:"price" binding:"required"`
}

func (ctrl *Controller) ListTraderValuations(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	valuations, err := ctrl.adminService.ListTraderValuations(ctx)
	if err != nil {
		slog.Error("got error from adminService.ListTraderValuations", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.TraderValuationsResponse(valuations))
}

func (ctrl *Controller) DeleteTrader(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	userID := c.Param("id")

	if err := ctrl.adminService.DeleteTrader(ctx, userID); err != nil {
		slog.Error("got error from adminService.DeleteTrader", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (ctrl *Controller) ListAllTransactions(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	details, err := ctrl.adminService.ListAllTransactions(ctx)
	if err != nil {
		slog.Error("got error from adminService.ListAllTransactions", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.TransactionDetailsResponse(details))
}

func (ctrl *Controller) PortfolioOverview(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	overview, err := ctrl.adminService.PortfolioOverview(ctx)
	if err != nil {
		slog.Error("got error from adminService.PortfolioOverview", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, restConverter.PortfolioOverviewResponse(overview))
}

// DownloadReport streams the xlsx workbook. When the report was also
// uploaded to cloud storage the share link rides along in a header.
func (ctrl *Controller) DownloadReport(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	fileBytes, filename, downloadLink, err := ctrl.adminService.GenerateLedgerReport(ctx)
	if err != nil {
		slog.Error("got error from adminService.GenerateLedgerReport", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	if downloadLink != "" {
		c.Header("X-Download-Link", downloadLink)
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, xlsxContentType, fileBytes)
}

func (ctrl *Controller) CreateStock(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	var req createStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	stock, err := ctrl.adminService.CreateStock(ctx, model.Stock{
		Symbol:    strings.ToUpper(req.Symbol),
		Name:      req.Name,
		Price:     req.Price,
		Sector:    req.Sector,
		Industry:  req.Industry,
		MarketCap: req.MarketCap,
	})
	if err != nil {
		slog.Error("got error from adminService.CreateStock", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, restConverter.StockResponse(stock))
}

func (ctrl *Controller) UpdateStockPrice(c *gin.Context) {
	ctx := utils.CreateCtxWithRqID(c)
	rqID := utils.GetRequestIDFromCtx(ctx)

	stockID := c.Param("id")

	var req updateStockPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := ctrl.adminService.UpdateStockPrice(ctx, stockID, req.Price); err != nil {
		slog.Error("got error from adminService.UpdateStockPrice", slog.String("rqID", rqID), slog.String("err", err.Error()))
		ctrl.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
