package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
	"github.com/stockerhq/stocker/config"
	"github.com/stockerhq/stocker/internal/model"
	"github.com/stockerhq/stocker/utils"
	"github.com/xuri/excelize/v2"
)

const (
	holdingsSheet     = "Holdings"
	transactionsSheet = "Transactions"
)

type XLSXGenerator struct {
	currencyCode string
}

func New(cfg *config.Config) *XLSXGenerator {
	return &XLSXGenerator{currencyCode: cfg.Reports.Currency}
}

// Generate builds the ledger workbook: one sheet with every holding and the
// grand total, one sheet with the full transaction history.
func (g *XLSXGenerator) Generate(ctx context.Context, overview model.PortfolioOverview, transactions []model.TransactionDetail) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillHoldingsSheet(ctx, f, overview); err != nil {
		return nil, "", err
	}

	if err := g.fillTransactionsSheet(ctx, f, transactions); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func (g *XLSXGenerator) fillHoldingsSheet(ctx context.Context, f *excelize.File, overview model.PortfolioOverview) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillHoldingsSheet"

	_, err := f.NewSheet(holdingsSheet)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = f.MergeCell(holdingsSheet, "A1", "G1")
	if err != nil {
		return err
	}

	f.SetCellValue(holdingsSheet, "A1", "Holdings")

	styleID, err := g.headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(holdingsSheet, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("applying style: %w", err)
	}

	_ = f.SetCellStr(holdingsSheet, "A2", "trader")
	_ = f.SetCellStr(holdingsSheet, "B2", "email")
	_ = f.SetCellStr(holdingsSheet, "C2", "symbol")
	_ = f.SetCellStr(holdingsSheet, "D2", "stock")
	_ = f.SetCellStr(holdingsSheet, "E2", "quantity")
	_ = f.SetCellStr(holdingsSheet, "F2", "avg cost")
	_ = f.SetCellStr(holdingsSheet, "G2", "market value")

	for i, position := range overview.Positions {
		_ = f.SetCellStr(holdingsSheet, fmt.Sprintf("A%d", i+3), position.Username)
		_ = f.SetCellStr(holdingsSheet, fmt.Sprintf("B%d", i+3), position.Email)
		_ = f.SetCellStr(holdingsSheet, fmt.Sprintf("C%d", i+3), position.Symbol)
		_ = f.SetCellStr(holdingsSheet, fmt.Sprintf("D%d", i+3), position.StockName)
		_ = f.SetCellInt(holdingsSheet, fmt.Sprintf("E%d", i+3), position.Quantity)
		_ = f.SetCellStr(holdingsSheet, fmt.Sprintf("F%d", i+3), g.formatMoney(position.AvgCost))
		_ = f.SetCellStr(holdingsSheet, fmt.Sprintf("G%d", i+3), g.formatMoney(position.MarketValue))
	}

	totalRow := len(overview.Positions) + 4

	err = f.MergeCell(holdingsSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("F%d", totalRow))
	if err != nil {
		return err
	}

	f.SetCellValue(holdingsSheet, fmt.Sprintf("A%d", totalRow), "Grand total")

	styleID, err = g.headerStyle(f, "#cccccc")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(holdingsSheet, fmt.Sprintf("A%d", totalRow), fmt.Sprintf("A%d", totalRow), styleID); err != nil {
		return fmt.Errorf("applying style: %w", err)
	}

	_ = f.SetCellStr(holdingsSheet, fmt.Sprintf("G%d", totalRow), g.formatMoney(overview.GrandTotal))

	return nil
}

func (g *XLSXGenerator) fillTransactionsSheet(ctx context.Context, f *excelize.File, transactions []model.TransactionDetail) error {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.fillTransactionsSheet"

	_, err := f.NewSheet(transactionsSheet)
	if err != nil {
		slog.Error("got error while creating NewSheet", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return err
	}

	err = f.MergeCell(transactionsSheet, "A1", "G1")
	if err != nil {
		return err
	}

	f.SetCellValue(transactionsSheet, "A1", "Transaction History")

	styleID, err := g.headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}

	if err := f.SetCellStyle(transactionsSheet, "A1", "A1", styleID); err != nil {
		return fmt.Errorf("applying style: %w", err)
	}

	_ = f.SetCellStr(transactionsSheet, "A2", "date")
	_ = f.SetCellStr(transactionsSheet, "B2", "trader")
	_ = f.SetCellStr(transactionsSheet, "C2", "action")
	_ = f.SetCellStr(transactionsSheet, "D2", "symbol")
	_ = f.SetCellStr(transactionsSheet, "E2", "quantity")
	_ = f.SetCellStr(transactionsSheet, "F2", "price")
	_ = f.SetCellStr(transactionsSheet, "G2", "total")

	for i, trx := range transactions {
		_ = f.SetCellStr(transactionsSheet, fmt.Sprintf("A%d", i+3), trx.DtCreate.Format("2006-01-02 15:04:05"))
		_ = f.SetCellStr(transactionsSheet, fmt.Sprintf("B%d", i+3), trx.Username)
		_ = f.SetCellStr(transactionsSheet, fmt.Sprintf("C%d", i+3), trx.Action)
		_ = f.SetCellStr(transactionsSheet, fmt.Sprintf("D%d", i+3), trx.Symbol)
		_ = f.SetCellInt(transactionsSheet, fmt.Sprintf("E%d", i+3), trx.Quantity)
		_ = f.SetCellStr(transactionsSheet, fmt.Sprintf("F%d", i+3), g.formatMoney(trx.Price))
		_ = f.SetCellStr(transactionsSheet, fmt.Sprintf("G%d", i+3), g.formatMoney(trx.Total))
	}

	return nil
}

func (g *XLSXGenerator) headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) formatMoney(d decimal.Decimal) string {
	minorUnits := d.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	return money.New(minorUnits, g.currencyCode).Display()
}
