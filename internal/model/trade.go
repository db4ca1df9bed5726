package model

// TradeResult is returned by the ledger engine after an executed trade.
// Position is nil when the trade closed the holding (sell to zero).
type TradeResult struct {
	TransactionID string
	Position      *Position
}
