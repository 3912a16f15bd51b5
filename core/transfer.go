package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer an outbound payment owed to an account. Ledger operations return
// pending transfers; the controller commits them through the asset's
// TokenPort only after its post-condition checks pass, so a rolled-back call
// never leaves a payment behind.
type Transfer struct {
	CreatedAt  time.Time       `json:"created_at,omitempty"`
	TraceID    string          `json:"trace_id,omitempty"`
	OpponentID string          `json:"opponent_id,omitempty"`
	AssetID    string          `json:"asset_id,omitempty"`
	Amount     decimal.Decimal `json:"amount,omitempty"`
	Memo       string          `json:"memo,omitempty"`
}
