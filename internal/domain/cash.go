package domain

import (
	"time"

	"github.com/google/uuid"
)

// CashLedger is the cooperative's single cash position row. Balance is cents
// and may go negative when loans outpace contributions; Version guards the
// compare-and-swap update inside approval transactions.
type CashLedger struct {
	Balance   int64
	Version   int64
	UpdatedBy *uuid.UUID
	UpdatedAt time.Time
}
