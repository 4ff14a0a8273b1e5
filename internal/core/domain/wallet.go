package domain

import "time"

// Wallet is one balance row in the ledger. Mutations go through the
// account lock; the scraper's analytics only read it.
type Wallet struct {
	Address   string
	Balance   int64 // smallest currency unit
	UpdatedAt time.Time
}
