package domain

import "time"

// SyncCursor is the persisted bookmark recording how far one event's
// on-chain history has been ingested. Unique per (ChainID, EventName).
// BlockSync never moves backwards and never drops below BlockCreated.
type SyncCursor struct {
	ChainID      uint64
	EventName    string
	BlockCreated uint64 // contract deployment block, set once
	BlockSync    uint64 // last fully scraped block
	UpdatedAt    time.Time
}
