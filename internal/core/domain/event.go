package domain

import "time"

// ScrapedEvent is one contract event row ingested by the scraper.
//
// The natural key (ChainID, TxHash, LogIndex) is fully determined by the
// chain itself. Re-scanning a range after a crash re-derives identical
// keys, which is what makes skip-duplicate reinsertion safe; no column
// of the key may ever be generated locally.
type ScrapedEvent struct {
	ChainID     uint64
	EventName   string
	BlockNumber uint64
	BlockTime   time.Time
	TxHash      string
	LogIndex    uint64
	Payload     []byte // ABI-decoded event args, JSON-encoded
}
