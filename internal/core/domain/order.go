package domain

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Order is a randomness request decoded from an on-chain order event.
type Order struct {
	Game         string
	ChainID      uint64
	Nonce        uint64
	ClientSeed   common.Hash
	HashedSecret common.Hash
	BlockNumber  uint64
	TxHash       common.Hash
	Raw          types.Log
}

// Response is the oracle's answer to one Order, submitted on-chain
// exactly once.
type Response struct {
	Nonce        uint64
	Legitimate   bool // false when the committed secret could not be produced
	RandomNumber common.Hash
	UsedSecret   common.Hash
}
