package validator

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fairside/validator/internal/core/domain"
	"github.com/fairside/validator/internal/infra/chain"
)

// Game supplies the per-game knowledge a watcher needs: which events to
// watch, how to pull the order fields out of a log, and which contract
// call resolves an order. Game ABI details never leak into the shared
// state machine.
type Game struct {
	Name           string
	Address        common.Address
	OrderEvent     string
	ProcessedEvent string
	OrderTopic     common.Hash
	ProcessedTopic common.Hash

	// DecodeOrder turns a raw order log into an Order
	DecodeOrder func(lg types.Log) (*domain.Order, error)

	// ProcessedNonce extracts the nonce from a processed log
	ProcessedNonce func(lg types.Log) (uint64, error)

	// Submit sends the resolving transaction and returns its hash
	Submit func(ctx context.Context, resp *domain.Response) (common.Hash, error)
}

// PlatformABI is the event/method surface of the platform game
// contract this validator serves. The same contract hosts every game;
// each game has its own ordered/processed event pair and resolve
// method.
const PlatformABI = `[
	{"type":"event","name":"DiceOrdered","inputs":[
		{"name":"nonce","type":"uint256","indexed":true},
		{"name":"requester","type":"address","indexed":true},
		{"name":"hashedSecret","type":"bytes32","indexed":false},
		{"name":"clientSeed","type":"bytes32","indexed":false}]},
	{"type":"event","name":"DiceProcessed","inputs":[
		{"name":"nonce","type":"uint256","indexed":true},
		{"name":"wasHashedSecretLegitimate","type":"bool","indexed":false},
		{"name":"randomNumber","type":"bytes32","indexed":false},
		{"name":"usedSecret","type":"bytes32","indexed":false}]},
	{"type":"event","name":"CoinflipOrdered","inputs":[
		{"name":"nonce","type":"uint256","indexed":true},
		{"name":"requester","type":"address","indexed":true},
		{"name":"hashedSecret","type":"bytes32","indexed":false},
		{"name":"clientSeed","type":"bytes32","indexed":false}]},
	{"type":"event","name":"CoinflipProcessed","inputs":[
		{"name":"nonce","type":"uint256","indexed":true},
		{"name":"wasHashedSecretLegitimate","type":"bool","indexed":false},
		{"name":"randomNumber","type":"bytes32","indexed":false},
		{"name":"usedSecret","type":"bytes32","indexed":false}]},
	{"type":"function","name":"processDice","stateMutability":"nonpayable","inputs":[
		{"name":"wasHashedSecretLegitimate","type":"bool"},
		{"name":"randomNumber","type":"bytes32"},
		{"name":"usedSecret","type":"bytes32"},
		{"name":"nonce","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"processCoinflip","stateMutability":"nonpayable","inputs":[
		{"name":"wasHashedSecretLegitimate","type":"bool"},
		{"name":"randomNumber","type":"bytes32"},
		{"name":"usedSecret","type":"bytes32"},
		{"name":"nonce","type":"uint256"}],"outputs":[]}
]`

// NewDiceGame binds the dice game to a chain runtime.
func NewDiceGame(rt *chain.Runtime) (Game, error) {
	return newContractGame(rt, "dice", "DiceOrdered", "DiceProcessed", "processDice")
}

// NewCoinflipGame binds the coinflip game to a chain runtime.
func NewCoinflipGame(rt *chain.Runtime) (Game, error) {
	return newContractGame(rt, "coinflip", "CoinflipOrdered", "CoinflipProcessed", "processCoinflip")
}

// GamesFor resolves configured game names against a runtime.
func GamesFor(rt *chain.Runtime, names []string) ([]Game, error) {
	games := make([]Game, 0, len(names))
	for _, name := range names {
		var (
			g   Game
			err error
		)
		switch name {
		case "dice":
			g, err = NewDiceGame(rt)
		case "coinflip":
			g, err = NewCoinflipGame(rt)
		default:
			err = fmt.Errorf("unknown game %q", name)
		}
		if err != nil {
			return nil, err
		}
		games = append(games, g)
	}
	return games, nil
}

func newContractGame(
	rt *chain.Runtime,
	name, orderEvent, processedEvent, method string,
) (Game, error) {
	orderDef, ok := rt.ABI.Events[orderEvent]
	if !ok {
		return Game{}, fmt.Errorf("event %s not in contract ABI", orderEvent)
	}
	processedDef, ok := rt.ABI.Events[processedEvent]
	if !ok {
		return Game{}, fmt.Errorf("event %s not in contract ABI", processedEvent)
	}
	if _, ok := rt.ABI.Methods[method]; !ok {
		return Game{}, fmt.Errorf("method %s not in contract ABI", method)
	}

	decodeOrder := func(lg types.Log) (*domain.Order, error) {
		if len(lg.Topics) < 2 || lg.Topics[0] != orderDef.ID {
			return nil, fmt.Errorf("log is not a %s event", orderEvent)
		}
		unpacked, err := rt.ABI.Unpack(orderEvent, lg.Data)
		if err != nil {
			return nil, fmt.Errorf("failed to unpack %s: %w", orderEvent, err)
		}
		if len(unpacked) != 2 {
			return nil, fmt.Errorf("unexpected %s arity %d", orderEvent, len(unpacked))
		}
		hashedSecret, ok := unpacked[0].([32]byte)
		if !ok {
			return nil, fmt.Errorf("hashedSecret is not bytes32")
		}
		clientSeed, ok := unpacked[1].([32]byte)
		if !ok {
			return nil, fmt.Errorf("clientSeed is not bytes32")
		}
		return &domain.Order{
			Game:         name,
			ChainID:      rt.ChainID,
			Nonce:        lg.Topics[1].Big().Uint64(),
			HashedSecret: common.Hash(hashedSecret),
			ClientSeed:   common.Hash(clientSeed),
			BlockNumber:  lg.BlockNumber,
			TxHash:       lg.TxHash,
			Raw:          lg,
		}, nil
	}

	processedNonce := func(lg types.Log) (uint64, error) {
		if len(lg.Topics) < 2 || lg.Topics[0] != processedDef.ID {
			return 0, fmt.Errorf("log is not a %s event", processedEvent)
		}
		return lg.Topics[1].Big().Uint64(), nil
	}

	submit := func(ctx context.Context, resp *domain.Response) (common.Hash, error) {
		opts := *rt.Signer
		opts.Context = ctx
		tx, err := rt.Contract.Transact(&opts, method,
			resp.Legitimate,
			[32]byte(resp.RandomNumber),
			[32]byte(resp.UsedSecret),
			new(big.Int).SetUint64(resp.Nonce),
		)
		if err != nil {
			return common.Hash{}, fmt.Errorf("%s failed: %w", method, err)
		}
		return tx.Hash(), nil
	}

	return Game{
		Name:           name,
		Address:        rt.Address,
		OrderEvent:     orderEvent,
		ProcessedEvent: processedEvent,
		OrderTopic:     orderDef.ID,
		ProcessedTopic: processedDef.ID,
		DecodeOrder:    decodeOrder,
		ProcessedNonce: processedNonce,
		Submit:         submit,
	}, nil
}
