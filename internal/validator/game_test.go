package validator

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/fairside/validator/internal/infra/chain"
)

func testRuntime(t *testing.T) *chain.Runtime {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(PlatformABI))
	if err != nil {
		t.Fatalf("platform ABI does not parse: %v", err)
	}
	return &chain.Runtime{
		ChainID: 137,
		Address: common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		ABI:     parsed,
	}
}

func TestGamesFor(t *testing.T) {
	rt := testRuntime(t)

	games, err := GamesFor(rt, []string{"dice", "coinflip"})
	if err != nil {
		t.Fatalf("GamesFor returned %v", err)
	}
	if len(games) != 2 {
		t.Fatalf("games = %d, want 2", len(games))
	}
	if games[0].Name != "dice" || games[0].OrderEvent != "DiceOrdered" {
		t.Errorf("unexpected dice game: %+v", games[0])
	}
	if games[1].Name != "coinflip" || games[1].ProcessedEvent != "CoinflipProcessed" {
		t.Errorf("unexpected coinflip game: %+v", games[1])
	}
	if games[0].OrderTopic == games[1].OrderTopic {
		t.Error("dice and coinflip share an order topic")
	}

	if _, err := GamesFor(rt, []string{"roulette"}); err == nil {
		t.Error("unknown game name did not fail")
	}
}

func TestDecodeOrderRoundTrip(t *testing.T) {
	rt := testRuntime(t)
	game, err := NewDiceGame(rt)
	if err != nil {
		t.Fatal(err)
	}

	hashedSecret := common.HexToHash("0x1111")
	clientSeed := common.HexToHash("0x2222")
	requester := common.HexToAddress("0x00000000000000000000000000000000000000bb")

	data, err := rt.ABI.Events["DiceOrdered"].Inputs.NonIndexed().Pack(
		[32]byte(hashedSecret), [32]byte(clientSeed))
	if err != nil {
		t.Fatal(err)
	}

	lg := types.Log{
		Address: rt.Address,
		Topics: []common.Hash{
			game.OrderTopic,
			common.BigToHash(big.NewInt(42)),
			common.BytesToHash(requester.Bytes()),
		},
		Data:        data,
		BlockNumber: 777,
		TxHash:      common.HexToHash("0xfeed"),
	}

	order, err := game.DecodeOrder(lg)
	if err != nil {
		t.Fatalf("DecodeOrder returned %v", err)
	}
	if order.Nonce != 42 {
		t.Errorf("nonce = %d, want 42", order.Nonce)
	}
	if order.HashedSecret != hashedSecret {
		t.Errorf("hashedSecret = %s, want %s", order.HashedSecret.Hex(), hashedSecret.Hex())
	}
	if order.ClientSeed != clientSeed {
		t.Errorf("clientSeed = %s, want %s", order.ClientSeed.Hex(), clientSeed.Hex())
	}
	if order.Game != "dice" || order.ChainID != 137 || order.BlockNumber != 777 {
		t.Errorf("unexpected order metadata: %+v", order)
	}
}

func TestDecodeOrderRejectsForeignTopic(t *testing.T) {
	rt := testRuntime(t)
	game, err := NewDiceGame(rt)
	if err != nil {
		t.Fatal(err)
	}

	lg := types.Log{
		Address: rt.Address,
		Topics:  []common.Hash{common.HexToHash("0xbad"), common.BigToHash(big.NewInt(1))},
	}
	if _, err := game.DecodeOrder(lg); err == nil {
		t.Error("log with a foreign topic decoded without error")
	}
}

func TestProcessedNonce(t *testing.T) {
	rt := testRuntime(t)
	game, err := NewCoinflipGame(rt)
	if err != nil {
		t.Fatal(err)
	}

	lg := types.Log{
		Topics: []common.Hash{game.ProcessedTopic, common.BigToHash(big.NewInt(99))},
	}
	nonce, err := game.ProcessedNonce(lg)
	if err != nil {
		t.Fatalf("ProcessedNonce returned %v", err)
	}
	if nonce != 99 {
		t.Errorf("nonce = %d, want 99", nonce)
	}
}
