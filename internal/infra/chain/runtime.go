package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// Runtime is one validated chain handle: a dialed client, the game
// contract bound to it, and the validator signer for that chain.
type Runtime struct {
	ChainID     uint64
	Client      *ethclient.Client
	Reader      Backend
	Address     common.Address
	ABI         abi.ABI
	Contract    *bind.BoundContract
	Signer      *bind.TransactOpts
	DeployBlock uint64
}

// RuntimeConfig holds what it takes to validate one chain.
type RuntimeConfig struct {
	ChainID         uint64
	RPCURL          string
	ContractAddress string
	ContractABI     string // ABI JSON
	DeployBlock     uint64
}

// NewRuntime dials the chain, verifies the node serves the configured
// chain ID, parses the contract ABI and prepares the signer.
func NewRuntime(
	ctx context.Context,
	cfg RuntimeConfig,
	key *ecdsa.PrivateKey,
) (*Runtime, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", cfg.RPCURL, err)
	}

	nodeChainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to query chain id: %w", err)
	}
	if nodeChainID.Uint64() != cfg.ChainID {
		client.Close()
		return nil, fmt.Errorf("chain id mismatch: node serves %d, config says %d",
			nodeChainID.Uint64(), cfg.ChainID)
	}

	parsedABI, err := abi.JSON(strings.NewReader(cfg.ContractABI))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}

	signer, err := bind.NewKeyedTransactorWithChainID(key, new(big.Int).SetUint64(cfg.ChainID))
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to build signer: %w", err)
	}

	address := common.HexToAddress(cfg.ContractAddress)
	contract := bind.NewBoundContract(address, parsedABI, client, client, client)

	return &Runtime{
		ChainID:     cfg.ChainID,
		Client:      client,
		Reader:      client,
		Address:     address,
		ABI:         parsedABI,
		Contract:    contract,
		Signer:      signer,
		DeployBlock: cfg.DeployBlock,
	}, nil
}

// Close releases the underlying client connection.
func (r *Runtime) Close() {
	if r.Client != nil {
		r.Client.Close()
	}
}

// ParseKey decodes a hex-encoded validator signing key.
func ParseKey(hexKey string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(hexKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid validator key: %w", err)
	}
	return key, nil
}
