package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

// minimal ABI fragments for the read-only calls Provider needs — mirrors
// the teacher's ABI-bound-contract idiom (nick8319-gb-sc-homework's
// generated ERC-20 binding) without pulling in a generated binding package
// for every standard; the detector battery only ever needs these few
// selectors.
const metadataABI = `[
 {"inputs":[],"name":"name","outputs":[{"type":"string"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"symbol","outputs":[{"type":"string"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"name":"tokenId","type":"uint256"}],"name":"ownerOf","outputs":[{"type":"address"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"name":"tokenId","type":"uint256"}],"name":"tokenURI","outputs":[{"type":"string"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"totalSupply","outputs":[{"type":"uint256"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"type":"uint256"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"token0","outputs":[{"type":"address"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"token1","outputs":[{"type":"address"}],"stateMutability":"view","type":"function"}
]`

// EthProvider implements Provider against a live node over JSON-RPC.
type EthProvider struct {
	client *ethclient.Client
	abi    abi.ABI
}

// NewEthProvider wraps an already-dialed client and prepares the shared ABI
// used for every read-only call.
func NewEthProvider(client *ethclient.Client) (*EthProvider, error) {
	parsed, err := abi.JSON(strings.NewReader(metadataABI))
	if err != nil {
		return nil, fmt.Errorf("parse provider abi: %w", err)
	}
	return &EthProvider{client: client, abi: parsed}, nil
}

func (p *EthProvider) call(ctx context.Context, addr common.Address, blockNumber uint64, method string, out any, args ...any) error {
	data, err := p.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &addr, Data: data}
	var blockArg *big.Int
	if blockNumber != 0 {
		blockArg = new(big.Int).SetUint64(blockNumber)
	}
	result, err := p.client.CallContract(ctx, msg, blockArg)
	if err != nil {
		return err
	}
	vals, err := p.abi.Unpack(method, result)
	if err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return abi.ConvertType(vals[0], out)
}

func (p *EthProvider) CodeAt(ctx context.Context, addr common.Address, blockNumber uint64) (int, error) {
	var blockArg *big.Int
	if blockNumber != 0 {
		blockArg = new(big.Int).SetUint64(blockNumber)
	}
	code, err := p.client.CodeAt(ctx, addr, blockArg)
	if err != nil {
		return 0, err
	}
	return len(code), nil
}

func (p *EthProvider) TokenMetadata(ctx context.Context, token common.Address) (string, string, error) {
	var name, symbol string
	if err := p.call(ctx, token, 0, "name", &name); err != nil {
		return "", "", err
	}
	if err := p.call(ctx, token, 0, "symbol", &symbol); err != nil {
		return name, "", err
	}
	return name, symbol, nil
}

func (p *EthProvider) OwnerOf(ctx context.Context, token common.Address, tokenID *big.Int, blockNumber uint64) (common.Address, error) {
	var owner common.Address
	err := p.call(ctx, token, blockNumber, "ownerOf", &owner, tokenID)
	return owner, err
}

func (p *EthProvider) TokenURI(ctx context.Context, token common.Address, tokenID *big.Int, blockNumber uint64) (string, error) {
	var uri string
	err := p.call(ctx, token, blockNumber, "tokenURI", &uri, tokenID)
	return uri, err
}

func (p *EthProvider) TotalSupply(ctx context.Context, token common.Address, blockNumber uint64) (*big.Int, bool, error) {
	supply := new(big.Int)
	if err := p.call(ctx, token, blockNumber, "totalSupply", supply); err != nil {
		return nil, false, nil // treated as "not implemented", never as a hard error
	}
	return supply, true, nil
}

func (p *EthProvider) Allowance(ctx context.Context, token common.Address, owner, spender common.Address, blockNumber uint64) (*big.Int, error) {
	out := new(big.Int)
	err := p.call(ctx, token, blockNumber, "allowance", out, owner, spender)
	return out, err
}

func (p *EthProvider) PairTokens(ctx context.Context, addr common.Address, blockNumber uint64) (common.Address, common.Address, bool, error) {
	var t0, t1 common.Address
	if err := p.call(ctx, addr, blockNumber, "token0", &t0); err != nil {
		return common.Address{}, common.Address{}, false, nil
	}
	if err := p.call(ctx, addr, blockNumber, "token1", &t1); err != nil {
		return common.Address{}, common.Address{}, false, nil
	}
	return t0, t1, true, nil
}
