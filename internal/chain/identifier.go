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

	"tokenwatch/internal/model"
)

const identifierABI = `[
 {"inputs":[{"name":"interfaceId","type":"bytes4"}],"name":"supportsInterface","outputs":[{"type":"bool"}],"stateMutability":"view","type":"function"},
 {"inputs":[],"name":"totalSupply","outputs":[{"type":"uint256"}],"stateMutability":"view","type":"function"},
 {"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"type":"uint256"}],"stateMutability":"view","type":"function"}
]`

// interface ids per EIP-721/1155's ERC-165 registration.
var (
	ifaceERC721  = [4]byte{0x80, 0xac, 0x58, 0xcd}
	ifaceERC1155 = [4]byte{0xd9, 0xb6, 0x7a, 0x26}
)

// ABIIdentifier implements TypeIdentifier by probing a freshly deployed
// contract over JSON-RPC: ERC-165's supportsInterface for the NFT
// standards, falling back to a totalSupply()/balanceOf(address) probe for
// ERC-20 (which has no ERC-165 marker of its own).
type ABIIdentifier struct {
	client *ethclient.Client
	abi    abi.ABI
}

// NewABIIdentifier prepares an ABIIdentifier against client.
func NewABIIdentifier(client *ethclient.Client) (*ABIIdentifier, error) {
	parsed, err := abi.JSON(strings.NewReader(identifierABI))
	if err != nil {
		return nil, fmt.Errorf("parse identifier abi: %w", err)
	}
	return &ABIIdentifier{client: client, abi: parsed}, nil
}

func (p *ABIIdentifier) call(ctx context.Context, addr common.Address, blockNumber uint64, method string, out any, args ...any) error {
	data, err := p.abi.Pack(method, args...)
	if err != nil {
		return fmt.Errorf("pack %s: %w", method, err)
	}
	var blockArg *big.Int
	if blockNumber != 0 {
		blockArg = new(big.Int).SetUint64(blockNumber)
	}
	result, err := p.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, blockArg)
	if err != nil {
		return err
	}
	vals, err := p.abi.Unpack(method, result)
	if err != nil {
		return fmt.Errorf("unpack %s: %w", method, err)
	}
	return abi.ConvertType(vals[0], out)
}

func (p *ABIIdentifier) supports(ctx context.Context, addr common.Address, blockNumber uint64, ifaceID [4]byte) bool {
	var ok bool
	if err := p.call(ctx, addr, blockNumber, "supportsInterface", &ok, ifaceID); err != nil {
		return false
	}
	return ok
}

// IdentifyStandard implements TypeIdentifier.
func (p *ABIIdentifier) IdentifyStandard(ctx context.Context, addr common.Address, deployBlock uint64) (string, bool, error) {
	if p.supports(ctx, addr, deployBlock, ifaceERC1155) {
		return string(model.StandardERC1155), true, nil
	}
	if p.supports(ctx, addr, deployBlock, ifaceERC721) {
		return string(model.StandardERC721), true, nil
	}

	var supply, balance big.Int
	if err := p.call(ctx, addr, deployBlock, "totalSupply", &supply); err != nil {
		return "", false, nil
	}
	if err := p.call(ctx, addr, deployBlock, "balanceOf", &balance, addr); err != nil {
		return "", false, nil
	}
	return string(model.StandardERC20), true, nil
}
