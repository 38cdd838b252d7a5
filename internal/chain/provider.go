// Package chain declares the narrow interfaces the detector battery uses to
// reach the chain and off-chain metadata. Concrete implementations (an
// ethclient-backed provider, a mocked provider for tests) live outside the
// core per spec.md §1's "explicitly out of scope" list: the chain reader,
// contract-type identification and the honeypot oracle are external
// collaborators here, not reimplemented.
package chain

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Provider is the read-only view of the chain that detector modules are
// allowed to use. All methods are safe to call concurrently; callers that
// need bounded fan-out (spec.md §5 PROVIDER_CONCURRENCY) coordinate that
// themselves.
type Provider interface {
	// CodeAt returns the length of the code at addr at blockNumber (zero for
	// an externally-owned account). Used by Airdrop's EOA verification.
	CodeAt(ctx context.Context, addr common.Address, blockNumber uint64) (int, error)

	// TokenMetadata returns a token's name/symbol as reported on-chain.
	TokenMetadata(ctx context.Context, token common.Address) (name, symbol string, err error)

	// OwnerOf calls ERC-721's ownerOf(tokenId) at blockNumber.
	OwnerOf(ctx context.Context, token common.Address, tokenID *big.Int, blockNumber uint64) (common.Address, error)

	// TokenURI calls ERC-721's tokenURI(tokenId) at blockNumber.
	TokenURI(ctx context.Context, token common.Address, tokenID *big.Int, blockNumber uint64) (string, error)

	// TotalSupply calls ERC-721/20's totalSupply() at blockNumber. The bool
	// return reports whether the call succeeded (false means "not
	// implemented"), per spec.md §4.D module 7's memoized probe.
	TotalSupply(ctx context.Context, token common.Address, blockNumber uint64) (*big.Int, bool, error)

	// Allowance calls ERC-20's allowance(owner, spender) at blockNumber.
	Allowance(ctx context.Context, token common.Address, owner, spender common.Address, blockNumber uint64) (*big.Int, error)

	// PairTokens calls token0()/token1() and reports whether both succeeded,
	// identifying a liquidity-pair contract for the SleepMint exception.
	PairTokens(ctx context.Context, addr common.Address, blockNumber uint64) (token0, token1 common.Address, isPair bool, err error)
}

// TypeIdentifier classifies a freshly deployed contract address into a
// recognized token standard, or reports that none applies. This is the pure
// function spec.md §1 calls out as an external collaborator.
type TypeIdentifier interface {
	IdentifyStandard(ctx context.Context, addr common.Address, deployBlock uint64) (standard string, ok bool, err error)
}

// HoneypotOracle reports whether an address is a known honeypot, per
// spec.md §9 ("narrow asynchronous interfaces").
type HoneypotOracle interface {
	IsHoneypot(ctx context.Context, addr common.Address, blockNumber uint64) (isHoneypot bool, metadata map[string]any, err error)
}

// TokenRecord is a well-known token's identity, used by TokenImpersonation.
type TokenRecord struct {
	Name        string
	Symbol      string
	Deployments []string // addresses this record is known to actually be deployed at
}

// TokenList exposes the read-only "known tokens" side-input.
type TokenList interface {
	KnownTokens(ctx context.Context) ([]TokenRecord, error)
}
