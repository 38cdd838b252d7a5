// Package detect implements the fixed, ordered battery of detection
// modules described by spec.md §4.D: independent heuristics sharing a
// per-scan Context, with early-exit, memoization scoped per token, and an
// externalized "short" form produced after the pipeline runs.
package detect

import (
	"context"
	"time"

	"tokenwatch/internal/chain"
	"tokenwatch/internal/config"
	"tokenwatch/internal/memoizer"
	"tokenwatch/internal/store"
	"tokenwatch/internal/tokenlist"
	"tokenwatch/internal/transformer"
)

// Key identifies a module's slot in the shared scan Context.
type Key string

const (
	KeyTokenImpersonation     Key = "TokenImpersonation"
	KeyAirdrop                Key = "Airdrop"
	KeyTooMuchAirdropActivity Key = "TooMuchAirdropActivity"
	KeyLowActivityAfterAirdrop Key = "LowActivityAfterAirdrop"
	KeyErc721MultipleOwners   Key = "Erc721MultipleOwners"
	KeyErc721NonUniqueTokens  Key = "Erc721NonUniqueTokens"
	KeyErc721FalseTotalSupply Key = "Erc721FalseTotalSupply"
	KeySilentMint             Key = "SilentMint"
	KeySleepMint              Key = "SleepMint"
	KeyTooManyTokenCreations  Key = "TooManyTokenCreations"
	KeyPhishingMetadata       Key = "PhishingMetadata"
	KeyTooManyHoneyPotOwners  Key = "TooManyHoneyPotOwners"
	KeyHoneypotShareDominance Key = "HoneypotShareDominance"
	KeyHighActivity           Key = "HighActivity"
	KeyObservationTime        Key = "ObservationTime"
)

// Result is one module's contribution to the scan Context.
type Result struct {
	Detected bool
	Metadata any
}

// Context is the ephemeral per-scan map populated in module order and
// discarded after interpretation produces the externalized short form.
type Context map[Key]Result

// Get performs the defensive presence check modules use to read a
// prerequisite's result, per spec.md §9.
func (c Context) Get(k Key) (Result, bool) {
	r, ok := c[k]
	return r, ok
}

// ScanInput is everything a module's Scan receives, per spec.md §4.D:
// {token, timestamp, blockNumber, context, memoizer, store, transformer,
// provider}, extended with the read-only side-input collaborators.
type ScanInput struct {
	Token       store.TokenContract
	Timestamp   time.Time
	BlockNumber uint64
	Context     Context

	Memoizer    *memoizer.Memoizer
	Store       *store.Store
	Transformer *transformer.Transformer
	Provider    chain.Provider
	Honeypot    chain.HoneypotOracle
	TokenList   chain.TokenList
	Leaderboard *tokenlist.Leaderboard
	Config      *config.Detectors
}

// Module is the shared contract every detector implements: a single Scan
// method, writing into ctx and optionally requesting an early pipeline
// interrupt.
type Module interface {
	Key() Key
	Scan(ctx context.Context, in ScanInput) (Result, bool, error)
	// SimplifyMetadata converts a Result's internal Metadata into the small,
	// externalizable form retained after the scan (spec.md §4.E / §9(c)).
	SimplifyMetadata(Result) any
}

// BurnAddresses are the fixed set of addresses conventionally used to
// retire tokens.
var BurnAddresses = map[string]struct{}{
	"0x0000000000000000000000000000000000000000": {},
	"0x000000000000000000000000000000000000dead": {},
	"0xdead000000000000000000000000000000dead":   {},
}

func IsBurnAddress(addr string) bool {
	_, ok := BurnAddresses[normalize(addr)]
	return ok
}

func normalize(addr string) string {
	if addr == "" {
		return addr
	}
	out := make([]byte, len(addr))
	for i := 0; i < len(addr); i++ {
		c := addr[i]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}

// Order is the fixed execution order of the battery, per spec.md §4.D.
// The analyzer iterates this slice exactly as given.
var Order = []Key{
	KeyTokenImpersonation,
	KeyAirdrop,
	KeyTooMuchAirdropActivity,
	KeyLowActivityAfterAirdrop,
	KeyErc721MultipleOwners,
	KeyErc721NonUniqueTokens,
	KeyErc721FalseTotalSupply,
	KeySilentMint,
	KeySleepMint,
	KeyTooManyTokenCreations,
	KeyPhishingMetadata,
	KeyTooManyHoneyPotOwners,
	KeyHoneypotShareDominance,
	KeyHighActivity,
	KeyObservationTime,
}
