package detect

import (
	"context"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/memoizer"
)

// TokenImpersonationModule hashes "<name> (<symbol>)" and flags a token
// whose hash collides with a known-token record that does not list this
// token's address among its deployments (spec.md §4.D module 1).
type TokenImpersonationModule struct{}

func (TokenImpersonationModule) Key() Key { return KeyTokenImpersonation }

var nonAlnum = regexp.MustCompile(`[^a-z0-9 ]+`)
var multiSpace = regexp.MustCompile(`\s+`)

func normalizeNameSymbol(name, symbol string) string {
	combined := strings.ToLower(name) + " (" + strings.ToLower(symbol) + ")"
	combined = nonAlnum.ReplaceAllString(combined, "")
	combined = multiSpace.ReplaceAllString(combined, " ")
	return strings.TrimSpace(combined)
}

// TokenImpersonationMetadata is the module's externalized finding.
type TokenImpersonationMetadata struct {
	ImpersonatedName   string
	ImpersonatedSymbol string
	Hash               string
}

type tokenNameSymbol struct {
	Name   string
	Symbol string
}

func (TokenImpersonationModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	ns, err := memoizer.Memo(in.Memoizer, in.Token.Address, "tokenMetadata", nil, func() (tokenNameSymbol, error) {
		name, symbol, err := in.Provider.TokenMetadata(ctx, common.HexToAddress(in.Token.Address))
		return tokenNameSymbol{Name: name, Symbol: symbol}, err
	})
	if err != nil {
		// transient provider error: non-detecting, never throws.
		return Result{Detected: false}, false, nil
	}

	hash := normalizeNameSymbol(ns.Name, ns.Symbol)

	if in.TokenList == nil {
		return Result{Detected: false}, false, nil
	}
	records, err := in.TokenList.KnownTokens(ctx)
	if err != nil {
		return Result{Detected: false}, false, nil
	}

	for _, rec := range records {
		if normalizeNameSymbol(rec.Name, rec.Symbol) != hash {
			continue
		}
		listed := false
		for _, d := range rec.Deployments {
			if strings.EqualFold(d, in.Token.Address) {
				listed = true
				break
			}
		}
		if !listed {
			return Result{Detected: true, Metadata: TokenImpersonationMetadata{
				ImpersonatedName: rec.Name, ImpersonatedSymbol: rec.Symbol, Hash: hash,
			}}, false, nil
		}
	}
	return Result{Detected: false}, false, nil
}

func (TokenImpersonationModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	md, _ := r.Metadata.(TokenImpersonationMetadata)
	return map[string]any{"impersonated": md.ImpersonatedName, "symbol": md.ImpersonatedSymbol}
}
