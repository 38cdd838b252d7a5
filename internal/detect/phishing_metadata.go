package detect

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"tokenwatch/internal/memoizer"
)

// maxPhishingMetadataSamples bounds how many distinct tokenIds this module
// fetches NFT metadata for; it only needs one lure to fire, not an
// exhaustive sweep (see Erc721NonUniqueTokensModule for the exhaustive one).
const maxPhishingMetadataSamples = 3

// PhishingMetadataModule flags a token whose name/symbol (or, for NFTs,
// description) carries a URL alongside phishing language, or a URL that
// shares a host with a known short-URL domain (spec.md §4.D module 11).
type PhishingMetadataModule struct{}

func (PhishingMetadataModule) Key() Key { return KeyPhishingMetadata }

var (
	urlPattern = regexp.MustCompile(`(?i)(?:https?://|www\.)?[a-z0-9-]+(?:\[?\.\]?|\[dot\])[a-z]{2,}(?:/[^\s]*)?`)
	obfuscated = regexp.MustCompile(`\[\.\]|\[dot\]`)
)

var phishingKeywords = []string{
	"visit", "claim", "reward", "rewards", "airdrop", "bonus", "free", "giveaway",
	"$", "€", "£", "win", "gift",
}

func (PhishingMetadataModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	var texts []string

	name, symbol, err := tokenNameSymbolFor(ctx, in)
	if err == nil {
		texts = append(texts, name, symbol)
	}

	if in.Token.Standard == "ERC721" {
		if descriptions, err := nftDescriptionsFor(ctx, in); err == nil {
			texts = append(texts, descriptions...)
		}
	}

	for _, text := range texts {
		if urlLen(text) > in.Config.PhishingDescriptionBudget {
			continue // too long to be a short name/symbol phishing lure
		}
		url, host, found := extractURL(text)
		if !found {
			continue
		}
		if in.Leaderboard != nil && in.Leaderboard.IsMarketplace(host) {
			continue
		}
		hasKeyword := containsPhishingKeyword(text)
		isShortener := in.Leaderboard != nil && in.Leaderboard.IsShortener(host)
		if hasKeyword || isShortener {
			return Result{Detected: true, Metadata: map[string]any{
				"url": url, "host": host, "text": text,
			}}, false, nil
		}
	}
	return Result{Detected: false}, false, nil
}

func urlLen(s string) int { return len(s) }

// tokenNameSymbolFor reuses TokenImpersonation's memoized provider call:
// same scope, name and args hit the cached value with no second chain read.
func tokenNameSymbolFor(ctx context.Context, in ScanInput) (name, symbol string, err error) {
	v, err := memoizer.Memo(in.Memoizer, in.Token.Address, "tokenMetadata", nil, func() (tokenNameSymbol, error) {
		n, s, err := in.Provider.TokenMetadata(ctx, common.HexToAddress(in.Token.Address))
		return tokenNameSymbol{Name: n, Symbol: s}, err
	})
	if err != nil {
		return "", "", err
	}
	return v.Name, v.Symbol, nil
}

// nftDescriptionsFor fetches the resolved metadata body for a small sample
// of the token's distinct tokenIds and returns their "description" fields,
// so phishing lures embedded in NFT descriptions (spec.md §4.D module 11)
// are checked the same way name/symbol are. It reuses
// Erc721NonUniqueTokensModule's tokenURI fetch and metadata resolution
// rather than duplicating the HTTP/IPFS handling.
func nftDescriptionsFor(ctx context.Context, in ScanInput) ([]string, error) {
	events, err := in.Store.Erc721Transfer(in.Token.Address)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	var tokenIDs []string
	for _, e := range events {
		if _, ok := seen[e.TokenID]; ok {
			continue
		}
		seen[e.TokenID] = struct{}{}
		tokenIDs = append(tokenIDs, e.TokenID)
		if len(tokenIDs) >= maxPhishingMetadataSamples {
			break
		}
	}

	var fetcher Erc721NonUniqueTokensModule
	var descriptions []string
	for _, id := range tokenIDs {
		uri, err := fetcher.fetchTokenURI(ctx, in, id)
		if err != nil {
			continue
		}
		body, err := fetcher.resolveMetadataBody(ctx, uri)
		if err != nil {
			continue
		}
		var meta struct {
			Description string `json:"description"`
		}
		if err := json.Unmarshal([]byte(body), &meta); err != nil {
			continue
		}
		if meta.Description != "" {
			descriptions = append(descriptions, meta.Description)
		}
	}
	return descriptions, nil
}

func extractURL(text string) (url, host string, found bool) {
	match := urlPattern.FindString(text)
	if match == "" {
		return "", "", false
	}
	clean := obfuscated.ReplaceAllString(match, ".")
	clean = strings.TrimPrefix(clean, "http://")
	clean = strings.TrimPrefix(clean, "https://")
	host = clean
	if idx := strings.IndexByte(host, '/'); idx >= 0 {
		host = host[:idx]
	}
	return clean, strings.ToLower(host), true
}

func containsPhishingKeyword(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range phishingKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func (PhishingMetadataModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
