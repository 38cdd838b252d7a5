package detect

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"math/big"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

var (
	errInvalidTokenID = errors.New("detect: invalid tokenID")
	errFetchStatus    = errors.New("detect: non-200 tokenURI response")
)

// Erc721NonUniqueTokensModule flags collections that mint many tokenIds
// sharing the same URI or resolved metadata body, a common low-effort
// NFT spam pattern (spec.md §4.D module 6, ERC-721 only).
type Erc721NonUniqueTokensModule struct {
	// HTTPClient fetches tokenURI bodies; overridable in tests.
	HTTPClient *http.Client
}

func (Erc721NonUniqueTokensModule) Key() Key { return KeyErc721NonUniqueTokens }

func (m Erc721NonUniqueTokensModule) client() *http.Client {
	if m.HTTPClient != nil {
		return m.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

func (m Erc721NonUniqueTokensModule) Scan(ctx context.Context, in ScanInput) (Result, bool, error) {
	if in.Token.Standard != "ERC721" {
		return Result{Detected: false}, false, nil
	}
	events, err := in.Store.Erc721Transfer(in.Token.Address)
	if err != nil {
		return Result{Detected: false}, false, err
	}

	seen := map[string]struct{}{}
	var tokenIDs []string
	for _, e := range events {
		if _, ok := seen[e.TokenID]; ok {
			continue
		}
		seen[e.TokenID] = struct{}{}
		tokenIDs = append(tokenIDs, e.TokenID)
	}
	sort.Strings(tokenIDs)

	if len(tokenIDs) > in.Config.MaxNumberOfTokens {
		rand.Shuffle(len(tokenIDs), func(i, j int) { tokenIDs[i], tokenIDs[j] = tokenIDs[j], tokenIDs[i] })
		tokenIDs = tokenIDs[:in.Config.MaxNumberOfTokens]
	}

	uriByToken := map[string]string{}
	for _, id := range tokenIDs {
		uri, err := m.fetchTokenURI(ctx, in, id)
		if err != nil {
			continue
		}
		uriByToken[id] = uri
	}
	if len(uriByToken) == 0 {
		// absolute failure to fetch: abort without falsifying anything.
		return Result{Detected: false}, false, nil
	}

	byURI := map[string][]string{}
	for id, uri := range uriByToken {
		byURI[uri] = append(byURI[uri], id)
	}
	if dupURIs := countDuplicateGroups(byURI); dupURIs >= in.Config.MinNumberOfDuplicateTokens {
		return Result{Detected: true, Metadata: map[string]any{
			"duplicationType": "uri", "groups": dupURIs,
		}}, false, nil
	}

	byBody := map[string][]string{}
	for id, uri := range uriByToken {
		body, err := m.resolveMetadataBody(ctx, uri)
		if err != nil {
			continue
		}
		byBody[body] = append(byBody[body], id)
	}
	if dupBodies := countDuplicateGroups(byBody); dupBodies >= in.Config.MinNumberOfDuplicateTokens {
		return Result{Detected: true, Metadata: map[string]any{
			"duplicationType": "metadata", "groups": dupBodies,
		}}, false, nil
	}

	return Result{Detected: false}, false, nil
}

func countDuplicateGroups(groups map[string][]string) int {
	n := 0
	for _, ids := range groups {
		if len(ids) >= 2 {
			n++
		}
	}
	return n
}

func (m Erc721NonUniqueTokensModule) fetchTokenURI(ctx context.Context, in ScanInput, tokenID string) (string, error) {
	id, ok := new(big.Int).SetString(tokenID, 10)
	if !ok {
		return "", errInvalidTokenID
	}
	return in.Provider.TokenURI(ctx, common.HexToAddress(in.Token.Address), id, in.BlockNumber)
}

// resolveMetadataBody fetches and canonicalizes uri's JSON body, handling
// ipfs:// normalization and inline base64 data URIs, with jittered retries.
func (m Erc721NonUniqueTokensModule) resolveMetadataBody(ctx context.Context, uri string) (string, error) {
	resolved := normalizeURI(uri)

	if strings.HasPrefix(resolved, "data:application/json;base64,") {
		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(resolved, "data:application/json;base64,"))
		if err != nil {
			return "", err
		}
		return canonicalJSON(raw)
	}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			jitter := time.Duration(rand.Intn(200)) * time.Millisecond
			select {
			case <-time.After(time.Duration(attempt)*time.Second + jitter):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, resolved, nil)
		if err != nil {
			return "", err
		}
		resp, err := m.client().Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = err
			continue
		}
		if resp.StatusCode != http.StatusOK {
			lastErr = errFetchStatus
			continue
		}
		return canonicalJSON(body)
	}
	return "", lastErr
}

func canonicalJSON(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func normalizeURI(uri string) string {
	if strings.HasPrefix(uri, "ipfs://") {
		return "https://ipfs.io/ipfs/" + strings.TrimPrefix(uri, "ipfs://")
	}
	return uri
}

func (Erc721NonUniqueTokensModule) SimplifyMetadata(r Result) any {
	if !r.Detected {
		return nil
	}
	return r.Metadata
}
