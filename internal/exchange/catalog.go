package exchange

import (
	"context"
	"fmt"
	"sync"

	"hlconnector/internal/hlerrors"
)

// metaRequest is the body of the lone /info call the catalog ever makes.
type metaRequest struct {
	Type string `json:"type"`
}

type metaResponse struct {
	Universe []universeEntry `json:"universe"`
}

type universeEntry struct {
	Name string `json:"name"`
}

// AssetCatalog is a lazily-populated, then-immutable base-symbol → asset
// index map (§3, §4.6). It is populated at most once successfully: the
// first caller to need an index pays the /info round trip, every later
// caller reuses the cached map. A transient failure populating the
// catalog is not latched — it is returned to that caller, and the next
// caller (whether a retry from the same caller or a concurrent one) pays
// the round trip again rather than being permanently poisoned by one bad
// attempt.
type AssetCatalog struct {
	http *HTTPClient

	mu      sync.Mutex
	indexOf map[string]uint64
}

// NewAssetCatalog returns an empty catalog backed by http.
func NewAssetCatalog(http *HTTPClient) *AssetCatalog {
	return &AssetCatalog{http: http}
}

// Index resolves base (e.g. "BTC") to its numeric asset index, populating
// the catalog from the exchange on first use.
func (c *AssetCatalog) Index(ctx context.Context, base string) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.indexOf == nil {
		indexOf, err := c.fetch(ctx)
		if err != nil {
			return 0, err
		}
		c.indexOf = indexOf
	}

	idx, ok := c.indexOf[base]
	if !ok {
		return 0, fmt.Errorf("%w: %s", hlerrors.ErrAssetNotFound, base)
	}
	return idx, nil
}

func (c *AssetCatalog) fetch(ctx context.Context) (map[string]uint64, error) {
	var resp metaResponse
	if err := c.http.PostInfo(ctx, metaRequest{Type: "meta"}, &resp); err != nil {
		return nil, fmt.Errorf("asset catalog: populate: %w", err)
	}

	indexOf := make(map[string]uint64, len(resp.Universe))
	for i, u := range resp.Universe {
		indexOf[u.Name] = uint64(i)
	}
	return indexOf, nil
}
