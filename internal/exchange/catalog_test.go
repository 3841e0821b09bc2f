package exchange

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"hlconnector/internal/hlerrors"
	"hlconnector/internal/ratelimit"
)

func newTestHTTPClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, ratelimit.NewLimiter(100, 100))
}

func TestAssetCatalogPopulatesOnFirstUse(t *testing.T) {
	t.Parallel()

	var calls int
	hc := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		var body metaRequest
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body.Type != "meta" {
			t.Errorf("request type = %q, want meta", body.Type)
		}
		_ = json.NewEncoder(w).Encode(metaResponse{Universe: []universeEntry{
			{Name: "BTC"}, {Name: "ETH"}, {Name: "SOL"},
		}})
	})

	cat := NewAssetCatalog(hc)
	idx, err := cat.Index(context.Background(), "ETH")
	if err != nil {
		t.Fatal(err)
	}
	if idx != 1 {
		t.Errorf("ETH index = %d, want 1", idx)
	}

	// Second call must not re-hit the server.
	idx2, err := cat.Index(context.Background(), "SOL")
	if err != nil {
		t.Fatal(err)
	}
	if idx2 != 2 {
		t.Errorf("SOL index = %d, want 2", idx2)
	}
	if calls != 1 {
		t.Errorf("meta endpoint called %d times, want 1", calls)
	}
}

func TestAssetCatalogRetriesAfterTransientFailure(t *testing.T) {
	t.Parallel()

	var calls int
	hc := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(metaResponse{Universe: []universeEntry{{Name: "BTC"}}})
	})

	cat := NewAssetCatalog(hc)

	if _, err := cat.Index(context.Background(), "BTC"); err == nil {
		t.Fatal("first call: want transport error, got nil")
	}

	idx, err := cat.Index(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("second call (retry): %v", err)
	}
	if idx != 0 {
		t.Errorf("BTC index = %d, want 0", idx)
	}
	if calls != 2 {
		t.Errorf("meta endpoint called %d times, want 2 (one failure, one retry)", calls)
	}
}

func TestAssetCatalogUnknownSymbol(t *testing.T) {
	t.Parallel()

	hc := newTestHTTPClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(metaResponse{Universe: []universeEntry{{Name: "BTC"}}})
	})

	cat := NewAssetCatalog(hc)
	_, err := cat.Index(context.Background(), "DOGE")
	if !errors.Is(err, hlerrors.ErrAssetNotFound) {
		t.Fatalf("Index() = %v, want ErrAssetNotFound", err)
	}
}
