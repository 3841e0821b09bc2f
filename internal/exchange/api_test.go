package exchange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"hlconnector/internal/action"
	"hlconnector/internal/hlerrors"
	"hlconnector/internal/ratelimit"
	"hlconnector/internal/signer"
	"hlconnector/pkg/decimal"
	"hlconnector/pkg/types"
)

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func newTestAPI(t *testing.T, exchangeHandler http.HandlerFunc) *API {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/info", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(metaResponse{Universe: []universeEntry{{Name: "BTC"}, {Name: "ETH"}}})
	})
	mux.HandleFunc("/exchange", exchangeHandler)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	hc := NewHTTPClient(srv.URL, ratelimit.NewLimiter(100, 100))
	cat := NewAssetCatalog(hc)
	s, err := signer.New(testPrivateKey)
	if err != nil {
		t.Fatal(err)
	}
	return NewAPI(hc, cat, s, "b")
}

func TestPlaceOrderRestingResult(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["nonce"] == nil {
			t.Error("request missing nonce")
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"response": map[string]interface{}{
				"type": "order",
				"data": map[string]interface{}{
					"statuses": []interface{}{
						map[string]interface{}{"resting": map[string]interface{}{"oid": 12345}},
					},
				},
			},
		})
	})

	req := types.OrderRequest{
		Pair:   types.NewTradingPair("BTC"),
		Side:   types.Buy,
		Kind:   types.OrderKindLimit,
		TIF:    types.TIFGtc,
		Price:  decimal.MustNewFromString("87000"),
		Amount: decimal.MustNewFromString("0.01"),
	}

	result, err := api.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.Resting == nil {
		t.Fatal("expected Resting result")
	}
	if result.Resting.Oid != 12345 {
		t.Errorf("oid = %d, want 12345", result.Resting.Oid)
	}
}

func TestPlaceOrderFilledResult(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"response": map[string]interface{}{
				"data": map[string]interface{}{
					"statuses": []interface{}{
						map[string]interface{}{"filled": map[string]interface{}{
							"totalSz": "0.01", "avgPx": "87001.5", "oid": 777,
						}},
					},
				},
			},
		})
	})

	req := types.OrderRequest{
		Pair:   types.NewTradingPair("BTC"),
		Side:   types.Buy,
		Kind:   types.OrderKindMarket,
		Price:  decimal.Zero,
		Amount: decimal.MustNewFromString("0.01"),
	}

	result, err := api.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.Filled == nil {
		t.Fatal("expected Filled result")
	}
	if result.Filled.Oid != 777 {
		t.Errorf("oid = %d, want 777", result.Filled.Oid)
	}
	if !result.Filled.TotalSize.Equal(decimal.MustNewFromString("0.01")) {
		t.Errorf("totalSize = %s, want 0.01", result.Filled.TotalSize)
	}
}

func TestPlaceOrderPerOrderRejection(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"response": map[string]interface{}{
				"data": map[string]interface{}{
					"statuses": []interface{}{
						map[string]interface{}{"error": "insufficient margin"},
					},
				},
			},
		})
	})

	req := types.OrderRequest{
		Pair:   types.NewTradingPair("BTC"),
		Side:   types.Sell,
		Kind:   types.OrderKindLimit,
		TIF:    types.TIFGtc,
		Price:  decimal.MustNewFromString("1"),
		Amount: decimal.MustNewFromString("1000"),
	}

	result, err := api.PlaceOrder(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.Err != "insufficient margin" {
		t.Errorf("Err = %q, want %q", result.Err, "insufficient margin")
	}
}

func TestPlaceOrderTopLevelErrorEnvelope(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status":   "err",
			"response": "nonce too old",
		})
	})

	req := types.OrderRequest{
		Pair:   types.NewTradingPair("BTC"),
		Side:   types.Buy,
		Kind:   types.OrderKindLimit,
		TIF:    types.TIFGtc,
		Price:  decimal.MustNewFromString("1"),
		Amount: decimal.MustNewFromString("1"),
	}

	_, err := api.PlaceOrder(context.Background(), req)
	var apiErr *hlerrors.ExchangeAPIError
	if err == nil {
		t.Fatal("expected error")
	}
	if !asExchangeAPIError(err, &apiErr) {
		t.Fatalf("error = %v, want *ExchangeAPIError", err)
	}
}

func asExchangeAPIError(err error, target **hlerrors.ExchangeAPIError) bool {
	e, ok := err.(*hlerrors.ExchangeAPIError)
	if ok {
		*target = e
	}
	return ok
}

func TestCancelOrdersBatch(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"status": "ok",
			"response": map[string]interface{}{
				"data": map[string]interface{}{
					"statuses": []interface{}{
						"success",
						map[string]interface{}{"error": "already closed"},
					},
				},
			},
		})
	})

	results, err := api.CancelOrders(context.Background(), []action.CancelEntry{
		{Asset: 0, Oid: 1},
		{Asset: 0, Oid: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[1].Err != "already closed" {
		t.Errorf("results[1].Err = %q, want %q", results[1].Err, "already closed")
	}
}

// TestCancelOrdersBareOkEnvelope covers §8 scenario 2's cancel response
// shape: {"status":"ok"} with no "response" field at all.
func TestCancelOrdersBareOkEnvelope(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"status": "ok"})
	})

	results, err := api.CancelOrders(context.Background(), []action.CancelEntry{{Asset: 0, Oid: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	if results[0].Err != "" {
		t.Errorf("results[0].Err = %q, want empty (success)", results[0].Err)
	}
}
