// Package exchange implements the signed-action surface of the
// Hyperliquid REST API (§4.5-§4.7): the asset catalog, the thin POST
// layer, and the place/cancel/update-leverage operations built on top of
// the canonical encoder and signer. Grounded on the request-building and
// rate-limit shape of
// _examples/0xtitan6-polymarket-mm/internal/exchange/client.go, adapted
// from Polymarket's HMAC/batch-order API to Hyperliquid's phantom-agent
// signed actions. Requests are never retried automatically.
package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hlconnector/internal/action"
	"hlconnector/internal/hlerrors"
	"hlconnector/internal/signer"
	"hlconnector/pkg/decimal"
	"hlconnector/pkg/types"
)

// API builds, signs, and transmits trading actions, then parses the
// exchange's response envelope (C7).
type API struct {
	http    *HTTPClient
	catalog *AssetCatalog
	signer  *signer.Signer
	source  string // "a" mainnet, "b" testnet
}

// NewAPI constructs the exchange API surface.
func NewAPI(http *HTTPClient, catalog *AssetCatalog, s *signer.Signer, source string) *API {
	return &API{http: http, catalog: catalog, signer: s, source: source}
}

// envelope is the outer `{"status": "ok"|"err", "response": ...}` shape
// every /exchange response uses (§4.7).
type envelope struct {
	Status   string          `json:"status"`
	Response json.RawMessage `json:"response"`
}

type orderStatusesResponse struct {
	Data struct {
		Statuses []json.RawMessage `json:"statuses"`
	} `json:"data"`
}

// RestingResult is returned for an order the exchange accepted onto the
// book without an immediate fill.
type RestingResult struct {
	Oid uint64
}

// FilledResult is returned for an order the exchange filled immediately.
type FilledResult struct {
	Oid       uint64
	TotalSize decimal.Decimal
	AvgPrice  decimal.Decimal
}

// PlaceResult is the parsed per-order outcome of a place-order call.
// Exactly one of Resting, Filled is non-nil, or Err is non-empty.
type PlaceResult struct {
	Resting *RestingResult
	Filled  *FilledResult
	Err     string
}

// sign encodes and signs a canonical action, returning the nonce used so
// the caller can embed the identical value in the transmitted body.
func (a *API) sign(act action.CanonicalAction) (uint64, signer.Signature, error) {
	nonce := a.signer.NextNonce(time.Now().UnixMilli())
	sig, err := a.signer.SignAction(act.EncodeCanonical(), nonce, a.source)
	if err != nil {
		return 0, signer.Signature{}, err
	}
	return nonce, sig, nil
}

// ResolveAssetIndex exposes the asset catalog lookup so callers that
// already hold an exchange_order_id (cancel flows) can build a cancel
// entry without re-deriving the whole order request.
func (a *API) ResolveAssetIndex(ctx context.Context, base string) (uint64, error) {
	return a.catalog.Index(ctx, base)
}

// PlaceOrder submits a single order and returns its parsed outcome.
func (a *API) PlaceOrder(ctx context.Context, req types.OrderRequest) (PlaceResult, error) {
	assetIdx, err := a.catalog.Index(ctx, req.Pair.Base)
	if err != nil {
		return PlaceResult{}, err
	}

	var typeSpec action.OrderTypeSpec
	switch req.Kind {
	case types.OrderKindMarket:
		typeSpec = action.NewMarketType()
	default:
		typeSpec = action.NewLimitType(toActionTIF(req.TIF))
	}

	entry := action.OrderEntry{
		Asset:      assetIdx,
		IsBuy:      req.Side == types.Buy,
		Price:      req.Price.WireString(),
		Size:       req.Amount.WireString(),
		ReduceOnly: req.ReduceOnly,
		Type:       typeSpec,
	}
	act := action.NewPlaceOrderAction([]action.OrderEntry{entry})

	nonce, sig, err := a.sign(act)
	if err != nil {
		return PlaceResult{}, err
	}

	raw, err := a.http.PostExchange(ctx, act, nonce, sig)
	if err != nil {
		return PlaceResult{}, err
	}

	statuses, err := parseOrderStatuses(raw)
	if err != nil {
		return PlaceResult{}, err
	}
	if len(statuses) == 0 {
		return PlaceResult{}, fmt.Errorf("%w: empty statuses array", hlerrors.ErrSerialization)
	}
	return parsePlaceStatus(statuses[0])
}

// CancelOrders submits a batch cancel action covering every given entry
// in one signed request. The manager layer uses this both for a single
// cancel and for "cancel all" (by passing every open order's entry) —
// the wire protocol has no bare cancel-all primitive.
func (a *API) CancelOrders(ctx context.Context, cancels []action.CancelEntry) ([]PlaceResult, error) {
	act := action.NewCancelAction(cancels)

	nonce, sig, err := a.sign(act)
	if err != nil {
		return nil, err
	}

	raw, err := a.http.PostExchange(ctx, act, nonce, sig)
	if err != nil {
		return nil, err
	}

	return parseCancelStatuses(raw, len(cancels))
}

// UpdateLeverage sets leverage and margin mode for one asset. Per §4.7
// this action signs over its JSON form directly, not the canonical
// binary encoder — it is the one action type that bypasses C2.
func (a *API) UpdateLeverage(ctx context.Context, assetIdx uint64, leverage int, cross bool) error {
	act := action.NewUpdateLeverageAction(assetIdx, leverage, cross)

	jsonBytes, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}

	nonce := a.signer.NextNonce(time.Now().UnixMilli())
	sig, err := a.signer.SignAction(jsonBytes, nonce, a.source)
	if err != nil {
		return err
	}

	raw, err := a.http.PostExchange(ctx, act, nonce, sig)
	if err != nil {
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}
	if env.Status == "err" {
		return &hlerrors.ExchangeAPIError{Message: string(env.Response)}
	}
	return nil
}

func toActionTIF(t types.TimeInForce) action.TIF {
	switch t {
	case types.TIFIoc:
		return action.TIFIoc
	case types.TIFAlo:
		return action.TIFAlo
	default:
		return action.TIFGtc
	}
}

func parseOrderStatuses(raw []byte) ([]json.RawMessage, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}
	if env.Status == "err" {
		var msg string
		_ = json.Unmarshal(env.Response, &msg)
		if msg == "" {
			msg = string(env.Response)
		}
		return nil, &hlerrors.ExchangeAPIError{Message: msg}
	}

	var data orderStatusesResponse
	if err := json.Unmarshal(env.Response, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}
	return data.Data.Statuses, nil
}

func parsePlaceStatus(raw json.RawMessage) (PlaceResult, error) {
	var tagged struct {
		Resting *struct {
			Oid uint64 `json:"oid"`
		} `json:"resting"`
		Filled *struct {
			TotalSz string `json:"totalSz"`
			AvgPx   string `json:"avgPx"`
			Oid     uint64 `json:"oid"`
		} `json:"filled"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &tagged); err != nil {
		return PlaceResult{}, fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}

	switch {
	case tagged.Resting != nil:
		return PlaceResult{Resting: &RestingResult{Oid: tagged.Resting.Oid}}, nil
	case tagged.Filled != nil:
		totalSz, err := decimal.NewFromString(tagged.Filled.TotalSz)
		if err != nil {
			return PlaceResult{}, fmt.Errorf("%w: totalSz %q: %v", hlerrors.ErrSerialization, tagged.Filled.TotalSz, err)
		}
		avgPx, err := decimal.NewFromString(tagged.Filled.AvgPx)
		if err != nil {
			return PlaceResult{}, fmt.Errorf("%w: avgPx %q: %v", hlerrors.ErrSerialization, tagged.Filled.AvgPx, err)
		}
		return PlaceResult{Filled: &FilledResult{Oid: tagged.Filled.Oid, TotalSize: totalSz, AvgPrice: avgPx}}, nil
	case tagged.Error != "":
		return PlaceResult{Err: tagged.Error}, nil
	default:
		return PlaceResult{}, fmt.Errorf("%w: unrecognized order status shape", hlerrors.ErrSerialization)
	}
}

// parseCancelStatuses parses a cancel action's response envelope. Unlike a
// place-order status, a successful cancel entry is the bare JSON string
// "success" (§8 scenario 2), and the envelope's "response" field may be
// absent entirely for a bare {"status":"ok"} acknowledgement — want gives
// the number of cancel entries requested, so that bare form can be
// expanded into one success result per entry.
func parseCancelStatuses(raw []byte, want int) ([]PlaceResult, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}
	if env.Status == "err" {
		var msg string
		_ = json.Unmarshal(env.Response, &msg)
		if msg == "" {
			msg = string(env.Response)
		}
		return nil, &hlerrors.ExchangeAPIError{Message: msg}
	}
	if len(env.Response) == 0 {
		return make([]PlaceResult, want), nil
	}

	var data orderStatusesResponse
	if err := json.Unmarshal(env.Response, &data); err != nil {
		return nil, fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}

	results := make([]PlaceResult, 0, len(data.Data.Statuses))
	for _, s := range data.Data.Statuses {
		results = append(results, parseCancelStatus(s))
	}
	return results, nil
}

// parseCancelStatus parses one entry of a cancel response's statuses
// array: the bare string "success", a bare error string, or {"error":
// "..."}. Any other shape is treated as success rather than failing the
// whole batch over a format this connector doesn't yet recognize.
func parseCancelStatus(raw json.RawMessage) PlaceResult {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if s == "success" {
			return PlaceResult{}
		}
		return PlaceResult{Err: s}
	}

	var tagged struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &tagged); err == nil && tagged.Error != "" {
		return PlaceResult{Err: tagged.Error}
	}
	return PlaceResult{}
}
