package store

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"hlconnector/internal/action"
	"hlconnector/internal/exchange"
	"hlconnector/internal/hlerrors"
	"hlconnector/pkg/decimal"
	"hlconnector/pkg/types"
)

// Manager orchestrates order submission and cancellation against the
// store and the exchange API, implementing the pre-registration
// discipline described in §4.8: an order is tracked before it is ever
// transmitted, so a lost response or a transport failure never leaves a
// submitted order untracked by this process. The store is in memory
// only; its contents do not survive a process restart.
type Manager struct {
	store *Store
	api   *exchange.API
	log   *slog.Logger

	seq atomic.Uint64
}

// NewManager wires a Manager over the given store and exchange API.
func NewManager(s *Store, api *exchange.API, log *slog.Logger) *Manager {
	return &Manager{store: s, api: api, log: log}
}

// nextClientOrderID builds a client_order_id that is unique for the
// lifetime of this process: a millisecond timestamp plus a monotonic
// counter, so two orders submitted within the same millisecond never
// collide.
func (m *Manager) nextClientOrderID() string {
	n := m.seq.Add(1)
	return fmt.Sprintf("hl-%d-%d", time.Now().UnixMilli(), n)
}

// PlaceOrder registers req as a pending order, submits it, and updates
// the stored record according to the exchange's response (§4.8 step 4).
func (m *Manager) PlaceOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	now := time.Now()
	clientID := m.nextClientOrderID()

	order := types.Order{
		ClientOrderID: clientID,
		Pair:          req.Pair,
		Side:          req.Side,
		Kind:          req.Kind,
		TIF:           req.TIF,
		Price:         req.Price,
		Amount:        req.Amount,
		FilledAmount:  decimal.Zero,
		ReduceOnly:    req.ReduceOnly,
		Status:        types.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.store.Insert(order)

	result, err := m.api.PlaceOrder(ctx, req)
	if err != nil {
		// Transport or serialization failure: the order remains pending and
		// is returned together with the error, so the caller decides whether
		// to query and reconcile (§4.8 step 4).
		m.log.Warn("place order failed, order left pending", "client_order_id", clientID, "error", err)
		pending, getErr := m.store.Get(clientID)
		if getErr != nil {
			return types.Order{}, getErr
		}
		return pending, err
	}

	switch {
	case result.Resting != nil:
		oid := result.Resting.Oid
		err = m.store.Mutate(clientID, func(o *types.Order) error {
			o.ExchangeOrderID = &oid
			o.Status = types.StatusResting
			return nil
		})
	case result.Filled != nil:
		oid := result.Filled.Oid
		err = m.store.Mutate(clientID, func(o *types.Order) error {
			o.ExchangeOrderID = &oid
			o.FilledAmount = result.Filled.TotalSize
			o.Status = types.StatusFilled
			return nil
		})
	default:
		err = m.store.Mutate(clientID, func(o *types.Order) error {
			o.Status = types.StatusRejected
			return nil
		})
		if err == nil {
			err = &hlerrors.OrderRejectedError{Message: result.Err}
		}
	}
	if err != nil {
		return types.Order{}, err
	}
	return m.store.Get(clientID)
}

// CancelOrder cancels a single tracked order by client_order_id.
func (m *Manager) CancelOrder(ctx context.Context, clientOrderID string) (types.Order, error) {
	o, err := m.store.Get(clientOrderID)
	if err != nil {
		return types.Order{}, err
	}
	if o.ExchangeOrderID == nil {
		return types.Order{}, fmt.Errorf("store: order %s has no exchange_order_id yet", clientOrderID)
	}
	assetIdx, err := m.api.ResolveAssetIndex(ctx, o.Pair.Base)
	if err != nil {
		return types.Order{}, err
	}

	results, err := m.api.CancelOrders(ctx, []action.CancelEntry{{Asset: assetIdx, Oid: *o.ExchangeOrderID}})
	if err != nil {
		return types.Order{}, err
	}
	if len(results) != 1 {
		return types.Order{}, fmt.Errorf("%w: expected 1 cancel status, got %d", hlerrors.ErrSerialization, len(results))
	}
	if results[0].Err != "" {
		return types.Order{}, &hlerrors.OrderRejectedError{Message: results[0].Err}
	}

	if err := m.store.Mutate(clientOrderID, func(o *types.Order) error {
		o.Status = types.StatusCancelled
		return nil
	}); err != nil {
		return types.Order{}, err
	}
	return m.store.Get(clientOrderID)
}

// CancelAll cancels every currently open order. There is no cancel-all
// wire primitive (§4.7): this batches every open order's (asset, oid)
// pair into one cancel action instead.
func (m *Manager) CancelAll(ctx context.Context) error {
	open := m.store.OpenOrders()
	entries := make([]action.CancelEntry, 0, len(open))
	byOid := make(map[uint64]string, len(open))
	for _, o := range open {
		if o.ExchangeOrderID == nil {
			continue
		}
		assetIdx, err := m.api.ResolveAssetIndex(ctx, o.Pair.Base)
		if err != nil {
			return err
		}
		entries = append(entries, action.CancelEntry{Asset: assetIdx, Oid: *o.ExchangeOrderID})
		byOid[*o.ExchangeOrderID] = o.ClientOrderID
	}
	if len(entries) == 0 {
		return nil
	}

	results, err := m.api.CancelOrders(ctx, entries)
	if err != nil {
		return err
	}
	for i, entry := range entries {
		if i >= len(results) {
			break
		}
		clientID := byOid[entry.Oid]
		if results[i].Err != "" {
			m.log.Warn("cancel-all: per-order rejection", "client_order_id", clientID, "error", results[i].Err)
			continue
		}
		if err := m.store.Mutate(clientID, func(o *types.Order) error {
			o.Status = types.StatusCancelled
			return nil
		}); err != nil {
			m.log.Warn("cancel-all: failed to update store", "client_order_id", clientID, "error", err)
		}
	}
	return nil
}

// ApplyFill reconciles a fill reported over the WebSocket user channel
// against the stored order (§4.8 step 5, §3 invariants).
func (m *Manager) ApplyFill(exchangeOrderID uint64, filledDelta decimal.Decimal) error {
	return m.store.MutateByExchangeID(exchangeOrderID, func(o *types.Order) error {
		newFilled := o.FilledAmount.Add(filledDelta)
		if newFilled.Cmp(o.Amount) > 0 {
			return fmt.Errorf("store: fill would exceed order amount (order %s)", o.ClientOrderID)
		}
		o.FilledAmount = newFilled
		if newFilled.Equal(o.Amount) {
			o.Status = types.StatusFilled
		} else {
			o.Status = types.StatusPartiallyFilled
		}
		return nil
	})
}

// ApplyOrderUpdate reconciles a status-only change reported over the
// WebSocket orderUpdates channel (§4.8 step 5): unlike a fill, this
// carries no size delta, only the exchange's new status string for the
// order. Unrecognized status strings are ignored rather than failing the
// call, since the dispatcher must never let a parser/vocabulary gap take
// down the read loop.
func (m *Manager) ApplyOrderUpdate(exchangeOrderID uint64, status string) error {
	newStatus, ok := mapOrderUpdateStatus(status)
	if !ok {
		return nil
	}
	return m.store.MutateByExchangeID(exchangeOrderID, func(o *types.Order) error {
		if newStatus == types.StatusFilled {
			o.FilledAmount = o.Amount
		}
		o.Status = newStatus
		return nil
	})
}

func mapOrderUpdateStatus(status string) (types.OrderStatus, bool) {
	switch status {
	case "open", "resting":
		return types.StatusResting, true
	case "filled":
		return types.StatusFilled, true
	case "canceled", "cancelled":
		return types.StatusCancelled, true
	case "rejected", "marginCanceled":
		return types.StatusRejected, true
	default:
		return "", false
	}
}

// OpenOrders returns a detached snapshot of every currently open order.
func (m *Manager) OpenOrders() []types.Order {
	return m.store.OpenOrders()
}

// Get returns a detached copy of the order with the given client id.
func (m *Manager) Get(clientOrderID string) (types.Order, error) {
	return m.store.Get(clientOrderID)
}
