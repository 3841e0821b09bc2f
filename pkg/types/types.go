// Package types defines the shared vocabulary used across the connector:
// trading pairs, order enums, the Order record tracked by the store, and
// the account balance and position records. The typed WebSocket event
// variants live in internal/ws, not here. It has no dependency on any
// internal package so every layer can import it.
package types

import (
	"time"

	"hlconnector/pkg/decimal"
)

// Side is the direction of an order.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// TimeInForce selects limit-order lifecycle semantics.
type TimeInForce string

const (
	TIFGtc TimeInForce = "Gtc" // good-till-cancel
	TIFIoc TimeInForce = "Ioc" // immediate-or-cancel
	TIFAlo TimeInForce = "Alo" // add-liquidity-only (post-only)
)

// OrderKind distinguishes limit from market orders.
type OrderKind int

const (
	OrderKindLimit OrderKind = iota
	OrderKindMarket
)

// OrderStatus is the lifecycle state of a tracked order (§3).
type OrderStatus string

const (
	StatusPending         OrderStatus = "pending"
	StatusSubmitted       OrderStatus = "submitted"
	StatusResting         OrderStatus = "resting"
	StatusPartiallyFilled OrderStatus = "partially_filled"
	StatusFilled          OrderStatus = "filled"
	StatusCancelled       OrderStatus = "cancelled"
	StatusRejected        OrderStatus = "rejected"
)

// Terminal reports whether status is one of the no-further-mutation states.
func (s OrderStatus) Terminal() bool {
	switch s {
	case StatusFilled, StatusCancelled, StatusRejected:
		return true
	default:
		return false
	}
}

// TradingPair is a value type identifying a perpetual market. Quote is
// always "USDC" for the venue this connector targets.
type TradingPair struct {
	Base  string
	Quote string
}

// String renders the pair as "BASE/QUOTE".
func (p TradingPair) String() string {
	return p.Base + "/" + p.Quote
}

// NewTradingPair builds a pair against the venue's fixed USDC quote.
func NewTradingPair(base string) TradingPair {
	return TradingPair{Base: base, Quote: "USDC"}
}

// OrderRequest is the caller-supplied intent for a new order; the
// manager (C8) turns this into a tracked Order before it ever reaches
// the wire.
type OrderRequest struct {
	Pair       TradingPair
	Side       Side
	Kind       OrderKind
	TIF        TimeInForce // only meaningful when Kind == OrderKindLimit
	Price      decimal.Decimal
	Amount     decimal.Decimal
	ReduceOnly bool
}

// Order is the lifecycle record the store owns (§3). The store holds the
// canonical copy; callers receive detached copies from store accessors.
type Order struct {
	ClientOrderID   string
	ExchangeOrderID *uint64

	Pair TradingPair
	Side Side
	Kind OrderKind
	TIF  TimeInForce

	Price        decimal.Decimal
	Amount       decimal.Decimal
	FilledAmount decimal.Decimal
	ReduceOnly   bool

	Status OrderStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a detached copy safe to hand to a caller outside the
// store's lock.
func (o Order) Clone() Order {
	clone := o
	if o.ExchangeOrderID != nil {
		id := *o.ExchangeOrderID
		clone.ExchangeOrderID = &id
	}
	return clone
}

// IsOpen reports whether the order is still live on the book (or could
// still reach the book).
func (o Order) IsOpen() bool {
	switch o.Status {
	case StatusSubmitted, StatusResting, StatusPartiallyFilled:
		return true
	default:
		return false
	}
}

// Balance is the account-level margin summary returned by the
// clearinghouse query (§4.7, §9 open question (b)).
type Balance struct {
	AccountValue    decimal.Decimal
	TotalMarginUsed decimal.Decimal
	Withdrawable    decimal.Decimal
}

// Position is one asset's open perpetual position.
type Position struct {
	Pair          TradingPair
	Size          decimal.Decimal // signed: negative is short
	EntryPrice    decimal.Decimal
	UnrealizedPnl decimal.Decimal
	Leverage      int
}
