package ws

import (
	"encoding/json"
	"fmt"

	"hlconnector/internal/hlerrors"
	"hlconnector/pkg/decimal"
)

// MessageKind tags which variant an inbound frame decoded to (§4.11).
type MessageKind int

const (
	KindUnknown MessageKind = iota
	KindAllMids
	KindL2Book
	KindTrades
	KindUser
	KindOrderUpdate
	KindUserFill
	KindSubscriptionResponse
	KindErrorMessage
)

// Message is the tagged result of parsing one inbound frame. Exactly the
// field matching Kind is populated; Raw always holds the original bytes
// so a caller that only wants KindUnknown frames logged verbatim can do
// so without a second round trip.
type Message struct {
	Kind MessageKind
	Raw  json.RawMessage

	AllMids              AllMidsData
	L2Book               L2BookData
	Trades               []TradeData
	User                 UserEventData
	OrderUpdates         []OrderUpdateData
	UserFills            []UserFillData
	SubscriptionResponse SubscriptionResponseData
	ErrorMessage         string
}

// UserEventData is the composite payload carried by the `user` channel
// (§6): a single frame reports at most one of a fill batch or a funding
// payment for the subscribed account.
type UserEventData struct {
	Fills   []UserFillData
	Funding *UserFundingData
}

// UserFundingData reports one funding payment applied to the account.
type UserFundingData struct {
	Coin        string
	Usdc        decimal.Decimal
	Szi         decimal.Decimal
	FundingRate decimal.Decimal
	Time        int64
}

// AllMidsData is the mid-price snapshot for every tracked asset.
type AllMidsData struct {
	Mids map[string]decimal.Decimal
}

// L2BookData is one order-book snapshot.
type L2BookData struct {
	Coin   string
	Levels [][]BookLevel
	Time   int64
}

// BookLevel is a single price/size/order-count level.
type BookLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
	N     int
}

// TradeData is a single executed trade.
type TradeData struct {
	Coin  string
	Side  string
	Price decimal.Decimal
	Size  decimal.Decimal
	Time  int64
}

// OrderUpdateData reports a lifecycle change for an order this account
// placed (§4.8 step 5).
type OrderUpdateData struct {
	ExchangeOrderID uint64
	Status          string
	Coin            string
}

// UserFillData reports a fill for an order this account placed.
type UserFillData struct {
	ExchangeOrderID uint64
	Coin            string
	Price           decimal.Decimal
	Size            decimal.Decimal
	Side            string
	Time            int64
}

// SubscriptionResponseData acknowledges a subscribe/unsubscribe request.
// Err is non-nil when the server rejected the request (§7); callers that
// care about rejection should check it with errors.Is rather than the
// Raw bytes.
type SubscriptionResponseData struct {
	Method  string
	Channel string
	Err     error
}

type inboundFrame struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

// Parse decodes one inbound frame into a tagged Message. It never
// returns an error: a frame that fails to parse as JSON, or whose data
// shape doesn't match its channel, becomes KindUnknown carrying the raw
// bytes (§4.11 — "parser failures never crash the session").
func Parse(raw []byte) Message {
	var frame inboundFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}

	switch frame.Channel {
	case "allMids":
		return parseAllMids(frame.Data, raw)
	case "l2Book":
		return parseL2Book(frame.Data, raw)
	case "trades":
		return parseTrades(frame.Data, raw)
	case "user":
		return parseUser(frame.Data, raw)
	case "orderUpdates":
		return parseOrderUpdates(frame.Data, raw)
	case "userFills":
		return parseUserFills(frame.Data, raw)
	case "subscriptionResponse":
		return parseSubscriptionResponse(frame.Data, raw)
	case "error":
		return parseErrorMessage(frame.Data, raw)
	default:
		return Message{Kind: KindUnknown, Raw: raw}
	}
}

func parseAllMids(data json.RawMessage, raw []byte) Message {
	var wire struct {
		Mids map[string]string `json:"mids"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}
	mids := make(map[string]decimal.Decimal, len(wire.Mids))
	for coin, s := range wire.Mids {
		d, err := decimal.ParseWireString(s)
		if err != nil {
			continue
		}
		mids[coin] = d
	}
	return Message{Kind: KindAllMids, Raw: raw, AllMids: AllMidsData{Mids: mids}}
}

func parseL2Book(data json.RawMessage, raw []byte) Message {
	var wire struct {
		Coin   string `json:"coin"`
		Time   int64  `json:"time"`
		Levels [][]struct {
			Px string `json:"px"`
			Sz string `json:"sz"`
			N  int    `json:"n"`
		} `json:"levels"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}
	levels := make([][]BookLevel, len(wire.Levels))
	for i, side := range wire.Levels {
		out := make([]BookLevel, 0, len(side))
		for _, lvl := range side {
			px, err := decimal.ParseWireString(lvl.Px)
			if err != nil {
				continue
			}
			sz, err := decimal.ParseWireString(lvl.Sz)
			if err != nil {
				continue
			}
			out = append(out, BookLevel{Price: px, Size: sz, N: lvl.N})
		}
		levels[i] = out
	}
	return Message{Kind: KindL2Book, Raw: raw, L2Book: L2BookData{Coin: wire.Coin, Levels: levels, Time: wire.Time}}
}

func parseTrades(data json.RawMessage, raw []byte) Message {
	var wire []struct {
		Coin string `json:"coin"`
		Side string `json:"side"`
		Px   string `json:"px"`
		Sz   string `json:"sz"`
		Time int64  `json:"time"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}
	trades := make([]TradeData, 0, len(wire))
	for _, t := range wire {
		px, err := decimal.ParseWireString(t.Px)
		if err != nil {
			continue
		}
		sz, err := decimal.ParseWireString(t.Sz)
		if err != nil {
			continue
		}
		trades = append(trades, TradeData{Coin: t.Coin, Side: t.Side, Price: px, Size: sz, Time: t.Time})
	}
	return Message{Kind: KindTrades, Raw: raw, Trades: trades}
}

func parseUser(data json.RawMessage, raw []byte) Message {
	var wire struct {
		Fills []struct {
			Oid  uint64 `json:"oid"`
			Coin string `json:"coin"`
			Px   string `json:"px"`
			Sz   string `json:"sz"`
			Side string `json:"side"`
			Time int64  `json:"time"`
		} `json:"fills"`
		Funding *struct {
			Coin string `json:"coin"`
			Usdc string `json:"usdc"`
			Szi  string `json:"szi"`
			Rate string `json:"fundingRate"`
			Time int64  `json:"time"`
		} `json:"funding"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}

	event := UserEventData{}
	if len(wire.Fills) > 0 {
		fills := make([]UserFillData, 0, len(wire.Fills))
		for _, f := range wire.Fills {
			px, err := decimal.ParseWireString(f.Px)
			if err != nil {
				continue
			}
			sz, err := decimal.ParseWireString(f.Sz)
			if err != nil {
				continue
			}
			fills = append(fills, UserFillData{ExchangeOrderID: f.Oid, Coin: f.Coin, Price: px, Size: sz, Side: f.Side, Time: f.Time})
		}
		event.Fills = fills
	}
	if wire.Funding != nil {
		usdc, err := decimal.ParseWireString(wire.Funding.Usdc)
		if err != nil {
			return Message{Kind: KindUser, Raw: raw, User: event}
		}
		szi, err := decimal.ParseWireString(wire.Funding.Szi)
		if err != nil {
			return Message{Kind: KindUser, Raw: raw, User: event}
		}
		rate, err := decimal.ParseWireString(wire.Funding.Rate)
		if err != nil {
			return Message{Kind: KindUser, Raw: raw, User: event}
		}
		event.Funding = &UserFundingData{Coin: wire.Funding.Coin, Usdc: usdc, Szi: szi, FundingRate: rate, Time: wire.Funding.Time}
	}
	return Message{Kind: KindUser, Raw: raw, User: event}
}

func parseOrderUpdates(data json.RawMessage, raw []byte) Message {
	var wire []struct {
		Order struct {
			Oid  uint64 `json:"oid"`
			Coin string `json:"coin"`
		} `json:"order"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}
	updates := make([]OrderUpdateData, 0, len(wire))
	for _, u := range wire {
		updates = append(updates, OrderUpdateData{ExchangeOrderID: u.Order.Oid, Status: u.Status, Coin: u.Order.Coin})
	}
	return Message{Kind: KindOrderUpdate, Raw: raw, OrderUpdates: updates}
}

func parseUserFills(data json.RawMessage, raw []byte) Message {
	var wire struct {
		Fills []struct {
			Oid  uint64 `json:"oid"`
			Coin string `json:"coin"`
			Px   string `json:"px"`
			Sz   string `json:"sz"`
			Side string `json:"side"`
			Time int64  `json:"time"`
		} `json:"fills"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}
	fills := make([]UserFillData, 0, len(wire.Fills))
	for _, f := range wire.Fills {
		px, err := decimal.ParseWireString(f.Px)
		if err != nil {
			continue
		}
		sz, err := decimal.ParseWireString(f.Sz)
		if err != nil {
			continue
		}
		fills = append(fills, UserFillData{ExchangeOrderID: f.Oid, Coin: f.Coin, Price: px, Size: sz, Side: f.Side, Time: f.Time})
	}
	return Message{Kind: KindUserFill, Raw: raw, UserFills: fills}
}

func parseSubscriptionResponse(data json.RawMessage, raw []byte) Message {
	var wire struct {
		Method       string `json:"method"`
		Subscription struct {
			Type string `json:"type"`
		} `json:"subscription"`
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return Message{Kind: KindUnknown, Raw: raw}
	}

	resp := SubscriptionResponseData{Method: wire.Method, Channel: wire.Subscription.Type}
	if wire.Error != "" {
		resp.Err = fmt.Errorf("%w: %s", hlerrors.ErrSubscriptionLimitExceeded, wire.Error)
	}
	return Message{Kind: KindSubscriptionResponse, Raw: raw, SubscriptionResponse: resp}
}

func parseErrorMessage(data json.RawMessage, raw []byte) Message {
	var msg string
	if err := json.Unmarshal(data, &msg); err != nil {
		msg = string(data)
	}
	return Message{Kind: KindErrorMessage, Raw: raw, ErrorMessage: msg}
}
