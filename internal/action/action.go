package action

// TIF is the time-in-force for a limit order.
type TIF string

const (
	TIFGtc TIF = "Gtc"
	TIFIoc TIF = "Ioc"
	TIFAlo TIF = "Alo"
)

// OrderTypeSpec is the "t" field of an order entry: exactly one of Limit
// or Market is set.
type OrderTypeSpec struct {
	Limit  *LimitOrderType `json:"limit,omitempty"`
	Market *struct{}       `json:"market,omitempty"`
}

// LimitOrderType carries the TIF for a limit order.
type LimitOrderType struct {
	Tif TIF `json:"tif"`
}

// NewLimitType builds an OrderTypeSpec for a limit order.
func NewLimitType(tif TIF) OrderTypeSpec {
	return OrderTypeSpec{Limit: &LimitOrderType{Tif: tif}}
}

// NewMarketType builds an OrderTypeSpec for a market order (empty map).
func NewMarketType() OrderTypeSpec {
	return OrderTypeSpec{Market: &struct{}{}}
}

// OrderEntry is one element of a place-order action's "orders" array.
// Price and Size are already-rendered wire strings (§4.1) — the encoder
// never emits numeric prices or sizes.
type OrderEntry struct {
	Asset      uint64        `json:"a"`
	IsBuy      bool          `json:"b"`
	Price      string        `json:"p"`
	Size       string        `json:"s"`
	ReduceOnly bool          `json:"r"`
	Type       OrderTypeSpec `json:"t"`
}

func (o OrderEntry) encode(w *Writer) {
	w.WriteMapHeader(6)
	w.WriteString("a")
	w.WriteUint(o.Asset)
	w.WriteString("b")
	w.WriteBool(o.IsBuy)
	w.WriteString("p")
	w.WriteString(o.Price)
	w.WriteString("s")
	w.WriteString(o.Size)
	w.WriteString("r")
	w.WriteBool(o.ReduceOnly)
	w.WriteString("t")
	if o.Type.Limit != nil {
		w.WriteMapHeader(1)
		w.WriteString("limit")
		w.WriteMapHeader(1)
		w.WriteString("tif")
		w.WriteString(string(o.Type.Limit.Tif))
	} else {
		w.WriteMapHeader(1)
		w.WriteString("market")
		w.WriteMapHeader(0)
	}
}

// PlaceOrderAction is the "order" action (§4.2). Field order
// (type, orders, grouping) is part of the signature.
type PlaceOrderAction struct {
	Type     string       `json:"type"`
	Orders   []OrderEntry `json:"orders"`
	Grouping string       `json:"grouping"`
}

// NewPlaceOrderAction builds a place-order action over the given entries.
// Grouping is always "na" — this connector never issues grouped orders.
func NewPlaceOrderAction(orders []OrderEntry) PlaceOrderAction {
	return PlaceOrderAction{Type: "order", Orders: orders, Grouping: "na"}
}

// EncodeCanonical implements CanonicalAction.
func (a PlaceOrderAction) EncodeCanonical() []byte {
	w := NewWriter()
	w.WriteMapHeader(3)
	w.WriteString("type")
	w.WriteString(a.Type)
	w.WriteString("orders")
	w.WriteArrayHeader(len(a.Orders))
	for _, o := range a.Orders {
		o.encode(w)
	}
	w.WriteString("grouping")
	w.WriteString(a.Grouping)
	return w.Bytes()
}

// CancelEntry is one element of a cancel action's "cancels" array.
type CancelEntry struct {
	Asset uint64 `json:"a"`
	Oid   uint64 `json:"o"`
}

// CancelAction is the "cancel" action (§4.2). Field order
// (type, cancels) is part of the signature.
type CancelAction struct {
	Type    string        `json:"type"`
	Cancels []CancelEntry `json:"cancels"`
}

// NewCancelAction builds a cancel action over the given entries.
func NewCancelAction(cancels []CancelEntry) CancelAction {
	return CancelAction{Type: "cancel", Cancels: cancels}
}

// EncodeCanonical implements CanonicalAction.
func (a CancelAction) EncodeCanonical() []byte {
	w := NewWriter()
	w.WriteMapHeader(2)
	w.WriteString("type")
	w.WriteString(a.Type)
	w.WriteString("cancels")
	w.WriteArrayHeader(len(a.Cancels))
	for _, c := range a.Cancels {
		w.WriteMapHeader(2)
		w.WriteString("a")
		w.WriteUint(c.Asset)
		w.WriteString("o")
		w.WriteUint(c.Oid)
	}
	return w.Bytes()
}

// UpdateLeverageAction sets the leverage and margin mode for one asset.
// Per §4.7 this is the one signed action whose digest commits to its JSON
// form, not the canonical binary: it has no EncodeCanonical method and
// does not implement CanonicalAction.
type UpdateLeverageAction struct {
	Type     string `json:"type"`
	Asset    uint64 `json:"asset"`
	IsCross  bool   `json:"isCross"`
	Leverage int    `json:"leverage"`
}

// NewUpdateLeverageAction builds an updateLeverage action.
func NewUpdateLeverageAction(asset uint64, leverage int, cross bool) UpdateLeverageAction {
	return UpdateLeverageAction{Type: "updateLeverage", Asset: asset, IsCross: cross, Leverage: leverage}
}

// CanonicalAction is implemented by every action type the signer can
// commit to via the canonical binary encoding.
type CanonicalAction interface {
	EncodeCanonical() []byte
}
