// Package connector assembles every lower layer (C2-C11) behind the
// single facade callers instantiate (§4.12). It owns no trading logic of
// its own: every method either delegates to the store manager, the
// exchange API, or the WebSocket session, after the credential and
// WebSocket gating checks §4.12 and §6 require.
package connector

import (
	"context"
	"log/slog"
	"sync"

	"hlconnector/internal/config"
	"hlconnector/internal/exchange"
	"hlconnector/internal/hlerrors"
	"hlconnector/internal/ratelimit"
	"hlconnector/internal/signer"
	"hlconnector/internal/store"
	"hlconnector/internal/ws"
	"hlconnector/pkg/decimal"
	"hlconnector/pkg/types"
)

// Connector is the exchange connector's public surface. get_ticker and
// get_orderbook are intentionally absent: per §4.12 those read-only
// market accessors are delegated to info-API helpers outside the core.
type Connector struct {
	cfg *config.Config
	log *slog.Logger

	http    *exchange.HTTPClient
	catalog *exchange.AssetCatalog

	signerOnce sync.Once
	signer     *signer.Signer
	signerErr  error
	api        *exchange.API
	manager    *store.Manager

	wsMu      sync.Mutex
	session   *ws.Session
	registry  *ws.Registry
	callback  func(ws.Message)
	connected bool
}

// New builds a Connector from cfg. Construction performs no I/O: the
// asset catalog and the signer are both lazily initialized on first use
// (§9 design note — "model them as values produced by a once-cell").
func New(cfg *config.Config, log *slog.Logger) *Connector {
	rl := ratelimit.NewLimiter(cfg.RateLimit.Capacity, cfg.RateLimit.Rate)
	http := exchange.NewHTTPClient(cfg.BaseURL(), rl)
	catalog := exchange.NewAssetCatalog(http)

	return &Connector{
		cfg:      cfg,
		log:      log,
		http:     http,
		catalog:  catalog,
		registry: ws.NewRegistry(),
	}
}

// Name returns the connector's configured, purely informational name.
func (c *Connector) Name() string {
	return c.cfg.Name
}

// ensureSigner lazily constructs the signer and the signed-action API
// surface on first call, returning ErrNoCredentials if no private key is
// configured. Concurrent first callers share one sync.Once so the signer
// is never constructed twice.
func (c *Connector) ensureSigner() error {
	c.signerOnce.Do(func() {
		if c.cfg.Wallet.APISecret == "" {
			c.signerErr = hlerrors.ErrNoCredentials
			return
		}
		s, err := signer.New(c.cfg.Wallet.APISecret)
		if err != nil {
			c.signerErr = err
			return
		}
		c.signer = s
		c.api = exchange.NewAPI(c.http, c.catalog, s, c.cfg.AgentSource())
		c.manager = store.NewManager(store.New(), c.api, c.log)
	})
	return c.signerErr
}

// Connect is a no-op placeholder for symmetry with Disconnect; the HTTP
// layer requires no persistent connection and the WebSocket session is
// established separately via InitWebsocket.
func (c *Connector) Connect(ctx context.Context) error {
	return nil
}

// Disconnect tears down the WebSocket session if one is active. It is
// safe to call even when the connector was never connected.
func (c *Connector) Disconnect() {
	c.DisconnectWebsocket()
}

// IsConnected reports whether the WebSocket session is currently live.
// A connector with enable_websocket=false, or one that never called
// InitWebsocket, always reports false.
func (c *Connector) IsConnected() bool {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.connected && c.session != nil && c.session.IsConnected()
}

// CreateOrder submits req and returns the resulting tracked order.
func (c *Connector) CreateOrder(ctx context.Context, req types.OrderRequest) (types.Order, error) {
	if err := c.ensureSigner(); err != nil {
		return types.Order{}, err
	}
	return c.manager.PlaceOrder(ctx, req)
}

// CancelOrder cancels the tracked order identified by clientOrderID.
func (c *Connector) CancelOrder(ctx context.Context, clientOrderID string) (types.Order, error) {
	if err := c.ensureSigner(); err != nil {
		return types.Order{}, err
	}
	return c.manager.CancelOrder(ctx, clientOrderID)
}

// CancelAllOrders cancels every currently open tracked order.
func (c *Connector) CancelAllOrders(ctx context.Context) error {
	if err := c.ensureSigner(); err != nil {
		return err
	}
	return c.manager.CancelAll(ctx)
}

// GetOrder returns the tracked order identified by clientOrderID.
func (c *Connector) GetOrder(ctx context.Context, clientOrderID string) (types.Order, error) {
	if err := c.ensureSigner(); err != nil {
		return types.Order{}, err
	}
	return c.manager.Get(clientOrderID)
}

// GetOpenOrders returns every currently open tracked order.
func (c *Connector) GetOpenOrders(ctx context.Context) ([]types.Order, error) {
	if err := c.ensureSigner(); err != nil {
		return nil, err
	}
	return c.manager.OpenOrders(), nil
}

// GetBalance returns the account's margin summary.
func (c *Connector) GetBalance(ctx context.Context) (types.Balance, error) {
	if err := c.ensureSigner(); err != nil {
		return types.Balance{}, err
	}
	return c.api.GetBalance(ctx, c.cfg.Wallet.APIKey)
}

// GetPositions returns every open perpetual position.
func (c *Connector) GetPositions(ctx context.Context) ([]types.Position, error) {
	if err := c.ensureSigner(); err != nil {
		return nil, err
	}
	return c.api.GetPositions(ctx, c.cfg.Wallet.APIKey)
}

// InitWebsocket establishes the WebSocket session. It returns
// ErrNotInitialized immediately if enable_websocket is false.
func (c *Connector) InitWebsocket(ctx context.Context) error {
	if !c.cfg.EnableWebsocket {
		return hlerrors.ErrNotInitialized
	}

	c.wsMu.Lock()
	defer c.wsMu.Unlock()

	url := "wss://" + c.cfg.WSHost() + "/ws"
	c.session = ws.New(url, c.cfg.WebsocketOptions, c.registry, c.dispatch, c.log)
	if err := c.session.Connect(ctx); err != nil {
		return err
	}
	c.connected = true
	return nil
}

func (c *Connector) dispatch(msg ws.Message) {
	if msg.Kind == ws.KindSubscriptionResponse && msg.SubscriptionResponse.Err != nil {
		c.log.Error("subscription rejected by server",
			"channel", msg.SubscriptionResponse.Channel, "error", msg.SubscriptionResponse.Err)
	}

	c.reconcile(msg)

	c.wsMu.Lock()
	cb := c.callback
	c.wsMu.Unlock()
	if cb != nil {
		cb(msg)
	}
}

// reconcile feeds fills and order-status changes from inbound WebSocket
// frames into the order store (§2 data flow, §4.8 step 5). A connector
// with no wallet credentials has no manager to reconcile into and is left
// untouched — it can still observe messages through the user callback,
// it just never placed any orders for this store to have rows for.
// Reconciliation failures (most commonly an order this process never
// placed, or an order already in a terminal state) are expected and
// logged at debug, not propagated: they must never interrupt the read
// loop that called dispatch.
func (c *Connector) reconcile(msg ws.Message) {
	if err := c.ensureSigner(); err != nil {
		return
	}

	switch msg.Kind {
	case ws.KindUserFill:
		for _, f := range msg.UserFills {
			c.applyFill(f.ExchangeOrderID, f.Size)
		}
	case ws.KindUser:
		for _, f := range msg.User.Fills {
			c.applyFill(f.ExchangeOrderID, f.Size)
		}
	case ws.KindOrderUpdate:
		for _, u := range msg.OrderUpdates {
			if err := c.manager.ApplyOrderUpdate(u.ExchangeOrderID, u.Status); err != nil {
				c.log.Debug("order-update reconciliation skipped",
					"exchange_order_id", u.ExchangeOrderID, "status", u.Status, "error", err)
			}
		}
	}
}

func (c *Connector) applyFill(exchangeOrderID uint64, size decimal.Decimal) {
	if err := c.manager.ApplyFill(exchangeOrderID, size); err != nil {
		c.log.Debug("fill reconciliation skipped", "exchange_order_id", exchangeOrderID, "error", err)
	}
}

// SetMessageCallback registers the function invoked for every dispatched
// WebSocket message. It may be called before or after InitWebsocket.
func (c *Connector) SetMessageCallback(cb func(ws.Message)) {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	c.callback = cb
}

// Subscribe subscribes to sub, returning ErrNotInitialized if the
// WebSocket session was never established.
func (c *Connector) Subscribe(sub ws.Subscription) error {
	if !c.cfg.EnableWebsocket {
		return hlerrors.ErrNotInitialized
	}
	c.wsMu.Lock()
	sess := c.session
	c.wsMu.Unlock()
	if sess == nil {
		return hlerrors.ErrNotInitialized
	}
	return sess.Subscribe(sub)
}

// Unsubscribe removes sub, returning ErrNotInitialized if the WebSocket
// session was never established.
func (c *Connector) Unsubscribe(sub ws.Subscription) error {
	if !c.cfg.EnableWebsocket {
		return hlerrors.ErrNotInitialized
	}
	c.wsMu.Lock()
	sess := c.session
	c.wsMu.Unlock()
	if sess == nil {
		return hlerrors.ErrNotInitialized
	}
	return sess.Unsubscribe(sub)
}

// DisconnectWebsocket tears down the WebSocket session per the two-phase
// shutdown contract in §5: after it returns, no further callback fires
// and no further write is attempted.
func (c *Connector) DisconnectWebsocket() {
	c.wsMu.Lock()
	sess := c.session
	c.connected = false
	c.wsMu.Unlock()

	if sess != nil {
		sess.Disconnect()
	}
}
