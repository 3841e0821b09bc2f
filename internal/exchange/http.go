package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"hlconnector/internal/hlerrors"
	"hlconnector/internal/ratelimit"
	"hlconnector/internal/signer"
)

// signedRequestBody is the exact JSON shape the exchange endpoint expects
// for every signed action (§4.5).
type signedRequestBody struct {
	Action       interface{}      `json:"action"`
	Nonce        uint64           `json:"nonce"`
	Signature    signer.Signature `json:"signature"`
	VaultAddress *string          `json:"vaultAddress"`
}

// HTTPClient is the thin POST layer in front of the exchange's /info and
// /exchange endpoints. Every call passes through the rate limiter first
// (§4.4); non-2xx responses fail with a transport error (§4.5).
type HTTPClient struct {
	http *resty.Client
	rl   *ratelimit.Limiter
}

// NewHTTPClient builds an HTTPClient bound to baseURL, rate-limited by rl.
func NewHTTPClient(baseURL string, rl *ratelimit.Limiter) *HTTPClient {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Content-Type", "application/json")
	return &HTTPClient{http: c, rl: rl}
}

// PostInfo POSTs body to {base}/info and decodes the response into out.
func (c *HTTPClient) PostInfo(ctx context.Context, body interface{}, out interface{}) error {
	if err := c.rl.Exchange.Acquire(ctx); err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(out).
		Post("/info")
	if err != nil {
		return hlerrors.WrapTransport("POST /info", err)
	}
	if !resp.IsSuccess() {
		return hlerrors.WrapTransport("POST /info", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}
	return nil
}

// PostExchange builds the signed request body (§4.5) and POSTs it to
// {base}/exchange, returning the raw response bytes for C7 to interpret.
// The same nonce used during signing must appear in the body verbatim.
func (c *HTTPClient) PostExchange(ctx context.Context, action interface{}, nonce uint64, sig signer.Signature) ([]byte, error) {
	if err := c.rl.Exchange.Acquire(ctx); err != nil {
		return nil, err
	}

	body := signedRequestBody{
		Action:       action,
		Nonce:        nonce,
		Signature:    sig,
		VaultAddress: nil,
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", hlerrors.ErrSerialization, err)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(raw).
		Post("/exchange")
	if err != nil {
		return nil, hlerrors.WrapTransport("POST /exchange", err)
	}
	if !resp.IsSuccess() {
		return nil, hlerrors.WrapTransport("POST /exchange", fmt.Errorf("status %d: %s", resp.StatusCode(), resp.String()))
	}
	return resp.Body(), nil
}
