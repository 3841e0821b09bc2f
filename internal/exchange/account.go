package exchange

import (
	"context"
	"fmt"

	"hlconnector/pkg/decimal"
	"hlconnector/pkg/types"
)

// clearinghouseStateRequest is the /info body for the account-state query
// (§6: "Used by the core for ... clearinghouseState").
type clearinghouseStateRequest struct {
	Type string `json:"type"`
	User string `json:"user"`
}

type clearinghouseStateResponse struct {
	MarginSummary struct {
		AccountValue    string `json:"accountValue"`
		TotalMarginUsed string `json:"totalMarginUsed"`
		Withdrawable    string `json:"withdrawable"`
	} `json:"marginSummary"`
	// Withdrawable also appears at the top level. Per §9 open question
	// (b), the top-level field is authoritative; marginSummary's copy is
	// parsed only as a fallback for servers that omit the top-level one.
	Withdrawable   string `json:"withdrawable"`
	AssetPositions []struct {
		Position struct {
			Coin          string `json:"coin"`
			Szi           string `json:"szi"`
			EntryPx       string `json:"entryPx"`
			UnrealizedPnl string `json:"unrealizedPnl"`
			Leverage      struct {
				Value int `json:"value"`
			} `json:"leverage"`
		} `json:"position"`
	} `json:"assetPositions"`
}

// GetBalance fetches the margin summary for user (the main-account
// address, §6).
func (a *API) GetBalance(ctx context.Context, user string) (types.Balance, error) {
	state, err := a.fetchClearinghouseState(ctx, user)
	if err != nil {
		return types.Balance{}, err
	}

	accountValue, err := decimal.NewFromString(state.MarginSummary.AccountValue)
	if err != nil {
		return types.Balance{}, fmt.Errorf("clearinghouseState: accountValue: %w", err)
	}
	marginUsed, err := decimal.NewFromString(state.MarginSummary.TotalMarginUsed)
	if err != nil {
		return types.Balance{}, fmt.Errorf("clearinghouseState: totalMarginUsed: %w", err)
	}

	withdrawableStr := state.Withdrawable
	if withdrawableStr == "" {
		withdrawableStr = state.MarginSummary.Withdrawable
	}
	withdrawable, err := decimal.NewFromString(withdrawableStr)
	if err != nil {
		return types.Balance{}, fmt.Errorf("clearinghouseState: withdrawable: %w", err)
	}

	return types.Balance{
		AccountValue:    accountValue,
		TotalMarginUsed: marginUsed,
		Withdrawable:    withdrawable,
	}, nil
}

// GetPositions fetches every open perpetual position for user.
func (a *API) GetPositions(ctx context.Context, user string) ([]types.Position, error) {
	state, err := a.fetchClearinghouseState(ctx, user)
	if err != nil {
		return nil, err
	}

	positions := make([]types.Position, 0, len(state.AssetPositions))
	for _, ap := range state.AssetPositions {
		p := ap.Position
		size, err := decimal.NewFromString(p.Szi)
		if err != nil {
			return nil, fmt.Errorf("clearinghouseState: szi for %s: %w", p.Coin, err)
		}
		entryPx, err := decimal.NewFromString(p.EntryPx)
		if err != nil {
			return nil, fmt.Errorf("clearinghouseState: entryPx for %s: %w", p.Coin, err)
		}
		pnl, err := decimal.NewFromString(p.UnrealizedPnl)
		if err != nil {
			return nil, fmt.Errorf("clearinghouseState: unrealizedPnl for %s: %w", p.Coin, err)
		}
		positions = append(positions, types.Position{
			Pair:          types.NewTradingPair(p.Coin),
			Size:          size,
			EntryPrice:    entryPx,
			UnrealizedPnl: pnl,
			Leverage:      p.Leverage.Value,
		})
	}
	return positions, nil
}

func (a *API) fetchClearinghouseState(ctx context.Context, user string) (clearinghouseStateResponse, error) {
	var resp clearinghouseStateResponse
	req := clearinghouseStateRequest{Type: "clearinghouseState", User: user}
	if err := a.http.PostInfo(ctx, req, &resp); err != nil {
		return clearinghouseStateResponse{}, err
	}
	return resp, nil
}

