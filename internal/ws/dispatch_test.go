package ws

import (
	"errors"
	"testing"

	"hlconnector/internal/hlerrors"
)

func TestParseAllMids(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"allMids","data":{"mids":{"BTC":"87000","ETH":"3200.5"}}}`)
	msg := Parse(raw)
	if msg.Kind != KindAllMids {
		t.Fatalf("kind = %v, want KindAllMids", msg.Kind)
	}
	if len(msg.AllMids.Mids) != 2 {
		t.Fatalf("got %d mids, want 2", len(msg.AllMids.Mids))
	}
}

func TestParseL2Book(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"l2Book","data":{"coin":"BTC","time":123,"levels":[[{"px":"87000","sz":"1.5","n":3}],[{"px":"87010","sz":"2","n":1}]]}}`)
	msg := Parse(raw)
	if msg.Kind != KindL2Book {
		t.Fatalf("kind = %v, want KindL2Book", msg.Kind)
	}
	if msg.L2Book.Coin != "BTC" {
		t.Errorf("coin = %q, want BTC", msg.L2Book.Coin)
	}
	if len(msg.L2Book.Levels) != 2 || len(msg.L2Book.Levels[0]) != 1 {
		t.Fatalf("unexpected levels shape: %+v", msg.L2Book.Levels)
	}
}

func TestParseTrades(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"trades","data":[{"coin":"BTC","side":"B","px":"87000","sz":"0.1","time":1}]}`)
	msg := Parse(raw)
	if msg.Kind != KindTrades {
		t.Fatalf("kind = %v, want KindTrades", msg.Kind)
	}
	if len(msg.Trades) != 1 {
		t.Fatalf("got %d trades, want 1", len(msg.Trades))
	}
}

func TestParseOrderUpdates(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"orderUpdates","data":[{"order":{"oid":42,"coin":"BTC"},"status":"filled"}]}`)
	msg := Parse(raw)
	if msg.Kind != KindOrderUpdate {
		t.Fatalf("kind = %v, want KindOrderUpdate", msg.Kind)
	}
	if msg.OrderUpdates[0].ExchangeOrderID != 42 {
		t.Errorf("oid = %d, want 42", msg.OrderUpdates[0].ExchangeOrderID)
	}
}

func TestParseUserFills(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"userFills","data":{"fills":[{"oid":7,"coin":"ETH","px":"3200","sz":"1","side":"A","time":99}]}}`)
	msg := Parse(raw)
	if msg.Kind != KindUserFill {
		t.Fatalf("kind = %v, want KindUserFill", msg.Kind)
	}
	if len(msg.UserFills) != 1 || msg.UserFills[0].ExchangeOrderID != 7 {
		t.Fatalf("unexpected fills: %+v", msg.UserFills)
	}
}

func TestParseSubscriptionResponse(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"subscriptionResponse","data":{"method":"subscribe","subscription":{"type":"l2Book"}}}`)
	msg := Parse(raw)
	if msg.Kind != KindSubscriptionResponse {
		t.Fatalf("kind = %v, want KindSubscriptionResponse", msg.Kind)
	}
	if msg.SubscriptionResponse.Channel != "l2Book" {
		t.Errorf("channel = %q, want l2Book", msg.SubscriptionResponse.Channel)
	}
	if msg.SubscriptionResponse.Err != nil {
		t.Errorf("Err = %v, want nil for an accepted subscription", msg.SubscriptionResponse.Err)
	}
}

// TestParseSubscriptionResponseSurfacesRejection covers §7: a
// subscription response carrying an error field must surface
// ErrSubscriptionLimitExceeded rather than being treated as an
// acknowledgement.
func TestParseSubscriptionResponseSurfacesRejection(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"subscriptionResponse","data":{"method":"subscribe","subscription":{"type":"l2Book"},"error":"subscription limit exceeded for user 0xabc"}}`)
	msg := Parse(raw)
	if msg.Kind != KindSubscriptionResponse {
		t.Fatalf("kind = %v, want KindSubscriptionResponse", msg.Kind)
	}
	if !errors.Is(msg.SubscriptionResponse.Err, hlerrors.ErrSubscriptionLimitExceeded) {
		t.Fatalf("Err = %v, want wrapping ErrSubscriptionLimitExceeded", msg.SubscriptionResponse.Err)
	}
}

func TestParseUser(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"user","data":{"fills":[{"oid":9,"coin":"BTC","px":"87000","sz":"0.2","side":"B","time":55}]}}`)
	msg := Parse(raw)
	if msg.Kind != KindUser {
		t.Fatalf("kind = %v, want KindUser", msg.Kind)
	}
	if len(msg.User.Fills) != 1 || msg.User.Fills[0].ExchangeOrderID != 9 {
		t.Fatalf("unexpected user fills: %+v", msg.User.Fills)
	}
	if msg.User.Funding != nil {
		t.Errorf("Funding = %+v, want nil when the frame carries only fills", msg.User.Funding)
	}
}

func TestParseUserFunding(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"user","data":{"funding":{"coin":"ETH","usdc":"1.25","szi":"2","fundingRate":"0.0001","time":123}}}`)
	msg := Parse(raw)
	if msg.Kind != KindUser {
		t.Fatalf("kind = %v, want KindUser", msg.Kind)
	}
	if msg.User.Funding == nil {
		t.Fatal("Funding is nil, want populated")
	}
	if msg.User.Funding.Coin != "ETH" {
		t.Errorf("coin = %q, want ETH", msg.User.Funding.Coin)
	}
}

func TestParseErrorMessage(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"error","data":"subscription limit exceeded"}`)
	msg := Parse(raw)
	if msg.Kind != KindErrorMessage {
		t.Fatalf("kind = %v, want KindErrorMessage", msg.Kind)
	}
	if msg.ErrorMessage != "subscription limit exceeded" {
		t.Errorf("error = %q", msg.ErrorMessage)
	}
}

func TestParseUnknownChannelFallsBackToUnknown(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"somethingNew","data":{"whatever":1}}`)
	msg := Parse(raw)
	if msg.Kind != KindUnknown {
		t.Fatalf("kind = %v, want KindUnknown", msg.Kind)
	}
}

func TestParseMalformedJSONNeverCrashes(t *testing.T) {
	t.Parallel()
	raw := []byte(`not json at all {{{`)
	msg := Parse(raw)
	if msg.Kind != KindUnknown {
		t.Fatalf("kind = %v, want KindUnknown", msg.Kind)
	}
	if string(msg.Raw) != string(raw) {
		t.Error("raw bytes not preserved for an unparseable frame")
	}
}

func TestParseMalformedDataFallsBackToUnknownNotError(t *testing.T) {
	t.Parallel()
	raw := []byte(`{"channel":"l2Book","data":"not-an-object"}`)
	msg := Parse(raw)
	if msg.Kind != KindUnknown {
		t.Fatalf("kind = %v, want KindUnknown for malformed l2Book payload", msg.Kind)
	}
}
