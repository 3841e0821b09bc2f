package ws

import (
	"encoding/json"
	"sync"
)

// Subscription identifies one active channel subscription (§3, §4.10).
// Coin and User are optional depending on the channel.
type Subscription struct {
	Channel string
	Coin    string
	User    string
}

// wireMessage serializes a subscribe/unsubscribe frame with fields in
// the order type, coin?, user? (§4.10, §6).
type wireMessage struct {
	Method       string           `json:"method"`
	Subscription wireSubscription `json:"subscription"`
}

type wireSubscription struct {
	Type string `json:"type"`
	Coin string `json:"coin,omitempty"`
	User string `json:"user,omitempty"`
}

func (s Subscription) marshal(method string) ([]byte, error) {
	return json.Marshal(wireMessage{
		Method: method,
		Subscription: wireSubscription{
			Type: s.Channel,
			Coin: s.Coin,
			User: s.User,
		},
	})
}

// Registry holds the set of currently active subscriptions. Add and
// Remove are idempotent: adding a tuple already present is a no-op,
// removing an absent one is a no-op (§4.10).
type Registry struct {
	mu   sync.Mutex
	subs map[Subscription]struct{}
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{subs: make(map[Subscription]struct{})}
}

// Add returns true if s was newly added (the caller should send the
// subscribe frame), false if it was already present.
func (r *Registry) Add(s Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[s]; ok {
		return false
	}
	r.subs[s] = struct{}{}
	return true
}

// Remove returns true if s was present and removed, false if it was
// already absent.
func (r *Registry) Remove(s Subscription) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[s]; !ok {
		return false
	}
	delete(r.subs, s)
	return true
}

// Snapshot returns a copy of the current subscription set, safe to
// range over after the lock is released (§4.10, §5).
func (r *Registry) Snapshot() []Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Subscription, 0, len(r.subs))
	for s := range r.subs {
		out = append(out, s)
	}
	return out
}
