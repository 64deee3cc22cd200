package hooks

import (
	"fmt"
	"reflect"
	"sync"
)

// Responses groups post-hook messages by the point that produced them.
type Responses map[Point][]Message

// Add records msgs under point. An empty slice is kept so callers always see the key.
func (r Responses) Add(point Point, msgs []Message) {
	if _, ok := r[point]; !ok {
		r[point] = []Message{}
	}
	r[point] = append(r[point], msgs...)
}

// Manager holds handlers per extension point in registration order.
type Manager struct {
	mu       sync.RWMutex
	handlers map[Point][]any
}

func NewManager() *Manager {
	return &Manager{handlers: make(map[Point][]any)}
}

// Register adds h to point. Registering the same handler twice is a no-op.
func (m *Manager) Register(point Point, h any) error {
	if h == nil {
		return fmt.Errorf("hooks: nil handler for %s", point)
	}
	if !implements(point, h) {
		return fmt.Errorf("hooks: %T does not handle %s", h, point)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.handlers[point] {
		if same(existing, h) {
			return nil
		}
	}
	m.handlers[point] = append(m.handlers[point], h)
	return nil
}

func (m *Manager) Unregister(point Point, h any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.handlers[point]
	for i, existing := range list {
		if same(existing, h) {
			m.handlers[point] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// RegisterPlugin registers p under every point whose interface it implements
// and returns the points it was attached to.
func (m *Manager) RegisterPlugin(p any) ([]Point, error) {
	var attached []Point
	for _, point := range Points {
		if !implements(point, p) {
			continue
		}
		if err := m.Register(point, p); err != nil {
			return attached, err
		}
		attached = append(attached, point)
	}
	if len(attached) == 0 {
		return nil, fmt.Errorf("hooks: %T implements no extension point", p)
	}
	return attached, nil
}

// Count returns how many handlers are registered for point.
func (m *Manager) Count(point Point) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.handlers[point])
}

func (m *Manager) snapshot(point Point) []any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]any(nil), m.handlers[point]...)
}

func same(a, b any) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// RunItemPreRedemption collects every verdict. Callers abort when any verdict fails.
func (m *Manager) RunItemPreRedemption(s Scope, p ItemRedemptionPayload) ([]Verdict, error) {
	var out []Verdict
	for _, h := range m.snapshot(ItemPreRedemption) {
		v, err := h.(ItemPreRedemptionHandler).ItemPreRedemption(s, p)
		if err != nil {
			return nil, fmt.Errorf("%s handler %T: %w", ItemPreRedemption, h, err)
		}
		if v != nil {
			out = append(out, *v)
		}
	}
	return out, nil
}

// Failed reports whether any verdict signals failure.
func Failed(verdicts []Verdict) bool {
	for _, v := range verdicts {
		if v.Failure {
			return true
		}
	}
	return false
}

func (m *Manager) RunItemRedemption(s Scope, p ItemRedemptionPayload) ([]Message, error) {
	return collect(m.snapshot(ItemRedemption), ItemRedemption, func(h any) (*Message, error) {
		return h.(ItemRedemptionHandler).ItemRedemption(s, p)
	})
}

func (m *Manager) RunDuelComplete(s Scope, p DuelPayload) ([]Message, error) {
	return collect(m.snapshot(DuelComplete), DuelComplete, func(h any) (*Message, error) {
		return h.(DuelCompleteHandler).DuelComplete(s, p)
	})
}

func (m *Manager) RunDuelCancelled(s Scope, p DuelPayload) ([]Message, error) {
	return collect(m.snapshot(DuelCancelled), DuelCancelled, func(h any) (*Message, error) {
		return h.(DuelCancelledHandler).DuelCancelled(s, p)
	})
}

func (m *Manager) RunPortalActivityClaim(s Scope, p ActivityClaimPayload) ([]Message, error) {
	return collect(m.snapshot(PortalActivityClaim), PortalActivityClaim, func(h any) (*Message, error) {
		return h.(PortalActivityClaimHandler).PortalActivityClaim(s, p)
	})
}

func (m *Manager) RunClaimPlayer(s Scope, p PlayerClaimPayload) ([]Message, error) {
	return collect(m.snapshot(ClaimPlayer), ClaimPlayer, func(h any) (*Message, error) {
		return h.(ClaimPlayerHandler).ClaimPlayer(s, p)
	})
}

func collect(handlers []any, point Point, call func(any) (*Message, error)) ([]Message, error) {
	out := []Message{}
	for _, h := range handlers {
		msg, err := call(h)
		if err != nil {
			return nil, fmt.Errorf("%s handler %T: %w", point, h, err)
		}
		if msg != nil {
			out = append(out, *msg)
		}
	}
	return out, nil
}
