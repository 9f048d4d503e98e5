package platform

import (
	"go.uber.org/zap"

	"github.com/orderbridge/backend/internal/domain/delivery"
)

// Registry holds the adapter instances and resolves them by platform type.
// Registration happens once at startup; lookups afterwards are read-only,
// so no locking is needed.
type Registry struct {
	adapters map[delivery.PlatformType]delivery.PlatformAdapter
	order    []delivery.PlatformType
}

var _ delivery.AdapterRegistry = (*Registry)(nil)

// NewRegistry creates a registry with the given adapters.
func NewRegistry(adapters ...delivery.PlatformAdapter) *Registry {
	r := &Registry{
		adapters: make(map[delivery.PlatformType]delivery.PlatformAdapter, len(adapters)),
	}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Platform()]; !exists {
			r.order = append(r.order, a.Platform())
		}
		r.adapters[a.Platform()] = a
	}
	return r
}

// NewDefaultRegistry wires all supported marketplace adapters against a
// shared request executor.
func NewDefaultRegistry(client *Client, logger *zap.Logger) *Registry {
	return NewRegistry(
		NewGetirAdapter(client, logger),
		NewYemeksepetiAdapter(client, logger),
		NewTrendyolAdapter(client, logger),
		NewMigrosAdapter(client, logger),
	)
}

// Adapter returns the adapter for the given platform.
func (r *Registry) Adapter(platform delivery.PlatformType) (delivery.PlatformAdapter, error) {
	a, ok := r.adapters[platform]
	if !ok {
		return nil, delivery.ErrPlatformNotSupported
	}
	return a, nil
}

// Adapters returns all registered adapters in registration order.
func (r *Registry) Adapters() []delivery.PlatformAdapter {
	out := make([]delivery.PlatformAdapter, 0, len(r.order))
	for _, p := range r.order {
		out = append(out, r.adapters[p])
	}
	return out
}

// PollablePlatforms returns the platforms whose adapters can poll.
func (r *Registry) PollablePlatforms() []delivery.PlatformType {
	var out []delivery.PlatformType
	for _, p := range r.order {
		if r.adapters[p].Capabilities().CanPoll {
			out = append(out, p)
		}
	}
	return out
}
