package chat

import (
	"context"
	"sync"

	"github.com/Abdulb7772/mini-ERP-admin-side/internal/api"
	"github.com/Abdulb7772/mini-ERP-admin-side/internal/domain"
)

// ContextResolver resolves attached context references (order, product,
// customer) to display payloads, memoized for the client session.
type ContextResolver struct {
	api API

	mu    sync.Mutex
	cache map[string]*api.ContextDetails
}

func NewContextResolver(a API) *ContextResolver {
	return &ContextResolver{
		api:   a,
		cache: make(map[string]*api.ContextDetails),
	}
}

func (r *ContextResolver) Resolve(ctx context.Context, ref domain.ContextRef) (*api.ContextDetails, error) {
	key := ref.String()

	r.mu.Lock()
	if details, ok := r.cache[key]; ok {
		r.mu.Unlock()
		return details, nil
	}
	r.mu.Unlock()

	details, err := r.api.ResolveContext(ctx, ref)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.cache[key] = details
	r.mu.Unlock()
	return details, nil
}
