package firestore

import (
	"context"
	"errors"

	"github.com/messageplans/api/internal/platform/config"
	pfirestore "github.com/messageplans/api/internal/platform/firestore"
	"github.com/messageplans/api/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the repository
// interfaces for dependency injection.
type Registry struct {
	provider       *pfirestore.Provider
	routingConfigs *RoutingConfigRepository
	templates      *TemplateLookup
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs every repository against a shared provider.
func NewRegistry(provider *pfirestore.Provider, cfg config.FirestoreConfig, policy config.PolicyConfig) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("repository registry requires firestore provider")
	}

	routingConfigs, err := NewRoutingConfigRepository(provider, cfg, policy)
	if err != nil {
		return nil, err
	}
	templates, err := NewTemplateLookup(provider, cfg)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:       provider,
		routingConfigs: routingConfigs,
		templates:      templates,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close()
}

// RoutingConfigs returns the routing configuration repository.
func (r *Registry) RoutingConfigs() repositories.RoutingConfigRepository {
	return r.routingConfigs
}

// Templates returns the template lookup.
func (r *Registry) Templates() repositories.TemplateLookup {
	return r.templates
}
