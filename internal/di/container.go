package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/messageplans/api/internal/platform/config"
	"github.com/messageplans/api/internal/repositories"
	"github.com/messageplans/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon.
type Services struct {
	RoutingConfigs services.RoutingConfigService
}

// ContainerDeps carries the externally constructed collaborators.
type ContainerDeps struct {
	Registry repositories.Registry
	Events   services.EventPublisher
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Container wires repositories and services for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides
// real implementations; tests can supply stub registries.
func NewContainer(_ context.Context, cfg config.Config, deps ContainerDeps) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}

	routingConfigs, err := services.NewRoutingConfigService(services.RoutingConfigServiceDeps{
		Repository: deps.Registry.RoutingConfigs(),
		Templates:  deps.Registry.Templates(),
		Events:     deps.Events,
		Clock:      deps.Clock,
		Logger:     deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build routing config service: %w", err)
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services: Services{
			RoutingConfigs: routingConfigs,
		},
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}
