package services

import (
	"context"

	domain "github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/events"
)

// RoutingConfigService exposes the routing configuration operations consumed
// by the HTTP layer.
type RoutingConfigService interface {
	Create(ctx context.Context, identity domain.Identity, input CreateRoutingConfigInput) (domain.RoutingConfig, error)
	Update(ctx context.Context, identity domain.Identity, id string, lockNumber int64, input UpdateRoutingConfigInput) (domain.RoutingConfig, error)
	Submit(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error)
	Get(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error)
	List(ctx context.Context, identity domain.Identity, filter StatusFilter) ([]domain.RoutingConfig, error)
	Count(ctx context.Context, identity domain.Identity, filter StatusFilter) (int64, error)

	View(ctx context.Context, identity domain.Identity, id string) (RoutingConfigView, error)
	References(ctx context.Context, identity domain.Identity, templateID string) ([]domain.RoutingConfigReference, error)

	SelectLanguageTemplates(ctx context.Context, identity domain.Identity, id string, lockNumber int64, stepIndex int, selections []domain.LanguageSelection) (domain.RoutingConfig, error)
	SelectAccessibleFormatTemplate(ctx context.Context, identity domain.Identity, id string, lockNumber int64, stepIndex int, templateID string, format domain.AccessibleFormat) (domain.RoutingConfig, error)
	SetDefaultTemplate(ctx context.Context, identity domain.Identity, id string, lockNumber int64, stepIndex int, templateID string) (domain.RoutingConfig, error)
	RemoveTemplate(ctx context.Context, identity domain.Identity, id string, lockNumber int64, templateID string) (domain.RoutingConfig, error)
}

// EventPublisher emits lifecycle events after successful mutations. A nil
// publisher disables emission.
type EventPublisher interface {
	Publish(ctx context.Context, event events.RoutingConfigEvent) (string, error)
}

// CreateRoutingConfigInput carries the caller-supplied fields for create.
type CreateRoutingConfigInput struct {
	Name                string
	CampaignID          string
	Cascade             []domain.CascadeItem
	DefaultCascadeGroup domain.CascadeGroupName
}

// UpdateRoutingConfigInput carries the caller-supplied fields for update. Nil
// fields are left untouched. When the cascade changes the group overrides are
// recomputed from it rather than taken from the caller.
type UpdateRoutingConfigInput struct {
	Name                *string
	CampaignID          *string
	Cascade             []domain.CascadeItem
	DefaultCascadeGroup *domain.CascadeGroupName
}

// StatusFilter accumulates the status inclusion and exclusion sets for
// listing and counting.
type StatusFilter struct {
	Include []domain.Status
	Exclude []domain.Status
}

// RoutingConfigView is the display projection of a configuration with every
// template reference resolved.
type RoutingConfigView struct {
	Config domain.RoutingConfig
	Steps  []StepView
}

// StepView resolves one cascade step against the template lookup.
type StepView struct {
	Item                domain.CascadeItem
	DefaultTemplate     *domain.TemplateSummary
	AccessibleTemplates []domain.ResolvedAccessibleTemplate
	LanguageTemplates   []domain.TemplateSummary
}
