package repositories

import (
	"context"
	"time"

	domain "github.com/messageplans/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	RoutingConfigs() RoutingConfigRepository
	Templates() TemplateLookup
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// UpdatePatch carries the mutable fields of a routing configuration update.
// Nil fields are left untouched; the write only composes assignments for the
// fields the caller actually supplied.
type UpdatePatch struct {
	Name                  *string
	CampaignID            *string
	Cascade               []domain.CascadeItem
	CascadeGroupOverrides []domain.CascadeGroup
	DefaultCascadeGroup   *domain.CascadeGroupName
}

// AuditStamp records who performed a mutation and when.
type AuditStamp struct {
	UserID string
	At     time.Time
}

// RoutingConfigRepository persists routing configurations with optimistic
// lock-number concurrency.
type RoutingConfigRepository interface {
	Create(ctx context.Context, config domain.RoutingConfig, stamp AuditStamp) (domain.RoutingConfig, error)
	Update(ctx context.Context, id string, clientID string, lockNumber int64, patch UpdatePatch, stamp AuditStamp) (domain.RoutingConfig, error)
	Submit(ctx context.Context, id string, clientID string, stamp AuditStamp) (domain.RoutingConfig, error)
	Get(ctx context.Context, id string, clientID string) (domain.RoutingConfig, error)
	Query(clientID string) RoutingConfigQuery
}

// RoutingConfigQuery accumulates status filters before executing a list or
// count against the store. Implementations are single-use builders.
type RoutingConfigQuery interface {
	Status(statuses ...domain.Status) RoutingConfigQuery
	ExcludeStatus(statuses ...domain.Status) RoutingConfigQuery
	List(ctx context.Context) ([]domain.RoutingConfig, error)
	Count(ctx context.Context) (int64, error)
}

// TemplateLookup resolves template metadata for the referenced identifiers.
// Identifiers that do not resolve are absent from the result rather than an
// error.
type TemplateLookup interface {
	ResolveTemplates(ctx context.Context, clientID string, ids []string) (map[string]domain.TemplateSummary, error)
}
