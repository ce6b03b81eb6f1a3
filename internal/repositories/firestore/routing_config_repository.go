package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	domain "github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/config"
	pfirestore "github.com/messageplans/api/internal/platform/firestore"
	"github.com/messageplans/api/internal/repositories"
)

// RoutingConfigRepository persists routing configurations in Firestore. All
// mutations run transactionally so lock-number checks always observe the
// committed pre-image.
type RoutingConfigRepository struct {
	provider *pfirestore.Provider
	base     *pfirestore.BaseRepository[routingConfigDocument]
	policy   config.PolicyConfig
	pageSize int
	newID    func() string
}

// NewRoutingConfigRepository constructs a repository bound to the configured collection.
func NewRoutingConfigRepository(provider *pfirestore.Provider, cfg config.FirestoreConfig, policy config.PolicyConfig) (*RoutingConfigRepository, error) {
	if provider == nil {
		return nil, errors.New("routing config repository requires firestore provider")
	}
	collection := strings.TrimSpace(cfg.RoutingConfigCollection)
	if collection == "" {
		return nil, errors.New("routing config repository requires collection name")
	}
	pageSize := cfg.QueryPageSize
	if pageSize <= 0 {
		pageSize = 100
	}
	base := pfirestore.NewBaseRepository[routingConfigDocument](provider, collection, nil)
	return &RoutingConfigRepository{
		provider: provider,
		base:     base,
		policy:   policy,
		pageSize: pageSize,
		newID:    uuid.NewString,
	}, nil
}

// Create stores a new configuration in DRAFT with lock number 1.
func (r *RoutingConfigRepository) Create(ctx context.Context, config domain.RoutingConfig, stamp repositories.AuditStamp) (domain.RoutingConfig, error) {
	if r == nil || r.provider == nil {
		return domain.RoutingConfig{}, errors.New("routing config repository not initialised")
	}
	if strings.TrimSpace(config.ClientID) == "" {
		return domain.RoutingConfig{}, errors.New("routing config create: client id is required")
	}

	id := strings.TrimSpace(config.ID)
	if id == "" {
		id = r.newID()
	}

	now := stamp.At.UTC()
	config.ID = id
	config.Status = domain.StatusDraft
	config.LockNumber = 1
	config.CreatedAt = now
	config.UpdatedAt = now
	config.CreatedBy = stamp.UserID
	config.UpdatedBy = stamp.UserID

	if err := r.base.Create(ctx, id, encodeRoutingConfig(config)); err != nil {
		return domain.RoutingConfig{}, err
	}
	return config, nil
}

// Update applies the patch when the caller's lock number matches the stored
// document. Only the fields present on the patch are written; the lock number
// increments by one on success.
func (r *RoutingConfigRepository) Update(ctx context.Context, id string, clientID string, lockNumber int64, patch repositories.UpdatePatch, stamp repositories.AuditStamp) (domain.RoutingConfig, error) {
	if r == nil || r.provider == nil {
		return domain.RoutingConfig{}, errors.New("routing config repository not initialised")
	}

	var updated domain.RoutingConfig
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, current, err := r.loadForMutation(ctx, tx, id, clientID)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusDraft && !r.policy.AllowCompletedUpdate {
			return repositories.ErrInvalidStatus
		}
		if current.LockNumber != lockNumber {
			return repositories.ErrLockConflict
		}

		now := stamp.At.UTC()
		assignments := []firestore.Update{
			{Path: "lockNumber", Value: current.LockNumber + 1},
			{Path: "updatedAt", Value: now},
			{Path: "updatedBy", Value: stamp.UserID},
		}
		updated = current
		updated.LockNumber++
		updated.UpdatedAt = now
		updated.UpdatedBy = stamp.UserID

		if patch.Name != nil {
			assignments = append(assignments, firestore.Update{Path: "name", Value: *patch.Name})
			updated.Name = *patch.Name
		}
		if patch.CampaignID != nil {
			assignments = append(assignments, firestore.Update{Path: "campaignId", Value: *patch.CampaignID})
			updated.CampaignID = *patch.CampaignID
		}
		if patch.Cascade != nil {
			assignments = append(assignments, firestore.Update{Path: "cascade", Value: encodeCascade(patch.Cascade)})
			updated.Cascade = domain.CloneCascade(patch.Cascade)
		}
		if patch.CascadeGroupOverrides != nil {
			assignments = append(assignments, firestore.Update{Path: "cascadeGroupOverrides", Value: encodeCascadeGroups(patch.CascadeGroupOverrides)})
			updated.CascadeGroupOverrides = patch.CascadeGroupOverrides
		}
		if patch.DefaultCascadeGroup != nil {
			assignments = append(assignments, firestore.Update{Path: "defaultCascadeGroup", Value: string(*patch.DefaultCascadeGroup)})
			updated.DefaultCascadeGroup = *patch.DefaultCascadeGroup
		}

		return tx.Update(ref, assignments)
	})
	if err != nil {
		return domain.RoutingConfig{}, wrapMutationError("routing-config.update", err)
	}
	return updated, nil
}

// Submit moves a DRAFT configuration to COMPLETED. Submission carries no
// caller lock number; the transaction guarantees the status check and the
// write observe the same document version.
func (r *RoutingConfigRepository) Submit(ctx context.Context, id string, clientID string, stamp repositories.AuditStamp) (domain.RoutingConfig, error) {
	if r == nil || r.provider == nil {
		return domain.RoutingConfig{}, errors.New("routing config repository not initialised")
	}

	var submitted domain.RoutingConfig
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, current, err := r.loadForMutation(ctx, tx, id, clientID)
		if err != nil {
			return err
		}
		if current.Status != domain.StatusDraft {
			return repositories.ErrInvalidStatus
		}

		now := stamp.At.UTC()
		submitted = current
		submitted.Status = domain.StatusCompleted
		submitted.LockNumber++
		submitted.UpdatedAt = now
		submitted.UpdatedBy = stamp.UserID

		return tx.Update(ref, []firestore.Update{
			{Path: "status", Value: string(domain.StatusCompleted)},
			{Path: "lockNumber", Value: submitted.LockNumber},
			{Path: "updatedAt", Value: now},
			{Path: "updatedBy", Value: stamp.UserID},
		})
	})
	if err != nil {
		return domain.RoutingConfig{}, wrapMutationError("routing-config.submit", err)
	}
	return submitted, nil
}

// Get fetches a configuration owned by the client.
func (r *RoutingConfigRepository) Get(ctx context.Context, id string, clientID string) (domain.RoutingConfig, error) {
	if r == nil || r.provider == nil {
		return domain.RoutingConfig{}, errors.New("routing config repository not initialised")
	}
	if strings.TrimSpace(id) == "" {
		return domain.RoutingConfig{}, repositories.ErrRoutingConfigNotFound
	}

	doc, err := r.base.Get(ctx, id)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return domain.RoutingConfig{}, repositories.ErrRoutingConfigNotFound
		}
		return domain.RoutingConfig{}, err
	}

	config, err := doc.Data.toDomain(doc.ID)
	if err != nil {
		return domain.RoutingConfig{}, err
	}
	if config.ClientID != strings.TrimSpace(clientID) {
		return domain.RoutingConfig{}, repositories.ErrRoutingConfigNotFound
	}
	return config, nil
}

// Query starts a status-filtered query scoped to the client.
func (r *RoutingConfigRepository) Query(clientID string) repositories.RoutingConfigQuery {
	return &routingConfigQuery{
		repo:     r,
		clientID: strings.TrimSpace(clientID),
	}
}

// loadForMutation reads the pre-image inside the transaction and verifies
// ownership. A missing document and a foreign owner are indistinguishable to
// the caller.
func (r *RoutingConfigRepository) loadForMutation(ctx context.Context, tx *firestore.Transaction, id string, clientID string) (*firestore.DocumentRef, domain.RoutingConfig, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.RoutingConfig{}, repositories.ErrRoutingConfigNotFound
	}
	ref, err := r.base.DocumentRef(ctx, id)
	if err != nil {
		return nil, domain.RoutingConfig{}, err
	}

	snap, err := tx.Get(ref)
	if err != nil {
		if pfirestore.IsNotFound(err) {
			return nil, domain.RoutingConfig{}, repositories.ErrRoutingConfigNotFound
		}
		return nil, domain.RoutingConfig{}, err
	}

	var doc routingConfigDocument
	if err := snap.DataTo(&doc); err != nil {
		return nil, domain.RoutingConfig{}, fmt.Errorf("decode routing config %s: %w", id, err)
	}
	current, err := doc.toDomain(snap.Ref.ID)
	if err != nil {
		return nil, domain.RoutingConfig{}, err
	}
	if current.ClientID != strings.TrimSpace(clientID) {
		return nil, domain.RoutingConfig{}, repositories.ErrRoutingConfigNotFound
	}
	return ref, current, nil
}

func wrapMutationError(op string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, repositories.ErrRoutingConfigNotFound),
		errors.Is(err, repositories.ErrLockConflict),
		errors.Is(err, repositories.ErrInvalidStatus):
		return err
	}
	return pfirestore.WrapError(op, err)
}
