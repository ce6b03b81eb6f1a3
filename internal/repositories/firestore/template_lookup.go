package firestore

import (
	"context"
	"errors"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	domain "github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/config"
	pfirestore "github.com/messageplans/api/internal/platform/firestore"
)

const templateLookupConcurrency = 8

type templateDocument struct {
	Owner              string            `firestore:"owner"`
	Name               string            `firestore:"name"`
	Type               string            `firestore:"type"`
	Language           string            `firestore:"language,omitempty"`
	AccessibleFormat   string            `firestore:"accessibleFormat,omitempty"`
	SupplierReferences map[string]string `firestore:"supplierReferences,omitempty"`
}

// TemplateLookup resolves template summaries from the template collection.
// Lookups for the ids of one configuration fan out concurrently.
type TemplateLookup struct {
	base *pfirestore.BaseRepository[templateDocument]
}

// NewTemplateLookup constructs a lookup bound to the configured collection.
func NewTemplateLookup(provider *pfirestore.Provider, cfg config.FirestoreConfig) (*TemplateLookup, error) {
	if provider == nil {
		return nil, errors.New("template lookup requires firestore provider")
	}
	collection := strings.TrimSpace(cfg.TemplateCollection)
	if collection == "" {
		return nil, errors.New("template lookup requires collection name")
	}
	return &TemplateLookup{
		base: pfirestore.NewBaseRepository[templateDocument](provider, collection, nil),
	}, nil
}

// ResolveTemplates fetches the summaries for the given ids. Identifiers that
// do not exist, or that belong to another client, are absent from the result.
func (l *TemplateLookup) ResolveTemplates(ctx context.Context, clientID string, ids []string) (map[string]domain.TemplateSummary, error) {
	if l == nil || l.base == nil {
		return nil, errors.New("template lookup not initialised")
	}

	owner := ownerKey(clientID)
	resolved := make(map[string]domain.TemplateSummary, len(ids))
	var mu sync.Mutex

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(templateLookupConcurrency)

	seen := make(map[string]struct{}, len(ids))
	for _, raw := range ids {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		group.Go(func() error {
			doc, err := l.base.Get(ctx, id)
			if err != nil {
				if pfirestore.IsNotFound(err) {
					return nil
				}
				return err
			}
			if doc.Data.Owner != owner {
				return nil
			}

			mu.Lock()
			resolved[id] = doc.Data.toDomain(id)
			mu.Unlock()
			return nil
		})
	}

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return resolved, nil
}

func (d templateDocument) toDomain(id string) domain.TemplateSummary {
	return domain.TemplateSummary{
		ID:                 id,
		Name:               d.Name,
		Type:               domain.TemplateType(d.Type),
		Language:           domain.Language(d.Language),
		AccessibleFormat:   domain.AccessibleFormat(d.AccessibleFormat),
		SupplierReferences: d.SupplierReferences,
	}
}
