package firestore

import (
	"context"
	"errors"
	"slices"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"go.uber.org/zap"

	domain "github.com/messageplans/api/internal/domain"
	pfirestore "github.com/messageplans/api/internal/platform/firestore"
	"github.com/messageplans/api/internal/platform/requestctx"
	"github.com/messageplans/api/internal/repositories"
)

// routingConfigQuery accumulates status filters for a single client. Firestore
// cannot combine in and not-in predicates on one field, so the include and
// exclude sets are folded into one effective include set over the closed
// status enum before the query runs.
type routingConfigQuery struct {
	repo     *RoutingConfigRepository
	clientID string
	include  []domain.Status
	exclude  []domain.Status
}

var _ repositories.RoutingConfigQuery = (*routingConfigQuery)(nil)

func (q *routingConfigQuery) Status(statuses ...domain.Status) repositories.RoutingConfigQuery {
	q.include = append(q.include, statuses...)
	return q
}

func (q *routingConfigQuery) ExcludeStatus(statuses ...domain.Status) repositories.RoutingConfigQuery {
	q.exclude = append(q.exclude, statuses...)
	return q
}

// List drains every matching configuration page by page, ordered by document
// ID. Documents that fail to decode are skipped with a warning rather than
// failing the whole listing.
func (q *routingConfigQuery) List(ctx context.Context) ([]domain.RoutingConfig, error) {
	if q == nil || q.repo == nil {
		return nil, errors.New("routing config query not initialised")
	}

	effective := effectiveStatuses(q.include, q.exclude)
	if len(effective) == 0 {
		return nil, nil
	}

	logger := requestctx.Logger(ctx)
	pageSize := q.repo.pageSize

	var (
		configs []domain.RoutingConfig
		cursor  string
	)
	for {
		snapshots, err := q.repo.base.QueryRaw(ctx, func(query firestore.Query) firestore.Query {
			query = q.applyFilters(query, effective)
			query = query.OrderBy(firestore.DocumentID, firestore.Asc).Limit(pageSize)
			if cursor != "" {
				query = query.StartAfter(cursor)
			}
			return query
		})
		if err != nil {
			return nil, pfirestore.WrapError("routing-config.list", err)
		}

		for _, snapshot := range snapshots {
			doc, err := q.repo.base.DecodeSnapshot(snapshot)
			if err != nil {
				logger.Warn("skipping invalid routing configuration",
					zap.String("routing_config_id", snapshot.Ref.ID),
					zap.Error(err),
				)
				continue
			}
			config, err := doc.Data.toDomain(doc.ID)
			if err != nil {
				logger.Warn("skipping invalid routing configuration",
					zap.String("routing_config_id", doc.ID),
					zap.Error(err),
				)
				continue
			}
			configs = append(configs, config)
		}

		if len(snapshots) < pageSize {
			return configs, nil
		}
		cursor = snapshots[len(snapshots)-1].Ref.ID
	}
}

// Count returns the number of matching configurations using the server-side
// aggregation, without materialising documents.
func (q *routingConfigQuery) Count(ctx context.Context) (int64, error) {
	if q == nil || q.repo == nil {
		return 0, errors.New("routing config query not initialised")
	}

	effective := effectiveStatuses(q.include, q.exclude)
	if len(effective) == 0 {
		return 0, nil
	}

	coll, err := q.repo.base.Collection(ctx)
	if err != nil {
		return 0, err
	}

	query := q.applyFilters(coll.Query, effective)
	results, err := query.NewAggregationQuery().WithCount("total").Get(ctx)
	if err != nil {
		return 0, pfirestore.WrapError("routing-config.count", err)
	}

	raw, ok := results["total"]
	if !ok {
		return 0, errors.New("routing config count: aggregation result missing")
	}
	value, ok := raw.(*firestorepb.Value)
	if !ok {
		return 0, errors.New("routing config count: unexpected aggregation result type")
	}
	return value.GetIntegerValue(), nil
}

func (q *routingConfigQuery) applyFilters(query firestore.Query, effective []domain.Status) firestore.Query {
	query = query.Where("owner", "==", ownerKey(q.clientID))
	if len(effective) < len(domain.Statuses) {
		values := make([]string, 0, len(effective))
		for _, status := range effective {
			values = append(values, string(status))
		}
		query = query.Where("status", "in", values)
	}
	return query
}

// effectiveStatuses folds include and exclude sets into the set of statuses
// the query should match. No include filter means all statuses; excludes are
// then removed. Duplicates collapse and enum order is preserved.
func effectiveStatuses(include, exclude []domain.Status) []domain.Status {
	allowed := include
	if len(allowed) == 0 {
		allowed = domain.Statuses
	}

	var out []domain.Status
	for _, status := range domain.Statuses {
		if !slices.Contains(allowed, status) {
			continue
		}
		if slices.Contains(exclude, status) {
			continue
		}
		out = append(out, status)
	}
	return out
}
