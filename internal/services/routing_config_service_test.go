package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/events"
	"github.com/messageplans/api/internal/repositories"
)

type stubRoutingConfigRepository struct {
	createFn func(ctx context.Context, config domain.RoutingConfig, stamp repositories.AuditStamp) (domain.RoutingConfig, error)
	updateFn func(ctx context.Context, id string, clientID string, lockNumber int64, patch repositories.UpdatePatch, stamp repositories.AuditStamp) (domain.RoutingConfig, error)
	submitFn func(ctx context.Context, id string, clientID string, stamp repositories.AuditStamp) (domain.RoutingConfig, error)
	getFn    func(ctx context.Context, id string, clientID string) (domain.RoutingConfig, error)
	queryFn  func(clientID string) repositories.RoutingConfigQuery
}

func (s *stubRoutingConfigRepository) Create(ctx context.Context, config domain.RoutingConfig, stamp repositories.AuditStamp) (domain.RoutingConfig, error) {
	if s.createFn == nil {
		return domain.RoutingConfig{}, errors.New("unexpected Create call")
	}
	return s.createFn(ctx, config, stamp)
}

func (s *stubRoutingConfigRepository) Update(ctx context.Context, id string, clientID string, lockNumber int64, patch repositories.UpdatePatch, stamp repositories.AuditStamp) (domain.RoutingConfig, error) {
	if s.updateFn == nil {
		return domain.RoutingConfig{}, errors.New("unexpected Update call")
	}
	return s.updateFn(ctx, id, clientID, lockNumber, patch, stamp)
}

func (s *stubRoutingConfigRepository) Submit(ctx context.Context, id string, clientID string, stamp repositories.AuditStamp) (domain.RoutingConfig, error) {
	if s.submitFn == nil {
		return domain.RoutingConfig{}, errors.New("unexpected Submit call")
	}
	return s.submitFn(ctx, id, clientID, stamp)
}

func (s *stubRoutingConfigRepository) Get(ctx context.Context, id string, clientID string) (domain.RoutingConfig, error) {
	if s.getFn == nil {
		return domain.RoutingConfig{}, errors.New("unexpected Get call")
	}
	return s.getFn(ctx, id, clientID)
}

func (s *stubRoutingConfigRepository) Query(clientID string) repositories.RoutingConfigQuery {
	if s.queryFn == nil {
		return &stubRoutingConfigQuery{}
	}
	return s.queryFn(clientID)
}

type stubRoutingConfigQuery struct {
	include []domain.Status
	exclude []domain.Status
	listFn  func(ctx context.Context) ([]domain.RoutingConfig, error)
	countFn func(ctx context.Context) (int64, error)
}

func (q *stubRoutingConfigQuery) Status(statuses ...domain.Status) repositories.RoutingConfigQuery {
	q.include = append(q.include, statuses...)
	return q
}

func (q *stubRoutingConfigQuery) ExcludeStatus(statuses ...domain.Status) repositories.RoutingConfigQuery {
	q.exclude = append(q.exclude, statuses...)
	return q
}

func (q *stubRoutingConfigQuery) List(ctx context.Context) ([]domain.RoutingConfig, error) {
	if q.listFn == nil {
		return nil, nil
	}
	return q.listFn(ctx)
}

func (q *stubRoutingConfigQuery) Count(ctx context.Context) (int64, error) {
	if q.countFn == nil {
		return 0, nil
	}
	return q.countFn(ctx)
}

type stubTemplateLookup struct {
	templates map[string]domain.TemplateSummary
	err       error
}

func (s *stubTemplateLookup) ResolveTemplates(_ context.Context, _ string, ids []string) (map[string]domain.TemplateSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	resolved := make(map[string]domain.TemplateSummary)
	for _, id := range ids {
		if summary, ok := s.templates[id]; ok {
			resolved[id] = summary
		}
	}
	return resolved, nil
}

type recordingPublisher struct {
	published []events.RoutingConfigEvent
	err       error
}

func (p *recordingPublisher) Publish(_ context.Context, event events.RoutingConfigEvent) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.published = append(p.published, event)
	return "msg-1", nil
}

func newTestService(t *testing.T, repo repositories.RoutingConfigRepository, lookup repositories.TemplateLookup, publisher EventPublisher) RoutingConfigService {
	t.Helper()
	if lookup == nil {
		lookup = &stubTemplateLookup{}
	}
	svc, err := NewRoutingConfigService(RoutingConfigServiceDeps{
		Repository: repo,
		Templates:  lookup,
		Events:     publisher,
		Clock:      func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) },
	})
	if err != nil {
		t.Fatalf("new routing config service: %v", err)
	}
	return svc
}

var testIdentity = domain.Identity{UserID: "user-1", ClientID: "client-1"}

func TestCreateRejectsDuplicateDiscriminators(t *testing.T) {
	svc := newTestService(t, &stubRoutingConfigRepository{}, nil, nil)

	_, err := svc.Create(context.Background(), testIdentity, CreateRoutingConfigInput{
		Name: "winter flu",
		Cascade: []domain.CascadeItem{
			{
				Channel:     domain.ChannelLetter,
				ChannelType: domain.ChannelTypePrimary,
				ConditionalTemplates: []domain.ConditionalTemplate{
					domain.LanguageOverride{Language: "fr", TemplateID: "a"},
					domain.LanguageOverride{Language: "fr", TemplateID: "b"},
				},
			},
		},
	})
	if !errors.Is(err, ErrRoutingConfigInvalidInput) {
		t.Fatalf("expected ErrRoutingConfigInvalidInput, got %v", err)
	}
}

func TestCreateDerivesGroupOverridesAndPublishes(t *testing.T) {
	publisher := &recordingPublisher{}
	var stored domain.RoutingConfig
	repo := &stubRoutingConfigRepository{
		createFn: func(_ context.Context, config domain.RoutingConfig, stamp repositories.AuditStamp) (domain.RoutingConfig, error) {
			stored = config
			config.ID = "rc-1"
			config.Status = domain.StatusDraft
			config.LockNumber = 1
			return config, nil
		},
	}
	svc := newTestService(t, repo, nil, publisher)

	created, err := svc.Create(context.Background(), testIdentity, CreateRoutingConfigInput{
		Name: "winter flu",
		Cascade: []domain.CascadeItem{
			{
				Channel:     domain.ChannelLetter,
				ChannelType: domain.ChannelTypePrimary,
				ConditionalTemplates: []domain.ConditionalTemplate{
					domain.LanguageOverride{Language: "fr", TemplateID: "tmpl-fr"},
				},
			},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	foundTranslations := false
	for _, group := range stored.CascadeGroupOverrides {
		if group.Name == domain.CascadeGroupTranslations {
			foundTranslations = true
		}
	}
	if !foundTranslations {
		t.Fatalf("expected translations group override, got %+v", stored.CascadeGroupOverrides)
	}

	if len(publisher.published) != 1 || publisher.published[0].Type != events.TypeCreated {
		t.Fatalf("expected one created event, got %+v", publisher.published)
	}
	if publisher.published[0].RoutingConfigID != created.ID {
		t.Fatalf("event references wrong config: %+v", publisher.published[0])
	}
}

func TestSubmitRequiresDefaultTemplatesOnEveryStep(t *testing.T) {
	repo := &stubRoutingConfigRepository{
		getFn: func(_ context.Context, id string, _ string) (domain.RoutingConfig, error) {
			return domain.RoutingConfig{
				ID:       id,
				ClientID: "client-1",
				Status:   domain.StatusDraft,
				Cascade: []domain.CascadeItem{
					{Channel: domain.ChannelEmail, DefaultTemplateID: "tmpl-email"},
					{Channel: domain.ChannelLetter},
				},
			}, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.Submit(context.Background(), testIdentity, "rc-1")
	if !errors.Is(err, ErrRoutingConfigNotReady) {
		t.Fatalf("expected ErrRoutingConfigNotReady, got %v", err)
	}
}

func TestSubmitRejectsUnknownDefaultTemplates(t *testing.T) {
	repo := &stubRoutingConfigRepository{
		getFn: func(_ context.Context, id string, _ string) (domain.RoutingConfig, error) {
			return domain.RoutingConfig{
				ID:       id,
				ClientID: "client-1",
				Status:   domain.StatusDraft,
				Cascade: []domain.CascadeItem{
					{Channel: domain.ChannelEmail, DefaultTemplateID: "tmpl-missing"},
				},
			}, nil
		},
	}
	svc := newTestService(t, repo, &stubTemplateLookup{}, nil)

	_, err := svc.Submit(context.Background(), testIdentity, "rc-1")
	if !errors.Is(err, ErrRoutingConfigNotReady) {
		t.Fatalf("expected ErrRoutingConfigNotReady, got %v", err)
	}
}

func TestSubmitPublishesSubmittedEvent(t *testing.T) {
	publisher := &recordingPublisher{}
	repo := &stubRoutingConfigRepository{
		getFn: func(_ context.Context, id string, _ string) (domain.RoutingConfig, error) {
			return domain.RoutingConfig{
				ID:       id,
				ClientID: "client-1",
				Status:   domain.StatusDraft,
				Cascade: []domain.CascadeItem{
					{Channel: domain.ChannelEmail, DefaultTemplateID: "tmpl-email"},
				},
				LockNumber: 2,
			}, nil
		},
		submitFn: func(_ context.Context, id string, _ string, _ repositories.AuditStamp) (domain.RoutingConfig, error) {
			return domain.RoutingConfig{ID: id, ClientID: "client-1", Status: domain.StatusCompleted, LockNumber: 3}, nil
		},
	}
	lookup := &stubTemplateLookup{templates: map[string]domain.TemplateSummary{
		"tmpl-email": {ID: "tmpl-email", Type: domain.TemplateTypeEmail},
	}}
	svc := newTestService(t, repo, lookup, publisher)

	submitted, err := svc.Submit(context.Background(), testIdentity, "rc-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if submitted.Status != domain.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %s", submitted.Status)
	}
	if len(publisher.published) != 1 || publisher.published[0].Type != events.TypeSubmitted {
		t.Fatalf("expected submitted event, got %+v", publisher.published)
	}
}

func TestSelectLanguageTemplatesRejectsDuplicatesBeforeLoading(t *testing.T) {
	repo := &stubRoutingConfigRepository{
		getFn: func(_ context.Context, _ string, _ string) (domain.RoutingConfig, error) {
			t.Fatal("repository must not be touched when selections are invalid")
			return domain.RoutingConfig{}, nil
		},
	}
	svc := newTestService(t, repo, nil, nil)

	_, err := svc.SelectLanguageTemplates(context.Background(), testIdentity, "rc-1", 3, 0, []domain.LanguageSelection{
		{TemplateID: "a", Language: "fr"},
		{TemplateID: "b", Language: "fr"},
	})
	if !errors.Is(err, ErrRoutingConfigInvalidInput) {
		t.Fatalf("expected ErrRoutingConfigInvalidInput, got %v", err)
	}
}

func TestSelectLanguageTemplatesSwapsLanguageEntries(t *testing.T) {
	step := domain.CascadeItem{
		Channel:     domain.ChannelLetter,
		ChannelType: domain.ChannelTypePrimary,
		ConditionalTemplates: []domain.ConditionalTemplate{
			domain.LanguageOverride{Language: "pl", TemplateID: "tmpl-pl"},
			domain.AccessibleFormatOverride{Format: domain.FormatLargePrint, TemplateID: "tmpl-lp"},
		},
	}

	var patched repositories.UpdatePatch
	repo := &stubRoutingConfigRepository{
		getFn: func(_ context.Context, id string, _ string) (domain.RoutingConfig, error) {
			return domain.RoutingConfig{
				ID:         id,
				ClientID:   "client-1",
				Status:     domain.StatusDraft,
				Cascade:    []domain.CascadeItem{step},
				LockNumber: 3,
			}, nil
		},
		updateFn: func(_ context.Context, id string, _ string, lockNumber int64, patch repositories.UpdatePatch, _ repositories.AuditStamp) (domain.RoutingConfig, error) {
			if lockNumber != 3 {
				t.Fatalf("expected lock number 3, got %d", lockNumber)
			}
			patched = patch
			return domain.RoutingConfig{ID: id, ClientID: "client-1", Cascade: patch.Cascade, LockNumber: 4}, nil
		},
	}
	lookup := &stubTemplateLookup{templates: map[string]domain.TemplateSummary{
		"tmpl-fr": {ID: "tmpl-fr", Type: domain.TemplateTypeLetter, Language: "fr"},
	}}
	svc := newTestService(t, repo, lookup, nil)

	_, err := svc.SelectLanguageTemplates(context.Background(), testIdentity, "rc-1", 3, 0, []domain.LanguageSelection{
		{TemplateID: "tmpl-fr", Language: "fr"},
	})
	if err != nil {
		t.Fatalf("select language templates: %v", err)
	}

	if len(patched.Cascade) != 1 {
		t.Fatalf("expected 1 cascade step in patch, got %d", len(patched.Cascade))
	}
	conditionals := patched.Cascade[0].ConditionalTemplates
	if len(conditionals) != 2 {
		t.Fatalf("expected 2 conditional templates, got %d", len(conditionals))
	}
	if _, ok := conditionals[0].(domain.AccessibleFormatOverride); !ok {
		t.Fatalf("expected accessible format entry first, got %T", conditionals[0])
	}
	override, ok := conditionals[1].(domain.LanguageOverride)
	if !ok || override.Language != "fr" || override.TemplateID != "tmpl-fr" {
		t.Fatalf("expected appended fr override, got %+v", conditionals[1])
	}
	if patched.CascadeGroupOverrides == nil {
		t.Fatal("expected recomputed group overrides in patch")
	}
}

func TestSelectLanguageTemplatesRejectsLanguageMismatch(t *testing.T) {
	repo := &stubRoutingConfigRepository{
		getFn: func(_ context.Context, id string, _ string) (domain.RoutingConfig, error) {
			return domain.RoutingConfig{
				ID:       id,
				ClientID: "client-1",
				Cascade:  []domain.CascadeItem{{Channel: domain.ChannelLetter}},
			}, nil
		},
	}
	lookup := &stubTemplateLookup{templates: map[string]domain.TemplateSummary{
		"tmpl-de": {ID: "tmpl-de", Type: domain.TemplateTypeLetter, Language: "de"},
	}}
	svc := newTestService(t, repo, lookup, nil)

	_, err := svc.SelectLanguageTemplates(context.Background(), testIdentity, "rc-1", 1, 0, []domain.LanguageSelection{
		{TemplateID: "tmpl-de", Language: "fr"},
	})
	if !errors.Is(err, ErrRoutingConfigInvalidInput) {
		t.Fatalf("expected ErrRoutingConfigInvalidInput, got %v", err)
	}
}

func TestUpdateMapsLockConflict(t *testing.T) {
	repo := &stubRoutingConfigRepository{
		updateFn: func(_ context.Context, _ string, _ string, _ int64, _ repositories.UpdatePatch, _ repositories.AuditStamp) (domain.RoutingConfig, error) {
			return domain.RoutingConfig{}, repositories.ErrLockConflict
		},
	}
	svc := newTestService(t, repo, nil, nil)

	name := "renamed"
	_, err := svc.Update(context.Background(), testIdentity, "rc-1", 3, UpdateRoutingConfigInput{Name: &name})
	if !errors.Is(err, ErrRoutingConfigLockConflict) {
		t.Fatalf("expected ErrRoutingConfigLockConflict, got %v", err)
	}
}

func TestEventPublishFailureDoesNotFailMutation(t *testing.T) {
	publisher := &recordingPublisher{err: errors.New("broker down")}
	repo := &stubRoutingConfigRepository{
		createFn: func(_ context.Context, config domain.RoutingConfig, _ repositories.AuditStamp) (domain.RoutingConfig, error) {
			config.ID = "rc-1"
			return config, nil
		},
	}
	svc := newTestService(t, repo, nil, publisher)

	if _, err := svc.Create(context.Background(), testIdentity, CreateRoutingConfigInput{Name: "plan"}); err != nil {
		t.Fatalf("create should succeed despite publish failure: %v", err)
	}
}

func TestListAppliesStatusFilters(t *testing.T) {
	query := &stubRoutingConfigQuery{
		listFn: func(_ context.Context) ([]domain.RoutingConfig, error) {
			return []domain.RoutingConfig{{ID: "rc-1"}}, nil
		},
	}
	repo := &stubRoutingConfigRepository{
		queryFn: func(clientID string) repositories.RoutingConfigQuery {
			if clientID != "client-1" {
				t.Fatalf("unexpected client id %q", clientID)
			}
			return query
		},
	}
	svc := newTestService(t, repo, nil, nil)

	configs, err := svc.List(context.Background(), testIdentity, StatusFilter{
		Include: []domain.Status{domain.StatusDraft},
		Exclude: []domain.Status{domain.StatusCompleted},
	})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(configs) != 1 {
		t.Fatalf("expected 1 config, got %d", len(configs))
	}
	if len(query.include) != 1 || query.include[0] != domain.StatusDraft {
		t.Fatalf("include filter not applied: %v", query.include)
	}
	if len(query.exclude) != 1 || query.exclude[0] != domain.StatusCompleted {
		t.Fatalf("exclude filter not applied: %v", query.exclude)
	}
}

func TestReferencesFindsTemplateUsage(t *testing.T) {
	repo := &stubRoutingConfigRepository{
		queryFn: func(string) repositories.RoutingConfigQuery {
			return &stubRoutingConfigQuery{
				listFn: func(_ context.Context) ([]domain.RoutingConfig, error) {
					return []domain.RoutingConfig{
						{ID: "rc-1", Name: "uses it", Cascade: []domain.CascadeItem{{Channel: domain.ChannelEmail, DefaultTemplateID: "tmpl-x"}}},
						{ID: "rc-2", Name: "does not", Cascade: []domain.CascadeItem{{Channel: domain.ChannelEmail, DefaultTemplateID: "tmpl-y"}}},
						{ID: "rc-3", Name: "conditional", Cascade: []domain.CascadeItem{{
							Channel: domain.ChannelLetter,
							ConditionalTemplates: []domain.ConditionalTemplate{
								domain.LanguageOverride{Language: "fr", TemplateID: "tmpl-x"},
							},
						}}},
					}, nil
				},
			}
		},
	}
	svc := newTestService(t, repo, nil, nil)

	refs, err := svc.References(context.Background(), testIdentity, "tmpl-x")
	if err != nil {
		t.Fatalf("references: %v", err)
	}
	if len(refs) != 2 || refs[0].ID != "rc-1" || refs[1].ID != "rc-3" {
		t.Fatalf("unexpected references: %+v", refs)
	}
}
