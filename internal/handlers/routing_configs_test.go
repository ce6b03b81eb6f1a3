package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	domain "github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/auth"
	"github.com/messageplans/api/internal/services"
)

type stubRoutingConfigService struct {
	createFn func(ctx context.Context, identity domain.Identity, input services.CreateRoutingConfigInput) (domain.RoutingConfig, error)
	updateFn func(ctx context.Context, identity domain.Identity, id string, lockNumber int64, input services.UpdateRoutingConfigInput) (domain.RoutingConfig, error)
	submitFn func(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error)
	getFn    func(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error)
	listFn   func(ctx context.Context, identity domain.Identity, filter services.StatusFilter) ([]domain.RoutingConfig, error)
	countFn  func(ctx context.Context, identity domain.Identity, filter services.StatusFilter) (int64, error)
	viewFn   func(ctx context.Context, identity domain.Identity, id string) (services.RoutingConfigView, error)
}

func (s *stubRoutingConfigService) Create(ctx context.Context, identity domain.Identity, input services.CreateRoutingConfigInput) (domain.RoutingConfig, error) {
	return s.createFn(ctx, identity, input)
}

func (s *stubRoutingConfigService) Update(ctx context.Context, identity domain.Identity, id string, lockNumber int64, input services.UpdateRoutingConfigInput) (domain.RoutingConfig, error) {
	return s.updateFn(ctx, identity, id, lockNumber, input)
}

func (s *stubRoutingConfigService) Submit(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error) {
	return s.submitFn(ctx, identity, id)
}

func (s *stubRoutingConfigService) Get(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error) {
	return s.getFn(ctx, identity, id)
}

func (s *stubRoutingConfigService) List(ctx context.Context, identity domain.Identity, filter services.StatusFilter) ([]domain.RoutingConfig, error) {
	return s.listFn(ctx, identity, filter)
}

func (s *stubRoutingConfigService) Count(ctx context.Context, identity domain.Identity, filter services.StatusFilter) (int64, error) {
	return s.countFn(ctx, identity, filter)
}

func (s *stubRoutingConfigService) View(ctx context.Context, identity domain.Identity, id string) (services.RoutingConfigView, error) {
	if s.viewFn != nil {
		return s.viewFn(ctx, identity, id)
	}
	return services.RoutingConfigView{}, nil
}

func (s *stubRoutingConfigService) References(context.Context, domain.Identity, string) ([]domain.RoutingConfigReference, error) {
	return nil, nil
}

func (s *stubRoutingConfigService) SelectLanguageTemplates(context.Context, domain.Identity, string, int64, int, []domain.LanguageSelection) (domain.RoutingConfig, error) {
	return domain.RoutingConfig{}, nil
}

func (s *stubRoutingConfigService) SelectAccessibleFormatTemplate(context.Context, domain.Identity, string, int64, int, string, domain.AccessibleFormat) (domain.RoutingConfig, error) {
	return domain.RoutingConfig{}, nil
}

func (s *stubRoutingConfigService) SetDefaultTemplate(context.Context, domain.Identity, string, int64, int, string) (domain.RoutingConfig, error) {
	return domain.RoutingConfig{}, nil
}

func (s *stubRoutingConfigService) RemoveTemplate(context.Context, domain.Identity, string, int64, string) (domain.RoutingConfig, error) {
	return domain.RoutingConfig{}, nil
}

func newTestServer(svc services.RoutingConfigService) http.Handler {
	h := NewRoutingConfigHandlers(svc)
	return NewRouter(
		WithAuthMiddleware(auth.Middleware()),
		WithRoutingConfigRoutes(h.Routes),
	)
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	req.Header.Set(auth.HeaderClientID, "client-1")
	req.Header.Set(auth.HeaderUserID, "user-1")
	return req
}

func TestCreateRoutingConfigDecodesConditionalTemplates(t *testing.T) {
	var got services.CreateRoutingConfigInput
	svc := &stubRoutingConfigService{
		createFn: func(_ context.Context, identity domain.Identity, input services.CreateRoutingConfigInput) (domain.RoutingConfig, error) {
			if identity.ClientID != "client-1" || identity.UserID != "user-1" {
				t.Fatalf("unexpected identity %+v", identity)
			}
			got = input
			return domain.RoutingConfig{ID: "rc-1", Status: domain.StatusDraft, LockNumber: 1, Name: input.Name}, nil
		},
	}
	server := newTestServer(svc)

	body := `{
		"name": "winter flu",
		"cascade": [{
			"channel": "LETTER",
			"channelType": "primary",
			"conditionalTemplates": [
				{"language": "fr", "templateId": "tmpl-fr"},
				{"accessibleFormat": "x1", "templateId": "tmpl-lp"}
			]
		}]
	}`
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/routing-configurations", body))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(got.Cascade) != 1 || len(got.Cascade[0].ConditionalTemplates) != 2 {
		t.Fatalf("cascade not decoded: %+v", got.Cascade)
	}
	if _, ok := got.Cascade[0].ConditionalTemplates[0].(domain.LanguageOverride); !ok {
		t.Fatalf("expected LanguageOverride first, got %T", got.Cascade[0].ConditionalTemplates[0])
	}
	if _, ok := got.Cascade[0].ConditionalTemplates[1].(domain.AccessibleFormatOverride); !ok {
		t.Fatalf("expected AccessibleFormatOverride second, got %T", got.Cascade[0].ConditionalTemplates[1])
	}
}

func TestCreateRoutingConfigRejectsAmbiguousConditionalTemplate(t *testing.T) {
	server := newTestServer(&stubRoutingConfigService{})

	body := `{
		"name": "broken",
		"cascade": [{
			"channel": "LETTER",
			"channelType": "primary",
			"conditionalTemplates": [{"language": "fr", "accessibleFormat": "x1", "templateId": "t"}]
		}]
	}`
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/routing-configurations", body))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestRoutingConfigEndpointsRequireIdentity(t *testing.T) {
	server := newTestServer(&stubRoutingConfigService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/routing-configurations", nil)
	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity headers, got %d", rec.Code)
	}
}

func TestUpdateRoutingConfigRequiresLockNumber(t *testing.T) {
	server := newTestServer(&stubRoutingConfigService{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodPatch, "/api/v1/routing-configurations/rc-1", `{"name": "renamed"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateRoutingConfigMapsLockConflict(t *testing.T) {
	svc := &stubRoutingConfigService{
		updateFn: func(_ context.Context, _ domain.Identity, _ string, lockNumber int64, _ services.UpdateRoutingConfigInput) (domain.RoutingConfig, error) {
			if lockNumber != 3 {
				t.Fatalf("expected lock number 3, got %d", lockNumber)
			}
			return domain.RoutingConfig{}, services.ErrRoutingConfigLockConflict
		},
	}
	server := newTestServer(svc)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodPatch, "/api/v1/routing-configurations/rc-1", `{"lockNumber": 3, "name": "renamed"}`))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if payload["error"] != "lock_conflict" {
		t.Fatalf("expected lock_conflict code, got %v", payload["error"])
	}
}

func TestSubmitRoutingConfigMapsNotReady(t *testing.T) {
	svc := &stubRoutingConfigService{
		submitFn: func(_ context.Context, _ domain.Identity, id string) (domain.RoutingConfig, error) {
			if id != "rc-1" {
				t.Fatalf("unexpected id %q", id)
			}
			return domain.RoutingConfig{}, services.ErrRoutingConfigNotReady
		},
	}
	server := newTestServer(svc)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/routing-configurations/rc-1/submit", ""))

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestListRoutingConfigsParsesStatusFilters(t *testing.T) {
	var got services.StatusFilter
	svc := &stubRoutingConfigService{
		listFn: func(_ context.Context, _ domain.Identity, filter services.StatusFilter) ([]domain.RoutingConfig, error) {
			got = filter
			return []domain.RoutingConfig{{ID: "rc-1", Status: domain.StatusDraft}}, nil
		},
	}
	server := newTestServer(svc)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/routing-configurations?status=draft&excludeStatus=COMPLETED", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(got.Include) != 1 || got.Include[0] != domain.StatusDraft {
		t.Fatalf("include filter not parsed: %v", got.Include)
	}
	if len(got.Exclude) != 1 || got.Exclude[0] != domain.StatusCompleted {
		t.Fatalf("exclude filter not parsed: %v", got.Exclude)
	}
}

func TestListRoutingConfigsRejectsUnknownStatus(t *testing.T) {
	server := newTestServer(&stubRoutingConfigService{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/routing-configurations?status=ARCHIVED", ""))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestCountRoutingConfigs(t *testing.T) {
	svc := &stubRoutingConfigService{
		countFn: func(_ context.Context, _ domain.Identity, _ services.StatusFilter) (int64, error) {
			return 7, nil
		},
	}
	server := newTestServer(svc)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/routing-configurations/count", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload["count"] != float64(7) {
		t.Fatalf("expected count 7, got %v", payload["count"])
	}
}

func TestViewRoutingConfigIncludesStepFields(t *testing.T) {
	svc := &stubRoutingConfigService{
		viewFn: func(_ context.Context, _ domain.Identity, id string) (services.RoutingConfigView, error) {
			if id != "rc-1" {
				t.Fatalf("unexpected id %q", id)
			}
			return services.RoutingConfigView{
				Config: domain.RoutingConfig{ID: "rc-1", Status: domain.StatusDraft, LockNumber: 2},
				Steps: []services.StepView{
					{
						Item: domain.CascadeItem{
							Channel:           domain.ChannelLetter,
							ChannelType:       domain.ChannelTypePrimary,
							CascadeGroups:     []domain.CascadeGroupName{domain.CascadeGroupStandard},
							DefaultTemplateID: "tmpl-default",
						},
						DefaultTemplate: &domain.TemplateSummary{ID: "tmpl-default", Name: "winter letter", Type: domain.TemplateTypeLetter},
					},
					{
						Item: domain.CascadeItem{
							Channel:     domain.ChannelEmail,
							ChannelType: domain.ChannelTypePrimary,
						},
					},
				},
			}, nil
		},
	}
	server := newTestServer(svc)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/routing-configurations/rc-1/view", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var payload struct {
		Steps []map[string]any `json:"steps"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if len(payload.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(payload.Steps))
	}
	if payload.Steps[0]["defaultTemplateId"] != "tmpl-default" {
		t.Fatalf("expected defaultTemplateId on step 0, got %v", payload.Steps[0]["defaultTemplateId"])
	}
	groups, ok := payload.Steps[0]["cascadeGroups"].([]any)
	if !ok || len(groups) != 1 || groups[0] != string(domain.CascadeGroupStandard) {
		t.Fatalf("expected cascade groups on step 0, got %v", payload.Steps[0]["cascadeGroups"])
	}
	if _, ok := payload.Steps[0]["defaultTemplate"]; !ok {
		t.Fatalf("expected resolved default template on step 0")
	}
	if payload.Steps[1]["channel"] != string(domain.ChannelEmail) {
		t.Fatalf("expected unconfigured step to keep its channel, got %v", payload.Steps[1]["channel"])
	}
	if _, ok := payload.Steps[1]["defaultTemplateId"]; ok {
		t.Fatalf("unconfigured step should omit defaultTemplateId")
	}
}

func TestHealthz(t *testing.T) {
	server := newTestServer(&stubRoutingConfigService{})

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
