package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/httpx"
	"github.com/messageplans/api/internal/platform/requestctx"
	"github.com/messageplans/api/internal/services"
)

const maxRoutingConfigBody = 256 * 1024

var (
	errEmptyBody    = errors.New("request body is required")
	errBodyTooLarge = errors.New("request body too large")
)

// RoutingConfigHandlers exposes the routing configuration endpoints.
type RoutingConfigHandlers struct {
	svc services.RoutingConfigService
}

// NewRoutingConfigHandlers constructs the handler set.
func NewRoutingConfigHandlers(svc services.RoutingConfigService) *RoutingConfigHandlers {
	return &RoutingConfigHandlers{svc: svc}
}

// Routes registers the routing configuration endpoints.
func (h *RoutingConfigHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}

	r.Route("/routing-configurations", func(rc chi.Router) {
		rc.Post("/", h.create)
		rc.Get("/", h.list)
		rc.Get("/count", h.count)

		rc.Route("/{configId}", func(one chi.Router) {
			one.Get("/", h.get)
			one.Patch("/", h.update)
			one.Post("/submit", h.submit)
			one.Get("/view", h.view)
			one.Put("/steps/{stepIndex}/language-templates", h.selectLanguageTemplates)
			one.Put("/steps/{stepIndex}/accessible-format-template", h.selectAccessibleFormatTemplate)
			one.Put("/steps/{stepIndex}/default-template", h.setDefaultTemplate)
			one.Post("/remove-template", h.removeTemplate)
		})
	})

	r.Get("/templates/{templateId}/routing-config-references", h.references)
}

type conditionalTemplatePayload struct {
	Language           string            `json:"language,omitempty"`
	AccessibleFormat   string            `json:"accessibleFormat,omitempty"`
	TemplateID         string            `json:"templateId"`
	SupplierReferences map[string]string `json:"supplierReferences,omitempty"`
}

type cascadeStepPayload struct {
	Channel              string                       `json:"channel"`
	ChannelType          string                       `json:"channelType"`
	CascadeGroups        []string                     `json:"cascadeGroups,omitempty"`
	DefaultTemplateID    string                       `json:"defaultTemplateId,omitempty"`
	SupplierReferences   map[string]string            `json:"supplierReferences,omitempty"`
	ConditionalTemplates []conditionalTemplatePayload `json:"conditionalTemplates,omitempty"`
}

type cascadeGroupPayload struct {
	Name              string   `json:"name"`
	AccessibleFormats []string `json:"accessibleFormats,omitempty"`
	Languages         []string `json:"languages,omitempty"`
}

type routingConfigResponse struct {
	ID                    string                `json:"id"`
	Name                  string                `json:"name"`
	CampaignID            string                `json:"campaignId,omitempty"`
	Status                string                `json:"status"`
	Cascade               []cascadeStepPayload  `json:"cascade"`
	CascadeGroupOverrides []cascadeGroupPayload `json:"cascadeGroupOverrides,omitempty"`
	DefaultCascadeGroup   string                `json:"defaultCascadeGroup,omitempty"`
	LockNumber            int64                 `json:"lockNumber"`
	CreatedAt             time.Time             `json:"createdAt"`
	UpdatedAt             time.Time             `json:"updatedAt"`
	CreatedBy             string                `json:"createdBy,omitempty"`
	UpdatedBy             string                `json:"updatedBy,omitempty"`
}

type templateSummaryPayload struct {
	ID                 string            `json:"id"`
	Name               string            `json:"name"`
	Type               string            `json:"type"`
	Language           string            `json:"language,omitempty"`
	AccessibleFormat   string            `json:"accessibleFormat,omitempty"`
	SupplierReferences map[string]string `json:"supplierReferences,omitempty"`
}

type createRoutingConfigRequest struct {
	Name                string               `json:"name"`
	CampaignID          string               `json:"campaignId"`
	Cascade             []cascadeStepPayload `json:"cascade"`
	DefaultCascadeGroup string               `json:"defaultCascadeGroup"`
}

type updateRoutingConfigRequest struct {
	LockNumber          *int64                `json:"lockNumber"`
	Name                *string               `json:"name"`
	CampaignID          *string               `json:"campaignId"`
	Cascade             *[]cascadeStepPayload `json:"cascade"`
	DefaultCascadeGroup *string               `json:"defaultCascadeGroup"`
}

type languageSelectionRequest struct {
	LockNumber *int64 `json:"lockNumber"`
	Templates  []struct {
		TemplateID string `json:"templateId"`
		Language   string `json:"language"`
	} `json:"templates"`
}

type accessibleFormatSelectionRequest struct {
	LockNumber       *int64 `json:"lockNumber"`
	TemplateID       string `json:"templateId"`
	AccessibleFormat string `json:"accessibleFormat"`
}

type defaultTemplateRequest struct {
	LockNumber *int64 `json:"lockNumber"`
	TemplateID string `json:"templateId"`
}

type removeTemplateRequest struct {
	LockNumber *int64 `json:"lockNumber"`
	TemplateID string `json:"templateId"`
}

func (h *RoutingConfigHandlers) create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	var req createRoutingConfigRequest
	if !decodeBody(w, r, &req) {
		return
	}

	cascade, err := decodeCascadePayload(req.Cascade)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	created, err := h.svc.Create(ctx, identity, services.CreateRoutingConfigInput{
		Name:                req.Name,
		CampaignID:          req.CampaignID,
		Cascade:             cascade,
		DefaultCascadeGroup: domain.CascadeGroupName(req.DefaultCascadeGroup),
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, encodeRoutingConfig(created))
}

func (h *RoutingConfigHandlers) update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	var req updateRoutingConfigRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LockNumber == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lockNumber is required", http.StatusBadRequest))
		return
	}

	input := services.UpdateRoutingConfigInput{
		Name:       req.Name,
		CampaignID: req.CampaignID,
	}
	if req.Cascade != nil {
		cascade, err := decodeCascadePayload(*req.Cascade)
		if err != nil {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
			return
		}
		if cascade == nil {
			cascade = []domain.CascadeItem{}
		}
		input.Cascade = cascade
	}
	if req.DefaultCascadeGroup != nil {
		group := domain.CascadeGroupName(*req.DefaultCascadeGroup)
		input.DefaultCascadeGroup = &group
	}

	updated, err := h.svc.Update(ctx, identity, chi.URLParam(r, "configId"), *req.LockNumber, input)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, encodeRoutingConfig(updated))
}

func (h *RoutingConfigHandlers) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	submitted, err := h.svc.Submit(ctx, identity, chi.URLParam(r, "configId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, encodeRoutingConfig(submitted))
}

func (h *RoutingConfigHandlers) get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	config, err := h.svc.Get(ctx, identity, chi.URLParam(r, "configId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, encodeRoutingConfig(config))
}

func (h *RoutingConfigHandlers) view(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	view, err := h.svc.View(ctx, identity, chi.URLParam(r, "configId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	steps := make([]map[string]any, 0, len(view.Steps))
	for _, step := range view.Steps {
		entry := map[string]any{
			"channel":     string(step.Item.Channel),
			"channelType": string(step.Item.ChannelType),
		}
		if len(step.Item.CascadeGroups) > 0 {
			groups := make([]string, 0, len(step.Item.CascadeGroups))
			for _, group := range step.Item.CascadeGroups {
				groups = append(groups, string(group))
			}
			entry["cascadeGroups"] = groups
		}
		if step.Item.DefaultTemplateID != "" {
			entry["defaultTemplateId"] = step.Item.DefaultTemplateID
		}
		if len(step.Item.SupplierReferences) > 0 {
			entry["supplierReferences"] = step.Item.SupplierReferences
		}
		if step.DefaultTemplate != nil {
			entry["defaultTemplate"] = encodeTemplateSummary(*step.DefaultTemplate)
		}
		if len(step.AccessibleTemplates) > 0 {
			accessible := make([]map[string]any, 0, len(step.AccessibleTemplates))
			for _, resolved := range step.AccessibleTemplates {
				accessible = append(accessible, map[string]any{
					"accessibleFormat": string(resolved.Format),
					"template":         encodeTemplateSummary(resolved.Template),
				})
			}
			entry["accessibleTemplates"] = accessible
		}
		if len(step.LanguageTemplates) > 0 {
			languages := make([]templateSummaryPayload, 0, len(step.LanguageTemplates))
			for _, summary := range step.LanguageTemplates {
				languages = append(languages, encodeTemplateSummary(summary))
			}
			entry["languageTemplates"] = languages
		}
		steps = append(steps, entry)
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"config": encodeRoutingConfig(view.Config),
		"steps":  steps,
	})
}

func (h *RoutingConfigHandlers) list(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	filter, err := parseStatusFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	configs, err := h.svc.List(ctx, identity, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]routingConfigResponse, 0, len(configs))
	for _, config := range configs {
		items = append(items, encodeRoutingConfig(config))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *RoutingConfigHandlers) count(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	filter, err := parseStatusFilter(r)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		return
	}

	total, err := h.svc.Count(ctx, identity, filter)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{"count": total})
}

func (h *RoutingConfigHandlers) selectLanguageTemplates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	var req languageSelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LockNumber == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lockNumber is required", http.StatusBadRequest))
		return
	}
	stepIndex, ok := parseStepIndex(w, r)
	if !ok {
		return
	}

	selections := make([]domain.LanguageSelection, 0, len(req.Templates))
	for _, tmpl := range req.Templates {
		selections = append(selections, domain.LanguageSelection{
			TemplateID: tmpl.TemplateID,
			Language:   domain.Language(tmpl.Language),
		})
	}

	updated, err := h.svc.SelectLanguageTemplates(ctx, identity, chi.URLParam(r, "configId"), *req.LockNumber, stepIndex, selections)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, encodeRoutingConfig(updated))
}

func (h *RoutingConfigHandlers) selectAccessibleFormatTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	var req accessibleFormatSelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LockNumber == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lockNumber is required", http.StatusBadRequest))
		return
	}
	stepIndex, ok := parseStepIndex(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.SelectAccessibleFormatTemplate(ctx, identity, chi.URLParam(r, "configId"), *req.LockNumber, stepIndex, req.TemplateID, domain.AccessibleFormat(req.AccessibleFormat))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, encodeRoutingConfig(updated))
}

func (h *RoutingConfigHandlers) setDefaultTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	var req defaultTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LockNumber == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lockNumber is required", http.StatusBadRequest))
		return
	}
	stepIndex, ok := parseStepIndex(w, r)
	if !ok {
		return
	}

	updated, err := h.svc.SetDefaultTemplate(ctx, identity, chi.URLParam(r, "configId"), *req.LockNumber, stepIndex, req.TemplateID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, encodeRoutingConfig(updated))
}

func (h *RoutingConfigHandlers) removeTemplate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	var req removeTemplateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.LockNumber == nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "lockNumber is required", http.StatusBadRequest))
		return
	}

	updated, err := h.svc.RemoveTemplate(ctx, identity, chi.URLParam(r, "configId"), *req.LockNumber, req.TemplateID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, encodeRoutingConfig(updated))
}

func (h *RoutingConfigHandlers) references(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := requestctx.IdentityFrom(ctx)
	if !ok {
		writeUnauthenticated(w, r)
		return
	}

	refs, err := h.svc.References(ctx, identity, chi.URLParam(r, "templateId"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	items := make([]map[string]string, 0, len(refs))
	for _, ref := range refs {
		items = append(items, map[string]string{"id": ref.ID, "name": ref.Name})
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"references": items})
}

func parseStatusFilter(r *http.Request) (services.StatusFilter, error) {
	var filter services.StatusFilter
	var err error
	if filter.Include, err = parseStatusValues(r.URL.Query().Get("status")); err != nil {
		return services.StatusFilter{}, err
	}
	if filter.Exclude, err = parseStatusValues(r.URL.Query().Get("excludeStatus")); err != nil {
		return services.StatusFilter{}, err
	}
	return filter, nil
}

func parseStatusValues(raw string) ([]domain.Status, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	var statuses []domain.Status
	for _, part := range strings.Split(raw, ",") {
		status := domain.Status(strings.ToUpper(strings.TrimSpace(part)))
		if !status.Valid() {
			return nil, fmt.Errorf("unknown status %q", part)
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func parseStepIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := chi.URLParam(r, "stepIndex")
	index, err := strconv.Atoi(raw)
	if err != nil || index < 0 {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", fmt.Sprintf("invalid step index %q", raw), http.StatusBadRequest))
		return 0, false
	}
	return index, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) bool {
	ctx := r.Context()
	body, err := readLimitedBody(r, maxRoutingConfigBody)
	if err != nil {
		switch {
		case errors.Is(err, errBodyTooLarge):
			httpx.WriteError(ctx, w, httpx.NewError("payload_too_large", "request body exceeds allowed size", http.StatusRequestEntityTooLarge))
		case errors.Is(err, errEmptyBody):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "request body is required", http.StatusBadRequest))
		default:
			httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
		}
		return false
	}
	if err := json.Unmarshal(body, target); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "invalid JSON payload", http.StatusBadRequest))
		return false
	}
	return true
}

func readLimitedBody(r *http.Request, limit int64) ([]byte, error) {
	if r == nil || r.Body == nil {
		return nil, errEmptyBody
	}
	reader := io.LimitReader(r.Body, limit+1)
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, errEmptyBody
	}
	if int64(len(data)) > limit {
		return nil, errBodyTooLarge
	}
	return data, nil
}

func decodeCascadePayload(payload []cascadeStepPayload) ([]domain.CascadeItem, error) {
	if payload == nil {
		return nil, nil
	}
	cascade := make([]domain.CascadeItem, 0, len(payload))
	for i, step := range payload {
		item := domain.CascadeItem{
			Channel:            domain.Channel(step.Channel),
			ChannelType:        domain.ChannelType(step.ChannelType),
			DefaultTemplateID:  step.DefaultTemplateID,
			SupplierReferences: step.SupplierReferences,
		}
		for _, group := range step.CascadeGroups {
			item.CascadeGroups = append(item.CascadeGroups, domain.CascadeGroupName(group))
		}
		for j, tmpl := range step.ConditionalTemplates {
			decoded, err := decodeConditionalTemplate(tmpl)
			if err != nil {
				return nil, fmt.Errorf("cascade step %d conditional template %d: %w", i, j, err)
			}
			item.ConditionalTemplates = append(item.ConditionalTemplates, decoded)
		}
		cascade = append(cascade, item)
	}
	return cascade, nil
}

func decodeConditionalTemplate(payload conditionalTemplatePayload) (domain.ConditionalTemplate, error) {
	language := strings.TrimSpace(payload.Language)
	format := strings.TrimSpace(payload.AccessibleFormat)
	switch {
	case language != "" && format != "":
		return nil, errors.New("exactly one of language and accessibleFormat must be set")
	case language != "":
		return domain.LanguageOverride{
			Language:           domain.Language(language),
			TemplateID:         payload.TemplateID,
			SupplierReferences: payload.SupplierReferences,
		}, nil
	case format != "":
		return domain.AccessibleFormatOverride{
			Format:             domain.AccessibleFormat(format),
			TemplateID:         payload.TemplateID,
			SupplierReferences: payload.SupplierReferences,
		}, nil
	default:
		return nil, errors.New("exactly one of language and accessibleFormat must be set")
	}
}

func encodeRoutingConfig(config domain.RoutingConfig) routingConfigResponse {
	resp := routingConfigResponse{
		ID:                  config.ID,
		Name:                config.Name,
		CampaignID:          config.CampaignID,
		Status:              string(config.Status),
		Cascade:             make([]cascadeStepPayload, 0, len(config.Cascade)),
		DefaultCascadeGroup: string(config.DefaultCascadeGroup),
		LockNumber:          config.LockNumber,
		CreatedAt:           config.CreatedAt,
		UpdatedAt:           config.UpdatedAt,
		CreatedBy:           config.CreatedBy,
		UpdatedBy:           config.UpdatedBy,
	}
	for _, item := range config.Cascade {
		step := cascadeStepPayload{
			Channel:            string(item.Channel),
			ChannelType:        string(item.ChannelType),
			DefaultTemplateID:  item.DefaultTemplateID,
			SupplierReferences: item.SupplierReferences,
		}
		for _, group := range item.CascadeGroups {
			step.CascadeGroups = append(step.CascadeGroups, string(group))
		}
		for _, tmpl := range item.ConditionalTemplates {
			step.ConditionalTemplates = append(step.ConditionalTemplates, encodeConditionalTemplate(tmpl))
		}
		resp.Cascade = append(resp.Cascade, step)
	}
	for _, group := range config.CascadeGroupOverrides {
		payload := cascadeGroupPayload{Name: string(group.Name)}
		for _, format := range group.AccessibleFormats {
			payload.AccessibleFormats = append(payload.AccessibleFormats, string(format))
		}
		for _, lang := range group.Languages {
			payload.Languages = append(payload.Languages, string(lang))
		}
		resp.CascadeGroupOverrides = append(resp.CascadeGroupOverrides, payload)
	}
	return resp
}

func encodeConditionalTemplate(tmpl domain.ConditionalTemplate) conditionalTemplatePayload {
	switch v := tmpl.(type) {
	case domain.LanguageOverride:
		return conditionalTemplatePayload{
			Language:           string(v.Language),
			TemplateID:         v.TemplateID,
			SupplierReferences: v.SupplierReferences,
		}
	case domain.AccessibleFormatOverride:
		return conditionalTemplatePayload{
			AccessibleFormat:   string(v.Format),
			TemplateID:         v.TemplateID,
			SupplierReferences: v.SupplierReferences,
		}
	default:
		return conditionalTemplatePayload{TemplateID: tmpl.TemplateRef()}
	}
}

func encodeTemplateSummary(summary domain.TemplateSummary) templateSummaryPayload {
	return templateSummaryPayload{
		ID:                 summary.ID,
		Name:               summary.Name,
		Type:               string(summary.Type),
		Language:           string(summary.Language),
		AccessibleFormat:   string(summary.AccessibleFormat),
		SupplierReferences: summary.SupplierReferences,
	}
}

func writeUnauthenticated(w http.ResponseWriter, r *http.Request) {
	httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()
	switch {
	case errors.Is(err, services.ErrRoutingConfigInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case errors.Is(err, services.ErrRoutingConfigNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("not_found", "routing configuration not found", http.StatusNotFound))
	case errors.Is(err, services.ErrRoutingConfigLockConflict):
		httpx.WriteError(ctx, w, httpx.NewError("lock_conflict", "this plan was changed by someone else, please reload", http.StatusConflict))
	case errors.Is(err, services.ErrRoutingConfigInvalidStatus):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_status", "this plan has already moved to production", http.StatusConflict))
	case errors.Is(err, services.ErrRoutingConfigNotReady):
		httpx.WriteError(ctx, w, httpx.NewError("not_ready", err.Error(), http.StatusUnprocessableEntity))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("internal_error", "unexpected error", http.StatusInternalServerError))
	}
}
