package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/language"

	domain "github.com/messageplans/api/internal/domain"
	"github.com/messageplans/api/internal/platform/events"
	"github.com/messageplans/api/internal/platform/requestctx"
	"github.com/messageplans/api/internal/repositories"
)

// ErrRoutingConfigInvalidInput indicates the caller provided invalid data.
var ErrRoutingConfigInvalidInput = errors.New("routing_config: invalid input")

// ErrRoutingConfigNotFound indicates the configuration does not exist for the caller.
var ErrRoutingConfigNotFound = errors.New("routing_config: not found")

// ErrRoutingConfigLockConflict indicates the configuration changed since the caller loaded it.
var ErrRoutingConfigLockConflict = errors.New("routing_config: lock conflict")

// ErrRoutingConfigInvalidStatus indicates the configuration has already moved to production.
var ErrRoutingConfigInvalidStatus = errors.New("routing_config: invalid status")

// ErrRoutingConfigNotReady indicates a submission was attempted while cascade
// steps still miss a default template.
var ErrRoutingConfigNotReady = errors.New("routing_config: not ready for submission")

// ErrRoutingConfigUnavailable indicates the service cannot complete the request.
var ErrRoutingConfigUnavailable = errors.New("routing_config: service unavailable")

const maxRoutingConfigNameLength = 200

// RoutingConfigServiceDeps wires the collaborators for routing configuration operations.
type RoutingConfigServiceDeps struct {
	Repository repositories.RoutingConfigRepository
	Templates  repositories.TemplateLookup
	Events     EventPublisher
	Clock      func() time.Time
	Logger     *zap.Logger
}

type routingConfigService struct {
	repo      repositories.RoutingConfigRepository
	templates repositories.TemplateLookup
	events    EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// NewRoutingConfigService constructs a RoutingConfigService with the provided dependencies.
func NewRoutingConfigService(deps RoutingConfigServiceDeps) (RoutingConfigService, error) {
	if deps.Repository == nil {
		return nil, errors.New("routing_config: repository is required")
	}
	if deps.Templates == nil {
		return nil, errors.New("routing_config: template lookup is required")
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &routingConfigService{
		repo:      deps.Repository,
		templates: deps.Templates,
		events:    deps.Events,
		now:       deps.Clock,
		logger:    deps.Logger,
	}, nil
}

func (s *routingConfigService) Create(ctx context.Context, identity domain.Identity, input CreateRoutingConfigInput) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	name := strings.TrimSpace(input.Name)
	if name == "" || len(name) > maxRoutingConfigNameLength {
		return domain.RoutingConfig{}, fmt.Errorf("%w: name is required and at most %d characters", ErrRoutingConfigInvalidInput, maxRoutingConfigNameLength)
	}
	if err := validateCascadeInput(input.Cascade); err != nil {
		return domain.RoutingConfig{}, err
	}

	config := domain.RoutingConfig{
		ClientID:              identity.ClientID,
		Name:                  name,
		CampaignID:            strings.TrimSpace(input.CampaignID),
		Cascade:               domain.CloneCascade(input.Cascade),
		CascadeGroupOverrides: domain.RecomputeGroupOverrides(input.Cascade),
		DefaultCascadeGroup:   input.DefaultCascadeGroup,
	}

	created, err := s.repo.Create(ctx, config, s.stamp(identity))
	if err != nil {
		return domain.RoutingConfig{}, s.mapRepositoryError(ctx, "create", err)
	}

	s.emit(ctx, events.TypeCreated, created)
	return created, nil
}

func (s *routingConfigService) Update(ctx context.Context, identity domain.Identity, id string, lockNumber int64, input UpdateRoutingConfigInput) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	patch := repositories.UpdatePatch{
		CampaignID:          input.CampaignID,
		DefaultCascadeGroup: input.DefaultCascadeGroup,
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" || len(name) > maxRoutingConfigNameLength {
			return domain.RoutingConfig{}, fmt.Errorf("%w: name is required and at most %d characters", ErrRoutingConfigInvalidInput, maxRoutingConfigNameLength)
		}
		patch.Name = &name
	}
	if input.Cascade != nil {
		if err := validateCascadeInput(input.Cascade); err != nil {
			return domain.RoutingConfig{}, err
		}
		patch.Cascade = domain.CloneCascade(input.Cascade)
		patch.CascadeGroupOverrides = domain.RecomputeGroupOverrides(input.Cascade)
		if patch.CascadeGroupOverrides == nil {
			patch.CascadeGroupOverrides = []domain.CascadeGroup{}
		}
	}

	updated, err := s.repo.Update(ctx, id, identity.ClientID, lockNumber, patch, s.stamp(identity))
	if err != nil {
		return domain.RoutingConfig{}, s.mapRepositoryError(ctx, "update", err)
	}

	s.emit(ctx, events.TypeUpdated, updated)
	return updated, nil
}

// Submit moves a draft to production. Every cascade step must already carry a
// default template; the status precondition itself is enforced by the store.
func (s *routingConfigService) Submit(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}

	current, err := s.repo.Get(ctx, id, identity.ClientID)
	if err != nil {
		return domain.RoutingConfig{}, s.mapRepositoryError(ctx, "submit", err)
	}
	if missing := domain.StepsMissingDefaultTemplate(current); len(missing) > 0 {
		return domain.RoutingConfig{}, fmt.Errorf("%w: steps %v have no default template", ErrRoutingConfigNotReady, missing)
	}
	if len(current.Cascade) == 0 {
		return domain.RoutingConfig{}, fmt.Errorf("%w: cascade is empty", ErrRoutingConfigNotReady)
	}

	resolved, err := s.templates.ResolveTemplates(ctx, identity.ClientID, domain.TemplateIDs(current))
	if err != nil {
		return domain.RoutingConfig{}, fmt.Errorf("%w: %v", ErrRoutingConfigUnavailable, err)
	}
	for i, step := range current.Cascade {
		if _, ok := resolved[step.DefaultTemplateID]; !ok {
			return domain.RoutingConfig{}, fmt.Errorf("%w: step %d references unknown template %s", ErrRoutingConfigNotReady, i, step.DefaultTemplateID)
		}
	}

	submitted, err := s.repo.Submit(ctx, id, identity.ClientID, s.stamp(identity))
	if err != nil {
		return domain.RoutingConfig{}, s.mapRepositoryError(ctx, "submit", err)
	}

	s.emit(ctx, events.TypeSubmitted, submitted)
	return submitted, nil
}

func (s *routingConfigService) Get(ctx context.Context, identity domain.Identity, id string) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	config, err := s.repo.Get(ctx, id, identity.ClientID)
	if err != nil {
		return domain.RoutingConfig{}, s.mapRepositoryError(ctx, "get", err)
	}
	return config, nil
}

func (s *routingConfigService) List(ctx context.Context, identity domain.Identity, filter StatusFilter) ([]domain.RoutingConfig, error) {
	if !identity.Valid() {
		return nil, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	configs, err := s.buildQuery(identity, filter).List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(ctx, "list", err)
	}
	return configs, nil
}

func (s *routingConfigService) Count(ctx context.Context, identity domain.Identity, filter StatusFilter) (int64, error) {
	if !identity.Valid() {
		return 0, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	total, err := s.buildQuery(identity, filter).Count(ctx)
	if err != nil {
		return 0, s.mapRepositoryError(ctx, "count", err)
	}
	return total, nil
}

// View resolves every template reference and projects the cascade for display.
// Lookup misses are normal outcomes and simply leave gaps in the view.
func (s *routingConfigService) View(ctx context.Context, identity domain.Identity, id string) (RoutingConfigView, error) {
	config, err := s.Get(ctx, identity, id)
	if err != nil {
		return RoutingConfigView{}, err
	}

	lookup, err := s.templates.ResolveTemplates(ctx, identity.ClientID, domain.TemplateIDs(config))
	if err != nil {
		return RoutingConfigView{}, fmt.Errorf("%w: %v", ErrRoutingConfigUnavailable, err)
	}

	view := RoutingConfigView{Config: config}
	for _, step := range config.Cascade {
		stepView := StepView{
			Item:                step,
			AccessibleTemplates: domain.AccessibleTemplatesForStep(step, lookup),
			LanguageTemplates:   domain.LanguageTemplatesForStep(step, lookup),
		}
		if summary, ok := domain.DefaultTemplate(step, lookup); ok {
			stepView.DefaultTemplate = &summary
		}
		view.Steps = append(view.Steps, stepView)
	}
	return view, nil
}

// References lists the configurations whose cascade references the template.
func (s *routingConfigService) References(ctx context.Context, identity domain.Identity, templateID string) ([]domain.RoutingConfigReference, error) {
	if !identity.Valid() {
		return nil, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return nil, fmt.Errorf("%w: template id is required", ErrRoutingConfigInvalidInput)
	}

	configs, err := s.repo.Query(identity.ClientID).List(ctx)
	if err != nil {
		return nil, s.mapRepositoryError(ctx, "references", err)
	}

	var refs []domain.RoutingConfigReference
	for _, config := range configs {
		for _, id := range domain.TemplateIDs(config) {
			if id == templateID {
				refs = append(refs, domain.RoutingConfigReference{ID: config.ID, Name: config.Name})
				break
			}
		}
	}
	return refs, nil
}

// SelectLanguageTemplates swaps the full language override set of one step.
// Duplicate languages in the selection are rejected before the cascade is
// touched; an empty selection clears every language entry.
func (s *routingConfigService) SelectLanguageTemplates(ctx context.Context, identity domain.Identity, id string, lockNumber int64, stepIndex int, selections []domain.LanguageSelection) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	if err := domain.DetectDuplicateLanguages(selections); err != nil {
		return domain.RoutingConfig{}, fmt.Errorf("%w: %v", ErrRoutingConfigInvalidInput, err)
	}
	for _, selection := range selections {
		if err := validateLanguageCode(string(selection.Language)); err != nil {
			return domain.RoutingConfig{}, err
		}
	}

	current, step, err := s.loadStep(ctx, identity, id, stepIndex)
	if err != nil {
		return domain.RoutingConfig{}, err
	}

	summaries := make([]domain.TemplateSummary, 0, len(selections))
	if len(selections) > 0 {
		ids := make([]string, 0, len(selections))
		for _, selection := range selections {
			ids = append(ids, selection.TemplateID)
		}
		resolved, err := s.templates.ResolveTemplates(ctx, identity.ClientID, ids)
		if err != nil {
			return domain.RoutingConfig{}, fmt.Errorf("%w: %v", ErrRoutingConfigUnavailable, err)
		}
		for _, selection := range selections {
			summary, ok := resolved[selection.TemplateID]
			if !ok {
				return domain.RoutingConfig{}, fmt.Errorf("%w: template %s not found", ErrRoutingConfigInvalidInput, selection.TemplateID)
			}
			if summary.Language != selection.Language {
				return domain.RoutingConfig{}, fmt.Errorf("%w: template %s is not a %s template", ErrRoutingConfigInvalidInput, selection.TemplateID, selection.Language)
			}
			summaries = append(summaries, summary)
		}
	}

	next := domain.CloneCascade(current.Cascade)
	next[stepIndex] = domain.ReplaceLanguageTemplates(step, summaries)
	return s.persistCascade(ctx, identity, id, lockNumber, next)
}

// SelectAccessibleFormatTemplate sets or replaces the override for one
// accessible format on one step.
func (s *routingConfigService) SelectAccessibleFormatTemplate(ctx context.Context, identity domain.Identity, id string, lockNumber int64, stepIndex int, templateID string, format domain.AccessibleFormat) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	if !supportedAccessibleFormat(format) {
		return domain.RoutingConfig{}, fmt.Errorf("%w: unsupported accessible format %q", ErrRoutingConfigInvalidInput, format)
	}

	current, step, err := s.loadStep(ctx, identity, id, stepIndex)
	if err != nil {
		return domain.RoutingConfig{}, err
	}

	summary, err := s.resolveOne(ctx, identity, templateID)
	if err != nil {
		return domain.RoutingConfig{}, err
	}
	if summary.AccessibleFormat != format {
		return domain.RoutingConfig{}, fmt.Errorf("%w: template %s is not a %s variant", ErrRoutingConfigInvalidInput, templateID, format)
	}

	next := domain.CloneCascade(current.Cascade)
	next[stepIndex] = domain.UpsertAccessibleFormatTemplate(step, summary)
	return s.persistCascade(ctx, identity, id, lockNumber, next)
}

// SetDefaultTemplate assigns the fallback template of one step.
func (s *routingConfigService) SetDefaultTemplate(ctx context.Context, identity domain.Identity, id string, lockNumber int64, stepIndex int, templateID string) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}

	current, step, err := s.loadStep(ctx, identity, id, stepIndex)
	if err != nil {
		return domain.RoutingConfig{}, err
	}

	summary, err := s.resolveOne(ctx, identity, templateID)
	if err != nil {
		return domain.RoutingConfig{}, err
	}
	if expected := channelTemplateType(step.Channel); expected != "" && summary.Type != expected {
		return domain.RoutingConfig{}, fmt.Errorf("%w: template %s is a %s template, step expects %s", ErrRoutingConfigInvalidInput, templateID, summary.Type, expected)
	}

	next := domain.CloneCascade(current.Cascade)
	next[stepIndex] = domain.WithDefaultTemplate(step, summary)
	return s.persistCascade(ctx, identity, id, lockNumber, next)
}

// RemoveTemplate clears every reference to the template across the cascade.
func (s *routingConfigService) RemoveTemplate(ctx context.Context, identity domain.Identity, id string, lockNumber int64, templateID string) (domain.RoutingConfig, error) {
	if !identity.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("%w: identity is required", ErrRoutingConfigInvalidInput)
	}
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return domain.RoutingConfig{}, fmt.Errorf("%w: template id is required", ErrRoutingConfigInvalidInput)
	}

	current, err := s.repo.Get(ctx, id, identity.ClientID)
	if err != nil {
		return domain.RoutingConfig{}, s.mapRepositoryError(ctx, "remove-template", err)
	}

	next := domain.RemoveTemplates(current.Cascade, []string{templateID})
	return s.persistCascade(ctx, identity, id, lockNumber, next)
}

func (s *routingConfigService) buildQuery(identity domain.Identity, filter StatusFilter) repositories.RoutingConfigQuery {
	query := s.repo.Query(identity.ClientID)
	if len(filter.Include) > 0 {
		query = query.Status(filter.Include...)
	}
	if len(filter.Exclude) > 0 {
		query = query.ExcludeStatus(filter.Exclude...)
	}
	return query
}

func (s *routingConfigService) loadStep(ctx context.Context, identity domain.Identity, id string, stepIndex int) (domain.RoutingConfig, domain.CascadeItem, error) {
	current, err := s.repo.Get(ctx, id, identity.ClientID)
	if err != nil {
		return domain.RoutingConfig{}, domain.CascadeItem{}, s.mapRepositoryError(ctx, "load", err)
	}
	if stepIndex < 0 || stepIndex >= len(current.Cascade) {
		return domain.RoutingConfig{}, domain.CascadeItem{}, fmt.Errorf("%w: cascade step %d does not exist", ErrRoutingConfigInvalidInput, stepIndex)
	}
	return current, current.Cascade[stepIndex], nil
}

func (s *routingConfigService) resolveOne(ctx context.Context, identity domain.Identity, templateID string) (domain.TemplateSummary, error) {
	templateID = strings.TrimSpace(templateID)
	if templateID == "" {
		return domain.TemplateSummary{}, fmt.Errorf("%w: template id is required", ErrRoutingConfigInvalidInput)
	}
	resolved, err := s.templates.ResolveTemplates(ctx, identity.ClientID, []string{templateID})
	if err != nil {
		return domain.TemplateSummary{}, fmt.Errorf("%w: %v", ErrRoutingConfigUnavailable, err)
	}
	summary, ok := resolved[templateID]
	if !ok {
		return domain.TemplateSummary{}, fmt.Errorf("%w: template %s not found", ErrRoutingConfigInvalidInput, templateID)
	}
	return summary, nil
}

func (s *routingConfigService) persistCascade(ctx context.Context, identity domain.Identity, id string, lockNumber int64, cascade []domain.CascadeItem) (domain.RoutingConfig, error) {
	overrides := domain.RecomputeGroupOverrides(cascade)
	if overrides == nil {
		overrides = []domain.CascadeGroup{}
	}
	patch := repositories.UpdatePatch{
		Cascade:               cascade,
		CascadeGroupOverrides: overrides,
	}

	updated, err := s.repo.Update(ctx, id, identity.ClientID, lockNumber, patch, s.stamp(identity))
	if err != nil {
		return domain.RoutingConfig{}, s.mapRepositoryError(ctx, "update", err)
	}

	s.emit(ctx, events.TypeUpdated, updated)
	return updated, nil
}

func (s *routingConfigService) stamp(identity domain.Identity) repositories.AuditStamp {
	return repositories.AuditStamp{UserID: identity.UserID, At: s.now().UTC()}
}

// emit publishes the lifecycle event best effort. Publish failures are logged
// and never fail the mutation they follow.
func (s *routingConfigService) emit(ctx context.Context, eventType string, config domain.RoutingConfig) {
	if s.events == nil {
		return
	}
	_, err := s.events.Publish(ctx, events.RoutingConfigEvent{
		Type:            eventType,
		RoutingConfigID: config.ID,
		ClientID:        config.ClientID,
		CampaignID:      config.CampaignID,
		Status:          string(config.Status),
		LockNumber:      config.LockNumber,
		OccurredAt:      s.now().UTC(),
	})
	if err != nil {
		requestctx.Logger(ctx).Warn("failed to publish routing config event",
			zap.String("event_type", eventType),
			zap.String("routing_config_id", config.ID),
			zap.Error(err),
		)
	}
}

func (s *routingConfigService) mapRepositoryError(ctx context.Context, op string, err error) error {
	switch {
	case errors.Is(err, repositories.ErrRoutingConfigNotFound):
		return ErrRoutingConfigNotFound
	case errors.Is(err, repositories.ErrLockConflict):
		return ErrRoutingConfigLockConflict
	case errors.Is(err, repositories.ErrInvalidStatus):
		return ErrRoutingConfigInvalidStatus
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	}
	requestctx.Logger(ctx).Error("routing config storage failure",
		zap.String("operation", op),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %s", ErrRoutingConfigUnavailable, op)
}

func validateCascadeInput(cascade []domain.CascadeItem) error {
	for i, step := range cascade {
		if !step.Channel.Valid() {
			return fmt.Errorf("%w: step %d has unknown channel %q", ErrRoutingConfigInvalidInput, i, step.Channel)
		}
		for _, tmpl := range step.ConditionalTemplates {
			if override, ok := tmpl.(domain.LanguageOverride); ok {
				if err := validateLanguageCode(string(override.Language)); err != nil {
					return err
				}
			}
		}
	}
	if err := domain.ValidateCascade(cascade); err != nil {
		return fmt.Errorf("%w: %v", ErrRoutingConfigInvalidInput, err)
	}
	return nil
}

func validateLanguageCode(code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return fmt.Errorf("%w: language code is required", ErrRoutingConfigInvalidInput)
	}
	if _, err := language.Parse(code); err != nil {
		return fmt.Errorf("%w: invalid language code %q", ErrRoutingConfigInvalidInput, code)
	}
	return nil
}

func supportedAccessibleFormat(format domain.AccessibleFormat) bool {
	for _, supported := range domain.AccessibleFormats {
		if supported == format {
			return true
		}
	}
	return false
}

func channelTemplateType(channel domain.Channel) domain.TemplateType {
	switch channel {
	case domain.ChannelAppMessage:
		return domain.TemplateTypeAppMessage
	case domain.ChannelEmail:
		return domain.TemplateTypeEmail
	case domain.ChannelSMS:
		return domain.TemplateTypeSMS
	case domain.ChannelLetter:
		return domain.TemplateTypeLetter
	default:
		return ""
	}
}
