package domain

import (
	"maps"
	"slices"
	"strings"
	"time"
)

// Status describes the lifecycle state of a routing configuration.
type Status string

const (
	// StatusDraft indicates the configuration is still being edited.
	StatusDraft Status = "DRAFT"
	// StatusCompleted indicates the configuration has moved to production.
	StatusCompleted Status = "COMPLETED"
)

// Statuses lists every recognised routing configuration status.
var Statuses = []Status{StatusDraft, StatusCompleted}

// Valid reports whether the status is one of the recognised values.
func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Channel enumerates the delivery channels a cascade step may target.
type Channel string

const (
	// ChannelAppMessage delivers via the patient-facing app inbox.
	ChannelAppMessage Channel = "APP_MESSAGE"
	// ChannelEmail delivers via email.
	ChannelEmail Channel = "EMAIL"
	// ChannelSMS delivers via SMS.
	ChannelSMS Channel = "SMS"
	// ChannelLetter delivers via printed letter.
	ChannelLetter Channel = "LETTER"
)

// Channels lists every recognised delivery channel.
var Channels = []Channel{ChannelAppMessage, ChannelEmail, ChannelSMS, ChannelLetter}

// Valid reports whether the channel is one of the recognised values.
func (c Channel) Valid() bool {
	return slices.Contains(Channels, c)
}

// ChannelType marks the role a step plays within its cascade.
type ChannelType string

const (
	// ChannelTypePrimary marks the standard fallback role.
	ChannelTypePrimary ChannelType = "primary"
	// ChannelTypeSecondary is reserved for auxiliary sends.
	ChannelTypeSecondary ChannelType = "secondary"
)

// CascadeGroupName names an optional variant class a step participates in.
type CascadeGroupName string

const (
	// CascadeGroupStandard is the default group every step belongs to.
	CascadeGroupStandard CascadeGroupName = "standard"
	// CascadeGroupAccessible marks steps carrying accessible-format overrides.
	CascadeGroupAccessible CascadeGroupName = "accessible"
	// CascadeGroupTranslations marks steps carrying language overrides.
	CascadeGroupTranslations CascadeGroupName = "translations"
)

// AccessibleFormat identifies an accessible letter variant code.
type AccessibleFormat string

const (
	// FormatLargePrint is the large print letter variant.
	FormatLargePrint AccessibleFormat = "x1"
)

// AccessibleFormats lists the formats supported for routing overrides.
var AccessibleFormats = []AccessibleFormat{FormatLargePrint}

// Language is an ISO-like language code, e.g. "fr" or "pl".
type Language string

// ConditionalTemplate is a per-step template override selected by exactly one
// discriminator: a language or an accessible format. The two concrete variants
// are LanguageOverride and AccessibleFormatOverride.
type ConditionalTemplate interface {
	// TemplateRef returns the referenced template id.
	TemplateRef() string

	conditionalTemplate()
}

// LanguageOverride selects an alternative template for a language.
type LanguageOverride struct {
	Language           Language
	TemplateID         string
	SupplierReferences map[string]string
}

func (LanguageOverride) conditionalTemplate() {}

// TemplateRef returns the referenced template id.
func (o LanguageOverride) TemplateRef() string { return o.TemplateID }

// AccessibleFormatOverride selects an alternative template for an accessible format.
type AccessibleFormatOverride struct {
	Format             AccessibleFormat
	TemplateID         string
	SupplierReferences map[string]string
}

func (AccessibleFormatOverride) conditionalTemplate() {}

// TemplateRef returns the referenced template id.
func (o AccessibleFormatOverride) TemplateRef() string { return o.TemplateID }

// CascadeItem is one channel step in a cascade. Order within the cascade is
// fallback priority: earlier steps are attempted first.
type CascadeItem struct {
	Channel       Channel
	ChannelType   ChannelType
	CascadeGroups []CascadeGroupName

	// DefaultTemplateID references the template used when no conditional
	// override matches. Empty means the step is not yet configured.
	DefaultTemplateID  string
	SupplierReferences map[string]string

	ConditionalTemplates []ConditionalTemplate
}

// Clone returns a deep copy of the cascade item.
func (i CascadeItem) Clone() CascadeItem {
	out := i
	out.CascadeGroups = slices.Clone(i.CascadeGroups)
	out.SupplierReferences = maps.Clone(i.SupplierReferences)
	out.ConditionalTemplates = cloneConditionalTemplates(i.ConditionalTemplates)
	return out
}

func cloneConditionalTemplates(templates []ConditionalTemplate) []ConditionalTemplate {
	if templates == nil {
		return nil
	}
	out := make([]ConditionalTemplate, 0, len(templates))
	for _, tmpl := range templates {
		switch v := tmpl.(type) {
		case LanguageOverride:
			v.SupplierReferences = maps.Clone(v.SupplierReferences)
			out = append(out, v)
		case AccessibleFormatOverride:
			v.SupplierReferences = maps.Clone(v.SupplierReferences)
			out = append(out, v)
		default:
			out = append(out, tmpl)
		}
	}
	return out
}

// CloneCascade returns a deep copy of the cascade.
func CloneCascade(cascade []CascadeItem) []CascadeItem {
	if cascade == nil {
		return nil
	}
	out := make([]CascadeItem, 0, len(cascade))
	for _, item := range cascade {
		out = append(out, item.Clone())
	}
	return out
}

// CascadeGroup describes one active variant class for display and audit. The
// accessible and translations groups record which codes activated them.
type CascadeGroup struct {
	Name              CascadeGroupName
	AccessibleFormats []AccessibleFormat
	Languages         []Language
}

// RoutingConfig is an ordered, multi-channel notification delivery cascade
// with a draft/production lifecycle.
type RoutingConfig struct {
	ID         string
	ClientID   string
	Name       string
	CampaignID string
	Status     Status

	Cascade               []CascadeItem
	CascadeGroupOverrides []CascadeGroup
	DefaultCascadeGroup   CascadeGroupName

	// LockNumber is the optimistic-concurrency token. Every successful
	// mutation increments it by one.
	LockNumber int64

	CreatedAt time.Time
	UpdatedAt time.Time
	CreatedBy string
	UpdatedBy string
}

// RoutingConfigReference is a lightweight pointer to a routing configuration.
type RoutingConfigReference struct {
	ID   string
	Name string
}

// Identity carries the caller identity established by an external auth
// boundary. It is trusted verbatim.
type Identity struct {
	UserID   string
	ClientID string
}

// Valid reports whether both identifiers are present.
func (id Identity) Valid() bool {
	return strings.TrimSpace(id.UserID) != "" && strings.TrimSpace(id.ClientID) != ""
}

// TemplateType enumerates the kinds of message template.
type TemplateType string

const (
	// TemplateTypeAppMessage is an app inbox template.
	TemplateTypeAppMessage TemplateType = "APP_MESSAGE"
	// TemplateTypeEmail is an email template.
	TemplateTypeEmail TemplateType = "EMAIL"
	// TemplateTypeSMS is an SMS template.
	TemplateTypeSMS TemplateType = "SMS"
	// TemplateTypeLetter is a letter template.
	TemplateTypeLetter TemplateType = "LETTER"
)

// TemplateSummary is the display projection of a template reference, produced
// by the external template lookup collaborator.
type TemplateSummary struct {
	ID                 string
	Name               string
	Type               TemplateType
	Language           Language
	AccessibleFormat   AccessibleFormat
	SupplierReferences map[string]string
}

// TemplateIDs collects every template id referenced by the configuration's
// cascade, default and conditional alike, de-duplicated in first-seen order.
func TemplateIDs(config RoutingConfig) []string {
	var ids []string
	seen := make(map[string]struct{})

	add := func(id string) {
		id = strings.TrimSpace(id)
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	for _, item := range config.Cascade {
		add(item.DefaultTemplateID)
		for _, tmpl := range item.ConditionalTemplates {
			add(tmpl.TemplateRef())
		}
	}
	return ids
}

// StepsMissingDefaultTemplate returns the indices of cascade steps that have
// no default template assigned. Conditional overrides are optional and not
// considered.
func StepsMissingDefaultTemplate(config RoutingConfig) []int {
	var missing []int
	for i, item := range config.Cascade {
		if strings.TrimSpace(item.DefaultTemplateID) == "" {
			missing = append(missing, i)
		}
	}
	return missing
}
