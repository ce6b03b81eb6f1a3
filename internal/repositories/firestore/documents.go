package firestore

import (
	"fmt"
	"strings"
	"time"

	domain "github.com/messageplans/api/internal/domain"
)

const ownerKeyPrefix = "CLIENT#"

// ownerKey derives the stored owner partition value for a client.
func ownerKey(clientID string) string {
	return ownerKeyPrefix + strings.TrimSpace(clientID)
}

// clientFromOwner strips the partition prefix, returning the bare client id.
func clientFromOwner(owner string) string {
	return strings.TrimPrefix(owner, ownerKeyPrefix)
}

type routingConfigDocument struct {
	Owner                 string                  `firestore:"owner"`
	Name                  string                  `firestore:"name"`
	CampaignID            string                  `firestore:"campaignId"`
	Status                string                  `firestore:"status"`
	Cascade               []cascadeStepDocument   `firestore:"cascade"`
	CascadeGroupOverrides []cascadeGroupDocument  `firestore:"cascadeGroupOverrides,omitempty"`
	DefaultCascadeGroup   string                  `firestore:"defaultCascadeGroup,omitempty"`
	LockNumber            int64                   `firestore:"lockNumber"`
	CreatedAt             time.Time               `firestore:"createdAt"`
	UpdatedAt             time.Time               `firestore:"updatedAt"`
	CreatedBy             string                  `firestore:"createdBy"`
	UpdatedBy             string                  `firestore:"updatedBy"`
}

type cascadeStepDocument struct {
	Channel              string                        `firestore:"channel"`
	ChannelType          string                        `firestore:"channelType"`
	CascadeGroups        []string                      `firestore:"cascadeGroups,omitempty"`
	DefaultTemplateID    string                        `firestore:"defaultTemplateId,omitempty"`
	SupplierReferences   map[string]string             `firestore:"supplierReferences,omitempty"`
	ConditionalTemplates []conditionalTemplateDocument `firestore:"conditionalTemplates,omitempty"`
}

// conditionalTemplateDocument stores the tagged override union. Exactly one of
// Language and AccessibleFormat carries a value.
type conditionalTemplateDocument struct {
	Language           string            `firestore:"language,omitempty"`
	AccessibleFormat   string            `firestore:"accessibleFormat,omitempty"`
	TemplateID         string            `firestore:"templateId"`
	SupplierReferences map[string]string `firestore:"supplierReferences,omitempty"`
}

type cascadeGroupDocument struct {
	Name              string   `firestore:"name"`
	AccessibleFormats []string `firestore:"accessibleFormats,omitempty"`
	Languages         []string `firestore:"languages,omitempty"`
}

func encodeRoutingConfig(config domain.RoutingConfig) routingConfigDocument {
	doc := routingConfigDocument{
		Owner:               ownerKey(config.ClientID),
		Name:                config.Name,
		CampaignID:          config.CampaignID,
		Status:              string(config.Status),
		Cascade:             encodeCascade(config.Cascade),
		DefaultCascadeGroup: string(config.DefaultCascadeGroup),
		LockNumber:          config.LockNumber,
		CreatedAt:           config.CreatedAt.UTC(),
		UpdatedAt:           config.UpdatedAt.UTC(),
		CreatedBy:           config.CreatedBy,
		UpdatedBy:           config.UpdatedBy,
	}
	doc.CascadeGroupOverrides = encodeCascadeGroups(config.CascadeGroupOverrides)
	return doc
}

func encodeCascade(cascade []domain.CascadeItem) []cascadeStepDocument {
	steps := make([]cascadeStepDocument, 0, len(cascade))
	for _, item := range cascade {
		step := cascadeStepDocument{
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
		steps = append(steps, step)
	}
	return steps
}

func encodeConditionalTemplate(tmpl domain.ConditionalTemplate) conditionalTemplateDocument {
	switch v := tmpl.(type) {
	case domain.LanguageOverride:
		return conditionalTemplateDocument{
			Language:           string(v.Language),
			TemplateID:         v.TemplateID,
			SupplierReferences: v.SupplierReferences,
		}
	case domain.AccessibleFormatOverride:
		return conditionalTemplateDocument{
			AccessibleFormat:   string(v.Format),
			TemplateID:         v.TemplateID,
			SupplierReferences: v.SupplierReferences,
		}
	default:
		return conditionalTemplateDocument{TemplateID: tmpl.TemplateRef()}
	}
}

func encodeCascadeGroups(groups []domain.CascadeGroup) []cascadeGroupDocument {
	if len(groups) == 0 {
		return nil
	}
	out := make([]cascadeGroupDocument, 0, len(groups))
	for _, group := range groups {
		doc := cascadeGroupDocument{Name: string(group.Name)}
		for _, format := range group.AccessibleFormats {
			doc.AccessibleFormats = append(doc.AccessibleFormats, string(format))
		}
		for _, lang := range group.Languages {
			doc.Languages = append(doc.Languages, string(lang))
		}
		out = append(out, doc)
	}
	return out
}

func (d routingConfigDocument) toDomain(id string) (domain.RoutingConfig, error) {
	status := domain.Status(d.Status)
	if !status.Valid() {
		return domain.RoutingConfig{}, fmt.Errorf("routing config %s: unknown status %q", id, d.Status)
	}

	cascade := make([]domain.CascadeItem, 0, len(d.Cascade))
	for i, step := range d.Cascade {
		item, err := step.toDomain()
		if err != nil {
			return domain.RoutingConfig{}, fmt.Errorf("routing config %s: cascade step %d: %w", id, i, err)
		}
		cascade = append(cascade, item)
	}

	config := domain.RoutingConfig{
		ID:                  id,
		ClientID:            clientFromOwner(d.Owner),
		Name:                d.Name,
		CampaignID:          d.CampaignID,
		Status:              status,
		Cascade:             cascade,
		DefaultCascadeGroup: domain.CascadeGroupName(d.DefaultCascadeGroup),
		LockNumber:          d.LockNumber,
		CreatedAt:           d.CreatedAt,
		UpdatedAt:           d.UpdatedAt,
		CreatedBy:           d.CreatedBy,
		UpdatedBy:           d.UpdatedBy,
	}
	for _, group := range d.CascadeGroupOverrides {
		config.CascadeGroupOverrides = append(config.CascadeGroupOverrides, group.toDomain())
	}
	return config, nil
}

func (d cascadeStepDocument) toDomain() (domain.CascadeItem, error) {
	item := domain.CascadeItem{
		Channel:            domain.Channel(d.Channel),
		ChannelType:        domain.ChannelType(d.ChannelType),
		DefaultTemplateID:  d.DefaultTemplateID,
		SupplierReferences: d.SupplierReferences,
	}
	for _, group := range d.CascadeGroups {
		item.CascadeGroups = append(item.CascadeGroups, domain.CascadeGroupName(group))
	}
	for i, tmpl := range d.ConditionalTemplates {
		decoded, err := tmpl.toDomain()
		if err != nil {
			return domain.CascadeItem{}, fmt.Errorf("conditional template %d: %w", i, err)
		}
		item.ConditionalTemplates = append(item.ConditionalTemplates, decoded)
	}
	return item, nil
}

func (d conditionalTemplateDocument) toDomain() (domain.ConditionalTemplate, error) {
	language := strings.TrimSpace(d.Language)
	format := strings.TrimSpace(d.AccessibleFormat)
	switch {
	case language != "" && format != "":
		return nil, fmt.Errorf("both language %q and accessible format %q set", language, format)
	case language != "":
		return domain.LanguageOverride{
			Language:           domain.Language(language),
			TemplateID:         d.TemplateID,
			SupplierReferences: d.SupplierReferences,
		}, nil
	case format != "":
		return domain.AccessibleFormatOverride{
			Format:             domain.AccessibleFormat(format),
			TemplateID:         d.TemplateID,
			SupplierReferences: d.SupplierReferences,
		}, nil
	default:
		return nil, fmt.Errorf("neither language nor accessible format set")
	}
}

func (d cascadeGroupDocument) toDomain() domain.CascadeGroup {
	group := domain.CascadeGroup{Name: domain.CascadeGroupName(d.Name)}
	for _, format := range d.AccessibleFormats {
		group.AccessibleFormats = append(group.AccessibleFormats, domain.AccessibleFormat(format))
	}
	for _, lang := range d.Languages {
		group.Languages = append(group.Languages, domain.Language(lang))
	}
	return group
}
