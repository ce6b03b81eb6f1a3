package domain

import "strings"

// The resolver functions are pure projections from a cascade step and a
// template lookup table to display-ready values. They are total: a missing
// default template or an id absent from the lookup is a normal outcome, never
// an error. Lookup misses mean "not yet available" and are silently dropped.

// ResolvedAccessibleTemplate pairs an accessible format with its resolved template.
type ResolvedAccessibleTemplate struct {
	Format   AccessibleFormat
	Template TemplateSummary
}

// DefaultTemplate resolves the step's default template against the lookup
// table. The second return is false when the step has no default template or
// the lookup does not contain it.
func DefaultTemplate(step CascadeItem, lookup map[string]TemplateSummary) (TemplateSummary, bool) {
	id := strings.TrimSpace(step.DefaultTemplateID)
	if id == "" {
		return TemplateSummary{}, false
	}
	summary, ok := lookup[id]
	return summary, ok
}

// AccessibleTemplatesForStep resolves the step's accessible-format overrides
// in their original list order. Unresolved entries are dropped.
func AccessibleTemplatesForStep(step CascadeItem, lookup map[string]TemplateSummary) []ResolvedAccessibleTemplate {
	var resolved []ResolvedAccessibleTemplate
	for _, tmpl := range step.ConditionalTemplates {
		override, ok := tmpl.(AccessibleFormatOverride)
		if !ok {
			continue
		}
		summary, ok := lookup[override.TemplateID]
		if !ok {
			continue
		}
		resolved = append(resolved, ResolvedAccessibleTemplate{
			Format:   override.Format,
			Template: summary,
		})
	}
	return resolved
}

// LanguageTemplatesForStep resolves the step's language overrides in their
// original list order. Unresolved entries are dropped.
func LanguageTemplatesForStep(step CascadeItem, lookup map[string]TemplateSummary) []TemplateSummary {
	var resolved []TemplateSummary
	for _, tmpl := range step.ConditionalTemplates {
		override, ok := tmpl.(LanguageOverride)
		if !ok {
			continue
		}
		summary, ok := lookup[override.TemplateID]
		if !ok {
			continue
		}
		resolved = append(resolved, summary)
	}
	return resolved
}
