package domain

import (
	"fmt"
	"slices"
	"strings"
)

// The editor functions compute the next cascade state for a user's template
// selection. They never touch storage and never mutate their inputs.

// LanguageSelection is one entry of a language-template submission.
type LanguageSelection struct {
	TemplateID string
	Language   Language
}

// DuplicateLanguageError reports a language selected more than once in a
// single submission.
type DuplicateLanguageError struct {
	Language Language
}

func (e *DuplicateLanguageError) Error() string {
	return fmt.Sprintf("language %q is selected more than once", e.Language)
}

// DetectDuplicateLanguages fails when the same language code appears more than
// once in one submission. It runs before ReplaceLanguageTemplates so that a
// duplicate never reaches the cascade.
func DetectDuplicateLanguages(selections []LanguageSelection) error {
	seen := make(map[Language]struct{}, len(selections))
	for _, sel := range selections {
		if _, ok := seen[sel.Language]; ok {
			return &DuplicateLanguageError{Language: sel.Language}
		}
		seen[sel.Language] = struct{}{}
	}
	return nil
}

// ReplaceLanguageTemplates swaps the step's language overrides for the given
// templates. Every existing language entry is removed, non-language entries
// are preserved in their original relative order, and one new language entry
// is appended per selected template. Selecting zero templates simply clears
// all language overrides. Each template must carry a language; enforcing that
// is the caller's input validation.
func ReplaceLanguageTemplates(step CascadeItem, templates []TemplateSummary) CascadeItem {
	out := step.Clone()

	var kept []ConditionalTemplate
	for _, tmpl := range out.ConditionalTemplates {
		if _, isLanguage := tmpl.(LanguageOverride); isLanguage {
			continue
		}
		kept = append(kept, tmpl)
	}

	for _, tmpl := range templates {
		kept = append(kept, LanguageOverride{
			Language:           tmpl.Language,
			TemplateID:         tmpl.ID,
			SupplierReferences: cloneStringMap(tmpl.SupplierReferences),
		})
	}

	out.ConditionalTemplates = kept
	return out
}

// UpsertAccessibleFormatTemplate sets the step's override for the template's
// accessible format, replacing an existing entry for the same format in place
// or appending a new one.
func UpsertAccessibleFormatTemplate(step CascadeItem, template TemplateSummary) CascadeItem {
	out := step.Clone()

	override := AccessibleFormatOverride{
		Format:             template.AccessibleFormat,
		TemplateID:         template.ID,
		SupplierReferences: cloneStringMap(template.SupplierReferences),
	}

	replaced := false
	for i, tmpl := range out.ConditionalTemplates {
		existing, ok := tmpl.(AccessibleFormatOverride)
		if ok && existing.Format == override.Format {
			out.ConditionalTemplates[i] = override
			replaced = true
			break
		}
	}
	if !replaced {
		out.ConditionalTemplates = append(out.ConditionalTemplates, override)
	}
	return out
}

// WithDefaultTemplate assigns the step's default template, denormalising the
// template's supplier references onto the step.
func WithDefaultTemplate(step CascadeItem, template TemplateSummary) CascadeItem {
	out := step.Clone()
	out.DefaultTemplateID = template.ID
	out.SupplierReferences = cloneStringMap(template.SupplierReferences)
	return out
}

// RemoveTemplates clears every reference to the given template ids from the
// cascade: matching default templates become unset and matching conditional
// entries are dropped. Each step's cascade groups are rebuilt to reflect its
// remaining overrides.
func RemoveTemplates(cascade []CascadeItem, templateIDs []string) []CascadeItem {
	out := CloneCascade(cascade)
	for i, item := range out {
		if item.DefaultTemplateID != "" && slices.Contains(templateIDs, item.DefaultTemplateID) {
			item.DefaultTemplateID = ""
			item.SupplierReferences = nil
		}

		var kept []ConditionalTemplate
		for _, tmpl := range item.ConditionalTemplates {
			if slices.Contains(templateIDs, tmpl.TemplateRef()) {
				continue
			}
			kept = append(kept, tmpl)
		}
		item.ConditionalTemplates = kept
		item.CascadeGroups = StepCascadeGroups(item)
		out[i] = item
	}
	return out
}

// StepCascadeGroups derives the group names a step participates in from its
// conditional templates. Every step belongs to the standard group.
func StepCascadeGroups(step CascadeItem) []CascadeGroupName {
	groups := []CascadeGroupName{CascadeGroupStandard}

	hasAccessible := false
	hasLanguage := false
	for _, tmpl := range step.ConditionalTemplates {
		switch tmpl.(type) {
		case AccessibleFormatOverride:
			hasAccessible = true
		case LanguageOverride:
			hasLanguage = true
		}
	}

	if hasAccessible {
		groups = append(groups, CascadeGroupAccessible)
	}
	if hasLanguage {
		groups = append(groups, CascadeGroupTranslations)
	}
	return groups
}

// RecomputeGroupOverrides derives the active group set for a cascade: the
// union of every step's listed groups plus, for steps carrying accessible or
// language overrides, the corresponding synthesized markers. Groups appear in
// first-seen order across steps in cascade order, de-duplicated, and the
// accessible and translations groups record which codes activated them.
func RecomputeGroupOverrides(cascade []CascadeItem) []CascadeGroup {
	var order []CascadeGroupName
	byName := make(map[CascadeGroupName]*CascadeGroup)

	ensure := func(name CascadeGroupName) *CascadeGroup {
		if group, ok := byName[name]; ok {
			return group
		}
		group := &CascadeGroup{Name: name}
		byName[name] = group
		order = append(order, name)
		return group
	}

	for _, item := range cascade {
		for _, name := range item.CascadeGroups {
			ensure(name)
		}

		for _, tmpl := range item.ConditionalTemplates {
			switch v := tmpl.(type) {
			case AccessibleFormatOverride:
				group := ensure(CascadeGroupAccessible)
				if !slices.Contains(group.AccessibleFormats, v.Format) {
					group.AccessibleFormats = append(group.AccessibleFormats, v.Format)
				}
			case LanguageOverride:
				group := ensure(CascadeGroupTranslations)
				if !slices.Contains(group.Languages, v.Language) {
					group.Languages = append(group.Languages, v.Language)
				}
			}
		}
	}

	overrides := make([]CascadeGroup, 0, len(order))
	for _, name := range order {
		overrides = append(overrides, *byName[name])
	}
	return overrides
}

func cloneStringMap(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if key := strings.TrimSpace(k); key != "" {
			out[key] = v
		}
	}
	return out
}
