package domain

import (
	"fmt"
	"strings"
)

// DuplicateDiscriminatorError reports two conditional templates on the same
// step sharing a language or accessible-format key.
type DuplicateDiscriminatorError struct {
	Step          int
	Discriminator string
}

func (e *DuplicateDiscriminatorError) Error() string {
	return fmt.Sprintf("cascade step %d: duplicate conditional template for %s", e.Step, e.Discriminator)
}

// MissingTemplateReferenceError reports a conditional template without a
// template id.
type MissingTemplateReferenceError struct {
	Step int
}

func (e *MissingTemplateReferenceError) Error() string {
	return fmt.Sprintf("cascade step %d: conditional template is missing a template reference", e.Step)
}

// ValidateCascade checks the conditional-template invariants of a cascade:
// every conditional entry must reference a template, and a step may carry at
// most one entry per language and one per accessible format. The scan fails
// fast on the first violation.
func ValidateCascade(cascade []CascadeItem) error {
	for step, item := range cascade {
		seen := make(map[string]struct{}, len(item.ConditionalTemplates))
		for _, tmpl := range item.ConditionalTemplates {
			if strings.TrimSpace(tmpl.TemplateRef()) == "" {
				return &MissingTemplateReferenceError{Step: step}
			}

			var key string
			switch v := tmpl.(type) {
			case LanguageOverride:
				key = "lang:" + string(v.Language)
			case AccessibleFormatOverride:
				key = "fmt:" + string(v.Format)
			default:
				key = fmt.Sprintf("%T", tmpl)
			}

			if _, ok := seen[key]; ok {
				return &DuplicateDiscriminatorError{Step: step, Discriminator: key}
			}
			seen[key] = struct{}{}
		}
	}
	return nil
}
