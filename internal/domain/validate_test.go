package domain

import (
	"errors"
	"testing"
)

func TestValidateCascadeAcceptsDistinctDiscriminators(t *testing.T) {
	cascade := []CascadeItem{
		{
			Channel:     ChannelLetter,
			ChannelType: ChannelTypePrimary,
			ConditionalTemplates: []ConditionalTemplate{
				LanguageOverride{Language: "fr", TemplateID: "tmpl-fr"},
				LanguageOverride{Language: "pl", TemplateID: "tmpl-pl"},
				AccessibleFormatOverride{Format: FormatLargePrint, TemplateID: "tmpl-lp"},
			},
		},
	}

	if err := ValidateCascade(cascade); err != nil {
		t.Fatalf("expected valid cascade, got %v", err)
	}
}

func TestValidateCascadeRejectsDuplicateLanguage(t *testing.T) {
	cascade := []CascadeItem{
		{
			Channel: ChannelLetter,
			ConditionalTemplates: []ConditionalTemplate{
				LanguageOverride{Language: "fr", TemplateID: "a"},
				LanguageOverride{Language: "fr", TemplateID: "b"},
			},
		},
	}

	err := ValidateCascade(cascade)
	var dup *DuplicateDiscriminatorError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateDiscriminatorError, got %v", err)
	}
	if dup.Step != 0 {
		t.Fatalf("expected step 0, got %d", dup.Step)
	}
	if dup.Discriminator != "lang:fr" {
		t.Fatalf("expected discriminator lang:fr, got %s", dup.Discriminator)
	}
}

func TestValidateCascadeRejectsDuplicateAccessibleFormat(t *testing.T) {
	cascade := []CascadeItem{
		{Channel: ChannelEmail},
		{
			Channel: ChannelLetter,
			ConditionalTemplates: []ConditionalTemplate{
				AccessibleFormatOverride{Format: FormatLargePrint, TemplateID: "a"},
				AccessibleFormatOverride{Format: FormatLargePrint, TemplateID: "b"},
			},
		},
	}

	err := ValidateCascade(cascade)
	var dup *DuplicateDiscriminatorError
	if !errors.As(err, &dup) {
		t.Fatalf("expected DuplicateDiscriminatorError, got %v", err)
	}
	if dup.Step != 1 {
		t.Fatalf("expected step 1, got %d", dup.Step)
	}
}

func TestValidateCascadeAllowsSameLanguageOnDifferentSteps(t *testing.T) {
	cascade := []CascadeItem{
		{
			Channel: ChannelEmail,
			ConditionalTemplates: []ConditionalTemplate{
				LanguageOverride{Language: "fr", TemplateID: "a"},
			},
		},
		{
			Channel: ChannelLetter,
			ConditionalTemplates: []ConditionalTemplate{
				LanguageOverride{Language: "fr", TemplateID: "b"},
			},
		},
	}

	if err := ValidateCascade(cascade); err != nil {
		t.Fatalf("expected valid cascade, got %v", err)
	}
}

func TestValidateCascadeRejectsMissingTemplateReference(t *testing.T) {
	cascade := []CascadeItem{
		{
			Channel: ChannelLetter,
			ConditionalTemplates: []ConditionalTemplate{
				LanguageOverride{Language: "fr"},
			},
		},
	}

	err := ValidateCascade(cascade)
	var missing *MissingTemplateReferenceError
	if !errors.As(err, &missing) {
		t.Fatalf("expected MissingTemplateReferenceError, got %v", err)
	}
}

func TestTemplateIDsDeduplicatesInFirstSeenOrder(t *testing.T) {
	config := RoutingConfig{
		Cascade: []CascadeItem{
			{
				DefaultTemplateID: "a",
				ConditionalTemplates: []ConditionalTemplate{
					LanguageOverride{Language: "fr", TemplateID: "b"},
				},
			},
			{
				DefaultTemplateID: "b",
				ConditionalTemplates: []ConditionalTemplate{
					AccessibleFormatOverride{Format: FormatLargePrint, TemplateID: "c"},
				},
			},
		},
	}

	ids := TemplateIDs(config)
	want := []string{"a", "b", "c"}
	if len(ids) != len(want) {
		t.Fatalf("expected %d ids, got %d: %v", len(want), len(ids), ids)
	}
	for i, id := range want {
		if ids[i] != id {
			t.Fatalf("expected id %s at position %d, got %s", id, i, ids[i])
		}
	}
}

func TestStepsMissingDefaultTemplate(t *testing.T) {
	config := RoutingConfig{
		Cascade: []CascadeItem{
			{DefaultTemplateID: "a"},
			{},
			{DefaultTemplateID: "  "},
		},
	}

	missing := StepsMissingDefaultTemplate(config)
	if len(missing) != 2 || missing[0] != 1 || missing[1] != 2 {
		t.Fatalf("expected steps [1 2] missing, got %v", missing)
	}
}
