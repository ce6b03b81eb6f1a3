package firestore

import (
	"slices"
	"testing"

	domain "github.com/messageplans/api/internal/domain"
)

func TestEffectiveStatuses(t *testing.T) {
	cases := []struct {
		name    string
		include []domain.Status
		exclude []domain.Status
		want    []domain.Status
	}{
		{
			name: "no filters matches everything",
			want: []domain.Status{domain.StatusDraft, domain.StatusCompleted},
		},
		{
			name:    "include narrows",
			include: []domain.Status{domain.StatusDraft},
			want:    []domain.Status{domain.StatusDraft},
		},
		{
			name:    "exclude removes",
			exclude: []domain.Status{domain.StatusCompleted},
			want:    []domain.Status{domain.StatusDraft},
		},
		{
			name:    "include and exclude combine",
			include: []domain.Status{domain.StatusDraft, domain.StatusCompleted},
			exclude: []domain.Status{domain.StatusDraft},
			want:    []domain.Status{domain.StatusCompleted},
		},
		{
			name:    "contradictory filters match nothing",
			include: []domain.Status{domain.StatusDraft},
			exclude: []domain.Status{domain.StatusDraft},
			want:    nil,
		},
		{
			name:    "duplicates collapse",
			include: []domain.Status{domain.StatusDraft, domain.StatusDraft},
			want:    []domain.Status{domain.StatusDraft},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := effectiveStatuses(tc.include, tc.exclude)
			if !slices.Equal(got, tc.want) {
				t.Fatalf("effectiveStatuses(%v, %v) = %v, want %v", tc.include, tc.exclude, got, tc.want)
			}
		})
	}
}
