package reconciliation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"provender/internal/core/id"
)

func TestMatchName(t *testing.T) {
	alpha := id.New()
	beta := id.New()

	tests := []struct {
		name       string
		input      string
		candidates []Candidate
		outcome    MatchOutcome
		wantID     id.ID
	}{
		{
			name:       "exact match",
			input:      "Rye Loaf",
			candidates: []Candidate{{ID: alpha, Name: "Rye Loaf"}},
			outcome:    MatchFound,
			wantID:     alpha,
		},
		{
			name:       "case insensitive",
			input:      "rye loaf",
			candidates: []Candidate{{ID: alpha, Name: "RYE LOAF"}},
			outcome:    MatchFound,
			wantID:     alpha,
		},
		{
			name:       "surrounding whitespace ignored",
			input:      "  Rye Loaf ",
			candidates: []Candidate{{ID: alpha, Name: "Rye Loaf"}},
			outcome:    MatchFound,
			wantID:     alpha,
		},
		{
			name:  "two distinct rows are ambiguous",
			input: "Rye Loaf",
			candidates: []Candidate{
				{ID: alpha, Name: "Rye Loaf"},
				{ID: beta, Name: "rye loaf"},
			},
			outcome: MatchAmbiguous,
		},
		{
			name:  "same row under two names is one hit",
			input: "Rye Loaf",
			candidates: []Candidate{
				{ID: alpha, Name: "Rye Loaf"},
				{ID: alpha, Name: "RYE LOAF"},
			},
			outcome: MatchFound,
			wantID:  alpha,
		},
		{
			name:       "no candidates",
			input:      "Rye Loaf",
			candidates: nil,
			outcome:    MatchNone,
		},
		{
			name:       "no match",
			input:      "Wheat Loaf",
			candidates: []Candidate{{ID: alpha, Name: "Rye Loaf"}},
			outcome:    MatchNone,
		},
		{
			name:       "blank name never matches",
			input:      "   ",
			candidates: []Candidate{{ID: alpha, Name: ""}},
			outcome:    MatchNone,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := MatchName(tt.input, tt.candidates)
			assert.Equal(t, tt.outcome, res.Outcome)
			if tt.outcome == MatchFound {
				assert.Equal(t, tt.wantID, res.ID)
			}
			if tt.outcome == MatchAmbiguous {
				assert.Len(t, res.Candidates, 2)
			}
		})
	}
}
