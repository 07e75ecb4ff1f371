package reconciliation

import (
	"strings"

	"provender/internal/core/id"
)

// MatchOutcome is the result kind of a name match.
type MatchOutcome int

const (
	// MatchFound means exactly one candidate matched.
	MatchFound MatchOutcome = iota
	// MatchAmbiguous means several candidates matched.
	MatchAmbiguous
	// MatchNone means no candidate matched.
	MatchNone
)

// Candidate is one catalog row offered to the matcher.
type Candidate struct {
	ID   id.ID
	Name string
}

// MatchResult is the outcome of matching one name.
type MatchResult struct {
	Outcome    MatchOutcome
	ID         id.ID
	Candidates []id.ID
}

// MatchName resolves a human-entered name against catalog candidates by
// case-insensitive exact comparison. Pure function: the write phase is
// separate so matching is testable without database side effects.
func MatchName(name string, candidates []Candidate) MatchResult {
	needle := foldName(name)
	if needle == "" {
		return MatchResult{Outcome: MatchNone}
	}

	var hits []id.ID
	seen := make(map[id.ID]struct{})
	for _, c := range candidates {
		if foldName(c.Name) != needle {
			continue
		}
		// The same catalog row may be offered under several names.
		if _, dup := seen[c.ID]; dup {
			continue
		}
		seen[c.ID] = struct{}{}
		hits = append(hits, c.ID)
	}

	switch len(hits) {
	case 0:
		return MatchResult{Outcome: MatchNone}
	case 1:
		return MatchResult{Outcome: MatchFound, ID: hits[0]}
	default:
		return MatchResult{Outcome: MatchAmbiguous, Candidates: hits}
	}
}

func foldName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
