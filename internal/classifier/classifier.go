// Package classifier defines the AI classification collaborator. The triage
// workflow treats any classifier failure as "no suggestion" and continues on
// its degraded path, so implementations carry no retry contract of their own.
package classifier

import (
	"context"

	"github.com/dib506676/TicketMate/internal/domain"
)

// Suggestion is the classifier's structured output. Fields arrive as loose
// strings; the workflow normalizes them before persisting onto the ticket.
type Suggestion struct {
	Priority      string   `json:"priority"`
	Status        string   `json:"status"`
	HelpfulNotes  string   `json:"helpfulNotes"`
	RelatedSkills []string `json:"relatedSkills"`
}

// Classifier produces a suggestion for a ticket, or nothing.
type Classifier interface {
	Classify(ctx context.Context, ticket *domain.Ticket) (*Suggestion, error)
}

// Disabled is the classifier used when no endpoint is configured. It returns
// no suggestion, which sends every run down the degraded-success path.
type Disabled struct{}

// Classify always reports no suggestion.
func (Disabled) Classify(context.Context, *domain.Ticket) (*Suggestion, error) {
	return nil, nil
}
