package triage

import (
	"context"

	"github.com/dib506676/TicketMate/internal/domain"
)

// selectAssignee picks the ticket's assignment target:
//
//  1. the first moderator sharing at least one skill with relatedSkills,
//  2. falling back to the first admin,
//  3. falling back to nobody (nil, nil) — an unassigned ticket is not an error.
//
// Skill comparison is case-insensitive whole-token equality; "go" never
// matches "mongo". "First" means lowest user ID, the ordering ListByRole
// guarantees, so selection is deterministic when several moderators qualify.
func (s *Service) selectAssignee(ctx context.Context, relatedSkills []string) (*domain.User, error) {
	if len(relatedSkills) > 0 {
		moderators, err := s.users.ListByRole(ctx, domain.RoleModerator)
		if err != nil {
			return nil, err
		}
		for i := range moderators {
			if moderators[i].HasAnySkill(relatedSkills) {
				return &moderators[i], nil
			}
		}
	}

	admins, err := s.users.ListByRole(ctx, domain.RoleAdmin)
	if err != nil {
		return nil, err
	}
	if len(admins) > 0 {
		return &admins[0], nil
	}
	return nil, nil
}
