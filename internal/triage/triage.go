// Package triage implements the event-triggered workflows that take a newly
// created ticket through classification, assignment, and notification. Steps
// execute through the workflow framework, so a re-delivered event resumes
// after the last completed step instead of repeating its side effects.
package triage

import (
	"context"

	"go.uber.org/zap"

	"github.com/dib506676/TicketMate/internal/bus"
	"github.com/dib506676/TicketMate/internal/classifier"
	"github.com/dib506676/TicketMate/internal/domain"
	"github.com/dib506676/TicketMate/internal/events"
	"github.com/dib506676/TicketMate/internal/notifier"
	"github.com/dib506676/TicketMate/internal/repository"
	"github.com/dib506676/TicketMate/internal/workflow"
)

// Workflow names as registered on the bus.
const (
	TicketCreatedWorkflowName = "on-ticket-created"
	UserSignedUpWorkflowName  = "on-user-signup"
)

// Service bundles the collaborators both workflows run against.
type Service struct {
	tickets     repository.TicketRepository
	users       repository.UserRepository
	classifier  classifier.Classifier
	notifier    notifier.Notifier
	logger      *zap.Logger
	frontendURL string
}

// Dependencies bundles collaborators for the service.
type Dependencies struct {
	TicketRepo  repository.TicketRepository
	UserRepo    repository.UserRepository
	Classifier  classifier.Classifier
	Notifier    notifier.Notifier
	Logger      *zap.Logger
	FrontendURL string
}

// NewService creates the service.
func NewService(deps Dependencies) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		tickets:     deps.TicketRepo,
		users:       deps.UserRepo,
		classifier:  deps.Classifier,
		notifier:    deps.Notifier,
		logger:      logger,
		frontendURL: deps.FrontendURL,
	}
}

// TicketCreatedWorkflow returns the bus registration for the triage workflow.
func (s *Service) TicketCreatedWorkflow(maxRetries int) bus.Workflow {
	return bus.Workflow{
		Name:       TicketCreatedWorkflowName,
		Event:      events.EventTicketCreated,
		MaxRetries: maxRetries,
		Handler:    s.handleTicketCreated,
	}
}

func (s *Service) handleTicketCreated(ctx context.Context, run *workflow.Run, event events.Event) error {
	var payload events.TicketCreatedPayload
	if err := event.DecodePayload(&payload); err != nil {
		return workflow.WrapNonRetriable("malformed ticket.created payload", err)
	}

	ticket, err := workflow.RunStep(ctx, run, "fetch-ticket", func(ctx context.Context) (*domain.Ticket, error) {
		t, err := s.tickets.GetByID(ctx, payload.TicketID)
		if repository.IsNotFound(err) {
			// the ticket existed at publish time but vanished; retrying
			// cannot bring it back
			return nil, workflow.WrapNonRetriable("ticket not found", err)
		}
		return t, err
	})
	if err != nil {
		return err
	}

	if err := workflow.RunEffect(ctx, run, "update-ticket-status", func(ctx context.Context) error {
		status := domain.TicketStatusTodo
		return s.updateTicket(ctx, ticket.ID, repository.TicketUpdate{Status: &status})
	}); err != nil {
		return err
	}

	// The classifier call itself is not memoized: a re-delivered event that
	// has not yet persisted a suggestion asks again. Only the merge onto the
	// ticket is recorded in the step log.
	suggestion := s.classify(ctx, run, ticket)

	relatedSkills, err := workflow.RunStep(ctx, run, "ai-processing", func(ctx context.Context) ([]string, error) {
		if suggestion == nil {
			return []string{}, nil
		}
		priority := domain.NormalizePriority(suggestion.Priority)
		status := domain.NormalizeStatus(suggestion.Status)
		skills := suggestion.RelatedSkills
		if skills == nil {
			skills = []string{}
		}
		notes := suggestion.HelpfulNotes
		update := repository.TicketUpdate{
			Priority:      &priority,
			Status:        &status,
			HelpfulNotes:  &notes,
			RelatedSkills: skills,
		}
		if err := s.updateTicket(ctx, ticket.ID, update); err != nil {
			return nil, err
		}
		return skills, nil
	})
	if err != nil {
		return err
	}

	moderator, err := workflow.RunStep(ctx, run, "assign-moderator", func(ctx context.Context) (*domain.User, error) {
		assignee, err := s.selectAssignee(ctx, relatedSkills)
		if err != nil {
			return nil, err
		}
		if assignee == nil {
			// nobody qualified; the ticket stays unassigned
			return nil, nil
		}
		if err := s.updateTicket(ctx, ticket.ID, repository.TicketUpdate{AssignedTo: &assignee.ID}); err != nil {
			return nil, err
		}
		return assignee, nil
	})
	if err != nil {
		return err
	}

	return workflow.RunEffect(ctx, run, "send-email-notification", func(ctx context.Context) error {
		if moderator == nil {
			return nil
		}
		// re-read so the mail reflects the cumulative state written by the
		// earlier steps
		final, err := s.tickets.GetByID(ctx, ticket.ID)
		if repository.IsNotFound(err) {
			return workflow.WrapNonRetriable("ticket vanished before notification", err)
		}
		if err != nil {
			return err
		}
		subject, body := assignmentMessage(final, moderator, s.frontendURL)
		if err := s.notifier.Send(ctx, moderator.Email, subject, body); err != nil {
			run.Logger().Warn("assignment notification failed",
				zap.String("to", moderator.Email), zap.Error(err))
		}
		return nil
	})
}

// classify asks the external classifier and absorbs any failure into the
// degraded path.
func (s *Service) classify(ctx context.Context, run *workflow.Run, ticket *domain.Ticket) *classifier.Suggestion {
	suggestion, err := s.classifier.Classify(ctx, ticket)
	if err != nil {
		run.Logger().Warn("classification failed, continuing without suggestion", zap.Error(err))
		return nil
	}
	return suggestion
}

// updateTicket maps a vanished ticket to a permanent failure; retrying a
// write against a deleted row cannot succeed.
func (s *Service) updateTicket(ctx context.Context, id string, update repository.TicketUpdate) error {
	err := s.tickets.Update(ctx, id, update)
	if repository.IsNotFound(err) {
		return workflow.WrapNonRetriable("ticket vanished mid-run", err)
	}
	return err
}
