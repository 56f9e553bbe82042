package triage

import (
	"context"

	"go.uber.org/zap"

	"github.com/dib506676/TicketMate/internal/bus"
	"github.com/dib506676/TicketMate/internal/domain"
	"github.com/dib506676/TicketMate/internal/events"
	"github.com/dib506676/TicketMate/internal/repository"
	"github.com/dib506676/TicketMate/internal/workflow"
)

// UserSignedUpWorkflow returns the bus registration for the welcome-mail
// workflow. It shares the step framework with triage but has no branching.
func (s *Service) UserSignedUpWorkflow(maxRetries int) bus.Workflow {
	return bus.Workflow{
		Name:       UserSignedUpWorkflowName,
		Event:      events.EventUserSignedUp,
		MaxRetries: maxRetries,
		Handler:    s.handleUserSignedUp,
	}
}

func (s *Service) handleUserSignedUp(ctx context.Context, run *workflow.Run, event events.Event) error {
	var payload events.UserSignedUpPayload
	if err := event.DecodePayload(&payload); err != nil {
		return workflow.WrapNonRetriable("malformed user.signedup payload", err)
	}

	user, err := workflow.RunStep(ctx, run, "get-user-email", func(ctx context.Context) (*domain.User, error) {
		u, err := s.users.GetByEmail(ctx, payload.Email)
		if repository.IsNotFound(err) {
			return nil, workflow.WrapNonRetriable("user no longer exists", err)
		}
		return u, err
	})
	if err != nil {
		return err
	}

	return workflow.RunEffect(ctx, run, "send-welcome-email", func(ctx context.Context) error {
		subject, body := welcomeMessage(user, s.frontendURL)
		if err := s.notifier.Send(ctx, user.Email, subject, body); err != nil {
			run.Logger().Warn("welcome notification failed",
				zap.String("to", user.Email), zap.Error(err))
		}
		return nil
	})
}
