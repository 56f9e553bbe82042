package triage

import (
	"fmt"
	"strings"

	"github.com/dib506676/TicketMate/internal/domain"
)

// assignmentMessage composes the plain-text notification for a freshly
// assigned ticket.
func assignmentMessage(ticket *domain.Ticket, assignee *domain.User, frontendURL string) (subject, body string) {
	subject = fmt.Sprintf("New Ticket Assigned: %s", ticket.Title)

	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n", assignee.Email)
	b.WriteString("A new ticket has been assigned to you:\n\n")
	fmt.Fprintf(&b, "Ticket Title: %s\n", ticket.Title)
	fmt.Fprintf(&b, "Description: %s\n", ticket.Description)
	fmt.Fprintf(&b, "Priority: %s\n", orUnset(string(ticket.Priority)))
	fmt.Fprintf(&b, "Status: %s\n", orUnset(string(ticket.Status)))
	fmt.Fprintf(&b, "Created: %s\n", ticket.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if len(ticket.RelatedSkills) > 0 {
		fmt.Fprintf(&b, "Skills: %s\n", strings.Join(ticket.RelatedSkills, ", "))
	}
	if ticket.HelpfulNotes != "" {
		fmt.Fprintf(&b, "\nAI Notes: %s\n", ticket.HelpfulNotes)
	}
	b.WriteString("\nPlease review and take action on this ticket as soon as possible.\n")
	fmt.Fprintf(&b, "\nView ticket: %s/tickets/%s\n", strings.TrimRight(frontendURL, "/"), ticket.ID)
	b.WriteString("\nBest regards,\nTicketMate System\n")

	return subject, b.String()
}

// welcomeMessage composes the plain-text signup greeting.
func welcomeMessage(user *domain.User, frontendURL string) (subject, body string) {
	subject = "Welcome to TicketMate!"

	var b strings.Builder
	b.WriteString("Hi there!\n\n")
	b.WriteString("Thank you for signing up for TicketMate! We're excited to have you on board and help you streamline your ticket management process.\n\n")
	b.WriteString("What you can do with TicketMate:\n")
	b.WriteString("- Create and manage support tickets\n")
	b.WriteString("- Track ticket status and progress\n")
	b.WriteString("- Collaborate with your team\n")
	b.WriteString("- Get real-time updates and notifications\n\n")
	fmt.Fprintf(&b, "Get started now: %s\n\n", frontendURL)
	b.WriteString("Best regards,\nThe TicketMate Team\n\n")
	fmt.Fprintf(&b, "This email was sent to %s. If you didn't sign up for TicketMate, please ignore it.\n", user.Email)

	return subject, b.String()
}

func orUnset(value string) string {
	if value == "" {
		return "Not set"
	}
	return value
}
