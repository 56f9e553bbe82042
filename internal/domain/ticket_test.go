package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePriority(t *testing.T) {
	cases := map[string]TicketPriority{
		"low":    TicketPriorityLow,
		"medium": TicketPriorityMedium,
		"high":   TicketPriorityHigh,
		"URGENT": TicketPriorityMedium,
		"":       TicketPriorityMedium,
		"High":   TicketPriorityMedium,
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizePriority(input), "input %q", input)
	}
}

func TestNormalizeStatus(t *testing.T) {
	cases := map[string]TicketStatus{
		"TODO":        TicketStatusTodo,
		"IN_PROGRESS": TicketStatusInProgress,
		"DONE":        TicketStatusDone,
		"":            TicketStatusInProgress,
		"open":        TicketStatusInProgress,
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeStatus(input), "input %q", input)
	}
}

func TestUserHasSkill(t *testing.T) {
	u := &User{Skills: []string{"Python", "Networking"}}

	assert.True(t, u.HasSkill("python"))
	assert.True(t, u.HasSkill("NETWORKING"))
	assert.False(t, u.HasSkill("java"))
	// whole-token equality, not substring containment
	assert.False(t, u.HasSkill("net"))

	assert.True(t, u.HasAnySkill([]string{"java", "python"}))
	assert.False(t, u.HasAnySkill([]string{"java", "rust"}))
	assert.False(t, u.HasAnySkill(nil))
}
