package triage

import (
	"context"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dib506676/TicketMate/internal/bus"
	"github.com/dib506676/TicketMate/internal/classifier"
	"github.com/dib506676/TicketMate/internal/domain"
	"github.com/dib506676/TicketMate/internal/events"
	"github.com/dib506676/TicketMate/internal/repository"
)

type fakeTicketRepo struct {
	tickets     map[string]*domain.Ticket
	getCalls    int
	updateCalls []repository.TicketUpdate
	// failCalls maps 1-based update invocation numbers to injected errors
	failCalls map[int]error
}

func newFakeTicketRepo(tickets ...*domain.Ticket) *fakeTicketRepo {
	r := &fakeTicketRepo{tickets: make(map[string]*domain.Ticket), failCalls: make(map[int]error)}
	for _, t := range tickets {
		r.tickets[t.ID] = t
	}
	return r
}

func (r *fakeTicketRepo) Create(_ context.Context, ticket *domain.Ticket) error {
	r.tickets[ticket.ID] = ticket
	return nil
}

func (r *fakeTicketRepo) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	r.getCalls++
	t, ok := r.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *t
	return &copied, nil
}

func (r *fakeTicketRepo) Update(_ context.Context, id string, update repository.TicketUpdate) error {
	call := len(r.updateCalls) + 1
	r.updateCalls = append(r.updateCalls, update)
	if err, ok := r.failCalls[call]; ok {
		delete(r.failCalls, call)
		return err
	}
	t, ok := r.tickets[id]
	if !ok {
		return pgx.ErrNoRows
	}
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.Priority != nil {
		t.Priority = *update.Priority
	}
	if update.HelpfulNotes != nil {
		t.HelpfulNotes = *update.HelpfulNotes
	}
	if update.RelatedSkills != nil {
		t.RelatedSkills = update.RelatedSkills
	}
	if update.AssignedTo != nil {
		t.AssignedTo = update.AssignedTo
	}
	return nil
}

type fakeUserRepo struct {
	users []domain.User
}

func (r *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	r.users = append(r.users, *user)
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].ID == id {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for i := range r.users {
		if r.users[i].Email == email {
			u := r.users[i]
			return &u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *fakeUserRepo) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	var result []domain.User
	for _, u := range r.users {
		if u.Role == role {
			result = append(result, u)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type fakeClassifier struct {
	suggestion *classifier.Suggestion
	err        error
	calls      int
}

func (c *fakeClassifier) Classify(context.Context, *domain.Ticket) (*classifier.Suggestion, error) {
	c.calls++
	return c.suggestion, c.err
}

type sentMail struct {
	to      string
	subject string
	body    string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
}

func (n *fakeNotifier) Send(_ context.Context, to, subject, body string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type fixture struct {
	tickets    *fakeTicketRepo
	users      *fakeUserRepo
	classifier *fakeClassifier
	notifier   *fakeNotifier
	bus        *bus.InMemoryBus
}

func newFixture(t *testing.T, tickets *fakeTicketRepo, users *fakeUserRepo, cl *fakeClassifier, nt *fakeNotifier) *fixture {
	t.Helper()
	svc := NewService(Dependencies{
		TicketRepo:  tickets,
		UserRepo:    users,
		Classifier:  cl,
		Notifier:    nt,
		FrontendURL: "http://localhost:3000",
	})
	b := bus.NewInMemoryBus(bus.NewMemoryStepLog(), nil, nil, 0)
	b.Subscribe(svc.TicketCreatedWorkflow(bus.DefaultMaxRetries))
	b.Subscribe(svc.UserSignedUpWorkflow(bus.DefaultMaxRetries))
	return &fixture{tickets: tickets, users: users, classifier: cl, notifier: nt, bus: b}
}

func (f *fixture) publishTicketCreated(t *testing.T, ticketID string) events.Event {
	t.Helper()
	evt, err := events.New(events.EventTicketCreated, events.TicketCreatedPayload{TicketID: ticketID})
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(context.Background(), evt))
	return evt
}

func (f *fixture) publishUserSignedUp(t *testing.T, email string) events.Event {
	t.Helper()
	evt, err := events.New(events.EventUserSignedUp, events.UserSignedUpPayload{Email: email})
	require.NoError(t, err)
	require.NoError(t, f.bus.Publish(context.Background(), evt))
	return evt
}

func serverDownTicket() *domain.Ticket {
	return &domain.Ticket{
		ID:          "ticket-1",
		Title:       "Server down",
		Description: "prod outage",
		CreatedAt:   time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
	}
}

func TestTriageEndToEnd(t *testing.T) {
	tickets := newFakeTicketRepo(serverDownTicket())
	users := &fakeUserRepo{users: []domain.User{
		{ID: "mod-1", Email: "infra@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"infra"}},
	}}
	cl := &fakeClassifier{suggestion: &classifier.Suggestion{
		Priority:      "high",
		Status:        "IN_PROGRESS",
		HelpfulNotes:  "check logs",
		RelatedSkills: []string{"infra"},
	}}
	nt := &fakeNotifier{}
	f := newFixture(t, tickets, users, cl, nt)

	evt := f.publishTicketCreated(t, "ticket-1")

	out, ok := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
	require.True(t, ok)
	assert.True(t, out.Success)

	final := tickets.tickets["ticket-1"]
	assert.Equal(t, domain.TicketStatusInProgress, final.Status)
	assert.Equal(t, domain.TicketPriorityHigh, final.Priority)
	assert.Equal(t, "check logs", final.HelpfulNotes)
	assert.Equal(t, []string{"infra"}, final.RelatedSkills)
	require.NotNil(t, final.AssignedTo)
	assert.Equal(t, "mod-1", *final.AssignedTo)

	require.Len(t, nt.sent, 1)
	assert.Equal(t, "infra@ticketmate.local", nt.sent[0].to)
	assert.Contains(t, nt.sent[0].subject, "Server down")
	assert.Contains(t, nt.sent[0].body, "prod outage")
	assert.Contains(t, nt.sent[0].body, "high")
	assert.Contains(t, nt.sent[0].body, "check logs")
	assert.Contains(t, nt.sent[0].body, "/tickets/ticket-1")
}

func TestTriageIdempotentAcrossRedeliveries(t *testing.T) {
	tickets := newFakeTicketRepo(serverDownTicket())
	// third update call is assign-moderator; fail it once to force a
	// re-delivery after fetch, status, and classification already completed
	tickets.failCalls[3] = errors.New("transient store hiccup")
	users := &fakeUserRepo{users: []domain.User{
		{ID: "mod-1", Email: "infra@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"infra"}},
	}}
	cl := &fakeClassifier{suggestion: &classifier.Suggestion{
		Priority:      "high",
		RelatedSkills: []string{"infra"},
	}}
	nt := &fakeNotifier{}
	f := newFixture(t, tickets, users, cl, nt)

	evt := f.publishTicketCreated(t, "ticket-1")

	out, ok := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
	require.True(t, ok)
	assert.True(t, out.Success)

	// fetch-ticket ran once; the second read is the notification re-read
	assert.Equal(t, 2, tickets.getCalls)

	// status was written exactly once despite two deliveries
	statusWrites := 0
	for _, u := range tickets.updateCalls {
		if u.Status != nil && *u.Status == domain.TicketStatusTodo && u.Priority == nil {
			statusWrites++
		}
	}
	assert.Equal(t, 1, statusWrites)

	// the classifier call sits outside the step log, so the retry asked again
	assert.Equal(t, 2, cl.calls)

	require.Len(t, nt.sent, 1)
}

func TestTriageNonRetriableShortCircuit(t *testing.T) {
	tickets := newFakeTicketRepo() // no tickets at all
	users := &fakeUserRepo{}
	cl := &fakeClassifier{}
	nt := &fakeNotifier{}
	f := newFixture(t, tickets, users, cl, nt)

	evt := f.publishTicketCreated(t, "missing")

	out, ok := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
	require.True(t, ok)
	assert.False(t, out.Success)

	// exactly one lookup, then nothing: no status write, no classification,
	// no notification
	assert.Equal(t, 1, tickets.getCalls)
	assert.Empty(t, tickets.updateCalls)
	assert.Equal(t, 0, cl.calls)
	assert.Empty(t, nt.sent)
}

func TestTriagePriorityNormalization(t *testing.T) {
	cases := map[string]domain.TicketPriority{
		"low":    domain.TicketPriorityLow,
		"medium": domain.TicketPriorityMedium,
		"high":   domain.TicketPriorityHigh,
		"URGENT": domain.TicketPriorityMedium,
		"":       domain.TicketPriorityMedium,
	}
	for input, want := range cases {
		tickets := newFakeTicketRepo(serverDownTicket())
		cl := &fakeClassifier{suggestion: &classifier.Suggestion{Priority: input}}
		f := newFixture(t, tickets, &fakeUserRepo{}, cl, &fakeNotifier{})

		evt := f.publishTicketCreated(t, "ticket-1")

		out, _ := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
		assert.True(t, out.Success, "input %q", input)
		assert.Equal(t, want, tickets.tickets["ticket-1"].Priority, "input %q", input)
	}
}

func TestTriageAssignmentFallsBackToAdmin(t *testing.T) {
	tickets := newFakeTicketRepo(serverDownTicket())
	users := &fakeUserRepo{users: []domain.User{
		{ID: "mod-1", Email: "mod@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"billing"}},
		{ID: "adm-1", Email: "admin@ticketmate.local", Role: domain.RoleAdmin},
	}}
	cl := &fakeClassifier{suggestion: &classifier.Suggestion{RelatedSkills: []string{"infra"}}}
	nt := &fakeNotifier{}
	f := newFixture(t, tickets, users, cl, nt)

	evt := f.publishTicketCreated(t, "ticket-1")

	out, _ := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
	assert.True(t, out.Success)
	require.NotNil(t, tickets.tickets["ticket-1"].AssignedTo)
	assert.Equal(t, "adm-1", *tickets.tickets["ticket-1"].AssignedTo)
	require.Len(t, nt.sent, 1)
	assert.Equal(t, "admin@ticketmate.local", nt.sent[0].to)
}

func TestTriageUnassignedStillSucceeds(t *testing.T) {
	tickets := newFakeTicketRepo(serverDownTicket())
	cl := &fakeClassifier{suggestion: &classifier.Suggestion{RelatedSkills: []string{"infra"}}}
	nt := &fakeNotifier{}
	f := newFixture(t, tickets, &fakeUserRepo{}, cl, nt)

	evt := f.publishTicketCreated(t, "ticket-1")

	out, _ := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
	assert.True(t, out.Success)
	assert.Nil(t, tickets.tickets["ticket-1"].AssignedTo)
	assert.Empty(t, nt.sent)
}

func TestTriageSkillMatching(t *testing.T) {
	moderator := domain.User{ID: "mod-1", Email: "mod@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"Python", "Networking"}}

	t.Run("case-insensitive match selects the moderator", func(t *testing.T) {
		tickets := newFakeTicketRepo(serverDownTicket())
		cl := &fakeClassifier{suggestion: &classifier.Suggestion{RelatedSkills: []string{"python"}}}
		f := newFixture(t, tickets, &fakeUserRepo{users: []domain.User{moderator}}, cl, &fakeNotifier{})

		f.publishTicketCreated(t, "ticket-1")

		require.NotNil(t, tickets.tickets["ticket-1"].AssignedTo)
		assert.Equal(t, "mod-1", *tickets.tickets["ticket-1"].AssignedTo)
	})

	t.Run("no overlap leaves the ticket unassigned", func(t *testing.T) {
		tickets := newFakeTicketRepo(serverDownTicket())
		cl := &fakeClassifier{suggestion: &classifier.Suggestion{RelatedSkills: []string{"java"}}}
		f := newFixture(t, tickets, &fakeUserRepo{users: []domain.User{moderator}}, cl, &fakeNotifier{})

		f.publishTicketCreated(t, "ticket-1")

		assert.Nil(t, tickets.tickets["ticket-1"].AssignedTo)
	})

	t.Run("substring overlap is not a match", func(t *testing.T) {
		tickets := newFakeTicketRepo(serverDownTicket())
		mongoMod := domain.User{ID: "mod-2", Email: "m@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"mongo"}}
		cl := &fakeClassifier{suggestion: &classifier.Suggestion{RelatedSkills: []string{"go"}}}
		f := newFixture(t, tickets, &fakeUserRepo{users: []domain.User{mongoMod}}, cl, &fakeNotifier{})

		f.publishTicketCreated(t, "ticket-1")

		assert.Nil(t, tickets.tickets["ticket-1"].AssignedTo)
	})

	t.Run("lowest id wins among several matches", func(t *testing.T) {
		tickets := newFakeTicketRepo(serverDownTicket())
		users := &fakeUserRepo{users: []domain.User{
			{ID: "mod-9", Email: "nine@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"infra"}},
			{ID: "mod-2", Email: "two@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"infra"}},
		}}
		cl := &fakeClassifier{suggestion: &classifier.Suggestion{RelatedSkills: []string{"infra"}}}
		f := newFixture(t, tickets, users, cl, &fakeNotifier{})

		f.publishTicketCreated(t, "ticket-1")

		require.NotNil(t, tickets.tickets["ticket-1"].AssignedTo)
		assert.Equal(t, "mod-2", *tickets.tickets["ticket-1"].AssignedTo)
	})
}

func TestTriageNotifierBestEffort(t *testing.T) {
	tickets := newFakeTicketRepo(serverDownTicket())
	users := &fakeUserRepo{users: []domain.User{
		{ID: "mod-1", Email: "mod@ticketmate.local", Role: domain.RoleModerator, Skills: []string{"infra"}},
	}}
	cl := &fakeClassifier{suggestion: &classifier.Suggestion{RelatedSkills: []string{"infra"}}}
	nt := &fakeNotifier{err: errors.New("relay down")}
	f := newFixture(t, tickets, users, cl, nt)

	evt := f.publishTicketCreated(t, "ticket-1")

	out, _ := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
	assert.True(t, out.Success, "a failing notifier must not fail the run")
	require.NotNil(t, tickets.tickets["ticket-1"].AssignedTo)
}

func TestTriageClassifierFailureIsDegradedSuccess(t *testing.T) {
	tickets := newFakeTicketRepo(serverDownTicket())
	cl := &fakeClassifier{err: errors.New("model unavailable")}
	f := newFixture(t, tickets, &fakeUserRepo{}, cl, &fakeNotifier{})

	evt := f.publishTicketCreated(t, "ticket-1")

	out, _ := f.bus.Outcome(TicketCreatedWorkflowName, evt.ID)
	assert.True(t, out.Success)

	final := tickets.tickets["ticket-1"]
	// only the status step wrote; classification fields stayed untouched
	assert.Equal(t, domain.TicketStatusTodo, final.Status)
	assert.Empty(t, final.Priority)
	assert.Empty(t, final.HelpfulNotes)
	assert.Nil(t, final.AssignedTo)
}

func TestSignupSendsWelcome(t *testing.T) {
	users := &fakeUserRepo{users: []domain.User{
		{ID: "u-1", Email: "new@ticketmate.local", Role: domain.RoleUser},
	}}
	nt := &fakeNotifier{}
	f := newFixture(t, newFakeTicketRepo(), users, &fakeClassifier{}, nt)

	evt := f.publishUserSignedUp(t, "new@ticketmate.local")

	out, ok := f.bus.Outcome(UserSignedUpWorkflowName, evt.ID)
	require.True(t, ok)
	assert.True(t, out.Success)
	require.Len(t, nt.sent, 1)
	assert.Equal(t, "new@ticketmate.local", nt.sent[0].to)
	assert.Contains(t, nt.sent[0].subject, "Welcome")
	assert.Contains(t, nt.sent[0].body, "new@ticketmate.local")
}

func TestSignupMissingUserFailsPermanently(t *testing.T) {
	nt := &fakeNotifier{}
	f := newFixture(t, newFakeTicketRepo(), &fakeUserRepo{}, &fakeClassifier{}, nt)

	evt := f.publishUserSignedUp(t, "ghost@ticketmate.local")

	out, ok := f.bus.Outcome(UserSignedUpWorkflowName, evt.ID)
	require.True(t, ok)
	assert.False(t, out.Success)
	assert.Empty(t, nt.sent)
}
