package notification

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"vakwerk_backend/internal/events"
	jobsrepo "vakwerk_backend/internal/jobs/repository"
	matchingrepo "vakwerk_backend/internal/matching/repository"
	providersrepo "vakwerk_backend/internal/providers/repository"
	platformevents "vakwerk_backend/platform/events"
	"vakwerk_backend/platform/logger"
)

type sentMail struct {
	kind string
	to   string
	ref  string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (f *fakeSender) SendAssignmentOfferEmail(_ context.Context, toEmail, _, referenceCode, _ string) error {
	f.sent = append(f.sent, sentMail{kind: "assignment_offer", to: toEmail, ref: referenceCode})
	return f.err
}

func (f *fakeSender) SendEscalationRaisedEmail(_ context.Context, toEmail, referenceCode, _ string, _ int) error {
	f.sent = append(f.sent, sentMail{kind: "escalation_raised", to: toEmail, ref: referenceCode})
	return f.err
}

func (f *fakeSender) SendProviderExpelledEmail(_ context.Context, toEmail, _, _ string) error {
	f.sent = append(f.sent, sentMail{kind: "provider_expelled", to: toEmail})
	return f.err
}

func (f *fakeSender) SendPriceProposalEmail(_ context.Context, toEmail, referenceCode, _ string) error {
	f.sent = append(f.sent, sentMail{kind: "price_proposal", to: toEmail, ref: referenceCode})
	return f.err
}

func (f *fakeSender) SendJobStartReminderEmail(_ context.Context, toEmail, _, referenceCode, _ string) error {
	f.sent = append(f.sent, sentMail{kind: "job_start_reminder", to: toEmail, ref: referenceCode})
	return f.err
}

type fakeProviderReader struct {
	providers map[uuid.UUID]providersrepo.Provider
}

func (f *fakeProviderReader) GetByID(_ context.Context, id uuid.UUID) (providersrepo.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return providersrepo.Provider{}, errors.New("provider not found")
	}
	return p, nil
}

type fakeJobReader struct {
	jobs map[uuid.UUID]jobsrepo.Job
}

func (f *fakeJobReader) GetByID(_ context.Context, id uuid.UUID) (jobsrepo.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return jobsrepo.Job{}, errors.New("job not found")
	}
	return j, nil
}

type fakeAssignmentReader struct {
	active map[uuid.UUID]matchingrepo.Assignment
}

func (f *fakeAssignmentReader) GetActiveByJob(_ context.Context, jobID uuid.UUID) (matchingrepo.Assignment, error) {
	a, ok := f.active[jobID]
	if !ok {
		return matchingrepo.Assignment{}, errors.New("no active assignment")
	}
	return a, nil
}

type staticConfig struct {
	opsEmail string
}

func (c staticConfig) GetAppBaseURL() string      { return "http://localhost:4200" }
func (c staticConfig) GetOpsEmailAddress() string { return c.opsEmail }

type fixture struct {
	sender      *fakeSender
	providers   *fakeProviderReader
	jobs        *fakeJobReader
	assignments *fakeAssignmentReader
	bus         *platformevents.InMemoryBus

	providerID uuid.UUID
	jobID      uuid.UUID
}

func newFixture(t *testing.T, opsEmail string) *fixture {
	t.Helper()

	log := logger.New("test")
	f := &fixture{
		sender:      &fakeSender{},
		providers:   &fakeProviderReader{providers: map[uuid.UUID]providersrepo.Provider{}},
		jobs:        &fakeJobReader{jobs: map[uuid.UUID]jobsrepo.Job{}},
		assignments: &fakeAssignmentReader{active: map[uuid.UUID]matchingrepo.Assignment{}},
		bus:         platformevents.NewInMemoryBus(log),
		providerID:  uuid.New(),
		jobID:       uuid.New(),
	}

	f.providers.providers[f.providerID] = providersrepo.Provider{
		ID:    f.providerID,
		Name:  "Jan de Vries",
		Email: "jan@example.com",
	}
	f.jobs.jobs[f.jobID] = jobsrepo.Job{
		ID:            f.jobID,
		ReferenceCode: "VW-A1B2C3D4",
	}

	NewModule(f.sender, f.providers, f.jobs, f.assignments, staticConfig{opsEmail: opsEmail}, f.bus, log)
	return f
}

func TestAssignmentOfferMailGoesToProvider(t *testing.T) {
	f := newFixture(t, "ops@example.com")

	err := f.bus.PublishSync(context.Background(), events.AssignmentOffered{
		BaseEvent:    events.NewBaseEvent(),
		AssignmentID: uuid.New(),
		JobID:        f.jobID,
		ProviderID:   f.providerID,
		RespondBy:    time.Now().Add(30 * time.Minute),
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(f.sender.sent) != 1 {
		t.Fatalf("sent = %d, want 1", len(f.sender.sent))
	}
	mail := f.sender.sent[0]
	if mail.kind != "assignment_offer" || mail.to != "jan@example.com" || mail.ref != "VW-A1B2C3D4" {
		t.Fatalf("unexpected mail %+v", mail)
	}
}

func TestEscalationMailGoesToOps(t *testing.T) {
	f := newFixture(t, "ops@example.com")

	err := f.bus.PublishSync(context.Background(), events.EscalationRaised{
		BaseEvent:      events.NewBaseEvent(),
		EscalationID:   uuid.New(),
		JobID:          f.jobID,
		FromLevel:      1,
		ToLevel:        4,
		TriggerKeyword: "flood",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	if len(f.sender.sent) != 1 || f.sender.sent[0].to != "ops@example.com" {
		t.Fatalf("unexpected mails %+v", f.sender.sent)
	}
}

func TestEscalationMailSkippedWithoutOpsAddress(t *testing.T) {
	f := newFixture(t, "")

	err := f.bus.PublishSync(context.Background(), events.EscalationRaised{
		BaseEvent: events.NewBaseEvent(),
		JobID:     f.jobID,
		ToLevel:   3,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("expected no mail, got %+v", f.sender.sent)
	}
}

func TestSendFailureDoesNotPropagate(t *testing.T) {
	f := newFixture(t, "ops@example.com")
	f.sender.err = errors.New("smtp down")

	err := f.bus.PublishSync(context.Background(), events.ProviderExpelled{
		BaseEvent:  events.NewBaseEvent(),
		ProviderID: f.providerID,
		Reason:     "score floor reached",
	})
	if err != nil {
		t.Fatalf("send failure must not propagate, got %v", err)
	}
}

func TestUnknownProviderSkipsMail(t *testing.T) {
	f := newFixture(t, "ops@example.com")

	err := f.bus.PublishSync(context.Background(), events.ProviderExpelled{
		BaseEvent:  events.NewBaseEvent(),
		ProviderID: uuid.New(),
		Reason:     "score floor reached",
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("expected no mail, got %+v", f.sender.sent)
	}
}

func TestJobStartReminderOnlyForAcceptedAssignment(t *testing.T) {
	f := newFixture(t, "ops@example.com")

	event := events.JobStartDue{
		BaseEvent:     events.NewBaseEvent(),
		JobID:         f.jobID,
		ReferenceCode: "VW-A1B2C3D4",
		StartsAt:      time.Now().Add(45 * time.Minute),
	}

	f.assignments.active[f.jobID] = matchingrepo.Assignment{
		ID:         uuid.New(),
		JobID:      f.jobID,
		ProviderID: f.providerID,
		Status:     matchingrepo.StatusOffered,
	}
	if err := f.bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.sender.sent) != 0 {
		t.Fatalf("offered assignment must not be reminded, got %+v", f.sender.sent)
	}

	accepted := f.assignments.active[f.jobID]
	accepted.Status = matchingrepo.StatusAccepted
	f.assignments.active[f.jobID] = accepted
	if err := f.bus.PublishSync(context.Background(), event); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0].kind != "job_start_reminder" {
		t.Fatalf("unexpected mails %+v", f.sender.sent)
	}
}

func TestPriceProposalMailGoesToOps(t *testing.T) {
	f := newFixture(t, "ops@example.com")

	err := f.bus.PublishSync(context.Background(), events.PriceProposed{
		BaseEvent:  events.NewBaseEvent(),
		ProposalID: uuid.New(),
		JobID:      f.jobID,
		PriceCents: 25000,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if len(f.sender.sent) != 1 || f.sender.sent[0].to != "ops@example.com" || f.sender.sent[0].ref != "VW-A1B2C3D4" {
		t.Fatalf("unexpected mails %+v", f.sender.sent)
	}
}
