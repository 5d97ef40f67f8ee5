// Package notification delivers transactional mail in response to domain
// events. Every handler is best-effort: a failed send is logged and never
// propagated back to the operation that published the event.
package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"vakwerk_backend/internal/email"
	"vakwerk_backend/internal/events"
	jobsrepo "vakwerk_backend/internal/jobs/repository"
	matchingrepo "vakwerk_backend/internal/matching/repository"
	providersrepo "vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/platform/config"
	"vakwerk_backend/platform/logger"
)

const mailTimeLayout = "02-01-2006 15:04"

// JobReader resolves jobs for mail content.
type JobReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (jobsrepo.Job, error)
}

// AssignmentReader resolves the active assignment of a job.
type AssignmentReader interface {
	GetActiveByJob(ctx context.Context, jobID uuid.UUID) (matchingrepo.Assignment, error)
}

// ProviderReader resolves provider contact details.
type ProviderReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (providersrepo.Provider, error)
}

// Module subscribes mail handlers to the event bus.
type Module struct {
	sender      email.Sender
	providers   ProviderReader
	jobs        JobReader
	assignments AssignmentReader
	opsEmail    string
	log         *logger.Logger
}

// NewModule wires the notification handlers onto the bus. Pass a NopSender
// when email delivery is disabled.
func NewModule(sender email.Sender, providers ProviderReader, jobs JobReader, assignments AssignmentReader, cfg config.NotificationConfig, bus events.Bus, log *logger.Logger) *Module {
	m := &Module{
		sender:      sender,
		providers:   providers,
		jobs:        jobs,
		assignments: assignments,
		opsEmail:    cfg.GetOpsEmailAddress(),
		log:         log,
	}

	bus.Subscribe(events.AssignmentOffered{}.EventName(), events.HandlerFunc(m.onAssignmentOffered))
	bus.Subscribe(events.EscalationRaised{}.EventName(), events.HandlerFunc(m.onEscalationRaised))
	bus.Subscribe(events.ProviderExpelled{}.EventName(), events.HandlerFunc(m.onProviderExpelled))
	bus.Subscribe(events.PriceProposed{}.EventName(), events.HandlerFunc(m.onPriceProposed))
	bus.Subscribe(events.JobStartDue{}.EventName(), events.HandlerFunc(m.onJobStartDue))

	return m
}

func (m *Module) Name() string {
	return "notification"
}

func (m *Module) onAssignmentOffered(ctx context.Context, e events.Event) error {
	event, ok := e.(events.AssignmentOffered)
	if !ok {
		return nil
	}

	provider, err := m.providers.GetByID(ctx, event.ProviderID)
	if err != nil {
		m.logSkip(e, err)
		return nil
	}
	job, err := m.jobs.GetByID(ctx, event.JobID)
	if err != nil {
		m.logSkip(e, err)
		return nil
	}

	respondBy := event.RespondBy.Format(mailTimeLayout)
	if err := m.sender.SendAssignmentOfferEmail(ctx, provider.Email, provider.Name, job.ReferenceCode, respondBy); err != nil {
		m.logSendFailure(e, provider.Email, err)
	}
	return nil
}

func (m *Module) onEscalationRaised(ctx context.Context, e events.Event) error {
	event, ok := e.(events.EscalationRaised)
	if !ok {
		return nil
	}
	if m.opsEmail == "" {
		return nil
	}

	job, err := m.jobs.GetByID(ctx, event.JobID)
	if err != nil {
		m.logSkip(e, err)
		return nil
	}

	if err := m.sender.SendEscalationRaisedEmail(ctx, m.opsEmail, job.ReferenceCode, event.TriggerKeyword, event.ToLevel); err != nil {
		m.logSendFailure(e, m.opsEmail, err)
	}
	return nil
}

func (m *Module) onProviderExpelled(ctx context.Context, e events.Event) error {
	event, ok := e.(events.ProviderExpelled)
	if !ok {
		return nil
	}

	provider, err := m.providers.GetByID(ctx, event.ProviderID)
	if err != nil {
		m.logSkip(e, err)
		return nil
	}

	if err := m.sender.SendProviderExpelledEmail(ctx, provider.Email, provider.Name, event.Reason); err != nil {
		m.logSendFailure(e, provider.Email, err)
	}
	return nil
}

// onPriceProposed notifies the operations desk. Negotiation is mediated by
// the platform; customers have no mail address on the job record.
func (m *Module) onPriceProposed(ctx context.Context, e events.Event) error {
	event, ok := e.(events.PriceProposed)
	if !ok {
		return nil
	}
	if m.opsEmail == "" {
		return nil
	}

	job, err := m.jobs.GetByID(ctx, event.JobID)
	if err != nil {
		m.logSkip(e, err)
		return nil
	}

	price := email.FormatCurrencyEUR(event.PriceCents)
	if err := m.sender.SendPriceProposalEmail(ctx, m.opsEmail, job.ReferenceCode, price); err != nil {
		m.logSendFailure(e, m.opsEmail, err)
	}
	return nil
}

func (m *Module) onJobStartDue(ctx context.Context, e events.Event) error {
	event, ok := e.(events.JobStartDue)
	if !ok {
		return nil
	}

	assignment, err := m.assignments.GetActiveByJob(ctx, event.JobID)
	if err != nil || assignment.Status != matchingrepo.StatusAccepted {
		return nil
	}
	provider, err := m.providers.GetByID(ctx, assignment.ProviderID)
	if err != nil {
		m.logSkip(e, err)
		return nil
	}

	startsAt := event.StartsAt.In(time.Local).Format(mailTimeLayout)
	if err := m.sender.SendJobStartReminderEmail(ctx, provider.Email, provider.Name, event.ReferenceCode, startsAt); err != nil {
		m.logSendFailure(e, provider.Email, err)
	}
	return nil
}

func (m *Module) logSkip(e events.Event, err error) {
	m.log.Warn("notification skipped", "event", e.EventName(), "error", err)
}

func (m *Module) logSendFailure(e events.Event, toEmail string, err error) {
	m.log.Error(fmt.Sprintf("notification send failed for %s", e.EventName()), "to", toEmail, "error", err)
}
