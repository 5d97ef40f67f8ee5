package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/jobs/domain"
	jobsrepo "vakwerk_backend/internal/jobs/repository"
	matchingrepo "vakwerk_backend/internal/matching/repository"
	providersrepo "vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/internal/providers/scoring"
	"vakwerk_backend/platform/apperr"
	platformevents "vakwerk_backend/platform/events"
	"vakwerk_backend/platform/logger"
)

type fakeProviderStore struct {
	providers map[uuid.UUID]providersrepo.Provider
	penalties *fakePenaltyStore
}

func (f *fakeProviderStore) GetByID(_ context.Context, id uuid.UUID) (providersrepo.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return providersrepo.Provider{}, apperr.NotFound("provider not found")
	}
	return p, nil
}

func (f *fakeProviderStore) ListMatchable(context.Context) ([]providersrepo.Provider, error) {
	return nil, nil
}

func (f *fakeProviderStore) ListActiveIDs(context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(f.providers))
	for id, p := range f.providers {
		if p.Status == providersrepo.StatusActive {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeProviderStore) UpdateScore(_ context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64) error {
	p, ok := f.providers[id]
	if !ok {
		return apperr.NotFound("provider not found")
	}
	if p.InternalScore != expectedScore {
		return apperr.Conflict("score moved concurrently")
	}
	p.InternalScore = newScore
	if newStatus != nil {
		p.Status = *newStatus
	}
	f.providers[id] = p
	return nil
}

func (f *fakeProviderStore) UpdateScoreWithRecord(ctx context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64, record providersrepo.PenaltyRecord) (providersrepo.PenaltyRecord, error) {
	p, ok := f.providers[id]
	if !ok {
		return providersrepo.PenaltyRecord{}, apperr.NotFound("provider not found")
	}
	if p.InternalScore != expectedScore {
		return providersrepo.PenaltyRecord{}, apperr.Conflict("score moved concurrently")
	}
	p.InternalScore = newScore
	if newStatus != nil {
		p.Status = *newStatus
	}
	f.providers[id] = p
	return f.penalties.Record(ctx, record)
}

func (f *fakeProviderStore) CountActiveAssignments(context.Context, uuid.UUID) (int, error) {
	return 0, nil
}

type fakePenaltyStore struct {
	records []providersrepo.PenaltyRecord
}

func (f *fakePenaltyStore) Record(_ context.Context, record providersrepo.PenaltyRecord) (providersrepo.PenaltyRecord, error) {
	record.ID = uuid.New()
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakePenaltyStore) List(_ context.Context, providerID uuid.UUID) ([]providersrepo.PenaltyRecord, error) {
	var out []providersrepo.PenaltyRecord
	for _, r := range f.records {
		if r.ProviderID == providerID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakePenaltyStore) LastAppliedAt(_ context.Context, providerID uuid.UUID) (*time.Time, error) {
	var last *time.Time
	for _, r := range f.records {
		if r.ProviderID == providerID {
			at := r.AppliedAt
			if last == nil || at.After(*last) {
				last = &at
			}
		}
	}
	return last, nil
}

func (f *fakePenaltyStore) HasType(_ context.Context, providerID uuid.UUID, penaltyType string) (bool, error) {
	for _, r := range f.records {
		if r.ProviderID == providerID && r.PenaltyType == penaltyType {
			return true, nil
		}
	}
	return false, nil
}

type fakeAssignmentStore struct {
	assignments map[uuid.UUID]matchingrepo.Assignment
}

func (f *fakeAssignmentStore) Create(_ context.Context, a matchingrepo.Assignment) (matchingrepo.Assignment, error) {
	f.assignments[a.ID] = a
	return a, nil
}

func (f *fakeAssignmentStore) GetByID(_ context.Context, id uuid.UUID) (matchingrepo.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return matchingrepo.Assignment{}, apperr.NotFound("assignment not found")
	}
	return a, nil
}

func (f *fakeAssignmentStore) GetActiveByJob(_ context.Context, jobID uuid.UUID) (matchingrepo.Assignment, error) {
	for _, a := range f.assignments {
		if a.JobID == jobID && a.IsActive() {
			return a, nil
		}
	}
	return matchingrepo.Assignment{}, apperr.NotFound("no active assignment")
}

func (f *fakeAssignmentStore) Respond(_ context.Context, id uuid.UUID, toStatus string) (matchingrepo.Assignment, error) {
	return matchingrepo.Assignment{}, errors.New("not implemented")
}

func (f *fakeAssignmentStore) Cancel(_ context.Context, id uuid.UUID, reason string) error {
	a, ok := f.assignments[id]
	if !ok || !a.IsActive() {
		return apperr.Conflict("assignment is not active")
	}
	a.Status = matchingrepo.StatusCancelled
	a.CancelReason = &reason
	f.assignments[id] = a
	return nil
}

func (f *fakeAssignmentStore) Expire(_ context.Context, id uuid.UUID) error {
	a, ok := f.assignments[id]
	if !ok || a.Status != matchingrepo.StatusOffered {
		return apperr.Conflict("assignment is not offered")
	}
	a.Status = matchingrepo.StatusExpired
	f.assignments[id] = a
	return nil
}

func (f *fakeAssignmentStore) ListOfferedPastRespondBy(_ context.Context, cutoff time.Time) ([]matchingrepo.Assignment, error) {
	var out []matchingrepo.Assignment
	for _, a := range f.assignments {
		if a.Status == matchingrepo.StatusOffered && a.RespondBy.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAssignmentStore) ListAcceptedPastArriveBy(_ context.Context, cutoff time.Time) ([]matchingrepo.Assignment, error) {
	var out []matchingrepo.Assignment
	for _, a := range f.assignments {
		if a.Status == matchingrepo.StatusAccepted && a.ArriveBy.Before(cutoff) {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeJobStore struct {
	jobs map[uuid.UUID]jobsrepo.Job
}

func (f *fakeJobStore) Create(context.Context, jobsrepo.CreateParams) (jobsrepo.Job, error) {
	return jobsrepo.Job{}, errors.New("not implemented")
}

func (f *fakeJobStore) GetByID(_ context.Context, id uuid.UUID) (jobsrepo.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return jobsrepo.Job{}, apperr.NotFound("job not found")
	}
	return j, nil
}

func (f *fakeJobStore) GetDetail(context.Context, uuid.UUID) (jobsrepo.Detail, error) {
	return jobsrepo.Detail{}, errors.New("not implemented")
}

func (f *fakeJobStore) ListByCustomer(context.Context, uuid.UUID) ([]jobsrepo.Job, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeJobStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status) (jobsrepo.Job, error) {
	j, ok := f.jobs[id]
	if !ok {
		return jobsrepo.Job{}, apperr.NotFound("job not found")
	}
	if j.Status != from {
		return jobsrepo.Job{}, apperr.Conflict("job status moved concurrently")
	}
	j.Status = to
	f.jobs[id] = j
	return j, nil
}

func (f *fakeJobStore) SetEmergency(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeJobStore) ClearAgreedPrice(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeJobStore) ListScheduledBetween(_ context.Context, from, to time.Time) ([]jobsrepo.Job, error) {
	var out []jobsrepo.Job
	for _, j := range f.jobs {
		if j.RequestedFor == nil {
			continue
		}
		if !j.RequestedFor.Before(from) && j.RequestedFor.Before(to) {
			out = append(out, j)
		}
	}
	return out, nil
}

type recordedReminder struct {
	payload StartReminderPayload
	runAt   time.Time
}

type fakeReminderScheduler struct {
	scheduled []recordedReminder
}

func (f *fakeReminderScheduler) ScheduleStartReminder(_ context.Context, payload StartReminderPayload, runAt time.Time) error {
	f.scheduled = append(f.scheduled, recordedReminder{payload: payload, runAt: runAt})
	return nil
}

type recordingBus struct {
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) {
	b.published = append(b.published, e)
}

func (b *recordingBus) PublishSync(_ context.Context, e events.Event) error {
	b.published = append(b.published, e)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

type workerFixture struct {
	worker      *Worker
	providers   *fakeProviderStore
	penalties   *fakePenaltyStore
	assignments *fakeAssignmentStore
	jobs        *fakeJobStore
	reminders   *fakeReminderScheduler
	bus         *recordingBus
	now         time.Time
}

func newWorkerFixture(t *testing.T) *workerFixture {
	t.Helper()

	log := logger.New("test")
	penalties := &fakePenaltyStore{}
	f := &workerFixture{
		providers:   &fakeProviderStore{providers: map[uuid.UUID]providersrepo.Provider{}, penalties: penalties},
		penalties:   penalties,
		assignments: &fakeAssignmentStore{assignments: map[uuid.UUID]matchingrepo.Assignment{}},
		jobs:        &fakeJobStore{jobs: map[uuid.UUID]jobsrepo.Job{}},
		reminders:   &fakeReminderScheduler{},
		bus:         &recordingBus{},
		now:         time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC),
	}

	scoringSvc := scoring.New(f.providers, f.penalties, platformevents.NewInMemoryBus(log), log)
	scoringSvc.SetClock(func() time.Time { return f.now })

	f.worker = &Worker{
		providers:   f.providers,
		scoring:     scoringSvc,
		assignments: f.assignments,
		jobs:        f.jobs,
		reminders:   f.reminders,
		bus:         f.bus,
		log:         log,
		now:         func() time.Time { return f.now },
	}
	return f
}

func (f *workerFixture) addProvider(level int, score float64) uuid.UUID {
	id := uuid.New()
	f.providers.providers[id] = providersrepo.Provider{
		ID:            id,
		Name:          "Provider",
		Email:         "provider@example.com",
		CurrentLevel:  level,
		InternalScore: score,
		Status:        providersrepo.StatusActive,
	}
	return id
}

func (f *workerFixture) addJob(status domain.Status) uuid.UUID {
	id := uuid.New()
	f.jobs.jobs[id] = jobsrepo.Job{
		ID:            id,
		ReferenceCode: "VW-TEST0001",
		Status:        status,
	}
	return id
}

func TestSLASweepExpiresStaleOffers(t *testing.T) {
	f := newWorkerFixture(t)
	providerID := f.addProvider(2, 80)
	jobID := f.addJob(domain.StatusMatched)

	assignmentID := uuid.New()
	f.assignments.assignments[assignmentID] = matchingrepo.Assignment{
		ID:         assignmentID,
		JobID:      jobID,
		ProviderID: providerID,
		Status:     matchingrepo.StatusOffered,
		RespondBy:  f.now.Add(-5 * time.Minute),
		ArriveBy:   f.now.Add(time.Hour),
	}

	if err := f.worker.handleSLASweep(context.Background(), nil); err != nil {
		t.Fatalf("handleSLASweep: %v", err)
	}

	if got := f.assignments.assignments[assignmentID].Status; got != matchingrepo.StatusExpired {
		t.Fatalf("assignment status = %s, want %s", got, matchingrepo.StatusExpired)
	}
	if got := f.jobs.jobs[jobID].Status; got != domain.StatusPendingMatch {
		t.Fatalf("job status = %s, want %s", got, domain.StatusPendingMatch)
	}

	// Level 2 response timeout costs 4 points.
	if got := f.providers.providers[providerID].InternalScore; got != 76 {
		t.Fatalf("provider score = %v, want 76", got)
	}
	if len(f.penalties.records) != 1 || f.penalties.records[0].PenaltyType != scoring.PenaltyResponseTimeout {
		t.Fatalf("unexpected penalty records %+v", f.penalties.records)
	}
}

func TestSLASweepLeavesFreshOffersAlone(t *testing.T) {
	f := newWorkerFixture(t)
	providerID := f.addProvider(2, 80)
	jobID := f.addJob(domain.StatusMatched)

	assignmentID := uuid.New()
	f.assignments.assignments[assignmentID] = matchingrepo.Assignment{
		ID:         assignmentID,
		JobID:      jobID,
		ProviderID: providerID,
		Status:     matchingrepo.StatusOffered,
		RespondBy:  f.now.Add(10 * time.Minute),
		ArriveBy:   f.now.Add(time.Hour),
	}

	if err := f.worker.handleSLASweep(context.Background(), nil); err != nil {
		t.Fatalf("handleSLASweep: %v", err)
	}

	if got := f.assignments.assignments[assignmentID].Status; got != matchingrepo.StatusOffered {
		t.Fatalf("assignment status = %s, want %s", got, matchingrepo.StatusOffered)
	}
	if len(f.penalties.records) != 0 {
		t.Fatalf("expected no penalties, got %+v", f.penalties.records)
	}
}

func TestSLASweepCancelsMissedArrivals(t *testing.T) {
	f := newWorkerFixture(t)
	providerID := f.addProvider(2, 80)
	jobID := f.addJob(domain.StatusProviderAccepted)

	assignmentID := uuid.New()
	f.assignments.assignments[assignmentID] = matchingrepo.Assignment{
		ID:         assignmentID,
		JobID:      jobID,
		ProviderID: providerID,
		Status:     matchingrepo.StatusAccepted,
		RespondBy:  f.now.Add(-time.Hour),
		ArriveBy:   f.now.Add(-10 * time.Minute),
	}

	if err := f.worker.handleSLASweep(context.Background(), nil); err != nil {
		t.Fatalf("handleSLASweep: %v", err)
	}

	if got := f.assignments.assignments[assignmentID].Status; got != matchingrepo.StatusCancelled {
		t.Fatalf("assignment status = %s, want %s", got, matchingrepo.StatusCancelled)
	}
	if got := f.jobs.jobs[jobID].Status; got != domain.StatusPendingMatch {
		t.Fatalf("job status = %s, want %s", got, domain.StatusPendingMatch)
	}

	// Level 2 no-show costs 15 points.
	if got := f.providers.providers[providerID].InternalScore; got != 65 {
		t.Fatalf("provider score = %v, want 65", got)
	}
}

func TestSLASweepSkipsJobsAlreadyInProgress(t *testing.T) {
	f := newWorkerFixture(t)
	providerID := f.addProvider(2, 80)
	jobID := f.addJob(domain.StatusInProgress)

	assignmentID := uuid.New()
	f.assignments.assignments[assignmentID] = matchingrepo.Assignment{
		ID:         assignmentID,
		JobID:      jobID,
		ProviderID: providerID,
		Status:     matchingrepo.StatusAccepted,
		RespondBy:  f.now.Add(-time.Hour),
		ArriveBy:   f.now.Add(-10 * time.Minute),
	}

	if err := f.worker.handleSLASweep(context.Background(), nil); err != nil {
		t.Fatalf("handleSLASweep: %v", err)
	}

	if got := f.assignments.assignments[assignmentID].Status; got != matchingrepo.StatusAccepted {
		t.Fatalf("assignment status = %s, want %s", got, matchingrepo.StatusAccepted)
	}
	if len(f.penalties.records) != 0 {
		t.Fatalf("expected no penalties, got %+v", f.penalties.records)
	}
}

func TestNormalizeWeeklyRecoversActiveProviders(t *testing.T) {
	f := newWorkerFixture(t)

	// Below base with a clean recent history; recovery applies.
	recovering := f.addProvider(2, 60)
	// Already at base; nothing to recover.
	atBase := f.addProvider(2, 75)

	if err := f.worker.handleNormalizeWeekly(context.Background(), nil); err != nil {
		t.Fatalf("handleNormalizeWeekly: %v", err)
	}

	if got := f.providers.providers[recovering].InternalScore; got != 65 {
		t.Fatalf("recovering score = %v, want 65", got)
	}
	if got := f.providers.providers[atBase].InternalScore; got != 75 {
		t.Fatalf("at-base score = %v, want 75", got)
	}
}

func TestStartReminderSweepEnqueuesUpcomingJobs(t *testing.T) {
	f := newWorkerFixture(t)

	soon := f.now.Add(40 * time.Minute)
	jobID := f.addJob(domain.StatusScheduled)
	job := f.jobs.jobs[jobID]
	job.RequestedFor = &soon
	f.jobs.jobs[jobID] = job

	// Scheduled far out; outside the sweep window.
	later := f.now.Add(3 * time.Hour)
	farID := f.addJob(domain.StatusScheduled)
	farJob := f.jobs.jobs[farID]
	farJob.RequestedFor = &later
	f.jobs.jobs[farID] = farJob

	if err := f.worker.handleStartReminderSweep(context.Background(), nil); err != nil {
		t.Fatalf("handleStartReminderSweep: %v", err)
	}

	if len(f.reminders.scheduled) != 1 {
		t.Fatalf("scheduled = %d, want 1", len(f.reminders.scheduled))
	}
	got := f.reminders.scheduled[0]
	if got.payload.JobID != jobID.String() {
		t.Fatalf("payload job = %s, want %s", got.payload.JobID, jobID)
	}
	if want := soon.Add(-startReminderLead); !got.runAt.Equal(want) {
		t.Fatalf("runAt = %v, want %v", got.runAt, want)
	}
}

func TestStartReminderSweepSkipsUnscheduledJobs(t *testing.T) {
	f := newWorkerFixture(t)

	soon := f.now.Add(30 * time.Minute)
	jobID := f.addJob(domain.StatusPendingMatch)
	job := f.jobs.jobs[jobID]
	job.RequestedFor = &soon
	f.jobs.jobs[jobID] = job

	if err := f.worker.handleStartReminderSweep(context.Background(), nil); err != nil {
		t.Fatalf("handleStartReminderSweep: %v", err)
	}
	if len(f.reminders.scheduled) != 0 {
		t.Fatalf("expected no reminders, got %+v", f.reminders.scheduled)
	}
}

func TestStartReminderSweepIncludesAcceptedJobs(t *testing.T) {
	// Level 1 and 2 jobs go straight from acceptance to the start without
	// passing through SCHEDULED; they still get a reminder.
	f := newWorkerFixture(t)

	soon := f.now.Add(40 * time.Minute)
	jobID := f.addJob(domain.StatusProviderAccepted)
	job := f.jobs.jobs[jobID]
	job.RequestedFor = &soon
	f.jobs.jobs[jobID] = job

	if err := f.worker.handleStartReminderSweep(context.Background(), nil); err != nil {
		t.Fatalf("handleStartReminderSweep: %v", err)
	}

	if len(f.reminders.scheduled) != 1 {
		t.Fatalf("scheduled = %d, want 1", len(f.reminders.scheduled))
	}
	got := f.reminders.scheduled[0]
	if got.payload.JobID != jobID.String() {
		t.Fatalf("payload job = %s, want %s", got.payload.JobID, jobID)
	}
	if want := soon.Add(-startReminderLead); !got.runAt.Equal(want) {
		t.Fatalf("runAt = %v, want %v", got.runAt, want)
	}
}

func TestStartReminderSendPublishesForAcceptedJob(t *testing.T) {
	f := newWorkerFixture(t)

	soon := f.now.Add(startReminderLead)
	jobID := f.addJob(domain.StatusProviderAccepted)
	job := f.jobs.jobs[jobID]
	job.RequestedFor = &soon
	f.jobs.jobs[jobID] = job

	task, err := NewStartReminderTask(StartReminderPayload{JobID: jobID.String()})
	if err != nil {
		t.Fatalf("NewStartReminderTask: %v", err)
	}
	if err := f.worker.handleStartReminderSend(context.Background(), task); err != nil {
		t.Fatalf("handleStartReminderSend: %v", err)
	}

	if len(f.bus.published) != 1 {
		t.Fatalf("published = %d, want 1", len(f.bus.published))
	}
	due, ok := f.bus.published[0].(events.JobStartDue)
	if !ok {
		t.Fatalf("published event = %T, want events.JobStartDue", f.bus.published[0])
	}
	if due.JobID != jobID {
		t.Fatalf("event job = %s, want %s", due.JobID, jobID)
	}
	if !due.StartsAt.Equal(soon) {
		t.Fatalf("StartsAt = %v, want %v", due.StartsAt, soon)
	}
}
