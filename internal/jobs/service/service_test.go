package service

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/google/uuid"

	catalogrepo "vakwerk_backend/internal/catalog/repository"
	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/jobs/domain"
	"vakwerk_backend/internal/jobs/repository"
	"vakwerk_backend/internal/jobs/transport"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/logger"
)

type fakeTaskReader struct {
	tasks map[uuid.UUID]catalogrepo.ServiceTask
}

func (f *fakeTaskReader) GetByID(_ context.Context, id uuid.UUID) (catalogrepo.ServiceTask, error) {
	task, ok := f.tasks[id]
	if !ok {
		return catalogrepo.ServiceTask{}, apperr.NotFound("service task not found")
	}
	return task, nil
}

type fakeJobRepo struct {
	jobs map[uuid.UUID]repository.Job
}

func (f *fakeJobRepo) Create(_ context.Context, params repository.CreateParams) (repository.Job, error) {
	job := repository.Job{
		ID:                   uuid.New(),
		ReferenceCode:        params.ReferenceCode,
		CustomerID:           params.CustomerID,
		TaskID:               params.TaskID,
		Status:               domain.StatusDraft,
		Priority:             params.Priority,
		IsEmergency:          params.IsEmergency,
		Lat:                  params.Lat,
		Lng:                  params.Lng,
		Address:              params.Address,
		ContactPhone:         params.ContactPhone,
		RequestedFor:         params.RequestedFor,
		SLAResponseMinutes:   params.SLAResponseMinutes,
		SLAArrivalMinutes:    params.SLAArrivalMinutes,
		SLACompletionMinutes: params.SLACompletionMinutes,
		SLAPenaltyCents:      params.SLAPenaltyCents,
		QuotedPriceCents:     params.QuotedPriceCents,
		CreatedAt:            time.Now(),
	}
	f.jobs[job.ID] = job
	return job, nil
}

func (f *fakeJobRepo) GetByID(_ context.Context, id uuid.UUID) (repository.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return repository.Job{}, apperr.NotFound("job not found")
	}
	return job, nil
}

func (f *fakeJobRepo) GetDetail(_ context.Context, id uuid.UUID) (repository.Detail, error) {
	job, ok := f.jobs[id]
	if !ok {
		return repository.Detail{}, apperr.NotFound("job not found")
	}
	return repository.Detail{Job: job, TaskLevel: 2}, nil
}

func (f *fakeJobRepo) ListByCustomer(_ context.Context, customerID uuid.UUID) ([]repository.Job, error) {
	var out []repository.Job
	for _, job := range f.jobs {
		if job.CustomerID == customerID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (f *fakeJobRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.Status) (repository.Job, error) {
	job, ok := f.jobs[id]
	if !ok {
		return repository.Job{}, apperr.NotFound("job not found")
	}
	if job.Status != from {
		return repository.Job{}, apperr.Conflict("job status moved concurrently")
	}
	job.Status = to
	f.jobs[id] = job
	return job, nil
}

func (f *fakeJobRepo) SetEmergency(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeJobRepo) ClearAgreedPrice(context.Context, uuid.UUID) error {
	return errors.New("not implemented")
}

func (f *fakeJobRepo) ListScheduledBetween(context.Context, time.Time, time.Time) ([]repository.Job, error) {
	return nil, nil
}

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, event events.Event) {
	f.published = append(f.published, event)
}

func (f *fakeBus) PublishSync(_ context.Context, event events.Event) error {
	f.published = append(f.published, event)
	return nil
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

type fixture struct {
	svc   *Service
	repo  *fakeJobRepo
	tasks *fakeTaskReader
	bus   *fakeBus
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:  &fakeJobRepo{jobs: map[uuid.UUID]repository.Job{}},
		tasks: &fakeTaskReader{tasks: map[uuid.UUID]catalogrepo.ServiceTask{}},
		bus:   &fakeBus{},
	}
	f.svc = New(f.repo, f.tasks, f.bus, logger.New("test"))
	return f
}

func (f *fixture) addTask(level int, emergencyEligible bool) uuid.UUID {
	id := uuid.New()
	f.tasks.tasks[id] = catalogrepo.ServiceTask{
		ID:                id,
		Slug:              "test-task",
		Name:              "Testtaak",
		Level:             level,
		EmergencyEligible: emergencyEligible,
		BasePriceMinCents: 10000,
		BasePriceMaxCents: 30000,
		IsActive:          true,
	}
	return id
}

func createRequest(taskID uuid.UUID) transport.CreateJobRequest {
	return transport.CreateJobRequest{
		TaskID:       taskID,
		Lat:          52.0,
		Lng:          5.0,
		Address:      "Teststraat 1, Utrecht",
		ContactPhone: "0612345678",
	}
}

func TestCreateSnapshotsSLAByLevel(t *testing.T) {
	tests := []struct {
		level           int
		wantResponse    int
		wantArrival     int
		wantCompletion  int
		wantPenaltyCent int64
	}{
		{1, 240, 2880, 10080, 2500},
		{2, 120, 1440, 4320, 5000},
		{3, 60, 720, 2880, 10000},
		{4, 15, 120, 720, 25000},
	}

	for _, tc := range tests {
		f := newFixture(t)
		taskID := f.addTask(tc.level, false)

		job, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
		if err != nil {
			t.Fatalf("level %d: Create: %v", tc.level, err)
		}

		if job.SLAResponseMinutes != tc.wantResponse ||
			job.SLAArrivalMinutes != tc.wantArrival ||
			job.SLACompletionMinutes != tc.wantCompletion ||
			job.SLAPenaltyCents != tc.wantPenaltyCent {
			t.Errorf("level %d: SLA = (%d, %d, %d, %d), want (%d, %d, %d, %d)",
				tc.level,
				job.SLAResponseMinutes, job.SLAArrivalMinutes, job.SLACompletionMinutes, job.SLAPenaltyCents,
				tc.wantResponse, tc.wantArrival, tc.wantCompletion, tc.wantPenaltyCent)
		}
		if job.Status != string(domain.StatusDraft) {
			t.Errorf("level %d: status = %s, want DRAFT", tc.level, job.Status)
		}
	}
}

func TestCreateEmergencyTakesLevelFourSLA(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(2, true)

	req := createRequest(taskID)
	req.IsEmergency = true

	job, err := f.svc.Create(context.Background(), uuid.New(), req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if job.SLAResponseMinutes != 15 || job.SLAPenaltyCents != 25000 {
		t.Fatalf("emergency SLA = (%d, %d), want level-4 row (15, 25000)",
			job.SLAResponseMinutes, job.SLAPenaltyCents)
	}
	if job.Priority != "emergency" {
		t.Fatalf("priority = %s, want emergency", job.Priority)
	}
}

func TestCreateRejectsEmergencyForIneligibleTask(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(2, false)

	req := createRequest(taskID)
	req.IsEmergency = true

	_, err := f.svc.Create(context.Background(), uuid.New(), req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateRejectsInactiveTask(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(1, false)
	task := f.tasks.tasks[taskID]
	task.IsActive = false
	f.tasks.tasks[taskID] = task

	_, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err = %v, want validation error", err)
	}
}

func TestCreateReferenceCodeFormat(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(1, false)

	job, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	pattern := regexp.MustCompile(`^VW-[0-9A-F]{8}$`)
	if !pattern.MatchString(job.ReferenceCode) {
		t.Fatalf("reference code %q does not match VW-XXXXXXXX", job.ReferenceCode)
	}
}

func TestCreateQuotesMidpointOfBasePriceRange(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(2, false)

	job, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if job.QuotedPriceCents == nil || *job.QuotedPriceCents != 20000 {
		t.Fatalf("quoted price = %v, want 20000", job.QuotedPriceCents)
	}
}

func TestCreateNormalizesContactPhone(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(1, false)

	job, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if job.ContactPhone != "+31612345678" {
		t.Fatalf("contact phone = %s, want +31612345678", job.ContactPhone)
	}
}

func TestSubmitPublishesJobSubmitted(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(2, false)

	created, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	f.bus.published = nil

	job, err := f.svc.Submit(context.Background(), created.ID, domain.ActorCustomer)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status != string(domain.StatusPendingMatch) {
		t.Fatalf("status = %s, want PENDING_MATCH", job.Status)
	}

	var names []string
	for _, e := range f.bus.published {
		names = append(names, e.EventName())
	}
	if len(names) != 2 || names[0] != "jobs.status_changed" || names[1] != "jobs.submitted" {
		t.Fatalf("published = %v, want [jobs.status_changed jobs.submitted]", names)
	}
}

func TestTransitionDeniedForSkippedStates(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(1, false)

	created, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	_, err = f.svc.Transition(context.Background(), created.ID, domain.StatusCompleted, domain.ActorCustomer)
	if !apperr.Is(err, apperr.KindInvalidState) {
		t.Fatalf("err = %v, want invalid state error", err)
	}
	if got := f.repo.jobs[created.ID].Status; got != domain.StatusDraft {
		t.Fatalf("status mutated to %s on denied transition", got)
	}
}

func TestTransitionDeniedForWrongActor(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(1, false)

	created, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Only the customer may submit a draft.
	_, err = f.svc.Transition(context.Background(), created.ID, domain.StatusPendingMatch, domain.ActorProvider)
	if !apperr.Is(err, apperr.KindForbidden) {
		t.Fatalf("err = %v, want forbidden error", err)
	}
}

func TestValidTargetsForDraft(t *testing.T) {
	f := newFixture(t)
	taskID := f.addTask(1, false)

	created, err := f.svc.Create(context.Background(), uuid.New(), createRequest(taskID))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	resp, err := f.svc.ValidTargets(context.Background(), created.ID, domain.ActorCustomer)
	if err != nil {
		t.Fatalf("ValidTargets: %v", err)
	}
	if resp.Current != string(domain.StatusDraft) {
		t.Fatalf("current = %s, want DRAFT", resp.Current)
	}

	want := map[string]bool{
		string(domain.StatusPendingMatch):        true,
		string(domain.StatusCancelledByCustomer): true,
	}
	if len(resp.Targets) != len(want) {
		t.Fatalf("targets = %v, want %v", resp.Targets, want)
	}
	for _, target := range resp.Targets {
		if !want[target] {
			t.Fatalf("unexpected target %s in %v", target, resp.Targets)
		}
	}
}
