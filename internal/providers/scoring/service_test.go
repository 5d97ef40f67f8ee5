package scoring

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"vakwerk_backend/internal/events"
	"vakwerk_backend/internal/providers/repository"
	"vakwerk_backend/platform/apperr"
	"vakwerk_backend/platform/logger"
)

type fakeProviderStore struct {
	providers map[uuid.UUID]repository.Provider
	penalties *fakePenaltyStore
	// conflictsRemaining makes score writes fail with a conflict this many
	// times before succeeding, to exercise the retry path.
	conflictsRemaining int
	updateCalls        int
	// recordErr fails the penalty write after all guards pass; the score
	// must stay untouched, mirroring the transactional rollback.
	recordErr error
}

func (f *fakeProviderStore) GetByID(_ context.Context, id uuid.UUID) (repository.Provider, error) {
	p, ok := f.providers[id]
	if !ok {
		return repository.Provider{}, apperr.NotFound("provider not found")
	}
	return p, nil
}

func (f *fakeProviderStore) ListMatchable(context.Context) ([]repository.Provider, error) {
	out := make([]repository.Provider, 0, len(f.providers))
	for _, p := range f.providers {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeProviderStore) ListActiveIDs(context.Context) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(f.providers))
	for id := range f.providers {
		ids = append(ids, id)
	}
	return ids, nil
}

func (f *fakeProviderStore) UpdateScore(_ context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64) error {
	f.updateCalls++
	if f.conflictsRemaining > 0 {
		f.conflictsRemaining--
		return apperr.Conflict("provider score changed concurrently")
	}
	p, ok := f.providers[id]
	if !ok {
		return apperr.NotFound("provider not found")
	}
	if p.InternalScore != expectedScore {
		return apperr.Conflict("provider score changed concurrently")
	}
	p.InternalScore = newScore
	if newStatus != nil {
		p.Status = *newStatus
	}
	f.providers[id] = p
	return nil
}

func (f *fakeProviderStore) UpdateScoreWithRecord(ctx context.Context, id uuid.UUID, newScore float64, newStatus *string, expectedScore float64, record repository.PenaltyRecord) (repository.PenaltyRecord, error) {
	f.updateCalls++
	if f.conflictsRemaining > 0 {
		f.conflictsRemaining--
		return repository.PenaltyRecord{}, apperr.Conflict("provider score changed concurrently")
	}
	p, ok := f.providers[id]
	if !ok {
		return repository.PenaltyRecord{}, apperr.NotFound("provider not found")
	}
	if p.InternalScore != expectedScore {
		return repository.PenaltyRecord{}, apperr.Conflict("provider score changed concurrently")
	}
	if f.recordErr != nil {
		return repository.PenaltyRecord{}, f.recordErr
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
	records []repository.PenaltyRecord
	lastAt  *time.Time
}

func (f *fakePenaltyStore) Record(_ context.Context, record repository.PenaltyRecord) (repository.PenaltyRecord, error) {
	record.ID = uuid.New()
	record.AppliedAt = time.Now()
	f.records = append(f.records, record)
	return record, nil
}

func (f *fakePenaltyStore) List(_ context.Context, providerID uuid.UUID) ([]repository.PenaltyRecord, error) {
	out := make([]repository.PenaltyRecord, 0)
	for i := len(f.records) - 1; i >= 0; i-- {
		if f.records[i].ProviderID == providerID {
			out = append(out, f.records[i])
		}
	}
	return out, nil
}

func (f *fakePenaltyStore) LastAppliedAt(_ context.Context, providerID uuid.UUID) (*time.Time, error) {
	if f.lastAt != nil {
		return f.lastAt, nil
	}
	var last *time.Time
	for _, r := range f.records {
		if r.ProviderID != providerID {
			continue
		}
		t := r.AppliedAt
		if last == nil || t.After(*last) {
			last = &t
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

type fakeBus struct {
	published []events.Event
}

func (f *fakeBus) Publish(_ context.Context, e events.Event) {
	f.published = append(f.published, e)
}

func (f *fakeBus) PublishSync(_ context.Context, e events.Event) error {
	f.published = append(f.published, e)
	return nil
}

func (f *fakeBus) Subscribe(string, events.Handler) {}

func (f *fakeBus) names() []string {
	out := make([]string, 0, len(f.published))
	for _, e := range f.published {
		out = append(out, e.EventName())
	}
	return out
}

func newTestService(providers map[uuid.UUID]repository.Provider) (*Service, *fakeProviderStore, *fakePenaltyStore, *fakeBus) {
	penalties := &fakePenaltyStore{}
	store := &fakeProviderStore{providers: providers, penalties: penalties}
	bus := &fakeBus{}
	svc := New(store, penalties, bus, logger.New("development"))
	return svc, store, penalties, bus
}

func activeProvider(level int, score float64) repository.Provider {
	return repository.Provider{
		ID:            uuid.New(),
		Name:          "Jansen Installaties",
		CurrentLevel:  level,
		InternalScore: score,
		Status:        repository.StatusActive,
	}
}

func TestApplyPenaltyDeductsLevelPoints(t *testing.T) {
	tests := []struct {
		name        string
		level       int
		score       float64
		penaltyType string
		wantScore   float64
	}{
		{"level 1 response timeout", 1, 70, PenaltyResponseTimeout, 68},
		{"level 2 cancellation", 2, 75, PenaltyCancellation, 69},
		{"level 3 no show", 3, 80, PenaltyNoShow, 60},
		{"level 3 bad review", 3, 80, PenaltyBadReview, 70},
		{"level 4 sla breach", 4, 100, PenaltySLABreach, 70},
		{"level 4 cancellation", 4, 100, PenaltyCancellation, 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := activeProvider(tt.level, tt.score)
			svc, store, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

			result, err := svc.ApplyPenalty(context.Background(), provider.ID, tt.penaltyType, nil, nil)
			if err != nil {
				t.Fatalf("ApplyPenalty() error = %v", err)
			}
			if result.NewScore != tt.wantScore {
				t.Errorf("NewScore = %v, want %v", result.NewScore, tt.wantScore)
			}
			if result.PreviousScore != tt.score {
				t.Errorf("PreviousScore = %v, want %v", result.PreviousScore, tt.score)
			}
			if got := store.providers[provider.ID].InternalScore; got != tt.wantScore {
				t.Errorf("persisted score = %v, want %v", got, tt.wantScore)
			}
		})
	}
}

func TestApplyPenaltyClampsAtFloorAndSuspends(t *testing.T) {
	// Level 1 floor is 40; a no-show from 45 lands exactly on the floor.
	provider := activeProvider(1, 45)
	svc, store, _, bus := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

	result, err := svc.ApplyPenalty(context.Background(), provider.ID, PenaltyNoShow, nil, nil)
	if err != nil {
		t.Fatalf("ApplyPenalty() error = %v", err)
	}
	if result.NewScore != 40 {
		t.Errorf("NewScore = %v, want 40", result.NewScore)
	}
	if !result.IsExpelled {
		t.Error("IsExpelled = false, want true at level floor")
	}
	if got := store.providers[provider.ID].Status; got != repository.StatusSuspended {
		t.Errorf("status = %q, want %q", got, repository.StatusSuspended)
	}

	names := bus.names()
	if len(names) != 2 || names[0] != "scoring.penalty_applied" || names[1] != "scoring.provider_expelled" {
		t.Errorf("published events = %v, want [scoring.penalty_applied scoring.provider_expelled]", names)
	}
}

func TestApplyPenaltyLevel4NoShowZeroTolerance(t *testing.T) {
	// Perfect score does not matter; the score is forced to zero.
	provider := activeProvider(4, 100)
	svc, store, penalties, bus := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

	result, err := svc.ApplyPenalty(context.Background(), provider.ID, PenaltyNoShow, nil, nil)
	if err != nil {
		t.Fatalf("ApplyPenalty() error = %v", err)
	}
	if result.NewScore != 0 {
		t.Errorf("NewScore = %v, want 0", result.NewScore)
	}
	if !result.IsExpelled {
		t.Error("IsExpelled = false, want true")
	}
	if got := store.providers[provider.ID].Status; got != repository.StatusSuspended {
		t.Errorf("status = %q, want %q", got, repository.StatusSuspended)
	}
	if len(penalties.records) != 1 {
		t.Fatalf("penalty records = %d, want 1", len(penalties.records))
	}
	if penalties.records[0].NewScore != 0 {
		t.Errorf("recorded NewScore = %v, want 0", penalties.records[0].NewScore)
	}

	found := false
	for _, name := range bus.names() {
		if name == "scoring.provider_expelled" {
			found = true
		}
	}
	if !found {
		t.Error("scoring.provider_expelled event not published")
	}
}

func TestApplyPenaltyUnknownType(t *testing.T) {
	provider := activeProvider(1, 70)
	svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

	_, err := svc.ApplyPenalty(context.Background(), provider.ID, "tardiness", nil, nil)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("error kind = %v, want validation", err)
	}
}

func TestApplyPenaltyTypeNotApplicableToLevel(t *testing.T) {
	// sla_breach only exists for level 4; bad_review does not exist there.
	provider := activeProvider(1, 70)
	svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})
	if _, err := svc.ApplyPenalty(context.Background(), provider.ID, PenaltySLABreach, nil, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("level 1 sla_breach error kind = %v, want validation", err)
	}

	level4 := activeProvider(4, 90)
	svc4, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{level4.ID: level4})
	if _, err := svc4.ApplyPenalty(context.Background(), level4.ID, PenaltyBadReview, nil, nil); !apperr.Is(err, apperr.KindValidation) {
		t.Errorf("level 4 bad_review error kind = %v, want validation", err)
	}
}

func TestApplyPenaltyRetriesOnConflict(t *testing.T) {
	provider := activeProvider(2, 75)
	svc, store, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})
	store.conflictsRemaining = 2

	result, err := svc.ApplyPenalty(context.Background(), provider.ID, PenaltyCancellation, nil, nil)
	if err != nil {
		t.Fatalf("ApplyPenalty() error = %v", err)
	}
	if result.NewScore != 69 {
		t.Errorf("NewScore = %v, want 69", result.NewScore)
	}
	if store.updateCalls != 3 {
		t.Errorf("update calls = %d, want 3", store.updateCalls)
	}
}

func TestApplyPenaltyKeepsScoreWhenRecordFails(t *testing.T) {
	provider := activeProvider(2, 80)
	svc, store, penalties, bus := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})
	store.recordErr = errors.New("insert failed")

	_, err := svc.ApplyPenalty(context.Background(), provider.ID, PenaltyResponseTimeout, nil, nil)
	if err == nil {
		t.Fatal("ApplyPenalty() error = nil, want record failure")
	}
	if got := store.providers[provider.ID].InternalScore; got != 80 {
		t.Errorf("score = %v, want 80 untouched after rollback", got)
	}
	if len(penalties.records) != 0 {
		t.Errorf("penalty records = %d, want 0", len(penalties.records))
	}
	if len(bus.published) != 0 {
		t.Errorf("published events = %v, want none", bus.names())
	}
}

func TestApplyPenaltyGivesUpAfterRetries(t *testing.T) {
	provider := activeProvider(2, 75)
	svc, store, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})
	store.conflictsRemaining = 10

	_, err := svc.ApplyPenalty(context.Background(), provider.ID, PenaltyCancellation, nil, nil)
	if !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("error kind = %v, want conflict", err)
	}
}

func TestNormalizeRecoversTowardBase(t *testing.T) {
	provider := activeProvider(1, 60)
	svc, store, penalties, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

	// Last penalty three weeks ago.
	threeWeeksAgo := time.Now().Add(-21 * 24 * time.Hour)
	penalties.lastAt = &threeWeeksAgo

	result, err := svc.Normalize(context.Background(), provider.ID)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.PointsRecovered != 5 {
		t.Errorf("PointsRecovered = %v, want 5", result.PointsRecovered)
	}
	if result.NewScore != 65 {
		t.Errorf("NewScore = %v, want 65", result.NewScore)
	}
	if result.IncidentFreeWeeks != 3 {
		t.Errorf("IncidentFreeWeeks = %d, want 3", result.IncidentFreeWeeks)
	}
	if got := store.providers[provider.ID].InternalScore; got != 65 {
		t.Errorf("persisted score = %v, want 65", got)
	}
}

func TestNormalizeNeverExceedsBase(t *testing.T) {
	// Level 2 base is 75; from 72 recovery must stop at the base, not 77.
	provider := activeProvider(2, 72)
	svc, _, penalties, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})
	eightDaysAgo := time.Now().Add(-8 * 24 * time.Hour)
	penalties.lastAt = &eightDaysAgo

	result, err := svc.Normalize(context.Background(), provider.ID)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.NewScore != 75 {
		t.Errorf("NewScore = %v, want base 75", result.NewScore)
	}
	if result.PointsRecovered != 3 {
		t.Errorf("PointsRecovered = %v, want 3", result.PointsRecovered)
	}
}

func TestNormalizeNoOpAtOrAboveBase(t *testing.T) {
	provider := activeProvider(3, 85)
	svc, store, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

	result, err := svc.Normalize(context.Background(), provider.ID)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.PointsRecovered != 0 {
		t.Errorf("PointsRecovered = %v, want 0", result.PointsRecovered)
	}
	if store.updateCalls != 0 {
		t.Errorf("update calls = %d, want 0", store.updateCalls)
	}
}

func TestNormalizeNoOpWithinIncidentWeek(t *testing.T) {
	provider := activeProvider(1, 60)
	svc, _, penalties, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})
	threeDaysAgo := time.Now().Add(-3 * 24 * time.Hour)
	penalties.lastAt = &threeDaysAgo

	result, err := svc.Normalize(context.Background(), provider.ID)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.PointsRecovered != 0 {
		t.Errorf("PointsRecovered = %v, want 0", result.PointsRecovered)
	}
	if result.IncidentFreeWeeks != 0 {
		t.Errorf("IncidentFreeWeeks = %d, want 0", result.IncidentFreeWeeks)
	}
}

func TestNormalizeCleanHistoryCapsAtMaxWeeks(t *testing.T) {
	provider := activeProvider(1, 50)
	svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

	result, err := svc.Normalize(context.Background(), provider.ID)
	if err != nil {
		t.Fatalf("Normalize() error = %v", err)
	}
	if result.IncidentFreeWeeks != maxIncidentFreeWeeks {
		t.Errorf("IncidentFreeWeeks = %d, want %d", result.IncidentFreeWeeks, maxIncidentFreeWeeks)
	}
	if result.PointsRecovered != 5 {
		t.Errorf("PointsRecovered = %v, want 5", result.PointsRecovered)
	}
}

func TestAdjustManuallyClampsToLevelRange(t *testing.T) {
	admin := uuid.New()

	t.Run("large negative delta clamps to floor", func(t *testing.T) {
		provider := activeProvider(1, 70)
		svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

		result, err := svc.AdjustManually(context.Background(), provider.ID, -100, admin, "repeated customer complaints")
		if err != nil {
			t.Fatalf("AdjustManually() error = %v", err)
		}
		if result.NewScore != 40 {
			t.Errorf("NewScore = %v, want floor 40", result.NewScore)
		}
	})

	t.Run("large positive delta clamps to ceiling", func(t *testing.T) {
		provider := activeProvider(3, 90)
		svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

		result, err := svc.AdjustManually(context.Background(), provider.ID, 50, admin, "goodwill after platform outage")
		if err != nil {
			t.Fatalf("AdjustManually() error = %v", err)
		}
		if result.NewScore != 98 {
			t.Errorf("NewScore = %v, want ceiling 98", result.NewScore)
		}
	})
}

func TestAdjustManuallyRequiresReason(t *testing.T) {
	provider := activeProvider(1, 70)
	svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

	for _, reason := range []string{"", "   "} {
		if _, err := svc.AdjustManually(context.Background(), provider.ID, 5, uuid.New(), reason); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("reason %q: error kind = %v, want validation", reason, err)
		}
	}
}

func TestCheckExpulsion(t *testing.T) {
	t.Run("suspended provider", func(t *testing.T) {
		provider := activeProvider(2, 80)
		provider.Status = repository.StatusSuspended
		svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

		expelled, err := svc.CheckExpulsion(context.Background(), provider.ID)
		if err != nil {
			t.Fatalf("CheckExpulsion() error = %v", err)
		}
		if !expelled {
			t.Error("expelled = false, want true for suspended provider")
		}
	})

	t.Run("score at floor", func(t *testing.T) {
		provider := activeProvider(2, 50)
		svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

		expelled, err := svc.CheckExpulsion(context.Background(), provider.ID)
		if err != nil {
			t.Fatalf("CheckExpulsion() error = %v", err)
		}
		if !expelled {
			t.Error("expelled = false, want true at level floor")
		}
	})

	t.Run("level 4 with historic no show", func(t *testing.T) {
		provider := activeProvider(4, 95)
		svc, _, penalties, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})
		penalties.records = append(penalties.records, repository.PenaltyRecord{
			ProviderID: provider.ID, PenaltyType: PenaltyNoShow, AppliedAt: time.Now().Add(-90 * 24 * time.Hour),
		})

		expelled, err := svc.CheckExpulsion(context.Background(), provider.ID)
		if err != nil {
			t.Fatalf("CheckExpulsion() error = %v", err)
		}
		if !expelled {
			t.Error("expelled = false, want true for level 4 no show history")
		}
	})

	t.Run("healthy provider", func(t *testing.T) {
		provider := activeProvider(3, 85)
		svc, _, _, _ := newTestService(map[uuid.UUID]repository.Provider{provider.ID: provider})

		expelled, err := svc.CheckExpulsion(context.Background(), provider.ID)
		if err != nil {
			t.Fatalf("CheckExpulsion() error = %v", err)
		}
		if expelled {
			t.Error("expelled = true, want false")
		}
	})
}
