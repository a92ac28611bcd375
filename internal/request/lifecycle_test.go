package request_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/apperr"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/models"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/repository"
	"github.com/debranko/obedio-yacht-crew-management-sub003/internal/request"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recorder) Publish(_ context.Context, ev models.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *recorder) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []models.EventType{}
	for _, ev := range r.events {
		out = append(out, ev.Type)
	}
	return out
}

// manualClock advances only when told to
type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// flakyStore fails UpdateRequest while failUpdates is set
type flakyStore struct {
	*repository.MemoryRequestsRepo
	mu          sync.Mutex
	failUpdates bool
}

func (f *flakyStore) UpdateRequest(ctx context.Context, r *models.ServiceRequest, from ...models.RequestStatus) error {
	f.mu.Lock()
	fail := f.failUpdates
	f.mu.Unlock()
	if fail {
		return apperr.Transient("update service request", errors.New("connection reset"))
	}
	return f.MemoryRequestsRepo.UpdateRequest(ctx, r, from...)
}

var t0 = time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	lc    *request.Lifecycle
	repo  *repository.MemoryRequestsRepo
	pub   *recorder
	clock *manualClock
}

func newFixture(cfg request.Config) *fixture {
	repo := repository.NewMemoryRequestsRepo()
	pub := &recorder{}
	clock := &manualClock{now: t0}
	lc := request.NewLifecycle(repo, repo, pub, nil, cfg, zap.NewNop())
	lc.Clock = clock.Now
	return &fixture{lc: lc, repo: repo, pub: pub, clock: clock}
}

func TestScenarioA_CreateAcceptCompleteCountdown(t *testing.T) {
	f := newFixture(request.Config{ServingNowTimeout: 5 * time.Second})
	ctx := context.Background()

	req, err := f.lc.Create(ctx, request.CreateInput{GuestName: "Mr. Reed", GuestCabin: "Owner Suite"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityNormal, req.Priority)
	assert.Equal(t, models.StatusPending, req.Status)
	assert.Equal(t, t0, req.CreatedAt)

	f.clock.Set(t0.Add(5 * time.Second))
	accepted, err := f.lc.Accept(ctx, req.ID, "C1")
	require.NoError(t, err)
	assert.Equal(t, "C1", accepted.AssignedTo)
	require.NotNil(t, accepted.AcceptedAt)

	f.clock.Set(t0.Add(65 * time.Second))
	completed, err := f.lc.Complete(ctx, req.ID, "")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, completed.Status)
	assert.Equal(t, t0.Add(5*time.Second), *completed.AcceptedAt, "acceptedAt never changes")

	history, err := f.lc.History(ctx, repository.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, int64(60), history[0].DurationSeconds)
	assert.Equal(t, "C1", history[0].CompletedBy)
	assert.Equal(t, req.ID, history[0].Request.ID)

	assert.Zero(t, f.lc.Sweep(ctx, t0.Add(69*time.Second)), "still visible inside the countdown")
	assert.Len(t, f.lc.Active(), 1)

	assert.Equal(t, 1, f.lc.Sweep(ctx, t0.Add(70*time.Second)))
	assert.Empty(t, f.lc.Active())

	history, err = f.lc.History(ctx, repository.HistoryFilter{})
	require.NoError(t, err)
	assert.Len(t, history, 1, "history survives removal")

	assert.Equal(t, []models.EventType{
		models.EventRequestCreated,
		models.EventRequestAccepted,
		models.EventRequestCompleted,
		models.EventRequestRemoved,
	}, f.pub.types())
}

func TestComplete_FromPendingFails(t *testing.T) {
	f := newFixture(request.Config{})
	ctx := context.Background()

	req, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)

	_, err = f.lc.Complete(ctx, req.ID, "C1")
	var invalid *apperr.InvalidTransitionError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, "pending", invalid.From)
	assert.Equal(t, []string{"accepted", "delegated", "cancelled"}, invalid.Allowed)

	got, err := f.lc.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
}

func TestAccept_TwiceIsConflict(t *testing.T) {
	f := newFixture(request.Config{})
	ctx := context.Background()

	req, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)
	_, err = f.lc.Accept(ctx, req.ID, "C1")
	require.NoError(t, err)

	_, err = f.lc.Accept(ctx, req.ID, "C2")
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, apperr.IsInvalidTransition(err))

	_, err = f.lc.Delegate(ctx, req.ID, "C3")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.lc.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, "C1", got.AssignedTo)
}

func TestAccept_ConcurrentOnlyOneWins(t *testing.T) {
	f := newFixture(request.Config{})
	ctx := context.Background()
	req, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins, conflicts := 0, 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			var err error
			if i%2 == 0 {
				_, err = f.lc.Accept(ctx, req.ID, "crew")
			} else {
				_, err = f.lc.Delegate(ctx, req.ID, "crew")
			}
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if errors.Is(err, apperr.ErrConflict) {
				conflicts++
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, 15, conflicts)
}

func TestAccept_StoreConflictFromAnotherProcess(t *testing.T) {
	f := newFixture(request.Config{})
	ctx := context.Background()
	req, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)

	// another instance accepted it directly in the store
	other := req.Clone()
	other.Status = models.StatusAccepted
	other.AssignedTo = "C9"
	require.NoError(t, f.repo.UpdateRequest(ctx, other, models.StatusPending))

	_, err = f.lc.Accept(ctx, req.ID, "C1")
	assert.ErrorIs(t, err, apperr.ErrConflict)

	got, err := f.lc.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status, "local state untouched by the lost write")
}

func TestFailedWriteLeavesStateUntouched(t *testing.T) {
	repo := repository.NewMemoryRequestsRepo()
	store := &flakyStore{MemoryRequestsRepo: repo}
	pub := &recorder{}
	lc := request.NewLifecycle(store, repo, pub, nil, request.Config{}, zap.NewNop())
	ctx := context.Background()

	req, err := lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)

	store.mu.Lock()
	store.failUpdates = true
	store.mu.Unlock()

	_, err = lc.Accept(ctx, req.ID, "C1")
	require.Error(t, err)
	assert.True(t, apperr.IsTransient(err))

	got, err := lc.Get(req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, got.Status)
	assert.Empty(t, got.AssignedTo)
	assert.Nil(t, got.AcceptedAt)
	assert.Equal(t, []models.EventType{models.EventRequestCreated}, pub.types())
}

func TestStaleReaper(t *testing.T) {
	f := newFixture(request.Config{StaleAssignedThreshold: time.Hour})
	ctx := context.Background()

	req, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)
	_, err = f.lc.Delegate(ctx, req.ID, "C2")
	require.NoError(t, err)
	fresh, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)

	assert.Zero(t, f.lc.Sweep(ctx, t0.Add(time.Hour)))
	assert.Equal(t, 1, f.lc.Sweep(ctx, t0.Add(time.Hour+time.Second)))

	active := f.lc.Active()
	require.Len(t, active, 1)
	assert.Equal(t, fresh.ID, active[0].ID, "pending requests are never reaped")

	_, err = f.lc.Get(req.ID)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestCountdownTimerRemovesRequest(t *testing.T) {
	repo := repository.NewMemoryRequestsRepo()
	pub := &recorder{}
	lc := request.NewLifecycle(repo, repo, pub, nil, request.Config{ServingNowTimeout: 30 * time.Millisecond}, zap.NewNop())
	ctx := context.Background()

	req, err := lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)
	_, err = lc.Accept(ctx, req.ID, "C1")
	require.NoError(t, err)
	_, err = lc.Complete(ctx, req.ID, "C1")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return len(lc.Active()) == 0 }, 2*time.Second, 5*time.Millisecond)
	types := pub.types()
	assert.Equal(t, models.EventRequestRemoved, types[len(types)-1])

	remaining, err := repo.ListActive(ctx)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestCancel(t *testing.T) {
	f := newFixture(request.Config{})
	ctx := context.Background()

	req, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)
	cancelled, err := f.lc.Cancel(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Empty(t, f.lc.Active())

	accepted, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)
	_, err = f.lc.Accept(ctx, accepted.ID, "C1")
	require.NoError(t, err)
	_, err = f.lc.Cancel(ctx, accepted.ID)
	assert.True(t, apperr.IsInvalidTransition(err))
}

// keepingStore remembers the last request value handed to UpdateRequest
type keepingStore struct {
	*repository.MemoryRequestsRepo
	last *models.ServiceRequest
}

func (k *keepingStore) UpdateRequest(ctx context.Context, r *models.ServiceRequest, from ...models.RequestStatus) error {
	k.last = r
	return k.MemoryRequestsRepo.UpdateRequest(ctx, r, from...)
}

func TestCancel_ReturnsDetachedCopy(t *testing.T) {
	repo := repository.NewMemoryRequestsRepo()
	store := &keepingStore{MemoryRequestsRepo: repo}
	lc := request.NewLifecycle(store, repo, &recorder{}, nil, request.Config{}, zap.NewNop())
	ctx := context.Background()

	req, err := lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)
	cancelled, err := lc.Cancel(ctx, req.ID)
	require.NoError(t, err)
	require.NotNil(t, store.last)
	assert.NotSame(t, store.last, cancelled)

	cancelled.Status = models.StatusPending
	assert.Equal(t, models.StatusCancelled, store.last.Status)
}

func TestCreate_PriorityRules(t *testing.T) {
	f := newFixture(request.Config{})
	ctx := context.Background()

	emergency, err := f.lc.Create(ctx, request.CreateInput{Emergency: true, Priority: models.PriorityNormal})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityEmergency, emergency.Priority)

	urgent, err := f.lc.Create(ctx, request.CreateInput{Priority: models.PriorityUrgent})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityUrgent, urgent.Priority)

	unknown, err := f.lc.Create(ctx, request.CreateInput{Priority: "whenever"})
	require.NoError(t, err)
	assert.Equal(t, models.PriorityNormal, unknown.Priority)
	assert.Equal(t, "Guest", unknown.GuestName)
	assert.Equal(t, "Unknown", unknown.GuestCabin)
}

func TestClearHistoryAndClearAll(t *testing.T) {
	f := newFixture(request.Config{})
	ctx := context.Background()

	req, err := f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)
	_, err = f.lc.Accept(ctx, req.ID, "C1")
	require.NoError(t, err)
	_, err = f.lc.Complete(ctx, req.ID, "C1")
	require.NoError(t, err)
	_, err = f.lc.Create(ctx, request.CreateInput{})
	require.NoError(t, err)

	require.NoError(t, f.lc.ClearHistory(ctx))
	history, err := f.lc.History(ctx, repository.HistoryFilter{})
	require.NoError(t, err)
	assert.Empty(t, history)

	n, err := f.lc.ClearAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Empty(t, f.lc.Active())
}

func TestLoadRestoresActiveSet(t *testing.T) {
	f := newFixture(request.Config{ServingNowTimeout: 5 * time.Second})
	ctx := context.Background()

	completedAt := t0.Add(-time.Second)
	acceptedAt := t0.Add(-time.Minute)
	require.NoError(t, f.repo.InsertRequest(ctx, &models.ServiceRequest{ID: "done", Status: models.StatusCompleted, AcceptedAt: &acceptedAt, CompletedAt: &completedAt, CreatedAt: acceptedAt}))
	require.NoError(t, f.repo.InsertRequest(ctx, &models.ServiceRequest{ID: "open", Status: models.StatusPending, CreatedAt: t0}))

	require.NoError(t, f.lc.Load(ctx))
	assert.Len(t, f.lc.Active(), 2)

	assert.Equal(t, 1, f.lc.Sweep(ctx, t0.Add(4*time.Second)))
	_, err := f.lc.Get("open")
	assert.NoError(t, err)
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(request.Config{ReaperTick: 5 * time.Millisecond})
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.lc.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("reaper did not stop")
	}
}
