package taskguard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"field-attendance-api-server/internal/apperr"
	"field-attendance-api-server/internal/models"
	"field-attendance-api-server/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type events struct {
	mu    sync.Mutex
	names []string
}

func (e *events) Publish(employeeRef, event string, _ any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.names = append(e.names, employeeRef+":"+event)
}

func newGuard() (*Guard, *store.MemoryStore, *events) {
	st := store.NewMemoryStore()
	ev := &events{}
	clock := func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) }
	return NewGuard(st, ev, nil, nil, clock), st, ev
}

func ref(s string) *string { return &s }

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to models.TaskState
		want     bool
	}{
		{models.TaskIdle, models.TaskStarted, true},
		{models.TaskStarted, models.TaskInProgress, true},
		{models.TaskStarted, models.TaskCompleted, true},
		{models.TaskInProgress, models.TaskCompleted, true},
		{models.TaskCompleted, models.TaskIdle, true},
		{models.TaskInProgress, models.TaskInProgress, true},
		{models.TaskIdle, models.TaskCompleted, false},
		{models.TaskIdle, models.TaskInProgress, false},
		{models.TaskInProgress, models.TaskIdle, false},
		{models.TaskCompleted, models.TaskStarted, true},
		{models.TaskInProgress, models.TaskStarted, false},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, CanTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestMissingRowIsIdle(t *testing.T) {
	g, _, _ := newGuard()
	ctx := context.Background()

	ts, err := g.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskIdle, ts.Status)

	ok, err := g.CanLogout(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, ok)
	active, err := g.IsTaskActive(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, active)
	assert.NoError(t, g.CheckLogout(ctx, "emp-1"))
}

func TestTaskCycle(t *testing.T) {
	g, _, ev := newGuard()
	ctx := context.Background()

	ok, err := g.UpdateStatus(ctx, "emp-1", models.TaskStarted, ref("T-42"))
	require.NoError(t, err)
	assert.True(t, ok)

	ts, err := g.Get(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, ts.StartedAt)
	require.NotNil(t, ts.ActiveTaskRef)
	assert.Equal(t, "T-42", *ts.ActiveTaskRef)
	startedAt := *ts.StartedAt

	canLogout, err := g.CanLogout(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, canLogout)

	ok, err = g.UpdateStatus(ctx, "emp-1", models.TaskInProgress, nil)
	require.NoError(t, err)
	assert.True(t, ok)
	ts, err = g.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, startedAt, *ts.StartedAt)
	assert.Equal(t, "T-42", *ts.ActiveTaskRef)

	active, err := g.IsTaskActive(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, active)

	_, err = g.UpdateStatus(ctx, "emp-1", models.TaskCompleted, nil)
	require.NoError(t, err)
	canLogout, err = g.CanLogout(ctx, "emp-1")
	require.NoError(t, err)
	assert.True(t, canLogout)

	_, err = g.UpdateStatus(ctx, "emp-1", models.TaskIdle, nil)
	require.NoError(t, err)
	ts, err = g.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskIdle, ts.Status)
	assert.Nil(t, ts.ActiveTaskRef)
	assert.Nil(t, ts.StartedAt)

	assert.Len(t, ev.names, 4)
	assert.Equal(t, "emp-1:task.status", ev.names[0])
}

func TestStartAfterCompleted(t *testing.T) {
	g, _, _ := newGuard()
	clock := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return clock }
	ctx := context.Background()

	_, err := g.UpdateStatus(ctx, "emp-1", models.TaskStarted, ref("T-1"))
	require.NoError(t, err)
	_, err = g.UpdateStatus(ctx, "emp-1", models.TaskCompleted, nil)
	require.NoError(t, err)

	clock = clock.Add(2 * time.Hour)
	ok, err := g.UpdateStatus(ctx, "emp-1", models.TaskStarted, nil)
	require.NoError(t, err)
	assert.True(t, ok)

	ts, err := g.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStarted, ts.Status)
	require.NotNil(t, ts.StartedAt)
	assert.Equal(t, clock, *ts.StartedAt)
	assert.Nil(t, ts.ActiveTaskRef)

	canLogout, err := g.CanLogout(ctx, "emp-1")
	require.NoError(t, err)
	assert.False(t, canLogout)

	_, err = g.UpdateStatus(ctx, "emp-1", models.TaskCompleted, nil)
	require.NoError(t, err)
	_, err = g.UpdateStatus(ctx, "emp-1", models.TaskStarted, ref("T-2"))
	require.NoError(t, err)
	ts, err = g.Get(ctx, "emp-1")
	require.NoError(t, err)
	require.NotNil(t, ts.ActiveTaskRef)
	assert.Equal(t, "T-2", *ts.ActiveTaskRef)
}

func TestInvalidTransition(t *testing.T) {
	g, _, ev := newGuard()
	ctx := context.Background()

	ok, err := g.UpdateStatus(ctx, "emp-1", models.TaskCompleted, nil)
	assert.False(t, ok)
	assert.ErrorIs(t, err, apperr.ErrInvalidTransition)
	assert.Empty(t, ev.names)

	_, err = g.UpdateStatus(ctx, "emp-1", models.TaskState("paused"), nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = g.UpdateStatus(ctx, " ", models.TaskStarted, nil)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestCheckLogoutExplains(t *testing.T) {
	g, _, _ := newGuard()
	ctx := context.Background()

	_, err := g.UpdateStatus(ctx, "emp-1", models.TaskStarted, ref("T-7"))
	require.NoError(t, err)
	_, err = g.UpdateStatus(ctx, "emp-1", models.TaskInProgress, nil)
	require.NoError(t, err)

	err = g.CheckLogout(ctx, "emp-1")
	require.ErrorIs(t, err, apperr.ErrLogoutBlocked)
	assert.Contains(t, err.Error(), "task T-7 is in progress")

	_, err = g.UpdateStatus(ctx, "emp-2", models.TaskStarted, nil)
	require.NoError(t, err)
	err = g.CheckLogout(ctx, "emp-2")
	require.ErrorIs(t, err, apperr.ErrLogoutBlocked)
	assert.Contains(t, err.Error(), "a field task is started")
}

func TestConcurrentStartsOneWins(t *testing.T) {
	g, _, _ := newGuard()
	ctx := context.Background()

	var wg sync.WaitGroup
	results := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := g.UpdateStatus(ctx, "emp-1", models.TaskStarted, nil)
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	// Every caller either wins, refreshes after the winner, or loses the swap.
	for err := range results {
		if err != nil {
			assert.ErrorIs(t, err, apperr.ErrConflict)
		}
	}
	ts, err := g.Get(ctx, "emp-1")
	require.NoError(t, err)
	assert.Equal(t, models.TaskStarted, ts.Status)
}

type brokenStore struct{ store.TaskStatusStore }

func (brokenStore) GetTaskStatus(context.Context, string) (models.TaskStatus, error) {
	return models.TaskStatus{}, errors.New("dial tcp: refused")
}

func TestBackendFailure(t *testing.T) {
	g := NewGuard(brokenStore{}, nil, nil, nil, nil)
	_, err := g.CanLogout(context.Background(), "emp-1")
	assert.ErrorIs(t, err, apperr.ErrBackendUnavailable)
	assert.ErrorIs(t, g.CheckLogout(context.Background(), "emp-1"), apperr.ErrBackendUnavailable)
}
