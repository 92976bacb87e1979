package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"field-attendance-api-server/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, s Store) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	suffix := uuid.NewString()[:8]

	t.Run("zones are listed in creation order and filtered by active", func(t *testing.T) {
		ids := []string{"ZONE-B-" + suffix, "ZONE-A-" + suffix, "ZONE-C-" + suffix}
		for i, id := range ids {
			require.NoError(t, s.CreateZone(ctx, models.Zone{
				ID:        id,
				Name:      id,
				Vertices:  []models.LatLng{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}},
				Active:    i != 2,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
				UpdatedAt: base,
			}))
		}

		active, err := s.ListZones(ctx, true)
		require.NoError(t, err)
		var got []string
		for _, z := range active {
			if z.Name == ids[0] || z.Name == ids[1] || z.Name == ids[2] {
				got = append(got, z.ID)
			}
		}
		assert.Equal(t, ids[:2], got)

		z, err := s.SetZoneActive(ctx, ids[0], false, base.Add(time.Hour))
		require.NoError(t, err)
		assert.False(t, z.Active)
		z, err = s.SetZoneActive(ctx, ids[0], false, base.Add(2*time.Hour))
		require.NoError(t, err)
		assert.False(t, z.Active)

		_, err = s.SetZoneActive(ctx, "ZONE-missing-"+suffix, true, base)
		assert.ErrorIs(t, err, ErrNotFound)

		removed, err := s.DeleteZone(ctx, ids[1])
		require.NoError(t, err)
		assert.True(t, removed)
		removed, err = s.DeleteZone(ctx, ids[1])
		require.NoError(t, err)
		assert.False(t, removed)

		assert.ErrorIs(t, s.UpdateZone(ctx, models.Zone{ID: ids[1], Name: "x"}), ErrNotFound)
	})

	t.Run("one open record per employee", func(t *testing.T) {
		emp := "emp-" + suffix
		rec := models.AttendanceRecord{
			ID:          "ATT-1-" + suffix,
			EmployeeRef: emp,
			CheckInTime: base,
			Status:      models.StatusCheckedIn,
			Location:    models.Location{Lat: 1, Lng: 2},
		}
		require.NoError(t, s.InsertOpenRecord(ctx, rec))

		dup := rec
		dup.ID = "ATT-2-" + suffix
		assert.ErrorIs(t, s.InsertOpenRecord(ctx, dup), ErrOpenRecordExists)

		open, err := s.FindOpenRecord(ctx, emp)
		require.NoError(t, err)
		assert.Equal(t, rec.ID, open.ID)

		closed, err := s.CloseRecord(ctx, rec.ID, base.Add(8*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, models.StatusCheckedOut, closed.Status)
		require.NotNil(t, closed.CheckOutTime)

		_, err = s.CloseRecord(ctx, rec.ID, base.Add(9*time.Hour))
		assert.ErrorIs(t, err, ErrConflict)
		_, err = s.CloseRecord(ctx, "ATT-missing-"+suffix, base)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = s.FindOpenRecord(ctx, emp)
		assert.ErrorIs(t, err, ErrNotFound)

		// The slot is free again after check-out.
		require.NoError(t, s.InsertOpenRecord(ctx, dup))
		history, err := s.ListRecords(ctx, emp, 10)
		require.NoError(t, err)
		require.Len(t, history, 2)
		assert.Equal(t, dup.ID, history[0].ID)
		assert.Equal(t, 8*time.Hour, history[1].Duration())
	})

	t.Run("concurrent inserts keep a single open record", func(t *testing.T) {
		emp := "emp-race-" + suffix
		var wg sync.WaitGroup
		results := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results <- s.InsertOpenRecord(ctx, models.AttendanceRecord{
					ID:          fmt.Sprintf("ATT-race-%d-%s", i, suffix),
					EmployeeRef: emp,
					CheckInTime: base,
					Status:      models.StatusCheckedIn,
				})
			}(i)
		}
		wg.Wait()
		close(results)

		ok := 0
		for err := range results {
			if err == nil {
				ok++
				continue
			}
			assert.ErrorIs(t, err, ErrOpenRecordExists)
		}
		assert.Equal(t, 1, ok)
	})

	t.Run("task status compare and swap", func(t *testing.T) {
		emp := "emp-task-" + suffix
		_, err := s.GetTaskStatus(ctx, emp)
		assert.ErrorIs(t, err, ErrNotFound)

		started := base
		ref := "TASK-1"
		require.NoError(t, s.SwapTaskStatus(ctx, models.TaskIdle, models.TaskStatus{
			EmployeeRef: emp, Status: models.TaskStarted, ActiveTaskRef: &ref, StartedAt: &started, UpdatedAt: base,
		}))
		assert.ErrorIs(t, s.SwapTaskStatus(ctx, models.TaskIdle, models.TaskStatus{
			EmployeeRef: emp, Status: models.TaskStarted, UpdatedAt: base,
		}), ErrConflict)
		require.NoError(t, s.SwapTaskStatus(ctx, models.TaskStarted, models.TaskStatus{
			EmployeeRef: emp, Status: models.TaskInProgress, ActiveTaskRef: &ref, StartedAt: &started, UpdatedAt: base,
		}))

		ts, err := s.GetTaskStatus(ctx, emp)
		require.NoError(t, err)
		assert.Equal(t, models.TaskInProgress, ts.Status)
		require.NotNil(t, ts.ActiveTaskRef)
		assert.Equal(t, ref, *ts.ActiveTaskRef)
	})

	t.Run("users are unique by email", func(t *testing.T) {
		u := models.User{Email: "a-" + suffix + "@example.com", Role: "employee", EmployeeRef: "emp-u-" + suffix}
		require.NoError(t, s.CreateUser(ctx, u))
		assert.ErrorIs(t, s.CreateUser(ctx, u), ErrConflict)
		got, err := s.FindUserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.EmployeeRef, got.EmployeeRef)
	})

	t.Run("users are unique by employee ref", func(t *testing.T) {
		u := models.User{Email: "b-" + suffix + "@example.com", Role: "employee", EmployeeRef: "emp-v-" + suffix}
		require.NoError(t, s.CreateUser(ctx, u))
		u.Email = "c-" + suffix + "@example.com"
		assert.ErrorIs(t, s.CreateUser(ctx, u), ErrConflict)
		_, err := s.FindUserByEmail(ctx, u.Email)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemoryStore())
}

func TestMemoryStoreCountOpenRecords(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, s.InsertOpenRecord(ctx, models.AttendanceRecord{ID: "a", EmployeeRef: "e", Status: models.StatusCheckedIn}))
	assert.Equal(t, 1, s.CountOpenRecords("e"))
	_, err := s.CloseRecord(ctx, "a", time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0, s.CountOpenRecords("e"))
}

func TestMongoStoreContract(t *testing.T) {
	uri := os.Getenv("TEST_MONGO_URI")
	if uri == "" {
		t.Skip("TEST_MONGO_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s, err := NewMongoStore(ctx, uri, "attendance_test_"+uuid.NewString()[:8])
	require.NoError(t, err)
	defer func() {
		_ = s.Database().Drop(context.Background())
		_ = s.Close(context.Background())
	}()
	runStoreContract(t, s)
}

func TestPostgresStoreContract(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set")
	}
	s, err := ConnectPostgres(dsn, 3, time.Second)
	require.NoError(t, err)
	defer s.Close(context.Background())
	runStoreContract(t, s)
}
