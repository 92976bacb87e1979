package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"field-attendance-api-server/internal/models"
)

type MemoryStore struct {
	mu      sync.Mutex
	zones   map[string]models.Zone
	records map[string]models.AttendanceRecord
	open    map[string]string
	tasks   map[string]models.TaskStatus
	users   map[string]models.User
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		zones:   make(map[string]models.Zone),
		records: make(map[string]models.AttendanceRecord),
		open:    make(map[string]string),
		tasks:   make(map[string]models.TaskStatus),
		users:   make(map[string]models.User),
	}
}

func (m *MemoryStore) Close(context.Context) error { return nil }

func (m *MemoryStore) CreateZone(_ context.Context, zone models.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[zone.ID]; ok {
		return ErrConflict
	}
	m.zones[zone.ID] = cloneZone(zone)
	return nil
}

func (m *MemoryStore) UpdateZone(_ context.Context, zone models.Zone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.zones[zone.ID]
	if !ok {
		return ErrNotFound
	}
	cur.Name = zone.Name
	cur.Vertices = append([]models.LatLng(nil), zone.Vertices...)
	cur.UpdatedAt = zone.UpdatedAt
	m.zones[zone.ID] = cur
	return nil
}

func (m *MemoryStore) DeleteZone(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.zones[id]; !ok {
		return false, nil
	}
	delete(m.zones, id)
	return true, nil
}

func (m *MemoryStore) SetZoneActive(_ context.Context, id string, active bool, at time.Time) (models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	zone, ok := m.zones[id]
	if !ok {
		return models.Zone{}, ErrNotFound
	}
	if zone.Active != active {
		zone.Active = active
		zone.UpdatedAt = at
		m.zones[id] = zone
	}
	return cloneZone(zone), nil
}

func (m *MemoryStore) GetZone(_ context.Context, id string) (models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	zone, ok := m.zones[id]
	if !ok {
		return models.Zone{}, ErrNotFound
	}
	return cloneZone(zone), nil
}

func (m *MemoryStore) ListZones(_ context.Context, activeOnly bool) ([]models.Zone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Zone, 0, len(m.zones))
	for _, z := range m.zones {
		if activeOnly && !z.Active {
			continue
		}
		out = append(out, cloneZone(z))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *MemoryStore) InsertOpenRecord(_ context.Context, rec models.AttendanceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.open[rec.EmployeeRef]; ok {
		return ErrOpenRecordExists
	}
	if _, ok := m.records[rec.ID]; ok {
		return ErrConflict
	}
	rec.Open = true
	rec.CheckOutTime = nil
	m.records[rec.ID] = rec
	m.open[rec.EmployeeRef] = rec.ID
	return nil
}

func (m *MemoryStore) FindOpenRecord(_ context.Context, employeeRef string) (models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.open[employeeRef]
	if !ok {
		return models.AttendanceRecord{}, ErrNotFound
	}
	return m.records[id], nil
}

func (m *MemoryStore) GetRecord(_ context.Context, id string) (models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return models.AttendanceRecord{}, ErrNotFound
	}
	return rec, nil
}

func (m *MemoryStore) CloseRecord(_ context.Context, id string, at time.Time) (models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return models.AttendanceRecord{}, ErrNotFound
	}
	if !rec.Open || rec.Status != models.StatusCheckedIn {
		return models.AttendanceRecord{}, ErrConflict
	}
	closedAt := at
	rec.CheckOutTime = &closedAt
	rec.Status = models.StatusCheckedOut
	rec.Open = false
	m.records[id] = rec
	delete(m.open, rec.EmployeeRef)
	return rec, nil
}

func (m *MemoryStore) SetRecordStatus(_ context.Context, id string, from, to models.AttendanceStatus) (models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return models.AttendanceRecord{}, ErrNotFound
	}
	if !rec.Open || rec.Status != from {
		return models.AttendanceRecord{}, ErrConflict
	}
	rec.Status = to
	m.records[id] = rec
	return rec, nil
}

func (m *MemoryStore) AttachPhoto(_ context.Context, id, photoRef string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[id]
	if !ok {
		return ErrNotFound
	}
	rec.PhotoRef = photoRef
	m.records[id] = rec
	return nil
}

func (m *MemoryStore) ListRecords(_ context.Context, employeeRef string, limit int) ([]models.AttendanceRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.AttendanceRecord, 0)
	for _, rec := range m.records {
		if rec.EmployeeRef == employeeRef {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CheckInTime.Equal(out[j].CheckInTime) {
			return out[i].CheckInTime.After(out[j].CheckInTime)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) GetTaskStatus(_ context.Context, employeeRef string) (models.TaskStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts, ok := m.tasks[employeeRef]
	if !ok {
		return models.TaskStatus{}, ErrNotFound
	}
	return ts, nil
}

func (m *MemoryStore) SwapTaskStatus(_ context.Context, expected models.TaskState, next models.TaskStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current := models.TaskIdle
	if ts, ok := m.tasks[next.EmployeeRef]; ok {
		current = ts.Status
	}
	if current != expected {
		return ErrConflict
	}
	m.tasks[next.EmployeeRef] = next
	return nil
}

func (m *MemoryStore) FindUserByEmail(_ context.Context, email string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.Email]; ok {
		return ErrConflict
	}
	for _, u := range m.users {
		if u.EmployeeRef == user.EmployeeRef {
			return ErrConflict
		}
	}
	m.users[user.Email] = user
	return nil
}

// CountOpenRecords is a test helper for the one-open-record invariant.
func (m *MemoryStore) CountOpenRecords(employeeRef string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.EmployeeRef == employeeRef && rec.CheckOutTime == nil {
			n++
		}
	}
	return n
}

func cloneZone(z models.Zone) models.Zone {
	z.Vertices = append([]models.LatLng(nil), z.Vertices...)
	return z
}
