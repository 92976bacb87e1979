package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"field-attendance-api-server/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type PostgresStore struct {
	db *gorm.DB
}

// ConnectPostgres opens a Postgres connection with retry and migrates the schema.
func ConnectPostgres(dsn string, attempts int, delay time.Duration) (*PostgresStore, error) {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 1; i <= attempts; i++ {
		db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.Silent),
		})
		if err == nil {
			if err := migrate(db); err != nil {
				return nil, err
			}
			return &PostgresStore{db: db}, nil
		}
		lastErr = err
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("db connect failed after %d attempts: %w", attempts, lastErr)
}

func migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Zone{}, &models.AttendanceRecord{}, &models.TaskStatus{}, &models.User{}); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	stmts := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS one_open_record_per_employee
		 ON attendance_records (employee_ref) WHERE check_out_time IS NULL`,
		`CREATE INDEX IF NOT EXISTS employee_history
		 ON attendance_records (employee_ref, check_in_time DESC)`,
	}
	for _, stmt := range stmts {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (p *PostgresStore) Close(context.Context) error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgresStore) CreateZone(ctx context.Context, zone models.Zone) error {
	err := p.db.WithContext(ctx).Create(&zone).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}

func (p *PostgresStore) UpdateZone(ctx context.Context, zone models.Zone) error {
	// Struct updates so the json serializer on Vertices applies.
	res := p.db.WithContext(ctx).Model(&models.Zone{}).Where("id = ?", zone.ID).
		Select("name", "vertices", "updated_at").
		Updates(&zone)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) DeleteZone(ctx context.Context, id string) (bool, error) {
	res := p.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Zone{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (p *PostgresStore) SetZoneActive(ctx context.Context, id string, active bool, at time.Time) (models.Zone, error) {
	res := p.db.WithContext(ctx).Model(&models.Zone{}).
		Where("id = ? AND active = ?", id, !active).
		Updates(map[string]any{"active": active, "updated_at": at})
	if res.Error != nil {
		return models.Zone{}, res.Error
	}
	return p.GetZone(ctx, id)
}

func (p *PostgresStore) GetZone(ctx context.Context, id string) (models.Zone, error) {
	var zone models.Zone
	err := p.db.WithContext(ctx).Where("id = ?", id).First(&zone).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Zone{}, ErrNotFound
	}
	return zone, err
}

func (p *PostgresStore) ListZones(ctx context.Context, activeOnly bool) ([]models.Zone, error) {
	q := p.db.WithContext(ctx).Order("created_at ASC").Order("id ASC")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	zones := []models.Zone{}
	if err := q.Find(&zones).Error; err != nil {
		return nil, err
	}
	return zones, nil
}

func (p *PostgresStore) InsertOpenRecord(ctx context.Context, rec models.AttendanceRecord) error {
	rec.CheckOutTime = nil
	err := p.db.WithContext(ctx).Create(&rec).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrOpenRecordExists
	}
	return err
}

func (p *PostgresStore) FindOpenRecord(ctx context.Context, employeeRef string) (models.AttendanceRecord, error) {
	return p.firstRecord(ctx, "employee_ref = ? AND check_out_time IS NULL", employeeRef)
}

func (p *PostgresStore) GetRecord(ctx context.Context, id string) (models.AttendanceRecord, error) {
	return p.firstRecord(ctx, "id = ?", id)
}

func (p *PostgresStore) firstRecord(ctx context.Context, query string, args ...any) (models.AttendanceRecord, error) {
	var rec models.AttendanceRecord
	err := p.db.WithContext(ctx).Where(query, args...).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.AttendanceRecord{}, ErrNotFound
	}
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	rec.Open = rec.CheckOutTime == nil
	return rec, nil
}

func (p *PostgresStore) CloseRecord(ctx context.Context, id string, at time.Time) (models.AttendanceRecord, error) {
	return p.transitionRecord(ctx, id, models.StatusCheckedIn, map[string]any{
		"check_out_time": at,
		"status":         models.StatusCheckedOut,
	})
}

func (p *PostgresStore) SetRecordStatus(ctx context.Context, id string, from, to models.AttendanceStatus) (models.AttendanceRecord, error) {
	return p.transitionRecord(ctx, id, from, map[string]any{"status": to})
}

func (p *PostgresStore) transitionRecord(ctx context.Context, id string, from models.AttendanceStatus, updates map[string]any) (models.AttendanceRecord, error) {
	res := p.db.WithContext(ctx).Model(&models.AttendanceRecord{}).
		Where("id = ? AND status = ? AND check_out_time IS NULL", id, from).
		Updates(updates)
	if res.Error != nil {
		return models.AttendanceRecord{}, res.Error
	}
	rec, err := p.GetRecord(ctx, id)
	if err != nil {
		return models.AttendanceRecord{}, err
	}
	if res.RowsAffected == 0 {
		return models.AttendanceRecord{}, ErrConflict
	}
	return rec, nil
}

func (p *PostgresStore) AttachPhoto(ctx context.Context, id, photoRef string) error {
	res := p.db.WithContext(ctx).Model(&models.AttendanceRecord{}).Where("id = ?", id).Update("photo_ref", photoRef)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *PostgresStore) ListRecords(ctx context.Context, employeeRef string, limit int) ([]models.AttendanceRecord, error) {
	q := p.db.WithContext(ctx).Where("employee_ref = ?", employeeRef).Order("check_in_time DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	records := []models.AttendanceRecord{}
	if err := q.Find(&records).Error; err != nil {
		return nil, err
	}
	for i := range records {
		records[i].Open = records[i].CheckOutTime == nil
	}
	return records, nil
}

func (p *PostgresStore) GetTaskStatus(ctx context.Context, employeeRef string) (models.TaskStatus, error) {
	var ts models.TaskStatus
	err := p.db.WithContext(ctx).Where("employee_ref = ?", employeeRef).First(&ts).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.TaskStatus{}, ErrNotFound
	}
	return ts, err
}

func (p *PostgresStore) SwapTaskStatus(ctx context.Context, expected models.TaskState, next models.TaskStatus) error {
	db := p.db.WithContext(ctx)
	if expected == models.TaskIdle {
		// INSERT ... ON CONFLICT (employee_ref) DO UPDATE ... WHERE status = 'idle'
		res := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "employee_ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "active_task_ref", "started_at", "updated_at"}),
			Where: clause.Where{Exprs: []clause.Expression{
				clause.Eq{Column: clause.Column{Table: "task_statuses", Name: "status"}, Value: models.TaskIdle},
			}},
		}).Create(&next)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrConflict
		}
		return nil
	}

	res := db.Model(&models.TaskStatus{}).
		Where("employee_ref = ? AND status = ?", next.EmployeeRef, expected).
		Updates(map[string]any{
			"status":          next.Status,
			"active_task_ref": next.ActiveTaskRef,
			"started_at":      next.StartedAt,
			"updated_at":      next.UpdatedAt,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

func (p *PostgresStore) FindUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := p.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.User{}, ErrNotFound
	}
	return user, err
}

func (p *PostgresStore) CreateUser(ctx context.Context, user models.User) error {
	err := p.db.WithContext(ctx).Create(&user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrConflict
	}
	return err
}
