package attendance

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"field-attendance-api-server/internal/models"
)

// Photo is an optional check-in selfie.
type Photo struct {
	Filename string
	Data     []byte
}

// PhotoStore is the object storage collaborator.
type PhotoStore interface {
	Upload(ctx context.Context, filename string, data []byte) (string, error)
}

func photoKey(rec models.AttendanceRecord, filename string) string {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return fmt.Sprintf("attendance/%s/%s%s", rec.EmployeeRef, rec.ID, ext)
}

// attachPhoto uploads in the background. The record already exists; failures
// are logged and never reach the caller of CheckIn.
func (s *Service) attachPhoto(ctx context.Context, rec models.AttendanceRecord, photo *Photo) {
	if photo == nil || len(photo.Data) == 0 {
		return
	}
	if s.photos == nil {
		s.log.Warn("photo dropped, no object storage configured", "record", rec.ID, "employee", rec.EmployeeRef)
		s.metrics.ObservePhotoUpload("skipped")
		return
	}

	// Detached from the request: the client may disconnect as soon as the
	// check-in is acknowledged.
	base := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		upCtx, cancel := context.WithTimeout(base, s.uploadTimeout())
		defer cancel()

		key := photoKey(rec, photo.Filename)
		ref, err := s.photos.Upload(upCtx, key, photo.Data)
		if err != nil {
			s.log.Warn("check-in photo upload failed", "record", rec.ID, "employee", rec.EmployeeRef, "key", key, "error", err)
			s.metrics.ObservePhotoUpload("failed")
			return
		}
		if err := s.store.AttachPhoto(upCtx, rec.ID, ref); err != nil {
			s.log.Warn("check-in photo not linked to record", "record", rec.ID, "employee", rec.EmployeeRef, "photo", ref, "error", err)
			s.metrics.ObservePhotoUpload("unlinked")
			return
		}
		s.metrics.ObservePhotoUpload("ok")
		s.log.Info("check-in photo attached", "record", rec.ID, "employee", rec.EmployeeRef, "photo", ref)
	}()
}

func (s *Service) uploadTimeout() time.Duration {
	if s.cfg.PhotoUploadTimeout > 0 {
		return s.cfg.PhotoUploadTimeout
	}
	return 30 * time.Second
}
