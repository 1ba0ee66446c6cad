package service

import (
	"bytes"
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetabler/internal/models"
	"github.com/campusops/timetabler/internal/scheduler"
	appErrors "github.com/campusops/timetabler/pkg/errors"
)

func TestExportServiceCSVContainsSchedule(t *testing.T) {
	svc := newExportServiceFixture()

	payload, filename, err := svc.ExportCSV(context.Background(), "tt-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(filename, "timetable_CSE_sem3_"))
	assert.True(t, strings.HasSuffix(filename, ".csv"))

	content := string(payload)
	assert.Contains(t, content, "CS301")
	assert.Contains(t, content, "Prof Rao")
	assert.Contains(t, content, "LAB-1")
	assert.Contains(t, content, "Monday")
}

func TestExportServicePDFRendersGrid(t *testing.T) {
	svc := newExportServiceFixture()

	payload, filename, err := svc.ExportPDF(context.Background(), "tt-1")
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(filename, ".pdf"))
	assert.True(t, bytes.HasPrefix(payload, []byte("%PDF")))
}

func TestExportServiceUnknownTimetable(t *testing.T) {
	svc := newExportServiceFixture()

	_, _, err := svc.ExportCSV(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestExportServiceRequiresID(t *testing.T) {
	svc := newExportServiceFixture()

	_, _, err := svc.ExportPDF(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

func newExportServiceFixture() *ExportService {
	reader := exportReaderStub{
		record: models.Timetable{
			ID:           "tt-1",
			Name:         "CSE Semester 3 2026-27",
			Department:   "CSE",
			Semester:     3,
			Status:       models.TimetableStatusPublished,
			FitnessScore: 87,
			GeneratedAt:  time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC),
		},
		entries: []models.ScheduleEntry{
			{CourseCode: "CS301", CourseName: "Algorithms", FacultyName: "Prof Rao", RoomNumber: "CR-101", Day: "Monday", TimeSlotID: 1, StartTime: "08:00", EndTime: "09:00", Duration: 1, SessionType: models.SessionTypeLecture},
			{CourseCode: "CS302", CourseName: "Databases Lab", FacultyName: "Prof Iyer", RoomNumber: "LAB-1", Day: "Monday", TimeSlotID: 6, StartTime: "13:00", EndTime: "15:00", Duration: 2, SessionType: models.SessionTypePractical},
		},
	}
	return NewExportService(reader, scheduler.DefaultConfig(), nil, nil, nil)
}

type exportReaderStub struct {
	record  models.Timetable
	entries []models.ScheduleEntry
}

func (s exportReaderStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	if id != s.record.ID {
		return nil, sql.ErrNoRows
	}
	record := s.record
	return &record, nil
}

func (s exportReaderStub) ListEntries(ctx context.Context, timetableID string) ([]models.ScheduleEntry, error) {
	return s.entries, nil
}
