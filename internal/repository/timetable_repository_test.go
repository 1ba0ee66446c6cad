package repository

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusops/timetabler/internal/models"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return sqlxdb, mock
}

func TestTimetableRepositoryCreateAssignsID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	mock.ExpectExec("INSERT INTO timetables").
		WillReturnResult(sqlmock.NewResult(1, 1))

	timetable := &models.Timetable{
		Name:         "CSE Semester 3 2026-27",
		Department:   "CSE",
		Semester:     3,
		AcademicYear: "2026-27",
		Status:       models.TimetableStatusGenerated,
		Meta:         types.JSONText(`{}`),
		GeneratedAt:  time.Now().UTC(),
	}
	err := repo.Create(context.Background(), db, timetable)
	require.NoError(t, err)

	assert.NotEmpty(t, timetable.ID)
	assert.False(t, timetable.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryInsertEntriesStampsTimetableID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	entries := []models.ScheduleEntry{
		{CourseCode: "CS301", FacultyID: "fac-1", RoomID: "room-1", Day: "Monday", TimeSlotID: 1, Duration: 1, SessionType: models.SessionTypeLecture},
		{CourseCode: "CS302", FacultyID: "fac-2", RoomID: "lab-1", Day: "Monday", TimeSlotID: 6, Duration: 2, SessionType: models.SessionTypePractical},
	}
	mock.ExpectExec("INSERT INTO schedule_entries").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO schedule_entries").WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.InsertEntries(context.Background(), db, "tt-1", entries)
	require.NoError(t, err)

	for _, e := range entries {
		assert.Equal(t, "tt-1", e.TimetableID)
		assert.NotEmpty(t, e.ID)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryListBuildsFilterQuery(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	rows := sqlmock.NewRows([]string{"id", "name", "department", "semester", "academic_year", "division", "status", "fitness_score", "hard_conflicts", "meta", "generated_at", "published_at", "created_at", "updated_at"}).
		AddRow("tt-1", "CSE Semester 3", "CSE", 3, "2026-27", "", "GENERATED", 85, 0, []byte(`{}`), time.Now(), nil, time.Now(), time.Now())

	mock.ExpectQuery("SELECT .* FROM timetables WHERE department = \\$1 AND semester = \\$2 AND status = \\$3 ORDER BY created_at DESC LIMIT \\$4").
		WithArgs("CSE", 3, "GENERATED", 50).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.TimetableFilter{
		Department: "CSE",
		Semester:   3,
		Status:     models.TimetableStatusGenerated,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "tt-1", list[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryUpdateStatusStampsPublishedAt(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	mock.ExpectExec("UPDATE timetables SET status = \\$2, published_at = \\$3, updated_at = \\$3 WHERE id = \\$1").
		WithArgs("tt-1", string(models.TimetableStatusPublished), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), db, "tt-1", models.TimetableStatusPublished)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTimetableRepositoryDeleteRemovesEntriesFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewTimetableRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM schedule_entries WHERE timetable_id = \\$1").
		WithArgs("tt-1").
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM timetables WHERE id = \\$1").
		WithArgs("tt-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := repo.Delete(context.Background(), "tt-1")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
