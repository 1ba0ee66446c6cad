package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campusops/timetabler/internal/dto"
	"github.com/campusops/timetabler/internal/models"
	"github.com/campusops/timetabler/internal/scheduler"
	appErrors "github.com/campusops/timetabler/pkg/errors"
)

func TestTimetableServiceGenerateSuccess(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	assert.NotEmpty(t, resp.ProposalID)
	assert.NotEmpty(t, resp.Entries)
	assert.True(t, resp.Stats.Complete)
	assert.Zero(t, resp.Stats.HardConflicts)
	assert.Greater(t, resp.Stats.Score, 0)
}

func TestTimetableServiceGenerateValidatesPayload(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	_, err := svc.Generate(context.Background(), dto.GenerateTimetableRequest{Semester: 3})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGenerateRequiresCourses(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{noCourses: true})

	_, err := svc.Generate(context.Background(), generateRequest())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSavePersistsScheduleAndWorkloads(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc, fixture := newTimetableServiceFixture(t, timetableFixtureConfig{tx: tx})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())

	record, ok := fixture.timetables.items[id]
	require.True(t, ok)
	assert.Equal(t, models.TimetableStatusGenerated, record.Status)
	assert.Equal(t, resp.Stats.Score, record.FitnessScore)
	assert.Len(t, fixture.timetables.entries[id], len(resp.Entries))
	assert.Equal(t, scheduler.WorkloadTotals(resp.Entries), fixture.faculty.replaced)

	// The proposal is consumed on save.
	_, err = svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSavePublishArchivesPredecessor(t *testing.T) {
	tx, mock := newTxProviderMock(t)
	svc, fixture := newTimetableServiceFixture(t, timetableFixtureConfig{tx: tx})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectCommit()

	id, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID, Publish: true})
	require.NoError(t, err)

	assert.Equal(t, 1, fixture.timetables.archiveCalls)
	assert.Equal(t, models.TimetableStatusPublished, fixture.timetables.items[id].Status)
}

func TestTimetableServiceSaveRefusesExpiredProposal(t *testing.T) {
	tx, _ := newTxProviderMock(t)
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{tx: tx, proposalTTL: time.Nanosecond})

	resp, err := svc.Generate(context.Background(), generateRequest())
	require.NoError(t, err)

	time.Sleep(time.Millisecond)

	_, err = svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: resp.ProposalID})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceSaveUnknownProposal(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	_, err := svc.Save(context.Background(), dto.SaveTimetableRequest{ProposalID: "missing"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceAnalyzeFlagsMissingLabRooms(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{noLabRooms: true})

	analysis, err := svc.Analyze(context.Background(), dto.AnalyzeConstraintsRequest{Department: "CSE", Semester: 3})
	require.NoError(t, err)

	assert.False(t, analysis.Feasible)
	assert.NotEmpty(t, analysis.Warnings)
}

func TestTimetableServiceAnalyzeFeasibleScope(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	analysis, err := svc.Analyze(context.Background(), dto.AnalyzeConstraintsRequest{Department: "CSE", Semester: 3})
	require.NoError(t, err)

	assert.True(t, analysis.Feasible)
	assert.Greater(t, analysis.TotalHoursNeeded, 0)
	assert.Equal(t, 45, analysis.AvailableSlots)
}

func TestTimetableServiceCourseLookup(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	course, err := svc.Course(context.Background(), "CS301")
	require.NoError(t, err)
	assert.Equal(t, "Course CS301", course.Name)

	_, err = svc.Course(context.Background(), "CS999")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)

	_, err = svc.Course(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceDeleteRejectsPublished(t *testing.T) {
	svc, fixture := newTimetableServiceFixture(t, timetableFixtureConfig{})
	fixture.timetables.items["tt-1"] = models.Timetable{
		ID: "tt-1", Department: "CSE", Semester: 3, Status: models.TimetableStatusPublished,
	}

	err := svc.Delete(context.Background(), "tt-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTimetableServiceGetNotFound(t *testing.T) {
	svc, _ := newTimetableServiceFixture(t, timetableFixtureConfig{})

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTimetableServicePublishedTimetable(t *testing.T) {
	svc, fixture := newTimetableServiceFixture(t, timetableFixtureConfig{})
	fixture.timetables.items["tt-1"] = models.Timetable{
		ID: "tt-1", Department: "CSE", Semester: 3, Status: models.TimetableStatusPublished,
	}
	fixture.timetables.entries["tt-1"] = []models.ScheduleEntry{{CourseCode: "CS301"}}

	detail, err := svc.PublishedTimetable(context.Background(), "CSE", 3)
	require.NoError(t, err)
	assert.Equal(t, "tt-1", detail.Timetable.ID)
	assert.Len(t, detail.Entries, 1)
}

// --- Fixtures ---

type timetableFixtureConfig struct {
	tx          txProvider
	noCourses   bool
	noLabRooms  bool
	proposalTTL time.Duration
}

type timetableFixture struct {
	timetables *timetableStoreStub
	faculty    *facultyDirectoryStub
}

func newTimetableServiceFixture(t *testing.T, cfg timetableFixtureConfig) (*TimetableService, *timetableFixture) {
	t.Helper()

	courses := []models.Course{
		fixtureCourse("CS301", 3, 0, false),
		fixtureCourse("CS302", 2, 2, true),
	}
	if cfg.noCourses {
		courses = nil
	}

	rooms := []models.Room{
		fixtureRoom("room-1", models.RoomTypeClassroom),
		fixtureRoom("lab-1", models.RoomTypeLab),
	}
	if cfg.noLabRooms {
		rooms = rooms[:1]
	}

	facultyStub := &facultyDirectoryStub{items: []models.Faculty{
		fixtureFaculty("fac-1"),
		fixtureFaculty("fac-2"),
	}}
	storeStub := newTimetableStoreStub()

	tx := cfg.tx
	if tx == nil {
		tx = noopTxProvider{}
	}

	engineCfg := scheduler.DefaultConfig()
	engineCfg.Seed = 42

	ttl := cfg.proposalTTL
	if ttl == 0 {
		ttl = time.Hour
	}

	svc := NewTimetableService(
		courseCatalogStub{items: courses},
		facultyStub,
		roomInventoryStub{items: rooms},
		storeStub,
		tx,
		NewCacheService(nil, nil, 0, nil, false),
		NewMetricsService(),
		validator.New(),
		zap.NewNop(),
		TimetableServiceConfig{Engine: engineCfg, ProposalTTL: ttl},
	)
	return svc, &timetableFixture{timetables: storeStub, faculty: facultyStub}
}

func generateRequest() dto.GenerateTimetableRequest {
	return dto.GenerateTimetableRequest{
		Department:   "CSE",
		Semester:     3,
		AcademicYear: "2026-27",
	}
}

func fixtureCourse(code string, theory, practical int, lab bool) models.Course {
	return models.Course{
		ID:             "course-" + code,
		Code:           code,
		Name:           "Course " + code,
		Department:     "CSE",
		Semester:       3,
		TheoryHours:    theory,
		PracticalHours: practical,
		RequiresLab:    lab,
		MaxBatchSize:   60,
		Active:         true,
	}
}

func fixtureFaculty(id string) models.Faculty {
	return models.Faculty{
		ID:              id,
		EmployeeID:      "EMP-" + id,
		FullName:        "Prof " + id,
		Department:      "CSE",
		MaxHoursPerWeek: 20,
		Active:          true,
	}
}

func fixtureRoom(id string, roomType models.RoomType) models.Room {
	return models.Room{ID: id, RoomNumber: id, Type: roomType, Capacity: 60, Active: true}
}

type courseCatalogStub struct {
	items []models.Course
	err   error
}

func (s courseCatalogStub) ListActive(ctx context.Context, department string, semester int) ([]models.Course, error) {
	return s.items, s.err
}

func (s courseCatalogStub) FindByCode(ctx context.Context, code string) (*models.Course, error) {
	for _, c := range s.items {
		if c.Code == code {
			course := c
			return &course, nil
		}
	}
	return nil, sql.ErrNoRows
}

type facultyDirectoryStub struct {
	items    []models.Faculty
	replaced map[string]int
}

func (s *facultyDirectoryStub) ListActiveByDepartment(ctx context.Context, department string) ([]models.Faculty, error) {
	return s.items, nil
}

func (s *facultyDirectoryStub) ReplaceWorkloads(ctx context.Context, exec sqlx.ExtContext, totals map[string]int) error {
	s.replaced = totals
	return nil
}

type roomInventoryStub struct {
	items []models.Room
}

func (s roomInventoryStub) ListActive(ctx context.Context) ([]models.Room, error) {
	return s.items, nil
}

type timetableStoreStub struct {
	items        map[string]models.Timetable
	entries      map[string][]models.ScheduleEntry
	archiveCalls int
}

func newTimetableStoreStub() *timetableStoreStub {
	return &timetableStoreStub{
		items:   make(map[string]models.Timetable),
		entries: make(map[string][]models.ScheduleEntry),
	}
}

func (s *timetableStoreStub) Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error {
	if timetable.ID == "" {
		timetable.ID = fmt.Sprintf("tt-%d", len(s.items)+1)
	}
	s.items[timetable.ID] = *timetable
	return nil
}

func (s *timetableStoreStub) InsertEntries(ctx context.Context, exec sqlx.ExtContext, timetableID string, entries []models.ScheduleEntry) error {
	s.entries[timetableID] = append([]models.ScheduleEntry(nil), entries...)
	return nil
}

func (s *timetableStoreStub) FindByID(ctx context.Context, id string) (*models.Timetable, error) {
	item, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &item, nil
}

func (s *timetableStoreStub) ListEntries(ctx context.Context, timetableID string) ([]models.ScheduleEntry, error) {
	return s.entries[timetableID], nil
}

func (s *timetableStoreStub) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, error) {
	result := make([]models.Timetable, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	return result, nil
}

func (s *timetableStoreStub) FindPublished(ctx context.Context, department string, semester int) (*models.Timetable, error) {
	for _, item := range s.items {
		if item.Department == department && item.Semester == semester && item.Status == models.TimetableStatusPublished {
			found := item
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *timetableStoreStub) UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error {
	item, ok := s.items[id]
	if !ok {
		return sql.ErrNoRows
	}
	item.Status = status
	s.items[id] = item
	return nil
}

func (s *timetableStoreStub) ArchivePublished(ctx context.Context, exec sqlx.ExtContext, department string, semester int) error {
	s.archiveCalls++
	for id, item := range s.items {
		if item.Department == department && item.Semester == semester && item.Status == models.TimetableStatusPublished {
			item.Status = models.TimetableStatusArchived
			s.items[id] = item
		}
	}
	return nil
}

func (s *timetableStoreStub) Delete(ctx context.Context, id string) error {
	if _, ok := s.items[id]; !ok {
		return sql.ErrNoRows
	}
	delete(s.items, id)
	delete(s.entries, id)
	return nil
}

type noopTxProvider struct{}

func (noopTxProvider) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return nil, appErrors.Clone(appErrors.ErrInternal, "transaction provider unavailable")
}

type txProviderMock struct {
	db *sqlx.DB
}

func newTxProviderMock(t *testing.T) (txProvider, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	t.Cleanup(func() { db.Close() })
	return &txProviderMock{db: sqlxdb}, mock
}

func (t *txProviderMock) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return t.db.BeginTxx(ctx, opts)
}
