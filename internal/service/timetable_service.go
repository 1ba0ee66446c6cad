package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/campusops/timetabler/internal/dto"
	"github.com/campusops/timetabler/internal/models"
	"github.com/campusops/timetabler/internal/scheduler"
	appErrors "github.com/campusops/timetabler/pkg/errors"
)

type courseCatalog interface {
	ListActive(ctx context.Context, department string, semester int) ([]models.Course, error)
	FindByCode(ctx context.Context, code string) (*models.Course, error)
}

type facultyDirectory interface {
	ListActiveByDepartment(ctx context.Context, department string) ([]models.Faculty, error)
	ReplaceWorkloads(ctx context.Context, exec sqlx.ExtContext, totals map[string]int) error
}

type roomInventory interface {
	ListActive(ctx context.Context) ([]models.Room, error)
}

type timetableStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, timetable *models.Timetable) error
	InsertEntries(ctx context.Context, exec sqlx.ExtContext, timetableID string, entries []models.ScheduleEntry) error
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListEntries(ctx context.Context, timetableID string) ([]models.ScheduleEntry, error)
	List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, error)
	FindPublished(ctx context.Context, department string, semester int) (*models.Timetable, error)
	UpdateStatus(ctx context.Context, exec sqlx.ExtContext, id string, status models.TimetableStatus) error
	ArchivePublished(ctx context.Context, exec sqlx.ExtContext, department string, semester int) error
	Delete(ctx context.Context, id string) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

// TimetableServiceConfig governs generator behaviour.
type TimetableServiceConfig struct {
	Engine      scheduler.Config
	ProposalTTL time.Duration
	CacheTTL    time.Duration
}

// TimetableService orchestrates timetable generation, persistence, and
// the publish lifecycle. Generated schedules are held as in-memory
// proposals until explicitly saved.
type TimetableService struct {
	courses    courseCatalog
	faculty    facultyDirectory
	rooms      roomInventory
	timetables timetableStore
	tx         txProvider
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	cfg        TimetableServiceConfig
	store      *proposalStore
}

// NewTimetableService wires generator dependencies.
func NewTimetableService(
	courses courseCatalog,
	faculty facultyDirectory,
	rooms roomInventory,
	timetables timetableStore,
	tx txProvider,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	cfg TimetableServiceConfig,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ProposalTTL <= 0 {
		cfg.ProposalTTL = 30 * time.Minute
	}
	return &TimetableService{
		courses:    courses,
		faculty:    faculty,
		rooms:      rooms,
		timetables: timetables,
		tx:         tx,
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		cfg:        cfg,
		store:      newProposalStore(cfg.ProposalTTL),
	}
}

// Generate runs the scheduling engine for a department/semester scope
// and holds the result as a proposal. Nothing is persisted until Save.
func (s *TimetableService) Generate(ctx context.Context, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid timetable generation payload")
	}

	snap, err := s.loadSnapshot(ctx, req.Department, req.Semester)
	if err != nil {
		return nil, err
	}
	if len(snap.Courses) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("no active courses for %s semester %d", req.Department, req.Semester))
	}
	if len(snap.Faculty) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("no active faculty in department %s", req.Department))
	}
	if len(snap.Rooms) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active rooms available")
	}

	engineCfg := s.cfg.Engine
	if req.Seed != 0 {
		engineCfg.Seed = req.Seed
	}
	engine := scheduler.New(engineCfg, s.logger)

	start := time.Now()
	result := engine.Generate(*snap)
	elapsed := time.Since(start)

	s.metrics.RecordGeneration(result.Complete, elapsed, result.ConflictsResolved, result.Score)

	proposal := timetableProposal{
		ProposalID:  uuid.NewString(),
		Request:     req,
		Result:      result,
		DurationMS:  elapsed.Milliseconds(),
		RequestedAt: time.Now().UTC(),
	}
	s.store.Save(proposal)

	return &dto.GenerateTimetableResponse{
		ProposalID: proposal.ProposalID,
		Entries:    result.Entries,
		Stats:      proposalStats(proposal),
	}, nil
}

// Save persists a held proposal as a timetable, updates faculty
// workload baselines, and optionally publishes in the same transaction.
func (s *TimetableService) Save(ctx context.Context, req dto.SaveTimetableRequest) (string, error) {
	if err := s.validator.Struct(req); err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save timetable payload")
	}
	proposal, ok := s.store.Get(req.ProposalID)
	if !ok {
		return "", appErrors.Clone(appErrors.ErrNotFound, "proposal not found or expired")
	}
	if proposal.Result.HardConflicts > 0 {
		return "", appErrors.Clone(appErrors.ErrConflict, "proposal contains hard conflicts")
	}
	if len(proposal.Result.Entries) == 0 {
		return "", appErrors.Clone(appErrors.ErrPreconditionFailed, "proposal holds an empty schedule")
	}
	if s.tx == nil {
		return "", appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	meta := models.GenerationMeta{
		Algorithm:         "greedy_backtrack_v1",
		Iterations:        proposal.Result.Iterations,
		ConflictsResolved: proposal.Result.ConflictsResolved,
		Score:             proposal.Result.Score,
		HardConflicts:     proposal.Result.HardConflicts,
		Complete:          proposal.Result.Complete,
		Seed:              proposal.Result.Seed,
		DurationMS:        proposal.DurationMS,
		GeneratedAt:       proposal.RequestedAt,
	}
	metaBytes, marshalErr := json.Marshal(meta)
	if marshalErr != nil {
		err = appErrors.Wrap(marshalErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode timetable metadata")
		return "", err
	}

	record := &models.Timetable{
		Name:          timetableName(proposal.Request),
		Department:    proposal.Request.Department,
		Semester:      proposal.Request.Semester,
		AcademicYear:  proposal.Request.AcademicYear,
		Division:      proposal.Request.Division,
		Status:        models.TimetableStatusGenerated,
		FitnessScore:  proposal.Result.Score,
		HardConflicts: proposal.Result.HardConflicts,
		Meta:          types.JSONText(metaBytes),
		GeneratedAt:   proposal.RequestedAt,
	}

	if err = s.timetables.Create(ctx, tx, record); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create timetable")
		return "", err
	}
	if err = s.timetables.InsertEntries(ctx, tx, record.ID, proposal.Result.Entries); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist schedule entries")
		return "", err
	}
	if err = s.faculty.ReplaceWorkloads(ctx, tx, scheduler.WorkloadTotals(proposal.Result.Entries)); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update faculty workloads")
		return "", err
	}

	if req.Publish {
		if err = s.timetables.ArchivePublished(ctx, tx, record.Department, record.Semester); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive published timetables")
			return "", err
		}
		if err = s.timetables.UpdateStatus(ctx, tx, record.ID, models.TimetableStatusPublished); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
			return "", err
		}
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit timetable transaction")
		return "", err
	}

	if req.Publish {
		_ = s.cache.Invalidate(ctx, publishedCachePattern(record.Department, record.Semester))
	}
	s.store.Delete(req.ProposalID)
	return record.ID, nil
}

// Analyze performs a pre-flight feasibility check without running the
// engine: total demanded hours against grid capacity, plus advisory
// findings about the snapshot.
func (s *TimetableService) Analyze(ctx context.Context, req dto.AnalyzeConstraintsRequest) (*dto.ConstraintAnalysis, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid constraint analysis payload")
	}

	snap, err := s.loadSnapshot(ctx, req.Department, req.Semester)
	if err != nil {
		return nil, err
	}

	engineCfg := s.cfg.Engine
	engine := scheduler.New(engineCfg, s.logger)
	cfg := engine.Config()

	totalHours := 0
	for _, course := range snap.Courses {
		for _, session := range scheduler.PlanSessions(course, cfg) {
			totalHours += session.Duration
		}
	}
	availableSlots := len(cfg.WorkingDays) * len(cfg.TeachingSlots())

	analysis := &dto.ConstraintAnalysis{
		TotalHoursNeeded: totalHours,
		AvailableSlots:   availableSlots,
		Feasible:         totalHours <= availableSlots,
	}

	if len(snap.Courses) == 0 {
		analysis.Warnings = append(analysis.Warnings, "no active courses in scope")
		analysis.Feasible = false
	}
	if len(snap.Faculty) == 0 {
		analysis.Warnings = append(analysis.Warnings, "no active faculty in department")
		analysis.Feasible = false
	}
	if len(snap.Rooms) == 0 {
		analysis.Warnings = append(analysis.Warnings, "no active rooms available")
		analysis.Feasible = false
	}

	if totalHours > availableSlots {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("demanded hours (%d) exceed weekly grid capacity (%d)", totalHours, availableSlots))
		analysis.Recommendations = append(analysis.Recommendations,
			"reduce weekly hours, split the semester into divisions, or extend working days")
	}

	labCount := 0
	for _, room := range snap.Rooms {
		if room.Type == models.RoomTypeLab {
			labCount++
		}
	}
	needsLab := false
	for _, course := range snap.Courses {
		if course.RequiresLab {
			needsLab = true
			break
		}
	}
	if needsLab && labCount == 0 {
		analysis.Warnings = append(analysis.Warnings, "lab sessions required but no lab rooms are active")
		analysis.Feasible = false
	}

	capacity := 0
	for _, f := range snap.Faculty {
		max := f.MaxHoursPerWeek
		if max <= 0 {
			max = cfg.DefaultMaxWeeklyHours
		}
		remaining := max - f.CurrentHoursPerWeek
		if remaining > 0 {
			capacity += remaining
		}
	}
	if capacity < totalHours {
		analysis.Warnings = append(analysis.Warnings,
			fmt.Sprintf("remaining faculty capacity (%d hours) is below demand (%d hours)", capacity, totalHours))
		analysis.Recommendations = append(analysis.Recommendations,
			"raise per-instructor weekly limits or add eligible faculty to the department")
	}

	return analysis, nil
}

// Course returns a single course by its unique code.
func (s *TimetableService) Course(ctx context.Context, code string) (*models.Course, error) {
	if code == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "course code is required")
	}
	course, err := s.courses.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course")
	}
	return course, nil
}

// Get returns a timetable with its schedule entries.
func (s *TimetableService) Get(ctx context.Context, id string) (*dto.TimetableDetail, error) {
	if id == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	entries, err := s.timetables.ListEntries(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}
	return &dto.TimetableDetail{Timetable: *record, Entries: entries}, nil
}

// List returns timetable headers matching the filter.
func (s *TimetableService) List(ctx context.Context, filter models.TimetableFilter) ([]models.Timetable, error) {
	list, err := s.timetables.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list timetables")
	}
	return list, nil
}

// Publish makes a generated timetable the active one for its scope,
// archiving any previously published version.
func (s *TimetableService) Publish(ctx context.Context, id string) error {
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if record.Status == models.TimetableStatusPublished {
		return nil
	}
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.timetables.ArchivePublished(ctx, tx, record.Department, record.Semester); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive published timetables")
		return err
	}
	if err = s.timetables.UpdateStatus(ctx, tx, id, models.TimetableStatusPublished); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish timetable")
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit publish transaction")
		return err
	}

	_ = s.cache.Invalidate(ctx, publishedCachePattern(record.Department, record.Semester))
	return nil
}

// Delete removes a timetable. Published timetables must be archived or
// superseded first.
func (s *TimetableService) Delete(ctx context.Context, id string) error {
	record, err := s.timetables.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if record.Status == models.TimetableStatusPublished {
		return appErrors.Clone(appErrors.ErrConflict, "published timetables cannot be deleted")
	}
	if err := s.timetables.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	return nil
}

// PublishedTimetable returns the active timetable for a scope, served
// from cache when possible.
func (s *TimetableService) PublishedTimetable(ctx context.Context, department string, semester int) (*dto.TimetableDetail, error) {
	if department == "" || semester <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "department and semester are required")
	}

	key := publishedCacheKey(department, semester)
	var cached dto.TimetableDetail
	if hit, _ := s.cache.Get(ctx, key, &cached); hit {
		return &cached, nil
	}

	record, err := s.timetables.FindPublished(ctx, department, semester)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no published timetable for this scope")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load published timetable")
	}
	entries, err := s.timetables.ListEntries(ctx, record.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}

	detail := &dto.TimetableDetail{Timetable: *record, Entries: entries}
	_ = s.cache.Set(ctx, key, detail, s.cfg.CacheTTL)
	return detail, nil
}

func (s *TimetableService) loadSnapshot(ctx context.Context, department string, semester int) (*scheduler.Snapshot, error) {
	courses, err := s.courses.ListActive(ctx, department, semester)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load courses")
	}
	faculty, err := s.faculty.ListActiveByDepartment(ctx, department)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load faculty")
	}
	rooms, err := s.rooms.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load rooms")
	}
	return &scheduler.Snapshot{
		Department: department,
		Semester:   semester,
		Courses:    courses,
		Faculty:    faculty,
		Rooms:      rooms,
	}, nil
}

func timetableName(req dto.GenerateTimetableRequest) string {
	if req.Name != "" {
		return req.Name
	}
	name := fmt.Sprintf("%s Semester %d %s", req.Department, req.Semester, req.AcademicYear)
	if req.Division != "" {
		name += " Div " + req.Division
	}
	return name
}

func proposalStats(p timetableProposal) dto.GenerationStats {
	return dto.GenerationStats{
		Iterations:        p.Result.Iterations,
		ConflictsResolved: p.Result.ConflictsResolved,
		Score:             p.Result.Score,
		HardConflicts:     p.Result.HardConflicts,
		Complete:          p.Result.Complete,
		Seed:              p.Result.Seed,
		DurationMS:        p.DurationMS,
	}
}

func publishedCacheKey(department string, semester int) string {
	return fmt.Sprintf("timetable:published:%s:%d", department, semester)
}

func publishedCachePattern(department string, semester int) string {
	return fmt.Sprintf("timetable:published:%s:%d*", department, semester)
}

// --- Proposal cache ---

type timetableProposal struct {
	ProposalID  string
	Request     dto.GenerateTimetableRequest
	Result      scheduler.Result
	DurationMS  int64
	RequestedAt time.Time
}

type proposalStore struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[string]timetableProposal
}

func newProposalStore(ttl time.Duration) *proposalStore {
	return &proposalStore{
		ttl:   ttl,
		items: make(map[string]timetableProposal),
	}
}

func (s *proposalStore) Save(proposal timetableProposal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[proposal.ProposalID] = proposal
}

func (s *proposalStore) Get(id string) (timetableProposal, bool) {
	s.mu.RLock()
	proposal, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return timetableProposal{}, false
	}
	if time.Since(proposal.RequestedAt) > s.ttl {
		s.Delete(id)
		return timetableProposal{}, false
	}
	return proposal, true
}

func (s *proposalStore) Delete(id string) {
	s.mu.Lock()
	delete(s.items, id)
	s.mu.Unlock()
}
