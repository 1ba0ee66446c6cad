package scheduler

import (
	"math/rand"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/timetabler/internal/models"
)

// Snapshot is the immutable input for one generation run: the courses,
// faculty, and rooms in scope for a department/semester pair. The engine
// never mutates the snapshot; faculty load is copied into run-local state.
type Snapshot struct {
	Department string
	Semester   int
	Courses    []models.Course
	Faculty    []models.Faculty
	Rooms      []models.Room
}

// Result is the outcome of a generation run. Partial schedules are valid
// results; Complete reports whether every planned session was placed.
type Result struct {
	Entries           []models.ScheduleEntry
	Iterations        int
	ConflictsResolved int
	Score             int
	HardConflicts     int
	Complete          bool
	Seed              int64
}

// Engine generates timetables. Safe for concurrent use: every Generate
// call builds its own run state.
type Engine struct {
	cfg    Config
	logger *zap.Logger
}

// New constructs an engine, filling unset config fields with defaults.
func New(cfg Config, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{cfg: cfg.withDefaults(), logger: logger}
}

// Config returns the effective engine configuration.
func (e *Engine) Config() Config {
	return e.cfg
}

// Generate runs the full pipeline: session planning, greedy assignment
// with bounded backtracking, hill-climbing optimization, and scoring.
// Empty input yields a zero-value result without iterating.
func (e *Engine) Generate(snap Snapshot) Result {
	if len(snap.Courses) == 0 || len(snap.Faculty) == 0 || len(snap.Rooms) == 0 {
		e.logger.Warn("scheduler received empty snapshot",
			zap.Int("courses", len(snap.Courses)),
			zap.Int("faculty", len(snap.Faculty)),
			zap.Int("rooms", len(snap.Rooms)))
		return Result{Seed: e.cfg.Seed}
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	r := newRun(e.cfg, e.logger, snap, seed)

	e.logger.Info("scheduler starting",
		zap.String("department", snap.Department),
		zap.Int("semester", snap.Semester),
		zap.Int("courses", len(snap.Courses)),
		zap.Int("faculty", len(snap.Faculty)),
		zap.Int("rooms", len(snap.Rooms)),
		zap.Int64("seed", seed))

	// Labs first (hardest to place), then by descending weekly hours,
	// to front-load the tightest constraints while slots are open.
	ordered := make([]models.Course, len(snap.Courses))
	copy(ordered, snap.Courses)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].RequiresLab != ordered[j].RequiresLab {
			return ordered[i].RequiresLab
		}
		return ordered[i].HoursPerWeek > ordered[j].HoursPerWeek
	})

	complete := true
	for i := range ordered {
		if !r.assignCourse(ordered[i]) {
			complete = false
			e.logger.Warn("course not fully scheduled, keeping partial",
				zap.String("course", ordered[i].Code))
		}
	}

	r.optimize()

	score := Fitness(r.entries, snap.Faculty, e.cfg.Weights)
	hardConflicts := CountHardConflicts(r.entries)
	if hardConflicts > 0 {
		// Should be impossible: the occupancy grid guards every commit.
		e.logger.Error("hard conflicts detected after generation",
			zap.Int("conflicts", hardConflicts))
	}

	e.logger.Info("scheduler finished",
		zap.Int("entries", len(r.entries)),
		zap.Int("iterations", r.iterations),
		zap.Int("conflicts_resolved", r.conflictsResolved),
		zap.Int("score", score),
		zap.Bool("complete", complete))

	return Result{
		Entries:           r.entries,
		Iterations:        r.iterations,
		ConflictsResolved: r.conflictsResolved,
		Score:             score,
		HardConflicts:     hardConflicts,
		Complete:          complete,
		Seed:              seed,
	}
}

// facultyState is the run-local working copy of an instructor's load.
// Only the workload updater writes totals back to durable state.
type facultyState struct {
	id          string
	name        string
	department  string
	maxWeekly   int
	hours       int
	unavailable map[slotRef]struct{}
}

type placement struct {
	day      string
	startIdx int
}

type run struct {
	cfg    Config
	logger *zap.Logger
	rng    *rand.Rand

	courseByCode map[string]models.Course
	faculty      []*facultyState
	facultyByID  map[string]*facultyState
	rooms        []models.Room

	// Teaching (non-break) slots in grid order, with an id -> index map.
	slots     []TimeSlot
	slotIndex map[int]int

	grid     *occupancyGrid
	groupDay map[string]int // sessions per group+day, for spread scoring

	entries           []models.ScheduleEntry
	iterations        int
	conflictsResolved int
}

func newRun(cfg Config, logger *zap.Logger, snap Snapshot, seed int64) *run {
	r := &run{
		cfg:          cfg,
		logger:       logger,
		rng:          rand.New(rand.NewSource(seed)),
		courseByCode: make(map[string]models.Course, len(snap.Courses)),
		facultyByID:  make(map[string]*facultyState, len(snap.Faculty)),
		rooms:        snap.Rooms,
		slots:        cfg.TeachingSlots(),
		slotIndex:    make(map[int]int),
		grid:         newOccupancyGrid(),
		groupDay:     make(map[string]int),
	}
	for i, s := range r.slots {
		r.slotIndex[s.ID] = i
	}
	for _, c := range snap.Courses {
		r.courseByCode[c.Code] = c
	}
	for i := range snap.Faculty {
		f := snap.Faculty[i]
		maxWeekly := f.MaxHoursPerWeek
		if maxWeekly <= 0 {
			maxWeekly = cfg.DefaultMaxWeeklyHours
		}
		state := &facultyState{
			id:          f.ID,
			name:        f.FullName,
			department:  f.Department,
			maxWeekly:   maxWeekly,
			hours:       f.CurrentHoursPerWeek,
			unavailable: make(map[slotRef]struct{}),
		}
		for _, u := range f.UnavailableSlots() {
			state.unavailable[slotRef{day: u.Day, slot: u.TimeSlotID}] = struct{}{}
		}
		r.faculty = append(r.faculty, state)
		r.facultyByID[f.ID] = state
	}
	return r
}

// assignCourse places every session in the course's plan. Returns true
// iff all sessions were placed; failures are non-fatal.
func (r *run) assignCourse(course models.Course) bool {
	allAssigned := true
	for _, session := range PlanSessions(course, r.cfg) {
		r.iterations++
		if p, ok := r.findBestSlot(course, session); ok {
			if r.commit(course, session, p) {
				continue
			}
		}
		if r.backtrackSwap(course, session) {
			r.conflictsResolved++
			continue
		}
		allAssigned = false
		r.logger.Debug("session left unplaced",
			zap.String("course", course.Code),
			zap.String("type", string(session.Type)),
			zap.Int("duration", session.Duration))
	}
	return allAssigned
}

// findBestSlot scans the day-by-slot space for the feasible placement
// with the highest soft score. Day order is shuffled by the run RNG to
// avoid systematic bias; ties keep the first candidate encountered.
func (r *run) findBestSlot(course models.Course, session Session) (placement, bool) {
	var best placement
	bestScore := 0
	found := false

	for _, day := range r.shuffledDays() {
		for idx := range r.slots {
			if !r.feasible(course, session, day, idx) {
				continue
			}
			score := r.scorePlacement(course, session, day, idx)
			if !found || score > bestScore {
				best = placement{day: day, startIdx: idx}
				bestScore = score
				found = true
			}
		}
	}
	return best, found
}

// commit reserves faculty, room, and group occupancy for every slot the
// session covers and appends the schedule entry. The instructor with the
// lowest running load and the smallest qualifying room win the tie-breaks
// inside eligibleFaculty/findRoom.
func (r *run) commit(course models.Course, session Session, p placement) bool {
	fac := r.eligibleFaculty(course, p.day, p.startIdx, session.Duration)
	room := r.findRoom(course, session, p.day, p.startIdx, session.Duration)
	if fac == nil || room == nil {
		return false
	}

	entry := models.ScheduleEntry{
		CourseCode:   course.Code,
		CourseName:   course.Name,
		FacultyID:    fac.id,
		FacultyName:  fac.name,
		RoomID:       room.ID,
		RoomNumber:   room.RoomNumber,
		Day:          p.day,
		TimeSlotID:   r.slots[p.startIdx].ID,
		StartTime:    r.slots[p.startIdx].Start,
		EndTime:      r.slots[p.startIdx+session.Duration-1].End,
		Duration:     session.Duration,
		SessionType:  session.Type,
		StudentGroup: course.GroupKey(),
	}
	r.applyOccupancy(entry)
	r.entries = append(r.entries, entry)
	return true
}

// applyOccupancy marks all three grid dimensions for the entry's slot
// range, bumps the group's per-day session count, and charges the
// instructor's running hours.
func (r *run) applyOccupancy(entry models.ScheduleEntry) {
	group := r.groupKeyFor(entry.CourseCode)
	for i := 0; i < entry.Duration; i++ {
		key := slotRef{day: entry.Day, slot: entry.TimeSlotID + i}
		r.grid.mark(dimFaculty, entry.FacultyID, key)
		r.grid.mark(dimRoom, entry.RoomID, key)
		r.grid.mark(dimGroup, group, key)
	}
	r.groupDayAdd(group, entry.Day, 1)
	if fac := r.facultyByID[entry.FacultyID]; fac != nil {
		fac.hours += entry.Duration
	}
}

// releaseOccupancy is the exact inverse of applyOccupancy.
func (r *run) releaseOccupancy(entry models.ScheduleEntry) {
	group := r.groupKeyFor(entry.CourseCode)
	for i := 0; i < entry.Duration; i++ {
		key := slotRef{day: entry.Day, slot: entry.TimeSlotID + i}
		r.grid.unmark(dimFaculty, entry.FacultyID, key)
		r.grid.unmark(dimRoom, entry.RoomID, key)
		r.grid.unmark(dimGroup, group, key)
	}
	r.groupDayAdd(group, entry.Day, -1)
	if fac := r.facultyByID[entry.FacultyID]; fac != nil {
		fac.hours -= entry.Duration
	}
}

// backtrackSwap recovers local over-constraint: evict a random committed
// entry of the same student group, retry the blocked session, then
// re-place the evicted entry. Strictly transactional — either both end up
// placed or the prior state is restored exactly. A heuristic, not a
// completeness guarantee.
func (r *run) backtrackSwap(course models.Course, session Session) bool {
	group := course.GroupKey()
	for attempt := 0; attempt < r.cfg.MaxSwapAttempts; attempt++ {
		day := r.cfg.WorkingDays[r.rng.Intn(len(r.cfg.WorkingDays))]
		slot := r.slots[r.rng.Intn(len(r.slots))]

		idx := r.findEntryAt(group, day, slot.ID)
		if idx < 0 {
			continue
		}

		evicted := r.entries[idx]
		r.entries = append(r.entries[:idx], r.entries[idx+1:]...)
		r.releaseOccupancy(evicted)

		if p, ok := r.findBestSlot(course, session); ok && r.commit(course, session, p) {
			evCourse, known := r.courseByCode[evicted.CourseCode]
			evSession := Session{Type: evicted.SessionType, Duration: evicted.Duration}
			if known {
				if p2, ok2 := r.findBestSlot(evCourse, evSession); ok2 && r.commit(evCourse, evSession, p2) {
					return true
				}
			}
			// Roll back the fresh commit before restoring.
			last := r.entries[len(r.entries)-1]
			r.entries = r.entries[:len(r.entries)-1]
			r.releaseOccupancy(last)
		}
		r.applyOccupancy(evicted)
		r.entries = append(r.entries, evicted)
	}
	return false
}

func (r *run) findEntryAt(group, day string, slotID int) int {
	for i := range r.entries {
		e := r.entries[i]
		if e.Day == day && e.TimeSlotID == slotID && r.groupKeyFor(e.CourseCode) == group {
			return i
		}
	}
	return -1
}

func (r *run) groupKeyFor(courseCode string) string {
	if c, ok := r.courseByCode[courseCode]; ok {
		return c.GroupKey()
	}
	return ""
}

func (r *run) groupDayAdd(group, day string, delta int) {
	key := group + "|" + day
	r.groupDay[key] += delta
	if r.groupDay[key] <= 0 {
		delete(r.groupDay, key)
	}
}

func (r *run) groupDayCount(group, day string) int {
	return r.groupDay[group+"|"+day]
}

func (r *run) shuffledDays() []string {
	days := make([]string, len(r.cfg.WorkingDays))
	copy(days, r.cfg.WorkingDays)
	r.rng.Shuffle(len(days), func(i, j int) {
		days[i], days[j] = days[j], days[i]
	})
	return days
}
