package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/campusops/timetabler/internal/models"
	"github.com/campusops/timetabler/internal/scheduler"
	appErrors "github.com/campusops/timetabler/pkg/errors"
	"github.com/campusops/timetabler/pkg/export"
)

type exportTimetableReader interface {
	FindByID(ctx context.Context, id string) (*models.Timetable, error)
	ListEntries(ctx context.Context, timetableID string) ([]models.ScheduleEntry, error)
}

type csvRenderer interface {
	Render(rows []export.SessionRow) ([]byte, error)
}

type pdfRenderer interface {
	RenderGrid(grid export.Grid) ([]byte, error)
}

// ExportService renders stored timetables as CSV listings or week-view
// PDF grids.
type ExportService struct {
	timetables exportTimetableReader
	csv        csvRenderer
	pdf        pdfRenderer
	grid       scheduler.Config
	logger     *zap.Logger
}

// NewExportService constructs an ExportService. The scheduler config
// supplies the day/slot grid layout used for PDF rendering.
func NewExportService(timetables exportTimetableReader, gridCfg scheduler.Config, logger *zap.Logger, csv csvRenderer, pdf pdfRenderer) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{
		timetables: timetables,
		csv:        csv,
		pdf:        pdf,
		grid:       scheduler.New(gridCfg, nil).Config(),
		logger:     logger,
	}
}

// ExportCSV renders the timetable as a flat session listing.
func (s *ExportService) ExportCSV(ctx context.Context, timetableID string) ([]byte, string, error) {
	record, entries, err := s.load(ctx, timetableID)
	if err != nil {
		return nil, "", err
	}

	rows := make([]export.SessionRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, export.SessionRow{
			Day:         e.Day,
			Start:       e.StartTime,
			End:         e.EndTime,
			CourseCode:  e.CourseCode,
			CourseName:  e.CourseName,
			SessionType: string(e.SessionType),
			Faculty:     e.FacultyName,
			Room:        e.RoomNumber,
			Hours:       e.Duration,
		})
	}

	payload, err := s.csv.Render(rows)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
	}
	return payload, exportFilename(record, "csv"), nil
}

// ExportPDF renders the timetable as a week-view grid.
func (s *ExportService) ExportPDF(ctx context.Context, timetableID string) ([]byte, string, error) {
	record, entries, err := s.load(ctx, timetableID)
	if err != nil {
		return nil, "", err
	}

	slots := s.grid.TeachingSlots()
	slotIndex := make(map[int]int, len(slots))
	labels := make([]string, len(slots))
	for i, slot := range slots {
		slotIndex[slot.ID] = i
		labels[i] = fmt.Sprintf("%s-%s", slot.Start, slot.End)
	}

	dayIndex := make(map[string]int, len(s.grid.WorkingDays))
	for i, day := range s.grid.WorkingDays {
		dayIndex[day] = i
	}

	cells := make([][]string, len(s.grid.WorkingDays))
	for i := range cells {
		cells[i] = make([]string, len(slots))
	}
	for _, e := range entries {
		di, okDay := dayIndex[e.Day]
		si, okSlot := slotIndex[e.TimeSlotID]
		if !okDay || !okSlot {
			continue
		}
		text := fmt.Sprintf("%s\n%s\n%s", e.CourseCode, e.FacultyName, e.RoomNumber)
		for i := 0; i < e.Duration && si+i < len(slots); i++ {
			cells[di][si+i] = text
		}
	}

	grid := export.Grid{
		Title:      record.Name,
		SlotLabels: labels,
		DayRows:    append([]string(nil), s.grid.WorkingDays...),
		Cells:      cells,
		Annotations: []string{
			fmt.Sprintf("Status: %s", record.Status),
			fmt.Sprintf("Fitness score: %d", record.FitnessScore),
			fmt.Sprintf("Generated: %s", record.GeneratedAt.UTC().Format(time.RFC3339)),
		},
	}

	payload, err := s.pdf.RenderGrid(grid)
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
	}
	return payload, exportFilename(record, "pdf"), nil
}

func (s *ExportService) load(ctx context.Context, timetableID string) (*models.Timetable, []models.ScheduleEntry, error) {
	if timetableID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "timetable id is required")
	}
	record, err := s.timetables.FindByID(ctx, timetableID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "timetable not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	entries, err := s.timetables.ListEntries(ctx, timetableID)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedule entries")
	}
	return record, entries, nil
}

func exportFilename(record *models.Timetable, format string) string {
	timestamp := time.Now().UTC().Format("20060102_150405")
	scope := sanitizeFilename(fmt.Sprintf("%s_sem%d", record.Department, record.Semester))
	return fmt.Sprintf("timetable_%s_%s.%s", scope, timestamp, format)
}

func sanitizeFilename(raw string) string {
	if raw == "" {
		return "na"
	}
	replacer := strings.NewReplacer(" ", "_", "/", "-", "\\", "-", ":", "-", "..", ".", "__", "_")
	result := replacer.Replace(raw)
	if len(result) > 100 {
		return result[:100]
	}
	return result
}
