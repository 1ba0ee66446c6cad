package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
)

// SessionRow is one scheduled session in the flat timetable listing.
type SessionRow struct {
	Day         string
	Start       string
	End         string
	CourseCode  string
	CourseName  string
	SessionType string
	Faculty     string
	Room        string
	Hours       int
}

// sessionHeader fixes the listing's column order.
var sessionHeader = []string{
	"Day", "Start", "End", "Course Code", "Course Name",
	"Session Type", "Faculty", "Room", "Duration (h)",
}

// CSVExporter renders schedule listings as CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes the header row followed by one record per session, in
// the order the rows are given.
func (e *CSVExporter) Render(rows []SessionRow) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if err := writer.Write(sessionHeader); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range rows {
		record := []string{
			r.Day,
			r.Start,
			r.End,
			r.CourseCode,
			r.CourseName,
			r.SessionType,
			r.Faculty,
			r.Room,
			strconv.Itoa(r.Hours),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
