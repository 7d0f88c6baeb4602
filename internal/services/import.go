package services

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/internal/scheduling"
	"github.com/huangang/campy/pkg/logger"
	"github.com/jinzhu/now"
	"gorm.io/gorm"
)

// Import column headers.
const (
	ColActivityName  = "Activity Name"
	ColStartDate     = "Start Date"
	ColFinishDate    = "Finish Date"
	ColDuration      = "Duration (days)"
	ColAssigneeEmail = "Assignee Email"
	ColDiscipline    = "Discipline"
	ColZone          = "Zone"
	ColDescription   = "Description"
	ColStatus        = "Status"

	ImportPreviewRows = 10
)

var (
	RequiredImportHeaders = []string{ColActivityName, ColStartDate, ColFinishDate}
	ImportHeaders         = []string{
		ColActivityName, ColStartDate, ColFinishDate, ColDuration,
		ColAssigneeEmail, ColDiscipline, ColZone, ColDescription, ColStatus,
	}

	ErrEmptyImport = errors.New("import file is empty")
)

var importDates = &now.Config{
	TimeLocation: time.UTC,
	TimeFormats: []string{
		"2006-01-02", "2006-1-2", "2006/1/2", "1/2/2006", "1-2-2006",
		"2 Jan 2006", "Jan 2, 2006", "January 2, 2006", "2006-01-02T15:04:05Z07:00",
	},
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

var doneStatuses = map[string]bool{"complete": true, "completed": true, "done": true, "yes": true, "true": true, "1": true}

// ImportRow is one parsed data row of an import file.
type ImportRow struct {
	Row           int        `json:"row"`
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	StartOn       *time.Time `json:"start_on"`
	DueOn         *time.Time `json:"due_on"`
	DurationDays  string     `json:"duration_days"`
	AssigneeEmail string     `json:"assignee_email"`
	Discipline    string     `json:"discipline"`
	Zone          string     `json:"zone"`
	IsDone        bool       `json:"is_done"`
	Errors        []string   `json:"errors,omitempty"`
}

type ImportResult struct {
	Imported int         `json:"imported"`
	Skipped  int         `json:"skipped"`
	Errors   []string    `json:"errors"`
	Preview  []ImportRow `json:"preview,omitempty"`
}

// ImportService loads activities from CSV files.
type ImportService struct {
	db       *gorm.DB
	projects *ProjectService
	clock    scheduling.Clock
}

func NewImportService(db *gorm.DB, clock scheduling.Clock) *ImportService {
	return &ImportService{db: db, projects: NewProjectService(db), clock: clock}
}

// parseImportDate accepts the common date layouts and spreadsheet serials.
func parseImportDate(value string) *time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		d := excelEpoch.AddDate(0, 0, int(serial))
		return &d
	}
	t, err := importDates.Parse(value)
	if err != nil {
		return nil
	}
	d := scheduling.DateOf(t)
	return &d
}

type importFile struct {
	headers map[string]int
	rows    [][]string
	// firstRow is the file line number of rows[0].
	firstRow int
}

func readImportFile(r io.Reader) (*importFile, []string) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, []string{"Error opening file: " + err.Error()}
	}
	if len(records) == 0 {
		return nil, []string{ErrEmptyImport.Error()}
	}

	f := &importFile{headers: map[string]int{}, rows: records[1:], firstRow: 2}
	for i, h := range records[0] {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := f.headers[h]; !dup {
			f.headers[h] = i
		}
	}

	var missing []string
	for _, h := range RequiredImportHeaders {
		if _, ok := f.headers[h]; !ok {
			missing = append(missing, h)
		}
	}
	if len(missing) > 0 {
		return nil, []string{"Missing required columns: " + strings.Join(missing, ", ")}
	}
	return f, nil
}

func (f *importFile) cell(record []string, header string) string {
	i, ok := f.headers[header]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseRow returns nil for rows without an activity name.
func (f *importFile) parseRow(record []string, line int) *ImportRow {
	title := f.cell(record, ColActivityName)
	if title == "" {
		return nil
	}
	row := &ImportRow{
		Row:           line,
		Title:         title,
		Description:   f.cell(record, ColDescription),
		DurationDays:  f.cell(record, ColDuration),
		AssigneeEmail: models.NormalizeEmail(f.cell(record, ColAssigneeEmail)),
		Discipline:    f.cell(record, ColDiscipline),
		Zone:          f.cell(record, ColZone),
		IsDone:        doneStatuses[strings.ToLower(f.cell(record, ColStatus))],
	}
	row.StartOn = row.date(f.cell(record, ColStartDate), ColStartDate)
	row.DueOn = row.date(f.cell(record, ColFinishDate), ColFinishDate)
	return row
}

// date parses a date cell, recording an error for unreadable values.
func (row *ImportRow) date(raw, header string) *time.Time {
	d := parseImportDate(raw)
	if d == nil && raw != "" {
		row.Errors = append(row.Errors, header+" "+msgInvalidDate)
	}
	return d
}

// assignableEmails maps the project's assignable users by email.
func (s *ImportService) assignableEmails(project *models.Project) (map[string]uint, map[uint]struct{}, error) {
	ids, err := AssignableIDs(s.db, project)
	if err != nil {
		return nil, nil, err
	}
	list := make([]uint, 0, len(ids))
	for id := range ids {
		list = append(list, id)
	}
	var users []models.User
	if err := s.db.Select("id", "email").Where("id IN ?", list).Find(&users).Error; err != nil {
		return nil, nil, err
	}
	emails := make(map[string]uint, len(users))
	for _, u := range users {
		emails[models.NormalizeEmail(u.Email)] = u.ID
	}
	return emails, ids, nil
}

// Preview parses up to the first ten data rows without saving anything.
func (s *ImportService) Preview(actor Actor, projectID uint, r io.Reader) (*ImportResult, error) {
	project, err := s.projects.Authorize(actor, projectID, canManage)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{Errors: []string{}, Preview: []ImportRow{}}

	f, problems := readImportFile(r)
	if problems != nil {
		result.Errors = problems
		return result, nil
	}
	emails, _, err := s.assignableEmails(project)
	if err != nil {
		return nil, err
	}

	for i, record := range f.rows {
		if i >= ImportPreviewRows {
			break
		}
		row := f.parseRow(record, f.firstRow+i)
		if row == nil {
			continue
		}
		if row.AssigneeEmail != "" {
			if _, ok := emails[row.AssigneeEmail]; !ok {
				row.Errors = append(row.Errors, assigneeNotFound(row.AssigneeEmail))
			}
		}
		result.Preview = append(result.Preview, *row)
	}
	return result, nil
}

func assigneeNotFound(email string) string {
	return fmt.Sprintf("Assignee '%s' not found in project team", email)
}

// Import saves every valid row. Rows failing validation are skipped and
// reported; the rest are kept.
func (s *ImportService) Import(actor Actor, projectID uint, r io.Reader) (*ImportResult, error) {
	project, err := s.projects.Authorize(actor, projectID, canManage)
	if err != nil {
		return nil, err
	}
	result := &ImportResult{Errors: []string{}}

	f, problems := readImportFile(r)
	if problems != nil {
		result.Errors = problems
		return result, nil
	}
	emails, assignable, err := s.assignableEmails(project)
	if err != nil {
		return nil, err
	}

	for i, record := range f.rows {
		row := f.parseRow(record, f.firstRow+i)
		if row == nil {
			continue
		}
		if err := s.importRow(project, row, emails, assignable); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %s", row.Row, rowMessage(err)))
			result.Skipped++
			continue
		}
		result.Imported++
	}

	logger.Info().Uint("project_id", project.ID).Int("imported", result.Imported).Int("skipped", result.Skipped).Msg("activities imported")
	return result, nil
}

func rowMessage(err error) string {
	var verr *ValidationError
	if errors.As(err, &verr) {
		parts := make([]string, len(verr.Fields))
		for i, fe := range verr.Fields {
			parts[i] = fe.Field + " " + fe.Message
		}
		return strings.Join(parts, ", ")
	}
	return err.Error()
}

func (s *ImportService) importRow(project *models.Project, row *ImportRow, emails map[string]uint, assignable map[uint]struct{}) error {
	a := &models.Activity{
		ProjectID:   project.ID,
		Title:       row.Title,
		Description: row.Description,
		StartOn:     row.StartOn,
		DueOn:       row.DueOn,
		IsDone:      row.IsDone,
	}

	if len(row.Errors) > 0 {
		return errors.New(strings.Join(row.Errors, ", "))
	}

	var checks scheduling.Checks
	if row.DurationDays != "" {
		days, problem := scheduling.ParseDurationInput(row.DurationDays).Days()
		a.DurationDays = days
		checks.DurationProblem = problem
	}
	if row.AssigneeEmail != "" {
		id, ok := emails[row.AssigneeEmail]
		if !ok {
			return errors.New(assigneeNotFound(row.AssigneeEmail))
		}
		a.AssigneeID = &id
	}
	checks.AssignableIDs = assignable

	scheduling.ApplyDefaults(a, s.clock)
	if err := newValidationError(scheduling.Prepare(a, checks)); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if row.Discipline != "" {
			d, err := findOrCreateDiscipline(tx, row.Discipline)
			if err != nil {
				return err
			}
			a.DisciplineID = &d.ID
		}
		if row.Zone != "" {
			z, err := findOrCreateZone(tx, row.Zone)
			if err != nil {
				return err
			}
			a.ZoneID = &z.ID
		}
		return tx.Create(a).Error
	})
}

// Template is a sample import file with example rows dated from today.
func (s *ImportService) Template() ([]byte, error) {
	today := scheduling.Today(s.clock)
	day := func(n int) string { return scheduling.AddDays(today, n).Format("2006-01-02") }

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	rows := [][]string{
		ImportHeaders,
		{"Design Phase", day(0), day(14), "14", "user@example.com", "Engineering", "Zone A", "Complete the design phase", "Not Started"},
		{"Development Phase", day(15), day(45), "30", "", "Development", "Zone B", "Implement the solution", "Not Started"},
		{"Testing Phase", day(46), day(60), "15", "", "QA", "Zone A", "Test the implementation", "Not Started"},
	}
	if err := w.WriteAll(rows); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
