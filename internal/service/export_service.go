package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"campus-events/backend/internal/model"
	"campus-events/backend/internal/repository"
	pkgerrors "campus-events/backend/pkg/errors"
)

// ── export module errors ──

var (
	ErrExportNothing      = pkgerrors.New(pkgerrors.ErrInvalidState, "event has no teams or registrations to export")
	ErrExportGenerateFail = errors.New("failed to generate the spreadsheet")
)

// ExportService spreadsheet exports.
// The workbook is returned as a buffer; the handler sets the download headers.
type ExportService interface {
	// ExportRegistrations teams and solo registrations of one event
	ExportRegistrations(ctx context.Context, actor Actor, eventID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
}

// NewExportService creates an ExportService; timestamps are rendered in loc
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	if loc == nil {
		loc = time.UTC
	}
	return &exportService{repo: repo, loc: loc, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportRegistrations
// ═══════════════════════════════════════════════════════════
//
// Layout:
//   - row 1: event title, merged across the table
//   - row 2: header
//   - one row per participant; team events list the creator first, then
//     invited members in position order, then the mentor
//   - solo events list one row per registration

var teamHeader = []string{"Team", "Team status", "Role", "Name", "Email", "Department", "Year", "Invitation", "Registered at", "Verified at"}

var soloHeader = []string{"Name", "Email", "Department", "Year", "Registered at"}

func (s *exportService) ExportRegistrations(ctx context.Context, actor Actor, eventID string) (*bytes.Buffer, string, error) {
	event, err := s.repo.Event.GetByID(ctx, eventID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrEventNotFound
		}
		s.logger.Error("get event failed", zap.String("id", eventID), zap.Error(err))
		return nil, "", err
	}
	if !canOverseeTeams(event, actor) {
		return nil, "", ErrForbidden
	}

	var (
		header []string
		rows   [][]interface{}
	)
	if event.IsSolo() {
		header = soloHeader
		rows, err = s.soloRows(ctx, eventID)
	} else {
		header = teamHeader
		rows, err = s.teamRows(ctx, event)
	}
	if err != nil {
		s.logger.Error("load registrations failed", zap.String("event_id", eventID), zap.Error(err))
		return nil, "", err
	}
	if len(rows) == 0 {
		return nil, "", ErrExportNothing
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Registrations"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	for i := range header {
		f.SetColWidth(sheetName, colName(i), colName(i), 20)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheetName, "A1", event.Title)
	f.MergeCell(sheetName, "A1", cell(colName(len(header)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	for i, h := range header {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(header)-1), 2), headerStyle)

	for r, values := range rows {
		for c, v := range values {
			f.SetCellValue(sheetName, cell(colName(c), r+3), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write spreadsheet failed", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("registrations_%s.xlsx", safeFilename(event.Title))
	return buf, filename, nil
}

func (s *exportService) teamRows(ctx context.Context, event *model.Event) ([][]interface{}, error) {
	teams, err := s.repo.Team.ListByEvent(ctx, event.EventID)
	if err != nil {
		return nil, err
	}

	var rows [][]interface{}
	for i := range teams {
		t := &teams[i]
		status := string(DeriveTeamStatus(t, event))
		registered := s.formatTime(t.RegisteredAt)
		verified := s.formatTime(t.VerifiedAt)

		row := func(role string, u *model.User, invite string) []interface{} {
			return append([]interface{}{t.Name, status, role}, append(userColumns(u), invite, registered, verified)...)
		}

		rows = append(rows, row("creator", t.Creator, string(model.InviteStatusAccepted)))
		for _, m := range t.Members {
			rows = append(rows, row("member", m.User, string(m.Status)))
		}
		if t.MentorID != nil {
			invite := ""
			if t.MentorStatus != nil {
				invite = string(*t.MentorStatus)
			}
			rows = append(rows, row("mentor", t.Mentor, invite))
		}
	}
	return rows, nil
}

func (s *exportService) soloRows(ctx context.Context, eventID string) ([][]interface{}, error) {
	regs, err := s.repo.Registration.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rows := make([][]interface{}, 0, len(regs))
	for i := range regs {
		created := regs[i].CreatedAt
		rows = append(rows, append(userColumns(regs[i].User), s.formatTime(&created)))
	}
	return rows, nil
}

func (s *exportService) formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.In(s.loc).Format("2006-01-02 15:04")
}

// userColumns name, email, department, year
func userColumns(u *model.User) []interface{} {
	if u == nil {
		return []interface{}{"", "", "", ""}
	}
	dept := ""
	if u.Department != nil {
		dept = u.Department.Code
	}
	year := ""
	if u.AcademicYear > 0 {
		year = fmt.Sprint(u.AcademicYear)
	}
	return []interface{}{u.Name, u.Email, dept, year}
}

// ── helpers ──

var unsafeFilenameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

func safeFilename(title string) string {
	name := unsafeFilenameChars.ReplaceAllString(title, "_")
	if len(name) > 60 {
		name = name[:60]
	}
	if name == "" {
		name = "event"
	}
	return name
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
