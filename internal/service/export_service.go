package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"ntraining/backend/internal/model"
	"ntraining/backend/internal/repository"
)

// ── Export errors ──

var (
	ErrExportGenerateFail = errors.New("failed to generate spreadsheet")
)

// ExportService spreadsheet exports for administrators.
//
// The workbook is returned as a buffer; the handler sets the download
// headers and writes it out.
type ExportService interface {
	// ExportUtilization license utilization of one organization as .xlsx
	ExportUtilization(ctx context.Context, orgID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService creates an ExportService.
func NewExportService(repo *repository.Repository, logger *zap.Logger, opts ...Option) ExportService {
	o := buildOptions(opts)
	return &exportService{repo: repo, logger: logger, now: o.now}
}

// ═══════════════════════════════════════════════════════════
// ExportUtilization
// ═══════════════════════════════════════════════════════════
//
// Layout:
//   - title row: organization name and export time
//   - one row per grant: course, access type, seats, validity, flags
//   - unlimited and trial grants show "∞" for total and remaining

var utilizationHeaders = []string{
	"Course", "Access type", "Total seats", "Used seats", "Remaining",
	"Valid from", "Valid until", "Mandatory", "Auto enroll", "Certificates", "Status",
}

func (s *exportService) ExportUtilization(ctx context.Context, orgID string) (*bytes.Buffer, string, error) {
	org, err := s.repo.Catalog.GetOrganization(ctx, orgID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, "", ErrNotFound
		}
		s.logger.Error("load organization failed", zap.Error(err))
		return nil, "", storageErr(err)
	}

	grants, err := s.repo.LicenseGrant.ListByOrganization(ctx, orgID)
	if err != nil {
		s.logger.Error("list license grants failed", zap.Error(err))
		return nil, "", storageErr(err)
	}

	now := s.now()

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Utilization"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 36)
	f.SetColWidth(sheetName, "B", "K", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// title row
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s: license utilization (%s)", org.Name, now.Format("2006-01-02 15:04 UTC")))
	f.MergeCell(sheetName, "A1", cell(colName(len(utilizationHeaders)-1), 1))

	// header row
	for i, h := range utilizationHeaders {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(utilizationHeaders)-1), 2), headerStyle)

	// data rows
	row := 3
	for i := range grants {
		g := &grants[i]
		title := g.CourseID
		if g.Course != nil {
			title = g.Course.Title
		}
		values := []interface{}{
			title,
			string(g.AccessType),
			seatsCell(g.TotalSeats),
			g.UsedSeats,
			seatsCell(g.RemainingSeats()),
			g.ValidFrom.UTC().Format("2006-01-02"),
			dateCell(g.ValidUntil),
			yesNo(g.IsMandatory),
			yesNo(g.AutoEnroll),
			yesNo(g.AllowCertificate),
			grantStatus(g, now),
		}
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("write workbook failed", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("license_utilization_%s.xlsx", now.Format("20060102"))
	return buf, filename, nil
}

// ── helpers ──

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}

func seatsCell(v *int) interface{} {
	if v == nil {
		return "∞"
	}
	return *v
}

func dateCell(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.UTC().Format("2006-01-02")
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func grantStatus(g *model.LicenseGrant, now time.Time) string {
	switch {
	case g.RevokedAt != nil:
		return "revoked"
	case now.Before(g.ValidFrom):
		return "scheduled"
	case !g.IsValidAt(now):
		return "expired"
	default:
		return "active"
	}
}
