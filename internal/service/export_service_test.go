package service

import (
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"ntraining/backend/internal/dto"
)

func TestExportService_ExportUtilization(t *testing.T) {
	env := newTestEnv(t)
	env.grant(env.course.CourseID, intPtr(4))
	_, _ = env.assign(env.user.UserID, env.course.CourseID, true)

	open := env.newCourse("Open library")
	until := env.clock.Now().Add(time.Hour)
	env.grant(open.CourseID, nil, func(r *dto.GrantAccessRequest) { r.ValidUntil = &until })
	env.clock.Advance(2 * time.Hour)

	buf, filename, err := env.export.ExportUtilization(env.ctx, env.org.OrganizationID)
	if err != nil {
		t.Fatalf("ExportUtilization failed: %v", err)
	}
	if filename != "license_utilization_20260302.xlsx" {
		t.Errorf("unexpected filename %q", filename)
	}

	f, err := excelize.OpenReader(buf)
	if err != nil {
		t.Fatalf("workbook should open: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Utilization")
	if err != nil {
		t.Fatalf("GetRows failed: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected title, header and 2 data rows, got %d", len(rows))
	}

	byCourse := map[string][]string{}
	for _, r := range rows[2:] {
		byCourse[r[0]] = r
	}
	licensed := byCourse[env.course.Title]
	if licensed == nil || licensed[2] != "4" || licensed[3] != "1" || licensed[4] != "3" || licensed[10] != "active" {
		t.Errorf("unexpected licensed row: %v", licensed)
	}
	unlimited := byCourse["Open library"]
	if unlimited == nil || unlimited[2] != "∞" || unlimited[10] != "expired" {
		t.Errorf("unexpected unlimited row: %v", unlimited)
	}
}

func TestExportService_UnknownOrganization(t *testing.T) {
	env := newTestEnv(t)

	if _, _, err := env.export.ExportUtilization(env.ctx, "00000000-0000-0000-0000-000000000000"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
