package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

type fakeRoster struct {
	students []models.Student
	err      error
	calls    int32
}

func (f *fakeRoster) ListAll(context.Context, models.StudentFilter) ([]models.Student, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.students, f.err
}

type fakeGradeLister struct {
	grades []models.Grade
	err    error
}

func (f *fakeGradeLister) List(_ context.Context, filter models.GradeFilter) ([]models.Grade, error) {
	if f.err != nil {
		return nil, f.err
	}
	if filter.StudentID == 0 {
		return f.grades, nil
	}
	var out []models.Grade
	for _, g := range f.grades {
		if g.StudentID == filter.StudentID {
			out = append(out, g)
		}
	}
	return out, nil
}

type fakeAttendanceLister struct {
	records []models.AttendanceRecord
	err     error
}

func (f *fakeAttendanceLister) List(_ context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if filter.StudentID == 0 {
		return f.records, nil
	}
	var out []models.AttendanceRecord
	for _, r := range f.records {
		if r.StudentID == filter.StudentID {
			out = append(out, r)
		}
	}
	return out, nil
}

func mustDate(raw string) models.Date {
	d, err := models.ParseDate(raw)
	if err != nil {
		panic(err)
	}
	return d
}

func classFixture() (*fakeRoster, *fakeGradeLister, *fakeAttendanceLister) {
	roster := &fakeRoster{students: []models.Student{
		{ID: 1, FirstName: "Ada", LastName: "Lovelace", StudentCode: "S1", Status: models.StudentStatusActive},
		{ID: 2, FirstName: "Alan", LastName: "Turing", StudentCode: "S2", Status: models.StudentStatusActive},
		{ID: 3, FirstName: "Grace", LastName: "Hopper", StudentCode: "S3", Status: models.StudentStatusInactive},
	}}
	grades := &fakeGradeLister{grades: []models.Grade{
		{ID: 1, StudentID: 1, Category: models.GradeCategoryTest, Percentage: 95, LetterGrade: "A"},
		{ID: 2, StudentID: 1, Category: models.GradeCategoryHomework, Percentage: 93, LetterGrade: "A"},
		{ID: 3, StudentID: 2, Category: models.GradeCategoryQuiz, Percentage: 75, LetterGrade: "C"},
		{ID: 4, StudentID: 2, Category: models.GradeCategoryQuiz, Percentage: 85, LetterGrade: "B"},
		{ID: 5, StudentID: 3, Category: models.GradeCategoryHomework, Percentage: 80, LetterGrade: "B-"},
	}}
	attendance := &fakeAttendanceLister{records: []models.AttendanceRecord{
		{ID: 1, StudentID: 1, Date: mustDate("2024-03-01"), Status: models.AttendanceStatusPresent},
		{ID: 2, StudentID: 1, Date: mustDate("2024-03-02"), Status: models.AttendanceStatusTardy},
		{ID: 3, StudentID: 2, Date: mustDate("2024-03-03"), Status: models.AttendanceStatusAbsent},
		{ID: 4, StudentID: 2, Date: mustDate("2024-04-01"), Status: models.AttendanceStatusPresent},
	}}
	return roster, grades, attendance
}

func newReportService(roster *fakeRoster, grades *fakeGradeLister, attendance *fakeAttendanceLister, cache *CacheService) *ReportService {
	svc := NewReportService(ReportServiceParams{
		Students:   roster,
		Grades:     grades,
		Attendance: attendance,
		Cache:      cache,
	})
	svc.now = func() time.Time { return time.Date(2024, 3, 15, 9, 0, 0, 0, time.UTC) }
	return svc
}

func newClassReportService() *ReportService {
	roster, grades, attendance := classFixture()
	return newReportService(roster, grades, attendance, nil)
}

func TestReportServiceClassReport(t *testing.T) {
	svc := newClassReportService()

	report, cached, err := svc.ClassReport(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	assert.Equal(t, dto.ReportOverview{
		TotalStudents:     2,
		RosterSize:        3,
		AverageGPA:        3.25,
		AverageAttendance: 75,
		TotalGrades:       5,
	}, report.Overview)
	assert.Equal(t, []dto.GradeBucket{{Grade: "A", Count: 2}, {Grade: "B", Count: 2}, {Grade: "C", Count: 1}}, report.GradeDistribution)
	assert.Equal(t, []dto.CategoryAverage{
		{Category: models.GradeCategoryHomework, Average: 87, Count: 2},
		{Category: models.GradeCategoryQuiz, Average: 80, Count: 2},
		{Category: models.GradeCategoryTest, Average: 95, Count: 1},
	}, report.CategoryAnalysis)
	assert.Equal(t, []dto.MonthlyAttendance{
		{Month: "2024-03", Rate: 33, Present: 1, Absent: 1, Tardy: 1},
		{Month: "2024-04", Rate: 100, Present: 1},
	}, report.MonthlyAttendance)

	require.Len(t, report.StudentPerformance, 2)
	assert.Equal(t, dto.StudentPerformance{
		StudentID: 1, Name: "Ada Lovelace", StudentCode: "S1", GPA: 4, AttendanceRate: 100, GradeCount: 2, Tier: dto.TierExcellent,
	}, report.StudentPerformance[0])
	assert.Equal(t, 2.5, report.StudentPerformance[1].GPA)
	assert.Equal(t, 50, report.StudentPerformance[1].AttendanceRate)
	assert.Equal(t, dto.TierNeedsAttention, report.StudentPerformance[1].Tier)
}

func TestReportServiceMissingLetterCountsAsF(t *testing.T) {
	roster, grades, attendance := classFixture()
	grades.grades = append(grades.grades, models.Grade{ID: 9, StudentID: 1, Category: models.GradeCategoryLab})
	svc := newReportService(roster, grades, attendance, nil)

	report, _, err := svc.ClassReport(context.Background())
	require.NoError(t, err)
	assert.Contains(t, report.GradeDistribution, dto.GradeBucket{Grade: "F", Count: 1})
}

func TestReportServiceUsesCache(t *testing.T) {
	roster, grades, attendance := classFixture()
	cache := NewCacheService(newMapCacheRepo(), nil, time.Minute, nil, true)
	svc := newReportService(roster, grades, attendance, cache)

	_, cached, err := svc.ClassReport(context.Background())
	require.NoError(t, err)
	assert.False(t, cached)

	report, cached, err := svc.ClassReport(context.Background())
	require.NoError(t, err)
	assert.True(t, cached)
	assert.Equal(t, 2, report.Overview.TotalStudents)
	assert.Equal(t, int32(1), atomic.LoadInt32(&roster.calls))
}

func TestReportServiceLoadFailure(t *testing.T) {
	roster, grades, attendance := classFixture()
	grades.err = appErrors.Clone(appErrors.ErrUnavailable, "record store unavailable")
	svc := newReportService(roster, grades, attendance, nil)

	_, _, err := svc.ClassReport(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrUnavailable))
}

func TestReportServiceRenderText(t *testing.T) {
	svc := newClassReportService()

	out, err := svc.Render(context.Background(), models.ExportFormatText)
	require.NoError(t, err)
	assert.Equal(t, "class-report-2024-03-15.txt", out.Filename)
	assert.Equal(t, strings.Join([]string{
		"CLASS PERFORMANCE REPORT",
		"Generated: 2024-03-15",
		"",
		"OVERVIEW STATISTICS",
		"===================",
		"Total Students: 2",
		"Average GPA: 3.25",
		"Average Attendance: 75%",
		"",
		"GRADE DISTRIBUTION",
		"==================",
		"A: 2 students",
		"B: 2 students",
		"C: 1 students",
		"",
		"STUDENT PERFORMANCE",
		"===================",
		"Ada Lovelace - GPA: 4, Attendance: 100%",
		"Alan Turing - GPA: 2.5, Attendance: 50%",
	}, "\n"), string(out.Data))
}

func TestReportServiceRenderCSVAndPDF(t *testing.T) {
	svc := newClassReportService()

	csv, err := svc.Render(context.Background(), models.ExportFormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "class-report-2024-03-15.csv", csv.Filename)
	assert.Equal(t, "text/csv", csv.ContentType)
	assert.Contains(t, string(csv.Data), "Student,Code,GPA,Attendance,Grades,Tier\n")
	assert.Contains(t, string(csv.Data), "Ada Lovelace,S1,4,100%,2,Excellent\n")

	pdf, err := svc.Render(context.Background(), models.ExportFormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Data, []byte("%PDF")))
}

func TestReportServiceRenderRejectsUnknownFormat(t *testing.T) {
	svc := newClassReportService()
	_, err := svc.Render(context.Background(), models.ExportFormat("xlsx"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestPerformanceTier(t *testing.T) {
	cases := []struct {
		gpa  float64
		rate int
		want string
	}{
		{3.5, 90, dto.TierExcellent},
		{3.9, 89, dto.TierGood},
		{3.0, 80, dto.TierGood},
		{3.4, 79, dto.TierNeedsAttention},
		{2.9, 100, dto.TierNeedsAttention},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, PerformanceTier(tc.gpa, tc.rate))
	}
}
