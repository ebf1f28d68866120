package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/classroom-api/internal/dto"
	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/internal/scoring"
	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
	"github.com/noah-isme/classroom-api/pkg/export"
)

const (
	reportCacheKey      = "report:class"
	reportOverviewLimit = 5
)

type rosterLister interface {
	ListAll(ctx context.Context, filter models.StudentFilter) ([]models.Student, error)
}

type gradeLister interface {
	List(ctx context.Context, filter models.GradeFilter) ([]models.Grade, error)
}

type attendanceLister interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type documentRenderer interface {
	RenderDocument(doc export.Document) ([]byte, error)
}

// ReportServiceConfig tunes report generation.
type ReportServiceConfig struct {
	CacheTTL         time.Duration
	PerformanceLimit int
}

// ReportServiceParams groups constructor dependencies.
type ReportServiceParams struct {
	Students   rosterLister
	Grades     gradeLister
	Attendance attendanceLister
	Cache      *CacheService
	CSV        documentRenderer
	PDF        documentRenderer
	Logger     *zap.Logger
	Config     ReportServiceConfig
}

// RenderedReport is an encoded report ready for download.
type RenderedReport struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ReportService builds the class performance report.
type ReportService struct {
	students   rosterLister
	grades     gradeLister
	attendance attendanceLister
	cache      *CacheService
	csv        documentRenderer
	pdf        documentRenderer
	logger     *zap.Logger
	now        func() time.Time
	cfg        ReportServiceConfig
}

// NewReportService constructs a ReportService.
func NewReportService(params ReportServiceParams) *ReportService {
	cfg := params.Config
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.PerformanceLimit <= 0 {
		cfg.PerformanceLimit = 10
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	csv := params.CSV
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	pdf := params.PDF
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ReportService{
		students:   params.Students,
		grades:     params.Grades,
		attendance: params.Attendance,
		cache:      params.Cache,
		csv:        csv,
		pdf:        pdf,
		logger:     logger,
		now:        time.Now,
		cfg:        cfg,
	}
}

// ClassReport returns the class report and whether it came from cache.
func (s *ReportService) ClassReport(ctx context.Context) (*dto.ClassReport, bool, error) {
	if s.cache != nil {
		var cached dto.ClassReport
		hit, err := s.cache.Get(ctx, reportCacheKey, &cached)
		if err != nil {
			s.logger.Warn("report cache read failed", zap.Error(err))
		} else if hit {
			return &cached, true, nil
		}
	}

	report, err := s.build(ctx)
	if err != nil {
		return nil, false, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, reportCacheKey, report, s.cfg.CacheTTL); err != nil {
			s.logger.Warn("report cache write failed", zap.Error(err))
		}
	}
	return report, false, nil
}

// Render encodes the class report in the requested format.
func (s *ReportService) Render(ctx context.Context, format models.ExportFormat) (*RenderedReport, error) {
	if !format.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported report format")
	}
	report, _, err := s.ClassReport(ctx)
	if err != nil {
		return nil, err
	}

	day := s.now().UTC().Format(models.DateLayout)
	out := &RenderedReport{}
	switch format {
	case models.ExportFormatText:
		out.Filename = "class-report-" + day + ".txt"
		out.ContentType = "text/plain; charset=utf-8"
		out.Data = []byte(reportText(report, day))
	case models.ExportFormatCSV:
		out.Filename = "class-report-" + day + ".csv"
		out.ContentType = "text/csv"
		out.Data, err = s.csv.RenderDocument(reportDocument(report, day))
	case models.ExportFormatPDF:
		out.Filename = "class-report-" + day + ".pdf"
		out.ContentType = "application/pdf"
		out.Data, err = s.pdf.RenderDocument(reportDocument(report, day))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render report")
	}
	return out, nil
}

func (s *ReportService) build(ctx context.Context) (*dto.ClassReport, error) {
	var (
		students   []models.Student
		grades     []models.Grade
		attendance []models.AttendanceRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		students, err = s.students.ListAll(gctx, models.StudentFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		grades, err = s.grades.List(gctx, models.GradeFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		attendance, err = s.attendance.List(gctx, models.AttendanceFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, storeError(err, "failed to load report data")
	}

	gradesByStudent := make(map[int64][]models.Grade)
	for _, grade := range grades {
		gradesByStudent[grade.StudentID] = append(gradesByStudent[grade.StudentID], grade)
	}
	attendanceByStudent := make(map[int64][]models.AttendanceRecord)
	for _, rec := range attendance {
		attendanceByStudent[rec.StudentID] = append(attendanceByStudent[rec.StudentID], rec)
	}

	active := make([]models.Student, 0, len(students))
	for _, st := range students {
		if st.IsActive() {
			active = append(active, st)
		}
	}

	var gpas []float64
	var rates []int
	for _, st := range firstStudents(active, reportOverviewLimit) {
		gpas = append(gpas, scoring.ComputeGPA(gradesByStudent[st.ID]))
		rates = append(rates, scoring.ComputeRate(attendanceByStudent[st.ID], nil, nil))
	}

	performance := make([]dto.StudentPerformance, 0, s.cfg.PerformanceLimit)
	for _, st := range firstStudents(active, s.cfg.PerformanceLimit) {
		gpa := scoring.ComputeGPA(gradesByStudent[st.ID])
		rate := scoring.ComputeRate(attendanceByStudent[st.ID], nil, nil)
		performance = append(performance, dto.StudentPerformance{
			StudentID:      st.ID,
			Name:           st.FullName(),
			StudentCode:    st.StudentCode,
			GPA:            gpa,
			AttendanceRate: rate,
			GradeCount:     len(gradesByStudent[st.ID]),
			Tier:           PerformanceTier(gpa, rate),
		})
	}

	return &dto.ClassReport{
		Overview: dto.ReportOverview{
			TotalStudents:     len(active),
			RosterSize:        len(students),
			AverageGPA:        scoring.Average(gpas),
			AverageAttendance: scoring.AverageRate(rates),
			TotalGrades:       len(grades),
		},
		GradeDistribution:  gradeDistribution(grades),
		CategoryAnalysis:   categoryAnalysis(grades),
		MonthlyAttendance:  monthlyAttendance(attendance),
		StudentPerformance: performance,
		GeneratedAt:        s.now().UTC(),
	}, nil
}

// PerformanceTier classifies a student by GPA and attendance rate.
func PerformanceTier(gpa float64, rate int) string {
	switch {
	case gpa >= 3.5 && rate >= 90:
		return dto.TierExcellent
	case gpa >= 3.0 && rate >= 80:
		return dto.TierGood
	default:
		return dto.TierNeedsAttention
	}
}

func firstStudents(students []models.Student, n int) []models.Student {
	if n < len(students) {
		return students[:n]
	}
	return students
}

// gradeDistribution buckets grades by the first letter of the letter grade.
// Missing letters count as F.
func gradeDistribution(grades []models.Grade) []dto.GradeBucket {
	counts := make(map[string]int)
	for _, g := range grades {
		letter := "F"
		if g.LetterGrade != "" {
			letter = g.LetterGrade[:1]
		}
		counts[letter]++
	}
	buckets := make([]dto.GradeBucket, 0, len(counts))
	for letter, count := range counts {
		buckets = append(buckets, dto.GradeBucket{Grade: letter, Count: count})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Grade < buckets[j].Grade })
	return buckets
}

func categoryAnalysis(grades []models.Grade) []dto.CategoryAverage {
	sums := make(map[models.GradeCategory]int)
	counts := make(map[models.GradeCategory]int)
	for _, g := range grades {
		sums[g.Category] += g.Percentage
		counts[g.Category]++
	}
	out := make([]dto.CategoryAverage, 0, len(counts))
	for _, category := range models.GradeCategories {
		if counts[category] == 0 {
			continue
		}
		out = append(out, dto.CategoryAverage{
			Category: category,
			Average:  int(math.Round(float64(sums[category]) / float64(counts[category]))),
			Count:    counts[category],
		})
		delete(counts, category)
	}
	// categories outside the known set still show up, after the known ones
	var extra []models.GradeCategory
	for category := range counts {
		extra = append(extra, category)
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	for _, category := range extra {
		out = append(out, dto.CategoryAverage{
			Category: category,
			Average:  int(math.Round(float64(sums[category]) / float64(counts[category]))),
			Count:    counts[category],
		})
	}
	return out
}

// monthlyAttendance reports the Present share per month; Tardy counts
// against the rate here, unlike the per-student attendance rate.
func monthlyAttendance(records []models.AttendanceRecord) []dto.MonthlyAttendance {
	months := make(map[string]*dto.MonthlyAttendance)
	for _, rec := range records {
		if rec.Date.IsZero() {
			continue
		}
		key := rec.Date.Format(monthLayout)
		m, ok := months[key]
		if !ok {
			m = &dto.MonthlyAttendance{Month: key}
			months[key] = m
		}
		switch rec.Status {
		case models.AttendanceStatusPresent:
			m.Present++
		case models.AttendanceStatusAbsent:
			m.Absent++
		case models.AttendanceStatusTardy:
			m.Tardy++
		}
	}
	out := make([]dto.MonthlyAttendance, 0, len(months))
	for _, m := range months {
		if total := m.Present + m.Absent + m.Tardy; total > 0 {
			m.Rate = int(math.Round(float64(m.Present) / float64(total) * 100))
		}
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

func reportText(r *dto.ClassReport, day string) string {
	var b strings.Builder
	b.WriteString("CLASS PERFORMANCE REPORT\n")
	fmt.Fprintf(&b, "Generated: %s\n\n", day)
	b.WriteString("OVERVIEW STATISTICS\n===================\n")
	fmt.Fprintf(&b, "Total Students: %d\n", r.Overview.TotalStudents)
	fmt.Fprintf(&b, "Average GPA: %s\n", formatNumber(r.Overview.AverageGPA))
	fmt.Fprintf(&b, "Average Attendance: %d%%\n\n", r.Overview.AverageAttendance)
	b.WriteString("GRADE DISTRIBUTION\n==================\n")
	for _, bucket := range r.GradeDistribution {
		fmt.Fprintf(&b, "%s: %d students\n", bucket.Grade, bucket.Count)
	}
	b.WriteString("\nSTUDENT PERFORMANCE\n===================\n")
	for _, row := range r.StudentPerformance {
		fmt.Fprintf(&b, "%s - GPA: %s, Attendance: %d%%\n", row.Name, formatNumber(row.GPA), row.AttendanceRate)
	}
	return strings.TrimSpace(b.String())
}

func reportDocument(r *dto.ClassReport, day string) export.Document {
	overview := export.Dataset{
		Headers: []string{"Metric", "Value"},
		Rows: []map[string]string{
			{"Metric": "Total Students", "Value": strconv.Itoa(r.Overview.TotalStudents)},
			{"Metric": "Roster Size", "Value": strconv.Itoa(r.Overview.RosterSize)},
			{"Metric": "Average GPA", "Value": formatNumber(r.Overview.AverageGPA)},
			{"Metric": "Average Attendance", "Value": strconv.Itoa(r.Overview.AverageAttendance) + "%"},
			{"Metric": "Total Grades", "Value": strconv.Itoa(r.Overview.TotalGrades)},
		},
	}

	distribution := export.Dataset{Headers: []string{"Grade", "Students"}}
	for _, bucket := range r.GradeDistribution {
		distribution.Rows = append(distribution.Rows, map[string]string{"Grade": bucket.Grade, "Students": strconv.Itoa(bucket.Count)})
	}

	categories := export.Dataset{Headers: []string{"Category", "Average", "Grades"}}
	for _, c := range r.CategoryAnalysis {
		categories.Rows = append(categories.Rows, map[string]string{
			"Category": string(c.Category),
			"Average":  strconv.Itoa(c.Average) + "%",
			"Grades":   strconv.Itoa(c.Count),
		})
	}

	monthly := export.Dataset{Headers: []string{"Month", "Rate", "Present", "Absent", "Tardy"}}
	for _, m := range r.MonthlyAttendance {
		monthly.Rows = append(monthly.Rows, map[string]string{
			"Month":   m.Month,
			"Rate":    strconv.Itoa(m.Rate) + "%",
			"Present": strconv.Itoa(m.Present),
			"Absent":  strconv.Itoa(m.Absent),
			"Tardy":   strconv.Itoa(m.Tardy),
		})
	}

	performance := export.Dataset{Headers: []string{"Student", "Code", "GPA", "Attendance", "Grades", "Tier"}}
	for _, row := range r.StudentPerformance {
		performance.Rows = append(performance.Rows, map[string]string{
			"Student":    row.Name,
			"Code":       row.StudentCode,
			"GPA":        formatNumber(row.GPA),
			"Attendance": strconv.Itoa(row.AttendanceRate) + "%",
			"Grades":     strconv.Itoa(row.GradeCount),
			"Tier":       row.Tier,
		})
	}

	return export.Document{
		Title:    "Class Performance Report",
		Subtitle: "Generated " + day,
		Sections: []export.Section{
			{Title: "Overview Statistics", Data: overview},
			{Title: "Grade Distribution", Data: distribution},
			{Title: "Grade Analysis by Category", Data: categories},
			{Title: "Monthly Attendance", Data: monthly},
			{Title: "Student Performance", Data: performance},
		},
	}
}

// formatNumber prints the shortest decimal form, so 3.5 stays "3.5".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
