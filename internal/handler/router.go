package handler

import "github.com/gin-gonic/gin"

// Handlers bundles every HTTP handler mounted by RegisterRoutes.
// Nil handlers leave their routes unmounted.
type Handlers struct {
	Students   *StudentHandler
	Grades     *GradeHandler
	Attendance *AttendanceHandler
	Activities *ActivityHandler
	Dashboard  *DashboardHandler
	Reports    *ReportHandler
	Stream     *StreamHandler
	System     *SystemHandler
}

// RegisterRoutes mounts system routes at the root and the API under prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers) {
	if h.System != nil {
		r.GET("/health", h.System.Health)
		r.GET("/ready", h.System.Ready)
		r.GET("/metrics", h.System.Prometheus)
	}

	api := r.Group(prefix)

	if h.Students != nil {
		students := api.Group("/students")
		students.GET("", h.Students.List)
		students.POST("", h.Students.Create)
		students.GET("/:id", h.Students.Get)
		students.PUT("/:id", h.Students.Update)
		students.PATCH("/:id/status", h.Students.SetStatus)
		students.DELETE("/:id", h.Students.Delete)
		students.GET("/:id/stats", h.Students.Stats)
		if h.Grades != nil {
			students.GET("/:id/gpa", h.Grades.GPA)
		}
		if h.Attendance != nil {
			students.GET("/:id/attendance-rate", h.Attendance.Rate)
			students.GET("/:id/attendance/calendar", h.Attendance.Calendar)
		}
	}

	if h.Grades != nil {
		grades := api.Group("/grades")
		grades.GET("", h.Grades.List)
		grades.POST("", h.Grades.Create)
		grades.POST("/bulk", h.Grades.BulkCreate)
		grades.GET("/:id", h.Grades.Get)
		grades.PUT("/:id", h.Grades.Update)
		grades.DELETE("/:id", h.Grades.Delete)
	}

	if h.Attendance != nil {
		attendance := api.Group("/attendance")
		attendance.GET("", h.Attendance.List)
		attendance.PUT("", h.Attendance.Mark)
		attendance.POST("/toggle", h.Attendance.Toggle)
		attendance.GET("/:id", h.Attendance.Get)
		attendance.DELETE("/:id", h.Attendance.Delete)
	}

	if h.Activities != nil {
		activities := api.Group("/activities")
		activities.GET("", h.Activities.List)
		activities.POST("", h.Activities.Create)
		activities.GET("/:id", h.Activities.Get)
		activities.PUT("/:id", h.Activities.Update)
		activities.DELETE("/:id", h.Activities.Delete)
	}

	if h.Dashboard != nil {
		api.GET("/dashboard", h.Dashboard.Summary)
	}

	if h.Reports != nil {
		reports := api.Group("/reports")
		reports.GET("/class", h.Reports.ClassReport)
		reports.GET("/class/download", h.Reports.Download)
		reports.POST("/exports", h.Reports.CreateExport)
		reports.GET("/exports/:id", h.Reports.ExportStatus)
		reports.GET("/exports/download/:token", h.Reports.DownloadExport)
	}

	if h.Stream != nil {
		api.GET("/stream/stats", h.Stream.Stats)
	}

	if h.System != nil {
		api.GET("/system/metrics", h.System.Metrics)
		api.POST("/admin/store/reset", h.System.ResetStore)
	}
}
