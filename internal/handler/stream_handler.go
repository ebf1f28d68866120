package handler

import (
	"io"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/response"
)

type statsSubscriber interface {
	Subscribe(buffer int) (<-chan models.StudentStats, func())
}

// StreamHandler pushes live student stats over server-sent events.
type StreamHandler struct {
	stats     statsSubscriber
	keepAlive time.Duration
}

// NewStreamHandler constructs a stream handler. keepAlive defaults to 25s.
func NewStreamHandler(stats statsSubscriber, keepAlive time.Duration) *StreamHandler {
	if keepAlive <= 0 {
		keepAlive = 25 * time.Second
	}
	return &StreamHandler{stats: stats, keepAlive: keepAlive}
}

// Stats godoc
// @Summary Stream recomputed student stats
// @Description Emits a "stats" event each time a grade or attendance write changes a student's GPA or attendance rate.
// @Tags Students
// @Produce text/event-stream
// @Param studentId query int false "Only stream this student"
// @Success 200 {string} string "event stream"
// @Router /stream/stats [get]
func (h *StreamHandler) Stats(c *gin.Context) {
	studentID, err := queryID(c, "studentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	updates, unsubscribe := h.stats.Subscribe(0)
	defer unsubscribe()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case stats, ok := <-updates:
			if !ok {
				return false
			}
			if studentID != 0 && stats.StudentID != studentID {
				return true
			}
			c.SSEvent("stats", stats)
			return true
		case now := <-ticker.C:
			c.SSEvent("ping", now.UTC().Format(time.RFC3339))
			return true
		}
	})
}
