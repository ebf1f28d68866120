package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/classroom-api/pkg/apper"
	"github.com/noah-isme/classroom-api/pkg/config"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error map[string]interface{} `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Env:       "test",
		APIPrefix: "/api/v1",
		Store:     config.StoreConfig{Driver: config.StoreDriverMemory},
		Exports: config.ExportsConfig{
			Dir:           t.TempDir(),
			SigningSecret: "test-secret",
			ResultTTL:     time.Hour,
			Workers:       1,
			MaxRetries:    1,
		},
	}
}

func newTestApp(t *testing.T) *App {
	t.Helper()
	a, err := New(Options{
		Config: testConfig(t),
		Store:  apper.NewStaticHandle(apper.NewMemoryBackend()),
	})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)
	t.Cleanup(func() {
		cancel()
		a.Close()
	})
	return a
}

func call(t *testing.T, a *App, method, path, body string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	a.Engine.ServeHTTP(w, req)

	var env envelope
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func decode(t *testing.T, raw json.RawMessage, dest interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(raw, dest))
}

func TestClassroomWorkflow(t *testing.T) {
	a := newTestApp(t)

	w, env := call(t, a, http.MethodPost, "/api/v1/students",
		`{"first_name":"Ada","last_name":"Lovelace","student_code":"S1","email":"ada@example.com","grade_level":"10"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var student struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	decode(t, env.Data, &student)
	require.NotZero(t, student.ID)
	assert.Equal(t, "Active", student.Status)
	id := strconv.FormatInt(student.ID, 10)

	w, _ = call(t, a, http.MethodPost, "/api/v1/students",
		`{"first_name":"Ada","last_name":"Clone","student_code":"S1","email":"clone@example.com","grade_level":"10"}`)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = call(t, a, http.MethodPost, "/api/v1/grades",
		`{"student_id":`+id+`,"assignment_name":"Quiz 1","category":"Quiz","score":9,"max_score":10,"date":"2024-03-01"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var grade struct {
		Percentage  int    `json:"percentage"`
		LetterGrade string `json:"letter_grade"`
	}
	decode(t, env.Data, &grade)
	assert.Equal(t, 90, grade.Percentage)
	assert.Equal(t, "A-", grade.LetterGrade)

	w, env = call(t, a, http.MethodPost, "/api/v1/attendance/toggle", `{"student_id":`+id+`,"date":"2024-03-01"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var toggled struct {
		Status string `json:"status"`
	}
	decode(t, env.Data, &toggled)
	assert.Equal(t, "Present", toggled.Status)

	w, env = call(t, a, http.MethodGet, "/api/v1/students/"+id+"/stats", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats struct {
		GPA            float64 `json:"gpa"`
		AttendanceRate int     `json:"attendance_rate"`
	}
	decode(t, env.Data, &stats)
	assert.Equal(t, 3.7, stats.GPA)
	assert.Equal(t, 100, stats.AttendanceRate)

	w, env = call(t, a, http.MethodGet, "/api/v1/dashboard", "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary struct {
		TotalStudents int     `json:"totalStudents"`
		AverageGPA    float64 `json:"averageGpa"`
	}
	decode(t, env.Data, &summary)
	assert.Equal(t, 1, summary.TotalStudents)
	assert.Equal(t, 3.7, summary.AverageGPA)
	assert.Equal(t, false, env.Meta["cache_hit"])

	w, _ = call(t, a, http.MethodGet, "/api/v1/reports/class/download?format=csv", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Ada Lovelace,S1")
}

func TestExportLifecycle(t *testing.T) {
	a := newTestApp(t)

	w, env := call(t, a, http.MethodPost, "/api/v1/reports/exports", `{"format":"text"}`)
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())
	var job struct {
		ID          string `json:"id"`
		Status      string `json:"status"`
		DownloadURL string `json:"downloadUrl"`
	}
	decode(t, env.Data, &job)
	require.NotEmpty(t, job.ID)

	require.Eventually(t, func() bool {
		w, env := call(t, a, http.MethodGet, "/api/v1/reports/exports/"+job.ID, "")
		if w.Code != http.StatusOK {
			return false
		}
		decode(t, env.Data, &job)
		return job.Status == "FINISHED"
	}, 2*time.Second, 10*time.Millisecond)

	w, _ = call(t, a, http.MethodGet, job.DownloadURL, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "CLASS PERFORMANCE REPORT")

	w, _ = call(t, a, http.MethodGet, "/api/v1/reports/exports/download/forged.token", "")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestReadyAndValidation(t *testing.T) {
	a := newTestApp(t)

	w, _ := call(t, a, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = call(t, a, http.MethodGet, "/api/v1/students/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, a, http.MethodGet, "/api/v1/students/42", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = call(t, a, http.MethodGet, "/api/v1/reports/class/download?format=xlsx", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = call(t, a, http.MethodPost, "/api/v1/grades", `{"student_id":1,"assignment_name":"x","category":"Nope","score":1,"max_score":1}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNewRequiresConfigAndStore(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
	_, err = New(Options{Config: testConfig(t)})
	assert.Error(t, err)
}

func TestStoreConnectorMemoryDriver(t *testing.T) {
	connector := NewStoreConnector(testConfig(t), nil)
	handle := connector.Handle()
	backend, err := handle.Get(context.Background())
	require.NoError(t, err)
	assert.IsType(t, &apper.MemoryBackend{}, backend)
	assert.Equal(t, apper.StateReady, handle.State())
	assert.NoError(t, connector.Close())
}

func TestStoreConnectorRejectsUnknownDriver(t *testing.T) {
	cfg := testConfig(t)
	cfg.Store.Driver = "mongo"
	_, err := NewStoreConnector(cfg, nil).Connect(context.Background())
	assert.ErrorIs(t, err, apper.ErrConfiguration)
}
