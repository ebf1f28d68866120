package response

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/classroom-api/pkg/errors"
)

func TestErrorRecordsOnContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	Error(c, appErrors.Clone(appErrors.ErrUnavailable, "record store unavailable: failed to fetch records"))

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.Len(t, c.Errors, 1)
	assert.Contains(t, c.Errors.String(), "failed to fetch records")

	var body struct {
		Error appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "STORE_UNAVAILABLE", body.Error.Code)
}

func TestErrorWithDataKeepsPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	ErrorWithData(c, appErrors.Clone(appErrors.ErrBatchFailed, "failed to update attendance"), gin.H{"status": "Present"})

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Len(t, c.Errors, 1)
	var body struct {
		Data  map[string]string `json:"data"`
		Error appErrors.Error   `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Present", body.Data["status"])
	assert.Equal(t, "BATCH_FAILED", body.Error.Code)
}
