package apper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPBackendRequiresCredentials(t *testing.T) {
	_, err := NewHTTPBackend(HTTPConfig{BaseURL: "http://localhost", ProjectID: "p1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestHTTPBackendFetchRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/projects/p1/tables/grades_c/records/query", r.URL.Path)
		assert.Equal(t, "key", r.Header.Get(publicKeyHeader))

		var params FetchParams
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		require.Len(t, params.Where, 1)
		assert.Equal(t, "student_id_c", params.Where[0].FieldName)

		_, _ = w.Write([]byte(`{"success":true,"total":1,"data":[{"Id":10,"score_c":85,"student_id_c":{"Id":4,"Name":"Ada"}}]}`))
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(HTTPConfig{BaseURL: srv.URL, ProjectID: "p1", PublicKey: "key"})
	require.NoError(t, err)

	resp, err := b.FetchRecords(context.Background(), "grades_c", FetchParams{
		Where: []Condition{Where("student_id_c", OpEqualTo, 4)},
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	require.Len(t, resp.Data, 1)
	id, ok := LookupID(resp.Data[0]["student_id_c"])
	assert.True(t, ok)
	assert.Equal(t, int64(4), id)
}

func TestHTTPBackendClientErrorBecomesFailedEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":true,"message":"Invalid field status_c"}`))
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(HTTPConfig{BaseURL: srv.URL, ProjectID: "p1", PublicKey: "key"})
	require.NoError(t, err)

	resp, err := b.UpdateRecord(context.Background(), "students_c", []Record{{"Id": 1, "status_c": "Gone"}})
	require.NoError(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Invalid field status_c", resp.Message)
}

func TestHTTPBackendServerErrorIsNotNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	b, err := NewHTTPBackend(HTTPConfig{BaseURL: srv.URL, ProjectID: "p1", PublicKey: "key"})
	require.NoError(t, err)

	_, err = b.DeleteRecord(context.Background(), "students_c", []int64{1})
	require.Error(t, err)
	assert.False(t, IsNetworkError(err))
}

func TestHTTPBackendTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	b, err := NewHTTPBackend(HTTPConfig{BaseURL: url, ProjectID: "p1", PublicKey: "key"})
	require.NoError(t, err)

	_, err = b.GetRecordByID(context.Background(), "students_c", 1)
	require.Error(t, err)
	assert.True(t, IsNetworkError(err))
}
