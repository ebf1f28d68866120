package apper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const publicKeyHeader = "X-Apper-Public-Key"

// HTTPConfig configures the remote REST backend.
type HTTPConfig struct {
	BaseURL   string
	ProjectID string
	PublicKey string
	Timeout   time.Duration
	Client    *http.Client
}

// HTTPBackend talks to the hosted record store over its REST API.
type HTTPBackend struct {
	baseURL   string
	projectID string
	publicKey string
	http      *http.Client
}

// NewHTTPBackend validates credentials and builds a backend.
func NewHTTPBackend(cfg HTTPConfig) (*HTTPBackend, error) {
	if strings.TrimSpace(cfg.ProjectID) == "" || strings.TrimSpace(cfg.PublicKey) == "" {
		return nil, fmt.Errorf("%w: project id and public key are required", ErrConfiguration)
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("%w: base url is required", ErrConfiguration)
	}
	client := cfg.Client
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &HTTPBackend{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		projectID: cfg.ProjectID,
		publicKey: cfg.PublicKey,
		http:      client,
	}, nil
}

// FetchRecords runs a filtered query against table.
func (b *HTTPBackend) FetchRecords(ctx context.Context, table string, params FetchParams) (*FetchResponse, error) {
	var out FetchResponse
	if err := b.do(ctx, "fetch", http.MethodPost, b.tableURL(table, "records", "query"), params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRecordByID reads one record.
func (b *HTTPBackend) GetRecordByID(ctx context.Context, table string, id int64) (*RecordResponse, error) {
	var out RecordResponse
	if err := b.do(ctx, "get", http.MethodGet, b.tableURL(table, "records", strconv.FormatInt(id, 10)), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateRecord inserts a batch of records.
func (b *HTTPBackend) CreateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	var out BatchResponse
	if err := b.do(ctx, "create", http.MethodPost, b.tableURL(table, "records"), writeRequest{Records: records}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateRecord patches a batch of records identified by their Id field.
func (b *HTTPBackend) UpdateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	var out BatchResponse
	if err := b.do(ctx, "update", http.MethodPatch, b.tableURL(table, "records"), writeRequest{Records: records}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DeleteRecord removes records by id.
func (b *HTTPBackend) DeleteRecord(ctx context.Context, table string, ids []int64) (*BatchResponse, error) {
	var out BatchResponse
	if err := b.do(ctx, "delete", http.MethodDelete, b.tableURL(table, "records"), deleteRequest{RecordIDs: ids}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (b *HTTPBackend) tableURL(table string, parts ...string) string {
	segments := []string{b.baseURL, "v1", "projects", url.PathEscape(b.projectID), "tables", url.PathEscape(table)}
	segments = append(segments, parts...)
	return strings.Join(segments, "/")
}

// do sends one request. Transport failures become *NetworkError; 4xx
// responses are decoded into out so callers see the store's message.
func (b *HTTPBackend) do(ctx context.Context, op, method, endpoint string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("apper: %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("apper: %s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(publicKeyHeader, b.publicKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("apper: %s: store error %s: %s", op, resp.Status, strings.TrimSpace(string(raw)))
	}

	if len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			if resp.StatusCode >= http.StatusBadRequest {
				return fmt.Errorf("apper: %s: store error %s", op, resp.Status)
			}
			return fmt.Errorf("apper: %s: decode response: %w", op, err)
		}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		forceFailure(out, http.StatusText(resp.StatusCode))
	}
	return nil
}

func forceFailure(out interface{}, fallback string) {
	switch v := out.(type) {
	case *FetchResponse:
		v.Success = false
		if v.Message == "" {
			v.Message = fallback
		}
	case *RecordResponse:
		v.Success = false
		if v.Message == "" {
			v.Message = fallback
		}
	case *BatchResponse:
		v.Success = false
		if v.Message == "" {
			v.Message = fallback
		}
	}
}
