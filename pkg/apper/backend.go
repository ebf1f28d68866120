package apper

import (
	"context"
	"errors"
	"fmt"
)

// Backend is the CRUD surface of a record store.
type Backend interface {
	FetchRecords(ctx context.Context, table string, params FetchParams) (*FetchResponse, error)
	GetRecordByID(ctx context.Context, table string, id int64) (*RecordResponse, error)
	CreateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error)
	UpdateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error)
	DeleteRecord(ctx context.Context, table string, ids []int64) (*BatchResponse, error)
}

var (
	// ErrConfiguration reports missing or invalid client credentials.
	ErrConfiguration = errors.New("apper: invalid configuration")
	// ErrNotReady is returned by a Handle that has not produced a backend.
	ErrNotReady = errors.New("apper: client not ready")
)

// NetworkError marks a failure to reach the store at all.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("apper: %s: network connection failed: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// IsNetworkError reports whether err is a network-class failure.
func IsNetworkError(err error) bool {
	var netErr *NetworkError
	return errors.As(err, &netErr)
}
