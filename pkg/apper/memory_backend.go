package apper

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// RecordValidator rejects a record before a memory write with field errors.
type RecordValidator func(rec Record) []FieldError

// MemoryBackend keeps tables in process. It backs local development and tests.
type MemoryBackend struct {
	mu         sync.RWMutex
	tables     map[string]*memoryTable
	validators map[string]RecordValidator
	now        func() time.Time
}

type memoryTable struct {
	nextID int64
	rows   map[int64]Record
}

// MemoryOption customises a MemoryBackend.
type MemoryOption func(*MemoryBackend)

// WithValidator installs a per-table write validator.
func WithValidator(table string, fn RecordValidator) MemoryOption {
	return func(b *MemoryBackend) {
		b.validators[table] = fn
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(b *MemoryBackend) {
		b.now = now
	}
}

// NewMemoryBackend creates an empty store.
func NewMemoryBackend(opts ...MemoryOption) *MemoryBackend {
	b := &MemoryBackend{
		tables:     make(map[string]*memoryTable),
		validators: make(map[string]RecordValidator),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *MemoryBackend) table(name string) *memoryTable {
	t, ok := b.tables[name]
	if !ok {
		t = &memoryTable{rows: make(map[int64]Record)}
		b.tables[name] = t
	}
	return t
}

// FetchRecords filters, sorts and pages a table.
func (b *MemoryBackend) FetchRecords(ctx context.Context, table string, params FetchParams) (*FetchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	t, ok := b.tables[table]
	matched := make([]Record, 0)
	if ok {
		for _, row := range t.rows {
			if Matches(row, params) {
				matched = append(matched, row)
			}
		}
	}

	sortRecords(matched, params.OrderBy)

	total := len(matched)
	if params.PagingInfo != nil {
		start := params.PagingInfo.Offset
		if start > total {
			start = total
		}
		end := total
		if params.PagingInfo.Limit > 0 && start+params.PagingInfo.Limit < end {
			end = start + params.PagingInfo.Limit
		}
		matched = matched[start:end]
	}

	data := make([]Record, len(matched))
	for i, row := range matched {
		data[i] = Project(copyRecord(row), params.Fields)
	}
	return &FetchResponse{Success: true, Data: data, Total: total}, nil
}

func sortRecords(rows []Record, orders []OrderBy) {
	sort.SliceStable(rows, func(i, j int) bool {
		for _, order := range orders {
			cmp := Compare(rows[i][order.FieldName], rows[j][order.FieldName])
			if cmp == 0 {
				continue
			}
			if strings.EqualFold(order.SortType, SortDesc) {
				return cmp > 0
			}
			return cmp < 0
		}
		return Compare(rows[i][FieldID], rows[j][FieldID]) < 0
	})
}

// GetRecordByID returns a copy of one row; a missing row yields nil Data.
func (b *MemoryBackend) GetRecordByID(ctx context.Context, table string, id int64) (*RecordResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.RLock()
	defer b.mu.RUnlock()

	if t, ok := b.tables[table]; ok {
		if row, ok := t.rows[id]; ok {
			return &RecordResponse{Success: true, Data: copyRecord(row)}, nil
		}
	}
	return &RecordResponse{Success: true}, nil
}

// CreateRecord stores each record independently.
func (b *MemoryBackend) CreateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.table(table)
	now := b.now().UTC().Format(time.RFC3339)
	results := make([]RecordResult, 0, len(records))
	for _, rec := range records {
		if errs := b.validate(table, rec); len(errs) > 0 {
			results = append(results, RecordResult{Success: false, Errors: errs})
			continue
		}
		t.nextID++
		row := copyRecord(rec)
		row[FieldID] = t.nextID
		row[FieldCreatedOn] = now
		row[FieldModifiedOn] = now
		t.rows[t.nextID] = row
		results = append(results, RecordResult{Success: true, Data: copyRecord(row)})
	}
	return &BatchResponse{Success: true, Results: results}, nil
}

// UpdateRecord merges fields into existing rows.
func (b *MemoryBackend) UpdateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.table(table)
	now := b.now().UTC().Format(time.RFC3339)
	results := make([]RecordResult, 0, len(records))
	for _, rec := range records {
		id, ok := LookupID(rec[FieldID])
		if !ok {
			results = append(results, RecordResult{Success: false, Message: "Record Id is required"})
			continue
		}
		row, exists := t.rows[id]
		if !exists {
			results = append(results, RecordResult{Success: false, Message: fmt.Sprintf("Record %d does not exist", id)})
			continue
		}
		merged := copyRecord(row)
		for k, v := range rec {
			merged[k] = v
		}
		if errs := b.validate(table, merged); len(errs) > 0 {
			results = append(results, RecordResult{Success: false, Errors: errs})
			continue
		}
		merged[FieldID] = id
		merged[FieldModifiedOn] = now
		t.rows[id] = merged
		results = append(results, RecordResult{Success: true, Data: copyRecord(merged)})
	}
	return &BatchResponse{Success: true, Results: results}, nil
}

// DeleteRecord removes rows by id.
func (b *MemoryBackend) DeleteRecord(ctx context.Context, table string, ids []int64) (*BatchResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.table(table)
	results := make([]RecordResult, 0, len(ids))
	for _, id := range ids {
		if _, ok := t.rows[id]; !ok {
			results = append(results, RecordResult{Success: false, Message: fmt.Sprintf("Record %d does not exist", id)})
			continue
		}
		delete(t.rows, id)
		results = append(results, RecordResult{Success: true, Data: Record{FieldID: id}})
	}
	return &BatchResponse{Success: true, Results: results}, nil
}

// Seed inserts rows verbatim, keeping any Id they carry.
func (b *MemoryBackend) Seed(table string, rows ...Record) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t := b.table(table)
	for _, rec := range rows {
		row := copyRecord(rec)
		id, ok := LookupID(row[FieldID])
		if !ok {
			t.nextID++
			id = t.nextID
		}
		if id > t.nextID {
			t.nextID = id
		}
		row[FieldID] = id
		t.rows[id] = row
	}
}

func (b *MemoryBackend) validate(table string, rec Record) []FieldError {
	fn, ok := b.validators[table]
	if !ok {
		return nil
	}
	return fn(rec)
}

func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}
