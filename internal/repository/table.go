package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/classroom-api/internal/events"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

const unavailableMessage = "record store unavailable"

// StoreHandle yields the shared record store backend.
type StoreHandle interface {
	Get(ctx context.Context) (apper.Backend, error)
}

// StoreObserver receives instrumentation for record store calls.
type StoreObserver interface {
	ObserveStoreCall(table, op string, duration time.Duration, err error)
	RecordBatchFailures(table, op string, count int)
}

// TableConfig describes one remote table.
type TableConfig struct {
	Name string
	// Lookups are normalized to raw ids before every write.
	Lookups []string
	// StudentField identifies the student a record belongs to, used for
	// change events. apper.FieldID marks the students table itself.
	StudentField string
	Bus          *events.Bus
	Metrics      StoreObserver
	Logger       *zap.Logger
}

// Table adapts one remote table. A missing client degrades reads to empty
// results. A read the store could not answer returns an empty result and an
// ErrUnavailable error, so callers never mistake a failure for "no records".
// Writes report failures through WriteResult.
type Table struct {
	handle StoreHandle
	cfg    TableConfig
	logger *zap.Logger
}

// NewTable constructs a table adapter.
func NewTable(handle StoreHandle, cfg TableConfig) *Table {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Table{handle: handle, cfg: cfg, logger: logger.With(zap.String("table", cfg.Name))}
}

// Name returns the remote table name.
func (t *Table) Name() string {
	return t.cfg.Name
}

// WriteResult partitions a batch write into successes and failures.
type WriteResult struct {
	// Data is the first successful record, nil when nothing succeeded.
	Data        apper.Record
	Successful  []apper.RecordResult
	Failed      []apper.RecordResult
	Messages    []string
	Unavailable bool
}

// Succeeded reports whether at least one record was written.
func (r *WriteResult) Succeeded() bool {
	return r != nil && len(r.Successful) > 0
}

func unavailableResult() *WriteResult {
	return &WriteResult{Unavailable: true, Messages: []string{unavailableMessage}}
}

func (t *Table) backend(ctx context.Context, op string) apper.Backend {
	if t.handle == nil {
		t.logger.Warn(unavailableMessage, zap.String("op", op))
		return nil
	}
	b, err := t.handle.Get(ctx)
	if err != nil || b == nil {
		t.logger.Warn(unavailableMessage, zap.String("op", op), zap.Error(err))
		return nil
	}
	return b
}

func (t *Table) observe(op string, start time.Time, err error) {
	if t.cfg.Metrics != nil {
		t.cfg.Metrics.ObserveStoreCall(t.cfg.Name, op, time.Since(start), err)
	}
}

// Fetch returns matching records and the total match count.
func (t *Table) Fetch(ctx context.Context, params apper.FetchParams) ([]apper.Record, int, error) {
	b := t.backend(ctx, "fetch")
	if b == nil {
		return nil, 0, nil
	}
	start := time.Now()
	resp, err := b.FetchRecords(ctx, t.cfg.Name, params)
	t.observe("fetch", start, err)
	if err != nil {
		t.logger.Error("fetch records failed", zap.Error(err))
		return nil, 0, readError("fetch", err)
	}
	if resp == nil || !resp.Success {
		var msg string
		if resp != nil {
			msg = resp.Message
		}
		msg = messageOrDefault(msg)
		t.logger.Warn("fetch records rejected", zap.String("message", msg))
		return nil, 0, readError("fetch", errors.New(msg))
	}
	total := resp.Total
	if total < len(resp.Data) {
		total = len(resp.Data)
	}
	return resp.Data, total, nil
}

// FetchAll pages through every matching record. A failed page discards the
// pages read so far.
func (t *Table) FetchAll(ctx context.Context, params apper.FetchParams, pageSize int) ([]apper.Record, error) {
	if pageSize <= 0 {
		pageSize = 500
	}
	var all []apper.Record
	for offset := 0; ; offset += pageSize {
		params.PagingInfo = &apper.PagingInfo{Limit: pageSize, Offset: offset}
		page, total, err := t.Fetch(ctx, params)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize || len(all) >= total {
			return all, nil
		}
	}
}

// GetByID returns one record, or nil when it does not exist or the store
// rejected the lookup. Transport failures are returned as errors.
func (t *Table) GetByID(ctx context.Context, id int64) (apper.Record, error) {
	b := t.backend(ctx, "get")
	if b == nil {
		return nil, nil
	}
	start := time.Now()
	resp, err := b.GetRecordByID(ctx, t.cfg.Name, id)
	t.observe("get", start, err)
	if err != nil {
		t.logger.Error("get record failed", zap.Int64("id", id), zap.Error(err))
		return nil, readError("get", err)
	}
	if resp == nil || !resp.Success {
		var msg string
		if resp != nil {
			msg = resp.Message
		}
		t.logger.Warn("get record rejected", zap.Int64("id", id), zap.String("message", messageOrDefault(msg)))
		return nil, nil
	}
	return resp.Data, nil
}

// Create inserts records after lookup normalization.
func (t *Table) Create(ctx context.Context, records ...apper.Record) *WriteResult {
	return t.write(ctx, events.OpCreate, records, func(b apper.Backend, recs []apper.Record) (*apper.BatchResponse, error) {
		return b.CreateRecord(ctx, t.cfg.Name, recs)
	})
}

// Update patches records identified by their Id field.
func (t *Table) Update(ctx context.Context, records ...apper.Record) *WriteResult {
	return t.write(ctx, events.OpUpdate, records, func(b apper.Backend, recs []apper.Record) (*apper.BatchResponse, error) {
		return b.UpdateRecord(ctx, t.cfg.Name, recs)
	})
}

// Delete removes records. studentIDs name the students the records belonged
// to so the change event can reach their derived statistics.
func (t *Table) Delete(ctx context.Context, ids []int64, studentIDs ...int64) *WriteResult {
	const op = "delete"
	b := t.backend(ctx, op)
	if b == nil {
		return unavailableResult()
	}
	start := time.Now()
	resp, err := b.DeleteRecord(ctx, t.cfg.Name, ids)
	t.observe(op, start, err)
	res := t.classify(op, resp, err)
	if !res.Succeeded() {
		return res
	}

	deleted := recordIDs(res.Successful)
	if len(deleted) == 0 {
		deleted = ids
	}
	affected := append([]int64(nil), studentIDs...)
	if t.cfg.StudentField == apper.FieldID {
		affected = append(affected, deleted...)
	}
	t.publish(ctx, events.OpDelete, deleted, affected)
	return res
}

type batchCall func(b apper.Backend, records []apper.Record) (*apper.BatchResponse, error)

func (t *Table) write(ctx context.Context, op events.Op, records []apper.Record, call batchCall) *WriteResult {
	b := t.backend(ctx, string(op))
	if b == nil {
		return unavailableResult()
	}

	prepared := make([]apper.Record, len(records))
	for i, rec := range records {
		cp := make(apper.Record, len(rec))
		for k, v := range rec {
			cp[k] = v
		}
		prepared[i] = apper.NormalizeLookups(cp, t.cfg.Lookups...)
	}

	start := time.Now()
	resp, err := call(b, prepared)
	t.observe(string(op), start, err)
	res := t.classify(string(op), resp, err)
	if !res.Succeeded() {
		return res
	}

	var students []int64
	for _, r := range res.Successful {
		if id, ok := t.studentOf(r.Data); ok {
			students = append(students, id)
		}
	}
	if op == events.OpUpdate {
		for _, rec := range prepared {
			if id, ok := t.studentOf(rec); ok {
				students = append(students, id)
			}
		}
	}
	t.publish(ctx, op, recordIDs(res.Successful), students)
	return res
}

// classify partitions a batch response. An envelope-level failure yields
// zero successes and the envelope message.
func (t *Table) classify(op string, resp *apper.BatchResponse, err error) *WriteResult {
	res := &WriteResult{}
	switch {
	case err != nil:
		t.logger.Error("record store write failed", zap.String("op", op), zap.Error(err))
		res.Messages = []string{fmt.Sprintf("failed to %s records: %v", op, err)}
		return res
	case resp == nil:
		res.Messages = []string{"empty response from record store"}
		return res
	case !resp.Success:
		res.Messages = []string{messageOrDefault(resp.Message)}
		t.logger.Warn("record store write rejected", zap.String("op", op), zap.String("message", res.Messages[0]))
		return res
	}

	for i, r := range resp.Results {
		if r.Success {
			res.Successful = append(res.Successful, r)
			continue
		}
		res.Failed = append(res.Failed, r)
		res.Messages = append(res.Messages, failureMessage(i, r))
	}
	if len(res.Successful) > 0 {
		res.Data = res.Successful[0].Data
	}
	if len(res.Failed) > 0 {
		t.logger.Warn("record store write partially failed",
			zap.String("op", op),
			zap.Int("failed", len(res.Failed)),
			zap.Int("succeeded", len(res.Successful)),
			zap.Strings("messages", res.Messages),
		)
		if t.cfg.Metrics != nil {
			t.cfg.Metrics.RecordBatchFailures(t.cfg.Name, op, len(res.Failed))
		}
	}
	return res
}

func failureMessage(index int, r apper.RecordResult) string {
	if len(r.Errors) > 0 {
		parts := make([]string, 0, len(r.Errors))
		for _, fe := range r.Errors {
			parts = append(parts, fmt.Sprintf("%s: %s", fe.FieldLabel, fe.Message))
		}
		return strings.Join(parts, "; ")
	}
	if r.Message != "" {
		return r.Message
	}
	return fmt.Sprintf("record %d failed", index+1)
}

func messageOrDefault(msg string) string {
	if msg == "" {
		return "request failed"
	}
	return msg
}

func (t *Table) studentOf(rec apper.Record) (int64, bool) {
	if t.cfg.StudentField == "" || rec == nil {
		return 0, false
	}
	return apper.LookupID(rec[t.cfg.StudentField])
}

func (t *Table) publish(ctx context.Context, op events.Op, ids, students []int64) {
	if t.cfg.Bus == nil {
		return
	}
	t.cfg.Bus.Publish(ctx, events.RecordsChanged{
		Table:      t.cfg.Name,
		Op:         op,
		RecordIDs:  ids,
		StudentIDs: uniqueIDs(students),
	})
}

func recordIDs(results []apper.RecordResult) []int64 {
	ids := make([]int64, 0, len(results))
	for _, r := range results {
		if id, ok := apper.LookupID(r.Data[apper.FieldID]); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
