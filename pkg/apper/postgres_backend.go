package apper

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresSchema creates the single JSONB table every logical table shares.
const PostgresSchema = `CREATE TABLE IF NOT EXISTS apper_records (
    id BIGSERIAL PRIMARY KEY,
    table_name TEXT NOT NULL,
    data JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_on TIMESTAMPTZ NOT NULL,
    modified_on TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_apper_records_table ON apper_records (table_name)`

// PostgresBackend stores records as JSONB rows for self-hosted deployments.
type PostgresBackend struct {
	db  *sqlx.DB
	now func() time.Time
}

type postgresRow struct {
	ID         int64     `db:"id"`
	Data       []byte    `db:"data"`
	CreatedOn  time.Time `db:"created_on"`
	ModifiedOn time.Time `db:"modified_on"`
}

// NewPostgresBackend wraps an open database.
func NewPostgresBackend(db *sqlx.DB) *PostgresBackend {
	return &PostgresBackend{db: db, now: time.Now}
}

// EnsureSchema creates the records table when missing.
func (b *PostgresBackend) EnsureSchema(ctx context.Context) error {
	if _, err := b.db.ExecContext(ctx, PostgresSchema); err != nil {
		return fmt.Errorf("ensure apper schema: %w", err)
	}
	return nil
}

// FetchRecords translates params into a JSONB query.
func (b *PostgresBackend) FetchRecords(ctx context.Context, table string, params FetchParams) (*FetchResponse, error) {
	q := &pgQuery{}
	where := "table_name = " + q.arg(table)
	for _, cond := range params.Where {
		where += " AND " + q.condition(cond)
	}
	for _, group := range params.WhereGroups {
		if clause := q.group(group); clause != "" {
			where += " AND " + clause
		}
	}

	var total int
	if err := b.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM apper_records WHERE "+where, q.args...); err != nil {
		return nil, fmt.Errorf("count %s records: %w", table, err)
	}

	query := "SELECT id, data, created_on, modified_on FROM apper_records WHERE " + where
	query += " ORDER BY " + q.orderBy(params.OrderBy)
	if params.PagingInfo != nil {
		if params.PagingInfo.Limit > 0 {
			query += fmt.Sprintf(" LIMIT %d", params.PagingInfo.Limit)
		}
		if params.PagingInfo.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", params.PagingInfo.Offset)
		}
	}

	var rows []postgresRow
	if err := b.db.SelectContext(ctx, &rows, query, q.args...); err != nil {
		return nil, fmt.Errorf("fetch %s records: %w", table, err)
	}

	data := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, fmt.Errorf("decode %s record %d: %w", table, row.ID, err)
		}
		data = append(data, Project(rec, params.Fields))
	}
	return &FetchResponse{Success: true, Data: data, Total: total}, nil
}

// GetRecordByID reads one row; a missing row yields nil Data.
func (b *PostgresBackend) GetRecordByID(ctx context.Context, table string, id int64) (*RecordResponse, error) {
	const query = `SELECT id, data, created_on, modified_on FROM apper_records WHERE table_name = $1 AND id = $2`
	var row postgresRow
	if err := b.db.GetContext(ctx, &row, query, table, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &RecordResponse{Success: true}, nil
		}
		return nil, fmt.Errorf("get %s record: %w", table, err)
	}
	rec, err := row.record()
	if err != nil {
		return nil, fmt.Errorf("decode %s record %d: %w", table, id, err)
	}
	return &RecordResponse{Success: true, Data: rec}, nil
}

// CreateRecord inserts each record on its own so one failure does not sink the batch.
func (b *PostgresBackend) CreateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	const query = `INSERT INTO apper_records (table_name, data, created_on, modified_on)
        VALUES ($1, $2, $3, $3)
        RETURNING id, data, created_on, modified_on`
	results := make([]RecordResult, 0, len(records))
	for _, rec := range records {
		payload, err := json.Marshal(stripReserved(rec))
		if err != nil {
			results = append(results, RecordResult{Message: err.Error()})
			continue
		}
		var row postgresRow
		if err := b.db.GetContext(ctx, &row, query, table, payload, b.now().UTC()); err != nil {
			results = append(results, RecordResult{Message: fmt.Sprintf("insert failed: %v", err)})
			continue
		}
		results = append(results, row.result())
	}
	return &BatchResponse{Success: true, Results: results}, nil
}

// UpdateRecord merges each record's fields into the stored JSON document.
func (b *PostgresBackend) UpdateRecord(ctx context.Context, table string, records []Record) (*BatchResponse, error) {
	const query = `UPDATE apper_records SET data = data || $1::jsonb, modified_on = $2
        WHERE table_name = $3 AND id = $4
        RETURNING id, data, created_on, modified_on`
	results := make([]RecordResult, 0, len(records))
	for _, rec := range records {
		id, ok := LookupID(rec[FieldID])
		if !ok {
			results = append(results, RecordResult{Message: "Record Id is required"})
			continue
		}
		payload, err := json.Marshal(stripReserved(rec))
		if err != nil {
			results = append(results, RecordResult{Message: err.Error()})
			continue
		}
		var row postgresRow
		if err := b.db.GetContext(ctx, &row, query, payload, b.now().UTC(), table, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				results = append(results, RecordResult{Message: fmt.Sprintf("Record %d does not exist", id)})
				continue
			}
			results = append(results, RecordResult{Message: fmt.Sprintf("update failed: %v", err)})
			continue
		}
		results = append(results, row.result())
	}
	return &BatchResponse{Success: true, Results: results}, nil
}

// DeleteRecord removes rows by id.
func (b *PostgresBackend) DeleteRecord(ctx context.Context, table string, ids []int64) (*BatchResponse, error) {
	const query = `DELETE FROM apper_records WHERE table_name = $1 AND id = $2`
	results := make([]RecordResult, 0, len(ids))
	for _, id := range ids {
		res, err := b.db.ExecContext(ctx, query, table, id)
		if err != nil {
			results = append(results, RecordResult{Message: fmt.Sprintf("delete failed: %v", err)})
			continue
		}
		affected, err := res.RowsAffected()
		if err != nil || affected == 0 {
			results = append(results, RecordResult{Message: fmt.Sprintf("Record %d does not exist", id)})
			continue
		}
		results = append(results, RecordResult{Success: true, Data: Record{FieldID: id}})
	}
	return &BatchResponse{Success: true, Results: results}, nil
}

func (r postgresRow) record() (Record, error) {
	rec := Record{}
	if len(r.Data) > 0 {
		if err := json.Unmarshal(r.Data, &rec); err != nil {
			return nil, err
		}
	}
	rec[FieldID] = r.ID
	rec[FieldCreatedOn] = r.CreatedOn.UTC().Format(time.RFC3339)
	rec[FieldModifiedOn] = r.ModifiedOn.UTC().Format(time.RFC3339)
	return rec, nil
}

func (r postgresRow) result() RecordResult {
	rec, err := r.record()
	if err != nil {
		return RecordResult{Message: err.Error()}
	}
	return RecordResult{Success: true, Data: rec}
}

func stripReserved(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		switch k {
		case FieldID, FieldCreatedOn, FieldModifiedOn:
			continue
		}
		out[k] = v
	}
	return out
}

// pgQuery accumulates positional arguments while clauses are built.
type pgQuery struct {
	args []interface{}
}

func (q *pgQuery) arg(v interface{}) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *pgQuery) column(field string) (string, bool) {
	switch field {
	case FieldID:
		return "id", true
	case FieldCreatedOn:
		return "created_on", true
	case FieldModifiedOn:
		return "modified_on", true
	}
	return "data->>" + q.arg(field), false
}

func (q *pgQuery) condition(cond Condition) string {
	if len(cond.Values) == 0 {
		return "TRUE"
	}
	parts := make([]string, 0, len(cond.Values))
	for _, value := range cond.Values {
		col, native := q.column(cond.FieldName)
		var operand interface{}
		if native && cond.FieldName == FieldID {
			id, _ := LookupID(value)
			operand = id
		} else if native {
			operand = scalarString(value)
			col += "::text"
		} else {
			operand = scalarString(value)
		}
		switch cond.Operator {
		case OpEqualTo:
			parts = append(parts, col+" = "+q.arg(operand))
		case OpNotEqualTo:
			parts = append(parts, col+" IS DISTINCT FROM "+q.arg(operand))
		case OpContains:
			parts = append(parts, col+"::text ILIKE "+q.arg("%"+scalarString(value)+"%"))
		case OpGreaterThanOrEqualTo:
			parts = append(parts, col+" >= "+q.arg(operand))
		case OpLessThanOrEqualTo:
			parts = append(parts, col+" <= "+q.arg(operand))
		default:
			parts = append(parts, "FALSE")
		}
	}
	return "(" + strings.Join(parts, " OR ") + ")"
}

func (q *pgQuery) group(group WhereGroup) string {
	joiner := " AND "
	if strings.EqualFold(group.Operator, LogicOr) {
		joiner = " OR "
	}
	subs := make([]string, 0, len(group.SubGroups))
	for _, sub := range group.SubGroups {
		if len(sub.Conditions) == 0 {
			continue
		}
		inner := " AND "
		if strings.EqualFold(sub.Operator, LogicOr) {
			inner = " OR "
		}
		conds := make([]string, 0, len(sub.Conditions))
		for _, cond := range sub.Conditions {
			conds = append(conds, q.condition(cond))
		}
		subs = append(subs, "("+strings.Join(conds, inner)+")")
	}
	if len(subs) == 0 {
		return ""
	}
	return "(" + strings.Join(subs, joiner) + ")"
}

func (q *pgQuery) orderBy(orders []OrderBy) string {
	parts := make([]string, 0, len(orders)+1)
	for _, order := range orders {
		col, _ := q.column(order.FieldName)
		dir := "ASC"
		if strings.EqualFold(order.SortType, SortDesc) {
			dir = "DESC"
		}
		parts = append(parts, col+" "+dir)
	}
	parts = append(parts, "id ASC")
	return strings.Join(parts, ", ")
}
