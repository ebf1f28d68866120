package apper

// Record is a single row exchanged with the record store.
type Record map[string]interface{}

// Reserved field names managed by the store itself.
const (
	FieldID         = "Id"
	FieldName       = "Name"
	FieldCreatedOn  = "CreatedOn"
	FieldModifiedOn = "ModifiedOn"
)

// Operator is a where-clause comparison understood by every backend.
type Operator string

const (
	OpEqualTo              Operator = "EqualTo"
	OpNotEqualTo           Operator = "NotEqualTo"
	OpContains             Operator = "Contains"
	OpGreaterThanOrEqualTo Operator = "GreaterThanOrEqualTo"
	OpLessThanOrEqualTo    Operator = "LessThanOrEqualTo"
)

// Logical operators for condition groups.
const (
	LogicAnd = "AND"
	LogicOr  = "OR"
)

// Sort directions.
const (
	SortAsc  = "ASC"
	SortDesc = "DESC"
)

// FieldRef selects a field to return from a fetch.
type FieldRef struct {
	Field struct {
		Name string `json:"Name"`
	} `json:"field"`
}

// Fields builds a projection list.
func Fields(names ...string) []FieldRef {
	refs := make([]FieldRef, len(names))
	for i, name := range names {
		refs[i].Field.Name = name
	}
	return refs
}

// Condition is a single predicate against one field.
type Condition struct {
	FieldName string        `json:"FieldName"`
	Operator  Operator      `json:"Operator"`
	Values    []interface{} `json:"Values"`
}

// Where is a shorthand for a single-value condition.
func Where(field string, op Operator, value interface{}) Condition {
	return Condition{FieldName: field, Operator: op, Values: []interface{}{value}}
}

// SubGroup combines its conditions with Operator.
type SubGroup struct {
	Conditions []Condition `json:"conditions"`
	Operator   string      `json:"operator"`
}

// WhereGroup combines its subgroups with Operator. Groups are ANDed with
// each other and with the top-level conditions.
type WhereGroup struct {
	Operator  string     `json:"operator"`
	SubGroups []SubGroup `json:"subGroups"`
}

// OrderBy sorts a fetch by one field.
type OrderBy struct {
	FieldName string `json:"fieldName"`
	SortType  string `json:"sorttype"`
}

// PagingInfo limits a fetch window.
type PagingInfo struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// FetchParams describes a record query.
type FetchParams struct {
	Fields      []FieldRef   `json:"fields,omitempty"`
	Where       []Condition  `json:"where,omitempty"`
	WhereGroups []WhereGroup `json:"whereGroups,omitempty"`
	OrderBy     []OrderBy    `json:"orderBy,omitempty"`
	PagingInfo  *PagingInfo  `json:"pagingInfo,omitempty"`
}

// FetchResponse is the envelope of a record query.
type FetchResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    []Record `json:"data"`
	Total   int      `json:"total"`
}

// RecordResponse is the envelope of a single-record read.
type RecordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    Record `json:"data"`
}

// FieldError is a per-field validation failure reported by the store.
type FieldError struct {
	FieldLabel string `json:"fieldLabel"`
	Message    string `json:"message"`
}

// RecordResult is the outcome of one record within a batch write.
type RecordResult struct {
	Success bool         `json:"success"`
	Data    Record       `json:"data,omitempty"`
	Message string       `json:"message,omitempty"`
	Errors  []FieldError `json:"errors,omitempty"`
}

// BatchResponse is the envelope of a create, update or delete call.
type BatchResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message,omitempty"`
	Results []RecordResult `json:"results,omitempty"`
}

type writeRequest struct {
	Records []Record `json:"records"`
}

type deleteRequest struct {
	RecordIDs []int64 `json:"RecordIds"`
}
