package apper

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Matches reports whether rec satisfies every condition and group of params.
func Matches(rec Record, params FetchParams) bool {
	for _, cond := range params.Where {
		if !matchCondition(rec, cond) {
			return false
		}
	}
	for _, group := range params.WhereGroups {
		if !matchGroup(rec, group) {
			return false
		}
	}
	return true
}

func matchGroup(rec Record, group WhereGroup) bool {
	if len(group.SubGroups) == 0 {
		return true
	}
	or := strings.EqualFold(group.Operator, LogicOr)
	for _, sub := range group.SubGroups {
		ok := matchSubGroup(rec, sub)
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	return !or
}

func matchSubGroup(rec Record, sub SubGroup) bool {
	if len(sub.Conditions) == 0 {
		return true
	}
	or := strings.EqualFold(sub.Operator, LogicOr)
	for _, cond := range sub.Conditions {
		ok := matchCondition(rec, cond)
		if or && ok {
			return true
		}
		if !or && !ok {
			return false
		}
	}
	return !or
}

// matchCondition is satisfied when any of the condition values matches.
func matchCondition(rec Record, cond Condition) bool {
	actual, present := rec[cond.FieldName]
	if len(cond.Values) == 0 {
		return true
	}
	for _, want := range cond.Values {
		if compareOp(actual, present, cond.Operator, want) {
			return true
		}
	}
	return false
}

func compareOp(actual interface{}, present bool, op Operator, want interface{}) bool {
	switch op {
	case OpEqualTo:
		return present && Compare(actual, want) == 0
	case OpNotEqualTo:
		return !present || Compare(actual, want) != 0
	case OpContains:
		if !present {
			return false
		}
		return strings.Contains(strings.ToLower(scalarString(actual)), strings.ToLower(scalarString(want)))
	case OpGreaterThanOrEqualTo:
		return present && Compare(actual, want) >= 0
	case OpLessThanOrEqualTo:
		return present && Compare(actual, want) <= 0
	}
	return false
}

// Compare orders two field values. Numbers compare numerically, lookups by
// id and everything else as strings, which keeps ISO dates ordered.
func Compare(a, b interface{}) int {
	af, aNum := numeric(a)
	bf, bNum := numeric(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		}
		return 0
	}
	return strings.Compare(scalarString(a), scalarString(b))
}

func numeric(v interface{}) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case Record, map[string]interface{}, Lookup, *Lookup:
		id, ok := LookupID(t)
		return float64(id), ok
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f, err == nil
	}
	return 0, false
}

func scalarString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case Record, map[string]interface{}:
		if id, ok := LookupID(t); ok {
			return strconv.FormatInt(id, 10)
		}
		return ""
	}
	if f, ok := numeric(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return fmt.Sprint(v)
}

// Project keeps only the requested fields plus Id.
func Project(rec Record, fields []FieldRef) Record {
	if len(fields) == 0 {
		return rec
	}
	out := Record{FieldID: rec[FieldID]}
	for _, ref := range fields {
		if v, ok := rec[ref.Field.Name]; ok {
			out[ref.Field.Name] = v
		}
	}
	return out
}
