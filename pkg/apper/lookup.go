package apper

import (
	"encoding/json"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// Lookup is a reference to another record as returned by the store.
type Lookup struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// LookupID extracts a record id from a lookup value that is either a raw
// id or an embedded {"Id": n, "Name": "..."} object.
func LookupID(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case nil:
		return 0, false
	case int:
		return int64(v), v != 0
	case int32:
		return int64(v), v != 0
	case int64:
		return v, v != 0
	case float32:
		return floatID(float64(v))
	case float64:
		return floatID(v)
	case json.Number:
		if id, err := v.Int64(); err == nil {
			return id, id != 0
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return floatID(f)
	case string:
		id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return 0, false
		}
		return id, id != 0
	case Lookup:
		return v.ID, v.ID != 0
	case *Lookup:
		if v == nil {
			return 0, false
		}
		return v.ID, v.ID != 0
	case Record:
		return LookupID(v[FieldID])
	case map[string]interface{}:
		return LookupID(v[FieldID])
	}
	return 0, false
}

func floatID(f float64) (int64, bool) {
	if f == 0 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}

func lookupName(value interface{}) string {
	var m map[string]interface{}
	switch v := value.(type) {
	case Record:
		m = v
	case map[string]interface{}:
		m = v
	default:
		return ""
	}
	name, _ := m[FieldName].(string)
	return name
}

// NormalizeLookups rewrites the named lookup fields of rec to raw ids.
// Fields holding an empty or unresolvable value are removed.
func NormalizeLookups(rec Record, fields ...string) Record {
	for _, field := range fields {
		raw, ok := rec[field]
		if !ok {
			continue
		}
		if id, ok := LookupID(raw); ok {
			rec[field] = id
			continue
		}
		delete(rec, field)
	}
	return rec
}

var (
	lookupType    = reflect.TypeOf(Lookup{})
	lookupPtrType = reflect.TypeOf(&Lookup{})
	int64Type     = reflect.TypeOf(int64(0))
)

// LookupDecodeHook lets mapstructure decode lookup values into either a
// Lookup or a plain int64 id regardless of which shape the store sent.
func LookupDecodeHook() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		switch to {
		case lookupPtrType:
			if from == lookupPtrType {
				return data, nil
			}
			if _, ok := LookupID(data); !ok {
				return nil, nil
			}
			return data, nil
		case lookupType:
			if from == lookupType {
				return data, nil
			}
			id, _ := LookupID(data)
			return Lookup{ID: id, Name: lookupName(data)}, nil
		case int64Type:
			if from.Kind() != reflect.Map {
				return data, nil
			}
			id, _ := LookupID(data)
			return id, nil
		}
		return data, nil
	}
}
