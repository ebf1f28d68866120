package repository

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"

	"github.com/noah-isme/classroom-api/internal/models"
	"github.com/noah-isme/classroom-api/pkg/apper"
)

var (
	timeType    = reflect.TypeOf(time.Time{})
	timePtrType = reflect.TypeOf(&time.Time{})
	dateType    = reflect.TypeOf(models.Date{})
	datePtrType = reflect.TypeOf(&models.Date{})
	tagsType    = reflect.TypeOf([]string{})
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DateLayout,
}

// decodeRecord maps a store record onto a model using its `store` tags.
func decodeRecord(rec apper.Record, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "store",
		WeaklyTypedInput: true,
		Result:           out,
		DecodeHook: chainHooks(
			apper.LookupDecodeHook(),
			dateHook,
			timestampHook,
			tagsHook,
		),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(map[string]interface{}(rec)); err != nil {
		return fmt.Errorf("decode record %v: %w", rec[apper.FieldID], err)
	}
	return nil
}

// chainHooks runs hooks in order and stops at the first nil result.
func chainHooks(hooks ...mapstructure.DecodeHookFuncType) mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		for _, hook := range hooks {
			out, err := hook(from, to, data)
			if err != nil || out == nil {
				return out, err
			}
			data = out
			from = reflect.TypeOf(out)
		}
		return data, nil
	}
}

func dateHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || (to != dateType && to != datePtrType) {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		if to == datePtrType {
			return nil, nil
		}
		return models.Date{}, nil
	}
	if to == datePtrType {
		return data, nil
	}
	return models.ParseDate(raw)
}

func timestampHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || (to != timeType && to != timePtrType) {
		return data, nil
	}
	raw := strings.TrimSpace(data.(string))
	if raw == "" {
		if to == timePtrType {
			return nil, nil
		}
		return time.Time{}, nil
	}
	if to == timePtrType {
		return data, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return nil, fmt.Errorf("invalid timestamp %q", raw)
}

// tagsHook accepts the comma-separated wire form of a tag list.
func tagsHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != tagsType {
		return data, nil
	}
	return splitTags(data.(string)), nil
}

func splitTags(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			tags = append(tags, trimmed)
		}
	}
	return tags
}

func joinTags(tags []string) string {
	return strings.Join(tags, ",")
}

func formatDatePtr(d *models.Date) interface{} {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func formatTime(t *time.Time) interface{} {
	if t == nil || t.IsZero() {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}

// setIfPresent only writes non-empty values so updates never blank fields
// the caller did not send.
func setIfPresent(rec apper.Record, key string, value interface{}) {
	switch v := value.(type) {
	case nil:
		return
	case string:
		if v == "" {
			return
		}
	}
	rec[key] = value
}
