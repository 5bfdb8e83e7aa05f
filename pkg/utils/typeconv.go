package utils

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ToString converts a scalar column value to a string. nil becomes "".
func ToString(val interface{}) (string, error) {
	switch v := val.(type) {
	case nil:
		return "", nil
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case fmt.Stringer:
		return v.String(), nil
	case int, int32, int64, float32, float64, bool:
		return fmt.Sprintf("%v", v), nil
	default:
		return "", fmt.Errorf("cannot convert %T to string", val)
	}
}

// ToFloat converts numeric column values, including decimal text, to float64.
// nil becomes 0.
func ToFloat(val interface{}) (float64, error) {
	switch v := val.(type) {
	case nil:
		return 0, nil
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int32:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	default:
		return 0, fmt.Errorf("cannot convert %T to float", val)
	}
}

// ToArray returns an aggregated column as a slice. JSON text and bytes are
// decoded; nil and JSON null become an empty slice.
func ToArray(val interface{}) ([]interface{}, error) {
	switch v := val.(type) {
	case nil:
		return []interface{}{}, nil
	case []interface{}:
		return v, nil
	case []string:
		out := make([]interface{}, len(v))
		for i, s := range v {
			out[i] = s
		}
		return out, nil
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, m := range v {
			out[i] = m
		}
		return out, nil
	case string:
		return decodeArray([]byte(v))
	case []byte:
		return decodeArray(v)
	default:
		return nil, fmt.Errorf("cannot convert %T to array", val)
	}
}

func decodeArray(raw []byte) ([]interface{}, error) {
	if len(strings.TrimSpace(string(raw))) == 0 {
		return []interface{}{}, nil
	}
	var out []interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode json array: %w", err)
	}
	if out == nil {
		out = []interface{}{}
	}
	return out, nil
}

// ToStringSlice converts an aggregated column of scalars to []string,
// dropping null entries.
func ToStringSlice(val interface{}) ([]string, error) {
	items, err := ToArray(val)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		s, err := ToString(item)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// ToObject converts one decoded array element to a map.
func ToObject(val interface{}) (map[string]interface{}, error) {
	switch v := val.(type) {
	case map[string]interface{}:
		return v, nil
	case string:
		var out map[string]interface{}
		if err := json.Unmarshal([]byte(v), &out); err != nil {
			return nil, fmt.Errorf("decode json object: %w", err)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("cannot convert %T to object", val)
	}
}

var timeFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ConvertDateTime parses timestamps written by this tool or typed by an
// operator. Values without a zone are taken as UTC.
func ConvertDateTime(val interface{}) (time.Time, error) {
	switch v := val.(type) {
	case time.Time:
		return v.UTC(), nil
	case string:
		for _, f := range timeFormats {
			if t, err := time.Parse(f, strings.TrimSpace(v)); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse datetime: %q", v)
	case []byte:
		return ConvertDateTime(string(v))
	default:
		return time.Time{}, fmt.Errorf("cannot convert %T to datetime", val)
	}
}

// FormatDateTime is the inverse of ConvertDateTime for stored watermarks.
func FormatDateTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
