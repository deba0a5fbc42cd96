package firestore

import (
	"encoding/json"
	"math"
	"strconv"
	"time"
)

// DecodeValue converts one typed Firestore value into a plain Go value.
// Integers decode to int64, doubles to float64, timestamps to their RFC 3339
// string. Unsupported kinds decode to nil.
func DecodeValue(value map[string]any) any {
	if value == nil {
		return nil
	}
	if v, ok := value["stringValue"]; ok {
		s, _ := v.(string)
		return s
	}
	if v, ok := value["integerValue"]; ok {
		return decodeInteger(v)
	}
	if v, ok := value["doubleValue"]; ok {
		return decodeDouble(v)
	}
	if v, ok := value["booleanValue"]; ok {
		b, _ := v.(bool)
		return b
	}
	if v, ok := value["timestampValue"]; ok {
		s, _ := v.(string)
		return s
	}
	if _, ok := value["nullValue"]; ok {
		return nil
	}
	if v, ok := value["arrayValue"]; ok {
		array, _ := v.(map[string]any)
		raw, _ := array["values"].([]any)
		out := make([]any, 0, len(raw))
		for _, entry := range raw {
			typed, _ := entry.(map[string]any)
			out = append(out, DecodeValue(typed))
		}
		return out
	}
	if v, ok := value["mapValue"]; ok {
		m, _ := v.(map[string]any)
		fields, _ := m["fields"].(map[string]any)
		return DecodeFields(fields)
	}
	return nil
}

// DecodeFields converts a Firestore fields object into a plain map.
func DecodeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, entry := range fields {
		typed, _ := entry.(map[string]any)
		out[key] = DecodeValue(typed)
	}
	return out
}

// EncodeValue converts a plain Go value into its typed Firestore form. The
// second result is false for values that cannot be represented, such as NaN
// or infinite numbers; callers drop those fields.
func EncodeValue(v any) (map[string]any, bool) {
	switch value := v.(type) {
	case nil:
		return map[string]any{"nullValue": nil}, true
	case string:
		return map[string]any{"stringValue": value}, true
	case bool:
		return map[string]any{"booleanValue": value}, true
	case int:
		return integerValue(int64(value)), true
	case int32:
		return integerValue(int64(value)), true
	case int64:
		return integerValue(value), true
	case float32:
		return encodeNumber(float64(value))
	case float64:
		return encodeNumber(value)
	case json.Number:
		if i, err := value.Int64(); err == nil {
			return integerValue(i), true
		}
		f, err := value.Float64()
		if err != nil {
			return nil, false
		}
		return encodeNumber(f)
	case time.Time:
		return map[string]any{"timestampValue": value.UTC().Format(time.RFC3339Nano)}, true
	case []any:
		return arrayValue(value), true
	case []string:
		items := make([]any, len(value))
		for i, s := range value {
			items[i] = s
		}
		return arrayValue(items), true
	case []map[string]any:
		items := make([]any, len(value))
		for i, m := range value {
			items[i] = m
		}
		return arrayValue(items), true
	case map[string]any:
		return map[string]any{"mapValue": map[string]any{"fields": EncodeFields(value)}}, true
	default:
		return nil, false
	}
}

// EncodeFields converts a plain map into a Firestore fields object, dropping
// entries that cannot be represented.
func EncodeFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for key, value := range fields {
		if encoded, ok := EncodeValue(value); ok {
			out[key] = encoded
		}
	}
	return out
}

func encodeNumber(f float64) (map[string]any, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, false
	}
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return integerValue(int64(f)), true
	}
	return map[string]any{"doubleValue": f}, true
}

func integerValue(i int64) map[string]any {
	return map[string]any{"integerValue": strconv.FormatInt(i, 10)}
}

func arrayValue(items []any) map[string]any {
	values := make([]any, 0, len(items))
	for _, item := range items {
		if encoded, ok := EncodeValue(item); ok {
			values = append(values, encoded)
		}
	}
	return map[string]any{"arrayValue": map[string]any{"values": values}}
}

func decodeInteger(v any) any {
	switch value := v.(type) {
	case string:
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		return nil
	case float64:
		return int64(value)
	default:
		return nil
	}
}

func decodeDouble(v any) any {
	switch value := v.(type) {
	case float64:
		return value
	case string:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil
		}
		return f
	default:
		return nil
	}
}
