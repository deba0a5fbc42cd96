package logging

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"time"
)

const maxErrorLen = 200

// leadingKeys are printed first, in this order, at info level and above.
var leadingKeys = []string{
	FieldEventType,
	FieldDecisionType,
	FieldDecisionResult,
	FieldDecisionReason,
	FieldTypeID,
	"source",
	"score",
	"runner_up_score",
	"scanned",
	"updated",
	"would_update",
	"errors",
	"error",
	FieldErrorHint,
	FieldImpact,
}

// debugOnlyKeys are hidden from info-level console lines.
var debugOnlyKeys = []string{FieldRunID, FieldStage, "latency", "attempt", "url", "candidates"}

var fieldLabels = map[string]string{
	FieldEventType:      "event",
	FieldDecisionType:   "decision",
	FieldDecisionResult: "result",
	FieldDecisionReason: "reason",
	FieldErrorHint:      "hint",
	FieldTypeID:         "type",
}

func infoFields(fields []field) []field {
	out := make([]field, 0, len(fields))
	for _, key := range leadingKeys {
		if i := slices.IndexFunc(fields, func(f field) bool { return f.key == key }); i >= 0 {
			out = append(out, fields[i])
		}
	}
	for _, f := range fields {
		if slices.Contains(leadingKeys, f.key) || slices.Contains(debugOnlyKeys, f.key) || strings.HasPrefix(f.key, "candidate.") {
			continue
		}
		out = append(out, f)
	}
	return out
}

func fieldLabel(key string) string {
	if label, ok := fieldLabels[key]; ok {
		return label
	}
	return key
}

func renderValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339)
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return quote(truncate(err.Error(), maxErrorLen))
		}
		return quote(fmt.Sprint(v.Any()))
	default:
		return quote(v.String())
	}
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}

func quote(s string) string {
	if s == "" || strings.ContainsFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) {
		return strconv.Quote(s)
	}
	return s
}
