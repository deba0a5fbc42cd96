package logging

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/fatih/color"
)

const consoleTimeLayout = "15:04:05"

// lineHandler renders one line per record:
//
//	15:04:05 INFO  [enrichment] doc coin-7: message  key=value key="two words"
//
// Component and document id move into the prefix. At info level the fields
// listed in leadingKeys come first and debug-only keys are dropped.
type lineHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     slog.Leveler
	attrs     []field
	prefix    string
	addSource bool
	color     bool
}

type field struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, level slog.Leveler, addSource, color bool) slog.Handler {
	return &lineHandler{mu: new(sync.Mutex), out: w, level: level, addSource: addSource, color: color}
}

func (h *lineHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *lineHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = appendFields(append([]field(nil), h.attrs...), h.prefix, attrs)
	return &next
}

func (h *lineHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

func (h *lineHandler) Handle(_ context.Context, record slog.Record) error {
	fields := append([]field(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		fields = appendFields(fields, h.prefix, []slog.Attr{attr})
		return true
	})
	fields = lastWins(fields)

	var component, document string
	rest := fields[:0]
	for _, f := range fields {
		switch f.key {
		case FieldComponent:
			component = f.value.String()
		case FieldDocumentID:
			document = f.value.String()
		default:
			rest = append(rest, f)
		}
	}
	if record.Level >= slog.LevelInfo {
		rest = infoFields(rest)
	}

	var b strings.Builder
	if !record.Time.IsZero() {
		b.WriteString(record.Time.Local().Format(consoleTimeLayout))
		b.WriteByte(' ')
	}
	if h.color {
		b.WriteString(levelColor(record.Level).Sprint(levelTag(record.Level)))
	} else {
		b.WriteString(levelTag(record.Level))
	}
	if component != "" {
		b.WriteString(" [")
		b.WriteString(component)
		b.WriteByte(']')
	}
	if document != "" {
		b.WriteString(" doc ")
		b.WriteString(document)
	}
	b.WriteString(": ")
	b.WriteString(strings.TrimSpace(record.Message))
	for i, f := range rest {
		if i == 0 {
			b.WriteByte(' ')
		}
		b.WriteByte(' ')
		b.WriteString(fieldLabel(f.key))
		b.WriteByte('=')
		b.WriteString(renderValue(f.value))
	}
	if h.addSource && record.Level < slog.LevelInfo && record.PC != 0 {
		if src := record.Source(); src != nil {
			b.WriteString(" (")
			b.WriteString(filepath.Base(src.File))
			b.WriteByte(':')
			b.WriteString(strconv.Itoa(src.Line))
			b.WriteByte(')')
		}
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.out, b.String())
	return err
}

func appendFields(dst []field, prefix string, attrs []slog.Attr) []field {
	for _, attr := range attrs {
		attr.Value = attr.Value.Resolve()
		if attr.Equal(slog.Attr{}) {
			continue
		}
		if attr.Value.Kind() == slog.KindGroup {
			nested := prefix
			if attr.Key != "" {
				nested = prefix + attr.Key + "."
			}
			dst = appendFields(dst, nested, attr.Value.Group())
			continue
		}
		dst = append(dst, field{key: prefix + attr.Key, value: attr.Value})
	}
	return dst
}

// lastWins drops earlier duplicates of a key, keeping the first position.
func lastWins(fields []field) []field {
	pos := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, seen := pos[f.key]; seen {
			out[i] = f
			continue
		}
		pos[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

var (
	errorColor = forcedColor(color.FgRed, color.Bold)
	warnColor  = forcedColor(color.FgYellow)
	infoColor  = forcedColor(color.FgGreen)
	debugColor = forcedColor(color.FgHiBlack)
)

// forcedColor ignores the package-wide NoColor switch, which only looks at
// stdout while log lines go to stderr.
func forcedColor(attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	c.EnableColor()
	return c
}

func levelColor(level slog.Level) *color.Color {
	switch {
	case level >= slog.LevelError:
		return errorColor
	case level >= slog.LevelWarn:
		return warnColor
	case level >= slog.LevelInfo:
		return infoColor
	default:
		return debugColor
	}
}

func levelTag(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
