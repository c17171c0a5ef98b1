package log

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

// ANSI color codes for pretty printing.
const (
	colorReset   = "\033[0m"
	colorGray    = "\033[90m"
	colorRed     = "\033[31m"
	colorGreen   = "\033[32m"
	colorYellow  = "\033[33m"
	colorBlue    = "\033[34m"
	colorMagenta = "\033[35m"
	colorCyan    = "\033[36m"
)

// prettyBase holds the state shared by both pretty handlers.
type prettyBase struct {
	opts       slog.HandlerOptions
	formatTime FormatTime
	mu         *sync.Mutex
	w          io.Writer
	attrs      []slog.Attr
	group      string
}

func (h prettyBase) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.opts.Level.Level()
}

// header returns the built-in attributes of r in output order.
func (h prettyBase) header(r slog.Record) []slog.Attr {
	hdr := make([]slog.Attr, 0, 4)

	if !r.Time.IsZero() && h.formatTime != nil {
		if ts := h.formatTime(r.Time); ts != "" {
			hdr = append(hdr, slog.String(slog.TimeKey, ts))
		}
	}

	hdr = append(hdr, slog.Any(slog.LevelKey, r.Level))

	if h.opts.AddSource {
		if src := r.Source(); src != nil && src.File != "" {
			hdr = append(hdr,
				slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", src.File, src.Line)))
		}
	}

	return append(hdr, slog.String(slog.MessageKey, r.Message))
}

// body returns the handler's attached attributes followed by those of r,
// with keys qualified by the current group.
func (h prettyBase) body(r slog.Record) []slog.Attr {
	body := make([]slog.Attr, 0, len(h.attrs)+r.NumAttrs())
	body = append(body, h.attrs...)

	r.Attrs(func(a slog.Attr) bool {
		body = append(body, h.qualify(a))

		return true
	})

	return body
}

func (h prettyBase) qualify(a slog.Attr) slog.Attr {
	if h.group != "" {
		a.Key = h.group + "." + a.Key
	}

	return a
}

func (h prettyBase) withAttrs(attrs []slog.Attr) prettyBase {
	next := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next = append(next, h.attrs...)

	for _, a := range attrs {
		next = append(next, h.qualify(a))
	}

	h.attrs = next

	return h
}

func (h prettyBase) withGroup(name string) prettyBase {
	if name == "" {
		return h
	}

	if h.group != "" {
		name = h.group + "." + name
	}

	h.group = name

	return h
}

func (h prettyBase) write(buf *bytes.Buffer) error {
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	_, err := h.w.Write(buf.Bytes())

	return err
}

// prettyTextHandler implements a colorized text handler for log messages.
type prettyTextHandler struct{ prettyBase }

func newPrettyTextHandler(
	w io.Writer,
	format FormatTime,
	opts *slog.HandlerOptions,
) *prettyTextHandler {
	return &prettyTextHandler{prettyBase{
		opts:       *opts,
		formatTime: format,
		mu:         &sync.Mutex{},
		w:          w,
	}}
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)

	for _, a := range h.header(r) {
		writeTextAttr(buf, a)
	}

	for _, a := range h.body(r) {
		writeTextAttr(buf, a)
	}

	return h.write(buf)
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyTextHandler{h.withAttrs(attrs)}
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	return &prettyTextHandler{h.withGroup(name)}
}

func writeTextAttr(buf *bytes.Buffer, a slog.Attr) {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			if a.Key != "" {
				ga.Key = a.Key + "." + ga.Key
			}

			writeTextAttr(buf, ga)
		}

		return
	}

	if a.Equal(slog.Attr{}) {
		return
	}

	if buf.Len() > 0 {
		buf.WriteByte(' ')
	}

	buf.WriteString(colorGray)
	buf.WriteString(a.Key)
	buf.WriteString(colorReset)
	buf.WriteByte('=')

	writeValue(buf, a.Value)
}

// prettyJSONHandler implements a pretty-printed JSON handler for log messages.
type prettyJSONHandler struct{ prettyBase }

func newPrettyJSONHandler(
	w io.Writer,
	format FormatTime,
	opts *slog.HandlerOptions,
) *prettyJSONHandler {
	return &prettyJSONHandler{prettyBase{
		opts:       *opts,
		formatTime: format,
		mu:         &sync.Mutex{},
		w:          w,
	}}
}

func (h *prettyJSONHandler) Handle(_ context.Context, r slog.Record) error {
	buf := new(bytes.Buffer)
	buf.WriteString("{")

	first := true

	for _, a := range h.header(r) {
		writeJSONAttr(buf, a, &first)
	}

	for _, a := range h.body(r) {
		writeJSONAttr(buf, a, &first)
	}

	buf.WriteString("\n}")

	return h.write(buf)
}

func (h *prettyJSONHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &prettyJSONHandler{h.withAttrs(attrs)}
}

func (h *prettyJSONHandler) WithGroup(name string) slog.Handler {
	return &prettyJSONHandler{h.withGroup(name)}
}

func writeJSONAttr(buf *bytes.Buffer, a slog.Attr, first *bool) {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			if a.Key != "" {
				ga.Key = a.Key + "." + ga.Key
			}

			writeJSONAttr(buf, ga, first)
		}

		return
	}

	if a.Equal(slog.Attr{}) {
		return
	}

	if !*first {
		buf.WriteByte(',')
	}

	*first = false

	buf.WriteString("\n  ")
	buf.WriteString(colorGray)
	buf.WriteString(strconv.Quote(a.Key))
	buf.WriteString(colorReset)
	buf.WriteString(": ")

	writeValue(buf, a.Value)
}

// writeValue writes v in a color chosen by its kind.
func writeValue(buf *bytes.Buffer, v slog.Value) {
	color, text := colorGray, ""

	switch v.Kind() {
	case slog.KindString:
		color, text = colorCyan, v.String()

	case slog.KindInt64:
		color, text = colorYellow, strconv.FormatInt(v.Int64(), 10)

	case slog.KindUint64:
		color, text = colorYellow, strconv.FormatUint(v.Uint64(), 10)

	case slog.KindFloat64:
		color, text = colorYellow, strconv.FormatFloat(v.Float64(), 'g', -1, 64)

	case slog.KindBool:
		color, text = colorRed, "false"
		if v.Bool() {
			color, text = colorGreen, "true"
		}

	case slog.KindDuration:
		color, text = colorMagenta, v.Duration().String()

	case slog.KindTime:
		color, text = colorBlue, v.Time().Format(time.RFC3339Nano)

	case slog.KindAny:
		if level, ok := v.Any().(slog.Level); ok {
			switch {
			case level >= slog.LevelError:
				color = colorRed
			case level >= slog.LevelWarn:
				color = colorYellow
			case level >= slog.LevelInfo:
				color = colorGreen
			default:
				color = colorBlue
			}

			text = strings.ToUpper(Level(level).String())
		} else if v.Any() == nil {
			text = "null"
		} else {
			color, text = colorCyan, fmt.Sprint(v.Any())
		}

	default:
		color, text = colorCyan, v.String()
	}

	buf.WriteString(color)
	buf.WriteString(text)
	buf.WriteString(colorReset)
}
