package logx

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

type Level = zerolog.Level

const (
	LevelError = zerolog.ErrorLevel
	// LevelCritical is written with zerolog's fatal level name but never exits.
	LevelCritical = zerolog.FatalLevel
)

const timeFormat = "2006-01-02T15:04:05.000Z07:00"

func init() {
	zerolog.ErrorFieldName = "err"
	zerolog.TimeFieldFormat = timeFormat
}

// Field adds one key to an event.
type Field func(e *zerolog.Event)

func String(k, v string) Field                 { return func(e *zerolog.Event) { e.Str(k, v) } }
func Int(k string, v int) Field                { return func(e *zerolog.Event) { e.Int(k, v) } }
func Int64(k string, v int64) Field            { return func(e *zerolog.Event) { e.Int64(k, v) } }
func Bool(k string, v bool) Field              { return func(e *zerolog.Event) { e.Bool(k, v) } }
func Duration(k string, v time.Duration) Field { return func(e *zerolog.Event) { e.Dur(k, v) } }
func Time(k string, v time.Time) Field         { return func(e *zerolog.Event) { e.Time(k, v) } }
func Any(k string, v any) Field                { return func(e *zerolog.Event) { e.Interface(k, v) } }

// Err adds err under the "err" key; nil adds nothing.
func Err(err error) Field {
	return func(e *zerolog.Event) {
		if err != nil {
			e.Err(err)
		}
	}
}

// Logger writes structured events. The zero value discards everything.
// Loggers handed out by a Service follow its Apply calls.
type Logger struct {
	root   *atomic.Pointer[zerolog.Logger]
	fields []Field
}

func fixed(zl zerolog.Logger) Logger {
	p := new(atomic.Pointer[zerolog.Logger])
	p.Store(&zl)
	return Logger{root: p}
}

func build(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(w).Level(level).With().Timestamp().Logger()
}

// Nop returns a logger that never writes.
func Nop() Logger { return fixed(zerolog.Nop()) }

// NewConsole is used before the config is loaded.
func NewConsole(level string) Logger {
	return fixed(build(consoleWriter(os.Stdout), parseLevel(level, zerolog.InfoLevel)))
}

// NewWriter writes JSON lines to w.
func NewWriter(w io.Writer, level string) Logger {
	return fixed(build(w, parseLevel(level, zerolog.DebugLevel)))
}

func (l Logger) IsZero() bool { return l.root == nil && len(l.fields) == 0 }

// With returns a logger that adds fields to every event.
func (l Logger) With(fields ...Field) Logger {
	if len(fields) == 0 {
		return l
	}
	l.fields = append(slices.Clip(l.fields), fields...)
	return l
}

func (l Logger) Debug(msg string, fields ...Field) { l.write(zerolog.DebugLevel, msg, fields) }
func (l Logger) Info(msg string, fields ...Field)  { l.write(zerolog.InfoLevel, msg, fields) }
func (l Logger) Warn(msg string, fields ...Field)  { l.write(zerolog.WarnLevel, msg, fields) }
func (l Logger) Error(msg string, fields ...Field) { l.write(zerolog.ErrorLevel, msg, fields) }

// Critical logs at the highest level and returns; the caller decides
// whether to exit.
func (l Logger) Critical(msg string, fields ...Field) { l.write(LevelCritical, msg, fields) }

func (l Logger) Log(level Level, msg string, fields ...Field) { l.write(level, msg, fields) }

func (l Logger) write(level zerolog.Level, msg string, fields []Field) {
	if l.root == nil {
		return
	}
	zl := l.root.Load()
	if zl == nil {
		return
	}
	// WithLevel never exits or panics.
	e := zl.WithLevel(level)
	if e == nil {
		return
	}
	if _, file, line, ok := runtime.Caller(2); ok {
		e.Str(zerolog.CallerFieldName, filepath.Base(file)+":"+strconv.Itoa(line))
	}
	for _, f := range l.fields {
		f(e)
	}
	for _, f := range fields {
		f(e)
	}
	e.Msg(msg)
}

func consoleWriter(w io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: timeFormat,
		FormatCaller: func(i any) string {
			s, _ := i.(string)
			return s
		},
	}
}

func parseLevel(s string, def zerolog.Level) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "critical", "fatal":
		return zerolog.FatalLevel
	}
	return def
}

// ValidLevel reports whether s names a known level. Empty means default.
func ValidLevel(s string) bool {
	return strings.TrimSpace(s) == "" || parseLevel(s, zerolog.NoLevel) != zerolog.NoLevel
}
