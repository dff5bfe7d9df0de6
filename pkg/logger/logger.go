// Package logger is classpoint's structured logger: leveled, JSON by
// default with a text format for terminals, and typed field helpers for
// ledger data.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS AND FORMATS
// ══════════════════════════════════════════════════════════════════════════════

// Level is the severity of a message.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError

	levelOff
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR"}

func (l Level) String() string {
	if l >= LevelDebug && l < levelOff {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel parses LOG_LEVEL values; unknown values mean info.
func ParseLevel(s string) Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return LevelWarn
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i)
		}
	}
	return LevelInfo
}

// Format selects the output encoding.
type Format int

const (
	// FormatJSON writes one JSON object per line.
	FormatJSON Format = iota
	// FormatText writes "time LEVEL message key=value ..." lines.
	FormatText
)

// ParseFormat parses "json" or "text"; anything else is JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "text") {
		return FormatText
	}
	return FormatJSON
}

// ══════════════════════════════════════════════════════════════════════════════
// FIELDS
// ══════════════════════════════════════════════════════════════════════════════

// Field is one key/value pair of a log line.
type Field struct {
	Key   string
	Value any
}

func String(key, value string) Field  { return Field{Key: key, Value: value} }
func Int(key string, value int) Field { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}
func Any(key string, value any) Field { return Field{Key: key, Value: value} }

// Duration logs d in its String form ("1.5s").
func Duration(key string, d time.Duration) Field {
	return Field{Key: key, Value: d.String()}
}

// Err logs err's message under "error".
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error"}
	}
	return Field{Key: "error", Value: err.Error()}
}

// Ledger fields.
func StudentID(id string) Field     { return String("student_id", id) }
func ClassID(id string) Field       { return String("class_id", id) }
func RewardID(id string) Field      { return String("reward_id", id) }
func Points(n int) Field            { return Int("points", n) }
func Change(n int) Field            { return Int("change", n) }
func LevelName(name string) Field   { return String("level", name) }
func Component(name string) Field   { return String("component", name) }
func Operation(name string) Field   { return String("operation", name) }
func Latency(d time.Duration) Field { return Duration("latency", d) }

// ══════════════════════════════════════════════════════════════════════════════
// LOGGER
// ══════════════════════════════════════════════════════════════════════════════

// LogEntry is the JSON shape of one line.
type LogEntry struct {
	Timestamp string         `json:"timestamp"`
	Level     string         `json:"level"`
	Message   string         `json:"message"`
	Caller    string         `json:"caller,omitempty"`
	Fields    map[string]any `json:"fields,omitempty"`
}

// Options configures New.
type Options struct {
	Output     io.Writer // default os.Stderr
	Level      Level
	Format     Format
	AddCaller  bool
	CallerSkip int
}

// sink is shared by a logger and everything derived from it with With.
type sink struct {
	mu     sync.Mutex
	out    io.Writer
	format Format
}

// Logger writes leveled messages with fixed and per-call fields. Loggers
// are safe for concurrent use.
type Logger struct {
	sink       *sink
	level      Level
	fields     []Field
	addCaller  bool
	callerSkip int
}

// New creates a logger.
func New(opts Options) *Logger {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}
	return &Logger{
		sink:       &sink{out: opts.Output, format: opts.Format},
		level:      opts.Level,
		addCaller:  opts.AddCaller,
		callerSkip: opts.CallerSkip,
	}
}

// Nop returns a logger that writes nothing.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: levelOff})
}

// With returns a logger that adds fields to every line.
func (l *Logger) With(fields ...Field) *Logger {
	c := *l
	c.fields = append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	return &c
}

// WithLevel returns a logger with a different minimum level.
func (l *Logger) WithLevel(level Level) *Logger {
	c := *l
	c.level = level
	return &c
}

// Enabled reports whether messages at level are written.
func (l *Logger) Enabled(level Level) bool {
	return level >= l.level
}

func (l *Logger) Debug(msg string, fields ...Field) { l.write(LevelDebug, msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { l.write(LevelInfo, msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.write(LevelWarn, msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { l.write(LevelError, msg, fields) }

// Debugf, Infof, Warningf and Errorf make *Logger a badger.Logger.
func (l *Logger) Debugf(format string, args ...any) { l.writef(LevelDebug, format, args) }
func (l *Logger) Infof(format string, args ...any)  { l.writef(LevelInfo, format, args) }
func (l *Logger) Warningf(format string, args ...any) {
	l.writef(LevelWarn, format, args)
}
func (l *Logger) Errorf(format string, args ...any) { l.writef(LevelError, format, args) }

func (l *Logger) writef(level Level, format string, args []any) {
	if !l.Enabled(level) {
		return
	}
	l.write(level, strings.TrimRight(fmt.Sprintf(format, args...), "\n"), nil)
}

func (l *Logger) write(level Level, msg string, fields []Field) {
	if !l.Enabled(level) {
		return
	}

	entry := LogEntry{
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Level:     level.String(),
		Message:   msg,
	}
	if l.addCaller {
		// write <- Info/Warn/... or writef <- caller
		skip := 2 + l.callerSkip
		if _, file, line, ok := runtime.Caller(skip); ok {
			entry.Caller = fmt.Sprintf("%s:%d", file[strings.LastIndex(file, "/")+1:], line)
		}
	}

	all := l.fields
	if len(fields) > 0 {
		all = append(append(make([]Field, 0, len(l.fields)+len(fields)), l.fields...), fields...)
	}

	var line []byte
	if l.sink.format == FormatText {
		line = textLine(entry, all)
	} else {
		if len(all) > 0 {
			entry.Fields = make(map[string]any, len(all))
			for _, f := range all {
				entry.Fields[f.Key] = f.Value
			}
		}
		data, err := json.Marshal(entry)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"timestamp":%q,"level":%q,"message":%q}`, entry.Timestamp, entry.Level, msg))
		}
		line = append(data, '\n')
	}

	l.sink.mu.Lock()
	_, _ = l.sink.out.Write(line)
	l.sink.mu.Unlock()
}

// textLine renders an entry on one line, keeping field order.
func textLine(entry LogEntry, fields []Field) []byte {
	var b strings.Builder
	b.WriteString(entry.Timestamp)
	b.WriteByte(' ')
	b.WriteString(entry.Level)
	b.WriteByte(' ')
	b.WriteString(entry.Message)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	if entry.Caller != "" {
		b.WriteString(" caller=")
		b.WriteString(entry.Caller)
	}
	b.WriteByte('\n')
	return []byte(b.String())
}
