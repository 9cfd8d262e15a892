package report

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/spaghettifunk/vksync/engine/core"
)

type Severity uint32

const (
	SeverityError Severity = 1 << iota
	SeverityWarning
	SeverityPerformanceWarning
	SeverityInfo

	SeverityAll = SeverityError | SeverityWarning | SeverityPerformanceWarning | SeverityInfo
)

func (s Severity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	case SeverityPerformanceWarning:
		return "performance"
	case SeverityInfo:
		return "info"
	default:
		return fmt.Sprintf("Severity(%d)", uint32(s))
	}
}

// ParseSeverities parses a list like ["error", "warning"].
func ParseSeverities(names []string) (Severity, error) {
	var mask Severity
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "error":
			mask |= SeverityError
		case "warning", "warn":
			mask |= SeverityWarning
		case "performance", "perf":
			mask |= SeverityPerformanceWarning
		case "info":
			mask |= SeverityInfo
		default:
			return 0, fmt.Errorf("unknown severity %q", n)
		}
	}
	return mask, nil
}

// Reporter receives validation messages. Every Log call returns true when the
// message was reported, which callers OR into their skip result.
type Reporter interface {
	LogError(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool
	LogWarning(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool
	LogPerformanceWarning(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool
	LogInfo(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool
	FormatHandle(h TypedHandle) string
}

type Record struct {
	Severity Severity
	VUID     string
	Objects  LogObjectList
	Location string
	Message  string
}

func (r Record) String() string {
	return fmt.Sprintf("[%s] %s: %s", r.VUID, r.Location, r.Message)
}

// Filter decides which messages get through.
type Filter struct {
	Severities     Severity
	DisabledVUIDs  map[string]struct{}
	DuplicateLimit uint64
}

func DefaultFilter() Filter {
	return Filter{
		Severities:     SeverityAll,
		DisabledVUIDs:  map[string]struct{}{},
		DuplicateLimit: 10,
	}
}

// Logger is the Reporter used by the layer. It writes through charmbracelet/log,
// counts messages per VUID and keeps every delivered record.
type Logger struct {
	mu      sync.Mutex
	out     *log.Logger
	filter  Filter
	metrics *core.Metrics
	names   map[Handle]string
	records []Record
	quiet   bool
}

type LoggerOption func(*Logger)

// WithOutput sends formatted messages to w instead of stderr.
func WithOutput(w io.Writer) LoggerOption {
	return func(l *Logger) {
		l.out = newOutput(w)
	}
}

// WithQuiet keeps records and counters but writes nothing.
func WithQuiet() LoggerOption {
	return func(l *Logger) {
		l.quiet = true
	}
}

func WithFilter(f Filter) LoggerOption {
	return func(l *Logger) {
		l.filter = f
	}
}

func WithMetrics(m *core.Metrics) LoggerOption {
	return func(l *Logger) {
		l.metrics = m
	}
}

func newOutput(w io.Writer) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: false,
		Prefix:          "validation",
		Level:           log.DebugLevel,
	})
}

func NewLogger(options ...LoggerOption) *Logger {
	l := &Logger{
		out:     newOutput(os.Stderr),
		filter:  DefaultFilter(),
		metrics: core.NewMetrics(),
		names:   make(map[Handle]string),
	}
	for _, o := range options {
		o(l)
	}
	return l
}

// SetFilter swaps the active filter, used when settings are reloaded.
func (l *Logger) SetFilter(f Filter) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.filter = f
}

// SetObjectName attaches a debug name shown by FormatHandle.
func (l *Logger) SetObjectName(h Handle, name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if name == "" {
		delete(l.names, h)
		return
	}
	l.names[h] = name
}

func (l *Logger) FormatHandle(h TypedHandle) string {
	l.mu.Lock()
	name, ok := l.names[h.Handle]
	l.mu.Unlock()
	if ok {
		return fmt.Sprintf("%s 0x%x[%s]", h.Type, uint64(h.Handle), name)
	}
	return fmt.Sprintf("%s 0x%x[]", h.Type, uint64(h.Handle))
}

func (l *Logger) Metrics() *core.Metrics {
	return l.metrics
}

// Records returns a copy of every delivered message.
func (l *Logger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Record, len(l.records))
	copy(out, l.records)
	return out
}

// RecordsFor returns the delivered messages carrying vuid.
func (l *Logger) RecordsFor(vuid string) []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []Record
	for _, r := range l.records {
		if r.VUID == vuid {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of delivered messages of the given severities.
func (l *Logger) Count(sev Severity) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, r := range l.records {
		if r.Severity&sev != 0 {
			n++
		}
	}
	return n
}

// Reset forgets the delivered records.
func (l *Logger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = nil
}

func (l *Logger) LogError(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool {
	return l.logMsg(SeverityError, objects, vuid, loc, format, args...)
}

func (l *Logger) LogWarning(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool {
	return l.logMsg(SeverityWarning, objects, vuid, loc, format, args...)
}

func (l *Logger) LogPerformanceWarning(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool {
	return l.logMsg(SeverityPerformanceWarning, objects, vuid, loc, format, args...)
}

func (l *Logger) LogInfo(objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool {
	return l.logMsg(SeverityInfo, objects, vuid, loc, format, args...)
}

func (l *Logger) logMsg(sev Severity, objects LogObjectList, vuid string, loc Location, format string, args ...interface{}) bool {
	l.mu.Lock()
	filter := l.filter
	l.mu.Unlock()

	if filter.Severities&sev == 0 {
		return false
	}
	if _, disabled := filter.DisabledVUIDs[vuid]; disabled {
		return false
	}
	count := l.metrics.Count(vuid)
	// Over the duplicate limit the message still counts as reported, it is just not printed again.
	if filter.DuplicateLimit > 0 && count > filter.DuplicateLimit {
		return sev == SeverityError
	}

	rec := Record{
		Severity: sev,
		VUID:     vuid,
		Objects:  objects.Clone(),
		Location: loc.String(),
		Message:  fmt.Sprintf(format, args...),
	}
	l.mu.Lock()
	l.records = append(l.records, rec)
	l.mu.Unlock()

	if !l.quiet {
		l.emit(rec)
	}
	return sev == SeverityError
}

func (l *Logger) emit(rec Record) {
	objs := make([]string, 0, len(rec.Objects))
	for _, o := range rec.Objects {
		objs = append(objs, l.FormatHandle(o))
	}
	kv := []interface{}{"vuid", rec.VUID, "objects", strings.Join(objs, ", ")}
	msg := rec.Location + ": " + rec.Message
	switch rec.Severity {
	case SeverityError:
		l.out.Error(msg, kv...)
	case SeverityWarning, SeverityPerformanceWarning:
		l.out.Warn(msg, append(kv, "severity", rec.Severity.String())...)
	default:
		l.out.Info(msg, kv...)
	}
}
