package browser

import (
	"io"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// LogLevel controls how much of the controller's event trace is written.
type LogLevel int

const (
	LogLevelNone LogLevel = iota
	LogLevelError
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

func (l LogLevel) String() string {
	switch l {
	case LogLevelError:
		return "error"
	case LogLevelWarn:
		return "warn"
	case LogLevelInfo:
		return "info"
	case LogLevelDebug:
		return "debug"
	default:
		return "none"
	}
}

// ParseLogLevel reads a level name as found in DBW_LOG_LEVEL. Unknown
// values give LogLevelNone.
func ParseLogLevel(raw string) LogLevel {
	switch strings.TrimSpace(strings.ToLower(raw)) {
	case "error":
		return LogLevelError
	case "warn", "warning":
		return LogLevelWarn
	case "info":
		return LogLevelInfo
	case "debug", "trace":
		return LogLevelDebug
	default:
		return LogLevelNone
	}
}

// Tracer writes controller events as JSON lines:
//
//	{"ts":"…","level":"info","component":"browser","event":"fetch_started","token":7}
type Tracer struct {
	mu    sync.Mutex
	w     io.Writer
	level LogLevel
	now   func() time.Time
}

// NewTracer returns a tracer writing events at or below level to w.
func NewTracer(w io.Writer, level LogLevel) *Tracer {
	return &Tracer{w: w, level: level, now: time.Now}
}

func (t *Tracer) event(level LogLevel, event string, fields map[string]any) {
	if t == nil || t.w == nil || level == LogLevelNone || level > t.level {
		return
	}

	payload := map[string]any{
		"ts":        t.now().UTC().Format(time.RFC3339Nano),
		"level":     level.String(),
		"component": "browser",
		"event":     event,
	}
	for k, v := range fields {
		payload[k] = v
	}
	b, err := json.Marshal(payload)
	if err != nil {
		log.Printf("browser: failed to marshal trace event %s: %v", event, err)
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, _ = t.w.Write(append(b, '\n'))
}
