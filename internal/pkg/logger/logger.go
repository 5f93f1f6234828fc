package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

var levelNames = map[Level]string{
	DEBUG: "DEBUG",
	INFO:  "INFO",
	WARN:  "WARN",
	ERROR: "ERROR",
}

// ParseLevel maps a config string ("debug", "INFO", ...) to a Level.
// Unknown values fall back to INFO.
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger provides structured JSON logging with optional PII redaction.
type Logger struct {
	level     Level
	mu        sync.Mutex
	redactPII bool
	out       io.Writer
	component string
}

var defaultLogger = &Logger{level: INFO, redactPII: true, out: os.Stderr}

// SetLevel sets the minimum log level for the default logger.
func SetLevel(l Level) { defaultLogger.level = l }

// SetRedactPII enables or disables PII redaction for the default logger.
func SetRedactPII(r bool) { defaultLogger.redactPII = r }

// SetOutput redirects the default logger. Tests use it to capture entries.
func SetOutput(w io.Writer) {
	defaultLogger.mu.Lock()
	defaultLogger.out = w
	defaultLogger.mu.Unlock()
}

// Debug emits a DEBUG-level structured log entry.
func Debug(msg string, fields ...interface{}) { defaultLogger.log(DEBUG, msg, fields...) }

// Info emits an INFO-level structured log entry.
func Info(msg string, fields ...interface{}) { defaultLogger.log(INFO, msg, fields...) }

// Warn emits a WARN-level structured log entry.
func Warn(msg string, fields ...interface{}) { defaultLogger.log(WARN, msg, fields...) }

// Error emits an ERROR-level structured log entry.
func Error(msg string, fields ...interface{}) { defaultLogger.log(ERROR, msg, fields...) }

// Named returns a logger that tags every entry with a component field and
// shares the default logger's level, redaction and output.
func Named(component string) *Component {
	return &Component{name: component}
}

// Component is a thin handle over the default logger with a fixed component tag.
type Component struct {
	name   string
	fields []interface{}
}

// With returns a copy that adds fields to every entry.
func (c *Component) With(fields ...interface{}) *Component {
	merged := make([]interface{}, 0, len(c.fields)+len(fields))
	merged = append(merged, c.fields...)
	return &Component{name: c.name, fields: append(merged, fields...)}
}

func (c *Component) Debug(msg string, fields ...interface{}) { c.emit(DEBUG, msg, fields) }
func (c *Component) Info(msg string, fields ...interface{})  { c.emit(INFO, msg, fields) }
func (c *Component) Warn(msg string, fields ...interface{})  { c.emit(WARN, msg, fields) }
func (c *Component) Error(msg string, fields ...interface{}) { c.emit(ERROR, msg, fields) }

func (c *Component) emit(level Level, msg string, fields []interface{}) {
	all := make([]interface{}, 0, 2+len(c.fields)+len(fields))
	all = append(all, "component", c.name)
	all = append(all, c.fields...)
	defaultLogger.log(level, msg, append(all, fields...)...)
}

func (l *Logger) log(level Level, msg string, fields ...interface{}) {
	if level < l.level {
		return
	}

	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339),
		"level": levelNames[level],
		"msg":   msg,
	}

	// Parse key-value pairs from fields
	for i := 0; i < len(fields)-1; i += 2 {
		key := fmt.Sprintf("%v", fields[i])
		val := redactQueryCredentials(fmt.Sprintf("%v", fields[i+1]))
		if l.redactPII {
			val = redactPIIValue(key, val)
		}
		entry[key] = val
	}

	data, _ := json.Marshal(entry)
	l.mu.Lock()
	fmt.Fprintln(l.out, string(data))
	l.mu.Unlock()
}

var emailRegex = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)

// queryCredentialRegex matches credentials passed as URL query parameters,
// e.g. Hunter's and Instantly's api_key.
var queryCredentialRegex = regexp.MustCompile(`(?i)([?&](?:api_?key|key|access_?token|token)=)[^&\s"']+`)

// redactQueryCredentials masks query-string credentials regardless of the
// PII setting.
func redactQueryCredentials(val string) string {
	return queryCredentialRegex.ReplaceAllString(val, "${1}****")
}

func redactPIIValue(key, val string) string {
	key = strings.ToLower(key)
	if strings.Contains(key, "email") {
		return RedactEmail(val)
	}
	if isSecretKey(key) {
		return RedactSecret(val)
	}
	// Redact any embedded emails in generic fields
	return emailRegex.ReplaceAllStringFunc(val, RedactEmail)
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "key") || strings.Contains(key, "token") || strings.Contains(key, "secret")
}
