package logger

import (
	"encoding/json"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

type Fields map[string]any

var log = newLogger(os.Stderr)

var sensitiveKeys = map[string]struct{}{
	"pin":           {},
	"password":      {},
	"token":         {},
	"authorization": {},
	"bearertoken":   {},
	"bearer_token":  {},
	"privatekey":    {},
	"jwtsecret":     {},
	"jwt_secret":    {},
}

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Initialize configures the process logger. format is "json" or "text".
func Initialize(level, format string) error {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		return err
	}
	log.SetLevel(lvl)

	if strings.EqualFold(strings.TrimSpace(format), "text") {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	return nil
}

// SetOutput redirects log output, mainly for tests and the CLI.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

func Info(message string, fields Fields) {
	log.WithFields(sanitizeFields(fields)).Info(message)
}

func Warn(message string, fields Fields) {
	log.WithFields(sanitizeFields(fields)).Warn(message)
}

func Debug(message string, fields Fields) {
	log.WithFields(sanitizeFields(fields)).Debug(message)
}

func Error(message string, err error, fields Fields) {
	entry := log.WithFields(sanitizeFields(fields))
	if err != nil {
		entry = entry.WithError(err)
	}

	entry.Error(message)
}

func SanitizePayload(payload any) any {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "<unavailable>"
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		return "<unavailable>"
	}

	return sanitizeValue(data)
}

func sanitizeFields(fields Fields) logrus.Fields {
	out := logrus.Fields{}
	if fields == nil {
		return out
	}

	sanitized, ok := SanitizePayload(map[string]any(fields)).(map[string]any)
	if !ok {
		return out
	}
	for k, v := range sanitized {
		out[k] = v
	}

	return out
}

func sanitizeValue(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(typed))
		for key, inner := range typed {
			if isSensitiveKey(key) {
				out[key] = "******"
				continue
			}
			out[key] = sanitizeValue(inner)
		}
		return out
	case []any:
		out := make([]any, 0, len(typed))
		for _, item := range typed {
			out = append(out, sanitizeValue(item))
		}
		return out
	default:
		return value
	}
}

func isSensitiveKey(key string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(key), "-", ""))
	_, ok := sensitiveKeys[normalized]
	return ok
}
