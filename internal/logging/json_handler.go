package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

// runLogTimeLayout matches the timestamps the HTTP API returns for queue
// items so run log lines and queue rows line up.
const runLogTimeLayout = "2006-01-02T15:04:05.000Z07:00"

const redacted = "[redacted]"

// secretKeys never reach a log file in clear text.
var secretKeys = map[string]struct{}{
	"api_key":       {},
	"api_token":     {},
	"authorization": {},
	"token":         {},
}

func newJSONHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   addSource,
		ReplaceAttr: runLogAttr,
	})
}

// runLogAttr shapes records for the daemon run log: short top-level keys,
// UTC millisecond timestamps, file:line sources and masked credentials.
func runLogAttr(groups []string, attr slog.Attr) slog.Attr {
	if len(groups) == 0 {
		switch attr.Key {
		case slog.TimeKey:
			if attr.Value.Kind() == slog.KindTime {
				return slog.String("ts", attr.Value.Time().UTC().Format(runLogTimeLayout))
			}
			attr.Key = "ts"
			return attr
		case slog.LevelKey:
			return slog.String("level", strings.ToLower(attr.Value.String()))
		case slog.SourceKey:
			if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
				return slog.String(slog.SourceKey, fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
			}
			return attr
		}
	}
	if _, secret := secretKeys[strings.ToLower(attr.Key)]; secret && attr.Value.Kind() != slog.KindGroup {
		if attr.Value.Kind() == slog.KindString && attr.Value.String() == "" {
			return attr
		}
		return slog.String(attr.Key, redacted)
	}
	return attr
}
