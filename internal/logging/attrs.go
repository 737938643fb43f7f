package logging

import "log/slog"

const (
	FieldComponent = "component"
	FieldEventType = "event_type"
	FieldVideoID   = "video_id"
	FieldRequestID = "request_id"
	FieldImpact    = "impact"
)

func String(key, value string) slog.Attr { return slog.String(key, value) }

func Int(key string, value int) slog.Attr { return slog.Int(key, value) }

// Error returns a standard error attribute; nil errors produce an empty value.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String("error", "")
	}
	return slog.String("error", err.Error())
}
