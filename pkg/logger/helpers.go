package logger

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// LogPageFetch records one collection page request
func LogPageFetch(l Logger, collectionID string, page, items int, moreAvailable bool, duration time.Duration) {
	l.DebugWithFields("Fetched collection page", map[string]interface{}{
		"collection_id":  collectionID,
		"page":           page,
		"items":          items,
		"more_available": moreAvailable,
		"duration":       duration,
	})
}

// LogRecord records the outcome of merging one item into the table
func LogRecord(l Logger, url string, appended bool) {
	if appended {
		l.DebugWithFields("Appended record", map[string]interface{}{"url": url})
		return
	}
	l.DebugWithFields("Skipped duplicate record", map[string]interface{}{"url": url})
}

// LogClassification records a classifier call
func LogClassification(l Logger, provider string, cached bool, empty bool, err error) {
	fields := map[string]interface{}{
		"provider": provider,
		"cached":   cached,
		"empty":    empty,
	}
	if err != nil {
		l.WithError(err).WarnWithFields("Location extraction failed, storing empty location", fields)
		return
	}
	l.DebugWithFields("Location extracted", fields)
}

// LogCollectionSummary reports a finished collection run
func LogCollectionSummary(l Logger, name string, fields map[string]interface{}) {
	l.WithField("collection", name).InfoWithFields("Collection finished", fields)
}

// LogComponentStart logs when a component starts
func LogComponentStart(component string, config map[string]interface{}) {
	l := GetLogger().WithField("component", component)
	if len(config) > 0 {
		l = l.WithFields(config)
	}
	l.Info("Component started")
}

// LogComponentStop logs when a component stops
func LogComponentStop(component string, reason string) {
	GetLogger().WithFields(map[string]interface{}{
		"component": component,
		"reason":    reason,
	}).Info("Component stopped")
}

// NewNopLogger creates a logger that discards everything
func NewNopLogger() Logger {
	return &nopLogger{}
}

type nopLogger struct{}

var _ Logger = (*nopLogger)(nil)

func (n *nopLogger) Debug(string)                                   {}
func (n *nopLogger) Info(string)                                    {}
func (n *nopLogger) Warn(string)                                    {}
func (n *nopLogger) Error(string)                                   {}
func (n *nopLogger) Fatal(string)                                   {}
func (n *nopLogger) WithField(string, interface{}) Logger           { return n }
func (n *nopLogger) WithFields(map[string]interface{}) Logger       { return n }
func (n *nopLogger) WithError(error) Logger                         { return n }
func (n *nopLogger) WithContext(context.Context) Logger             { return n }
func (n *nopLogger) DebugWithFields(string, map[string]interface{}) {}
func (n *nopLogger) InfoWithFields(string, map[string]interface{})  {}
func (n *nopLogger) WarnWithFields(string, map[string]interface{})  {}
func (n *nopLogger) ErrorWithFields(string, map[string]interface{}) {}
func (n *nopLogger) FatalWithFields(string, map[string]interface{}) {}
func (n *nopLogger) GetZerolog() *zerolog.Logger                    { return &nopZerolog }
