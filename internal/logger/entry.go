package logger

import (
	"context"
	"time"
)

// Entry carries metric fields for a single log line.
// Example: logger.With(logger.Fields{"count": 3}).Info(ctx, "backfill done")
type Entry struct {
	fields Fields
}

// With creates a new Entry with the given fields.
func With(fields Fields) *Entry {
	return &Entry{fields: fields}
}

// With adds more fields to an existing Entry.
func (e *Entry) With(fields Fields) *Entry {
	merged := make(Fields, len(e.fields)+len(fields))
	for k, v := range e.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Entry{fields: merged}
}

func (e *Entry) WithField(key string, value interface{}) *Entry {
	return e.With(Fields{key: value})
}

func (e *Entry) WithDuration(d time.Duration) *Entry {
	return e.WithField(FieldDurationMs, d.Milliseconds())
}

func (e *Entry) WithCount(count int) *Entry {
	return e.WithField(FieldCount, count)
}

func (e *Entry) WithError(err error) *Entry {
	if err == nil {
		return e
	}
	return e.WithField("error", err.Error())
}

func (e *Entry) Debug(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Debugf(format, args...)
}

func (e *Entry) Info(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Infof(format, args...)
}

func (e *Entry) Warn(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Warnf(format, args...)
}

func (e *Entry) Error(ctx context.Context, format string, args ...interface{}) {
	FromContext(ctx).WithFields(e.fields).Errorf(format, args...)
}

// CallTracker records the attempt, success and failure events of one external call.
type CallTracker struct {
	ctx   context.Context
	entry *Entry
	start time.Time
}

// Call logs the attempt of an external call and returns a tracker for its outcome.
func Call(ctx context.Context, name string, fields Fields) *CallTracker {
	entry := With(fields).WithField(FieldExternalCall, name)
	entry.WithField(FieldCallOutcome, OutcomeAttempt).Debug(ctx, "%s call started", name)
	return &CallTracker{ctx: ctx, entry: entry, start: time.Now()}
}

// Succeeded logs a success event with the elapsed duration.
func (c *CallTracker) Succeeded(fields Fields) {
	c.entry.With(fields).
		WithField(FieldCallOutcome, OutcomeSuccess).
		WithDuration(time.Since(c.start)).
		Debug(c.ctx, "%s call succeeded", c.entry.fields[FieldExternalCall])
}

// Failed logs a failure event tagged with the failure kind.
func (c *CallTracker) Failed(kind string, err error) {
	c.entry.
		WithField(FieldCallOutcome, OutcomeFailure).
		WithField(FieldFailureKind, kind).
		WithDuration(time.Since(c.start)).
		WithError(err).
		Warn(c.ctx, "%s call failed", c.entry.fields[FieldExternalCall])
}
