// Package context carries session and operation tracing values for the console
package context

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ctxKey is private so no other package can collide with these keys.
type ctxKey int

const (
	sessionIDKey ctxKey = iota
	operationKey
	callIDKey
	handlingKey
	startTimeKey
)

const (
	unknownSession   = "unknown-session"
	unknownOperation = "unknown-operation"
)

// WithSessionID tags the context with a console session ID, generating one when empty
func WithSessionID(parent context.Context, sessionID string) context.Context {
	if sessionID == "" {
		sessionID = GenerateSessionID()
	}
	return context.WithValue(parent, sessionIDKey, sessionID)
}

// GetSessionID retrieves the session ID from context
func GetSessionID(ctx context.Context) string {
	if id, ok := ctx.Value(sessionIDKey).(string); ok && id != "" {
		return id
	}
	return unknownSession
}

// HasSessionID reports whether the context carries a session ID
func HasSessionID(ctx context.Context) bool {
	return GetSessionID(ctx) != unknownSession
}

// WithOperation adds an operation name such as "save" or "assign"
func WithOperation(parent context.Context, operation string) context.Context {
	return context.WithValue(parent, operationKey, operation)
}

// GetOperation retrieves the operation name from context
func GetOperation(ctx context.Context) string {
	if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
		return op
	}
	return unknownOperation
}

// HasOperation reports whether the context names an operation
func HasOperation(ctx context.Context) bool {
	return GetOperation(ctx) != unknownOperation
}

// WithCallID ties the context to a single call
func WithCallID(parent context.Context, callID int64) context.Context {
	return context.WithValue(parent, callIDKey, callID)
}

// GetCallID retrieves the call ID, reporting false when none is set
func GetCallID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(callIDKey).(int64)
	return id, ok
}

// WithHandlingID tags one busy period of an agent
func WithHandlingID(parent context.Context, handlingID string) context.Context {
	if handlingID == "" {
		handlingID = GenerateHandlingID()
	}
	return context.WithValue(parent, handlingKey, handlingID)
}

// GetHandlingID retrieves the handling ID, empty when none is set
func GetHandlingID(ctx context.Context) string {
	id, _ := ctx.Value(handlingKey).(string)
	return id
}

// WithStartTime adds the operation start time to the context
func WithStartTime(parent context.Context, startTime time.Time) context.Context {
	return context.WithValue(parent, startTimeKey, startTime)
}

// GetStartTime retrieves the operation start time, zero when absent
func GetStartTime(ctx context.Context) time.Time {
	if t, ok := ctx.Value(startTimeKey).(time.Time); ok {
		return t
	}
	return time.Time{}
}

// GetDuration returns the time elapsed since the start time, zero when absent
func GetDuration(ctx context.Context) time.Duration {
	start := GetStartTime(ctx)
	if start.IsZero() {
		return 0
	}
	return time.Since(start)
}

// GenerateSessionID creates a new unique session ID
func GenerateSessionID() string {
	return "ses_" + uuid.New().String()
}

// GenerateHandlingID creates a new unique handling ID
func GenerateHandlingID() string {
	return "hdl_" + uuid.New().String()
}

// EnrichContext starts a traced operation, adding a session ID if none is present
func EnrichContext(parent context.Context, operation string) context.Context {
	ctx := parent
	if !HasSessionID(ctx) {
		ctx = WithSessionID(ctx, "")
	}
	if operation != "" {
		ctx = WithOperation(ctx, operation)
	}
	return WithStartTime(ctx, time.Now())
}

// TracingFields returns tracing values for structured logging
func TracingFields(ctx context.Context) map[string]interface{} {
	fields := map[string]interface{}{
		"session_id":  GetSessionID(ctx),
		"operation":   GetOperation(ctx),
		"duration_ms": GetDuration(ctx).Milliseconds(),
	}
	if id, ok := GetCallID(ctx); ok {
		fields["call_id"] = id
	}
	if id := GetHandlingID(ctx); id != "" {
		fields["handling_id"] = id
	}
	return fields
}
