package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRunID      contextKey = "run_id"
	ContextKeyCaseNumber contextKey = "case_number"
)

// WithRunID adds the batch run ID to the context
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, ContextKeyRunID, runID)
}

// RunIDFromContext extracts the batch run ID from context
func RunIDFromContext(ctx context.Context) string {
	if runID, ok := ctx.Value(ContextKeyRunID).(string); ok {
		return runID
	}
	return ""
}

// WithCaseNumber adds the case number of the row being processed to the context
func WithCaseNumber(ctx context.Context, caseNumber string) context.Context {
	return context.WithValue(ctx, ContextKeyCaseNumber, caseNumber)
}

// CaseNumberFromContext extracts the case number from context
func CaseNumberFromContext(ctx context.Context) string {
	if caseNumber, ok := ctx.Value(ContextKeyCaseNumber).(string); ok {
		return caseNumber
	}
	return ""
}
