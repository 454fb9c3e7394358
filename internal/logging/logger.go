// Package logging is the structured logger used across attendkeeper. Output
// goes to stderr or a file so it never mixes with the scan prompt.
package logging

import "context"

// Logger takes a message plus alternating keys and values:
//
//	log.Info(ctx, "attendance recorded", "student_id", id, "date", day)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child that adds args to every record.
	With(args ...any) Logger
}
