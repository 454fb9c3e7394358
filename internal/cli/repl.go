package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/dmitrijs2005/attendkeeper/internal/scan"
)

// execIface is the command surface the REPL dispatches to. App satisfies
// it; tests use a recording stub.
type execIface interface {
	Scan(ctx context.Context) error
	Today(ctx context.Context) error
	Date(ctx context.Context, args []string) error
	Range(ctx context.Context, args []string) error
	Report(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Clear(ctx context.Context, args []string) error
	Settings(ctx context.Context, args []string) error
	Sync(ctx context.Context) error
	Download(ctx context.Context) error
	QR(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  scan                               read badge payloads, one per line, until "."
  today                              today's attendance
  date <YYYY-MM-DD>                  attendance of one day
  range <from> <to>                  attendance between two dates
  report [today|week|month|custom <from> <to>] [summary|detailed|alerts]
                                     parent feedback reports (saved as HTML)
  export [csv|json|all] [YYYY-MM-DD] save an export file
  clear [YYYY-MM-DD|all]             delete attendance (asks first)
  settings [teacher|class|school <value>]
  sync                               push unsynced records
  download                           merge records from the cloud
  qr [size]                          generate QR ID cards from "id,name" lines
  exit | quit`

// runREPL reads commands from src and dispatches them to a until the input
// ends, ctx is cancelled, or the user types exit or quit. The prompt goes to
// prompt and replies to w. Command errors are reported by the commands
// themselves.
func runREPL(ctx context.Context, a execIface, statusFn func() string, src scan.Source, w, prompt io.Writer) {
	for {
		fmt.Fprintf(prompt, "attend %s> ", statusFn())
		line, err := src.Next(ctx)
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := strings.ToLower(parts[0]), parts[1:]

		switch cmd {
		case "help", "h":
			fmt.Fprintln(w, helpText)
		case "scan":
			_ = a.Scan(ctx)
		case "today":
			_ = a.Today(ctx)
		case "date":
			_ = a.Date(ctx, args)
		case "range":
			_ = a.Range(ctx, args)
		case "report":
			_ = a.Report(ctx, args)
		case "export":
			_ = a.Export(ctx, args)
		case "clear":
			_ = a.Clear(ctx, args)
		case "settings":
			_ = a.Settings(ctx, args)
		case "sync":
			_ = a.Sync(ctx)
		case "download":
			_ = a.Download(ctx)
		case "qr":
			_ = a.QR(ctx, args)
		case "exit", "quit":
			fmt.Fprintln(w, "Bye!")
			return
		default:
			fmt.Fprintln(w, "Unknown command:", cmd)
		}
	}
}
