package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/dmitrijs2005/attendkeeper/internal/scan"
)

// blockEnd ends a multi-line block such as a scan run or a QR batch.
const blockEnd = "."

// isTerminal is a test seam for term.IsTerminal.
var isTerminal = term.IsTerminal

func isInteractive(r io.Reader) bool {
	f, ok := r.(*os.File)
	if !ok {
		return false
	}
	return isTerminal(int(f.Fd()))
}

// ask prints prompt to w and reads the next non-blank line.
func ask(ctx context.Context, src scan.Source, w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt+"\n> ")
	return src.Next(ctx)
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(ctx context.Context, src scan.Source, w io.Writer, question string) (bool, error) {
	answer, err := ask(ctx, src, w, question+" [y/N]")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

// blockSource yields lines from src until a line holding only blockEnd,
// then reports io.EOF.
type blockSource struct {
	src  scan.Source
	done bool
}

func (b *blockSource) Next(ctx context.Context) (string, error) {
	if b.done {
		return "", io.EOF
	}
	line, err := b.src.Next(ctx)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(line) == blockEnd {
		b.done = true
		return "", io.EOF
	}
	return line, nil
}

// readBlock collects lines up to blockEnd or the end of input.
func readBlock(ctx context.Context, src scan.Source, w io.Writer, prompt string) ([]string, error) {
	fmt.Fprintf(w, "%s\n(finish with a line containing only %q)\n", prompt, blockEnd)

	b := &blockSource{src: src}
	var lines []string
	for {
		line, err := b.Next(ctx)
		if errors.Is(err, io.EOF) {
			return lines, nil
		}
		if err != nil {
			return lines, err
		}
		lines = append(lines, line)
	}
}
