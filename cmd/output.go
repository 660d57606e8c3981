package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"factory/planner/internal/flow"
)

var (
	headingColor = color.New(color.Bold, color.FgCyan)
	warnColor    = color.New(color.FgYellow)
	errorColor   = color.New(color.FgRed, color.Bold)
	mutedColor   = color.New(color.Faint)

	numbers = message.NewPrinter(language.English)
)

// rate formats a per-minute amount with two decimals and digit grouping.
func rate(v float64) string {
	return numbers.Sprintf("%.2f", v)
}

func heading(w io.Writer, title string) {
	headingColor.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, "  ────────────────────────────────────────")
}

func printWarning(format string, args ...any) {
	warnColor.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}

func printError(err error) {
	switch {
	case errors.Is(err, flow.ErrImpossible):
		errorColor.Fprint(os.Stderr, "Impossible: ")
	case errors.Is(err, flow.ErrInvariant):
		errorColor.Fprint(os.Stderr, "Invariant violated: ")
	default:
		errorColor.Fprint(os.Stderr, "Error: ")
	}
	fmt.Fprintln(os.Stderr, err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
