package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	buildapi "github.com/electricimp/build-api"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
	ansiGray   = "\x1b[90m"
)

const entryTimeLayout = "2006-01-02 15:04:05.000Z07:00"

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// entryPrinter writes device log entries, one per line.
type entryPrinter struct {
	out      io.Writer
	json     *json.Encoder
	colorize bool
}

func newEntryPrinter(out io.Writer, asJSON bool) *entryPrinter {
	p := &entryPrinter{out: out, colorize: shouldColorize(out)}
	if asJSON {
		p.json = json.NewEncoder(out)
	}
	return p
}

func (p *entryPrinter) print(entries []buildapi.LogEntry) error {
	for _, e := range entries {
		if p.json != nil {
			if err := p.json.Encode(e); err != nil {
				return err
			}
			continue
		}
		if _, err := fmt.Fprintln(p.out, renderEntry(e, p.colorize)); err != nil {
			return err
		}
	}
	return nil
}

func renderEntry(e buildapi.LogEntry, colorize bool) string {
	ts := e.Timestamp.Local().Format(entryTimeLayout)
	kind := "[" + e.Type + "]"
	if !colorize {
		return fmt.Sprintf("%s %s %s", ts, kind, e.Message)
	}
	return fmt.Sprintf("%s%s%s %s%s%s %s", ansiGray, ts, ansiReset, logTypeColor(e.Type), kind, ansiReset, e.Message)
}

// logTypeColor picks a colour from the log source, e.g. "agent.error".
func logTypeColor(logType string) string {
	switch {
	case strings.HasSuffix(logType, ".error"):
		return ansiRed
	case strings.HasPrefix(logType, "agent."):
		return ansiYellow
	default:
		return ansiBlue
	}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.RFC3339)
}
